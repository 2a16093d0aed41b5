package xmlx

import "fmt"

// ParseError attaches a source locator and position to a parse failure.
// Err retains the sentinel chain for errors.Is checks.
type ParseError struct {
	Source string // origin locator, may be empty for in-memory parses
	Pos
	Err error
}

// Error formats as "source:line:column: message", dropping whatever parts
// are unknown.
func (e *ParseError) Error() string {
	switch {
	case e.Source != "" && e.Valid():
		return fmt.Sprintf("%s:%d:%d: %v", e.Source, e.Line, e.Column, e.Err)
	case e.Source != "":
		return fmt.Sprintf("%s: %v", e.Source, e.Err)
	case e.Valid():
		return fmt.Sprintf("%d:%d: %v", e.Line, e.Column, e.Err)
	default:
		return e.Err.Error()
	}
}

// Unwrap returns the wrapped error.
func (e *ParseError) Unwrap() error { return e.Err }

// PosError wraps err with the given position.
func PosError(pos Pos, err error) error {
	return &ParseError{Pos: pos, Err: err}
}

// PosErrorf wraps a formatted error with the given position. The format
// supports %w so sentinels stay matchable.
func PosErrorf(pos Pos, format string, args ...any) error {
	return &ParseError{Pos: pos, Err: fmt.Errorf(format, args...)}
}
