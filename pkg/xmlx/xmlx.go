// Package xmlx provides position-aware XML plumbing shared by the pdb
// container and output graph codecs.
//
// The standard encoding/xml decoder reports byte offsets but not line and
// column numbers. Decoder wraps it over an in-memory buffer with a newline
// index so every token can be attributed to a (line, column) pair, which the
// loaders surface in their diagnostics. Value is the matching plain carrier
// for parsed text: the text itself plus the position it came from.
//
// Writer is a minimal streaming element writer used for persistence. It
// escapes content, tracks open elements, and keeps the first error it hits
// so callers can write an entire document and check once at the end.
package xmlx

import (
	"bytes"
	"encoding/xml"
	"errors"
	"sort"
)

// Sentinel errors for structural XML mismatches during parsing.
var (
	// ErrUnexpectedAttribute is returned when an element carries an
	// attribute the format does not define.
	ErrUnexpectedAttribute = errors.New("unexpected attribute")

	// ErrUnexpectedElement is returned when a child element is not part
	// of the format.
	ErrUnexpectedElement = errors.New("unexpected element")

	// ErrExpectedEndElement is returned when the stream ends before the
	// matching end element is seen.
	ErrExpectedEndElement = errors.New("unexpected end of stream, expected end element")
)

// Pos is a 1-based line and column position in an XML source.
// The zero value means "position unknown".
type Pos struct {
	Line   int
	Column int
}

// Valid reports whether the position carries real line information.
func (p Pos) Valid() bool { return p.Line > 0 }

// Value is a parsed text value together with the position it was read from.
// It replaces any need to subclass decoder node types: parsers return the
// pair alongside their results.
type Value struct {
	Text string
	Pos
}

// Decoder wraps encoding/xml.Decoder over an in-memory document and maps
// token offsets to line and column positions.
type Decoder struct {
	*xml.Decoder

	lines  []int64 // byte offset of the start of each line
	tokPos Pos
}

// NewDecoder creates a position-tracking decoder over data.
func NewDecoder(data []byte) *Decoder {
	lines := []int64{0}
	for i, b := range data {
		if b == '\n' {
			lines = append(lines, int64(i)+1)
		}
	}
	return &Decoder{
		Decoder: xml.NewDecoder(bytes.NewReader(data)),
		lines:   lines,
	}
}

// Token returns the next token and records its starting position,
// retrievable via Pos until the next call.
func (d *Decoder) Token() (xml.Token, error) {
	start := d.InputOffset()
	tok, err := d.Decoder.Token()
	d.tokPos = d.posAt(start)
	return tok, err
}

// Pos returns the position of the most recently returned token.
func (d *Decoder) Pos() Pos { return d.tokPos }

// posAt converts a byte offset into a 1-based line and column.
func (d *Decoder) posAt(offset int64) Pos {
	i := sort.Search(len(d.lines), func(i int) bool { return d.lines[i] > offset }) - 1
	if i < 0 {
		return Pos{}
	}
	return Pos{Line: i + 1, Column: int(offset-d.lines[i]) + 1}
}
