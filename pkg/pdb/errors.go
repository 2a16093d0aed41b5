package pdb

import (
	"errors"

	"github.com/installkit/wixpdb/pkg/output"
	"github.com/installkit/wixpdb/pkg/xmlx"
)

// Sentinel errors for container loading and saving. Positional context,
// when available, travels in a wrapping xmlx.ParseError; match with
// errors.Is and dig out the position with errors.As.
var (
	// ErrNotFound is returned when the source path does not exist.
	ErrNotFound = errors.New("container file not found")

	// ErrMalformed is returned when the XML body cannot be parsed.
	ErrMalformed = errors.New("malformed xml")

	// ErrSchema is returned when the document fails schema validation.
	ErrSchema = errors.New("schema validation failed")

	// ErrNotABuildOutput is returned when the root element is not wixPdb.
	ErrNotABuildOutput = errors.New("not a build output container")

	// ErrDenied is returned when the destination cannot be written due to
	// permissions.
	ErrDenied = errors.New("destination cannot be written")
)

// Structural errors shared with the output codec, re-exported so callers
// can match the whole load taxonomy from one package.
var (
	ErrVersionMismatch     = output.ErrVersionMismatch
	ErrUnexpectedAttribute = xmlx.ErrUnexpectedAttribute
	ErrUnexpectedElement   = xmlx.ErrUnexpectedElement
	ErrExpectedEndElement  = xmlx.ErrExpectedEndElement
)
