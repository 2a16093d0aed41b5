package pdb

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/jacoelho/xsd"
	xsderrors "github.com/jacoelho/xsd/errors"

	"github.com/installkit/wixpdb/pkg/xmlx"
)

//go:embed schema/*.xsd
var schemaFS embed.FS

// The compiled schema set is process-wide. Compiling schemas is expensive
// and the result is immutable, so the first loader pays once and everyone
// else reads the cached set without further synchronization.
var (
	schemaOnce sync.Once
	schemaSet  *xsd.Schema
	schemaErr  error
)

// schemas returns the compiled container schema set, loading it from the
// embedded resources on first use.
func schemas() (*xsd.Schema, error) {
	schemaOnce.Do(func() {
		sub, err := fs.Sub(schemaFS, "schema")
		if err != nil {
			schemaErr = fmt.Errorf("schema resources: %w", err)
			return
		}
		schemaSet, schemaErr = xsd.Load(sub, "pdbs.xsd")
	})
	return schemaSet, schemaErr
}

// validate runs the document through the schema set and maps validator
// findings onto the container error taxonomy, keeping the first finding's
// line and column.
func validate(doc []byte, source string) error {
	schema, err := schemas()
	if err != nil {
		return err
	}
	err = schema.Validate(bytes.NewReader(doc))
	if err == nil {
		return nil
	}

	var list xsderrors.ValidationList
	if errors.As(err, &list) && len(list) > 0 {
		first := list[0]
		return &xmlx.ParseError{
			Source: source,
			Pos:    xmlx.Pos{Line: first.Line, Column: first.Column},
			Err:    fmt.Errorf("%w: %s", ErrSchema, first.Message),
		}
	}
	return &xmlx.ParseError{Source: source, Err: fmt.Errorf("%w: %v", ErrSchema, err)}
}
