// Package output models the build output graph carried inside a pdb
// container: the typed tables, rows, and media records produced by a build,
// plus an optional reference to an embedded cabinet.
//
// The package owns the wixOutput XML codec. Parsing and persistence are
// streaming: Parse consumes a positioned decoder handed over by the
// container loader at the wixOutput start element, and Persist writes the
// same shape through a streaming writer. The container package delegates to
// both and treats the graph as opaque otherwise.
package output

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/installkit/wixpdb/pkg/cab"
	"github.com/installkit/wixpdb/pkg/xmlx"
)

// XMLNamespace is the namespace of the wixOutput element.
const XMLNamespace = "http://schemas.microsoft.com/wix/2006/outputs"

// ElementName is the local name of the output graph's root element.
const ElementName = "wixOutput"

// ErrVersionMismatch is returned when a document's version attribute is not
// exactly the current format version and the version check is not
// suppressed.
var ErrVersionMismatch = errors.New("format version mismatch")

// Version is a four-part format version. Compatibility is exact equality,
// never a range check.
type Version struct {
	Major    int
	Minor    int
	Build    int
	Revision int
}

// CurrentVersion is the format version written by this library and required
// on load unless the version check is suppressed.
var CurrentVersion = Version{Major: 3, Minor: 0, Build: 3200, Revision: 0}

// ParseVersion parses a "major.minor.build.revision" string.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return Version{}, fmt.Errorf("version %q: want four dot-separated parts", s)
	}
	nums := make([]int, 4)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("version %q: part %q is not a non-negative integer", s, p)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Build: nums[2], Revision: nums[3]}, nil
}

// String formats the version as "major.minor.build.revision".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Build, v.Revision)
}

// Type identifies what kind of installer artifact an output describes.
type Type string

// Output types.
const (
	TypeUnknown       Type = ""
	TypeProduct       Type = "product"
	TypeModule        Type = "module"
	TypePatch         Type = "patch"
	TypePatchCreation Type = "patchCreation"
	TypeTransform     Type = "transform"
	TypeBundle        Type = "bundle"
)

// Output is the in-memory build output graph.
type Output struct {
	Type     Type
	Codepage int
	Tables   []*Table
	Media    []*Media

	// Cabinet references the embedded cabinet extracted while loading a
	// composite container. Nil for bare containers.
	Cabinet *Cabinet

	// EmbedFiles lists files to pack into a fresh cabinet when the output
	// is persisted. Ignored when Cabinet is already set.
	EmbedFiles []cab.File
}

// Table is a named table with typed columns and data rows.
type Table struct {
	Name    string
	Columns []Column
	Rows    []*Row
}

// Table returns the table with the given name, or nil.
func (o *Output) Table(name string) *Table {
	for _, t := range o.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// EnsureTable returns the named table, creating it with the given columns
// if it does not exist yet.
func (o *Output) EnsureTable(name string, columns ...Column) *Table {
	if t := o.Table(name); t != nil {
		return t
	}
	t := &Table{Name: name, Columns: columns}
	o.Tables = append(o.Tables, t)
	return t
}

// RowCount returns the total number of rows across all tables.
func (o *Output) RowCount() int {
	n := 0
	for _, t := range o.Tables {
		n += len(t.Rows)
	}
	return n
}

// ColumnType is the storage type of a table column.
type ColumnType string

// Column types.
const (
	ColumnString ColumnType = "string"
	ColumnNumber ColumnType = "number"
	ColumnObject ColumnType = "object"
)

// Column describes one table column.
type Column struct {
	Name       string
	Type       ColumnType
	Length     int
	Nullable   bool
	PrimaryKey bool
}

// Row is one data row. Location is the row's position in the container
// document it was parsed from; the zero value for rows built in memory.
type Row struct {
	Fields   []Field
	Location xmlx.Pos
}

// AddRow appends a row with the given field data.
func (t *Table) AddRow(data ...string) *Row {
	r := &Row{Fields: make([]Field, len(data))}
	for i, d := range data {
		r.Fields[i] = Field{Data: d}
	}
	t.Rows = append(t.Rows, r)
	return r
}

// Field is one cell of a row. Modified marks fields changed after the
// original build, which patch tooling uses to detect deltas.
type Field struct {
	Data     string
	Modified bool
	Location xmlx.Pos
}

// Media describes one disk of the output's media layout.
type Media struct {
	DiskID       int
	Cabinet      string
	EmbedCabinet bool
	LastSequence int
}
