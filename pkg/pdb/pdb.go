// Package pdb round-trips WiX build metadata containers between durable
// storage and an in-memory output graph.
//
// A container on disk is either bare XML or a composite file: a 12-byte
// cabinet header (MSCF magic, unverified checksum, little-endian payload
// length), the cabinet payload, then the XML document. The two forms are
// told apart solely by the first four bytes. Loading a composite container
// extracts the cabinet into a temporary artifact and hands the XML body to
// the same parser as the bare form; the artifact is attached to the output
// graph as a lazy reference.
//
// Documents carry a version attribute compared for exact equality against
// output.CurrentVersion, and are checked against the bundled schema set.
// Both checks can be suppressed per load. A load either yields a complete
// Container or fails with one of the package's sentinel errors; there is
// no partial result. Saving writes the current format version always, and
// guarantees the file handle is released on every path but not atomicity:
// a failed save can leave a truncated file behind.
package pdb

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/installkit/wixpdb/pkg/cab"
	"github.com/installkit/wixpdb/pkg/output"
	"github.com/installkit/wixpdb/pkg/xmlx"
)

// XMLNamespace is the namespace of the wixPdb root element.
const XMLNamespace = "http://schemas.microsoft.com/wix/2006/pdbs"

// ElementName is the local name of the container root element.
const ElementName = "wixPdb"

// LoadOptions controls validation policy and scratch space for a load.
type LoadOptions struct {
	// SuppressVersionCheck accepts any version attribute, on the container
	// root and on the output graph element.
	SuppressVersionCheck bool

	// SuppressSchemaValidation skips the schema pre-pass.
	SuppressSchemaValidation bool

	// TempDir is where an embedded cabinet is extracted to.
	// Empty means the system temp directory.
	TempDir string
}

// Container is a loaded or programmatically built pdb.
type Container struct {
	// FormatVersion is the version attribute read from the source
	// document, or output.CurrentVersion for containers built in memory.
	// Save always writes output.CurrentVersion, never this value.
	FormatVersion output.Version

	// Output is the build output graph. Never nil for a loaded container.
	Output *output.Output
}

// New creates a container around an output graph, ready to Save.
func New(o *output.Output) *Container {
	return &Container{FormatVersion: output.CurrentVersion, Output: o}
}

// Load reads a container from path.
func Load(path string, opts LoadOptions) (*Container, error) {
	f, err := os.Open(path)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		case os.IsPermission(err):
			return nil, fmt.Errorf("%w: %s", ErrDenied, path)
		default:
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
	}
	defer f.Close()

	return LoadReader(f, path, opts)
}

// LoadReader reads a container from r. The source locator only feeds
// diagnostics and may be empty.
func LoadReader(r io.Reader, source string, opts LoadOptions) (*Container, error) {
	br := bufio.NewReader(r)

	// Format sniff: the first four bytes decide bare vs composite.
	var cabinet *output.Cabinet
	head, err := br.Peek(len(cab.Magic))
	if err == nil && cab.IsMagic(head) {
		cabinet, err = extractCabinet(br, opts.TempDir)
		if err != nil {
			return nil, annotate(err, source)
		}
	}

	doc, err := io.ReadAll(br)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}

	if !opts.SuppressSchemaValidation {
		if err := validate(doc, source); err != nil {
			return nil, err
		}
	}

	c, err := parse(doc, opts)
	if err != nil {
		return nil, annotate(err, source)
	}
	if cabinet != nil {
		c.Output.Cabinet = cabinet
	}
	return c, nil
}

// extractCabinet consumes the embedded-region header and copies the
// payload into a temporary artifact without loading it into memory.
func extractCabinet(r io.Reader, tempDir string) (*output.Cabinet, error) {
	header, err := cab.ReadHeader(r)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(tempDir, "wixpdb-*.cab")
	if err != nil {
		return nil, fmt.Errorf("extract cabinet: %w", err)
	}
	if _, err := io.CopyN(tmp, r, int64(header.Size)); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("extract cabinet (%d bytes): %w", header.Size, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("extract cabinet: %w", err)
	}
	return &output.Cabinet{Path: tmp.Name(), Size: int64(header.Size)}, nil
}

// parse reads the XML body: root validation, root attributes, the single
// output graph child.
func parse(doc []byte, opts LoadOptions) (*Container, error) {
	d := xmlx.NewDecoder(doc)

	root, err := content(d)
	if err != nil {
		return nil, err
	}
	if root.Name.Local != ElementName {
		return nil, xmlx.PosErrorf(d.Pos(), "root element %q: %w", root.Name.Local, ErrNotABuildOutput)
	}

	c := &Container{FormatVersion: output.CurrentVersion}
	for _, attr := range root.Attr {
		switch {
		case isNamespaceDecl(attr.Name):
		case attr.Name.Local == "version":
			v, err := output.ParseVersion(attr.Value)
			if err != nil {
				return nil, xmlx.PosError(d.Pos(), err)
			}
			if !opts.SuppressVersionCheck && v != output.CurrentVersion {
				return nil, xmlx.PosErrorf(d.Pos(), "container version %s, current version %s: %w",
					v, output.CurrentVersion, ErrVersionMismatch)
			}
			c.FormatVersion = v
		default:
			return nil, xmlx.PosErrorf(d.Pos(), "element %q, attribute %q: %w",
				ElementName, attr.Name.Local, xmlx.ErrUnexpectedAttribute)
		}
	}

	for {
		tok, err := d.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, xmlx.PosErrorf(d.Pos(), "element %q not closed: %w",
					ElementName, xmlx.ErrExpectedEndElement)
			}
			return nil, xmlx.PosError(d.Pos(), err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != output.ElementName || c.Output != nil {
				return nil, xmlx.PosErrorf(d.Pos(), "element %q: %w", t.Name.Local, xmlx.ErrUnexpectedElement)
			}
			o, err := output.Parse(d, t, opts.SuppressVersionCheck)
			if err != nil {
				return nil, err
			}
			c.Output = o
		case xml.EndElement:
			if c.Output == nil {
				c.Output = &output.Output{}
			}
			return c, nil
		}
	}
}

// content advances to the document's root content node.
func content(d *xmlx.Decoder) (xml.StartElement, error) {
	for {
		tok, err := d.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return xml.StartElement{}, xmlx.PosErrorf(d.Pos(), "%w: document has no root element", ErrMalformed)
			}
			return xml.StartElement{}, xmlx.PosError(d.Pos(), err)
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se, nil
		}
	}
}

// Save writes the container to path, creating the destination directory if
// needed. The output graph decides whether cabinet bytes precede the XML;
// when they do, the XML write appends instead of creating fresh. The
// version attribute written is always the current format version.
func (c *Container) Save(path string, cabinets cab.Builder, resolver output.VariableResolver, tempDir string) error {
	if c.Output == nil {
		return fmt.Errorf("save %s: container has no output graph", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return saveErr(path, err)
		}
	}

	wroteCabinet, err := c.Output.SaveCabinet(path, cabinets, resolver, tempDir)
	if err != nil {
		return saveErr(path, err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if wroteCabinet {
		flags = os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return saveErr(path, err)
	}
	defer f.Close()

	w := xmlx.NewWriter(f)
	w.Declaration()
	w.Start(ElementName)
	w.Attr("xmlns", XMLNamespace)
	w.Attr("version", output.CurrentVersion.String())
	c.Output.Persist(w)
	w.End()
	if err := w.Flush(); err != nil {
		return saveErr(path, err)
	}
	return f.Close()
}

// annotate stamps the source locator onto positional errors and folds raw
// XML syntax errors into the malformed-document taxonomy.
func annotate(err error, source string) error {
	if err == nil {
		return nil
	}

	var syn *xml.SyntaxError
	if errors.As(err, &syn) {
		pos := xmlx.Pos{Line: syn.Line}
		var pe *xmlx.ParseError
		if errors.As(err, &pe) && pe.Valid() {
			pos = pe.Pos
		}
		return &xmlx.ParseError{Source: source, Pos: pos, Err: fmt.Errorf("%w: %v", ErrMalformed, syn)}
	}

	var pe *xmlx.ParseError
	if errors.As(err, &pe) && pe.Source == "" {
		pe.Source = source
	}
	return err
}

func saveErr(path string, err error) error {
	if os.IsPermission(err) {
		return fmt.Errorf("%w: %s", ErrDenied, path)
	}
	return fmt.Errorf("save %s: %w", path, err)
}

// isNamespaceDecl reports whether attr is an xmlns declaration or in the
// reserved xml namespace.
func isNamespaceDecl(name xml.Name) bool {
	switch name.Space {
	case "xmlns", "xml", "http://www.w3.org/XML/1998/namespace":
		return true
	}
	return name.Space == "" && name.Local == "xmlns"
}
