package output

import (
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/installkit/wixpdb/pkg/xmlx"
)

// Parse reads a wixOutput element from d. The decoder must be positioned
// just past the element's start tag, which is passed as start; this is how
// the container loader hands over after recognizing the child. Parse
// consumes through the matching end element.
//
// The element's own version attribute is gated against CurrentVersion by
// exact equality unless suppressVersionCheck is set.
func Parse(d *xmlx.Decoder, start xml.StartElement, suppressVersionCheck bool) (*Output, error) {
	if start.Name.Local != ElementName {
		return nil, xmlx.PosErrorf(d.Pos(), "element %q: %w", start.Name.Local, xmlx.ErrUnexpectedElement)
	}

	o := &Output{}
	for _, attr := range start.Attr {
		switch {
		case isNamespaceDecl(attr.Name):
		case attr.Name.Local == "version":
			v, err := ParseVersion(attr.Value)
			if err != nil {
				return nil, xmlx.PosError(d.Pos(), err)
			}
			if !suppressVersionCheck && v != CurrentVersion {
				return nil, xmlx.PosErrorf(d.Pos(), "document version %s, current version %s: %w", v, CurrentVersion, ErrVersionMismatch)
			}
		case attr.Name.Local == "type":
			o.Type = Type(attr.Value)
		case attr.Name.Local == "codepage":
			cp, err := strconv.Atoi(attr.Value)
			if err != nil {
				return nil, xmlx.PosErrorf(d.Pos(), "codepage %q: %v", attr.Value, err)
			}
			o.Codepage = cp
		default:
			return nil, unexpectedAttr(d, ElementName, attr)
		}
	}

	for {
		tok, err := advance(d, ElementName)
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "table":
				table, err := parseTable(d, t)
				if err != nil {
					return nil, err
				}
				o.Tables = append(o.Tables, table)
			case "media":
				media, err := parseMedia(d, t)
				if err != nil {
					return nil, err
				}
				o.Media = append(o.Media, media)
			default:
				return nil, unexpectedElem(d, t)
			}
		case xml.EndElement:
			return o, nil
		}
	}
}

// parseTable reads a table element: name attribute, column definitions,
// then rows.
func parseTable(d *xmlx.Decoder, start xml.StartElement) (*Table, error) {
	table := &Table{}
	for _, attr := range start.Attr {
		switch {
		case isNamespaceDecl(attr.Name):
		case attr.Name.Local == "name":
			table.Name = attr.Value
		default:
			return nil, unexpectedAttr(d, "table", attr)
		}
	}

	for {
		tok, err := advance(d, "table")
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "columnDefinition":
				col, err := parseColumn(d, t)
				if err != nil {
					return nil, err
				}
				table.Columns = append(table.Columns, col)
			case "row":
				row, err := parseRow(d, t)
				if err != nil {
					return nil, err
				}
				table.Rows = append(table.Rows, row)
			default:
				return nil, unexpectedElem(d, t)
			}
		case xml.EndElement:
			return table, nil
		}
	}
}

func parseColumn(d *xmlx.Decoder, start xml.StartElement) (Column, error) {
	col := Column{}
	for _, attr := range start.Attr {
		var err error
		switch {
		case isNamespaceDecl(attr.Name):
		case attr.Name.Local == "name":
			col.Name = attr.Value
		case attr.Name.Local == "type":
			col.Type = ColumnType(attr.Value)
		case attr.Name.Local == "length":
			col.Length, err = strconv.Atoi(attr.Value)
		case attr.Name.Local == "nullable":
			col.Nullable = attr.Value == "yes"
		case attr.Name.Local == "primaryKey":
			col.PrimaryKey = attr.Value == "yes"
		default:
			return Column{}, unexpectedAttr(d, "columnDefinition", attr)
		}
		if err != nil {
			return Column{}, xmlx.PosErrorf(d.Pos(), "columnDefinition/@%s %q: %v", attr.Name.Local, attr.Value, err)
		}
	}
	if err := consumeEmpty(d, "columnDefinition"); err != nil {
		return Column{}, err
	}
	return col, nil
}

func parseRow(d *xmlx.Decoder, start xml.StartElement) (*Row, error) {
	row := &Row{Location: d.Pos()}
	for _, attr := range start.Attr {
		if isNamespaceDecl(attr.Name) {
			continue
		}
		return nil, unexpectedAttr(d, "row", attr)
	}

	for {
		tok, err := advance(d, "row")
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "field" {
				return nil, unexpectedElem(d, t)
			}
			field, err := parseField(d, t)
			if err != nil {
				return nil, err
			}
			row.Fields = append(row.Fields, field)
		case xml.EndElement:
			return row, nil
		}
	}
}

func parseField(d *xmlx.Decoder, start xml.StartElement) (Field, error) {
	field := Field{Location: d.Pos()}
	for _, attr := range start.Attr {
		switch {
		case isNamespaceDecl(attr.Name):
		case attr.Name.Local == "modified":
			field.Modified = attr.Value == "yes"
		default:
			return Field{}, unexpectedAttr(d, "field", attr)
		}
	}

	var text strings.Builder
	for {
		tok, err := d.Token()
		if err != nil {
			return Field{}, endOfStream(d, "field", err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			field.Data = text.String()
			return field, nil
		case xml.StartElement:
			return Field{}, unexpectedElem(d, t)
		}
	}
}

func parseMedia(d *xmlx.Decoder, start xml.StartElement) (*Media, error) {
	m := &Media{}
	for _, attr := range start.Attr {
		var err error
		switch {
		case isNamespaceDecl(attr.Name):
		case attr.Name.Local == "diskId":
			m.DiskID, err = strconv.Atoi(attr.Value)
		case attr.Name.Local == "cabinet":
			m.Cabinet = attr.Value
		case attr.Name.Local == "embedCab":
			m.EmbedCabinet = attr.Value == "yes"
		case attr.Name.Local == "lastSequence":
			m.LastSequence, err = strconv.Atoi(attr.Value)
		default:
			return nil, unexpectedAttr(d, "media", attr)
		}
		if err != nil {
			return nil, xmlx.PosErrorf(d.Pos(), "media/@%s %q: %v", attr.Name.Local, attr.Value, err)
		}
	}
	if err := consumeEmpty(d, "media"); err != nil {
		return nil, err
	}
	return m, nil
}

// advance returns the next significant token inside elem, skipping
// character data and comments. A stream that ends before elem's end
// element yields ErrExpectedEndElement.
func advance(d *xmlx.Decoder, elem string) (xml.Token, error) {
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, endOfStream(d, elem, err)
		}
		switch tok.(type) {
		case xml.CharData, xml.Comment, xml.ProcInst, xml.Directive:
			continue
		default:
			return tok, nil
		}
	}
}

// consumeEmpty reads through the end of an element that allows no children.
func consumeEmpty(d *xmlx.Decoder, elem string) error {
	tok, err := advance(d, elem)
	if err != nil {
		return err
	}
	if t, ok := tok.(xml.StartElement); ok {
		return unexpectedElem(d, t)
	}
	return nil
}

func endOfStream(d *xmlx.Decoder, elem string, err error) error {
	if errors.Is(err, io.EOF) {
		return xmlx.PosErrorf(d.Pos(), "element %q not closed: %w", elem, xmlx.ErrExpectedEndElement)
	}
	return xmlx.PosError(d.Pos(), err)
}

func unexpectedAttr(d *xmlx.Decoder, elem string, attr xml.Attr) error {
	return xmlx.PosErrorf(d.Pos(), "element %q, attribute %q: %w", elem, attr.Name.Local, xmlx.ErrUnexpectedAttribute)
}

func unexpectedElem(d *xmlx.Decoder, start xml.StartElement) error {
	return xmlx.PosErrorf(d.Pos(), "element %q: %w", start.Name.Local, xmlx.ErrUnexpectedElement)
}

// isNamespaceDecl reports whether attr is an xmlns declaration or an
// attribute in the reserved xml namespace. Both are format-neutral and
// never rejected.
func isNamespaceDecl(name xml.Name) bool {
	switch name.Space {
	case "xmlns", "xml", "http://www.w3.org/XML/1998/namespace":
		return true
	}
	return name.Space == "" && name.Local == "xmlns"
}
