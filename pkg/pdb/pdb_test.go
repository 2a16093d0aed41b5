package pdb

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/installkit/wixpdb/pkg/cab"
	"github.com/installkit/wixpdb/pkg/output"
	"github.com/installkit/wixpdb/pkg/xmlx"
)

// suppressAll skips schema and version validation for tests that target
// the parser itself.
var suppressAll = LoadOptions{SuppressVersionCheck: true, SuppressSchemaValidation: true}

func loadString(t *testing.T, doc string, opts LoadOptions) (*Container, error) {
	t.Helper()
	opts.TempDir = t.TempDir()
	return LoadReader(strings.NewReader(doc), "test.wixpdb", opts)
}

func TestSaveShape(t *testing.T) {
	c := New(&output.Output{})
	path := filepath.Join(t.TempDir(), "empty.wixpdb")
	if err := c.Save(path, nil, nil, ""); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	prefix := `<?xml version="1.0"?><wixPdb xmlns="http://schemas.microsoft.com/wix/2006/pdbs" version="3.0.3200.0">`
	if !strings.HasPrefix(string(data), prefix) {
		t.Errorf("document prefix mismatch:\n got: %.120s\nwant: %s", data, prefix)
	}
	if !strings.HasSuffix(string(data), "</wixPdb>") {
		t.Errorf("document should end with </wixPdb>, got %q", data[len(data)-20:])
	}

	// Loading it back (schema suppressed) yields the current version.
	got, err := Load(path, LoadOptions{SuppressSchemaValidation: true})
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if got.FormatVersion != output.CurrentVersion {
		t.Errorf("FormatVersion = %s, want %s", got.FormatVersion, output.CurrentVersion)
	}
}

func TestRoundTripBare(t *testing.T) {
	o := &output.Output{Type: output.TypeProduct, Codepage: 1252}
	table := o.EnsureTable("Property",
		output.Column{Name: "Property", Type: output.ColumnString, Length: 72, PrimaryKey: true},
		output.Column{Name: "Value", Type: output.ColumnString},
	)
	table.AddRow("ProductCode", "{DEAD-BEEF}")
	table.AddRow("ProductVersion", "1.0.0")

	path := filepath.Join(t.TempDir(), "product.wixpdb")
	if err := New(o).Save(path, nil, nil, ""); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	c, err := Load(path, LoadOptions{SuppressSchemaValidation: true})
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if c.Output.Cabinet != nil {
		t.Error("bare container should have no cabinet")
	}
	if c.Output.Type != o.Type || c.Output.Codepage != o.Codepage {
		t.Errorf("output header = (%s, %d), want (%s, %d)", c.Output.Type, c.Output.Codepage, o.Type, o.Codepage)
	}
	got := c.Output.Table("Property")
	if got == nil {
		t.Fatal("Property table missing after round trip")
	}
	if len(got.Rows) != 2 || got.Rows[0].Fields[1].Data != "{DEAD-BEEF}" {
		t.Errorf("rows did not survive round trip: %+v", got.Rows)
	}
	if len(got.Columns) != 2 || !got.Columns[0].PrimaryKey {
		t.Errorf("columns did not survive round trip: %+v", got.Columns)
	}
}

func TestVersionGate(t *testing.T) {
	doc := `<?xml version="1.0"?><wixPdb xmlns="` + XMLNamespace + `" version="2.0.1234.0"></wixPdb>`

	_, err := loadString(t, doc, LoadOptions{SuppressSchemaValidation: true})
	if !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("err = %v, want ErrVersionMismatch", err)
	}

	c, err := loadString(t, doc, suppressAll)
	if err != nil {
		t.Fatalf("suppressed load error: %v", err)
	}
	want := output.Version{Major: 2, Minor: 0, Build: 1234, Revision: 0}
	if c.FormatVersion != want {
		t.Errorf("FormatVersion = %s, want %s", c.FormatVersion, want)
	}
}

func TestMagicDetection(t *testing.T) {
	xmlBody := `<wixPdb version="3.0.3200.0"><wixOutput version="3.0.3200.0"></wixOutput></wixPdb>`
	payload := []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE}

	// The 12-byte header from the format definition:
	// 4D 53 43 46 | checksum (ignored) | 05 00 00 00
	var buf bytes.Buffer
	buf.Write([]byte{0x4D, 0x53, 0x43, 0x46, 0x00, 0x00, 0x00, 0x00, 0x05, 0x00, 0x00, 0x00})
	buf.Write(payload)
	buf.WriteString(xmlBody)

	c, err := loadString(t, buf.String(), suppressAll)
	if err != nil {
		t.Fatalf("composite load error: %v", err)
	}
	cabinet := c.Output.Cabinet
	if cabinet == nil {
		t.Fatal("composite container should carry a cabinet reference")
	}
	if cabinet.Size != int64(len(payload)) {
		t.Errorf("cabinet size = %d, want %d", cabinet.Size, len(payload))
	}
	got, err := os.ReadFile(cabinet.Path)
	if err != nil {
		t.Fatalf("read extracted cabinet: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("extracted payload = % X, want % X", got, payload)
	}
}

func TestNonMagicIsBareXML(t *testing.T) {
	doc := `<wixPdb version="3.0.3200.0"></wixPdb>`
	c, err := loadString(t, doc, suppressAll)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if c.Output.Cabinet != nil {
		t.Error("bare XML input must not produce a cabinet reference")
	}
}

func TestCompositeRoundTrip(t *testing.T) {
	dir := t.TempDir()
	payload := []byte("pretend cabinet bytes")
	cabFile := filepath.Join(dir, "loaded.cab")
	if err := os.WriteFile(cabFile, payload, 0644); err != nil {
		t.Fatal(err)
	}

	o := &output.Output{Type: output.TypeProduct}
	o.Cabinet = &output.Cabinet{Path: cabFile, Size: int64(len(payload))}

	dest := filepath.Join(dir, "composite.wixpdb")
	if err := New(o).Save(dest, nil, nil, dir); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !cab.IsMagic(data) {
		t.Fatal("composite save should start with the cabinet magic")
	}

	opts := suppressAll
	opts.TempDir = dir
	c, err := Load(dest, opts)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if c.Output.Cabinet == nil {
		t.Fatal("cabinet lost on round trip")
	}
	got, err := os.ReadFile(c.Output.Cabinet.Path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("cabinet payload = %q, want %q", got, payload)
	}
	if c.Output.Type != output.TypeProduct {
		t.Errorf("output type = %q, want product", c.Output.Type)
	}
}

func TestRootValidation(t *testing.T) {
	// The wrong root fails before its attributes or children are looked
	// at, even though both would also be invalid.
	doc := `<somethingElse bogus="x"><alsoBogus/></somethingElse>`
	_, err := loadString(t, doc, suppressAll)
	if !errors.Is(err, ErrNotABuildOutput) {
		t.Fatalf("err = %v, want ErrNotABuildOutput", err)
	}
}

func TestUnknownContent(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want error
	}{
		{"attribute", `<wixPdb version="3.0.3200.0" extra="x"></wixPdb>`, ErrUnexpectedAttribute},
		{"element", `<wixPdb version="3.0.3200.0"><bogus/></wixPdb>`, ErrUnexpectedElement},
		{"second output", `<wixPdb><wixOutput></wixOutput><wixOutput></wixOutput></wixPdb>`, ErrUnexpectedElement},
		{"unterminated", `<wixPdb version="3.0.3200.0">`, ErrExpectedEndElement},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := loadString(t, tc.doc, suppressAll)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestMalformedXML(t *testing.T) {
	doc := "<wixPdb version=\"3.0.3200.0\">\n<wixOutput></wixPdb>"
	_, err := loadString(t, doc, suppressAll)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}

	var pe *xmlx.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err %v should carry positional context", err)
	}
	if pe.Source != "test.wixpdb" {
		t.Errorf("source = %q, want test.wixpdb", pe.Source)
	}
	if pe.Line != 2 {
		t.Errorf("line = %d, want 2", pe.Line)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.wixpdb"), LoadOptions{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestEmptyDocument(t *testing.T) {
	_, err := loadString(t, "", suppressAll)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestSaveCreatesDestinationDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "out.wixpdb")
	if err := New(&output.Output{}).Save(path, nil, nil, ""); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("saved file missing: %v", err)
	}
}
