package xmlx

import (
	"bytes"
	"encoding/xml"
	"strings"
	"testing"
)

func TestDecoderPositions(t *testing.T) {
	doc := "<root>\n  <child attr=\"v\"/>\n</root>"
	d := NewDecoder([]byte(doc))

	// <root>
	tok, err := d.Token()
	if err != nil {
		t.Fatalf("Token error: %v", err)
	}
	if _, ok := tok.(xml.StartElement); !ok {
		t.Fatalf("expected StartElement, got %T", tok)
	}
	if p := d.Pos(); p.Line != 1 || p.Column != 1 {
		t.Errorf("root position = %d:%d, want 1:1", p.Line, p.Column)
	}

	// whitespace chardata
	if _, err := d.Token(); err != nil {
		t.Fatalf("Token error: %v", err)
	}

	// <child/>
	tok, err = d.Token()
	if err != nil {
		t.Fatalf("Token error: %v", err)
	}
	se, ok := tok.(xml.StartElement)
	if !ok {
		t.Fatalf("expected StartElement, got %T", tok)
	}
	if se.Name.Local != "child" {
		t.Errorf("element = %q, want child", se.Name.Local)
	}
	if p := d.Pos(); p.Line != 2 {
		t.Errorf("child line = %d, want 2", p.Line)
	}
	if p := d.Pos(); p.Column != 3 {
		t.Errorf("child column = %d, want 3", p.Column)
	}
}

func TestDecoderPosUnknownForZeroValue(t *testing.T) {
	var p Pos
	if p.Valid() {
		t.Error("zero Pos should not be valid")
	}
}

func TestWriterDocument(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	w.Declaration()
	w.Start("wixPdb")
	w.Attr("xmlns", "http://example.test/ns")
	w.Attr("version", "3.0.3200.0")
	w.Start("inner")
	w.Text(`a<b&"c`)
	w.End()
	w.End()
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush error: %v", err)
	}

	got := buf.String()
	want := `<?xml version="1.0"?><wixPdb xmlns="http://example.test/ns" version="3.0.3200.0"><inner>a&lt;b&amp;&#34;c</inner></wixPdb>`
	if got != want {
		t.Errorf("document mismatch:\n got: %s\nwant: %s", got, want)
	}
}

func TestWriterNeverSelfCloses(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Start("empty")
	w.End()
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush error: %v", err)
	}
	if got := buf.String(); got != "<empty></empty>" {
		t.Errorf("empty element = %q, want explicit end tag", got)
	}
}

func TestWriterUnbalanced(t *testing.T) {
	w := NewWriter(&bytes.Buffer{})
	w.Start("a")
	if err := w.Flush(); err == nil {
		t.Fatal("expected error for unclosed element")
	}
}

func TestWriterAttrOutsideStartTag(t *testing.T) {
	w := NewWriter(&bytes.Buffer{})
	w.Start("a")
	w.Text("x")
	w.Attr("late", "v")
	err := w.Flush()
	if err == nil || !strings.Contains(err.Error(), "late") {
		t.Fatalf("expected attribute placement error, got %v", err)
	}
}
