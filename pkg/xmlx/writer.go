package xmlx

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
)

// Writer is a streaming XML element writer with sticky error semantics.
// All write methods are no-ops once an error has occurred; Flush reports
// the first error. End tags are always written explicitly, never as
// self-closing elements, so loaders that require a closing root tag see one.
type Writer struct {
	w     *bufio.Writer
	stack []string
	open  bool // a start tag is written but not yet closed with '>'
	err   error
}

// NewWriter creates a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Declaration writes the XML declaration. It must be the first call.
func (w *Writer) Declaration() {
	w.raw(`<?xml version="1.0"?>`)
}

// Start opens an element. Attributes may be added with Attr until the next
// Start, Text, or End call.
func (w *Writer) Start(name string) {
	w.closeStart()
	w.raw("<")
	w.raw(name)
	w.stack = append(w.stack, name)
	w.open = true
}

// Attr writes an attribute on the currently open start tag.
func (w *Writer) Attr(name, value string) {
	if w.err != nil {
		return
	}
	if !w.open {
		w.err = fmt.Errorf("xmlx: attribute %q written outside a start tag", name)
		return
	}
	w.raw(" ")
	w.raw(name)
	w.raw(`="`)
	w.escape(value)
	w.raw(`"`)
}

// Text writes escaped character data inside the current element.
func (w *Writer) Text(s string) {
	w.closeStart()
	w.escape(s)
}

// End closes the most recently opened element.
func (w *Writer) End() {
	if w.err != nil {
		return
	}
	if len(w.stack) == 0 {
		w.err = fmt.Errorf("xmlx: End with no open element")
		return
	}
	w.closeStart()
	name := w.stack[len(w.stack)-1]
	w.stack = w.stack[:len(w.stack)-1]
	w.raw("</")
	w.raw(name)
	w.raw(">")
}

// Flush writes buffered output and returns the first error encountered,
// including unbalanced element nesting.
func (w *Writer) Flush() error {
	if w.err == nil && len(w.stack) != 0 {
		w.err = fmt.Errorf("xmlx: %d element(s) left open", len(w.stack))
	}
	if w.err != nil {
		return w.err
	}
	return w.w.Flush()
}

func (w *Writer) closeStart() {
	if w.err != nil || !w.open {
		return
	}
	w.open = false
	w.raw(">")
}

func (w *Writer) raw(s string) {
	if w.err != nil {
		return
	}
	if _, err := w.w.WriteString(s); err != nil {
		w.err = err
	}
}

func (w *Writer) escape(s string) {
	if w.err != nil {
		return
	}
	if err := xml.EscapeText(w.w, []byte(s)); err != nil {
		w.err = err
	}
}
