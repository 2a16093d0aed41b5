package output

import (
	"strconv"

	"github.com/installkit/wixpdb/pkg/xmlx"
)

// Persist writes the wixOutput element for o. The version attribute is
// always CurrentVersion, regardless of what any source document carried.
// Write failures stick to the writer and surface from its Flush.
func (o *Output) Persist(w *xmlx.Writer) {
	w.Start(ElementName)
	w.Attr("xmlns", XMLNamespace)
	w.Attr("version", CurrentVersion.String())
	if o.Type != TypeUnknown {
		w.Attr("type", string(o.Type))
	}
	if o.Codepage != 0 {
		w.Attr("codepage", strconv.Itoa(o.Codepage))
	}

	for _, t := range o.Tables {
		persistTable(w, t)
	}
	for _, m := range o.Media {
		persistMedia(w, m)
	}

	w.End()
}

func persistTable(w *xmlx.Writer, t *Table) {
	w.Start("table")
	w.Attr("name", t.Name)
	for _, c := range t.Columns {
		w.Start("columnDefinition")
		w.Attr("name", c.Name)
		if c.Type != "" {
			w.Attr("type", string(c.Type))
		}
		if c.Length != 0 {
			w.Attr("length", strconv.Itoa(c.Length))
		}
		if c.Nullable {
			w.Attr("nullable", "yes")
		}
		if c.PrimaryKey {
			w.Attr("primaryKey", "yes")
		}
		w.End()
	}
	for _, r := range t.Rows {
		w.Start("row")
		for _, f := range r.Fields {
			w.Start("field")
			if f.Modified {
				w.Attr("modified", "yes")
			}
			w.Text(f.Data)
			w.End()
		}
		w.End()
	}
	w.End()
}

func persistMedia(w *xmlx.Writer, m *Media) {
	w.Start("media")
	w.Attr("diskId", strconv.Itoa(m.DiskID))
	if m.Cabinet != "" {
		w.Attr("cabinet", m.Cabinet)
	}
	if m.EmbedCabinet {
		w.Attr("embedCab", "yes")
	}
	if m.LastSequence != 0 {
		w.Attr("lastSequence", strconv.Itoa(m.LastSequence))
	}
	w.End()
}
