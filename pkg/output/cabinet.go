package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"

	"github.com/installkit/wixpdb/pkg/cab"
)

// Cabinet is a lazy reference to cabinet bytes extracted from a composite
// container. The payload stays in the backing temp file and is only
// streamed when asked for, never held in memory.
type Cabinet struct {
	Path string // backing temp file
	Size int64  // payload length in bytes
}

// Open returns a reader over the cabinet payload. The caller closes it.
func (c *Cabinet) Open() (io.ReadCloser, error) {
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, fmt.Errorf("open cabinet %s: %w", c.Path, err)
	}
	return f, nil
}

// VariableResolver expands delayed binder variables in file source paths
// before cabinet contents are read.
type VariableResolver interface {
	Resolve(value string) (string, error)
}

// MapResolver resolves "!(name)" references from a fixed map.
type MapResolver map[string]string

var bindVariable = regexp.MustCompile(`!\(([^)]+)\)`)

// Resolve substitutes every !(name) occurrence in value. An unknown name
// is an error.
func (m MapResolver) Resolve(value string) (string, error) {
	var missing string
	out := bindVariable.ReplaceAllStringFunc(value, func(match string) string {
		name := match[2 : len(match)-1]
		v, ok := m[name]
		if !ok && missing == "" {
			missing = name
		}
		return v
	})
	if missing != "" {
		return "", fmt.Errorf("unresolved variable !(%s) in %q", missing, value)
	}
	return out, nil
}

// SaveCabinet writes the output's embedded cabinet region to path, creating
// the file. It reports whether any cabinet bytes were written, which the
// container uses to decide between appending and creating its XML write.
//
// A cabinet loaded from a composite container is copied through unchanged.
// Otherwise, when EmbedFiles is non-empty, a fresh cabinet is built via
// builder in tempDir after resolving each source path through resolver.
// With neither, nothing is written and the destination is left untouched.
func (o *Output) SaveCabinet(path string, builder cab.Builder, resolver VariableResolver, tempDir string) (bool, error) {
	switch {
	case o.Cabinet != nil:
		return true, embedFile(path, o.Cabinet.Path)

	case len(o.EmbedFiles) > 0:
		if builder == nil {
			return false, fmt.Errorf("save cabinet for %s: no cabinet builder supplied", path)
		}
		files := make([]cab.File, len(o.EmbedFiles))
		for i, f := range o.EmbedFiles {
			src := f.Source
			if resolver != nil {
				resolved, err := resolver.Resolve(src)
				if err != nil {
					return false, fmt.Errorf("save cabinet for %s: %w", path, err)
				}
				src = resolved
			}
			files[i] = cab.File{Name: f.Name, Source: src}
		}

		if tempDir == "" {
			tempDir = os.TempDir()
		}
		tmp := filepath.Join(tempDir, "wixpdb-"+uuid.NewString()+".cab")
		defer os.Remove(tmp)
		if err := builder.Build(tmp, files); err != nil {
			return false, fmt.Errorf("save cabinet for %s: %w", path, err)
		}
		return true, embedFile(path, tmp)

	default:
		return false, nil
	}
}

// embedFile writes the 12-byte embedded-region header followed by the
// contents of src to a freshly created file at path.
func embedFile(path, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("embed cabinet: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("embed cabinet: %w", err)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("embed cabinet: %w", err)
	}
	defer out.Close()

	h := cab.Header{Size: uint32(info.Size())}
	if err := h.WriteHeader(out); err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("embed cabinet: %w", err)
	}
	return out.Close()
}
