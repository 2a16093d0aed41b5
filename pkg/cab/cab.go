// Package cab handles the cabinet side of pdb containers: the fixed header
// that marks an embedded cabinet region inside a container file, and a
// minimal MSZIP cabinet builder used when a container is persisted with
// binary payload.
package cab

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Magic is the four-byte signature that opens both a cabinet file and the
// embedded-cabinet region of a composite container.
var Magic = []byte{'M', 'S', 'C', 'F'}

// HeaderSize is the size of the embedded-region header: magic, a four-byte
// checksum, and a four-byte little-endian payload length.
const HeaderSize = 12

// ErrBadMagic is returned when a header read does not start with Magic.
var ErrBadMagic = errors.New("not a cabinet header")

// Header is the fixed header in front of an embedded cabinet payload.
// The checksum is carried but not verified anywhere; writers emit zero.
type Header struct {
	Checksum uint32
	Size     uint32 // payload length in bytes, excluding the header
}

// IsMagic reports whether b begins with the cabinet signature.
func IsMagic(b []byte) bool {
	return len(b) >= len(Magic) && b[0] == Magic[0] && b[1] == Magic[1] && b[2] == Magic[2] && b[3] == Magic[3]
}

// ReadHeader reads the 12-byte embedded-region header from r.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, fmt.Errorf("read cabinet header: %w", err)
	}
	if !IsMagic(buf[:]) {
		return Header{}, ErrBadMagic
	}
	return Header{
		Checksum: binary.LittleEndian.Uint32(buf[4:8]),
		Size:     binary.LittleEndian.Uint32(buf[8:12]),
	}, nil
}

// WriteHeader writes the 12-byte embedded-region header to w.
func (h Header) WriteHeader(w io.Writer) error {
	var buf [HeaderSize]byte
	copy(buf[:4], Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Checksum)
	binary.LittleEndian.PutUint32(buf[8:12], h.Size)
	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("write cabinet header: %w", err)
	}
	return nil
}

// File names one entry destined for a cabinet: the path to read it from and
// the name it carries inside the archive.
type File struct {
	Name   string // name inside the cabinet
	Source string // file system path of the content
}

// Builder produces a cabinet file at path from the given entries.
type Builder interface {
	Build(path string, files []File) error
}
