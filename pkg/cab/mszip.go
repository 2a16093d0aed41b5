package cab

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"github.com/klauspost/compress/flate"
)

// MSZIPBuilder writes single-folder cabinet files with MSZIP-compressed
// data blocks. It covers what pdb persistence needs and is not a general
// cabinet toolkit: one folder, no spanning, no reserved areas.
type MSZIPBuilder struct {
	// Level is the deflate compression level. Zero means flate.DefaultCompression.
	Level int
}

const (
	cfHeaderSize = 36
	cfFolderSize = 8
	cfDataSize   = 8 // per-block header before the compressed bytes

	folderBlockSize = 32768 // uncompressed bytes per CFDATA block

	compressMSZIP = 1
)

// Build writes a cabinet containing files to path. Entries are stored in
// order in a single folder; each file's content is read from its Source.
func (b *MSZIPBuilder) Build(path string, files []File) error {
	if len(files) == 0 {
		return fmt.Errorf("build cabinet %s: no files", path)
	}

	type entry struct {
		file    File
		size    uint32
		offset  uint32 // uncompressed offset within the folder
		modTime time.Time
	}

	var folder bytes.Buffer
	entries := make([]entry, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f.Source)
		if err != nil {
			return fmt.Errorf("build cabinet %s: %w", path, err)
		}
		info, err := os.Stat(f.Source)
		if err != nil {
			return fmt.Errorf("build cabinet %s: %w", path, err)
		}
		entries = append(entries, entry{
			file:    f,
			size:    uint32(len(data)),
			offset:  uint32(folder.Len()),
			modTime: info.ModTime(),
		})
		folder.Write(data)
	}

	blocks, err := b.compressFolder(folder.Bytes())
	if err != nil {
		return fmt.Errorf("build cabinet %s: %w", path, err)
	}

	// Directory sizes are needed before offsets can be fixed.
	cfFilesSize := 0
	for _, e := range entries {
		cfFilesSize += 16 + len(e.file.Name) + 1
	}
	coffFiles := cfHeaderSize + cfFolderSize
	coffData := coffFiles + cfFilesSize
	dataSize := 0
	for _, blk := range blocks {
		dataSize += cfDataSize + len(blk.compressed)
	}
	cbCabinet := coffData + dataSize

	var out bytes.Buffer
	le := binary.LittleEndian

	// CFHEADER
	out.Write(Magic)
	writeU32(&out, le, 0) // reserved
	writeU32(&out, le, uint32(cbCabinet))
	writeU32(&out, le, 0) // reserved
	writeU32(&out, le, uint32(coffFiles))
	writeU32(&out, le, 0) // reserved
	out.WriteByte(3)      // minor version
	out.WriteByte(1)      // major version
	writeU16(&out, le, 1) // folder count
	writeU16(&out, le, uint16(len(entries)))
	writeU16(&out, le, 0) // flags
	writeU16(&out, le, 0) // set ID
	writeU16(&out, le, 0) // cabinet index in set

	// CFFOLDER
	writeU32(&out, le, uint32(coffData))
	writeU16(&out, le, uint16(len(blocks)))
	writeU16(&out, le, compressMSZIP)

	// CFFILE entries
	for _, e := range entries {
		date, tod := dosDateTime(e.modTime)
		writeU32(&out, le, e.size)
		writeU32(&out, le, e.offset)
		writeU16(&out, le, 0) // folder index
		writeU16(&out, le, date)
		writeU16(&out, le, tod)
		writeU16(&out, le, 0x20) // archive attribute
		out.WriteString(e.file.Name)
		out.WriteByte(0)
	}

	// CFDATA blocks
	for _, blk := range blocks {
		writeU32(&out, le, 0) // checksum not computed
		writeU16(&out, le, uint16(len(blk.compressed)))
		writeU16(&out, le, uint16(blk.uncompressed))
		out.Write(blk.compressed)
	}

	return os.WriteFile(path, out.Bytes(), 0644)
}

type dataBlock struct {
	compressed   []byte
	uncompressed int
}

// compressFolder splits the folder stream into blocks and deflates each one
// independently, prefixed with the MSZIP "CK" signature.
func (b *MSZIPBuilder) compressFolder(data []byte) ([]dataBlock, error) {
	level := b.Level
	if level == 0 {
		level = flate.DefaultCompression
	}

	var blocks []dataBlock
	for off := 0; off < len(data) || len(blocks) == 0; off += folderBlockSize {
		end := off + folderBlockSize
		if end > len(data) {
			end = len(data)
		}
		var buf bytes.Buffer
		buf.WriteByte('C')
		buf.WriteByte('K')
		fw, err := flate.NewWriter(&buf, level)
		if err != nil {
			return nil, err
		}
		if _, err := fw.Write(data[off:end]); err != nil {
			return nil, err
		}
		if err := fw.Close(); err != nil {
			return nil, err
		}
		blocks = append(blocks, dataBlock{compressed: buf.Bytes(), uncompressed: end - off})
	}
	return blocks, nil
}

func writeU16(buf *bytes.Buffer, le binary.ByteOrder, v uint16) {
	var b [2]byte
	le.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, le binary.ByteOrder, v uint32) {
	var b [4]byte
	le.PutUint32(b[:], v)
	buf.Write(b[:])
}

// dosDateTime converts t to the packed MS-DOS date and time fields used in
// cabinet directory entries.
func dosDateTime(t time.Time) (date, tod uint16) {
	if t.Year() < 1980 {
		t = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	date = uint16((t.Year()-1980)<<9 | int(t.Month())<<5 | t.Day())
	tod = uint16(t.Hour()<<11 | t.Minute()<<5 | t.Second()/2)
	return date, tod
}
