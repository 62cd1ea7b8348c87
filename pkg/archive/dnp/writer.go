package dnp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/Faultbox/c3kit/pkg/archive"
	"github.com/Faultbox/c3kit/pkg/c3hash"
	"github.com/Faultbox/c3kit/pkg/encoding"
)

type pendingFile struct {
	id   uint32
	name string
	data []byte
}

// Writer collects payloads in memory and writes a DNP archive on Close.
// The index is inline after the header, so payload offsets are only known
// once every file has been added.
type Writer struct {
	path    string
	pending []pendingFile
	seen    map[uint32]string
}

// Create returns a Writer that will write to path on Close.
func Create(path string) *Writer {
	return &Writer{
		path: path,
		seen: make(map[uint32]string),
	}
}

// Add queues data under the RealID of name.
func (w *Writer) Add(name string, data []byte) error {
	return w.AddID(c3hash.RealID(name), name, data)
}

// AddID queues data under an explicit id.
func (w *Writer) AddID(id uint32, name string, data []byte) error {
	if prev, ok := w.seen[id]; ok {
		return fmt.Errorf("duplicate id 0x%08x: %q collides with %q", id, name, prev)
	}
	w.seen[id] = name
	w.pending = append(w.pending, pendingFile{id: id, name: name, data: data})
	return nil
}

// Close writes the archive.
func (w *Writer) Close() error {
	var buf bytes.Buffer
	buf.Write(encoding.UTF8ToFixedString(Signature, SignatureSize))
	binary.Write(&buf, binary.LittleEndian, uint32(Version))
	binary.Write(&buf, binary.LittleEndian, uint32(len(w.pending)))

	offset := uint64(HeaderSize) + uint64(len(w.pending))*archive.EntrySize
	entry := make([]byte, archive.EntrySize)
	for _, f := range w.pending {
		if offset+uint64(len(f.data)) > 0xFFFFFFFF {
			return fmt.Errorf("archive exceeds 4 GiB adding %q", f.name)
		}
		archive.Entry{ID: f.id, Size: uint32(len(f.data)), Offset: uint32(offset)}.EncodeTo(entry)
		buf.Write(entry)
		offset += uint64(len(f.data))
	}
	for _, f := range w.pending {
		buf.Write(f.data)
	}

	if err := os.WriteFile(w.path, buf.Bytes(), 0644); err != nil {
		return &archive.IOError{Op: "write", Path: w.path, Err: err}
	}
	return nil
}
