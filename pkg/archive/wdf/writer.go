package wdf

import (
	"fmt"
	"os"

	"github.com/Faultbox/c3kit/pkg/archive"
	"github.com/Faultbox/c3kit/pkg/c3hash"
)

// Writer builds a WDF archive. Payloads are streamed as they are added;
// the sorted index and the header are written by Close.
type Writer struct {
	file    *os.File
	path    string
	offset  uint32
	entries []archive.Entry
	seen    map[uint32]string
}

// Create starts a new WDF archive at path, truncating any existing file.
func Create(path string) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, &archive.IOError{Op: "create", Path: path, Err: err}
	}

	// Placeholder header, patched on Close.
	var hdr [HeaderSize]byte
	if _, err := file.Write(hdr[:]); err != nil {
		file.Close()
		return nil, &archive.IOError{Op: "write header", Path: path, Err: err}
	}

	return &Writer{
		file:   file,
		path:   path,
		offset: HeaderSize,
		seen:   make(map[uint32]string),
	}, nil
}

// Add stores data under the RealID of name.
func (w *Writer) Add(name string, data []byte) error {
	return w.AddID(c3hash.RealID(name), name, data)
}

// AddID stores data under an explicit id. name is only used in errors.
func (w *Writer) AddID(id uint32, name string, data []byte) error {
	if prev, ok := w.seen[id]; ok {
		return fmt.Errorf("duplicate id 0x%08x: %q collides with %q", id, name, prev)
	}
	if uint64(w.offset)+uint64(len(data)) > 0xFFFFFFFF {
		return fmt.Errorf("archive exceeds 4 GiB adding %q", name)
	}

	if _, err := w.file.Write(data); err != nil {
		return &archive.IOError{Op: "write " + name, Path: w.path, Err: err}
	}

	w.seen[id] = name
	w.entries = append(w.entries, archive.Entry{
		ID:     id,
		Size:   uint32(len(data)),
		Offset: w.offset,
	})
	w.offset += uint32(len(data))
	return nil
}

// Close writes the index and header and closes the file.
func (w *Writer) Close() error {
	if err := w.finish(); err != nil {
		w.file.Close()
		return err
	}
	if err := w.file.Close(); err != nil {
		return &archive.IOError{Op: "close", Path: w.path, Err: err}
	}
	return nil
}

func (w *Writer) finish() error {
	archive.SortByID(w.entries)

	table := make([]byte, len(w.entries)*archive.EntrySize)
	for i, e := range w.entries {
		e.EncodeTo(table[i*archive.EntrySize:])
	}
	if _, err := w.file.Write(table); err != nil {
		return &archive.IOError{Op: "write index", Path: w.path, Err: err}
	}

	hdr := Header{
		Signature:   Signature,
		EntryCount:  uint32(len(w.entries)),
		IndexOffset: w.offset,
	}
	var buf [HeaderSize]byte
	hdr.EncodeTo(buf[:])
	if _, err := w.file.WriteAt(buf[:], 0); err != nil {
		return &archive.IOError{Op: "write header", Path: w.path, Err: err}
	}
	return nil
}
