// Package wdf reads WDF archives: a 12-byte header pointing at an index of
// (id, size, offset) records sorted by id.
package wdf

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Faultbox/c3kit/pkg/archive"
	"github.com/Faultbox/c3kit/pkg/c3hash"
)

// HeaderSize is the size of the WDF header.
const HeaderSize = 12

// Signature is the value written by Writer. Readers do not validate it.
const Signature = 0x57444650 // "PFDW"

// Header is the fixed WDF file header.
type Header struct {
	Signature   uint32
	EntryCount  uint32
	IndexOffset uint32
}

// DecodeFrom reads the header from buf.
func (h *Header) DecodeFrom(buf []byte) {
	h.Signature = binary.LittleEndian.Uint32(buf[0:4])
	h.EntryCount = binary.LittleEndian.Uint32(buf[4:8])
	h.IndexOffset = binary.LittleEndian.Uint32(buf[8:12])
}

// EncodeTo writes the header into buf.
func (h Header) EncodeTo(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Signature)
	binary.LittleEndian.PutUint32(buf[4:8], h.EntryCount)
	binary.LittleEndian.PutUint32(buf[8:12], h.IndexOffset)
}

// Archive is an open WDF file. The index is immutable after Open and reads
// use positioned I/O, so Load is safe for concurrent use.
type Archive struct {
	file   *os.File
	path   string
	size   int64
	id     uint32
	header Header
	index  []archive.Entry
}

// Open opens a WDF archive and loads its index.
func Open(path string) (*Archive, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &archive.IOError{Op: "open", Path: path, Err: err}
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, &archive.IOError{Op: "stat", Path: path, Err: err}
	}

	a := &Archive{
		file: file,
		path: path,
		size: info.Size(),
		id:   ArchiveID(path),
	}

	if err := a.readHeader(); err != nil {
		file.Close()
		return nil, err
	}

	if err := a.readIndex(); err != nil {
		file.Close()
		return nil, err
	}

	return a, nil
}

// ArchiveID returns the pack id an archive file answers to: the PackID of
// its base name with the extension replaced by a separator, so "data/c3.wdf"
// serves every asset path beginning with "c3/".
func ArchiveID(path string) uint32 {
	base := filepath.Base(path)
	stem := base[:len(base)-len(filepath.Ext(base))]
	return c3hash.PackID(stem + "/")
}

func (a *Archive) readHeader() error {
	var buf [HeaderSize]byte
	if _, err := a.file.ReadAt(buf[:], 0); err != nil {
		return &archive.IOError{Op: "read header", Path: a.path, Err: err}
	}
	a.header.DecodeFrom(buf[:])
	return nil
}

func (a *Archive) readIndex() error {
	op := fmt.Sprintf("read index (%d entries at 0x%x)", a.header.EntryCount, a.header.IndexOffset)
	size := int64(a.header.EntryCount) * archive.EntrySize
	if int64(a.header.IndexOffset)+size > a.size {
		return &archive.IOError{Op: op, Path: a.path, Err: io.ErrUnexpectedEOF}
	}

	table := make([]byte, size)
	if _, err := a.file.ReadAt(table, int64(a.header.IndexOffset)); err != nil {
		return &archive.IOError{Op: op, Path: a.path, Err: err}
	}

	a.index = archive.DecodeEntries(table)
	if !archive.IsSorted(a.index) {
		archive.SortByID(a.index)
	}
	return nil
}

// Close closes the archive file.
func (a *Archive) Close() error {
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	a.index = nil
	return err
}

// IsOpen reports whether the archive has an open file.
func (a *Archive) IsOpen() bool {
	return a.file != nil
}

// ID returns the archive's pack id.
func (a *Archive) ID() uint32 {
	return a.id
}

// Path returns the file path the archive was opened from.
func (a *Archive) Path() string {
	return a.path
}

// Header returns the decoded file header.
func (a *Archive) Header() Header {
	return a.header
}

// Entries returns a copy of the sorted index.
func (a *Archive) Entries() []archive.Entry {
	out := make([]archive.Entry, len(a.index))
	copy(out, a.index)
	return out
}

// Len returns the number of index entries.
func (a *Archive) Len() int {
	return len(a.index)
}

// Contains reports whether id is in the index.
func (a *Archive) Contains(id uint32) bool {
	_, ok := archive.Search(a.index, id)
	return ok
}

// Lookup returns the index entry for id.
func (a *Archive) Lookup(id uint32) (archive.Entry, bool) {
	return archive.Search(a.index, id)
}

// Load reads the payload stored under id. A missing id returns an error
// matching archive.ErrNotFound; short reads are I/O errors.
func (a *Archive) Load(id uint32) ([]byte, error) {
	if a.file == nil {
		return nil, archive.ErrClosed
	}

	entry, ok := archive.Search(a.index, id)
	if !ok {
		return nil, archive.NotFoundError(id)
	}

	op := fmt.Sprintf("read entry 0x%08x", id)
	if int64(entry.Offset)+int64(entry.Size) > a.size {
		return nil, &archive.IOError{Op: op, Path: a.path, Err: io.ErrUnexpectedEOF}
	}

	data := make([]byte, entry.Size)
	if _, err := a.file.ReadAt(data, int64(entry.Offset)); err != nil {
		return nil, &archive.IOError{Op: op, Path: a.path, Err: err}
	}
	return data, nil
}

// LoadPath loads the entry for an asset path using its RealID.
func (a *Archive) LoadPath(path string) ([]byte, error) {
	data, err := a.Load(c3hash.RealID(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}
