// Package archive holds the types shared by the WDF and DNP archive readers.
package archive

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
)

// EntrySize is the on-disk size of an index entry.
const EntrySize = 12

// Archive lookup errors.
var (
	ErrNotFound = errors.New("entry not found")
	ErrClosed   = errors.New("archive is closed")
)

// Entry is one index record: a RealID, a payload size and a file offset.
type Entry struct {
	ID     uint32
	Size   uint32
	Offset uint32
}

// DecodeFrom reads the entry from buf, which must hold EntrySize bytes.
func (e *Entry) DecodeFrom(buf []byte) {
	e.ID = binary.LittleEndian.Uint32(buf[0:4])
	e.Size = binary.LittleEndian.Uint32(buf[4:8])
	e.Offset = binary.LittleEndian.Uint32(buf[8:12])
}

// EncodeTo writes the entry into buf, which must hold EntrySize bytes.
func (e Entry) EncodeTo(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], e.ID)
	binary.LittleEndian.PutUint32(buf[4:8], e.Size)
	binary.LittleEndian.PutUint32(buf[8:12], e.Offset)
}

// DecodeEntries splits a raw index table into entries.
func DecodeEntries(table []byte) []Entry {
	entries := make([]Entry, len(table)/EntrySize)
	for i := range entries {
		entries[i].DecodeFrom(table[i*EntrySize:])
	}
	return entries
}

// IsSorted reports whether ids are strictly ascending.
func IsSorted(entries []Entry) bool {
	for i := 1; i < len(entries); i++ {
		if entries[i-1].ID >= entries[i].ID {
			return false
		}
	}
	return true
}

// SortByID orders entries by ascending id.
func SortByID(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ID < entries[j].ID
	})
}

// Search finds id in entries sorted by SortByID.
func Search(entries []Entry, id uint32) (Entry, bool) {
	i := sort.Search(len(entries), func(i int) bool {
		return entries[i].ID >= id
	})
	if i < len(entries) && entries[i].ID == id {
		return entries[i], true
	}
	return Entry{}, false
}

// IOError reports a failed open, seek or read on an archive file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// FormatError reports a header that does not match the archive format.
// Literal carries the offending value for diagnostics.
type FormatError struct {
	What    string
	Literal string
	Err     error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %q", e.What, e.Literal)
}

func (e *FormatError) Unwrap() error { return e.Err }

// NotFoundError wraps ErrNotFound with the id that was looked up.
func NotFoundError(id uint32) error {
	return fmt.Errorf("id 0x%08x: %w", id, ErrNotFound)
}
