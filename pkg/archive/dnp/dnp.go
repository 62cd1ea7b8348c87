// Package dnp reads DNP archives: a signed, versioned header followed by an
// inline index that is loaded into a hash map.
package dnp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/Faultbox/c3kit/pkg/archive"
	"github.com/Faultbox/c3kit/pkg/c3hash"
	"github.com/Faultbox/c3kit/pkg/encoding"
)

const (
	// Signature is the NUL-padded 32-byte header string.
	Signature = "DawnPack.TqDigital"
	// Version is the only supported format version.
	Version = 1000
	// SignatureSize is the width of the signature field.
	SignatureSize = 32
	// HeaderSize is signature + version + entry count.
	HeaderSize = SignatureSize + 8
	// ScratchSize is the reusable payload buffer. Larger payloads get a
	// dedicated buffer that lives until the next oversized load or Close.
	ScratchSize = 1 << 20
)

// DNP header errors.
var (
	ErrInvalidSignature   = errors.New("invalid DNP signature")
	ErrUnsupportedVersion = errors.New("unsupported DNP version")
)

// Archive is an open DNP file. All methods serialize on a per-archive mutex
// because the scratch buffers and file cursor are shared.
type Archive struct {
	mu      sync.Mutex
	file    *os.File
	path    string
	index   map[uint32]archive.Entry
	scratch []byte
	extend  []byte
	gen     uint64
}

// New returns a closed archive with its scratch buffer allocated.
func New() *Archive {
	return &Archive{scratch: make([]byte, ScratchSize)}
}

// Open is New followed by Open.
func Open(path string) (*Archive, error) {
	a := New()
	if err := a.Open(path); err != nil {
		return nil, err
	}
	return a, nil
}

// Open opens path, closing any file the archive already had open. On
// failure the archive is left closed with an empty index.
func (a *Archive) Open(path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.closeLocked()

	file, err := os.Open(path)
	if err != nil {
		return &archive.IOError{Op: "open", Path: path, Err: err}
	}
	a.file = file
	a.path = path

	if err := a.readIndex(); err != nil {
		a.closeLocked()
		return err
	}
	return nil
}

func (a *Archive) readIndex() error {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(a.file, hdr[:]); err != nil {
		return &archive.IOError{Op: "read header", Path: a.path, Err: err}
	}

	sig := encoding.FixedStringToUTF8(hdr[:SignatureSize])
	if sig != Signature {
		return &archive.FormatError{What: "DNP signature", Literal: sig, Err: ErrInvalidSignature}
	}

	version := binary.LittleEndian.Uint32(hdr[SignatureSize:])
	if version != Version {
		return &archive.FormatError{What: "DNP version", Literal: fmt.Sprint(version), Err: ErrUnsupportedVersion}
	}

	count := binary.LittleEndian.Uint32(hdr[SignatureSize+4:])
	info, err := a.file.Stat()
	if err != nil {
		return &archive.IOError{Op: "stat", Path: a.path, Err: err}
	}
	op := fmt.Sprintf("read index (%d entries)", count)
	if HeaderSize+int64(count)*archive.EntrySize > info.Size() {
		return &archive.IOError{Op: op, Path: a.path, Err: io.ErrUnexpectedEOF}
	}

	table := make([]byte, int(count)*archive.EntrySize)
	if _, err := io.ReadFull(a.file, table); err != nil {
		return &archive.IOError{Op: op, Path: a.path, Err: err}
	}

	// Later records overwrite earlier ones with the same id.
	a.index = make(map[uint32]archive.Entry, count)
	for _, e := range archive.DecodeEntries(table) {
		a.index[e.ID] = e
	}
	return nil
}

// Close closes the file, drops the index and releases the oversized buffer.
// Views returned by Load become stale.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closeLocked()
}

func (a *Archive) closeLocked() error {
	var err error
	if a.file != nil {
		err = a.file.Close()
		a.file = nil
	}
	a.index = nil
	a.extend = nil
	a.gen++
	return err
}

// IsOpen reports whether the archive has an open file.
func (a *Archive) IsOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file != nil
}

// Path returns the path of the open file.
func (a *Archive) Path() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.path
}

// Len returns the number of distinct ids in the index.
func (a *Archive) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.index)
}

// Entries returns the index records in unspecified order.
func (a *Archive) Entries() []archive.Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]archive.Entry, 0, len(a.index))
	for _, e := range a.index {
		out = append(out, e)
	}
	return out
}

// Contains reports whether id is in the index.
func (a *Archive) Contains(id uint32) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.index[id]
	return ok
}

// Load reads the payload stored under id into the archive's scratch space
// and returns a View of it. The view is valid only until the next Load or
// Close on this archive; use View.Clone to keep the bytes.
func (a *Archive) Load(id uint32) (View, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	buf, err := a.loadLocked(id)
	if err != nil {
		return View{}, err
	}
	return View{owner: a, gen: a.gen, data: buf}, nil
}

// LoadCopy loads id and returns an owned copy of the payload. The copy is
// taken under the archive lock, so it is safe alongside concurrent loads.
func (a *Archive) LoadCopy(id uint32) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	buf, err := a.loadLocked(id)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(buf))
	copy(out, buf)
	return out, nil
}

func (a *Archive) loadLocked(id uint32) ([]byte, error) {
	if a.file == nil {
		return nil, archive.ErrClosed
	}

	entry, ok := a.index[id]
	if !ok {
		return nil, archive.NotFoundError(id)
	}

	// Any previously returned view is invalid from here on, even if this
	// load fails part way.
	a.gen++

	var buf []byte
	if entry.Size > ScratchSize {
		if uint32(cap(a.extend)) < entry.Size {
			a.extend = make([]byte, entry.Size)
		}
		buf = a.extend[:entry.Size]
	} else {
		buf = a.scratch[:entry.Size]
	}

	op := fmt.Sprintf("read entry 0x%08x", id)
	if _, err := a.file.Seek(int64(entry.Offset), io.SeekStart); err != nil {
		return nil, &archive.IOError{Op: op, Path: a.path, Err: err}
	}
	if _, err := io.ReadFull(a.file, buf); err != nil {
		return nil, &archive.IOError{Op: op, Path: a.path, Err: err}
	}
	return buf, nil
}

// LoadPath loads the entry for an asset path using its RealID.
func (a *Archive) LoadPath(path string) (View, error) {
	v, err := a.Load(c3hash.RealID(path))
	if err != nil {
		return View{}, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

func (a *Archive) generation() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gen
}
