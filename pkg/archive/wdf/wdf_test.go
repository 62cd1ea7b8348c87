package wdf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/c3kit/pkg/archive"
	"github.com/Faultbox/c3kit/pkg/c3hash"
)

// writeRaw builds a WDF file by hand so index order can be controlled.
func writeRaw(t *testing.T, path string, payloads map[uint32][]byte, order []uint32) {
	t.Helper()

	var body bytes.Buffer
	entries := make([]archive.Entry, 0, len(order))
	offset := uint32(HeaderSize)
	for _, id := range order {
		data := payloads[id]
		entries = append(entries, archive.Entry{ID: id, Size: uint32(len(data)), Offset: offset})
		body.Write(data)
		offset += uint32(len(data))
	}

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, Header{
		Signature:   Signature,
		EntryCount:  uint32(len(entries)),
		IndexOffset: offset,
	})
	out.Write(body.Bytes())
	for _, e := range entries {
		binary.Write(&out, binary.LittleEndian, e)
	}

	if err := os.WriteFile(path, out.Bytes(), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestOpen_UnsortedIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c3.wdf")
	payloads := map[uint32][]byte{
		300: []byte("third"),
		100: []byte("first"),
		200: []byte("second!"),
	}
	writeRaw(t, path, payloads, []uint32{300, 100, 200})

	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	if a.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", a.Len())
	}
	if !archive.IsSorted(a.Entries()) {
		t.Error("index should be sorted after Open")
	}

	for id, want := range payloads {
		got, err := a.Load(id)
		if err != nil {
			t.Errorf("Load(%d): %v", id, err)
			continue
		}
		if !bytes.Equal(got, want) {
			t.Errorf("Load(%d) = %q, want %q", id, got, want)
		}
	}
}

func TestLoad_NotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c3.wdf")
	writeRaw(t, path, map[uint32][]byte{1: []byte("x")}, []uint32{1})

	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	_, err = a.Load(2)
	if !errors.Is(err, archive.ErrNotFound) {
		t.Fatalf("Load(missing) error = %v, want ErrNotFound", err)
	}
	var ioErr *archive.IOError
	if errors.As(err, &ioErr) {
		t.Error("not-found must not be reported as an I/O error")
	}
}

func TestLoad_ShortRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.wdf")

	// One entry claiming 100 bytes at offset 12 in a file far smaller than that.
	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, Header{Signature: Signature, EntryCount: 1, IndexOffset: 16})
	out.WriteString("abcd")
	binary.Write(&out, binary.LittleEndian, archive.Entry{ID: 9, Size: 100, Offset: 12})
	if err := os.WriteFile(path, out.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	_, err = a.Load(9)
	var ioErr *archive.IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("Load error = %v, want *archive.IOError", err)
	}
	if errors.Is(err, archive.ErrNotFound) {
		t.Error("short read must not be reported as not-found")
	}
}

func TestOpen_Failures(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		data []byte
	}{
		{"short header", []byte{1, 2, 3}},
		{"index past end", func() []byte {
			var b bytes.Buffer
			binary.Write(&b, binary.LittleEndian, Header{EntryCount: 4, IndexOffset: 12})
			return b.Bytes()
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".wdf")
			if err := os.WriteFile(path, tt.data, 0644); err != nil {
				t.Fatal(err)
			}
			_, err := Open(path)
			var ioErr *archive.IOError
			if !errors.As(err, &ioErr) {
				t.Errorf("Open error = %v, want *archive.IOError", err)
			}
		})
	}

	_, err := Open(filepath.Join(dir, "missing.wdf"))
	var ioErr *archive.IOError
	if !errors.As(err, &ioErr) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open(missing) error = %v, want IOError wrapping ErrNotExist", err)
	}
}

func TestWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c3.wdf")
	files := map[string][]byte{
		"c3/0001.c3":        bytes.Repeat([]byte{0xAB}, 1000),
		"c3/effect/fire.c3": []byte("fire"),
		"c3/empty.c3":       {},
	}

	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for name, data := range files {
		if err := w.Add(name, data); err != nil {
			t.Fatalf("Add(%s): %v", name, err)
		}
	}
	if err := w.Add("C3\\0001.C3", nil); err == nil {
		t.Error("expected duplicate id error for a path that normalizes to an existing entry")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	if a.Header().Signature != Signature {
		t.Errorf("signature = 0x%08x, want 0x%08x", a.Header().Signature, Signature)
	}
	if a.ID() != c3hash.PackID("c3/0001.c3") {
		t.Errorf("archive id 0x%08x does not match PackID of its assets", a.ID())
	}

	for name, want := range files {
		got, err := a.LoadPath(name)
		if err != nil {
			t.Errorf("LoadPath(%s): %v", name, err)
			continue
		}
		if len(got) != len(want) || !bytes.Equal(got, want) {
			t.Errorf("LoadPath(%s) returned %d bytes, want %d", name, len(got), len(want))
		}
	}
}

func TestClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c3.wdf")
	writeRaw(t, path, map[uint32][]byte{1: []byte("x")}, []uint32{1})

	a, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if !a.IsOpen() {
		t.Fatal("IsOpen() false after Open")
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if a.IsOpen() {
		t.Error("IsOpen() true after Close")
	}
	if _, err := a.Load(1); !errors.Is(err, archive.ErrClosed) {
		t.Errorf("Load after Close error = %v, want ErrClosed", err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
