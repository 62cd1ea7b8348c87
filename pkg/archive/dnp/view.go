package dnp

import "errors"

// ErrStaleView is returned when a View is read after the archive reused
// its buffer.
var ErrStaleView = errors.New("dnp view used after a later Load or Close")

// View is a borrowed window onto an archive's scratch buffer. It does not
// own its bytes: the next Load or Close on the same archive invalidates it,
// and every accessor checks for that before handing data out.
//
// A View is not safe to retain across Load calls from other goroutines.
type View struct {
	owner *Archive
	gen   uint64
	data  []byte
}

// Len returns the payload size.
func (v View) Len() int {
	return len(v.data)
}

// Valid reports whether the view still refers to live data.
func (v View) Valid() bool {
	return v.owner != nil && v.owner.generation() == v.gen
}

// Bytes returns the borrowed payload. The slice must not be retained past
// the next Load or Close.
func (v View) Bytes() ([]byte, error) {
	if !v.Valid() {
		return nil, ErrStaleView
	}
	return v.data, nil
}

// Clone returns an owned copy of the payload.
func (v View) Clone() ([]byte, error) {
	if v.owner == nil {
		return nil, ErrStaleView
	}
	v.owner.mu.Lock()
	defer v.owner.mu.Unlock()
	if v.owner.gen != v.gen {
		return nil, ErrStaleView
	}
	out := make([]byte, len(v.data))
	copy(out, v.data)
	return out, nil
}
