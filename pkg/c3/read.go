package c3

import (
	"bytes"
	"encoding/binary"
	gomath "math"

	"github.com/Faultbox/c3kit/pkg/math"
)

// MaxNameLen is the longest accepted name or texture string.
const MaxNameLen = 255

// need fails with a TruncationError if fewer than n bytes remain.
func need(r *bytes.Reader, n uint64, what string) error {
	if uint64(r.Len()) < n {
		return &TruncationError{What: what, Need: n, Have: r.Len()}
	}
	return nil
}

// has reports whether at least n bytes remain.
func has(r *bytes.Reader, n uint64) bool {
	return uint64(r.Len()) >= n
}

// fits reports whether count records of size bytes remain, without
// multiplying count by size.
func fits(r *bytes.Reader, count, size uint64) bool {
	return size == 0 || count <= uint64(r.Len())/size
}

// needRecords is need for count records of size bytes. Need saturates
// when the product does not fit in a uint64.
func needRecords(r *bytes.Reader, count, size uint64, what string) error {
	if fits(r, count, size) {
		return nil
	}
	total := uint64(gomath.MaxUint64)
	if count <= gomath.MaxUint64/size {
		total = count * size
	}
	return &TruncationError{What: what, Need: total, Have: r.Len()}
}

// The fixed-size readers below return zero values on a short read. Callers
// check need or has for the full field first.

func readU32(r *bytes.Reader) uint32 {
	var v uint32
	binary.Read(r, binary.LittleEndian, &v)
	return v
}

func readU16(r *bytes.Reader) uint16 {
	var v uint16
	binary.Read(r, binary.LittleEndian, &v)
	return v
}

func readF32(r *bytes.Reader) float32 {
	var v float32
	binary.Read(r, binary.LittleEndian, &v)
	return v
}

func readVec3(r *bytes.Reader) math.Vec3 {
	var v math.Vec3
	binary.Read(r, binary.LittleEndian, &v)
	return v
}

func readVec4(r *bytes.Reader) math.Vec4 {
	var v math.Vec4
	binary.Read(r, binary.LittleEndian, &v)
	return v
}

func readMat4(r *bytes.Reader) math.Mat4 {
	var m math.Mat4
	binary.Read(r, binary.LittleEndian, &m)
	return m
}

// readString reads n raw bytes as a string.
func readString(r *bytes.Reader, n uint32) string {
	buf := make([]byte, n)
	r.Read(buf)
	return string(buf)
}

// readName consumes a u32 length and, when the length is in [1,255] and
// the bytes are present, the name itself. The length field is consumed
// either way. The caller must have checked that 4 bytes remain.
func readName(r *bytes.Reader) (string, bool) {
	n := readU32(r)
	if n == 0 || n > MaxNameLen || !has(r, uint64(n)) {
		return "", false
	}
	return readString(r, n), true
}

// readOptionalName is readName for trailing fields that may be absent.
func readOptionalName(r *bytes.Reader) string {
	if !has(r, 4) {
		return ""
	}
	name, _ := readName(r)
	return name
}
