// Package c3hash implements the 32-bit string identifier hash used to
// address assets inside WDF and DNP archives.
package c3hash

import (
	"encoding/binary"
	"math/bits"
)

// MaxInput is the size of the scratch window the hash reads from.
// Longer inputs are truncated; existing archives depend on this.
const MaxInput = 256

// PackSuffix replaces the first path separator when deriving a pack id.
const PackSuffix = ".wdf"

const (
	seedX     = 0x37A8470E
	seedY     = 0x7758B42B
	mixConst  = 0x267B0B11
	mixSeed   = 0xF4FA8928
	orMaskX   = 0x02040801
	andMaskX  = 0xBFEF7FDF
	orMaskY   = 0x00804021
	andMaskY  = 0x7DFEFBFF
	sentinel1 = 0x9BE74448
	sentinel2 = 0x66F42C48
)

// Hash returns the identifier of the given bytes.
//
// The input is copied into a 256-byte window (stopping at the first NUL),
// read as little-endian words up to the first all-zero word, and followed
// by two sentinel words.
func Hash(data []byte) uint32 {
	var window [MaxInput + 8]byte
	n := copy(window[:MaxInput], data)
	for i := 0; i < n; i++ {
		if window[i] == 0 {
			clear(window[i:n])
			break
		}
	}

	var words [MaxInput/4 + 2]uint32
	count := 0
	for count < MaxInput/4 {
		w := binary.LittleEndian.Uint32(window[count*4:])
		if w == 0 {
			break
		}
		words[count] = w
		count++
	}
	words[count] = sentinel1
	words[count+1] = sentinel2
	count += 2

	v := uint32(mixSeed)
	x := uint32(seedX)
	y := uint32(seedY)

	for _, m := range words[:count] {
		v = bits.RotateLeft32(v, 1)
		w := mixConst ^ v

		x ^= m
		y ^= m

		// x = fold(x * ((w+y) | A) & C), single carry on overflow
		hi, lo := bits.Mul32(x, ((w+y)|orMaskX)&andMaskX)
		sum, carry := bits.Add32(lo, hi, 0)
		x = sum + carry

		// y = fold(y * ((w+x) | B) & D), high word doubled, +2 on overflow
		hi, lo = bits.Mul32(y, ((w+x)|orMaskY)&andMaskY)
		hi += hi
		sum, carry = bits.Add32(lo, hi, 0)
		if carry != 0 {
			sum += 2
		}
		y = sum
	}

	return x ^ y
}

// HashString is Hash over the bytes of s.
func HashString(s string) uint32 {
	return Hash([]byte(s))
}

// PackID returns the identifier of the archive holding path: the lowercased
// prefix before the first '/', with ".wdf" appended when a '/' was present.
// An empty prefix yields 0.
func PackID(path string) uint32 {
	buf := make([]byte, 0, len(path)+len(PackSuffix))
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c == '/' {
			buf = append(buf, PackSuffix...)
			break
		}
		buf = append(buf, toLower(c))
	}
	if len(buf) == 0 {
		return 0
	}
	return Hash(buf)
}

// RealID returns the identifier of a file inside an archive. ASCII letters
// are lowercased and '\' becomes '/'; other bytes pass through unchanged.
func RealID(path string) uint32 {
	return Hash([]byte(Normalize(path)))
}

// Normalize applies the RealID path normalization.
func Normalize(path string) string {
	buf := make([]byte, len(path))
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c == '\\' {
			c = '/'
		}
		buf[i] = toLower(c)
	}
	return string(buf)
}

func toLower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
