// Package c3 decodes and encodes C3 model containers: meshes with four morph
// targets, skeletal motion, trail shapes and particle emitters.
//
// Two container layouts exist. The single layout holds exactly one chunk
// whose tag sits inside the file header; the merge layout holds any number
// of tag/size/payload records after the magic.
package c3

import (
	"errors"
	"fmt"
)

const (
	// Magic is the literal every container starts with.
	Magic = "MAXFILE C3"
	// MagicSize is the width of the magic field; only the first len(Magic)
	// bytes are compared.
	MagicSize = 16
	// HeaderSize is magic + tag + chunk size in the single layout.
	HeaderSize = MagicSize + 8
	// RecordHeaderSize is tag + size of one merge-layout record.
	RecordHeaderSize = 8
)

// C3 format errors.
var (
	ErrInvalidMagic     = errors.New("invalid C3 magic: expected 'MAXFILE C3'")
	ErrUnsupportedChunk = errors.New("unsupported C3 chunk type")
	ErrSizeSanity       = errors.New("C3 count out of range")
	ErrTruncated        = errors.New("truncated C3 data")
	ErrOutOfRange       = errors.New("index out of range")
)

// FormatError reports a structural mismatch and carries the offending
// literal (the magic or the 4-byte tag).
type FormatError struct {
	What    string
	Literal string
	Err     error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.What, e.Literal, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// SizeError reports a count outside its documented bounds.
type SizeError struct {
	What  string
	Value uint64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("%s: %s %d", ErrSizeSanity, e.What, e.Value)
}

func (e *SizeError) Unwrap() error { return ErrSizeSanity }

// TruncationError reports a field that needs more bytes than remain.
type TruncationError struct {
	What string
	Need uint64
	Have int
}

func (e *TruncationError) Error() string {
	return fmt.Sprintf("%s: %s needs %d bytes, %d left", ErrTruncated, e.What, e.Need, e.Have)
}

func (e *TruncationError) Unwrap() error { return ErrTruncated }

// ChunkType identifies a chunk by its 4-byte tag.
type ChunkType int

const (
	ChunkUnknown ChunkType = iota
	ChunkPHY
	ChunkPHY3
	ChunkPHY4
	ChunkMOTI
	ChunkSHAP
	ChunkSMOT
	ChunkPTCL
)

var chunkTags = [...]string{
	ChunkUnknown: "????",
	ChunkPHY:     "PHY ",
	ChunkPHY3:    "PHY3",
	ChunkPHY4:    "PHY4",
	ChunkMOTI:    "MOTI",
	ChunkSHAP:    "SHAP",
	ChunkSMOT:    "SMOT",
	ChunkPTCL:    "PTCL",
}

// ParseChunkType maps a 4-byte tag to its ChunkType.
func ParseChunkType(tag []byte) ChunkType {
	if len(tag) != 4 {
		return ChunkUnknown
	}
	for t := ChunkPHY; t <= ChunkPTCL; t++ {
		if chunkTags[t] == string(tag) {
			return t
		}
	}
	return ChunkUnknown
}

// Tag returns the on-disk tag.
func (t ChunkType) Tag() [4]byte {
	var tag [4]byte
	if t > ChunkUnknown && int(t) < len(chunkTags) {
		copy(tag[:], chunkTags[t])
	}
	return tag
}

// String returns the tag without padding, e.g. "PHY" or "MOTI".
func (t ChunkType) String() string {
	switch t {
	case ChunkPHY:
		return "PHY"
	case ChunkPHY3, ChunkPHY4, ChunkMOTI, ChunkSHAP, ChunkSMOT, ChunkPTCL:
		return chunkTags[t]
	default:
		return "Unknown"
	}
}

// IsMesh reports whether t is one of the mesh tags.
func (t ChunkType) IsMesh() bool {
	return t == ChunkPHY || t == ChunkPHY3 || t == ChunkPHY4
}

// IsShape reports whether t is one of the shape tags.
func (t ChunkType) IsShape() bool {
	return t == ChunkSHAP || t == ChunkSMOT
}

// Chunk is one decoded chunk: *MeshChunk, *MotionChunk, *ShapeChunk or
// *ParticleChunk. The set is closed.
type Chunk interface {
	Type() ChunkType
	sealed()
}

func (*MeshChunk) sealed()     {}
func (*MotionChunk) sealed()   {}
func (*ShapeChunk) sealed()    {}
func (*ParticleChunk) sealed() {}
