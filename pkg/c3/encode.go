package c3

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

// Encode writes m as a merge-layout container: the magic followed by one
// record per chunk, meshes first, then motions, shapes and particles. A model
// holding one chunk is therefore also a valid single-layout file.
//
// Meshes always use the 76-byte vertex record and every optional field is
// written.
func Encode(m *Model) []byte {
	var buf bytes.Buffer
	var magic [MagicSize]byte
	copy(magic[:], Magic)
	buf.Write(magic[:])

	for _, c := range m.Chunks() {
		encodeChunk(&buf, c)
	}
	return buf.Bytes()
}

// WriteFile encodes m to path.
func WriteFile(path string, m *Model) error {
	if err := os.WriteFile(path, Encode(m), 0644); err != nil {
		return fmt.Errorf("writing C3 file: %w", err)
	}
	return nil
}

func encodeChunk(w *bytes.Buffer, c Chunk) {
	tag := encodeType(c).Tag()
	w.Write(tag[:])

	// Size is patched once the payload is written.
	sizeAt := w.Len()
	writeU32(w, 0)
	start := w.Len()

	switch c := c.(type) {
	case *MeshChunk:
		encodeMesh(w, c)
	case *MotionChunk:
		encodeMotion(w, c)
	case *ShapeChunk:
		encodeShape(w, c)
	case *ParticleChunk:
		encodeParticle(w, c)
	}

	binary.LittleEndian.PutUint32(w.Bytes()[sizeAt:], uint32(w.Len()-start))
}

// encodeType picks the tag to write, defaulting meshes to PHY and shapes to
// SHAP when Kind was left unset.
func encodeType(c Chunk) ChunkType {
	t := c.Type()
	switch c.(type) {
	case *MeshChunk:
		if !t.IsMesh() {
			return ChunkPHY
		}
	case *ShapeChunk:
		if !t.IsShape() {
			return ChunkSHAP
		}
	}
	return t
}

func writeU32(w *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.Write(b[:])
}

// writeName writes a length-prefixed string, cut to MaxNameLen bytes.
func writeName(w *bytes.Buffer, s string) {
	if len(s) > MaxNameLen {
		s = s[:MaxNameLen]
	}
	writeU32(w, uint32(len(s)))
	w.WriteString(s)
}
