package c3

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

// checkMagic validates the 16-byte magic; only the first 10 bytes matter.
func checkMagic(data []byte) error {
	if len(data) < MagicSize {
		return &TruncationError{What: "C3 magic", Need: MagicSize, Have: len(data)}
	}
	if lit := data[:len(Magic)]; string(lit) != Magic {
		return &FormatError{What: "C3 magic", Literal: string(bytes.TrimRight(lit, "\x00")), Err: ErrInvalidMagic}
	}
	return nil
}

// decodeChunk dispatches a payload on its type. The error is already
// labelled with the chunk type.
func decodeChunk(t ChunkType, payload []byte) (Chunk, error) {
	var (
		c   Chunk
		err error
	)
	switch {
	case t.IsMesh():
		var mesh *MeshChunk
		if mesh, err = decodeMesh(t, payload); err == nil {
			c = mesh
		}
	case t == ChunkMOTI:
		var motion *MotionChunk
		if motion, err = decodeMotion(payload); err == nil {
			c = motion
		}
	case t.IsShape():
		var shape *ShapeChunk
		if shape, err = decodeShape(t, payload); err == nil {
			c = shape
		}
	case t == ChunkPTCL:
		var ps *ParticleChunk
		if ps, err = decodeParticle(payload); err == nil {
			c = ps
		}
	default:
		tag := t.Tag()
		return nil, &FormatError{What: "chunk type", Literal: string(tag[:]), Err: ErrUnsupportedChunk}
	}
	if err != nil {
		return nil, fmt.Errorf("%s chunk: %w", t, err)
	}
	return c, nil
}

// DecodeSingle decodes a single-layout container: magic, tag, size and one
// payload. Tags other than mesh, motion, shape and particle are rejected.
//
// A declared size larger than the data is clamped to what is present; the
// chunk decoder then reports whichever field is actually missing.
func DecodeSingle(data []byte) (*Model, error) {
	if err := checkMagic(data); err != nil {
		return nil, err
	}
	if len(data) < HeaderSize {
		return nil, &TruncationError{What: "C3 header", Need: HeaderSize, Have: len(data)}
	}

	tag := data[MagicSize : MagicSize+4]
	t := ParseChunkType(tag)
	if t == ChunkUnknown {
		return nil, &FormatError{What: "chunk type", Literal: string(tag), Err: ErrUnsupportedChunk}
	}

	size := binary.LittleEndian.Uint32(data[MagicSize+4:])
	payload := data[HeaderSize:]
	if uint64(size) < uint64(len(payload)) {
		payload = payload[:size]
	}

	chunk, err := decodeChunk(t, payload)
	if err != nil {
		return nil, err
	}

	m := NewModel()
	m.add(chunk)
	m.ComputeBounds()
	return m, nil
}

// Record describes one tag/size/payload record of a merge-layout container.
type Record struct {
	Type   ChunkType
	Tag    string
	Offset int // Offset of the payload
	Size   uint32
}

// ScanRecords lists the records of a merge-layout container without
// decoding them. Scanning stops at a zero size or when fewer than 8 bytes
// remain; a size running past the end is a TruncationError.
func ScanRecords(data []byte) ([]Record, error) {
	if err := checkMagic(data); err != nil {
		return nil, err
	}

	var records []Record
	pos := MagicSize
	for len(data)-pos >= RecordHeaderSize {
		tag := data[pos : pos+4]
		size := binary.LittleEndian.Uint32(data[pos+4:])
		pos += RecordHeaderSize
		if size == 0 {
			break
		}
		if uint64(size) > uint64(len(data)-pos) {
			return nil, &TruncationError{
				What: fmt.Sprintf("%q record at offset %d", tag, pos-RecordHeaderSize),
				Need: uint64(size),
				Have: len(data) - pos,
			}
		}
		records = append(records, Record{
			Type:   ParseChunkType(tag),
			Tag:    string(tag),
			Offset: pos,
			Size:   size,
		})
		pos += int(size)
	}
	return records, nil
}

// DecodeMerge decodes a merge-layout container and appends its chunks to m.
// Unknown tags are skipped. On error m is left unchanged.
func DecodeMerge(data []byte, m *Model) error {
	if m == nil {
		return fmt.Errorf("DecodeMerge: nil model")
	}
	records, err := ScanRecords(data)
	if err != nil {
		return err
	}

	chunks := make([]Chunk, 0, len(records))
	for _, rec := range records {
		if rec.Type == ChunkUnknown {
			continue
		}
		c, err := decodeChunk(rec.Type, data[rec.Offset:rec.Offset+int(rec.Size)])
		if err != nil {
			return fmt.Errorf("record at offset %d: %w", rec.Offset-RecordHeaderSize, err)
		}
		chunks = append(chunks, c)
	}

	for _, c := range chunks {
		m.add(c)
	}
	m.ComputeBounds()
	return nil
}

// ReadFile reads and decodes a single-layout C3 file from disk.
func ReadFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading C3 file: %w", err)
	}
	return DecodeSingle(data)
}

// MergeFile reads a merge-layout C3 file from disk into m.
func MergeFile(path string, m *Model) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading C3 file: %w", err)
	}
	return DecodeMerge(data, m)
}
