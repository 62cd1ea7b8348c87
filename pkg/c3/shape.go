package c3

import (
	"bytes"
	"encoding/binary"

	"github.com/Faultbox/c3kit/pkg/math"
)

const (
	// MaxShapeLines caps how many lines of a shape are read.
	MaxShapeLines = 100
	// MaxLinePoints bounds the point count of one line.
	MaxLinePoints = 999
)

// Line is one polyline of a shape.
type Line struct {
	Points []math.Vec3
}

// ShapeChunk is a decoded SHAP or SMOT chunk: polylines used for trails and
// ribbons.
type ShapeChunk struct {
	Kind         ChunkType
	Name         string
	Lines        []Line
	Texture      string
	SegmentCount uint32
}

// Type implements Chunk.
func (s *ShapeChunk) Type() ChunkType { return s.Kind }

// PointCount returns the number of points across all lines.
func (s *ShapeChunk) PointCount() int {
	n := 0
	for _, l := range s.Lines {
		n += len(l.Points)
	}
	return n
}

func decodeShape(kind ChunkType, payload []byte) (*ShapeChunk, error) {
	r := bytes.NewReader(payload)
	shape := &ShapeChunk{Kind: kind}

	if err := need(r, 4, "shape name length"); err != nil {
		return nil, err
	}
	shape.Name, _ = readName(r)

	if err := need(r, 4, "shape line count"); err != nil {
		return nil, err
	}
	lineCount := readU32(r)

	for i := uint32(0); i < lineCount && i < MaxShapeLines; i++ {
		if !has(r, 4) {
			break
		}
		points := readU32(r)
		if points == 0 || points > MaxLinePoints {
			continue
		}
		if !has(r, uint64(points)*12) {
			break
		}
		line := Line{Points: make([]math.Vec3, points)}
		binary.Read(r, binary.LittleEndian, line.Points)
		shape.Lines = append(shape.Lines, line)
	}

	shape.Texture = readOptionalName(r)
	if has(r, 4) {
		shape.SegmentCount = readU32(r)
	}

	return shape, nil
}

func encodeShape(w *bytes.Buffer, s *ShapeChunk) {
	writeName(w, s.Name)

	lines := s.Lines
	if len(lines) > MaxShapeLines {
		lines = lines[:MaxShapeLines]
	}
	writeU32(w, uint32(len(lines)))
	for _, l := range lines {
		pts := l.Points
		if len(pts) > MaxLinePoints {
			pts = pts[:MaxLinePoints]
		}
		writeU32(w, uint32(len(pts)))
		binary.Write(w, binary.LittleEndian, pts)
	}

	writeName(w, s.Texture)
	writeU32(w, s.SegmentCount)
}
