package c3

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/Faultbox/c3kit/pkg/math"
)

const (
	// VertexSize is the on-disk size of a Vertex.
	VertexSize = 76
	// LegacyVertexSize is the size of the older single-position record.
	LegacyVertexSize = 40
	// MaxVertices bounds normal + alpha vertex counts.
	MaxVertices = 100000
	// MaxBlendCount is the largest valid bones-per-vertex value.
	MaxBlendCount = 4
	// MaxTrackKeys bounds each mesh keyframe track.
	MaxTrackKeys = 999
	// DefaultMeshName is used when a mesh has no readable name.
	DefaultMeshName = "mesh"
)

// Vertex is a mesh vertex with four morph-target positions.
type Vertex struct {
	Positions   [4]math.Vec3 // Morph targets; Positions[0] is the base pose
	U, V        float32      // Texture coordinates
	Color       uint32       // Packed ARGB
	BoneIndices [2]uint32
	BoneWeights [2]float32
}

// legacyVertex is the 40-byte record found in older files.
type legacyVertex struct {
	Position math.Vec3
	Normal   math.Vec3
	U, V     float32
	Bones    uint32 // Two 8-bit bone indices, low byte first
	Color    uint32
}

func (lv legacyVertex) expand() Vertex {
	p := lv.Position
	return Vertex{
		Positions:   [4]math.Vec3{p, p, p, p},
		U:           lv.U,
		V:           lv.V,
		Color:       lv.Color,
		BoneIndices: [2]uint32{lv.Bones & 0xFF, (lv.Bones >> 8) & 0xFF},
		BoneWeights: [2]float32{1, 0},
	}
}

// Keyframe is one entry of a mesh keyframe track.
type Keyframe struct {
	Frame uint32
	Value float32
}

// MeshChunk is a decoded PHY, PHY3 or PHY4 chunk.
type MeshChunk struct {
	Kind              ChunkType
	Name              string
	BlendCount        uint32
	NormalVertexCount uint32
	AlphaVertexCount  uint32
	Vertices          []Vertex
	NormalIndices     []uint16 // Opaque triangles, 3 indices each
	AlphaIndices      []uint16 // Alpha-blended triangles, 3 indices each
	Texture           string
	BBoxMin, BBoxMax  math.Vec3
	InitialMatrix     math.Mat4
	TextureRow        uint32

	AlphaKeys         []Keyframe
	DrawKeys          []Keyframe
	TextureChangeKeys []Keyframe
	UVStepKeys        []Keyframe

	// Legacy is set when vertices were decoded from the 40-byte format.
	Legacy bool
	// Recovered is set when the name field was discarded because the blend
	// count read after it was out of range.
	Recovered bool
}

// Type implements Chunk.
func (m *MeshChunk) Type() ChunkType { return m.Kind }

// TriangleCount returns the number of opaque plus alpha triangles.
func (m *MeshChunk) TriangleCount() int {
	return (len(m.NormalIndices) + len(m.AlphaIndices)) / 3
}

// Bounds returns the AABB of the base morph target.
func (m *MeshChunk) Bounds() (lo, hi math.Vec3, ok bool) {
	if len(m.Vertices) == 0 {
		return lo, hi, false
	}
	lo = m.Vertices[0].Positions[0]
	hi = lo
	for i := range m.Vertices {
		p := m.Vertices[i].Positions[0]
		lo = lo.Min(p)
		hi = hi.Max(p)
	}
	return lo, hi, true
}

// decodeMesh parses a mesh payload.
func decodeMesh(kind ChunkType, payload []byte) (*MeshChunk, error) {
	r := bytes.NewReader(payload)
	mesh := &MeshChunk{
		Kind:          kind,
		Name:          DefaultMeshName,
		InitialMatrix: math.Identity(),
	}

	if err := need(r, 4, "mesh name length"); err != nil {
		return nil, err
	}
	if name, ok := readName(r); ok {
		mesh.Name = name
	}

	if err := need(r, 4, "mesh blend count"); err != nil {
		return nil, err
	}
	mesh.BlendCount = readU32(r)

	// A blend count past 4 means this variant has no name field: start over
	// and read the vertex counts from the first byte.
	if mesh.BlendCount > MaxBlendCount {
		r.Seek(0, io.SeekStart)
		mesh.BlendCount = 0
		mesh.Name = DefaultMeshName
		mesh.Recovered = true
	}

	if err := need(r, 8, "mesh vertex counts"); err != nil {
		return nil, err
	}
	mesh.NormalVertexCount = readU32(r)
	mesh.AlphaVertexCount = readU32(r)

	total := uint64(mesh.NormalVertexCount) + uint64(mesh.AlphaVertexCount)
	if total == 0 || total > MaxVertices {
		return nil, &SizeError{What: "mesh vertex count", Value: total}
	}

	mesh.Vertices = make([]Vertex, total)
	switch {
	case has(r, total*VertexSize):
		binary.Read(r, binary.LittleEndian, mesh.Vertices)
	case has(r, total*LegacyVertexSize):
		legacy := make([]legacyVertex, total)
		binary.Read(r, binary.LittleEndian, legacy)
		for i, lv := range legacy {
			mesh.Vertices[i] = lv.expand()
		}
		mesh.Legacy = true
	default:
		return nil, &TruncationError{What: "mesh vertices", Need: total * LegacyVertexSize, Have: r.Len()}
	}

	if err := need(r, 8, "mesh triangle counts"); err != nil {
		return nil, err
	}
	normalTris := readU32(r)
	alphaTris := readU32(r)

	var err error
	if mesh.NormalIndices, err = readIndices(r, normalTris, "mesh opaque indices"); err != nil {
		return nil, err
	}
	if mesh.AlphaIndices, err = readIndices(r, alphaTris, "mesh alpha indices"); err != nil {
		return nil, err
	}

	// Everything past the indices is optional; older variants stop early.
	mesh.Texture = readOptionalName(r)
	if has(r, 24) {
		mesh.BBoxMin = readVec3(r)
		mesh.BBoxMax = readVec3(r)
	}
	if has(r, 64) {
		mesh.InitialMatrix = readMat4(r)
	}
	if has(r, 4) {
		mesh.TextureRow = readU32(r)
	}

	mesh.AlphaKeys = readTrack(r)
	mesh.DrawKeys = readTrack(r)
	mesh.TextureChangeKeys = readTrack(r)
	mesh.UVStepKeys = readTrack(r)

	return mesh, nil
}

func readIndices(r *bytes.Reader, tris uint32, what string) ([]uint16, error) {
	if tris == 0 {
		return nil, nil
	}
	count := uint64(tris) * 3
	if err := need(r, count*2, what); err != nil {
		return nil, err
	}
	indices := make([]uint16, count)
	binary.Read(r, binary.LittleEndian, indices)
	return indices, nil
}

// readTrack reads an optional keyframe track. A count outside [1,999], or
// one whose entries do not fit, yields an empty track after consuming only
// the count.
func readTrack(r *bytes.Reader) []Keyframe {
	if !has(r, 4) {
		return nil
	}
	count := readU32(r)
	if count == 0 || count > MaxTrackKeys || !has(r, uint64(count)*8) {
		return nil
	}
	keys := make([]Keyframe, count)
	binary.Read(r, binary.LittleEndian, keys)
	return keys
}

// encodeMesh writes m in the 76-byte vertex layout. Vertices past
// MaxVertices and track entries past MaxTrackKeys are dropped so the
// result decodes with the same limits.
func encodeMesh(w *bytes.Buffer, m *MeshChunk) {
	writeName(w, m.Name)
	writeU32(w, m.BlendCount)

	verts := m.Vertices
	if len(verts) > MaxVertices {
		verts = verts[:MaxVertices]
	}
	normal, alpha := m.NormalVertexCount, m.AlphaVertexCount
	if uint64(normal)+uint64(alpha) != uint64(len(verts)) {
		normal, alpha = uint32(len(verts)), 0
	}
	writeU32(w, normal)
	writeU32(w, alpha)
	binary.Write(w, binary.LittleEndian, verts)

	writeU32(w, uint32(len(m.NormalIndices)/3))
	writeU32(w, uint32(len(m.AlphaIndices)/3))
	binary.Write(w, binary.LittleEndian, m.NormalIndices[:len(m.NormalIndices)/3*3])
	binary.Write(w, binary.LittleEndian, m.AlphaIndices[:len(m.AlphaIndices)/3*3])

	writeName(w, m.Texture)
	binary.Write(w, binary.LittleEndian, m.BBoxMin)
	binary.Write(w, binary.LittleEndian, m.BBoxMax)
	binary.Write(w, binary.LittleEndian, m.InitialMatrix)
	writeU32(w, m.TextureRow)

	for _, track := range [][]Keyframe{m.AlphaKeys, m.DrawKeys, m.TextureChangeKeys, m.UVStepKeys} {
		if len(track) > MaxTrackKeys {
			track = track[:MaxTrackKeys]
		}
		writeU32(w, uint32(len(track)))
		binary.Write(w, binary.LittleEndian, track)
	}
}
