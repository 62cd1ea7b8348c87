package c3

import (
	"fmt"

	"github.com/Faultbox/c3kit/pkg/math"
)

// Model owns the chunks decoded from one or more containers.
type Model struct {
	Meshes    []*MeshChunk
	Motions   []*MotionChunk
	Shapes    []*ShapeChunk
	Particles []*ParticleChunk

	// Center and Radius bound the base morph target of every mesh. They are
	// the origin and 1 until ComputeBounds sees a mesh.
	Center math.Vec3
	Radius float32

	anim  int
	frame uint32
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{Radius: 1}
}

func (m *Model) add(c Chunk) {
	switch c := c.(type) {
	case *MeshChunk:
		m.Meshes = append(m.Meshes, c)
	case *MotionChunk:
		m.Motions = append(m.Motions, c)
	case *ShapeChunk:
		m.Shapes = append(m.Shapes, c)
	case *ParticleChunk:
		m.Particles = append(m.Particles, c)
	}
}

// Chunks returns every chunk in encoding order: meshes, motions, shapes,
// particles.
func (m *Model) Chunks() []Chunk {
	out := make([]Chunk, 0, len(m.Meshes)+len(m.Motions)+len(m.Shapes)+len(m.Particles))
	for _, c := range m.Meshes {
		out = append(out, c)
	}
	for _, c := range m.Motions {
		out = append(out, c)
	}
	for _, c := range m.Shapes {
		out = append(out, c)
	}
	for _, c := range m.Particles {
		out = append(out, c)
	}
	return out
}

// Type returns the type of the first chunk, or ChunkUnknown for an empty
// model.
func (m *Model) Type() ChunkType {
	if chunks := m.Chunks(); len(chunks) > 0 {
		return chunks[0].Type()
	}
	return ChunkUnknown
}

// ComputeBounds sets Center to the midpoint of the AABB of every mesh's base
// morph target and Radius to half its diagonal. Without vertices it leaves
// both unchanged.
func (m *Model) ComputeBounds() {
	var lo, hi math.Vec3
	found := false
	for _, mesh := range m.Meshes {
		mlo, mhi, ok := mesh.Bounds()
		if !ok {
			continue
		}
		if !found {
			lo, hi, found = mlo, mhi, true
			continue
		}
		lo = lo.Min(mlo)
		hi = hi.Max(mhi)
	}
	if !found {
		return
	}

	m.Center = lo.Add(hi).Scale(0.5)
	m.Radius = hi.Sub(lo).Length() * 0.5
}

// SetAnimationFrame selects motion index and stores frame wrapped to that
// motion's frame count.
func (m *Model) SetAnimationFrame(index int, frame uint32) error {
	if index < 0 || index >= len(m.Motions) {
		return fmt.Errorf("animation %d of %d: %w", index, len(m.Motions), ErrOutOfRange)
	}
	m.anim = index
	if n := m.Motions[index].FrameCount; n > 0 {
		m.frame = frame % n
	} else {
		m.frame = 0
	}
	return nil
}

// AnimationFrame returns the selected motion index and frame.
func (m *Model) AnimationFrame() (index int, frame uint32) {
	return m.anim, m.frame
}

// BoneMatrix samples bone of motion anim at frame. See
// MotionChunk.BoneMatrix.
func (m *Model) BoneMatrix(anim, bone int, frame float32) (math.Mat4, error) {
	if anim < 0 || anim >= len(m.Motions) {
		return math.Identity(), fmt.Errorf("animation %d of %d: %w", anim, len(m.Motions), ErrOutOfRange)
	}
	return m.Motions[anim].BoneMatrix(bone, frame)
}

// CurrentBoneMatrix samples bone at the frame chosen by SetAnimationFrame.
func (m *Model) CurrentBoneMatrix(bone int) (math.Mat4, error) {
	return m.BoneMatrix(m.anim, bone, float32(m.frame))
}

// TotalVertexCount returns the number of vertices across all meshes.
func (m *Model) TotalVertexCount() int {
	total := 0
	for _, mesh := range m.Meshes {
		total += len(mesh.Vertices)
	}
	return total
}

// TotalTriangleCount returns the number of triangles across all meshes.
func (m *Model) TotalTriangleCount() int {
	total := 0
	for _, mesh := range m.Meshes {
		total += mesh.TriangleCount()
	}
	return total
}

// HasAnimation reports whether any motion has more than one keyframe.
func (m *Model) HasAnimation() bool {
	for _, motion := range m.Motions {
		if len(motion.Keyframes) > 1 {
			return true
		}
	}
	return false
}

// MeshByName returns the first mesh with the given name.
func (m *Model) MeshByName(name string) *MeshChunk {
	for _, mesh := range m.Meshes {
		if mesh.Name == name {
			return mesh
		}
	}
	return nil
}
