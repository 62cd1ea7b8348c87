package c3

import (
	"errors"
	"testing"

	"github.com/Faultbox/c3kit/pkg/math"
)

func TestComputeBounds(t *testing.T) {
	m := NewModel()
	if m.Radius != 1 || m.Center != (math.Vec3{}) {
		t.Fatalf("new model bounds = %v/%v, want origin/1", m.Center, m.Radius)
	}

	// No meshes: nothing changes.
	m.Particles = append(m.Particles, NewParticleChunk())
	m.ComputeBounds()
	if m.Radius != 1 {
		t.Errorf("Radius = %v without meshes, want 1", m.Radius)
	}

	m.Meshes = append(m.Meshes,
		&MeshChunk{Vertices: []Vertex{testVertex(-1, -2, -3)}},
		&MeshChunk{Vertices: []Vertex{testVertex(3, 2, 1), testVertex(0, 0, 0)}},
	)
	m.ComputeBounds()

	if m.Center != (math.Vec3{X: 1, Y: 0, Z: -1}) {
		t.Errorf("Center = %v, want (1,0,-1)", m.Center)
	}
	// Diagonal is (4,4,4); half its length is sqrt(48)/2.
	if want := float32(3.4641016); abs32(m.Radius-want) > 1e-5 {
		t.Errorf("Radius = %v, want %v", m.Radius, want)
	}
}

func TestComputeBounds_UsesBaseMorphTarget(t *testing.T) {
	// testVertex shifts morph target 1 by +1 on X; it must not count.
	m := NewModel()
	m.Meshes = append(m.Meshes, &MeshChunk{Vertices: []Vertex{testVertex(0, 0, 0), testVertex(2, 0, 0)}})
	m.ComputeBounds()
	if m.Center != (math.Vec3{X: 1}) || m.Radius != 1 {
		t.Errorf("bounds = %v/%v, want (1,0,0)/1", m.Center, m.Radius)
	}
}

func TestSetAnimationFrame(t *testing.T) {
	m := NewModel()
	if err := m.SetAnimationFrame(0, 5); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("SetAnimationFrame on a model without motions: %v", err)
	}

	m.Motions = append(m.Motions,
		&MotionChunk{BoneCount: 1, FrameCount: 10},
		&MotionChunk{BoneCount: 1, FrameCount: 0},
	)

	tests := []struct {
		index     int
		frame     uint32
		wantFrame uint32
	}{
		{0, 3, 3},
		{0, 10, 0},
		{0, 23, 3},
		{1, 7, 0},
	}
	for _, tt := range tests {
		if err := m.SetAnimationFrame(tt.index, tt.frame); err != nil {
			t.Fatalf("SetAnimationFrame(%d, %d): %v", tt.index, tt.frame, err)
		}
		index, frame := m.AnimationFrame()
		if index != tt.index || frame != tt.wantFrame {
			t.Errorf("SetAnimationFrame(%d, %d) -> (%d, %d), want (%d, %d)",
				tt.index, tt.frame, index, frame, tt.index, tt.wantFrame)
		}
	}

	if err := m.SetAnimationFrame(2, 0); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("SetAnimationFrame(2) error = %v, want ErrOutOfRange", err)
	}
}

func TestModelBoneMatrix(t *testing.T) {
	m := NewModel()
	m.Motions = append(m.Motions, &MotionChunk{
		BoneCount:  1,
		FrameCount: 4,
		Keyframes: []BoneKeyframe{
			{Frame: 0, Bones: []math.Mat4{math.Identity()}},
			{Frame: 2, Bones: []math.Mat4{math.Translate(4, 0, 0)}},
		},
	})

	if err := m.SetAnimationFrame(0, 5); err != nil {
		t.Fatal(err)
	}
	got, err := m.CurrentBoneMatrix(0)
	if err != nil {
		t.Fatalf("CurrentBoneMatrix: %v", err)
	}
	if got.Translation() != (math.Vec3{X: 2}) {
		t.Errorf("frame 5 wraps to 1: translation = %v, want (2,0,0)", got.Translation())
	}

	if _, err := m.BoneMatrix(1, 0, 0); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("BoneMatrix(anim 1) error = %v, want ErrOutOfRange", err)
	}
}

func TestModelHelpers(t *testing.T) {
	m := NewModel()
	if m.Type() != ChunkUnknown || m.HasAnimation() {
		t.Error("empty model should have unknown type and no animation")
	}

	m.Meshes = append(m.Meshes,
		&MeshChunk{Kind: ChunkPHY4, Name: "head", Vertices: make([]Vertex, 4), NormalIndices: make([]uint16, 6)},
		&MeshChunk{Kind: ChunkPHY4, Name: "body", Vertices: make([]Vertex, 3), AlphaIndices: make([]uint16, 3)},
	)
	m.Motions = append(m.Motions, &MotionChunk{Keyframes: make([]BoneKeyframe, 2)})

	if got := m.TotalVertexCount(); got != 7 {
		t.Errorf("TotalVertexCount = %d, want 7", got)
	}
	if got := m.TotalTriangleCount(); got != 3 {
		t.Errorf("TotalTriangleCount = %d, want 3", got)
	}
	if !m.HasAnimation() {
		t.Error("HasAnimation = false with two keyframes")
	}
	if m.MeshByName("body") != m.Meshes[1] || m.MeshByName("tail") != nil {
		t.Error("MeshByName lookup failed")
	}
	if m.Type() != ChunkPHY4 {
		t.Errorf("Type() = %v, want PHY4", m.Type())
	}
	if len(m.Chunks()) != 3 {
		t.Errorf("Chunks() = %d, want 3", len(m.Chunks()))
	}
}

func TestChunkType(t *testing.T) {
	tests := []struct {
		tag  string
		want ChunkType
		str  string
	}{
		{"PHY ", ChunkPHY, "PHY"},
		{"PHY3", ChunkPHY3, "PHY3"},
		{"PHY4", ChunkPHY4, "PHY4"},
		{"MOTI", ChunkMOTI, "MOTI"},
		{"SHAP", ChunkSHAP, "SHAP"},
		{"SMOT", ChunkSMOT, "SMOT"},
		{"PTCL", ChunkPTCL, "PTCL"},
		{"phy ", ChunkUnknown, "Unknown"},
		{"PHY", ChunkUnknown, "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			got := ParseChunkType([]byte(tt.tag))
			if got != tt.want {
				t.Fatalf("ParseChunkType(%q) = %v, want %v", tt.tag, got, tt.want)
			}
			if got.String() != tt.str {
				t.Errorf("String() = %q, want %q", got.String(), tt.str)
			}
			if tag := got.Tag(); got != ChunkUnknown && string(tag[:]) != tt.tag {
				t.Errorf("Tag() = %q, want %q", tag, tt.tag)
			}
		})
	}
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
