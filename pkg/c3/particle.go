package c3

import (
	"bytes"
	"encoding/binary"

	"github.com/Faultbox/c3kit/pkg/math"
)

// ParticleChunk is a decoded PTCL emitter.
type ParticleChunk struct {
	Name         string
	EmitterPos   math.Vec3
	EmitRate     float32 // Particles per second
	Lifetime     float32 // Seconds
	Speed        float32
	Size         math.Vec3
	StartColor   math.Vec4 // RGBA at birth
	EndColor     math.Vec4 // RGBA at death
	Texture      string
	MaxParticles uint32
}

// NewParticleChunk returns an emitter with the defaults used for fields a
// file omits.
func NewParticleChunk() *ParticleChunk {
	return &ParticleChunk{
		EmitRate:     10,
		Lifetime:     5,
		Speed:        1,
		Size:         math.Vec3{X: 1, Y: 1, Z: 1},
		StartColor:   math.Vec4{X: 1, Y: 1, Z: 1, W: 1},
		EndColor:     math.Vec4{X: 1, Y: 1, Z: 1, W: 0},
		MaxParticles: 1000,
	}
}

// Type implements Chunk.
func (*ParticleChunk) Type() ChunkType { return ChunkPTCL }

// ColorAt returns the particle color at age t in [0,1] of its lifetime.
func (p *ParticleChunk) ColorAt(t float32) math.Vec4 {
	t = min(max(t, 0), 1)
	return math.LerpVec4(p.StartColor, p.EndColor, t)
}

func decodeParticle(payload []byte) (*ParticleChunk, error) {
	r := bytes.NewReader(payload)
	ps := NewParticleChunk()

	if err := need(r, 4, "particle name length"); err != nil {
		return nil, err
	}
	ps.Name, _ = readName(r)

	if err := need(r, 12, "particle emitter position"); err != nil {
		return nil, err
	}
	ps.EmitterPos = readVec3(r)

	if has(r, 12) {
		ps.EmitRate = readF32(r)
		ps.Lifetime = readF32(r)
		ps.Speed = readF32(r)
	}
	if has(r, 12) {
		ps.Size = readVec3(r)
	}
	if has(r, 32) {
		ps.StartColor = readVec4(r)
		ps.EndColor = readVec4(r)
	}
	ps.Texture = readOptionalName(r)
	if has(r, 4) {
		ps.MaxParticles = readU32(r)
	}

	return ps, nil
}

func encodeParticle(w *bytes.Buffer, p *ParticleChunk) {
	writeName(w, p.Name)
	binary.Write(w, binary.LittleEndian, p.EmitterPos)
	binary.Write(w, binary.LittleEndian, [3]float32{p.EmitRate, p.Lifetime, p.Speed})
	binary.Write(w, binary.LittleEndian, p.Size)
	binary.Write(w, binary.LittleEndian, p.StartColor)
	binary.Write(w, binary.LittleEndian, p.EndColor)
	writeName(w, p.Texture)
	writeU32(w, p.MaxParticles)
}
