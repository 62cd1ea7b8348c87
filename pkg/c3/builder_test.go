package c3

import (
	"bytes"
	"encoding/binary"

	"github.com/Faultbox/c3kit/pkg/math"
)

// payload assembles little-endian chunk bytes for tests.
type payload struct {
	bytes.Buffer
}

func (p *payload) u32(v uint32) *payload {
	binary.Write(&p.Buffer, binary.LittleEndian, v)
	return p
}

func (p *payload) u16(v uint16) *payload {
	binary.Write(&p.Buffer, binary.LittleEndian, v)
	return p
}

func (p *payload) f32(vs ...float32) *payload {
	binary.Write(&p.Buffer, binary.LittleEndian, vs)
	return p
}

func (p *payload) str(s string) *payload {
	p.u32(uint32(len(s)))
	p.WriteString(s)
	return p
}

func (p *payload) tag(s string) *payload {
	p.WriteString(s)
	return p
}

func (p *payload) vec3(v math.Vec3) *payload {
	return p.f32(v.X, v.Y, v.Z)
}

func (p *payload) mat4(m math.Mat4) *payload {
	return p.f32(m[:]...)
}

func (p *payload) vertex(v Vertex) *payload {
	binary.Write(&p.Buffer, binary.LittleEndian, v)
	return p
}

func magic() []byte {
	m := make([]byte, MagicSize)
	copy(m, Magic)
	// Reserved tail bytes are not validated.
	copy(m[len(Magic):], "\x01\x02\x03")
	return m
}

// makeSingle builds a single-layout file with an explicit size field.
func makeSingle(tag string, size uint32, body []byte) []byte {
	var b bytes.Buffer
	b.Write(magic())
	b.WriteString(tag)
	binary.Write(&b, binary.LittleEndian, size)
	b.Write(body)
	return b.Bytes()
}

type record struct {
	tag  string
	body []byte
}

// makeMerge builds a merge-layout file from records.
func makeMerge(records ...record) []byte {
	var b bytes.Buffer
	b.Write(magic())
	for _, r := range records {
		b.WriteString(r.tag)
		binary.Write(&b, binary.LittleEndian, uint32(len(r.body)))
		b.Write(r.body)
	}
	return b.Bytes()
}

func testVertex(x, y, z float32) Vertex {
	p := math.Vec3{X: x, Y: y, Z: z}
	return Vertex{
		Positions:   [4]math.Vec3{p, p.Add(math.Vec3{X: 1}), p, p},
		U:           0.25,
		V:           0.75,
		Color:       0xFF102030,
		BoneIndices: [2]uint32{1, 2},
		BoneWeights: [2]float32{0.6, 0.4},
	}
}

// meshBody builds a full mesh payload with the 76-byte vertex format and
// every optional field present.
func meshBody(name string, verts []Vertex, tris []uint16) []byte {
	var p payload
	p.str(name).u32(2)
	p.u32(uint32(len(verts))).u32(0)
	for _, v := range verts {
		p.vertex(v)
	}
	p.u32(uint32(len(tris) / 3)).u32(0)
	binary.Write(&p.Buffer, binary.LittleEndian, tris)
	p.str("texture/body.dds")
	p.vec3(math.Vec3{X: -1, Y: -1, Z: -1}).vec3(math.Vec3{X: 1, Y: 1, Z: 1})
	p.mat4(math.Translate(0, 5, 0))
	p.u32(3)
	p.u32(1).u32(0).f32(1)
	p.u32(0)
	p.u32(0)
	p.u32(0)
	return p.Bytes()
}

func particleBody(name string) []byte {
	var p payload
	p.str(name)
	p.vec3(math.Vec3{X: 1, Y: 2, Z: 3})
	p.f32(20, 2, 4)
	p.vec3(math.Vec3{X: 0.5, Y: 0.5, Z: 0.5})
	p.f32(1, 0, 0, 1)
	p.f32(0, 0, 1, 0)
	p.str("fx/spark.dds")
	p.u32(64)
	return p.Bytes()
}
