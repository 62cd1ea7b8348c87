package c3

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/Faultbox/c3kit/pkg/math"
)

// MotionFormat is the keyframe encoding of a motion chunk.
type MotionFormat int

const (
	// MotionDense stores one matrix per bone per frame, bone-major, with no
	// sub-tag.
	MotionDense MotionFormat = iota
	// MotionKKEY stores full 4x4 matrices with 32-bit frame numbers.
	MotionKKEY
	// MotionXKEY stores 4x3 affine matrices with 16-bit frame numbers.
	MotionXKEY
	// MotionZKEY stores quaternion + translation with 16-bit frame numbers.
	MotionZKEY
)

// String returns the sub-tag, or "dense".
func (f MotionFormat) String() string {
	switch f {
	case MotionKKEY:
		return "KKEY"
	case MotionXKEY:
		return "XKEY"
	case MotionZKEY:
		return "ZKEY"
	default:
		return "dense"
	}
}

func parseMotionFormat(tag []byte) MotionFormat {
	switch string(tag) {
	case "KKEY":
		return MotionKKEY
	case "XKEY":
		return MotionXKEY
	case "ZKEY":
		return MotionZKEY
	default:
		return MotionDense
	}
}

// Per-bone record sizes of each keyframe encoding.
const (
	kkeyBoneSize = 64
	xkeyBoneSize = 48
	zkeyBoneSize = 28
)

// MaxDenseFrames bounds the frame count of a dense motion chunk.
const MaxDenseFrames = 100000

// BoneKeyframe holds every bone's matrix at one frame.
type BoneKeyframe struct {
	Frame uint32
	Bones []math.Mat4
}

// MotionChunk is a decoded MOTI chunk. Keyframes are in ascending frame
// order regardless of the source encoding.
type MotionChunk struct {
	BoneCount    uint32
	FrameCount   uint32
	Format       MotionFormat
	Keyframes    []BoneKeyframe
	MorphCount   uint32
	MorphWeights []float32 // MorphCount * FrameCount values, frame-major
}

// Type implements Chunk.
func (*MotionChunk) Type() ChunkType { return ChunkMOTI }

// MorphWeight returns weight i at frame, or 0 if the table has no entry.
func (m *MotionChunk) MorphWeight(frame, i uint32) float32 {
	if m.FrameCount == 0 || i >= m.MorphCount {
		return 0
	}
	idx := uint64(frame%m.FrameCount)*uint64(m.MorphCount) + uint64(i)
	if idx >= uint64(len(m.MorphWeights)) {
		return 0
	}
	return m.MorphWeights[idx]
}

// BoneMatrix samples bone at frame. Frames before the first or after the
// last keyframe clamp to it; frames between two keyframes interpolate each
// of the 16 components linearly. A frame equal to a keyframe's returns that
// keyframe's matrix unchanged.
func (m *MotionChunk) BoneMatrix(bone int, frame float32) (math.Mat4, error) {
	if bone < 0 || uint32(bone) >= m.BoneCount {
		return math.Identity(), fmt.Errorf("bone %d of %d: %w", bone, m.BoneCount, ErrOutOfRange)
	}
	keys := m.Keyframes
	if len(keys) == 0 {
		return math.Identity(), nil
	}

	// Find surrounding keyframes
	var prev, next int
	for i := range keys {
		if float32(keys[i].Frame) > frame {
			next = i
			break
		}
		prev = i
		next = i
	}

	k0 := keys[prev]
	if prev == next || float32(k0.Frame) == frame {
		return k0.bone(bone), nil
	}

	k1 := keys[next]
	t := (frame - float32(k0.Frame)) / float32(k1.Frame-k0.Frame)
	return math.LerpMat4(k0.bone(bone), k1.bone(bone), t), nil
}

func (kf BoneKeyframe) bone(i int) math.Mat4 {
	if i < len(kf.Bones) {
		return kf.Bones[i]
	}
	return math.Identity()
}

func decodeMotion(payload []byte) (*MotionChunk, error) {
	r := bytes.NewReader(payload)
	motion := &MotionChunk{}

	if err := need(r, 8, "motion counts"); err != nil {
		return nil, err
	}
	motion.BoneCount = readU32(r)
	motion.FrameCount = readU32(r)

	if has(r, 4) {
		var tag [4]byte
		r.Read(tag[:])
		motion.Format = parseMotionFormat(tag[:])
		if motion.Format == MotionDense {
			r.Seek(-4, io.SeekCurrent)
		}
	}

	var err error
	if motion.Format == MotionDense {
		err = motion.readDense(r)
	} else {
		err = motion.readSparse(r)
	}
	if err != nil {
		return nil, err
	}

	if !sort.SliceIsSorted(motion.Keyframes, motion.less) {
		sort.SliceStable(motion.Keyframes, motion.less)
	}

	// Optional morph table
	if has(r, 4) {
		count := readU32(r)
		n := uint64(count) * uint64(motion.FrameCount)
		if n > 0 && fits(r, n, 4) {
			motion.MorphCount = count
			motion.MorphWeights = make([]float32, n)
			binary.Read(r, binary.LittleEndian, motion.MorphWeights)
		}
	}

	return motion, nil
}

func (m *MotionChunk) less(i, j int) bool {
	return m.Keyframes[i].Frame < m.Keyframes[j].Frame
}

// readDense reads FrameCount keyframes stored bone-major: every frame of
// bone 0, then every frame of bone 1, and so on.
func (m *MotionChunk) readDense(r *bytes.Reader) error {
	if m.FrameCount > MaxDenseFrames {
		return &SizeError{What: "dense motion frame count", Value: uint64(m.FrameCount)}
	}
	bytesNeeded := uint64(m.BoneCount) * uint64(m.FrameCount) * kkeyBoneSize
	if err := need(r, bytesNeeded, "dense motion matrices"); err != nil {
		return err
	}

	if m.FrameCount == 0 {
		return nil
	}

	m.Keyframes = make([]BoneKeyframe, m.FrameCount)
	for f := range m.Keyframes {
		m.Keyframes[f] = BoneKeyframe{
			Frame: uint32(f),
			Bones: make([]math.Mat4, m.BoneCount),
		}
	}
	for b := uint32(0); b < m.BoneCount; b++ {
		for f := range m.Keyframes {
			m.Keyframes[f].Bones[b] = readMat4(r)
		}
	}
	return nil
}

func (m *MotionChunk) readSparse(r *bytes.Reader) error {
	if err := need(r, 4, "motion keyframe count"); err != nil {
		return err
	}
	count := readU32(r)

	frameSize, boneSize := uint64(2), uint64(xkeyBoneSize)
	switch m.Format {
	case MotionKKEY:
		frameSize, boneSize = 4, kkeyBoneSize
	case MotionZKEY:
		boneSize = zkeyBoneSize
	}
	recordSize := frameSize + uint64(m.BoneCount)*boneSize
	if err := needRecords(r, uint64(count), recordSize, m.Format.String()+" keyframes"); err != nil {
		return err
	}

	m.Keyframes = make([]BoneKeyframe, count)
	for i := range m.Keyframes {
		kf := &m.Keyframes[i]
		if m.Format == MotionKKEY {
			kf.Frame = readU32(r)
		} else {
			kf.Frame = uint32(readU16(r))
		}

		kf.Bones = make([]math.Mat4, m.BoneCount)
		for b := range kf.Bones {
			switch m.Format {
			case MotionKKEY:
				kf.Bones[b] = readMat4(r)
			case MotionXKEY:
				var rows [12]float32
				binary.Read(r, binary.LittleEndian, &rows)
				kf.Bones[b] = math.FromMat4x3(rows)
			case MotionZKEY:
				q := math.Quat{X: readF32(r), Y: readF32(r), Z: readF32(r), W: readF32(r)}
				kf.Bones[b] = math.RotationTranslation(q, readVec3(r))
			}
		}
	}
	return nil
}

// encodeMotion always writes the KKEY form, which holds any decoded matrix
// without loss.
func encodeMotion(w *bytes.Buffer, m *MotionChunk) {
	writeU32(w, m.BoneCount)
	writeU32(w, m.FrameCount)
	w.WriteString("KKEY")
	writeU32(w, uint32(len(m.Keyframes)))

	identity := math.Identity()
	for _, kf := range m.Keyframes {
		writeU32(w, kf.Frame)
		for b := uint32(0); b < m.BoneCount; b++ {
			bone := identity
			if int(b) < len(kf.Bones) {
				bone = kf.Bones[b]
			}
			binary.Write(w, binary.LittleEndian, bone)
		}
	}

	morphs := m.MorphWeights
	want := uint64(m.MorphCount) * uint64(m.FrameCount)
	if uint64(len(morphs)) != want {
		writeU32(w, 0)
		return
	}
	writeU32(w, m.MorphCount)
	binary.Write(w, binary.LittleEndian, morphs)
}
