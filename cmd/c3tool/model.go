package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/Faultbox/c3kit/pkg/c3"
	"github.com/Faultbox/c3kit/pkg/encoding"
	"github.com/Faultbox/c3kit/pkg/math"
)

func layoutFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "layout",
		Usage: "container layout: auto, single or merge",
		Value: "auto",
	}
}

// parseVec3 parses "x,y,z". An empty string is the origin.
func parseVec3(s string) (math.Vec3, error) {
	if s == "" {
		return math.Vec3{}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return math.Vec3{}, fmt.Errorf("vector %q: want x,y,z", s)
	}
	var v [3]float32
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return math.Vec3{}, fmt.Errorf("vector %q: %w", s, err)
		}
		v[i] = float32(f)
	}
	return math.Vec3{X: v[0], Y: v[1], Z: v[2]}, nil
}

// offsetModel moves every mesh of m by d: the translation is applied after
// each initial matrix and the stored box is shifted to match. Vertices and
// the model bounds are unchanged.
func offsetModel(m *c3.Model, d math.Vec3) {
	t := math.Translate(d.X, d.Y, d.Z)
	for _, mesh := range m.Meshes {
		mesh.InitialMatrix = t.Mul(mesh.InitialMatrix)
		mesh.BBoxMin = t.TransformPoint(mesh.BBoxMin)
		mesh.BBoxMax = t.TransformPoint(mesh.BBoxMax)
	}
}

// decodeModel decodes data in the requested layout. auto tries the merge
// layout first and falls back to single, which tolerates an oversized
// declared size.
func decodeModel(data []byte, layout string) (*c3.Model, error) {
	switch layout {
	case "single":
		return c3.DecodeSingle(data)
	case "merge":
		m := c3.NewModel()
		if err := c3.DecodeMerge(data, m); err != nil {
			return nil, err
		}
		return m, nil
	case "auto", "":
		m := c3.NewModel()
		mergeErr := c3.DecodeMerge(data, m)
		if mergeErr == nil {
			return m, nil
		}
		single, err := c3.DecodeSingle(data)
		if err != nil {
			return nil, errors.Join(mergeErr, err)
		}
		return single, nil
	default:
		return nil, fmt.Errorf("unknown layout %q", layout)
	}
}

func (a *app) readModel(path, layout string) (*c3.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading C3 file: %w", err)
	}
	m, err := decodeModel(data, layout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	a.log.Debug("decoded model", zap.String("path", path), zap.Int("chunks", len(m.Chunks())))
	return m, nil
}

type meshSummary struct {
	Kind       string     `json:"kind"`
	Name       string     `json:"name"`
	BlendCount uint32     `json:"blend_count"`
	Vertices   int        `json:"vertices"`
	Triangles  int        `json:"triangles"`
	Texture    string     `json:"texture,omitempty"`
	Origin     [3]float32 `json:"origin"`
	Legacy     bool       `json:"legacy,omitempty"`
	Recovered  bool       `json:"recovered,omitempty"`
}

type motionSummary struct {
	Format    string `json:"format"`
	Bones     uint32 `json:"bones"`
	Frames    uint32 `json:"frames"`
	Keyframes int    `json:"keyframes"`
	Morphs    uint32 `json:"morphs,omitempty"`
}

type shapeSummary struct {
	Kind     string `json:"kind"`
	Name     string `json:"name"`
	Lines    int    `json:"lines"`
	Points   int    `json:"points"`
	Texture  string `json:"texture,omitempty"`
	Segments uint32 `json:"segments"`
}

type particleSummary struct {
	Name         string     `json:"name"`
	Emitter      [3]float32 `json:"emitter"`
	EmitRate     float32    `json:"emit_rate"`
	Lifetime     float32    `json:"lifetime"`
	Texture      string     `json:"texture,omitempty"`
	MaxParticles uint32     `json:"max_particles"`
}

type modelSummary struct {
	Center    [3]float32        `json:"center"`
	Radius    float32           `json:"radius"`
	Vertices  int               `json:"vertices"`
	Triangles int               `json:"triangles"`
	Animated  bool              `json:"animated"`
	Meshes    []meshSummary     `json:"meshes,omitempty"`
	Motions   []motionSummary   `json:"motions,omitempty"`
	Shapes    []shapeSummary    `json:"shapes,omitempty"`
	Particles []particleSummary `json:"particles,omitempty"`
}

// summarize flattens m for display. Names are stored as GBK.
func summarize(m *c3.Model) modelSummary {
	s := modelSummary{
		Center:    [3]float32{m.Center.X, m.Center.Y, m.Center.Z},
		Radius:    m.Radius,
		Vertices:  m.TotalVertexCount(),
		Triangles: m.TotalTriangleCount(),
		Animated:  m.HasAnimation(),
	}
	for _, mesh := range m.Meshes {
		origin := mesh.InitialMatrix.Translation()
		s.Meshes = append(s.Meshes, meshSummary{
			Kind:       mesh.Type().String(),
			Name:       encoding.GBKStringToUTF8(mesh.Name),
			BlendCount: mesh.BlendCount,
			Vertices:   len(mesh.Vertices),
			Triangles:  mesh.TriangleCount(),
			Texture:    encoding.GBKStringToUTF8(mesh.Texture),
			Origin:     [3]float32{origin.X, origin.Y, origin.Z},
			Legacy:     mesh.Legacy,
			Recovered:  mesh.Recovered,
		})
	}
	for _, motion := range m.Motions {
		s.Motions = append(s.Motions, motionSummary{
			Format:    motion.Format.String(),
			Bones:     motion.BoneCount,
			Frames:    motion.FrameCount,
			Keyframes: len(motion.Keyframes),
			Morphs:    motion.MorphCount,
		})
	}
	for _, shape := range m.Shapes {
		s.Shapes = append(s.Shapes, shapeSummary{
			Kind:     shape.Type().String(),
			Name:     encoding.GBKStringToUTF8(shape.Name),
			Lines:    len(shape.Lines),
			Points:   shape.PointCount(),
			Texture:  encoding.GBKStringToUTF8(shape.Texture),
			Segments: shape.SegmentCount,
		})
	}
	for _, p := range m.Particles {
		s.Particles = append(s.Particles, particleSummary{
			Name:         encoding.GBKStringToUTF8(p.Name),
			Emitter:      [3]float32{p.EmitterPos.X, p.EmitterPos.Y, p.EmitterPos.Z},
			EmitRate:     p.EmitRate,
			Lifetime:     p.Lifetime,
			Texture:      encoding.GBKStringToUTF8(p.Texture),
			MaxParticles: p.MaxParticles,
		})
	}
	return s
}

func printSummary(w io.Writer, s modelSummary) {
	fmt.Fprintf(w, "bounds: center=(%g, %g, %g) radius=%g\n", s.Center[0], s.Center[1], s.Center[2], s.Radius)
	fmt.Fprintf(w, "totals: %d vertices, %d triangles, animated=%v\n", s.Vertices, s.Triangles, s.Animated)
	for i, mesh := range s.Meshes {
		fmt.Fprintf(w, "mesh %d: %s %q blend=%d vertices=%d triangles=%d texture=%q",
			i, mesh.Kind, mesh.Name, mesh.BlendCount, mesh.Vertices, mesh.Triangles, mesh.Texture)
		if mesh.Legacy {
			fmt.Fprint(w, " legacy")
		}
		if mesh.Recovered {
			fmt.Fprint(w, " recovered")
		}
		fmt.Fprintln(w)
	}
	for i, motion := range s.Motions {
		fmt.Fprintf(w, "motion %d: %s bones=%d frames=%d keyframes=%d morphs=%d\n",
			i, motion.Format, motion.Bones, motion.Frames, motion.Keyframes, motion.Morphs)
	}
	for i, shape := range s.Shapes {
		fmt.Fprintf(w, "shape %d: %s %q lines=%d points=%d segments=%d texture=%q\n",
			i, shape.Kind, shape.Name, shape.Lines, shape.Points, shape.Segments, shape.Texture)
	}
	for i, p := range s.Particles {
		fmt.Fprintf(w, "particle %d: %q max=%d texture=%q\n", i, p.Name, p.MaxParticles, p.Texture)
	}
}

func (a *app) infoCmd() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "List the records of a C3 file and summarize its chunks",
		ArgsUsage: "<file.c3>",
		Flags:     []cli.Flag{layoutFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return fmt.Errorf("info: a C3 file is required")
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading C3 file: %w", err)
			}

			w := stdout(cmd)
			fmt.Fprintf(w, "%s: %d bytes\n", path, len(data))
			records, err := c3.ScanRecords(data)
			if err != nil {
				fmt.Fprintf(w, "records: %v\n", err)
			}
			for _, rec := range records {
				fmt.Fprintf(w, "record @%d: %q size=%d\n", rec.Offset-c3.RecordHeaderSize, rec.Tag, rec.Size)
			}

			m, err := decodeModel(data, cmd.String("layout"))
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			printSummary(w, summarize(m))
			return nil
		},
	}
}

func (a *app) dumpCmd() *cli.Command {
	return &cli.Command{
		Name:      "dump",
		Usage:     "Print a model summary as JSON",
		ArgsUsage: "<file.c3>",
		Flags: []cli.Flag{
			layoutFlag(),
			&cli.BoolFlag{Name: "compact", Usage: "emit single-line JSON"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return fmt.Errorf("dump: a C3 file is required")
			}
			m, err := a.readModel(path, cmd.String("layout"))
			if err != nil {
				return err
			}

			var out []byte
			if cmd.Bool("compact") {
				out, err = json.Marshal(summarize(m))
			} else {
				out, err = json.MarshalIndent(summarize(m), "", "  ")
			}
			if err != nil {
				return fmt.Errorf("encoding summary: %w", err)
			}
			w := stdout(cmd)
			w.Write(out)
			fmt.Fprintln(w)
			return nil
		},
	}
}

func (a *app) convertCmd() *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "Re-encode a C3 file with the 76-byte vertex format",
		ArgsUsage: "<in.c3> <out.c3>",
		Flags: []cli.Flag{
			layoutFlag(),
			&cli.StringFlag{Name: "offset", Usage: "move every mesh by x,y,z"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return fmt.Errorf("convert: expected <in.c3> <out.c3>")
			}
			offset, err := parseVec3(cmd.String("offset"))
			if err != nil {
				return fmt.Errorf("convert: %w", err)
			}
			in, out := cmd.Args().Get(0), cmd.Args().Get(1)
			m, err := a.readModel(in, cmd.String("layout"))
			if err != nil {
				return err
			}
			if offset != (math.Vec3{}) {
				offsetModel(m, offset)
			}
			if err := c3.WriteFile(out, m); err != nil {
				return err
			}
			a.log.Info("converted", zap.String("in", in), zap.String("out", out), zap.Int("chunks", len(m.Chunks())))
			return nil
		},
	}
}

func (a *app) sampleCmd() *cli.Command {
	return &cli.Command{
		Name:      "sample",
		Usage:     "Print an interpolated bone matrix",
		ArgsUsage: "<file.c3>",
		Flags: []cli.Flag{
			layoutFlag(),
			&cli.IntFlag{Name: "anim", Usage: "motion index"},
			&cli.IntFlag{Name: "bone", Usage: "bone index"},
			&cli.FloatFlag{Name: "frame", Usage: "frame, fractional values interpolate"},
			&cli.StringFlag{Name: "point", Usage: "x,y,z to carry through the matrix"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return fmt.Errorf("sample: a C3 file is required")
			}
			m, err := a.readModel(path, cmd.String("layout"))
			if err != nil {
				return err
			}

			point, err := parseVec3(cmd.String("point"))
			if err != nil {
				return fmt.Errorf("sample: %w", err)
			}
			mat, err := m.BoneMatrix(int(cmd.Int("anim")), int(cmd.Int("bone")), float32(cmd.Float("frame")))
			if err != nil {
				return err
			}
			w := stdout(cmd)
			for row := 0; row < 4; row++ {
				fmt.Fprintf(w, "%10.4f %10.4f %10.4f %10.4f\n",
					mat[row*4], mat[row*4+1], mat[row*4+2], mat[row*4+3])
			}
			p := mat.TransformPoint(point)
			fmt.Fprintf(w, "point %10.4f %10.4f %10.4f\n", p.X, p.Y, p.Z)
			return nil
		},
	}
}
