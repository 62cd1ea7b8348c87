package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/Faultbox/c3kit/pkg/archive"
	"github.com/Faultbox/c3kit/pkg/archive/dnp"
	"github.com/Faultbox/c3kit/pkg/archive/wdf"
	"github.com/Faultbox/c3kit/pkg/c3hash"
)

// adder is satisfied by both archive writers.
type adder interface {
	Add(name string, data []byte) error
}

// packDir adds every regular file under dir to w, named prefix plus the
// slash-separated path relative to dir.
func packDir(w adder, dir, prefix string) (int, error) {
	n := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := w.Add(prefix+filepath.ToSlash(rel), data); err != nil {
			return err
		}
		n++
		return nil
	})
	return n, err
}

// extractTo writes data to dir/name, creating parent directories. Names
// that are absolute or climb out of dir are rejected.
func extractTo(dir, name string, data []byte) (string, error) {
	rel := filepath.FromSlash(c3hash.Normalize(name))
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("asset path %q escapes the output directory", name)
	}
	out := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return "", err
	}
	return out, os.WriteFile(out, data, 0644)
}

func printEntries(cmd *cli.Command, entries []archive.Entry) {
	w := stdout(cmd)
	for _, e := range entries {
		fmt.Fprintf(w, "0x%08x\t%10d\t0x%08x\n", e.ID, e.Size, e.Offset)
	}
	fmt.Fprintf(w, "%d entries\n", len(entries))
}

func outputDirFlag() cli.Flag {
	return &cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output directory", Value: "."}
}

func (a *app) wdfCmd() *cli.Command {
	return &cli.Command{
		Name:  "wdf",
		Usage: "Work with sorted WDF archives",
		Commands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "List index entries",
				ArgsUsage: "<archive.wdf>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					arc, err := wdf.Open(cmd.Args().First())
					if err != nil {
						return err
					}
					defer arc.Close()
					fmt.Fprintf(stdout(cmd), "pack id 0x%08x\n", arc.ID())
					printEntries(cmd, arc.Entries())
					return nil
				},
			},
			{
				Name:      "extract",
				Usage:     "Extract assets by path",
				ArgsUsage: "<archive.wdf> <asset path>...",
				Flags:     []cli.Flag{outputDirFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() < 2 {
						return fmt.Errorf("wdf extract: expected <archive.wdf> <asset path>...")
					}
					arc, err := wdf.Open(cmd.Args().First())
					if err != nil {
						return err
					}
					defer arc.Close()

					for _, name := range cmd.Args().Tail() {
						data, err := arc.LoadPath(name)
						if err != nil {
							return err
						}
						out, err := extractTo(cmd.String("out"), name, data)
						if err != nil {
							return err
						}
						a.log.Debug("extracted", zap.String("asset", name), zap.String("to", out))
					}
					return nil
				},
			},
			{
				Name:      "pack",
				Usage:     "Build an archive from a directory tree",
				ArgsUsage: "<out.wdf> <dir>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "prefix", Usage: "asset path prefix (default: archive name + '/')"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() != 2 {
						return fmt.Errorf("wdf pack: expected <out.wdf> <dir>")
					}
					out, dir := cmd.Args().Get(0), cmd.Args().Get(1)
					prefix := cmd.String("prefix")
					if !cmd.IsSet("prefix") {
						base := filepath.Base(out)
						prefix = strings.TrimSuffix(base, filepath.Ext(base)) + "/"
					}

					w, err := wdf.Create(out)
					if err != nil {
						return err
					}
					n, err := packDir(w, dir, prefix)
					if err != nil {
						w.Close()
						return err
					}
					if err := w.Close(); err != nil {
						return err
					}
					a.log.Info("packed", zap.String("archive", out), zap.Int("files", n), zap.String("prefix", prefix))
					return nil
				},
			},
		},
	}
}

func (a *app) dnpCmd() *cli.Command {
	return &cli.Command{
		Name:  "dnp",
		Usage: "Work with hashed DNP archives",
		Commands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "List index entries",
				ArgsUsage: "<archive.dnp>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					arc, err := dnp.Open(cmd.Args().First())
					if err != nil {
						return err
					}
					defer arc.Close()
					printEntries(cmd, arc.Entries())
					return nil
				},
			},
			{
				Name:      "extract",
				Usage:     "Extract assets by path",
				ArgsUsage: "<archive.dnp> <asset path>...",
				Flags:     []cli.Flag{outputDirFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() < 2 {
						return fmt.Errorf("dnp extract: expected <archive.dnp> <asset path>...")
					}
					arc, err := dnp.Open(cmd.Args().First())
					if err != nil {
						return err
					}
					defer arc.Close()

					for _, name := range cmd.Args().Tail() {
						view, err := arc.LoadPath(name)
						if err != nil {
							return err
						}
						// The view is written out before the next load reuses it.
						data, err := view.Bytes()
						if err != nil {
							return err
						}
						out, err := extractTo(cmd.String("out"), name, data)
						if err != nil {
							return err
						}
						a.log.Debug("extracted", zap.String("asset", name), zap.String("to", out))
					}
					return nil
				},
			},
			{
				Name:      "pack",
				Usage:     "Build an archive from a directory tree",
				ArgsUsage: "<out.dnp> <dir>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "prefix", Usage: "asset path prefix"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() != 2 {
						return fmt.Errorf("dnp pack: expected <out.dnp> <dir>")
					}
					out, dir := cmd.Args().Get(0), cmd.Args().Get(1)
					w := dnp.Create(out)
					n, err := packDir(w, dir, cmd.String("prefix"))
					if err != nil {
						return err
					}
					if err := w.Close(); err != nil {
						return err
					}
					a.log.Info("packed", zap.String("archive", out), zap.Int("files", n))
					return nil
				},
			},
		},
	}
}

func (a *app) loadCmd() *cli.Command {
	return &cli.Command{
		Name:      "load",
		Usage:     "Resolve asset paths through the configured archives",
		ArgsUsage: "<asset path>...",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "model", Usage: "merge the assets into one model and summarize it"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "directory to write the raw payloads to"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() == 0 {
				return fmt.Errorf("load: at least one asset path is required")
			}
			m, err := a.manager()
			if err != nil {
				return err
			}
			defer m.Close()

			w := stdout(cmd)
			if cmd.Bool("model") {
				model, err := m.LoadModel(cmd.Args().Slice()...)
				if err != nil {
					return err
				}
				printSummary(w, summarize(model))
				return nil
			}

			for _, name := range cmd.Args().Slice() {
				data, src, err := m.LoadFrom(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%d bytes\tfrom %s\n", name, len(data), src)
				if dir := cmd.String("out"); dir != "" {
					if _, err := extractTo(dir, name, data); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
}
