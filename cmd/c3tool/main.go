// Command c3tool inspects and converts C3 models and the WDF and DNP
// archives that ship them.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/Faultbox/c3kit/internal/assets"
	"github.com/Faultbox/c3kit/internal/config"
	"github.com/Faultbox/c3kit/internal/logger"
)

// app carries state set up by the root command's Before hook.
type app struct {
	cfg *config.Config
	log *zap.Logger
}

func newApp() *cli.Command {
	a := &app{}
	return &cli.Command{
		Name:  "c3tool",
		Usage: "Inspect C3 models and WDF/DNP archives",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to c3kit.yaml"},
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
			&cli.StringFlag{Name: "log-file", Usage: "also write logs to this file"},
			&cli.StringSliceFlag{Name: "wdf", Usage: "WDF archive to search (repeatable, replaces configured list)"},
			&cli.StringSliceFlag{Name: "dnp", Usage: "DNP archive to search (repeatable, replaces configured list)"},
			&cli.StringFlag{Name: "root", Usage: "directory searched for loose files"},
		},
		Before: a.before,
		After: func(ctx context.Context, cmd *cli.Command) error {
			logger.Sync()
			return nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			hashCmd(),
			a.infoCmd(),
			a.dumpCmd(),
			a.convertCmd(),
			a.sampleCmd(),
			a.wdfCmd(),
			a.dnpCmd(),
			a.loadCmd(),
		},
	}
}

func (a *app) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := config.Load(config.Overrides{
		ConfigPath: cmd.String("config"),
		Debug:      cmd.Bool("debug"),
		LogFile:    cmd.String("log-file"),
		WDF:        cmd.StringSlice("wdf"),
		DNP:        cmd.StringSlice("dnp"),
		Root:       cmd.String("root"),
	})
	if err != nil {
		return ctx, err
	}

	fileCfg := logger.FileConfig{}
	if cfg.Logging.LogFile != "" {
		// Zero rotation settings keep the logger defaults.
		fileCfg = logger.DefaultFileConfig(cfg.Logging.LogFile)
		if cfg.Logging.MaxSizeMB > 0 {
			fileCfg.MaxSizeMB = cfg.Logging.MaxSizeMB
		}
		if cfg.Logging.MaxBackups > 0 {
			fileCfg.MaxBackups = cfg.Logging.MaxBackups
		}
		if cfg.Logging.MaxAgeDays > 0 {
			fileCfg.MaxAgeDays = cfg.Logging.MaxAgeDays
		}
		fileCfg.Compress = cfg.Logging.Compress
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, fileCfg, true); err != nil {
		return ctx, err
	}

	a.cfg = cfg
	a.log = logger.Named("c3tool")
	return ctx, nil
}

// manager opens the configured archives.
func (a *app) manager() (*assets.Manager, error) {
	m, err := assets.Open(a.cfg)
	if err != nil {
		return nil, err
	}
	a.log.Debug("asset manager ready",
		zap.Strings("wdf", a.cfg.Archives.WDF),
		zap.Strings("dnp", a.cfg.Archives.DNP),
		zap.Bool("filesystem", a.cfg.Archives.Filesystem))
	return m, nil
}

func stdout(cmd *cli.Command) io.Writer {
	return cmd.Root().Writer
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
