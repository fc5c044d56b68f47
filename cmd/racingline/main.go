package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/bcdxn/racingline/internal/config"
	"github.com/bcdxn/racingline/internal/domain"
	"github.com/bcdxn/racingline/internal/laps"
	"github.com/bcdxn/racingline/internal/logger"
	"github.com/bcdxn/racingline/internal/strategy"
	"github.com/bcdxn/racingline/internal/telemetry"
	"github.com/bcdxn/racingline/internal/tui"
)

var (
	configPath string
	dataDir    string
	debug      bool
)

func init() {
	flag.StringVar(&configPath, "c", "", "config path")
	flag.StringVar(&dataDir, "data", "", "directory searched for lap CSV files (overrides data_dir)")
	flag.BoolVar(&debug, "debug", false, "log at debug level")
	flag.Parse()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	level, _ := cfg.Level()
	if debug {
		level = slog.LevelDebug
	}
	l, f, err := logger.New(cfg.LogFile, level)
	if err != nil {
		return err
	}
	defer f.Close()

	// explicit sources win over discovery
	sources := cfg.LapSources()
	if len(sources) == 0 {
		if sources, err = laps.Discover(cfg.DataDir); err != nil {
			return err
		}
	}
	if len(sources) == 0 {
		return fmt.Errorf("no lap CSV files found in %s", cfg.DataDir)
	}

	table, err := laps.Load(ctx, sources, laps.WithLogger(l))
	if err != nil {
		return err
	}

	opts := []tui.DashboardOption{
		tui.WithContext(ctx),
		tui.WithLogger(l),
		tui.WithProjection(strategy.Projection{
			Compound:       domain.TireCompoundMedium,
			Temperature:    cfg.Projection.Temperature,
			Tolerance:      cfg.Projection.Tolerance,
			MaxStintLength: cfg.Projection.MaxStintLength,
		}),
	}
	if cfg.Telemetry.Enabled {
		opts = append(opts, tui.WithTelemetry(telemetry.New(
			telemetry.WithHTTPBaseURL(cfg.Telemetry.HTTPBaseURL),
			telemetry.WithWSBaseURL(cfg.Telemetry.WSBaseURL),
			telemetry.WithTimeout(cfg.Telemetry.Timeout),
			telemetry.WithLogger(l),
		)))
	}

	if _, err := tui.New(table, opts...).Run(); err != nil {
		l.Error("tui exited with error", "err", err)
		return err
	}
	l.Debug("tui exited")
	return nil
}
