// Package config reads the dashboard configuration from a YAML file. Every field is optional;
// anything left out of the file takes its value from Default.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v2"

	"github.com/bcdxn/racingline/internal/laps"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	DataDir    string           `yaml:"data_dir"`
	Sources    []SourceConfig   `yaml:"sources"`
	LogFile    string           `yaml:"log_file"`
	LogLevel   string           `yaml:"log_level"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Projection ProjectionConfig `yaml:"projection"`
}

// SourceConfig names a lap CSV explicitly. Season and GrandPrix tag rows whose file carries no
// such column.
type SourceConfig struct {
	Path      string `yaml:"path"`
	Season    int    `yaml:"season"`
	GrandPrix string `yaml:"grand_prix"`
}

type TelemetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	HTTPBaseURL string        `yaml:"http_base_url"`
	WSBaseURL   string        `yaml:"ws_base_url"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ProjectionConfig holds the stint projection defaults. A zero value in the file is treated as
// unset.
type ProjectionConfig struct {
	Temperature    float64 `yaml:"temperature"`
	Tolerance      float64 `yaml:"tolerance"`
	MaxStintLength int     `yaml:"max_stint_length"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		DataDir:  "data",
		LogFile:  "racingline.log",
		LogLevel: "info",
		Telemetry: TelemetryConfig{
			HTTPBaseURL: "http://localhost:3000",
			WSBaseURL:   "ws://localhost:3000",
			Timeout:     10 * time.Second,
		},
		Projection: ProjectionConfig{
			Temperature:    30,
			Tolerance:      2,
			MaxStintLength: 30,
		},
	}
}

// Load reads the YAML file at path and fills every unset field from Default. An empty path yields
// the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("error opening config: %w", err)
	}
	defer f.Close()

	var c Config
	if err := yaml.NewDecoder(f).Decode(&c); err != nil {
		return Config{}, fmt.Errorf("error decoding config %s: %w", path, err)
	}
	if err := mergo.Merge(&c, Default()); err != nil {
		return Config{}, fmt.Errorf("error applying config defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	if c.Projection.Tolerance < 0 {
		return fmt.Errorf("%w: negative projection tolerance", ErrInvalidConfig)
	}
	if c.Projection.MaxStintLength < 0 {
		return fmt.Errorf("%w: negative max stint length", ErrInvalidConfig)
	}
	if c.Telemetry.Timeout < 0 {
		return fmt.Errorf("%w: negative telemetry timeout", ErrInvalidConfig)
	}
	for i, s := range c.Sources {
		if strings.TrimSpace(s.Path) == "" {
			return fmt.Errorf("%w: source %d has no path", ErrInvalidConfig, i)
		}
	}
	return nil
}

// Level parses LogLevel (debug, info, warn or error).
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(c.LogLevel))
	return l, err
}

// LapSources converts the configured sources for the lap loader. Relative paths are resolved
// against DataDir.
func (c Config) LapSources() []laps.Source {
	out := make([]laps.Source, 0, len(c.Sources))
	for _, s := range c.Sources {
		p := s.Path
		if !filepath.IsAbs(p) {
			p = filepath.Join(c.DataDir, p)
		}
		out = append(out, laps.Source{Path: p, Season: s.Season, GrandPrix: s.GrandPrix})
	}
	return out
}
