// Package config holds the run configuration of the analyzer.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"watchlens/internal/database"
	"watchlens/internal/infrastructure/logging"
	"watchlens/internal/services"
	"watchlens/internal/types"
)

// Input formats
const (
	FormatHTML   = "html"
	FormatCSV    = "csv"
	FormatSQLite = "sqlite"
)

// LogConfig selects the zap encoder and level
type LogConfig struct {
	Mode  string `json:"mode" yaml:"mode"` // production (JSON) or development (console)
	Level string `json:"level" yaml:"level"`
}

// InputConfig locates the watch history
type InputConfig struct {
	Path     string `json:"path" yaml:"path"`
	Format   string `json:"format" yaml:"format"`     // html, csv or sqlite; empty infers from the extension
	Timezone string `json:"timezone" yaml:"timezone"` // IANA name for export wall times, UTC when empty
}

// OutputConfig controls what the report emitter writes
type OutputConfig struct {
	Dir         string `json:"dir" yaml:"dir"`
	Charts      bool   `json:"charts" yaml:"charts"`
	WriteCSV    bool   `json:"writeCsv" yaml:"writeCsv"`
	FontPath    string `json:"fontPath" yaml:"fontPath"`
	ChartWidth  int    `json:"chartWidth" yaml:"chartWidth"`
	ChartHeight int    `json:"chartHeight" yaml:"chartHeight"`
}

// SnapshotConfig controls the SQLite snapshot written after each run
type SnapshotConfig struct {
	Enabled  bool            `json:"enabled" yaml:"enabled"`
	Database database.Config `json:"database" yaml:"database"`
}

// TracingConfig enables the stdout span exporter
type TracingConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	File    string `json:"file" yaml:"file"` // defaults to trace.json under the output directory
}

// Config is the complete run configuration
type Config struct {
	Environment string                   `json:"environment" yaml:"environment"`
	Log         LogConfig                `json:"log" yaml:"log"`
	Input       InputConfig              `json:"input" yaml:"input"`
	Output      OutputConfig             `json:"output" yaml:"output"`
	RulesPath   string                   `json:"rulesPath" yaml:"rulesPath"` // empty uses the embedded rule set
	Analysis    services.AnalysisOptions `json:"analysis" yaml:"analysis"`
	Snapshot    SnapshotConfig           `json:"snapshot" yaml:"snapshot"`
	Tracing     TracingConfig            `json:"tracing" yaml:"tracing"`
}

// DefaultConfig returns the production configuration
func DefaultConfig() *Config {
	return &Config{
		Environment: "production",
		Log:         LogConfig{Mode: "production", Level: "info"},
		Input: InputConfig{
			Path: filepath.Join("data", "raw", "watch_history.html"),
		},
		Output: OutputConfig{
			Dir:         "output",
			Charts:      true,
			WriteCSV:    true,
			ChartWidth:  1200,
			ChartHeight: 800,
		},
		Analysis: services.DefaultAnalysisOptions(),
		Snapshot: SnapshotConfig{
			Enabled:  true,
			Database: *database.DefaultConfig(),
		},
	}
}

// DevelopmentConfig returns a configuration with console logging at debug level
func DevelopmentConfig() *Config {
	c := DefaultConfig()
	c.Environment = "development"
	c.Log = LogConfig{Mode: "development", Level: "debug"}
	c.Snapshot.Database = *database.DevelopmentConfig()
	return c
}

// TestConfig returns a configuration for tests: no charts, in-memory snapshot
func TestConfig() *Config {
	c := DefaultConfig()
	c.Environment = "test"
	c.Log = LogConfig{Mode: "development", Level: "error"}
	c.Output.Charts = false
	c.Output.WriteCSV = false
	c.Snapshot.Database = *database.TestConfig()
	return c
}

// ConfigForEnvironment returns the preset for env; unknown values get production defaults
func ConfigForEnvironment(env string) *Config {
	switch env {
	case "development":
		return DevelopmentConfig()
	case "test":
		return TestConfig()
	default:
		return DefaultConfig()
	}
}

// LoadFromFile overlays the YAML file at path onto the preset of the environment it names.
// Unknown keys are rejected.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var probe struct {
		Environment string `yaml:"environment"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	c := ConfigForEnvironment(probe.Environment)
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return c, nil
}

// LoadFromEnvironment overrides fields from WATCHLENS_* variables, then the snapshot
// database from WATCHLENS_DB_*. Malformed values are ignored.
func (c *Config) LoadFromEnvironment() error {
	if env := os.Getenv("WATCHLENS_ENVIRONMENT"); env != "" {
		c.Environment = env
	}
	if mode := os.Getenv("WATCHLENS_LOG_MODE"); mode != "" {
		c.Log.Mode = mode
	}
	if level := os.Getenv("WATCHLENS_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}

	if input := os.Getenv("WATCHLENS_INPUT"); input != "" {
		c.Input.Path = input
	}
	if format := os.Getenv("WATCHLENS_INPUT_FORMAT"); format != "" {
		c.Input.Format = format
	}
	if tz := os.Getenv("WATCHLENS_TIMEZONE"); tz != "" {
		c.Input.Timezone = tz
	}

	if dir := os.Getenv("WATCHLENS_OUTPUT_DIR"); dir != "" {
		c.Output.Dir = dir
	}
	if charts, present := database.ParseBoolEnv("WATCHLENS_CHARTS"); present {
		c.Output.Charts = charts
	}
	if writeCSV, present := database.ParseBoolEnv("WATCHLENS_WRITE_CSV"); present {
		c.Output.WriteCSV = writeCSV
	}
	if font := os.Getenv("WATCHLENS_FONT_PATH"); font != "" {
		c.Output.FontPath = font
	}

	if rules := os.Getenv("WATCHLENS_RULES"); rules != "" {
		c.RulesPath = rules
	}
	if workers := os.Getenv("WATCHLENS_WORKERS"); workers != "" {
		if val, err := strconv.Atoi(workers); err == nil && val > 0 {
			c.Analysis.Workers = val
		}
	}
	if g := os.Getenv("WATCHLENS_GRANULARITY"); g != "" {
		c.Analysis.Granularity = types.Granularity(g)
	}

	if snapshot, present := database.ParseBoolEnv("WATCHLENS_SNAPSHOT"); present {
		c.Snapshot.Enabled = snapshot
	}
	if tracing, present := database.ParseBoolEnv("WATCHLENS_TRACING"); present {
		c.Tracing.Enabled = tracing
	}
	if file := os.Getenv("WATCHLENS_TRACE_FILE"); file != "" {
		c.Tracing.File = file
	}

	return c.Snapshot.Database.LoadFromEnvironment()
}

var (
	validEnvironments = map[string]bool{"development": true, "test": true, "production": true}
	validLogModes     = map[string]bool{"development": true, "production": true}
	validFormats      = map[string]bool{FormatHTML: true, FormatCSV: true, FormatSQLite: true}
)

// Validate checks the configuration. The snapshot database is validated only when
// it will be opened.
func (c *Config) Validate() error {
	if !validEnvironments[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}
	if !validLogModes[c.Log.Mode] {
		return fmt.Errorf("invalid log mode: %s", c.Log.Mode)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}

	format, err := c.InputFormat()
	if err != nil {
		return err
	}
	if c.Input.Path == "" && format != FormatSQLite {
		return fmt.Errorf("input path cannot be empty")
	}
	if _, err := c.Location(); err != nil {
		return err
	}

	if c.Output.Dir == "" {
		return fmt.Errorf("output directory cannot be empty")
	}
	if c.Output.Charts && (c.Output.ChartWidth <= 0 || c.Output.ChartHeight <= 0) {
		return fmt.Errorf("chart size must be positive, got %dx%d", c.Output.ChartWidth, c.Output.ChartHeight)
	}

	if err := c.Analysis.Validate(); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}

	if c.Snapshot.Enabled || format == FormatSQLite {
		if err := c.Snapshot.Database.Validate(); err != nil {
			return fmt.Errorf("snapshot database: %w", err)
		}
	}
	return nil
}

// InputFormat returns the configured format, or the one implied by the input extension
func (c *Config) InputFormat() (string, error) {
	if c.Input.Format != "" {
		f := strings.ToLower(c.Input.Format)
		if !validFormats[f] {
			return "", fmt.Errorf("invalid input format: %s", c.Input.Format)
		}
		return f, nil
	}

	switch strings.ToLower(filepath.Ext(c.Input.Path)) {
	case ".html", ".htm":
		return FormatHTML, nil
	case ".csv":
		return FormatCSV, nil
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite, nil
	}
	return "", fmt.Errorf("cannot infer input format from %q; set input.format", c.Input.Path)
}

// Location returns the zone export wall times are read in
func (c *Config) Location() (*time.Location, error) {
	if c.Input.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Input.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Input.Timezone, err)
	}
	return loc, nil
}

// StatsDir is where JSON and CSV reports go
func (c *Config) StatsDir() string {
	return filepath.Join(c.Output.Dir, "stats")
}

// FiguresDir is where charts go
func (c *Config) FiguresDir() string {
	return filepath.Join(c.Output.Dir, "figures")
}

// ProcessedCSVPath is where the normalized history table is written
func (c *Config) ProcessedCSVPath() string {
	return filepath.Join(c.Output.Dir, "processed", "youtube_watch_history.csv")
}

// TraceFile returns the span output path
func (c *Config) TraceFile() string {
	if c.Tracing.File != "" {
		return c.Tracing.File
	}
	return filepath.Join(c.Output.Dir, "trace.json")
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	clone := *c
	clone.Analysis.RollingWindows = append([]int(nil), c.Analysis.RollingWindows...)
	return &clone
}

// IsDevelopment returns true if the environment is set to development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsTest returns true if the environment is set to test
func (c *Config) IsTest() bool {
	return c.Environment == "test"
}
