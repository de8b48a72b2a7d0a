// Package config loads digctl configuration from a YAML file.
//
// The file is named by the --config flag or the DIGKIT_CONFIG environment
// variable. Without either, Default is used as is. Values in the file
// overlay the defaults; anything the file omits keeps its default.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/joshuapare/digkit/dig/charset"
	"github.com/joshuapare/digkit/pkg/types"
)

// EnvVar names the environment variable Load reads.
const EnvVar = "DIGKIT_CONFIG"

// Limit profiles.
const (
	ProfileDefault = "default"
	ProfileStrict  = "strict"
)

// KnownExaminers lists the examiner names the CLI can run, in default order.
var KnownExaminers = []string{"blank", "compressed", "regf"}

// Config is the complete digctl configuration.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Excavation ExcavationConfig `yaml:"excavation"`
	Limits     LimitsConfig     `yaml:"limits"`
	Output     OutputConfig     `yaml:"output"`

	// Examiners lists examiners to run, in priority order.
	Examiners []string `yaml:"examiners"`
}

// LogConfig configures the CLI logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	// Default: warn
	Level string `yaml:"level"`

	// Format is text or json.
	// Default: text
	Format string `yaml:"format"`

	// File receives log output. Empty means stderr. ${VAR} is expanded.
	File string `yaml:"file"`
}

// ExcavationConfig tunes the artifact graph.
type ExcavationConfig struct {
	// MinBranchWidth is the smallest interval-tree node that still splits.
	// Default: 65536
	MinBranchWidth int `yaml:"min_branch_width"`

	// MaxGapPasses bounds the examine/gap-fill rounds.
	// Default: 64
	MaxGapPasses int `yaml:"max_gap_passes"`

	// AllowDuplicateTopLevel reuses an artifact when the same image is
	// ingested twice instead of failing.
	AllowDuplicateTopLevel bool `yaml:"allow_duplicate_top_level"`

	// Charset names the character table for top-level images.
	// Default: ascii
	Charset string `yaml:"charset"`

	// RecordSize splits images into fixed geometry records (sectors).
	// Zero registers none.
	RecordSize int `yaml:"record_size"`
}

// LimitsConfig bounds examiner resource usage.
type LimitsConfig struct {
	// Profile selects the base limits: default or strict.
	Profile string `yaml:"profile"`

	// MaxDecompressedSize overrides the profile's ceiling when positive.
	MaxDecompressedSize int64 `yaml:"max_decompressed_size"`

	// MaxPointerChain overrides the profile's pointer bound when positive.
	MaxPointerChain int `yaml:"max_pointer_chain"`
}

// OutputConfig configures printing.
type OutputConfig struct {
	// Format is text or json.
	// Default: text
	Format string `yaml:"format"`

	// Indent is the number of spaces per tree level.
	// Default: 2
	Indent int `yaml:"indent"`

	// ShowNotes prints artifact notes.
	// Default: true
	ShowNotes bool `yaml:"show_notes"`

	// ShowDigests prints full digests instead of short ones.
	ShowDigests bool `yaml:"show_digests"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Excavation: ExcavationConfig{
			MinBranchWidth: types.DefaultMinBranchWidth,
			MaxGapPasses:   types.DefaultMaxGapPasses,
			Charset:        "ascii",
		},
		Limits: LimitsConfig{
			Profile: ProfileDefault,
		},
		Output: OutputConfig{
			Format:    "text",
			Indent:    2,
			ShowNotes: true,
		},
		Examiners: slices.Clone(KnownExaminers),
	}
}

// Load loads the file named by DIGKIT_CONFIG.
func Load() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your digkit.yaml, or use --config", EnvVar)
	}
	return LoadFile(path)
}

// LoadFile loads path over the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.Log.File = os.ExpandEnv(cfg.Log.File)
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if c.Excavation.MinBranchWidth < 0 {
		errs = append(errs, fmt.Errorf("excavation.min_branch_width must not be negative"))
	}
	if c.Excavation.MaxGapPasses < 0 {
		errs = append(errs, fmt.Errorf("excavation.max_gap_passes must not be negative"))
	}
	if c.Excavation.RecordSize < 0 {
		errs = append(errs, fmt.Errorf("excavation.record_size must not be negative"))
	}
	if _, err := charset.ByName(c.Excavation.Charset); err != nil {
		errs = append(errs, fmt.Errorf("excavation.charset: %w", err))
	}
	if c.Limits.Profile != ProfileDefault && c.Limits.Profile != ProfileStrict {
		errs = append(errs, fmt.Errorf("limits.profile must be %s or %s, got %q",
			ProfileDefault, ProfileStrict, c.Limits.Profile))
	}
	if c.Output.Format != "text" && c.Output.Format != "json" {
		errs = append(errs, fmt.Errorf("output.format must be text or json, got %q", c.Output.Format))
	}
	for _, name := range c.Examiners {
		if !slices.Contains(KnownExaminers, name) {
			errs = append(errs, fmt.Errorf("unknown examiner %q (known: %v)", name, KnownExaminers))
		}
	}

	return errors.Join(errs...)
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// ResourceLimits returns the resource limits the configuration selects.
func (c *Config) ResourceLimits() types.Limits {
	lim := types.DefaultLimits()
	if c.Limits.Profile == ProfileStrict {
		lim = types.StrictLimits()
	}
	if c.Limits.MaxDecompressedSize > 0 {
		lim.MaxDecompressedSize = c.Limits.MaxDecompressedSize
	}
	if c.Limits.MaxPointerChain > 0 {
		lim.MaxPointerChain = c.Limits.MaxPointerChain
	}
	return lim
}

// Options converts the configuration to graph options.
func (c *Config) Options(log *slog.Logger) types.Options {
	return types.Options{
		MinBranchWidth:         c.Excavation.MinBranchWidth,
		AllowDuplicateTopLevel: c.Excavation.AllowDuplicateTopLevel,
		MaxGapPasses:           c.Excavation.MaxGapPasses,
		Limits:                 c.ResourceLimits(),
		Logger:                 log,
	}.Normalize()
}
