// Package config provides the conversion profile for the converter.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"spopconv/internal/normalizer"
	"spopconv/internal/serializer"
	"spopconv/internal/spop"
)

// Configuration validation errors.
var (
	ErrMissingIDField        = errors.New("source.id_field is required")
	ErrMissingParentField    = errors.New("source.parent_field is required")
	ErrMissingBirthField     = errors.New("source.birth_field is required")
	ErrParentNotSetField     = errors.New("source.parent_field must be listed in source.set_fields")
	ErrMissingSetDelimiter   = errors.New("source.set_delimiter is required")
	ErrMissingNoAncestor     = errors.New("source.no_ancestor_token is required")
	ErrMissingSuffix         = errors.New("output.suffix is required")
	ErrInvalidLogLevel       = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat      = errors.New("logging.format must be 'text' or 'json'")
	ErrInvalidDebounce       = errors.New("watch.debounce_ms must be non-negative")
	ErrMissingWatchPattern   = errors.New("watch.pattern is required")
	ErrInvalidRescan         = errors.New("watch.rescan is not a valid cron expression")
	ErrInvalidHistoryEntries = errors.New("ledger.history must be at least 1")
	ErrInvalidFetchAttempts  = errors.New("fetch.max_attempts must be at least 1")
	ErrInvalidFetchTimeout   = errors.New("fetch.timeout_sec must be at least 1")
	ErrInvalidFetchSize      = errors.New("fetch.max_size_mb must be at least 1")
	ErrInvalidBackoff        = errors.New("fetch.backoff_multiplier must be at least 1")
)

// Config represents the complete conversion profile.
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
	Watch   WatchConfig   `yaml:"watch"`
	Ledger  LedgerConfig  `yaml:"ledger"`
	Fetch   FetchConfig   `yaml:"fetch"`
}

// SourceConfig describes the layout of the input population file.
type SourceConfig struct {
	IDField         string   `yaml:"id_field"`
	ParentField     string   `yaml:"parent_field"`
	BirthField      string   `yaml:"birth_field"`
	SetDelimiter    string   `yaml:"set_delimiter"`
	NoAncestorToken string   `yaml:"no_ancestor_token"`
	MissingToken    string   `yaml:"missing_token"`
	SetFields       []string `yaml:"set_fields"`
	StrictColumns   bool     `yaml:"strict_columns"`
}

// OutputConfig defines output behavior.
type OutputConfig struct {
	Format          string `yaml:"format"`
	Suffix          string `yaml:"suffix"`
	SourceExtension string `yaml:"source_extension"`
	Minimal         bool   `yaml:"minimal"`
	PrettyPrint     bool   `yaml:"pretty_print"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// WatchConfig tunes directory watch mode. Rescan is an optional cron
// expression for periodic directory scans on filesystems that do not
// deliver change events.
type WatchConfig struct {
	Pattern    string `yaml:"pattern"`
	Rescan     string `yaml:"rescan"`
	DebounceMs int    `yaml:"debounce_ms"`
}

// LedgerConfig configures the run history database. An empty path disables it.
type LedgerConfig struct {
	Path    string `yaml:"path"`
	History int    `yaml:"history"`
}

// FetchConfig defines how remote input files are downloaded.
type FetchConfig struct {
	Dir               string  `yaml:"dir"`
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialDelayMs    int     `yaml:"initial_delay_ms"`
	MaxDelayMs        int     `yaml:"max_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	TimeoutSec        int     `yaml:"timeout_sec"`
	MaxSizeMb         int     `yaml:"max_size_mb"`
}

// Default returns the profile for Avida's default .spop layout.
func Default() *Config {
	opts := spop.DefaultOptions()
	fields := normalizer.DefaultFields()

	return &Config{
		Source: SourceConfig{
			IDField:         fields.ID,
			ParentField:     fields.Parents,
			BirthField:      fields.Birth,
			SetDelimiter:    opts.SetDelimiter,
			NoAncestorToken: fields.NoAncestorToken,
			MissingToken:    opts.MissingToken,
			SetFields:       slices.Clone(opts.SetFields),
		},
		Output: OutputConfig{
			Format:          serializer.FormatCSV,
			Suffix:          "_standard-phylogeny",
			SourceExtension: ".spop",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Watch: WatchConfig{
			Pattern:    "*.spop",
			DebounceMs: 500,
		},
		Ledger: LedgerConfig{
			History: 10,
		},
		Fetch: FetchConfig{
			Dir:               ".",
			MaxAttempts:       3,
			InitialDelayMs:    500,
			MaxDelayMs:        30000,
			BackoffMultiplier: 2.0,
			TimeoutSec:        30,
			MaxSizeMb:         512,
		},
	}
}

// LoadConfig loads configuration from a YAML file. Keys absent from the file
// keep their default values.
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to YAML file.
func (c *Config) SaveConfig(filepath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	src := c.Source

	if src.IDField == "" {
		return ErrMissingIDField
	}

	if src.ParentField == "" {
		return ErrMissingParentField
	}

	if src.BirthField == "" {
		return ErrMissingBirthField
	}

	if !slices.Contains(src.SetFields, src.ParentField) {
		return ErrParentNotSetField
	}

	if src.SetDelimiter == "" {
		return ErrMissingSetDelimiter
	}

	if src.NoAncestorToken == "" {
		return ErrMissingNoAncestor
	}

	// Validate output config
	if err := serializer.Validate(c.Output.Format); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}

	if c.Output.Suffix == "" {
		return ErrMissingSuffix
	}

	// Validate logging config
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	if c.Watch.DebounceMs < 0 {
		return ErrInvalidDebounce
	}

	if c.Watch.Pattern == "" {
		return ErrMissingWatchPattern
	}

	if c.Watch.Rescan != "" {
		if _, err := cron.ParseStandard(c.Watch.Rescan); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRescan, err)
		}
	}

	if c.Ledger.History < 1 {
		return ErrInvalidHistoryEntries
	}

	// Validate fetch config
	if c.Fetch.MaxAttempts < 1 {
		return ErrInvalidFetchAttempts
	}

	if c.Fetch.TimeoutSec < 1 {
		return ErrInvalidFetchTimeout
	}

	if c.Fetch.MaxSizeMb < 1 {
		return ErrInvalidFetchSize
	}

	if c.Fetch.BackoffMultiplier < 1 {
		return ErrInvalidBackoff
	}

	return nil
}

// ReaderOptions returns the source reader settings.
func (c *Config) ReaderOptions() spop.Options {
	return spop.Options{
		MissingToken: c.Source.MissingToken,
		SetDelimiter: c.Source.SetDelimiter,
		SetFields:    slices.Clone(c.Source.SetFields),
		Strict:       c.Source.StrictColumns,
	}
}

// Fields returns the source field names the standard columns derive from.
func (c *Config) Fields() normalizer.Fields {
	return normalizer.Fields{
		ID:              c.Source.IDField,
		Parents:         c.Source.ParentField,
		Birth:           c.Source.BirthField,
		NoAncestorToken: c.Source.NoAncestorToken,
	}
}

// SerializerOptions returns the encoder settings.
func (c *Config) SerializerOptions() serializer.Options {
	return serializer.Options{PrettyPrint: c.Output.PrettyPrint}
}

// GetDebounce returns the watch debounce duration.
func (w *WatchConfig) GetDebounce() time.Duration {
	return time.Duration(w.DebounceMs) * time.Millisecond
}

// GetRetryDelay returns the wait before the given attempt (1-based) using
// exponential backoff capped at MaxDelayMs.
func (f *FetchConfig) GetRetryDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delayMs := float64(f.InitialDelayMs)
	for i := 2; i < attempt; i++ {
		delayMs *= f.BackoffMultiplier
	}

	// Cap at max delay
	if int(delayMs) > f.MaxDelayMs {
		delayMs = float64(f.MaxDelayMs)
	}

	return time.Duration(int(delayMs)) * time.Millisecond
}

// GetTimeout returns the per-request timeout.
func (f *FetchConfig) GetTimeout() time.Duration {
	return time.Duration(f.TimeoutSec) * time.Second
}

// MaxBytes returns the download size limit in bytes.
func (f *FetchConfig) MaxBytes() int64 {
	return int64(f.MaxSizeMb) * 1024 * 1024
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Format: %s, Minimal: %t, SetFields: %v, Ledger: %q}",
		c.Output.Format,
		c.Output.Minimal,
		c.Source.SetFields,
		c.Ledger.Path,
	)
}
