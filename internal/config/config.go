// Package config provides configuration loading and defaults for the
// sigward daemon.
//
// Configuration is loaded from a TOML file in the data directory. The
// package handles logging, stack dump retention, crash reporting, and
// control endpoint settings with sensible defaults. A file watcher applies
// log-level changes live without a restart.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"tools.zach/dev/sigward/internal/atomicfile"
	"tools.zach/dev/sigward/internal/paths"
)

// CurrentVersion is the config schema version this build reads and writes.
const CurrentVersion = 1

// ///////////////////////////////////////////////
// Configuration Types
// ///////////////////////////////////////////////

// Config represents the top-level application configuration.
type Config struct {
	// Version is the config schema version.
	Version int `toml:"version"`
	// Log holds logging settings.
	Log LogConfig `toml:"log"`
	// Dumps holds stack dump retention settings.
	Dumps DumpsConfig `toml:"dumps"`
	// Report holds crash report upload settings.
	Report ReportConfig `toml:"report"`
	// Control holds runtime control endpoint settings.
	Control ControlConfig `toml:"control"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error, fail).
	Level string `toml:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation.
	MaxSizeMB int `toml:"max_size_mb"`
	// MaxBackups is the number of rotated log files kept.
	MaxBackups int `toml:"max_backups"`
}

// DumpsConfig holds stack dump retention settings.
type DumpsConfig struct {
	// MaxFiles is the number of stack dump files kept in the dump directory.
	MaxFiles int `toml:"max_files"`
}

// ReportConfig holds crash report upload settings.
type ReportConfig struct {
	// Enabled turns on crash report upload on the start after a crash.
	Enabled bool `toml:"enabled"`
	// URL is the endpoint receiving the JSON crash report via POST.
	URL string `toml:"url"`
	// TimeoutSeconds is the per-attempt HTTP timeout.
	TimeoutSeconds int `toml:"timeout_seconds"`
	// LogTailLines is the number of log lines attached to the report.
	LogTailLines int `toml:"log_tail_lines"`
}

// ControlConfig holds runtime control endpoint settings.
type ControlConfig struct {
	// Enabled serves the control endpoint (roll/dump/status/stop).
	Enabled bool `toml:"enabled"`
}

// ///////////////////////////////////////////////
// Default Configuration
// ///////////////////////////////////////////////

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Dumps: DumpsConfig{
			MaxFiles: 10,
		},
		Report: ReportConfig{
			Enabled:        false,
			TimeoutSeconds: 10,
			LogTailLines:   200,
		},
		Control: ControlConfig{
			Enabled: true,
		},
	}
}

// ///////////////////////////////////////////////
// Loading and Saving
// ///////////////////////////////////////////////

// Load reads and parses the configuration file from dataDir/config.toml.
// If the file doesn't exist, returns DefaultConfig. Unknown keys are
// tolerated; missing keys keep their defaults.
func Load(dataDir string) (*Config, error) {
	path := filepath.Join(dataDir, paths.ConfigFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Save writes the config to disk as TOML using atomic file write.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return atomicfile.Write(path, buf.Bytes(), 0o644)
}

// SeedDefault writes the embedded default config to dataDir/config.toml if
// no config file exists yet. The raw bytes come from the root package embed
// so first-run files keep their comments.
func SeedDefault(dataDir string, defaultTOML []byte) error {
	path := filepath.Join(dataDir, paths.ConfigFile)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return atomicfile.Write(path, defaultTOML, 0o644)
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

// validLogLevels is the set of accepted log level strings.
var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true, "fail": true,
}

// Validate checks that all configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be trace, debug, info, warn, error, or fail", c.Log.Level)
	}

	if c.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("log.max_size_mb must be > 0, got %d", c.Log.MaxSizeMB)
	}

	if c.Log.MaxBackups < 0 {
		return fmt.Errorf("log.max_backups must be >= 0, got %d", c.Log.MaxBackups)
	}

	if c.Dumps.MaxFiles < 0 {
		return fmt.Errorf("dumps.max_files must be >= 0, got %d", c.Dumps.MaxFiles)
	}

	if c.Report.Enabled && c.Report.URL == "" {
		return fmt.Errorf("report.enabled requires report.url")
	}

	if c.Report.TimeoutSeconds <= 0 {
		return fmt.Errorf("report.timeout_seconds must be > 0, got %d", c.Report.TimeoutSeconds)
	}

	if c.Report.LogTailLines < 0 {
		return fmt.Errorf("report.log_tail_lines must be >= 0, got %d", c.Report.LogTailLines)
	}

	return nil
}
