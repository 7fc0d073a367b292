// Package config handles scenetool configuration loading and management.
package config

import (
	"fmt"

	"github.com/link270/fbx-analyzer/internal/store"
	"github.com/link270/fbx-analyzer/internal/validation"
)

// Config holds all scenetool settings.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Export  ExportConfig  `yaml:"export"`
	History HistoryConfig `yaml:"history"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
	Format  string `yaml:"format"` // "console" or "json", file output only
}

// ExportConfig holds save-as settings.
type ExportConfig struct {
	ForceRebuild       bool            `yaml:"force_rebuild"`
	Diagnostics        string          `yaml:"diagnostics"`        // Diagnostics file, empty to skip
	DiagnosticsFormat  string          `yaml:"diagnostics_format"` // "yaml" or "json", empty to follow the extension
	CanonicalOverrides CanonicalConfig `yaml:"canonical"`
	// CanonicalDefaults validates against the built-in defaults instead of
	// the source scene's own settings. Canonical overrides still apply.
	CanonicalDefaults bool `yaml:"canonical_defaults"`
}

// CanonicalConfig overrides individual canonical settings. Empty fields
// keep the value captured from the source scene.
type CanonicalConfig struct {
	Axis      string  `yaml:"axis"`      // maya-y-up, maya-z-up, directx...
	Unit      string  `yaml:"unit"`      // mm, cm, m, inch
	TimeMode  string  `yaml:"time_mode"` // frames24 ... frames120, custom
	FrameRate float64 `yaml:"frame_rate"`
}

// HistoryConfig holds the export history database settings.
type HistoryConfig struct {
	Path string `yaml:"path"` // sqlite file, empty disables history
}

// MetricsConfig holds telemetry settings.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // node-exporter textfile, empty disables
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
			Format:  "console",
		},
		Export: ExportConfig{
			ForceRebuild:      false,
			Diagnostics:       "",
			DiagnosticsFormat: "",
		},
		History: HistoryConfig{
			Path: "",
		},
	}
}

// Canonical returns the overrides merged over the settings captured from
// each source scene. Only the overridden fields are set, unless
// CanonicalDefaults asks for the built-in defaults.
func (e ExportConfig) Canonical() (*validation.Canonical, error) {
	c := &validation.Canonical{}
	if e.CanonicalDefaults {
		c = validation.DefaultCanonical()
	}
	o := e.CanonicalOverrides
	if o.Axis != "" {
		axis, err := store.ParseAxisSystem(o.Axis)
		if err != nil {
			return nil, fmt.Errorf("export.canonical.axis: %w", err)
		}
		c.Axis = &axis
	}
	if o.Unit != "" {
		unit, err := store.ParseSystemUnit(o.Unit)
		if err != nil {
			return nil, fmt.Errorf("export.canonical.unit: %w", err)
		}
		c.Unit = &unit
	}
	if o.TimeMode != "" {
		mode, err := store.ParseTimeMode(o.TimeMode)
		if err != nil {
			return nil, fmt.Errorf("export.canonical.time_mode: %w", err)
		}
		c.TimeMode = &mode
		c.FrameRate = mode.FrameRate()
	}
	if o.FrameRate != 0 {
		if o.FrameRate < 0 {
			return nil, fmt.Errorf("export.canonical.frame_rate: must be positive, got %v", o.FrameRate)
		}
		if c.TimeMode == nil || *c.TimeMode != store.TimeModeCustom {
			return nil, fmt.Errorf("export.canonical.frame_rate: requires time_mode custom")
		}
		c.FrameRate = o.FrameRate
	}
	if c.Custom() && c.FrameRate == 0 {
		return nil, fmt.Errorf("export.canonical.frame_rate: required for time_mode custom")
	}
	return c, nil
}
