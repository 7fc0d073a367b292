package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/link270/fbx-analyzer/internal/store"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("expected console log format, got %s", cfg.Logging.Format)
	}
	if cfg.Export.ForceRebuild {
		t.Error("expected force_rebuild to be false by default")
	}
	if cfg.Export.CanonicalDefaults {
		t.Error("expected canonical_defaults to be false by default")
	}
	if cfg.History.Path != "" {
		t.Errorf("expected history disabled by default, got %s", cfg.History.Path)
	}
	if cfg.Metrics.Textfile != "" {
		t.Errorf("expected metrics disabled by default, got %s", cfg.Metrics.Textfile)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
logging:
  level: "debug"
  log_file: "scenetool.log"
  format: json

export:
  force_rebuild: true
  diagnostics: "out/diagnostics.json"
  canonical:
    axis: maya-z-up
    unit: m
    time_mode: frames24

history:
  path: "history.db"

metrics:
  textfile: "/var/lib/node_exporter/scenetool.prom"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "scenetool.log" {
		t.Errorf("expected log file 'scenetool.log', got %s", cfg.Logging.LogFile)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected json format, got %s", cfg.Logging.Format)
	}
	if !cfg.Export.ForceRebuild {
		t.Error("expected force_rebuild to be true")
	}
	if cfg.Export.Diagnostics != "out/diagnostics.json" {
		t.Errorf("expected diagnostics path, got %s", cfg.Export.Diagnostics)
	}
	if cfg.Export.CanonicalOverrides.Unit != "m" {
		t.Errorf("expected unit 'm', got %s", cfg.Export.CanonicalOverrides.Unit)
	}
	if cfg.History.Path != "history.db" {
		t.Errorf("expected history path 'history.db', got %s", cfg.History.Path)
	}
	if cfg.Metrics.Textfile != "/var/lib/node_exporter/scenetool.prom" {
		t.Errorf("unexpected metrics textfile %s", cfg.Metrics.Textfile)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", "export:\n  force_rebuild: not a bool\n  invalid syntax here\n"},
		{"axis", "export:\n  canonical:\n    axis: sideways\n"},
		{"rate without custom", "export:\n  canonical:\n    frame_rate: 12\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "invalid.yaml")
			if err := os.WriteFile(configPath, []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}
			if err := loadFromFile(Default(), configPath); err == nil {
				t.Error("expected error loading invalid config, got nil")
			}
		})
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestCanonical(t *testing.T) {
	tests := []struct {
		name    string
		export  ExportConfig
		verify  func(t *testing.T, e ExportConfig)
		wantErr bool
	}{
		{
			name:   "no overrides",
			export: ExportConfig{},
			verify: func(t *testing.T, e ExportConfig) {
				c, _ := e.Canonical()
				if c.Axis != nil || c.Unit != nil || c.TimeMode != nil || c.TimeSpan != nil {
					t.Errorf("expected nothing set, got %+v", c)
				}
			},
		},
		{
			name:   "defaults",
			export: ExportConfig{CanonicalDefaults: true},
			verify: func(t *testing.T, e ExportConfig) {
				c, _ := e.Canonical()
				if c.Axis == nil || *c.Axis != store.AxisMayaYUp {
					t.Errorf("expected maya-y-up axis, got %v", c.Axis)
				}
				if c.Unit == nil || *c.Unit != store.UnitCentimeter {
					t.Errorf("expected centimeters, got %v", c.Unit)
				}
				if c.TimeMode == nil || *c.TimeMode != store.TimeModeFrames30 {
					t.Errorf("expected frames30, got %v", c.TimeMode)
				}
				if c.FrameRate != 30 {
					t.Errorf("expected frame rate 30, got %v", c.FrameRate)
				}
			},
		},
		{
			name:   "overrides on defaults",
			export: ExportConfig{CanonicalDefaults: true, CanonicalOverrides: CanonicalConfig{Unit: "m", TimeMode: "pal"}},
			verify: func(t *testing.T, e ExportConfig) {
				c, _ := e.Canonical()
				if *c.Unit != store.UnitMeter {
					t.Errorf("expected meters, got %v", *c.Unit)
				}
				if *c.TimeMode != store.TimeModePAL || c.FrameRate != 25 {
					t.Errorf("expected pal at 25, got %v at %v", *c.TimeMode, c.FrameRate)
				}
				if *c.Axis != store.AxisMayaYUp {
					t.Errorf("expected default axis to survive, got %v", *c.Axis)
				}
			},
		},
		{
			name:   "custom rate",
			export: ExportConfig{CanonicalOverrides: CanonicalConfig{TimeMode: "custom", FrameRate: 12}},
			verify: func(t *testing.T, e ExportConfig) {
				c, _ := e.Canonical()
				if !c.Custom() || c.FrameRate != 12 {
					t.Errorf("expected custom at 12, got %v at %v", *c.TimeMode, c.FrameRate)
				}
			},
		},
		{
			name:   "overrides only",
			export: ExportConfig{CanonicalOverrides: CanonicalConfig{Axis: "directx"}},
			verify: func(t *testing.T, e ExportConfig) {
				c, _ := e.Canonical()
				if c.Axis == nil || *c.Axis != store.AxisDirectX {
					t.Errorf("expected directx axis, got %v", c.Axis)
				}
				if c.Unit != nil || c.TimeMode != nil {
					t.Error("expected unset unit and time mode")
				}
			},
		},
		{name: "unknown unit", export: ExportConfig{CanonicalOverrides: CanonicalConfig{Unit: "furlong"}}, wantErr: true},
		{name: "unknown time mode", export: ExportConfig{CanonicalOverrides: CanonicalConfig{TimeMode: "frames7"}}, wantErr: true},
		{name: "custom without rate", export: ExportConfig{CanonicalOverrides: CanonicalConfig{TimeMode: "custom"}}, wantErr: true},
		{name: "negative rate", export: ExportConfig{CanonicalOverrides: CanonicalConfig{TimeMode: "custom", FrameRate: -1}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.export.Canonical()
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.verify(t, tt.export)
		})
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	// Actual path depends on OS
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	t.Setenv("HOME", tmpDir)

	path := findConfigFile()
	if path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("logging:\n  level: warn\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	path = findConfigFile()
	if path == "" {
		t.Error("expected to find config.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name:  "rebuild flag",
			setup: func() { *flagRebuild = true },
			verify: func(cfg *Config) {
				if !cfg.Export.ForceRebuild {
					t.Error("expected force_rebuild with rebuild flag")
				}
			},
			teardown: func() { *flagRebuild = false },
		},
		{
			name:  "diagnostics flag",
			setup: func() { *flagDiagnostics = "run.json" },
			verify: func(cfg *Config) {
				if cfg.Export.Diagnostics != "run.json" {
					t.Errorf("expected diagnostics run.json, got %s", cfg.Export.Diagnostics)
				}
			},
			teardown: func() { *flagDiagnostics = "" },
		},
		{
			name:  "canonical defaults flag",
			setup: func() { *flagCanonical = true },
			verify: func(cfg *Config) {
				if !cfg.Export.CanonicalDefaults {
					t.Error("expected canonical_defaults with flag")
				}
			},
			teardown: func() { *flagCanonical = false },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)
			tt.verify(cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
logging:
  level: warn
export:
  diagnostics: from-file.yaml
  force_rebuild: false
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagRebuild = true
	defer func() {
		*flagConfig = ""
		*flagRebuild = false
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Flag wins over file
	if !cfg.Export.ForceRebuild {
		t.Error("expected force_rebuild from flag")
	}
	if cfg.Export.Diagnostics != "from-file.yaml" {
		t.Errorf("expected diagnostics from file, got %s", cfg.Export.Diagnostics)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected level from file, got %s", cfg.Logging.Level)
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.History.Path = "runs.db"
	cfg.Export.CanonicalOverrides.Axis = "maya-z-up"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.History.Path != "runs.db" {
		t.Errorf("expected history path runs.db, got %s", loaded.History.Path)
	}
	if loaded.Export.CanonicalOverrides.Axis != "maya-z-up" {
		t.Errorf("expected axis maya-z-up, got %s", loaded.Export.CanonicalOverrides.Axis)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("expected no temporary file left, got %v", err)
	}

	cfg.History.Path = "other.db"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo over existing file: %v", err)
	}
	loaded = Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.History.Path != "other.db" {
		t.Errorf("expected history path other.db, got %s", loaded.History.Path)
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.Export.CanonicalDefaults = true
	if err := cfg.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	for _, want := range []string{"logging:\n  level: info", "canonical_defaults: true", "history:"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("expected %q in:\n%s", want, buf.String())
		}
	}
}
