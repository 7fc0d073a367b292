package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Load builds the configuration from defaults, then the config file, then
// command-line flags, each overriding the previous.
func Load() (*Config, error) {
	cfg := Default()

	path := ConfigPath()
	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}

	applyFlags(cfg)
	return cfg, nil
}

// findConfigFile returns the first existing of ./scenetool.yaml,
// ./config.yaml and config.yaml in ConfigDir.
func findConfigFile() string {
	for _, path := range []string{
		"scenetool.yaml",
		"config.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "scenetool")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "scenetool")
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "scenetool")
	}
	return filepath.Join(home, ".config", "scenetool")
}

// loadFromFile merges a YAML file over cfg and checks the canonical
// overrides it names.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return err
	}
	if _, err := cfg.Export.Canonical(); err != nil {
		return err
	}
	return nil
}
