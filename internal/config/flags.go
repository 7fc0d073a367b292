package config

import "flag"

var (
	flagConfig      = flag.String("config", "", "Path to config file")
	flagDebug       = flag.Bool("debug", false, "Enable debug logging")
	flagRebuild     = flag.Bool("rebuild", false, "Always rebuild on save, even for unedited scenes")
	flagHistory     = flag.Bool("history", false, "List recent export runs and exit")
	flagOutput      = flag.String("o", "", "Save the scene to this path")
	flagEdits       = flag.String("edits", "", "YAML edit script applied before saving")
	flagDiagnostics = flag.String("diagnostics", "", "Write export diagnostics to this file (.yaml or .json)")
	flagCanonical   = flag.Bool("canonical-defaults", false, "Validate against built-in settings (Y-up, cm, 30 fps) instead of the source scene's")
	flagShow        = flag.String("show", "report", "What to print without -o: report, tree, skeletons or metadata")
	flagWriteConfig = flag.String("write-config", "", "Write the effective config to this file (- for stdout) and exit")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// ScenePath returns the positional scene path, or "" when none was given.
func ScenePath() string {
	return flag.Arg(0)
}

// Output returns the save-as destination given with -o.
func Output() string {
	return *flagOutput
}

// EditScript returns the edit script path given with -edits.
func EditScript() string {
	return *flagEdits
}

// Show returns the view selected with -show.
func Show() string {
	return *flagShow
}

// WriteConfig returns the path given with -write-config.
func WriteConfig() string {
	return *flagWriteConfig
}

// ListHistory reports whether -history was given.
func ListHistory() bool {
	return *flagHistory
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagRebuild {
		cfg.Export.ForceRebuild = true
	}
	if *flagDiagnostics != "" {
		cfg.Export.Diagnostics = *flagDiagnostics
	}
	if *flagCanonical {
		cfg.Export.CanonicalDefaults = true
	}
}
