// scenetool validates 3D scene files and saves edited copies of them.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/link270/fbx-analyzer/internal/config"
	"github.com/link270/fbx-analyzer/internal/logger"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logOpts := logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Console: os.Stderr}
	if cfg.Logging.LogFile != "" {
		logOpts.File = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	if err := logger.InitWithOptions(logOpts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	opts := options{
		scene:       config.ScenePath(),
		output:      config.Output(),
		edits:       config.EditScript(),
		show:        config.Show(),
		listHistory: config.ListHistory(),
		writeConfig: config.WriteConfig(),
	}
	code := run(context.Background(), cfg, opts, os.Stdout, os.Stderr)
	logger.Sync()
	os.Exit(code)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `scenetool - scene validation and save-as utility

Usage:
  scenetool [options] <scene>

Without -o the scene is loaded and a view of it is printed. With -o it is
saved to a new file: unedited scenes are copied, edited scenes are rebuilt,
validated, auto-repaired and verified by reloading the result.

Supported scenes: .scene / .yaml documents, .rsm models (import only).

Examples:
  scenetool character.scene
  scenetool -show skeletons character.scene
  scenetool -edits rename.yaml -o out/character.scene character.scene
  scenetool -rebuild -diagnostics run.json -o fixed.scene broken.scene
  scenetool -history
  scenetool -debug -write-config scenetool.yaml

Options:`)
	flag.CommandLine.SetOutput(w)
	flag.PrintDefaults()
}
