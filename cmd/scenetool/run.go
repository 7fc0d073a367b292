package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/viant/afs"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/link270/fbx-analyzer/internal/config"
	"github.com/link270/fbx-analyzer/internal/edits"
	"github.com/link270/fbx-analyzer/internal/export"
	"github.com/link270/fbx-analyzer/internal/history"
	"github.com/link270/fbx-analyzer/internal/inspect"
	"github.com/link270/fbx-analyzer/internal/logger"
	"github.com/link270/fbx-analyzer/internal/store"
	"github.com/link270/fbx-analyzer/internal/store/filestore"
	"github.com/link270/fbx-analyzer/internal/telemetry"
	"github.com/link270/fbx-analyzer/internal/validation"
	"github.com/link270/fbx-analyzer/pkg/scenegraph"
)

// Views printed without -o.
const (
	showReport    = "report"
	showTree      = "tree"
	showSkeletons = "skeletons"
	showMetadata  = "metadata"
)

type options struct {
	scene       string
	output      string
	edits       string
	show        string
	listHistory bool
	writeConfig string
}

type app struct {
	cfg    *config.Config
	fs     afs.Service
	engine store.Engine
	log    *zap.Logger
	stdout io.Writer
	stderr io.Writer
}

// run executes one invocation and returns the process exit code.
func run(ctx context.Context, cfg *config.Config, opts options, stdout, stderr io.Writer) int {
	log := logger.Named("scenetool")
	fs := afs.New()
	a := &app{
		cfg:    cfg,
		fs:     fs,
		engine: filestore.New(filestore.WithFS(fs), filestore.WithLogger(log.Named("store"))),
		log:    log,
		stdout: stdout,
		stderr: stderr,
	}

	var err error
	switch {
	case opts.writeConfig != "":
		err = a.writeConfig(opts.writeConfig)
	case opts.listHistory:
		err = a.history(ctx)
	case opts.scene == "":
		printUsage(stderr)
		return 2
	case opts.output != "":
		err = a.save(ctx, opts)
	case opts.edits != "":
		err = errors.New("-edits requires -o")
	default:
		err = a.show(ctx, opts.scene, opts.show)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func (a *app) show(ctx context.Context, path, view string) error {
	if view == "" {
		view = showReport
	}
	var doc any
	err := store.WithSession(ctx, a.engine, path, func(s store.Session) error {
		scene := s.Scene()
		switch strings.ToLower(view) {
		case showReport:
			canonical, err := a.canonical(scene.Globals())
			if err != nil {
				return err
			}
			report := validation.New(canonical, a.log.Named("validation")).Validate(scene)
			doc = struct {
				Scene       string             `yaml:"scene"`
				Status      string             `yaml:"status"`
				ExportReady bool               `yaml:"export_ready"`
				Report      *validation.Report `yaml:"report"`
			}{path, report.StatusSummary(), report.ExportReady(), report}
		case showTree:
			tree, err := inspect.SceneGraph(scene)
			if err != nil {
				return err
			}
			doc = struct {
				Scene    string            `yaml:"scene"`
				Nodes    int               `yaml:"nodes"`
				TopLevel []inspect.Summary `yaml:"top_level"`
			}{path, count(tree), inspect.TopLevel(tree)}
		case showSkeletons:
			doc = inspect.Skeletons(scene)
		case showMetadata:
			doc = inspect.SceneMetadata(scene)
		default:
			return fmt.Errorf("unknown view %q (want report, tree, skeletons or metadata)", view)
		}
		return nil
	})
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(a.stdout)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func count(tree *scenegraph.Tree) int {
	if tree.Root == nil {
		return 0
	}
	return tree.Root.Count()
}

// canonical captures a scene's own settings and applies the configured
// overrides, the way an export resolves them.
func (a *app) canonical(g store.Globals) (*validation.Canonical, error) {
	overrides, err := a.cfg.Export.Canonical()
	if err != nil {
		return nil, err
	}
	c := validation.Capture(g)
	c.Merge(overrides)
	return c, nil
}

func (a *app) save(ctx context.Context, opts options) error {
	req := export.Request{
		Source:      opts.scene,
		Destination: opts.output,
		Force:       a.cfg.Export.ForceRebuild,
	}
	if opts.edits != "" {
		script, err := edits.Load(ctx, a.fs, opts.edits)
		if err != nil {
			return err
		}
		var tree *scenegraph.Tree
		err = store.WithSession(ctx, a.engine, opts.scene, func(s store.Session) error {
			var err error
			tree, err = inspect.SceneGraph(s.Scene())
			return err
		})
		if err != nil {
			return err
		}
		baseline := tree.Fingerprint()
		if err := edits.Apply(tree, script, a.log.Named("edits")); err != nil {
			return err
		}
		req.Model, req.Baseline = tree, &baseline
	}

	exportOpts := []export.Option{export.WithFS(a.fs), export.WithLogger(a.log.Named("export"))}
	canonical, err := a.cfg.Export.Canonical()
	if err != nil {
		return err
	}
	exportOpts = append(exportOpts, export.WithCanonical(canonical))
	if a.cfg.History.Path != "" {
		h, err := history.Open(a.cfg.History.Path, a.log.Named("history"))
		if err != nil {
			return err
		}
		defer h.Close()
		exportOpts = append(exportOpts, export.WithObserver(h))
	}
	if a.cfg.Metrics.Textfile != "" {
		exportOpts = append(exportOpts, export.WithObserver(telemetry.New(a.cfg.Metrics.Textfile, a.log.Named("telemetry"))))
	}

	d, runErr := export.New(a.engine, exportOpts...).SaveAs(ctx, req)
	if path := a.cfg.Export.Diagnostics; path != "" && d != nil {
		if err := d.Save(ctx, a.fs, path, a.cfg.Export.DiagnosticsFormat); err != nil {
			a.log.Warn("write diagnostics", zap.String("path", path), zap.Error(err))
		}
	}
	if runErr != nil {
		var exportErr *export.Error
		if errors.As(runErr, &exportErr) {
			for _, s := range exportErr.Statuses {
				fmt.Fprintf(a.stderr, "  %-12s %s\n", s.Name, s.Status)
			}
			for _, diff := range exportErr.Diff {
				fmt.Fprintf(a.stderr, "  %s\n", diff)
			}
		}
		return runErr
	}

	fmt.Fprintf(a.stdout, "Saved:    %s\n", d.Destination)
	fmt.Fprintf(a.stdout, "Mode:     %s\n", d.Mode)
	fmt.Fprintf(a.stdout, "Run:      %s\n", d.RunID)
	if len(d.AutoRepairs) > 0 {
		fmt.Fprintf(a.stdout, "Repairs:  %d\n", len(d.AutoRepairs))
		for _, r := range d.AutoRepairs {
			fmt.Fprintf(a.stdout, "  %-20s %s\n", r.Object, r.Action)
		}
	}
	return nil
}

// writeConfig saves the effective configuration, "-" meaning stdout.
func (a *app) writeConfig(path string) error {
	if path == "-" {
		return a.cfg.Write(a.stdout)
	}
	if err := a.cfg.SaveTo(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Fprintf(a.stdout, "Wrote config to %s\n", path)
	return nil
}

func (a *app) history(ctx context.Context) error {
	if a.cfg.History.Path == "" {
		return errors.New("export history is disabled; set history.path in the config file")
	}
	h, err := history.Open(a.cfg.History.Path, a.log.Named("history"))
	if err != nil {
		return err
	}
	defer h.Close()

	runs, err := h.Recent(ctx, 20)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(a.stdout, "No export runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(a.stdout, "%s  %-7s %-17s %s -> %s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Mode, r.FinalState, r.Source, r.Destination)
		if r.Error != "" {
			fmt.Fprintf(a.stdout, "    %s\n", r.Error)
		}
	}
	return nil
}
