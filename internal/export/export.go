// Package export is the save-as orchestrator. It reconciles an edited scene
// model into a freshly loaded source scene, validates and auto-repairs it,
// exports it and verifies the result by reloading it. Unchanged scenes are
// copied byte for byte instead.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viant/afs"
	"go.uber.org/zap"

	"github.com/link270/fbx-analyzer/internal/reconcile"
	"github.com/link270/fbx-analyzer/internal/repair"
	"github.com/link270/fbx-analyzer/internal/roundtrip"
	"github.com/link270/fbx-analyzer/internal/store"
	"github.com/link270/fbx-analyzer/internal/validation"
	"github.com/link270/fbx-analyzer/pkg/scenegraph"
)

// Observer is notified when an export run finishes, successfully or not.
type Observer interface {
	ExportFinished(ctx context.Context, d *Diagnostics, err error)
}

// Exporter runs save-as operations against one scene engine. It holds no
// per-run state; at most one run should use a given engine at a time.
type Exporter struct {
	engine     store.Engine
	fs         afs.Service
	canonical *validation.Canonical
	log       *zap.Logger
	observers []Observer
	now       func() time.Time
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithFS sets the file system used for copies and directories.
func WithFS(fs afs.Service) Option {
	return func(e *Exporter) { e.fs = fs }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Exporter) { e.log = log }
}

// WithCanonical sets overrides for the canonical settings. Each run
// captures its settings from the loaded source scene; the fields set in c
// replace the captured values.
func WithCanonical(c *validation.Canonical) Option {
	return func(e *Exporter) { e.canonical = c }
}

// WithObserver adds an observer.
func WithObserver(o Observer) Option {
	return func(e *Exporter) { e.observers = append(e.observers, o) }
}

// New creates an exporter for engine.
func New(engine store.Engine, opts ...Option) *Exporter {
	e := &Exporter{engine: engine, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	if e.fs == nil {
		e.fs = afs.New()
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	return e
}

// Request describes one save-as.
type Request struct {
	Source      string
	Destination string
	// Model is the edited scene. Nil means no edits.
	Model *scenegraph.Tree
	// Baseline is the fingerprint Model had when it was read from the
	// source. When set and unchanged, Model counts as unedited.
	Baseline *uint64
	// Force takes the rebuild path even for unedited scenes.
	Force bool
}

func (r Request) unchanged() bool {
	if r.Model == nil {
		return true
	}
	return r.Baseline != nil && !r.Model.Modified(*r.Baseline)
}

// Rebuild is SaveAs with a forced rebuild.
func (e *Exporter) Rebuild(ctx context.Context, req Request) (*Diagnostics, error) {
	req.Force = true
	return e.SaveAs(ctx, req)
}

// SaveAs writes req.Source, with req.Model applied, to req.Destination.
// The diagnostics are returned on failure too.
func (e *Exporter) SaveAs(ctx context.Context, req Request) (*Diagnostics, error) {
	r := &run{
		Exporter: e,
		req:      req,
		d: &Diagnostics{
			RunID:       uuid.NewString(),
			Mode:        ModeRebuild,
			Source:      req.Source,
			Destination: req.Destination,
			StartedAt:   e.now().UTC(),
			AutoRepairs: []validation.Repair{},
		},
	}
	r.log = e.log.With(zap.String("run", r.d.RunID))
	r.enter(StateIdle)

	err := r.execute(ctx)
	r.d.Duration = e.now().Sub(r.d.StartedAt).String()
	if err != nil {
		r.d.Error = err.Error()
		r.log.Warn("export failed", zap.String("state", string(r.state)), zap.Error(err))
	} else {
		r.log.Info("export finished",
			zap.String("mode", string(r.d.Mode)),
			zap.String("destination", req.Destination))
	}
	for _, o := range e.observers {
		o.ExportFinished(ctx, r.d, err)
	}
	return r.d, err
}

type run struct {
	*Exporter
	req   Request
	d     *Diagnostics
	log   *zap.Logger
	state State
}

func (r *run) enter(s State) {
	r.state = s
	r.d.States = append(r.d.States, s)
	r.log.Debug("export state", zap.String("state", string(s)))
}

func (r *run) fail(kind error, message string, err error) *Error {
	failed := &Error{Kind: kind, State: r.state, Message: message, Err: err}
	r.enter(StateFailed)
	return failed
}

func (r *run) execute(ctx context.Context) error {
	src, dst := r.req.Source, r.req.Destination
	same, err := SamePath(src, dst)
	if err != nil {
		return r.fail(ErrSave, "Unable to resolve export paths", err)
	}
	if same {
		return r.fail(ErrSamePath, "The destination path must be different from the source path.", nil)
	}
	if !r.req.Force && r.req.unchanged() {
		r.d.Mode = ModeCopy
		r.enter(StateCopying)
		if err := r.destinationDir(ctx); err != nil {
			return err
		}
		if err := copyVerified(ctx, r.fs, src, dst); err != nil {
			return r.fail(ErrSave, fmt.Sprintf("Failed to copy scene file to '%s'", dst), err)
		}
		r.enter(StateDone)
		return nil
	}

	session, err := r.engine.Open()
	if err != nil {
		return r.fail(store.ErrUnavailable, "Scene engine unavailable", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			r.log.Warn("close session", zap.Error(cerr))
		}
	}()
	return r.rebuild(ctx, session)
}

func (r *run) rebuild(ctx context.Context, session store.Session) error {
	src, dst := r.req.Source, r.req.Destination
	if err := session.Load(ctx, src); err != nil {
		return r.fail(ErrLoad, fmt.Sprintf("Failed to load scene from '%s'", src), err)
	}
	scene := session.Scene()
	root := scene.Root()
	r.d.SourceChildCount = len(scene.Children(root))
	r.d.ReusedRootUID = &root
	canonical := r.canonicalFor(scene.Globals())
	r.d.Canonical = canonical.Clone()

	r.enter(StateReconciling)
	if r.req.Model != nil {
		if err := reconcile.Apply(scene, r.req.Model, &r.d.Trail, r.log.Named("reconcile")); err != nil {
			return r.fail(ErrSave, "Failed to apply scene graph changes", err)
		}
	}

	validator := validation.New(canonical, r.log.Named("validation"))

	r.enter(StateValidatingPre)
	before := validator.Validate(scene)
	r.d.ValidationBefore = before
	baseline := before.Metrics

	if before.ExportReady() {
		r.d.ValidationAfter = before
	} else {
		r.enter(StateAutoRepairing)
		repair.Apply(before, scene, validator.Canonical(), r.log.Named("repair"))
		r.d.AutoRepairs = append(r.d.AutoRepairs, before.Repairs...)

		r.enter(StateValidatingPost)
		after := validator.Validate(scene)
		r.d.ValidationAfter = after
		baseline = after.Metrics
		if !after.ExportReady() {
			failed := r.fail(ErrSave, "Scene validation failed after auto-repair: "+after.StatusSummary(), nil)
			failed.Statuses = after.Statuses()
			return failed
		}
	}

	r.enter(StateExporting)
	if err := r.destinationDir(ctx); err != nil {
		return err
	}
	if err := session.Export(ctx, dst); err != nil {
		return r.fail(ErrSave, fmt.Sprintf("Failed to export scene to '%s'", dst), err)
	}

	r.enter(StateRoundTripChecking)
	result, err := roundtrip.Check(ctx, r.engine, dst, validator.Canonical(), &baseline, r.log.Named("roundtrip"))
	if err != nil {
		return r.fail(ErrRoundTrip, fmt.Sprintf("Failed to reload exported scene '%s' for validation", dst), err)
	}
	r.d.RoundTrip = result
	if !result.Passed() {
		details := result.Report.StatusSummary()
		if len(result.Diff) > 0 {
			details += "; metrics diff -> " + result.Summary()
		}
		failed := r.fail(ErrRoundTrip, "Round-trip validation failed for exported scene: "+details, nil)
		failed.Statuses = result.Report.Statuses()
		failed.Diff = result.Diff
		return failed
	}
	r.enter(StateDone)
	return nil
}

// destinationDir creates the destination's directory when it is missing.
func (r *run) destinationDir(ctx context.Context) error {
	dir, err := filepath.Abs(filepath.Dir(r.req.Destination))
	if err != nil {
		return r.fail(ErrSave, "Unable to resolve export paths", err)
	}
	exists, err := r.fs.Exists(ctx, dir)
	if err == nil && !exists {
		err = r.fs.Create(ctx, dir, 0o755, true)
	}
	if err != nil {
		return r.fail(ErrSave, fmt.Sprintf("Failed to create destination directory '%s'", dir), err)
	}
	return nil
}

// canonicalFor captures the source scene's settings, before any edit,
// and applies the configured overrides. Settings the store cannot report
// fall back to the defaults.
func (r *run) canonicalFor(g store.Globals) *validation.Canonical {
	c := validation.Capture(g)
	if r.canonical != nil {
		c.Merge(r.canonical)
	}
	return c
}

// SamePath reports whether two paths name the same file after making them
// absolute and clean. Paths differing only in case count as the same, and
// existing files are also compared by identity.
func SamePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	if strings.EqualFold(filepath.Clean(absA), filepath.Clean(absB)) {
		return true, nil
	}
	infoA, errA := os.Stat(absA)
	infoB, errB := os.Stat(absB)
	if errA != nil || errB != nil {
		for _, err := range []error{errA, errB} {
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return false, err
			}
		}
		return false, nil
	}
	return os.SameFile(infoA, infoB), nil
}
