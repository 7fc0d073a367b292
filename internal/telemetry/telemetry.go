// Package telemetry counts export runs, validation issues and repairs in a
// prometheus registry and can write it as a node-exporter textfile.
package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/link270/fbx-analyzer/internal/export"
	"github.com/link270/fbx-analyzer/internal/validation"
)

// Validation phases used as the "phase" label.
const (
	PhasePre       = "pre"
	PhasePost      = "post"
	PhaseRoundTrip = "roundtrip"
)

// Metrics holds the collectors of one registry.
type Metrics struct {
	registry *prometheus.Registry
	textfile string
	log      *zap.Logger

	// exportRuns counts finished runs by mode and final state
	exportRuns *prometheus.CounterVec
	// exportDuration tracks run wall time
	exportDuration *prometheus.HistogramVec
	// issues counts validation issues by phase, category and severity
	issues *prometheus.CounterVec
	// repairs counts repaired issues by issue code
	repairs *prometheus.CounterVec
	// reconciled counts reconciliation trail entries by kind
	reconciled *prometheus.CounterVec
}

// New registers the export collectors in a fresh registry. A non-empty
// textfile is rewritten after every run.
func New(textfile string, log *zap.Logger) *Metrics {
	if log == nil {
		log = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		textfile: textfile,
		log:      log,
		exportRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scenetool_export_runs_total",
			Help: "Finished export runs by mode and final state",
		}, []string{"mode", "state"}),
		exportDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scenetool_export_duration_seconds",
			Help:    "Export run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		}, []string{"mode"}),
		issues: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scenetool_validation_issues_total",
			Help: "Validation issues by phase, category and severity",
		}, []string{"phase", "category", "severity"}),
		repairs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scenetool_repairs_total",
			Help: "Issues fixed by auto-repair, by issue code",
		}, []string{"code"}),
		reconciled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scenetool_reconcile_changes_total",
			Help: "Scene changes made by reconciliation, by kind",
		}, []string{"kind"}),
	}
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Observe counts one finished run.
func (m *Metrics) Observe(d *export.Diagnostics) {
	mode := string(d.Mode)
	m.exportRuns.WithLabelValues(mode, string(d.Final())).Inc()
	if dur, err := time.ParseDuration(d.Duration); err == nil {
		m.exportDuration.WithLabelValues(mode).Observe(dur.Seconds())
	}

	m.countIssues(PhasePre, d.ValidationBefore)
	if d.ValidationAfter != nil && d.ValidationAfter != d.ValidationBefore {
		m.countIssues(PhasePost, d.ValidationAfter)
	}
	if d.RoundTrip != nil {
		m.countIssues(PhaseRoundTrip, d.RoundTrip.Report)
	}
	if d.ValidationBefore != nil {
		for _, c := range d.ValidationBefore.Categories {
			for _, issue := range c.Issues {
				if issue.FixApplied != "" {
					m.repairs.WithLabelValues(issue.Code).Inc()
				}
			}
		}
	}

	t := d.Trail
	for kind, n := range map[string]int{
		"created":           len(t.Created),
		"reparented":        len(t.Reparented),
		"reordered":         len(t.Reordered),
		"removed_orphans":   len(t.RemovedOrphans),
		"pruned":            len(t.Pruned),
		"renamed":           len(t.Renamed),
		"attribute_updates": len(t.AttributeUpdates),
		"transform_updates": len(t.TransformUpdates),
		"property_updates":  len(t.PropertyUpdates),
	} {
		if n > 0 {
			m.reconciled.WithLabelValues(kind).Add(float64(n))
		}
	}
}

func (m *Metrics) countIssues(phase string, r *validation.Report) {
	if r == nil {
		return
	}
	for _, c := range r.Categories {
		for _, issue := range c.Issues {
			m.issues.WithLabelValues(phase, c.Name, string(issue.Severity)).Inc()
		}
	}
}

// WriteTextfile writes the registry in the text exposition format. The file
// is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// ExportFinished counts the run and refreshes the textfile.
func (m *Metrics) ExportFinished(_ context.Context, d *export.Diagnostics, _ error) {
	m.Observe(d)
	if m.textfile == "" {
		return
	}
	if err := m.WriteTextfile(m.textfile); err != nil {
		m.log.Warn("write metrics textfile", zap.String("path", m.textfile), zap.Error(err))
	}
}
