// Package roundtrip re-opens an exported scene and validates it against the
// settings and metrics of the scene that produced it.
package roundtrip

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/link270/fbx-analyzer/internal/store"
	"github.com/link270/fbx-analyzer/internal/validation"
)

// Result of a round-trip check.
type Result struct {
	Report *validation.Report      `yaml:"report" json:"report"`
	Diff   []validation.MetricDiff `yaml:"metrics_diff" json:"metrics_diff"`
}

// Passed reports whether the exported scene validated clean and matched
// the baseline.
func (r *Result) Passed() bool {
	return r.Report != nil && r.Report.ExportReady() && len(r.Diff) == 0
}

// Summary renders the diff as "metric (expected x, actual y)" entries
// joined by "; ".
func (r *Result) Summary() string {
	parts := make([]string, 0, len(r.Diff))
	for _, d := range r.Diff {
		parts = append(parts, d.String())
	}
	return strings.Join(parts, "; ")
}

// Check loads path in a fresh session of engine and validates it with
// canonical. When baseline is non-nil its metrics are diffed against the
// exported scene. The session is closed before Check returns.
func Check(ctx context.Context, engine store.Engine, path string, canonical *validation.Canonical, baseline *validation.Metrics, log *zap.Logger) (*Result, error) {
	if log == nil {
		log = zap.NewNop()
	}
	result := &Result{}
	err := store.WithSession(ctx, engine, path, func(session store.Session) error {
		result.Report = validation.New(canonical, log).Validate(session.Scene())
		if baseline != nil {
			result.Diff = result.Report.Metrics.Diff(*baseline)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("round trip %s: %w", path, err)
	}
	log.Debug("round trip checked",
		zap.String("path", path),
		zap.String("status", result.Report.StatusSummary()),
		zap.Int("diff", len(result.Diff)))
	return result, nil
}
