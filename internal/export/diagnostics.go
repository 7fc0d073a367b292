package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/link270/fbx-analyzer/internal/reconcile"
	"github.com/link270/fbx-analyzer/internal/roundtrip"
	"github.com/link270/fbx-analyzer/internal/store"
	"github.com/link270/fbx-analyzer/internal/validation"
)

// State is an export orchestrator state.
type State string

const (
	StateIdle              State = "Idle"
	StateReconciling       State = "Reconciling"
	StateValidatingPre     State = "ValidatingPre"
	StateAutoRepairing     State = "AutoRepairing"
	StateValidatingPost    State = "ValidatingPost"
	StateExporting         State = "Exporting"
	StateRoundTripChecking State = "RoundTripChecking"
	StateCopying           State = "Copying"
	StateDone              State = "Done"
	StateFailed            State = "Failed"
)

// Mode is how the destination file was produced.
type Mode string

const (
	ModeCopy    Mode = "copy"
	ModeRebuild Mode = "rebuild"
)

// Diagnostics record everything one export run did.
type Diagnostics struct {
	RunID            string    `yaml:"run_id" json:"run_id"`
	Mode             Mode      `yaml:"mode" json:"mode"`
	Source           string    `yaml:"source" json:"source"`
	Destination      string    `yaml:"destination" json:"destination"`
	StartedAt        time.Time `yaml:"started_at" json:"started_at"`
	Duration         string    `yaml:"duration" json:"duration"`
	ReusedRootUID    *store.ID `yaml:"reused_root_uid" json:"reused_root_uid"`
	SourceChildCount int       `yaml:"source_child_count" json:"source_child_count"`
	// Canonical is the settings the run validated against.
	Canonical *validation.Canonical `yaml:"canonical,omitempty" json:"canonical,omitempty"`

	reconcile.Trail `yaml:",inline"`

	ValidationBefore *validation.Report  `yaml:"validation_report_before" json:"validation_report_before"`
	ValidationAfter  *validation.Report  `yaml:"validation_report_after" json:"validation_report_after"`
	AutoRepairs      []validation.Repair `yaml:"auto_repairs" json:"auto_repairs"`
	RoundTrip        *roundtrip.Result   `yaml:"roundtrip_report" json:"roundtrip_report"`

	States []State `yaml:"states" json:"states"`
	Error  string  `yaml:"error,omitempty" json:"error,omitempty"`
}

// Final is the last state reached.
func (d *Diagnostics) Final() State {
	if len(d.States) == 0 {
		return StateIdle
	}
	return d.States[len(d.States)-1]
}

// Marshal encodes the diagnostics as "yaml" or "json".
func (d *Diagnostics) Marshal(format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "json":
		return json.MarshalIndent(d, "", "  ")
	case "yaml", "yml", "":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unknown diagnostics format %q", format)
}

// FormatFor picks the diagnostics format from a file extension.
func FormatFor(location string) string {
	if strings.EqualFold(filepath.Ext(location), ".json") {
		return "json"
	}
	return "yaml"
}

// Save writes the diagnostics to location. An empty format follows the
// location's extension.
func (d *Diagnostics) Save(ctx context.Context, fs afs.Service, location, format string) error {
	if format == "" {
		format = FormatFor(location)
	}
	data, err := d.Marshal(format)
	if err != nil {
		return fmt.Errorf("encode diagnostics: %w", err)
	}
	return fs.Upload(ctx, location, os.FileMode(0o644), bytes.NewReader(data))
}
