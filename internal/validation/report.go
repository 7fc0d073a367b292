// Package validation audits a loaded scene by category and produces a
// report of issues and scene metrics. Validation never mutates the scene.
package validation

import (
	"encoding/json"
	"strings"

	"github.com/link270/fbx-analyzer/internal/store"
)

// Severity of an issue.
type Severity string

const (
	Pass Severity = "PASS"
	Warn Severity = "WARN"
	Fail Severity = "FAIL"
)

// Rank orders severities; unknown values rank as FAIL.
func (s Severity) Rank() int {
	switch s {
	case Pass:
		return 0
	case Warn:
		return 1
	}
	return 2
}

// Category names in report order.
const (
	CategoryGlobals     = "globals"
	CategoryNodes       = "nodes"
	CategoryGeometry    = "geometry"
	CategorySkin        = "skin"
	CategoryMaterials   = "materials"
	CategoryAnimation   = "animation"
	CategoryConstraints = "constraints"
	CategoryConnections = "connections"
)

// Categories lists every category in report order.
var Categories = []string{
	CategoryGlobals, CategoryNodes, CategoryGeometry, CategorySkin,
	CategoryMaterials, CategoryAnimation, CategoryConstraints, CategoryConnections,
}

var categoryTitles = map[string]string{
	CategoryGlobals:     "GlobalSettings",
	CategoryNodes:       "NodesAndTransforms",
	CategoryGeometry:    "Geometry",
	CategorySkin:        "SkinningAndPoses",
	CategoryMaterials:   "MaterialsAndTextures",
	CategoryAnimation:   "Animation",
	CategoryConstraints: "Constraints",
	CategoryConnections: "Connections",
}

// Issue is one validation finding.
type Issue struct {
	Severity   Severity `yaml:"severity" json:"severity"`
	Message    string   `yaml:"message" json:"message"`
	Code       string   `yaml:"code" json:"code"`
	ObjectPath string   `yaml:"object_path,omitempty" json:"object_path,omitempty"`
	// ObjectID is the store object the issue was raised against, if any.
	ObjectID   store.ID `yaml:"object_id,omitempty" json:"object_id,omitempty"`
	FixApplied string   `yaml:"fix_applied,omitempty" json:"fix_applied,omitempty"`
}

// CategoryReport holds the issues of one category.
type CategoryReport struct {
	Name   string
	Title  string
	Issues []*Issue
}

// NewCategory returns an empty report for a category name.
func NewCategory(name string) *CategoryReport {
	return &CategoryReport{Name: name, Title: categoryTitles[name]}
}

// Add appends an issue.
func (c *CategoryReport) Add(sev Severity, code, message, path string, id store.ID) *Issue {
	issue := &Issue{Severity: sev, Message: message, Code: code, ObjectPath: path, ObjectID: id}
	c.Issues = append(c.Issues, issue)
	return issue
}

// Status is the highest severity among the issues, PASS when empty.
func (c *CategoryReport) Status() Severity {
	status := Pass
	for _, issue := range c.Issues {
		if issue.Severity.Rank() > status.Rank() {
			status = issue.Severity
		}
	}
	return status
}

// Has reports whether any issue carries code.
func (c *CategoryReport) Has(code string) bool {
	for _, issue := range c.Issues {
		if issue.Code == code {
			return true
		}
	}
	return false
}

type categoryDoc struct {
	Name   string   `yaml:"name" json:"name"`
	Title  string   `yaml:"title" json:"title"`
	Status Severity `yaml:"status" json:"status"`
	Issues []*Issue `yaml:"issues" json:"issues"`
}

func (c *CategoryReport) doc() categoryDoc {
	issues := c.Issues
	if issues == nil {
		issues = []*Issue{}
	}
	return categoryDoc{Name: c.Name, Title: c.Title, Status: c.Status(), Issues: issues}
}

// MarshalYAML includes the derived status.
func (c *CategoryReport) MarshalYAML() (interface{}, error) { return c.doc(), nil }

// MarshalJSON includes the derived status.
func (c *CategoryReport) MarshalJSON() ([]byte, error) { return json.Marshal(c.doc()) }

// Repair is one applied auto-repair.
type Repair struct {
	Object string `yaml:"object" json:"object"`
	Action string `yaml:"action" json:"action"`
}

// CategoryStatus pairs a category with its status.
type CategoryStatus struct {
	Name   string   `yaml:"name" json:"name"`
	Status Severity `yaml:"status" json:"status"`
}

// Report is the full validation result.
type Report struct {
	Categories []*CategoryReport `yaml:"categories" json:"categories"`
	Repairs    []Repair          `yaml:"repairs" json:"repairs"`
	Metrics    Metrics           `yaml:"metrics" json:"metrics"`
}

// NewReport returns a report with every category present and empty.
func NewReport() *Report {
	r := &Report{}
	for _, name := range Categories {
		r.Categories = append(r.Categories, NewCategory(name))
	}
	return r
}

// Category returns the named category, or nil.
func (r *Report) Category(name string) *CategoryReport {
	for _, c := range r.Categories {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ExportReady reports whether no category failed.
func (r *Report) ExportReady() bool {
	for _, c := range r.Categories {
		if c.Status() == Fail {
			return false
		}
	}
	return true
}

// Statuses lists category statuses in report order.
func (r *Report) Statuses() []CategoryStatus {
	out := make([]CategoryStatus, 0, len(r.Categories))
	for _, c := range r.Categories {
		out = append(out, CategoryStatus{Name: c.Name, Status: c.Status()})
	}
	return out
}

// StatusSummary renders "name: STATUS" pairs joined by commas.
func (r *Report) StatusSummary() string {
	parts := make([]string, 0, len(r.Categories))
	for _, s := range r.Statuses() {
		parts = append(parts, s.Name+": "+string(s.Status))
	}
	return strings.Join(parts, ", ")
}

// Issues returns every issue in category order.
func (r *Report) Issues() []*Issue {
	var out []*Issue
	for _, c := range r.Categories {
		out = append(out, c.Issues...)
	}
	return out
}

// Failures returns the FAIL issues in category order.
func (r *Report) Failures() []*Issue {
	var out []*Issue
	for _, issue := range r.Issues() {
		if issue.Severity == Fail {
			out = append(out, issue)
		}
	}
	return out
}
