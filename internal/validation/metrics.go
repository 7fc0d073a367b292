package validation

import (
	"fmt"
	"sort"
)

// MeshMetrics are the counts recorded for one mesh.
type MeshMetrics struct {
	ControlPoints int            `yaml:"control_points" json:"control_points"`
	PolygonCount  int            `yaml:"polygon_count" json:"polygon_count"`
	LayerElements map[string]int `yaml:"layer_elements" json:"layer_elements"`
}

// Metrics summarize a scene for round-trip comparison. Mesh keys are node
// paths; a repeated path gets a "#n" suffix in traversal order.
type Metrics struct {
	NodeCount        int                    `yaml:"node_count" json:"node_count"`
	Meshes           map[string]MeshMetrics `yaml:"mesh_metrics" json:"mesh_metrics"`
	MaterialCount    int                    `yaml:"material_count" json:"material_count"`
	TextureCount     int                    `yaml:"texture_count" json:"texture_count"`
	SkinClusterCount int                    `yaml:"skin_cluster_count" json:"skin_cluster_count"`
	BindPoseCount    int                    `yaml:"bind_pose_count" json:"bind_pose_count"`
	AnimStackCount   int                    `yaml:"anim_stack_count" json:"anim_stack_count"`
	AnimCurveCount   int                    `yaml:"anim_curve_count" json:"anim_curve_count"`
}

// MetricDiff is one differing metric. Expected comes from the baseline.
type MetricDiff struct {
	Metric   string      `yaml:"metric" json:"metric"`
	Expected interface{} `yaml:"expected" json:"expected"`
	Actual   interface{} `yaml:"actual" json:"actual"`
}

// String renders "metric (expected x, actual y)".
func (d MetricDiff) String() string {
	return fmt.Sprintf("%s (expected %v, actual %v)", d.Metric, render(d.Expected), render(d.Actual))
}

func render(v interface{}) interface{} {
	switch m := v.(type) {
	case *MeshMetrics:
		if m == nil {
			return "none"
		}
		return fmt.Sprintf("{control_points:%d polygon_count:%d layers:%d}", m.ControlPoints, m.PolygonCount, len(m.LayerElements))
	case *int:
		if m == nil {
			return "none"
		}
		return *m
	}
	return v
}

// Diff lists every metric where m differs from baseline. Mesh and layer
// keys are visited in sorted order.
func (m Metrics) Diff(baseline Metrics) []MetricDiff {
	var out []MetricDiff
	record := func(metric string, expected, actual interface{}) {
		out = append(out, MetricDiff{Metric: metric, Expected: expected, Actual: actual})
	}
	counts := []struct {
		name             string
		actual, expected int
	}{
		{"node_count", m.NodeCount, baseline.NodeCount},
		{"material_count", m.MaterialCount, baseline.MaterialCount},
		{"texture_count", m.TextureCount, baseline.TextureCount},
		{"skin_cluster_count", m.SkinClusterCount, baseline.SkinClusterCount},
		{"bind_pose_count", m.BindPoseCount, baseline.BindPoseCount},
		{"anim_stack_count", m.AnimStackCount, baseline.AnimStackCount},
		{"anim_curve_count", m.AnimCurveCount, baseline.AnimCurveCount},
	}
	for _, c := range counts {
		if c.actual != c.expected {
			record(c.name, c.expected, c.actual)
		}
	}

	for _, key := range unionKeys(m.Meshes, baseline.Meshes) {
		actual, okA := m.Meshes[key]
		expected, okE := baseline.Meshes[key]
		if !okA || !okE {
			var a, e *MeshMetrics
			if okA {
				a = &actual
			}
			if okE {
				e = &expected
			}
			record("mesh:"+key, e, a)
			continue
		}
		if actual.ControlPoints != expected.ControlPoints {
			record("mesh:"+key+":control_points", expected.ControlPoints, actual.ControlPoints)
		}
		if actual.PolygonCount != expected.PolygonCount {
			record("mesh:"+key+":polygon_count", expected.PolygonCount, actual.PolygonCount)
		}
		for _, layer := range unionKeys(actual.LayerElements, expected.LayerElements) {
			a, okA := actual.LayerElements[layer]
			e, okE := expected.LayerElements[layer]
			if okA == okE && a == e {
				continue
			}
			record("mesh:"+key+":layer:"+layer, optionalInt(e, okE), optionalInt(a, okA))
		}
	}
	return out
}

func optionalInt(v int, ok bool) *int {
	if !ok {
		return nil
	}
	return &v
}

func unionKeys[V any](a, b map[string]V) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var keys []string
	for _, m := range []map[string]V{a, b} {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}
