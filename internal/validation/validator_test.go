package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/link270/fbx-analyzer/internal/store"
	"github.com/link270/fbx-analyzer/internal/store/memstore"
	"github.com/link270/fbx-analyzer/internal/store/storetest"
	"github.com/link270/fbx-analyzer/pkg/math"
)

func codes(c *CategoryReport) []string {
	out := []string{}
	for _, issue := range c.Issues {
		out = append(out, issue.Code)
	}
	return out
}

func TestValidateCleanScene(t *testing.T) {
	c := storetest.NewCharacter()
	report := New(nil, nil).Validate(c.Scene)

	assert.True(t, report.ExportReady())
	for _, cat := range report.Categories {
		assert.Equal(t, Pass, cat.Status(), "%s: %v", cat.Name, codes(cat))
	}
	assert.Equal(t,
		"globals: PASS, nodes: PASS, geometry: PASS, skin: PASS, materials: PASS, animation: PASS, constraints: PASS, connections: PASS",
		report.StatusSummary())

	m := report.Metrics
	assert.Equal(t, 6, m.NodeCount)
	assert.Equal(t, 1, m.MaterialCount)
	assert.Equal(t, 1, m.TextureCount)
	assert.Equal(t, 1, m.SkinClusterCount)
	assert.Equal(t, 1, m.BindPoseCount)
	assert.Equal(t, 1, m.AnimStackCount)
	assert.Equal(t, 1, m.AnimCurveCount)
	assert.Equal(t, map[string]MeshMetrics{
		"/RootNode/Body": {
			ControlPoints: 8,
			PolygonCount:  6,
			LayerElements: map[string]int{"normals:0": 24, "uv0:0": 14, "materials:0": 1},
		},
	}, m.Meshes)
}

func customCanonical(rate float64) *Canonical {
	c := DefaultCanonical()
	mode := store.TimeModeCustom
	c.TimeMode = &mode
	c.FrameRate = rate
	return c
}

func TestValidateGlobals(t *testing.T) {
	tests := []struct {
		name      string
		canonical *Canonical
		mutate    func(g *memstore.Globals)
		want      []string
	}{
		{"clean", nil, func(*memstore.Globals) {}, []string{}},
		{"axis", nil, func(g *memstore.Globals) { _ = g.SetAxisSystem(store.AxisMayaZUp) }, []string{"globals.axis"}},
		{"axis unreadable", nil, func(g *memstore.Globals) {
			_ = g.SetAxisSystem(store.AxisMayaZUp)
			g.Disable(memstore.FeatureAxis)
		}, []string{}},
		{"unit", nil, func(g *memstore.Globals) { _ = g.SetSystemUnit(store.UnitMeter) }, []string{"globals.system_unit"}},
		{"unit within tolerance", nil, func(g *memstore.Globals) {
			_ = g.SetSystemUnit(store.SystemUnit{ScaleFactor: 1 + 1e-9})
		}, []string{}},
		{"unit unknown", nil, func(g *memstore.Globals) { g.Disable(memstore.FeatureUnit) }, []string{"globals.system_unit_unknown"}},
		{"time mode", nil, func(g *memstore.Globals) { _ = g.SetTimeMode(store.TimeModeFrames24) }, []string{"globals.time_mode"}},
		{"time span", nil, func(g *memstore.Globals) {
			_ = g.SetDefaultTimeSpan(store.TimeSpan{Start: 10, Stop: 10})
		}, []string{"globals.time_span"}},
		{"time span unknown", nil, func(g *memstore.Globals) { g.Disable(memstore.FeatureTimeSpan) }, []string{"globals.time_span_unknown"}},
		{"frame rate", customCanonical(29.97), func(g *memstore.Globals) {
			_ = g.SetTimeMode(store.TimeModeCustom)
			_ = g.SetCustomFrameRate(25)
		}, []string{"globals.frame_rate"}},
		{"frame rate matches", customCanonical(25), func(g *memstore.Globals) {
			_ = g.SetTimeMode(store.TimeModeCustom)
			_ = g.SetCustomFrameRate(25)
		}, []string{}},
		{"frame rate unknown", customCanonical(25), func(g *memstore.Globals) {
			_ = g.SetTimeMode(store.TimeModeCustom)
			g.Disable(memstore.FeatureCustomFrameRate)
		}, []string{"globals.frame_rate_unknown"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := storetest.NewCharacter()
			tt.mutate(c.Scene.Settings())
			report := New(tt.canonical, nil).Validate(c.Scene)
			globals := report.Category(CategoryGlobals)
			assert.Equal(t, tt.want, codes(globals))
			for _, issue := range globals.Issues {
				assert.Equal(t, PathGlobals, issue.ObjectPath)
			}
		})
	}
}

func TestValidateCapturesTimeSpanLazily(t *testing.T) {
	c := storetest.NewCharacter()
	v := New(DefaultCanonical(), nil)
	require.Nil(t, v.Canonical().TimeSpan)
	v.Validate(c.Scene)
	require.NotNil(t, v.Canonical().TimeSpan)
	assert.Equal(t, store.TimeSpan{Start: 0, Stop: store.TicksPerSecond}, *v.Canonical().TimeSpan)
}

func TestValidateNodes(t *testing.T) {
	s := memstore.New()
	bare := s.AddNode(s.Root(), "Bare")
	broken := s.AddNode(s.Root(), "Broken")
	s.AttachAttribute(broken, store.KindNull, "Null")
	s.SetTransformUnreadable(broken, true)

	nodes := New(nil, nil).Validate(s).Category(CategoryNodes)
	require.Len(t, nodes.Issues, 2)
	assert.Equal(t, Issue{
		Severity: Warn, Code: "nodes.missing_attribute",
		Message:    "Node has no attribute; downstream tools may ignore it.",
		ObjectPath: "/RootNode/Bare", ObjectID: bare,
	}, *nodes.Issues[0])
	assert.Equal(t, "nodes.transform_read", nodes.Issues[1].Code)
	assert.Equal(t, Fail, nodes.Status())
}

func TestValidateGeometry(t *testing.T) {
	s := memstore.New()
	first := s.AddNode(s.Root(), "Cube")
	second := s.AddNode(s.Root(), "Cube")
	s.AttachMesh(first, memstore.MeshSpec{ControlPoints: 8, Polygons: 6, Layers: storetest.MeshLayers()})
	s.AttachMesh(second, memstore.MeshSpec{Layers: []store.Layer{{
		Index: 0,
		Elements: []store.LayerElement{
			{Channel: store.ChannelUV, Set: 1, Mapping: store.MappingByPolygonVertex, Reference: store.ReferenceIndexToDirect, DirectCount: 0, IndexCount: 0},
			{Channel: store.ChannelSmoothing, Mapping: store.MappingNone, Reference: store.ReferenceDirect, DirectCount: 4, IndexCount: -1},
		},
	}}})

	report := New(nil, nil).Validate(s)
	assert.Equal(t, []string{
		"geometry.control_points",
		"geometry.polygons",
		"geometry.layer.UVSet[1].empty",
		"geometry.layer.UVSet[1].index",
		"geometry.layer.Smoothing.mapping",
	}, codes(report.Category(CategoryGeometry)))

	require.Contains(t, report.Metrics.Meshes, "/RootNode/Cube")
	require.Contains(t, report.Metrics.Meshes, "/RootNode/Cube#2")
	assert.Equal(t, map[string]int{"uv1:0": 0, "smoothing:0": 4}, report.Metrics.Meshes["/RootNode/Cube#2"].LayerElements)
}

func TestValidateSkin(t *testing.T) {
	s := memstore.New()
	body := s.AddNode(s.Root(), "Body")
	mesh := s.AttachMesh(body, memstore.MeshSpec{ControlPoints: 4, Polygons: 1})
	s.AddSkin(mesh, "Empty")
	skin := s.AddSkin(mesh, "Broken")
	s.AddCluster(skin, "Unlinked", store.Cluster{})

	report := New(nil, nil).Validate(s)
	assert.Equal(t, []string{
		"skin.no_clusters",
		"skin.cluster_link",
		"skin.cluster_weights",
		"skin.cluster_matrix",
		"skin.cluster_link_matrix",
		"skin.bind_pose_missing",
	}, codes(report.Category(CategorySkin)))
	assert.Equal(t, []string{"connections.mesh_skin_links"}, codes(report.Category(CategoryConnections)))
	assert.Equal(t, 1, report.Metrics.SkinClusterCount)

	_, err := s.AddPose(store.Pose{Name: "Bind", Bind: true})
	require.NoError(t, err)
	report = New(nil, nil).Validate(s)
	skinCat := report.Category(CategorySkin)
	assert.True(t, skinCat.Has("skin.bind_pose_empty"))
	assert.False(t, skinCat.Has("skin.bind_pose_missing"))
	assert.Equal(t, 1, report.Metrics.BindPoseCount)
}

func TestValidateMaterials(t *testing.T) {
	s := memstore.New()
	unassigned := s.AddNode(s.Root(), "Unassigned")
	s.AttachMesh(unassigned, memstore.MeshSpec{ControlPoints: 4, Polygons: 1, Layers: storetest.MeshLayers()})

	dangling := s.AddNode(s.Root(), "Dangling")
	s.AttachMesh(dangling, memstore.MeshSpec{ControlPoints: 4, Polygons: 1, Layers: storetest.MeshLayers()})
	s.AssignMaterial(dangling, s.DanglingID())

	textured := s.AddNode(s.Root(), "Textured")
	s.AttachMesh(textured, memstore.MeshSpec{ControlPoints: 4, Polygons: 1})
	tex := s.AddTexture("Spec", "spec.png")
	mat := s.AddMaterial("Mat",
		store.TextureChannel{Name: store.ChannelDiffuse, Textures: []store.ID{s.DanglingID()}},
		store.TextureChannel{Name: store.ChannelSpecular, Textures: []store.ID{s.DanglingID(), tex}},
		store.TextureChannel{Name: store.ChannelBump},
	)
	s.AssignMaterial(textured, mat)

	report := New(nil, nil).Validate(s)
	materials := report.Category(CategoryMaterials)
	assert.Equal(t, []string{"materials.node_assignment", "materials.missing", "materials.texture_missing"}, codes(materials))
	assert.Equal(t, "Texture slot 'Diffuse' is missing its texture connection.", materials.Issues[2].Message)
	assert.Equal(t, Fail, materials.Status())

	assert.Equal(t, []string{"connections.material_layer"}, codes(report.Category(CategoryConnections)))
	assert.Equal(t, "/RootNode/Textured", report.Category(CategoryConnections).Issues[0].ObjectPath)
}

func TestValidateAnimation(t *testing.T) {
	s := memstore.New()
	anim := New(nil, nil).Validate(s).Category(CategoryAnimation)
	assert.Equal(t, []string{"animation.no_stacks"}, codes(anim))
	assert.Equal(t, Warn, anim.Status())

	s.AddAnimStack("Broken", store.TimeSpan{Start: 10, Stop: 5})
	good := s.AddAnimStack("Good", store.TimeSpan{Stop: 100})
	s.AddAnimLayer(good, "Base")
	anim = New(nil, nil).Validate(s).Category(CategoryAnimation)
	assert.Equal(t, []string{"animation.time_span", "animation.no_layers"}, codes(anim))
	assert.Equal(t, "<animation>/Broken", anim.Issues[0].ObjectPath)
	assert.Equal(t, "Animation stack 'Broken' has no layers.", anim.Issues[1].Message)
}

func TestValidateConstraints(t *testing.T) {
	s := memstore.New()
	a := s.AddNode(s.Root(), "A")
	s.AddConstraint("Aim", []store.ID{a}, nil)
	s.AddConstraint("", nil, []store.ID{a})
	s.AddConstraint("Ok", []store.ID{a}, []store.ID{a})

	cons := New(nil, nil).Validate(s).Category(CategoryConstraints)
	require.Len(t, cons.Issues, 2)
	assert.Equal(t, "Constraint 'Aim' is missing sources or targets.", cons.Issues[0].Message)
	assert.Equal(t, "<constraints>/Aim", cons.Issues[0].ObjectPath)
	assert.Equal(t, "<constraints>/1", cons.Issues[1].ObjectPath)
}

func TestCategoryStatus(t *testing.T) {
	tests := []struct {
		severities []Severity
		want       Severity
	}{
		{nil, Pass},
		{[]Severity{Pass}, Pass},
		{[]Severity{Warn, Pass}, Warn},
		{[]Severity{Warn, Fail, Warn}, Fail},
		{[]Severity{Fail}, Fail},
	}
	for _, tt := range tests {
		c := NewCategory(CategoryNodes)
		for _, sev := range tt.severities {
			c.Add(sev, "x", "x", "", 0)
		}
		assert.Equal(t, tt.want, c.Status(), "%v", tt.severities)
	}
}

func TestExportReadyIgnoresWarnings(t *testing.T) {
	r := NewReport()
	r.Category(CategoryAnimation).Add(Warn, "animation.no_stacks", "x", PathAnimation, 0)
	assert.True(t, r.ExportReady())
	r.Category(CategorySkin).Add(Fail, "skin.bind_pose_missing", "x", PathPoses, 0)
	assert.False(t, r.ExportReady())
	assert.Len(t, r.Failures(), 1)
}

func TestCapture(t *testing.T) {
	g := memstore.NewGlobals()
	_ = g.SetAxisSystem(store.AxisMayaZUp)
	_ = g.SetTimeMode(store.TimeModeCustom)
	_ = g.SetCustomFrameRate(12)
	g.Disable(memstore.FeatureUnit)

	c := Capture(g)
	assert.Equal(t, store.AxisMayaZUp, *c.Axis)
	assert.Equal(t, store.UnitCentimeter, *c.Unit, "unreadable unit keeps the default")
	assert.True(t, c.Custom())
	assert.Equal(t, 12.0, c.FrameRate)
	require.NotNil(t, c.TimeSpan)
	assert.Equal(t, store.FrameTicks(12), c.OneFrame().Stop)

	clone := c.Clone()
	*clone.Axis = store.AxisDirectX
	assert.Equal(t, store.AxisMayaZUp, *c.Axis)
}

func TestCaptureSkipsInvalidSpan(t *testing.T) {
	g := memstore.NewGlobals()
	_ = g.SetDefaultTimeSpan(store.TimeSpan{Start: 5, Stop: 1})
	assert.Nil(t, Capture(g).TimeSpan)
}

func TestCanonicalMerge(t *testing.T) {
	c := DefaultCanonical()
	meter := store.UnitMeter
	mode := store.TimeModeCustom
	o := &Canonical{Unit: &meter, TimeMode: &mode, FrameRate: 12}

	c.Merge(o)
	assert.Equal(t, store.AxisMayaYUp, *c.Axis)
	assert.Equal(t, store.UnitMeter, *c.Unit)
	assert.True(t, c.Custom())
	assert.Equal(t, 12.0, c.FrameRate)
	assert.Nil(t, c.TimeSpan)

	*o.Unit = store.UnitInch
	assert.Equal(t, store.UnitMeter, *c.Unit, "merge copies values")

	c.Merge(&Canonical{FrameRate: 99})
	assert.Equal(t, 12.0, c.FrameRate, "a rate without a mode is ignored")
}

func TestMetricsDiff(t *testing.T) {
	base := Metrics{
		NodeCount:     3,
		MaterialCount: 2,
		Meshes: map[string]MeshMetrics{
			"/RootNode/A": {ControlPoints: 8, PolygonCount: 6, LayerElements: map[string]int{"normals:0": 24, "uv0:0": 14}},
			"/RootNode/B": {ControlPoints: 4, PolygonCount: 1},
		},
	}
	assert.Empty(t, base.Diff(base))

	actual := Metrics{
		NodeCount:     3,
		MaterialCount: 1,
		Meshes: map[string]MeshMetrics{
			"/RootNode/A": {ControlPoints: 8, PolygonCount: 5, LayerElements: map[string]int{"normals:0": 24, "vcolor:0": 8}},
		},
	}
	diff := actual.Diff(base)
	var metrics []string
	for _, d := range diff {
		metrics = append(metrics, d.Metric)
	}
	assert.Equal(t, []string{
		"material_count",
		"mesh:/RootNode/A:polygon_count",
		"mesh:/RootNode/A:layer:uv0:0",
		"mesh:/RootNode/A:layer:vcolor:0",
		"mesh:/RootNode/B",
	}, metrics)
	assert.Equal(t, MetricDiff{Metric: "material_count", Expected: 2, Actual: 1}, diff[0])
	assert.Equal(t, "material_count (expected 2, actual 1)", diff[0].String())
	assert.Nil(t, diff[4].Actual.(*MeshMetrics))

	reverse := base.Diff(actual)
	require.Len(t, reverse, len(diff))
	for i := range diff {
		assert.Equal(t, diff[i].Metric, reverse[i].Metric)
		assert.Equal(t, diff[i].Expected, reverse[i].Actual)
	}
}

func TestValidateDoesNotMutate(t *testing.T) {
	c := storetest.NewCharacter()
	_ = c.Scene.Settings().SetAxisSystem(store.AxisMayaZUp)
	before := c.Scene.Count()
	local, _ := c.Scene.LocalTransform(c.Spine)

	New(nil, nil).Validate(c.Scene)

	assert.Equal(t, before, c.Scene.Count())
	after, _ := c.Scene.LocalTransform(c.Spine)
	assert.Equal(t, local, after)
	axis, _ := c.Scene.Globals().AxisSystem()
	assert.Equal(t, store.AxisMayaZUp, axis)
	assert.Equal(t, math.V3(0, 0, 5), after.Rotation)
}
