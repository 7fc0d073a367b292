package validation

import (
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/link270/fbx-analyzer/internal/store"
)

// Object paths used for scene-wide issues.
const (
	PathGlobals     = "<globals>"
	PathPoses       = "<poses>"
	PathAnimation   = "<animation>"
	PathConstraints = "<constraints>"
)

// Tolerance is the relative tolerance for unit scale and frame rate.
const Tolerance = 1e-6

// TextureChannels are the material channels checked for texture bindings.
var TextureChannels = []string{
	store.ChannelDiffuse, store.ChannelSpecular, store.ChannelNormalMap,
	store.ChannelBump, store.ChannelEmissive, store.ChannelBaseColor,
}

// Validator checks scenes against canonical settings.
type Validator struct {
	canonical *Canonical
	log       *zap.Logger
}

// New returns a validator. A nil canonical uses DefaultCanonical.
func New(canonical *Canonical, log *zap.Logger) *Validator {
	if canonical == nil {
		canonical = DefaultCanonical()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Validator{canonical: canonical, log: log}
}

// Canonical returns the settings in use. The time span may have been
// captured by a Validate call.
func (v *Validator) Canonical() *Canonical { return v.canonical }

// Validate runs every category against s and collects metrics.
func (v *Validator) Validate(s store.Scene) *Report {
	v.canonical.captureSpan(s.Globals())

	r := NewReport()
	meshes := meshNodes(s)
	v.globals(s.Globals(), r.Category(CategoryGlobals))
	nodes(s, r.Category(CategoryNodes))
	meshMetrics := geometry(s, meshes, r.Category(CategoryGeometry))
	skin(s, meshes, r.Category(CategorySkin))
	materials(s, meshes, r.Category(CategoryMaterials))
	animation(s, r.Category(CategoryAnimation))
	constraints(s, r.Category(CategoryConstraints))
	connections(s, meshes, r.Category(CategoryConnections))
	r.Metrics = collectMetrics(s, meshes, meshMetrics)

	for _, c := range r.Categories {
		v.log.Debug("validated category",
			zap.String("category", c.Name),
			zap.String("status", string(c.Status())),
			zap.Int("issues", len(c.Issues)))
	}
	return r
}

type meshNode struct {
	id   store.ID
	path string
	mesh *store.Mesh
}

// meshNodes lists mesh-bearing nodes in traversal order.
func meshNodes(s store.Scene) []meshNode {
	var out []meshNode
	for _, id := range store.Descendants(s, s.Root()) {
		if mesh, ok := s.Mesh(id); ok {
			out = append(out, meshNode{id: id, path: store.NodePath(s, id), mesh: mesh})
		}
	}
	return out
}

func (v *Validator) globals(g store.Globals, c *CategoryReport) {
	canon := v.canonical

	if canon.Axis != nil {
		if axis, err := g.AxisSystem(); err == nil && !axis.Equivalent(*canon.Axis) {
			c.Add(Fail, "globals.axis", "Axis system does not match canonical settings.", PathGlobals, 0)
		}
	}

	if canon.Unit != nil {
		unit, err := g.SystemUnit()
		switch {
		case err != nil:
			c.Add(Warn, "globals.system_unit_unknown", "System unit information unavailable; unable to verify.", PathGlobals, 0)
		case !unit.ApproxEqual(*canon.Unit, Tolerance):
			c.Add(Fail, "globals.system_unit", "System unit scale mismatch.", PathGlobals, 0)
		}
	}

	if canon.TimeMode != nil {
		mode, err := g.TimeMode()
		if err != nil {
			v.log.Debug("time mode unreadable", zap.Error(err))
		} else if mode != *canon.TimeMode {
			c.Add(Fail, "globals.time_mode", "Time mode does not match canonical export configuration.", PathGlobals, 0)
		}
	}

	if canon.Custom() {
		rate, err := g.CustomFrameRate()
		switch {
		case err != nil:
			c.Add(Warn, "globals.frame_rate_unknown", "Custom frame rate unavailable; unable to verify.", PathGlobals, 0)
		case !store.IsClose(rate, canon.FrameRate, Tolerance):
			c.Add(Fail, "globals.frame_rate", "Custom frame rate does not match canonical export configuration.", PathGlobals, 0)
		}
	}

	span, err := g.DefaultTimeSpan()
	if err != nil {
		if !errors.Is(err, store.ErrUnsupported) {
			v.log.Debug("time span unreadable", zap.Error(err))
		}
		c.Add(Warn, "globals.time_span_unknown", "Timeline default time span accessor unavailable; unable to validate span.", PathGlobals, 0)
		return
	}
	if !span.Valid() {
		c.Add(Fail, "globals.time_span", "Global time span is invalid (start >= stop).", PathGlobals, 0)
	}
}

func nodes(s store.Scene, c *CategoryReport) {
	root := s.Root()
	if obj, ok := s.Object(root); !ok || obj.Kind != store.KindNode {
		c.Add(Fail, "nodes.missing_root", "Scene has no root node.", "/", 0)
		return
	}
	for _, id := range store.Descendants(s, root) {
		if _, ok := s.Attribute(id); id != root && !ok {
			c.Add(Warn, "nodes.missing_attribute", "Node has no attribute; downstream tools may ignore it.", store.NodePath(s, id), id)
		}
		if _, err := s.LocalTransform(id); err != nil {
			c.Add(Fail, "nodes.transform_read", "Failed to read local transforms for node.", store.NodePath(s, id), id)
		}
	}
}

func geometry(s store.Scene, meshes []meshNode, c *CategoryReport) map[string]MeshMetrics {
	out := make(map[string]MeshMetrics, len(meshes))
	seen := make(map[string]int)
	for _, m := range meshes {
		if m.mesh.ControlPoints <= 0 {
			c.Add(Fail, "geometry.control_points", "Mesh has no control points.", m.path, m.id)
		}
		if m.mesh.Polygons <= 0 {
			c.Add(Fail, "geometry.polygons", "Mesh has no polygons.", m.path, m.id)
		}
		layers := make(map[string]int)
		for _, layer := range m.mesh.Layers {
			for _, el := range layer.Elements {
				layerElement(c, el, m)
				layers[el.MetricKey(layer.Index)] = el.DirectCount
			}
		}

		key := m.path
		seen[m.path]++
		if n := seen[m.path]; n > 1 {
			key = m.path + "#" + strconv.Itoa(n)
		}
		out[key] = MeshMetrics{ControlPoints: m.mesh.ControlPoints, PolygonCount: m.mesh.Polygons, LayerElements: layers}
	}
	return out
}

func layerElement(c *CategoryReport, el store.LayerElement, m meshNode) {
	label := el.Label()
	if el.DirectCount == 0 {
		c.Add(Warn, "geometry.layer."+label+".empty", fmt.Sprintf("Layer element %s has no direct data.", label), m.path, m.id)
	}
	if el.Mapping == store.MappingNone {
		c.Add(Fail, "geometry.layer."+label+".mapping", fmt.Sprintf("Layer element %s has invalid mapping mode.", label), m.path, m.id)
	}
	if el.IndexCount == 0 && el.Reference != store.ReferenceDirect {
		c.Add(Warn, "geometry.layer."+label+".index", fmt.Sprintf("Layer element %s has empty index array.", label), m.path, m.id)
	}
}

func skin(s store.Scene, meshes []meshNode, c *CategoryReport) {
	for _, m := range meshes {
		for _, sk := range m.mesh.Skins {
			if len(sk.Clusters) == 0 {
				c.Add(Fail, "skin.no_clusters", "Skin deformer has no clusters.", m.path, m.id)
				continue
			}
			for _, cl := range sk.Clusters {
				if !cl.HasLink {
					c.Add(Fail, "skin.cluster_link", "Skin cluster missing joint link.", m.path, m.id)
				}
				if cl.IndexCount == 0 || cl.WeightCount == 0 {
					c.Add(Fail, "skin.cluster_weights", "Skin cluster has empty weights.", m.path, m.id)
				}
				if !cl.TransformOK {
					c.Add(Fail, "skin.cluster_matrix", "Skin cluster missing transform matrix.", m.path, m.id)
				}
				if !cl.LinkTransformOK {
					c.Add(Fail, "skin.cluster_link_matrix", "Skin cluster missing link matrix.", m.path, m.id)
				}
			}
		}
	}

	bindPose := false
	for _, p := range s.Poses() {
		if !p.Bind {
			continue
		}
		bindPose = true
		if len(p.Entries) == 0 {
			c.Add(Fail, "skin.bind_pose_empty", "Bind pose has no nodes.", PathPoses, p.ID)
		}
	}
	if !bindPose {
		c.Add(Fail, "skin.bind_pose_missing", "No bind pose present in scene.", PathPoses, 0)
	}
}

func materials(s store.Scene, meshes []meshNode, c *CategoryReport) {
	for _, m := range meshes {
		slots := s.NodeMaterials(m.id)
		if len(slots) == 0 && m.mesh.MaterialElementCount() > 0 {
			c.Add(Fail, "materials.node_assignment", "Mesh has material layer but node has no materials assigned.", m.path, m.id)
		}
		for _, slot := range slots {
			mat, ok := s.Material(slot)
			if !ok {
				c.Add(Fail, "materials.missing", "Material slot references a missing material.", m.path, m.id)
				continue
			}
			for _, name := range TextureChannels {
				ch, ok := mat.Channel(name)
				if !ok || len(ch.Textures) == 0 {
					continue
				}
				resolved := false
				for _, tex := range ch.Textures {
					if _, ok := s.Texture(tex); ok {
						resolved = true
						break
					}
				}
				if !resolved {
					c.Add(Warn, "materials.texture_missing", fmt.Sprintf("Texture slot '%s' is missing its texture connection.", name), m.path, m.id)
				}
			}
		}
	}
}

func animation(s store.Scene, c *CategoryReport) {
	stacks := s.Objects(store.KindAnimStack)
	if len(stacks) == 0 {
		c.Add(Warn, "animation.no_stacks", "Scene has no animation stacks.", PathAnimation, 0)
		return
	}
	for i, id := range stacks {
		stack, ok := s.AnimStack(id)
		if !ok {
			continue
		}
		label := stack.Name
		if label == "" {
			label = strconv.Itoa(i)
		}
		path := PathAnimation + "/" + label
		if !stack.LocalSpan.Valid() {
			c.Add(Fail, "animation.time_span", fmt.Sprintf("Animation stack '%s' has invalid time span.", stack.Name), path, id)
		}
		if len(stack.Layers) == 0 {
			c.Add(Warn, "animation.no_layers", fmt.Sprintf("Animation stack '%s' has no layers.", stack.Name), path, id)
		}
	}
}

func constraints(s store.Scene, c *CategoryReport) {
	for i, id := range s.Objects(store.KindConstraint) {
		con, ok := s.Constraint(id)
		if !ok {
			continue
		}
		if len(con.Sources) == 0 || len(con.Targets) == 0 {
			label := con.Name
			if label == "" {
				label = strconv.Itoa(i)
			}
			c.Add(Fail, "constraints.links", fmt.Sprintf("Constraint '%s' is missing sources or targets.", con.Name), PathConstraints+"/"+label, id)
		}
	}
}

func connections(s store.Scene, meshes []meshNode, c *CategoryReport) {
	for _, m := range meshes {
		if len(m.mesh.Skins) > 0 && !hasClusterLink(m.mesh) {
			c.Add(Fail, "connections.mesh_skin_links", "Skinned mesh lacks valid joint connections.", m.path, m.id)
		}
		if len(s.NodeMaterials(m.id)) > 0 && m.mesh.MaterialElementCount() == 0 {
			c.Add(Warn, "connections.material_layer", "Mesh has materials assigned but no material layer element.", m.path, m.id)
		}
	}
}

func hasClusterLink(mesh *store.Mesh) bool {
	for _, sk := range mesh.Skins {
		for _, cl := range sk.Clusters {
			if cl.HasLink {
				return true
			}
		}
	}
	return false
}

func collectMetrics(s store.Scene, meshes []meshNode, meshMetrics map[string]MeshMetrics) Metrics {
	m := Metrics{
		NodeCount:      len(store.Descendants(s, s.Root())),
		Meshes:         meshMetrics,
		MaterialCount:  len(s.Objects(store.KindMaterial)),
		TextureCount:   len(s.Objects(store.KindTexture)),
		AnimStackCount: len(s.Objects(store.KindAnimStack)),
		AnimCurveCount: len(s.Objects(store.KindAnimCurve)),
	}
	for _, mn := range meshes {
		for _, sk := range mn.mesh.Skins {
			m.SkinClusterCount += len(sk.Clusters)
		}
	}
	for _, p := range s.Poses() {
		if p.Bind {
			m.BindPoseCount++
		}
	}
	return m
}
