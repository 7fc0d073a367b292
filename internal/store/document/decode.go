package document

import (
	"fmt"

	"github.com/link270/fbx-analyzer/internal/store"
	"github.com/link270/fbx-analyzer/internal/store/memstore"
	"github.com/link270/fbx-analyzer/pkg/math"
)

var features = map[string]memstore.Feature{
	FeatureAxis:            memstore.FeatureAxis,
	FeatureUnit:            memstore.FeatureUnit,
	FeatureTimeMode:        memstore.FeatureTimeMode,
	FeatureCustomFrameRate: memstore.FeatureCustomFrameRate,
	FeatureTimeSpan:        memstore.FeatureTimeSpan,
}

type decoder struct {
	scene *memstore.Scene
	// refs maps document ids to scene ids.
	refs  map[uint64]store.ID
	links []pendingLink
}

type pendingLink struct {
	cluster store.ID
	node    uint64
}

// resolve maps a document id, reserving a dangling scene id for references
// the document never defines.
func (d *decoder) resolve(ref uint64) store.ID {
	if id, ok := d.refs[ref]; ok {
		return id
	}
	id := d.scene.DanglingID()
	d.refs[ref] = id
	return id
}

func (d *decoder) node(ref uint64) (store.ID, error) {
	id, ok := d.refs[ref]
	if !ok {
		return 0, fmt.Errorf("%w: node %d", ErrRef, ref)
	}
	if obj, ok := d.scene.Object(id); !ok || obj.Kind != store.KindNode {
		return 0, fmt.Errorf("%w: node %d", ErrRef, ref)
	}
	return id, nil
}

// Decode builds a scene from a document. Objects are created in document
// order so repeated loads of the same file yield the same ids.
func Decode(doc *Document) (*memstore.Scene, error) {
	d := &decoder{scene: memstore.New(), refs: make(map[uint64]store.ID)}
	if err := d.globals(doc.Globals); err != nil {
		return nil, err
	}
	for _, t := range doc.Textures {
		d.refs[t.ID] = d.scene.AddTexture(t.Name, t.File)
	}
	for _, m := range doc.Materials {
		var channels []store.TextureChannel
		for _, ch := range m.Channels {
			tc := store.TextureChannel{Name: ch.Name}
			for _, ref := range ch.Textures {
				tc.Textures = append(tc.Textures, d.resolve(ref))
			}
			channels = append(channels, tc)
		}
		d.refs[m.ID] = d.scene.AddMaterial(m.Name, channels...)
	}

	root := d.scene.Root()
	d.scene.SetName(root, doc.Root.Name)
	d.refs[doc.Root.ID] = root
	if err := d.fill(root, &doc.Root); err != nil {
		return nil, err
	}
	for _, l := range d.links {
		link, err := d.node(l.node)
		if err != nil {
			return nil, fmt.Errorf("cluster link: %w", err)
		}
		if err := d.scene.SetClusterLink(l.cluster, link); err != nil {
			return nil, err
		}
	}

	for _, p := range doc.Poses {
		pose := store.Pose{Name: p.Name, Bind: p.Bind}
		for _, e := range p.Entries {
			node, err := d.node(e.Node)
			if err != nil {
				return nil, fmt.Errorf("pose %q: %w", p.Name, err)
			}
			pose.Entries = append(pose.Entries, store.PoseEntry{Node: node, Matrix: math.Mat4(e.Matrix)})
		}
		if _, err := d.scene.AddPose(pose); err != nil {
			return nil, err
		}
	}
	for _, st := range doc.AnimStacks {
		id := d.scene.AddAnimStack(st.Name, store.TimeSpan{Start: st.Start, Stop: st.Stop})
		for _, layer := range st.Layers {
			d.scene.AddAnimLayer(id, layer)
		}
	}
	for _, c := range doc.AnimCurves {
		var node store.ID
		if c.Node != nil {
			if id, err := d.node(*c.Node); err == nil {
				node = id
			}
		}
		d.scene.AddAnimCurve(c.Name, node, c.Property)
	}
	for _, c := range doc.Constraints {
		var sources, targets []store.ID
		for _, ref := range c.Sources {
			sources = append(sources, d.resolve(ref))
		}
		for _, ref := range c.Targets {
			targets = append(targets, d.resolve(ref))
		}
		d.scene.AddConstraint(c.Name, sources, targets)
	}
	return d.scene, nil
}

func (d *decoder) globals(g Globals) error {
	settings := d.scene.Settings()
	if g.Axis != nil {
		_ = settings.SetAxisSystem(*g.Axis)
	}
	if g.UnitScale != nil {
		_ = settings.SetSystemUnit(store.SystemUnit{ScaleFactor: *g.UnitScale})
	}
	if g.TimeMode != "" {
		mode, err := store.ParseTimeMode(g.TimeMode)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrFormat, err)
		}
		_ = settings.SetTimeMode(mode)
	}
	if g.CustomFrameRate != nil {
		_ = settings.SetCustomFrameRate(*g.CustomFrameRate)
	}
	if g.TimeSpan != nil {
		_ = settings.SetDefaultTimeSpan(*g.TimeSpan)
	}
	for _, name := range g.Unsupported {
		f, ok := features[name]
		if !ok {
			return fmt.Errorf("%w: unknown global setting %q", ErrFormat, name)
		}
		settings.Disable(f)
	}
	return nil
}

func (d *decoder) fill(id store.ID, n *Node) error {
	t := store.Transform{
		Translation: math.FromArray(n.Translation),
		Rotation:    math.FromArray(n.Rotation),
		Scaling:     math.FromArray(n.Scaling),
	}
	if err := d.scene.SetLocalTransform(id, t); err != nil {
		return err
	}
	if n.Attribute != nil {
		if err := d.attribute(id, n.Attribute); err != nil {
			return fmt.Errorf("node %q: %w", n.Name, err)
		}
	}
	for _, ref := range n.Materials {
		d.scene.AssignMaterial(id, d.resolve(ref))
	}
	for _, p := range n.Properties {
		flags, err := store.ParsePropertyFlags(p.Flags)
		if err != nil {
			return fmt.Errorf("%w: node %q: %v", ErrFormat, n.Name, err)
		}
		d.scene.SetProperty(id, store.Property{Name: p.Name, TypeName: p.Type, Value: p.Value, Flags: flags})
	}
	for i := range n.Children {
		child := &n.Children[i]
		if _, dup := d.refs[child.ID]; dup {
			return fmt.Errorf("%w: duplicate id %d", ErrFormat, child.ID)
		}
		cid := d.scene.AddNode(id, child.Name)
		d.refs[child.ID] = cid
		if err := d.fill(cid, child); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) attribute(node store.ID, a *Attribute) error {
	kind, ok := store.ParseKind(a.Kind)
	if !ok || !kind.IsAttribute() {
		return fmt.Errorf("%w: attribute kind %q", ErrFormat, a.Kind)
	}
	switch kind {
	case store.KindSkeleton:
		role, ok := parseRole(a.Role)
		if !ok {
			return fmt.Errorf("%w: skeleton role %q", ErrFormat, a.Role)
		}
		d.scene.AttachSkeleton(node, role)
	case store.KindMesh:
		if a.Mesh == nil {
			return fmt.Errorf("%w: mesh attribute without mesh data", ErrFormat)
		}
		return d.mesh(node, a.Mesh)
	default:
		typeName := a.Type
		if typeName == "" {
			typeName = kind.String()
		}
		d.scene.AttachAttribute(node, kind, typeName)
	}
	return nil
}

func parseRole(name string) (store.SkeletonRole, bool) {
	for _, r := range store.SkeletonRoles() {
		if r.String() == name {
			return r, true
		}
	}
	return 0, false
}

func (d *decoder) mesh(node store.ID, m *Mesh) error {
	spec := memstore.MeshSpec{ControlPoints: m.ControlPoints, Polygons: m.Polygons}
	for _, l := range m.Layers {
		layer := store.Layer{Index: l.Index}
		for _, e := range l.Elements {
			el, err := element(e)
			if err != nil {
				return err
			}
			layer.Elements = append(layer.Elements, el)
		}
		spec.Layers = append(spec.Layers, layer)
	}
	meshID := d.scene.AttachMesh(node, spec)
	for _, sk := range m.Skins {
		skin := d.scene.AddSkin(meshID, sk.Name)
		for _, c := range sk.Clusters {
			cluster := store.Cluster{IndexCount: c.Indices, WeightCount: c.Weights}
			if c.Transform != nil {
				cluster.Transform = math.Mat4(*c.Transform)
				cluster.TransformOK = true
			}
			if c.LinkTransform != nil {
				cluster.LinkTransform = math.Mat4(*c.LinkTransform)
				cluster.LinkTransformOK = true
			}
			id := d.scene.AddCluster(skin, c.Name, cluster)
			if c.Link != nil {
				d.links = append(d.links, pendingLink{cluster: id, node: *c.Link})
			}
		}
	}
	return nil
}

func element(e Element) (store.LayerElement, error) {
	channel, ok := store.ParseChannel(e.Channel)
	if !ok {
		return store.LayerElement{}, fmt.Errorf("%w: layer channel %q", ErrFormat, e.Channel)
	}
	mapping, ok := store.ParseMappingMode(e.Mapping)
	if !ok {
		return store.LayerElement{}, fmt.Errorf("%w: mapping mode %q", ErrFormat, e.Mapping)
	}
	reference, ok := store.ParseReferenceMode(e.Reference)
	if !ok {
		return store.LayerElement{}, fmt.Errorf("%w: reference mode %q", ErrFormat, e.Reference)
	}
	return store.LayerElement{
		Channel:     channel,
		Set:         e.Set,
		Mapping:     mapping,
		Reference:   reference,
		DirectCount: e.Direct,
		IndexCount:  e.Index,
	}, nil
}
