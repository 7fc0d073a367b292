package document

import (
	"errors"
	"fmt"

	"github.com/link270/fbx-analyzer/internal/store"
)

// Feature names used in Globals.Unsupported.
const (
	FeatureAxis            = "axis"
	FeatureUnit            = "unit"
	FeatureTimeMode        = "time_mode"
	FeatureCustomFrameRate = "custom_frame_rate"
	FeatureTimeSpan        = "time_span"
)

// Encode converts any store scene into a document.
func Encode(s store.Scene) (*Document, error) {
	doc := &Document{Format: Magic}
	if err := encodeGlobals(s.Globals(), &doc.Globals); err != nil {
		return nil, err
	}
	curves := curveTargets(s)
	root, err := encodeNode(s, s.Root(), make(map[store.ID]bool))
	if err != nil {
		return nil, err
	}
	doc.Root = root

	for _, id := range s.Objects(store.KindTexture) {
		if t, ok := s.Texture(id); ok {
			doc.Textures = append(doc.Textures, Texture{ID: uint64(id), Name: t.Name, File: t.FileName})
		}
	}
	for _, id := range s.Objects(store.KindMaterial) {
		m, ok := s.Material(id)
		if !ok {
			continue
		}
		dm := Material{ID: uint64(id), Name: m.Name}
		for _, ch := range m.Channels {
			dm.Channels = append(dm.Channels, Channel{Name: ch.Name, Textures: ids(ch.Textures)})
		}
		doc.Materials = append(doc.Materials, dm)
	}
	for _, p := range s.Poses() {
		dp := Pose{Name: p.Name, Bind: p.Bind}
		for _, e := range p.Entries {
			dp.Entries = append(dp.Entries, PoseEntry{Node: uint64(e.Node), Matrix: [16]float64(e.Matrix)})
		}
		doc.Poses = append(doc.Poses, dp)
	}
	for _, id := range s.Objects(store.KindAnimStack) {
		st, ok := s.AnimStack(id)
		if !ok {
			continue
		}
		ds := AnimStack{Name: st.Name, Start: st.LocalSpan.Start, Stop: st.LocalSpan.Stop}
		for _, l := range st.Layers {
			ds.Layers = append(ds.Layers, s.Name(l))
		}
		doc.AnimStacks = append(doc.AnimStacks, ds)
	}
	for _, id := range s.Objects(store.KindAnimCurve) {
		dc := AnimCurve{Name: s.Name(id)}
		if target, ok := curves[id]; ok {
			node := uint64(target.Dst)
			dc.Node = &node
			dc.Property = target.Property
		}
		doc.AnimCurves = append(doc.AnimCurves, dc)
	}
	for _, id := range s.Objects(store.KindConstraint) {
		if c, ok := s.Constraint(id); ok {
			doc.Constraints = append(doc.Constraints, Constraint{Name: c.Name, Sources: ids(c.Sources), Targets: ids(c.Targets)})
		}
	}
	return doc, nil
}

func curveTargets(s store.Scene) map[store.ID]store.Connection {
	out := make(map[store.ID]store.Connection)
	for _, id := range s.Objects(store.KindAnimCurve) {
		for _, c := range s.Connections(id) {
			if c.Src != id {
				continue
			}
			if obj, ok := s.Object(c.Dst); ok && obj.Kind == store.KindNode {
				out[id] = c
				break
			}
		}
	}
	return out
}

func ids(in []store.ID) []uint64 {
	out := make([]uint64, len(in))
	for i, id := range in {
		out[i] = uint64(id)
	}
	return out
}

func encodeGlobals(g store.Globals, out *Globals) error {
	unsupported := func(feature string, err error) error {
		if errors.Is(err, store.ErrUnsupported) {
			out.Unsupported = append(out.Unsupported, feature)
			return nil
		}
		return fmt.Errorf("read %s: %w", feature, err)
	}
	if axis, err := g.AxisSystem(); err == nil {
		out.Axis = &axis
	} else if err := unsupported(FeatureAxis, err); err != nil {
		return err
	}
	if unit, err := g.SystemUnit(); err == nil {
		out.UnitScale = &unit.ScaleFactor
	} else if err := unsupported(FeatureUnit, err); err != nil {
		return err
	}
	if mode, err := g.TimeMode(); err == nil {
		out.TimeMode = mode.String()
	} else if err := unsupported(FeatureTimeMode, err); err != nil {
		return err
	}
	if rate, err := g.CustomFrameRate(); err == nil {
		out.CustomFrameRate = &rate
	} else if err := unsupported(FeatureCustomFrameRate, err); err != nil {
		return err
	}
	if span, err := g.DefaultTimeSpan(); err == nil {
		out.TimeSpan = &span
	} else if err := unsupported(FeatureTimeSpan, err); err != nil {
		return err
	}
	return nil
}

func encodeNode(s store.Scene, id store.ID, seen map[store.ID]bool) (Node, error) {
	if seen[id] {
		return Node{}, fmt.Errorf("%w: node %d visited twice", store.ErrCycle, id)
	}
	seen[id] = true
	n := Node{ID: uint64(id), Name: s.Name(id)}
	local, err := s.LocalTransform(id)
	if err != nil {
		return Node{}, fmt.Errorf("node %q: %w", n.Name, err)
	}
	n.Translation = local.Translation.Array()
	n.Rotation = local.Rotation.Array()
	n.Scaling = local.Scaling.Array()

	if attr, ok := s.Attribute(id); ok {
		da := &Attribute{Kind: attr.Kind.String(), Type: attr.TypeName}
		if attr.Kind == store.KindSkeleton {
			da.Role = attr.Role.String()
			da.Type = ""
		}
		if mesh, ok := s.Mesh(id); ok {
			da.Mesh = encodeMesh(s, mesh)
		}
		n.Attribute = da
	}
	n.Materials = ids(s.NodeMaterials(id))
	if len(n.Materials) == 0 {
		n.Materials = nil
	}
	if props, err := s.Properties(id); err == nil {
		for _, p := range props {
			if store.IsTransformProperty(p.Name) {
				continue
			}
			n.Properties = append(n.Properties, Property{Name: p.Name, Type: p.TypeName, Value: p.Value, Flags: p.Flags.Names()})
		}
	}
	for _, child := range s.Children(id) {
		c, err := encodeNode(s, child, seen)
		if err != nil {
			return Node{}, err
		}
		n.Children = append(n.Children, c)
	}
	return n, nil
}

func encodeMesh(s store.Scene, m *store.Mesh) *Mesh {
	out := &Mesh{ControlPoints: m.ControlPoints, Polygons: m.Polygons}
	for _, layer := range m.Layers {
		dl := Layer{Index: layer.Index}
		for _, el := range layer.Elements {
			dl.Elements = append(dl.Elements, Element{
				Channel:   el.Channel.String(),
				Set:       el.Set,
				Mapping:   el.Mapping.String(),
				Reference: el.Reference.String(),
				Direct:    el.DirectCount,
				Index:     el.IndexCount,
			})
		}
		out.Layers = append(out.Layers, dl)
	}
	for _, skin := range m.Skins {
		ds := Skin{Name: skin.Name}
		for _, c := range skin.Clusters {
			dc := Cluster{Name: s.Name(c.ID), Indices: c.IndexCount, Weights: c.WeightCount}
			if c.HasLink {
				link := uint64(c.Link)
				dc.Link = &link
			}
			if c.TransformOK {
				mat := [16]float64(c.Transform)
				dc.Transform = &mat
			}
			if c.LinkTransformOK {
				mat := [16]float64(c.LinkTransform)
				dc.LinkTransform = &mat
			}
			ds.Clusters = append(ds.Clusters, dc)
		}
		out.Skins = append(out.Skins, ds)
	}
	return out
}
