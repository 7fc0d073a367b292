package memstore

import (
	"fmt"

	"github.com/link270/fbx-analyzer/internal/store"
)

// Builder methods populate a scene from codecs and tests. They panic only
// on programming errors such as attaching to an id that is not a node.

// AddNode creates a node under parent.
func (s *Scene) AddNode(parent store.ID, name string) store.ID {
	id := s.newNode(name)
	if err := s.AddChild(parent, id); err != nil {
		panic(fmt.Sprintf("memstore: add node %q: %v", name, err))
	}
	return id
}

// SetName renames an object.
func (s *Scene) SetName(id store.ID, name string) {
	if o, ok := s.objects[id]; ok {
		o.Name = name
	}
}

func (s *Scene) mustNode(id store.ID) *nodeData {
	n, err := s.nodeOf(id)
	if err != nil {
		panic(fmt.Sprintf("memstore: %v", err))
	}
	return n
}

func (s *Scene) attach(node store.ID, o *object) store.ID {
	n := s.mustNode(node)
	if n.attr != 0 {
		s.destroyAttribute(n.attr)
	}
	o.attr.node = node
	if o.Name == "" {
		o.Name = s.Name(node)
	}
	n.attr = s.add(o)
	return n.attr
}

// AttachAttribute attaches a plain attribute such as a null, camera or light.
func (s *Scene) AttachAttribute(node store.ID, kind store.Kind, typeName string) store.ID {
	return s.attach(node, &object{
		Object: store.Object{Kind: kind, ClassName: kind.String()},
		attr:   &attrData{typeName: typeName},
	})
}

// AttachSkeleton attaches a skeleton attribute with the given role.
func (s *Scene) AttachSkeleton(node store.ID, role store.SkeletonRole) store.ID {
	return s.attach(node, &object{
		Object: store.Object{Kind: store.KindSkeleton, ClassName: "Skeleton"},
		attr:   &attrData{typeName: role.String(), role: role},
	})
}

// MeshSpec describes mesh geometry for AttachMesh.
type MeshSpec struct {
	ControlPoints int
	Polygons      int
	Layers        []store.Layer
}

// AttachMesh attaches a mesh attribute.
func (s *Scene) AttachMesh(node store.ID, spec MeshSpec) store.ID {
	layers := make([]store.Layer, len(spec.Layers))
	for i, l := range spec.Layers {
		layers[i] = store.Layer{Index: l.Index, Elements: append([]store.LayerElement(nil), l.Elements...)}
	}
	return s.attach(node, &object{
		Object: store.Object{Kind: store.KindMesh, ClassName: "Mesh"},
		attr:   &attrData{typeName: "Mesh"},
		mesh: &meshData{
			controlPoints: spec.ControlPoints,
			polygons:      spec.Polygons,
			layers:        layers,
		},
	})
}

// AddSkin adds a skin deformer to a mesh attribute.
func (s *Scene) AddSkin(mesh store.ID, name string) store.ID {
	o, ok := s.objects[mesh]
	if !ok || o.mesh == nil {
		panic(fmt.Sprintf("memstore: %d is not a mesh", mesh))
	}
	id := s.add(&object{
		Object: store.Object{Name: name, Kind: store.KindSkin, ClassName: "Skin"},
		skin:   &skinData{mesh: mesh},
	})
	o.mesh.skins = append(o.mesh.skins, id)
	return id
}

// AddCluster adds a cluster to a skin. The id field of c is ignored.
func (s *Scene) AddCluster(skin store.ID, name string, c store.Cluster) store.ID {
	o, ok := s.objects[skin]
	if !ok || o.skin == nil {
		panic(fmt.Sprintf("memstore: %d is not a skin", skin))
	}
	cluster := c
	id := s.add(&object{
		Object:  store.Object{Name: name, Kind: store.KindCluster, ClassName: "Cluster"},
		cluster: &cluster,
	})
	cluster.ID = id
	o.skin.clusters = append(o.skin.clusters, id)
	return id
}

// AddMaterial adds a material. Channel texture ids may be dangling.
func (s *Scene) AddMaterial(name string, channels ...store.TextureChannel) store.ID {
	m := &store.Material{Name: name, Channels: append([]store.TextureChannel(nil), channels...)}
	id := s.add(&object{
		Object:   store.Object{Name: name, Kind: store.KindMaterial, ClassName: "SurfaceMaterial"},
		material: m,
	})
	m.ID = id
	return id
}

// AddTexture adds a file texture.
func (s *Scene) AddTexture(name, fileName string) store.ID {
	t := &store.Texture{Name: name, FileName: fileName}
	id := s.add(&object{
		Object:  store.Object{Name: name, Kind: store.KindTexture, ClassName: "FileTexture"},
		texture: t,
	})
	t.ID = id
	return id
}

// AssignMaterial appends a material slot to a node. The id may be dangling.
func (s *Scene) AssignMaterial(node, material store.ID) {
	n := s.mustNode(node)
	n.materials = append(n.materials, material)
}

// AddAnimStack adds an animation stack.
func (s *Scene) AddAnimStack(name string, span store.TimeSpan) store.ID {
	st := &store.AnimStack{Name: name, LocalSpan: span}
	id := s.add(&object{
		Object: store.Object{Name: name, Kind: store.KindAnimStack, ClassName: "AnimStack"},
		stack:  st,
	})
	st.ID = id
	return id
}

// AddAnimLayer adds a layer to an animation stack.
func (s *Scene) AddAnimLayer(stack store.ID, name string) store.ID {
	o, ok := s.objects[stack]
	if !ok || o.stack == nil {
		panic(fmt.Sprintf("memstore: %d is not an animation stack", stack))
	}
	id := s.add(&object{Object: store.Object{Name: name, Kind: store.KindAnimLayer, ClassName: "AnimLayer"}})
	o.stack.Layers = append(o.stack.Layers, id)
	return id
}

// AddAnimCurve adds an animation curve. When node is non-zero the node's
// local transform property named by prop is flagged as animated.
func (s *Scene) AddAnimCurve(name string, node store.ID, prop string) store.ID {
	id := s.add(&object{Object: store.Object{Name: name, Kind: store.KindAnimCurve, ClassName: "AnimCurve"}})
	if node != 0 {
		s.SetProperty(node, store.Property{Name: prop, Flags: store.FlagAnimatable | store.FlagAnimated})
		s.extra = append(s.extra, store.Connection{Src: id, Dst: node, Property: prop})
	}
	return id
}

// AddConstraint adds a constraint between objects.
func (s *Scene) AddConstraint(name string, sources, targets []store.ID) store.ID {
	c := &store.Constraint{
		Name:    name,
		Sources: append([]store.ID(nil), sources...),
		Targets: append([]store.ID(nil), targets...),
	}
	id := s.add(&object{
		Object:     store.Object{Name: name, Kind: store.KindConstraint, ClassName: "Constraint"},
		constraint: c,
	})
	c.ID = id
	return id
}

// SetProperty adds or replaces a property on any object.
func (s *Scene) SetProperty(id store.ID, p store.Property) {
	o, ok := s.objects[id]
	if !ok {
		panic(fmt.Sprintf("memstore: %v: %d", store.ErrNotFound, id))
	}
	for i := range o.props {
		if o.props[i].Name == p.Name {
			o.props[i] = p
			return
		}
	}
	o.props = append(o.props, p)
}

// DeleteProperty removes a stored property.
func (s *Scene) DeleteProperty(id store.ID, name string) bool {
	o, ok := s.objects[id]
	if !ok {
		return false
	}
	for i := range o.props {
		if o.props[i].Name == name {
			o.props = append(o.props[:i], o.props[i+1:]...)
			return true
		}
	}
	return false
}

// StoredProperties returns the properties set through SetProperty.
func (s *Scene) StoredProperties(id store.ID) []store.Property {
	o, ok := s.objects[id]
	if !ok {
		return nil
	}
	return append([]store.Property(nil), o.props...)
}

// SetTransformUnreadable makes LocalTransform fail for a node until the
// next SetLocalTransform.
func (s *Scene) SetTransformUnreadable(node store.ID, unreadable bool) {
	s.mustNode(node).unreadable = unreadable
}

// DisableSkeletonRole makes SetSkeletonRole reject a role.
func (s *Scene) DisableSkeletonRole(role store.SkeletonRole) {
	s.noRoles[role] = true
}

// Connect records an explicit connection between two objects.
func (s *Scene) Connect(c store.Connection) {
	s.extra = append(s.extra, c)
}

// Count returns the number of live objects.
func (s *Scene) Count() int { return len(s.objects) }

// SetClusterLink points a cluster at a joint node.
func (s *Scene) SetClusterLink(cluster, link store.ID) error {
	c, err := s.clusterOf(cluster)
	if err != nil {
		return err
	}
	if _, err := s.nodeOf(link); err != nil {
		return err
	}
	c.Link = link
	c.HasLink = true
	return nil
}

// DanglingID reserves an id that never resolves to an object.
func (s *Scene) DanglingID() store.ID {
	id := s.nextID
	s.nextID++
	return id
}
