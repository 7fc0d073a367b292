// Package memstore is an in-memory implementation of store.Scene. Objects
// live in an arena keyed by store.ID; nothing outside the package holds
// pointers into it.
package memstore

import (
	"fmt"

	"github.com/link270/fbx-analyzer/internal/store"
	"github.com/link270/fbx-analyzer/pkg/math"
)

// RootName is the name given to the root node of a new scene.
const RootName = "RootNode"

// Local transform property names.
const (
	PropTranslation = store.PropTranslation
	PropRotation    = store.PropRotation
	PropScaling     = store.PropScaling
)

type nodeData struct {
	parent     store.ID
	hasParent  bool
	children   []store.ID
	local      store.Transform
	unreadable bool
	attr       store.ID
	materials  []store.ID
}

type attrData struct {
	node     store.ID
	typeName string
	role     store.SkeletonRole
}

type meshData struct {
	controlPoints int
	polygons      int
	layers        []store.Layer
	skins         []store.ID
}

type skinData struct {
	mesh     store.ID
	clusters []store.ID
}

type object struct {
	store.Object
	props []store.Property

	node       *nodeData
	attr       *attrData
	mesh       *meshData
	skin       *skinData
	cluster    *store.Cluster
	material   *store.Material
	texture    *store.Texture
	pose       *store.Pose
	stack      *store.AnimStack
	constraint *store.Constraint
}

// Scene is an arena-backed scene. It is not safe for concurrent use.
type Scene struct {
	nextID  store.ID
	root    store.ID
	objects map[store.ID]*object
	order   []store.ID
	globals *Globals
	extra   []store.Connection
	noRoles map[store.SkeletonRole]bool
}

var _ store.Scene = (*Scene)(nil)

// New returns an empty scene containing only the root node.
func New() *Scene {
	s := &Scene{
		nextID:  1,
		objects: make(map[store.ID]*object),
		globals: NewGlobals(),
		noRoles: make(map[store.SkeletonRole]bool),
	}
	s.root = s.newNode(RootName)
	return s
}

func (s *Scene) add(o *object) store.ID {
	o.ID = s.nextID
	s.nextID++
	s.objects[o.ID] = o
	s.order = append(s.order, o.ID)
	return o.ID
}

func (s *Scene) remove(id store.ID) {
	delete(s.objects, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Scene) newNode(name string) store.ID {
	return s.add(&object{
		Object: store.Object{Name: name, Kind: store.KindNode, ClassName: "Node"},
		node:   &nodeData{local: store.IdentityTransform()},
	})
}

func (s *Scene) nodeOf(id store.ID) (*nodeData, error) {
	o, ok := s.objects[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", store.ErrNotFound, id)
	}
	if o.node == nil {
		return nil, fmt.Errorf("%w: %d", store.ErrNotNode, id)
	}
	return o.node, nil
}

// Root returns the root node id.
func (s *Scene) Root() store.ID { return s.root }

// Name returns an object's name, or "" when the id is unknown.
func (s *Scene) Name(id store.ID) string {
	if o, ok := s.objects[id]; ok {
		return o.Name
	}
	return ""
}

// Parent returns the parent of a node. The root has none.
func (s *Scene) Parent(id store.ID) (store.ID, bool) {
	n, err := s.nodeOf(id)
	if err != nil || !n.hasParent {
		return 0, false
	}
	return n.parent, true
}

// Children returns a copy of a node's ordered children.
func (s *Scene) Children(id store.ID) []store.ID {
	n, err := s.nodeOf(id)
	if err != nil {
		return nil
	}
	return append([]store.ID(nil), n.children...)
}

// CreateNode creates a detached node.
func (s *Scene) CreateNode(name string) (store.ID, error) {
	return s.newNode(name), nil
}

// DestroyNode removes a node and its attribute. Its children are detached
// and references from poses, clusters and constraints are dropped.
func (s *Scene) DestroyNode(id store.ID) error {
	if id == s.root {
		return store.ErrRoot
	}
	n, err := s.nodeOf(id)
	if err != nil {
		return err
	}
	if n.hasParent {
		if err := s.RemoveChild(n.parent, id); err != nil {
			return err
		}
	}
	for _, child := range n.children {
		if c, err := s.nodeOf(child); err == nil {
			c.hasParent = false
			c.parent = 0
		}
	}
	if n.attr != 0 {
		s.destroyAttribute(n.attr)
	}
	for _, o := range s.objects {
		switch {
		case o.pose != nil:
			entries := o.pose.Entries[:0]
			for _, e := range o.pose.Entries {
				if e.Node != id {
					entries = append(entries, e)
				}
			}
			o.pose.Entries = entries
		case o.cluster != nil:
			if o.cluster.HasLink && o.cluster.Link == id {
				o.cluster.HasLink = false
				o.cluster.Link = 0
			}
		case o.constraint != nil:
			o.constraint.Sources = without(o.constraint.Sources, id)
			o.constraint.Targets = without(o.constraint.Targets, id)
		}
	}
	extra := s.extra[:0]
	for _, c := range s.extra {
		if c.Src != id && c.Dst != id {
			extra = append(extra, c)
		}
	}
	s.extra = extra
	s.remove(id)
	return nil
}

func without(ids []store.ID, id store.ID) []store.ID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func (s *Scene) isAncestor(ancestor, id store.ID) bool {
	seen := make(map[store.ID]bool)
	for current, ok := id, true; ok && !seen[current]; current, ok = s.Parent(current) {
		if current == ancestor {
			return true
		}
		seen[current] = true
	}
	return false
}

// AddChild appends child to parent, detaching it from any previous parent.
func (s *Scene) AddChild(parent, child store.ID) error {
	if child == s.root {
		return store.ErrRoot
	}
	p, err := s.nodeOf(parent)
	if err != nil {
		return err
	}
	c, err := s.nodeOf(child)
	if err != nil {
		return err
	}
	if s.isAncestor(child, parent) {
		return fmt.Errorf("%w: %d under %d", store.ErrCycle, child, parent)
	}
	if c.hasParent {
		if c.parent == parent {
			return nil
		}
		if err := s.RemoveChild(c.parent, child); err != nil {
			return err
		}
	}
	p.children = append(p.children, child)
	c.parent = parent
	c.hasParent = true
	return nil
}

// RemoveChild detaches child from parent. The child stays in the scene.
func (s *Scene) RemoveChild(parent, child store.ID) error {
	p, err := s.nodeOf(parent)
	if err != nil {
		return err
	}
	c, err := s.nodeOf(child)
	if err != nil {
		return err
	}
	for i, id := range p.children {
		if id == child {
			p.children = append(p.children[:i], p.children[i+1:]...)
			c.hasParent = false
			c.parent = 0
			return nil
		}
	}
	return fmt.Errorf("%w: %d is not a child of %d", store.ErrNotFound, child, parent)
}

// LocalTransform returns a node's local transform.
func (s *Scene) LocalTransform(id store.ID) (store.Transform, error) {
	n, err := s.nodeOf(id)
	if err != nil {
		return store.Transform{}, err
	}
	if n.unreadable {
		return store.Transform{}, fmt.Errorf("node %d: local transform unreadable", id)
	}
	return n.local, nil
}

// SetLocalTransform replaces a node's local transform.
func (s *Scene) SetLocalTransform(id store.ID, t store.Transform) error {
	n, err := s.nodeOf(id)
	if err != nil {
		return err
	}
	n.local = t
	n.unreadable = false
	return nil
}

// WorldTransform composes local matrices from the root down.
func (s *Scene) WorldTransform(id store.ID) (math.Mat4, error) {
	var chain []store.ID
	seen := make(map[store.ID]bool)
	for current, ok := id, true; ok; current, ok = s.Parent(current) {
		if seen[current] {
			return math.Mat4{}, fmt.Errorf("%w: at %d", store.ErrCycle, current)
		}
		seen[current] = true
		chain = append(chain, current)
	}
	world := math.Identity()
	for i := len(chain) - 1; i >= 0; i-- {
		local, err := s.LocalTransform(chain[i])
		if err != nil {
			return math.Mat4{}, err
		}
		world = world.Mul(local.Matrix())
	}
	return world, nil
}

// Attribute returns the attribute attached to a node.
func (s *Scene) Attribute(id store.ID) (store.Attribute, bool) {
	n, err := s.nodeOf(id)
	if err != nil || n.attr == 0 {
		return store.Attribute{}, false
	}
	o, ok := s.objects[n.attr]
	if !ok || o.attr == nil {
		return store.Attribute{}, false
	}
	return store.Attribute{
		ID:        o.ID,
		Kind:      o.Kind,
		TypeName:  o.attr.typeName,
		ClassName: o.ClassName,
		Role:      o.attr.role,
	}, true
}

// SupportsSkeletonRole reports whether the role can be assigned.
func (s *Scene) SupportsSkeletonRole(role store.SkeletonRole) bool {
	if s.noRoles[role] {
		return false
	}
	return role >= store.RoleRoot && role <= store.RoleEffector
}

// SetSkeletonRole makes sure the node carries a skeleton attribute with the
// given role, replacing any other attribute.
func (s *Scene) SetSkeletonRole(id store.ID, role store.SkeletonRole) error {
	if !s.SupportsSkeletonRole(role) {
		return fmt.Errorf("%w: skeleton role %s", store.ErrUnsupported, role)
	}
	n, err := s.nodeOf(id)
	if err != nil {
		return err
	}
	if attr, ok := s.Attribute(id); ok && attr.Kind == store.KindSkeleton {
		o := s.objects[attr.ID]
		o.attr.role = role
		o.attr.typeName = role.String()
		return nil
	}
	if n.attr != 0 {
		s.destroyAttribute(n.attr)
	}
	name := s.Name(id)
	if name == "" {
		name = "Skeleton"
	}
	n.attr = s.add(&object{
		Object: store.Object{Name: name, Kind: store.KindSkeleton, ClassName: "Skeleton"},
		attr:   &attrData{node: id, typeName: role.String(), role: role},
	})
	return nil
}

// ClearAttribute detaches and destroys a node's attribute.
func (s *Scene) ClearAttribute(id store.ID) error {
	n, err := s.nodeOf(id)
	if err != nil {
		return err
	}
	if n.attr != 0 {
		s.destroyAttribute(n.attr)
		n.attr = 0
	}
	return nil
}

func (s *Scene) destroyAttribute(id store.ID) {
	o, ok := s.objects[id]
	if !ok {
		return
	}
	if o.mesh != nil {
		for _, skinID := range o.mesh.skins {
			if skin, ok := s.objects[skinID]; ok && skin.skin != nil {
				for _, c := range skin.skin.clusters {
					s.remove(c)
				}
			}
			s.remove(skinID)
		}
	}
	s.remove(id)
}

// Mesh returns a snapshot of the mesh attached to a node.
func (s *Scene) Mesh(node store.ID) (*store.Mesh, bool) {
	attr, ok := s.Attribute(node)
	if !ok || attr.Kind != store.KindMesh {
		return nil, false
	}
	md := s.objects[attr.ID].mesh
	m := &store.Mesh{
		ID:            attr.ID,
		ControlPoints: md.controlPoints,
		Polygons:      md.polygons,
	}
	for _, layer := range md.layers {
		m.Layers = append(m.Layers, store.Layer{
			Index:    layer.Index,
			Elements: append([]store.LayerElement(nil), layer.Elements...),
		})
	}
	for _, skinID := range md.skins {
		so, ok := s.objects[skinID]
		if !ok || so.skin == nil {
			continue
		}
		skin := store.Skin{ID: skinID, Name: so.Name}
		for _, cid := range so.skin.clusters {
			if co, ok := s.objects[cid]; ok && co.cluster != nil {
				skin.Clusters = append(skin.Clusters, *co.cluster)
			}
		}
		m.Skins = append(m.Skins, skin)
	}
	return m, true
}

func (s *Scene) clusterOf(id store.ID) (*store.Cluster, error) {
	o, ok := s.objects[id]
	if !ok || o.cluster == nil {
		return nil, fmt.Errorf("%w: cluster %d", store.ErrNotFound, id)
	}
	return o.cluster, nil
}

// SetClusterTransform sets the mesh bind matrix of a cluster.
func (s *Scene) SetClusterTransform(cluster store.ID, m math.Mat4) error {
	c, err := s.clusterOf(cluster)
	if err != nil {
		return err
	}
	c.Transform = m
	c.TransformOK = true
	return nil
}

// SetClusterLinkTransform sets the joint bind matrix of a cluster.
func (s *Scene) SetClusterLinkTransform(cluster store.ID, m math.Mat4) error {
	c, err := s.clusterOf(cluster)
	if err != nil {
		return err
	}
	c.LinkTransform = m
	c.LinkTransformOK = true
	return nil
}

// NodeMaterials returns a node's material slots. Slots may be dangling.
func (s *Scene) NodeMaterials(node store.ID) []store.ID {
	n, err := s.nodeOf(node)
	if err != nil {
		return nil
	}
	return append([]store.ID(nil), n.materials...)
}

// Material returns a material by id.
func (s *Scene) Material(id store.ID) (store.Material, bool) {
	o, ok := s.objects[id]
	if !ok || o.material == nil {
		return store.Material{}, false
	}
	m := *o.material
	m.Channels = append([]store.TextureChannel(nil), m.Channels...)
	return m, true
}

// Texture returns a texture by id.
func (s *Scene) Texture(id store.ID) (store.Texture, bool) {
	o, ok := s.objects[id]
	if !ok || o.texture == nil {
		return store.Texture{}, false
	}
	return *o.texture, true
}

// Objects returns every object of a kind in creation order.
func (s *Scene) Objects(kind store.Kind) []store.ID {
	var out []store.ID
	for _, id := range s.order {
		if s.objects[id].Kind == kind {
			out = append(out, id)
		}
	}
	return out
}

// Object returns the generic description of an object.
func (s *Scene) Object(id store.ID) (store.Object, bool) {
	o, ok := s.objects[id]
	if !ok {
		return store.Object{}, false
	}
	return o.Object, true
}

// Poses returns copies of every pose.
func (s *Scene) Poses() []store.Pose {
	var out []store.Pose
	for _, id := range s.Objects(store.KindPose) {
		p := *s.objects[id].pose
		p.Entries = append([]store.PoseEntry(nil), p.Entries...)
		out = append(out, p)
	}
	return out
}

// AddPose stores a new pose and returns its id.
func (s *Scene) AddPose(p store.Pose) (store.ID, error) {
	for _, e := range p.Entries {
		if _, err := s.nodeOf(e.Node); err != nil {
			return 0, fmt.Errorf("pose %q: %w", p.Name, err)
		}
	}
	pose := p
	pose.Entries = append([]store.PoseEntry(nil), p.Entries...)
	o := &object{
		Object: store.Object{Name: p.Name, Kind: store.KindPose, ClassName: "Pose"},
		pose:   &pose,
	}
	id := s.add(o)
	pose.ID = id
	return id, nil
}

// SetPoseEntries replaces the entries of an existing pose.
func (s *Scene) SetPoseEntries(id store.ID, entries []store.PoseEntry) error {
	o, ok := s.objects[id]
	if !ok || o.pose == nil {
		return fmt.Errorf("%w: pose %d", store.ErrNotFound, id)
	}
	for _, e := range entries {
		if _, err := s.nodeOf(e.Node); err != nil {
			return fmt.Errorf("pose %q: %w", o.pose.Name, err)
		}
	}
	o.pose.Entries = append([]store.PoseEntry(nil), entries...)
	return nil
}

// AnimStack returns an animation stack by id.
func (s *Scene) AnimStack(id store.ID) (store.AnimStack, bool) {
	o, ok := s.objects[id]
	if !ok || o.stack == nil {
		return store.AnimStack{}, false
	}
	st := *o.stack
	st.Layers = append([]store.ID(nil), st.Layers...)
	return st, true
}

// Constraint returns a constraint by id.
func (s *Scene) Constraint(id store.ID) (store.Constraint, bool) {
	o, ok := s.objects[id]
	if !ok || o.constraint == nil {
		return store.Constraint{}, false
	}
	c := *o.constraint
	c.Sources = append([]store.ID(nil), c.Sources...)
	c.Targets = append([]store.ID(nil), c.Targets...)
	return c, true
}

// Properties returns an object's properties. Nodes always expose their
// local transform properties first.
func (s *Scene) Properties(id store.ID) ([]store.Property, error) {
	o, ok := s.objects[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", store.ErrNotFound, id)
	}
	var out []store.Property
	if o.node != nil {
		if o.node.unreadable {
			return nil, fmt.Errorf("node %d: properties unreadable", id)
		}
		for _, p := range transformProperties(o.node.local) {
			if stored, ok := findProperty(o.props, p.Name); ok {
				p.Flags |= stored.Flags
			}
			out = append(out, p)
		}
	}
	for _, p := range o.props {
		if store.IsTransformProperty(p.Name) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func transformProperties(t store.Transform) []store.Property {
	flags := store.FlagAnimatable
	return []store.Property{
		{Name: PropTranslation, TypeName: "Lcl Translation", Value: formatVec(t.Translation), Flags: flags},
		{Name: PropRotation, TypeName: "Lcl Rotation", Value: formatVec(t.Rotation), Flags: flags},
		{Name: PropScaling, TypeName: "Lcl Scaling", Value: formatVec(t.Scaling), Flags: flags},
	}
}

func findProperty(props []store.Property, name string) (store.Property, bool) {
	for _, p := range props {
		if p.Name == name {
			return p, true
		}
	}
	return store.Property{}, false
}

func formatVec(v math.Vec3) string {
	return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z)
}

// Connections returns every connection touching an object, derived from the
// scene structure plus explicitly added links.
func (s *Scene) Connections(id store.ID) []store.Connection {
	var out []store.Connection
	for _, c := range s.allConnections() {
		if c.Src == id || c.Dst == id {
			out = append(out, c)
		}
	}
	return out
}

func (s *Scene) allConnections() []store.Connection {
	var out []store.Connection
	for _, id := range s.order {
		o := s.objects[id]
		switch {
		case o.node != nil:
			if o.node.hasParent {
				out = append(out, store.Connection{Src: id, Dst: o.node.parent})
			}
			if o.node.attr != 0 {
				out = append(out, store.Connection{Src: o.node.attr, Dst: id})
			}
			for _, m := range o.node.materials {
				if _, ok := s.objects[m]; ok {
					out = append(out, store.Connection{Src: m, Dst: id})
				}
			}
		case o.skin != nil:
			out = append(out, store.Connection{Src: id, Dst: o.skin.mesh})
			for _, c := range o.skin.clusters {
				out = append(out, store.Connection{Src: c, Dst: id})
			}
		case o.cluster != nil:
			if o.cluster.HasLink {
				out = append(out, store.Connection{Src: o.cluster.Link, Dst: id})
			}
		case o.material != nil:
			for _, ch := range o.material.Channels {
				for _, t := range ch.Textures {
					if _, ok := s.objects[t]; ok {
						out = append(out, store.Connection{Src: t, Dst: id, Property: ch.Name})
					}
				}
			}
		case o.stack != nil:
			for _, l := range o.stack.Layers {
				out = append(out, store.Connection{Src: l, Dst: id})
			}
		case o.constraint != nil:
			for _, src := range o.constraint.Sources {
				out = append(out, store.Connection{Src: src, Dst: id, Property: "Source"})
			}
			for _, dst := range o.constraint.Targets {
				out = append(out, store.Connection{Src: dst, Dst: id, Property: "Constrained Object"})
			}
		}
	}
	return append(out, s.extra...)
}

// Globals returns the scene's global settings.
func (s *Scene) Globals() store.Globals { return s.globals }

// Settings returns the concrete global settings for configuration.
func (s *Scene) Settings() *Globals { return s.globals }
