package store

import (
	"fmt"

	"github.com/link270/fbx-analyzer/pkg/math"
)

// Kind discriminates scene objects for typed queries.
type Kind int

const (
	KindNode Kind = iota
	KindNull
	KindSkeleton
	KindMesh
	KindCamera
	KindLight
	KindMaterial
	KindTexture
	KindSkin
	KindCluster
	KindPose
	KindAnimStack
	KindAnimLayer
	KindAnimCurve
	KindConstraint
)

var kindNames = map[Kind]string{
	KindNode:       "Node",
	KindNull:       "Null",
	KindSkeleton:   "Skeleton",
	KindMesh:       "Mesh",
	KindCamera:     "Camera",
	KindLight:      "Light",
	KindMaterial:   "Material",
	KindTexture:    "Texture",
	KindSkin:       "Skin",
	KindCluster:    "Cluster",
	KindPose:       "Pose",
	KindAnimStack:  "AnimStack",
	KindAnimLayer:  "AnimLayer",
	KindAnimCurve:  "AnimCurve",
	KindConstraint: "Constraint",
}

// String returns the kind's type name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", int(k))
}

// ParseKind resolves a type name produced by Kind.String.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// IsAttribute reports whether objects of this kind attach to nodes.
func (k Kind) IsAttribute() bool {
	switch k {
	case KindNull, KindSkeleton, KindMesh, KindCamera, KindLight:
		return true
	}
	return false
}

// Object is the generic description of any scene object.
type Object struct {
	ID        ID
	Name      string
	Kind      Kind
	ClassName string
}

// SkeletonRole is the store-level skeleton attachment type.
type SkeletonRole int

const (
	RoleRoot SkeletonRole = iota
	RoleLimb
	RoleLimbNode
	RoleEffector
)

var roleNames = [...]string{"Root", "Limb", "LimbNode", "Effector"}

// String returns the canonical joint-role label.
func (r SkeletonRole) String() string {
	if r >= 0 && int(r) < len(roleNames) {
		return roleNames[r]
	}
	return fmt.Sprintf("Unknown(%d)", int(r))
}

// SkeletonRoles lists every canonical joint role.
func SkeletonRoles() []SkeletonRole {
	return []SkeletonRole{RoleRoot, RoleLimb, RoleLimbNode, RoleEffector}
}

// Attribute is the optional typed payload attached to a node.
type Attribute struct {
	ID        ID
	Kind      Kind
	TypeName  string
	ClassName string
	// Role is meaningful only for KindSkeleton.
	Role SkeletonRole
}

// ChannelKind names a mesh layer element channel.
type ChannelKind int

const (
	ChannelNormals ChannelKind = iota
	ChannelTangents
	ChannelBinormals
	ChannelUV
	ChannelVertexColors
	ChannelSmoothing
	ChannelMaterials
)

var channelNames = [...]string{"Normals", "Tangents", "Binormals", "UVSet", "VertexColors", "Smoothing", "Materials"}
var channelKeys = [...]string{"normals", "tangents", "binormals", "uv", "vcolor", "smoothing", "materials"}

// String returns the channel name.
func (c ChannelKind) String() string {
	if c >= 0 && int(c) < len(channelNames) {
		return channelNames[c]
	}
	return fmt.Sprintf("Unknown(%d)", int(c))
}

// ParseChannel resolves a name produced by ChannelKind.String.
func ParseChannel(name string) (ChannelKind, bool) {
	for i, n := range channelNames {
		if n == name {
			return ChannelKind(i), true
		}
	}
	return 0, false
}

// MappingMode describes how layer element data maps onto the surface.
type MappingMode int

const (
	MappingNone MappingMode = iota
	MappingByControlPoint
	MappingByPolygonVertex
	MappingByPolygon
	MappingByEdge
	MappingAllSame
)

var mappingNames = [...]string{"None", "ByControlPoint", "ByPolygonVertex", "ByPolygon", "ByEdge", "AllSame"}

func (m MappingMode) String() string {
	if m >= 0 && int(m) < len(mappingNames) {
		return mappingNames[m]
	}
	return fmt.Sprintf("Unknown(%d)", int(m))
}

// ParseMappingMode resolves a name produced by MappingMode.String.
func ParseMappingMode(name string) (MappingMode, bool) {
	for i, n := range mappingNames {
		if n == name {
			return MappingMode(i), true
		}
	}
	return 0, false
}

// ReferenceMode describes how layer element data is addressed.
type ReferenceMode int

const (
	ReferenceDirect ReferenceMode = iota
	ReferenceIndex
	ReferenceIndexToDirect
)

var referenceNames = [...]string{"Direct", "Index", "IndexToDirect"}

func (r ReferenceMode) String() string {
	if r >= 0 && int(r) < len(referenceNames) {
		return referenceNames[r]
	}
	return fmt.Sprintf("Unknown(%d)", int(r))
}

// ParseReferenceMode resolves a name produced by ReferenceMode.String.
func ParseReferenceMode(name string) (ReferenceMode, bool) {
	for i, n := range referenceNames {
		if n == name {
			return ReferenceMode(i), true
		}
	}
	return 0, false
}

// LayerElement is one data channel of one mesh layer.
type LayerElement struct {
	Channel ChannelKind
	// Set is the UV set index; zero for other channels.
	Set         int
	Mapping     MappingMode
	Reference   ReferenceMode
	DirectCount int
	// IndexCount is -1 when the element has no index array at all.
	IndexCount int
}

// Label is the human name used in issue codes, e.g. "Normals" or "UVSet[1]".
func (e LayerElement) Label() string {
	if e.Channel == ChannelUV {
		return fmt.Sprintf("UVSet[%d]", e.Set)
	}
	return e.Channel.String()
}

// MetricKey is the layer-element key used in scene metrics, e.g. "uv1:0".
func (e LayerElement) MetricKey(layer int) string {
	key := "unknown"
	if e.Channel >= 0 && int(e.Channel) < len(channelKeys) {
		key = channelKeys[e.Channel]
	}
	if e.Channel == ChannelUV {
		key = fmt.Sprintf("uv%d", e.Set)
	}
	return fmt.Sprintf("%s:%d", key, layer)
}

// Layer is one mesh layer and its present channels.
type Layer struct {
	Index    int
	Elements []LayerElement
}

// Cluster binds mesh control points to one joint.
type Cluster struct {
	ID              ID
	Link            ID
	HasLink         bool
	IndexCount      int
	WeightCount     int
	Transform       math.Mat4
	TransformOK     bool
	LinkTransform   math.Mat4
	LinkTransformOK bool
}

// Skin is a skin deformer attached to a mesh.
type Skin struct {
	ID       ID
	Name     string
	Clusters []Cluster
}

// Mesh is a read snapshot of a mesh attribute.
type Mesh struct {
	ID            ID
	ControlPoints int
	Polygons      int
	Layers        []Layer
	Skins         []Skin
}

// MaterialElementCount counts material-index layer elements across layers.
func (m *Mesh) MaterialElementCount() int {
	n := 0
	for _, layer := range m.Layers {
		for _, el := range layer.Elements {
			if el.Channel == ChannelMaterials {
				n++
			}
		}
	}
	return n
}

// TextureChannel is a material property that can bind textures.
type TextureChannel struct {
	Name     string
	Textures []ID
}

// Material channel names checked for texture bindings.
const (
	ChannelDiffuse   = "Diffuse"
	ChannelSpecular  = "Specular"
	ChannelNormalMap = "NormalMap"
	ChannelBump      = "Bump"
	ChannelEmissive  = "Emissive"
	ChannelBaseColor = "BaseColor"
)

// Material is a surface material.
type Material struct {
	ID       ID
	Name     string
	Channels []TextureChannel
}

// Channel returns the named channel if the material declares it.
func (m Material) Channel(name string) (TextureChannel, bool) {
	for _, ch := range m.Channels {
		if ch.Name == name {
			return ch, true
		}
	}
	return TextureChannel{}, false
}

// Texture is a file texture.
type Texture struct {
	ID       ID
	Name     string
	FileName string
}

// PoseEntry is one node's matrix in a pose.
type PoseEntry struct {
	Node   ID
	Matrix math.Mat4
}

// Pose is a scene-wide snapshot of node matrices.
type Pose struct {
	ID      ID
	Name    string
	Bind    bool
	Entries []PoseEntry
}

// AnimStack is an animation take.
type AnimStack struct {
	ID        ID
	Name      string
	LocalSpan TimeSpan
	Layers    []ID
}

// Constraint links source objects to constrained objects.
type Constraint struct {
	ID      ID
	Name    string
	Sources []ID
	Targets []ID
}

// PropertyFlags are the boolean flags of a generic property.
type PropertyFlags uint8

const (
	FlagUserDefined PropertyFlags = 1 << iota
	FlagAnimatable
	FlagAnimated
	FlagMutable
	FlagImported
)

var flagNames = []struct {
	flag PropertyFlags
	name string
}{
	{FlagAnimatable, "Animatable"},
	{FlagAnimated, "Animated"},
	{FlagUserDefined, "UserDefined"},
	{FlagMutable, "Mutable"},
	{FlagImported, "Imported"},
}

// Names lists the set flags by label.
func (p PropertyFlags) Names() []string {
	var out []string
	for _, f := range flagNames {
		if p.Has(f.flag) {
			out = append(out, f.name)
		}
	}
	return out
}

// ParsePropertyFlags combines labels produced by Names.
func ParsePropertyFlags(names []string) (PropertyFlags, error) {
	var flags PropertyFlags
next:
	for _, n := range names {
		for _, f := range flagNames {
			if f.name == n {
				flags |= f.flag
				continue next
			}
		}
		return 0, fmt.Errorf("unknown property flag %q", n)
	}
	return flags, nil
}

// Has reports whether all bits of f are set.
func (p PropertyFlags) Has(f PropertyFlags) bool {
	return p&f == f
}

// Local transform property names every node exposes.
const (
	PropTranslation = "Lcl Translation"
	PropRotation    = "Lcl Rotation"
	PropScaling     = "Lcl Scaling"
)

// IsTransformProperty reports whether name is a local transform property.
func IsTransformProperty(name string) bool {
	return name == PropTranslation || name == PropRotation || name == PropScaling
}

// Property is a generic key/value property of a scene object.
type Property struct {
	Name     string
	TypeName string
	Value    string
	Flags    PropertyFlags
}

// Connection is a directed link between two objects. Property names the
// destination property for object-property connections.
type Connection struct {
	Src      ID
	Dst      ID
	Property string
}
