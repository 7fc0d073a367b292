// Package store defines the Scene Store Adapter: the only surface through
// which the rest of the module touches a loaded scene. Implementations own
// every native handle; callers hold IDs.
package store

import (
	"context"
	"errors"

	"github.com/link270/fbx-analyzer/pkg/math"
)

// Adapter errors.
var (
	// ErrUnavailable means the scene engine cannot be initialized.
	ErrUnavailable = errors.New("scene engine unavailable")
	// ErrUnsupported means the accessor does not exist on this store version.
	ErrUnsupported = errors.New("operation not supported by scene store")
	ErrNotFound    = errors.New("scene object not found")
	ErrNotNode     = errors.New("scene object is not a node")
	ErrCycle       = errors.New("parenting would create a cycle")
	ErrRoot        = errors.New("operation not permitted on the scene root")
)

// ID is the stable unique id the store assigns to every object.
type ID uint64

// Engine creates store sessions.
type Engine interface {
	// Open creates a store instance. It fails with ErrUnavailable when the
	// underlying engine cannot be initialized.
	Open() (Session, error)
}

// Session owns one native scene handle. Close must run on every exit path.
type Session interface {
	Scene() Scene
	Load(ctx context.Context, path string) error
	Export(ctx context.Context, path string) error
	Close() error
}

// Transform holds local transform fields as absolute values. Rotation is
// Euler XYZ in degrees.
type Transform struct {
	Translation math.Vec3
	Rotation    math.Vec3
	Scaling     math.Vec3
}

// IdentityTransform returns a transform with unit scaling.
func IdentityTransform() Transform {
	return Transform{Scaling: math.One()}
}

// Matrix composes the transform into a local matrix.
func (t Transform) Matrix() math.Mat4 {
	return math.Compose(t.Translation, t.Rotation, t.Scaling)
}

// Scene is the capability set consumed from the scene codec layer.
type Scene interface {
	// Hierarchy.
	Root() ID
	Name(id ID) string
	Parent(id ID) (ID, bool)
	Children(id ID) []ID
	CreateNode(name string) (ID, error)
	DestroyNode(id ID) error
	AddChild(parent, child ID) error
	RemoveChild(parent, child ID) error

	// Transforms.
	LocalTransform(id ID) (Transform, error)
	SetLocalTransform(id ID, t Transform) error
	WorldTransform(id ID) (math.Mat4, error)

	// Node attributes.
	Attribute(id ID) (Attribute, bool)
	SupportsSkeletonRole(role SkeletonRole) bool
	SetSkeletonRole(id ID, role SkeletonRole) error
	ClearAttribute(id ID) error
	Mesh(node ID) (*Mesh, bool)
	SetClusterTransform(cluster ID, m math.Mat4) error
	SetClusterLinkTransform(cluster ID, m math.Mat4) error

	// Materials and textures.
	NodeMaterials(node ID) []ID
	Material(id ID) (Material, bool)
	Texture(id ID) (Texture, bool)

	// Scene-wide objects.
	Objects(kind Kind) []ID
	Object(id ID) (Object, bool)
	Poses() []Pose
	AddPose(p Pose) (ID, error)
	SetPoseEntries(pose ID, entries []PoseEntry) error
	AnimStack(id ID) (AnimStack, bool)
	Constraint(id ID) (Constraint, bool)

	// Generic object data.
	Properties(id ID) ([]Property, error)
	Connections(id ID) []Connection

	Globals() Globals
}

// Editor is implemented by stores that can rename nodes and edit user
// properties. Reconciliation skips those updates on stores without it.
type Editor interface {
	SetNodeName(id ID, name string) error
	SetUserProperty(id ID, name, value string) error
	DeleteUserProperty(id ID, name string) error
}
