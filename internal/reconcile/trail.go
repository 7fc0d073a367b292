package reconcile

import (
	"github.com/link270/fbx-analyzer/internal/inspect"
	"github.com/link270/fbx-analyzer/internal/store"
	"github.com/link270/fbx-analyzer/pkg/math"
)

// NodeRef identifies a store node in the trail.
type NodeRef struct {
	Name string   `yaml:"name" json:"name"`
	UID  store.ID `yaml:"uid" json:"uid"`
}

func ref(s store.Scene, id store.ID) NodeRef {
	return NodeRef{Name: inspect.NodeName(s, id), UID: id}
}

func optionalRef(s store.Scene, id store.ID, ok bool) *NodeRef {
	if !ok {
		return nil
	}
	r := ref(s, id)
	return &r
}

// Creation records a node created under Parent.
type Creation struct {
	Node   NodeRef `yaml:"node" json:"node"`
	Parent NodeRef `yaml:"parent" json:"parent"`
}

// Reparent records a node moved between parents. PreviousParent is nil
// for nodes that were detached.
type Reparent struct {
	Node           NodeRef  `yaml:"node" json:"node"`
	PreviousParent *NodeRef `yaml:"previous_parent" json:"previous_parent"`
	NewParent      NodeRef  `yaml:"new_parent" json:"new_parent"`
}

// Reorder records a child moved to Index among the children of Parent.
type Reorder struct {
	Node   NodeRef `yaml:"node" json:"node"`
	Parent NodeRef `yaml:"parent" json:"parent"`
	Index  int     `yaml:"index" json:"index"`
}

// OrphanRemoval records a store child detached because the model no
// longer lists it under Parent.
type OrphanRemoval struct {
	Node   NodeRef `yaml:"node" json:"node"`
	Parent NodeRef `yaml:"parent" json:"parent"`
}

// Rename records a node name change.
type Rename struct {
	Node     NodeRef `yaml:"node" json:"node"`
	Previous string  `yaml:"previous" json:"previous"`
}

// AttributeUpdate records an attribute label applied to a node.
type AttributeUpdate struct {
	Node           NodeRef `yaml:"node" json:"node"`
	AttributeType  string  `yaml:"attribute_type" json:"attribute_type"`
	AttributeClass string  `yaml:"attribute_class" json:"attribute_class"`
}

// TransformUpdate records the local transform written to a node.
type TransformUpdate struct {
	Node        NodeRef   `yaml:"node" json:"node"`
	Translation math.Vec3 `yaml:"translation" json:"translation"`
	Rotation    math.Vec3 `yaml:"rotation" json:"rotation"`
	Scaling     math.Vec3 `yaml:"scaling" json:"scaling"`
}

// PropertyUpdate records a user property write. Deleted is set when the
// property was removed.
type PropertyUpdate struct {
	Node    NodeRef `yaml:"node" json:"node"`
	Name    string  `yaml:"name" json:"name"`
	Value   string  `yaml:"value,omitempty" json:"value,omitempty"`
	Deleted bool    `yaml:"deleted,omitempty" json:"deleted,omitempty"`
}

// Trail is the ordered log of store mutations made by Apply.
type Trail struct {
	Created          []Creation        `yaml:"created" json:"created"`
	Reparented       []Reparent        `yaml:"reparented" json:"reparented"`
	Reordered        []Reorder         `yaml:"reordered,omitempty" json:"reordered,omitempty"`
	RemovedOrphans   []OrphanRemoval   `yaml:"removed_orphans" json:"removed_orphans"`
	Pruned           []NodeRef         `yaml:"pruned" json:"pruned"`
	Renamed          []Rename          `yaml:"renamed,omitempty" json:"renamed,omitempty"`
	AttributeUpdates []AttributeUpdate `yaml:"attribute_updates" json:"attribute_updates"`
	TransformUpdates []TransformUpdate `yaml:"transform_updates" json:"transform_updates"`
	PropertyUpdates  []PropertyUpdate  `yaml:"property_updates,omitempty" json:"property_updates,omitempty"`
}

// Len returns the total number of recorded entries.
func (t *Trail) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Created) + len(t.Reparented) + len(t.Reordered) + len(t.RemovedOrphans) + len(t.Pruned) +
		len(t.Renamed) + len(t.AttributeUpdates) + len(t.TransformUpdates) + len(t.PropertyUpdates)
}

// Empty reports whether nothing was recorded.
func (t *Trail) Empty() bool { return t.Len() == 0 }
