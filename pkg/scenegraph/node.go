// Package scenegraph is the editable scene tree: node names, attribute
// labels, local transforms and user properties, plus the store identity
// each node was loaded from.
package scenegraph

import (
	"strings"

	"github.com/link270/fbx-analyzer/pkg/math"
)

// Attribute labels.
const (
	LabelRoot     = "Root"
	LabelLimb     = "Limb"
	LabelLimbNode = "LimbNode"
	LabelEffector = "Effector"
	LabelNode     = "Node"

	// TypeNone and ClassNone describe a node without an attribute.
	TypeNone  = "None"
	ClassNone = "(NoAttribute)"
	// ClassSkeleton is the class given to nodes labelled as joints.
	ClassSkeleton = "Skeleton"
)

// AttributeOptions are the labels an editor offers for attribute changes.
var AttributeOptions = []string{LabelRoot, LabelLimb, LabelLimbNode, LabelEffector, LabelNode}

// IsJointLabel reports whether label names a skeleton role.
func IsJointLabel(label string) bool {
	switch label {
	case LabelRoot, LabelLimb, LabelLimbNode, LabelEffector:
		return true
	}
	return false
}

// IsOption reports whether label is one of AttributeOptions.
func IsOption(label string) bool {
	return IsJointLabel(label) || label == LabelNode
}

// Node is one editable scene node.
type Node struct {
	Name           string
	AttributeType  string
	AttributeClass string

	Translation math.Vec3
	Rotation    math.Vec3 // Euler XYZ, degrees
	Scaling     math.Vec3

	Children []*Node

	// UID is the store id; nil until the node exists in the store.
	UID *uint64
	// ParentUID is derived from the tree by RebuildParentLinks.
	ParentUID *uint64
	// OriginalPath is the child-index path at load time.
	OriginalPath []int

	Properties map[string]string
}

// NewNode returns an attribute-less node with unit scaling.
func NewNode(name string) *Node {
	return &Node{
		Name:           name,
		AttributeType:  TypeNone,
		AttributeClass: ClassNone,
		Scaling:        math.One(),
		Properties:     map[string]string{},
	}
}

// UIDValue returns the uid and whether it is set.
func (n *Node) UIDValue() (uint64, bool) {
	if n == nil || n.UID == nil {
		return 0, false
	}
	return *n.UID, true
}

// SetUID assigns the store id.
func (n *Node) SetUID(id uint64) {
	n.UID = &id
}

// IsMesh reports whether the node's attribute is a mesh.
func (n *Node) IsMesh() bool {
	return strings.Contains(strings.ToLower(n.AttributeType), "mesh") ||
		strings.HasSuffix(strings.ToLower(n.AttributeClass), "mesh")
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the node's children.
func (n *Node) Walk(fn func(node, parent *Node) bool) {
	n.walk(nil, fn)
}

func (n *Node) walk(parent *Node, fn func(node, parent *Node) bool) {
	if !fn(n, parent) {
		return
	}
	for _, c := range n.Children {
		c.walk(n, fn)
	}
}

// Count returns the number of nodes in the subtree rooted at n.
func (n *Node) Count() int {
	count := 0
	n.Walk(func(*Node, *Node) bool { count++; return true })
	return count
}

// Clone returns a deep copy.
func (n *Node) Clone() *Node {
	c := *n
	if n.UID != nil {
		c.SetUID(*n.UID)
	}
	if n.ParentUID != nil {
		p := *n.ParentUID
		c.ParentUID = &p
	}
	c.OriginalPath = append([]int(nil), n.OriginalPath...)
	c.Properties = make(map[string]string, len(n.Properties))
	for k, v := range n.Properties {
		c.Properties[k] = v
	}
	c.Children = make([]*Node, len(n.Children))
	for i, child := range n.Children {
		c.Children[i] = child.Clone()
	}
	return &c
}

// Contains reports whether candidate is n or one of its descendants.
func (n *Node) Contains(candidate *Node) bool {
	found := false
	n.Walk(func(node, _ *Node) bool {
		if node == candidate {
			found = true
		}
		return !found
	})
	return found
}

func (n *Node) removeChild(child *Node) bool {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			return true
		}
	}
	return false
}
