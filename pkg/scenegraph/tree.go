package scenegraph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/link270/fbx-analyzer/pkg/math"
)

// Editing errors.
var (
	ErrNotInTree     = errors.New("node is not part of the scene tree")
	ErrSelf          = errors.New("cannot reparent a node to itself")
	ErrCycle         = errors.New("cannot reparent to a descendant; that would create a cycle")
	ErrRoot          = errors.New("operation not permitted on the root node")
	ErrNoGrandparent = errors.New("node has no grandparent; remove the root instead")
	ErrEmpty         = errors.New("scene tree is empty")
	ErrLabel         = errors.New("attribute label must not be empty")
)

// Tree is an editable scene. Root is nil for an empty scene.
type Tree struct {
	Root *Node
}

// NewTree wraps root and derives parent links.
func NewTree(root *Node) *Tree {
	t := &Tree{Root: root}
	t.RebuildParentLinks()
	return t
}

// RebuildParentLinks recomputes every ParentUID from tree position.
func (t *Tree) RebuildParentLinks() {
	if t.Root == nil {
		return
	}
	t.Root.Walk(func(n, parent *Node) bool {
		n.ParentUID = nil
		if parent != nil && parent.UID != nil {
			p := *parent.UID
			n.ParentUID = &p
		}
		return true
	})
}

// Parent returns the parent of n, or nil for the root and for nodes not in
// the tree.
func (t *Tree) Parent(n *Node) *Node {
	var found *Node
	if t.Root == nil {
		return nil
	}
	t.Root.Walk(func(node, _ *Node) bool {
		if found != nil {
			return false
		}
		for _, c := range node.Children {
			if c == n {
				found = node
				return false
			}
		}
		return true
	})
	return found
}

// Has reports whether n is part of the tree.
func (t *Tree) Has(n *Node) bool {
	return t.Root != nil && t.Root.Contains(n)
}

// FindUID returns the node carrying uid.
func (t *Tree) FindUID(uid uint64) *Node {
	var found *Node
	if t.Root == nil {
		return nil
	}
	t.Root.Walk(func(n, _ *Node) bool {
		if found == nil {
			if v, ok := n.UIDValue(); ok && v == uid {
				found = n
			}
		}
		return found == nil
	})
	return found
}

// FindPath resolves a slash-separated name path. A leading slash makes the
// first segment the root name; otherwise segments start below the root.
// The first match in child order wins.
func (t *Tree) FindPath(path string) *Node {
	if t.Root == nil {
		return nil
	}
	cur := t.Root
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return cur
	}
	segments := strings.Split(trimmed, "/")
	if strings.HasPrefix(path, "/") {
		if segments[0] != cur.Name {
			return nil
		}
		segments = segments[1:]
	}
	for _, seg := range segments {
		var next *Node
		for _, c := range cur.Children {
			if c.Name == seg {
				next = c
				break
			}
		}
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}

// Path returns "/Root/.../Name" for n.
func (t *Tree) Path(n *Node) string {
	var names []string
	for cur := n; cur != nil; cur = t.Parent(cur) {
		names = append(names, cur.Name)
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return "/" + strings.Join(names, "/")
}

func (t *Tree) check(n *Node) error {
	if t.Root == nil {
		return ErrEmpty
	}
	if !t.Has(n) {
		return ErrNotInTree
	}
	return nil
}

// Rename changes a node name.
func (t *Tree) Rename(n *Node, name string) error {
	if err := t.check(n); err != nil {
		return err
	}
	n.Name = name
	return nil
}

// SetAttribute sets the attribute label. Attribute-less nodes given one of
// AttributeOptions become skeleton class.
func (t *Tree) SetAttribute(n *Node, label string) error {
	if err := t.check(n); err != nil {
		return err
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return ErrLabel
	}
	n.AttributeType = label
	if n.AttributeClass == ClassNone && IsOption(label) {
		n.AttributeClass = ClassSkeleton
	}
	return nil
}

// SetTransform replaces the local transform.
func (t *Tree) SetTransform(n *Node, translation, rotation, scaling math.Vec3) error {
	if err := t.check(n); err != nil {
		return err
	}
	n.Translation, n.Rotation, n.Scaling = translation, rotation, scaling
	return nil
}

// SetProperty sets a user property.
func (t *Tree) SetProperty(n *Node, key, value string) error {
	if err := t.check(n); err != nil {
		return err
	}
	if n.Properties == nil {
		n.Properties = map[string]string{}
	}
	n.Properties[key] = value
	return nil
}

// DeleteProperty removes a user property and reports whether it existed.
func (t *Tree) DeleteProperty(n *Node, key string) (bool, error) {
	if err := t.check(n); err != nil {
		return false, err
	}
	_, ok := n.Properties[key]
	delete(n.Properties, key)
	return ok, nil
}

// Reparent moves n to the end of target's children.
func (t *Tree) Reparent(n, target *Node) error {
	if err := t.check(n); err != nil {
		return err
	}
	if !t.Has(target) {
		return fmt.Errorf("target: %w", ErrNotInTree)
	}
	if n == target {
		return ErrSelf
	}
	if n.Contains(target) {
		return ErrCycle
	}
	parent := t.Parent(n)
	if parent == nil {
		return ErrRoot
	}
	parent.removeChild(n)
	target.Children = append(target.Children, n)
	t.RebuildParentLinks()
	return nil
}

// Promote moves n to the end of its grandparent's children.
func (t *Tree) Promote(n *Node) error {
	if err := t.check(n); err != nil {
		return err
	}
	parent := t.Parent(n)
	if parent == nil {
		return ErrRoot
	}
	grandparent := t.Parent(parent)
	if grandparent == nil {
		return ErrNoGrandparent
	}
	parent.removeChild(n)
	grandparent.Children = append(grandparent.Children, n)
	t.RebuildParentLinks()
	return nil
}

// Remove deletes n and appends its children to n's parent. Removing the
// root promotes its first child to root and appends the remaining children
// to it; a childless root leaves the tree empty.
func (t *Tree) Remove(n *Node) error {
	if err := t.check(n); err != nil {
		return err
	}
	parent := t.Parent(n)
	if parent == nil {
		if len(n.Children) == 0 {
			t.Root = nil
			return nil
		}
		newRoot := n.Children[0]
		newRoot.Children = append(newRoot.Children, n.Children[1:]...)
		t.Root = newRoot
	} else {
		parent.removeChild(n)
		parent.Children = append(parent.Children, n.Children...)
	}
	n.Children = nil
	t.RebuildParentLinks()
	return nil
}

// Delete removes n with its whole subtree. The root cannot be deleted.
func (t *Tree) Delete(n *Node) error {
	if err := t.check(n); err != nil {
		return err
	}
	parent := t.Parent(n)
	if parent == nil {
		return ErrRoot
	}
	parent.removeChild(n)
	return nil
}

// AddChild creates an attribute-less node at the end of parent's children.
func (t *Tree) AddChild(parent *Node, name string) (*Node, error) {
	if err := t.check(parent); err != nil {
		return nil, err
	}
	child := NewNode(name)
	parent.Children = append(parent.Children, child)
	t.RebuildParentLinks()
	return child, nil
}

// Clone deep-copies the tree.
func (t *Tree) Clone() *Tree {
	if t.Root == nil {
		return &Tree{}
	}
	return &Tree{Root: t.Root.Clone()}
}
