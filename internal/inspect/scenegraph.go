// Package inspect reads a loaded scene into the editable model and into
// read-only summaries: top-level nodes, skeletons and scene metadata.
package inspect

import (
	"fmt"

	"github.com/link270/fbx-analyzer/internal/store"
	"github.com/link270/fbx-analyzer/pkg/scenegraph"
)

// SceneGraph captures the whole hierarchy from the store root.
func SceneGraph(s store.Scene) (*scenegraph.Tree, error) {
	root, err := build(s, s.Root(), nil)
	if err != nil {
		return nil, err
	}
	return scenegraph.NewTree(root), nil
}

func build(s store.Scene, id store.ID, path []int) (*scenegraph.Node, error) {
	local, err := s.LocalTransform(id)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", store.NodePath(s, id), err)
	}
	n := &scenegraph.Node{
		Name:           NodeName(s, id),
		AttributeType:  scenegraph.TypeNone,
		AttributeClass: scenegraph.ClassNone,
		Translation:    local.Translation,
		Rotation:       local.Rotation,
		Scaling:        local.Scaling,
		OriginalPath:   append([]int(nil), path...),
		Properties:     map[string]string{},
	}
	n.SetUID(uint64(id))
	if attr, ok := s.Attribute(id); ok {
		n.AttributeType = attr.TypeName
		n.AttributeClass = attr.ClassName
	}

	props, err := s.Properties(id)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", store.NodePath(s, id), err)
	}
	for _, p := range props {
		if p.Flags.Has(store.FlagUserDefined) {
			n.Properties[p.Name] = p.Value
		}
	}

	for i, child := range s.Children(id) {
		c, err := build(s, child, append(path, i))
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, c)
	}
	return n, nil
}

// NodeName returns the node name, or Node_<uid> for unnamed nodes.
func NodeName(s store.Scene, id store.ID) string {
	if name := s.Name(id); name != "" {
		return name
	}
	return fmt.Sprintf("Node_%d", id)
}

// Summary describes one direct child of the scene root.
type Summary struct {
	Name           string `yaml:"name" json:"name"`
	AttributeType  string `yaml:"attribute_type" json:"attribute_type"`
	AttributeClass string `yaml:"attribute_class" json:"attribute_class"`
	ChildCount     int    `yaml:"child_count" json:"child_count"`
	IsMesh         bool   `yaml:"is_mesh" json:"is_mesh"`
}

// TopLevel summarizes the root's children. An empty tree has none.
func TopLevel(tree *scenegraph.Tree) []Summary {
	if tree == nil || tree.Root == nil {
		return nil
	}
	out := make([]Summary, 0, len(tree.Root.Children))
	for _, c := range tree.Root.Children {
		out = append(out, Summary{
			Name:           c.Name,
			AttributeType:  c.AttributeType,
			AttributeClass: c.AttributeClass,
			ChildCount:     len(c.Children),
			IsMesh:         c.IsMesh(),
		})
	}
	return out
}
