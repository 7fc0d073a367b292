// Package edits reads YAML edit scripts and applies them to a scene tree.
//
// A script is a list of operations. Each operation addresses its node by
// store uid or by name path (see scenegraph.Tree.FindPath):
//
//	- op: rename
//	  node: Prop
//	  name: Crate
//	- op: reparent
//	  uid: 42
//	  target: /Root/Hips
//	- op: set_transform
//	  node: Hips/Spine
//	  rotation: [0, 0, 15]
package edits

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/viant/afs"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/link270/fbx-analyzer/pkg/math"
	"github.com/link270/fbx-analyzer/pkg/scenegraph"
)

// Operation names.
const (
	OpRename         = "rename"
	OpSetAttribute   = "set_attribute"
	OpSetTransform   = "set_transform"
	OpSetProperty    = "set_property"
	OpDeleteProperty = "delete_property"
	OpReparent       = "reparent"
	OpPromote        = "promote"
	OpRemove         = "remove"
	OpDelete         = "delete"
	OpAddChild       = "add_child"
)

// Script errors.
var (
	ErrUnknownOp    = errors.New("unknown edit operation")
	ErrNodeNotFound = errors.New("node not found")
	ErrMissingField = errors.New("missing field")
)

// Vector is a YAML [x, y, z] triple.
type Vector [3]float64

func (v *Vector) vec3() math.Vec3 {
	return math.V3(v[0], v[1], v[2])
}

// Op is one edit.
type Op struct {
	Op string `yaml:"op"`

	Node string  `yaml:"node,omitempty"`
	UID  *uint64 `yaml:"uid,omitempty"`

	Target    string  `yaml:"target,omitempty"`
	TargetUID *uint64 `yaml:"target_uid,omitempty"`

	Name  string `yaml:"name,omitempty"`
	Label string `yaml:"label,omitempty"`
	Key   string `yaml:"key,omitempty"`
	Value string `yaml:"value,omitempty"`

	Translation *Vector `yaml:"translation,omitempty"`
	Rotation    *Vector `yaml:"rotation,omitempty"`
	Scaling     *Vector `yaml:"scaling,omitempty"`
}

// Script is an ordered list of edits.
type Script []Op

// Parse decodes a YAML script. Unknown keys are rejected.
func Parse(data []byte) (Script, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var s Script
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse edit script: %w", err)
	}
	for i, op := range s {
		if !known(op.Op) {
			return nil, fmt.Errorf("edit %d: %w %q", i, ErrUnknownOp, op.Op)
		}
	}
	return s, nil
}

// Load reads and parses the script at location.
func Load(ctx context.Context, fs afs.Service, location string) (Script, error) {
	data, err := fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("read edit script %s: %w", location, err)
	}
	return Parse(data)
}

func known(op string) bool {
	switch op {
	case OpRename, OpSetAttribute, OpSetTransform, OpSetProperty, OpDeleteProperty,
		OpReparent, OpPromote, OpRemove, OpDelete, OpAddChild:
		return true
	}
	return false
}

// Apply runs the script against tree. Edits run on a copy, so tree is left
// untouched when any edit fails.
func Apply(tree *scenegraph.Tree, s Script, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	work := tree.Clone()
	for i, op := range s {
		if err := apply(work, op); err != nil {
			return fmt.Errorf("edit %d (%s): %w", i, op.Op, err)
		}
		log.Debug("edit applied", zap.Int("index", i), zap.String("op", op.Op), zap.String("node", op.address()))
	}
	tree.Root = work.Root
	tree.RebuildParentLinks()
	return nil
}

func (op Op) address() string {
	if op.UID != nil {
		return fmt.Sprintf("uid:%d", *op.UID)
	}
	return op.Node
}

func resolve(tree *scenegraph.Tree, path string, uid *uint64, field string) (*scenegraph.Node, error) {
	if uid != nil {
		if n := tree.FindUID(*uid); n != nil {
			return n, nil
		}
		return nil, fmt.Errorf("%w: uid %d", ErrNodeNotFound, *uid)
	}
	if path == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, field)
	}
	if n := tree.FindPath(path); n != nil {
		return n, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, path)
}

func apply(tree *scenegraph.Tree, op Op) error {
	n, err := resolve(tree, op.Node, op.UID, "node")
	if err != nil {
		return err
	}
	switch op.Op {
	case OpRename:
		if op.Name == "" {
			return fmt.Errorf("%w: name", ErrMissingField)
		}
		return tree.Rename(n, op.Name)
	case OpSetAttribute:
		return tree.SetAttribute(n, op.Label)
	case OpSetTransform:
		t, r, s := n.Translation, n.Rotation, n.Scaling
		if op.Translation != nil {
			t = op.Translation.vec3()
		}
		if op.Rotation != nil {
			r = op.Rotation.vec3()
		}
		if op.Scaling != nil {
			s = op.Scaling.vec3()
		}
		return tree.SetTransform(n, t, r, s)
	case OpSetProperty:
		if op.Key == "" {
			return fmt.Errorf("%w: key", ErrMissingField)
		}
		return tree.SetProperty(n, op.Key, op.Value)
	case OpDeleteProperty:
		if op.Key == "" {
			return fmt.Errorf("%w: key", ErrMissingField)
		}
		_, err := tree.DeleteProperty(n, op.Key)
		return err
	case OpReparent:
		target, err := resolve(tree, op.Target, op.TargetUID, "target")
		if err != nil {
			return err
		}
		return tree.Reparent(n, target)
	case OpPromote:
		return tree.Promote(n)
	case OpRemove:
		return tree.Remove(n)
	case OpDelete:
		return tree.Delete(n)
	case OpAddChild:
		if op.Name == "" {
			return fmt.Errorf("%w: name", ErrMissingField)
		}
		_, err := tree.AddChild(n, op.Name)
		return err
	}
	return fmt.Errorf("%w %q", ErrUnknownOp, op.Op)
}
