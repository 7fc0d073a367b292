// Package reconcile applies an edited scene tree onto a store, keeping
// node identity where it can and recording every mutation in a Trail.
package reconcile

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/link270/fbx-analyzer/internal/inspect"
	"github.com/link270/fbx-analyzer/internal/store"
	"github.com/link270/fbx-analyzer/pkg/scenegraph"
)

// DefaultNodeName names created nodes whose model name is empty.
const DefaultNodeName = "Node"

type run struct {
	s     store.Scene
	trail *Trail
	log   *zap.Logger

	byUID  map[store.ID]bool
	byPath map[string]store.ID
	// order is the pre-order of the initially indexed nodes.
	order []store.ID
	used  map[store.ID]bool
	// formerParent remembers where detached orphans came from.
	formerParent map[store.ID]store.ID
}

// Apply mutates s until its hierarchy, attributes, transforms, names and
// user properties match tree. The store root keeps its name. Created nodes
// get their new uid written back into the model. Nodes the model no longer
// references are pruned; their children are kept and move up to the pruned
// node's parent. A nil or empty tree prunes everything below the store root.
func Apply(s store.Scene, tree *scenegraph.Tree, trail *Trail, log *zap.Logger) error {
	if trail == nil {
		trail = &Trail{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	r := &run{
		s:            s,
		trail:        trail,
		log:          log,
		byUID:        make(map[store.ID]bool),
		byPath:       make(map[string]store.ID),
		used:         make(map[store.ID]bool),
		formerParent: make(map[store.ID]store.ID),
	}
	r.index()

	if tree != nil && tree.Root != nil {
		tree.RebuildParentLinks()
		if err := r.sync(tree.Root, s.Root(), true); err != nil {
			return err
		}
		tree.RebuildParentLinks()
	}
	if err := r.prune(); err != nil {
		return err
	}
	log.Debug("reconciled scene",
		zap.Int("created", len(trail.Created)),
		zap.Int("reparented", len(trail.Reparented)),
		zap.Int("reordered", len(trail.Reordered)),
		zap.Int("orphans", len(trail.RemovedOrphans)),
		zap.Int("pruned", len(trail.Pruned)))
	return nil
}

func pathKey(path []int) string {
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, "/")
}

func (r *run) index() {
	var walk func(id store.ID, path []int)
	walk = func(id store.ID, path []int) {
		if r.byUID[id] {
			return
		}
		r.byUID[id] = true
		r.order = append(r.order, id)
		if _, ok := r.byPath[pathKey(path)]; !ok {
			r.byPath[pathKey(path)] = id
		}
		for i, child := range r.s.Children(id) {
			walk(child, append(path, i))
		}
	}
	walk(r.s.Root(), nil)
}

// resolve maps a model node to a store node, creating one when needed.
func (r *run) resolve(n *scenegraph.Node, parent store.ID, top bool) (store.ID, error) {
	root := r.s.Root()
	uid, hasUID := n.UIDValue()
	if hasUID && r.byUID[store.ID(uid)] && !r.used[store.ID(uid)] {
		return store.ID(uid), nil
	}
	if top && parent == root && !r.used[root] {
		if hasUID && store.ID(uid) != root {
			r.log.Debug("adopting store root", zap.Uint64("model_uid", uid), zap.Uint64("root", uint64(root)))
		}
		n.SetUID(uint64(root))
		return root, nil
	}
	if hasUID {
		if id, ok := r.byPath[pathKey(n.OriginalPath)]; ok && !r.used[id] && (id != root || top) {
			r.log.Debug("resolved node by original path",
				zap.String("name", n.Name), zap.Ints("path", n.OriginalPath), zap.Uint64("uid", uint64(id)))
			n.SetUID(uint64(id))
			return id, nil
		}
	}

	name := n.Name
	if name == "" {
		name = DefaultNodeName
	}
	id, err := r.s.CreateNode(name)
	if err != nil {
		return 0, fmt.Errorf("create node %q: %w", name, err)
	}
	if err := r.s.AddChild(parent, id); err != nil {
		return 0, fmt.Errorf("attach node %q: %w", name, err)
	}
	n.SetUID(uint64(id))
	r.byUID[id] = true
	r.trail.Created = append(r.trail.Created, Creation{Node: ref(r.s, id), Parent: ref(r.s, parent)})
	return id, nil
}

func (r *run) sync(n *scenegraph.Node, parent store.ID, top bool) error {
	id, err := r.resolve(n, parent, top)
	if err != nil {
		return err
	}
	r.used[id] = true

	if err := r.ensureParent(id, parent); err != nil {
		return err
	}
	if err := r.applyName(id, n); err != nil {
		return err
	}
	if err := r.applyAttribute(id, n); err != nil {
		return err
	}
	if err := r.applyTransform(id, n); err != nil {
		return err
	}
	if err := r.applyProperties(id, n); err != nil {
		return err
	}

	desired := make(map[store.ID]bool, len(n.Children))
	order := make([]store.ID, 0, len(n.Children))
	for _, child := range n.Children {
		if err := r.sync(child, id, false); err != nil {
			return err
		}
		uid, _ := child.UIDValue()
		desired[store.ID(uid)] = true
		order = append(order, store.ID(uid))
	}
	if err := r.removeOrphans(id, desired); err != nil {
		return err
	}
	return r.reorder(id, order)
}

// reorder makes the store child order of id match want. Children after the
// longest matching prefix are detached and appended again in model order.
func (r *run) reorder(id store.ID, want []store.ID) error {
	have := r.s.Children(id)
	keep := 0
	for keep < len(have) && keep < len(want) && have[keep] == want[keep] {
		keep++
	}
	if keep == len(want) && len(have) == len(want) {
		return nil
	}
	for i, child := range want[keep:] {
		if err := r.s.RemoveChild(id, child); err != nil {
			return fmt.Errorf("reorder %s: %w", store.NodePath(r.s, child), err)
		}
		if err := r.s.AddChild(id, child); err != nil {
			return fmt.Errorf("reorder %s: %w", store.NodePath(r.s, child), err)
		}
		r.trail.Reordered = append(r.trail.Reordered, Reorder{
			Node:   ref(r.s, child),
			Parent: ref(r.s, id),
			Index:  keep + i,
		})
	}
	return nil
}

func (r *run) ensureParent(id, parent store.ID) error {
	if id == parent || id == r.s.Root() {
		return nil
	}
	previous, hadParent := r.s.Parent(id)
	if hadParent && previous == parent {
		return nil
	}
	if hadParent {
		if err := r.s.RemoveChild(previous, id); err != nil {
			return fmt.Errorf("detach %s: %w", store.NodePath(r.s, id), err)
		}
	}
	if err := r.s.AddChild(parent, id); err != nil {
		return fmt.Errorf("reparent %s: %w", store.NodePath(r.s, id), err)
	}
	r.trail.Reparented = append(r.trail.Reparented, Reparent{
		Node:           ref(r.s, id),
		PreviousParent: optionalRef(r.s, previous, hadParent),
		NewParent:      ref(r.s, parent),
	})
	return nil
}

func (r *run) applyName(id store.ID, n *scenegraph.Node) error {
	editor, ok := r.s.(store.Editor)
	if !ok || n.Name == "" || id == r.s.Root() {
		return nil
	}
	previous := inspect.NodeName(r.s, id)
	if previous == n.Name {
		return nil
	}
	if err := editor.SetNodeName(id, n.Name); err != nil {
		return fmt.Errorf("rename %s: %w", store.NodePath(r.s, id), err)
	}
	r.trail.Renamed = append(r.trail.Renamed, Rename{Node: ref(r.s, id), Previous: previous})
	return nil
}

func roleFor(label string) (store.SkeletonRole, bool) {
	for _, role := range store.SkeletonRoles() {
		if role.String() == label {
			return role, true
		}
	}
	return 0, false
}

func (r *run) applyAttribute(id store.ID, n *scenegraph.Node) error {
	attr, has := r.s.Attribute(id)
	skeleton := has && attr.Kind == store.KindSkeleton

	if role, ok := roleFor(n.AttributeType); ok {
		if !r.s.SupportsSkeletonRole(role) {
			r.log.Debug("skeleton role not supported by store", zap.String("role", role.String()))
			return nil
		}
		if skeleton && attr.Role == role {
			return nil
		}
		if err := r.s.SetSkeletonRole(id, role); err != nil {
			return fmt.Errorf("set skeleton role on %s: %w", store.NodePath(r.s, id), err)
		}
	} else if n.AttributeType == scenegraph.LabelNode && skeleton {
		if err := r.s.ClearAttribute(id); err != nil {
			return fmt.Errorf("clear attribute on %s: %w", store.NodePath(r.s, id), err)
		}
	} else {
		return nil
	}
	r.trail.AttributeUpdates = append(r.trail.AttributeUpdates, AttributeUpdate{
		Node: ref(r.s, id), AttributeType: n.AttributeType, AttributeClass: n.AttributeClass,
	})
	return nil
}

func (r *run) applyTransform(id store.ID, n *scenegraph.Node) error {
	want := store.Transform{Translation: n.Translation, Rotation: n.Rotation, Scaling: n.Scaling}
	if current, err := r.s.LocalTransform(id); err == nil && current == want {
		return nil
	}
	if err := r.s.SetLocalTransform(id, want); err != nil {
		return fmt.Errorf("set transform on %s: %w", store.NodePath(r.s, id), err)
	}
	r.trail.TransformUpdates = append(r.trail.TransformUpdates, TransformUpdate{
		Node: ref(r.s, id), Translation: want.Translation, Rotation: want.Rotation, Scaling: want.Scaling,
	})
	return nil
}

// applyProperties syncs user properties. A nil property map leaves the
// store untouched.
func (r *run) applyProperties(id store.ID, n *scenegraph.Node) error {
	editor, ok := r.s.(store.Editor)
	if !ok || n.Properties == nil {
		return nil
	}
	props, err := r.s.Properties(id)
	if err != nil {
		r.log.Warn("skipping property sync", zap.String("node", store.NodePath(r.s, id)), zap.Error(err))
		return nil
	}
	current := map[string]string{}
	for _, p := range props {
		if p.Flags.Has(store.FlagUserDefined) && !store.IsTransformProperty(p.Name) {
			current[p.Name] = p.Value
		}
	}

	keys := make([]string, 0, len(n.Properties))
	for k := range n.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := n.Properties[k]
		if old, ok := current[k]; ok && old == v {
			continue
		}
		if err := editor.SetUserProperty(id, k, v); err != nil {
			return fmt.Errorf("set property %q on %s: %w", k, store.NodePath(r.s, id), err)
		}
		r.trail.PropertyUpdates = append(r.trail.PropertyUpdates, PropertyUpdate{Node: ref(r.s, id), Name: k, Value: v})
	}

	var stale []string
	for k := range current {
		if _, ok := n.Properties[k]; !ok {
			stale = append(stale, k)
		}
	}
	sort.Strings(stale)
	for _, k := range stale {
		if err := editor.DeleteUserProperty(id, k); err != nil {
			return fmt.Errorf("delete property %q on %s: %w", k, store.NodePath(r.s, id), err)
		}
		r.trail.PropertyUpdates = append(r.trail.PropertyUpdates, PropertyUpdate{Node: ref(r.s, id), Name: k, Deleted: true})
	}
	return nil
}

func (r *run) removeOrphans(id store.ID, desired map[store.ID]bool) error {
	children := r.s.Children(id)
	for i := len(children) - 1; i >= 0; i-- {
		child := children[i]
		if desired[child] {
			continue
		}
		if err := r.s.RemoveChild(id, child); err != nil {
			return fmt.Errorf("detach orphan %s: %w", store.NodePath(r.s, child), err)
		}
		r.formerParent[child] = id
		r.trail.RemovedOrphans = append(r.trail.RemovedOrphans, OrphanRemoval{Node: ref(r.s, child), Parent: ref(r.s, id)})
	}
	return nil
}

func (r *run) prune() error {
	root := r.s.Root()
	for _, id := range r.order {
		if id == root || r.used[id] {
			continue
		}
		parent, ok := r.s.Parent(id)
		if !ok {
			if parent, ok = r.formerParent[id]; !ok {
				parent = root
			}
		}
		for _, child := range r.s.Children(id) {
			if err := r.s.RemoveChild(id, child); err != nil {
				return fmt.Errorf("detach %s from pruned node: %w", store.NodePath(r.s, child), err)
			}
			if err := r.s.AddChild(parent, child); err != nil {
				return fmt.Errorf("keep %s: %w", store.NodePath(r.s, child), err)
			}
			r.trail.Reparented = append(r.trail.Reparented, Reparent{
				Node:           ref(r.s, child),
				PreviousParent: optionalRef(r.s, id, true),
				NewParent:      ref(r.s, parent),
			})
		}
		pruned := ref(r.s, id)
		if err := r.s.DestroyNode(id); err != nil {
			return fmt.Errorf("prune %s: %w", pruned.Name, err)
		}
		r.trail.Pruned = append(r.trail.Pruned, pruned)
	}
	return nil
}
