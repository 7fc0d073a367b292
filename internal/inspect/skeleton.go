package inspect

import (
	"github.com/link270/fbx-analyzer/internal/store"
	"github.com/link270/fbx-analyzer/pkg/math"
)

// Joint types used when a scene has no skeleton attributes.
const (
	JointAnimatedCluster = "AnimatedCluster"
	JointClusterLink     = "ClusterLink"
	JointAnimatedNode    = "AnimatedNode"
	JointNode            = "Node"
)

// Joint is one bone of a skeleton listing.
type Joint struct {
	Name        string    `yaml:"name" json:"name"`
	Type        string    `yaml:"type" json:"type"`
	Parent      string    `yaml:"parent,omitempty" json:"parent,omitempty"`
	Translation math.Vec3 `yaml:"translation" json:"translation"`
	Rotation    math.Vec3 `yaml:"rotation" json:"rotation"`
	Scaling     math.Vec3 `yaml:"scaling" json:"scaling"`
	Children    []*Joint  `yaml:"children,omitempty" json:"children,omitempty"`
}

// Count returns the number of joints in the subtree.
func (j *Joint) Count() int {
	n := 1
	for _, c := range j.Children {
		n += c.Count()
	}
	return n
}

// Walk visits j and its descendants in pre-order.
func (j *Joint) Walk(fn func(*Joint)) {
	fn(j)
	for _, c := range j.Children {
		c.Walk(fn)
	}
}

// Skeleton is a named joint hierarchy.
type Skeleton struct {
	Name string `yaml:"name" json:"name"`
	Root *Joint `yaml:"root" json:"root"`
}

// Skeletons lists skeleton hierarchies. Top-level skeleton-attributed
// nodes are used when present; otherwise the rig is inferred from cluster
// links and animated nodes, expanded to their ancestors below the root.
func Skeletons(s store.Scene) []Skeleton {
	if explicit := explicitSkeletons(s); len(explicit) > 0 {
		return explicit
	}
	return inferredSkeletons(s)
}

func isSkeleton(s store.Scene, id store.ID) bool {
	attr, ok := s.Attribute(id)
	return ok && attr.Kind == store.KindSkeleton
}

func newJoint(s store.Scene, id store.ID, typ, parent string) *Joint {
	local, err := s.LocalTransform(id)
	if err != nil {
		local = store.IdentityTransform()
	}
	return &Joint{
		Name:        NodeName(s, id),
		Type:        typ,
		Parent:      parent,
		Translation: local.Translation,
		Rotation:    local.Rotation,
		Scaling:     local.Scaling,
	}
}

func explicitSkeletons(s store.Scene) []Skeleton {
	var out []Skeleton
	for _, id := range store.Descendants(s, s.Root()) {
		if !isSkeleton(s, id) {
			continue
		}
		if parent, ok := s.Parent(id); ok && isSkeleton(s, parent) {
			continue
		}
		name := s.Name(id)
		if name == "" {
			name = "SkeletonRoot"
		}
		out = append(out, Skeleton{Name: name, Root: explicitJoint(s, id, "")})
	}
	return out
}

func explicitJoint(s store.Scene, id store.ID, parent string) *Joint {
	typ := JointNode
	if attr, ok := s.Attribute(id); ok && attr.Kind == store.KindSkeleton {
		typ = attr.Role.String()
	}
	j := newJoint(s, id, typ, parent)
	for _, child := range s.Children(id) {
		if isSkeleton(s, child) {
			j.Children = append(j.Children, explicitJoint(s, child, j.Name))
		}
	}
	return j
}

func inferredSkeletons(s store.Scene) []Skeleton {
	root := s.Root()
	clusterLinks := clusterLinkNodes(s)
	animated := map[store.ID]bool{}
	if len(s.Objects(store.KindAnimLayer)) > 0 {
		for _, id := range store.Descendants(s, root) {
			if isAnimated(s, id) {
				animated[id] = true
			}
		}
	}

	candidates := map[store.ID]bool{}
	for _, set := range []map[store.ID]bool{clusterLinks, animated} {
		for id := range set {
			for cur := id; cur != root && !candidates[cur]; {
				candidates[cur] = true
				parent, ok := s.Parent(cur)
				if !ok {
					break
				}
				cur = parent
			}
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	visited := map[store.ID]bool{}
	var out []Skeleton
	for _, id := range store.Descendants(s, root) {
		if !candidates[id] || visited[id] {
			continue
		}
		if parent, ok := s.Parent(id); ok && candidates[parent] {
			continue
		}
		name := s.Name(id)
		if name == "" {
			name = "AnimatedRig"
		}
		out = append(out, Skeleton{
			Name: name,
			Root: inferredJoint(s, id, "", candidates, clusterLinks, animated, visited),
		})
	}
	return out
}

func inferredJoint(s store.Scene, id store.ID, parent string, candidates, clusterLinks, animated, visited map[store.ID]bool) *Joint {
	visited[id] = true
	j := newJoint(s, id, classify(clusterLinks[id], animated[id]), parent)
	for _, child := range s.Children(id) {
		if candidates[child] && !visited[child] {
			j.Children = append(j.Children, inferredJoint(s, child, j.Name, candidates, clusterLinks, animated, visited))
		}
	}
	return j
}

func classify(inCluster, inAnimation bool) string {
	switch {
	case inCluster && inAnimation:
		return JointAnimatedCluster
	case inCluster:
		return JointClusterLink
	case inAnimation:
		return JointAnimatedNode
	}
	return JointNode
}

func clusterLinkNodes(s store.Scene) map[store.ID]bool {
	out := map[store.ID]bool{}
	for _, id := range store.Descendants(s, s.Root()) {
		mesh, ok := s.Mesh(id)
		if !ok {
			continue
		}
		for _, skin := range mesh.Skins {
			for _, c := range skin.Clusters {
				if c.HasLink {
					out[c.Link] = true
				}
			}
		}
	}
	return out
}

// isAnimated reports whether any local transform property carries the
// animated flag.
func isAnimated(s store.Scene, id store.ID) bool {
	props, err := s.Properties(id)
	if err != nil {
		return false
	}
	for _, p := range props {
		if store.IsTransformProperty(p.Name) && p.Flags.Has(store.FlagAnimated) {
			return true
		}
	}
	return false
}
