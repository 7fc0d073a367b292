package store

import (
	"context"
	"fmt"
	"strings"
)

// Descendants returns from and every node below it in pre-order.
func Descendants(s Scene, from ID) []ID {
	var out []ID
	stack := []ID{from}
	seen := make(map[ID]bool)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
		children := s.Children(id)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return out
}

// NodePath returns the slash-delimited ancestor-name path of a node, rooted
// at the scene root, e.g. "/RootNode/Hips/Spine".
func NodePath(s Scene, id ID) string {
	var names []string
	seen := make(map[ID]bool)
	for current, ok := id, true; ok && !seen[current]; current, ok = s.Parent(current) {
		seen[current] = true
		name := s.Name(current)
		if name == "" {
			name = "<unnamed>"
		}
		names = append(names, name)
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return "/" + strings.Join(names, "/")
}

// FindByPath resolves a path produced by NodePath. The first matching node
// in traversal order wins. Both rooted ("/Root/A") and root-relative ("A")
// forms are accepted.
func FindByPath(s Scene, path string) (ID, bool) {
	var segments []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	root := s.Root()
	if len(segments) == 0 {
		return root, true
	}
	if s.Name(root) == segments[0] {
		if len(segments) == 1 {
			return root, true
		}
		if id, ok := matchPath(s, root, segments[1:]); ok {
			return id, true
		}
	}
	return matchPath(s, root, segments)
}

func matchPath(s Scene, parent ID, segments []string) (ID, bool) {
	for _, child := range s.Children(parent) {
		if s.Name(child) != segments[0] {
			continue
		}
		if len(segments) == 1 {
			return child, true
		}
		if id, ok := matchPath(s, child, segments[1:]); ok {
			return id, true
		}
	}
	return 0, false
}

// WithSession opens a session on the engine, loads path into it and runs fn.
// The session is closed on every exit path.
func WithSession(ctx context.Context, engine Engine, path string, fn func(Session) error) (err error) {
	session, err := engine.Open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close session: %w", cerr)
		}
	}()
	if err := session.Load(ctx, path); err != nil {
		return err
	}
	return fn(session)
}
