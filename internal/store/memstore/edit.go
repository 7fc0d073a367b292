package memstore

import (
	"fmt"

	"github.com/link270/fbx-analyzer/internal/store"
)

var _ store.Editor = (*Scene)(nil)

// SetNodeName renames a node.
func (s *Scene) SetNodeName(id store.ID, name string) error {
	if _, err := s.nodeOf(id); err != nil {
		return err
	}
	s.SetName(id, name)
	return nil
}

// SetUserProperty stores a user-defined string property on a node.
// Transform properties cannot be written this way.
func (s *Scene) SetUserProperty(id store.ID, name, value string) error {
	if _, err := s.nodeOf(id); err != nil {
		return err
	}
	if store.IsTransformProperty(name) {
		return fmt.Errorf("%w: %q is a transform property", store.ErrUnsupported, name)
	}
	flags := store.FlagUserDefined
	for _, p := range s.StoredProperties(id) {
		if p.Name == name {
			flags |= p.Flags
		}
	}
	s.SetProperty(id, store.Property{Name: name, TypeName: "KString", Value: value, Flags: flags})
	return nil
}

// DeleteUserProperty removes a user-defined property. Missing names are
// not an error.
func (s *Scene) DeleteUserProperty(id store.ID, name string) error {
	if _, err := s.nodeOf(id); err != nil {
		return err
	}
	for _, p := range s.StoredProperties(id) {
		if p.Name == name && p.Flags.Has(store.FlagUserDefined) {
			s.DeleteProperty(id, name)
		}
	}
	return nil
}
