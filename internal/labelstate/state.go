// Package labelstate tracks the mutable per-class attribute values an
// operator edits between commits. Each loaded class owns one value map at all
// times; switching the active class never resets or leaks edits between
// classes.
package labelstate

import (
	"fmt"
	"sort"

	"github.com/ecosort/collector-go/internal/errors"
	"github.com/ecosort/collector-go/internal/schema"
)

// State holds the live attribute-value map for every loaded class and the
// currently active class label. It is not safe for concurrent use; the
// collector facade serializes access.
type State struct {
	schemas map[string]*schema.ClassSchema
	values  map[string]schema.AttributeValueMap
	active  string
}

// New seeds one value map per loaded class from the schema defaults. The
// active class starts as PET when loaded, otherwise the first label in sorted
// order.
func New(schemas map[string]*schema.ClassSchema) *State {
	s := &State{
		schemas: schemas,
		values:  make(map[string]schema.AttributeValueMap, len(schemas)),
	}
	for label, cs := range schemas {
		s.values[label] = schema.Resolve(cs)
	}

	if _, ok := schemas[schema.ClassPet]; ok {
		s.active = schema.ClassPet
	} else {
		labels := s.Labels()
		if len(labels) > 0 {
			s.active = labels[0]
		}
	}
	return s
}

// Labels returns the loaded class labels in sorted order.
func (s *State) Labels() []string {
	labels := make([]string, 0, len(s.values))
	for label := range s.values {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// ActiveClass returns the currently active class label.
func (s *State) ActiveClass() string {
	return s.active
}

// SetActiveClass switches which class's map is considered current. The
// contents of every map are left untouched, so switching away and back
// round-trips to identical values.
func (s *State) SetActiveClass(label string) error {
	if _, ok := s.values[label]; !ok {
		return unknownClass(label)
	}
	s.active = label
	return nil
}

// Update overwrites the value for one class/attribute pair. The value is
// stored as-is; kind validation is a UI concern, schemas are trusted.
func (s *State) Update(label, attrName string, value any) error {
	values, ok := s.values[label]
	if !ok {
		return unknownClass(label)
	}
	if s.schemas[label].Attribute(attrName) == nil {
		return errors.New(fmt.Errorf("%w: %q is not declared by class %s", errors.ErrUnknownAttribute, attrName, label)).
			Component("labelstate").
			Category(errors.CategoryState).
			Context("class", label).
			Context("attribute", attrName).
			Build()
	}
	values[attrName] = value
	return nil
}

// Reset restores one class's map to its schema defaults, discarding edits.
// Other classes' maps are not affected.
func (s *State) Reset(label string) error {
	if _, ok := s.values[label]; !ok {
		return unknownClass(label)
	}
	s.values[label] = schema.Resolve(s.schemas[label])
	return nil
}

// Snapshot returns an independent copy of one class's map. Mutating the
// returned map never affects internal state, which keeps committed samples
// immune to later edits.
func (s *State) Snapshot(label string) (schema.AttributeValueMap, error) {
	values, ok := s.values[label]
	if !ok {
		return nil, unknownClass(label)
	}
	return values.Clone(), nil
}

// Schema returns the loaded schema for a class label.
func (s *State) Schema(label string) (*schema.ClassSchema, error) {
	cs, ok := s.schemas[label]
	if !ok {
		return nil, unknownClass(label)
	}
	return cs, nil
}

func unknownClass(label string) error {
	return errors.New(fmt.Errorf("%w: %q", errors.ErrUnknownClass, label)).
		Component("labelstate").
		Category(errors.CategoryState).
		Context("class", label).
		Build()
}
