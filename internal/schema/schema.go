// Package schema loads declarative per-class attribute specifications and
// derives default attribute values from them. Schemas are locally authored
// YAML or JSON documents with a mandatory top-level "attributes" list.
package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ecosort/collector-go/internal/errors"
)

// Attribute kinds supported by class schemas.
const (
	KindEnum = "enum"
	KindBool = "bool"
	KindText = "text"
)

// Well-known class labels. The set of valid labels is exactly the set of
// schemas loaded at startup.
const (
	ClassPet     = "PET"
	ClassCan     = "CAN"
	ClassForeign = "FOREIGN"
)

// AttributeSpec is one declared attribute of a class.
type AttributeSpec struct {
	Name    string   `yaml:"name" json:"name"`
	Kind    string   `yaml:"type" json:"type"`
	Options []string `yaml:"options,omitempty" json:"options,omitempty"`
	Default any      `yaml:"default,omitempty" json:"default,omitempty"`
	Label   string   `yaml:"label,omitempty" json:"label,omitempty"`
}

// ClassSchema is the ordered attribute specification for one class label.
type ClassSchema struct {
	Label      string          `yaml:"-" json:"-"`
	Attributes []AttributeSpec `yaml:"attributes" json:"attributes"`
}

// Attribute returns the spec for the named attribute, or nil if undeclared.
func (s *ClassSchema) Attribute(name string) *AttributeSpec {
	for i := range s.Attributes {
		if s.Attributes[i].Name == name {
			return &s.Attributes[i]
		}
	}
	return nil
}

// Load reads a class schema from the given path. A path with a missing or
// wrong extension is retried with .yaml and .json variants before failing
// with ErrSchemaNotFound. A parse failure or a missing attributes list fails
// with ErrSchemaMalformed.
func Load(path string) (*ClassSchema, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, errors.New(fmt.Errorf("%w: %s: %v", errors.ErrSchemaNotFound, path, err)).
			Component("schema").
			Category(errors.CategorySchemaLoad).
			Context("path", path).
			Build()
	}

	s := &ClassSchema{}
	switch strings.ToLower(filepath.Ext(resolved)) {
	case ".json":
		err = json.Unmarshal(data, s)
	default:
		err = yaml.Unmarshal(data, s)
	}
	if err != nil {
		return nil, errors.New(fmt.Errorf("%w: %s: %v", errors.ErrSchemaMalformed, resolved, err)).
			Component("schema").
			Category(errors.CategorySchemaLoad).
			Context("path", resolved).
			Build()
	}

	if err := validate(s, resolved); err != nil {
		return nil, err
	}
	return s, nil
}

// resolvePath tries the .yaml and .json siblings of path before the exact
// path itself, mirroring how schemas were historically authored in either
// format interchangeably.
func resolvePath(path string) (string, error) {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)

	candidates := []string{stem + ".yaml", stem + ".yml", stem + ".json", path}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", errors.New(fmt.Errorf("%w: %s", errors.ErrSchemaNotFound, path)).
		Component("schema").
		Category(errors.CategorySchemaLoad).
		Context("path", path).
		Build()
}

func validate(s *ClassSchema, path string) error {
	malformed := func(format string, args ...any) error {
		return errors.New(fmt.Errorf("%w: %s: %s", errors.ErrSchemaMalformed, path, fmt.Sprintf(format, args...))).
			Component("schema").
			Category(errors.CategorySchemaLoad).
			Context("path", path).
			Build()
	}

	if len(s.Attributes) == 0 {
		return malformed("missing or empty attributes list")
	}

	seen := make(map[string]bool, len(s.Attributes))
	for i := range s.Attributes {
		a := &s.Attributes[i]
		if a.Name == "" {
			return malformed("attribute %d has no name", i)
		}
		if seen[a.Name] {
			return malformed("duplicate attribute name %q", a.Name)
		}
		seen[a.Name] = true

		switch a.Kind {
		case KindEnum:
			if len(a.Options) == 0 {
				return malformed("enum attribute %q has no options", a.Name)
			}
		case KindBool, KindText:
		default:
			return malformed("attribute %q has unsupported type %q", a.Name, a.Kind)
		}
	}
	return nil
}

// LoadAll loads the three fixed, well-known class schemas. It fails fast on
// the first error rather than partially succeeding: a dataset with an
// unloadable schema must not silently drop a class.
func LoadAll(petPath, canPath, foreignPath string) (map[string]*ClassSchema, error) {
	paths := []struct {
		label string
		path  string
	}{
		{ClassPet, petPath},
		{ClassCan, canPath},
		{ClassForeign, foreignPath},
	}

	schemas := make(map[string]*ClassSchema, len(paths))
	for _, p := range paths {
		s, err := Load(p.path)
		if err != nil {
			return nil, fmt.Errorf("loading %s schema: %w", p.label, err)
		}
		s.Label = p.label
		schemas[p.label] = s
	}
	return schemas, nil
}
