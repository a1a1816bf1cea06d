package schema

import "fmt"

// AttributeValueMap maps attribute names to their current typed values,
// string for enum/text and bool for bool attributes.
type AttributeValueMap map[string]any

// Clone returns an independent copy of the map.
func (m AttributeValueMap) Clone() AttributeValueMap {
	out := make(AttributeValueMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Resolve derives the initial attribute-value mapping for a schema. Every
// declared attribute receives a value: enum attributes take their declared
// default when it is a member of options and the first option otherwise,
// bool attributes default to false and text attributes to the empty string.
// Resolve never fails for a schema that passed Load validation.
func Resolve(s *ClassSchema) AttributeValueMap {
	values := make(AttributeValueMap, len(s.Attributes))
	for i := range s.Attributes {
		a := &s.Attributes[i]
		switch a.Kind {
		case KindEnum:
			values[a.Name] = resolveEnumDefault(a)
		case KindBool:
			values[a.Name] = resolveBoolDefault(a)
		case KindText:
			values[a.Name] = resolveTextDefault(a)
		}
	}
	return values
}

func resolveEnumDefault(a *AttributeSpec) string {
	if d, ok := a.Default.(string); ok {
		for _, opt := range a.Options {
			if opt == d {
				return d
			}
		}
	}
	return a.Options[0]
}

func resolveBoolDefault(a *AttributeSpec) bool {
	if d, ok := a.Default.(bool); ok {
		return d
	}
	return false
}

func resolveTextDefault(a *AttributeSpec) string {
	switch d := a.Default.(type) {
	case string:
		return d
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", d)
	}
}
