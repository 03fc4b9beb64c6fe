package resolve

// Kind is the shape of a resolved schema. Exactly one payload group is
// populated per kind: Properties for objects, Items for arrays, Type/Format
// for primitives, Variants for unions.
type Kind int

const (
	// KindObject is a plain object schema, including fully merged allOf
	// results, which are indistinguishable from declared objects once
	// composition is applied.
	KindObject Kind = iota
	// KindArray is an array schema with an item schema.
	KindArray
	// KindPrimitive is a scalar schema: string, integer, number or boolean.
	// A primitive with an empty Type is an unconstrained "any" value.
	KindPrimitive
	// KindUnion is a oneOf: exactly one variant matches a payload.
	KindUnion
	// KindFlexibleUnion is an anyOf: one or more variants may match.
	KindFlexibleUnion
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindPrimitive:
		return "primitive"
	case KindUnion:
		return "union"
	case KindFlexibleUnion:
		return "flexibleUnion"
	default:
		return "unknown"
	}
}

// Property is one named member of an object schema. Property order matches
// the declaration order in the document.
type Property struct {
	Name     string
	Schema   *Schema
	Required bool
}

// Discriminator selects a union variant by property value. Mapping values
// are schema names, never pointers; explicit $ref mapping values are reduced
// to the referenced schema's name during composition.
type Discriminator struct {
	PropertyName string
	Mapping      map[string]string
}

// Constraint is a validation keyword carried through composition verbatim
// for the downstream annotation layer. The engine does not interpret values.
type Constraint struct {
	Keyword string
	Value   any
}

// Schema is the canonical, reference-free output of resolution. Once a
// schema has been handed out or cached, it is immutable.
//
// A schema may legitimately reference itself through a property or item
// schema (a tree node with children of its own type). Such cycles are
// represented by sharing the *Schema pointer, so the in-memory structure is
// cyclic but finite.
type Schema struct {
	Kind Kind

	// SourceName is the declaring name under components.schemas, or "" for
	// anonymous inline schemas.
	SourceName string

	// Type and Format are set for KindPrimitive.
	Type   string
	Format string

	Nullable bool

	// Properties is set for KindObject.
	Properties []Property
	// AdditionalProperties is the schema for free-form map values, when one
	// was declared.
	AdditionalProperties *Schema

	// Items is set for KindArray.
	Items *Schema

	// Variants is set for KindUnion and KindFlexibleUnion, in declaration
	// order.
	Variants []*Schema

	Discriminator *Discriminator

	// Constraints carries validation keywords in declaration order.
	Constraints []Constraint

	Enum        []any
	Default     any
	Example     any
	Description string
	Deprecated  bool

	// extraRequired holds required names with no matching property in the
	// declaring node. An allOf branch may flag properties another branch
	// declares, so these survive until merging resolves them.
	extraRequired []string
}

// Property returns the named property, if present.
func (s *Schema) Property(name string) (Property, bool) {
	for _, p := range s.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// Constraint returns the value of a validation keyword, if present.
func (s *Schema) Constraint(keyword string) (any, bool) {
	for _, c := range s.Constraints {
		if c.Keyword == keyword {
			return c.Value, true
		}
	}
	return nil, false
}

// IsRequired reports whether the named property is required.
func (s *Schema) IsRequired(name string) bool {
	p, ok := s.Property(name)
	return ok && p.Required
}
