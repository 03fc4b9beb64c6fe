package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/openapikt/openapikt/document"
)

// position describes where a $ref was encountered. Composition branches and
// ref chains are strict: the target's full content is needed immediately, so
// revisiting a pointer already being resolved is a genuine cycle. Property,
// item and additionalProperties values are lazy: a back-reference there is
// legal self-reference and is resolved by sharing the in-progress schema
// instance.
type position int

const (
	positionStrict position = iota
	positionLazy
)

// structuralKeys are schema keywords the composer interprets itself. Every
// other keyword is carried through verbatim as a validation constraint.
var structuralKeys = map[string]struct{}{
	"$ref":                 {},
	"allOf":                {},
	"oneOf":                {},
	"anyOf":                {},
	"type":                 {},
	"format":               {},
	"properties":           {},
	"required":             {},
	"items":                {},
	"additionalProperties": {},
	"discriminator":        {},
	"nullable":             {},
	"enum":                 {},
	"default":              {},
	"example":              {},
	"description":          {},
	"deprecated":           {},
}

// composer resolves one top-level schema and everything reachable from it.
// Each top-level resolution gets its own composer, so the visited trail is
// never shared across independent schemas; only the engine's cache is.
type composer struct {
	eng  *Engine
	res  *resolver
	tr   *trail
	opts *Options

	// building maps pointers to schema instances currently being filled in.
	// A lazy back-reference to one of these returns the shared instance,
	// tying the knot for recursive schemas.
	building map[string]*Schema
	// completed holds schemas finished during this session, flushed into
	// the engine cache once the whole top-level resolution succeeds.
	completed map[string]*Schema

	depth int
	path  []string
}

func (e *Engine) newComposer(basePath ...string) *composer {
	return &composer{
		eng:       e,
		res:       e.res,
		tr:        newTrail(),
		opts:      &e.opts,
		building:  make(map[string]*Schema),
		completed: make(map[string]*Schema),
		path:      basePath,
	}
}

func (c *composer) at() string {
	if len(c.path) == 0 {
		return "$"
	}
	return strings.Join(c.path, "/")
}

func (c *composer) push(segment string) { c.path = append(c.path, segment) }
func (c *composer) pop()                { c.path = c.path[:len(c.path)-1] }

// resolveSchema resolves an arbitrary schema node: a $ref, a composition, or
// a plain schema.
func (c *composer) resolveSchema(ctx context.Context, node *document.Node, pos position) (*Schema, error) {
	if node == nil || node.Kind == document.KindNull {
		return &Schema{Kind: KindPrimitive}, nil
	}
	if node.Kind == document.KindBool {
		// JSON Schema boolean form: true admits anything, false admits
		// nothing. Both map to an unconstrained value for generation.
		return &Schema{Kind: KindPrimitive}, nil
	}
	if node.Kind != document.KindMapping {
		return nil, &UnsupportedSchemaShapeError{
			Shape: fmt.Sprintf("schema must be a mapping, got %s", node.Kind),
			Path:  c.at(),
		}
	}

	if ref := node.StringOf("$ref"); ref != "" {
		return c.resolveRef(ctx, ref, pos)
	}

	out := &Schema{}
	if err := c.fill(ctx, node, out); err != nil {
		return nil, err
	}
	return out, nil
}

// resolveRef follows a $ref pointer and resolves its target.
func (c *composer) resolveRef(ctx context.Context, pointer string, pos position) (*Schema, error) {
	if pointer == "" {
		return nil, &UnsupportedSchemaShapeError{Shape: "$ref with empty pointer", Path: c.at()}
	}

	if s, ok := c.building[pointer]; ok {
		if pos == positionLazy {
			// Legal self-reference through a property or item: share the
			// in-progress instance. It is complete by the time the
			// top-level resolution returns.
			return s, nil
		}
		chain := make([]string, 0, len(c.tr.stack)+1)
		chain = append(chain, c.tr.stack...)
		chain = append(chain, pointer)
		return nil, &CircularReferenceError{Chain: chain}
	}

	if s, ok := c.completed[pointer]; ok {
		return s, nil
	}
	if s, ok := c.eng.cache.peek(pointer); ok {
		return s, nil
	}

	if err := c.tr.enter(pointer); err != nil {
		return nil, err
	}
	out := &Schema{}
	c.building[pointer] = out
	defer func() {
		delete(c.building, pointer)
		c.tr.leave(pointer)
	}()

	raw, err := c.res.resolve(ctx, pointer, c.at())
	if err != nil {
		return nil, err
	}

	if inner := raw.StringOf("$ref"); inner != "" {
		// Pure alias chain. Followed strictly so alias loops are caught.
		target, err := c.resolveRef(ctx, inner, positionStrict)
		if err != nil {
			return nil, err
		}
		*out = *target
	} else if err := c.fill(ctx, raw, out); err != nil {
		return nil, err
	}

	if name, ok := strings.CutPrefix(pointer, "#/components/schemas/"); ok && !strings.Contains(name, "/") {
		out.SourceName = unescapePointerSegment(name)
	}

	c.completed[pointer] = out
	return out, nil
}

// fill composes a non-ref schema node into out. Filling in place (rather
// than returning a fresh value) is what lets resolveRef hand out the
// in-progress instance for recursive schemas.
func (c *composer) fill(ctx context.Context, node *document.Node, out *Schema) error {
	c.depth++
	defer func() { c.depth-- }()
	if c.depth > c.opts.MaxDepth {
		return &RecursionLimitError{Limit: c.opts.MaxDepth, Path: c.at()}
	}

	switch {
	case node.Has("allOf"):
		return c.fillAllOf(ctx, node, out)
	case node.Has("oneOf"):
		return c.fillUnion(ctx, node, out, "oneOf", KindUnion)
	case node.Has("anyOf"):
		return c.fillUnion(ctx, node, out, "anyOf", KindFlexibleUnion)
	default:
		return c.fillPlain(ctx, node, out)
	}
}

// fillPlain handles schemas without composition keywords.
func (c *composer) fillPlain(ctx context.Context, node *document.Node, out *Schema) error {
	typ, nullable, err := c.normalizeType(node)
	if err != nil {
		return err
	}

	out.Nullable = nullable
	out.Description = node.StringOf("description")
	if deprecated, ok := node.BoolOf("deprecated"); ok {
		out.Deprecated = deprecated
	}
	if def, ok := node.Get("default"); ok {
		out.Default = def.Interface()
	}
	if example, ok := node.Get("example"); ok {
		out.Example = example.Interface()
	}
	for _, v := range node.SequenceOf("enum") {
		out.Enum = append(out.Enum, v.Interface())
	}
	c.collectConstraints(node, out)

	switch typ {
	case "object":
		out.Kind = KindObject
		if err := c.fillObject(ctx, node, out); err != nil {
			return err
		}
	case "array":
		out.Kind = KindArray
		if items, ok := node.Get("items"); ok {
			c.push("items")
			item, err := c.resolveSchema(ctx, items, positionLazy)
			c.pop()
			if err != nil {
				return err
			}
			out.Items = item
		}
	case "", "string", "integer", "number", "boolean":
		out.Kind = KindPrimitive
		out.Type = typ
		out.Format = node.StringOf("format")
		if typ == "" {
			// A bare required list is a legal allOf branch; its names flag
			// properties declared elsewhere.
			out.extraRequired = requiredNames(node)
		}
	default:
		return &UnsupportedSchemaShapeError{
			Shape: fmt.Sprintf("unknown type %q", typ),
			Path:  c.at(),
		}
	}

	return nil
}

func (c *composer) fillObject(ctx context.Context, node *document.Node, out *Schema) error {
	required := requiredNames(node)
	requiredSet := make(map[string]struct{}, len(required))
	for _, name := range required {
		requiredSet[name] = struct{}{}
	}
	matched := make(map[string]struct{})

	if props := node.MappingOf("properties"); props != nil {
		out.Properties = make([]Property, 0, len(props.Entries))
		for _, entry := range props.Entries {
			c.push("properties/" + entry.Key)
			child, err := c.resolveSchema(ctx, entry.Value, positionLazy)
			c.pop()
			if err != nil {
				return err
			}
			_, req := requiredSet[entry.Key]
			if req {
				matched[entry.Key] = struct{}{}
			}
			out.Properties = append(out.Properties, Property{
				Name:     entry.Key,
				Schema:   child,
				Required: req,
			})
		}
	}

	// Required names without a local property may flag one declared in
	// another allOf branch; keep them so merging can apply the union.
	for _, name := range required {
		if _, ok := matched[name]; !ok {
			out.extraRequired = append(out.extraRequired, name)
		}
	}

	if ap, ok := node.Get("additionalProperties"); ok && ap.Kind == document.KindMapping {
		c.push("additionalProperties")
		child, err := c.resolveSchema(ctx, ap, positionLazy)
		c.pop()
		if err != nil {
			return err
		}
		out.AdditionalProperties = child
	}

	return nil
}

// fillAllOf merges every branch left to right into a single object schema.
func (c *composer) fillAllOf(ctx context.Context, node *document.Node, out *Schema) error {
	branchNodes := node.SequenceOf("allOf")
	if len(branchNodes) == 0 {
		return &UnsupportedSchemaShapeError{Shape: "allOf with zero branches", Path: c.at()}
	}

	branches := make([]*Schema, 0, len(branchNodes)+1)
	for i, bn := range branchNodes {
		c.push(fmt.Sprintf("allOf/%d", i))
		branch, err := c.resolveSchema(ctx, bn, positionStrict)
		c.pop()
		if err != nil {
			return err
		}
		branches = append(branches, branch)
	}

	// Sibling properties next to allOf act as one more branch, applied last.
	if node.Has("properties") || node.Has("required") || node.Has("additionalProperties") {
		sibling := &Schema{Kind: KindObject}
		if err := c.fillObject(ctx, node, sibling); err != nil {
			return err
		}
		branches = append(branches, sibling)
	}

	out.Kind = KindObject
	out.Description = node.StringOf("description")
	if nullable, ok := node.BoolOf("nullable"); ok {
		out.Nullable = nullable
	}
	c.collectConstraints(node, out)

	index := make(map[string]int)
	keywordIndex := make(map[string]int)
	for i := range out.Constraints {
		keywordIndex[out.Constraints[i].Keyword] = i
	}

	var pendingRequired []string
	pendingSeen := make(map[string]struct{})

	for _, branch := range branches {
		if err := c.checkMergeable(branch); err != nil {
			return err
		}

		for _, name := range branch.extraRequired {
			if _, ok := pendingSeen[name]; !ok {
				pendingSeen[name] = struct{}{}
				pendingRequired = append(pendingRequired, name)
			}
		}

		for _, prop := range branch.Properties {
			existing, ok := index[prop.Name]
			if !ok {
				index[prop.Name] = len(out.Properties)
				out.Properties = append(out.Properties, prop)
				continue
			}
			prev := out.Properties[existing]
			if err := c.checkPropertyCompatible(prop.Name, prev.Schema, prop.Schema); err != nil {
				return err
			}
			// Later branches win the property definition; required status
			// is the union of all branches.
			out.Properties[existing] = Property{
				Name:     prop.Name,
				Schema:   prop.Schema,
				Required: prev.Required || prop.Required,
			}
		}

		if branch.AdditionalProperties != nil {
			out.AdditionalProperties = branch.AdditionalProperties
		}
		out.Nullable = out.Nullable || branch.Nullable
		if branch.Description != "" && out.Description == "" {
			out.Description = branch.Description
		}
		for _, constraint := range branch.Constraints {
			if i, ok := keywordIndex[constraint.Keyword]; ok {
				out.Constraints[i] = constraint
				continue
			}
			keywordIndex[constraint.Keyword] = len(out.Constraints)
			out.Constraints = append(out.Constraints, constraint)
		}
	}

	// A required name may live in a different branch than the property it
	// flags, so the union is applied only once every branch has merged.
	for _, name := range pendingRequired {
		if i, ok := index[name]; ok {
			out.Properties[i].Required = true
			continue
		}
		out.extraRequired = append(out.extraRequired, name)
	}

	return nil
}

// requiredNames reads the required keyword's string entries in declaration
// order.
func requiredNames(node *document.Node) []string {
	items := node.SequenceOf("required")
	if len(items) == 0 {
		return nil
	}
	names := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, r := range items {
		if r.Kind != document.KindString {
			continue
		}
		if _, dup := seen[r.Str]; dup {
			continue
		}
		seen[r.Str] = struct{}{}
		names = append(names, r.Str)
	}
	return names
}

// checkMergeable rejects allOf branches that cannot merge into an object.
// An unconstrained branch (no type, no properties) contributes constraints
// only and is always mergeable.
func (c *composer) checkMergeable(branch *Schema) error {
	switch branch.Kind {
	case KindObject:
		return nil
	case KindPrimitive:
		if branch.Type == "" {
			return nil
		}
		return &SchemaCompositionError{
			Op:     "allOf",
			Path:   c.at(),
			Reason: fmt.Sprintf("incompatible base types: cannot merge %s branch into an object", branch.Type),
		}
	default:
		return &SchemaCompositionError{
			Op:     "allOf",
			Path:   c.at(),
			Reason: fmt.Sprintf("incompatible base types: cannot merge %s branch into an object", branch.Kind),
		}
	}
}

// checkPropertyCompatible rejects colliding property definitions with
// incompatible types. A silent pick between string and integer would be a
// real bug in generated code, so this is an error rather than
// last-writer-wins.
func (c *composer) checkPropertyCompatible(name string, prev, next *Schema) error {
	if prev == nil || next == nil || prev == next {
		return nil
	}
	if prev.Kind != next.Kind {
		return &SchemaCompositionError{
			Op:     "allOf",
			Path:   c.at(),
			Reason: fmt.Sprintf("property %q: incompatible kinds %s and %s", name, prev.Kind, next.Kind),
		}
	}
	if prev.Kind == KindPrimitive && prev.Type != next.Type && prev.Type != "" && next.Type != "" {
		return &SchemaCompositionError{
			Op:     "allOf",
			Path:   c.at(),
			Reason: fmt.Sprintf("property %q: incompatible types %s and %s", name, prev.Type, next.Type),
		}
	}
	return nil
}

// fillUnion handles oneOf and anyOf.
func (c *composer) fillUnion(ctx context.Context, node *document.Node, out *Schema, op string, kind Kind) error {
	variantNodes := node.SequenceOf(op)
	if len(variantNodes) == 0 {
		return &UnsupportedSchemaShapeError{Shape: op + " with zero variants", Path: c.at()}
	}

	out.Kind = kind
	out.Description = node.StringOf("description")
	if nullable, ok := node.BoolOf("nullable"); ok {
		out.Nullable = nullable
	}

	out.Variants = make([]*Schema, 0, len(variantNodes))
	for i, vn := range variantNodes {
		c.push(fmt.Sprintf("%s/%d", op, i))
		variant, err := c.resolveSchema(ctx, vn, positionStrict)
		c.pop()
		if err != nil {
			return err
		}
		out.Variants = append(out.Variants, variant)
	}

	// Discriminators only select among exclusive variants.
	if op == "oneOf" {
		disc, err := c.buildDiscriminator(node, out.Variants)
		if err != nil {
			return err
		}
		out.Discriminator = disc
	}

	return nil
}

// buildDiscriminator assembles the discriminator mapping from the explicit
// mapping table, or falls back to each variant's source name.
func (c *composer) buildDiscriminator(node *document.Node, variants []*Schema) (*Discriminator, error) {
	discNode := node.MappingOf("discriminator")
	if discNode == nil {
		return nil, nil
	}
	propertyName := discNode.StringOf("propertyName")
	if propertyName == "" {
		return nil, &UnsupportedSchemaShapeError{
			Shape: "discriminator without propertyName",
			Path:  c.at(),
		}
	}

	disc := &Discriminator{PropertyName: propertyName, Mapping: make(map[string]string)}

	if mapping := discNode.MappingOf("mapping"); mapping != nil {
		for _, entry := range mapping.Entries {
			if entry.Value.Kind != document.KindString {
				continue
			}
			name := entry.Value.Str
			if strings.Contains(name, "/") {
				name = SchemaNameFromPointer(name)
			}
			if existing, dup := disc.Mapping[entry.Key]; dup && existing != name {
				return nil, &SchemaCompositionError{
					Op:     "oneOf",
					Path:   c.at(),
					Reason: fmt.Sprintf("ambiguous discriminator mapping for value %q", entry.Key),
				}
			}
			disc.Mapping[entry.Key] = name
		}
		return disc, nil
	}

	// Implicit mapping: the variant's declared schema name doubles as the
	// discriminator value. Anonymous variants cannot participate.
	for _, variant := range variants {
		if variant.SourceName == "" {
			continue
		}
		if _, dup := disc.Mapping[variant.SourceName]; dup {
			return nil, &SchemaCompositionError{
				Op:     "oneOf",
				Path:   c.at(),
				Reason: fmt.Sprintf("ambiguous discriminator mapping: variant %q appears more than once", variant.SourceName),
			}
		}
		disc.Mapping[variant.SourceName] = variant.SourceName
	}
	return disc, nil
}

// normalizeType reads the type keyword, accepting both the 3.0 scalar form
// with a separate nullable flag and the 3.1 array form with "null" as a
// member. When type is absent it is inferred from structure.
func (c *composer) normalizeType(node *document.Node) (string, bool, error) {
	nullable := false
	if v, ok := node.BoolOf("nullable"); ok {
		nullable = v
	}

	typeNode, ok := node.Get("type")
	if !ok {
		switch {
		case node.Has("properties") || node.Has("additionalProperties"):
			return "object", nullable, nil
		case node.Has("items"):
			return "array", nullable, nil
		default:
			return "", nullable, nil
		}
	}

	switch typeNode.Kind {
	case document.KindString:
		// Scalar "null" is the degenerate 3.1 form of type: ["null"].
		if typeNode.Str == "null" {
			return "", true, nil
		}
		return typeNode.Str, nullable, nil
	case document.KindSequence:
		var concrete []string
		for _, item := range typeNode.Items {
			if item.Kind != document.KindString {
				continue
			}
			if item.Str == "null" {
				nullable = true
				continue
			}
			concrete = append(concrete, item.Str)
		}
		switch len(concrete) {
		case 0:
			return "", nullable, nil
		case 1:
			return concrete[0], nullable, nil
		default:
			return "", false, &UnsupportedSchemaShapeError{
				Shape: fmt.Sprintf("type lists multiple concrete types %v", concrete),
				Path:  c.at(),
			}
		}
	default:
		return "", false, &UnsupportedSchemaShapeError{
			Shape: fmt.Sprintf("type must be a string or array, got %s", typeNode.Kind),
			Path:  c.at(),
		}
	}
}

// collectConstraints copies every non-structural keyword through verbatim.
func (c *composer) collectConstraints(node *document.Node, out *Schema) {
	for _, entry := range node.Entries {
		if _, structural := structuralKeys[entry.Key]; structural {
			continue
		}
		out.Constraints = append(out.Constraints, Constraint{
			Keyword: entry.Key,
			Value:   entry.Value.Interface(),
		})
	}
}
