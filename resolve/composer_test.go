package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openapikt/openapikt/document"
)

// minimalSpec wraps a components.schemas block in a valid document.
func minimalSpec(schemas string) string {
	spec := `
openapi: 3.0.3
info:
  title: Test API
  version: 1.0.0
paths:
  /ping:
    get:
      responses:
        "204":
          description: pong
`
	if schemas != "" {
		spec += "components:\n  schemas:\n" + schemas
	}
	return spec
}

func mustDocument(t *testing.T, spec string) *document.Document {
	t.Helper()
	doc, err := document.FromBytes([]byte(spec), document.FormatYAML, "test.yaml")
	require.NoError(t, err)
	return doc
}

func testEngine(t *testing.T, schemas string) *Engine {
	t.Helper()
	return New(mustDocument(t, minimalSpec(schemas)), DefaultOptions())
}

func resolveName(t *testing.T, e *Engine, name string) *Schema {
	t.Helper()
	s, err := e.ResolveRef(context.Background(), "#/components/schemas/"+name)
	require.NoError(t, err)
	require.NotNil(t, s)
	return s
}

func TestResolvePlainObject(t *testing.T) {
	e := testEngine(t, `
    User:
      type: object
      description: A registered user.
      required: [id, email]
      properties:
        id:
          type: string
          format: uuid
        email:
          type: string
          format: email
        age:
          type: integer
          format: int64
          minimum: 0
`)

	s := resolveName(t, e, "User")
	assert.Equal(t, KindObject, s.Kind)
	assert.Equal(t, "User", s.SourceName)
	assert.Equal(t, "A registered user.", s.Description)
	require.Len(t, s.Properties, 3)

	id := s.Properties[0]
	assert.Equal(t, "id", id.Name)
	assert.True(t, id.Required)
	assert.Equal(t, "uuid", id.Schema.Format)

	age := s.Properties[2]
	assert.False(t, age.Required)
	assert.Equal(t, "int64", age.Schema.Format)
	minimum, ok := age.Schema.Constraint("minimum")
	require.True(t, ok)
	assert.EqualValues(t, 0, minimum)
}

func TestResolveRefChain(t *testing.T) {
	e := testEngine(t, `
    UserAlias:
      $ref: "#/components/schemas/User"
    User:
      type: object
      properties:
        name:
          type: string
`)

	s := resolveName(t, e, "UserAlias")
	assert.Equal(t, KindObject, s.Kind)
	// The alias keeps its own name; the content comes from the target.
	assert.Equal(t, "UserAlias", s.SourceName)
	require.Len(t, s.Properties, 1)
	assert.Equal(t, "name", s.Properties[0].Name)
}

func TestResolveRefNotFound(t *testing.T) {
	e := testEngine(t, `
    User:
      type: object
      properties:
        pet:
          $ref: "#/components/schemas/Missing"
`)

	_, err := e.ResolveRef(context.Background(), "#/components/schemas/User")
	require.Error(t, err)

	var notFound *ReferenceNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "Missing", notFound.Segment)
	assert.Contains(t, err.Error(), "components section")
}

func TestSelfReferenceThroughProperty(t *testing.T) {
	e := testEngine(t, `
    TreeNode:
      type: object
      required: [value]
      properties:
        value:
          type: string
        children:
          type: array
          items:
            $ref: "#/components/schemas/TreeNode"
`)

	s := resolveName(t, e, "TreeNode")
	require.Len(t, s.Properties, 2)

	children := s.Properties[1]
	require.Equal(t, KindArray, children.Schema.Kind)
	// The items schema is the node itself: the cycle is tied in memory.
	assert.Same(t, s, children.Schema.Items)
}

func TestMutualRecursionThroughProperties(t *testing.T) {
	e := testEngine(t, `
    Author:
      type: object
      properties:
        name:
          type: string
        books:
          type: array
          items:
            $ref: "#/components/schemas/Book"
    Book:
      type: object
      properties:
        title:
          type: string
        author:
          $ref: "#/components/schemas/Author"
`)

	author := resolveName(t, e, "Author")
	books := author.Properties[1].Schema
	require.Equal(t, KindArray, books.Kind)
	book := books.Items
	require.NotNil(t, book)
	assert.Equal(t, "Book", book.SourceName)
	require.Len(t, book.Properties, 2)
	assert.Same(t, author, book.Properties[1].Schema)
}

func TestAliasCycleFails(t *testing.T) {
	e := testEngine(t, `
    A:
      $ref: "#/components/schemas/B"
    B:
      $ref: "#/components/schemas/A"
`)

	_, err := e.ResolveRef(context.Background(), "#/components/schemas/A")
	var circular *CircularReferenceError
	require.ErrorAs(t, err, &circular)
	assert.Equal(t, []string{
		"#/components/schemas/A",
		"#/components/schemas/B",
		"#/components/schemas/A",
	}, circular.Chain)
}

func TestAllOfCycleFails(t *testing.T) {
	e := testEngine(t, `
    A:
      allOf:
        - $ref: "#/components/schemas/B"
    B:
      allOf:
        - $ref: "#/components/schemas/A"
`)

	_, err := e.ResolveRef(context.Background(), "#/components/schemas/A")
	var circular *CircularReferenceError
	require.ErrorAs(t, err, &circular)
}

func TestAllOfMerge(t *testing.T) {
	e := testEngine(t, `
    BaseEntity:
      type: object
      required: [id]
      properties:
        id:
          type: string
        createdAt:
          type: string
          format: date-time
    User:
      allOf:
        - $ref: "#/components/schemas/BaseEntity"
        - type: object
          required: [email]
          properties:
            email:
              type: string
`)

	s := resolveName(t, e, "User")
	assert.Equal(t, KindObject, s.Kind)
	require.Len(t, s.Properties, 3)

	names := []string{s.Properties[0].Name, s.Properties[1].Name, s.Properties[2].Name}
	assert.Equal(t, []string{"id", "createdAt", "email"}, names)
	assert.True(t, s.IsRequired("id"))
	assert.True(t, s.IsRequired("email"))
	assert.False(t, s.IsRequired("createdAt"))
}

func TestAllOfLastBranchWinsCompatibleProperty(t *testing.T) {
	e := testEngine(t, `
    Widget:
      allOf:
        - type: object
          properties:
            name:
              type: string
              description: first
        - type: object
          required: [name]
          properties:
            name:
              type: string
              description: second
`)

	s := resolveName(t, e, "Widget")
	require.Len(t, s.Properties, 1)
	assert.Equal(t, "second", s.Properties[0].Schema.Description)
	assert.True(t, s.Properties[0].Required)
}

func TestAllOfSiblingProperties(t *testing.T) {
	e := testEngine(t, `
    Base:
      type: object
      properties:
        id:
          type: string
    Extended:
      allOf:
        - $ref: "#/components/schemas/Base"
      properties:
        extra:
          type: boolean
`)

	s := resolveName(t, e, "Extended")
	require.Len(t, s.Properties, 2)
	assert.Equal(t, "id", s.Properties[0].Name)
	assert.Equal(t, "extra", s.Properties[1].Name)
}

func TestAllOfPropertyTypeConflict(t *testing.T) {
	e := testEngine(t, `
    Broken:
      allOf:
        - type: object
          properties:
            value:
              type: string
        - type: object
          properties:
            value:
              type: integer
`)

	_, err := e.ResolveRef(context.Background(), "#/components/schemas/Broken")
	var composition *SchemaCompositionError
	require.ErrorAs(t, err, &composition)
	assert.Equal(t, "allOf", composition.Op)
	assert.Contains(t, composition.Reason, "value")
}

func TestAllOfIncompatibleBaseTypes(t *testing.T) {
	e := testEngine(t, `
    Broken:
      allOf:
        - type: object
          properties:
            a:
              type: string
        - type: string
`)

	_, err := e.ResolveRef(context.Background(), "#/components/schemas/Broken")
	var composition *SchemaCompositionError
	require.ErrorAs(t, err, &composition)
	assert.Contains(t, composition.Reason, "incompatible base types")
}

func TestAllOfConstraintsOnlyBranch(t *testing.T) {
	e := testEngine(t, `
    Named:
      allOf:
        - type: object
          properties:
            name:
              type: string
        - description: just metadata
          minProperties: 1
`)

	s := resolveName(t, e, "Named")
	assert.Equal(t, KindObject, s.Kind)
	require.Len(t, s.Properties, 1)
	_, ok := s.Constraint("minProperties")
	assert.True(t, ok)
}

func TestAllOfRequiredInSeparateBranch(t *testing.T) {
	e := testEngine(t, `
    Tagged:
      allOf:
        - type: object
          properties:
            id:
              type: string
            label:
              type: string
        - required: [id]
`)

	s := resolveName(t, e, "Tagged")
	assert.Equal(t, KindObject, s.Kind)
	assert.True(t, s.IsRequired("id"))
	assert.False(t, s.IsRequired("label"))
}

func TestAllOfSiblingRequiredFlagsInheritedProperty(t *testing.T) {
	e := testEngine(t, `
    Base:
      type: object
      properties:
        id:
          type: string
        name:
          type: string
    Strict:
      allOf:
        - $ref: "#/components/schemas/Base"
      required: [id]
`)

	strict := resolveName(t, e, "Strict")
	require.Len(t, strict.Properties, 2)
	assert.True(t, strict.IsRequired("id"))
	assert.False(t, strict.IsRequired("name"))

	// The shared base keeps its own required set.
	base := resolveName(t, e, "Base")
	assert.False(t, base.IsRequired("id"))
}

func TestEmptyCompositionsRejected(t *testing.T) {
	for _, op := range []string{"allOf", "oneOf", "anyOf"} {
		t.Run(op, func(t *testing.T) {
			e := testEngine(t, `
    Broken:
      `+op+`: []
`)
			_, err := e.ResolveRef(context.Background(), "#/components/schemas/Broken")
			var shape *UnsupportedSchemaShapeError
			require.ErrorAs(t, err, &shape)
		})
	}
}

func TestOneOfExplicitDiscriminatorMapping(t *testing.T) {
	e := testEngine(t, `
    EmailNotification:
      type: object
      properties:
        channel:
          type: string
        address:
          type: string
    SMSNotification:
      type: object
      properties:
        channel:
          type: string
        number:
          type: string
    Notification:
      oneOf:
        - $ref: "#/components/schemas/EmailNotification"
        - $ref: "#/components/schemas/SMSNotification"
      discriminator:
        propertyName: channel
        mapping:
          email: "#/components/schemas/EmailNotification"
          sms: SMSNotification
`)

	s := resolveName(t, e, "Notification")
	assert.Equal(t, KindUnion, s.Kind)
	require.Len(t, s.Variants, 2)
	require.NotNil(t, s.Discriminator)
	assert.Equal(t, "channel", s.Discriminator.PropertyName)
	assert.Equal(t, map[string]string{
		"email": "EmailNotification",
		"sms":   "SMSNotification",
	}, s.Discriminator.Mapping)
}

func TestOneOfImplicitDiscriminatorMapping(t *testing.T) {
	e := testEngine(t, `
    Cat:
      type: object
      properties:
        kind:
          type: string
    Dog:
      type: object
      properties:
        kind:
          type: string
    Pet:
      oneOf:
        - $ref: "#/components/schemas/Cat"
        - $ref: "#/components/schemas/Dog"
      discriminator:
        propertyName: kind
`)

	s := resolveName(t, e, "Pet")
	require.NotNil(t, s.Discriminator)
	assert.Equal(t, map[string]string{"Cat": "Cat", "Dog": "Dog"}, s.Discriminator.Mapping)
}

func TestOneOfAmbiguousImplicitMapping(t *testing.T) {
	e := testEngine(t, `
    Cat:
      type: object
      properties:
        kind:
          type: string
    Pet:
      oneOf:
        - $ref: "#/components/schemas/Cat"
        - $ref: "#/components/schemas/Cat"
      discriminator:
        propertyName: kind
`)

	_, err := e.ResolveRef(context.Background(), "#/components/schemas/Pet")
	var composition *SchemaCompositionError
	require.ErrorAs(t, err, &composition)
	assert.Contains(t, composition.Reason, "ambiguous")
}

func TestOneOfWithoutDiscriminator(t *testing.T) {
	e := testEngine(t, `
    Value:
      oneOf:
        - type: string
        - type: integer
`)

	s := resolveName(t, e, "Value")
	assert.Equal(t, KindUnion, s.Kind)
	assert.Nil(t, s.Discriminator)
	require.Len(t, s.Variants, 2)
}

func TestAnyOfFlexibleUnion(t *testing.T) {
	e := testEngine(t, `
    Flexible:
      anyOf:
        - type: string
        - type: object
          properties:
            id:
              type: string
      discriminator:
        propertyName: kind
`)

	s := resolveName(t, e, "Flexible")
	assert.Equal(t, KindFlexibleUnion, s.Kind)
	// anyOf variants are not exclusive; discriminators do not apply.
	assert.Nil(t, s.Discriminator)
}

func TestNullableForms(t *testing.T) {
	e := testEngine(t, `
    Legacy:
      type: string
      nullable: true
    Modern:
      type: [string, "null"]
    Plain:
      type: string
    OnlyNull:
      type: "null"
`)

	assert.True(t, resolveName(t, e, "Legacy").Nullable)
	assert.True(t, resolveName(t, e, "Modern").Nullable)
	assert.False(t, resolveName(t, e, "Plain").Nullable)

	modern := resolveName(t, e, "Modern")
	assert.Equal(t, "string", modern.Type)

	// Scalar "null" is the degenerate form of type: ["null"].
	onlyNull := resolveName(t, e, "OnlyNull")
	assert.True(t, onlyNull.Nullable)
	assert.Equal(t, KindPrimitive, onlyNull.Kind)
	assert.Empty(t, onlyNull.Type)
}

func TestTypeArrayMultipleConcreteTypesRejected(t *testing.T) {
	e := testEngine(t, `
    Broken:
      type: [string, integer]
`)

	_, err := e.ResolveRef(context.Background(), "#/components/schemas/Broken")
	var shape *UnsupportedSchemaShapeError
	require.ErrorAs(t, err, &shape)
}

func TestTypeInference(t *testing.T) {
	e := testEngine(t, `
    InferredObject:
      properties:
        a:
          type: string
    InferredArray:
      items:
        type: string
    Unconstrained: {}
`)

	assert.Equal(t, KindObject, resolveName(t, e, "InferredObject").Kind)
	assert.Equal(t, KindArray, resolveName(t, e, "InferredArray").Kind)

	un := resolveName(t, e, "Unconstrained")
	assert.Equal(t, KindPrimitive, un.Kind)
	assert.Empty(t, un.Type)
}

func TestEnumAndMetadata(t *testing.T) {
	e := testEngine(t, `
    Status:
      type: string
      enum: [active, disabled]
      default: active
      deprecated: true
      example: active
`)

	s := resolveName(t, e, "Status")
	assert.Equal(t, []any{"active", "disabled"}, s.Enum)
	assert.Equal(t, "active", s.Default)
	assert.Equal(t, "active", s.Example)
	assert.True(t, s.Deprecated)
}

func TestAdditionalPropertiesSchema(t *testing.T) {
	e := testEngine(t, `
    Labels:
      type: object
      additionalProperties:
        type: string
`)

	s := resolveName(t, e, "Labels")
	require.NotNil(t, s.AdditionalProperties)
	assert.Equal(t, "string", s.AdditionalProperties.Type)
}

func TestRecursionLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxDepth = 3
	doc := mustDocument(t, minimalSpec(`
    Deep:
      type: object
      properties:
        a:
          type: object
          properties:
            b:
              type: object
              properties:
                c:
                  type: object
                  properties:
                    d:
                      type: string
`))
	e := New(doc, opts)

	_, err := e.ResolveRef(context.Background(), "#/components/schemas/Deep")
	var limit *RecursionLimitError
	require.ErrorAs(t, err, &limit)
	assert.Equal(t, 3, limit.Limit)
}

func TestResolveIsIdempotent(t *testing.T) {
	e := testEngine(t, `
    User:
      type: object
      properties:
        name:
          type: string
`)

	first := resolveName(t, e, "User")
	second := resolveName(t, e, "User")
	// The second resolution is served from cache: same instance.
	assert.Same(t, first, second)

	e.ClearCache()
	third := resolveName(t, e, "User")
	assert.NotSame(t, first, third)
	assert.Equal(t, first.Properties[0].Name, third.Properties[0].Name)
}

func TestFailedResolutionIsNotCached(t *testing.T) {
	e := testEngine(t, `
    Broken:
      $ref: "#/components/schemas/Missing"
`)

	_, err := e.ResolveRef(context.Background(), "#/components/schemas/Broken")
	require.Error(t, err)
	assert.Equal(t, 0, e.cache.Len())

	// Same error again on retry, not a cached nil.
	_, err = e.ResolveRef(context.Background(), "#/components/schemas/Broken")
	var notFound *ReferenceNotFoundError
	require.True(t, errors.As(err, &notFound))
}
