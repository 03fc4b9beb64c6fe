package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCatalogDeclarationOrder(t *testing.T) {
	opts := DefaultOptions()
	// Sequential resolution makes instance sharing deterministic here.
	opts.Concurrency = 1
	e := New(mustDocument(t, minimalSpec(`
    Zebra:
      type: object
      properties:
        stripes:
          type: integer
    Alpha:
      type: string
    Middle:
      type: object
      properties:
        z:
          $ref: "#/components/schemas/Zebra"
`)), opts)

	catalog, err := e.BuildCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Zebra", "Alpha", "Middle"}, catalog.Names())

	zebra, ok := catalog.Schema("Zebra")
	require.True(t, ok)
	assert.Equal(t, KindObject, zebra.Kind)

	middle, _ := catalog.Schema("Middle")
	assert.Same(t, zebra, middle.Properties[0].Schema)
}

func TestBuildCatalogConcurrentOrderIsStable(t *testing.T) {
	// Many schemas with uneven resolution cost; the assembled order must
	// still match declaration order regardless of completion order.
	schemas := `
    S00:
      type: object
      properties:
        next:
          $ref: "#/components/schemas/S01"
    S01:
      type: object
      properties:
        a:
          type: string
        b:
          type: integer
        c:
          type: boolean
    S02:
      type: string
    S03:
      type: object
      properties:
        deep:
          type: object
          properties:
            deeper:
              type: object
              properties:
                leaf:
                  type: string
    S04:
      type: integer
    S05:
      type: object
      properties:
        items:
          type: array
          items:
            $ref: "#/components/schemas/S05"
    S06:
      type: number
    S07:
      type: boolean
`
	opts := DefaultOptions()
	opts.Concurrency = 8
	e := New(mustDocument(t, minimalSpec(schemas)), opts)

	catalog, err := e.BuildCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"S00", "S01", "S02", "S03", "S04", "S05", "S06", "S07"}, catalog.Names())
}

func TestBuildCatalogAggregatesErrors(t *testing.T) {
	e := testEngine(t, `
    Good:
      type: object
      properties:
        name:
          type: string
    BadRef:
      $ref: "#/components/schemas/Nope"
    BadType:
      type: quantum
    AlsoGood:
      type: string
`)

	catalog, err := e.BuildCatalog(context.Background())
	require.Error(t, err)

	var catalogErr *CatalogError
	require.ErrorAs(t, err, &catalogErr)
	assert.Len(t, catalogErr.Errors, 2)

	// Failures name their schema.
	var names []string
	for _, schemaErr := range catalogErr.Errors {
		var se *SchemaError
		require.ErrorAs(t, schemaErr, &se)
		names = append(names, se.Name)
	}
	assert.ElementsMatch(t, []string{"BadRef", "BadType"}, names)

	// The catalog still carries everything that resolved.
	assert.Equal(t, []string{"Good", "AlsoGood"}, catalog.Names())
}

func TestBuildCatalogCancellation(t *testing.T) {
	e := testEngine(t, `
    A:
      type: string
    B:
      type: string
`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	catalog, err := e.BuildCatalog(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "cancelled")
	require.NotNil(t, catalog)
	assert.Empty(t, catalog.Schemas)
}

func TestBuildCatalogStreamingBoundsInFlight(t *testing.T) {
	var schemas string
	for _, name := range []string{"A", "B", "C", "D", "E", "F", "G", "H"} {
		schemas += "    Schema" + name + ":\n      type: object\n      properties:\n        v:\n          type: string\n"
	}

	opts := DefaultOptions()
	opts.StreamingMode = true
	opts.BatchSize = 2
	opts.Concurrency = 2
	e := New(mustDocument(t, minimalSpec(schemas)), opts)

	catalog, err := e.BuildCatalog(context.Background())
	require.NoError(t, err)
	assert.Len(t, catalog.Schemas, 8)
	assert.LessOrEqual(t, e.MaxInFlightResolutions(), int64(2))
}

func TestBuildCatalogIncludesPathSchemaErrors(t *testing.T) {
	doc := mustDocument(t, `
openapi: 3.0.3
info:
  title: T
  version: "1"
paths:
  /things:
    post:
      requestBody:
        content:
          application/json:
            schema:
              $ref: "#/components/schemas/Missing"
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema:
                type: object
                properties:
                  id:
                    type: string
components:
  schemas:
    Thing:
      type: object
      properties:
        id:
          type: string
`)
	e := New(doc, DefaultOptions())

	catalog, err := e.BuildCatalog(context.Background())
	require.Error(t, err)

	var catalogErr *CatalogError
	require.ErrorAs(t, err, &catalogErr)
	require.Len(t, catalogErr.Errors, 1)
	assert.Contains(t, catalogErr.Errors[0].Error(), "/things")
	assert.Contains(t, catalogErr.Errors[0].Error(), "requestBody")

	// The named schema still made it into the catalog.
	assert.Equal(t, []string{"Thing"}, catalog.Names())
}

func TestBuildCatalogCollectsTags(t *testing.T) {
	doc := mustDocument(t, `
openapi: 3.0.3
info:
  title: T
  version: "1"
tags:
  - name: global
paths:
  /a:
    get:
      tags: [users]
      responses:
        "204":
          description: ok
components:
  schemas:
    A:
      type: string
`)
	e := New(doc, DefaultOptions())

	catalog, err := e.BuildCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"global", "users"}, catalog.Tags)
}

func TestBuildCatalogEmptyComponents(t *testing.T) {
	e := testEngine(t, "")

	catalog, err := e.BuildCatalog(context.Background())
	require.NoError(t, err)
	assert.Empty(t, catalog.Schemas)
	assert.Empty(t, catalog.Names())
}
