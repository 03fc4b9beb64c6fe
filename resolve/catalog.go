package resolve

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/gregwebs/go-recovery"
	"golang.org/x/sync/errgroup"

	"github.com/openapikt/openapikt/document"
)

// NamedSchema pairs a components.schemas name with its resolved schema.
type NamedSchema struct {
	Name   string
	Schema *Schema
}

// Catalog is the terminal snapshot of one document: every named schema in
// declaration order plus the operation tags. It is handed to the generator
// read-only and discarded after the run.
type Catalog struct {
	Schemas []NamedSchema
	Tags    []string

	byName map[string]*Schema
}

// Schema returns the resolved schema for a name.
func (c *Catalog) Schema(name string) (*Schema, bool) {
	s, ok := c.byName[name]
	return s, ok
}

// Names returns schema names in declaration order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.Schemas))
	for i, ns := range c.Schemas {
		names[i] = ns.Name
	}
	return names
}

// BuildCatalog resolves every named schema and every inline schema reachable
// from paths. Failures on individual schemas do not stop the pass: all
// errors found are aggregated into one CatalogError so a single run reports
// the complete picture.
//
// In streaming mode schemas are processed in fixed-size batches with the
// memory controller consulted between batches; cancellation is also checked
// there. Catalog order always matches declaration order, regardless of which
// worker finishes first.
func (e *Engine) BuildCatalog(ctx context.Context) (*Catalog, error) {
	entries := e.doc.SchemaEntries()

	results := make([]*Schema, len(entries))
	errs := make([]error, len(entries))

	batchSize := len(entries)
	if e.opts.StreamingMode && e.opts.BatchSize < batchSize {
		batchSize = e.opts.BatchSize
	}
	if batchSize == 0 {
		batchSize = 1
	}

	var inFlight, maxInFlight atomic.Int64

	for start := 0; start < len(entries); start += batchSize {
		if err := ctx.Err(); err != nil {
			return e.assembleCatalog(entries, results), fmt.Errorf("catalog construction cancelled: %w", err)
		}

		end := min(start+batchSize, len(entries))

		g := &errgroup.Group{}
		g.SetLimit(e.opts.Concurrency)
		for i := start; i < end; i++ {
			g.Go(func() error {
				n := inFlight.Add(1)
				for {
					prev := maxInFlight.Load()
					if n <= prev || maxInFlight.CompareAndSwap(prev, n) {
						break
					}
				}
				defer inFlight.Add(-1)

				// A panic inside one schema's resolution fails that schema,
				// not the whole pass.
				return recovery.Call(func() error {
					pointer := "#/components/schemas/" + entries[i].Key
					s, err := e.ResolveRef(ctx, pointer)
					if err != nil {
						errs[i] = &SchemaError{Name: entries[i].Key, Err: err}
						return nil
					}
					results[i] = s
					return nil
				})
			})
		}
		if err := g.Wait(); err != nil {
			// Only recovered panics land here.
			return e.assembleCatalog(entries, results), err
		}

		e.memory.MaybeCleanup()
	}

	e.maxBatchInFlight.Store(maxInFlight.Load())

	catalog := e.assembleCatalog(entries, results)

	var allErrs []error
	for _, err := range errs {
		if err != nil {
			allErrs = append(allErrs, err)
		}
	}
	allErrs = append(allErrs, e.resolvePathSchemas(ctx)...)

	if len(allErrs) > 0 {
		return catalog, &CatalogError{Errors: allErrs}
	}
	return catalog, nil
}

func (e *Engine) assembleCatalog(entries []document.Entry, results []*Schema) *Catalog {
	catalog := &Catalog{
		Tags:   e.doc.AllTags(),
		byName: make(map[string]*Schema, len(entries)),
	}
	for i, entry := range entries {
		if results[i] == nil {
			continue
		}
		catalog.Schemas = append(catalog.Schemas, NamedSchema{Name: entry.Key, Schema: results[i]})
		catalog.byName[entry.Key] = results[i]
	}
	return catalog
}

// resolvePathSchemas resolves anonymous schemas reachable from paths so
// their errors surface in the same pass. Named refs encountered here hit
// the cache warmed by the main loop.
func (e *Engine) resolvePathSchemas(ctx context.Context) []error {
	var errs []error
	for _, op := range e.doc.Operations() {
		for _, located := range operationSchemaNodes(op) {
			if _, err := e.ResolveNode(ctx, located.node); err != nil {
				errs = append(errs, fmt.Errorf("paths %s %s %s: %w", op.Path, op.Method, located.where, err))
			}
		}
	}
	return errs
}

type locatedSchema struct {
	where string
	node  *document.Node
}

// operationSchemaNodes collects the schema nodes of an operation's
// parameters, request body and responses.
func operationSchemaNodes(op document.Operation) []locatedSchema {
	var out []locatedSchema

	for i, param := range op.Node.SequenceOf("parameters") {
		if schema, ok := param.Get("schema"); ok {
			out = append(out, locatedSchema{where: fmt.Sprintf("parameters/%d/schema", i), node: schema})
		}
	}

	if body := op.Node.MappingOf("requestBody"); body != nil {
		out = append(out, mediaTypeSchemas(body, "requestBody")...)
	}

	if responses := op.Node.MappingOf("responses"); responses != nil {
		for _, entry := range responses.Entries {
			out = append(out, mediaTypeSchemas(entry.Value, "responses/"+entry.Key)...)
		}
	}

	return out
}

func mediaTypeSchemas(node *document.Node, where string) []locatedSchema {
	if node == nil || node.Kind != document.KindMapping {
		return nil
	}
	content := node.MappingOf("content")
	if content == nil {
		return nil
	}

	var out []locatedSchema
	for _, media := range content.Entries {
		if media.Value == nil {
			continue
		}
		if schema, ok := media.Value.Get("schema"); ok {
			out = append(out, locatedSchema{where: where + "/content/" + media.Key + "/schema", node: schema})
		}
	}
	return out
}
