package resolve

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync/atomic"
	"time"

	"github.com/openapikt/openapikt/document"
)

// Engine resolves schemas from one document. It is safe for concurrent use:
// each top-level resolution runs in its own composer session, and the cache
// is the only shared mutable state.
type Engine struct {
	doc  *document.Document
	opts Options

	res     *resolver
	cache   *Cache
	memory  *MemoryController
	metrics *Metrics

	// maxBatchInFlight records the peak number of concurrent schema
	// resolutions observed by the last BuildCatalog call.
	maxBatchInFlight atomic.Int64
}

// MaxInFlightResolutions returns the peak number of schemas that were being
// resolved concurrently during the last catalog construction.
func (e *Engine) MaxInFlightResolutions() int64 { return e.maxBatchInFlight.Load() }

// New builds an engine for the given document.
func New(doc *document.Document, opts Options) *Engine {
	opts = opts.withDefaults()

	var metrics *Metrics
	if opts.MetricsEnabled {
		metrics = NewMetrics()
	}
	cache := NewCache(opts.CacheEnabled, opts.CacheMaxSize, metrics)

	return &Engine{
		doc:  doc,
		opts: opts,
		res: &resolver{
			doc:             doc,
			external:        opts.External,
			externalTimeout: opts.ExternalTimeout,
		},
		cache:   cache,
		memory:  newMemoryController(opts, cache, metrics),
		metrics: metrics,
	}
}

// Document returns the engine's document.
func (e *Engine) Document() *document.Document { return e.doc }

// CacheStats returns a snapshot of the resolution cache counters.
func (e *Engine) CacheStats() CacheStats { return e.cache.Stats() }

// MemoryStats returns a snapshot of the memory controller counters.
func (e *Engine) MemoryStats() MemoryStats { return e.memory.Stats() }

// Metrics returns the run's metrics, or nil when metrics are disabled.
func (e *Engine) Metrics() *Metrics { return e.metrics }

// ClearCache drops every cached resolution.
func (e *Engine) ClearCache() { e.cache.Clear() }

// ResolveRef resolves a $ref pointer to its canonical schema, going through
// the cache.
func (e *Engine) ResolveRef(ctx context.Context, pointer string) (*Schema, error) {
	return e.cache.GetOrCompute(pointer, func() (*Schema, error) {
		return e.resolveRefUncached(ctx, pointer)
	})
}

func (e *Engine) resolveRefUncached(ctx context.Context, pointer string) (*Schema, error) {
	start := time.Now()

	c := e.newComposer(basePathForPointer(pointer)...)
	s, err := c.resolveRef(ctx, pointer, positionStrict)
	if err != nil {
		return nil, err
	}

	e.flush(c)
	e.metrics.observeResolve(time.Since(start).Seconds())
	return s, nil
}

// ResolveNode resolves an inline schema node. Structurally identical
// anonymous schemas share a cache entry through a canonical signature key.
func (e *Engine) ResolveNode(ctx context.Context, node *document.Node) (*Schema, error) {
	if node != nil {
		if ref := node.StringOf("$ref"); ref != "" {
			return e.ResolveRef(ctx, ref)
		}
	}

	return e.cache.GetOrCompute(signatureKey(node), func() (*Schema, error) {
		start := time.Now()

		c := e.newComposer()
		s, err := c.resolveSchema(ctx, node, positionStrict)
		if err != nil {
			return nil, err
		}

		e.flush(c)
		e.metrics.observeResolve(time.Since(start).Seconds())
		return s, nil
	})
}

// flush publishes a session's completed schemas into the cache. This only
// happens after the whole top-level resolution succeeded, so every published
// schema is fully built, including knotted recursive ones.
func (e *Engine) flush(c *composer) {
	for pointer, s := range c.completed {
		e.cache.Add(pointer, s)
	}
}

// signatureKey derives a stable cache key from a node's structural identity.
func signatureKey(node *document.Node) string {
	var sb strings.Builder
	node.WriteCanonical(&sb)
	sum := sha256.Sum256([]byte(sb.String()))
	return "sig:" + hex.EncodeToString(sum[:])
}

func basePathForPointer(pointer string) []string {
	if !IsLocalPointer(pointer) {
		return []string{pointer}
	}
	segments := strings.Split(pointer[2:], "/")
	for i, s := range segments {
		segments[i] = unescapePointerSegment(s)
	}
	return segments
}
