package resolve

import (
	"time"

	"github.com/rs/zerolog"
)

// Options configures one resolution engine. The zero value is not usable;
// start from DefaultOptions.
type Options struct {
	// CacheEnabled turns the resolution cache on.
	CacheEnabled bool
	// CacheMaxSize is the maximum number of cached resolved schemas.
	CacheMaxSize int

	// MemoryOptimization enables heap sampling and pressure-driven cache
	// eviction during catalog construction.
	MemoryOptimization bool
	// MemoryThresholdBytes is the heap size that triggers cleanup. 0 means
	// detect from the environment, falling back to a generous default.
	MemoryThresholdBytes uint64

	// StreamingMode processes catalog schemas in fixed-size batches instead
	// of all at once, bounding the working set.
	StreamingMode bool
	// BatchSize is the number of schemas per streaming batch.
	BatchSize int
	// Concurrency bounds the number of schemas resolved in parallel within
	// a batch.
	Concurrency int

	// MetricsEnabled registers Prometheus collectors on a per-run registry.
	MetricsEnabled bool

	// MaxDepth caps schema nesting depth during resolution.
	MaxDepth int

	// External resolves non-local references. Defaults to a resolver that
	// rejects all external references.
	External ExternalResolver
	// ExternalTimeout bounds each external resolution call.
	ExternalTimeout time.Duration

	Logger zerolog.Logger
}

// DefaultOptions returns the defaults: caching on with a few hundred
// entries, streaming off, depth capped at 100, external references disabled.
func DefaultOptions() Options {
	return Options{
		CacheEnabled:    true,
		CacheMaxSize:    500,
		BatchSize:       10,
		Concurrency:     4,
		MaxDepth:        100,
		ExternalTimeout: 30 * time.Second,
		Logger:          zerolog.Nop(),
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.CacheMaxSize <= 0 {
		o.CacheMaxSize = def.CacheMaxSize
	}
	if o.BatchSize <= 0 {
		o.BatchSize = def.BatchSize
	}
	if o.Concurrency <= 0 {
		o.Concurrency = def.Concurrency
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = def.MaxDepth
	}
	if o.ExternalTimeout <= 0 {
		o.ExternalTimeout = def.ExternalTimeout
	}
	if o.External == nil {
		o.External = DisabledExternalResolver{}
	}
	return o
}
