package resolve

import (
	"runtime"
	"runtime/debug"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/openapikt/openapikt/internal/memlimit"
)

// fallbackThreshold applies when no threshold is configured and none can be
// detected from the environment.
const fallbackThreshold = 1 << 30 // 1 GiB

// MemoryStats is a snapshot of heap behavior during a run.
type MemoryStats struct {
	// HeapUsed is the in-use heap at the last sample, in bytes.
	HeapUsed uint64
	// PeakUsageMB is the largest sampled heap, in MiB.
	PeakUsageMB float64
	// CleanupCount is the number of pressure cleanups performed.
	CleanupCount uint64
}

// MemoryController samples heap usage during catalog construction and sheds
// cache weight when a threshold is exceeded. Cleanup is best effort: when
// memory stays high afterwards, processing continues and the condition is
// logged rather than failing the run.
type MemoryController struct {
	enabled   bool
	threshold uint64
	cache     *Cache
	logger    zerolog.Logger
	metrics   *Metrics

	lastHeap atomic.Uint64
	peak     atomic.Uint64
	cleanups atomic.Uint64
}

func newMemoryController(opts Options, cache *Cache, metrics *Metrics) *MemoryController {
	threshold := opts.MemoryThresholdBytes
	if threshold == 0 {
		if detected := memlimit.DetectAvailable(); detected > 0 {
			// Leave headroom below the hard limit for non-heap memory.
			threshold = uint64(detected) * 8 / 10
		} else {
			threshold = fallbackThreshold
		}
	}

	return &MemoryController{
		enabled:   opts.MemoryOptimization,
		threshold: threshold,
		cache:     cache,
		logger:    opts.Logger,
		metrics:   metrics,
	}
}

// Threshold returns the effective threshold in bytes.
func (m *MemoryController) Threshold() uint64 { return m.threshold }

// Sample reads current heap usage and updates the high-water mark.
func (m *MemoryController) Sample() MemoryStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	m.lastHeap.Store(ms.HeapAlloc)
	for {
		peak := m.peak.Load()
		if ms.HeapAlloc <= peak || m.peak.CompareAndSwap(peak, ms.HeapAlloc) {
			break
		}
	}
	m.metrics.setHeapUsed(ms.HeapAlloc)

	return m.Stats()
}

// MaybeCleanup samples the heap and, when over threshold, evicts the cache
// down to a low watermark and hints the runtime to return memory to the OS.
// Returns whether a cleanup ran.
func (m *MemoryController) MaybeCleanup() bool {
	if !m.enabled {
		return false
	}

	stats := m.Sample()
	if stats.HeapUsed <= m.threshold {
		return false
	}

	m.logger.Debug().
		Str("heap", memlimit.FormatBytes(int64(stats.HeapUsed))).
		Str("threshold", memlimit.FormatBytes(int64(m.threshold))).
		Msg("memory threshold exceeded, evicting cache")

	m.cache.EvictTo(m.cache.maxSize / 2)
	debug.FreeOSMemory()
	m.cleanups.Add(1)
	m.metrics.incMemoryCleanup()

	after := m.Sample()
	if after.HeapUsed > m.threshold {
		m.logger.Warn().
			Str("heap", memlimit.FormatBytes(int64(after.HeapUsed))).
			Str("threshold", memlimit.FormatBytes(int64(m.threshold))).
			Msg("memory still over threshold after cleanup, continuing")
	}

	return true
}

// Stats returns the controller's counters without taking a new sample.
func (m *MemoryController) Stats() MemoryStats {
	return MemoryStats{
		HeapUsed:     m.lastHeap.Load(),
		PeakUsageMB:  float64(m.peak.Load()) / (1 << 20),
		CleanupCount: m.cleanups.Load(),
	}
}
