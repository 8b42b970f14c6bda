// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about search progress, oracle executions, and cache
// operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetSearchHooks(&mySearchHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Oracle().OnEvaluateStart(ctx, hash)
//	// ... run the oracle ...
//	observability.Oracle().OnEvaluateComplete(ctx, hash, outliers, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Search Hooks
// =============================================================================

// SearchHooks receives events from the topology search.
type SearchHooks interface {
	// Insertion-order events
	OnOrderStart(ctx context.Context, order []string)
	OnOrderComplete(ctx context.Context, order []string, solutions int, duration time.Duration, err error)

	// OnCandidate records one evaluated candidate graph.
	OnCandidate(ctx context.Context, hash string, leaves, admixtures, outliers int)

	// OnSolution records a graph that passed the outlier threshold with all
	// populations placed.
	OnSolution(ctx context.Context, hash string)
}

// =============================================================================
// Oracle Hooks
// =============================================================================

// OracleHooks receives events from oracle executions.
type OracleHooks interface {
	// OnEvaluateStart records the start of one oracle run.
	OnEvaluateStart(ctx context.Context, hash string)

	// OnEvaluateComplete records the verdict for one oracle run.
	OnEvaluateComplete(ctx context.Context, hash string, outliers int, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopSearchHooks is a no-op implementation of SearchHooks.
type NoopSearchHooks struct{}

func (NoopSearchHooks) OnOrderStart(context.Context, []string) {}
func (NoopSearchHooks) OnOrderComplete(context.Context, []string, int, time.Duration, error) {
}
func (NoopSearchHooks) OnCandidate(context.Context, string, int, int, int) {}
func (NoopSearchHooks) OnSolution(context.Context, string)                 {}

// NoopOracleHooks is a no-op implementation of OracleHooks.
type NoopOracleHooks struct{}

func (NoopOracleHooks) OnEvaluateStart(context.Context, string)                               {}
func (NoopOracleHooks) OnEvaluateComplete(context.Context, string, int, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	searchHooks SearchHooks = NoopSearchHooks{}
	oracleHooks OracleHooks = NoopOracleHooks{}
	cacheHooks  CacheHooks  = NoopCacheHooks{}
	hooksMu     sync.RWMutex
)

// SetSearchHooks registers custom search hooks.
// This should be called once at application startup before any search runs.
func SetSearchHooks(h SearchHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		searchHooks = h
	}
}

// SetOracleHooks registers custom oracle hooks.
// This should be called once at application startup before any evaluations.
func SetOracleHooks(h OracleHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		oracleHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Search returns the registered search hooks.
func Search() SearchHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return searchHooks
}

// Oracle returns the registered oracle hooks.
func Oracle() OracleHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return oracleHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	searchHooks = NoopSearchHooks{}
	oracleHooks = NoopOracleHooks{}
	cacheHooks = NoopCacheHooks{}
}
