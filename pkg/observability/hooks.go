// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about store operations and catalog mutations.
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
//	    observability.SetStoreHooks(&myStoreHooks{})
//	    observability.SetCatalogHooks(&myCatalogHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Store().OnSet(ctx, partition, key, len(value))
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Store Hooks
// =============================================================================

// StoreHooks receives events from key-value store operations.
type StoreHooks interface {
	// OnGet records a read. absent is true when the key did not exist.
	OnGet(ctx context.Context, partition, key string, absent bool)

	// OnSet records a write.
	OnSet(ctx context.Context, partition, key string, size int)

	// OnDelete records a multi-key delete with the number of removed keys.
	OnDelete(ctx context.Context, partition string, requested, removed int)

	// OnScan records a full key scan of a partition.
	OnScan(ctx context.Context, partition string, keys int, duration time.Duration)

	// OnError records a failed store operation.
	OnError(ctx context.Context, partition, op string, err error)
}

// =============================================================================
// Catalog Hooks
// =============================================================================

// CatalogHooks receives events from catalog mutations and rebuilds.
type CatalogHooks interface {
	// OnMerge records a record merge. created is true for first writes.
	OnMerge(ctx context.Context, key string, created bool)

	// OnRebuildStart records the start of an aggregate cache rebuild.
	OnRebuildStart(ctx context.Context, aggregate string)

	// OnRebuildComplete records a finished rebuild with the number of
	// primitive keys folded in.
	OnRebuildComplete(ctx context.Context, aggregate string, keys int, duration time.Duration, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopStoreHooks is a no-op implementation of StoreHooks.
type NoopStoreHooks struct{}

func (NoopStoreHooks) OnGet(context.Context, string, string, bool)        {}
func (NoopStoreHooks) OnSet(context.Context, string, string, int)         {}
func (NoopStoreHooks) OnDelete(context.Context, string, int, int)         {}
func (NoopStoreHooks) OnScan(context.Context, string, int, time.Duration) {}
func (NoopStoreHooks) OnError(context.Context, string, string, error)     {}

// NoopCatalogHooks is a no-op implementation of CatalogHooks.
type NoopCatalogHooks struct{}

func (NoopCatalogHooks) OnMerge(context.Context, string, bool)  {}
func (NoopCatalogHooks) OnRebuildStart(context.Context, string) {}
func (NoopCatalogHooks) OnRebuildComplete(context.Context, string, int, time.Duration, error) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	storeHooks   StoreHooks   = NoopStoreHooks{}
	catalogHooks CatalogHooks = NoopCatalogHooks{}
	hooksMu      sync.RWMutex
)

// SetStoreHooks registers custom store hooks.
// This should be called once at application startup before any store operations.
func SetStoreHooks(h StoreHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		storeHooks = h
	}
}

// SetCatalogHooks registers custom catalog hooks.
// This should be called once at application startup before any catalog operations.
func SetCatalogHooks(h CatalogHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		catalogHooks = h
	}
}

// Store returns the registered store hooks.
func Store() StoreHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return storeHooks
}

// Catalog returns the registered catalog hooks.
func Catalog() CatalogHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return catalogHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	storeHooks = NoopStoreHooks{}
	catalogHooks = NoopCatalogHooks{}
}
