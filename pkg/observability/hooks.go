// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about layout builds, snapshot store operations, and HTTP
// service traffic.
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
//	    observability.SetLayoutHooks(&myLayoutHooks{})
//	    observability.SetStoreHooks(&myStoreHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Layout().OnBuildStart(workspaceID, blockCount)
//	// ... build the layout tree ...
//	observability.Layout().OnBuildComplete(workspaceID, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Layout Hooks
// =============================================================================

// LayoutHooks receives events from the layout engine.
//
// Layout builds run synchronously inside the engine, so these methods carry
// no context.
type LayoutHooks interface {
	// OnBuildStart records the start of a workspace layout build.
	OnBuildStart(workspaceID string, blockCount int)

	// OnBuildComplete records a finished workspace layout build.
	OnBuildComplete(workspaceID string, duration time.Duration, err error)
}

// =============================================================================
// Store Hooks
// =============================================================================

// StoreHooks receives events from snapshot store operations.
type StoreHooks interface {
	// OnPut records a snapshot write.
	OnPut(ctx context.Context, backend string, duration time.Duration, err error)

	// OnGet records a snapshot read.
	OnGet(ctx context.Context, backend string, duration time.Duration, err error)

	// OnList records a snapshot listing.
	OnList(ctx context.Context, backend string, count int, duration time.Duration, err error)

	// OnDelete records a snapshot removal.
	OnDelete(ctx context.Context, backend string, duration time.Duration, err error)
}

// =============================================================================
// Service Hooks
// =============================================================================

// ServiceHooks receives events from the HTTP service.
type ServiceHooks interface {
	// OnRequest records an incoming HTTP request.
	OnRequest(ctx context.Context, method, path string)

	// OnResponse records a completed HTTP request.
	OnResponse(ctx context.Context, method, path string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopLayoutHooks is a no-op implementation of LayoutHooks.
type NoopLayoutHooks struct{}

func (NoopLayoutHooks) OnBuildStart(string, int)                     {}
func (NoopLayoutHooks) OnBuildComplete(string, time.Duration, error) {}

// NoopStoreHooks is a no-op implementation of StoreHooks.
type NoopStoreHooks struct{}

func (NoopStoreHooks) OnPut(context.Context, string, time.Duration, error)       {}
func (NoopStoreHooks) OnGet(context.Context, string, time.Duration, error)       {}
func (NoopStoreHooks) OnList(context.Context, string, int, time.Duration, error) {}
func (NoopStoreHooks) OnDelete(context.Context, string, time.Duration, error)    {}

// NoopServiceHooks is a no-op implementation of ServiceHooks.
type NoopServiceHooks struct{}

func (NoopServiceHooks) OnRequest(context.Context, string, string)                      {}
func (NoopServiceHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	layoutHooks  LayoutHooks  = NoopLayoutHooks{}
	storeHooks   StoreHooks   = NoopStoreHooks{}
	serviceHooks ServiceHooks = NoopServiceHooks{}
	hooksMu      sync.RWMutex
)

// SetLayoutHooks registers custom layout hooks.
// This should be called once at application startup before any layout builds.
func SetLayoutHooks(h LayoutHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		layoutHooks = h
	}
}

// SetStoreHooks registers custom store hooks.
// This should be called once at application startup before any store operations.
func SetStoreHooks(h StoreHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		storeHooks = h
	}
}

// SetServiceHooks registers custom service hooks.
// This should be called once at application startup before serving requests.
func SetServiceHooks(h ServiceHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		serviceHooks = h
	}
}

// Layout returns the registered layout hooks.
func Layout() LayoutHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return layoutHooks
}

// Store returns the registered store hooks.
func Store() StoreHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return storeHooks
}

// Service returns the registered service hooks.
func Service() ServiceHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return serviceHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	layoutHooks = NoopLayoutHooks{}
	storeHooks = NoopStoreHooks{}
	serviceHooks = NoopServiceHooks{}
}
