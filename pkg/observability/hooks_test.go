package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Layout hooks
	l := NoopLayoutHooks{}
	l.OnBuildStart("ws-1", 12)
	l.OnBuildComplete("ws-1", time.Second, nil)

	// Store hooks
	s := NoopStoreHooks{}
	s.OnPut(ctx, "memory", time.Second, nil)
	s.OnGet(ctx, "memory", time.Second, nil)
	s.OnList(ctx, "memory", 3, time.Second, nil)
	s.OnDelete(ctx, "memory", time.Second, nil)

	// Service hooks
	h := NoopServiceHooks{}
	h.OnRequest(ctx, "GET", "/v1/snapshots")
	h.OnResponse(ctx, "GET", "/v1/snapshots", 200, time.Second)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Layout().(NoopLayoutHooks); !ok {
		t.Error("Layout() should return NoopLayoutHooks by default")
	}
	if _, ok := Store().(NoopStoreHooks); !ok {
		t.Error("Store() should return NoopStoreHooks by default")
	}
	if _, ok := Service().(NoopServiceHooks); !ok {
		t.Error("Service() should return NoopServiceHooks by default")
	}

	// Set custom hooks
	customLayout := &testLayoutHooks{}
	SetLayoutHooks(customLayout)
	if Layout() != customLayout {
		t.Error("SetLayoutHooks should set custom hooks")
	}

	customStore := &testStoreHooks{}
	SetStoreHooks(customStore)
	if Store() != customStore {
		t.Error("SetStoreHooks should set custom hooks")
	}

	customService := &testServiceHooks{}
	SetServiceHooks(customService)
	if Service() != customService {
		t.Error("SetServiceHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Layout().(NoopLayoutHooks); !ok {
		t.Error("Reset() should restore NoopLayoutHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testLayoutHooks{}
	SetLayoutHooks(custom)

	// Setting nil should be ignored
	SetLayoutHooks(nil)

	if Layout() != custom {
		t.Error("SetLayoutHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testLayoutHooks struct{ NoopLayoutHooks }
type testStoreHooks struct{ NoopStoreHooks }
type testServiceHooks struct{ NoopServiceHooks }
