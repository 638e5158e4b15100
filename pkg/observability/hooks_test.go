package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Store hooks
	s := NoopStoreHooks{}
	s.OnGet(ctx, "modules", "mod-a@2020-01-01/ietf", false)
	s.OnSet(ctx, "modules", "mod-a@2020-01-01/ietf", 1024)
	s.OnDelete(ctx, "vendors", 3, 3)
	s.OnScan(ctx, "vendors", 100, time.Second)
	s.OnError(ctx, "modules", "set", nil)

	// Catalog hooks
	c := NoopCatalogHooks{}
	c.OnMerge(ctx, "mod-a@2020-01-01/ietf", true)
	c.OnRebuildStart(ctx, "modules-data")
	c.OnRebuildComplete(ctx, "modules-data", 100, time.Second, nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Store().(NoopStoreHooks); !ok {
		t.Error("Store() should return NoopStoreHooks by default")
	}
	if _, ok := Catalog().(NoopCatalogHooks); !ok {
		t.Error("Catalog() should return NoopCatalogHooks by default")
	}

	// Set custom hooks
	customStore := &testStoreHooks{}
	SetStoreHooks(customStore)
	if Store() != customStore {
		t.Error("SetStoreHooks should set custom hooks")
	}

	customCatalog := &testCatalogHooks{}
	SetCatalogHooks(customCatalog)
	if Catalog() != customCatalog {
		t.Error("SetCatalogHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Store().(NoopStoreHooks); !ok {
		t.Error("Reset() should restore NoopStoreHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testStoreHooks{}
	SetStoreHooks(custom)

	// Setting nil should be ignored
	SetStoreHooks(nil)

	if Store() != custom {
		t.Error("SetStoreHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testStoreHooks struct{ NoopStoreHooks }
type testCatalogHooks struct{ NoopCatalogHooks }
