package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Search hooks
	s := NoopSearchHooks{}
	s.OnOrderStart(ctx, []string{"A", "B", "C"})
	s.OnOrderComplete(ctx, []string{"A", "B", "C"}, 2, time.Second, nil)
	s.OnCandidate(ctx, "1be91fe", 4, 1, 0)
	s.OnSolution(ctx, "1be91fe")

	// Oracle hooks
	o := NoopOracleHooks{}
	o.OnEvaluateStart(ctx, "1be91fe")
	o.OnEvaluateComplete(ctx, "1be91fe", 3, time.Second, nil)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "eval")
	c.OnCacheMiss(ctx, "eval")
	c.OnCacheSet(ctx, "artifact", 1024)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Search().(NoopSearchHooks); !ok {
		t.Error("Search() should return NoopSearchHooks by default")
	}
	if _, ok := Oracle().(NoopOracleHooks); !ok {
		t.Error("Oracle() should return NoopOracleHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}

	// Set custom hooks
	customSearch := &testSearchHooks{}
	SetSearchHooks(customSearch)
	if Search() != customSearch {
		t.Error("SetSearchHooks should set custom hooks")
	}

	customOracle := &testOracleHooks{}
	SetOracleHooks(customOracle)
	if Oracle() != customOracle {
		t.Error("SetOracleHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Search().(NoopSearchHooks); !ok {
		t.Error("Reset() should restore NoopSearchHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testSearchHooks{}
	SetSearchHooks(custom)

	// Setting nil should be ignored
	SetSearchHooks(nil)

	if Search() != custom {
		t.Error("SetSearchHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testSearchHooks struct{ NoopSearchHooks }
type testOracleHooks struct{ NoopOracleHooks }
type testCacheHooks struct{ NoopCacheHooks }
