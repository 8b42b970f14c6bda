package oracle

import (
	"context"
	"testing"

	"github.com/kmoselund/qpermute/pkg/cache"
	apperrors "github.com/kmoselund/qpermute/pkg/errors"
)

func newCountingOracle(res *Result, err error) (Oracle, *int) {
	calls := 0
	return Func(func(ctx context.Context, graph []byte, hash string) (*Result, error) {
		calls++
		if err != nil {
			return nil, err
		}
		return res, nil
	}), &calls
}

func TestCachedEvaluate(t *testing.T) {
	ctx := context.Background()
	store, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	verdict := &Result{
		Outliers: []Outlier{{Fields: []string{"Out", "A", "B", "C", "2.345"}}},
		Worst:    []string{"worst", "f-stat:", "2.345"},
	}
	inner, calls := newCountingOracle(verdict, nil)
	c := NewCached(inner, store, nil, cache.EvalKeyOpts{Binary: "qpGraph"}, nil)

	// First call evaluates through the inner oracle.
	res, err := c.Evaluate(ctx, []byte("g"), "abc1234")
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if res.CacheHit {
		t.Error("first call should not be a cache hit")
	}
	if *calls != 1 {
		t.Fatalf("inner calls = %d, want 1", *calls)
	}

	// Second call is served from the cache.
	res, err = c.Evaluate(ctx, []byte("g"), "abc1234")
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !res.CacheHit {
		t.Error("second call should hit the cache")
	}
	if *calls != 1 {
		t.Errorf("inner calls = %d, want 1", *calls)
	}
	if res.OutlierCount() != 1 || res.WorstStat() != "2.345" {
		t.Errorf("cached verdict = %+v, want original", res)
	}

	// A different graph hash misses.
	if _, err := c.Evaluate(ctx, []byte("g2"), "def5678"); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if *calls != 2 {
		t.Errorf("inner calls = %d, want 2", *calls)
	}
}

func TestCachedEvaluateErrorNotCached(t *testing.T) {
	ctx := context.Background()
	store, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	boom := apperrors.New(apperrors.ErrCodeOracleFailed, "fit crashed")
	inner, calls := newCountingOracle(nil, boom)
	c := NewCached(inner, store, nil, cache.EvalKeyOpts{}, nil)

	for i := 0; i < 2; i++ {
		if _, err := c.Evaluate(ctx, []byte("g"), "abc1234"); !apperrors.Is(err, apperrors.ErrCodeOracleFailed) {
			t.Fatalf("Evaluate() error = %v, want ORACLE_FAILED", err)
		}
	}
	if *calls != 2 {
		t.Errorf("inner calls = %d, want 2 (errors must not be cached)", *calls)
	}
}

func TestCachedEvaluateKeyOptsIsolate(t *testing.T) {
	ctx := context.Background()
	store, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	inner, calls := newCountingOracle(&Result{}, nil)
	c1 := NewCached(inner, store, nil, cache.EvalKeyOpts{ParamsHash: "dataset1"}, nil)
	c2 := NewCached(inner, store, nil, cache.EvalKeyOpts{ParamsHash: "dataset2"}, nil)

	if _, err := c1.Evaluate(ctx, []byte("g"), "abc1234"); err != nil {
		t.Fatal(err)
	}
	if _, err := c2.Evaluate(ctx, []byte("g"), "abc1234"); err != nil {
		t.Fatal(err)
	}
	if *calls != 2 {
		t.Errorf("inner calls = %d, want 2 (datasets must not share verdicts)", *calls)
	}
}
