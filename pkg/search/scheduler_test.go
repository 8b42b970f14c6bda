package search

import (
	"context"
	"errors"
	"testing"

	"github.com/kmoselund/qpermute/pkg/oracle"
	"github.com/kmoselund/qpermute/pkg/topo"
)

func schedulerCandidates(t *testing.T, n int) []Candidate {
	t.Helper()
	base := topo.New("")
	if _, err := base.AddLeaf(base.Root(), "Out"); err != nil {
		t.Fatalf("AddLeaf(Out) error = %v", err)
	}
	if _, err := base.AddLeaf(base.Root(), "A"); err != nil {
		t.Fatalf("AddLeaf(A) error = %v", err)
	}

	cands := make([]Candidate, 0, n)
	for i := 0; i < n; i++ {
		tag := string(rune('B' + i))
		g := base.Clone()
		if err := g.InsertSibling(topo.Ref{Tag: "A"}, tag); err != nil {
			t.Fatalf("InsertSibling(%s) error = %v", tag, err)
		}
		cands = append(cands, newCandidate(g, tag+" beside A"))
	}
	return cands
}

// echoOracle reflects the candidate hash back through the verdict so tests
// can check that every verdict landed in the right slot.
func echoOracle() oracle.Func {
	return func(_ context.Context, _ []byte, hash string) (*oracle.Result, error) {
		return &oracle.Result{Worst: []string{"echo", hash}}, nil
	}
}

func TestEvaluateAllKeepsSlotOrder(t *testing.T) {
	for _, workers := range []int{1, 4} {
		d := newDriver(t, echoOracle(), func(o *Options) { o.Workers = workers })
		cands := schedulerCandidates(t, 6)

		evals := d.evaluateAll(context.Background(), cands)
		if len(evals) != len(cands) {
			t.Fatalf("evaluateAll() with %d workers returned %d evaluations, want %d",
				workers, len(evals), len(cands))
		}
		for i, ev := range evals {
			if ev.Err != nil {
				t.Fatalf("evaluation %d error = %v", i, ev.Err)
			}
			if ev.Hash != cands[i].Hash {
				t.Errorf("workers=%d: slot %d holds hash %s, want %s", workers, i, ev.Hash, cands[i].Hash)
			}
			if got := ev.Result.WorstStat(); got != cands[i].Hash {
				t.Errorf("workers=%d: slot %d verdict echoes %s, want %s", workers, i, got, cands[i].Hash)
			}
		}
	}
}

func TestEvaluateAllEmptyBatch(t *testing.T) {
	d := newDriver(t, echoOracle(), nil)
	if evals := d.evaluateAll(context.Background(), nil); len(evals) != 0 {
		t.Errorf("evaluateAll(nil) returned %d evaluations, want 0", len(evals))
	}
}

func TestEvaluateAllRecordsOracleErrors(t *testing.T) {
	boom := errors.New("qpgraph exploded")
	flaky := oracle.Func(func(_ context.Context, _ []byte, hash string) (*oracle.Result, error) {
		if hash == topo.Hash("(Out,(A,B))") {
			return nil, boom
		}
		return &oracle.Result{}, nil
	})

	d := newDriver(t, flaky, func(o *Options) { o.Workers = 2 })
	cands := schedulerCandidates(t, 3)

	evals := d.evaluateAll(context.Background(), cands)
	for i, ev := range evals {
		if cands[i].Newick == "(Out,(A,B))" {
			if !errors.Is(ev.Err, boom) {
				t.Errorf("slot %d error = %v, want %v", i, ev.Err, boom)
			}
			continue
		}
		if ev.Err != nil {
			t.Errorf("slot %d error = %v, want nil", i, ev.Err)
		}
	}
}

func TestEvaluateAllCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := newDriver(t, echoOracle(), nil)
	evals := d.evaluateAll(ctx, schedulerCandidates(t, 2))
	for i, ev := range evals {
		if !errors.Is(ev.Err, context.Canceled) {
			t.Errorf("slot %d error = %v, want context.Canceled", i, ev.Err)
		}
	}
}
