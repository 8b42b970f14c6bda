package oracle

import (
	"context"
	"testing"
)

func TestFunc(t *testing.T) {
	ctx := context.Background()
	var gotGraph, gotHash string

	o := Func(func(ctx context.Context, graph []byte, hash string) (*Result, error) {
		gotGraph, gotHash = string(graph), hash
		return &Result{}, nil
	})

	if _, err := o.Evaluate(ctx, []byte("root\tR\n"), "abc1234"); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if gotGraph != "root\tR\n" {
		t.Errorf("graph = %q", gotGraph)
	}
	if gotHash != "abc1234" {
		t.Errorf("hash = %q", gotHash)
	}
}

func TestResultWorstStat(t *testing.T) {
	empty := &Result{}
	if got := empty.WorstStat(); got != "" {
		t.Errorf("WorstStat() = %q, want empty", got)
	}

	res := &Result{Worst: []string{"worst", "f-stat:", "Out", "A", "3.456"}}
	if got := res.WorstStat(); got != "3.456" {
		t.Errorf("WorstStat() = %q, want 3.456", got)
	}
}

func TestResultOutlierCount(t *testing.T) {
	res := &Result{Outliers: []Outlier{{Fields: []string{"Out", "A"}}}}
	if got := res.OutlierCount(); got != 1 {
		t.Errorf("OutlierCount() = %d, want 1", got)
	}
	if got := (&Result{}).OutlierCount(); got != 0 {
		t.Errorf("OutlierCount() = %d, want 0", got)
	}
}
