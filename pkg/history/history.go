// Package history persists per-candidate evaluation records across a search
// run, so long-running searches can be audited and compared after the fact.
//
// This package defines the Recorder interface with implementations for
// different backends:
//   - jsonl: append-only JSON-lines file for CLI runs
//   - mongo: MongoDB collection for shared cluster runs
//   - noop: discards everything (the default when history is disabled)
//
// Every record carries the run ID of the search invocation that produced it,
// so records from repeated runs against the same dataset stay separable.
//
// # Usage
//
// Create a recorder and hand it to the search driver:
//
//	rec, err := history.NewJSONL("out/run.jsonl", history.NewRunID())
//	if err != nil {
//	    return err
//	}
//	defer rec.Close(ctx)
package history

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record is one evaluated candidate graph.
type Record struct {
	RunID      string    `json:"run_id" bson:"run_id"`
	Order      int       `json:"order" bson:"order"` // 1-based starting-order index
	Depth      int       `json:"depth" bson:"depth"`
	Hash       string    `json:"hash" bson:"hash"`
	Newick     string    `json:"newick" bson:"newick"`
	Leaves     int       `json:"leaves" bson:"leaves"`
	Admixtures int       `json:"admixtures" bson:"admixtures"`
	Outliers   int       `json:"outliers" bson:"outliers"`
	WorstStat  string    `json:"worst_stat,omitempty" bson:"worst_stat,omitempty"`
	Solution   bool      `json:"solution" bson:"solution"`
	CacheHit   bool      `json:"cache_hit" bson:"cache_hit"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

// Recorder is the interface for history storage backends.
//
// Implementations stamp RunID and CreatedAt on records that arrive without
// them, so callers only fill the evaluation fields.
type Recorder interface {
	// Record persists one evaluation record.
	Record(ctx context.Context, rec Record) error

	// Close flushes and releases the backend.
	Close(ctx context.Context) error
}

// NewRunID returns a fresh run identifier for one search invocation.
func NewRunID() string {
	return uuid.NewString()
}

// Noop is a Recorder that discards all records.
type Noop struct{}

// Record discards the record.
func (Noop) Record(context.Context, Record) error { return nil }

// Close does nothing.
func (Noop) Close(context.Context) error { return nil }

var _ Recorder = Noop{}

// stamp fills RunID and CreatedAt when the caller left them empty.
func stamp(rec *Record, runID string) {
	if rec.RunID == "" {
		rec.RunID = runID
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
}
