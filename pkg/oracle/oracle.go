// Package oracle runs the external graph-fitting program and parses its
// verdicts.
//
// The search engine is oracle-agnostic: it hands over graph bytes in qpGraph
// exchange format plus the graph's content hash, and receives a Result saying
// how many f-statistic outliers the fitted graph produced. Runner shells out
// to the real program, Cached adds verdict caching in front of any Oracle,
// and Func adapts a plain function for tests.
package oracle

import (
	"context"
)

// Oracle evaluates one candidate graph. Implementations must be safe for
// concurrent use; the search engine evaluates sibling candidates in parallel.
type Oracle interface {
	// Evaluate fits the graph and returns the parsed verdict. The graph bytes
	// are in qpGraph exchange format and hash is the canonical content hash
	// used to key artifacts and caches.
	Evaluate(ctx context.Context, graph []byte, hash string) (*Result, error)
}

// Result is the parsed verdict for one candidate graph.
type Result struct {
	// Outliers holds the f-statistics the fitted graph failed to reproduce.
	// An empty list means the graph fits the data.
	Outliers []Outlier `json:"outliers"`

	// Worst holds the whitespace-split tokens of the "worst f-stat" line.
	Worst []string `json:"worst,omitempty"`

	// CacheHit reports whether this verdict was served from a cache or a
	// previous run's log rather than a fresh execution.
	CacheHit bool `json:"-"`
}

// Outlier is one poorly fitted f-statistic: the whitespace-split tokens of
// its log line (populations followed by the fitted, observed, and Z values).
type Outlier struct {
	Fields []string `json:"fields"`
}

// OutlierCount returns the number of outliers.
func (r *Result) OutlierCount() int {
	return len(r.Outliers)
}

// WorstStat returns the final token of the worst f-stat line, which is the
// statistic's value, or "" when unknown.
func (r *Result) WorstStat() string {
	if len(r.Worst) == 0 {
		return ""
	}
	return r.Worst[len(r.Worst)-1]
}

// Func adapts a function to the Oracle interface, mirroring http.HandlerFunc.
// Tests use it to script verdicts without an external binary.
type Func func(ctx context.Context, graph []byte, hash string) (*Result, error)

// Evaluate calls f.
func (f Func) Evaluate(ctx context.Context, graph []byte, hash string) (*Result, error) {
	return f(ctx, graph, hash)
}
