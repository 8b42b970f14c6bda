// Package pkg provides the core libraries for qpermute admixture graph search.
//
// # Overview
//
// qpermute searches the space of rooted admixture graph topologies for those
// that fit observed f-statistics, by inserting populations one at a time in
// permuted orders and asking an external qpGraph-style program whether each
// intermediate graph is consistent with the data. The pkg directory is
// organized into four main areas:
//
//  1. [topo], [perm] - Domain structures (graph topologies, order permutations)
//  2. [search] - Orchestration (branch-and-bound driver, deferral, restarts)
//  3. [oracle], [cache], [history] - Evaluation (external fitting, verdict
//     caching, run records)
//  4. [render], [status], [config] - Surfaces (diagrams, HTTP status, TOML)
//
// # Architecture
//
// The typical data flow through qpermute:
//
//	Populations + outgroup
//	         ↓
//	    [perm] package (starting-order permutations)
//	         ↓
//	    [search] package (stepwise insertion, pruning, backtracking)
//	         ↓
//	    [topo] package (candidate graphs, canonical newick + hash)
//	         ↓
//	    [oracle] package (qpGraph fit, outlier verdicts)
//	         ↓
//	    Solutions + [render] diagrams + [history] records
//
// # Quick Start
//
// Assemble a driver and search:
//
//	import (
//	    "context"
//	    "github.com/kmoselund/qpermute/pkg/oracle"
//	    "github.com/kmoselund/qpermute/pkg/search"
//	)
//
//	// 1. Point the oracle at the fitting program and data
//	runner, _ := oracle.NewRunner(oracle.Options{
//	    ParamsFile:   "qpgraph.par",
//	    OutputPrefix: "graphs/run",
//	})
//
//	// 2. Configure the search
//	driver, _ := search.New(search.Options{
//	    Populations: []string{"Altai", "Vindija", "Denisova", "French"},
//	    Outgroup:    "Mbuti",
//	    Oracle:      runner,
//	})
//
//	// 3. Run it
//	summary, _ := driver.Search(context.Background())
//	for _, sol := range driver.Solutions() {
//	    fmt.Printf("%s %s\n", sol.Hash, sol.Newick)
//	}
//
// # Main Packages
//
// ## Domain Structures
//
// [topo] - Rooted admixture graph topologies. Stepwise leaf insertion,
// two-parent admixture nodes, canonical newick serialization with SHA-1
// hashing for deduplication, qpGraph text export, and JSON snapshots.
//
// [perm] - Starting-order permutation streams. The input order always comes
// first; the remaining permutations follow in lexicographic order of index
// swaps, optionally capped.
//
// ## Orchestration
//
// [search] - The branch-and-bound driver. For each starting order it grafts
// the outgroup, inserts one population at a time at every splittable edge
// (and as an admixed child of edge pairs once plain insertion fails), prunes
// subtrees whose oracle verdict exceeds the outlier threshold, defers
// unplaceable populations to the end of the order, and restarts with the
// next permutation until solutions are found or orders run out.
//
// ## Evaluation
//
// [oracle] - Runs the external fitting program per candidate graph, parses
// outlier counts and worst f-statistics from its log, and exposes a caching
// decorator so identical graphs are never fitted twice.
//
// [cache] - Verdict cache backends: filesystem for single-machine runs,
// Redis for shared clusters, plus a null cache for tests.
//
// [history] - Per-evaluation run records (order index, depth, hash, verdict)
// with JSONL and MongoDB backends.
//
// ## Surfaces
//
// [render] - Graphviz diagrams for passing graphs: DOT export with dashed
// 50% admixture edges, SVG/PNG encoding, and preference for the fitted DOT
// artifact the oracle wrote.
//
// [status] - Read-only HTTP endpoints (/healthz, /v1/status, /v1/solutions)
// for polling a long-running search.
//
// [config] - TOML run configuration shared by the CLI flags and config file.
//
// ## Support
//
// [errors] - Coded errors (INVALID_INPUT, LABEL_COLLISION, ORACLE_FAILED, ...)
// with wrap and classification helpers.
//
// [observability] - Hook interfaces for search, oracle, and cache events,
// with no-op defaults so instrumentation stays optional.
//
// [buildinfo] - Build-time version information injected via ldflags.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...          # All tests
//	go test ./pkg/search/...   # Specific package
//	go test -run Example       # Examples only
//
// [topo]: https://pkg.go.dev/github.com/kmoselund/qpermute/pkg/topo
// [perm]: https://pkg.go.dev/github.com/kmoselund/qpermute/pkg/perm
// [search]: https://pkg.go.dev/github.com/kmoselund/qpermute/pkg/search
// [oracle]: https://pkg.go.dev/github.com/kmoselund/qpermute/pkg/oracle
// [cache]: https://pkg.go.dev/github.com/kmoselund/qpermute/pkg/cache
// [history]: https://pkg.go.dev/github.com/kmoselund/qpermute/pkg/history
// [render]: https://pkg.go.dev/github.com/kmoselund/qpermute/pkg/render
// [status]: https://pkg.go.dev/github.com/kmoselund/qpermute/pkg/status
// [config]: https://pkg.go.dev/github.com/kmoselund/qpermute/pkg/config
// [errors]: https://pkg.go.dev/github.com/kmoselund/qpermute/pkg/errors
// [observability]: https://pkg.go.dev/github.com/kmoselund/qpermute/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/kmoselund/qpermute/pkg/buildinfo
package pkg
