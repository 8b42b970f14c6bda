package search

import (
	"github.com/kmoselund/qpermute/pkg/oracle"
	"github.com/kmoselund/qpermute/pkg/topo"
)

// Candidate is one insertion possibility: a cloned topology with the new
// population attached, frozen together with its canonical form and hash.
// Candidates are immutable once built; the scheduler never mutates them.
type Candidate struct {
	Graph  *topo.Topology
	Newick string
	Hash   string
	Move   string // human-readable insertion description
}

// newCandidate freezes a freshly built topology into a candidate.
func newCandidate(g *topo.Topology, move string) Candidate {
	newick := g.Newick()
	return Candidate{Graph: g, Newick: newick, Hash: topo.Hash(newick), Move: move}
}

// Evaluation pairs a candidate with its oracle verdict.
type Evaluation struct {
	Candidate
	Result *oracle.Result // nil when Err is set
	Err    error
}

// Outcome tags the result of a placement attempt.
type Outcome uint8

const (
	// Unplaceable means a label could not be placed by either insertion
	// method and no further deferral was possible. Fatal to the current
	// starting order; the driver advances to the next permutation.
	Unplaceable Outcome = iota

	// Placed means the label and every label after it found a home.
	Placed

	// Deferred means the label was pushed to the back of the queue to be
	// retried after the remaining labels.
	Deferred
)

// String returns the outcome tag for logs.
func (o Outcome) String() string {
	switch o {
	case Placed:
		return "placed"
	case Deferred:
		return "deferred"
	default:
		return "unplaceable"
	}
}

// Attempt reports how one starting order ended.
type Attempt struct {
	Outcome Outcome
	Failed  string // label that could not be placed, set when Outcome is Unplaceable
}
