package search

import (
	"slices"
	"strings"
	"sync"
)

// Solution is one graph that placed every population within the threshold.
type Solution struct {
	Hash   string `json:"hash"`
	Newick string `json:"newick"`
}

// Status is a point-in-time view of a search, served by the status endpoint
// and the watch UI.
type Status struct {
	Running     bool       `json:"running"`
	Orders      int        `json:"orders"`
	OrdersTried int        `json:"orders_tried"`
	Current     []string   `json:"current_order,omitempty"`
	Tested      int        `json:"tested"`
	Solutions   []Solution `json:"solutions"`
}

// Tracker accumulates the tested and solution hash sets across every restart
// of one Search call. The orchestrating goroutine is the only writer; the
// mutex exists for concurrent readers such as the status server.
type Tracker struct {
	mu        sync.RWMutex
	tested    map[string]struct{}
	solutions map[string]string // hash -> canonical newick

	orders      int
	ordersTried int
	current     []string
	running     bool
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		tested:    make(map[string]struct{}),
		solutions: make(map[string]string),
	}
}

// AddTested records one evaluated graph hash.
func (tr *Tracker) AddTested(hash string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.tested[hash] = struct{}{}
}

// AddSolution records a graph that placed every population.
func (tr *Tracker) AddSolution(hash, newick string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.solutions[hash] = newick
}

// HasSolutions reports whether any solution has been recorded.
func (tr *Tracker) HasSolutions() bool {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return len(tr.solutions) > 0
}

// TestedCount returns the number of unique graphs evaluated.
func (tr *Tracker) TestedCount() int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return len(tr.tested)
}

// SolutionCount returns the number of unique solution graphs.
func (tr *Tracker) SolutionCount() int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return len(tr.solutions)
}

// OrdersTried returns the number of starting orders attempted so far.
func (tr *Tracker) OrdersTried() int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return tr.ordersTried
}

// Solutions returns the recorded solutions sorted by hash.
func (tr *Tracker) Solutions() []Solution {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	sols := make([]Solution, 0, len(tr.solutions))
	for hash, newick := range tr.solutions {
		sols = append(sols, Solution{Hash: hash, Newick: newick})
	}
	slices.SortFunc(sols, func(a, b Solution) int {
		return strings.Compare(a.Hash, b.Hash)
	})
	return sols
}

// Status returns a consistent snapshot of the tracker.
func (tr *Tracker) Status() Status {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	sols := make([]Solution, 0, len(tr.solutions))
	for hash, newick := range tr.solutions {
		sols = append(sols, Solution{Hash: hash, Newick: newick})
	}
	slices.SortFunc(sols, func(a, b Solution) int {
		return strings.Compare(a.Hash, b.Hash)
	})
	return Status{
		Running:     tr.running,
		Orders:      tr.orders,
		OrdersTried: tr.ordersTried,
		Current:     slices.Clone(tr.current),
		Tested:      len(tr.tested),
		Solutions:   sols,
	}
}

// start marks the search running with the given work list size.
func (tr *Tracker) start(orders int) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.orders = orders
	tr.running = true
}

// beginOrder records the starting order about to be attempted.
func (tr *Tracker) beginOrder(order []string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.ordersTried++
	tr.current = slices.Clone(order)
}

// finish marks the search complete.
func (tr *Tracker) finish() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.running = false
	tr.current = nil
}
