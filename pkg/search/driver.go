// Package search implements the branch-and-bound topology search.
//
// The search places populations onto a growing admixture graph one at a
// time. At each step it builds every candidate placement (all sibling
// insertions first, all two-parent admixture pairs only if no sibling
// placement fits), evaluates the whole batch against the oracle, and
// recurses into every candidate whose outlier count stays within the
// threshold. A label that fits nowhere is deferred to the back of the queue
// once; a second failure abandons the starting order, and the driver
// restarts with the next permutation of the population list.
//
// # Architecture
//
// The search itself is single-threaded and cooperative: only one logical
// branch is expanded at any instant. Concurrency exists solely inside the
// evaluation scheduler, which fans one batch of candidates out to a bounded
// worker pool and joins before any shared state is touched.
//
//   - engine.go: the placement state machine (placeNext / place / commit)
//   - scheduler.go: batch evaluation with the join barrier
//   - tracker.go: tested and solution hash sets, status snapshots
//   - driver.go: the permutation restart loop
//
// # Usage
//
// Create a Driver and run the search:
//
//	driver, err := search.New(search.Options{
//	    Populations: []string{"Horse", "Donkey", "Zebra"},
//	    Outgroup:    "Ass",
//	    Oracle:      runner,
//	})
//	if err != nil {
//	    return err
//	}
//	summary, err := driver.Search(ctx)
package search

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	apperrors "github.com/kmoselund/qpermute/pkg/errors"
	"github.com/kmoselund/qpermute/pkg/observability"
	"github.com/kmoselund/qpermute/pkg/perm"
	"github.com/kmoselund/qpermute/pkg/topo"
)

// Driver owns one search: the permutation restart loop, the per-order
// insertion attempts and the shared tracker. Create one Driver per search;
// its methods are not safe for concurrent use.
type Driver struct {
	opts    Options
	logger  *log.Logger
	tracker *Tracker
	total   int // populations to place, outgroup excluded
}

// New validates the options and returns a ready Driver.
func New(opts Options) (*Driver, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	return &Driver{
		opts:    opts,
		logger:  opts.Logger,
		tracker: NewTracker(),
		total:   len(opts.Populations),
	}, nil
}

// Tracker exposes the shared solution tracker for status consumers.
func (d *Driver) Tracker() *Tracker { return d.tracker }

// Status returns a point-in-time view of the search.
func (d *Driver) Status() Status { return d.tracker.Status() }

// Solutions returns the solutions recorded so far, sorted by hash.
func (d *Driver) Solutions() []Solution { return d.tracker.Solutions() }

// Summary is the terminal outcome of a Search call.
type Summary struct {
	Solutions   int  // unique solution graphs
	Tested      int  // unique graphs evaluated
	OrdersTried int  // starting orders attempted
	Exhausted   bool // the permutation work list was fully drained
}

// FindGraph runs one insertion attempt over the given starting order: it
// builds the minimal two-leaf topology (root, outgroup, first population)
// and places the remaining populations one at a time.
func (d *Driver) FindGraph(ctx context.Context, order []string) (Attempt, error) {
	if len(order) < 2 {
		return Attempt{}, apperrors.New(apperrors.ErrCodeInvalidInput,
			"need at least two populations besides the outgroup, got %d", len(order))
	}

	d.logger.Info("starting list", "order", order)

	t := topo.New(d.opts.RootTag)
	if _, err := t.AddLeaf(t.Root(), d.opts.Outgroup); err != nil {
		return Attempt{}, insertError(err, d.opts.Outgroup)
	}
	if _, err := t.AddLeaf(t.Root(), order[0]); err != nil {
		return Attempt{}, insertError(err, order[0])
	}

	att := &attempt{}
	out, err := d.placeNext(ctx, t, order[1], order[2:], 0, att)
	if err != nil {
		return Attempt{}, err
	}
	return Attempt{Outcome: out, Failed: att.failed}, nil
}

// Search tries successive permutations of the population insertion order
// until a solution is found or every order has been tried. In exhaustive
// mode the work list is always drained. The first order tried is the input
// order itself.
func (d *Driver) Search(ctx context.Context) (Summary, error) {
	orders := perm.Orders(d.opts.Populations, d.opts.MaxOrders)
	d.logger.Infof("there are %d possible starting orders for the given nodes", len(orders))

	d.tracker.start(len(orders))
	defer d.tracker.finish()
	hooks := observability.Search()

	for _, order := range orders {
		if err := ctx.Err(); err != nil {
			return d.summary(len(orders)), err
		}
		if d.tracker.HasSolutions() && !d.opts.Exhaustive {
			break
		}

		d.tracker.beginOrder(order)
		hooks.OnOrderStart(ctx, order)
		start := time.Now()

		att, err := d.FindGraph(ctx, order)
		hooks.OnOrderComplete(ctx, order, d.tracker.SolutionCount(), time.Since(start), err)
		if err != nil {
			return d.summary(len(orders)), err
		}
		if att.Outcome == Unplaceable {
			d.logger.Warn("cannot place node in the graph", "label", att.Failed, "order", order)
		}
	}

	s := d.summary(len(orders))
	if s.Solutions == 0 && s.Exhausted {
		d.logger.Error("cannot resolve the graph from any permutation of the given nodes")
	}
	d.logger.Infof("found %d unique solution(s) from a total of %d unique graphs", s.Solutions, s.Tested)
	return s, nil
}

func (d *Driver) summary(orders int) Summary {
	return Summary{
		Solutions:   d.tracker.SolutionCount(),
		Tested:      d.tracker.TestedCount(),
		OrdersTried: d.tracker.OrdersTried(),
		Exhausted:   d.tracker.OrdersTried() == orders,
	}
}
