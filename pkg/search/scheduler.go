package search

import (
	"context"
	"sync"
)

// evaluateAll fans one batch of candidates out to a bounded worker pool and
// joins before returning. Each verdict lands in the slot of the candidate
// that produced it, so callers see a 1:1, order-preserving mapping. Shared
// search state is never touched until the whole batch is back.
func (d *Driver) evaluateAll(ctx context.Context, cands []Candidate) []Evaluation {
	evals := make([]Evaluation, len(cands))
	for i := range cands {
		evals[i].Candidate = cands[i]
	}

	workers := min(d.opts.Workers, len(cands))
	if workers <= 1 {
		for i := range evals {
			d.evaluate(ctx, &evals[i])
		}
		return evals
	}

	jobs := make(chan int, len(cands))
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				d.evaluate(ctx, &evals[i])
			}
		}()
	}
	for i := range cands {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return evals
}

// evaluate runs the oracle for one candidate, writing into its slot.
// Each candidate owns an independent topology, so workers share nothing.
func (d *Driver) evaluate(ctx context.Context, ev *Evaluation) {
	if err := ctx.Err(); err != nil {
		ev.Err = err
		return
	}
	ev.Result, ev.Err = d.opts.Oracle.Evaluate(ctx, ev.Graph.QPGraph(), ev.Hash)
}
