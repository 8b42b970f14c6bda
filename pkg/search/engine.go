package search

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	apperrors "github.com/kmoselund/qpermute/pkg/errors"
	"github.com/kmoselund/qpermute/pkg/history"
	"github.com/kmoselund/qpermute/pkg/observability"
	"github.com/kmoselund/qpermute/pkg/topo"
)

// attempt is the per-starting-order state: the labels already deferred once
// and the label that finally could not be placed. A deeper failure sets
// failed, which unwinds the whole attempt without touching sibling branches.
type attempt struct {
	problems []string
	failed   string
}

// placeNext places label and recursively every label after it, deferring
// labels to the back of the queue while that is still allowed.
func (d *Driver) placeNext(ctx context.Context, t *topo.Topology, label string, remaining []string, depth int, att *attempt) (Outcome, error) {
	for {
		out, err := d.place(ctx, t, label, remaining, depth, att)
		if err != nil || out != Deferred {
			return out, err
		}
		queue := append(slices.Clone(remaining), label)
		label, remaining = queue[0], queue[1:]
	}
}

// place runs one insertion attempt for label: every sibling insertion first,
// all admixture pairs only if no sibling candidate passed, then the deferral
// decision.
func (d *Driver) place(ctx context.Context, t *topo.Topology, label string, remaining []string, depth int, att *attempt) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Unplaceable, err
	}

	cands, err := d.siblingCandidates(t, label)
	if err != nil {
		return Unplaceable, err
	}
	placed, err := d.commit(ctx, d.evaluateAll(ctx, cands), remaining, depth, att)
	if err != nil {
		return Unplaceable, err
	}

	if !placed && att.failed == "" {
		cands, err = d.admixtureCandidates(t, label)
		if err != nil {
			return Unplaceable, err
		}
		placed, err = d.commit(ctx, d.evaluateAll(ctx, cands), remaining, depth, att)
		if err != nil {
			return Unplaceable, err
		}
	}

	switch {
	case att.failed != "":
		return Unplaceable, nil
	case placed:
		return Placed, nil
	case !slices.Contains(att.problems, label) && len(remaining) > 0 && !d.opts.Exhaustive:
		d.logger.Warn("unable to place node at this time", "label", label, "depth", depth)
		att.problems = append(att.problems, label)
		return Deferred, nil
	default:
		att.failed = label
		return Unplaceable, nil
	}
}

// siblingCandidates builds one candidate per insertion target by attaching
// label on the branch leading to the target.
func (d *Driver) siblingCandidates(t *topo.Topology, label string) ([]Candidate, error) {
	targets := t.Targets(d.opts.Outgroup)
	cands := make([]Candidate, 0, len(targets))
	for _, ref := range targets {
		g := t.Clone()
		if err := g.InsertSibling(ref, label); err != nil {
			return nil, insertError(err, label)
		}
		cands = append(cands, newCandidate(g, fmt.Sprintf("%s beside %s", label, ref)))
	}
	return cands, nil
}

// admixtureCandidates builds one candidate per unordered pair of distinct-tag
// targets by attaching label as a two-parent admixture between them.
func (d *Driver) admixtureCandidates(t *topo.Topology, label string) ([]Candidate, error) {
	targets := t.Targets(d.opts.Outgroup)
	var cands []Candidate
	for i := 0; i < len(targets); i++ {
		for j := i + 1; j < len(targets); j++ {
			// The two ingress nodes of an existing merge share a tag.
			if targets[i].Tag == targets[j].Tag {
				continue
			}
			g := t.Clone()
			if err := g.InsertAdmixture(targets[i], targets[j], label); err != nil {
				return nil, insertError(err, label)
			}
			move := fmt.Sprintf("%s admixed between %s and %s", label, targets[i], targets[j])
			cands = append(cands, newCandidate(g, move))
		}
	}
	return cands, nil
}

// insertError maps builder failures onto structured codes. A label collision
// here means the input population list repeats a label.
func insertError(err error, label string) error {
	if errors.Is(err, topo.ErrLabelCollision) {
		return apperrors.Wrap(apperrors.ErrCodeLabelCollision, err, "placing %q", label)
	}
	return fmt.Errorf("placing %q: %w", label, err)
}

// commit folds one evaluated batch into the shared search state: every
// verdict is recorded, passing candidates recurse or become solutions.
// Returns whether at least one candidate passed the threshold.
func (d *Driver) commit(ctx context.Context, evals []Evaluation, remaining []string, depth int, att *attempt) (bool, error) {
	hooks := observability.Search()
	placed := false

	for _, ev := range evals {
		if ev.Err != nil {
			d.logger.Error("oracle evaluation failed", "hash", ev.Hash, "move", ev.Move, "error", ev.Err)
			continue
		}

		outliers := ev.Result.OutlierCount()
		pass := outliers <= d.opts.Threshold
		solution := pass && len(remaining) == 0

		d.tracker.AddTested(ev.Hash)
		hooks.OnCandidate(ctx, ev.Hash, ev.Graph.LeafCount(), ev.Graph.AdmixCount(), outliers)
		d.snapshot(ev)
		d.record(ctx, ev, depth, solution)

		d.logger.Info(strings.Repeat("  ", depth)+ev.Newick,
			"nodes", ev.Graph.LeafCount(),
			"admix", ev.Graph.AdmixCount(),
			"outliers", outliers,
			"worst", ev.Result.WorstStat(),
			"hash", ev.Hash)

		if !pass {
			continue
		}
		placed = true
		d.diagram(ctx, ev, outliers)

		if len(remaining) > 0 {
			out, err := d.placeNext(ctx, ev.Graph, remaining[0], remaining[1:], depth+1, att)
			if err != nil {
				return placed, err
			}
			if out == Unplaceable {
				return placed, nil
			}
			continue
		}

		d.logger.Info("placed all nodes on a graph without outliers", "hash", ev.Hash)
		d.tracker.AddSolution(ev.Hash, ev.Newick)
		hooks.OnSolution(ctx, ev.Hash)
	}
	return placed, nil
}

// snapshot persists the topology JSON beside the oracle's artifacts, skipped
// when the verdict came from cache and the files already exist.
func (d *Driver) snapshot(ev Evaluation) {
	if d.opts.OutputPrefix == "" || ev.Result.CacheHit {
		return
	}
	path := fmt.Sprintf("%s-%s.json", d.opts.OutputPrefix, ev.Hash)
	if err := topo.WriteSnapshotFile(ev.Graph, path); err != nil {
		d.logger.Warn("writing topology snapshot failed", "path", path, "error", err)
	}
}

// record hands one evaluation to the history recorder.
func (d *Driver) record(ctx context.Context, ev Evaluation, depth int, solution bool) {
	rec := history.Record{
		Order:      d.tracker.OrdersTried(),
		Depth:      depth,
		Hash:       ev.Hash,
		Newick:     ev.Newick,
		Leaves:     ev.Graph.LeafCount(),
		Admixtures: ev.Graph.AdmixCount(),
		Outliers:   ev.Result.OutlierCount(),
		WorstStat:  ev.Result.WorstStat(),
		Solution:   solution,
		CacheHit:   ev.Result.CacheHit,
	}
	if err := d.opts.Recorder.Record(ctx, rec); err != nil {
		d.logger.Warn("recording history failed", "hash", ev.Hash, "error", err)
	}
}

// diagram renders a passing graph once it carries enough of the populations.
func (d *Driver) diagram(ctx context.Context, ev Evaluation, outliers int) {
	if d.opts.Diagrammer == nil {
		return
	}
	if ev.Graph.LeafCount() <= d.total-d.opts.DiagramOffset {
		return
	}
	if err := d.opts.Diagrammer.Diagram(ctx, ev.Graph, ev.Hash, outliers); err != nil {
		d.logger.Warn("rendering diagram failed", "hash", ev.Hash, "error", err)
	}
}
