package search

import (
	"context"
	"io"
	"runtime"
	"slices"

	"github.com/charmbracelet/log"

	apperrors "github.com/kmoselund/qpermute/pkg/errors"
	"github.com/kmoselund/qpermute/pkg/history"
	"github.com/kmoselund/qpermute/pkg/oracle"
	"github.com/kmoselund/qpermute/pkg/topo"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Config
// =============================================================================

const (
	// DefaultThreshold is the maximum outlier count a candidate may carry and
	// still be explored further. Zero prunes every imperfect fit.
	DefaultThreshold = 0

	// DefaultDiagramOffset renders diagrams only for passing graphs that
	// carry every population. An offset of k also renders graphs missing up
	// to k of them.
	DefaultDiagramOffset = 0
)

// Diagrammer renders a diagram for a passing graph. Implemented by the
// render package; rendering failures never fail the search.
type Diagrammer interface {
	Diagram(ctx context.Context, g *topo.Topology, hash string, outliers int) error
}

// Options contains all configuration for a search Driver.
type Options struct {
	// Populations is the ordered list of population labels to place. The
	// outgroup is removed from this list when it is also listed.
	Populations []string

	// Outgroup is the fixed outgroup label, grafted directly onto the root
	// before any other population is placed and never an insertion target.
	Outgroup string

	// Oracle evaluates candidate graphs. Required.
	Oracle oracle.Oracle

	// Threshold is the maximum outlier count for a candidate to pass.
	Threshold int

	// Exhaustive drains the entire permutation work list even after
	// solutions are found, and disables deferral of unplaceable labels.
	Exhaustive bool

	// Workers bounds concurrent oracle evaluations within one insertion
	// step. One means sequential. Defaults to the CPU count.
	Workers int

	// MaxOrders caps the permutation work list. Zero tries every
	// permutation; for more than a dozen populations a cap is essential.
	MaxOrders int

	// RootTag labels the synthetic root. Defaults to topo.DefaultRootTag.
	RootTag string

	// OutputPrefix, when set, writes a topology snapshot
	// (<prefix>-<hash>.json) for every newly evaluated candidate.
	OutputPrefix string

	// Diagrammer, when set, renders a diagram for every passing graph whose
	// leaf count clears the completeness bar.
	Diagrammer Diagrammer

	// DiagramOffset loosens the completeness bar: a passing graph is
	// rendered when it carries more than len(Populations)-DiagramOffset
	// leaves, the outgroup included.
	DiagramOffset int

	// Recorder receives one history record per evaluated candidate.
	// Defaults to history.Noop.
	Recorder history.Recorder

	// Logger defaults to a discard logger.
	Logger *log.Logger

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Oracle == nil {
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "search oracle is required")
	}
	if err := apperrors.ValidatePopulations(o.Populations, o.Outgroup); err != nil {
		return err
	}
	o.Populations = slices.DeleteFunc(slices.Clone(o.Populations), func(name string) bool {
		return name == o.Outgroup
	})

	if o.Threshold < 0 {
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "outlier threshold cannot be negative")
	}
	if o.Workers < 0 {
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "worker count cannot be negative")
	}
	if o.DiagramOffset < 0 {
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "diagram offset cannot be negative")
	}
	if o.MaxOrders < 0 {
		o.MaxOrders = 0
	}
	if o.Workers == 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.RootTag == "" {
		o.RootTag = topo.DefaultRootTag
	}
	if o.RootTag == o.Outgroup || slices.Contains(o.Populations, o.RootTag) {
		return apperrors.New(apperrors.ErrCodeLabelCollision,
			"root label %q collides with a population name", o.RootTag)
	}
	if o.Recorder == nil {
		o.Recorder = history.Noop{}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}
