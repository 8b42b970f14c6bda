package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-graphviz"

	"github.com/kmoselund/qpermute/pkg/cache"
	apperrors "github.com/kmoselund/qpermute/pkg/errors"
	"github.com/kmoselund/qpermute/pkg/observability"
	"github.com/kmoselund/qpermute/pkg/search"
	"github.com/kmoselund/qpermute/pkg/topo"
)

// Format selects the diagram output encoding.
type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
	FormatDOT Format = "dot" // raw DOT source, no Graphviz invocation
)

// DefaultFormat is used when Options.Format is empty.
const DefaultFormat = FormatSVG

func (f Format) graphviz() (graphviz.Format, error) {
	switch f {
	case FormatSVG:
		return graphviz.SVG, nil
	case FormatPNG:
		return graphviz.PNG, nil
	default:
		return "", apperrors.New(apperrors.ErrCodeInvalidFormat, "unsupported diagram format %q", string(f))
	}
}

// Options configures a Renderer.
type Options struct {
	// Prefix is the path prefix for diagram files. The full name embeds the
	// leaf, outlier and admixture counts plus the graph hash. Required.
	Prefix string

	// Format selects the output encoding. Defaults to DefaultFormat.
	Format Format

	// DotPrefix, when set, is the oracle's artifact prefix: a
	// <DotPrefix>-<hash>.dot file written by the external binary is
	// preferred over the built-in DOT export.
	DotPrefix string

	// Cache, when set, stores rendered bytes keyed by DOT content and
	// format, so re-rendering the same graph skips Graphviz. FormatDOT
	// output is never cached.
	Cache cache.Cache

	// Keyer generates artifact cache keys. Defaults to the standard keyer.
	Keyer cache.Keyer

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
	if err := apperrors.ValidateOutputPrefix(o.Prefix); err != nil {
		return err
	}
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	switch o.Format {
	case FormatSVG, FormatPNG, FormatDOT:
	default:
		return apperrors.New(apperrors.ErrCodeInvalidFormat, "unsupported diagram format %q", string(o.Format))
	}
	if o.Cache != nil && o.Keyer == nil {
		o.Keyer = cache.NewDefaultKeyer()
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// Renderer writes diagram files for passing graphs. It satisfies the
// search Diagrammer contract.
type Renderer struct {
	opts   Options
	logger *log.Logger
}

var _ search.Diagrammer = (*Renderer)(nil)

// New validates the options and returns a ready Renderer.
func New(opts Options) (*Renderer, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	return &Renderer{opts: opts, logger: opts.Logger}, nil
}

// Diagram renders one graph and writes it beside the run's other artifacts.
func (r *Renderer) Diagram(ctx context.Context, g *topo.Topology, hash string, outliers int) error {
	out, err := r.Render(ctx, r.dotSource(g, hash))
	if err != nil {
		return err
	}

	path := r.Path(g, hash, outliers)
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("writing diagram: %w", err)
	}
	r.logger.Debug("diagram written", "path", path)
	return nil
}

// Path returns the file name Diagram writes for this graph: the prefix plus
// the leaf, outlier and admixture counts and the graph hash.
func (r *Renderer) Path(g *topo.Topology, hash string, outliers int) string {
	return fmt.Sprintf("%s-n%d-o%d-a%d-%s.%s",
		r.opts.Prefix, g.LeafCount(), outliers, g.AdmixCount(), hash, r.opts.Format)
}

// Render encodes DOT source in the configured format, consulting the
// artifact cache when one is configured. FormatDOT passes the source
// through untouched.
func (r *Renderer) Render(ctx context.Context, dot []byte) ([]byte, error) {
	if r.opts.Format == FormatDOT {
		return dot, nil
	}

	var key string
	if r.opts.Cache != nil {
		key = r.opts.Keyer.ArtifactKey(cache.Hash(dot), cache.ArtifactKeyOpts{Format: string(r.opts.Format)})
		if data, hit, err := r.opts.Cache.Get(ctx, key); err != nil {
			r.logger.Warn("diagram cache read failed", "err", err)
		} else if hit {
			observability.Cache().OnCacheHit(ctx, "artifact")
			return data, nil
		}
		observability.Cache().OnCacheMiss(ctx, "artifact")
	}

	out, err := r.encode(ctx, dot)
	if err != nil {
		return nil, err
	}

	if key != "" {
		// Diagrams are deterministic for fixed DOT and format, so entries
		// never expire.
		if err := r.opts.Cache.Set(ctx, key, out, 0); err != nil {
			r.logger.Warn("diagram cache write failed", "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "artifact", len(out))
		}
	}
	return out, nil
}

// encode runs Graphviz over the DOT source.
func (r *Renderer) encode(ctx context.Context, dot []byte) ([]byte, error) {
	format, err := r.opts.Format.graphviz()
	if err != nil {
		return nil, err
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	graph, err := graphviz.ParseBytes(dot)
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer graph.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

// dotSource prefers the DOT artifact the oracle binary wrote for this hash,
// which carries fitted drift values the topology alone cannot reproduce.
func (r *Renderer) dotSource(g *topo.Topology, hash string) []byte {
	if r.opts.DotPrefix != "" {
		path := fmt.Sprintf("%s-%s.dot", r.opts.DotPrefix, hash)
		if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
			return data
		}
	}
	return ToDOT(g)
}
