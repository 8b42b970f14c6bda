package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kmoselund/qpermute/pkg/config"
	apperrors "github.com/kmoselund/qpermute/pkg/errors"
	"github.com/kmoselund/qpermute/pkg/render"
	"github.com/kmoselund/qpermute/pkg/topo"
)

// =============================================================================
// Render Command
// =============================================================================

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	configPath    string
	prefix        string
	diagramPrefix string
	format        string
	outliers      int
}

// newRenderCmd creates the render command.
func newRenderCmd() *cobra.Command {
	opts := &renderOpts{}

	cmd := &cobra.Command{
		Use:   "render <hash>",
		Short: "Render a diagram for a previously evaluated graph",
		Long: `Render reads the topology snapshot a search wrote for the given graph hash
and draws it with Graphviz. When the oracle left a fitted DOT file for the
hash, that file is preferred so fitted edge annotations survive.`,
		Example: `  # SVG from the snapshot written under graphs/run
  qpermute render 4ac9f12 --prefix graphs/run

  # PNG into a separate directory
  qpermute render 4ac9f12 -c qpermute.toml -f png --diagram-prefix diagrams/run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRenderConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runRender(cmd.Context(), cfg, args[0], opts.outliers)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "path to a qpermute TOML config file")
	cmd.Flags().StringVar(&opts.prefix, "prefix", "", "path prefix the search wrote artifacts under")
	cmd.Flags().StringVar(&opts.diagramPrefix, "diagram-prefix", "", "path prefix for the diagram file (defaults to --prefix)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", string(render.DefaultFormat), "diagram format: svg, png, or dot")
	cmd.Flags().IntVar(&opts.outliers, "outliers", 0, "outlier count to embed in the diagram file name")

	return cmd
}

// loadRenderConfig builds the effective config for a render invocation.
func loadRenderConfig(cmd *cobra.Command, opts *renderOpts) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if changed("prefix") {
		cfg.Output.Prefix = opts.prefix
	}
	if changed("diagram-prefix") {
		cfg.Output.DiagramPrefix = opts.diagramPrefix
	}
	if changed("format") || cfg.Output.Format == "" {
		cfg.Output.Format = opts.format
	}

	if cfg.Output.Prefix == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput,
			"output prefix is required (set --prefix or [output] prefix)")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runRender loads the snapshot for hash and writes its diagram.
func runRender(ctx context.Context, cfg *config.Config, hash string, outliers int) error {
	logger := loggerFromContext(ctx)

	snapshot := fmt.Sprintf("%s-%s.json", cfg.Output.Prefix, hash)
	g, err := topo.ReadSnapshotFile(snapshot)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeGraphNotFound, err,
			"no snapshot for graph %s under prefix %s", hash, cfg.Output.Prefix)
	}
	logger.Debug("snapshot loaded", "path", snapshot, "leaves", g.LeafCount(), "admixtures", g.AdmixCount())

	store, err := newCacheStore(ctx, cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer func() {
			if cerr := store.Close(); cerr != nil {
				logger.Warn("closing cache", "error", cerr)
			}
		}()
	}

	r, err := newRenderer(cfg, store, logger)
	if err != nil {
		return err
	}

	sp := newSpinner(ctx, fmt.Sprintf("rendering %s", hash))
	sp.Start()
	if err := r.Diagram(ctx, g, hash, outliers); err != nil {
		sp.StopWithError(fmt.Sprintf("Render failed for %s", hash))
		return err
	}
	sp.StopWithSuccess(fmt.Sprintf("Rendered %s", hash))
	printFile(r.Path(g, hash, outliers))
	return nil
}
