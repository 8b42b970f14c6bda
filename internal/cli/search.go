package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/kmoselund/qpermute/pkg/cache"
	"github.com/kmoselund/qpermute/pkg/config"
	"github.com/kmoselund/qpermute/pkg/history"
	"github.com/kmoselund/qpermute/pkg/oracle"
	"github.com/kmoselund/qpermute/pkg/render"
	"github.com/kmoselund/qpermute/pkg/search"
	"github.com/kmoselund/qpermute/pkg/status"
)

// =============================================================================
// Search Command
// =============================================================================

// searchOpts holds the command-line flags for the search command. Flags that
// the user set override the corresponding config file values.
type searchOpts struct {
	configPath    string
	populations   []string
	outgroup      string
	parFile       string
	binary        string
	oracleTimeout time.Duration
	prefix        string
	diagramPrefix string
	format        string
	diagramOffset int
	threshold     int
	exhaustive    bool
	workers       int
	maxOrders     int
	rootLabel     string
	watch         bool
}

// newSearchCmd creates the search command.
func newSearchCmd() *cobra.Command {
	opts := &searchOpts{}

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search admixture graph topologies that fit the f-statistics",
		Long: `Search enumerates rooted graph topologies by inserting populations one at a
time, in permuted orders, and keeps every graph the oracle fits within the
outlier threshold. Populations that fit nowhere are deferred to the end of
their order; orders that still cannot place them are abandoned and the next
permutation starts from scratch.

All settings can come from a TOML config file (--config), from flags, or
both; flags win. Cache, history, and status server settings are config-file
only.`,
		Example: `  # Four populations against an outgroup, artifacts under graphs/run-*
  qpermute search -p Altai,Vindija,Denisova,French -o Mbuti \
    --par-file qpgraph.par --prefix graphs/run

  # Everything from a config file, with a live terminal view
  qpermute search -c qpermute.toml --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSearchConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runSearch(cmd.Context(), cfg, opts.watch)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "path to a qpermute TOML config file")
	cmd.Flags().StringSliceVarP(&opts.populations, "pop", "p", nil, "population to place (repeatable or comma-separated)")
	cmd.Flags().StringVarP(&opts.outgroup, "outgroup", "o", "", "outgroup population label")
	cmd.Flags().StringVar(&opts.parFile, "par-file", "", "qpGraph parameter file naming the genotype data")
	cmd.Flags().StringVar(&opts.binary, "binary", oracle.DefaultBinary, "fitting program executed per candidate graph")
	cmd.Flags().DurationVar(&opts.oracleTimeout, "oracle-timeout", 0, "time limit per oracle evaluation (0 means none)")
	cmd.Flags().StringVar(&opts.prefix, "prefix", "", "path prefix for per-graph artifacts and snapshots")
	cmd.Flags().StringVar(&opts.diagramPrefix, "diagram-prefix", "", "path prefix for rendered diagrams (defaults to --prefix)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "render diagrams for passing graphs: svg, png, or dot")
	cmd.Flags().IntVar(&opts.diagramOffset, "diagram-offset", search.DefaultDiagramOffset, "also render passing graphs missing up to this many populations")
	cmd.Flags().IntVarP(&opts.threshold, "threshold", "t", search.DefaultThreshold, "maximum outlier count for a graph to pass")
	cmd.Flags().BoolVar(&opts.exhaustive, "exhaustive", false, "try every order even after solutions are found")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "concurrent oracle evaluations per insertion step (0 means CPU count)")
	cmd.Flags().IntVar(&opts.maxOrders, "max-orders", 0, "cap on starting orders to try (0 means all permutations)")
	cmd.Flags().StringVar(&opts.rootLabel, "root-label", "", "label for the synthetic root node")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "show a live terminal view of the running search")

	return cmd
}

// loadSearchConfig builds the effective config from defaults, the optional
// config file, and any flags the user set, then validates the result.
func loadSearchConfig(cmd *cobra.Command, opts *searchOpts) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	mergeSearchConfig(cfg, opts, cmd.Flags().Changed)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeSearchConfig overlays flag values onto cfg. changed reports whether
// the user set the named flag; unset flags leave config file values alone.
func mergeSearchConfig(cfg *config.Config, opts *searchOpts, changed func(string) bool) {
	if changed("pop") {
		cfg.Search.Populations = opts.populations
	}
	if changed("outgroup") {
		cfg.Search.Outgroup = opts.outgroup
	}
	if changed("threshold") {
		cfg.Search.Threshold = opts.threshold
	}
	if changed("exhaustive") {
		cfg.Search.Exhaustive = opts.exhaustive
	}
	if changed("workers") {
		cfg.Search.Workers = opts.workers
	}
	if changed("max-orders") {
		cfg.Search.MaxOrders = opts.maxOrders
	}
	if changed("root-label") {
		cfg.Search.RootLabel = opts.rootLabel
	}
	if changed("par-file") {
		cfg.Oracle.ParFile = opts.parFile
	}
	if changed("binary") {
		cfg.Oracle.Binary = opts.binary
	}
	if changed("oracle-timeout") {
		cfg.Oracle.Timeout = config.Duration(opts.oracleTimeout)
	}
	if changed("prefix") {
		cfg.Output.Prefix = opts.prefix
	}
	if changed("diagram-prefix") {
		cfg.Output.DiagramPrefix = opts.diagramPrefix
	}
	if changed("format") {
		cfg.Output.Format = opts.format
	}
	if changed("diagram-offset") {
		cfg.Output.DiagramOffset = opts.diagramOffset
	}
}

// runSearch assembles the oracle, cache, history, diagram, and status layers
// from cfg and runs the search to completion.
func runSearch(ctx context.Context, cfg *config.Config, watch bool) error {
	logger := loggerFromContext(ctx)

	runner, err := oracle.NewRunner(oracle.Options{
		Binary:       cfg.Oracle.Binary,
		ParamsFile:   cfg.Oracle.ParFile,
		OutputPrefix: cfg.Output.Prefix,
		Timeout:      cfg.Oracle.Timeout.Std(),
		Logger:       logger,
	})
	if err != nil {
		return err
	}

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

	orc, err := wrapCache(cfg, runner, store, logger)
	if err != nil {
		return err
	}

	rec, err := newRecorder(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rec.Close(context.Background()); cerr != nil {
			logger.Warn("closing history recorder", "error", cerr)
		}
	}()

	var diag search.Diagrammer
	if cfg.Output.Format != "" {
		r, rerr := newRenderer(cfg, store, logger)
		if rerr != nil {
			return rerr
		}
		diag = r
	}

	driver, err := search.New(search.Options{
		Populations:   cfg.Search.Populations,
		Outgroup:      cfg.Search.Outgroup,
		Oracle:        orc,
		Threshold:     cfg.Search.Threshold,
		Exhaustive:    cfg.Search.Exhaustive,
		Workers:       cfg.Search.Workers,
		MaxOrders:     cfg.Search.MaxOrders,
		RootTag:       cfg.Search.RootLabel,
		OutputPrefix:  cfg.Output.Prefix,
		Diagrammer:    diag,
		DiagramOffset: cfg.Output.DiagramOffset,
		Recorder:      rec,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	if cfg.Status.Enabled {
		srv, serr := status.New(status.Options{
			Addr:   cfg.Status.Addr,
			Source: driver,
			Logger: logger,
		})
		if serr != nil {
			return serr
		}
		srv.Start()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if serr := srv.Shutdown(sctx); serr != nil {
				logger.Warn("status server shutdown", "error", serr)
			}
		}()
	}

	if watch {
		sum, werr := runWatch(ctx, driver)
		if werr != nil {
			return werr
		}
		printSearchResults(sum, driver.Solutions(), cfg)
		return nil
	}

	prog := newProgress(logger)
	sum, err := driver.Search(ctx)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Evaluated %d candidate graphs", sum.Tested))

	printSearchResults(sum, driver.Solutions(), cfg)
	return nil
}

// newCacheStore opens the configured cache backend, or nil when caching
// is off. The caller owns closing the returned store.
func newCacheStore(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case config.BackendFile:
		return cache.NewFileCache(cfg.Cache.Dir)
	case config.BackendRedis:
		return cache.NewRedisCache(ctx, cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB)
	default:
		return nil, nil
	}
}

// cacheKeyer builds the key generator, scoped when the config names a scope.
func cacheKeyer(cfg *config.Config) cache.Keyer {
	keyer := cache.NewDefaultKeyer()
	if cfg.Cache.Scope != "" {
		keyer = cache.NewScopedKeyer(keyer, cfg.Cache.Scope)
	}
	return keyer
}

// wrapCache wraps runner with verdict caching on store. A nil store
// returns the runner as-is.
func wrapCache(cfg *config.Config, runner *oracle.Runner, store cache.Cache, logger *log.Logger) (oracle.Oracle, error) {
	if store == nil {
		return runner, nil
	}
	keyOpts, err := runner.KeyOpts()
	if err != nil {
		return nil, err
	}
	return oracle.NewCached(runner, store, cacheKeyer(cfg), keyOpts, logger), nil
}

// newRecorder creates the configured history backend, defaulting to a no-op.
func newRecorder(ctx context.Context, cfg *config.Config) (history.Recorder, error) {
	switch cfg.History.Backend {
	case config.BackendJSONL:
		return history.NewJSONL(cfg.History.Path, history.NewRunID())
	case config.BackendMongo:
		return history.NewMongo(ctx, cfg.History.URI, cfg.History.Database, history.NewRunID())
	default:
		return history.Noop{}, nil
	}
}

// newRenderer creates a diagram renderer from the output config, sharing
// the verdict cache store for rendered artifacts when one is open.
// The caller must ensure cfg.Output.Format is set.
func newRenderer(cfg *config.Config, store cache.Cache, logger *log.Logger) (*render.Renderer, error) {
	prefix := cfg.Output.DiagramPrefix
	if prefix == "" {
		prefix = cfg.Output.Prefix
	}
	opts := render.Options{
		Prefix:    prefix,
		Format:    render.Format(cfg.Output.Format),
		DotPrefix: cfg.Output.Prefix,
		Logger:    logger,
	}
	if store != nil {
		opts.Cache = store
		opts.Keyer = cacheKeyer(cfg)
	}
	return render.New(opts)
}

// printSearchResults prints the solutions and run statistics.
func printSearchResults(sum search.Summary, solutions []search.Solution, cfg *config.Config) {
	printNewline()
	if len(solutions) == 0 {
		printWarning("No graph fit every population within threshold %d", cfg.Search.Threshold)
		printRunStats(sum.Tested, sum.OrdersTried, sum.Exhausted)
		return
	}

	printSuccess("Found %d fitting graphs", len(solutions))
	for i, sol := range solutions {
		printSolution(i+1, sol.Hash, sol.Newick)
	}
	printRunStats(sum.Tested, sum.OrdersTried, sum.Exhausted)

	if cfg.Output.Format == "" {
		printNewline()
		printNextStep("Render a solution", fmt.Sprintf("qpermute render %s --prefix %s", solutions[0].Hash, cfg.Output.Prefix))
	}
}
