package oracle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kmoselund/qpermute/pkg/cache"
	apperrors "github.com/kmoselund/qpermute/pkg/errors"
	"github.com/kmoselund/qpermute/pkg/observability"
)

// DefaultBinary is the fitting program executed per candidate graph.
const DefaultBinary = "qpGraph"

// Options configures a Runner.
type Options struct {
	// Binary is the program to execute. Defaults to DefaultBinary and is
	// resolved through PATH unless it contains a separator.
	Binary string

	// ParamsFile is the parameter file passed as -p. Required: it names the
	// genotype data every candidate graph is fitted against.
	ParamsFile string

	// OutputPrefix is the path prefix for per-graph artifacts
	// (<prefix>-<hash>.graph, .dot, .log). The log file doubles as the
	// resume cache: a graph whose log already exists is not re-fitted.
	OutputPrefix string

	// Timeout bounds a single evaluation. Zero relies on ctx alone.
	Timeout time.Duration

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
	if o.Binary == "" {
		o.Binary = DefaultBinary
	}
	if o.ParamsFile == "" {
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "oracle params file is required")
	}
	if err := apperrors.ValidateOutputPrefix(o.OutputPrefix); err != nil {
		return err
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// Runner executes the external fitting program for each candidate graph and
// parses its log into a Result.
type Runner struct {
	opts Options
}

// NewRunner validates the options and verifies the binary is executable.
func NewRunner(opts Options) (*Runner, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if _, err := exec.LookPath(opts.Binary); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeFileNotFound, err,
			"oracle binary %q not found", opts.Binary)
	}
	return &Runner{opts: opts}, nil
}

// KeyOpts returns the cache key options identifying this runner's verdicts:
// the binary name plus a content hash of the parameter file, so verdicts from
// different datasets never collide.
func (r *Runner) KeyOpts() (cache.EvalKeyOpts, error) {
	data, err := os.ReadFile(r.opts.ParamsFile)
	if err != nil {
		return cache.EvalKeyOpts{}, apperrors.Wrap(apperrors.ErrCodeFileNotFound, err,
			"reading params file %s", r.opts.ParamsFile)
	}
	return cache.EvalKeyOpts{Binary: r.opts.Binary, ParamsHash: cache.Hash(data)}, nil
}

// Evaluate fits one graph. If a log from a previous run exists it is parsed
// instead of re-executing, so interrupted searches resume cheaply.
func (r *Runner) Evaluate(ctx context.Context, graph []byte, hash string) (*Result, error) {
	logPath := r.artifact(hash, "log")
	if data, err := os.ReadFile(logPath); err == nil {
		res, perr := ParseLog(data)
		if perr == nil {
			res.CacheHit = true
			return res, nil
		}
		r.opts.Logger.Warn("discarding unparseable oracle log", "path", logPath, "err", perr)
		_ = os.Remove(logPath)
	}

	observability.Oracle().OnEvaluateStart(ctx, hash)
	start := time.Now()
	res, err := r.run(ctx, graph, hash, logPath)
	outliers := 0
	if res != nil {
		outliers = res.OutlierCount()
	}
	observability.Oracle().OnEvaluateComplete(ctx, hash, outliers, time.Since(start), err)
	return res, err
}

func (r *Runner) run(ctx context.Context, graph []byte, hash, logPath string) (*Result, error) {
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	graphPath := r.artifact(hash, "graph")
	if err := os.WriteFile(graphPath, graph, 0644); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "writing graph file %s", graphPath)
	}

	cmd := exec.CommandContext(ctx, r.opts.Binary,
		"-p", r.opts.ParamsFile,
		"-g", graphPath,
		"-d", r.artifact(hash, "dot"),
	)
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, apperrors.Wrap(apperrors.ErrCodeTimeout, ctx.Err(),
				"oracle timed out on graph %s", hash)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			cause := &apperrors.OracleExitError{
				ExitCode: exitErr.ExitCode(),
				LogTail:  tail(errBuf.String(), 512),
			}
			return nil, apperrors.Wrap(apperrors.ErrCodeOracleFailed, cause,
				"oracle failed on graph %s", hash)
		}
		return nil, apperrors.Wrap(apperrors.ErrCodeOracleFailed, err, "running %s", r.opts.Binary)
	}

	if err := os.WriteFile(logPath, out.Bytes(), 0644); err != nil {
		r.opts.Logger.Warn("could not persist oracle log", "path", logPath, "err", err)
	}

	return ParseLog(out.Bytes())
}

func (r *Runner) artifact(hash, ext string) string {
	return fmt.Sprintf("%s-%s.%s", r.opts.OutputPrefix, hash, ext)
}

// tail returns the last n bytes of s for error reporting.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// Ensure Runner implements Oracle.
var _ Oracle = (*Runner)(nil)
