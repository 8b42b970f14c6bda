package oracle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kmoselund/qpermute/pkg/cache"
	apperrors "github.com/kmoselund/qpermute/pkg/errors"
)

// writeScript creates a fake fitting binary. Each invocation appends a line
// to <script>.calls so tests can count executions.
func writeScript(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "fake-qpgraph")
	script := "#!/bin/sh\necho run >> \"$0.calls\"\n" + body
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func scriptCalls(t *testing.T, script string) int {
	t.Helper()
	data, err := os.ReadFile(script + ".calls")
	if os.IsNotExist(err) {
		return 0
	}
	if err != nil {
		t.Fatal(err)
	}
	return strings.Count(string(data), "run")
}

func writeParams(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "fit.par")
	if err := os.WriteFile(path, []byte("genotypename: horse.geno\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOptionsValidateAndSetDefaults(t *testing.T) {
	t.Run("params file required", func(t *testing.T) {
		opts := Options{OutputPrefix: "out"}
		if err := opts.ValidateAndSetDefaults(); !apperrors.Is(err, apperrors.ErrCodeInvalidConfig) {
			t.Errorf("error = %v, want INVALID_CONFIG", err)
		}
	})

	t.Run("output prefix required", func(t *testing.T) {
		opts := Options{ParamsFile: "fit.par"}
		if err := opts.ValidateAndSetDefaults(); !apperrors.Is(err, apperrors.ErrCodeInvalidInput) {
			t.Errorf("error = %v, want INVALID_INPUT", err)
		}
	})

	t.Run("defaults applied", func(t *testing.T) {
		opts := Options{ParamsFile: "fit.par", OutputPrefix: "out"}
		if err := opts.ValidateAndSetDefaults(); err != nil {
			t.Fatalf("error = %v", err)
		}
		if opts.Binary != DefaultBinary {
			t.Errorf("Binary = %q, want %q", opts.Binary, DefaultBinary)
		}
		if opts.Logger == nil {
			t.Error("Logger should default to a discard logger")
		}
	})
}

func TestNewRunnerMissingBinary(t *testing.T) {
	dir := t.TempDir()
	_, err := NewRunner(Options{
		Binary:       "qpermute-no-such-binary",
		ParamsFile:   writeParams(t, dir),
		OutputPrefix: filepath.Join(dir, "fit"),
	})
	if !apperrors.Is(err, apperrors.ErrCodeFileNotFound) {
		t.Errorf("NewRunner() error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestRunnerEvaluate(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	script := writeScript(t, dir, `echo "outliers:"
echo "worst f-stat: Out A B C 0.001 0.5"
`)

	r, err := NewRunner(Options{
		Binary:       script,
		ParamsFile:   writeParams(t, dir),
		OutputPrefix: filepath.Join(dir, "fit"),
	})
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	res, err := r.Evaluate(ctx, []byte("root\tR\n"), "abc1234")
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if res.OutlierCount() != 0 {
		t.Errorf("OutlierCount() = %d, want 0", res.OutlierCount())
	}
	if res.WorstStat() != "0.5" {
		t.Errorf("WorstStat() = %q, want 0.5", res.WorstStat())
	}
	if res.CacheHit {
		t.Error("first evaluation should not be a cache hit")
	}

	// Artifacts land beside the prefix.
	graph, err := os.ReadFile(filepath.Join(dir, "fit-abc1234.graph"))
	if err != nil {
		t.Fatalf("graph artifact: %v", err)
	}
	if string(graph) != "root\tR\n" {
		t.Errorf("graph artifact = %q", graph)
	}
	if _, err := os.Stat(filepath.Join(dir, "fit-abc1234.log")); err != nil {
		t.Errorf("log artifact: %v", err)
	}

	// A second evaluation reuses the log instead of re-running.
	res2, err := r.Evaluate(ctx, []byte("root\tR\n"), "abc1234")
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !res2.CacheHit {
		t.Error("second evaluation should hit the log cache")
	}
	if got := scriptCalls(t, script); got != 1 {
		t.Errorf("binary ran %d times, want 1", got)
	}
}

func TestRunnerEvaluateExitError(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	script := writeScript(t, dir, `echo "fatal: bad graph" >&2
exit 3
`)

	r, err := NewRunner(Options{
		Binary:       script,
		ParamsFile:   writeParams(t, dir),
		OutputPrefix: filepath.Join(dir, "fit"),
	})
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	_, err = r.Evaluate(ctx, []byte("root\tR\n"), "def5678")
	if !apperrors.Is(err, apperrors.ErrCodeOracleFailed) {
		t.Fatalf("Evaluate() error = %v, want ORACLE_FAILED", err)
	}

	var exitErr *apperrors.OracleExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Evaluate() error = %v, want OracleExitError in chain", err)
	}
	if exitErr.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", exitErr.ExitCode)
	}
	if !strings.Contains(exitErr.LogTail, "bad graph") {
		t.Errorf("LogTail = %q, want stderr content", exitErr.LogTail)
	}

	// Failed runs must not leave a log behind, or the retry would read it.
	if _, err := os.Stat(filepath.Join(dir, "fit-def5678.log")); !os.IsNotExist(err) {
		t.Error("failed evaluation left a log artifact")
	}
}

func TestRunnerEvaluateMalformedLog(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	script := writeScript(t, dir, `echo "no markers here"
`)

	r, err := NewRunner(Options{
		Binary:       script,
		ParamsFile:   writeParams(t, dir),
		OutputPrefix: filepath.Join(dir, "fit"),
	})
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	if _, err := r.Evaluate(ctx, []byte("root\tR\n"), "aaa1111"); !apperrors.Is(err, apperrors.ErrCodeOracleMalformed) {
		t.Errorf("Evaluate() error = %v, want ORACLE_MALFORMED", err)
	}
}

func TestRunnerEvaluateTimeout(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	script := writeScript(t, dir, `sleep 5
`)

	r, err := NewRunner(Options{
		Binary:       script,
		ParamsFile:   writeParams(t, dir),
		OutputPrefix: filepath.Join(dir, "fit"),
		Timeout:      50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	if _, err := r.Evaluate(ctx, []byte("root\tR\n"), "bbb2222"); !apperrors.Is(err, apperrors.ErrCodeTimeout) {
		t.Errorf("Evaluate() error = %v, want TIMEOUT", err)
	}
}

func TestRunnerKeyOpts(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, `exit 0
`)
	params := writeParams(t, dir)

	r, err := NewRunner(Options{
		Binary:       script,
		ParamsFile:   params,
		OutputPrefix: filepath.Join(dir, "fit"),
	})
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	opts, err := r.KeyOpts()
	if err != nil {
		t.Fatalf("KeyOpts() error = %v", err)
	}
	if opts.Binary != script {
		t.Errorf("Binary = %q, want %q", opts.Binary, script)
	}

	data, _ := os.ReadFile(params)
	if opts.ParamsHash != cache.Hash(data) {
		t.Errorf("ParamsHash = %q, want content hash of params file", opts.ParamsHash)
	}
}
