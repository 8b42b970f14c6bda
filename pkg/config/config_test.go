package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/kmoselund/qpermute/pkg/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "qpermute.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
[search]
populations = ["Horse", "Donkey", "Zebra"]
outgroup = "Ass"
threshold = 1
exhaustive = true
workers = 4
max_orders = 100
root_label = "Root"

[oracle]
binary = "qpGraph"
par_file = "data/merged.par"
timeout = "30m"

[output]
prefix = "out/equus"
diagram_prefix = "out/diagrams/equus"
format = "png"
diagram_offset = 1

[cache]
backend = "file"
dir = "out/cache"
scope = "equus"

[history]
backend = "jsonl"
path = "out/history.jsonl"

[status]
enabled = true
addr = ":9000"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Search.Populations) != 3 || cfg.Search.Populations[2] != "Zebra" {
		t.Errorf("Populations = %v", cfg.Search.Populations)
	}
	if cfg.Search.Outgroup != "Ass" {
		t.Errorf("Outgroup = %q, want Ass", cfg.Search.Outgroup)
	}
	if cfg.Search.Threshold != 1 || !cfg.Search.Exhaustive || cfg.Search.Workers != 4 {
		t.Errorf("search table = %+v", cfg.Search)
	}
	if cfg.Search.MaxOrders != 100 || cfg.Search.RootLabel != "Root" {
		t.Errorf("search table = %+v", cfg.Search)
	}
	if cfg.Oracle.ParFile != "data/merged.par" {
		t.Errorf("ParFile = %q", cfg.Oracle.ParFile)
	}
	if cfg.Oracle.Timeout.Std() != 30*time.Minute {
		t.Errorf("Timeout = %v, want 30m", cfg.Oracle.Timeout.Std())
	}
	if cfg.Output.Format != "png" || cfg.Output.DiagramPrefix != "out/diagrams/equus" {
		t.Errorf("output table = %+v", cfg.Output)
	}
	if cfg.Cache.Backend != BackendFile || cfg.Cache.Dir != "out/cache" || cfg.Cache.Scope != "equus" {
		t.Errorf("cache table = %+v", cfg.Cache)
	}
	if cfg.History.Backend != BackendJSONL || cfg.History.Path != "out/history.jsonl" {
		t.Errorf("history table = %+v", cfg.History)
	}
	if !cfg.Status.Enabled || cfg.Status.Addr != ":9000" {
		t.Errorf("status table = %+v", cfg.Status)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[search]
populations = ["A", "B"]
outgroup = "Out"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Oracle.Binary != "qpGraph" {
		t.Errorf("Binary = %q, want qpGraph", cfg.Oracle.Binary)
	}
	if cfg.Cache.Backend != BackendNone {
		t.Errorf("Cache.Backend = %q, want %q", cfg.Cache.Backend, BackendNone)
	}
	if cfg.History.Backend != BackendNone {
		t.Errorf("History.Backend = %q, want %q", cfg.History.Backend, BackendNone)
	}
	if cfg.History.Database != "qpermute" {
		t.Errorf("History.Database = %q, want qpermute", cfg.History.Database)
	}
	if cfg.Status.Enabled {
		t.Error("Status.Enabled = true by default, want false")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if !apperrors.Is(err, apperrors.ErrCodeFileNotFound) {
		t.Errorf("Load() error = %v, want code %s", err, apperrors.ErrCodeFileNotFound)
	}
}

func TestLoadMalformedTOML(t *testing.T) {
	path := writeConfig(t, `[search
populations = not valid`)
	_, err := Load(path)
	if !apperrors.Is(err, apperrors.ErrCodeInvalidConfig) {
		t.Errorf("Load() error = %v, want code %s", err, apperrors.ErrCodeInvalidConfig)
	}
}

func TestValidateRejectsBadEnums(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		wantCode apperrors.Code
	}{
		{
			name:     "unknown cache backend",
			mutate:   func(c *Config) { c.Cache.Backend = "memcached" },
			wantCode: apperrors.ErrCodeInvalidConfig,
		},
		{
			name:     "file cache without dir",
			mutate:   func(c *Config) { c.Cache.Backend = BackendFile },
			wantCode: apperrors.ErrCodeInvalidConfig,
		},
		{
			name:     "redis cache without addr",
			mutate:   func(c *Config) { c.Cache.Backend = BackendRedis },
			wantCode: apperrors.ErrCodeInvalidConfig,
		},
		{
			name:     "unknown history backend",
			mutate:   func(c *Config) { c.History.Backend = "sqlite" },
			wantCode: apperrors.ErrCodeInvalidConfig,
		},
		{
			name:     "jsonl history without path",
			mutate:   func(c *Config) { c.History.Backend = BackendJSONL },
			wantCode: apperrors.ErrCodeInvalidConfig,
		},
		{
			name:     "mongo history without uri",
			mutate:   func(c *Config) { c.History.Backend = BackendMongo },
			wantCode: apperrors.ErrCodeInvalidConfig,
		},
		{
			name:     "unknown diagram format",
			mutate:   func(c *Config) { c.Output.Format = "tiff" },
			wantCode: apperrors.ErrCodeInvalidFormat,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !apperrors.Is(err, tt.wantCode) {
				t.Errorf("Validate() error = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestDurationUnmarshalText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("90s")); err != nil {
		t.Fatalf("UnmarshalText() error = %v", err)
	}
	if d.Std() != 90*time.Second {
		t.Errorf("Std() = %v, want 90s", d.Std())
	}
	if err := d.UnmarshalText([]byte("soon")); err == nil {
		t.Error("UnmarshalText(soon) succeeded, want error")
	}
}
