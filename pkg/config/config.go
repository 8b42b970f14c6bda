// Package config loads run configuration from TOML files.
//
// A config file collects everything one search needs: the population list,
// the oracle invocation, artifact locations, and the optional cache, history
// and status-server backends. Command line flags override individual fields
// after loading.
//
// Example:
//
//	[search]
//	populations = ["Horse", "Donkey", "Zebra", "Kiang"]
//	outgroup = "Ass"
//	threshold = 0
//
//	[oracle]
//	binary = "qpGraph"
//	par_file = "data/merged.par"
//	timeout = "30m"
//
//	[output]
//	prefix = "out/equus"
//	format = "svg"
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	apperrors "github.com/kmoselund/qpermute/pkg/errors"
)

// Duration wraps time.Duration so TOML files can spell timeouts as "30m".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full run configuration.
type Config struct {
	Search  Search  `toml:"search"`
	Oracle  Oracle  `toml:"oracle"`
	Output  Output  `toml:"output"`
	Cache   Cache   `toml:"cache"`
	History History `toml:"history"`
	Status  Status  `toml:"status"`
}

// Search configures the topology search itself.
type Search struct {
	Populations []string `toml:"populations"`
	Outgroup    string   `toml:"outgroup"`
	Threshold   int      `toml:"threshold"`
	Exhaustive  bool     `toml:"exhaustive"`
	Workers     int      `toml:"workers"`
	MaxOrders   int      `toml:"max_orders"`
	RootLabel   string   `toml:"root_label"`
}

// Oracle configures the external fitting program.
type Oracle struct {
	Binary  string   `toml:"binary"`
	ParFile string   `toml:"par_file"`
	Timeout Duration `toml:"timeout"`
}

// Output configures artifact and diagram writing.
type Output struct {
	// Prefix is the artifact path prefix (.graph/.dot/.log/.json files).
	Prefix string `toml:"prefix"`
	// DiagramPrefix defaults to Prefix.
	DiagramPrefix string `toml:"diagram_prefix"`
	// Format is the diagram encoding: svg, png or dot. Empty disables
	// diagram rendering entirely.
	Format string `toml:"format"`
	// DiagramOffset loosens the completeness bar for rendering.
	DiagramOffset int `toml:"diagram_offset"`
}

// Cache selects the verdict cache backend.
type Cache struct {
	// Backend is one of "none", "file" or "redis". Empty means none.
	Backend  string `toml:"backend"`
	Dir      string `toml:"dir"`
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	// Scope isolates cache keys between datasets sharing one backend.
	Scope string `toml:"scope"`
}

// History selects the evaluation history backend.
type History struct {
	// Backend is one of "none", "jsonl" or "mongo". Empty means none.
	Backend  string `toml:"backend"`
	Path     string `toml:"path"`
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// Status configures the optional status HTTP server.
type Status struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

// Default returns a config with the zero-dependency defaults: no cache, no
// history, no status server.
func Default() *Config {
	return &Config{
		Oracle: Oracle{Binary: "qpGraph"},
		Cache:  Cache{Backend: BackendNone},
		History: History{
			Backend:  BackendNone,
			Database: "qpermute",
		},
	}
}

// Backend names accepted by [Cache] and [History].
const (
	BackendNone  = "none"
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendJSONL = "jsonl"
	BackendMongo = "mongo"
)

// Load reads and validates a TOML config file, applying defaults to fields
// the file leaves unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeFileNotFound, err, "reading config %s", path)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "parsing config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the enum fields early so a bad config fails before any
// work starts. Field-level requirements are enforced by the component
// Options the config feeds.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "", BackendNone, BackendFile, BackendRedis:
	default:
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == BackendFile && c.Cache.Dir == "" {
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "cache backend %q requires dir", BackendFile)
	}
	if c.Cache.Backend == BackendRedis && c.Cache.Addr == "" {
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "cache backend %q requires addr", BackendRedis)
	}

	switch c.History.Backend {
	case "", BackendNone, BackendJSONL, BackendMongo:
	default:
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "unknown history backend %q", c.History.Backend)
	}
	if c.History.Backend == BackendJSONL && c.History.Path == "" {
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "history backend %q requires path", BackendJSONL)
	}
	if c.History.Backend == BackendMongo && c.History.URI == "" {
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "history backend %q requires uri", BackendMongo)
	}

	switch c.Output.Format {
	case "", "svg", "png", "dot":
	default:
		return apperrors.New(apperrors.ErrCodeInvalidFormat, "unknown diagram format %q", c.Output.Format)
	}

	return nil
}
