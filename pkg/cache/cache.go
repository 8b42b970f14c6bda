// Package cache provides caching for oracle verdicts and rendered diagrams.
//
// A graph search re-visits the same topology through many insertion orders,
// and a single oracle run costs seconds. Caching parsed verdicts by graph
// hash turns those repeats into lookups, and lets interrupted searches resume
// without re-running the oracle.
//
// Two backends are provided: FileCache for single-host runs and RedisCache
// for sharing verdicts across hosts. NullCache disables caching entirely.
package cache

import (
	"context"
	"time"
)

// Cache is the storage interface shared by all backends.
// Implementations must be safe for concurrent use.
//
// Get reports a miss as (nil, false, nil); errors are reserved for backend
// failures, so callers can always fall through to recomputing.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Keyer generates cache keys for the two cached value kinds: parsed oracle
// verdicts and rendered diagram artifacts.
type Keyer interface {
	// EvalKey generates a key for a parsed oracle verdict.
	EvalKey(graphHash string, opts EvalKeyOpts) string

	// ArtifactKey generates a key for a rendered diagram.
	ArtifactKey(graphHash string, opts ArtifactKeyOpts) string
}

// EvalKeyOpts captures everything besides the graph itself that changes an
// oracle verdict. Runs against different binaries or parameter files must
// never share an entry.
type EvalKeyOpts struct {
	Binary     string `json:"binary"`
	ParamsHash string `json:"params_hash"`
}

// ArtifactKeyOpts captures the render settings that change a diagram.
type ArtifactKeyOpts struct {
	Format string  `json:"format"`
	Scale  float64 `json:"scale,omitempty"`
}

// DefaultKeyer is the standard Keyer implementation.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// EvalKey generates a key for a parsed oracle verdict.
func (k *DefaultKeyer) EvalKey(graphHash string, opts EvalKeyOpts) string {
	return hashKey("eval", graphHash, opts)
}

// ArtifactKey generates a key for a rendered diagram.
func (k *DefaultKeyer) ArtifactKey(graphHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", graphHash, opts)
}

// Ensure DefaultKeyer implements Keyer.
var _ Keyer = (*DefaultKeyer)(nil)
