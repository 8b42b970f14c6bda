package oracle

import (
	"context"
	"encoding/json"
	"io"

	"github.com/charmbracelet/log"

	"github.com/kmoselund/qpermute/pkg/cache"
	"github.com/kmoselund/qpermute/pkg/observability"
)

// Cached wraps an Oracle with verdict caching keyed by graph hash. Cache
// failures degrade to evaluating through the inner oracle; they are logged
// but never surfaced, since a verdict can always be recomputed.
type Cached struct {
	inner   Oracle
	store   cache.Cache
	keyer   cache.Keyer
	keyOpts cache.EvalKeyOpts
	logger  *log.Logger
}

// NewCached creates a caching decorator around inner. A nil keyer falls back
// to the default keyer and a nil logger discards.
func NewCached(inner Oracle, store cache.Cache, keyer cache.Keyer, keyOpts cache.EvalKeyOpts, logger *log.Logger) *Cached {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Cached{
		inner:   inner,
		store:   store,
		keyer:   keyer,
		keyOpts: keyOpts,
		logger:  logger,
	}
}

// Evaluate returns the cached verdict for the graph or evaluates and caches.
func (c *Cached) Evaluate(ctx context.Context, graph []byte, hash string) (*Result, error) {
	key := c.keyer.EvalKey(hash, c.keyOpts)

	if data, hit, err := c.store.Get(ctx, key); err != nil {
		c.logger.Warn("verdict cache read failed", "hash", hash, "err", err)
	} else if hit {
		var res Result
		if jerr := json.Unmarshal(data, &res); jerr == nil {
			observability.Cache().OnCacheHit(ctx, "eval")
			res.CacheHit = true
			return &res, nil
		}
		c.logger.Warn("discarding corrupt verdict cache entry", "hash", hash)
		_ = c.store.Delete(ctx, key)
	}
	observability.Cache().OnCacheMiss(ctx, "eval")

	res, err := c.inner.Evaluate(ctx, graph, hash)
	if err != nil {
		return nil, err
	}

	if data, jerr := json.Marshal(res); jerr == nil {
		// Verdicts are deterministic for a fixed binary and parameter file,
		// so entries never expire.
		if serr := c.store.Set(ctx, key, data, 0); serr != nil {
			c.logger.Warn("verdict cache write failed", "hash", hash, "err", serr)
		} else {
			observability.Cache().OnCacheSet(ctx, "eval", len(data))
		}
	}
	return res, nil
}

// Ensure Cached implements Oracle.
var _ Oracle = (*Cached)(nil)
