package cache

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation.
// This matters when several searches share one Redis instance: verdicts for
// different datasets or parameter files must not collide even if their graph
// hashes do.
//
// Example usage:
//
//	// Keys scoped to one dataset
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "horse-graph:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// EvalKey generates a prefixed key for a parsed oracle verdict.
func (k *ScopedKeyer) EvalKey(graphHash string, opts EvalKeyOpts) string {
	return k.prefix + k.inner.EvalKey(graphHash, opts)
}

// ArtifactKey generates a prefixed key for a rendered diagram.
func (k *ScopedKeyer) ArtifactKey(graphHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(graphHash, opts)
}
