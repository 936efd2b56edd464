package batch

import "time"

// Default generation policy. The initial compromise starts above zero
// so the first candidate window is already generous; batched selection
// tolerates more rating variance in exchange for a richer similarity
// pool.
const (
	DefaultMinBatchFactor    = 2
	DefaultInitialCompromise = 2
	DefaultMaxCompromise     = 4
	DefaultCacheSize         = 25
	DefaultComputeTimeout    = 10 * time.Second
)

// Params tunes batch generation and similarity cache computation.
type Params struct {
	// MinBatchFactor times the target count is the candidate pool size
	// below which the search window keeps widening.
	MinBatchFactor int

	// InitialCompromise and MaxCompromise bound the widening loop.
	InitialCompromise int
	MaxCompromise     int

	// CacheSize is the number of candidate IDs computed into a
	// similarity cache entry.
	CacheSize int

	// ComputeTimeout bounds one similarity cache computation.
	ComputeTimeout time.Duration
}

// DefaultBatchParams returns the generation policy used in production.
func DefaultBatchParams() Params {
	return Params{
		MinBatchFactor:    DefaultMinBatchFactor,
		InitialCompromise: DefaultInitialCompromise,
		MaxCompromise:     DefaultMaxCompromise,
		CacheSize:         DefaultCacheSize,
		ComputeTimeout:    DefaultComputeTimeout,
	}
}
