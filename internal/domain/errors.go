package domain

import "errors"

// Sentinel errors for the engine's failure taxonomy.
//
// Computation-layer errors (indicators, features, scoring, risk) are
// returned to the caller and never cross a symbol's strategy boundary:
// one symbol failing must not affect evaluation of any other symbol.
var (
	// ErrInvalidInput marks a structurally invalid series (empty,
	// non-monotonic timestamps, non-positive prices). Fatal to the
	// specific call, never to the process.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientHistory is returned when a series is shorter than
	// the longest warm-up window required by the active configuration.
	ErrInsufficientHistory = errors.New("insufficient history")

	// ErrModelUnavailable is returned by the predictive model when no
	// artifact is loaded (or inference timed out). Callers degrade to
	// indicator-only scoring instead of failing.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrStaleTick marks a tick older than the last processed tick for
	// its symbol. Ignored and logged, never propagated process-wide.
	ErrStaleTick = errors.New("stale tick")

	// ErrStructuralConfig marks invalid configuration (weights not
	// summing to one, negative percentages, unknown profile). Fatal at
	// startup - configuration must never silently default.
	ErrStructuralConfig = errors.New("structural config error")
)
