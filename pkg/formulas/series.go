// Package formulas provides deterministic technical-indicator and
// statistics primitives over ordered price/volume series.
//
// Aligned-series functions return one value per input bar. Indices
// before an indicator's warm-up window hold NaN, the explicit
// "undefined" sentinel; Defined reports whether a value is usable.
// All functions are pure: identical input produces identical output.
package formulas

import "math"

// Undefined is the sentinel for indicator values before the warm-up
// window is satisfied, and for divisions by zero (zero volume,
// collapsed bands).
var Undefined = math.NaN()

// Defined reports whether an indicator value is usable.
func Defined(v float64) bool {
	return !math.IsNaN(v)
}

// undefinedPrefix returns a slice of n values with the first warmup
// entries set to the undefined sentinel. Used by indicator wrappers to
// mask the leading zeros go-talib emits during its lookback period.
func undefinedPrefix(values []float64, warmup int) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	if warmup > len(out) {
		warmup = len(out)
	}
	for i := 0; i < warmup; i++ {
		out[i] = Undefined
	}
	return out
}

func isNaN(v float64) bool {
	return math.IsNaN(v)
}
