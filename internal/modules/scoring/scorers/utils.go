// Package scorers holds the indicator-derived sub-scores blended by
// the composite scorer. Every sub-score is normalized to 0..100 and
// carries a component map for auditability.
package scorers

import "math"

// SubScore is the result of one sub-scorer.
type SubScore struct {
	Score      float64            `json:"score"`      // 0..100
	Components map[string]float64 `json:"components"` // per-signal 0..100
}

func clamp100(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// centered maps a signed signal onto 0..100 around a neutral 50.
func centered(signal, scale float64) float64 {
	return clamp100(50 + signal*scale)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
