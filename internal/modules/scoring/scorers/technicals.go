package scorers

import (
	"math"

	"github.com/meridianlabs/meridian/internal/modules/features"
)

// TechnicalsScorer scores trend alignment, oscillator position and
// band position from a feature vector.
type TechnicalsScorer struct{}

func NewTechnicalsScorer() *TechnicalsScorer {
	return &TechnicalsScorer{}
}

// Calculate blends:
// - trend (40%): price distance above/below its moving-average stack
// - oscillator (25%): RSI position, rewarding healthy strength
// - bands (20%): Bollinger position, rewarding upper-middle prints
// - convergence (15%): MACD histogram sign
// Missing features read as neutral 50.
func (ts *TechnicalsScorer) Calculate(vec features.Vector) SubScore {
	trend := trendScore(vec)
	oscillator := rsiScore(vec)
	bands := bollScore(vec)
	convergence := macdScore(vec)

	total := trend*0.40 + oscillator*0.25 + bands*0.20 + convergence*0.15
	return SubScore{
		Score: round2(total),
		Components: map[string]float64{
			"trend":       round2(trend),
			"oscillator":  round2(oscillator),
			"bands":       round2(bands),
			"convergence": round2(convergence),
		},
	}
}

// trendScore averages the price-to-average ratios across the stack.
// A ratio of 1.05 (price 5% above its average) saturates the signal.
func trendScore(vec features.Vector) float64 {
	var sum float64
	var count int
	for _, name := range vec.Names() {
		if !isRatioFeature(name) {
			continue
		}
		ratio, _ := vec.Value(name)
		sum += centered(ratio-1, 1000)
		count++
	}
	if count == 0 {
		return 50
	}
	return sum / float64(count)
}

func isRatioFeature(name string) bool {
	return len(name) > 6 && (name[:4] == "sma_" || name[:4] == "ema_") &&
		name[len(name)-6:] == "_ratio"
}

// rsiScore peaks at RSI 60 (healthy uptrend strength) and decays
// toward both the oversold and overbought extremes.
func rsiScore(vec features.Vector) float64 {
	rsi, ok := firstByPrefix(vec, "rsi_")
	if !ok {
		return 50
	}
	return clamp100(100 - math.Abs(rsi-60)*2.5)
}

// bollScore favors prints in the upper middle of the band without
// rewarding a full overbought pin at the upper band.
func bollScore(vec features.Vector) float64 {
	pos, ok := vec.Value("boll_position")
	if !ok {
		return 50
	}
	return clamp100(100 - math.Abs(pos-0.6)*180)
}

func macdScore(vec features.Vector) float64 {
	hist, ok := vec.Value("macd_hist")
	if !ok {
		return 50
	}
	switch {
	case hist > 0:
		return 70
	case hist < 0:
		return 30
	default:
		return 50
	}
}

func firstByPrefix(vec features.Vector, prefix string) (float64, bool) {
	for _, name := range vec.Names() {
		if len(name) >= len(prefix) && name[:len(prefix)] == prefix {
			return vec.Value(name)
		}
	}
	return 0, false
}
