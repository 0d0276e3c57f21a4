package scorers

import (
	"fmt"

	"github.com/meridianlabs/meridian/internal/modules/features"
)

// MomentumScorer scores multi-window price change and cross-window
// trend agreement.
type MomentumScorer struct {
	// Windows are the trailing return windows to read from the
	// vector, shortest first.
	Windows []int
}

func NewMomentumScorer(windows []int) *MomentumScorer {
	return &MomentumScorer{Windows: windows}
}

// Calculate blends per-window return scores (70% total, longer
// windows weighted heavier) with a trend-agreement signal (20%) and
// the stochastic %K position (10%).
func (ms *MomentumScorer) Calculate(vec features.Vector) SubScore {
	components := make(map[string]float64, len(ms.Windows)+2)

	var returnTotal, weightTotal float64
	var positive, negative int
	for i, window := range ms.Windows {
		name := fmt.Sprintf("return_%d", window)
		score := 50.0
		if r, ok := vec.Value(name); ok {
			// Longer windows move less per bar; scale inversely.
			score = centered(r, 400/float64(window)*5)
			if r > 0 {
				positive++
			} else if r < 0 {
				negative++
			}
		}
		weight := float64(i + 1)
		returnTotal += score * weight
		weightTotal += weight
		components[name] = round2(score)
	}
	returnScore := 50.0
	if weightTotal > 0 {
		returnScore = returnTotal / weightTotal
	}

	agreement := agreementScore(positive, negative, len(ms.Windows))
	stoch := stochScore(vec)

	total := returnScore*0.70 + agreement*0.20 + stoch*0.10
	components["agreement"] = round2(agreement)
	components["stochastic"] = round2(stoch)

	return SubScore{Score: round2(total), Components: components}
}

// agreementScore rewards all windows trending the same way.
func agreementScore(positive, negative, windows int) float64 {
	switch {
	case windows == 0:
		return 50
	case positive == windows:
		return 100
	case negative == windows:
		return 0
	case positive > negative:
		return 65
	case negative > positive:
		return 35
	default:
		return 50
	}
}

func stochScore(vec features.Vector) float64 {
	k, ok := vec.Value("stoch_k")
	if !ok {
		return 50
	}
	return clamp100(k)
}
