package scorers

import (
	"github.com/meridianlabs/meridian/internal/modules/features"
)

// SentimentScorer is the volume-and-volatility proxy for market
// sentiment: participation, volume/price agreement and the volatility
// regime.
type SentimentScorer struct{}

func NewSentimentScorer() *SentimentScorer {
	return &SentimentScorer{}
}

// Calculate blends:
// - participation (40%): volume relative to its trailing average
// - agreement (30%): whether volume confirms the price move
// - regime (30%): calm return volatility scores high, turbulence low
func (ss *SentimentScorer) Calculate(vec features.Vector) SubScore {
	participation := participationScore(vec)
	agreement := volumePriceAgreement(vec)
	regime := regimeScore(vec)

	total := participation*0.40 + agreement*0.30 + regime*0.30
	return SubScore{
		Score: round2(total),
		Components: map[string]float64{
			"participation": round2(participation),
			"agreement":     round2(agreement),
			"regime":        round2(regime),
		},
	}
}

// participationScore treats average volume as neutral and a doubling
// as full participation.
func participationScore(vec features.Vector) float64 {
	ratio, ok := vec.Value("volume_ratio")
	if !ok {
		return 50
	}
	return clamp100(ratio * 50)
}

// volumePriceAgreement reads expanding volume behind a move as
// conviction and expanding volume against it as distribution.
func volumePriceAgreement(vec features.Vector) float64 {
	ratio, okVolume := vec.Value("volume_ratio")
	ret, okReturn := vec.Value("return_1")
	if !okVolume || !okReturn {
		return 50
	}
	switch {
	case ratio > 1 && ret > 0:
		return 80
	case ratio > 1 && ret < 0:
		return 20
	default:
		return 50
	}
}

// regimeScore maps daily return volatility onto 0..100, with 2%
// reading as neutral.
func regimeScore(vec features.Vector) float64 {
	vol, ok := firstByPrefix(vec, "volatility_")
	if !ok {
		return 50
	}
	return clamp100(100 - vol*2500)
}
