// Package scoring blends indicator sub-scores, the optional model
// signal and the risk assessment into one 0..100 composite score with
// a discrete recommendation.
package scoring

import (
	"fmt"
	"math"

	"github.com/meridianlabs/meridian/internal/domain"
)

// Weights controls the blend of sub-scores into the composite. They
// must be non-negative and sum to 1. The model weight is dropped and
// the rest renormalized when scoring runs degraded.
type Weights struct {
	Technical float64 `yaml:"technical"`
	Momentum  float64 `yaml:"momentum"`
	Sentiment float64 `yaml:"sentiment"`
	Model     float64 `yaml:"model"`
}

// Thresholds is the score-to-recommendation table: upper bounds of
// the strong_sell, sell, hold and buy buckets. Scores at or above the
// last bound read strong_buy.
type Thresholds struct {
	StrongSell float64 `yaml:"strong_sell"`
	Sell       float64 `yaml:"sell"`
	Hold       float64 `yaml:"hold"`
	Buy        float64 `yaml:"buy"`
}

// Config parameterizes the scorer.
type Config struct {
	Weights    Weights    `yaml:"weights"`
	Thresholds Thresholds `yaml:"thresholds"`

	// NeutralBand is the half-width around 50 that always reads hold,
	// whatever the threshold table says. Avoids flapping on noise.
	NeutralBand float64 `yaml:"neutral_band"`

	// RiskPenalty scales how strongly the risk score compresses the
	// blended score toward 50. At 0.5 a maximum-risk symbol keeps
	// half its distance from neutral.
	RiskPenalty float64 `yaml:"risk_penalty"`

	// ReturnWindows are handed to the momentum sub-scorer and must
	// match the feature configuration.
	ReturnWindows []int `yaml:"return_windows"`
}

// DefaultConfig mirrors the standard production blend.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Technical: 0.45,
			Momentum:  0.20,
			Sentiment: 0.15,
			Model:     0.20,
		},
		Thresholds: Thresholds{
			StrongSell: 20,
			Sell:       40,
			Hold:       60,
			Buy:        80,
		},
		NeutralBand:   3,
		RiskPenalty:   0.5,
		ReturnWindows: []int{1, 5, 20},
	}
}

// Validate rejects structurally invalid configuration.
func (c Config) Validate() error {
	w := c.Weights
	for _, v := range []float64{w.Technical, w.Momentum, w.Sentiment, w.Model} {
		if v < 0 {
			return fmt.Errorf("%w: negative scoring weight", domain.ErrStructuralConfig)
		}
	}
	sum := w.Technical + w.Momentum + w.Sentiment + w.Model
	if math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("%w: scoring weights sum to %.4f, want 1", domain.ErrStructuralConfig, sum)
	}
	if w.Technical+w.Momentum+w.Sentiment <= 0 {
		return fmt.Errorf("%w: indicator weights must not all be zero", domain.ErrStructuralConfig)
	}
	t := c.Thresholds
	if !(t.StrongSell < t.Sell && t.Sell < t.Hold && t.Hold < t.Buy) {
		return fmt.Errorf("%w: recommendation thresholds must ascend", domain.ErrStructuralConfig)
	}
	if c.NeutralBand < 0 || c.NeutralBand > 25 {
		return fmt.Errorf("%w: neutral band must be in [0,25]", domain.ErrStructuralConfig)
	}
	if c.RiskPenalty < 0 || c.RiskPenalty > 1 {
		return fmt.Errorf("%w: risk penalty must be in [0,1]", domain.ErrStructuralConfig)
	}
	if len(c.ReturnWindows) == 0 {
		return fmt.Errorf("%w: scorer needs at least one return window", domain.ErrStructuralConfig)
	}
	return nil
}

// recommend applies the threshold table with the neutral band.
func (c Config) recommend(score float64) domain.Recommendation {
	if math.Abs(score-50) <= c.NeutralBand {
		return domain.Hold
	}
	t := c.Thresholds
	switch {
	case score < t.StrongSell:
		return domain.StrongSell
	case score < t.Sell:
		return domain.Sell
	case score < t.Hold:
		return domain.Hold
	case score < t.Buy:
		return domain.Buy
	default:
		return domain.StrongBuy
	}
}
