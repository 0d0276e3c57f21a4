// Package risk evaluates market, liquidity, volatility, concentration
// and event risk for a symbol, producing a 0..100 aggregate score and
// a coarse tier. All computations are pure over the supplied inputs.
package risk

import (
	"fmt"
	"math"

	"github.com/meridianlabs/meridian/internal/domain"
)

// Weights blends the five dimension scores into the aggregate. They
// must be non-negative and sum to 1.
type Weights struct {
	Market        float64 `yaml:"market"`
	Liquidity     float64 `yaml:"liquidity"`
	Volatility    float64 `yaml:"volatility"`
	Concentration float64 `yaml:"concentration"`
	Event         float64 `yaml:"event"`
}

// Config parameterizes the assessor.
type Config struct {
	Weights Weights `yaml:"weights"`

	// VolatilityWindow is the trailing return window for realized
	// volatility, in bars.
	VolatilityWindow int `yaml:"volatility_window"`

	// VaRConfidence is the confidence level for VaR/CVaR metrics.
	VaRConfidence float64 `yaml:"var_confidence"`

	// AnnualVolCeiling is the annualized volatility that maps to a
	// dimension score of 100.
	AnnualVolCeiling float64 `yaml:"annual_vol_ceiling"`
}

// DefaultConfig mirrors the standard production weighting.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Market:        0.30,
			Liquidity:     0.10,
			Volatility:    0.30,
			Concentration: 0.20,
			Event:         0.10,
		},
		VolatilityWindow: 20,
		VaRConfidence:    0.95,
		AnnualVolCeiling: 0.40,
	}
}

// Validate rejects structurally invalid configuration.
func (c Config) Validate() error {
	w := c.Weights
	for _, v := range []float64{w.Market, w.Liquidity, w.Volatility, w.Concentration, w.Event} {
		if v < 0 {
			return fmt.Errorf("%w: negative risk weight", domain.ErrStructuralConfig)
		}
	}
	sum := w.Market + w.Liquidity + w.Volatility + w.Concentration + w.Event
	if math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("%w: risk weights sum to %.4f, want 1", domain.ErrStructuralConfig, sum)
	}
	if c.VolatilityWindow <= 1 {
		return fmt.Errorf("%w: volatility window must exceed 1", domain.ErrStructuralConfig)
	}
	if c.VaRConfidence <= 0 || c.VaRConfidence >= 1 {
		return fmt.Errorf("%w: VaR confidence must be in (0,1)", domain.ErrStructuralConfig)
	}
	if c.AnnualVolCeiling <= 0 {
		return fmt.Errorf("%w: annual vol ceiling must be positive", domain.ErrStructuralConfig)
	}
	return nil
}
