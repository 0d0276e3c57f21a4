// Package features assembles indicator values and derived statistics
// into fixed-shape feature vectors, one per price bar once every
// constituent indicator has warmed up.
package features

import (
	"fmt"

	"github.com/meridianlabs/meridian/internal/domain"
)

// Config fixes the indicator and derived-statistic set of a feature
// vector. Feature names and order are a function of the configuration
// only, so every vector produced from one Config has the same shape.
type Config struct {
	SMAPeriods      []int   `yaml:"sma_periods"`
	EMAPeriod       int     `yaml:"ema_period"`
	RSIPeriod       int     `yaml:"rsi_period"`
	MACDFast        int     `yaml:"macd_fast"`
	MACDSlow        int     `yaml:"macd_slow"`
	MACDSignal      int     `yaml:"macd_signal"`
	BollingerPeriod int     `yaml:"bollinger_period"`
	BollingerStdDev float64 `yaml:"bollinger_std_dev"`
	StochFastK      int     `yaml:"stoch_fast_k"`
	StochSlowK      int     `yaml:"stoch_slow_k"`
	StochSlowD      int     `yaml:"stoch_slow_d"`
	VolatilityWind  int     `yaml:"volatility_window"`
	VolumeWindow    int     `yaml:"volume_window"`
	ReturnWindows   []int   `yaml:"return_windows"`
}

// DefaultConfig returns the standard feature configuration.
func DefaultConfig() Config {
	return Config{
		SMAPeriods:      []int{5, 20},
		EMAPeriod:       12,
		RSIPeriod:       14,
		MACDFast:        12,
		MACDSlow:        26,
		MACDSignal:      9,
		BollingerPeriod: 20,
		BollingerStdDev: 2.0,
		StochFastK:      14,
		StochSlowK:      3,
		StochSlowD:      3,
		VolatilityWind:  20,
		VolumeWindow:    20,
		ReturnWindows:   []int{1, 5, 20},
	}
}

// Validate checks structural validity of the configuration.
func (c Config) Validate() error {
	if len(c.SMAPeriods) == 0 || len(c.ReturnWindows) == 0 {
		return fmt.Errorf("%w: feature config requires at least one SMA period and return window", domain.ErrStructuralConfig)
	}
	positive := []int{
		c.EMAPeriod, c.RSIPeriod, c.MACDFast, c.MACDSlow, c.MACDSignal,
		c.BollingerPeriod, c.StochFastK, c.StochSlowK, c.StochSlowD,
		c.VolatilityWind, c.VolumeWindow,
	}
	for _, p := range append(append(positive, c.SMAPeriods...), c.ReturnWindows...) {
		if p <= 0 {
			return fmt.Errorf("%w: feature config periods must be positive", domain.ErrStructuralConfig)
		}
	}
	if c.MACDSlow <= c.MACDFast {
		return fmt.Errorf("%w: MACD slow period must exceed fast period", domain.ErrStructuralConfig)
	}
	if c.BollingerStdDev <= 0 {
		return fmt.Errorf("%w: bollinger std dev multiplier must be positive", domain.ErrStructuralConfig)
	}
	return nil
}

// Warmup returns the number of leading bars required before the first
// feature vector can be produced (the longest constituent warm-up).
func (c Config) Warmup() int {
	warmup := 0
	consider := func(w int) {
		if w > warmup {
			warmup = w
		}
	}

	for _, p := range c.SMAPeriods {
		consider(p - 1)
	}
	consider(c.EMAPeriod - 1)
	consider(c.RSIPeriod)
	consider(c.MACDSlow + c.MACDSignal - 2)
	consider(c.BollingerPeriod - 1)
	consider(c.StochFastK + c.StochSlowK + c.StochSlowD - 3)
	consider(c.VolatilityWind) // window returns need window+1 bars
	consider(c.VolumeWindow - 1)
	for _, w := range c.ReturnWindows {
		consider(w)
	}
	return warmup
}

// FeatureNames returns the ordered feature names this configuration
// produces. The order is stable across calls and across builds.
func (c Config) FeatureNames() []string {
	names := make([]string, 0, 16)
	for _, w := range c.ReturnWindows {
		names = append(names, fmt.Sprintf("return_%d", w))
	}
	for _, p := range c.SMAPeriods {
		names = append(names, fmt.Sprintf("sma_%d_ratio", p))
	}
	names = append(names,
		fmt.Sprintf("ema_%d_ratio", c.EMAPeriod),
		fmt.Sprintf("rsi_%d", c.RSIPeriod),
		"macd_hist",
		"stoch_k",
		"boll_position",
		"boll_width",
		"range_compression",
		"volume_ratio",
		fmt.Sprintf("volatility_%d", c.VolatilityWind),
	)
	return names
}
