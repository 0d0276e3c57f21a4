package formulas

import (
	"github.com/markcheno/go-talib"
)

// BollingerBands represents one set of volatility band values.
type BollingerBands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// BollingerPosition represents where price sits relative to the bands.
// Range: 0.0 (at lower band) to 1.0 (at upper band).
type BollingerPosition struct {
	Position float64        `json:"position"`
	Bands    BollingerBands `json:"bands"`
}

// BollingerResult holds the three aligned band series.
type BollingerResult struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// Bollinger computes volatility bands (SMA ± stdDev·k) aligned 1:1
// with the input, undefined for the first period-1 indices.
func Bollinger(closes []float64, period int, stdDevMultiplier float64) BollingerResult {
	if period <= 0 || len(closes) < period {
		undef := undefinedPrefix(make([]float64, len(closes)), len(closes))
		return BollingerResult{Upper: undef, Middle: undef, Lower: undef}
	}

	upper, middle, lower := talib.BBands(closes, period, stdDevMultiplier, stdDevMultiplier, talib.SMA)
	return BollingerResult{
		Upper:  undefinedPrefix(upper, period-1),
		Middle: undefinedPrefix(middle, period-1),
		Lower:  undefinedPrefix(lower, period-1),
	}
}

// LatestBollingerBands returns the current band values or nil if the
// series is too short.
func LatestBollingerBands(closes []float64, period int, stdDevMultiplier float64) *BollingerBands {
	res := Bollinger(closes, period, stdDevMultiplier)
	n := len(closes)
	if n == 0 || !Defined(res.Upper[n-1]) {
		return nil
	}
	return &BollingerBands{
		Upper:  res.Upper[n-1],
		Middle: res.Middle[n-1],
		Lower:  res.Lower[n-1],
	}
}

// LatestBollingerPosition returns where the current price sits within
// the bands: 0.0 at the lower band, 0.5 at the middle, 1.0 at the
// upper, clamped for prices outside the bands. Collapsed bands (zero
// width) report the middle.
func LatestBollingerPosition(closes []float64, period int, stdDevMultiplier float64) *BollingerPosition {
	bands := LatestBollingerBands(closes, period, stdDevMultiplier)
	if bands == nil {
		return nil
	}

	width := bands.Upper - bands.Lower
	if width == 0 {
		return &BollingerPosition{Position: 0.5, Bands: *bands}
	}

	position := (closes[len(closes)-1] - bands.Lower) / width
	if position < 0 {
		position = 0
	}
	if position > 1 {
		position = 1
	}

	return &BollingerPosition{Position: position, Bands: *bands}
}

// BandwidthCompression returns the current band width relative to its
// average over the window, a measure of price-range compression.
// Values below 1 indicate tightening bands. Nil when undefined.
func BandwidthCompression(closes []float64, period int, stdDevMultiplier float64) *float64 {
	res := Bollinger(closes, period, stdDevMultiplier)
	n := len(closes)
	if n == 0 || !Defined(res.Upper[n-1]) {
		return nil
	}

	var sum float64
	var count int
	for i := range res.Upper {
		if !Defined(res.Upper[i]) || res.Middle[i] == 0 {
			continue
		}
		sum += (res.Upper[i] - res.Lower[i]) / res.Middle[i]
		count++
	}
	if count == 0 || sum == 0 {
		return nil
	}

	avgWidth := sum / float64(count)
	currentWidth := (res.Upper[n-1] - res.Lower[n-1]) / res.Middle[n-1]
	compression := currentWidth / avgWidth
	return &compression
}
