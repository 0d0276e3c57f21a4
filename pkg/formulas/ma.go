package formulas

import (
	"github.com/markcheno/go-talib"
)

// SMA returns the simple moving average aligned 1:1 with the input,
// undefined for the first period-1 indices.
func SMA(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) < period {
		return undefinedPrefix(make([]float64, len(closes)), len(closes))
	}
	return undefinedPrefix(talib.Sma(closes, period), period-1)
}

// EMA returns the exponential moving average aligned 1:1 with the
// input, undefined for the first period-1 indices.
//
// EMA_today = Price_today*k + EMA_yesterday*(1-k), k = 2/(period+1)
func EMA(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) < period {
		return undefinedPrefix(make([]float64, len(closes)), len(closes))
	}
	return undefinedPrefix(talib.Ema(closes, period), period-1)
}

// LatestSMA returns the current SMA value or nil if undefined.
func LatestSMA(closes []float64, period int) *float64 {
	return latest(SMA(closes, period))
}

// LatestEMA returns the current EMA value, or nil for an empty
// series. With fewer than period bars there is no seedable EMA, so
// the mean of the available closes stands in; callers that need
// strict warm-up semantics read the aligned EMA series instead.
func LatestEMA(closes []float64, period int) *float64 {
	if len(closes) == 0 {
		return nil
	}
	if len(closes) < period {
		sma := Mean(closes)
		return &sma
	}
	return latest(EMA(closes, period))
}

// DistanceFromEMA returns the percentage distance of the current price
// from the period EMA, positive above, negative below. Nil when the
// EMA is undefined or zero.
func DistanceFromEMA(closes []float64, period int) *float64 {
	ema := LatestEMA(closes, period)
	if ema == nil || *ema == 0 {
		return nil
	}
	d := (closes[len(closes)-1] - *ema) / *ema
	return &d
}

// latest returns a pointer to the final defined value of a series, or
// nil when the series is empty or ends undefined.
func latest(series []float64) *float64 {
	if len(series) == 0 {
		return nil
	}
	v := series[len(series)-1]
	if !Defined(v) {
		return nil
	}
	return &v
}
