package formulas

import (
	"github.com/markcheno/go-talib"
)

// RSI returns the relative strength index aligned 1:1 with the input,
// undefined for the first period indices.
func RSI(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) <= period {
		return undefinedPrefix(make([]float64, len(closes)), len(closes))
	}
	return undefinedPrefix(talib.Rsi(closes, period), period)
}

// LatestRSI returns the current RSI value or nil if undefined.
func LatestRSI(closes []float64, period int) *float64 {
	return latest(RSI(closes, period))
}

// MACDResult holds the three aligned series of the convergence-
// divergence oscillator pair.
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD computes the moving average convergence divergence with the
// given fast/slow/signal periods. All three series are aligned 1:1
// with the input and undefined until the slow EMA plus the signal EMA
// have warmed up.
func MACD(closes []float64, fast, slow, signal int) MACDResult {
	warmup := slow + signal - 2
	if fast <= 0 || slow <= fast || signal <= 0 || len(closes) <= warmup {
		undef := undefinedPrefix(make([]float64, len(closes)), len(closes))
		return MACDResult{MACD: undef, Signal: undef, Histogram: undef}
	}

	macd, sig, hist := talib.Macd(closes, fast, slow, signal)
	return MACDResult{
		MACD:      undefinedPrefix(macd, warmup),
		Signal:    undefinedPrefix(sig, warmup),
		Histogram: undefinedPrefix(hist, warmup),
	}
}

// StochResult holds the aligned %K and %D series of the stochastic
// oscillator.
type StochResult struct {
	K []float64
	D []float64
}

// Stochastic computes the slow stochastic oscillator (%K smoothed by
// slowK, %D an SMA of %K over slowD). SMA smoothing throughout.
func Stochastic(highs, lows, closes []float64, fastK, slowK, slowD int) StochResult {
	warmup := fastK + slowK + slowD - 3
	if fastK <= 0 || slowK <= 0 || slowD <= 0 || len(closes) <= warmup {
		undef := undefinedPrefix(make([]float64, len(closes)), len(closes))
		return StochResult{K: undef, D: undef}
	}

	k, d := talib.Stoch(highs, lows, closes, fastK, slowK, talib.SMA, slowD, talib.SMA)
	return StochResult{
		K: undefinedPrefix(k, warmup),
		D: undefinedPrefix(d, warmup),
	}
}
