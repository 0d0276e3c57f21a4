package formulas

import (
	"math"
	"sort"
)

// HistoricalVaR calculates Value at Risk via historical simulation:
// the return at the (1-confidence) percentile, negative for losses.
func HistoricalVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0.0
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	idx := int(math.Floor(float64(len(sorted)) * (1.0 - confidence)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// CVaR calculates Conditional Value at Risk (expected shortfall) at
// the given confidence level: the mean of the worst (1-confidence)
// share of returns.
func CVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0.0
	}
	if len(returns) == 1 {
		return returns[0]
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	tailCount := int(math.Ceil(float64(len(sorted)) * (1.0 - confidence)))
	if tailCount == 0 {
		tailCount = 1
	}
	if tailCount > len(sorted) {
		tailCount = len(sorted)
	}

	sum := 0.0
	for _, r := range sorted[:tailCount] {
		sum += r
	}
	return sum / float64(tailCount)
}

// MaxDrawdown calculates the maximum peak-to-trough decline of a price
// series as a negative decimal (-0.25 = 25% drawdown).
func MaxDrawdown(prices []float64) float64 {
	if len(prices) < 2 {
		return 0.0
	}

	peak := prices[0]
	maxDD := 0.0
	for _, p := range prices {
		if p > peak {
			peak = p
		}
		if peak > 0 {
			dd := (p - peak) / peak
			if dd < maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// EWMAVolatility forecasts annualized volatility with an exponentially
// weighted moving average of squared returns (RiskMetrics lambda 0.94).
func EWMAVolatility(returns []float64, lambda float64) float64 {
	if len(returns) == 0 {
		return 0.0
	}
	if lambda <= 0 || lambda >= 1 {
		lambda = 0.94
	}

	ewmaVar := Variance(returns)
	for _, r := range returns {
		ewmaVar = lambda*ewmaVar + (1-lambda)*r*r
	}
	return math.Sqrt(ewmaVar * TradingDaysPerYear)
}
