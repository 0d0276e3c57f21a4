package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the annualization factor for daily series.
const TradingDaysPerYear = 252

// Mean calculates the arithmetic mean of a slice of float64 values.
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation.
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the sample variance.
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.Variance(data, nil)
}

// Skewness calculates the sample skewness. Zero for degenerate input.
func Skewness(data []float64) float64 {
	if len(data) < 3 || StdDev(data) == 0 {
		return 0
	}
	return stat.Skew(data, nil)
}

// Returns converts prices to simple percentage returns:
// Returns[i] = (Price[i+1] - Price[i]) / Price[i]
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}
	return returns
}

// AnnualizedVolatility calculates annualized volatility from daily
// returns: stddev of daily returns x sqrt(252).
func AnnualizedVolatility(dailyReturns []float64) float64 {
	if len(dailyReturns) == 0 {
		return 0
	}
	return StdDev(dailyReturns) * math.Sqrt(TradingDaysPerYear)
}

// RollingVolatility returns the stddev of the last window returns,
// nil when the series is too short.
func RollingVolatility(returns []float64, window int) *float64 {
	if window <= 1 || len(returns) < window {
		return nil
	}
	v := StdDev(returns[len(returns)-window:])
	return &v
}

// DownsideDeviation is the standard deviation of negative returns
// only. Zero when there are no negative returns.
func DownsideDeviation(returns []float64) float64 {
	var negative []float64
	for _, r := range returns {
		if r < 0 {
			negative = append(negative, r)
		}
	}
	return StdDev(negative)
}

// Correlation calculates the Pearson correlation coefficient.
func Correlation(x, y []float64) float64 {
	if len(x) == 0 || len(x) != len(y) {
		return 0
	}
	return stat.Correlation(x, y, nil)
}

// Covariance calculates the covariance between two datasets.
func Covariance(x, y []float64) float64 {
	if len(x) == 0 || len(x) != len(y) {
		return 0
	}
	return stat.Covariance(x, y, nil)
}

// Beta estimates the beta of asset returns against index returns.
// Nil when the index has no variance or the series do not align.
func Beta(assetReturns, indexReturns []float64) *float64 {
	if len(assetReturns) < 2 || len(assetReturns) != len(indexReturns) {
		return nil
	}
	indexVar := Variance(indexReturns)
	if indexVar == 0 {
		return nil
	}
	b := Covariance(assetReturns, indexReturns) / indexVar
	return &b
}
