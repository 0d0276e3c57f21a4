package risk

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/meridianlabs/meridian/internal/domain"
	"github.com/meridianlabs/meridian/internal/modules/features"
	"github.com/meridianlabs/meridian/pkg/formulas"
)

const neutralScore = 50.0

// Assessor computes multi-dimensional risk assessments. Stateless and
// safe for concurrent use.
type Assessor struct {
	cfg    Config
	logger zerolog.Logger
}

// NewAssessor validates the configuration and returns an Assessor.
func NewAssessor(cfg Config, logger zerolog.Logger) (*Assessor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Assessor{
		cfg:    cfg,
		logger: logger.With().Str("service", "risk").Logger(),
	}, nil
}

// Assess evaluates every risk dimension independently and blends them
// into the aggregate score. Dimensions whose inputs are missing read
// as neutral 50; only a structurally empty series is an error.
func (a *Assessor) Assess(bars []domain.PriceBar, vec features.Vector, mctx domain.MarketContext) (domain.RiskAssessment, error) {
	if len(bars) == 0 {
		return domain.RiskAssessment{}, fmt.Errorf("%w: empty price series", domain.ErrInvalidInput)
	}
	if err := domain.ValidateBars(bars); err != nil {
		return domain.RiskAssessment{}, err
	}

	closes := domain.Closes(bars)
	returns := formulas.Returns(closes)

	metrics, beta := a.computeMetrics(closes, returns, mctx)

	dimensions := map[string]float64{
		domain.RiskDimMarket:        marketScore(beta),
		domain.RiskDimLiquidity:     a.liquidityScore(bars, vec),
		domain.RiskDimVolatility:    a.volatilityScore(returns),
		domain.RiskDimConcentration: concentrationScore(mctx.PortfolioShare),
		domain.RiskDimEvent:         eventScore(mctx.EventWindow),
	}

	w := a.cfg.Weights
	score := dimensions[domain.RiskDimMarket]*w.Market +
		dimensions[domain.RiskDimLiquidity]*w.Liquidity +
		dimensions[domain.RiskDimVolatility]*w.Volatility +
		dimensions[domain.RiskDimConcentration]*w.Concentration +
		dimensions[domain.RiskDimEvent]*w.Event

	assessment := domain.RiskAssessment{
		Score:      clamp(score),
		Tier:       domain.TierForScore(clamp(score)),
		Dimensions: dimensions,
		Metrics:    metrics,
	}
	a.logger.Debug().
		Float64("score", assessment.Score).
		Str("tier", string(assessment.Tier)).
		Msg("risk assessed")
	return assessment, nil
}

func (a *Assessor) computeMetrics(closes, returns []float64, mctx domain.MarketContext) (domain.RiskMetrics, *float64) {
	metrics := domain.RiskMetrics{
		AnnualizedVolatility: formulas.AnnualizedVolatility(tail(returns, a.cfg.VolatilityWindow)),
		VaR95:                formulas.HistoricalVaR(returns, a.cfg.VaRConfidence),
		CVaR95:               formulas.CVaR(returns, a.cfg.VaRConfidence),
		MaxDrawdown:          formulas.MaxDrawdown(closes),
	}

	var beta *float64
	if len(mctx.IndexCloses) > 1 {
		indexReturns := formulas.Returns(mctx.IndexCloses)
		// Align to the shorter tail so both series cover the same bars.
		n := len(returns)
		if len(indexReturns) < n {
			n = len(indexReturns)
		}
		beta = formulas.Beta(tail(returns, n), tail(indexReturns, n))
		metrics.Beta = beta
	}
	return metrics, beta
}

// marketScore maps systematic exposure to 0..100. Beta 1 reads as
// neutral; no index series degrades to neutral.
func marketScore(beta *float64) float64 {
	if beta == nil {
		return neutralScore
	}
	return clamp(math.Abs(*beta) * neutralScore)
}

// liquidityScore blends an average-dollar-volume bucket with a
// bid-ask proxy from the high-low range. Thin books and wide ranges
// score high.
func (a *Assessor) liquidityScore(bars []domain.PriceBar, vec features.Vector) float64 {
	window := a.cfg.VolatilityWindow
	recent := bars
	if len(bars) > window {
		recent = bars[len(bars)-window:]
	}

	var dollarVolume, spreadProxy float64
	for _, bar := range recent {
		dollarVolume += bar.Close * bar.Volume
		spreadProxy += (bar.High - bar.Low) / bar.Close
	}
	dollarVolume /= float64(len(recent))
	spreadProxy /= float64(len(recent))

	volumeScore := dollarVolumeBucket(dollarVolume)
	spreadScore := clamp(spreadProxy * 2000) // 1% average range reads as 20

	score := 0.6*volumeScore + 0.4*spreadScore

	// A collapsing volume-to-average ratio signals a drying book.
	if ratio, ok := vec.Value("volume_ratio"); ok && ratio < 0.5 {
		score = clamp(score + 10)
	}
	return score
}

func dollarVolumeBucket(avg float64) float64 {
	switch {
	case avg >= 50_000_000:
		return 10
	case avg >= 10_000_000:
		return 30
	case avg >= 1_000_000:
		return 50
	case avg >= 100_000:
		return 70
	default:
		return 90
	}
}

// volatilityScore maps realized annualized volatility linearly onto
// 0..100 against the configured ceiling. Too few returns degrade to
// neutral.
func (a *Assessor) volatilityScore(returns []float64) float64 {
	window := tail(returns, a.cfg.VolatilityWindow)
	if len(window) < 2 {
		return neutralScore
	}
	annual := formulas.AnnualizedVolatility(window)
	return clamp(annual / a.cfg.AnnualVolCeiling * 100)
}

// concentrationScore maps the position's portfolio share onto 0..100.
// Nil share assumes full allocation.
func concentrationScore(share *float64) float64 {
	allocation := 1.0
	if share != nil {
		allocation = *share
	}
	if allocation < 0 {
		allocation = 0
	}
	// A quarter of the portfolio in one name saturates the dimension.
	return clamp(allocation / 0.25 * 100)
}

func eventScore(eventWindow bool) float64 {
	if eventWindow {
		return 90
	}
	return neutralScore
}

// PositionSize returns the quantity that risks riskPerTrade of the
// account between entry and stop. Zero when the stop is not below the
// entry or inputs are non-positive.
func PositionSize(accountValue, riskPerTrade, entryPrice, stopPrice float64) float64 {
	if accountValue <= 0 || riskPerTrade <= 0 || entryPrice <= 0 {
		return 0
	}
	perShare := entryPrice - stopPrice
	if perShare <= 0 {
		return 0
	}
	return accountValue * riskPerTrade / perShare
}

func tail(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
