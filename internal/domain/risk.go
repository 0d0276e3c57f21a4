package domain

// RiskTier is the coarse classification of a risk score.
type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

// Risk dimension names. Each dimension is computed independently and
// individually reproducible from the same inputs.
const (
	RiskDimMarket        = "market"
	RiskDimLiquidity     = "liquidity"
	RiskDimVolatility    = "volatility"
	RiskDimConcentration = "concentration"
	RiskDimEvent         = "event"
)

// TierForScore maps an aggregate risk score to its tier:
// below 34 low, 34..67 medium, above 67 high.
func TierForScore(score float64) RiskTier {
	switch {
	case score < 34:
		return RiskLow
	case score <= 67:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// RiskMetrics carries the auxiliary risk figures computed alongside
// the dimension scores (historical VaR/CVaR at 95%, annualized
// volatility, max drawdown, beta against the reference index when one
// was supplied).
type RiskMetrics struct {
	AnnualizedVolatility float64  `json:"annualized_volatility"`
	VaR95                float64  `json:"var_95"`
	CVaR95               float64  `json:"cvar_95"`
	MaxDrawdown          float64  `json:"max_drawdown"`
	Beta                 *float64 `json:"beta,omitempty"`
}

// RiskAssessment is one multi-dimensional risk evaluation. Immutable
// once produced.
type RiskAssessment struct {
	Score      float64            `json:"risk_score"` // 0..100
	Tier       RiskTier           `json:"risk_tier"`
	Dimensions map[string]float64 `json:"dimension_scores"`
	Metrics    RiskMetrics        `json:"metrics"`
}

// MarketContext carries caller-supplied context the risk assessor
// cannot derive from the price series itself. The zero value is valid:
// absent context degrades the affected dimensions to neutral.
type MarketContext struct {
	// IndexCloses is a broad-index close series aligned to the tail of
	// the symbol's series, used for the beta/correlation proxy.
	IndexCloses []float64

	// PortfolioShare is the position's share of a hypothetical
	// portfolio, 0..1. Nil assumes full allocation.
	PortfolioShare *float64

	// EventWindow flags a pending earnings/announcement window.
	EventWindow bool
}
