package scoring

import (
	"github.com/rs/zerolog"

	"github.com/meridianlabs/meridian/internal/domain"
	"github.com/meridianlabs/meridian/internal/modules/features"
	"github.com/meridianlabs/meridian/internal/modules/scoring/scorers"
)

// Breakdown entry names. Sub-score entries are weighted contributions
// and sum, together with the risk penalty, to the composite score.
const (
	BreakdownTechnical   = "technical"
	BreakdownMomentum    = "momentum"
	BreakdownSentiment   = "sentiment"
	BreakdownModel       = "model"
	BreakdownRiskPenalty = "risk_penalty"
)

// Scorer produces composite scores. Stateless and safe for concurrent
// use.
type Scorer struct {
	cfg        Config
	technicals *scorers.TechnicalsScorer
	momentum   *scorers.MomentumScorer
	sentiment  *scorers.SentimentScorer
	logger     zerolog.Logger
}

// NewScorer validates the configuration and returns a Scorer.
func NewScorer(cfg Config, logger zerolog.Logger) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{
		cfg:        cfg,
		technicals: scorers.NewTechnicalsScorer(),
		momentum:   scorers.NewMomentumScorer(cfg.ReturnWindows),
		sentiment:  scorers.NewSentimentScorer(),
		logger:     logger.With().Str("service", "scoring").Logger(),
	}, nil
}

// Score blends the sub-scores for one feature vector. A nil modelOut
// means the model was unavailable or timed out: the result is marked
// degraded, the model term is absent from the breakdown, and the
// indicator weights are renormalized to cover its share.
func (s *Scorer) Score(vec features.Vector, modelOut *domain.ModelOutput, risk domain.RiskAssessment) domain.ScoreResult {
	technical := s.technicals.Calculate(vec)
	momentum := s.momentum.Calculate(vec)
	sentiment := s.sentiment.Calculate(vec)

	w := s.cfg.Weights
	weightTechnical, weightMomentum, weightSentiment, weightModel :=
		w.Technical, w.Momentum, w.Sentiment, w.Model

	degraded := modelOut == nil
	if degraded {
		indicatorSum := weightTechnical + weightMomentum + weightSentiment
		weightTechnical /= indicatorSum
		weightMomentum /= indicatorSum
		weightSentiment /= indicatorSum
		weightModel = 0
	}

	breakdown := map[string]float64{
		BreakdownTechnical: weightTechnical * technical.Score,
		BreakdownMomentum:  weightMomentum * momentum.Score,
		BreakdownSentiment: weightSentiment * sentiment.Score,
	}
	blended := breakdown[BreakdownTechnical] + breakdown[BreakdownMomentum] + breakdown[BreakdownSentiment]

	if !degraded {
		contribution := weightModel * modelScore(*modelOut)
		breakdown[BreakdownModel] = contribution
		blended += contribution
	}

	// Risk compresses the score toward neutral: the riskier the
	// symbol, the less any signal is allowed to move the needle.
	composite := 50 + (blended-50)*(1-s.cfg.RiskPenalty*risk.Score/100)
	breakdown[BreakdownRiskPenalty] = composite - blended

	result := domain.ScoreResult{
		Composite:      composite,
		Recommendation: s.cfg.recommend(composite),
		Breakdown:      breakdown,
		Degraded:       degraded,
	}
	s.logger.Debug().
		Float64("composite", result.Composite).
		Str("recommendation", string(result.Recommendation)).
		Bool("degraded", degraded).
		Msg("score computed")
	return result
}

// modelScore maps the directional signal onto 0..100, weighted by the
// model's own confidence. A flat or unconfident prediction reads as
// neutral 50.
func modelScore(out domain.ModelOutput) float64 {
	var sign float64
	switch out.Direction {
	case domain.DirectionUp:
		sign = 1
	case domain.DirectionDown:
		sign = -1
	}
	confidence := out.Confidence
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}
	return 50 + sign*confidence*50
}
