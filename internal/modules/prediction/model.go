package prediction

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/meridianlabs/meridian/internal/domain"
	"github.com/meridianlabs/meridian/internal/modules/features"
)

// DefaultTimeout bounds a single inference. Exceeding it surfaces as
// ErrModelUnavailable so callers degrade to indicator-only scoring.
const DefaultTimeout = 250 * time.Millisecond

// Model scores feature vectors with a standardized linear estimator.
// Inference is read-only and safe for concurrent use.
type Model struct {
	artifact *Artifact
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewModel wraps a validated artifact.
func NewModel(artifact *Artifact, logger zerolog.Logger) (*Model, error) {
	if artifact == nil {
		return nil, fmt.Errorf("%w: no artifact loaded", domain.ErrModelUnavailable)
	}
	if err := artifact.Validate(); err != nil {
		return nil, err
	}
	return &Model{
		artifact: artifact,
		timeout:  DefaultTimeout,
		logger:   logger.With().Str("service", "prediction").Str("model", artifact.ModelVersion).Logger(),
	}, nil
}

// Version returns the model version string from the artifact.
func (m *Model) Version() string { return m.artifact.ModelVersion }

// Predict estimates the forward return for one feature vector. The
// vector must carry every feature the artifact was trained on; extra
// features are ignored. Context cancellation or deadline expiry maps
// to ErrModelUnavailable.
func (m *Model) Predict(ctx context.Context, vec features.Vector) (domain.ModelOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	estimate := m.artifact.Intercept
	for i, name := range m.artifact.FeatureNames {
		if err := ctx.Err(); err != nil {
			return domain.ModelOutput{}, fmt.Errorf("%w: inference cancelled: %v", domain.ErrModelUnavailable, err)
		}
		raw, ok := vec.Value(name)
		if !ok {
			return domain.ModelOutput{}, fmt.Errorf("%w: vector missing feature %q", domain.ErrInvalidInput, name)
		}
		estimate += m.artifact.Weights[i] * (raw - m.artifact.Means[i]) / m.artifact.Scales[i]
	}
	if math.IsNaN(estimate) || math.IsInf(estimate, 0) {
		return domain.ModelOutput{}, fmt.Errorf("%w: non-finite estimate", domain.ErrModelUnavailable)
	}

	out := domain.ModelOutput{
		Direction:  directionOf(estimate, m.artifact.FlatBand),
		Magnitude:  estimate,
		Confidence: confidenceOf(estimate, m.artifact.FlatBand),
	}
	m.logger.Debug().
		Str("direction", string(out.Direction)).
		Float64("magnitude", out.Magnitude).
		Float64("confidence", out.Confidence).
		Msg("inference complete")
	return out, nil
}

func directionOf(estimate, flatBand float64) domain.Direction {
	switch {
	case estimate > flatBand:
		return domain.DirectionUp
	case estimate < -flatBand:
		return domain.DirectionDown
	default:
		return domain.DirectionFlat
	}
}

// confidenceOf squashes the estimate's distance from the flat band
// into 0..1. An estimate inside the band has zero confidence.
func confidenceOf(estimate, flatBand float64) float64 {
	excess := math.Abs(estimate) - flatBand
	if excess <= 0 {
		return 0
	}
	return math.Tanh(excess * 20)
}
