// Package prediction runs a trained linear model over feature vectors
// to produce directional forecasts. Models are distributed as versioned
// msgpack artifacts written by the offline training pipeline.
package prediction

import (
	"fmt"
	"os"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/meridianlabs/meridian/internal/domain"
)

// ArtifactFormatVersion is bumped whenever the artifact layout changes
// incompatibly. Loading rejects artifacts from a different major line.
const ArtifactFormatVersion = 1

// Artifact is the serialized form of a trained model: standardization
// parameters and linear coefficients keyed by feature name.
type Artifact struct {
	FormatVersion int       `msgpack:"format_version"`
	ModelVersion  string    `msgpack:"model_version"`
	TrainedAt     time.Time `msgpack:"trained_at"`

	FeatureNames []string  `msgpack:"feature_names"`
	Means        []float64 `msgpack:"means"`
	Scales       []float64 `msgpack:"scales"`
	Weights      []float64 `msgpack:"weights"`
	Intercept    float64   `msgpack:"intercept"`

	// FlatBand is the |estimate| below which direction reads flat.
	FlatBand float64 `msgpack:"flat_band"`
}

// Validate checks internal consistency of the artifact.
func (a *Artifact) Validate() error {
	if a.FormatVersion != ArtifactFormatVersion {
		return fmt.Errorf("%w: artifact format version %d, want %d",
			domain.ErrModelUnavailable, a.FormatVersion, ArtifactFormatVersion)
	}
	if a.ModelVersion == "" {
		return fmt.Errorf("%w: artifact missing model version", domain.ErrModelUnavailable)
	}
	n := len(a.FeatureNames)
	if n == 0 {
		return fmt.Errorf("%w: artifact has no features", domain.ErrModelUnavailable)
	}
	if len(a.Means) != n || len(a.Scales) != n || len(a.Weights) != n {
		return fmt.Errorf("%w: artifact parameter lengths disagree with %d feature names",
			domain.ErrModelUnavailable, n)
	}
	for i, s := range a.Scales {
		if s <= 0 {
			return fmt.Errorf("%w: non-positive scale for feature %q",
				domain.ErrModelUnavailable, a.FeatureNames[i])
		}
	}
	if a.FlatBand < 0 {
		return fmt.Errorf("%w: negative flat band", domain.ErrModelUnavailable)
	}
	return nil
}

// LoadArtifact reads and validates a msgpack model artifact.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading artifact %s: %v", domain.ErrModelUnavailable, path, err)
	}
	var artifact Artifact
	if err := msgpack.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("%w: decoding artifact %s: %v", domain.ErrModelUnavailable, path, err)
	}
	if err := artifact.Validate(); err != nil {
		return nil, err
	}
	return &artifact, nil
}

// SaveArtifact writes an artifact to disk. Used by the training
// pipeline and by tests.
func SaveArtifact(path string, artifact *Artifact) error {
	if err := artifact.Validate(); err != nil {
		return err
	}
	data, err := msgpack.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("encoding artifact: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
