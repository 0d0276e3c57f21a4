package features

import (
	"fmt"
	"time"

	"github.com/meridianlabs/meridian/internal/domain"
)

// Vector is a single feature observation aligned to one price bar.
// All vectors produced by one Builder share the same names slice, so
// the name order is identical across every vector of a build.
type Vector struct {
	Timestamp time.Time
	names     []string
	values    []float64
}

// NewVector builds a vector directly from parallel name and value
// slices. Runtime vectors come from a Builder; this constructor serves
// offline tooling and tests.
func NewVector(ts time.Time, names []string, values []float64) (Vector, error) {
	if len(names) != len(values) {
		return Vector{}, fmt.Errorf("%w: %d names for %d values",
			domain.ErrInvalidInput, len(names), len(values))
	}
	return Vector{Timestamp: ts, names: names, values: values}, nil
}

// Names returns the ordered feature names. Callers must not mutate
// the returned slice.
func (v Vector) Names() []string { return v.names }

// Values returns the feature values in name order. Callers must not
// mutate the returned slice.
func (v Vector) Values() []float64 { return v.values }

// Value looks up a feature by name.
func (v Vector) Value(name string) (float64, bool) {
	for i, n := range v.names {
		if n == name {
			return v.values[i], true
		}
	}
	return 0, false
}

// Len returns the number of features in the vector.
func (v Vector) Len() int { return len(v.values) }
