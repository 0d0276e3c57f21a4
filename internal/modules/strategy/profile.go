// Package strategy turns scores, risk assessments and price ticks
// into simulated position actions under a named risk posture. It
// exclusively owns the live position set and the trade log.
package strategy

import (
	"fmt"

	"github.com/meridianlabs/meridian/internal/domain"
)

// Profile is an immutable risk-posture preset. Behavior across the
// three postures differs only by these parameters, never by code
// shape; a new profile replaces, not edits, the active one.
type Profile struct {
	Name                   string  `yaml:"name"`
	StopLossPct            float64 `yaml:"stop_loss_pct"`
	TakeProfitPct          float64 `yaml:"take_profit_pct"`
	MaxPositionPct         float64 `yaml:"max_position_pct"`
	MaxConcurrentPositions int     `yaml:"max_concurrent_positions"`
	MinScoreToEnter        float64 `yaml:"min_score_to_enter"`

	// ExitScoreThreshold triggers a signal-reversal exit when a
	// re-evaluation of an open position scores below it.
	ExitScoreThreshold float64 `yaml:"exit_score_threshold"`

	// RejectHighRisk refuses entry on a high risk tier outright.
	// Postures without it halve the position size instead.
	RejectHighRisk bool `yaml:"reject_high_risk"`
}

// The three shipped postures.
func Conservative() Profile {
	return Profile{
		Name:                   "conservative",
		StopLossPct:            0.05,
		TakeProfitPct:          0.15,
		MaxPositionPct:         0.10,
		MaxConcurrentPositions: 3,
		MinScoreToEnter:        80,
		ExitScoreThreshold:     60,
		RejectHighRisk:         true,
	}
}

func Balanced() Profile {
	return Profile{
		Name:                   "balanced",
		StopLossPct:            0.08,
		TakeProfitPct:          0.20,
		MaxPositionPct:         0.15,
		MaxConcurrentPositions: 5,
		MinScoreToEnter:        70,
		ExitScoreThreshold:     50,
	}
}

func Aggressive() Profile {
	return Profile{
		Name:                   "aggressive",
		StopLossPct:            0.15,
		TakeProfitPct:          0.30,
		MaxPositionPct:         0.20,
		MaxConcurrentPositions: 8,
		MinScoreToEnter:        65,
		ExitScoreThreshold:     40,
	}
}

// ProfileByName resolves one of the three shipped presets.
func ProfileByName(name string) (Profile, error) {
	switch name {
	case "conservative":
		return Conservative(), nil
	case "balanced":
		return Balanced(), nil
	case "aggressive":
		return Aggressive(), nil
	default:
		return Profile{}, fmt.Errorf("%w: unknown strategy profile %q", domain.ErrStructuralConfig, name)
	}
}

// Validate rejects structurally invalid profiles.
func (p Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: profile needs a name", domain.ErrStructuralConfig)
	}
	if p.StopLossPct <= 0 || p.StopLossPct >= 1 {
		return fmt.Errorf("%w: stop loss pct must be in (0,1)", domain.ErrStructuralConfig)
	}
	if p.TakeProfitPct <= 0 {
		return fmt.Errorf("%w: take profit pct must be positive", domain.ErrStructuralConfig)
	}
	if p.MaxPositionPct <= 0 || p.MaxPositionPct > 1 {
		return fmt.Errorf("%w: max position pct must be in (0,1]", domain.ErrStructuralConfig)
	}
	if p.MaxConcurrentPositions <= 0 {
		return fmt.Errorf("%w: max concurrent positions must be positive", domain.ErrStructuralConfig)
	}
	if p.MinScoreToEnter < 0 || p.MinScoreToEnter > 100 {
		return fmt.Errorf("%w: min score to enter must be in [0,100]", domain.ErrStructuralConfig)
	}
	if p.ExitScoreThreshold < 0 || p.ExitScoreThreshold >= p.MinScoreToEnter {
		return fmt.Errorf("%w: exit threshold must sit below the entry threshold", domain.ErrStructuralConfig)
	}
	return nil
}
