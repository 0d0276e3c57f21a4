package domain

// Recommendation is the discrete action bucket derived from a
// composite score via the configured threshold table.
type Recommendation string

const (
	StrongSell Recommendation = "strong_sell"
	Sell       Recommendation = "sell"
	Hold       Recommendation = "hold"
	Buy        Recommendation = "buy"
	StrongBuy  Recommendation = "strong_buy"
)

// Direction is the predictive model's forward-looking price direction.
type Direction string

const (
	DirectionDown Direction = "down"
	DirectionFlat Direction = "flat"
	DirectionUp   Direction = "up"
)

// ModelOutput is a single inference result. Inference is side-effect
// free; an output is optional input to the composite scorer.
type ModelOutput struct {
	Direction  Direction `json:"direction"`
	Magnitude  float64   `json:"magnitude"`  // Estimated forward return, signed decimal
	Confidence float64   `json:"confidence"` // 0..1
}

// ScoreResult is one composite evaluation. Immutable once produced.
//
// Breakdown entries sum to Composite (within a small epsilon); the
// risk penalty appears as a signed entry and the model term is absent
// entirely when scoring ran degraded (indicator-only). Degraded tells
// a low-information result apart from a genuine hold signal.
type ScoreResult struct {
	Composite      float64            `json:"composite_score"` // 0..100
	Recommendation Recommendation     `json:"recommendation"`
	Breakdown      map[string]float64 `json:"component_breakdown"`
	Degraded       bool               `json:"degraded"`
}
