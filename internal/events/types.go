// Package events provides event management functionality.
package events

import "time"

// EventType represents different event types.
type EventType string

const (
	ScoreComputed    EventType = "SCORE_COMPUTED"
	RiskAssessed     EventType = "RISK_ASSESSED"
	PositionOpened   EventType = "POSITION_OPENED"
	PositionClosed   EventType = "POSITION_CLOSED"
	WatchlistChanged EventType = "WATCHLIST_CHANGED"
	EvaluationCycle  EventType = "EVALUATION_CYCLE"
	ErrorOccurred    EventType = "ERROR_OCCURRED"
)

// Event represents a system event with typed data.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Module    string    `json:"module"`
	Data      EventData `json:"data"`
}

// EventData is implemented by all event payload types.
type EventData interface {
	EventType() EventType
}

// ScoreComputedData contains data for ScoreComputed events.
type ScoreComputedData struct {
	Symbol         string  `json:"symbol"`
	Composite      float64 `json:"composite_score"`
	Recommendation string  `json:"recommendation"`
	Degraded       bool    `json:"degraded"`
}

func (d *ScoreComputedData) EventType() EventType { return ScoreComputed }

// RiskAssessedData contains data for RiskAssessed events.
type RiskAssessedData struct {
	Symbol string  `json:"symbol"`
	Score  float64 `json:"risk_score"`
	Tier   string  `json:"risk_tier"`
}

func (d *RiskAssessedData) EventType() EventType { return RiskAssessed }

// PositionOpenedData contains data for PositionOpened events.
type PositionOpenedData struct {
	PositionID string  `json:"position_id"`
	Symbol     string  `json:"symbol"`
	Quantity   float64 `json:"quantity"`
	EntryPrice float64 `json:"entry_price"`
	StopLoss   float64 `json:"stop_loss_price"`
	TakeProfit float64 `json:"take_profit_price"`
}

func (d *PositionOpenedData) EventType() EventType { return PositionOpened }

// PositionClosedData contains data for PositionClosed events.
type PositionClosedData struct {
	PositionID string  `json:"position_id"`
	Symbol     string  `json:"symbol"`
	ExitPrice  float64 `json:"exit_price"`
	ExitReason string  `json:"exit_reason"`
	PnL        float64 `json:"pnl"`
}

func (d *PositionClosedData) EventType() EventType { return PositionClosed }

// WatchlistChangedData contains data for WatchlistChanged events.
type WatchlistChangedData struct {
	Symbol string `json:"symbol"`
	Added  bool   `json:"added"`
}

func (d *WatchlistChangedData) EventType() EventType { return WatchlistChanged }

// EvaluationCycleData contains data for EvaluationCycle events.
type EvaluationCycleData struct {
	Symbols  int     `json:"symbols"`
	Failures int     `json:"failures"`
	Elapsed  float64 `json:"elapsed_seconds"`
}

func (d *EvaluationCycleData) EventType() EventType { return EvaluationCycle }

// ErrorEventData contains data for ErrorOccurred events.
type ErrorEventData struct {
	Error   string `json:"error"`
	Context string `json:"context,omitempty"`
}

func (d *ErrorEventData) EventType() EventType { return ErrorOccurred }
