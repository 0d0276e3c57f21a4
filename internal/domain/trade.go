package domain

import "time"

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitStopLoss       ExitReason = "stop_loss"
	ExitTakeProfit     ExitReason = "take_profit"
	ExitSignalReversal ExitReason = "signal_reversal"
)

// TradeRecord is one completed round trip. Append only, created at
// position close, never mutated afterwards.
type TradeRecord struct {
	ID         string     `json:"id"`
	Symbol     string     `json:"symbol"`
	Quantity   float64    `json:"quantity"`
	EntryPrice float64    `json:"entry_price"`
	ExitPrice  float64    `json:"exit_price"`
	EntryTime  time.Time  `json:"entry_time"`
	ExitTime   time.Time  `json:"exit_time"`
	ExitReason ExitReason `json:"exit_reason"`
	PnL        float64    `json:"pnl"`
}
