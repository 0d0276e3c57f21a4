package strategy

import (
	"time"

	"github.com/google/uuid"

	"github.com/meridianlabs/meridian/internal/domain"
)

// State is a step in the per-symbol position lifecycle.
type State string

const (
	StateIdle         State = "idle"
	StateEvaluating   State = "evaluating"
	StateOpen         State = "open"
	StateStopExit     State = "stop_exit"
	StateTargetExit   State = "target_exit"
	StateTrailingExit State = "trailing_exit"
	StateClosed       State = "closed"
)

// Position is one live simulated position. Mutated only behind the
// owning symbol's lock, through the transition methods below.
type Position struct {
	ID              string    `json:"id"`
	Symbol          string    `json:"symbol"`
	Quantity        float64   `json:"quantity"`
	EntryPrice      float64   `json:"entry_price"`
	EntryTime       time.Time `json:"entry_time"`
	StopLossPrice   float64   `json:"stop_loss_price"`
	TakeProfitPrice float64   `json:"take_profit_price"`
	State           State     `json:"state"`
}

// openPosition creates a freshly opened position with stop and target
// anchored to the entry price.
func openPosition(symbol string, quantity, entryPrice float64, entryTime time.Time, profile Profile) *Position {
	return &Position{
		ID:              uuid.NewString(),
		Symbol:          symbol,
		Quantity:        quantity,
		EntryPrice:      entryPrice,
		EntryTime:       entryTime,
		StopLossPrice:   entryPrice * (1 - profile.StopLossPct),
		TakeProfitPrice: entryPrice * (1 + profile.TakeProfitPct),
		State:           StateOpen,
	}
}

// close archives the position into a trade record. The exit state is
// transitional; the returned record is the durable artifact.
func (p *Position) close(exitPrice float64, exitTime time.Time, reason domain.ExitReason) domain.TradeRecord {
	switch reason {
	case domain.ExitStopLoss:
		p.State = StateStopExit
	case domain.ExitTakeProfit:
		p.State = StateTargetExit
	default:
		p.State = StateTrailingExit
	}
	record := domain.TradeRecord{
		ID:         p.ID,
		Symbol:     p.Symbol,
		Quantity:   p.Quantity,
		EntryPrice: p.EntryPrice,
		ExitPrice:  exitPrice,
		EntryTime:  p.EntryTime,
		ExitTime:   exitTime,
		ExitReason: reason,
		PnL:        (exitPrice - p.EntryPrice) * p.Quantity,
	}
	p.State = StateClosed
	return record
}

// MarketValue values the position at the given price.
func (p *Position) MarketValue(price float64) float64 {
	return p.Quantity * price
}

// UnrealizedPnL is the open profit at the given price.
func (p *Position) UnrealizedPnL(price float64) float64 {
	return (price - p.EntryPrice) * p.Quantity
}
