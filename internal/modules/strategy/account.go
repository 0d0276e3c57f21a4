package strategy

import (
	"fmt"
	"sync"

	"github.com/meridianlabs/meridian/internal/domain"
)

// Account is the paper cash ledger backing the engine. Guarded by its
// own lock so cross-symbol fills never contend on position locks.
type Account struct {
	mu       sync.Mutex
	cash     float64
	initial  float64
	realized float64
	trades   int
	wins     int
}

// AccountSnapshot is a read-only view of the account.
type AccountSnapshot struct {
	Cash        float64 `json:"cash"`
	Initial     float64 `json:"initial_capital"`
	RealizedPnL float64 `json:"realized_pnl"`
	Trades      int     `json:"trades"`
	Wins        int     `json:"wins"`
	WinRate     float64 `json:"win_rate"`
}

// NewAccount starts a paper account with the given capital.
func NewAccount(initialCapital float64) (*Account, error) {
	if initialCapital <= 0 {
		return nil, fmt.Errorf("%w: initial capital must be positive", domain.ErrStructuralConfig)
	}
	return &Account{cash: initialCapital, initial: initialCapital}, nil
}

// Cash returns the free cash balance.
func (a *Account) Cash() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cash
}

// cashTolerance absorbs the float round-off an all-in fill picks up
// when quantity is derived from the full cash balance.
const cashTolerance = 1e-9

// reserve debits cash for an entry fill. Returns false when the cost
// exceeds the free balance; a cost within rounding noise of the full
// balance fills as an all-in entry.
func (a *Account) reserve(cost float64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if cost <= 0 || cost > a.cash*(1+cashTolerance) {
		return false
	}
	if cost > a.cash {
		cost = a.cash
	}
	a.cash -= cost
	return true
}

// settle credits the proceeds of an exit fill and books the trade.
func (a *Account) settle(record domain.TradeRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cash += record.ExitPrice * record.Quantity
	a.realized += record.PnL
	a.trades++
	if record.PnL > 0 {
		a.wins++
	}
}

// Snapshot reads the account state atomically.
func (a *Account) Snapshot() AccountSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	snapshot := AccountSnapshot{
		Cash:        a.cash,
		Initial:     a.initial,
		RealizedPnL: a.realized,
		Trades:      a.trades,
		Wins:        a.wins,
	}
	if a.trades > 0 {
		snapshot.WinRate = float64(a.wins) / float64(a.trades)
	}
	return snapshot
}
