package strategy

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/meridianlabs/meridian/internal/domain"
	"github.com/meridianlabs/meridian/internal/events"
)

// TradeSink persists closed trades. Appends must be atomic; the
// engine calls it from multiple symbol goroutines.
type TradeSink interface {
	Append(record domain.TradeRecord) error
}

// Engine is the per-symbol position state machine. Cross-symbol
// evaluation runs in parallel; all transitions within one symbol are
// serialized behind that symbol's lock.
type Engine struct {
	profile Profile
	account *Account
	sink    TradeSink
	bus     *events.Manager
	logger  zerolog.Logger

	mu        sync.Mutex // guards symbols map, slot count and open value
	symbols   map[string]*symbolState
	open      int
	openValue float64 // summed entry value of open positions
}

// symbolState carries one symbol's lifecycle. lastSeen enforces
// monotonic event time within the symbol.
type symbolState struct {
	mu       sync.Mutex
	state    State
	position *Position
	lastSeen time.Time
}

// NewEngine validates the profile and wires the engine. The sink and
// event manager may be nil in library use; persistence and push
// notifications are then skipped.
func NewEngine(profile Profile, account *Account, sink TradeSink, bus *events.Manager, logger zerolog.Logger) (*Engine, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("%w: engine needs an account", domain.ErrStructuralConfig)
	}
	return &Engine{
		profile: profile,
		account: account,
		sink:    sink,
		bus:     bus,
		symbols: make(map[string]*symbolState),
		logger:  logger.With().Str("service", "strategy").Str("profile", profile.Name).Logger(),
	}, nil
}

// Profile returns the active posture.
func (e *Engine) Profile() Profile { return e.profile }

func (e *Engine) symbolFor(symbol string) *symbolState {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.symbols[symbol]
	if !ok {
		st = &symbolState{state: StateIdle}
		e.symbols[symbol] = st
	}
	return st
}

// tryAcquireSlot reserves one of the concurrent position slots.
func (e *Engine) tryAcquireSlot() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.open >= e.profile.MaxConcurrentPositions {
		return false
	}
	e.open++
	return true
}

func (e *Engine) releaseSlot() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.open > 0 {
		e.open--
	}
}

// addOpenValue folds an entry or exit fill into the open value
// aggregate that sizing reads.
func (e *Engine) addOpenValue(delta float64) {
	e.mu.Lock()
	e.openValue += delta
	e.mu.Unlock()
}

// Evaluate processes a fresh score/risk pair for a symbol at the
// given price. With no open position it decides entry; with an open
// position it is an idempotent no-op unless the score has fallen
// below the exit threshold, which closes the position as a signal
// reversal. Timestamps older than the symbol's last processed event
// are rejected with ErrStaleTick.
func (e *Engine) Evaluate(symbol string, ts time.Time, price float64, score domain.ScoreResult, risk domain.RiskAssessment) (*domain.TradeRecord, error) {
	if symbol == "" || price <= 0 {
		return nil, fmt.Errorf("%w: evaluation needs a symbol and positive price", domain.ErrInvalidInput)
	}
	st := e.symbolFor(symbol)
	st.mu.Lock()
	defer st.mu.Unlock()

	if ts.Before(st.lastSeen) {
		return nil, fmt.Errorf("%w: evaluation at %s behind %s for %s",
			domain.ErrStaleTick, ts.Format(time.RFC3339), st.lastSeen.Format(time.RFC3339), symbol)
	}
	st.lastSeen = ts

	if st.position != nil {
		return e.reEvaluateLocked(st, ts, price, score), nil
	}

	st.state = StateEvaluating
	e.decideEntryLocked(st, symbol, ts, price, score, risk)
	return nil, nil
}

// reEvaluateLocked handles a score arriving for an open position. A
// degraded score carries no signal and never forces an exit.
func (e *Engine) reEvaluateLocked(st *symbolState, ts time.Time, price float64, score domain.ScoreResult) *domain.TradeRecord {
	if score.Degraded || score.Composite >= e.profile.ExitScoreThreshold {
		return nil
	}
	p := st.position
	if price <= p.StopLossPrice || price >= p.TakeProfitPrice {
		// Price has reached a hard boundary; the next tick settles
		// it as a stop or target, not as a reversal.
		return nil
	}
	record := e.closeLocked(st, price, ts, domain.ExitSignalReversal)
	return &record
}

// decideEntryLocked applies the entry gate and opens a position when
// every condition holds.
func (e *Engine) decideEntryLocked(st *symbolState, symbol string, ts time.Time, price float64, score domain.ScoreResult, risk domain.RiskAssessment) {
	st.state = StateIdle

	if score.Degraded || score.Composite < e.profile.MinScoreToEnter {
		return
	}

	sizeFactor := 1.0
	if risk.Tier == domain.RiskHigh {
		if e.profile.RejectHighRisk {
			e.logger.Debug().Str("symbol", symbol).Msg("entry rejected, high risk tier")
			return
		}
		sizeFactor = 0.5
	}

	if !e.tryAcquireSlot() {
		e.logger.Debug().Str("symbol", symbol).Msg("entry rejected, position slots exhausted")
		return
	}

	cash := e.account.Cash()
	equity := cash + e.openEntryValue()
	budget := equity * e.profile.MaxPositionPct
	if cash < budget {
		budget = cash
	}
	quantity := budget * sizeFactor / price
	if quantity <= 0 || !e.account.reserve(quantity*price) {
		e.releaseSlot()
		return
	}

	st.position = openPosition(symbol, quantity, price, ts, e.profile)
	st.state = StateOpen
	e.addOpenValue(st.position.EntryPrice * st.position.Quantity)

	e.logger.Info().
		Str("symbol", symbol).
		Float64("quantity", quantity).
		Float64("entry_price", price).
		Float64("stop", st.position.StopLossPrice).
		Float64("target", st.position.TakeProfitPrice).
		Msg("position opened")

	if e.bus != nil {
		e.bus.Emit("strategy", &events.PositionOpenedData{
			PositionID: st.position.ID,
			Symbol:     symbol,
			Quantity:   quantity,
			EntryPrice: price,
			StopLoss:   st.position.StopLossPrice,
			TakeProfit: st.position.TakeProfitPrice,
		})
	}
}

// openEntryValue reports the summed entry value of open positions for
// the portfolio-value side of position sizing. The aggregate is kept
// current under the engine lock as positions open and close, so
// sizing never reads another symbol's state.
func (e *Engine) openEntryValue() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.openValue
}

// ProcessTick runs the stop/target checks for one price tick. Every
// tick must be processed in order once a position is open; an
// out-of-order tick is rejected with ErrStaleTick and changes
// nothing. A tick for a symbol without a position just advances the
// symbol's clock.
func (e *Engine) ProcessTick(tick domain.Tick) (*domain.TradeRecord, error) {
	if tick.Symbol == "" || tick.Price <= 0 {
		return nil, fmt.Errorf("%w: tick needs a symbol and positive price", domain.ErrInvalidInput)
	}
	st := e.symbolFor(tick.Symbol)
	st.mu.Lock()
	defer st.mu.Unlock()

	if tick.Timestamp.Before(st.lastSeen) {
		return nil, fmt.Errorf("%w: tick at %s behind %s for %s",
			domain.ErrStaleTick, tick.Timestamp.Format(time.RFC3339),
			st.lastSeen.Format(time.RFC3339), tick.Symbol)
	}
	st.lastSeen = tick.Timestamp

	p := st.position
	if p == nil {
		return nil, nil
	}

	switch {
	case tick.Price <= p.StopLossPrice:
		record := e.closeLocked(st, tick.Price, tick.Timestamp, domain.ExitStopLoss)
		return &record, nil
	case tick.Price >= p.TakeProfitPrice:
		record := e.closeLocked(st, tick.Price, tick.Timestamp, domain.ExitTakeProfit)
		return &record, nil
	default:
		return nil, nil
	}
}

// closeLocked archives the position, settles cash, persists the trade
// and frees the symbol for a fresh lifecycle. Caller holds st.mu.
func (e *Engine) closeLocked(st *symbolState, price float64, ts time.Time, reason domain.ExitReason) domain.TradeRecord {
	record := st.position.close(price, ts, reason)
	position := st.position
	st.position = nil
	st.state = StateIdle
	e.releaseSlot()
	e.addOpenValue(-position.EntryPrice * position.Quantity)

	e.account.settle(record)
	if e.sink != nil {
		if err := e.sink.Append(record); err != nil {
			e.logger.Error().Err(err).Str("symbol", record.Symbol).Msg("trade record persistence failed")
		}
	}

	e.logger.Info().
		Str("symbol", record.Symbol).
		Str("exit_reason", string(reason)).
		Float64("exit_price", price).
		Float64("pnl", record.PnL).
		Msg("position closed")

	if e.bus != nil {
		e.bus.Emit("strategy", &events.PositionClosedData{
			PositionID: position.ID,
			Symbol:     record.Symbol,
			ExitPrice:  price,
			ExitReason: string(reason),
			PnL:        record.PnL,
		})
	}
	return record
}

// OpenPositions snapshots the live position set.
func (e *Engine) OpenPositions() []Position {
	e.mu.Lock()
	states := make([]*symbolState, 0, len(e.symbols))
	for _, st := range e.symbols {
		states = append(states, st)
	}
	e.mu.Unlock()

	positions := make([]Position, 0, len(states))
	for _, st := range states {
		st.mu.Lock()
		if st.position != nil {
			positions = append(positions, *st.position)
		}
		st.mu.Unlock()
	}
	return positions
}

// SymbolState reports the lifecycle state for a symbol.
func (e *Engine) SymbolState(symbol string) State {
	st := e.symbolFor(symbol)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state
}

// Equity values the paper portfolio using the supplied last prices;
// symbols without a price fall back to entry price.
func (e *Engine) Equity(lastPrices map[string]float64) float64 {
	total := e.account.Cash()
	for _, p := range e.OpenPositions() {
		price, ok := lastPrices[p.Symbol]
		if !ok {
			price = p.EntryPrice
		}
		total += p.MarketValue(price)
	}
	return total
}
