// Package watchlist tracks the symbols under evaluation and their
// bar history. It is the engine's only source of price series; the
// feed client writes into it, the evaluation loop reads from it.
package watchlist

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/meridianlabs/meridian/internal/domain"
	"github.com/meridianlabs/meridian/internal/events"
)

// maxBars bounds per-symbol history; indicators need far less.
const maxBars = 500

// Watchlist is safe for concurrent use.
type Watchlist struct {
	mu      sync.RWMutex
	history map[string][]domain.PriceBar
	last    map[string]float64
	bus     *events.Manager
	log     zerolog.Logger
}

// New creates an empty watchlist. The event manager may be nil.
func New(bus *events.Manager, log zerolog.Logger) *Watchlist {
	return &Watchlist{
		history: make(map[string][]domain.PriceBar),
		last:    make(map[string]float64),
		bus:     bus,
		log:     log.With().Str("service", "watchlist").Logger(),
	}
}

// Add registers a symbol, optionally seeding its history. Adding an
// existing symbol replaces its history when bars are given.
func (w *Watchlist) Add(symbol string, bars []domain.PriceBar) error {
	if symbol == "" {
		return fmt.Errorf("%w: empty symbol", domain.ErrInvalidInput)
	}
	if len(bars) > 0 {
		if err := domain.ValidateBars(bars); err != nil {
			return err
		}
	}
	w.mu.Lock()
	_, existed := w.history[symbol]
	w.history[symbol] = clip(append([]domain.PriceBar(nil), bars...))
	if len(bars) > 0 {
		w.last[symbol] = bars[len(bars)-1].Close
	}
	w.mu.Unlock()

	if !existed {
		w.log.Info().Str("symbol", symbol).Int("bars", len(bars)).Msg("symbol added")
		if w.bus != nil {
			w.bus.Emit("watchlist", &events.WatchlistChangedData{Symbol: symbol, Added: true})
		}
	}
	return nil
}

// Remove drops a symbol and its history.
func (w *Watchlist) Remove(symbol string) {
	w.mu.Lock()
	_, existed := w.history[symbol]
	delete(w.history, symbol)
	delete(w.last, symbol)
	w.mu.Unlock()

	if existed {
		w.log.Info().Str("symbol", symbol).Msg("symbol removed")
		if w.bus != nil {
			w.bus.Emit("watchlist", &events.WatchlistChangedData{Symbol: symbol, Added: false})
		}
	}
}

// AppendBar appends one bar to a tracked symbol. Bars older than the
// current head are rejected with ErrStaleTick; unknown symbols are
// ignored so the feed can subscribe wider than the watchlist.
func (w *Watchlist) AppendBar(symbol string, bar domain.PriceBar) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	bars, ok := w.history[symbol]
	if !ok {
		return nil
	}
	if len(bars) > 0 && !bar.Timestamp.After(bars[len(bars)-1].Timestamp) {
		return fmt.Errorf("%w: bar at %s not after series head", domain.ErrStaleTick, bar.Timestamp)
	}
	w.history[symbol] = clip(append(bars, bar))
	w.last[symbol] = bar.Close
	return nil
}

// SetLastPrice records the latest tick print for equity valuation.
func (w *Watchlist) SetLastPrice(symbol string, price float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.history[symbol]; ok && price > 0 {
		w.last[symbol] = price
	}
}

// History returns a copy of the symbol's bars.
func (w *Watchlist) History(symbol string) ([]domain.PriceBar, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	bars, ok := w.history[symbol]
	if !ok {
		return nil, false
	}
	return append([]domain.PriceBar(nil), bars...), true
}

// Symbols lists tracked symbols in stable order.
func (w *Watchlist) Symbols() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	symbols := make([]string, 0, len(w.history))
	for symbol := range w.history {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// LastPrices snapshots the latest known print per symbol.
func (w *Watchlist) LastPrices() map[string]float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[string]float64, len(w.last))
	for symbol, price := range w.last {
		out[symbol] = price
	}
	return out
}

func clip(bars []domain.PriceBar) []domain.PriceBar {
	if len(bars) <= maxBars {
		return bars
	}
	return bars[len(bars)-maxBars:]
}
