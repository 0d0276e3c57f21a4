// Package evaluation runs the scoring pipeline for watched symbols:
// bars to features to model to composite score to risk to strategy.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/meridianlabs/meridian/internal/domain"
	"github.com/meridianlabs/meridian/internal/events"
	"github.com/meridianlabs/meridian/internal/modules/features"
	"github.com/meridianlabs/meridian/internal/modules/prediction"
	"github.com/meridianlabs/meridian/internal/modules/risk"
	"github.com/meridianlabs/meridian/internal/modules/scoring"
	"github.com/meridianlabs/meridian/internal/modules/strategy"
	"github.com/meridianlabs/meridian/internal/modules/watchlist"
)

// Snapshot is the latest evaluation result for one symbol, kept for
// the read-only API.
type Snapshot struct {
	Symbol    string                `json:"symbol"`
	Price     float64               `json:"price"`
	Score     domain.ScoreResult    `json:"score"`
	Risk      domain.RiskAssessment `json:"risk"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// Service wires the pure computation modules to the strategy engine.
type Service struct {
	builder   *features.Builder
	model     *prediction.Model // nil runs indicator-only
	scorer    *scoring.Scorer
	assessor  *risk.Assessor
	engine    *strategy.Engine
	watchlist *watchlist.Watchlist
	bus       *events.Manager
	log       zerolog.Logger

	mu        sync.RWMutex
	snapshots map[string]Snapshot
}

// NewService wires the pipeline. model and bus may be nil.
func NewService(
	builder *features.Builder,
	model *prediction.Model,
	scorer *scoring.Scorer,
	assessor *risk.Assessor,
	engine *strategy.Engine,
	wl *watchlist.Watchlist,
	bus *events.Manager,
	log zerolog.Logger,
) *Service {
	return &Service{
		builder:   builder,
		model:     model,
		scorer:    scorer,
		assessor:  assessor,
		engine:    engine,
		watchlist: wl,
		bus:       bus,
		log:       log.With().Str("service", "evaluation").Logger(),
		snapshots: make(map[string]Snapshot),
	}
}

// EvaluateSymbol runs the full pipeline for one symbol and forwards
// the result to the strategy engine. Model failures degrade to
// indicator-only scoring; pipeline errors stay inside the symbol.
func (s *Service) EvaluateSymbol(ctx context.Context, symbol string, mctx domain.MarketContext) (Snapshot, error) {
	bars, ok := s.watchlist.History(symbol)
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s not on the watchlist", domain.ErrInvalidInput, symbol)
	}

	vec, err := s.builder.Latest(bars)
	if err != nil {
		return Snapshot{}, fmt.Errorf("building features for %s: %w", symbol, err)
	}

	modelOut := s.predict(ctx, symbol, vec)

	assessment, err := s.assessor.Assess(bars, vec, mctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("assessing risk for %s: %w", symbol, err)
	}

	score := s.scorer.Score(vec, modelOut, assessment)
	price := bars[len(bars)-1].Close

	if s.bus != nil {
		s.bus.Emit("evaluation", &events.ScoreComputedData{
			Symbol:         symbol,
			Composite:      score.Composite,
			Recommendation: string(score.Recommendation),
			Degraded:       score.Degraded,
		})
		s.bus.Emit("evaluation", &events.RiskAssessedData{
			Symbol: symbol,
			Score:  assessment.Score,
			Tier:   string(assessment.Tier),
		})
	}

	if _, err := s.engine.Evaluate(symbol, vec.Timestamp, price, score, assessment); err != nil {
		// A stale evaluation is dropped, not escalated.
		if errors.Is(err, domain.ErrStaleTick) {
			s.log.Debug().Str("symbol", symbol).Msg("stale evaluation ignored")
		} else {
			return Snapshot{}, fmt.Errorf("engine evaluation for %s: %w", symbol, err)
		}
	}

	snapshot := Snapshot{
		Symbol:    symbol,
		Price:     price,
		Score:     score,
		Risk:      assessment,
		UpdatedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.snapshots[symbol] = snapshot
	s.mu.Unlock()
	return snapshot, nil
}

// predict runs inference with graceful degradation: no model, a
// cancelled context or any inference failure yields nil and scoring
// continues indicator-only.
func (s *Service) predict(ctx context.Context, symbol string, vec features.Vector) *domain.ModelOutput {
	if s.model == nil {
		return nil
	}
	out, err := s.model.Predict(ctx, vec)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("model degraded to indicator-only scoring")
		return nil
	}
	return &out
}

// EvaluateAll re-scores every watched symbol. One symbol's failure
// never stops the rest.
func (s *Service) EvaluateAll(ctx context.Context) {
	started := time.Now()
	symbols := s.watchlist.Symbols()
	failures := 0

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			if _, err := s.EvaluateSymbol(ctx, symbol, domain.MarketContext{}); err != nil {
				s.log.Error().Err(err).Str("symbol", symbol).Msg("evaluation failed")
				mu.Lock()
				failures++
				mu.Unlock()
			}
		}(symbol)
	}
	wg.Wait()

	if s.bus != nil {
		s.bus.Emit("evaluation", &events.EvaluationCycleData{
			Symbols:  len(symbols),
			Failures: failures,
			Elapsed:  time.Since(started).Seconds(),
		})
	}
}

// HandleTick forwards a live tick to the engine's stop/target checks
// and keeps the last-price table fresh. Stale ticks are logged and
// dropped.
func (s *Service) HandleTick(tick domain.Tick) {
	if _, err := s.engine.ProcessTick(tick); err != nil {
		if errors.Is(err, domain.ErrStaleTick) {
			s.log.Debug().Str("symbol", tick.Symbol).Time("ts", tick.Timestamp).Msg("stale tick ignored")
			return
		}
		s.log.Error().Err(err).Str("symbol", tick.Symbol).Msg("tick processing failed")
	}
	s.watchlist.SetLastPrice(tick.Symbol, tick.Price)
}

// HandleBar appends a feed bar to the symbol's history.
func (s *Service) HandleBar(symbol string, bar domain.PriceBar) {
	if err := s.watchlist.AppendBar(symbol, bar); err != nil {
		s.log.Debug().Err(err).Str("symbol", symbol).Msg("bar dropped")
	}
}

// Snapshots lists the latest evaluation per symbol.
func (s *Service) Snapshots() []Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Snapshot, 0, len(s.snapshots))
	for _, snapshot := range s.snapshots {
		out = append(out, snapshot)
	}
	return out
}

// SnapshotFor returns the latest evaluation for one symbol.
func (s *Service) SnapshotFor(symbol string) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.snapshots[symbol]
	return snapshot, ok
}
