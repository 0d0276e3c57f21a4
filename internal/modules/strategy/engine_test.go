package strategy

import (
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianlabs/meridian/internal/domain"
)

type memorySink struct {
	mu      sync.Mutex
	records []domain.TradeRecord
}

func (s *memorySink) Append(record domain.TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *memorySink) all() []domain.TradeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.TradeRecord, len(s.records))
	copy(out, s.records)
	return out
}

func goodScore(composite float64) domain.ScoreResult {
	return domain.ScoreResult{
		Composite:      composite,
		Recommendation: domain.Buy,
		Breakdown:      map[string]float64{"technical": composite},
	}
}

func lowRisk() domain.RiskAssessment {
	return domain.RiskAssessment{Score: 20, Tier: domain.RiskLow}
}

func highRisk() domain.RiskAssessment {
	return domain.RiskAssessment{Score: 80, Tier: domain.RiskHigh}
}

func at(minute int) time.Time {
	return time.Date(2026, 2, 2, 10, minute, 0, 0, time.UTC)
}

func newTestEngine(t *testing.T, profile Profile, capital float64) (*Engine, *memorySink) {
	t.Helper()
	account, err := NewAccount(capital)
	require.NoError(t, err)
	sink := &memorySink{}
	engine, err := NewEngine(profile, account, sink, nil, zerolog.Nop())
	require.NoError(t, err)
	return engine, sink
}

func TestEvaluate_OpensPosition(t *testing.T) {
	engine, _ := newTestEngine(t, Balanced(), 100_000)

	_, err := engine.Evaluate("AAPL", at(0), 100, goodScore(85), lowRisk())
	require.NoError(t, err)

	positions := engine.OpenPositions()
	require.Len(t, positions, 1)
	p := positions[0]
	assert.Equal(t, "AAPL", p.Symbol)
	assert.Equal(t, StateOpen, p.State)
	assert.InDelta(t, 92.0, p.StopLossPrice, 1e-9)
	assert.InDelta(t, 120.0, p.TakeProfitPrice, 1e-9)
	// min(cash, equity*15%) = 15k at price 100.
	assert.InDelta(t, 150.0, p.Quantity, 1e-9)
	assert.Equal(t, StateOpen, engine.SymbolState("AAPL"))
}

func TestEvaluate_BelowThresholdStaysIdle(t *testing.T) {
	engine, _ := newTestEngine(t, Balanced(), 100_000)

	_, err := engine.Evaluate("AAPL", at(0), 100, goodScore(60), lowRisk())
	require.NoError(t, err)
	assert.Empty(t, engine.OpenPositions())
	assert.Equal(t, StateIdle, engine.SymbolState("AAPL"))
}

func TestEvaluate_IdempotentWhileOpen(t *testing.T) {
	engine, _ := newTestEngine(t, Balanced(), 100_000)

	_, err := engine.Evaluate("AAPL", at(0), 100, goodScore(85), lowRisk())
	require.NoError(t, err)
	record, err := engine.Evaluate("AAPL", at(1), 101, goodScore(85), lowRisk())
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.Len(t, engine.OpenPositions(), 1)
}

func TestEvaluate_ConservativeRejectsHighRisk(t *testing.T) {
	engine, _ := newTestEngine(t, Conservative(), 100_000)

	_, err := engine.Evaluate("TSLA", at(0), 200, goodScore(95), highRisk())
	require.NoError(t, err)
	assert.Empty(t, engine.OpenPositions())
	assert.Equal(t, StateIdle, engine.SymbolState("TSLA"))
}

func TestEvaluate_BalancedHalvesSizeOnHighRisk(t *testing.T) {
	engine, _ := newTestEngine(t, Balanced(), 100_000)

	_, err := engine.Evaluate("TSLA", at(0), 100, goodScore(85), highRisk())
	require.NoError(t, err)
	positions := engine.OpenPositions()
	require.Len(t, positions, 1)
	assert.InDelta(t, 75.0, positions[0].Quantity, 1e-9) // half of 150
}

func TestEvaluate_DegradedScoreNeverEnters(t *testing.T) {
	engine, _ := newTestEngine(t, Aggressive(), 100_000)

	score := goodScore(90)
	score.Degraded = true
	_, err := engine.Evaluate("AAPL", at(0), 100, score, lowRisk())
	require.NoError(t, err)
	assert.Empty(t, engine.OpenPositions())
}

func TestEvaluate_MaxConcurrentPositions(t *testing.T) {
	profile := Balanced() // allows 5
	engine, _ := newTestEngine(t, profile, 1_000_000)

	for i := 0; i < profile.MaxConcurrentPositions+2; i++ {
		symbol := fmt.Sprintf("SYM%d", i)
		_, err := engine.Evaluate(symbol, at(i), 100, goodScore(85), lowRisk())
		require.NoError(t, err)
	}
	assert.Len(t, engine.OpenPositions(), profile.MaxConcurrentPositions)
}

func TestProcessTick_StopLoss(t *testing.T) {
	engine, sink := newTestEngine(t, Balanced(), 100_000)

	_, err := engine.Evaluate("AAPL", at(0), 100, goodScore(85), lowRisk())
	require.NoError(t, err)
	quantity := engine.OpenPositions()[0].Quantity

	record, err := engine.ProcessTick(domain.Tick{Symbol: "AAPL", Price: 91.99, Timestamp: at(1)})
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, domain.ExitStopLoss, record.ExitReason)
	assert.InDelta(t, (91.99-100)*quantity, record.PnL, 1e-9)
	assert.Empty(t, engine.OpenPositions())
	assert.Equal(t, StateIdle, engine.SymbolState("AAPL"))
	require.Len(t, sink.all(), 1)
}

func TestProcessTick_TakeProfit(t *testing.T) {
	engine, _ := newTestEngine(t, Balanced(), 100_000)

	_, err := engine.Evaluate("AAPL", at(0), 100, goodScore(85), lowRisk())
	require.NoError(t, err)

	record, err := engine.ProcessTick(domain.Tick{Symbol: "AAPL", Price: 120.5, Timestamp: at(1)})
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, domain.ExitTakeProfit, record.ExitReason)
	assert.Positive(t, record.PnL)
}

func TestProcessTick_BetweenStopAndTargetHolds(t *testing.T) {
	engine, _ := newTestEngine(t, Balanced(), 100_000)

	_, err := engine.Evaluate("AAPL", at(0), 100, goodScore(85), lowRisk())
	require.NoError(t, err)

	record, err := engine.ProcessTick(domain.Tick{Symbol: "AAPL", Price: 104, Timestamp: at(1)})
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.Len(t, engine.OpenPositions(), 1)
}

func TestProcessTick_StaleTickRejected(t *testing.T) {
	engine, _ := newTestEngine(t, Balanced(), 100_000)

	_, err := engine.Evaluate("AAPL", at(5), 100, goodScore(85), lowRisk())
	require.NoError(t, err)

	_, err = engine.ProcessTick(domain.Tick{Symbol: "AAPL", Price: 80, Timestamp: at(3)})
	assert.ErrorIs(t, err, domain.ErrStaleTick)
	// The stale print must not have triggered the stop.
	assert.Len(t, engine.OpenPositions(), 1)
}

func TestEvaluate_SignalReversalExit(t *testing.T) {
	engine, sink := newTestEngine(t, Balanced(), 100_000)

	_, err := engine.Evaluate("AAPL", at(0), 100, goodScore(85), lowRisk())
	require.NoError(t, err)

	record, err := engine.Evaluate("AAPL", at(1), 103, goodScore(30), lowRisk())
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, domain.ExitSignalReversal, record.ExitReason)
	assert.Empty(t, engine.OpenPositions())
	require.Len(t, sink.all(), 1)
	assert.Equal(t, domain.ExitSignalReversal, sink.all()[0].ExitReason)
}

func TestEvaluate_DegradedScoreNeverForcesExit(t *testing.T) {
	engine, _ := newTestEngine(t, Balanced(), 100_000)

	_, err := engine.Evaluate("AAPL", at(0), 100, goodScore(85), lowRisk())
	require.NoError(t, err)

	degraded := goodScore(10)
	degraded.Degraded = true
	record, err := engine.Evaluate("AAPL", at(1), 103, degraded, lowRisk())
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.Len(t, engine.OpenPositions(), 1)
}

func TestLifecycle_ExactlyOneTradeRecord(t *testing.T) {
	engine, sink := newTestEngine(t, Balanced(), 100_000)

	_, err := engine.Evaluate("AAPL", at(0), 100, goodScore(85), lowRisk())
	require.NoError(t, err)

	// The stop tick closes once; the follow-up lower tick finds no
	// position and must not double-close.
	first, err := engine.ProcessTick(domain.Tick{Symbol: "AAPL", Price: 91, Timestamp: at(1)})
	require.NoError(t, err)
	require.NotNil(t, first)
	second, err := engine.ProcessTick(domain.Tick{Symbol: "AAPL", Price: 90, Timestamp: at(2)})
	require.NoError(t, err)
	assert.Nil(t, second)
	assert.Len(t, sink.all(), 1)

	// The symbol is immediately available for a fresh lifecycle.
	_, err = engine.Evaluate("AAPL", at(3), 95, goodScore(85), lowRisk())
	require.NoError(t, err)
	assert.Len(t, engine.OpenPositions(), 1)
}

func TestAccount_SettlesThroughLifecycle(t *testing.T) {
	engine, _ := newTestEngine(t, Balanced(), 100_000)
	account := engine.account

	_, err := engine.Evaluate("AAPL", at(0), 100, goodScore(85), lowRisk())
	require.NoError(t, err)
	assert.InDelta(t, 85_000, account.Cash(), 1e-6) // 15k reserved

	record, err := engine.ProcessTick(domain.Tick{Symbol: "AAPL", Price: 120, Timestamp: at(1)})
	require.NoError(t, err)
	require.NotNil(t, record)

	snapshot := account.Snapshot()
	assert.InDelta(t, 103_000, snapshot.Cash, 1e-6) // 85k + 150*120
	assert.InDelta(t, 3_000, snapshot.RealizedPnL, 1e-6)
	assert.Equal(t, 1, snapshot.Trades)
	assert.Equal(t, 1, snapshot.Wins)
	assert.InDelta(t, 1.0, snapshot.WinRate, 1e-9)
}

func TestEngine_ParallelSymbolsDoNotInterfere(t *testing.T) {
	engine, sink := newTestEngine(t, Aggressive(), 10_000_000)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		symbol := fmt.Sprintf("SYM%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Evaluate(symbol, at(0), 100, goodScore(90), lowRisk())
			assert.NoError(t, err)
			_, err = engine.ProcessTick(domain.Tick{Symbol: symbol, Price: 84, Timestamp: at(1)})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Empty(t, engine.OpenPositions())
	assert.Len(t, sink.all(), 8)
	for _, record := range sink.all() {
		assert.Equal(t, domain.ExitStopLoss, record.ExitReason)
	}
}

func TestEngine_OpenValueTracksLifecycle(t *testing.T) {
	engine, _ := newTestEngine(t, Balanced(), 100_000)

	_, err := engine.Evaluate("AAPL", at(0), 100, goodScore(85), lowRisk())
	require.NoError(t, err)
	assert.InDelta(t, 15_000, engine.openEntryValue(), 1e-9)

	// Sizing for the second symbol sees equity = 85k cash + 15k open.
	_, err = engine.Evaluate("MSFT", at(0), 50, goodScore(85), lowRisk())
	require.NoError(t, err)
	require.Len(t, engine.OpenPositions(), 2)
	assert.InDelta(t, 30_000, engine.openEntryValue(), 1e-9)

	_, err = engine.ProcessTick(domain.Tick{Symbol: "AAPL", Price: 120.5, Timestamp: at(1)})
	require.NoError(t, err)
	assert.InDelta(t, 15_000, engine.openEntryValue(), 1e-9)

	_, err = engine.ProcessTick(domain.Tick{Symbol: "MSFT", Price: 40, Timestamp: at(1)})
	require.NoError(t, err)
	assert.InDelta(t, 0, engine.openEntryValue(), 1e-9)
}

func TestEngine_ConcurrentSizingAcrossSymbols(t *testing.T) {
	engine, _ := newTestEngine(t, Aggressive(), 1_000_000)

	// Entries size against the open value aggregate while the other
	// symbol's goroutine opens and closes positions.
	var wg sync.WaitGroup
	for _, symbol := range []string{"AAA", "BBB"} {
		symbol := symbol
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				ts := at(0).Add(time.Duration(i) * time.Second)
				if i%2 == 0 {
					_, err := engine.Evaluate(symbol, ts, 100, goodScore(90), lowRisk())
					assert.NoError(t, err)
				} else {
					_, err := engine.ProcessTick(domain.Tick{Symbol: symbol, Price: 80, Timestamp: ts})
					assert.NoError(t, err)
				}
			}
		}()
	}
	wg.Wait()

	var open float64
	for _, p := range engine.OpenPositions() {
		open += p.EntryPrice * p.Quantity
	}
	assert.InDelta(t, open, engine.openEntryValue(), 1e-6)
}

func TestAccount_ReserveToleratesAllInRoundoff(t *testing.T) {
	account, err := NewAccount(1_000)
	require.NoError(t, err)

	// One ulp above the balance still fills, clamped to the balance.
	require.True(t, account.reserve(math.Nextafter(1_000, 2_000)))
	assert.InDelta(t, 0, account.Cash(), 1e-12)
	assert.GreaterOrEqual(t, account.Cash(), 0.0)

	over, err := NewAccount(1_000)
	require.NoError(t, err)
	assert.False(t, over.reserve(1_001))
}

func TestEvaluate_AllInBudgetOpensDespiteRoundoff(t *testing.T) {
	profile := Balanced()
	profile.MaxPositionPct = 1.0
	engine, _ := newTestEngine(t, profile, 10_000)

	_, err := engine.Evaluate("AAPL", at(0), 30.7, goodScore(85), lowRisk())
	require.NoError(t, err)
	positions := engine.OpenPositions()
	require.Len(t, positions, 1)
	assert.InDelta(t, 10_000/30.7, positions[0].Quantity, 1e-9)
	assert.GreaterOrEqual(t, engine.account.Cash(), 0.0)
	assert.InDelta(t, 0, engine.account.Cash(), 1e-6)
}

func TestProfileByName(t *testing.T) {
	for _, name := range []string{"conservative", "balanced", "aggressive"} {
		profile, err := ProfileByName(name)
		require.NoError(t, err)
		assert.Equal(t, name, profile.Name)
		assert.NoError(t, profile.Validate())
	}

	_, err := ProfileByName("yolo")
	assert.ErrorIs(t, err, domain.ErrStructuralConfig)
}

func TestProfile_Validate(t *testing.T) {
	p := Balanced()
	p.StopLossPct = 0
	assert.ErrorIs(t, p.Validate(), domain.ErrStructuralConfig)

	p = Balanced()
	p.ExitScoreThreshold = 75 // above entry threshold
	assert.ErrorIs(t, p.Validate(), domain.ErrStructuralConfig)
}
