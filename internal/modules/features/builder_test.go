package features

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianlabs/meridian/internal/domain"
)

func testBars(n int, price func(i int) float64) []domain.PriceBar {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.PriceBar, n)
	for i := range bars {
		p := price(i)
		bars[i] = domain.PriceBar{
			Timestamp: start.AddDate(0, 0, i),
			Open:      p * 0.995,
			High:      p * 1.01,
			Low:       p * 0.99,
			Close:     p,
			Volume:    1_000_000 + float64(i%7)*50_000,
		}
	}
	return bars
}

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	b, err := NewBuilder(DefaultConfig(), zerolog.Nop())
	require.NoError(t, err)
	return b
}

func TestBuild_InsufficientHistory(t *testing.T) {
	b := newTestBuilder(t)
	bars := testBars(b.Warmup(), func(i int) float64 { return 100 })

	_, err := b.Build(bars)
	assert.ErrorIs(t, err, domain.ErrInsufficientHistory)
}

func TestBuild_InvalidBarsRejected(t *testing.T) {
	b := newTestBuilder(t)
	bars := testBars(80, func(i int) float64 { return 100 })
	bars[10].Close = -1

	_, err := b.Build(bars)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBuild_VectorShapeIsStable(t *testing.T) {
	b := newTestBuilder(t)
	bars := testBars(90, func(i int) float64 { return 100 + float64(i)*0.3 })

	vectors, err := b.Build(bars)
	require.NoError(t, err)
	require.Len(t, vectors, 90-b.Warmup())

	names := b.Names()
	for _, v := range vectors {
		assert.Equal(t, names, v.Names())
		assert.Equal(t, len(names), v.Len())
		for _, value := range v.Values() {
			assert.False(t, math.IsNaN(value))
			assert.False(t, math.IsInf(value, 0))
		}
	}
}

func TestBuild_VectorsAlignToBars(t *testing.T) {
	b := newTestBuilder(t)
	bars := testBars(80, func(i int) float64 { return 50 + float64(i) })

	vectors, err := b.Build(bars)
	require.NoError(t, err)
	assert.Equal(t, bars[b.Warmup()].Timestamp, vectors[0].Timestamp)
	assert.Equal(t, bars[len(bars)-1].Timestamp, vectors[len(vectors)-1].Timestamp)
}

func TestBuild_KnownValues(t *testing.T) {
	b := newTestBuilder(t)
	bars := testBars(80, func(i int) float64 { return 100 })

	vectors, err := b.Build(bars)
	require.NoError(t, err)
	last := vectors[len(vectors)-1]

	// Flat prices: no returns, price sits on its averages.
	r1, ok := last.Value("return_1")
	require.True(t, ok)
	assert.InDelta(t, 0, r1, 1e-12)

	smaRatio, ok := last.Value("sma_20_ratio")
	require.True(t, ok)
	assert.InDelta(t, 1, smaRatio, 1e-9)

	pos, ok := last.Value("boll_position")
	require.True(t, ok)
	assert.InDelta(t, 0.5, pos, 1e-9)

	vol, ok := last.Value("volatility_20")
	require.True(t, ok)
	assert.InDelta(t, 0, vol, 1e-12)
}

func TestLatest(t *testing.T) {
	b := newTestBuilder(t)
	bars := testBars(80, func(i int) float64 { return 100 + math.Sin(float64(i)/5)*4 })

	latest, err := b.Latest(bars)
	require.NoError(t, err)
	assert.Equal(t, bars[len(bars)-1].Timestamp, latest.Timestamp)
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MACDFast = 30 // now >= slow
	err := cfg.Validate()
	assert.ErrorIs(t, err, domain.ErrStructuralConfig)

	cfg = DefaultConfig()
	cfg.RSIPeriod = 0
	assert.ErrorIs(t, cfg.Validate(), domain.ErrStructuralConfig)
}

func TestConfig_WarmupCoversMACD(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, cfg.MACDSlow+cfg.MACDSignal-2, cfg.Warmup())
}
