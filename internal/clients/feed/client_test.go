package feed

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianlabs/meridian/internal/domain"
)

type capture struct {
	mu    sync.Mutex
	bars  []domain.PriceBar
	ticks []domain.Tick
}

func (c *capture) handlers() Handlers {
	return Handlers{
		OnBar: func(symbol string, bar domain.PriceBar) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.bars = append(c.bars, bar)
		},
		OnTick: func(tick domain.Tick) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.ticks = append(c.ticks, tick)
		},
	}
}

func newTestClient(c *capture) *Client {
	return NewClient("ws://localhost:0", []string{"AAPL"}, c.handlers(), zerolog.Nop())
}

func TestDispatch_Bar(t *testing.T) {
	cap := &capture{}
	client := newTestClient(cap)

	client.dispatch([]byte(`{"type":"bar","symbol":"AAPL","ts":1767225600000,"open":100,"high":102,"low":99,"close":101,"volume":500000}`))

	require.Len(t, cap.bars, 1)
	bar := cap.bars[0]
	assert.Equal(t, 101.0, bar.Close)
	assert.Equal(t, time.UnixMilli(1767225600000).UTC(), bar.Timestamp)
	assert.Empty(t, cap.ticks)
}

func TestDispatch_Tick(t *testing.T) {
	cap := &capture{}
	client := newTestClient(cap)

	client.dispatch([]byte(`{"type":"tick","symbol":"AAPL","ts":1767225600000,"price":101.25}`))

	require.Len(t, cap.ticks, 1)
	assert.Equal(t, "AAPL", cap.ticks[0].Symbol)
	assert.Equal(t, 101.25, cap.ticks[0].Price)
}

func TestDispatch_InvalidBarDropped(t *testing.T) {
	cap := &capture{}
	client := newTestClient(cap)

	// high below low
	client.dispatch([]byte(`{"type":"bar","symbol":"AAPL","ts":1767225600000,"open":100,"high":99,"low":100,"close":100,"volume":1}`))
	assert.Empty(t, cap.bars)
}

func TestDispatch_MalformedAndUnknownDropped(t *testing.T) {
	cap := &capture{}
	client := newTestClient(cap)

	client.dispatch([]byte(`{not json`))
	client.dispatch([]byte(`{"type":"heartbeat","symbol":"AAPL"}`))
	client.dispatch([]byte(`{"type":"tick","symbol":"","ts":1,"price":1}`))
	client.dispatch([]byte(`{"type":"tick","symbol":"AAPL","ts":1,"price":0}`))

	assert.Empty(t, cap.bars)
	assert.Empty(t, cap.ticks)
}

func TestStop_Idempotent(t *testing.T) {
	client := newTestClient(&capture{})
	require.NoError(t, client.Stop())
	require.NoError(t, client.Stop())
}
