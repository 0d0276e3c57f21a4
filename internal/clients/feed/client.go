// Package feed subscribes to a normalized market-data websocket and
// hands price bars and ticks to the engine. It is the boundary
// adapter for data acquisition; the engine itself never dials out.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/meridianlabs/meridian/internal/domain"
)

const (
	writeWait   = 10 * time.Second
	dialTimeout = 30 * time.Second

	baseReconnectDelay = 5 * time.Second
	maxReconnectDelay  = 5 * time.Minute
)

// Handlers receive parsed feed messages. Calls arrive from the read
// loop goroutine; handlers must be safe for that.
type Handlers struct {
	OnBar  func(symbol string, bar domain.PriceBar)
	OnTick func(tick domain.Tick)
}

// message is the normalized wire format of the feed.
type message struct {
	Type      string  `json:"type"` // "bar" or "tick"
	Symbol    string  `json:"symbol"`
	Timestamp int64   `json:"ts"` // unix milliseconds
	Open      float64 `json:"open,omitempty"`
	High      float64 `json:"high,omitempty"`
	Low       float64 `json:"low,omitempty"`
	Close     float64 `json:"close,omitempty"`
	Volume    float64 `json:"volume,omitempty"`
	Price     float64 `json:"price,omitempty"`
}

// Client maintains the websocket subscription with reconnection.
type Client struct {
	url      string
	symbols  []string
	handlers Handlers
	log      zerolog.Logger

	mu         sync.RWMutex
	conn       *websocket.Conn
	connCtx    context.Context
	cancelFunc context.CancelFunc
	stopChan   chan struct{}
	stopped    bool
}

// NewClient creates a feed client for the given symbols.
func NewClient(url string, symbols []string, handlers Handlers, log zerolog.Logger) *Client {
	return &Client{
		url:      url,
		symbols:  symbols,
		handlers: handlers,
		log:      log.With().Str("component", "feed_client").Logger(),
		stopChan: make(chan struct{}),
	}
}

// Start dials the feed and launches the read loop. A failed initial
// dial falls back to background reconnection.
func (c *Client) Start() error {
	if err := c.connect(); err != nil {
		c.log.Warn().Err(err).Msg("initial feed connection failed, retrying in background")
		go c.reconnectLoop()
		return err
	}

	c.mu.RLock()
	ctx := c.connCtx
	c.mu.RUnlock()
	go c.readLoop(ctx)
	return nil
}

// Stop closes the subscription for good.
func (c *Client) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	c.mu.Unlock()

	close(c.stopChan)
	return c.disconnect()
}

func (c *Client) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	dialCtx, dialCancel := context.WithTimeout(context.Background(), dialTimeout)
	defer dialCancel()

	conn, _, err := websocket.Dial(dialCtx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dialing feed: %w", err)
	}

	connCtx, connCancel := context.WithCancel(context.Background())
	c.conn = conn
	c.connCtx = connCtx
	c.cancelFunc = connCancel

	if err := c.subscribe(connCtx); err != nil {
		connCancel()
		conn.Close(websocket.StatusNormalClosure, "subscribe failed")
		c.conn = nil
		c.connCtx = nil
		c.cancelFunc = nil
		return fmt.Errorf("subscribing to feed: %w", err)
	}

	c.log.Info().Str("url", c.url).Int("symbols", len(c.symbols)).Msg("feed connected")
	return nil
}

func (c *Client) disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	if c.cancelFunc != nil {
		c.cancelFunc()
		c.cancelFunc = nil
	}
	err := c.conn.Close(websocket.StatusNormalClosure, "")
	c.conn = nil
	c.connCtx = nil
	return err
}

func (c *Client) subscribe(ctx context.Context) error {
	payload := map[string]any{"action": "subscribe", "symbols": c.symbols}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling subscription: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	return c.conn.Write(writeCtx, websocket.MessageText, data)
}

func (c *Client) readLoop(ctx context.Context) {
	defer func() {
		c.mu.RLock()
		stopped := c.stopped
		c.mu.RUnlock()
		if !stopped {
			go c.reconnectLoop()
		}
	}()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn == nil {
			return
		}

		_, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || ctx.Err() != nil {
				return
			}
			c.log.Warn().Err(err).Msg("feed read failed, reconnecting")
			_ = c.disconnect()
			return
		}
		c.dispatch(data)
	}
}

// dispatch parses one wire message. Malformed messages are logged and
// dropped; the feed must not be able to take the engine down.
func (c *Client) dispatch(data []byte) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.log.Warn().Err(err).Msg("malformed feed message dropped")
		return
	}
	if msg.Symbol == "" {
		return
	}
	ts := time.UnixMilli(msg.Timestamp).UTC()

	switch msg.Type {
	case "bar":
		if c.handlers.OnBar == nil {
			return
		}
		bar := domain.PriceBar{
			Timestamp: ts,
			Open:      msg.Open,
			High:      msg.High,
			Low:       msg.Low,
			Close:     msg.Close,
			Volume:    msg.Volume,
		}
		if err := domain.ValidateBars([]domain.PriceBar{bar}); err != nil {
			c.log.Warn().Err(err).Str("symbol", msg.Symbol).Msg("invalid bar dropped")
			return
		}
		c.handlers.OnBar(msg.Symbol, bar)
	case "tick":
		if c.handlers.OnTick == nil || msg.Price <= 0 {
			return
		}
		c.handlers.OnTick(domain.Tick{Symbol: msg.Symbol, Price: msg.Price, Timestamp: ts})
	default:
		c.log.Debug().Str("type", msg.Type).Msg("unknown feed message type")
	}
}

// reconnectLoop retries with exponential backoff until stopped.
func (c *Client) reconnectLoop() {
	delay := baseReconnectDelay
	for {
		select {
		case <-c.stopChan:
			return
		case <-time.After(delay):
		}

		if err := c.connect(); err != nil {
			c.log.Warn().Err(err).Dur("next_retry", delay).Msg("feed reconnect failed")
			delay *= 2
			if delay > maxReconnectDelay {
				delay = maxReconnectDelay
			}
			continue
		}

		c.mu.RLock()
		ctx := c.connCtx
		c.mu.RUnlock()
		go c.readLoop(ctx)
		return
	}
}
