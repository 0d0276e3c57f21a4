package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/meridianlabs/meridian/internal/events"
)

// EventsStreamHandler streams engine events to clients over SSE.
type EventsStreamHandler struct {
	bus     *events.Bus
	log     zerolog.Logger
	mu      sync.Mutex
	clients int
	closed  chan struct{}
	once    sync.Once
}

// NewEventsStreamHandler creates the SSE handler. The bus may be nil,
// in which case streams only carry keepalives.
func NewEventsStreamHandler(bus *events.Bus, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		bus:    bus,
		log:    log.With().Str("component", "events_stream").Logger(),
		closed: make(chan struct{}),
	}
}

// ClientCount reports connected stream clients.
func (h *EventsStreamHandler) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clients
}

// Close disconnects all streams during shutdown.
func (h *EventsStreamHandler) Close() {
	h.once.Do(func() { close(h.closed) })
}

// ServeHTTP handles GET /api/events/stream. An optional ?types=A,B
// query restricts the stream to those event types.
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	var allowed map[events.EventType]bool
	if raw := r.URL.Query().Get("types"); raw != "" {
		allowed = make(map[events.EventType]bool)
		for _, t := range strings.Split(raw, ",") {
			allowed[events.EventType(strings.TrimSpace(t))] = true
		}
	}

	// Buffered so a slow client drops events instead of blocking
	// the emitter.
	eventChan := make(chan *events.Event, 100)
	if h.bus != nil {
		unsubscribe := h.bus.SubscribeAll(func(event *events.Event) {
			if allowed != nil && !allowed[event.Type] {
				return
			}
			select {
			case eventChan <- event:
			default:
				h.log.Warn().Str("event_type", string(event.Type)).Msg("Event channel full, dropping event")
			}
		})
		defer unsubscribe()
	}

	h.mu.Lock()
	h.clients++
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		h.clients--
		h.mu.Unlock()
	}()

	h.log.Info().Str("remote", r.RemoteAddr).Msg("Client connected to event stream")

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			h.log.Info().Str("remote", r.RemoteAddr).Msg("Client disconnected from event stream")
			return
		case <-h.closed:
			return
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case event := <-eventChan:
			payload, err := json.Marshal(event)
			if err != nil {
				h.log.Error().Err(err).Msg("Failed to marshal event")
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
			flusher.Flush()
		}
	}
}
