package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Handler receives events from the bus. Handlers must not block; the
// bus dispatches synchronously on the emitter's goroutine.
type Handler func(e *Event)

// Bus fans events out to subscribers by type. Safe for concurrent use.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Handler
	all         map[int]Handler
	nextID      int
	log         zerolog.Logger
}

// NewBus creates a new event bus.
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		subscribers: make(map[EventType][]Handler),
		all:         make(map[int]Handler),
		log:         log.With().Str("service", "event_bus").Logger(),
	}
}

// Subscribe registers a handler for one event type.
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeAll registers a handler for every event type. The returned
// function removes the subscription; SSE streams call it on disconnect.
func (b *Bus) SubscribeAll(handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.all[id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.all, id)
	}
}

// Publish dispatches an event to its subscribers.
func (b *Bus) Publish(event *Event) {
	b.mu.RLock()
	typed := b.subscribers[event.Type]
	all := make([]Handler, 0, len(b.all))
	for _, handler := range b.all {
		all = append(all, handler)
	}
	b.mu.RUnlock()

	for _, handler := range typed {
		handler(event)
	}
	for _, handler := range all {
		handler(event)
	}
}

// Manager handles event emission and logging.
type Manager struct {
	bus *Bus
	log zerolog.Logger
}

// NewManager creates a new event manager.
func NewManager(bus *Bus, log zerolog.Logger) *Manager {
	return &Manager{
		bus: bus,
		log: log.With().Str("service", "events").Logger(),
	}
}

// Emit publishes a typed event to the bus and logs it.
func (m *Manager) Emit(module string, data EventData) {
	event := &Event{
		Type:      data.EventType(),
		Timestamp: time.Now().UTC(),
		Module:    module,
		Data:      data,
	}
	m.bus.Publish(event)

	eventJSON, _ := json.Marshal(event)
	m.log.Info().
		Str("event_type", string(event.Type)).
		Str("module", module).
		RawJSON("event", eventJSON).
		Msg("Event emitted")
}

// EmitError publishes an error event.
func (m *Manager) EmitError(module string, err error, context string) {
	m.Emit(module, &ErrorEventData{Error: err.Error(), Context: context})
}
