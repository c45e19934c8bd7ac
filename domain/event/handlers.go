package event

import (
	"channel-chat/errors"
	"log/slog"
	"sync"
)

// Handler Each kind of event has his own handler
// Based on the Chain of responsibility pattern
type Handler interface {
	Handle(event Event)
}

// Counter counts technical events per type.
type Counter struct {
	mu     sync.RWMutex
	counts map[Type]uint64
}

func NewCounter() *Counter {
	return &Counter{counts: make(map[Type]uint64)}
}

func (c *Counter) Increment(t Type) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[t]++
}

func (c *Counter) Get(t Type) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counts[t]
}

// Chain forwards every event to all its handlers in order.
type Chain []Handler

func (c Chain) Handle(event Event) {
	for _, h := range c {
		h.Handle(event)
	}
}

// TelemetryHandler logs the technical events of a session and counts them.
// StaleEvent and OrphanPatch are expected conditions, they are logged at debug level only.
type TelemetryHandler struct {
	log     *slog.Logger
	counter *Counter
}

func NewTelemetryHandler(log *slog.Logger, counter *Counter) *TelemetryHandler {
	return &TelemetryHandler{log: log, counter: counter}
}

func (h *TelemetryHandler) Handle(event Event) {
	switch event.Type {
	case ConnectionStateChangedType:
		payload, ok := event.Payload.(ConnectionStateChanged)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error(), "type", event.Type)
			return
		}
		h.log.Info("Connection state changed",
			"channel_id", payload.Channel,
			"from", payload.From.String(),
			"to", payload.To.String())
	case SessionStateChangedType:
		payload, ok := event.Payload.(SessionStateChanged)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error(), "type", event.Type)
			return
		}
		h.log.Info("Session state changed",
			"channel_id", payload.Channel,
			"from", payload.From.String(),
			"to", payload.To.String())
	case StaleEventDroppedType:
		payload, ok := event.Payload.(StaleEventDropped)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error(), "type", event.Type)
			return
		}
		h.log.Debug(errors.ErrStaleEvent.Error(),
			"expected", payload.Expected,
			"received", payload.Received)
	case OrphanPatchDroppedType:
		payload, ok := event.Payload.(OrphanPatchDropped)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error(), "type", event.Type)
			return
		}
		h.log.Debug(errors.ErrOrphanPatch.Error(),
			"channel_id", payload.Channel,
			"message_id", payload.MessageID)
	case HistoryLoadFailedType:
		payload, ok := event.Payload.(HistoryLoadFailed)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error(), "type", event.Type)
			return
		}
		h.log.Warn("History load failed, showing an empty timeline",
			"channel_id", payload.Channel,
			"error", payload.Err)
	default:
		return
	}
	h.counter.Increment(event.Type)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Handle(Event) {}
