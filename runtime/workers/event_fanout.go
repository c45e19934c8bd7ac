package workers

import (
	"channel-chat/contract"
	"channel-chat/domain/event"
	"channel-chat/observability"
	"context"
	"log/slog"
	"time"
)

// EventFanout broadcasts the domain events of the chat service to the
// connections subscribed to the room of each event.
//
// Events are handled one at a time and every sink is called synchronously,
// so a subscriber sees the events of a channel in publication order.
// A slow sink is given sinkTimeout and then skipped for that event.
type EventFanout struct {
	log         *slog.Logger
	events      chan event.DomainEvent
	registry    contract.IRegistry
	metrics     *observability.Metrics
	sinkTimeout time.Duration
}

func NewEventFanout(log *slog.Logger, registry contract.IRegistry, metrics *observability.Metrics,
	bufferSize int, sinkTimeout time.Duration) *EventFanout {
	return &EventFanout{
		log:         log,
		events:      make(chan event.DomainEvent, bufferSize),
		registry:    registry,
		metrics:     metrics,
		sinkTimeout: sinkTimeout,
	}
}

// Consume queues an event for broadcast, it blocks while the buffer is full.
func (w *EventFanout) Consume(ctx context.Context, evt event.DomainEvent) error {
	select {
	case w.events <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt := <-w.events:
			w.Fanout(ctx, evt)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping event fanout")
			return nil
		}
	}
}

// Fanout One sink for each subscriber of the room
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	sinks := w.registry.GetSinksForRoom(evt.ChannelID())
	if w.metrics != nil {
		w.metrics.EventsPublished.WithLabelValues(event.Name(evt)).Inc()
	}
	for _, sink := range sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		err := sink.Consume(sinkCtx, evt)
		cancel()
		if err != nil {
			w.log.Debug("Sink failed to consume event",
				"channel_id", evt.ChannelID(), "type", event.Name(evt), "error", err)
			if w.metrics != nil {
				w.metrics.SinkFailures.Inc()
			}
		}
	}
}
