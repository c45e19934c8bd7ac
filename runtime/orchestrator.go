// Package runtime handles event propagation between the chat service and the live connections.
// It orchestrates the server side without containing business logic or domain rules.
package runtime

import (
	"channel-chat/contract"
	"channel-chat/domain/chat"
	"channel-chat/observability"
	"channel-chat/runtime/workers"
	"context"
	"log/slog"
	"sync"
	"time"
)

type Orchestrator struct {
	mu         sync.Mutex
	log        *slog.Logger
	supervisor contract.ISupervisor
	registry   *Registry
	fanout     *workers.EventFanout
	metrics    *observability.Metrics
	workers    []contract.Worker
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor, registry *Registry,
	metrics *observability.Metrics, bufferSize int, sinkTimeout time.Duration) *Orchestrator {
	return &Orchestrator{
		log:        log,
		supervisor: supervisor,
		registry:   registry,
		fanout:     workers.NewEventFanout(log, registry, metrics, bufferSize, sinkTimeout),
		metrics:    metrics,
	}
}

// Publisher is where the chat service pushes its domain events.
func (o *Orchestrator) Publisher() contract.EventSink {
	return o.fanout
}

// Add registers extra workers supervised next to the fanout.
func (o *Orchestrator) Add(worker ...contract.Worker) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.workers = append(o.workers, worker...)
}

func (o *Orchestrator) RegisterParticipant(pID string, roomID chat.ChannelID, sink contract.EventSink) {
	o.registry.Subscribe(pID, roomID, sink)
	o.observe()
}

func (o *Orchestrator) UnregisterParticipant(pID string, roomID chat.ChannelID) {
	o.registry.Unsubscribe(pID, roomID)
	o.observe()
}

// DisconnectParticipant drops every room subscription of a closed connection.
func (o *Orchestrator) DisconnectParticipant(pID string) {
	o.registry.UnsubscribeAll(pID)
	o.observe()
}

// Start registers the workers to the supervisor and blocks until they all stopped.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	o.supervisor.Add(o.fanout)
	o.supervisor.Add(o.workers...)
	o.mu.Unlock()

	o.log.Info("Starting orchestrator and all supervised workers")
	o.supervisor.Run(ctx)
}

// Stop cancels the supervision context, workers stop blocking on their channels.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}

func (o *Orchestrator) observe() {
	if o.metrics != nil {
		o.metrics.RoomMembers.Set(float64(o.registry.Subscriptions()))
	}
}
