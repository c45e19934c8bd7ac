package workers

import (
	"channel-chat/contract"
	"channel-chat/domain/chat"
	"channel-chat/domain/event"
	"channel-chat/mocks"
	"channel-chat/observability"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func created(channel chat.ChannelID, id chat.MessageID) event.MessageCreated {
	return event.MessageCreated{Message: chat.Message{ID: id, ChannelID: channel}}
}

func TestEventFanoutWorker_Fanout(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockSink := mocks.NewMockEventSink(ctrl)
	roomSinks := []contract.EventSink{mockSink, mockSink}
	metrics := observability.NewMetrics()

	fanoutWorker := NewEventFanout(log, mockRegistry, metrics, 8, time.Second)

	// Given two sinks subscribed to the room
	mockRegistry.EXPECT().GetSinksForRoom(chat.ChannelID("general")).Return(roomSinks).Times(1)
	// Then both are consumed
	evt := created("general", "m1")
	mockSink.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(2)

	// When an event is handled by the worker
	fanoutWorker.Fanout(context.Background(), evt)

	req.Equal(float64(1), testutil.ToFloat64(metrics.EventsPublished.WithLabelValues("message_created")))
	req.Equal(float64(0), testutil.ToFloat64(metrics.SinkFailures))
}

func TestEventFanoutWorker_SinkTimeout(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	slowSink := mocks.NewMockEventSink(ctrl)
	fastSink := mocks.NewMockEventSink(ctrl)
	metrics := observability.NewMetrics()

	sinkTimeout := 20 * time.Millisecond
	fanoutWorker := NewEventFanout(log, mockRegistry, metrics, 8, sinkTimeout)

	// Given a slow sink before a fast one
	mockRegistry.EXPECT().GetSinksForRoom(gomock.Any()).Return([]contract.EventSink{slowSink, fastSink}).Times(1)
	slowSink.EXPECT().Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(
			func(ctx context.Context, evt event.DomainEvent) error {
				<-ctx.Done()     // Waiting for timeout to trigger cancellation
				return ctx.Err() // Sending back "context deadline exceeded"
			},
		).Times(1)
	fastSink.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	// When an event is handled by the worker
	start := time.Now()
	fanoutWorker.Fanout(context.Background(), created("general", "m1"))

	// Then the slow sink is skipped after the timeout and the fast one still served
	req.Less(time.Since(start), time.Second)
	req.Equal(float64(1), testutil.ToFloat64(metrics.SinkFailures))
}

func TestEventFanoutWorker_Run_Preserves_Order(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockSink := mocks.NewMockEventSink(ctrl)
	fanoutWorker := NewEventFanout(log, mockRegistry, nil, 8, time.Second)

	received := make(chan chat.MessageID, 3)
	mockRegistry.EXPECT().GetSinksForRoom(chat.ChannelID("general")).Return([]contract.EventSink{mockSink}).Times(3)
	mockSink.EXPECT().Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, evt event.DomainEvent) error {
			received <- evt.(event.MessageCreated).Message.ID
			return nil
		}).Times(3)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fanoutWorker.Run(ctx) }()

	// Given events published in order
	for _, id := range []chat.MessageID{"m1", "m2", "m3"} {
		req.NoError(fanoutWorker.Consume(context.Background(), created("general", id)))
	}

	// Then they are delivered in the same order
	for _, want := range []chat.MessageID{"m1", "m2", "m3"} {
		select {
		case got := <-received:
			req.Equal(want, got)
		case <-time.After(time.Second):
			req.Fail("event not delivered in time")
		}
	}

	// And the worker stops with its context
	cancel()
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		req.Fail("worker did not stop")
	}
}

func TestEventFanoutWorker_Consume_Honours_Context(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	fanoutWorker := NewEventFanout(logs.GetLoggerFromLevel(slog.LevelDebug), mocks.NewMockIRegistry(ctrl), nil, 0, time.Second)

	// Given nobody drains an unbuffered worker
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	// When publishing
	err := fanoutWorker.Consume(ctx, created("general", "m1"))

	// Then the caller is released by its context
	req.ErrorIs(err, context.DeadlineExceeded)
}
