// Package stream keeps the push connection of one channel session alive.
// It dials, joins the channel room, pumps events to a sink and reconnects
// with a bounded backoff when the transport drops.
package stream

import (
	"channel-chat/contract"
	"channel-chat/domain/chat"
	"channel-chat/domain/event"
	"channel-chat/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const defaultLeaveTimeout = 2 * time.Second

// LiveStream owns exactly one physical connection at a time, for one channel.
// Room membership does not survive a reconnect, the room is joined again on every connection.
type LiveStream struct {
	log          *slog.Logger
	dialer       contract.IStreamDialer
	channelID    chat.ChannelID
	sink         contract.EventSink
	telemetry    event.Handler
	backoff      Backoff
	leaveTimeout time.Duration

	mu      sync.RWMutex
	state   chat.ConnectionState
	err     error
	started bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewLiveStream(log *slog.Logger, dialer contract.IStreamDialer, channelID chat.ChannelID,
	sink contract.EventSink, telemetry event.Handler, backoff Backoff) *LiveStream {
	if telemetry == nil {
		telemetry = event.Discard{}
	}
	return &LiveStream{
		log:          log,
		dialer:       dialer,
		channelID:    channelID,
		sink:         sink,
		telemetry:    telemetry,
		backoff:      backoff,
		leaveTimeout: defaultLeaveTimeout,
		state:        chat.Disconnected,
		done:         make(chan struct{}),
	}
}

// Start launches the connection loop. Calling it more than once, or after Close, does nothing.
func (s *LiveStream) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.closed {
		return
	}
	s.started = true
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go func() {
		defer close(s.done)
		s.run(runCtx)
	}()
}

// Close leaves the room, tears the connection down and waits for the loop to exit.
func (s *LiveStream) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return s.wait(ctx)
	}
	s.closed = true
	if !s.started {
		close(s.done)
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	return s.wait(ctx)
}

func (s *LiveStream) wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the loop exited, after Close or when reconnects are exhausted.
func (s *LiveStream) Done() <-chan struct{} {
	return s.done
}

func (s *LiveStream) State() chat.ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Err is set when the loop gave up reconnecting.
func (s *LiveStream) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *LiveStream) run(ctx context.Context) {
	attempt := 0
	for {
		conn, err := s.connect(ctx)
		if err == nil {
			joinedAt := time.Now()
			err = s.pump(ctx, conn)
			s.disconnect(ctx, conn)
			if s.backoff.Healthy(time.Since(joinedAt)) {
				attempt = 0
			}
		}
		s.setState(chat.Disconnected)
		if ctx.Err() != nil {
			s.log.Debug("Stream stopped", "channel_id", s.channelID)
			return
		}

		attempt++
		if s.backoff.Exhausted(attempt) {
			s.mu.Lock()
			s.err = fmt.Errorf("%w after %d attempts: %w", errors.ErrStreamDisconnected, attempt-1, err)
			s.mu.Unlock()
			s.log.Error("Giving up reconnecting", "channel_id", s.channelID, "error", err)
			return
		}

		delay := s.backoff.Delay(attempt)
		s.log.Warn("Stream lost, reconnecting",
			"channel_id", s.channelID, "attempt", attempt, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// connect runs Disconnected -> Connecting -> Connected -> Joined.
func (s *LiveStream) connect(ctx context.Context) (contract.IStreamConnection, error) {
	s.setState(chat.Connecting)
	conn, err := s.dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}
	s.setState(chat.Connected)

	if err := conn.JoinRoom(ctx, s.channelID); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("join room %s: %w", s.channelID, err)
	}
	s.setState(chat.Joined)
	s.log.Info("Joined channel room", "channel_id", s.channelID)
	return conn, nil
}

func (s *LiveStream) pump(ctx context.Context, conn contract.IStreamConnection) error {
	events := conn.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-events:
			if !ok {
				return errors.ErrStreamDisconnected
			}
			s.deliver(ctx, evt)
		}
	}
}

// deliver checks the channel reference itself, a subscription from a room just left may still deliver.
func (s *LiveStream) deliver(ctx context.Context, evt event.DomainEvent) {
	if evt == nil {
		return
	}
	if evt.ChannelID() != s.channelID {
		s.telemetry.Handle(event.NewEvent(event.StaleEventDroppedType, event.StaleEventDropped{
			Expected: s.channelID,
			Received: evt.ChannelID(),
		}))
		return
	}
	if err := s.sink.Consume(ctx, evt); err != nil {
		s.log.Debug("Event not consumed", "channel_id", s.channelID, "error", err)
	}
}

// disconnect leaves the room on a deliberate stop only, a dropped transport has no room left.
func (s *LiveStream) disconnect(ctx context.Context, conn contract.IStreamConnection) {
	if ctx.Err() != nil {
		leaveCtx, cancel := context.WithTimeout(context.Background(), s.leaveTimeout)
		if err := conn.LeaveRoom(leaveCtx, s.channelID); err != nil {
			s.log.Debug("Leave room failed", "channel_id", s.channelID, "error", err)
		}
		cancel()
	}
	if err := conn.Close(); err != nil {
		s.log.Debug("Close connection failed", "channel_id", s.channelID, "error", err)
	}
}

func (s *LiveStream) setState(state chat.ConnectionState) {
	s.mu.Lock()
	from := s.state
	s.state = state
	s.mu.Unlock()

	if from != state {
		s.telemetry.Handle(event.NewEvent(event.ConnectionStateChangedType, event.ConnectionStateChanged{
			Channel: s.channelID,
			From:    from,
			To:      state,
		}))
	}
}
