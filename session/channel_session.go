// Package session orchestrates everything a client does while viewing one channel.
//
// A session owns a timeline, a membership gate and a live stream. One event loop
// goroutine is the only writer of the timeline: history results and stream events
// are sent to it over channels, so events keep flowing while the history fetch is
// still outstanding. Writes (post, delete, react, join, leave) run on the caller
// goroutine and never touch the timeline, the stream echo does.
package session

import (
	"channel-chat/contract"
	"channel-chat/domain/chat"
	"channel-chat/domain/event"
	"channel-chat/errors"
	"channel-chat/history"
	"channel-chat/membership"
	"channel-chat/projection"
	"channel-chat/stream"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

type Config struct {
	HistoryLimit      int
	Backoff           stream.Backoff
	MaxPendingPatches int
	PendingPatchTTL   time.Duration
	EventBufferSize   int
	SweepInterval     time.Duration
}

func DefaultConfig() Config {
	return Config{
		HistoryLimit:      history.DefaultLimit,
		Backoff:           stream.DefaultBackoff(),
		MaxPendingPatches: projection.DefaultMaxPendingPatches,
		PendingPatchTTL:   projection.DefaultPendingPatchTTL,
		EventBufferSize:   128,
		SweepInterval:     time.Second,
	}
}

type historyResult struct {
	messages []chat.Message
	err      error
}

type ChannelSession struct {
	log       *slog.Logger
	api       contract.IChannelAPI
	channelID chat.ChannelID
	cfg       Config
	telemetry event.Handler

	gate     *membership.Gate
	loader   history.Loader
	timeline *projection.Timeline
	stream   *stream.LiveStream

	events     chan event.DomainEvent
	history    chan historyResult
	membership chan error
	updates    chan struct{}
	active     chan struct{}
	loopDone   chan struct{}

	mu         sync.RWMutex
	state      chat.SessionState
	opened     bool
	historyErr error
	silenced   bool
	cancel     context.CancelFunc
	closeOnce  sync.Once
}

func NewChannelSession(log *slog.Logger, api contract.IChannelAPI, dialer contract.IStreamDialer,
	channelID chat.ChannelID, identity chat.Identity, cfg Config, telemetry event.Handler) *ChannelSession {
	if telemetry == nil {
		telemetry = event.Discard{}
	}
	if cfg.EventBufferSize <= 0 {
		cfg.EventBufferSize = DefaultConfig().EventBufferSize
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultConfig().SweepInterval
	}

	s := &ChannelSession{
		log:       log,
		api:       api,
		channelID: channelID,
		cfg:       cfg,
		telemetry: telemetry,
		gate:      membership.NewGate(log, api, channelID, identity),
		loader:    history.NewLoader(log, api, cfg.HistoryLimit),
		timeline: projection.NewTimeline(log, channelID,
			projection.WithMaxPendingPatches(cfg.MaxPendingPatches),
			projection.WithPendingPatchTTL(cfg.PendingPatchTTL)),
		events:     make(chan event.DomainEvent, cfg.EventBufferSize),
		history:    make(chan historyResult, 1),
		membership: make(chan error, 1),
		updates:    make(chan struct{}, 1),
		active:     make(chan struct{}),
		loopDone:   make(chan struct{}),
		state:      chat.Opening,
	}
	s.stream = stream.NewLiveStream(log, dialer, channelID, sink{s}, telemetry, cfg.Backoff)
	return s
}

// sink hands stream events over to the event loop.
type sink struct {
	s *ChannelSession
}

func (k sink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case k.s.events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Open starts the membership refresh, the history load and the stream concurrently.
// ctx bounds the whole life of the session.
func (s *ChannelSession) Open(ctx context.Context) {
	s.mu.Lock()
	if s.opened || s.state != chat.Opening {
		s.mu.Unlock()
		return
	}
	s.opened = true
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	s.log.Info("Opening channel session", "channel_id", s.channelID)

	go func() {
		_, err := s.gate.Refresh(runCtx)
		s.membership <- err
	}()
	go func() {
		messages, err := s.loader.LoadLatest(runCtx, s.channelID)
		if runCtx.Err() != nil {
			return
		}
		select {
		case s.history <- historyResult{messages: messages, err: err}:
		case <-runCtx.Done():
		}
	}()
	s.stream.Start(runCtx)
	go s.loop(runCtx)
}

func (s *ChannelSession) loop(ctx context.Context) {
	defer close(s.loopDone)

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	streamDone := s.stream.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case res := <-s.history:
			s.seed(res)
			s.activate()
		case err := <-s.membership:
			if err != nil {
				s.log.Warn("Membership refresh failed", "channel_id", s.channelID, "error", err)
			}
			s.notify()
		case evt := <-s.events:
			s.apply(evt)
		case now := <-ticker.C:
			s.sweep(now)
		case <-streamDone:
			streamDone = nil
			if err := s.stream.Err(); err != nil {
				s.log.Error("Live stream gave up", "channel_id", s.channelID, "error", err)
			}
			s.notify()
		}
	}
}

func (s *ChannelSession) seed(res historyResult) {
	if s.State() >= chat.Closing {
		return
	}
	messages := res.messages
	if res.err != nil {
		s.mu.Lock()
		s.historyErr = res.err
		s.mu.Unlock()
		s.telemetry.Handle(event.NewEvent(event.HistoryLoadFailedType, event.HistoryLoadFailed{
			Channel: s.channelID,
			Err:     res.err,
		}))
		messages = nil
	}
	if err := s.timeline.Seed(messages); err != nil {
		s.log.Debug("Timeline seed ignored", "channel_id", s.channelID, "error", err)
		return
	}
	s.log.Debug("Timeline seeded", "channel_id", s.channelID, "count", len(messages), "visible", s.timeline.Len())
	s.notify()
}

// activate only waits for the seed, membership and stream readiness may come later.
func (s *ChannelSession) activate() {
	if s.transition(chat.Opening, chat.Active) != nil {
		return
	}
	close(s.active)
	s.log.Info("Channel session active", "channel_id", s.channelID)
}

// apply is only called from the event loop.
func (s *ChannelSession) apply(evt event.DomainEvent) {
	if s.State() >= chat.Closing {
		return
	}
	if evt.ChannelID() != s.channelID {
		s.telemetry.Handle(event.NewEvent(event.StaleEventDroppedType, event.StaleEventDropped{
			Expected: s.channelID,
			Received: evt.ChannelID(),
		}))
		return
	}

	changed := false
	switch e := evt.(type) {
	case event.MessageCreated:
		changed = s.timeline.Append(e.Message)
	case event.MessageDeleted:
		changed = s.timeline.Remove(e.MessageID)
	case event.ReactionUpdated:
		changed = s.timeline.PatchReactions(e.Message.ID, e.Message.Reactions)
		if !changed {
			s.log.Debug("Reaction patch buffered", "channel_id", s.channelID, "message_id", e.Message.ID)
		}
	default:
		s.log.Debug("Ignoring unknown stream event", "channel_id", s.channelID, "type", fmt.Sprintf("%T", evt))
	}
	if changed {
		s.notify()
	}
}

func (s *ChannelSession) sweep(now time.Time) {
	for _, id := range s.timeline.DropExpiredPatches(now) {
		s.telemetry.Handle(event.NewEvent(event.OrphanPatchDroppedType, event.OrphanPatchDropped{
			Channel:   s.channelID,
			MessageID: id,
		}))
	}
}

// WaitActive blocks until the session is active.
// It returns ErrSessionNotActive when the session was closed first.
func (s *ChannelSession) WaitActive(ctx context.Context) error {
	select {
	case <-s.active:
		if s.State() != chat.Active {
			return errors.ErrSessionNotActive
		}
		return nil
	case <-s.loopDone:
		return errors.ErrSessionNotActive
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Post sends a message. Nothing is inserted locally, the message shows up with the stream echo.
func (s *ChannelSession) Post(ctx context.Context, text string) (chat.Message, error) {
	if s.State() != chat.Active {
		return chat.Message{}, errors.ErrSessionNotActive
	}
	if !s.gate.IsMember() {
		return chat.Message{}, errors.ErrNotMember
	}
	if s.stream.State() != chat.Joined {
		return chat.Message{}, errors.ErrStreamDisconnected
	}
	if strings.TrimSpace(text) == "" {
		return chat.Message{}, errors.ErrEmptyMessage
	}

	message, err := s.api.PostMessage(ctx, s.channelID, text)
	if err != nil {
		s.log.Error("Post message failed", "channel_id", s.channelID, "error", err)
		return chat.Message{}, fmt.Errorf("post message: %w", err)
	}
	s.log.Debug("Message posted", "channel_id", s.channelID, "message_id", message.ID)
	return message, nil
}

// Delete asks the server to delete a visible message. Only its author or a moderator may.
// The message leaves the timeline on the deletion event.
func (s *ChannelSession) Delete(ctx context.Context, id chat.MessageID) error {
	if s.State() != chat.Active {
		return errors.ErrSessionNotActive
	}
	message, ok := s.timeline.Get(id)
	if !ok {
		return errors.ErrMessageNotFound
	}
	if !s.gate.CanDelete(message) {
		return errors.ErrNotAllowed
	}
	if err := s.api.DeleteMessage(ctx, id); err != nil {
		s.log.Error("Delete message failed", "channel_id", s.channelID, "message_id", id, "error", err)
		return fmt.Errorf("delete message %s: %w", id, err)
	}
	return nil
}

// React toggles emoji on a message for the current identity, members only.
func (s *ChannelSession) React(ctx context.Context, id chat.MessageID, emoji string) error {
	if s.State() != chat.Active {
		return errors.ErrSessionNotActive
	}
	if !s.gate.IsMember() {
		return errors.ErrNotMember
	}
	if strings.TrimSpace(emoji) == "" {
		return errors.ErrInvalidPayload
	}
	if _, ok := s.timeline.Get(id); !ok {
		return errors.ErrMessageNotFound
	}
	if err := s.api.ReactToMessage(ctx, id, emoji); err != nil {
		s.log.Error("React to message failed", "channel_id", s.channelID, "message_id", id, "error", err)
		return fmt.Errorf("react to message %s: %w", id, err)
	}
	return nil
}

func (s *ChannelSession) Join(ctx context.Context) (chat.Channel, error) {
	channel, err := s.gate.Join(ctx)
	s.notify()
	return channel, err
}

func (s *ChannelSession) Leave(ctx context.Context) (chat.Channel, error) {
	channel, err := s.gate.Leave(ctx)
	s.notify()
	return channel, err
}

// Snapshot is the ordered visible timeline, empty once the session is closed.
func (s *ChannelSession) Snapshot() []chat.Message {
	if s.State() == chat.Closed {
		return nil
	}
	return s.timeline.Snapshot()
}

// Reactions aggregates the reactions of a visible message.
func (s *ChannelSession) Reactions(id chat.MessageID, emojiSet []string) (map[string]int, bool) {
	message, ok := s.timeline.Get(id)
	if !ok {
		return nil, false
	}
	return projection.Aggregate(message.Reactions, emojiSet), true
}

func (s *ChannelSession) State() chat.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *ChannelSession) ConnectionState() chat.ConnectionState {
	return s.stream.State()
}

func (s *ChannelSession) IsMember() bool {
	return s.gate.IsMember()
}

func (s *ChannelSession) IsModerator() bool {
	return s.gate.IsModerator()
}

func (s *ChannelSession) Channel() (chat.Channel, bool) {
	return s.gate.Channel()
}

func (s *ChannelSession) Identity() chat.Identity {
	return s.gate.Identity()
}

func (s *ChannelSession) ChannelID() chat.ChannelID {
	return s.channelID
}

// HistoryErr is the failure of the history load, the timeline was seeded empty.
func (s *ChannelSession) HistoryErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.historyErr
}

// StreamErr is set once the stream gave up reconnecting.
func (s *ChannelSession) StreamErr() error {
	return s.stream.Err()
}

// Updates signals a change of the visible state. Signals are coalesced, the channel
// is closed when the session is.
func (s *ChannelSession) Updates() <-chan struct{} {
	return s.updates
}

// Close cancels the outstanding history fetch, leaves the room, disconnects the stream
// and stops the event loop. The timeline is discarded.
func (s *ChannelSession) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.RLock()
		from := s.state
		opened := s.opened
		cancel := s.cancel
		s.mu.RUnlock()
		s.setState(from, chat.Closing)

		if opened {
			err = s.stream.Close(ctx)
			cancel()
			select {
			case <-s.loopDone:
			case <-ctx.Done():
				if err == nil {
					err = ctx.Err()
				}
			}
		} else {
			_ = s.stream.Close(ctx)
			close(s.loopDone)
		}

		s.mu.Lock()
		s.silenced = true
		close(s.updates)
		s.mu.Unlock()
		s.setState(chat.Closing, chat.Closed)
		s.log.Info("Channel session closed", "channel_id", s.channelID)
	})
	return err
}

func (s *ChannelSession) transition(from, to chat.SessionState) error {
	s.mu.Lock()
	if s.state != from {
		s.mu.Unlock()
		return fmt.Errorf("session is %s, not %s", s.state, from)
	}
	s.state = to
	s.mu.Unlock()

	s.telemetry.Handle(event.NewEvent(event.SessionStateChangedType, event.SessionStateChanged{
		Channel: s.channelID,
		From:    from,
		To:      to,
	}))
	return nil
}

func (s *ChannelSession) setState(from, to chat.SessionState) {
	if err := s.transition(from, to); err != nil {
		s.log.Debug("Session transition skipped", "channel_id", s.channelID, "error", err)
	}
}

// notify never blocks, a pending signal already covers the new change.
func (s *ChannelSession) notify() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.silenced {
		return
	}
	select {
	case s.updates <- struct{}{}:
	default:
	}
}
