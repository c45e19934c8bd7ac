// Package services holds the server side rules of the channel chat.
// Every accepted write is persisted then published as a domain event.
package services

import (
	"channel-chat/contract"
	"channel-chat/domain/chat"
	"channel-chat/domain/event"
	"channel-chat/errors"
	"channel-chat/infrastructure/storage"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/samber/lo"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

type IChatService interface {
	ListChannels(ctx context.Context) ([]chat.Channel, error)
	CreateChannel(ctx context.Context, by chat.Identity, channel chat.Channel) (chat.Channel, error)
	GetChannel(ctx context.Context, id chat.ChannelID) (chat.Channel, error)
	Messages(ctx context.Context, id chat.ChannelID, page, limit int) ([]chat.Message, error)
	Post(ctx context.Context, by chat.Identity, cmd chat.PostMessageCommand) (chat.Message, error)
	Delete(ctx context.Context, by chat.Identity, cmd chat.DeleteMessageCommand) error
	React(ctx context.Context, by chat.Identity, cmd chat.ReactCommand) (chat.Message, error)
	Join(ctx context.Context, by chat.Identity, id chat.ChannelID) (chat.Channel, error)
	Leave(ctx context.Context, by chat.Identity, id chat.ChannelID) (chat.Channel, error)
}

// ICensor masks forbidden words of a message body and reports the words found.
type ICensor interface {
	Censor(text string) (string, []string)
}

type ChatService struct {
	log       *slog.Logger
	channels  storage.IChannelRepository
	messages  storage.IMessageRepository
	publisher contract.EventSink
	censor    ICensor
	now       func() time.Time
}

type Option func(*ChatService)

// WithCensor masks message bodies before they are stored.
func WithCensor(censor ICensor) Option {
	return func(s *ChatService) {
		s.censor = censor
	}
}

func NewChatService(log *slog.Logger, channels storage.IChannelRepository,
	messages storage.IMessageRepository, publisher contract.EventSink, opts ...Option) *ChatService {
	s := &ChatService{
		log:       log,
		channels:  channels,
		messages:  messages,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ChatService) ListChannels(_ context.Context) ([]chat.Channel, error) {
	return s.channels.List()
}

// CreateChannel stores a new channel, its creator becomes its first member and moderator.
func (s *ChatService) CreateChannel(_ context.Context, by chat.Identity, channel chat.Channel) (chat.Channel, error) {
	channel.Name = strings.TrimSpace(channel.Name)
	if channel.Name == "" {
		return chat.Channel{}, fmt.Errorf("%w: empty channel name", errors.ErrInvalidPayload)
	}
	existing, err := s.channels.List()
	if err != nil {
		return chat.Channel{}, err
	}
	if lo.ContainsBy(existing, func(c chat.Channel) bool { return strings.EqualFold(c.Name, channel.Name) }) {
		return chat.Channel{}, fmt.Errorf("%w: channel %q already exists", errors.ErrInvalidPayload, channel.Name)
	}

	channel.ID = chat.ChannelID(uuid.NewString())
	channel.Members = nil
	channel.Moderators = []chat.UserID{by.ID}
	channel = channel.Normalize()
	if err := s.channels.Save(channel); err != nil {
		return chat.Channel{}, err
	}
	s.log.Info("Channel created", "channel_id", channel.ID, "name", channel.Name, "by", by.ID)
	return channel, nil
}

func (s *ChatService) GetChannel(_ context.Context, id chat.ChannelID) (chat.Channel, error) {
	return s.channels.Get(id)
}

// Messages returns one page of the channel, oldest first. Page 0 holds the latest messages.
func (s *ChatService) Messages(_ context.Context, id chat.ChannelID, page, limit int) ([]chat.Message, error) {
	if _, err := s.channels.Get(id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return s.messages.List(id, max(page, 0), min(limit, MaxPageSize))
}

func (s *ChatService) Post(ctx context.Context, by chat.Identity, cmd chat.PostMessageCommand) (chat.Message, error) {
	channel, err := s.channels.Get(cmd.Channel())
	if err != nil {
		return chat.Message{}, err
	}
	if !channel.IsMember(by.ID) {
		return chat.Message{}, errors.ErrNotMember
	}
	body := strings.TrimSpace(cmd.Body)
	if body == "" {
		return chat.Message{}, errors.ErrEmptyMessage
	}
	if s.censor != nil {
		var words []string
		if body, words = s.censor.Censor(body); len(words) > 0 {
			s.log.Info("Message censored", "channel_id", channel.ID, "by", by.ID, "words", len(words))
		}
	}

	message := chat.Message{
		ID:        chat.MessageID(ulid.Make().String()),
		ChannelID: channel.ID,
		Author:    by,
		Body:      body,
		CreatedAt: s.now(),
	}
	if err := s.messages.Store(message); err != nil {
		return chat.Message{}, err
	}
	s.publish(ctx, event.MessageCreated{Message: message})
	return message, nil
}

// Delete is allowed to the author of the message and to the moderators of its channel.
// The channel is resolved from the message when the command does not carry it.
func (s *ChatService) Delete(ctx context.Context, by chat.Identity, cmd chat.DeleteMessageCommand) error {
	message, err := s.messages.Get(cmd.MessageID)
	if err != nil {
		return err
	}
	if cmd.ChannelID != "" && cmd.ChannelID != message.ChannelID {
		return errors.ErrMessageNotFound
	}
	channel, err := s.channels.Get(message.ChannelID)
	if err != nil {
		return err
	}
	if message.Author.ID != by.ID && !channel.IsModerator(by.ID) {
		return errors.ErrNotAllowed
	}
	if _, err := s.messages.Delete(message.ID); err != nil {
		return err
	}
	s.publish(ctx, event.MessageDeleted{Channel: message.ChannelID, MessageID: message.ID})
	return nil
}

// React toggles the reaction of by on the message, reacting twice with the same emoji removes it.
func (s *ChatService) React(ctx context.Context, by chat.Identity, cmd chat.ReactCommand) (chat.Message, error) {
	emoji := strings.TrimSpace(cmd.Emoji)
	if emoji == "" {
		return chat.Message{}, fmt.Errorf("%w: empty emoji", errors.ErrInvalidPayload)
	}
	message, err := s.messages.Get(cmd.MessageID)
	if err != nil {
		return chat.Message{}, err
	}
	if cmd.ChannelID != "" && cmd.ChannelID != message.ChannelID {
		return chat.Message{}, errors.ErrMessageNotFound
	}
	channel, err := s.channels.Get(message.ChannelID)
	if err != nil {
		return chat.Message{}, err
	}
	if !channel.IsMember(by.ID) {
		return chat.Message{}, errors.ErrNotMember
	}

	updated, err := s.messages.UpdateReactions(message.ID, func(reactions []chat.Reaction) []chat.Reaction {
		return toggle(reactions, chat.Reaction{MessageID: message.ID, Reactor: by.ID, Emoji: emoji})
	})
	if err != nil {
		return chat.Message{}, err
	}
	s.publish(ctx, event.ReactionUpdated{Message: updated})
	return updated, nil
}

func (s *ChatService) Join(_ context.Context, by chat.Identity, id chat.ChannelID) (chat.Channel, error) {
	return s.channels.Update(id, func(c chat.Channel) chat.Channel { return c.WithMember(by.ID) })
}

// Leave succeeds for a non member.
func (s *ChatService) Leave(_ context.Context, by chat.Identity, id chat.ChannelID) (chat.Channel, error) {
	return s.channels.Update(id, func(c chat.Channel) chat.Channel { return c.WithoutMember(by.ID) })
}

// publish never fails the write, the message is already stored.
func (s *ChatService) publish(ctx context.Context, evt event.DomainEvent) {
	if err := s.publisher.Consume(ctx, evt); err != nil {
		s.log.Warn("Event not published", "channel_id", evt.ChannelID(), "type", event.Name(evt), "error", err)
	}
}

func toggle(reactions []chat.Reaction, reaction chat.Reaction) []chat.Reaction {
	same := func(r chat.Reaction) bool { return r.Reactor == reaction.Reactor && r.Emoji == reaction.Emoji }
	if lo.ContainsBy(reactions, same) {
		return lo.Reject(reactions, func(r chat.Reaction, _ int) bool { return same(r) })
	}
	return append(reactions, reaction)
}
