// Package event defines what flows on the live stream of a channel
// and the technical events emitted while reconciling it.
package event

import (
	"channel-chat/domain/chat"
)

// DomainEvent is a stream notification scoped to one channel.
type DomainEvent interface {
	ChannelID() chat.ChannelID
}

type MessageCreated struct {
	Message chat.Message
}

func (m MessageCreated) ChannelID() chat.ChannelID {
	return m.Message.ChannelID
}

type MessageDeleted struct {
	Channel   chat.ChannelID
	MessageID chat.MessageID
}

func (m MessageDeleted) ChannelID() chat.ChannelID {
	return m.Channel
}

// ReactionUpdated carries the message with its full, current reaction list.
type ReactionUpdated struct {
	Message chat.Message
}

func (r ReactionUpdated) ChannelID() chat.ChannelID {
	return r.Message.ChannelID
}

// Name labels an event for logs and metrics.
func Name(e DomainEvent) string {
	switch e.(type) {
	case MessageCreated:
		return "message_created"
	case MessageDeleted:
		return "message_deleted"
	case ReactionUpdated:
		return "reaction_updated"
	default:
		return "unknown"
	}
}
