package wire

import (
	"channel-chat/domain/chat"
	"channel-chat/domain/event"
	"channel-chat/errors"
	"fmt"
)

type FrameType string

const (
	// client -> server
	FrameJoin  FrameType = "join"
	FrameLeave FrameType = "leave"

	// server -> client acknowledgements
	FrameJoined FrameType = "joined"
	FrameLeft   FrameType = "left"
	FrameError  FrameType = "error"

	// server -> client events
	FrameMessageCreated  FrameType = "message_created"
	FrameMessageDeleted  FrameType = "message_deleted"
	FrameReactionUpdated FrameType = "reaction_updated"
)

// Frame is one websocket text message. Only the fields relevant to Type are set.
type Frame struct {
	Type      FrameType `json:"type"`
	ChannelID string    `json:"channel_id,omitempty"`
	MessageID string    `json:"message_id,omitempty"`
	Message   *Message  `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
	Code      string    `json:"code,omitempty"`
}

func (f Frame) IsAck() bool {
	return f.Type == FrameJoined || f.Type == FrameLeft || f.Type == FrameError
}

func FromEvent(evt event.DomainEvent) (Frame, error) {
	switch e := evt.(type) {
	case event.MessageCreated:
		m := FromMessage(e.Message)
		return Frame{Type: FrameMessageCreated, ChannelID: m.ChannelID, Message: &m}, nil
	case event.MessageDeleted:
		return Frame{Type: FrameMessageDeleted, ChannelID: string(e.Channel), MessageID: string(e.MessageID)}, nil
	case event.ReactionUpdated:
		m := FromMessage(e.Message)
		return Frame{Type: FrameReactionUpdated, ChannelID: m.ChannelID, MessageID: m.ID, Message: &m}, nil
	default:
		return Frame{}, fmt.Errorf("%w: unsupported event %T", errors.ErrInvalidPayload, evt)
	}
}

func (f Frame) ToEvent() (event.DomainEvent, error) {
	switch f.Type {
	case FrameMessageCreated:
		if f.Message == nil {
			return nil, fmt.Errorf("%w: %s without message", errors.ErrInvalidPayload, f.Type)
		}
		return event.MessageCreated{Message: f.Message.ToDomain()}, nil
	case FrameMessageDeleted:
		if f.MessageID == "" {
			return nil, fmt.Errorf("%w: %s without message id", errors.ErrInvalidPayload, f.Type)
		}
		return event.MessageDeleted{Channel: chat.ChannelID(f.ChannelID), MessageID: chat.MessageID(f.MessageID)}, nil
	case FrameReactionUpdated:
		if f.Message == nil {
			return nil, fmt.Errorf("%w: %s without message", errors.ErrInvalidPayload, f.Type)
		}
		return event.ReactionUpdated{Message: f.Message.ToDomain()}, nil
	default:
		return nil, fmt.Errorf("%w: frame %q is not an event", errors.ErrInvalidPayload, f.Type)
	}
}

// Ack builds the acknowledgement of a join or leave request.
func Ack(request Frame, err error) Frame {
	if err != nil {
		return Frame{Type: FrameError, ChannelID: request.ChannelID, Error: err.Error(), Code: CodeOf(err)}
	}
	if request.Type == FrameLeave {
		return Frame{Type: FrameLeft, ChannelID: request.ChannelID}
	}
	return Frame{Type: FrameJoined, ChannelID: request.ChannelID}
}
