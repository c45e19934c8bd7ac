package event

import (
	"channel-chat/domain/chat"
	"time"
)

type Type string

const (
	ConnectionStateChangedType Type = "CONNECTION_STATE_CHANGED"
	StaleEventDroppedType      Type = "STALE_EVENT_DROPPED"
	OrphanPatchDroppedType     Type = "ORPHAN_PATCH_DROPPED"
	HistoryLoadFailedType      Type = "HISTORY_LOAD_FAILED"
	SessionStateChangedType    Type = "SESSION_STATE_CHANGED"
)

// Event is a technical event, never shown to the user.
type Event struct {
	Type      Type
	CreatedAt time.Time
	Payload   any
}

func NewEvent(t Type, payload any) Event {
	return Event{Type: t, CreatedAt: time.Now().UTC(), Payload: payload}
}

type ConnectionStateChanged struct {
	Channel chat.ChannelID
	From    chat.ConnectionState
	To      chat.ConnectionState
}

type SessionStateChanged struct {
	Channel chat.ChannelID
	From    chat.SessionState
	To      chat.SessionState
}

type StaleEventDropped struct {
	Expected chat.ChannelID
	Received chat.ChannelID
}

type OrphanPatchDropped struct {
	Channel   chat.ChannelID
	MessageID chat.MessageID
}

type HistoryLoadFailed struct {
	Channel chat.ChannelID
	Err     error
}
