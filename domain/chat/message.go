// Package chat contains core concepts of the channel chat.
// This file defines Message events and related rules.
// Messages are immutable once created, only reactions and existence change.
package chat

import (
	"time"
)

type MessageID string

// Message represents a chat message of one channel.
type Message struct {
	ID        MessageID // unique identifier, stable
	ChannelID ChannelID
	Author    Identity
	Body      string
	CreatedAt time.Time
	Reactions []Reaction
}

// Reaction is one emoji put on a message by one reactor.
type Reaction struct {
	MessageID MessageID
	Reactor   UserID
	Emoji     string
}

// Before reports whether m sorts before other.
// Messages are ordered by creation time, ties broken by id.
func (m Message) Before(other Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.ID < other.ID
}

func (m Message) Clone() Message {
	out := m
	out.Reactions = append([]Reaction(nil), m.Reactions...)
	return out
}
