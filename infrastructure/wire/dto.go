// Package wire holds the JSON shapes exchanged between the chat client and the server,
// over REST and over the websocket stream.
package wire

import (
	"channel-chat/domain/chat"
	"time"

	"github.com/samber/lo"
)

type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar,omitempty"`
}

type Channel struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Members     []string `json:"members"`
	Moderators  []string `json:"moderators"`
}

type Reaction struct {
	MessageID string `json:"message_id"`
	Reactor   string `json:"reactor"`
	Emoji     string `json:"emoji"`
}

type Message struct {
	ID        string     `json:"id"`
	ChannelID string     `json:"channel_id"`
	Author    Identity   `json:"author"`
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"created_at"`
	Reactions []Reaction `json:"reactions"`
}

type CreateChannelRequest struct {
	Name        string `json:"name" validate:"required,max=64"`
	Title       string `json:"title" validate:"max=128"`
	Description string `json:"description" validate:"max=1024"`
}

type PostMessageRequest struct {
	Text string `json:"text" validate:"max=4000"`
}

type ReactRequest struct {
	Emoji string `json:"emoji" validate:"required,max=32"`
}

type TokenRequest struct {
	UserID      string `json:"user_id" validate:"required,max=64"`
	DisplayName string `json:"display_name" validate:"max=64"`
	Avatar      string `json:"avatar" validate:"omitempty,url"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

func FromIdentity(i chat.Identity) Identity {
	return Identity{ID: string(i.ID), DisplayName: i.DisplayName, Avatar: i.Avatar}
}

func (i Identity) ToDomain() chat.Identity {
	return chat.Identity{ID: chat.UserID(i.ID), DisplayName: i.DisplayName, Avatar: i.Avatar}
}

func FromChannel(c chat.Channel) Channel {
	return Channel{
		ID:          string(c.ID),
		Name:        c.Name,
		Title:       c.Title,
		Description: c.Description,
		Members:     userIDs(c.Members),
		Moderators:  userIDs(c.Moderators),
	}
}

func (c Channel) ToDomain() chat.Channel {
	return chat.Channel{
		ID:          chat.ChannelID(c.ID),
		Name:        c.Name,
		Title:       c.Title,
		Description: c.Description,
		Members:     lo.Map(c.Members, func(id string, _ int) chat.UserID { return chat.UserID(id) }),
		Moderators:  lo.Map(c.Moderators, func(id string, _ int) chat.UserID { return chat.UserID(id) }),
	}
}

func FromMessage(m chat.Message) Message {
	return Message{
		ID:        string(m.ID),
		ChannelID: string(m.ChannelID),
		Author:    FromIdentity(m.Author),
		Body:      m.Body,
		CreatedAt: m.CreatedAt.UTC(),
		Reactions: lo.Map(m.Reactions, func(r chat.Reaction, _ int) Reaction {
			return Reaction{MessageID: string(r.MessageID), Reactor: string(r.Reactor), Emoji: r.Emoji}
		}),
	}
}

// ToDomain fills the message id of reactions sent without one.
func (m Message) ToDomain() chat.Message {
	return chat.Message{
		ID:        chat.MessageID(m.ID),
		ChannelID: chat.ChannelID(m.ChannelID),
		Author:    m.Author.ToDomain(),
		Body:      m.Body,
		CreatedAt: m.CreatedAt.UTC(),
		Reactions: lo.Map(m.Reactions, func(r Reaction, _ int) chat.Reaction {
			id := r.MessageID
			if id == "" {
				id = m.ID
			}
			return chat.Reaction{MessageID: chat.MessageID(id), Reactor: chat.UserID(r.Reactor), Emoji: r.Emoji}
		}),
	}
}

func userIDs(ids []chat.UserID) []string {
	return lo.Map(ids, func(id chat.UserID, _ int) string { return string(id) })
}
