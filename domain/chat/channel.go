// Package chat contains core concepts of the channel chat.
// This file defines Channel membership and moderation rules.
// No runtime, network, or UI logic should be added here.
package chat

import (
	"github.com/samber/lo"
)

type ChannelID string

type UserID string

// Identity is who authored a message or acts in a session.
type Identity struct {
	ID          UserID
	DisplayName string
	Avatar      string
}

// Channel is a named chat room with membership and moderation.
// Every moderator is also a member.
type Channel struct {
	ID          ChannelID
	Name        string
	Title       string
	Description string
	Members     []UserID
	Moderators  []UserID
}

func (c Channel) IsMember(user UserID) bool {
	return lo.Contains(c.Members, user)
}

func (c Channel) IsModerator(user UserID) bool {
	return lo.Contains(c.Moderators, user)
}

// WithMember returns a copy of the channel where user is a member.
// Joining twice leaves the member set unchanged.
func (c Channel) WithMember(user UserID) Channel {
	out := c.Clone()
	if !out.IsMember(user) {
		out.Members = append(out.Members, user)
	}
	return out
}

// WithoutMember returns a copy of the channel without user.
// A moderator leaving also loses the moderator role.
func (c Channel) WithoutMember(user UserID) Channel {
	out := c.Clone()
	out.Members = lo.Without(out.Members, user)
	out.Moderators = lo.Without(out.Moderators, user)
	return out
}

// Normalize removes duplicated ids and appends moderators missing from the members.
func (c Channel) Normalize() Channel {
	out := c.Clone()
	out.Members = lo.Uniq(out.Members)
	out.Moderators = lo.Uniq(out.Moderators)
	for _, m := range out.Moderators {
		if !lo.Contains(out.Members, m) {
			out.Members = append(out.Members, m)
		}
	}
	return out
}

func (c Channel) Clone() Channel {
	out := c
	out.Members = append([]UserID(nil), c.Members...)
	out.Moderators = append([]UserID(nil), c.Moderators...)
	return out
}
