// Package membership reflects whether the current identity belongs to a channel.
// The authoritative member set lives server side, the gate only keeps the latest snapshot.
package membership

import (
	"channel-chat/contract"
	"channel-chat/domain/chat"
	"channel-chat/errors"
	"context"
	"log/slog"
	"sync"
)

type Gate struct {
	mu        sync.RWMutex
	log       *slog.Logger
	api       contract.IChannelAPI
	channelID chat.ChannelID
	identity  chat.Identity
	channel   *chat.Channel
}

func NewGate(log *slog.Logger, api contract.IChannelAPI, channelID chat.ChannelID, identity chat.Identity) *Gate {
	return &Gate{log: log, api: api, channelID: channelID, identity: identity}
}

// Refresh fetches the channel and replaces the local snapshot.
func (g *Gate) Refresh(ctx context.Context) (chat.Channel, error) {
	channel, err := g.api.GetChannel(ctx, g.channelID)
	if err != nil {
		return chat.Channel{}, errors.Network("get channel", err)
	}
	normalized := channel.Normalize()
	g.set(normalized)
	return normalized.Clone(), nil
}

// Join asks the server to add the identity then refreshes the snapshot.
// When the refresh fails the snapshot is patched locally, a caller never reads
// the membership from before the join once Join has returned.
func (g *Gate) Join(ctx context.Context) (chat.Channel, error) {
	if err := g.api.JoinChannel(ctx, g.channelID); err != nil {
		return g.current(), errors.Network("join channel", err)
	}
	channel, err := g.Refresh(ctx)
	if err != nil {
		g.log.Warn("Channel refresh failed after join, patching locally",
			"channel_id", g.channelID, "error", err)
		return g.patch(func(c chat.Channel) chat.Channel { return c.WithMember(g.identity.ID) }), nil
	}
	return channel, nil
}

// Leave mirrors Join. Leaving a channel the identity is not a member of succeeds.
func (g *Gate) Leave(ctx context.Context) (chat.Channel, error) {
	if err := g.api.LeaveChannel(ctx, g.channelID); err != nil {
		return g.current(), errors.Network("leave channel", err)
	}
	channel, err := g.Refresh(ctx)
	if err != nil {
		g.log.Warn("Channel refresh failed after leave, patching locally",
			"channel_id", g.channelID, "error", err)
		return g.patch(func(c chat.Channel) chat.Channel { return c.WithoutMember(g.identity.ID) }), nil
	}
	return channel, nil
}

// IsMember is false until a first snapshot was fetched.
func (g *Gate) IsMember() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.channel != nil && g.channel.IsMember(g.identity.ID)
}

func (g *Gate) IsModerator() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.channel != nil && g.channel.IsModerator(g.identity.ID)
}

// CanDelete allows the author of the message and the moderators of the channel.
func (g *Gate) CanDelete(message chat.Message) bool {
	return message.Author.ID == g.identity.ID || g.IsModerator()
}

// Channel returns the latest snapshot, false when none was fetched yet.
func (g *Gate) Channel() (chat.Channel, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.channel == nil {
		return chat.Channel{}, false
	}
	return g.channel.Clone(), true
}

func (g *Gate) Identity() chat.Identity {
	return g.identity
}

func (g *Gate) set(channel chat.Channel) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.channel = &channel
}

func (g *Gate) current() chat.Channel {
	channel, _ := g.Channel()
	return channel
}

func (g *Gate) patch(fn func(chat.Channel) chat.Channel) chat.Channel {
	g.mu.Lock()
	defer g.mu.Unlock()
	base := chat.Channel{ID: g.channelID}
	if g.channel != nil {
		base = *g.channel
	}
	patched := fn(base)
	g.channel = &patched
	return patched.Clone()
}
