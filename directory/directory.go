// Package directory lists, fetches and creates channels.
package directory

import (
	"channel-chat/contract"
	"channel-chat/domain/chat"
	"channel-chat/errors"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type CreateChannelRequest struct {
	Name        string `validate:"required,max=64,excludesall=/"`
	Title       string `validate:"max=128"`
	Description string `validate:"max=1024"`
}

type Directory struct {
	log *slog.Logger
	api contract.IChannelAPI
}

func NewDirectory(log *slog.Logger, api contract.IChannelAPI) Directory {
	return Directory{log: log, api: api}
}

// List returns the channels sorted by name.
func (d Directory) List(ctx context.Context) ([]chat.Channel, error) {
	channels, err := d.api.ListChannels(ctx)
	if err != nil {
		return nil, errors.Network("list channels", err)
	}
	out := make([]chat.Channel, 0, len(channels))
	for _, c := range channels {
		out = append(out, c.Normalize())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (d Directory) Get(ctx context.Context, id chat.ChannelID) (chat.Channel, error) {
	if strings.TrimSpace(string(id)) == "" {
		return chat.Channel{}, errors.ErrChannelNotFound
	}
	channel, err := d.api.GetChannel(ctx, id)
	if err != nil {
		return chat.Channel{}, errors.Network(fmt.Sprintf("get channel %s", id), err)
	}
	return channel.Normalize(), nil
}

// Create validates the request before reaching the server.
// The creator becomes member and moderator server side.
func (d Directory) Create(ctx context.Context, req CreateChannelRequest) (chat.Channel, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Struct(req); err != nil {
		return chat.Channel{}, fmt.Errorf("%w: %w", errors.ErrInvalidPayload, err)
	}
	channel, err := d.api.CreateChannel(ctx, chat.Channel{
		Name:        req.Name,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return chat.Channel{}, errors.Network("create channel", err)
	}
	d.log.Info("Channel created", "channel_id", channel.ID, "name", channel.Name)
	return channel.Normalize(), nil
}
