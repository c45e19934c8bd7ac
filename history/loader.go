// Package history fetches the bounded page of past messages a session starts from.
package history

import (
	"channel-chat/contract"
	"channel-chat/domain/chat"
	"channel-chat/errors"
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/samber/lo"
)

const DefaultLimit = 50

type Loader struct {
	log   *slog.Logger
	api   contract.IChannelAPI
	limit int
}

func NewLoader(log *slog.Logger, api contract.IChannelAPI, limit int) Loader {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return Loader{log: log, api: api, limit: limit}
}

// LoadLatest returns the most recent page, oldest first.
func (l Loader) LoadLatest(ctx context.Context, channelID chat.ChannelID) ([]chat.Message, error) {
	return l.LoadPage(ctx, channelID, 0, l.limit)
}

// LoadPage returns at most limit messages starting offset messages back from the newest one.
// An offset that is not a multiple of limit spans two server pages, both are fetched.
// The page is ordered by creation time then id, whatever order the server used.
// Duplicated ids and messages of another channel are discarded.
func (l Loader) LoadPage(ctx context.Context, channelID chat.ChannelID, offset, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		limit = l.limit
	}
	if offset < 0 {
		offset = 0
	}
	page, skip := offset/limit, offset%limit

	messages, err := l.fetch(ctx, channelID, page, limit)
	if err != nil {
		return nil, err
	}
	if skip > 0 && len(messages) >= limit {
		older, err := l.fetch(ctx, channelID, page+1, limit)
		if err != nil {
			return nil, err
		}
		messages = append(messages, older...)
	}

	own := lo.Filter(messages, func(m chat.Message, _ int) bool {
		return m.ChannelID == channelID
	})
	if len(own) != len(messages) {
		l.log.Warn("History page contains messages of another channel",
			"channel_id", channelID, "dropped", len(messages)-len(own))
	}
	unique := lo.UniqBy(own, func(m chat.Message) chat.MessageID { return m.ID })
	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Before(unique[j])
	})
	end := max(len(unique)-skip, 0)
	unique = unique[max(end-limit, 0):end]

	l.log.Debug("History page loaded",
		"channel_id", channelID, "offset", offset, "limit", limit, "count", len(unique))
	return unique, nil
}

func (l Loader) fetch(ctx context.Context, channelID chat.ChannelID, page, limit int) ([]chat.Message, error) {
	messages, err := l.api.GetMessages(ctx, channelID, page, limit)
	if err != nil {
		return nil, errors.Network(fmt.Sprintf("get messages of %s page %d", channelID, page), err)
	}
	return messages, nil
}
