// Package rest implements the channel API over HTTP+JSON.
package rest

import (
	"bytes"
	"channel-chat/domain/chat"
	"channel-chat/errors"
	"channel-chat/infrastructure/wire"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

const defaultTimeout = 10 * time.Second

// Client is the HTTP implementation of contract.IChannelAPI.
// Error responses are mapped back to the domain sentinels, transport failures and
// server errors are tagged with ErrNetworkFailure.
type Client struct {
	log     *slog.Logger
	http    *http.Client
	baseURL string
	token   string
}

func NewClient(log *slog.Logger, baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: timeout,
		MaxIdleConnsPerHost: 8,
	}
	return &Client{
		log:     log,
		http:    &http.Client{Transport: transport, Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

// WithToken returns a copy of the client authenticated with token.
func (c *Client) WithToken(token string) *Client {
	out := *c
	out.token = token
	return &out
}

func (c *Client) ListChannels(ctx context.Context) ([]chat.Channel, error) {
	var channels []wire.Channel
	if err := c.do(ctx, http.MethodGet, "/api/channels", nil, &channels); err != nil {
		return nil, err
	}
	return lo.Map(channels, func(ch wire.Channel, _ int) chat.Channel { return ch.ToDomain() }), nil
}

func (c *Client) CreateChannel(ctx context.Context, channel chat.Channel) (chat.Channel, error) {
	body := wire.CreateChannelRequest{Name: channel.Name, Title: channel.Title, Description: channel.Description}
	var created wire.Channel
	if err := c.do(ctx, http.MethodPost, "/api/channels", body, &created); err != nil {
		return chat.Channel{}, err
	}
	return created.ToDomain(), nil
}

func (c *Client) GetChannel(ctx context.Context, id chat.ChannelID) (chat.Channel, error) {
	var channel wire.Channel
	if err := c.do(ctx, http.MethodGet, "/api/channels/"+url.PathEscape(string(id)), nil, &channel); err != nil {
		return chat.Channel{}, err
	}
	return channel.ToDomain(), nil
}

func (c *Client) GetMessages(ctx context.Context, id chat.ChannelID, page, limit int) ([]chat.Message, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))
	path := fmt.Sprintf("/api/channels/%s/messages?%s", url.PathEscape(string(id)), query.Encode())

	var messages []wire.Message
	if err := c.do(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}
	return lo.Map(messages, func(m wire.Message, _ int) chat.Message { return m.ToDomain() }), nil
}

func (c *Client) PostMessage(ctx context.Context, id chat.ChannelID, text string) (chat.Message, error) {
	var message wire.Message
	path := fmt.Sprintf("/api/channels/%s/messages", url.PathEscape(string(id)))
	if err := c.do(ctx, http.MethodPost, path, wire.PostMessageRequest{Text: text}, &message); err != nil {
		return chat.Message{}, err
	}
	return message.ToDomain(), nil
}

func (c *Client) DeleteMessage(ctx context.Context, id chat.MessageID) error {
	return c.do(ctx, http.MethodDelete, "/api/messages/"+url.PathEscape(string(id)), nil, nil)
}

func (c *Client) ReactToMessage(ctx context.Context, id chat.MessageID, emoji string) error {
	path := fmt.Sprintf("/api/messages/%s/reactions", url.PathEscape(string(id)))
	return c.do(ctx, http.MethodPost, path, wire.ReactRequest{Emoji: emoji}, nil)
}

func (c *Client) JoinChannel(ctx context.Context, id chat.ChannelID) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/channels/%s/join", url.PathEscape(string(id))), nil, nil)
}

func (c *Client) LeaveChannel(ctx context.Context, id chat.ChannelID) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/channels/%s/leave", url.PathEscape(string(id))), nil, nil)
}

// IssueToken asks the development server for a token bound to identity.
func (c *Client) IssueToken(ctx context.Context, identity chat.Identity) (string, error) {
	body := wire.TokenRequest{UserID: string(identity.ID), DisplayName: identity.DisplayName, Avatar: identity.Avatar}
	var res wire.TokenResponse
	if err := c.do(ctx, http.MethodPost, "/api/tokens", body, &res); err != nil {
		return "", err
	}
	return res.Token, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: %w: %w", op, errors.ErrInvalidPayload, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return errors.Network(op, err)
	}
	defer res.Body.Close()
	c.log.Debug("API call", "method", method, "path", path, "status", res.StatusCode, "duration", time.Since(start))

	if res.StatusCode >= http.StatusBadRequest {
		return c.failure(op, res)
	}
	if out == nil || res.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w: %w", op, errors.ErrInvalidPayload, err)
	}
	return nil
}

func (c *Client) failure(op string, res *http.Response) error {
	var payload wire.ErrorResponse
	_ = json.NewDecoder(io.LimitReader(res.Body, 64<<10)).Decode(&payload)

	if sentinel := wire.ErrorOf(payload.Code); sentinel != nil {
		return fmt.Errorf("%s: %w", op, sentinel)
	}
	switch {
	case res.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", op, errors.ErrInvalidToken)
	case res.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s: %w", op, errors.ErrNotAllowed)
	case res.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", op, errors.ErrRateLimited)
	case res.StatusCode >= http.StatusInternalServerError:
		return errors.Network(op, fmt.Errorf("status %d: %s", res.StatusCode, payload.Error))
	default:
		return fmt.Errorf("%s: status %d: %s", op, res.StatusCode, payload.Error)
	}
}
