package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"channel-chat/domain/chat"
	"channel-chat/errors"
	"channel-chat/infrastructure/wire"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, handler http.HandlerFunc) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(logs.GetLoggerFromLevel(slog.LevelDebug), server.URL, "secret-token", time.Second)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestClient_GetMessages(t *testing.T) {
	req := require.New(t)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		req.Equal("/api/channels/general/messages", r.URL.Path)
		req.Equal("2", r.URL.Query().Get("page"))
		req.Equal("25", r.URL.Query().Get("limit"))
		req.Equal("Bearer secret-token", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, []wire.Message{{
			ID: "m1", ChannelID: "general", Author: wire.Identity{ID: "alice"}, Body: "hi", CreatedAt: at,
			Reactions: []wire.Reaction{{MessageID: "m1", Reactor: "bob", Emoji: "👍"}},
		}})
	})

	messages, err := client.GetMessages(context.Background(), "general", 2, 25)

	req.NoError(err)
	req.Len(messages, 1)
	req.Equal(chat.MessageID("m1"), messages[0].ID)
	req.Equal(chat.UserID("alice"), messages[0].Author.ID)
	req.Equal(at, messages[0].CreatedAt)
	req.Equal([]chat.Reaction{{MessageID: "m1", Reactor: "bob", Emoji: "👍"}}, messages[0].Reactions)
}

func TestClient_PostMessage(t *testing.T) {
	req := require.New(t)
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		req.Equal(http.MethodPost, r.Method)
		var body wire.PostMessageRequest
		req.NoError(json.NewDecoder(r.Body).Decode(&body))
		req.Equal("hello", body.Text)
		writeJSON(w, http.StatusCreated, wire.Message{ID: "m2", ChannelID: "general", Body: body.Text})
	})

	message, err := client.PostMessage(context.Background(), "general", "hello")

	req.NoError(err)
	req.Equal(chat.MessageID("m2"), message.ID)
}

func TestClient_Maps_Error_Codes(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   wire.ErrorResponse
		want   error
	}{
		{"Not member", http.StatusForbidden, wire.ErrorResponse{Code: wire.CodeNotMember}, errors.ErrNotMember},
		{"Not allowed", http.StatusForbidden, wire.ErrorResponse{Code: wire.CodeNotAllowed}, errors.ErrNotAllowed},
		{"Channel not found", http.StatusNotFound, wire.ErrorResponse{Code: wire.CodeChannelNotFound}, errors.ErrChannelNotFound},
		{"Unauthorized without code", http.StatusUnauthorized, wire.ErrorResponse{}, errors.ErrInvalidToken},
		{"Rate limited", http.StatusTooManyRequests, wire.ErrorResponse{Code: wire.CodeRateLimited}, errors.ErrRateLimited},
		{"Server error", http.StatusBadGateway, wire.ErrorResponse{Error: "upstream"}, errors.ErrNetworkFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})

			err := client.DeleteMessage(context.Background(), "m1")

			req.ErrorIs(err, tt.want)
		})
	}
}

func TestClient_Transport_Failure_Is_A_Network_Failure(t *testing.T) {
	req := require.New(t)
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()
	client := NewClient(logs.GetLoggerFromLevel(slog.LevelDebug), server.URL, "", time.Second)

	_, err := client.ListChannels(context.Background())

	req.ErrorIs(err, errors.ErrNetworkFailure)
}

func TestClient_Join_Without_Body(t *testing.T) {
	req := require.New(t)
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		req.Equal("/api/channels/general/join", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	req.NoError(client.JoinChannel(context.Background(), "general"))
}
