package api

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"channel-chat/domain/chat"
	"channel-chat/domain/event"
	"channel-chat/errors"
	"channel-chat/infrastructure/websocket"

	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func (s testServer) dialer(t *testing.T, user chat.UserID) *websocket.Dialer {
	t.Helper()
	token, err := s.issuer.GenerateToken(chat.Identity{ID: user})
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(s.url, "http") + "/api/stream"
	return websocket.NewDialer(logs.GetLoggerFromLevel(slog.LevelDebug), url, token)
}

func next(t *testing.T, events <-chan event.DomainEvent) event.DomainEvent {
	t.Helper()
	select {
	case evt, ok := <-events:
		require.True(t, ok, "stream closed")
		return evt
	case <-time.After(2 * time.Second):
		require.Fail(t, "no event received")
		return nil
	}
}

func TestHub_Broadcasts_Room_Events(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	server := newTestServer(t, Config{RatePerSecond: 100, RateBurst: 100})
	alice := server.client(t, "alice")
	general, err := alice.CreateChannel(ctx, chat.Channel{Name: "general"})
	req.NoError(err)
	random, err := alice.CreateChannel(ctx, chat.Channel{Name: "random"})
	req.NoError(err)

	// Given carol follows general, not a member
	conn, err := server.dialer(t, "carol").Dial(ctx)
	req.NoError(err)
	defer conn.Close()
	req.NoError(conn.JoinRoom(ctx, general.ID))
	req.Equal(float64(1), testutil.ToFloat64(server.metrics.StreamClients))

	// When alice posts in random then in general
	_, err = alice.PostMessage(ctx, random.ID, "elsewhere")
	req.NoError(err)
	message, err := alice.PostMessage(ctx, general.ID, "hello")
	req.NoError(err)

	// Then only the general message is streamed
	created, ok := next(t, conn.Events()).(event.MessageCreated)
	req.True(ok)
	req.Equal(message.ID, created.Message.ID)
	req.Equal("hello", created.Message.Body)

	// When alice reacts then deletes it
	req.NoError(alice.ReactToMessage(ctx, message.ID, "🎉"))
	req.NoError(alice.DeleteMessage(ctx, message.ID))

	// Then both changes follow in order
	updated, ok := next(t, conn.Events()).(event.ReactionUpdated)
	req.True(ok)
	req.Equal([]chat.Reaction{{MessageID: message.ID, Reactor: "alice", Emoji: "🎉"}}, updated.Message.Reactions)

	deleted, ok := next(t, conn.Events()).(event.MessageDeleted)
	req.True(ok)
	req.Equal(event.MessageDeleted{Channel: general.ID, MessageID: message.ID}, deleted)
}

func TestHub_Join_Unknown_Channel(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	server := newTestServer(t, Config{})

	conn, err := server.dialer(t, "alice").Dial(ctx)
	req.NoError(err)
	defer conn.Close()

	err = conn.JoinRoom(ctx, "unknown")
	req.ErrorIs(err, errors.ErrChannelNotFound)
}

func TestHub_Leave_Stops_Delivery(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	server := newTestServer(t, Config{RatePerSecond: 100, RateBurst: 100})
	alice := server.client(t, "alice")
	general, err := alice.CreateChannel(ctx, chat.Channel{Name: "general"})
	req.NoError(err)

	conn, err := server.dialer(t, "bob").Dial(ctx)
	req.NoError(err)
	defer conn.Close()
	req.NoError(conn.JoinRoom(ctx, general.ID))

	// When bob leaves the room
	req.NoError(conn.LeaveRoom(ctx, general.ID))
	_, err = alice.PostMessage(ctx, general.ID, "hello")
	req.NoError(err)

	// Then nothing is delivered
	select {
	case evt := <-conn.Events():
		req.Failf("unexpected event", "%#v", evt)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_Requires_Token(t *testing.T) {
	req := require.New(t)
	server := newTestServer(t, Config{})
	url := "ws" + strings.TrimPrefix(server.url, "http") + "/api/stream"

	_, err := websocket.NewDialer(logs.GetLoggerFromLevel(slog.LevelDebug), url, "").Dial(context.Background())

	req.ErrorIs(err, errors.ErrInvalidToken)
}
