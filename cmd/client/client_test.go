package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"channel-chat/domain/chat"
	"channel-chat/errors"
	"channel-chat/internal"

	"github.com/gookit/color"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line    string
		want    command
		wantErr bool
	}{
		{"  hello world ", command{kind: cmdPost, text: "hello world"}, false},
		{"", command{kind: cmdNone}, false},
		{"/react 01abcd 👍", command{kind: cmdReact, ref: "01abcd", emoji: "👍"}, false},
		{"/react 01abcd", command{}, true},
		{"/delete 01abcd", command{kind: cmdDelete, ref: "01abcd"}, false},
		{"/join", command{kind: cmdJoin}, false},
		{"/leave", command{kind: cmdLeave}, false},
		{"/quit", command{kind: cmdQuit}, false},
		{"/dance", command{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			req := require.New(t)
			got, err := parseCommand(tt.line)
			if tt.wantErr {
				req.ErrorIs(err, errors.ErrInvalidPayload)
				return
			}
			req.NoError(err)
			req.Equal(tt.want, got)
		})
	}
}

func TestResolve(t *testing.T) {
	req := require.New(t)
	messages := []chat.Message{{ID: "01HZX0AAAAAA"}, {ID: "01HZX0BBBBBB"}, {ID: "01HZX0CCCCAA"}}

	id, err := resolve(messages, "bbbbbb")
	req.NoError(err)
	req.Equal(chat.MessageID("01HZX0BBBBBB"), id)

	id, err = resolve(messages, "01HZX0AAAAAA")
	req.NoError(err)
	req.Equal(chat.MessageID("01HZX0AAAAAA"), id)

	// Ambiguous and unknown references
	_, err = resolve(messages, "aa")
	req.ErrorIs(err, errors.ErrMessageNotFound)
	_, err = resolve(messages, "zzz")
	req.ErrorIs(err, errors.ErrMessageNotFound)
}

func TestRenderer_Prints_Changes_Only(t *testing.T) {
	req := require.New(t)
	var out bytes.Buffer
	view := newRenderer(&out, "alice", []string{"👍", "❤️"})
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	hello := chat.Message{ID: "01HZX0AAAAAA", Author: chat.Identity{ID: "bob", DisplayName: "Bob"}, Body: "hello", CreatedAt: at}
	counts := map[chat.MessageID]map[string]int{}
	counter := func(id chat.MessageID, _ []string) (map[string]int, bool) {
		c, ok := counts[id]
		return c, ok
	}

	// Given a first render
	view.render([]chat.Message{hello}, counter)
	req.Contains(color.ClearCode(out.String()), "#aaaaaa Bob: hello")

	// When nothing changed, nothing is printed
	out.Reset()
	view.render([]chat.Message{hello}, counter)
	req.Empty(out.String())

	// When a reaction arrives, the line is printed again
	counts[hello.ID] = map[string]int{"👍": 2, "❤️": 0}
	view.render([]chat.Message{hello}, counter)
	req.Contains(color.ClearCode(out.String()), "~ ")
	req.Contains(out.String(), "👍 2")
	req.NotContains(out.String(), "❤️")

	// When the message is deleted
	out.Reset()
	view.render(nil, counter)
	req.Contains(color.ClearCode(out.String()), "message aaaaaa deleted")
}

type fakeTarget struct {
	posted   []string
	reacted  []string
	deleted  []chat.MessageID
	joined   int
	snapshot []chat.Message
	err      error
}

func (f *fakeTarget) Post(_ context.Context, text string) (chat.Message, error) {
	f.posted = append(f.posted, text)
	return chat.Message{}, f.err
}

func (f *fakeTarget) Delete(_ context.Context, id chat.MessageID) error {
	f.deleted = append(f.deleted, id)
	return f.err
}

func (f *fakeTarget) React(_ context.Context, id chat.MessageID, emoji string) error {
	f.reacted = append(f.reacted, string(id)+emoji)
	return f.err
}

func (f *fakeTarget) Join(context.Context) (chat.Channel, error) {
	f.joined++
	return chat.Channel{}, f.err
}

func (f *fakeTarget) Leave(context.Context) (chat.Channel, error) {
	f.joined--
	return chat.Channel{}, f.err
}

func (f *fakeTarget) Snapshot() []chat.Message { return f.snapshot }

func TestExecute(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	var out bytes.Buffer
	target := &fakeTarget{snapshot: []chat.Message{{ID: "01HZX0AAAAAA"}}}

	req.False(execute(ctx, &out, target, "hello"))
	req.False(execute(ctx, &out, target, "/react aaaaaa 👍"))
	req.False(execute(ctx, &out, target, "/delete aaaaaa"))
	req.False(execute(ctx, &out, target, "/join"))
	req.True(execute(ctx, &out, target, "/quit"))

	req.Equal([]string{"hello"}, target.posted)
	req.Equal([]string{"01HZX0AAAAAA👍"}, target.reacted)
	req.Equal([]chat.MessageID{"01HZX0AAAAAA"}, target.deleted)
	req.Equal(1, target.joined)

	// Errors are printed, the client keeps going
	out.Reset()
	target.err = errors.ErrNotMember
	req.False(execute(ctx, &out, target, "hi"))
	req.Contains(out.String(), errors.ErrNotMember.Error())

	out.Reset()
	req.False(execute(ctx, &out, target, "/delete zzz"))
	req.Contains(out.String(), errors.ErrMessageNotFound.Error())
}

func TestStreamURL(t *testing.T) {
	req := require.New(t)
	req.Equal("ws://localhost:8080/api/stream", streamURL(internal.ClientConfig{ServerURL: "http://localhost:8080/"}))
	req.Equal("wss://chat.example.com/api/stream", streamURL(internal.ClientConfig{ServerURL: "https://chat.example.com"}))
	req.Equal("ws://other/stream", streamURL(internal.ClientConfig{StreamURL: "ws://other/stream"}))
}
