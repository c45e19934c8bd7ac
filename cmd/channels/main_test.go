package main

import (
	"bytes"
	"testing"

	"channel-chat/domain/chat"

	"github.com/stretchr/testify/require"
)

func TestPrintChannels(t *testing.T) {
	req := require.New(t)
	var out bytes.Buffer

	printChannels(&out, []chat.Channel{
		{ID: "c1", Name: "general", Title: "General", Members: []chat.UserID{"alice", "bob"}, Moderators: []chat.UserID{"alice"}},
		{ID: "c2", Name: "random"},
	})

	text := out.String()
	req.Contains(text, "#general")
	req.Contains(text, "General")
	req.Contains(text, "alice")
	req.Contains(text, "#random")
	req.Contains(text, "MODERATORS")
}
