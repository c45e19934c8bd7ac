package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestChannel_WithMember_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	channel := Channel{ID: "general", Members: []UserID{"alice"}}

	// When bob joins twice
	joined := channel.WithMember("bob").WithMember("bob")

	// Then he appears only once
	req.Equal([]UserID{"alice", "bob"}, joined.Members)
	// And the original channel is untouched
	req.Equal([]UserID{"alice"}, channel.Members)
}

func TestChannel_WithoutMember_Drops_Moderator_Role(t *testing.T) {
	req := require.New(t)
	channel := Channel{
		ID:         "general",
		Members:    []UserID{"alice", "bob"},
		Moderators: []UserID{"bob"},
	}

	left := channel.WithoutMember("bob")

	req.False(left.IsMember("bob"))
	req.False(left.IsModerator("bob"))
	req.True(left.IsMember("alice"))

	// Leaving a channel you are not a member of changes nothing
	req.Equal(left, left.WithoutMember("clara"))
}

func TestChannel_Normalize_Makes_Moderators_Members(t *testing.T) {
	req := require.New(t)
	channel := Channel{
		Members:    []UserID{"alice", "alice"},
		Moderators: []UserID{"bob", "bob"},
	}

	normalized := channel.Normalize()

	req.Equal([]UserID{"alice", "bob"}, normalized.Members)
	req.Equal([]UserID{"bob"}, normalized.Moderators)
}

func TestMessage_Before_Breaks_Ties_By_ID(t *testing.T) {
	req := require.New(t)
	at := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	a := Message{ID: "a", CreatedAt: at}
	b := Message{ID: "b", CreatedAt: at}
	c := Message{ID: "0", CreatedAt: at.Add(time.Second)}

	req.True(a.Before(b))
	req.False(b.Before(a))
	req.True(b.Before(c))
	req.False(a.Before(a))
}
