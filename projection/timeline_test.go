package projection

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"channel-chat/domain/chat"
	"channel-chat/errors"

	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

const channelID = chat.ChannelID("general")

var origin = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func message(id string, second int) chat.Message {
	return chat.Message{
		ID:        chat.MessageID(id),
		ChannelID: channelID,
		Author:    chat.Identity{ID: "alice", DisplayName: "Alice"},
		Body:      "hello " + id,
		CreatedAt: origin.Add(time.Duration(second) * time.Second),
	}
}

func ids(messages []chat.Message) []chat.MessageID {
	return lo.Map(messages, func(m chat.Message, _ int) chat.MessageID { return m.ID })
}

func newTimeline(opts ...Option) *Timeline {
	return NewTimeline(logs.GetLoggerFromLevel(slog.LevelDebug), channelID, opts...)
}

func TestTimeline_Append_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	timeline := newTimeline()

	// Given the stream redelivers the same messages after a reconnect
	deliveries := []chat.Message{message("a", 1), message("b", 2), message("a", 1), message("b", 2), message("a", 1)}

	// When every delivery is appended
	for _, m := range deliveries {
		timeline.Append(m)
	}

	// Then each id is visible exactly once
	req.Equal([]chat.MessageID{"a", "b"}, ids(timeline.Snapshot()))
}

func TestTimeline_Duplicate_Append_Does_Not_Update(t *testing.T) {
	req := require.New(t)
	timeline := newTimeline()
	original := message("a", 1)
	req.True(timeline.Append(original))

	altered := original
	altered.Body = "edited"
	req.False(timeline.Append(altered))

	got, ok := timeline.Get("a")
	req.True(ok)
	req.Equal(original.Body, got.Body)
}

func TestTimeline_Stream_Message_Inserted_Between_History(t *testing.T) {
	req := require.New(t)
	timeline := newTimeline()

	// Given history with A(t=1) and C(t=3)
	req.NoError(timeline.Seed([]chat.Message{message("A", 1), message("C", 3)}))

	// When the stream delivers B(t=2)
	timeline.Append(message("B", 2))

	// Then B is placed by its timestamp
	req.Equal([]chat.MessageID{"A", "B", "C"}, ids(timeline.Snapshot()))
}

func TestTimeline_Total_Order_Regardless_Of_Arrival(t *testing.T) {
	req := require.New(t)
	timeline := newTimeline()

	arrivals := []chat.Message{
		message("m5", 5), message("m1", 1), message("z", 3), message("a", 3),
		message("m4", 4), message("k", 3), message("m0", 0),
	}
	for _, m := range arrivals {
		timeline.Append(m)
	}

	snapshot := timeline.Snapshot()
	req.Len(snapshot, len(arrivals))
	for i := 1; i < len(snapshot); i++ {
		prev, cur := snapshot[i-1], snapshot[i]
		req.False(cur.CreatedAt.Before(prev.CreatedAt), "timestamps must be non-decreasing")
		if cur.CreatedAt.Equal(prev.CreatedAt) {
			req.Less(string(prev.ID), string(cur.ID), "equal timestamps are ordered by id")
		}
	}
	req.Equal([]chat.MessageID{"m0", "m1", "a", "k", "z", "m4", "m5"}, ids(snapshot))
}

func TestTimeline_Seed_Twice_Is_An_Error(t *testing.T) {
	req := require.New(t)
	timeline := newTimeline()

	req.NoError(timeline.Seed(nil))
	err := timeline.Seed([]chat.Message{message("a", 1)})

	req.ErrorIs(err, errors.ErrTimelineAlreadySeeded)
	req.Equal(0, timeline.Len())
}

func TestTimeline_Seed_Keeps_Messages_Streamed_Before_History(t *testing.T) {
	req := require.New(t)
	timeline := newTimeline()

	// Given the stream outraced the history fetch
	timeline.Append(message("c", 3))

	// When the history arrives, overlapping with the streamed message
	req.NoError(timeline.Seed([]chat.Message{message("a", 1), message("b", 2), message("c", 3)}))

	// Then both sources are merged without duplicates
	req.Equal([]chat.MessageID{"a", "b", "c"}, ids(timeline.Snapshot()))
}

func TestTimeline_Remove_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	timeline := newTimeline()
	req.NoError(timeline.Seed([]chat.Message{message("a", 1), message("b", 2)}))

	req.True(timeline.Remove("a"))
	after := timeline.Snapshot()

	req.False(timeline.Remove("a"))
	req.Equal(after, timeline.Snapshot())
	req.Equal([]chat.MessageID{"b"}, ids(after))
}

func TestTimeline_Remove_Unknown_Is_Silent(t *testing.T) {
	req := require.New(t)
	timeline := newTimeline()
	timeline.Append(message("a", 1))

	req.False(timeline.Remove("never-seen"))
	req.Equal([]chat.MessageID{"a"}, ids(timeline.Snapshot()))
}

func TestTimeline_Removed_Message_Is_Not_Resurrected(t *testing.T) {
	req := require.New(t)
	timeline := newTimeline()

	// Given a delete event arrived before the history that still contains the message
	timeline.Remove("b")
	req.NoError(timeline.Seed([]chat.Message{message("a", 1), message("b", 2)}))

	// And the create event is redelivered later
	req.False(timeline.Append(message("b", 2)))

	req.Equal([]chat.MessageID{"a"}, ids(timeline.Snapshot()))
}

func TestTimeline_Patch_In_Place(t *testing.T) {
	req := require.New(t)
	timeline := newTimeline()
	timeline.Append(message("a", 1))
	reactions := []chat.Reaction{{MessageID: "a", Reactor: "bob", Emoji: "👍"}}

	req.True(timeline.PatchReactions("a", reactions))

	got, _ := timeline.Get("a")
	req.Equal(reactions, got.Reactions)
	req.Equal(0, timeline.Pending())
}

func TestTimeline_Patch_Before_Append_Is_Applied_Once(t *testing.T) {
	req := require.New(t)
	timeline := newTimeline()
	reactions := []chat.Reaction{
		{MessageID: "a", Reactor: "bob", Emoji: "👍"},
		{MessageID: "a", Reactor: "clara", Emoji: "🎉"},
	}

	// Given a reaction update outraced the creation of its message
	req.False(timeline.PatchReactions("a", reactions))
	req.Equal(1, timeline.Pending())

	// When the message is appended
	timeline.Append(message("a", 1))

	// Then it carries the buffered reactions and the buffer is released
	got, ok := timeline.Get("a")
	req.True(ok)
	req.Equal(reactions, got.Reactions)
	req.Equal(0, timeline.Pending())
}

func TestTimeline_Latest_Buffered_Patch_Wins(t *testing.T) {
	req := require.New(t)
	timeline := newTimeline()
	first := []chat.Reaction{{MessageID: "a", Reactor: "bob", Emoji: "👍"}}
	second := []chat.Reaction{{MessageID: "a", Reactor: "bob", Emoji: "👍"}, {MessageID: "a", Reactor: "clara", Emoji: "👍"}}

	timeline.PatchReactions("a", first)
	timeline.PatchReactions("a", second)
	req.Equal(1, timeline.Pending())

	req.NoError(timeline.Seed([]chat.Message{message("a", 1)}))

	got, _ := timeline.Get("a")
	req.Equal(second, got.Reactions)
}

func TestTimeline_Orphan_Patch_Expires(t *testing.T) {
	req := require.New(t)
	now := origin
	timeline := newTimeline(WithPendingPatchTTL(10*time.Second), WithClock(func() time.Time { return now }))

	timeline.PatchReactions("ghost", []chat.Reaction{{MessageID: "ghost", Reactor: "bob", Emoji: "👍"}})
	req.Empty(timeline.DropExpiredPatches(now.Add(5 * time.Second)))
	req.Equal(1, timeline.Pending())

	dropped := timeline.DropExpiredPatches(now.Add(10 * time.Second))

	req.Equal([]chat.MessageID{"ghost"}, dropped)
	req.Equal(0, timeline.Pending())

	// A late creation does not get the released patch
	timeline.Append(message("ghost", 1))
	got, _ := timeline.Get("ghost")
	req.Empty(got.Reactions)
}

func TestTimeline_Pending_Buffer_Is_Bounded(t *testing.T) {
	req := require.New(t)
	timeline := newTimeline(WithMaxPendingPatches(3))

	for i := 0; i < 10; i++ {
		id := chat.MessageID(fmt.Sprintf("m%d", i))
		timeline.PatchReactions(id, []chat.Reaction{{MessageID: id, Reactor: "bob", Emoji: "👍"}})
	}

	req.Equal(3, timeline.Pending())

	// Only the most recent patches survived
	timeline.Append(message("m0", 0))
	timeline.Append(message("m9", 9))
	m0, _ := timeline.Get("m0")
	m9, _ := timeline.Get("m9")
	req.Empty(m0.Reactions)
	req.Len(m9.Reactions, 1)
}

func TestTimeline_Ignores_Foreign_Channel(t *testing.T) {
	req := require.New(t)
	timeline := newTimeline()
	foreign := message("x", 1)
	foreign.ChannelID = "random"

	req.False(timeline.Append(foreign))
	req.Equal(0, timeline.Len())
}

func TestTimeline_Snapshot_Is_A_Copy(t *testing.T) {
	req := require.New(t)
	timeline := newTimeline()
	timeline.Append(message("a", 1))
	timeline.PatchReactions("a", []chat.Reaction{{MessageID: "a", Reactor: "bob", Emoji: "👍"}})

	snapshot := timeline.Snapshot()
	snapshot[0].Body = "mutated"
	snapshot[0].Reactions[0].Emoji = "👎"

	got, _ := timeline.Get("a")
	req.Equal("hello a", got.Body)
	req.Equal("👍", got.Reactions[0].Emoji)
}
