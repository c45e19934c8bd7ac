// Package projection builds the local timeline of a channel from observed events.
// Handles ordering, deduplication, and reaction projections.
// Does not emit events or interact with UI directly.
package projection

import (
	"channel-chat/domain/chat"
	"channel-chat/errors"
	"log/slog"
	"sort"
	"sync"
	"time"
)

const (
	DefaultMaxPendingPatches = 256
	DefaultPendingPatchTTL   = 30 * time.Second
	DefaultMaxTombstones     = 1024
)

type pendingPatch struct {
	reactions []chat.Reaction
	at        time.Time
}

// Timeline merges a finite history snapshot with the unbounded live suffix
// of a channel into one ordered, duplicate-free sequence.
//
// Every mutation is idempotent and order tolerant: a duplicated create is ignored,
// a removed id is remembered so it cannot come back, and a reaction patch for a
// message not yet seen waits for it in a bounded buffer.
// A single goroutine is expected to mutate it, reads are safe from any goroutine.
type Timeline struct {
	mu        sync.RWMutex
	log       *slog.Logger
	channelID chat.ChannelID
	messages  []chat.Message
	index     map[chat.MessageID]struct{}
	seeded    bool

	pending      map[chat.MessageID]pendingPatch
	pendingOrder []chat.MessageID
	maxPending   int
	pendingTTL   time.Duration

	tombstones     map[chat.MessageID]struct{}
	tombstoneOrder []chat.MessageID
	maxTombstones  int

	now func() time.Time
}

type Option func(*Timeline)

func WithMaxPendingPatches(n int) Option {
	return func(t *Timeline) {
		if n > 0 {
			t.maxPending = n
		}
	}
}

func WithPendingPatchTTL(ttl time.Duration) Option {
	return func(t *Timeline) {
		if ttl > 0 {
			t.pendingTTL = ttl
		}
	}
}

func WithMaxTombstones(n int) Option {
	return func(t *Timeline) {
		if n > 0 {
			t.maxTombstones = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(t *Timeline) {
		t.now = now
	}
}

func NewTimeline(log *slog.Logger, channelID chat.ChannelID, opts ...Option) *Timeline {
	t := &Timeline{
		log:           log,
		channelID:     channelID,
		index:         make(map[chat.MessageID]struct{}),
		pending:       make(map[chat.MessageID]pendingPatch),
		maxPending:    DefaultMaxPendingPatches,
		pendingTTL:    DefaultPendingPatchTTL,
		tombstones:    make(map[chat.MessageID]struct{}),
		maxTombstones: DefaultMaxTombstones,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Seed loads the history page. It may only be called once per timeline.
// Messages already delivered by the stream are kept: the stream can outrace the history fetch.
func (t *Timeline) Seed(messages []chat.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.seeded {
		return errors.ErrTimelineAlreadySeeded
	}
	t.seeded = true

	for _, m := range messages {
		t.insert(m)
	}
	return nil
}

func (t *Timeline) Seeded() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.seeded
}

// Append inserts the message at its ordered position.
// A message already present or already removed is ignored, bodies never change after creation.
func (t *Timeline) Append(message chat.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.insert(message)
}

func (t *Timeline) insert(message chat.Message) bool {
	if message.ChannelID != t.channelID {
		t.log.Debug("Ignoring message of another channel",
			"channel_id", t.channelID, "message_channel_id", message.ChannelID, "message_id", message.ID)
		return false
	}
	if _, ok := t.index[message.ID]; ok {
		return false
	}
	if _, ok := t.tombstones[message.ID]; ok {
		t.log.Debug("Ignoring removed message", "channel_id", t.channelID, "message_id", message.ID)
		return false
	}

	m := message.Clone()
	if patch, ok := t.pending[m.ID]; ok {
		m.Reactions = append([]chat.Reaction(nil), patch.reactions...)
		t.dropPending(m.ID)
	}

	pos := sort.Search(len(t.messages), func(i int) bool {
		return m.Before(t.messages[i])
	})
	t.messages = append(t.messages, chat.Message{})
	copy(t.messages[pos+1:], t.messages[pos:])
	t.messages[pos] = m
	t.index[m.ID] = struct{}{}
	return true
}

// Remove deletes the message if present and remembers its id.
// Removing an unknown id is a silent no-op for the visible sequence.
func (t *Timeline) Remove(id chat.MessageID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.tombstone(id)
	t.dropPending(id)

	if _, ok := t.index[id]; !ok {
		return false
	}
	delete(t.index, id)
	for i := range t.messages {
		if t.messages[i].ID == id {
			t.messages = append(t.messages[:i], t.messages[i+1:]...)
			break
		}
	}
	return true
}

// PatchReactions replaces the reaction list of the message in place.
// When the message is unknown the patch is kept for the next Append of the same id,
// it returns false in that case.
func (t *Timeline) PatchReactions(id chat.MessageID, reactions []chat.Reaction) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.index[id]; ok {
		for i := range t.messages {
			if t.messages[i].ID == id {
				t.messages[i].Reactions = append([]chat.Reaction(nil), reactions...)
				return true
			}
		}
	}
	if _, ok := t.tombstones[id]; ok {
		return false
	}

	if _, ok := t.pending[id]; !ok {
		t.pendingOrder = append(t.pendingOrder, id)
	}
	t.pending[id] = pendingPatch{
		reactions: append([]chat.Reaction(nil), reactions...),
		at:        t.now(),
	}
	for len(t.pendingOrder) > t.maxPending {
		oldest := t.pendingOrder[0]
		t.log.Debug(errors.ErrOrphanPatch.Error(), "channel_id", t.channelID, "message_id", oldest, "reason", "buffer full")
		t.dropPending(oldest)
	}
	return false
}

// DropExpiredPatches releases the buffered patches older than the TTL and returns their ids.
func (t *Timeline) DropExpiredPatches(now time.Time) []chat.MessageID {
	t.mu.Lock()
	defer t.mu.Unlock()

	var dropped []chat.MessageID
	for _, id := range append([]chat.MessageID(nil), t.pendingOrder...) {
		if now.Sub(t.pending[id].at) >= t.pendingTTL {
			t.dropPending(id)
			dropped = append(dropped, id)
		}
	}
	return dropped
}

func (t *Timeline) dropPending(id chat.MessageID) {
	if _, ok := t.pending[id]; !ok {
		return
	}
	delete(t.pending, id)
	for i, p := range t.pendingOrder {
		if p == id {
			t.pendingOrder = append(t.pendingOrder[:i], t.pendingOrder[i+1:]...)
			break
		}
	}
}

func (t *Timeline) tombstone(id chat.MessageID) {
	if _, ok := t.tombstones[id]; ok {
		return
	}
	t.tombstones[id] = struct{}{}
	t.tombstoneOrder = append(t.tombstoneOrder, id)
	if len(t.tombstoneOrder) > t.maxTombstones {
		delete(t.tombstones, t.tombstoneOrder[0])
		t.tombstoneOrder = t.tombstoneOrder[1:]
	}
}

// Snapshot returns a copy of the ordered visible messages.
func (t *Timeline) Snapshot() []chat.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]chat.Message, len(t.messages))
	for i, m := range t.messages {
		out[i] = m.Clone()
	}
	return out
}

func (t *Timeline) Get(id chat.MessageID) (chat.Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if _, ok := t.index[id]; !ok {
		return chat.Message{}, false
	}
	for _, m := range t.messages {
		if m.ID == id {
			return m.Clone(), true
		}
	}
	return chat.Message{}, false
}

func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Pending is the number of buffered reaction patches.
func (t *Timeline) Pending() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.pending)
}
