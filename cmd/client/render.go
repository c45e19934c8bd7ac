package main

import (
	"channel-chat/domain/chat"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/gookit/color"
)

const shortIDLength = 6

type reactionCounter func(id chat.MessageID, emojiSet []string) (map[string]int, bool)

// renderer prints the timeline incrementally: new messages, changed reactions and deletions.
type renderer struct {
	out    io.Writer
	self   chat.UserID
	emojis []string
	lines  map[chat.MessageID]string
}

func newRenderer(out io.Writer, self chat.UserID, emojis []string) *renderer {
	return &renderer{out: out, self: self, emojis: emojis, lines: make(map[chat.MessageID]string)}
}

func (r *renderer) render(messages []chat.Message, counts reactionCounter) {
	present := make(map[chat.MessageID]struct{}, len(messages))
	for _, m := range messages {
		present[m.ID] = struct{}{}
		line := r.line(m, counts)
		previous, seen := r.lines[m.ID]
		switch {
		case !seen:
			fmt.Fprintln(r.out, line)
		case previous != line:
			fmt.Fprintln(r.out, color.Yellow.Sprint("~ ")+line)
		}
		r.lines[m.ID] = line
	}
	for id := range r.lines {
		if _, ok := present[id]; !ok {
			fmt.Fprintln(r.out, color.Red.Sprintf("✗ message %s deleted", shortID(id)))
			delete(r.lines, id)
		}
	}
}

func (r *renderer) line(m chat.Message, counts reactionCounter) string {
	author := m.Author.DisplayName
	if author == "" {
		author = string(m.Author.ID)
	}
	name := color.Cyan.Sprint(author)
	if m.Author.ID == r.self {
		name = color.Green.Sprint(author)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s: %s",
		color.Gray.Sprintf("[%s]", m.CreatedAt.Local().Format(time.TimeOnly)),
		color.Gray.Sprintf("#%s", shortID(m.ID)),
		name,
		m.Body)

	if reactions, ok := counts(m.ID, r.emojis); ok {
		for _, emoji := range r.emojiOrder(reactions) {
			if n := reactions[emoji]; n > 0 {
				fmt.Fprintf(&b, "  %s %d", emoji, n)
			}
		}
	}
	return b.String()
}

// emojiOrder is the configured emoji set, or every emoji found sorted when none is configured.
func (r *renderer) emojiOrder(reactions map[string]int) []string {
	if len(r.emojis) > 0 {
		return r.emojis
	}
	order := make([]string, 0, len(reactions))
	for emoji := range reactions {
		order = append(order, emoji)
	}
	sort.Strings(order)
	return order
}

func shortID(id chat.MessageID) string {
	s := string(id)
	if len(s) <= shortIDLength {
		return s
	}
	return strings.ToLower(s[len(s)-shortIDLength:])
}
