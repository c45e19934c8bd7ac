package projection

import (
	"channel-chat/domain/chat"

	"github.com/samber/lo"
)

// ReactionGroup is the aggregated view of one emoji on a message.
type ReactionGroup struct {
	Emoji    string
	Count    int
	Reactors []chat.UserID
}

// Aggregate counts reactions per emoji, a reactor counts once per emoji.
// Every emoji of emojiSet is present in the result, with zero when nobody used it.
// An empty emojiSet counts every emoji found.
func Aggregate(reactions []chat.Reaction, emojiSet []string) map[string]int {
	counts := make(map[string]int, len(emojiSet))
	for _, e := range emojiSet {
		counts[e] = 0
	}
	for _, r := range dedupe(reactions) {
		if _, ok := counts[r.Emoji]; ok || len(emojiSet) == 0 {
			counts[r.Emoji]++
		}
	}
	return counts
}

// Groups returns one group per emoji in first-seen order.
func Groups(reactions []chat.Reaction) []ReactionGroup {
	unique := dedupe(reactions)
	emojis := lo.Uniq(lo.Map(unique, func(r chat.Reaction, _ int) string { return r.Emoji }))
	return lo.Map(emojis, func(emoji string, _ int) ReactionGroup {
		reactors := lo.FilterMap(unique, func(r chat.Reaction, _ int) (chat.UserID, bool) {
			return r.Reactor, r.Emoji == emoji
		})
		return ReactionGroup{Emoji: emoji, Count: len(reactors), Reactors: reactors}
	})
}

// ReactedBy tells whether user already put emoji, the UI shows the toggle as active.
func ReactedBy(reactions []chat.Reaction, user chat.UserID, emoji string) bool {
	return lo.ContainsBy(reactions, func(r chat.Reaction) bool {
		return r.Reactor == user && r.Emoji == emoji
	})
}

type reactionKey struct {
	reactor chat.UserID
	emoji   string
}

func dedupe(reactions []chat.Reaction) []chat.Reaction {
	return lo.UniqBy(reactions, func(r chat.Reaction) reactionKey {
		return reactionKey{reactor: r.Reactor, emoji: r.Emoji}
	})
}
