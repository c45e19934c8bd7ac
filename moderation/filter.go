// Package moderation masks forbidden words in message bodies before they are stored.
package moderation

import (
	"log/slog"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// WordFilter matches a dictionary in one pass over the text, whatever its size.
// Matching ignores case, punctuation, spacing and common leet speak.
type WordFilter struct {
	log     *slog.Logger
	matcher *goahocorasick.Machine
	mask    rune
}

type normalizedText struct {
	runes   []rune
	origIdx []int
}

// NewWordFilter builds the automaton. Words made only of noise are ignored,
// an empty dictionary gives a filter that never masks anything.
func NewWordFilter(log *slog.Logger, words []string, mask rune) (*WordFilter, error) {
	patterns := make([][]rune, 0, len(words))
	for _, word := range words {
		if pattern := normalizeRunes([]rune(word)); len(pattern) > 0 {
			patterns = append(patterns, pattern)
		}
	}
	filter := &WordFilter{log: log, mask: mask}
	if len(patterns) == 0 {
		return filter, nil
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	filter.matcher = m
	log.Debug("Word filter built", "words", len(patterns))
	return filter, nil
}

// Censor masks every matched word in place, spacing and untouched characters are kept.
// It returns the masked text and the dictionary words found, nil when none.
func (f *WordFilter) Censor(text string) (string, []string) {
	if f.matcher == nil {
		return text, nil
	}
	normalized := normalize(text)
	if len(normalized.runes) == 0 {
		return text, nil
	}
	terms := f.matcher.MultiPatternSearch(normalized.runes, false)
	if len(terms) == 0 {
		return text, nil
	}

	runes := []rune(text)
	found := make([]string, 0, len(terms))
	for _, term := range terms {
		start := term.Pos
		end := start + len(term.Word)
		if start < 0 || end > len(normalized.origIdx) {
			continue
		}
		for i := normalized.origIdx[start]; i <= normalized.origIdx[end-1]; i++ {
			runes[i] = f.mask
		}
		found = append(found, string(term.Word))
	}
	if len(found) == 0 {
		return text, nil
	}
	return string(runes), found
}

// normalize keeps the position of every kept rune in the original text.
func normalize(input string) normalizedText {
	runes := []rune(input)
	out := normalizedText{
		runes:   make([]rune, 0, len(runes)),
		origIdx: make([]int, 0, len(runes)),
	}
	for i, r := range runes {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out.runes = append(out.runes, unicode.ToLower(clean))
		out.origIdx = append(out.origIdx, i)
	}
	return out
}

func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// simplifyRune maps leet speak back to letters.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
