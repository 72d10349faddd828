package moderation

import (
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Moderator masks configured words in message text. Matching ignores case,
// punctuation and common leet substitutions; masked runes keep their position.
type Moderator struct {
	matcher *goahocorasick.Machine
	mask    rune
}

type runeIndex struct {
	folded []rune
	origin []int
}

// NewModerator builds the automaton for words. Blank entries are ignored; with
// no word left the returned Moderator leaves text untouched.
func NewModerator(words []string, mask rune) (*Moderator, error) {
	var patterns [][]rune
	for _, word := range words {
		if folded := foldRunes([]rune(strings.TrimSpace(word))); len(folded) > 0 {
			patterns = append(patterns, folded)
		}
	}
	if len(patterns) == 0 {
		return &Moderator{mask: mask}, nil
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{matcher: m, mask: mask}, nil
}

// Censor returns text with every matched word replaced by the mask rune.
func (m *Moderator) Censor(text string) string {
	if m == nil || m.matcher == nil {
		return text
	}
	idx := index(text)
	if len(idx.folded) == 0 {
		return text
	}

	hits := m.matcher.MultiPatternSearch(idx.folded, false)
	if len(hits) == 0 {
		return text
	}

	out := []rune(text)
	for _, hit := range hits {
		start, end := hit.Pos, hit.Pos+len(hit.Word)
		if start < 0 || end > len(idx.origin) {
			continue
		}
		for i := idx.origin[start]; i <= idx.origin[end-1]; i++ {
			out[i] = m.mask
		}
	}
	return string(out)
}

func index(text string) runeIndex {
	runes := []rune(text)
	idx := runeIndex{
		folded: make([]rune, 0, len(runes)),
		origin: make([]int, 0, len(runes)),
	}
	for i, r := range runes {
		f := fold(r)
		if ignorable(f) {
			continue
		}
		idx.folded = append(idx.folded, f)
		idx.origin = append(idx.origin, i)
	}
	return idx
}

func foldRunes(runes []rune) []rune {
	out := make([]rune, 0, len(runes))
	for _, r := range runes {
		if f := fold(r); !ignorable(f) {
			out = append(out, f)
		}
	}
	return out
}

func fold(r rune) rune {
	switch r {
	case '4', '@':
		r = 'a'
	case '3', '€':
		r = 'e'
	case '1', '!', '|':
		r = 'i'
	case '0':
		r = 'o'
	case '5', '$':
		r = 's'
	}
	return unicode.ToLower(r)
}

func ignorable(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
