// Package moderation masks blacklisted words in message bodies before they are stored.
package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Filter matches every blacklisted word in a single pass with an Aho-Corasick automaton.
// Matching ignores case, punctuation, spacing and common leet substitutions; the replacement is applied
// on the original runes so the untouched text keeps its exact shape.
type Filter struct {
	matcher     *goahocorasick.Machine
	replacement rune
}

// folded is a body reduced to its matchable runes, with the position each one had in the original.
type folded struct {
	runes    []rune
	position []int
}

func NewFilter(words []string, replacement rune) (*Filter, error) {
	patterns := make([][]rune, 0, len(words))
	for _, word := range words {
		if pattern := fold([]rune(word)).runes; len(pattern) > 0 {
			patterns = append(patterns, pattern)
		}
	}
	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	return &Filter{matcher: machine, replacement: replacement}, nil
}

// Censor returns body with every matched word replaced rune by rune.
func (f *Filter) Censor(body string) string {
	original := []rune(body)
	text := fold(original)
	if len(text.runes) == 0 {
		return body
	}
	hits := f.matcher.MultiPatternSearch(text.runes, false)
	if len(hits) == 0 {
		return body
	}
	for _, hit := range hits {
		first, last := hit.Pos, hit.Pos+len(hit.Word)-1
		if first < 0 || last >= len(text.position) {
			continue
		}
		for i := text.position[first]; i <= text.position[last]; i++ {
			original[i] = f.replacement
		}
	}
	return string(original)
}

func fold(input []rune) folded {
	out := folded{
		runes:    make([]rune, 0, len(input)),
		position: make([]int, 0, len(input)),
	}
	for i, r := range input {
		r = unleet(r)
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		out.runes = append(out.runes, unicode.ToLower(r))
		out.position = append(out.position, i)
	}
	return out
}

func unleet(r rune) rune {
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
