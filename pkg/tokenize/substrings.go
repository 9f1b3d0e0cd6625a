package tokenize

import (
	"regexp"
	"slices"
	"unicode/utf8"
)

const (
	// DefaultMaxLength is the longest candidate generated for general lookup.
	DefaultMaxLength = 8
	// HighRecallLength is the longest candidate for higher-recall passes.
	HighRecallLength = 12
)

var segmentPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Substrings holds the candidates of a boundary-free text.
type Substrings struct {
	// ByPosition maps a rune offset to its candidates, longest first.
	ByPosition map[int][]string
	// Distinct holds every candidate once, in first-seen order.
	Distinct []string
}

// Positions returns the rune offsets that have candidates, ascending.
func (s Substrings) Positions() []int {
	out := make([]int, 0, len(s.ByPosition))
	for p := range s.ByPosition {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// SplitSubstrings generates, at every rune offset inside a letter/number
// run, the substrings of length 1..min(maxLen, remaining run). A maxLen
// below 1 selects DefaultMaxLength.
func SplitSubstrings(text string, maxLen int) Substrings {
	if maxLen < 1 {
		maxLen = DefaultMaxLength
	}
	out := Substrings{ByPosition: map[int][]string{}}
	if text == "" {
		return out
	}
	seen := map[string]struct{}{}

	for _, loc := range segmentPattern.FindAllStringIndex(text, -1) {
		base := utf8.RuneCountInString(text[:loc[0]])
		run := []rune(text[loc[0]:loc[1]])
		for i := range run {
			n := min(maxLen, len(run)-i)
			cands := make([]string, 0, n)
			for l := n; l >= 1; l-- {
				c := string(run[i : i+l])
				cands = append(cands, c)
				if _, ok := seen[c]; !ok {
					seen[c] = struct{}{}
					out.Distinct = append(out.Distinct, c)
				}
			}
			out.ByPosition[base+i] = cands
		}
	}
	return out
}
