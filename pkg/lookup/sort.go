package lookup

import (
	"cmp"
	"slices"
	"strings"

	"github.com/japaniel/lexicard/pkg/lexicon"
	"github.com/japaniel/lexicard/pkg/stem"
	"github.com/japaniel/lexicard/pkg/tokenize"
	"golang.org/x/text/cases"
)

// foldCase case-folds s. Casers are stateful, so each call gets its own.
func foldCase(s string) string {
	return cases.Fold().String(s)
}

// fictionTags mark titles of films, books and similar works.
var fictionTags = map[string]bool{"f": true, "film": true, "lit": true, "title": true}

// preferredTags mark closed-class words that win ties over content words.
var preferredTags = map[string]bool{"pron": true, "conj": true}

type comparator func(a, b lexicon.Candidate) int

// prefer orders candidates satisfying p first.
func prefer(p func(c lexicon.Candidate) bool) comparator {
	return func(a, b lexicon.Candidate) int {
		pa, pb := p(a), p(b)
		switch {
		case pa && !pb:
			return -1
		case !pa && pb:
			return 1
		}
		return 0
	}
}

func avoid(p func(c lexicon.Candidate) bool) comparator {
	return prefer(func(c lexicon.Candidate) bool { return !p(c) })
}

var (
	germanCascade = []comparator{
		prefer(isExact),
		avoid(hasFictionTag),
		prefer(exactIgnoringAnnotations),
		prefer(foldedExact),
		prefer(foldedIgnoringAnnotations),
		prefer(singleTokenStemMatch),
		byPrefixTier,
		avoid(headContains("[")),
		avoid(headContains("(")),
		avoid(headContains("-")),
		prefer(hasPreferredTag),
		byFoldedHead,
	}
	cjkCascade = []comparator{
		prefer(isExact),
		prefer(exactIgnoringAnnotations),
		prefer(foldedExact),
		prefer(foldedIgnoringAnnotations),
		avoid(headContains("[")),
		avoid(headContains("(")),
		avoid(headContains("-")),
		prefer(hasPreferredTag),
		byInflectionCount,
		byFrequency,
		byFoldedHead,
	}
)

// Sort ranks the candidates of one token best first. German candidates
// whose headword carries a separable prefix the matched text lacks, or the
// other way round, are dropped. The input slice is reordered in place.
func Sort(cands []lexicon.Candidate, lang lexicon.Language) []lexicon.Candidate {
	cascade := cjkCascade
	if lang == lexicon.LanguageGerman {
		cascade = germanCascade
		cands = slices.DeleteFunc(cands, func(c lexicon.Candidate) bool {
			return prefixTier(c) == 0
		})
	}
	slices.SortStableFunc(cands, func(a, b lexicon.Candidate) int {
		for _, cmpFn := range cascade {
			if r := cmpFn(a, b); r != 0 {
				return r
			}
		}
		return cmp.Compare(a.Entry.ID, b.Entry.ID)
	})
	return cands
}

func isExact(c lexicon.Candidate) bool {
	if len(c.Inflections) > 0 {
		return false
	}
	e := c.Entry
	return e.Head == c.MatchedText || e.Variant == c.MatchedText || e.Pronunciation == c.MatchedText
}

// plainHead is the headword with annotation spans removed and whitespace
// collapsed.
func plainHead(c lexicon.Candidate) string {
	return strings.Join(strings.Fields(tokenize.StripAnnotations(c.Entry.Head)), " ")
}

func exactIgnoringAnnotations(c lexicon.Candidate) bool {
	return plainHead(c) == c.MatchedText
}

func foldedExact(c lexicon.Candidate) bool {
	return foldCase(c.Entry.Head) == foldCase(c.MatchedText)
}

func foldedIgnoringAnnotations(c lexicon.Candidate) bool {
	return foldCase(plainHead(c)) == foldCase(c.MatchedText)
}

func singleTokenStemMatch(c lexicon.Candidate) bool {
	if strings.Contains(c.MatchedText, " ") {
		return false
	}
	words := tokenize.WordStrings(c.Entry.Head)
	if len(words) != 1 {
		return false
	}
	return stem.Cistem(words[0], true) == stem.Cistem(c.MatchedText, true)
}

func tagFields(c lexicon.Candidate) []string {
	return strings.FieldsFunc(strings.ToLower(c.Entry.Tags), func(r rune) bool {
		return strings.ContainsRune(" \t[](){}.,;", r)
	})
}

func hasTag(set map[string]bool) func(lexicon.Candidate) bool {
	return func(c lexicon.Candidate) bool {
		for _, t := range tagFields(c) {
			if set[t] {
				return true
			}
		}
		return false
	}
}

var (
	hasFictionTag   = hasTag(fictionTags)
	hasPreferredTag = hasTag(preferredTags)
)

func headContains(s string) func(lexicon.Candidate) bool {
	return func(c lexicon.Candidate) bool {
		return strings.Contains(c.Entry.Head, s)
	}
}

// separablePrefix returns the separable prefix of the first word of text,
// or a later word that is a bare prefix, as in "kommt ... an".
func separablePrefix(text string) string {
	words := tokenize.WordStrings(text)
	if len(words) == 0 {
		return ""
	}
	if p, _ := stem.StripSeparablePrefix(words[0]); p != "" {
		return p
	}
	for _, w := range words[1:] {
		lw := strings.ToLower(w)
		if slices.Contains(stem.SeparablePrefixes, lw) {
			return lw
		}
	}
	return ""
}

// prefixTier grades how the separable prefixes of the matched text and the
// headword relate: 3 when they agree, 2 when neither has one, 1 when both
// have different ones and 0 when only one side has a prefix.
func prefixTier(c lexicon.Candidate) int {
	pm := separablePrefix(c.MatchedText)
	ph := separablePrefix(plainHead(c))
	switch {
	case pm == "" && ph == "":
		return 2
	case pm == ph:
		return 3
	case pm == "" || ph == "":
		return 0
	}
	return 1
}

func byPrefixTier(a, b lexicon.Candidate) int {
	return cmp.Compare(prefixTier(b), prefixTier(a))
}

func byInflectionCount(a, b lexicon.Candidate) int {
	return cmp.Compare(len(a.Inflections), len(b.Inflections))
}

func byFrequency(a, b lexicon.Candidate) int {
	fa, fb := a.Entry.Frequency, b.Entry.Frequency
	switch {
	case fa == nil && fb == nil:
		return 0
	case fa == nil:
		return 1
	case fb == nil:
		return -1
	}
	return cmp.Compare(*fb, *fa)
}

func byFoldedHead(a, b lexicon.Candidate) int {
	return strings.Compare(foldCase(a.Entry.Head), foldCase(b.Entry.Head))
}
