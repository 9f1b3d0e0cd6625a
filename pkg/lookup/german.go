package lookup

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/japaniel/lexicard/pkg/lexicon"
	"github.com/japaniel/lexicard/pkg/stem"
	"github.com/japaniel/lexicard/pkg/store"
	"github.com/japaniel/lexicard/pkg/tokenize"
)

// GermanMatcher matches whitespace-delimited German text. Every position
// is tried with the token alone and with the phrases formed by combining
// it with the tokens that follow it.
type GermanMatcher struct {
	Table   store.Table
	Format  lexicon.Format
	Options Options
}

type phrase struct {
	text  string
	heads []string
	combo string
}

// Match implements Matcher.
func (m GermanMatcher) Match(ctx context.Context, st store.Store, dictKeys []int64, text string) (lexicon.TokensTranslations, error) {
	if text == "" || len(dictKeys) == 0 {
		return nil, nil
	}
	opts := m.Options.withDefaults()
	toks := tokenize.Words(text)
	if len(toks) == 0 {
		return nil, nil
	}

	keys := newKeySet()
	phrases := make([][]phrase, len(toks))
	for i := range toks {
		end := min(len(toks), i+opts.MaxPhraseTokens)
		window := make([]string, 0, end-i)
		for _, t := range toks[i:end] {
			window = append(window, t.Text)
		}
		for _, comb := range tokenize.Combinations(window) {
			p := phrase{
				text:  strings.Join(comb, " "),
				combo: stem.PhraseKey(comb),
			}
			p.heads = caseVariants(p.text)
			for _, h := range p.heads {
				keys.add(store.IndexHead, h)
			}
			keys.add(store.IndexCombo, p.combo)
			phrases[i] = append(phrases[i], p)
		}
	}

	found, err := queryIndexes(ctx, st, m.Table, dictKeys, keys.keys)
	if err != nil {
		return nil, err
	}

	var out lexicon.TokensTranslations
	for i, tok := range toks {
		var tokens []lexicon.TranslatedToken
		seen := map[string]bool{}
		for _, p := range phrases[i] {
			if seen[p.text] {
				continue
			}
			seen[p.text] = true
			var set candidateSet
			for _, h := range p.heads {
				for _, e := range found[store.IndexHead][h] {
					set.add(lexicon.Candidate{MatchedText: p.text, Entry: e, Format: m.Format})
				}
			}
			for _, e := range found[store.IndexCombo][p.combo] {
				set.add(lexicon.Candidate{
					MatchedText: p.text,
					Entry:       e,
					Inflections: []string{"stem"},
					Format:      m.Format,
				})
			}
			cands := Sort(set.cands, lexicon.LanguageGerman)
			if len(cands) == 0 {
				continue
			}
			tokens = append(tokens, lexicon.TranslatedToken{MatchedTokenText: p.text, Candidates: cands})
		}
		if len(tokens) == 0 {
			continue
		}
		sortTokens(tokens)
		out = append(out, lexicon.Position{TextCharacterIndex: tok.Index, TranslatedTokens: tokens})
	}
	return out, nil
}

// caseVariants returns s, its lowercase form and its capitalized form.
func caseVariants(s string) []string {
	out := []string{s}
	add := func(v string) {
		for _, o := range out {
			if o == v {
				return
			}
		}
		out = append(out, v)
	}
	add(strings.ToLower(s))
	r, n := utf8.DecodeRuneInString(s)
	add(string(unicode.ToUpper(r)) + strings.ToLower(s[n:]))
	return out
}
