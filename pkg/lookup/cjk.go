package lookup

import (
	"context"
	"strings"

	"github.com/japaniel/lexicard/pkg/lexicon"
	"github.com/japaniel/lexicard/pkg/stem"
	"github.com/japaniel/lexicard/pkg/store"
	"github.com/japaniel/lexicard/pkg/tokenize"
)

// derivation is one key a surface candidate is looked up under.
type derivation struct {
	key         string
	inflections []string
	rules       []string
}

// CJKMatcher matches Chinese and Japanese text, which has no word
// boundaries, by trying every substring at every position.
type CJKMatcher struct {
	Table  store.Table
	Format lexicon.Format
	// Reducer expands candidates into lemmas; nil for Chinese.
	Reducer stem.Reducer
	Options Options
}

// Match implements Matcher.
func (m CJKMatcher) Match(ctx context.Context, st store.Store, dictKeys []int64, text string) (lexicon.TokensTranslations, error) {
	if text == "" || len(dictKeys) == 0 {
		return nil, nil
	}
	opts := m.Options.withDefaults()
	subs := tokenize.SplitSubstrings(text, opts.MaxLength)
	if len(subs.Distinct) == 0 {
		return nil, nil
	}

	derived := make(map[string][]derivation, len(subs.Distinct))
	keys := newKeySet()
	addKey := func(cand string, d derivation) {
		derived[cand] = append(derived[cand], d)
		keys.add(store.IndexHead, d.key)
		keys.add(store.IndexReading, d.key)
	}
	for _, c := range subs.Distinct {
		addKey(c, derivation{key: c})
		if h := ToHiragana(c); h != c {
			addKey(c, derivation{key: h})
		}
		if m.Reducer == nil {
			continue
		}
		for _, r := range m.Reducer.Reduce(c, stem.CaseSensitive) {
			addKey(c, derivation{key: r.Text, inflections: r.Inflections, rules: r.Rules})
		}
	}
	if opts.Morphology != nil && m.Format.Language() == lexicon.LanguageJapanese {
		toks, err := opts.Morphology.Analyze(text)
		if err == nil {
			for _, t := range toks {
				if !t.Inflected() {
					continue
				}
				if _, ok := derived[t.Surface]; !ok {
					continue
				}
				addKey(t.Surface, derivation{key: t.BaseForm, inflections: []string{"morphology"}})
			}
		}
	}

	found, err := queryIndexes(ctx, st, m.Table, dictKeys, keys.keys)
	if err != nil {
		return nil, err
	}

	var out lexicon.TokensTranslations
	for _, pos := range subs.Positions() {
		var tokens []lexicon.TranslatedToken
		for _, c := range subs.ByPosition[pos] {
			var set candidateSet
			for _, d := range derived[c] {
				for _, idx := range []store.Index{store.IndexHead, store.IndexReading} {
					for _, e := range found[idx][d.key] {
						if len(d.inflections) > 0 && !stem.RulesMatch(d.rules, strings.Fields(e.Rules)) {
							continue
						}
						set.add(lexicon.Candidate{
							MatchedText: c,
							Entry:       e,
							Inflections: d.inflections,
							Format:      m.Format,
						})
					}
				}
			}
			cands := Sort(set.cands, m.Format.Language())
			if len(cands) == 0 {
				continue
			}
			tokens = append(tokens, lexicon.TranslatedToken{MatchedTokenText: c, Candidates: cands})
		}
		if len(tokens) == 0 {
			continue
		}
		sortTokens(tokens)
		out = append(out, lexicon.Position{TextCharacterIndex: pos, TranslatedTokens: tokens})
	}
	return out, nil
}
