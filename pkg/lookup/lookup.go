// Package lookup matches text against a lexicon store and ranks the
// candidates found at every position.
package lookup

import (
	"context"
	"slices"
	"unicode/utf8"

	"github.com/japaniel/lexicard/pkg/lexicon"
	"github.com/japaniel/lexicard/pkg/store"
	"github.com/japaniel/lexicard/pkg/textsource"
	"github.com/japaniel/lexicard/pkg/tokenize"
	"golang.org/x/sync/errgroup"
)

// Matcher finds the dictionary entries of a text.
type Matcher interface {
	Match(ctx context.Context, st store.Store, dictKeys []int64, text string) (lexicon.TokensTranslations, error)
}

// Morphology analyzes text into tokens with base forms.
type Morphology interface {
	Analyze(text string) ([]textsource.Token, error)
}

// Options tune candidate generation.
type Options struct {
	// MaxLength is the longest substring tried in boundary-free scripts.
	MaxLength int
	// MaxPhraseTokens is the widest token window combined into phrases.
	MaxPhraseTokens int
	// Morphology, when set, contributes base forms of inflected Japanese
	// tokens as extra keys.
	Morphology Morphology
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{MaxLength: tokenize.DefaultMaxLength, MaxPhraseTokens: 5}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxLength < 1 {
		o.MaxLength = d.MaxLength
	}
	if o.MaxPhraseTokens < 1 {
		o.MaxPhraseTokens = d.MaxPhraseTokens
	}
	return o
}

// indexResults maps each queried key to the entries it matched.
type indexResults map[string][]lexicon.Entry

// queryIndexes issues one batched query per index concurrently and groups
// the returned entries by the key that matched them.
func queryIndexes(ctx context.Context, st store.Store, table store.Table, dictKeys []int64, keys map[store.Index][]string) (map[store.Index]indexResults, error) {
	indexes := make([]store.Index, 0, len(keys))
	for idx := range keys {
		indexes = append(indexes, idx)
	}
	slices.Sort(indexes)
	found := make([][]lexicon.Entry, len(indexes))

	g, gctx := errgroup.WithContext(ctx)
	for i, idx := range indexes {
		g.Go(func() error {
			entries, err := st.QueryEntries(gctx, table, idx, keys[idx], dictKeys)
			if err != nil {
				return lexicon.WrapStore("query "+idx.String(), err)
			}
			found[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[store.Index]indexResults, len(indexes))
	for i, idx := range indexes {
		wanted := make(map[string]bool, len(keys[idx]))
		for _, k := range keys[idx] {
			wanted[k] = true
		}
		res := indexResults{}
		for _, e := range found[i] {
			for _, k := range entryKeys(idx, e) {
				if wanted[k] {
					res[k] = append(res[k], e)
				}
			}
		}
		out[idx] = res
	}
	return out, nil
}

func entryKeys(idx store.Index, e lexicon.Entry) []string {
	switch idx {
	case store.IndexHead:
		return []string{e.Head}
	case store.IndexReading:
		if e.Variant == e.Pronunciation {
			return []string{e.Variant}
		}
		return []string{e.Variant, e.Pronunciation}
	case store.IndexCombo:
		return e.TokenCombos
	}
	return nil
}

// keySet collects distinct keys per index in insertion order.
type keySet struct {
	seen map[store.Index]map[string]bool
	keys map[store.Index][]string
}

func newKeySet() *keySet {
	return &keySet{seen: map[store.Index]map[string]bool{}, keys: map[store.Index][]string{}}
}

func (s *keySet) add(idx store.Index, k string) {
	if k == "" {
		return
	}
	m := s.seen[idx]
	if m == nil {
		m = map[string]bool{}
		s.seen[idx] = m
	}
	if !m[k] {
		m[k] = true
		s.keys[idx] = append(s.keys[idx], k)
	}
}

// candidateSet accumulates the candidates of one token, one per entry.
type candidateSet struct {
	byID  map[int64]int
	cands []lexicon.Candidate
}

func (s *candidateSet) add(c lexicon.Candidate) {
	if s.byID == nil {
		s.byID = map[int64]int{}
	}
	if i, ok := s.byID[c.Entry.ID]; ok {
		if len(c.Inflections) < len(s.cands[i].Inflections) {
			s.cands[i] = c
		}
		return
	}
	s.byID[c.Entry.ID] = len(s.cands)
	s.cands = append(s.cands, c)
}

// sortTokens orders tokens longest first, keeping the order of equal lengths.
func sortTokens(tokens []lexicon.TranslatedToken) {
	slices.SortStableFunc(tokens, func(a, b lexicon.TranslatedToken) int {
		return utf8.RuneCountInString(b.MatchedTokenText) - utf8.RuneCountInString(a.MatchedTokenText)
	})
}

// Merge combines the results of several matchers. Positions are merged by
// index; tokens with the same text have their candidates concatenated.
func Merge(results ...lexicon.TokensTranslations) lexicon.TokensTranslations {
	byIndex := map[int]*lexicon.Position{}
	var order []int
	for _, r := range results {
		for _, p := range r {
			dst, ok := byIndex[p.TextCharacterIndex]
			if !ok {
				dst = &lexicon.Position{TextCharacterIndex: p.TextCharacterIndex}
				byIndex[p.TextCharacterIndex] = dst
				order = append(order, p.TextCharacterIndex)
			}
			for _, tok := range p.TranslatedTokens {
				merged := false
				for i := range dst.TranslatedTokens {
					if dst.TranslatedTokens[i].MatchedTokenText == tok.MatchedTokenText {
						dst.TranslatedTokens[i].Candidates = append(dst.TranslatedTokens[i].Candidates, tok.Candidates...)
						merged = true
						break
					}
				}
				if !merged {
					dst.TranslatedTokens = append(dst.TranslatedTokens, lexicon.TranslatedToken{
						MatchedTokenText: tok.MatchedTokenText,
						Candidates:       slices.Clone(tok.Candidates),
					})
				}
			}
		}
	}
	slices.Sort(order)
	out := make(lexicon.TokensTranslations, 0, len(order))
	for _, idx := range order {
		p := byIndex[idx]
		sortTokens(p.TranslatedTokens)
		out = append(out, *p)
	}
	return out
}
