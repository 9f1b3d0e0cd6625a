package stem

import (
	"strings"

	"github.com/patrickmn/go-cache"
)

// maxDeinflections caps how many rules may be chained onto one token.
const maxDeinflections = 12

var lemmaCache = cache.New(cache.NoExpiration, 0)

type lemmaState struct {
	text        string
	classes     wordClass
	inflections []string
}

// Lemmatize returns every dictionary form token may be an inflection of,
// each with the chain of rules that leads back to it. The token itself is
// not included. Results are memoized for the life of the process.
func Lemmatize(token string) []Reduction {
	if token == "" {
		return nil
	}
	if v, ok := lemmaCache.Get(token); ok {
		return cloneReductions(v.([]Reduction))
	}
	out := lemmatize(token)
	lemmaCache.SetDefault(token, out)
	return cloneReductions(out)
}

func lemmatize(token string) []Reduction {
	var out []Reduction
	visited := map[string]bool{}
	queue := []lemmaState{{text: token}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if len(cur.inflections) >= maxDeinflections {
			continue
		}
		for _, g := range deinflectionRules {
			for _, r := range g.rules {
				if !strings.HasSuffix(cur.text, r.kanaIn) {
					continue
				}
				if cur.classes != 0 && r.rulesIn != 0 && cur.classes&r.rulesIn == 0 {
					continue
				}
				text := cur.text[:len(cur.text)-len(r.kanaIn)] + r.kanaOut
				if text == "" {
					continue
				}
				key := text + "\x00" + g.name
				if visited[key] {
					continue
				}
				visited[key] = true

				infl := make([]string, 0, len(cur.inflections)+1)
				infl = append(infl, cur.inflections...)
				infl = append(infl, g.name)
				next := lemmaState{text: text, classes: r.rulesOut, inflections: infl}
				queue = append(queue, next)
				out = append(out, Reduction{Text: text, Inflections: infl, Rules: r.rulesOut.names()})
			}
		}
	}
	return out
}

func cloneReductions(in []Reduction) []Reduction {
	if in == nil {
		return nil
	}
	out := make([]Reduction, len(in))
	for i, r := range in {
		out[i] = Reduction{
			Text:        r.Text,
			Inflections: append([]string(nil), r.Inflections...),
			Rules:       append([]string(nil), r.Rules...),
		}
	}
	return out
}

// RulesMatch reports whether an entry with the given Yomitan rule
// identifiers may be the target of a reduction with rules. Either side
// being empty matches everything.
func RulesMatch(reduction, entry []string) bool {
	if len(reduction) == 0 || len(entry) == 0 {
		return true
	}
	return parseClasses(reduction)&parseClasses(entry) != 0
}

// JapaneseReducer reduces Japanese tokens to their possible lemmas.
type JapaneseReducer struct{}

// Reduce lemmatizes token. Mode has no effect on Japanese text.
func (JapaneseReducer) Reduce(token string, _ Mode) []Reduction {
	return Lemmatize(token)
}
