package stem

import (
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/japaniel/lexicard/pkg/tokenize"
)

// SeparablePrefixes are German separable verb prefixes, stripped from the
// start of a token before stemming.
var SeparablePrefixes = []string{
	"ab", "an", "auf", "aus", "bei", "da", "dabei", "dagegen", "daher",
	"dahin", "daneben", "dar", "daran", "davon", "dazu", "dazwischen",
	"durch", "ein", "empor", "entgegen", "entlang", "entzwei", "fehl",
	"fern", "fest", "fort", "frei", "gegenüber", "heim", "her", "herab",
	"heran", "herauf", "heraus", "herbei", "herein", "herüber", "herum",
	"herunter", "hervor", "hin", "hinab", "hinauf", "hinaus", "hinein",
	"hinter", "hinterher", "hinunter", "hinweg", "hinzu", "los", "mit",
	"nach", "nieder", "statt", "teil", "um", "vor", "voran", "voraus",
	"vorbei", "vorüber", "vorweg", "weg", "weiter", "wieder", "zu",
	"zurecht", "zurück", "zusammen", "zuvor", "zwischen",
}

// minStemRunes is the shortest remainder a prefix may leave behind.
const minStemRunes = 3

// StripSeparablePrefix removes the longest separable prefix, optionally
// followed by "zu", from the start of word. It returns the lowercased
// prefix and the rest of the word; prefix is empty when nothing matched.
func StripSeparablePrefix(word string) (prefix, rest string) {
	runes := []rune(word)
	lower := []rune(strings.Map(unicode.ToLower, word))

	best := 0
	for _, p := range SeparablePrefixes {
		n := utf8.RuneCountInString(p)
		if n > best && hasRunePrefix(lower, p) {
			best = n
		}
	}
	if best == 0 {
		return "", word
	}
	start := best
	if hasRunePrefix(lower[start:], "zu") && len(lower)-start-2 >= minStemRunes {
		start += 2
	}
	if len(lower)-start < minStemRunes {
		return "", word
	}
	return string(lower[:best]), string(runes[start:])
}

func hasRunePrefix(s []rune, p string) bool {
	i := 0
	for _, r := range p {
		if i >= len(s) || s[i] != r {
			return false
		}
		i++
	}
	return true
}

var umlauts = strings.NewReplacer("ü", "u", "ö", "o", "ä", "a", "ß", "ss")

// Cistem implements the CISTEM stemmer (Weissweiler & Fraser, 2017).
// Capitalized words keep a trailing "t" unless caseInsensitive is set.
func Cistem(word string, caseInsensitive bool) string {
	if word == "" {
		return word
	}
	first, _ := utf8.DecodeRuneInString(word)
	upper := unicode.IsUpper(first)

	w := umlauts.Replace(strings.ToLower(word))
	if strings.HasPrefix(w, "ge") && utf8.RuneCountInString(w) >= 6 {
		w = w[2:]
	}
	w = strings.ReplaceAll(w, "sch", "$")
	w = strings.ReplaceAll(w, "ei", "%")
	w = strings.ReplaceAll(w, "ie", "&")

	rs := []rune(w)
	for i := 1; i < len(rs); i++ {
		if rs[i] == rs[i-1] {
			rs[i] = '*'
			i++
		}
	}

	for len(rs) > 3 {
		n := len(rs)
		if n > 5 {
			if rs[n-2] == 'e' && (rs[n-1] == 'm' || rs[n-1] == 'r') {
				rs = rs[:n-2]
				continue
			}
			if rs[n-2] == 'n' && rs[n-1] == 'd' {
				rs = rs[:n-2]
				continue
			}
		}
		if (!upper || caseInsensitive) && rs[n-1] == 't' {
			rs = rs[:n-1]
			continue
		}
		if rs[n-1] == 'e' || rs[n-1] == 's' || rs[n-1] == 'n' {
			rs = rs[:n-1]
			continue
		}
		break
	}

	for i := 1; i < len(rs); i++ {
		if rs[i] == '*' {
			rs[i] = rs[i-1]
		}
	}
	w = string(rs)
	w = strings.ReplaceAll(w, "%", "ei")
	w = strings.ReplaceAll(w, "&", "ie")
	w = strings.ReplaceAll(w, "$", "sch")
	return w
}

// German strips a separable prefix and stems the rest case-sensitively.
func German(word string) string {
	_, rest := StripSeparablePrefix(word)
	return Cistem(rest, false)
}

// GermanReducer reduces German tokens to their CISTEM stem.
type GermanReducer struct{}

// Reduce returns the stem of token, or nothing when the stem equals the token.
func (GermanReducer) Reduce(token string, mode Mode) []Reduction {
	if token == "" {
		return nil
	}
	prefix, rest := StripSeparablePrefix(token)
	s := Cistem(rest, mode == CaseInsensitive)
	if s == "" || strings.EqualFold(s, token) {
		return nil
	}
	infl := []string{"cistem"}
	if prefix != "" {
		infl = []string{"separable-prefix", "cistem"}
	}
	return []Reduction{{Text: s, Inflections: infl}}
}

// DifferingStems returns the distinct stems of the words in text that
// differ from the word they were produced from.
func DifferingStems(text string) []string {
	var out []string
	for _, w := range tokenize.WordStrings(text) {
		for _, r := range (GermanReducer{}).Reduce(w, CaseSensitive) {
			if !slices.Contains(out, r.Text) {
				out = append(out, r.Text)
			}
		}
	}
	return out
}

// KeyStem is the case-insensitive stem used in phrase keys.
func KeyStem(token string) string {
	_, rest := StripSeparablePrefix(token)
	return Cistem(rest, true)
}

// PhraseKey builds the composite token-combination key of tokens: their
// sorted stems joined by spaces, a "|" and the hex token count.
func PhraseKey(tokens []string) string {
	stems := make([]string, len(tokens))
	for i, t := range tokens {
		stems[i] = KeyStem(t)
	}
	slices.Sort(stems)
	return strings.Join(stems, " ") + "|" + strconv.FormatInt(int64(len(tokens)), 16)
}

// PhraseKeys returns the phrase keys of a headword and its token count.
// Besides the key of the headword's own tokens, a key with each separable
// prefix split into a token of its own is added so that split verbs match.
func PhraseKeys(head string) (keys []string, count int) {
	tokens := tokenize.WordStrings(head)
	if len(tokens) == 0 {
		return nil, 0
	}
	keys = append(keys, PhraseKey(tokens))
	for i, t := range tokens {
		prefix, rest := StripSeparablePrefix(t)
		if prefix == "" {
			continue
		}
		split := make([]string, 0, len(tokens)+1)
		split = append(split, tokens[:i]...)
		split = append(split, prefix, rest)
		split = append(split, tokens[i+1:]...)
		if k := PhraseKey(split); !slices.Contains(keys, k) {
			keys = append(keys, k)
		}
	}
	return keys, len(tokens)
}
