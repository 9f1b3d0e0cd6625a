package tokenize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Token is a word and the rune offset it starts at.
type Token struct {
	Text  string
	Index int
}

var (
	annotationPattern = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)|\{[^}]*\}|<[^>]*>`)
	wordPattern       = regexp.MustCompile(`[\p{L}\p{N}]+`)
)

// fillers are object and pronoun placeholders used in dictionary headwords.
var fillers = map[string]struct{}{
	"etw": {}, "jd": {}, "jdm": {}, "jdn": {}, "jds": {},
	"jmd": {}, "jmdm": {}, "jmdn": {}, "jmds": {},
	"sb": {}, "sth": {}, "s": {},
}

// IsFiller reports whether w is a placeholder token.
func IsFiller(w string) bool {
	_, ok := fillers[strings.ToLower(w)]
	return ok
}

// StripAnnotations blanks bracketed, parenthetical, braced and angle
// bracket spans. Rune offsets of the remaining text are preserved.
func StripAnnotations(text string) string {
	return annotationPattern.ReplaceAllStringFunc(text, func(m string) string {
		return strings.Repeat(" ", utf8.RuneCountInString(m))
	})
}

// Words splits whitespace/punctuation-delimited text into tokens, skipping
// annotation spans and filler tokens.
func Words(text string) []Token {
	if text == "" {
		return nil
	}
	clean := StripAnnotations(text)
	var out []Token
	for _, loc := range wordPattern.FindAllStringIndex(clean, -1) {
		w := clean[loc[0]:loc[1]]
		if w == "" || IsFiller(w) {
			continue
		}
		out = append(out, Token{Text: w, Index: utf8.RuneCountInString(clean[:loc[0]])})
	}
	return out
}

// WordStrings is Words without offsets.
func WordStrings(text string) []string {
	toks := Words(text)
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.Text
	}
	return out
}
