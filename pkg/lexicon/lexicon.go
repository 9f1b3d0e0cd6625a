// Package lexicon holds the data model shared by the import and lookup paths.
package lexicon

import (
	"fmt"
	"time"
)

// Format identifies one of the supported dictionary archive formats.
type Format string

const (
	FormatDictCC   Format = "dictcc"
	FormatCEDict   Format = "cedict"
	FormatTermBank Format = "termbank"
	FormatYomitan  Format = "yomitan"
)

// Formats lists every supported format in a stable order.
var Formats = []Format{FormatDictCC, FormatCEDict, FormatTermBank, FormatYomitan}

// ParseFormat resolves a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Language returns the language family the format's dictionaries are looked up with.
func (f Format) Language() Language {
	switch f {
	case FormatDictCC:
		return LanguageGerman
	case FormatCEDict:
		return LanguageChinese
	case FormatTermBank, FormatYomitan:
		return LanguageJapanese
	}
	return ""
}

// Language is the lookup language of a format.
type Language string

const (
	LanguageGerman   Language = "de"
	LanguageChinese  Language = "zh"
	LanguageJapanese Language = "ja"
)

// IsCJK reports whether the language is written without word boundaries.
func (l Language) IsCJK() bool {
	return l == LanguageChinese || l == LanguageJapanese
}

// Entry is a single imported headword.
type Entry struct {
	ID            int64
	Head          string
	Variant       string
	Pronunciation string
	Meanings      []string
	// Tags is a space-delimited annotation string.
	Tags string
	// Rules holds the space-delimited word classes of Japanese entries.
	Rules             string
	Frequency         *float64
	DictionaryKey     int64
	TokenCombos       []string
	SearchTokensCount int
}

// Dictionary is the metadata record every entry points to.
type Dictionary struct {
	Key        int64
	ID         string
	Format     Format
	Name       string
	Revision   string
	EntryCount int
	ImportedAt time.Time
}

// Record is an auxiliary row (tags, kanji, media...) owned by a dictionary.
type Record struct {
	ID            int64
	DictionaryKey int64
	Key           string
	MediaType     string
	Data          []byte
}

// Candidate is an entry found for a piece of the looked up text.
type Candidate struct {
	MatchedText string
	Entry       Entry
	// Inflections lists the rule names applied to reach Entry from the
	// surface text, empty for exact matches.
	Inflections []string
	Format      Format
}

// TranslatedToken groups the candidates of one distinct token at a position.
type TranslatedToken struct {
	MatchedTokenText string
	Candidates       []Candidate
}

// Position holds the tokens recognized at a rune offset of the text.
type Position struct {
	TextCharacterIndex int
	TranslatedTokens   []TranslatedToken
}

// TokensTranslations is a lookup result ordered by TextCharacterIndex.
type TokensTranslations []Position
