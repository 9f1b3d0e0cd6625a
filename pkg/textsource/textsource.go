// Package textsource prepares lookup text: morphological analysis of
// Japanese with kagome and article extraction from HTML pages.
package textsource

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"
	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Token represents a single analyzed unit of text.
type Token struct {
	Surface       string   // The text as it appears (e.g. "行っ")
	BaseForm      string   // The dictionary form (e.g. "行く")
	Reading       string   // The pronunciation (katakana, e.g. "イッ")
	PartsOfSpeech []string // e.g. ["動詞", "自立", "*", "*"] (Kagome POS labels)
	// PrimaryPOS stores the first (primary) part of speech if available.
	PrimaryPOS string
	// Index is the rune offset of Surface in the analyzed text.
	Index int
}

// Inflected reports whether the token's base form differs from its surface.
func (t Token) Inflected() bool {
	return t.BaseForm != "" && t.BaseForm != t.Surface
}

// Sentence represents a sentence containing tokens.
type Sentence struct {
	Text   string
	Tokens []Token
}

// Analyzer handles text segmentation. It is safe for concurrent use.
type Analyzer struct {
	t *tokenizer.Tokenizer
}

// NewAnalyzer creates a new tokenizer instance.
func NewAnalyzer() (*Analyzer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("kagome tokenizer: %w", err)
	}
	return &Analyzer{t: t}, nil
}

// Analyze breaks text into tokens with readings, base forms and offsets.
func (a *Analyzer) Analyze(text string) ([]Token, error) {
	var result []Token
	cursor := 0 // byte offset of the next unconsumed input
	runes := 0  // rune offset matching cursor

	for _, token := range a.t.Tokenize(text) {
		if token.Class == tokenizer.DUMMY {
			continue
		}
		at := strings.Index(text[cursor:], token.Surface)
		if at < 0 {
			continue
		}
		runes += utf8.RuneCountInString(text[cursor : cursor+at])
		index := runes
		cursor += at + len(token.Surface)
		runes += utf8.RuneCountInString(token.Surface)

		if strings.TrimSpace(token.Surface) == "" {
			continue
		}

		// IPA features: POS 0-3, conjugation type 4, conjugation form 5,
		// base form 6, reading 7, pronunciation 8.
		features := token.Features()
		base := token.Surface
		if len(features) > 6 && features[6] != "*" {
			base = features[6]
		}
		reading := ""
		if len(features) > 7 && features[7] != "*" {
			reading = features[7]
		}
		primaryPOS := ""
		if len(features) > 0 {
			primaryPOS = features[0]
		}

		result = append(result, Token{
			Surface:       token.Surface,
			BaseForm:      base,
			Reading:       reading,
			PartsOfSpeech: features,
			PrimaryPOS:    primaryPOS,
			Index:         index,
		})
	}
	return result, nil
}

// AnalyzeDocument splits the text into sentences and tokenizes each sentence.
// Token offsets are relative to their sentence.
func (a *Analyzer) AnalyzeDocument(text string) ([]Sentence, error) {
	var result []Sentence
	for _, s := range splitSentences(text) {
		if strings.TrimSpace(s) == "" {
			continue
		}
		tokens, err := a.Analyze(s)
		if err != nil {
			return nil, err
		}
		result = append(result, Sentence{Text: s, Tokens: tokens})
	}
	return result, nil
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		// 。(3002), ！(FF01), ？(FF1F) and newlines end a sentence.
		if r == '。' || r == '！' || r == '？' || r == '\n' {
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}

var (
	// (?s) allows dot to match newlines
	// (?i) makes it case-insensitive
	reRT = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	reRP = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)
)

// SanitizeRuby removes ruby text (<rt>...</rt>) and ruby parentheses (<rp>...</rp>)
// from HTML content, so that furigana is not duplicated into the extracted
// text (e.g. "漢字" becoming "漢字かんじ").
func SanitizeRuby(content []byte) []byte {
	cleaned := reRT.ReplaceAll(content, []byte{})
	cleaned = reRP.ReplaceAll(cleaned, []byte{})
	return cleaned
}

// Article is the readable text of an HTML page.
type Article struct {
	Title string
	Text  string
}

// maxBodySize caps how much HTML is read from r.
const maxBodySize = 10 * 1024 * 1024

// FromHTML extracts the main article text of an HTML document. pageURL
// resolves relative links and may be empty.
func FromHTML(r io.Reader, pageURL string) (Article, error) {
	body, err := io.ReadAll(io.LimitReader(r, maxBodySize+1))
	if err != nil {
		return Article{}, fmt.Errorf("read html: %w", err)
	}
	if len(body) > maxBodySize {
		return Article{}, fmt.Errorf("html exceeds %d bytes", maxBodySize)
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return Article{}, fmt.Errorf("parse url: %w", err)
	}
	article, err := readability.FromReader(bytes.NewReader(SanitizeRuby(body)), u)
	if err != nil {
		return Article{}, fmt.Errorf("extract article: %w", err)
	}
	return Article{Title: article.Title, Text: strings.TrimSpace(article.TextContent)}, nil
}
