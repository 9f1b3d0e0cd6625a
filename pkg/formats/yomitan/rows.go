package yomitan

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/japaniel/lexicard/pkg/formats/jsonrows"
	"github.com/japaniel/lexicard/pkg/formats/termbank"
	"github.com/japaniel/lexicard/pkg/lexicon"
)

func fixedRow(raw json.RawMessage, n int) ([]json.RawMessage, error) {
	row, err := jsonrows.Array(raw)
	if err != nil {
		return nil, err
	}
	if len(row) != n {
		return nil, fmt.Errorf("row has %d elements, want %d", len(row), n)
	}
	return row, nil
}

func nonEmpty(raw json.RawMessage, i int, name string) (string, error) {
	s, err := jsonrows.String(raw)
	if err != nil {
		return "", jsonrows.Field(i, name, err)
	}
	if s == "" {
		return "", jsonrows.Field(i, name, errors.New("empty"))
	}
	return s, nil
}

func joinFields(parts ...string) string {
	var out []string
	for _, p := range parts {
		out = append(out, strings.Fields(p)...)
	}
	return strings.Join(out, " ")
}

// parseTerm validates a term bank row. Version 1 rows are
// [expression, reading, tags, rules, score, glossary...]; later versions
// are [expression, reading, definitionTags, rules, score, glossary,
// sequence, termTags].
func (c *Converter) parseTerm(raw json.RawMessage) (lexicon.Entry, error) {
	if c.Version == 1 {
		return termbank.ParseRow(raw)
	}
	row, err := fixedRow(raw, 8)
	if err != nil {
		return lexicon.Entry{}, err
	}
	head, err := nonEmpty(row[0], 0, "expression")
	if err != nil {
		return lexicon.Entry{}, err
	}
	reading, err := jsonrows.String(row[1])
	if err != nil {
		return lexicon.Entry{}, jsonrows.Field(1, "reading", err)
	}
	defTags, err := jsonrows.OptionalString(row[2])
	if err != nil {
		return lexicon.Entry{}, jsonrows.Field(2, "definitionTags", err)
	}
	rules, err := jsonrows.String(row[3])
	if err != nil {
		return lexicon.Entry{}, jsonrows.Field(3, "rules", err)
	}
	score, err := jsonrows.Number(row[4])
	if err != nil {
		return lexicon.Entry{}, jsonrows.Field(4, "score", err)
	}
	glossary, err := jsonrows.Array(row[5])
	if err != nil {
		return lexicon.Entry{}, jsonrows.Field(5, "glossary", err)
	}
	meanings := make([]string, 0, len(glossary))
	for i, g := range glossary {
		text, err := flattenGlossary(g, c.Version)
		if err != nil {
			return lexicon.Entry{}, jsonrows.Field(5, fmt.Sprintf("glossary[%d]", i), err)
		}
		if text != "" {
			meanings = append(meanings, text)
		}
	}
	seq, err := jsonrows.Number(row[6])
	if err != nil || seq != math.Trunc(seq) {
		return lexicon.Entry{}, jsonrows.Field(6, "sequence", errors.New("not an integer"))
	}
	termTags, err := jsonrows.String(row[7])
	if err != nil {
		return lexicon.Entry{}, jsonrows.Field(7, "termTags", err)
	}

	if reading == "" {
		reading = head
	}
	return lexicon.Entry{
		Head:          head,
		Pronunciation: reading,
		Meanings:      meanings,
		Tags:          joinFields(defTags, termTags),
		Rules:         strings.Join(strings.Fields(rules), " "),
		Frequency:     &score,
	}, nil
}

// parseKanji validates [character, onyomi, kunyomi, tags, meanings...] in
// version 1 and [character, onyomi, kunyomi, tags, meanings, stats] later.
func (c *Converter) parseKanji(raw json.RawMessage) (string, error) {
	var row []json.RawMessage
	var err error
	if c.Version == 1 {
		if row, err = jsonrows.Array(raw); err != nil {
			return "", err
		}
		if len(row) < 4 {
			return "", fmt.Errorf("row has %d elements, want at least 4", len(row))
		}
	} else if row, err = fixedRow(raw, 6); err != nil {
		return "", err
	}

	char, err := nonEmpty(row[0], 0, "character")
	if err != nil {
		return "", err
	}
	for i, name := range []string{"onyomi", "kunyomi", "tags"} {
		if _, err := jsonrows.String(row[i+1]); err != nil {
			return "", jsonrows.Field(i+1, name, err)
		}
	}
	meanings := row[4:]
	if c.Version > 1 {
		if meanings, err = jsonrows.Array(row[4]); err != nil {
			return "", jsonrows.Field(4, "meanings", err)
		}
		var stats map[string]json.RawMessage
		if err := json.Unmarshal(row[5], &stats); err != nil || stats == nil {
			return "", jsonrows.Field(5, "stats", errors.New("not an object"))
		}
		for k, v := range stats {
			if _, err := jsonrows.String(v); err != nil {
				return "", jsonrows.Field(5, "stats."+k, err)
			}
		}
	}
	for i, m := range meanings {
		if _, err := jsonrows.String(m); err != nil {
			return "", jsonrows.Field(4+i, "meanings", err)
		}
	}
	return char, nil
}

var termMetaModes = map[string]bool{"freq": true, "pitch": true, "ipa": true}

// parseTermMeta validates [expression, mode, data].
func parseTermMeta(raw json.RawMessage) (string, error) {
	row, err := fixedRow(raw, 3)
	if err != nil {
		return "", err
	}
	expr, err := nonEmpty(row[0], 0, "expression")
	if err != nil {
		return "", err
	}
	mode, err := jsonrows.String(row[1])
	if err != nil || !termMetaModes[mode] {
		return "", jsonrows.Field(1, "mode", errors.New(`want "freq", "pitch" or "ipa"`))
	}
	if jsonrows.IsNull(row[2]) {
		return "", jsonrows.Field(2, "data", errors.New("null"))
	}
	return expr, nil
}

// parseKanjiMeta validates [character, "freq", data].
func parseKanjiMeta(raw json.RawMessage) (string, error) {
	row, err := fixedRow(raw, 3)
	if err != nil {
		return "", err
	}
	char, err := nonEmpty(row[0], 0, "character")
	if err != nil {
		return "", err
	}
	if mode, err := jsonrows.String(row[1]); err != nil || mode != "freq" {
		return "", jsonrows.Field(1, "mode", errors.New(`want "freq"`))
	}
	if jsonrows.IsNull(row[2]) {
		return "", jsonrows.Field(2, "data", errors.New("null"))
	}
	return char, nil
}

// parseTag validates [name, category, order, notes, score].
func parseTag(raw json.RawMessage) (string, error) {
	row, err := fixedRow(raw, 5)
	if err != nil {
		return "", err
	}
	name, err := nonEmpty(row[0], 0, "name")
	if err != nil {
		return "", err
	}
	if _, err := jsonrows.String(row[1]); err != nil {
		return "", jsonrows.Field(1, "category", err)
	}
	if _, err := jsonrows.Number(row[2]); err != nil {
		return "", jsonrows.Field(2, "order", err)
	}
	if _, err := jsonrows.String(row[3]); err != nil {
		return "", jsonrows.Field(3, "notes", err)
	}
	if _, err := jsonrows.Number(row[4]); err != nil {
		return "", jsonrows.Field(4, "score", err)
	}
	return name, nil
}
