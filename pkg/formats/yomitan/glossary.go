package yomitan

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/japaniel/lexicard/pkg/formats/jsonrows"
	"github.com/k3a/html2text"
)

var htmlTag = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)

// blockTags start a new line in flattened structured content.
var blockTags = map[string]bool{
	"div": true, "p": true, "li": true, "ol": true, "ul": true,
	"table": true, "tr": true, "details": true, "summary": true,
}

// flattenGlossary renders one glossary item as plain text. Images and
// deinflection redirects without text render as the empty string.
func flattenGlossary(raw json.RawMessage, version int) (string, error) {
	trimmed := strings.TrimSpace(string(raw))
	switch {
	case strings.HasPrefix(trimmed, `"`):
		s, err := jsonrows.String(raw)
		if err != nil {
			return "", err
		}
		return plainText(s), nil
	case strings.HasPrefix(trimmed, "["):
		if version < 3 {
			return "", errors.New("deinflection glossary requires format 3")
		}
		row, err := jsonrows.Array(raw)
		if err != nil || len(row) != 2 {
			return "", errors.New("deinflection glossary must be [term, rules]")
		}
		term, err := jsonrows.String(row[0])
		if err != nil {
			return "", errors.New("deinflection term must be a string")
		}
		rules, err := jsonrows.Array(row[1])
		if err != nil {
			return "", errors.New("deinflection rules must be an array")
		}
		names := make([]string, 0, len(rules))
		for _, r := range rules {
			s, err := jsonrows.String(r)
			if err != nil {
				return "", errors.New("deinflection rules must be strings")
			}
			names = append(names, s)
		}
		if len(names) == 0 {
			return "see " + term, nil
		}
		return fmt.Sprintf("see %s (%s)", term, strings.Join(names, ", ")), nil
	case strings.HasPrefix(trimmed, "{"):
		return flattenObject(raw, version)
	}
	return "", errors.New("glossary item must be a string, array or object")
}

func flattenObject(raw json.RawMessage, version int) (string, error) {
	var obj struct {
		Type    string          `json:"type"`
		Text    *string         `json:"text"`
		Path    *string         `json:"path"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", err
	}
	switch obj.Type {
	case "text":
		if obj.Text == nil {
			return "", errors.New(`text glossary needs "text"`)
		}
		return plainText(*obj.Text), nil
	case "image":
		if obj.Path == nil {
			return "", errors.New(`image glossary needs "path"`)
		}
		return "", nil
	case "structured-content":
		if version < 3 {
			return "", errors.New("structured-content requires format 3")
		}
		if len(obj.Content) == 0 {
			return "", errors.New(`structured-content needs "content"`)
		}
		var node any
		if err := json.Unmarshal(obj.Content, &node); err != nil {
			return "", err
		}
		var b strings.Builder
		writeNode(&b, node)
		return normalizeLines(b.String()), nil
	}
	return "", fmt.Errorf("unknown glossary type %q", obj.Type)
}

func writeNode(b *strings.Builder, node any) {
	switch n := node.(type) {
	case string:
		b.WriteString(n)
	case []any:
		for _, c := range n {
			writeNode(b, c)
		}
	case map[string]any:
		tag, _ := n["tag"].(string)
		switch {
		case tag == "img":
			return
		case tag == "br":
			b.WriteByte('\n')
			return
		case blockTags[tag]:
			b.WriteByte('\n')
			writeNode(b, n["content"])
			b.WriteByte('\n')
			return
		}
		writeNode(b, n["content"])
	}
}

// plainText converts HTML glossaries to text and leaves other strings as is.
func plainText(s string) string {
	if !htmlTag.MatchString(s) {
		return s
	}
	return normalizeLines(html2text.HTML2Text(s))
}

func normalizeLines(s string) string {
	var lines []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return strings.Join(lines, "\n")
}
