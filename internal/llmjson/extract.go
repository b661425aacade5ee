// Package llmjson pulls JSON documents out of free-form model output and
// applies the textual repairs models commonly need before decoding.
package llmjson

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// SampleLimit bounds the diagnostic sample attached to extraction errors.
const SampleLimit = 200

var (
	// fencedBlockPattern matches the first fenced code block, optionally tagged json.
	fencedBlockPattern = regexp.MustCompile("(?s)```[ \t]*(?i:json)?[ \t]*\r?\n?(.*?)```")

	// labelPrefixes are literal labels models put in front of the payload.
	labelPrefixes = []string{
		"json:", "output:", "response:", "answer:", "result:",
		"תשובה:", "פלט:", "תוצאה:",
	}
)

// ExtractionError reports that no balanced JSON object could be located.
type ExtractionError struct {
	Sample string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("no balanced JSON object found in model output (sample: %q)", e.Sample)
}

// Extract returns the JSON object embedded in raw model output.
//
// Candidates are tried in order: the whole text, the first fenced block,
// the text after known label prefixes, and finally the longest balanced
// {...} span found anywhere in the text.
func Extract(raw string) (string, error) {
	text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "\ufeff"))

	if isBalancedObject(text) {
		return text, nil
	}

	if m := fencedBlockPattern.FindStringSubmatch(text); len(m) > 1 {
		inner := strings.TrimSpace(m[1])
		if isBalancedObject(inner) {
			return inner, nil
		}
		if strings.Contains(inner, "{") {
			text = inner
		}
	}

	stripped := stripLabelPrefix(text)
	if idx := strings.IndexByte(stripped, '{'); idx >= 0 {
		stripped = stripped[idx:]
		if isBalancedObject(stripped) {
			return stripped, nil
		}
	}

	if span, ok := longestBalancedSpan(text); ok {
		return span, nil
	}

	return "", &ExtractionError{Sample: Truncate(raw, SampleLimit)}
}

// Truncate shortens s to at most limit runes, marking the cut.
func Truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "…"
}

// isBalancedObject reports whether s opens with '{' and that brace closes
// exactly at the end of s.
func isBalancedObject(s string) bool {
	return strings.HasPrefix(s, "{") && matchBrace(s, 0) == len(s)-1
}

func stripLabelPrefix(s string) string {
	for {
		lower := strings.ToLower(s)
		matched := false
		for _, prefix := range labelPrefixes {
			if strings.HasPrefix(lower, prefix) {
				s = strings.TrimSpace(s[len(prefix):])
				matched = true
				break
			}
		}
		if !matched {
			return s
		}
	}
}

// longestBalancedSpan scans every '{' and keeps the longest span whose
// braces close again. Braces inside string literals are ignored.
func longestBalancedSpan(text string) (string, bool) {
	best := ""
	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}
		end := matchBrace(text, start)
		if end < 0 {
			continue
		}
		if end-start+1 > len(best) {
			best = text[start : end+1]
		}
		// Every '{' inside the span closes within it, so nothing longer starts there.
		start = end
	}
	return best, best != ""
}

// matchBrace returns the index of the '}' closing the '{' at start, or -1.
func matchBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
