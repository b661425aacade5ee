package llmjson

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	smartQuotes = strings.NewReplacer(
		"“", `"`, "”", `"`, "„", `"`, "‟", `"`, "″", `"`,
		"‘", "'", "’", "'", "‚", "'", "‛", "'", "′", "'",
	)

	excessNewlines = regexp.MustCompile(`(?:\r?\n){3,}`)

	// quotedNumberPattern only fires on keys known to hold numbers, so a food
	// named "100 g oats" stays untouched. Units that change the scale, like
	// minutes, are left quoted for the normalizer to convert.
	quotedNumberPattern = regexp.MustCompile(
		`"(` + strings.Join(numericKeys, "|") + `)"(\s*):(\s*)"\s*(-?\d+(?:\.\d+)?)\s*(kcal|cal|calories|grams|gr|g|kgs|kg|seconds|secs|sec|s|sets|days)?\s*"`,
	)
)

// numericKeys lists the plan fields whose values must be JSON numbers.
var numericKeys = []string{
	"days_per_week", "day_index", "order", "total_sets", "sets",
	"rest_seconds", "weight_kg",
	"calories", "protein_g", "carbs_g", "fat_g",
	"total_calories", "total_protein_g", "total_carbs_g", "total_fat_g",
}

// Repair applies deterministic textual fixes to extracted JSON. It never
// fails; the second return value names every fix that was applied.
// Repair is idempotent: Repair(Repair(x)) == Repair(x).
func Repair(text string) (string, []string) {
	var applied []string

	if fixed := smartQuotes.Replace(text); fixed != text {
		applied = append(applied, "replaced typographic quotes with ASCII quotes")
		text = fixed
	}

	text = quotedNumberPattern.ReplaceAllStringFunc(text, func(match string) string {
		m := quotedNumberPattern.FindStringSubmatch(match)
		applied = append(applied, fmt.Sprintf("unquoted numeric field %q (%s)", m[1], strings.TrimSpace(match[strings.Index(match, ":")+1:])))
		return fmt.Sprintf(`"%s"%s:%s%s`, m[1], m[2], m[3], m[4])
	})

	if fixed, n := removeTrailingCommas(text); n > 0 {
		applied = append(applied, fmt.Sprintf("removed %d trailing comma(s)", n))
		text = fixed
	}

	if fixed := excessNewlines.ReplaceAllString(text, "\n\n"); fixed != text {
		applied = append(applied, "collapsed runs of blank lines")
		text = fixed
	}

	return text, applied
}

// removeTrailingCommas drops commas that are followed only by whitespace and
// a closing bracket. Commas inside string literals are left alone. It runs
// to a fixpoint because removing one comma can expose another ("[1,,]").
func removeTrailingCommas(text string) (string, int) {
	total := 0
	for {
		out, n := removeTrailingCommasOnce(text)
		if n == 0 {
			return text, total
		}
		total += n
		text = out
	}
}

func removeTrailingCommasOnce(text string) (string, int) {
	var sb strings.Builder
	sb.Grow(len(text))
	removed := 0
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
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
			sb.WriteByte(ch)
			continue
		}
		if ch == '"' {
			inString = true
		}
		if ch == ',' && closesAfterWhitespace(text, i+1) {
			removed++
			continue
		}
		sb.WriteByte(ch)
	}
	return sb.String(), removed
}

func closesAfterWhitespace(text string, from int) bool {
	for j := from; j < len(text); j++ {
		switch text[j] {
		case ' ', '\t', '\n', '\r':
			continue
		case '}', ']':
			return true
		default:
			return false
		}
	}
	return false
}
