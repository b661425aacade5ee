package normalize

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"ai-fitness-coach/internal/llmjson"
	"ai-fitness-coach/internal/plan"
	"ai-fitness-coach/internal/rules"

	"golang.org/x/text/unicode/norm"
)

// warnings collects the corrections made while normalizing one document.
type warnings struct {
	list []string
}

func (w *warnings) add(format string, args ...any) {
	w.list = append(w.list, fmt.Sprintf(format, args...))
}

// describe renders an observed value for a warning.
func describe(v llmjson.Value) string {
	if v.IsMissing() {
		return "missing"
	}
	if s, ok := v.Raw().(string); ok {
		return strconv.Quote(s)
	}
	if s, ok := v.Text(); ok {
		return s
	}
	return "unreadable value"
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// EnumField coerces free text onto a closed set. Unmapped input falls back
// to Hint, then Default.
type EnumField[T ~string] struct {
	Path    string
	Hint    T
	Default T
	match   *matcher[T]
}

func (f EnumField[T]) Coerce(v llmjson.Value, w *warnings) T {
	text, _ := v.Text()
	if got, exact, ok := f.match.match(text); ok {
		if !exact || fold(text) != fold(string(got)) {
			w.add("%s: %s -> %s", f.Path, describe(v), got)
		}
		return got
	}
	if f.Hint != "" {
		w.add("%s: %s not recognized, using %s", f.Path, describe(v), f.Hint)
		return f.Hint
	}
	w.add("%s: %s not recognized, using default %s", f.Path, describe(v), f.Default)
	return f.Default
}

// NumberField clamps a numeric field into its bound and rounds it to the
// bound's granularity. Optional fields stay absent when missing.
type NumberField struct {
	Path     string
	Bound    rules.Bound
	Optional bool
}

func (f NumberField) Coerce(v llmjson.Value, w *warnings) (float64, bool) {
	n, found, fromText := v.Number()
	if !found {
		if v.IsMissing() && f.Optional {
			return 0, false
		}
		def := f.clamp(f.Bound.Default)
		w.add("%s: %s -> %s", f.Path, describe(v), formatNumber(def))
		return def, true
	}
	out := f.clamp(n)
	switch {
	case fromText:
		w.add("%s: %s -> %s", f.Path, describe(v), formatNumber(out))
	case out != n:
		w.add("%s: %s -> %s", f.Path, formatNumber(n), formatNumber(out))
	}
	return out, true
}

func (f NumberField) clamp(n float64) float64 {
	return clampRound(n, f.Bound)
}

func clampRound(n float64, b rules.Bound) float64 {
	scale := math.Pow10(b.Decimals)
	n = math.Round(n*scale) / scale
	return math.Max(b.Min, math.Min(b.Max, n))
}

// TextField trims and collapses whitespace; empty values take Default.
type TextField struct {
	Path    string
	Default string
}

func (f TextField) Coerce(v llmjson.Value, w *warnings) string {
	text, _ := v.Text()
	text = strings.Join(strings.Fields(text), " ")
	if text == "" && f.Default != "" {
		w.add("%s: %s -> %q", f.Path, describe(v), f.Default)
		return f.Default
	}
	return text
}

const unitPattern = `(seconds|second|secs|sec|s|minutes|minute|mins|min|m|שניות|שנייה|שניה|דקות|דקה)(?:[^\p{L}]|$)`

var (
	amrapPattern    = regexp.MustCompile(`(?i)amrap|as many|to failure|max reps|עד כשל|מקסימום`)
	setsByRepsRe    = regexp.MustCompile(`^\d+\s*[x×*]\s*(.+)$`)
	repRangePattern = regexp.MustCompile(`^(\d+)\s*(?:-|–|—|~|to|עד)\s*(\d+)\s*(.*)$`)
	singlePattern   = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*(.*)$`)
	timeUnitPattern = regexp.MustCompile(`^` + unitPattern)
)

// RepsField canonicalizes a rep prescription. Ranges become "lo-hi", timed
// sets become "Ns", AMRAP is kept, and a bare count expands to the default
// range for the exercise's category and the plan goal.
type RepsField struct {
	Path     string
	Category plan.Category
	Goal     plan.Goal
	Rules    *rules.Rules
}

func (f RepsField) Coerce(v llmjson.Value, w *warnings) string {
	original, _ := v.Text()
	out := f.canonical(original)
	if out != original {
		w.add("%s: %s -> %s", f.Path, describe(v), out)
	}
	return out
}

func (f RepsField) canonical(s string) string {
	s = strings.ToLower(strings.TrimSpace(norm.NFKC.String(s)))
	if s == "" {
		return f.defaultRange()
	}
	if amrapPattern.MatchString(s) {
		return "AMRAP"
	}
	if m := setsByRepsRe.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}

	if m := repRangePattern.FindStringSubmatch(s); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		if lo > hi {
			lo, hi = hi, lo
		}
		if u := timeUnitPattern.FindStringSubmatch(m[3]); u != nil {
			return f.timed(float64(hi), u[1])
		}
		b := f.Rules.Bounds.Reps
		lo = int(clampRound(float64(lo), b))
		hi = int(clampRound(float64(hi), b))
		if lo == hi {
			return f.defaultRange()
		}
		return fmt.Sprintf("%d-%d", lo, hi)
	}

	if m := singlePattern.FindStringSubmatch(s); m != nil {
		n, _ := strconv.ParseFloat(m[1], 64)
		if u := timeUnitPattern.FindStringSubmatch(m[2]); u != nil {
			return f.timed(n, u[1])
		}
	}
	return f.defaultRange()
}

func (f RepsField) timed(n float64, unit string) string {
	switch unit {
	case "minutes", "minute", "mins", "min", "m", "דקות", "דקה":
		n *= 60
	}
	return fmt.Sprintf("%ds", int(clampRound(n, f.Rules.Bounds.TimedSeconds)))
}

func (f RepsField) defaultRange() string {
	if r, ok := f.Rules.DefaultReps.Categories[f.Category]; ok {
		return r
	}
	if r, ok := f.Rules.DefaultReps.Goals[f.Goal]; ok {
		return r
	}
	return f.Rules.DefaultReps.Goals[f.Rules.Defaults.Goal]
}

var tempoSeparators = regexp.MustCompile(`[\s\-–—:/|,.]+`)

// TempoField canonicalizes lifting tempo to dash separated phases ("2-0-2").
type TempoField struct {
	Path    string
	Default string
}

func (f TempoField) Coerce(v llmjson.Value, w *warnings) string {
	original, _ := v.Text()
	out, ok := canonicalTempo(original)
	if !ok {
		out = f.Default
	}
	if out != original {
		w.add("%s: %s -> %s", f.Path, describe(v), out)
	}
	return out
}

func canonicalTempo(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(norm.NFKC.String(s)))
	if s == "" {
		return "", false
	}
	parts := tempoSeparators.Split(strings.Trim(s, " -–—:/|,."), -1)
	if len(parts) == 1 {
		// Compact notation: "202" or "31X0".
		parts = strings.Split(parts[0], "")
	}
	if len(parts) < 3 || len(parts) > 4 {
		return "", false
	}
	for _, p := range parts {
		if len(p) != 1 || !(p[0] == 'X' || (p[0] >= '0' && p[0] <= '9')) {
			return "", false
		}
	}
	return strings.Join(parts, "-"), true
}
