// Package validate checks normalized plans against structural and business
// rules. In soft mode a configured subset of breaches (ordering, aggregates,
// small rep drift) is corrected and reported as warnings; everything else,
// and everything in hard mode, is returned as a violation.
package validate

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"

	"ai-fitness-coach/internal/plan"
	"ai-fitness-coach/internal/rules"
)

// Mode selects whether correctable breaches are fixed or reported.
type Mode string

const (
	ModeSoft Mode = "soft"
	ModeHard Mode = "hard"
)

// ParseMode accepts "soft", "hard" or an empty string (soft).
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeSoft:
		return ModeSoft, nil
	case ModeHard:
		return ModeHard, nil
	default:
		return "", fmt.Errorf("unknown validation mode %q", s)
	}
}

// Names of the corrections that rules.Validation.AutoFix can enable.
const (
	FixOrdering  = "ordering"
	FixAggregate = "aggregate"
	FixRepDrift  = "rep_drift"
)

// Outcome is the result of validating one plan. Plan is a copy carrying any
// soft-mode corrections; the input is never modified.
type Outcome[P any] struct {
	Plan       P
	Warnings   []string
	Violations []plan.Violation
}

// Valid reports whether no violations remain.
func (o Outcome[P]) Valid() bool {
	return len(o.Violations) == 0
}

var (
	repsFormat  = regexp.MustCompile(`^(?:\d+-\d+|\d+|\d+s|AMRAP)$`)
	tempoFormat = regexp.MustCompile(`^[0-9X](?:-[0-9X]){2,3}$`)
	rangeParts  = regexp.MustCompile(`^(\d+)(?:-(\d+))?$`)
)

type checker struct {
	mode       Mode
	rules      *rules.Rules
	warnings   []string
	violations []plan.Violation
}

func (c *checker) violate(path string, rule plan.Rule, observed, expected string) {
	c.violations = append(c.violations, plan.Violation{Path: path, Rule: rule, Observed: observed, Expected: expected})
}

func (c *checker) warn(format string, args ...any) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
}

func (c *checker) fixable(fix string) bool {
	return c.mode == ModeSoft && c.rules.AutoFixes(fix)
}

func (c *checker) required(path, value string) {
	if value == "" {
		c.violate(path, plan.RuleRequired, "", "a non-empty value")
	}
}

func (c *checker) bound(path string, v float64, b rules.Bound) {
	if v < b.Min || v > b.Max {
		c.violate(path, plan.RuleRange, strconv.FormatFloat(v, 'f', -1, 64),
			fmt.Sprintf("between %v and %v", b.Min, b.Max))
	}
}

// count checks the length of a child collection.
func (c *checker) count(path string, n, lo, hi int, what string) {
	if n < lo || n > hi {
		c.violate(path, plan.RuleCardinality, fmt.Sprintf("%d %s", n, what), fmt.Sprintf("between %d and %d %s", lo, hi, what))
	}
}

// index checks an ordering field, fixing it in soft mode.
func (c *checker) index(path string, got *int, want int) {
	if *got == want {
		return
	}
	if c.fixable(FixOrdering) {
		c.warn("%s: %d -> %d (renumbered)", path, *got, want)
		*got = want
		return
	}
	c.violate(path, plan.RuleOrdering, strconv.Itoa(*got), strconv.Itoa(want))
}

// aggregate checks a derived total, fixing it in soft mode.
func aggregate[T int | float64](c *checker, path string, got *T, want T) {
	if *got == want {
		return
	}
	if c.fixable(FixAggregate) {
		c.warn("%s: %v -> %v (recomputed)", path, *got, want)
		*got = want
		return
	}
	c.violate(path, plan.RuleAggregate, fmt.Sprint(*got), fmt.Sprintf("%v, the sum of its items", want))
}

func enum[T ~string](c *checker, path string, v T, valid []T) {
	if !slices.Contains(valid, v) {
		c.violate(path, plan.RuleEnum, strconv.Quote(string(v)), fmt.Sprintf("one of %v", valid))
	}
}
