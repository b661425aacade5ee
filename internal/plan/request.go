package plan

import (
	"fmt"
	"math"
)

// RequestContext carries what the user asked for. Goal is free text; the
// normalizer maps it onto the Goal enum and uses it as a fallback hint.
type RequestContext struct {
	Goal          string `json:"goal"`
	Frequency     int    `json:"frequency,omitempty"`
	DailyCalories int    `json:"daily_calories,omitempty"`
	Notes         string `json:"notes,omitempty"`
	UserID        string `json:"user_id,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
}

// Rule identifies the family of a validation check.
type Rule string

const (
	RuleRequired      Rule = "required"
	RuleEnum          Rule = "enum"
	RuleRange         Rule = "range"
	RuleCardinality   Rule = "cardinality"
	RuleOrdering      Rule = "ordering"
	RuleAggregate     Rule = "aggregate"
	RuleGoalReps      Rule = "goal_reps"
	RuleCalorieTarget Rule = "calorie_target"
	RuleFrequency     Rule = "frequency"
	RuleFormat        Rule = "format"
	RuleExtraction    Rule = "extraction"
	RuleJSON          Rule = "json"
)

// Violation is a single rule breach found on a plan.
type Violation struct {
	Path     string `json:"path"`
	Rule     Rule   `json:"rule"`
	Observed string `json:"observed"`
	Expected string `json:"expected"`
}

// Message renders the violation for users and correction prompts.
func (v Violation) Message() string {
	if v.Observed == "" {
		return fmt.Sprintf("%s: expected %s", v.Rule, v.Expected)
	}
	return fmt.Sprintf("%s: got %s, expected %s", v.Rule, v.Observed, v.Expected)
}

// Round1 rounds to one decimal place.
func Round1(f float64) float64 {
	return math.Round(f*10) / 10
}
