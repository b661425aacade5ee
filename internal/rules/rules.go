// Package rules loads the synonym tables, numeric bounds and validation
// thresholds that drive plan normalization and validation.
package rules

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"

	"ai-fitness-coach/internal/plan"

	"gopkg.in/yaml.v3"
)

//go:embed default_rules.yaml
var defaultRules []byte

// Bound is a numeric range with a rounding granularity.
type Bound struct {
	Min      float64 `yaml:"min"`
	Max      float64 `yaml:"max"`
	Decimals int     `yaml:"decimals"`
	Default  float64 `yaml:"default"`
}

// RepRange is an inclusive rep count range.
type RepRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

type Bounds struct {
	DaysPerWeek   Bound `yaml:"days_per_week"`
	Sets          Bound `yaml:"sets"`
	Reps          Bound `yaml:"reps"`
	TimedSeconds  Bound `yaml:"timed_seconds"`
	RestSeconds   Bound `yaml:"rest_seconds"`
	WeightKg      Bound `yaml:"weight_kg"`
	MealCalories  Bound `yaml:"meal_calories"`
	MacroGrams    Bound `yaml:"macro_grams"`
	DailyCalories Bound `yaml:"daily_calories"`
}

type DefaultReps struct {
	Goals      map[plan.Goal]string     `yaml:"goals"`
	Categories map[plan.Category]string `yaml:"categories"`
}

// MacroSplit is the share of daily calories given to each macro, in percent.
type MacroSplit struct {
	ProteinPct float64 `yaml:"protein_pct"`
	CarbsPct   float64 `yaml:"carbs_pct"`
	FatPct     float64 `yaml:"fat_pct"`
}

type Defaults struct {
	Goal       plan.Goal     `yaml:"goal"`
	Tempo      string        `yaml:"tempo"`
	Category   plan.Category `yaml:"category"`
	FocusTopN  int           `yaml:"focus_top_n"`
	MacroSplit MacroSplit    `yaml:"macro_split"`
}

type Validation struct {
	MinItems            int      `yaml:"min_items"`
	MaxItems            int      `yaml:"max_items"`
	MinMeals            int      `yaml:"min_meals"`
	MaxMeals            int      `yaml:"max_meals"`
	RepDriftTolerance   int      `yaml:"rep_drift_tolerance"`
	CalorieTolerancePct float64  `yaml:"calorie_tolerance_pct"`
	AutoFix             []string `yaml:"auto_fix"`
}

// Rules is the full rule set. Synonym tables map a canonical enum value to
// the free-text spellings that mean it.
type Rules struct {
	Goals           map[plan.Goal][]string     `yaml:"goals"`
	MealTypes       map[plan.MealType][]string `yaml:"meal_types"`
	Muscles         map[plan.Muscle][]string   `yaml:"muscles"`
	Categories      map[plan.Category][]string `yaml:"categories"`
	ExerciseMuscles map[string][]plan.Muscle   `yaml:"exercise_muscles"`
	Bounds          Bounds                     `yaml:"bounds"`
	DefaultReps     DefaultReps                `yaml:"default_reps"`
	GoalRepRanges   map[plan.Goal]RepRange     `yaml:"goal_rep_ranges"`
	Defaults        Defaults                   `yaml:"defaults"`
	Validation      Validation                 `yaml:"validation"`
}

// Default returns a fresh copy of the embedded rule set.
func Default() *Rules {
	r, err := parse(defaultRules, &Rules{})
	if err != nil {
		panic(fmt.Sprintf("embedded rules are invalid: %v", err))
	}
	return r
}

// Load returns the embedded rules with the file at path merged on top.
// Map entries in the override replace the matching default entry; an empty
// path yields the defaults.
func Load(path string) (*Rules, error) {
	r := Default()
	if path == "" {
		return r, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file %s: %w", path, err)
	}
	if _, err := parse(data, r); err != nil {
		return nil, fmt.Errorf("failed to load rules file %s: %w", path, err)
	}
	return r, nil
}

func parse(data []byte, into *Rules) (*Rules, error) {
	if err := yaml.Unmarshal(data, into); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	if err := into.validate(); err != nil {
		return nil, err
	}
	return into, nil
}

func (r *Rules) validate() error {
	var errs []error
	for g := range r.Goals {
		if !slices.Contains(plan.Goals, g) {
			errs = append(errs, fmt.Errorf("goals: unknown goal %q", g))
		}
	}
	for m := range r.MealTypes {
		if !slices.Contains(plan.MealTypes, m) {
			errs = append(errs, fmt.Errorf("meal_types: unknown meal type %q", m))
		}
	}
	for m := range r.Muscles {
		if !slices.Contains(plan.Muscles, m) {
			errs = append(errs, fmt.Errorf("muscles: unknown muscle %q", m))
		}
	}
	for c := range r.Categories {
		if !slices.Contains(plan.Categories, c) {
			errs = append(errs, fmt.Errorf("categories: unknown category %q", c))
		}
	}
	for kw, muscles := range r.ExerciseMuscles {
		for _, m := range muscles {
			if !slices.Contains(plan.Muscles, m) {
				errs = append(errs, fmt.Errorf("exercise_muscles[%s]: unknown muscle %q", kw, m))
			}
		}
	}
	for _, g := range plan.Goals {
		rr, ok := r.GoalRepRanges[g]
		if !ok {
			errs = append(errs, fmt.Errorf("goal_rep_ranges: missing goal %q", g))
		} else if rr.Min < 1 || rr.Min > rr.Max {
			errs = append(errs, fmt.Errorf("goal_rep_ranges[%s]: invalid range %d-%d", g, rr.Min, rr.Max))
		}
		if _, ok := r.DefaultReps.Goals[g]; !ok {
			errs = append(errs, fmt.Errorf("default_reps.goals: missing goal %q", g))
		}
	}
	for name, b := range map[string]Bound{
		"days_per_week":  r.Bounds.DaysPerWeek,
		"sets":           r.Bounds.Sets,
		"reps":           r.Bounds.Reps,
		"timed_seconds":  r.Bounds.TimedSeconds,
		"rest_seconds":   r.Bounds.RestSeconds,
		"weight_kg":      r.Bounds.WeightKg,
		"meal_calories":  r.Bounds.MealCalories,
		"macro_grams":    r.Bounds.MacroGrams,
		"daily_calories": r.Bounds.DailyCalories,
	} {
		if b.Min > b.Max {
			errs = append(errs, fmt.Errorf("bounds.%s: min %v exceeds max %v", name, b.Min, b.Max))
		}
	}
	if !slices.Contains(plan.Goals, r.Defaults.Goal) {
		errs = append(errs, fmt.Errorf("defaults.goal: unknown goal %q", r.Defaults.Goal))
	}
	if !slices.Contains(plan.Categories, r.Defaults.Category) {
		errs = append(errs, fmt.Errorf("defaults.category: unknown category %q", r.Defaults.Category))
	}
	v := r.Validation
	if v.MinItems < 1 || v.MinItems > v.MaxItems {
		errs = append(errs, fmt.Errorf("validation: invalid item limits %d-%d", v.MinItems, v.MaxItems))
	}
	if v.MinMeals < 1 || v.MinMeals > v.MaxMeals {
		errs = append(errs, fmt.Errorf("validation: invalid meal limits %d-%d", v.MinMeals, v.MaxMeals))
	}
	return errors.Join(errs...)
}

// AutoFixes reports whether the named correction may be applied in soft mode.
func (r *Rules) AutoFixes(fix string) bool {
	return slices.Contains(r.Validation.AutoFix, fix)
}

// RepRangeFor returns the acceptable rep range for a goal.
func (r *Rules) RepRangeFor(goal plan.Goal) RepRange {
	if rr, ok := r.GoalRepRanges[goal]; ok {
		return rr
	}
	return r.GoalRepRanges[r.Defaults.Goal]
}
