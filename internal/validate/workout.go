package validate

import (
	"fmt"
	"strconv"

	"ai-fitness-coach/internal/plan"
	"ai-fitness-coach/internal/rules"
)

// Workout validates a normalized workout plan. rc supplies the requested
// frequency; zero means no day count was requested.
func Workout(p plan.WorkoutPlan, mode Mode, r *rules.Rules, rc plan.RequestContext) Outcome[plan.WorkoutPlan] {
	p = p.Clone()
	c := &checker{mode: mode, rules: r}

	c.required("title", p.Title)
	enum(c, "goal", p.Goal, plan.Goals)

	maxDays := int(r.Bounds.DaysPerWeek.Max)
	c.count("days", len(p.Days), 1, maxDays, "days")
	if rc.Frequency > 0 && len(p.Days) != rc.Frequency {
		c.violate("days", plan.RuleFrequency, fmt.Sprintf("%d days", len(p.Days)), fmt.Sprintf("%d days as requested", rc.Frequency))
	}
	if len(p.Days) > 0 && len(p.Days) <= maxDays {
		aggregate(c, "days_per_week", &p.DaysPerWeek, len(p.Days))
	}
	c.bound("days_per_week", float64(p.DaysPerWeek), r.Bounds.DaysPerWeek)

	repRange := r.RepRangeFor(p.Goal)
	for i := range p.Days {
		day := &p.Days[i]
		path := fmt.Sprintf("days[%d]", i)

		c.index(path+".day_index", &day.DayIndex, i+1)
		c.required(path+".name", day.Name)
		c.count(path+".exercises", len(day.Exercises), r.Validation.MinItems, r.Validation.MaxItems, "exercises")

		if len(day.Focus) == 0 {
			c.violate(path+".focus", plan.RuleRequired, "", "at least one muscle group")
		}
		for k, m := range day.Focus {
			enum(c, fmt.Sprintf("%s.focus[%d]", path, k), m, plan.Muscles)
		}

		for j := range day.Exercises {
			c.exercise(&day.Exercises[j], fmt.Sprintf("%s.exercises[%d]", path, j), j, p.Goal, repRange)
		}
		aggregate(c, path+".total_sets", &day.TotalSets, day.SumSets())
	}

	return Outcome[plan.WorkoutPlan]{Plan: p, Warnings: c.warnings, Violations: c.violations}
}

func (c *checker) exercise(ex *plan.Exercise, path string, j int, goal plan.Goal, want rules.RepRange) {
	b := c.rules.Bounds

	c.index(path+".order", &ex.Order, j+1)
	c.required(path+".name", ex.Name)
	enum(c, path+".category", ex.Category, plan.Categories)
	if len(ex.TargetMuscles) == 0 {
		c.violate(path+".target_muscles", plan.RuleRequired, "", "at least one muscle group")
	}
	for k, m := range ex.TargetMuscles {
		enum(c, fmt.Sprintf("%s.target_muscles[%d]", path, k), m, plan.Muscles)
	}
	c.bound(path+".sets", float64(ex.Sets), b.Sets)
	c.bound(path+".rest_seconds", float64(ex.RestSeconds), b.RestSeconds)
	if ex.WeightKg != nil {
		c.bound(path+".weight_kg", *ex.WeightKg, b.WeightKg)
	}
	if !tempoFormat.MatchString(ex.Tempo) {
		c.violate(path+".tempo", plan.RuleFormat, strconv.Quote(ex.Tempo), "phases like 2-0-2")
	}
	if !repsFormat.MatchString(ex.Reps) {
		c.violate(path+".reps", plan.RuleFormat, strconv.Quote(ex.Reps), `a range like "8-12", a timed set like "30s", or AMRAP`)
		return
	}
	c.repsForGoal(ex, path+".reps", goal, want)
}

// repsForGoal checks a rep range against the goal's range. Core work, timed
// sets and AMRAP are exempt.
func (c *checker) repsForGoal(ex *plan.Exercise, path string, goal plan.Goal, want rules.RepRange) {
	if ex.Category == plan.CategoryCore {
		return
	}
	m := rangeParts.FindStringSubmatch(ex.Reps)
	if m == nil {
		return
	}
	lo, _ := strconv.Atoi(m[1])
	hi := lo
	if m[2] != "" {
		hi, _ = strconv.Atoi(m[2])
	}
	if lo >= want.Min && hi <= want.Max && lo <= hi {
		return
	}

	drift := max(want.Min-lo, hi-want.Max, 0)
	if lo <= hi && drift <= c.rules.Validation.RepDriftTolerance && c.fixable(FixRepDrift) {
		fixed := fitRange(lo, hi, want)
		c.warn("%s: %s -> %s (goal %s allows %d-%d)", path, ex.Reps, fixed, goal, want.Min, want.Max)
		ex.Reps = fixed
		return
	}
	c.violate(path, plan.RuleGoalReps, ex.Reps, fmt.Sprintf("a range within %d-%d for goal %s", want.Min, want.Max, goal))
}

// fitRange clamps lo-hi into want, keeping at least a two rep spread when
// the allowed range permits it.
func fitRange(lo, hi int, want rules.RepRange) string {
	lo = min(max(lo, want.Min), want.Max)
	hi = min(max(hi, want.Min), want.Max)
	if hi-lo < 2 {
		if hi == want.Max {
			lo = max(want.Min, hi-2)
		} else {
			hi = min(want.Max, lo+2)
		}
	}
	if lo == hi {
		return strconv.Itoa(lo)
	}
	return fmt.Sprintf("%d-%d", lo, hi)
}
