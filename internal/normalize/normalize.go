// Package normalize turns a decoded, loosely shaped plan document into a
// canonical plan. Normalization never fails: every field ends up inside its
// closed set or numeric bound, ordering fields are renumbered from 1 and
// aggregates are recomputed from their children. Each correction is
// reported as a warning.
package normalize

import (
	"cmp"
	"slices"

	"ai-fitness-coach/internal/llmjson"
	"ai-fitness-coach/internal/plan"
	"ai-fitness-coach/internal/rules"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalizer holds the lookup tables built from a rule set. It is safe for
// concurrent use.
type Normalizer struct {
	rules      *rules.Rules
	goals      *matcher[plan.Goal]
	mealTypes  *matcher[plan.MealType]
	muscles    *matcher[plan.Muscle]
	categories *matcher[plan.Category]
	exercises  *keywordIndex[[]plan.Muscle]
}

func New(r *rules.Rules) *Normalizer {
	return &Normalizer{
		rules:      r,
		goals:      newMatcher(plan.Goals, r.Goals),
		mealTypes:  newMatcher(plan.MealTypes, r.MealTypes),
		muscles:    newMatcher(plan.Muscles, r.Muscles),
		categories: newMatcher(plan.Categories, r.Categories),
		exercises:  newKeywordIndex(r.ExerciseMuscles),
	}
}

// NormalizeWorkout is a convenience wrapper around New(r).Workout.
func NormalizeWorkout(doc llmjson.Value, rc plan.RequestContext, r *rules.Rules) (plan.WorkoutPlan, []string) {
	return New(r).Workout(doc, rc)
}

// NormalizeNutrition is a convenience wrapper around New(r).Nutrition.
func NormalizeNutrition(doc llmjson.Value, rc plan.RequestContext, r *rules.Rules) (plan.NutritionPlan, []string) {
	return New(r).Nutrition(doc, rc)
}

// GoalOf maps free text onto a goal, reporting whether anything matched.
func (n *Normalizer) GoalOf(text string) (plan.Goal, bool) {
	g, _, ok := n.goals.match(text)
	return g, ok
}

func (n *Normalizer) goal(doc llmjson.Value, rc plan.RequestContext, w *warnings) plan.Goal {
	hint, _ := n.GoalOf(rc.Goal)
	field := EnumField[plan.Goal]{Path: "goal", Hint: hint, Default: n.rules.Defaults.Goal, match: n.goals}
	return field.Coerce(doc.Field("goal", "objective", "target"), w)
}

func defaultTitle(goal plan.Goal, kind string) string {
	return cases.Title(language.English).String(string(goal)) + " " + kind + " plan"
}

// renumber reports a source index that disagrees with the array position.
func renumber(v llmjson.Value, path string, want int, w *warnings) int {
	if got, found, _ := v.Number(); found && int(got) != want {
		w.add("%s: %s -> %d", path, formatNumber(got), want)
	}
	return want
}

// topMuscles returns the n most frequent muscles, ties broken by first appearance.
func topMuscles(lists [][]plan.Muscle, n int) []plan.Muscle {
	counts := make(map[plan.Muscle]int)
	var order []plan.Muscle
	for _, list := range lists {
		for _, m := range list {
			if m == plan.MuscleFullBody {
				continue
			}
			if counts[m] == 0 {
				order = append(order, m)
			}
			counts[m]++
		}
	}
	slices.SortStableFunc(order, func(a, b plan.Muscle) int {
		return cmp.Compare(counts[b], counts[a])
	})
	if len(order) > n {
		order = order[:n]
	}
	return order
}
