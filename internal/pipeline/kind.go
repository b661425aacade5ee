package pipeline

import (
	"ai-fitness-coach/internal/llmjson"
	"ai-fitness-coach/internal/normalize"
	"ai-fitness-coach/internal/plan"
	"ai-fitness-coach/internal/rules"
	"ai-fitness-coach/internal/validate"
)

// Kind binds the normalization and validation stages of one plan type.
type Kind[P any] interface {
	Name() plan.Kind
	Normalize(doc llmjson.Value, rc plan.RequestContext) (P, []string)
	Validate(p P, mode validate.Mode, rc plan.RequestContext) validate.Outcome[P]
}

type workoutKind struct {
	n *normalize.Normalizer
	r *rules.Rules
}

// Workout returns the workout plan stages configured by r.
func Workout(r *rules.Rules) Kind[plan.WorkoutPlan] {
	return workoutKind{n: normalize.New(r), r: r}
}

func (workoutKind) Name() plan.Kind { return plan.KindWorkout }

func (k workoutKind) Normalize(doc llmjson.Value, rc plan.RequestContext) (plan.WorkoutPlan, []string) {
	return k.n.Workout(doc, rc)
}

func (k workoutKind) Validate(p plan.WorkoutPlan, mode validate.Mode, rc plan.RequestContext) validate.Outcome[plan.WorkoutPlan] {
	return validate.Workout(p, mode, k.r, rc)
}

type nutritionKind struct {
	n *normalize.Normalizer
	r *rules.Rules
}

// Nutrition returns the nutrition plan stages configured by r.
func Nutrition(r *rules.Rules) Kind[plan.NutritionPlan] {
	return nutritionKind{n: normalize.New(r), r: r}
}

func (nutritionKind) Name() plan.Kind { return plan.KindNutrition }

func (k nutritionKind) Normalize(doc llmjson.Value, rc plan.RequestContext) (plan.NutritionPlan, []string) {
	return k.n.Nutrition(doc, rc)
}

func (k nutritionKind) Validate(p plan.NutritionPlan, mode validate.Mode, rc plan.RequestContext) validate.Outcome[plan.NutritionPlan] {
	return validate.Nutrition(p, mode, k.r, rc)
}
