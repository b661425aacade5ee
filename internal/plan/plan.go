// Package plan holds the structured documents produced by plan generation:
// workout plans, nutrition plans and the closed vocabularies they use.
package plan

import (
	"fmt"
	"strings"
)

// Goal is the training or nutrition objective a plan is built around.
type Goal string

const (
	GoalMass      Goal = "mass"
	GoalCut       Goal = "cut"
	GoalStrength  Goal = "strength"
	GoalEndurance Goal = "endurance"
	GoalGeneral   Goal = "general"
)

// Goals lists every valid goal.
var Goals = []Goal{GoalMass, GoalCut, GoalStrength, GoalEndurance, GoalGeneral}

// Category classifies an exercise.
type Category string

const (
	CategoryCompound  Category = "compound"
	CategoryIsolation Category = "isolation"
	CategoryCore      Category = "core"
	CategoryCardio    Category = "cardio"
	CategoryMobility  Category = "mobility"
)

var Categories = []Category{CategoryCompound, CategoryIsolation, CategoryCore, CategoryCardio, CategoryMobility}

// MealType is the slot a meal occupies in a day.
type MealType string

const (
	MealBreakfast   MealType = "breakfast"
	MealLunch       MealType = "lunch"
	MealDinner      MealType = "dinner"
	MealSnack       MealType = "snack"
	MealPreWorkout  MealType = "pre_workout"
	MealPostWorkout MealType = "post_workout"
)

var MealTypes = []MealType{MealBreakfast, MealLunch, MealDinner, MealSnack, MealPreWorkout, MealPostWorkout}

// Muscle is a target muscle group tag.
type Muscle string

const (
	MuscleChest      Muscle = "chest"
	MuscleBack       Muscle = "back"
	MuscleShoulders  Muscle = "shoulders"
	MuscleBiceps     Muscle = "biceps"
	MuscleTriceps    Muscle = "triceps"
	MuscleForearms   Muscle = "forearms"
	MuscleQuads      Muscle = "quads"
	MuscleHamstrings Muscle = "hamstrings"
	MuscleGlutes     Muscle = "glutes"
	MuscleCalves     Muscle = "calves"
	MuscleCore       Muscle = "core"
	MuscleFullBody   Muscle = "full_body"
)

var Muscles = []Muscle{
	MuscleChest, MuscleBack, MuscleShoulders, MuscleBiceps, MuscleTriceps, MuscleForearms,
	MuscleQuads, MuscleHamstrings, MuscleGlutes, MuscleCalves, MuscleCore, MuscleFullBody,
}

// Kind names a plan document type.
type Kind string

const (
	KindWorkout   Kind = "workout"
	KindNutrition Kind = "nutrition"
)

// ParseKind accepts the user-facing spelling of a plan kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "workout", "training":
		return KindWorkout, nil
	case "nutrition", "diet", "meal":
		return KindNutrition, nil
	default:
		return "", fmt.Errorf("unknown plan kind %q", s)
	}
}

// AgentName is the name generation metrics for this kind are recorded under.
func (k Kind) AgentName() string {
	return string(k) + "_planner"
}

// WorkoutPlan is a multi-day training program.
type WorkoutPlan struct {
	Title       string       `json:"title"`
	Goal        Goal         `json:"goal"`
	DaysPerWeek int          `json:"days_per_week"`
	Days        []WorkoutDay `json:"days"`
}

type WorkoutDay struct {
	DayIndex  int        `json:"day_index"`
	Name      string     `json:"name"`
	Focus     []Muscle   `json:"focus"`
	TotalSets int        `json:"total_sets"`
	Exercises []Exercise `json:"exercises"`
}

type Exercise struct {
	Order         int      `json:"order"`
	Name          string   `json:"name"`
	Category      Category `json:"category"`
	TargetMuscles []Muscle `json:"target_muscles"`
	Sets          int      `json:"sets"`
	// Reps is either a range ("8-12"), a single count ("5"), a timed hold
	// ("30s") or "AMRAP".
	Reps        string   `json:"reps"`
	RestSeconds int      `json:"rest_seconds"`
	Tempo       string   `json:"tempo"`
	WeightKg    *float64 `json:"weight_kg,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

// SumSets returns the total number of sets across the day's exercises.
func (d WorkoutDay) SumSets() int {
	total := 0
	for _, ex := range d.Exercises {
		total += ex.Sets
	}
	return total
}

// NutritionPlan is a multi-day meal plan with daily macro targets.
type NutritionPlan struct {
	Title        string         `json:"title"`
	Goal         Goal           `json:"goal"`
	DailyTargets Targets        `json:"daily_targets"`
	Days         []NutritionDay `json:"days"`
}

// Targets are the daily energy and macro goals.
type Targets struct {
	Calories int     `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

type NutritionDay struct {
	DayIndex      int     `json:"day_index"`
	TotalCalories int     `json:"total_calories"`
	TotalProteinG float64 `json:"total_protein_g"`
	TotalCarbsG   float64 `json:"total_carbs_g"`
	TotalFatG     float64 `json:"total_fat_g"`
	Meals         []Meal  `json:"meals"`
}

type Meal struct {
	Order    int      `json:"order"`
	MealType MealType `json:"meal_type"`
	Name     string   `json:"name"`
	Foods    []string `json:"foods"`
	Calories int      `json:"calories"`
	ProteinG float64  `json:"protein_g"`
	CarbsG   float64  `json:"carbs_g"`
	FatG     float64  `json:"fat_g"`
}

// Totals sums the day's meals. Macro sums are rounded to one decimal.
func (d NutritionDay) Totals() (calories int, protein, carbs, fat float64) {
	for _, m := range d.Meals {
		calories += m.Calories
		protein += m.ProteinG
		carbs += m.CarbsG
		fat += m.FatG
	}
	return calories, Round1(protein), Round1(carbs), Round1(fat)
}

// Clone returns a deep copy so later stages never share slices with earlier ones.
func (p WorkoutPlan) Clone() WorkoutPlan {
	out := p
	out.Days = make([]WorkoutDay, len(p.Days))
	for i, d := range p.Days {
		d.Focus = append([]Muscle(nil), d.Focus...)
		exs := make([]Exercise, len(d.Exercises))
		for j, ex := range d.Exercises {
			ex.TargetMuscles = append([]Muscle(nil), ex.TargetMuscles...)
			if ex.WeightKg != nil {
				w := *ex.WeightKg
				ex.WeightKg = &w
			}
			exs[j] = ex
		}
		d.Exercises = exs
		out.Days[i] = d
	}
	return out
}

func (p NutritionPlan) Clone() NutritionPlan {
	out := p
	out.Days = make([]NutritionDay, len(p.Days))
	for i, d := range p.Days {
		meals := make([]Meal, len(d.Meals))
		for j, m := range d.Meals {
			m.Foods = append([]string(nil), m.Foods...)
			meals[j] = m
		}
		d.Meals = meals
		out.Days[i] = d
	}
	return out
}
