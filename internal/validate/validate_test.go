package validate

import (
	"fmt"
	"testing"

	"ai-fitness-coach/internal/plan"
	"ai-fitness-coach/internal/rules"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exercise(order int, name string, category plan.Category, reps string) plan.Exercise {
	return plan.Exercise{
		Order:         order,
		Name:          name,
		Category:      category,
		TargetMuscles: []plan.Muscle{plan.MuscleChest},
		Sets:          3,
		Reps:          reps,
		RestSeconds:   90,
		Tempo:         "2-0-2",
	}
}

func workoutDay(index, exercises int) plan.WorkoutDay {
	d := plan.WorkoutDay{DayIndex: index, Name: fmt.Sprintf("Day %d", index), Focus: []plan.Muscle{plan.MuscleChest}}
	for j := 1; j <= exercises; j++ {
		d.Exercises = append(d.Exercises, exercise(j, fmt.Sprintf("Press %d", j), plan.CategoryCompound, "8-12"))
	}
	d.TotalSets = d.SumSets()
	return d
}

func validWorkout(days, exercisesPerDay int) plan.WorkoutPlan {
	p := plan.WorkoutPlan{Title: "Mass plan", Goal: plan.GoalMass, DaysPerWeek: days}
	for i := 1; i <= days; i++ {
		p.Days = append(p.Days, workoutDay(i, exercisesPerDay))
	}
	return p
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeSoft, m)

	m, err = ParseMode("hard")
	require.NoError(t, err)
	assert.Equal(t, ModeHard, m)

	_, err = ParseMode("strict")
	assert.Error(t, err)
}

func TestWorkout_Valid(t *testing.T) {
	p := validWorkout(3, 4)

	for _, mode := range []Mode{ModeSoft, ModeHard} {
		out := Workout(p, mode, rules.Default(), plan.RequestContext{Frequency: 3})
		assert.True(t, out.Valid(), "mode %s: %v", mode, out.Violations)
		assert.Empty(t, out.Warnings)
		if diff := cmp.Diff(p, out.Plan); diff != "" {
			t.Errorf("plan changed (-want +got):\n%s", diff)
		}
	}
}

func TestWorkout_TooManyExercises(t *testing.T) {
	p := validWorkout(1, 15)

	out := Workout(p, ModeSoft, rules.Default(), plan.RequestContext{})

	require.Len(t, out.Violations, 1)
	assert.Equal(t, plan.Violation{
		Path:     "days[0].exercises",
		Rule:     plan.RuleCardinality,
		Observed: "15 exercises",
		Expected: "between 2 and 10 exercises",
	}, out.Violations[0])
}

func TestWorkout_FrequencyMismatch(t *testing.T) {
	out := Workout(validWorkout(3, 3), ModeSoft, rules.Default(), plan.RequestContext{Frequency: 5})

	require.Len(t, out.Violations, 1)
	assert.Equal(t, plan.RuleFrequency, out.Violations[0].Rule)
}

func TestWorkout_SoftFixesOrderingAndAggregates(t *testing.T) {
	p := validWorkout(2, 3)
	p.Days[1].DayIndex = 7
	p.Days[0].Exercises[2].Order = 9
	p.Days[0].TotalSets = 99
	p.DaysPerWeek = 4

	soft := Workout(p, ModeSoft, rules.Default(), plan.RequestContext{})
	assert.True(t, soft.Valid(), "%v", soft.Violations)
	assert.Equal(t, 2, soft.Plan.Days[1].DayIndex)
	assert.Equal(t, 3, soft.Plan.Days[0].Exercises[2].Order)
	assert.Equal(t, 9, soft.Plan.Days[0].TotalSets)
	assert.Equal(t, 2, soft.Plan.DaysPerWeek)
	assert.Len(t, soft.Warnings, 4)

	// The input is left untouched.
	assert.Equal(t, 7, p.Days[1].DayIndex)

	hard := Workout(p, ModeHard, rules.Default(), plan.RequestContext{})
	assert.Empty(t, hard.Warnings)
	rulesSeen := map[plan.Rule]int{}
	for _, v := range hard.Violations {
		rulesSeen[v.Rule]++
	}
	assert.Equal(t, map[plan.Rule]int{plan.RuleOrdering: 2, plan.RuleAggregate: 2}, rulesSeen)
}

func TestWorkout_RepsForGoal(t *testing.T) {
	tests := []struct {
		name      string
		category  plan.Category
		reps      string
		mode      Mode
		wantReps  string
		violation bool
	}{
		{"inside range", plan.CategoryCompound, "8-12", ModeSoft, "8-12", false},
		{"small drift fixed", plan.CategoryCompound, "12-17", ModeSoft, "12-15", false},
		{"small drift below", plan.CategoryIsolation, "4-5", ModeSoft, "6-8", false},
		{"small drift hard mode", plan.CategoryCompound, "12-17", ModeHard, "12-17", true},
		{"large drift", plan.CategoryCompound, "20-30", ModeSoft, "20-30", true},
		{"core exempt", plan.CategoryCore, "20-30", ModeHard, "20-30", false},
		{"timed exempt", plan.CategoryCompound, "45s", ModeHard, "45s", false},
		{"amrap exempt", plan.CategoryCompound, "AMRAP", ModeHard, "AMRAP", false},
		{"bad format", plan.CategoryCompound, "lots", ModeSoft, "lots", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validWorkout(1, 2)
			p.Days[0].Exercises[0].Category = tt.category
			p.Days[0].Exercises[0].Reps = tt.reps

			out := Workout(p, tt.mode, rules.Default(), plan.RequestContext{})

			assert.Equal(t, tt.wantReps, out.Plan.Days[0].Exercises[0].Reps)
			assert.Equal(t, tt.violation, !out.Valid(), "%v", out.Violations)
		})
	}
}

func TestWorkout_SchemaAlwaysHard(t *testing.T) {
	p := validWorkout(1, 2)
	p.Goal = "recomp"
	p.Title = ""
	p.Days[0].Exercises[0].Sets = 0
	p.Days[0].Exercises[0].Tempo = "slow"
	p.Days[0].Exercises[1].TargetMuscles = []plan.Muscle{"wings"}
	p.Days[0].TotalSets = p.Days[0].SumSets()

	out := Workout(p, ModeSoft, rules.Default(), plan.RequestContext{})

	paths := make([]string, 0, len(out.Violations))
	for _, v := range out.Violations {
		paths = append(paths, v.Path)
	}
	assert.ElementsMatch(t, []string{
		"title",
		"goal",
		"days[0].exercises[0].sets",
		"days[0].exercises[0].tempo",
		"days[0].exercises[1].target_muscles[0]",
	}, paths)
}

func nutritionPlan(calories []int) plan.NutritionPlan {
	p := plan.NutritionPlan{
		Title:        "Cut plan",
		Goal:         plan.GoalCut,
		DailyTargets: plan.Targets{Calories: 2000, ProteinG: 150, CarbsG: 200, FatG: 67},
	}
	for i, cal := range calories {
		d := plan.NutritionDay{DayIndex: i + 1}
		for j, share := range []int{cal / 4, cal / 4, cal - cal/2} {
			d.Meals = append(d.Meals, plan.Meal{
				Order: j + 1, MealType: plan.MealTypes[j], Name: fmt.Sprintf("Meal %d", j+1),
				Foods: []string{"food"}, Calories: share, ProteinG: 30, CarbsG: 50, FatG: 15,
			})
		}
		d.TotalCalories, d.TotalProteinG, d.TotalCarbsG, d.TotalFatG = d.Totals()
		p.Days = append(p.Days, d)
	}
	return p
}

func TestNutrition(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		out := Nutrition(nutritionPlan([]int{2000, 1900}), ModeHard, rules.Default(), plan.RequestContext{})
		assert.True(t, out.Valid(), "%v", out.Violations)
	})

	t.Run("CalorieTargetMissed", func(t *testing.T) {
		out := Nutrition(nutritionPlan([]int{2000, 3000}), ModeSoft, rules.Default(), plan.RequestContext{})
		require.Len(t, out.Violations, 1)
		v := out.Violations[0]
		assert.Equal(t, "days[1].total_calories", v.Path)
		assert.Equal(t, plan.RuleCalorieTarget, v.Rule)
		assert.Equal(t, "3000 kcal", v.Observed)
		assert.Contains(t, v.Expected, "between 1700 and 2300 kcal")
	})

	t.Run("RequestedCaloriesMissed", func(t *testing.T) {
		p := nutritionPlan([]int{1200})
		p.DailyTargets.Calories = 1200
		out := Nutrition(p, ModeSoft, rules.Default(), plan.RequestContext{DailyCalories: 2500})
		require.Len(t, out.Violations, 1)
		v := out.Violations[0]
		assert.Equal(t, "daily_targets.calories", v.Path)
		assert.Equal(t, plan.RuleCalorieTarget, v.Rule)
		assert.Equal(t, "1200 kcal", v.Observed)
		assert.Equal(t, "between 2125 and 2875 kcal (requested 2500 ±15%)", v.Expected)
	})

	t.Run("RequestedCaloriesWithinTolerance", func(t *testing.T) {
		out := Nutrition(nutritionPlan([]int{2000}), ModeHard, rules.Default(), plan.RequestContext{DailyCalories: 2200})
		assert.True(t, out.Valid(), "%v", out.Violations)
	})

	t.Run("AggregateDriftFixedInSoftMode", func(t *testing.T) {
		p := nutritionPlan([]int{2000})
		p.Days[0].TotalProteinG = 1

		soft := Nutrition(p, ModeSoft, rules.Default(), plan.RequestContext{})
		assert.True(t, soft.Valid())
		assert.Equal(t, 90.0, soft.Plan.Days[0].TotalProteinG)
		assert.Len(t, soft.Warnings, 1)

		hard := Nutrition(p, ModeHard, rules.Default(), plan.RequestContext{})
		require.Len(t, hard.Violations, 1)
		assert.Equal(t, plan.RuleAggregate, hard.Violations[0].Rule)
	})

	t.Run("MealCardinalityAndFoods", func(t *testing.T) {
		p := nutritionPlan([]int{2000})
		p.Days[0].Meals = p.Days[0].Meals[:1]
		p.Days[0].Meals[0].Foods = nil
		p.Days[0].Meals[0].Calories = 2000
		p.Days[0].TotalCalories, p.Days[0].TotalProteinG, p.Days[0].TotalCarbsG, p.Days[0].TotalFatG = p.Days[0].Totals()

		out := Nutrition(p, ModeSoft, rules.Default(), plan.RequestContext{})
		rulesSeen := []plan.Rule{}
		for _, v := range out.Violations {
			rulesSeen = append(rulesSeen, v.Rule)
		}
		assert.ElementsMatch(t, []plan.Rule{plan.RuleCardinality, plan.RuleRequired}, rulesSeen)
	})
}
