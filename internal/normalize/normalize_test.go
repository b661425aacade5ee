package normalize

import (
	"slices"
	"strings"
	"testing"

	"ai-fitness-coach/internal/llmjson"
	"ai-fitness-coach/internal/plan"
	"ai-fitness-coach/internal/rules"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, text string) llmjson.Value {
	t.Helper()
	doc, err := llmjson.Decode(text)
	require.NoError(t, err)
	return doc
}

func hasWarning(warnings []string, substr string) bool {
	return slices.ContainsFunc(warnings, func(w string) bool { return strings.Contains(w, substr) })
}

func TestWorkout_HebrewGoalMapsToCut(t *testing.T) {
	doc := decode(t, `{"goal":"שריפת שומן","days_per_week":5,"days":[{"exercises":[{"name":"Squat","sets":3,"reps":"10-15"}]}]}`)

	p, warnings := NormalizeWorkout(doc, plan.RequestContext{}, rules.Default())

	assert.Equal(t, plan.GoalCut, p.Goal)
	assert.True(t, hasWarning(warnings, `goal: "שריפת שומן" -> cut`), "warnings: %v", warnings)
}

func TestWorkout_TempoCanonicalized(t *testing.T) {
	doc := decode(t, `{"goal":"mass","days":[{"exercises":[{"name":"Bench Press","sets":3,"reps":"8-12","tempo":"2 – 0 – 2"}]}]}`)

	p, warnings := NormalizeWorkout(doc, plan.RequestContext{}, rules.Default())

	require.Len(t, p.Days, 1)
	assert.Equal(t, "2-0-2", p.Days[0].Exercises[0].Tempo)
	assert.True(t, hasWarning(warnings, "days[0].exercises[0].tempo"))
}

func TestWorkout_BareRepsExpandToGoalRange(t *testing.T) {
	doc := decode(t, `{"goal":"mass","days":[{"exercises":[
		{"name":"Bench Press","category":"compound","sets":3,"reps":"10"},
		{"name":"Plank","category":"core","sets":3,"reps":"10"}
	]}]}`)

	p, _ := NormalizeWorkout(doc, plan.RequestContext{}, rules.Default())

	exs := p.Days[0].Exercises
	assert.Equal(t, "8-12", exs[0].Reps)
	assert.Equal(t, "15-20", exs[1].Reps)
}

func TestWorkout_TotalSetsRecomputed(t *testing.T) {
	doc := decode(t, `{"goal":"strength","days":[{"total_sets":99,"exercises":[
		{"name":"Squat","sets":3,"reps":"5"},
		{"name":"Deadlift","sets":3,"reps":"5"},
		{"name":"Overhead Press","sets":3,"reps":"5"}
	]}]}`)

	p, warnings := NormalizeWorkout(doc, plan.RequestContext{}, rules.Default())

	assert.Equal(t, 9, p.Days[0].TotalSets)
	assert.Contains(t, warnings, "days[0].total_sets: 99 -> 9")
}

func TestWorkout_RenumbersAndDerives(t *testing.T) {
	doc := decode(t, `{"goal":"bulk","days_per_week":4,"days":[
		{"day_index":3,"exercises":[{"order":5,"name":"Barbell Squat","sets":12,"reps":"8 to 12","rest_seconds":"600"},
			{"order":5,"name":"Leg Curl","sets":"3","reps":"12–10"}]},
		{"day_index":1,"name":"Pull","focus":["lats","Biceps","wings"],"exercises":[{"name":"Pull Up","sets":4,"reps":"AMRAP","weight_kg":12.345}]}
	]}`)

	p, warnings := NormalizeWorkout(doc, plan.RequestContext{Frequency: 3}, rules.Default())

	require.Len(t, p.Days, 2)
	assert.Equal(t, plan.GoalMass, p.Goal)
	assert.Equal(t, 2, p.DaysPerWeek)
	assert.Contains(t, warnings, "days_per_week: 4 -> 2")

	d0 := p.Days[0]
	assert.Equal(t, 1, d0.DayIndex)
	assert.Contains(t, warnings, "days[0].day_index: 3 -> 1")
	assert.Equal(t, "Day 1", d0.Name)
	assert.Equal(t, []int{1, 2}, []int{d0.Exercises[0].Order, d0.Exercises[1].Order})
	assert.Equal(t, 10, d0.Exercises[0].Sets)
	assert.Contains(t, warnings, "days[0].exercises[0].sets: 12 -> 10")
	assert.Equal(t, "8-12", d0.Exercises[0].Reps)
	assert.Equal(t, 300, d0.Exercises[0].RestSeconds)
	assert.Equal(t, "10-12", d0.Exercises[1].Reps)
	assert.Equal(t, plan.CategoryCompound, d0.Exercises[0].Category)
	assert.Equal(t, plan.CategoryIsolation, d0.Exercises[1].Category)
	assert.Equal(t, []plan.Muscle{plan.MuscleQuads, plan.MuscleGlutes}, d0.Exercises[0].TargetMuscles)
	assert.Equal(t, []plan.Muscle{plan.MuscleQuads, plan.MuscleGlutes, plan.MuscleHamstrings}, d0.Focus)
	assert.Equal(t, 13, d0.TotalSets)
	assert.Nil(t, d0.Exercises[0].WeightKg)

	d1 := p.Days[1]
	assert.Equal(t, 2, d1.DayIndex)
	assert.Equal(t, []plan.Muscle{plan.MuscleBack, plan.MuscleBiceps}, d1.Focus)
	assert.True(t, hasWarning(warnings, `dropped unknown muscle "wings"`))
	assert.Equal(t, "AMRAP", d1.Exercises[0].Reps)
	require.NotNil(t, d1.Exercises[0].WeightKg)
	assert.Equal(t, 12.3, *d1.Exercises[0].WeightKg)
}

func TestWorkout_GoalFallsBackToRequestThenDefault(t *testing.T) {
	doc := decode(t, `{"goal":"be awesome","days":[]}`)

	p, warnings := NormalizeWorkout(doc, plan.RequestContext{Goal: "I want to build muscle", Frequency: 4}, rules.Default())
	assert.Equal(t, plan.GoalMass, p.Goal)
	assert.Equal(t, 4, p.DaysPerWeek)
	assert.True(t, hasWarning(warnings, "not recognized, using mass"))

	p, _ = NormalizeWorkout(doc, plan.RequestContext{}, rules.Default())
	assert.Equal(t, plan.GoalGeneral, p.Goal)
	assert.Equal(t, 3, p.DaysPerWeek)
	assert.Equal(t, "General workout plan", p.Title)
}

func TestRepsField(t *testing.T) {
	r := rules.Default()
	tests := []struct {
		in       string
		category plan.Category
		goal     plan.Goal
		want     string
	}{
		{"8-12", plan.CategoryCompound, plan.GoalMass, "8-12"},
		{"8 to 12", plan.CategoryCompound, plan.GoalMass, "8-12"},
		{"8–12", plan.CategoryCompound, plan.GoalMass, "8-12"},
		{"8-12 reps", plan.CategoryCompound, plan.GoalMass, "8-12"},
		{"12-8", plan.CategoryCompound, plan.GoalMass, "8-12"},
		{"10", plan.CategoryCompound, plan.GoalMass, "8-12"},
		{"10-10", plan.CategoryCompound, plan.GoalMass, "8-12"},
		{"5", plan.CategoryCompound, plan.GoalStrength, "4-6"},
		{"3x10", plan.CategoryIsolation, plan.GoalCut, "10-15"},
		{"3 x 6-8", plan.CategoryCompound, plan.GoalStrength, "6-8"},
		{"30 sec", plan.CategoryCore, plan.GoalMass, "30s"},
		{"30s", plan.CategoryCore, plan.GoalMass, "30s"},
		{"2 min", plan.CategoryCardio, plan.GoalEndurance, "120s"},
		{"45 שניות", plan.CategoryCore, plan.GoalMass, "45s"},
		{"30-45 seconds", plan.CategoryCore, plan.GoalMass, "45s"},
		{"20", plan.CategoryCardio, plan.GoalEndurance, "60s"},
		{"amrap", plan.CategoryCompound, plan.GoalMass, "AMRAP"},
		{"to failure", plan.CategoryCompound, plan.GoalMass, "AMRAP"},
		{"40-80", plan.CategoryCompound, plan.GoalEndurance, "40-50"},
		{"", plan.CategoryMobility, plan.GoalGeneral, "30s"},
		{"some", plan.CategoryCompound, plan.GoalGeneral, "8-12"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			f := RepsField{Path: "reps", Category: tt.category, Goal: tt.goal, Rules: r}
			assert.Equal(t, tt.want, f.canonical(tt.in))
		})
	}
}

func TestCanonicalTempo(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2-0-2", "2-0-2", true},
		{"2 – 0 – 2", "2-0-2", true},
		{"202", "2-0-2", true},
		{"3-1-x-0", "3-1-X-0", true},
		{"31X0", "3-1-X-0", true},
		{"2/1/2", "2-1-2", true},
		{"controlled", "", false},
		{"2-0", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := canonicalTempo(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNutrition(t *testing.T) {
	doc := decode(t, `{
		"goal": "ירידה במשקל",
		"daily_targets": {"calories": 1800, "protein_g": 140},
		"days": [{
			"day_index": 1,
			"total_calories": 5000,
			"meals": [
				{"name": "Oatmeal bowl", "foods": ["80 g oats", "1 banana"], "calories": 420, "protein_g": 15, "carbs_g": 70, "fat_g": 8},
				{"name": "ארוחת צהריים", "foods": [{"name": "chicken breast", "amount": "150 g"}, {"name": "rice"}], "protein_g": 45, "carbs_g": 60, "fat_g": 10},
				{"name": "Salmon", "meal_type": "Evening meal", "calories": 9000, "protein_g": 35.56, "carbs_g": 20, "fat_g": 22}
			]
		}]
	}`)

	p, warnings := NormalizeNutrition(doc, plan.RequestContext{DailyCalories: 2200}, rules.Default())

	assert.Equal(t, plan.GoalCut, p.Goal)
	assert.Equal(t, plan.Targets{Calories: 1800, ProteinG: 140, CarbsG: 180, FatG: 60}, p.DailyTargets)

	require.Len(t, p.Days, 1)
	meals := p.Days[0].Meals
	require.Len(t, meals, 3)

	assert.Equal(t, plan.MealBreakfast, meals[0].MealType)
	assert.Equal(t, plan.MealLunch, meals[1].MealType)
	assert.Equal(t, plan.MealDinner, meals[2].MealType)

	assert.Equal(t, []string{"150 g chicken breast", "rice"}, meals[1].Foods)
	assert.Equal(t, 4*45+4*60+9*10, meals[1].Calories)
	assert.Contains(t, warnings, "days[0].meals[1].calories: missing -> 510 (from macros)")

	assert.Equal(t, 3000, meals[2].Calories)
	assert.Equal(t, 35.6, meals[2].ProteinG)

	day := p.Days[0]
	assert.Equal(t, 420+510+3000, day.TotalCalories)
	assert.Equal(t, 95.6, day.TotalProteinG)
	assert.True(t, hasWarning(warnings, "days[0].total_calories: 5000 -> 3930"))
}

func TestNutrition_FoodsStringKeepsFractions(t *testing.T) {
	doc := decode(t, `{"days": [{"meals": [{"name": "Breakfast", "foods": "1/2 cup oats, 2 eggs; 1 banana"}]}]}`)

	p, _ := NormalizeNutrition(doc, plan.RequestContext{}, rules.Default())

	require.Len(t, p.Days, 1)
	require.Len(t, p.Days[0].Meals, 1)
	assert.Equal(t, []string{"1/2 cup oats", "2 eggs", "1 banana"}, p.Days[0].Meals[0].Foods)
}

func TestNutrition_TargetsDefaultFromRequest(t *testing.T) {
	doc := decode(t, `{"days": []}`)

	p, warnings := NormalizeNutrition(doc, plan.RequestContext{DailyCalories: 2400}, rules.Default())

	assert.Equal(t, plan.Targets{Calories: 2400, ProteinG: 180, CarbsG: 240, FatG: 80}, p.DailyTargets)
	assert.Contains(t, warnings, "daily_targets.calories: missing -> 2400")
}

func TestPositionalMealType(t *testing.T) {
	got := make([]plan.MealType, 5)
	for j := range got {
		got[j] = positionalMealType(j, 5)
	}
	want := []plan.MealType{plan.MealBreakfast, plan.MealSnack, plan.MealLunch, plan.MealSnack, plan.MealDinner}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("positionalMealType mismatch (-want +got):\n%s", diff)
	}
}

// Arbitrary shapes still produce in-bound, closed-set output.
func TestWorkout_Totality(t *testing.T) {
	r := rules.Default()
	inputs := []string{
		`{}`,
		`{"days": "monday"}`,
		`{"days": {"exercises": {"name": 7, "sets": -4, "reps": [1,2], "rest_seconds": "forever", "tempo": 202}}}`,
		`{"goal": 12, "days": [null, {"exercises": [null, {"sets": 1e9, "category": "???", "target_muscles": "chest; legs; abs"}]}]}`,
		`{"days_per_week": 40, "days": [{}, {}, {}, {}, {}, {}, {}, {}, {}]}`,
	}
	for _, in := range inputs {
		p, _ := NormalizeWorkout(decode(t, in), plan.RequestContext{}, r)
		assert.Contains(t, plan.Goals, p.Goal, in)
		assert.GreaterOrEqual(t, p.DaysPerWeek, 1, in)
		assert.LessOrEqual(t, p.DaysPerWeek, 7, in)
		for i, d := range p.Days {
			assert.Equal(t, i+1, d.DayIndex, in)
			assert.Equal(t, d.SumSets(), d.TotalSets, in)
			assert.NotEmpty(t, d.Focus, in)
			for j, ex := range d.Exercises {
				assert.Equal(t, j+1, ex.Order, in)
				assert.Contains(t, plan.Categories, ex.Category, in)
				assert.GreaterOrEqual(t, ex.Sets, 1, in)
				assert.LessOrEqual(t, ex.Sets, 10, in)
				assert.GreaterOrEqual(t, ex.RestSeconds, 15, in)
				assert.NotEmpty(t, ex.Reps, in)
				assert.NotEmpty(t, ex.TargetMuscles, in)
				for _, m := range ex.TargetMuscles {
					assert.Contains(t, plan.Muscles, m, in)
				}
			}
		}
	}
}
