package normalize

import (
	"fmt"
	"math"
	"strings"

	"ai-fitness-coach/internal/llmjson"
	"ai-fitness-coach/internal/plan"
	"ai-fitness-coach/internal/rules"
)

// Nutrition normalizes a decoded nutrition document.
func (n *Normalizer) Nutrition(doc llmjson.Value, rc plan.RequestContext) (plan.NutritionPlan, []string) {
	w := &warnings{}

	out := plan.NutritionPlan{Goal: n.goal(doc, rc, w)}
	out.Title = TextField{Path: "title", Default: defaultTitle(out.Goal, "nutrition")}.Coerce(doc.Field("title", "name"), w)
	out.DailyTargets = n.targets(doc, rc, w)

	for i, day := range doc.Field("days", "schedule", "plan").List() {
		out.Days = append(out.Days, n.nutritionDay(day, i, w))
	}
	return out, w.list
}

func (n *Normalizer) targets(doc llmjson.Value, rc plan.RequestContext, w *warnings) plan.Targets {
	r := n.rules
	src := doc.Field("daily_targets", "targets", "daily_target", "macros")
	if src.IsMissing() {
		src = doc
	}

	calBound := r.Bounds.DailyCalories
	if rc.DailyCalories > 0 {
		calBound.Default = float64(rc.DailyCalories)
	}
	cal, _ := NumberField{Path: "daily_targets.calories", Bound: calBound}.Coerce(src.Field("calories", "daily_calories", "kcal"), w)

	split := r.Defaults.MacroSplit
	macro := func(name string, pct, kcalPerGram float64, keys ...string) float64 {
		b := r.Bounds.MacroGrams
		b.Default = cal * pct / 100 / kcalPerGram
		v, _ := NumberField{Path: "daily_targets." + name, Bound: b}.Coerce(src.Field(keys...), w)
		return v
	}

	return plan.Targets{
		Calories: int(cal),
		ProteinG: macro("protein_g", split.ProteinPct, 4, "protein_g", "protein"),
		CarbsG:   macro("carbs_g", split.CarbsPct, 4, "carbs_g", "carbs", "carbohydrates"),
		FatG:     macro("fat_g", split.FatPct, 9, "fat_g", "fat", "fats"),
	}
}

func (n *Normalizer) nutritionDay(day llmjson.Value, i int, w *warnings) plan.NutritionDay {
	path := fmt.Sprintf("days[%d]", i)
	out := plan.NutritionDay{
		DayIndex: renumber(day.Field("day_index", "day", "index"), path+".day_index", i+1, w),
	}

	meals := day.Field("meals", "items").List()
	for j, item := range meals {
		out.Meals = append(out.Meals, n.meal(item, fmt.Sprintf("%s.meals[%d]", path, j), j, len(meals), w))
	}

	cal, protein, carbs, fat := out.Totals()
	out.TotalCalories = cal
	out.TotalProteinG = protein
	out.TotalCarbsG = carbs
	out.TotalFatG = fat

	for _, agg := range []struct {
		key  string
		want float64
	}{
		{"total_calories", float64(cal)},
		{"total_protein_g", protein},
		{"total_carbs_g", carbs},
		{"total_fat_g", fat},
	} {
		if got, found, _ := day.Field(agg.key).Number(); found && math.Abs(got-agg.want) > 0.05 {
			w.add("%s.%s: %s -> %s", path, agg.key, formatNumber(got), formatNumber(agg.want))
		}
	}
	return out
}

func (n *Normalizer) meal(item llmjson.Value, path string, j, count int, w *warnings) plan.Meal {
	r := n.rules
	out := plan.Meal{
		Order: renumber(item.Field("order", "index", "position"), path+".order", j+1, w),
	}
	out.Name = TextField{Path: path + ".name", Default: fmt.Sprintf("Meal %d", j+1)}.Coerce(item.Field("name", "title", "meal"), w)

	hint, _, ok := n.mealTypes.match(out.Name)
	if !ok {
		hint = positionalMealType(j, count)
	}
	out.MealType = EnumField[plan.MealType]{
		Path:    path + ".meal_type",
		Hint:    hint,
		Default: plan.MealSnack,
		match:   n.mealTypes,
	}.Coerce(item.Field("meal_type", "type", "slot"), w)

	out.Foods = foodList(item.Field("foods", "ingredients", "items"))

	macro := func(name string, keys ...string) float64 {
		v, _ := NumberField{Path: path + "." + name, Bound: r.Bounds.MacroGrams}.Coerce(item.Field(keys...), w)
		return v
	}
	out.ProteinG = macro("protein_g", "protein_g", "protein")
	out.CarbsG = macro("carbs_g", "carbs_g", "carbs", "carbohydrates")
	out.FatG = macro("fat_g", "fat_g", "fat", "fats")

	calField := item.Field("calories", "kcal", "energy")
	if calField.IsMissing() {
		derived := deriveCalories(out.ProteinG, out.CarbsG, out.FatG, r.Bounds.MealCalories)
		w.add("%s.calories: missing -> %d (from macros)", path, derived)
		out.Calories = derived
	} else {
		cal, _ := NumberField{Path: path + ".calories", Bound: r.Bounds.MealCalories}.Coerce(calField, w)
		out.Calories = int(cal)
	}
	return out
}

func deriveCalories(protein, carbs, fat float64, b rules.Bound) int {
	return int(clampRound(4*protein+4*carbs+9*fat, b))
}

// positionalMealType guesses a slot from the meal's position in the day.
func positionalMealType(j, count int) plan.MealType {
	switch {
	case j == 0:
		return plan.MealBreakfast
	case j == count-1:
		return plan.MealDinner
	case count >= 3 && j == count/2:
		return plan.MealLunch
	default:
		return plan.MealSnack
	}
}

// foodList accepts plain strings or objects such as {"name": "oats", "amount": "80 g"}.
// A single string is split on commas and semicolons only, so amounts like
// "1/2 cup" survive.
func foodList(v llmjson.Value) []string {
	var out []string
	for _, item := range v.List() {
		if _, isObj := item.Raw().(map[string]any); !isObj {
			if s, ok := item.Text(); ok && s != "" {
				out = append(out, s)
			}
			continue
		}
		name, _ := item.Field("name", "food", "item").Text()
		if name == "" {
			continue
		}
		if amount, ok := item.Field("amount", "quantity", "portion", "grams").Text(); ok && amount != "" {
			name = strings.TrimSpace(amount + " " + name)
		}
		out = append(out, name)
	}
	if len(out) == 0 {
		return v.SplitStrings(",;،")
	}
	return out
}
