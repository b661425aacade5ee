package validate

import (
	"fmt"
	"math"

	"ai-fitness-coach/internal/plan"
	"ai-fitness-coach/internal/rules"
)

// Nutrition validates a normalized nutrition plan. A non-zero
// rc.DailyCalories pins the daily target to the requested intake.
func Nutrition(p plan.NutritionPlan, mode Mode, r *rules.Rules, rc plan.RequestContext) Outcome[plan.NutritionPlan] {
	p = p.Clone()
	c := &checker{mode: mode, rules: r}
	b := r.Bounds

	c.required("title", p.Title)
	enum(c, "goal", p.Goal, plan.Goals)

	t := p.DailyTargets
	c.bound("daily_targets.calories", float64(t.Calories), b.DailyCalories)
	if rc.DailyCalories > 0 {
		c.calorieTarget("daily_targets.calories", t.Calories, rc.DailyCalories, "requested")
	}
	c.bound("daily_targets.protein_g", t.ProteinG, b.MacroGrams)
	c.bound("daily_targets.carbs_g", t.CarbsG, b.MacroGrams)
	c.bound("daily_targets.fat_g", t.FatG, b.MacroGrams)

	c.count("days", len(p.Days), 1, int(b.DaysPerWeek.Max), "days")

	for i := range p.Days {
		day := &p.Days[i]
		path := fmt.Sprintf("days[%d]", i)

		c.index(path+".day_index", &day.DayIndex, i+1)
		c.count(path+".meals", len(day.Meals), r.Validation.MinMeals, r.Validation.MaxMeals, "meals")

		for j := range day.Meals {
			c.meal(&day.Meals[j], fmt.Sprintf("%s.meals[%d]", path, j), j, b)
		}

		cal, protein, carbs, fat := day.Totals()
		aggregate(c, path+".total_calories", &day.TotalCalories, cal)
		aggregate(c, path+".total_protein_g", &day.TotalProteinG, protein)
		aggregate(c, path+".total_carbs_g", &day.TotalCarbsG, carbs)
		aggregate(c, path+".total_fat_g", &day.TotalFatG, fat)

		c.calorieTarget(path+".total_calories", day.TotalCalories, t.Calories, "daily target")
	}

	return Outcome[plan.NutritionPlan]{Plan: p, Warnings: c.warnings, Violations: c.violations}
}

func (c *checker) meal(m *plan.Meal, path string, j int, b rules.Bounds) {
	c.index(path+".order", &m.Order, j+1)
	c.required(path+".name", m.Name)
	enum(c, path+".meal_type", m.MealType, plan.MealTypes)
	if len(m.Foods) == 0 {
		c.violate(path+".foods", plan.RuleRequired, "", "at least one food")
	}
	c.bound(path+".calories", float64(m.Calories), b.MealCalories)
	c.bound(path+".protein_g", m.ProteinG, b.MacroGrams)
	c.bound(path+".carbs_g", m.CarbsG, b.MacroGrams)
	c.bound(path+".fat_g", m.FatG, b.MacroGrams)
}

func (c *checker) calorieTarget(path string, total, target int, what string) {
	if target <= 0 {
		return
	}
	tol := c.rules.Validation.CalorieTolerancePct
	diff := math.Abs(float64(total-target)) / float64(target) * 100
	if diff > tol {
		margin := int(math.Round(float64(target) * tol / 100))
		c.violate(path, plan.RuleCalorieTarget, fmt.Sprintf("%d kcal", total),
			fmt.Sprintf("between %d and %d kcal (%s %d ±%v%%)", target-margin, target+margin, what, target, tol))
	}
}
