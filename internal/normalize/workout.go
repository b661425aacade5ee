package normalize

import (
	"fmt"
	"slices"
	"strings"

	"ai-fitness-coach/internal/llmjson"
	"ai-fitness-coach/internal/plan"
)

// Workout normalizes a decoded workout document.
func (n *Normalizer) Workout(doc llmjson.Value, rc plan.RequestContext) (plan.WorkoutPlan, []string) {
	w := &warnings{}
	r := n.rules

	out := plan.WorkoutPlan{Goal: n.goal(doc, rc, w)}
	out.Title = TextField{Path: "title", Default: defaultTitle(out.Goal, "workout")}.Coerce(doc.Field("title", "name"), w)

	for i, day := range doc.Field("days", "schedule", "workouts", "plan").List() {
		out.Days = append(out.Days, n.workoutDay(day, i, out.Goal, w))
	}

	dpw := doc.Field("days_per_week", "frequency", "sessions_per_week")
	if len(out.Days) > 0 {
		count := int(clampRound(float64(len(out.Days)), r.Bounds.DaysPerWeek))
		if got, found, _ := dpw.Number(); found && int(got) != count {
			w.add("days_per_week: %s -> %d", formatNumber(got), count)
		}
		out.DaysPerWeek = count
	} else {
		b := r.Bounds.DaysPerWeek
		if rc.Frequency > 0 {
			b.Default = float64(rc.Frequency)
		}
		v, _ := NumberField{Path: "days_per_week", Bound: b}.Coerce(dpw, w)
		out.DaysPerWeek = int(v)
	}

	return out, w.list
}

func (n *Normalizer) workoutDay(day llmjson.Value, i int, goal plan.Goal, w *warnings) plan.WorkoutDay {
	path := fmt.Sprintf("days[%d]", i)
	out := plan.WorkoutDay{
		DayIndex: renumber(day.Field("day_index", "day", "index"), path+".day_index", i+1, w),
	}
	out.Name = TextField{Path: path + ".name", Default: fmt.Sprintf("Day %d", i+1)}.Coerce(day.Field("name", "title", "label"), w)

	var targets [][]plan.Muscle
	for j, item := range day.Field("exercises", "items", "movements").List() {
		ex := n.exercise(item, fmt.Sprintf("%s.exercises[%d]", path, j), j, goal, w)
		targets = append(targets, ex.TargetMuscles)
		out.Exercises = append(out.Exercises, ex)
	}

	out.Focus = n.muscleList(day.Field("focus", "muscle_groups", "muscles"), path+".focus", w)
	if len(out.Focus) == 0 {
		out.Focus = topMuscles(targets, n.rules.Defaults.FocusTopN)
		if len(out.Focus) == 0 {
			out.Focus = []plan.Muscle{plan.MuscleFullBody}
		}
		w.add("%s.focus: empty -> %s", path, joinMuscles(out.Focus))
	}

	out.TotalSets = out.SumSets()
	if got, found, _ := day.Field("total_sets").Number(); found && int(got) != out.TotalSets {
		w.add("%s.total_sets: %s -> %d", path, formatNumber(got), out.TotalSets)
	}
	return out
}

func (n *Normalizer) exercise(item llmjson.Value, path string, j int, goal plan.Goal, w *warnings) plan.Exercise {
	r := n.rules
	out := plan.Exercise{
		Order: renumber(item.Field("order", "index", "position"), path+".order", j+1, w),
	}
	out.Name = TextField{Path: path + ".name", Default: fmt.Sprintf("Exercise %d", j+1)}.Coerce(item.Field("name", "exercise", "title"), w)

	out.TargetMuscles = n.muscleList(item.Field("target_muscles", "muscles", "muscle_groups", "targets"), path+".target_muscles", w)
	if len(out.TargetMuscles) == 0 {
		inferred, ok := n.exercises.lookup(out.Name)
		if !ok {
			inferred = []plan.Muscle{plan.MuscleFullBody}
		}
		out.TargetMuscles = slices.Clone(inferred)
		w.add("%s.target_muscles: empty -> %s", path, joinMuscles(out.TargetMuscles))
	}

	hint, _, found := n.categories.match(out.Name)
	if !found && slices.Contains(out.TargetMuscles, plan.MuscleCore) {
		hint = plan.CategoryCore
	}
	out.Category = EnumField[plan.Category]{
		Path:    path + ".category",
		Hint:    hint,
		Default: r.Defaults.Category,
		match:   n.categories,
	}.Coerce(item.Field("category", "type", "kind"), w)

	sets, _ := NumberField{Path: path + ".sets", Bound: r.Bounds.Sets}.Coerce(item.Field("sets"), w)
	out.Sets = int(sets)

	out.Reps = RepsField{Path: path + ".reps", Category: out.Category, Goal: goal, Rules: r}.Coerce(item.Field("reps", "repetitions", "rep_range"), w)

	rest, _ := NumberField{Path: path + ".rest_seconds", Bound: r.Bounds.RestSeconds}.Coerce(item.Field("rest_seconds", "rest", "rest_sec"), w)
	out.RestSeconds = int(rest)

	out.Tempo = TempoField{Path: path + ".tempo", Default: r.Defaults.Tempo}.Coerce(item.Field("tempo"), w)

	if kg, ok := (NumberField{Path: path + ".weight_kg", Bound: r.Bounds.WeightKg, Optional: true}).Coerce(item.Field("weight_kg", "weight", "load_kg"), w); ok {
		out.WeightKg = &kg
	}

	out.Notes = TextField{Path: path + ".notes"}.Coerce(item.Field("notes", "note", "cues"), w)
	return out
}

// muscleList maps each entry onto the muscle enum, dropping duplicates and
// entries that match nothing.
func (n *Normalizer) muscleList(v llmjson.Value, path string, w *warnings) []plan.Muscle {
	var out []plan.Muscle
	for _, s := range v.Strings() {
		m, _, ok := n.muscles.match(s)
		if !ok {
			w.add("%s: dropped unknown muscle %q", path, s)
			continue
		}
		if fold(s) != fold(string(m)) {
			w.add("%s: %q -> %s", path, s, m)
		}
		if !slices.Contains(out, m) {
			out = append(out, m)
		}
	}
	return out
}

func joinMuscles(ms []plan.Muscle) string {
	parts := make([]string, len(ms))
	for i, m := range ms {
		parts[i] = string(m)
	}
	return strings.Join(parts, ", ")
}
