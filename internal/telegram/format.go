package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"ai-fitness-coach/internal/metrics"
	"ai-fitness-coach/internal/pipeline"
	"ai-fitness-coach/internal/plan"
)

// maxMessageRunes is Telegram's limit on message text.
const maxMessageRunes = 4096

const maxFailureIssues = 5

const helpText = "*Commands*\n" +
	"/workout <goal> [days] - e.g. `/workout build muscle 4`\n" +
	"/nutrition <goal> [calories] - e.g. `/nutrition cut 2000`\n" +
	"/metrics - usage report (admin)"

type command struct {
	name    string
	request plan.RequestContext
}

// parseCommand reads "/workout <goal> [days]", "/nutrition <goal>
// [calories]" and the plain commands. Text that is not a command maps to
// help.
func parseCommand(text string) (command, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return command{name: "help"}, nil
	}
	name, _, _ := strings.Cut(strings.TrimPrefix(fields[0], "/"), "@")
	args := fields[1:]

	switch name {
	case "start", "help", "metrics":
		return command{name: name}, nil
	case "workout":
		goal, days, err := goalAndNumber(args)
		if err != nil {
			return command{}, err
		}
		if days < 0 || days > 7 {
			return command{}, fmt.Errorf("days must be between 1 and 7, got %d", days)
		}
		return command{name: name, request: plan.RequestContext{Goal: goal, Frequency: days}}, nil
	case "nutrition":
		goal, calories, err := goalAndNumber(args)
		if err != nil {
			return command{}, err
		}
		if calories < 0 {
			return command{}, fmt.Errorf("calories must be positive, got %d", calories)
		}
		return command{name: name, request: plan.RequestContext{Goal: goal, DailyCalories: calories}}, nil
	default:
		return command{}, fmt.Errorf("unknown command /%s", name)
	}
}

// goalAndNumber splits args into the free-text goal and an optional
// trailing integer.
func goalAndNumber(args []string) (string, int, error) {
	n := 0
	if len(args) > 0 {
		if v, err := strconv.Atoi(args[len(args)-1]); err == nil {
			n = v
			args = args[:len(args)-1]
		}
	}
	if len(args) == 0 {
		return "", 0, errors.New("tell me your goal first")
	}
	return strings.Join(args, " "), n, nil
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// escapeMarkdown escapes model and user text for Telegram's legacy
// Markdown mode.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func formatWorkout(p plan.WorkoutPlan, warnings []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🏋️ *%s*\n_Goal: %s, %d days/week_\n", escapeMarkdown(p.Title), p.Goal, p.DaysPerWeek)

	for _, d := range p.Days {
		fmt.Fprintf(&sb, "\n*Day %d: %s* (%d sets)\n", d.DayIndex, escapeMarkdown(d.Name), d.TotalSets)
		for _, ex := range d.Exercises {
			fmt.Fprintf(&sb, "%d. %s: %d x %s, rest %ds", ex.Order, escapeMarkdown(ex.Name), ex.Sets, ex.Reps, ex.RestSeconds)
			if ex.WeightKg != nil {
				fmt.Fprintf(&sb, ", %s kg", strconv.FormatFloat(*ex.WeightKg, 'f', -1, 64))
			}
			sb.WriteString("\n")
		}
	}
	writeWarnings(&sb, warnings)
	return clip(sb.String())
}

func formatNutrition(p plan.NutritionPlan, warnings []string) string {
	var sb strings.Builder
	t := p.DailyTargets
	fmt.Fprintf(&sb, "🥗 *%s*\n_Goal: %s, %d kcal (P %g / C %g / F %g)_\n",
		escapeMarkdown(p.Title), p.Goal, t.Calories, t.ProteinG, t.CarbsG, t.FatG)

	for _, d := range p.Days {
		fmt.Fprintf(&sb, "\n*Day %d* (%d kcal)\n", d.DayIndex, d.TotalCalories)
		for _, m := range d.Meals {
			fmt.Fprintf(&sb, "• *%s*: %s (%d kcal)\n", m.MealType, escapeMarkdown(m.Name), m.Calories)
			if len(m.Foods) > 0 {
				fmt.Fprintf(&sb, "  %s\n", escapeMarkdown(strings.Join(m.Foods, ", ")))
			}
		}
	}
	writeWarnings(&sb, warnings)
	return clip(sb.String())
}

func writeWarnings(sb *strings.Builder, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n_Adjusted %d value(s) to fit the rules._\n", len(warnings))
}

// formatFailure renders a pipeline failure without any model output.
func formatFailure(err error) string {
	f, ok := pipeline.AsFailure(err)
	if !ok {
		return "❌ *Error generating plan.* Please try again later."
	}

	var sb strings.Builder
	switch {
	case f.TimedOut():
		sb.WriteString("⏱ *The coach took too long to answer.* Please try again.")
		return sb.String()
	case f.Kind == pipeline.GenerationError:
		sb.WriteString("❌ *The coach is unavailable right now.* Please try again later.")
		return sb.String()
	case f.Kind == pipeline.ExtractionError:
		fmt.Fprintf(&sb, "❌ *Could not read a plan from the answer* (%d attempts).", len(f.Attempts))
	default:
		fmt.Fprintf(&sb, "❌ *The plan broke some rules* (%d attempts):", len(f.Attempts))
	}

	for _, is := range f.Payload(maxFailureIssues).Issues {
		fmt.Fprintf(&sb, "\n• `%s`: %s", is.Path, escapeMarkdown(is.Message))
	}
	return sb.String()
}

func formatReport(usage []metrics.DailyUsage, outcomes []metrics.OutcomeCount, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		fmt.Fprintf(&sb, "• *%s*: %d tokens (%d execs)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution)
	}

	if len(outcomes) > 0 {
		sb.WriteString("\n🎯 *Attempt Outcomes*\n")
		for _, o := range outcomes {
			fmt.Fprintf(&sb, "• %s / %s: %d\n", escapeMarkdown(o.AgentName), escapeMarkdown(o.Outcome), o.Count)
		}
	}

	sb.WriteString("\n🧠 *System Health*\n")
	fmt.Fprintf(&sb, "• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB)
	fmt.Fprintf(&sb, "• Goroutines: %d\n", health.Goroutines)
	fmt.Fprintf(&sb, "• Uptime: %s\n", health.Uptime)
	fmt.Fprintf(&sb, "• Disk Data: %s\n", health.DataDiskSize)
	return sb.String()
}

func clip(s string) string {
	r := []rune(s)
	if len(r) <= maxMessageRunes {
		return s
	}
	return string(r[:maxMessageRunes-1]) + "…"
}
