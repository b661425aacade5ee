package main

import (
	"fmt"
	"io"

	"ai-fitness-coach/internal/pipeline"
	"ai-fitness-coach/internal/plan"

	"github.com/spf13/cobra"
)

const maxIssues = 5

var (
	goal      string
	days      int
	calories  int
	notes     string
	userID    string
	requestID string
)

var generateCmd = &cobra.Command{
	Use:       "generate [workout|nutrition]",
	Short:     "Generate a plan and store it",
	Long:      `Generates a plan with the configured model, prints it as JSON and stores it in the database.`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{string(plan.KindWorkout), string(plan.KindNutrition)},
	RunE:      runGenerate,
}

func init() {
	addRequestFlags(generateCmd)
	generateCmd.Flags().StringVar(&userID, "user", "", "User the plan belongs to")
	generateCmd.Flags().StringVar(&requestID, "request-id", "", "Idempotency key; a repeated id returns the stored plan")
}

// addRequestFlags registers the flags that describe what the user asked for.
func addRequestFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&goal, "goal", "g", "", "Goal in free text, e.g. \"build muscle\"")
	cmd.Flags().IntVarP(&days, "days", "d", 0, "Training days per week (workout)")
	cmd.Flags().IntVarP(&calories, "calories", "c", 0, "Daily calorie target (nutrition)")
	cmd.Flags().StringVar(&notes, "notes", "", "Extra notes for the coach")
}

func requestContext() plan.RequestContext {
	return plan.RequestContext{
		Goal:          goal,
		Frequency:     days,
		DailyCalories: calories,
		Notes:         notes,
		UserID:        userID,
		RequestID:     requestID,
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, _, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	rc := requestContext()
	out := cmd.OutOrStdout()

	switch plan.Kind(args[0]) {
	case plan.KindWorkout:
		res, _, err := a.Planner().GenerateWorkout(ctx, rc)
		if err != nil {
			return reportFailure(cmd.ErrOrStderr(), err)
		}
		return printJSON(out, res)
	default:
		res, _, err := a.Planner().GenerateNutrition(ctx, rc)
		if err != nil {
			return reportFailure(cmd.ErrOrStderr(), err)
		}
		return printJSON(out, res)
	}
}

// reportFailure prints the failure payload, including the output sample
// when verbose, and returns err.
func reportFailure(w io.Writer, err error) error {
	f, ok := pipeline.AsFailure(err)
	if !ok {
		return err
	}
	payload := f.Payload(maxIssues)
	if !verbose {
		payload.Sample = ""
	}
	if perr := printJSON(w, payload); perr != nil {
		return fmt.Errorf("failed to print failure: %w", perr)
	}
	return err
}
