package main

import (
	"fmt"
	"io"
	"os"

	"ai-fitness-coach/internal/app"
	"ai-fitness-coach/internal/config"
	"ai-fitness-coach/internal/pipeline"
	"ai-fitness-coach/internal/plan"
	"ai-fitness-coach/internal/planner"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rulesPath string

var processCmd = &cobra.Command{
	Use:   "process [workout|nutrition] [file]",
	Short: "Post-process a saved model answer without calling the model",
	Long: `Runs extraction, repair, normalization and validation over a saved raw model
answer and prints the accepted plan or the failure. Use "-" to read stdin.
No API key or database is needed.`,
	Args: cobra.ExactArgs(2),
	RunE: runProcess,
}

func init() {
	addRequestFlags(processCmd)
	processCmd.Flags().StringVar(&rulesPath, "rules", os.Getenv("COACH_RULES_PATH"), "Rules file overriding the embedded defaults")
}

// processed is the printed result of an accepted answer.
type processed[P any] struct {
	OK       bool     `json:"ok"`
	Plan     P        `json:"plan"`
	Warnings []string `json:"warnings"`
	Repairs  []string `json:"repairs"`
}

func runProcess(cmd *cobra.Command, args []string) error {
	kind := plan.Kind(args[0])
	if kind != plan.KindWorkout && kind != plan.KindNutrition {
		return fmt.Errorf("unknown plan kind %q", args[0])
	}

	raw, err := readInput(cmd.InOrStdin(), args[1])
	if err != nil {
		return err
	}

	r, err := app.LoadRules(rulesPath)
	if err != nil {
		return err
	}
	validationMode := mode
	if validationMode == "" {
		validationMode = os.Getenv("VALIDATION_MODE")
	}
	opts, err := app.PipelineOptions(&config.Config{ValidationMode: validationMode, Debug: verbose})
	if err != nil {
		return err
	}

	p := planner.NewPlanner(nil, nil, r, opts, logger)
	rc := requestContext()
	out := cmd.OutOrStdout()

	if kind == plan.KindWorkout {
		res, err := p.ProcessWorkout(raw, rc)
		if err != nil {
			return reportFailure(cmd.ErrOrStderr(), err)
		}
		return printJSON(out, newProcessed(res))
	}
	res, err := p.ProcessNutrition(raw, rc)
	if err != nil {
		return reportFailure(cmd.ErrOrStderr(), err)
	}
	return printJSON(out, newProcessed(res))
}

func newProcessed[P any](res *pipeline.Result[P]) processed[P] {
	out := processed[P]{OK: true, Plan: res.Plan, Warnings: res.Warnings, Repairs: res.Repairs}
	if out.Warnings == nil {
		out.Warnings = []string{}
	}
	if out.Repairs == nil {
		out.Repairs = []string{}
	}
	return out
}

func readInput(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	logger.Debug("read model answer", zap.String("path", path), zap.Int("bytes", len(data)))
	return string(data), nil
}
