package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rawWorkout = "Sure! Here is the plan:\n```json\n" + `{
  "title": "Full body",
  "goal": "hypertrophy",
  "days": [{
    "day_index": 1, "name": "Day A", "focus": ["chest", "back"],
    "exercises": [
      {"order": 1, "name": "Bench Press", "category": "compound", "target_muscles": ["chest"], "sets": "3", "reps": "8-12", "rest_seconds": 90, "tempo": "2-0-2",},
      {"order": 2, "name": "Row", "category": "compound", "target_muscles": ["back"], "sets": 3, "reps": "8-12", "rest_seconds": 90, "tempo": "2-0-2"}
    ]
  }]
}` + "\n```\nGood luck!"

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "answer.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestProcessCommand_Accepts(t *testing.T) {
	stdout, _, err := execute(t, "process", "workout", writeFile(t, rawWorkout), "--goal", "build muscle")
	require.NoError(t, err)

	var out struct {
		OK   bool `json:"ok"`
		Plan struct {
			Goal        string `json:"goal"`
			DaysPerWeek int    `json:"days_per_week"`
		} `json:"plan"`
		Repairs []string `json:"repairs"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &out), stdout)
	assert.True(t, out.OK)
	assert.Equal(t, "mass", out.Plan.Goal)
	assert.Equal(t, 1, out.Plan.DaysPerWeek)
	assert.NotEmpty(t, out.Repairs)
}

func TestProcessCommand_ReportsFailure(t *testing.T) {
	_, stderr, err := execute(t, "process", "nutrition", writeFile(t, "I'm sorry, I can't help with that."), "--goal", "cut")
	require.Error(t, err)
	assert.Contains(t, stderr, `"error": "ExtractionError"`)
}

func TestProcessCommand_UnknownKind(t *testing.T) {
	_, _, err := execute(t, "process", "yoga", writeFile(t, "{}"))
	assert.ErrorContains(t, err, "unknown plan kind")
}
