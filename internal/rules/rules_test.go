package rules

import (
	"os"
	"path/filepath"
	"testing"

	"ai-fitness-coach/internal/plan"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	r := Default()

	assert.Contains(t, r.Goals[plan.GoalCut], "שריפת שומן")
	assert.Contains(t, r.Goals[plan.GoalMass], "gain muscle")
	assert.Equal(t, "8-12", r.DefaultReps.Goals[plan.GoalMass])
	assert.Equal(t, "15-20", r.DefaultReps.Categories[plan.CategoryCore])
	assert.Equal(t, 10, r.Validation.MaxItems)
	assert.Equal(t, 7.0, r.Bounds.DaysPerWeek.Max)
	assert.True(t, r.AutoFixes("ordering"))
	assert.False(t, r.AutoFixes("goal_reps"))
	assert.Equal(t, RepRange{Min: 6, Max: 15}, r.RepRangeFor(plan.GoalMass))
}

func TestDefault_ReturnsIndependentCopies(t *testing.T) {
	a := Default()
	a.Goals[plan.GoalCut] = nil
	a.Validation.MaxItems = 99

	b := Default()
	assert.NotEmpty(t, b.Goals[plan.GoalCut])
	assert.Equal(t, 10, b.Validation.MaxItems)
}

func TestLoad(t *testing.T) {
	t.Run("EmptyPathUsesDefaults", func(t *testing.T) {
		r, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default().Validation, r.Validation)
	})

	t.Run("OverrideMergesOntoDefaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		override := "validation:\n  min_items: 1\n  max_items: 8\n  min_meals: 3\n  max_meals: 6\n  calorie_tolerance_pct: 10\n" +
			"goals:\n  cut: [cut, diet]\n"
		require.NoError(t, os.WriteFile(path, []byte(override), 0o644))

		r, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 8, r.Validation.MaxItems)
		assert.Equal(t, 10.0, r.Validation.CalorieTolerancePct)
		assert.Equal(t, []string{"cut", "diet"}, r.Goals[plan.GoalCut])
		// Untouched entries keep their defaults.
		assert.Contains(t, r.Goals[plan.GoalMass], "bulk")
		assert.Equal(t, 2, r.Validation.RepDriftTolerance)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("UnknownEnumKey", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		require.NoError(t, os.WriteFile(path, []byte("goals:\n  recomp: [recomp]\n"), 0o644))

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown goal "recomp"`)
	})

	t.Run("InvalidLimits", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		require.NoError(t, os.WriteFile(path, []byte("validation:\n  min_items: 12\n"), 0o644))

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid item limits")
	})
}
