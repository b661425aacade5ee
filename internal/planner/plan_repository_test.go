package planner

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"ai-fitness-coach/internal/database"
	"ai-fitness-coach/internal/plan"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRepository(t *testing.T) *PlanRepository {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "plans.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPlanRepository(db.SQL)
}

func TestPlanRepository_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	id, err := repo.Save(ctx, Record{
		RequestID: "r1",
		UserID:    "alex",
		Kind:      plan.KindNutrition,
		PlanData:  json.RawMessage(`{"title":"Cut"}`),
		Warnings:  []string{"goal: \"lean\" -> cut"},
		Attempts:  2,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rec, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "r1", rec.RequestID)
	assert.Equal(t, plan.KindNutrition, rec.Kind)
	assert.JSONEq(t, `{"title":"Cut"}`, string(rec.PlanData))
	assert.Equal(t, []string{"goal: \"lean\" -> cut"}, rec.Warnings)
	assert.Equal(t, 2, rec.Attempts)
	assert.WithinDuration(t, time.Now(), rec.CreatedAt, time.Minute)
}

func TestPlanRepository_SaveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	first, err := repo.Save(ctx, Record{RequestID: "same", Kind: plan.KindWorkout, PlanData: json.RawMessage(`{"v":1}`)})
	require.NoError(t, err)
	second, err := repo.Save(ctx, Record{RequestID: "same", Kind: plan.KindWorkout, PlanData: json.RawMessage(`{"v":2}`)})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	rec, err := repo.GetByRequestID(ctx, "same")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(rec.PlanData))
	assert.Empty(t, rec.Warnings)
}

func TestPlanRepository_NotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrPlanNotFound)
	_, err = repo.GetByRequestID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestPlanRepository_ListRecentByUserID(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	base := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	for i, req := range []string{"a", "b", "c"} {
		_, err := repo.Save(ctx, Record{
			RequestID: req, UserID: "sam", Kind: plan.KindWorkout,
			PlanData: json.RawMessage(`{}`), CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}
	_, err := repo.Save(ctx, Record{RequestID: "other", UserID: "kim", Kind: plan.KindWorkout, PlanData: json.RawMessage(`{}`)})
	require.NoError(t, err)

	recent, err := repo.ListRecentByUserID(ctx, "sam", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].RequestID)
	assert.Equal(t, "b", recent[1].RequestID)
}
