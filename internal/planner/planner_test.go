package planner

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"ai-fitness-coach/internal/database"
	"ai-fitness-coach/internal/llm"
	"ai-fitness-coach/internal/pipeline"
	"ai-fitness-coach/internal/plan"
	"ai-fitness-coach/internal/rules"
	"ai-fitness-coach/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockTextGenerator struct {
	mu        sync.Mutex
	responses []string
	requests  []llm.Request
}

func (m *MockTextGenerator) GenerateContent(_ context.Context, req llm.Request) (llm.ContentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if len(m.requests) > len(m.responses) {
		return llm.ContentResponse{}, fmt.Errorf("unexpected call %d", len(m.requests))
	}
	return llm.ContentResponse{
		Content: m.responses[len(m.requests)-1],
		Usage:   shared.TokenUsage{PromptTokens: 300, CompletionTokens: 200, TotalTokens: 500, Model: "mock"},
	}, nil
}

func workoutJSON(days, exercises int) string {
	var dayParts []string
	for d := 1; d <= days; d++ {
		var items []string
		for j := 1; j <= exercises; j++ {
			items = append(items, fmt.Sprintf(`{"order":%d,"name":"Bench Press","category":"compound","target_muscles":["chest"],"sets":3,"reps":"8-12","rest_seconds":90,"tempo":"2-0-2"}`, j))
		}
		dayParts = append(dayParts, fmt.Sprintf(`{"day_index":%d,"name":"Day %d","focus":["chest"],"exercises":[%s]}`, d, d, strings.Join(items, ",")))
	}
	return fmt.Sprintf(`{"title":"Hypertrophy","goal":"mass","days":[%s]}`, strings.Join(dayParts, ","))
}

const nutritionJSON = `{"title":"Cut","goal":"cut","daily_targets":{"calories":2000,"protein_g":150,"carbs_g":200,"fat_g":67},"days":[{"day_index":1,"meals":[
 {"order":1,"meal_type":"breakfast","name":"Oats","foods":["80 g oats"],"calories":600,"protein_g":40,"carbs_g":80,"fat_g":15},
 {"order":2,"meal_type":"lunch","name":"Chicken","foods":["chicken","rice"],"calories":700,"protein_g":60,"carbs_g":70,"fat_g":20},
 {"order":3,"meal_type":"dinner","name":"Fish","foods":["salmon"],"calories":700,"protein_g":50,"carbs_g":50,"fat_g":32}]}]}`

func newTestPlanner(t *testing.T, gen llm.TextGenerator) (*Planner, *PlanRepository) {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "coach.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewPlanRepository(db.SQL)
	return NewPlanner(gen, repo, rules.Default(), pipeline.DefaultOptions(), zap.NewNop()), repo
}

func TestGenerateWorkout(t *testing.T) {
	ctx := context.Background()
	gen := &MockTextGenerator{responses: []string{workoutJSON(3, 4)}}
	p, repo := newTestPlanner(t, gen)

	out, metas, err := p.GenerateWorkout(ctx, plan.RequestContext{Goal: "build muscle", Frequency: 3, UserID: "u1"})
	require.NoError(t, err)

	assert.NotEmpty(t, out.ID)
	assert.NotEmpty(t, out.RequestID)
	assert.Equal(t, 1, out.Attempts)
	assert.Len(t, out.Plan.Days, 3)
	require.Len(t, metas, 1)
	assert.Equal(t, "workout_planner", metas[0].AgentName)
	assert.Equal(t, 300, metas[0].Usage.PromptTokens)

	require.Len(t, gen.requests, 1)
	user := gen.requests[0].User
	assert.Contains(t, user, "- Training days per week: 3")
	assert.Contains(t, user, "keep ranges within 6-15")
	assert.Contains(t, user, "between 2 and 10 exercises")
	assert.Equal(t, systemPrompt, gen.requests[0].System)

	stored, err := repo.Get(ctx, out.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.KindWorkout, stored.Kind)
	assert.Equal(t, "u1", stored.UserID)
	assert.Contains(t, string(stored.PlanData), `"title":"Hypertrophy"`)
}

func TestGenerateWorkout_IdempotentOnRequestID(t *testing.T) {
	ctx := context.Background()
	gen := &MockTextGenerator{responses: []string{workoutJSON(2, 3)}}
	p, _ := newTestPlanner(t, gen)
	rc := plan.RequestContext{Goal: "mass", Frequency: 2, RequestID: "req-1"}

	first, _, err := p.GenerateWorkout(ctx, rc)
	require.NoError(t, err)
	second, metas, err := p.GenerateWorkout(ctx, rc)
	require.NoError(t, err)

	assert.Len(t, gen.requests, 1)
	assert.True(t, second.Replayed)
	assert.Empty(t, metas)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Plan, second.Plan)

	_, _, err = p.GenerateNutrition(ctx, rc)
	assert.ErrorIs(t, err, ErrRequestIDConflict)
	assert.ErrorContains(t, err, "already used for a workout plan")
}

// lateStore hides the first lookup, as if a concurrent request with the
// same id committed between the replay check and the save.
type lateStore struct {
	*PlanRepository
	lookups int
}

func (s *lateStore) GetByRequestID(ctx context.Context, requestID string) (*Record, error) {
	s.lookups++
	if s.lookups == 1 {
		return nil, ErrPlanNotFound
	}
	return s.PlanRepository.GetByRequestID(ctx, requestID)
}

func TestGenerateWorkout_ConcurrentSaveReturnsStoredPlan(t *testing.T) {
	ctx := context.Background()
	gen := &MockTextGenerator{responses: []string{workoutJSON(2, 3)}}
	_, repo := newTestPlanner(t, gen)

	storedID, err := repo.Save(ctx, Record{RequestID: "req-race", Kind: plan.KindWorkout, PlanData: []byte(`{"title":"Stored first"}`), Attempts: 1})
	require.NoError(t, err)

	store := &lateStore{PlanRepository: repo}
	p := NewPlanner(gen, store, rules.Default(), pipeline.DefaultOptions(), zap.NewNop())

	out, metas, err := p.GenerateWorkout(ctx, plan.RequestContext{Goal: "mass", Frequency: 2, RequestID: "req-race"})
	require.NoError(t, err)

	assert.Len(t, gen.requests, 1)
	assert.Len(t, metas, 1)
	assert.True(t, out.Replayed)
	assert.Equal(t, storedID, out.ID)
	assert.Equal(t, "Stored first", out.Plan.Title)
	assert.Empty(t, out.Plan.Days)
}

func TestGenerateWorkout_FailureIsNotStored(t *testing.T) {
	ctx := context.Background()
	gen := &MockTextGenerator{responses: []string{workoutJSON(1, 15), workoutJSON(1, 15)}}
	p, repo := newTestPlanner(t, gen)

	out, metas, err := p.GenerateWorkout(ctx, plan.RequestContext{Goal: "mass", UserID: "u2"})
	require.Error(t, err)
	assert.Nil(t, out)

	assert.True(t, pipeline.IsKind(err, pipeline.ValidationError))
	assert.Len(t, metas, 2)
	assert.Len(t, gen.requests, 2)

	recent, err := repo.ListRecentByUserID(ctx, "u2", 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestGenerateNutrition(t *testing.T) {
	ctx := context.Background()
	gen := &MockTextGenerator{responses: []string{nutritionJSON}}
	p, _ := newTestPlanner(t, gen)

	out, _, err := p.GenerateNutrition(ctx, plan.RequestContext{Goal: "lose fat", DailyCalories: 2000})
	require.NoError(t, err)

	assert.Equal(t, plan.GoalCut, out.Plan.Goal)
	assert.Equal(t, 2000, out.Plan.Days[0].TotalCalories)

	user := gen.requests[0].User
	assert.Contains(t, user, "- Daily calorie target: 2000 kcal")
	assert.Contains(t, user, "between 1700 and 2300 kcal")
	assert.Contains(t, user, `"calories": 2000`)
}

func TestGenerate_WithoutStore(t *testing.T) {
	gen := &MockTextGenerator{responses: []string{workoutJSON(1, 3)}}
	p := NewPlanner(gen, nil, rules.Default(), pipeline.DefaultOptions(), zap.NewNop())

	out, _, err := p.GenerateWorkout(context.Background(), plan.RequestContext{})
	require.NoError(t, err)
	assert.Empty(t, out.ID)
	assert.NotEmpty(t, out.RequestID)
}

func TestProcessWorkout(t *testing.T) {
	p := NewPlanner(nil, nil, rules.Default(), pipeline.DefaultOptions(), zap.NewNop())

	res, err := p.ProcessWorkout("```json\n"+workoutJSON(1, 2)+"\n```", plan.RequestContext{})
	require.NoError(t, err)
	assert.Len(t, res.Plan.Days[0].Exercises, 2)
}
