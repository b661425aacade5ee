package planner

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"text/template"

	"ai-fitness-coach/internal/llm"
	"ai-fitness-coach/internal/normalize"
	"ai-fitness-coach/internal/pipeline"
	"ai-fitness-coach/internal/plan"
	"ai-fitness-coach/internal/rules"
	"ai-fitness-coach/internal/shared"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	//go:embed system_prompt.md
	systemPrompt string

	//go:embed workout_prompt.md
	workoutPromptText string

	//go:embed nutrition_prompt.md
	nutritionPromptText string

	workoutTemplate   = template.Must(template.New("workout").Parse(workoutPromptText))
	nutritionTemplate = template.Must(template.New("nutrition").Parse(nutritionPromptText))
)

// ErrRequestIDConflict is returned when a request id already belongs to a
// plan of another kind.
var ErrRequestIDConflict = errors.New("request id conflict")

// Store persists accepted plans.
type Store interface {
	Save(ctx context.Context, rec Record) (string, error)
	GetByRequestID(ctx context.Context, requestID string) (*Record, error)
}

// Generated is an accepted plan as returned to callers.
type Generated[P any] struct {
	ID        string   `json:"id,omitempty"`
	RequestID string   `json:"request_id"`
	Plan      P        `json:"plan"`
	Warnings  []string `json:"warnings"`
	Attempts  int      `json:"attempts"`
	// Replayed is set when the plan was stored by an earlier call with the
	// same request id and no generation took place.
	Replayed bool `json:"replayed,omitempty"`
}

// Planner generates, checks and stores workout and nutrition plans.
type Planner struct {
	rules      *rules.Rules
	normalizer *normalize.Normalizer
	workouts   *pipeline.Pipeline[plan.WorkoutPlan]
	nutrition  *pipeline.Pipeline[plan.NutritionPlan]
	store      Store
	logger     *zap.Logger
}

// NewPlanner creates a new Planner. store may be nil, in which case
// accepted plans are returned but not persisted.
func NewPlanner(textGen llm.TextGenerator, store Store, r *rules.Rules, opts pipeline.Options, logger *zap.Logger, observers ...pipeline.Observer) *Planner {
	return &Planner{
		rules:      r,
		normalizer: normalize.New(r),
		workouts:   pipeline.New(pipeline.Workout(r), textGen, opts, logger, observers...),
		nutrition:  pipeline.New(pipeline.Nutrition(r), textGen, opts, logger, observers...),
		store:      store,
		logger:     logger,
	}
}

// GenerateWorkout creates a workout plan for rc.
func (p *Planner) GenerateWorkout(ctx context.Context, rc plan.RequestContext) (*Generated[plan.WorkoutPlan], []shared.AgentMeta, error) {
	return generate(ctx, p, p.workouts, plan.KindWorkout, workoutTemplate, rc)
}

// GenerateNutrition creates a nutrition plan for rc.
func (p *Planner) GenerateNutrition(ctx context.Context, rc plan.RequestContext) (*Generated[plan.NutritionPlan], []shared.AgentMeta, error) {
	return generate(ctx, p, p.nutrition, plan.KindNutrition, nutritionTemplate, rc)
}

// ProcessWorkout post-processes already generated workout output.
func (p *Planner) ProcessWorkout(raw string, rc plan.RequestContext) (*pipeline.Result[plan.WorkoutPlan], error) {
	return p.workouts.Process(raw, rc)
}

// ProcessNutrition post-processes already generated nutrition output.
func (p *Planner) ProcessNutrition(raw string, rc plan.RequestContext) (*pipeline.Result[plan.NutritionPlan], error) {
	return p.nutrition.Process(raw, rc)
}

func generate[P any](
	ctx context.Context,
	p *Planner,
	pl *pipeline.Pipeline[P],
	kind plan.Kind,
	tmpl *template.Template,
	rc plan.RequestContext,
) (*Generated[P], []shared.AgentMeta, error) {
	if rc.RequestID == "" {
		rc.RequestID = uuid.NewString()
	}

	if prev, err := replay[P](ctx, p.store, kind, rc.RequestID); err != nil || prev != nil {
		return prev, nil, err
	}

	prompt, err := p.buildPrompt(tmpl, rc)
	if err != nil {
		return nil, nil, err
	}

	res, err := pl.Run(ctx, prompt, rc)
	if err != nil {
		var metas []shared.AgentMeta
		if f, ok := pipeline.AsFailure(err); ok {
			metas = agentMetas(kind, f.Attempts)
		}
		return nil, metas, fmt.Errorf("failed to generate %s plan: %w", kind, err)
	}
	metas := agentMetas(kind, res.Attempts)

	out := &Generated[P]{
		RequestID: rc.RequestID,
		Plan:      res.Plan,
		Warnings:  nonNil(res.Warnings),
		Attempts:  len(res.Attempts),
	}
	if p.store == nil {
		return out, metas, nil
	}

	data, err := json.Marshal(res.Plan)
	if err != nil {
		return nil, metas, fmt.Errorf("failed to marshal %s plan: %w", kind, err)
	}
	rec := Record{
		ID:        uuid.NewString(),
		RequestID: rc.RequestID,
		UserID:    rc.UserID,
		Kind:      kind,
		PlanData:  data,
		Warnings:  out.Warnings,
		Attempts:  out.Attempts,
	}
	out.ID, err = p.store.Save(ctx, rec)
	if err != nil {
		return nil, metas, fmt.Errorf("failed to save %s plan: %w", kind, err)
	}
	if out.ID != rec.ID {
		// A concurrent request with the same id was stored first; its plan wins.
		prev, err := replay[P](ctx, p.store, kind, rc.RequestID)
		if err != nil {
			return nil, metas, err
		}
		if prev == nil {
			return nil, metas, fmt.Errorf("failed to load %s plan stored for request %s", kind, rc.RequestID)
		}
		p.logger.Info("plan already saved by a concurrent request", zap.String("kind", string(kind)), zap.String("id", prev.ID), zap.String("request_id", rc.RequestID))
		return prev, metas, nil
	}

	p.logger.Info("plan saved", zap.String("kind", string(kind)), zap.String("id", out.ID), zap.String("request_id", rc.RequestID))
	return out, metas, nil
}

// replay returns the plan already stored for requestID, or nil.
func replay[P any](ctx context.Context, store Store, kind plan.Kind, requestID string) (*Generated[P], error) {
	if store == nil {
		return nil, nil
	}
	rec, err := store.GetByRequestID(ctx, requestID)
	if errors.Is(err, ErrPlanNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if rec.Kind != kind {
		return nil, fmt.Errorf("%w: request id %s was already used for a %s plan", ErrRequestIDConflict, requestID, rec.Kind)
	}

	var p P
	if err := json.Unmarshal(rec.PlanData, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stored plan %s: %w", rec.ID, err)
	}
	return &Generated[P]{
		ID:        rec.ID,
		RequestID: rec.RequestID,
		Plan:      p,
		Warnings:  nonNil(rec.Warnings),
		Attempts:  rec.Attempts,
		Replayed:  true,
	}, nil
}

func agentMetas(kind plan.Kind, attempts []pipeline.Attempt) []shared.AgentMeta {
	metas := make([]shared.AgentMeta, 0, len(attempts))
	for _, a := range attempts {
		metas = append(metas, shared.AgentMeta{
			AgentName: kind.AgentName(),
			Usage:     a.Usage,
			Latency:   a.Latency,
		})
	}
	return metas
}

type promptData struct {
	Request     plan.RequestContext
	Rules       *rules.Rules
	Goal        plan.Goal
	Goals       string
	Categories  string
	Muscles     string
	MealTypes   string
	RepRange    rules.RepRange
	Calories    int
	CaloriesMin int
	CaloriesMax int
}

func (p *Planner) buildPrompt(tmpl *template.Template, rc plan.RequestContext) (pipeline.Prompt, error) {
	goal, ok := p.normalizer.GoalOf(rc.Goal)
	if !ok {
		goal = p.rules.Defaults.Goal
	}
	if rc.Goal == "" {
		rc.Goal = string(goal)
	}

	calories := rc.DailyCalories
	if calories <= 0 {
		calories = int(p.rules.Bounds.DailyCalories.Default)
	}
	margin := int(math.Round(float64(calories) * p.rules.Validation.CalorieTolerancePct / 100))

	var buf bytes.Buffer
	err := tmpl.Execute(&buf, promptData{
		Request:     rc,
		Rules:       p.rules,
		Goal:        goal,
		Goals:       joinEnum(plan.Goals),
		Categories:  joinEnum(plan.Categories),
		Muscles:     joinEnum(plan.Muscles),
		MealTypes:   joinEnum(plan.MealTypes),
		RepRange:    p.rules.RepRangeFor(goal),
		Calories:    calories,
		CaloriesMin: calories - margin,
		CaloriesMax: calories + margin,
	})
	if err != nil {
		return pipeline.Prompt{}, fmt.Errorf("failed to render %s prompt: %w", tmpl.Name(), err)
	}
	return pipeline.Prompt{System: systemPrompt, User: buf.String()}, nil
}

func joinEnum[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
