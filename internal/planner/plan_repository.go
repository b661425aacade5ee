package planner

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ai-fitness-coach/internal/plan"
	"ai-fitness-coach/internal/planner/plan_db"

	"github.com/google/uuid"
)

// ErrPlanNotFound is returned when no stored plan matches.
var ErrPlanNotFound = errors.New("plan not found")

// Record is a stored, accepted plan.
type Record struct {
	ID        string          `json:"id"`
	RequestID string          `json:"request_id"`
	UserID    string          `json:"user_id,omitempty"`
	Kind      plan.Kind       `json:"kind"`
	PlanData  json.RawMessage `json:"plan"`
	Warnings  []string        `json:"warnings"`
	Attempts  int             `json:"attempts"`
	CreatedAt time.Time       `json:"created_at"`
}

// PlanRepository is a database-backed repository for accepted plans.
type PlanRepository struct {
	queries *plan_db.Queries
	db      *sql.DB
}

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(d *sql.DB) *PlanRepository {
	return &PlanRepository{
		queries: plan_db.New(d),
		db:      d,
	}
}

// Save stores rec and returns its id. Saving is idempotent on RequestID: if
// a plan was already stored for the request, its id is returned and rec is
// discarded.
func (r *PlanRepository) Save(ctx context.Context, rec Record) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.RequestID == "" {
		rec.RequestID = rec.ID
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	warnings, err := json.Marshal(nonNil(rec.Warnings))
	if err != nil {
		return "", fmt.Errorf("failed to marshal plan warnings: %w", err)
	}

	n, err := r.queries.InsertPlan(ctx, plan_db.InsertPlanParams{
		ID:        rec.ID,
		RequestID: rec.RequestID,
		UserID:    rec.UserID,
		Kind:      string(rec.Kind),
		PlanData:  rec.PlanData,
		Warnings:  string(warnings),
		Attempts:  int64(rec.Attempts),
		CreatedAt: rec.CreatedAt.UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to insert plan: %w", err)
	}
	if n > 0 {
		return rec.ID, nil
	}

	existing, err := r.GetByRequestID(ctx, rec.RequestID)
	if err != nil {
		return "", err
	}
	return existing.ID, nil
}

// Get retrieves a plan by id.
func (r *PlanRepository) Get(ctx context.Context, id string) (*Record, error) {
	row, err := r.queries.GetPlan(ctx, id)
	if err != nil {
		return nil, notFound(err, "failed to get plan %s", id)
	}
	return toRecord(row)
}

// GetByRequestID retrieves the plan stored for a request.
func (r *PlanRepository) GetByRequestID(ctx context.Context, requestID string) (*Record, error) {
	row, err := r.queries.GetPlanByRequestID(ctx, requestID)
	if err != nil {
		return nil, notFound(err, "failed to get plan for request %s", requestID)
	}
	return toRecord(row)
}

// ListRecentByUserID retrieves the N most recent plans for a given user.
func (r *PlanRepository) ListRecentByUserID(ctx context.Context, userID string, limit int) ([]Record, error) {
	rows, err := r.queries.ListRecentPlansByUserID(ctx, plan_db.ListRecentPlansByUserIDParams{
		UserID: userID,
		Limit:  int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list recent plans for user %s: %w", userID, err)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, err := toRecord(row)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, nil
}

func toRecord(row plan_db.Plan) (*Record, error) {
	var warnings []string
	if err := json.Unmarshal([]byte(row.Warnings), &warnings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal warnings of plan %s: %w", row.ID, err)
	}
	return &Record{
		ID:        row.ID,
		RequestID: row.RequestID,
		UserID:    row.UserID,
		Kind:      plan.Kind(row.Kind),
		PlanData:  row.PlanData,
		Warnings:  warnings,
		Attempts:  int(row.Attempts),
		CreatedAt: row.CreatedAt,
	}, nil
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrPlanNotFound
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
