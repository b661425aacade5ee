package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ai-fitness-coach/internal/metrics/metrics_db"
	"ai-fitness-coach/internal/shared"
)

// ExecutionMetric records metadata for a single generation attempt.
type ExecutionMetric struct {
	AgentName        string
	Model            string
	PromptTokens     int
	CompletionTokens int
	LatencyMS        int64
	Outcome          string
	Timestamp        time.Time
}

// Store handles persistence of metrics to SQLite.
type Store struct {
	queries *metricsdb.Queries
	db      *sql.DB
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{
		queries: metricsdb.New(db),
		db:      db,
	}
}

// Record saves a metric to the database.
func (s *Store) Record(m ExecutionMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	return s.queries.InsertExecutionMetric(context.Background(), metricsdb.InsertExecutionMetricParams{
		AgentName:        m.AgentName,
		Model:            m.Model,
		PromptTokens:     int64(m.PromptTokens),
		CompletionTokens: int64(m.CompletionTokens),
		LatencyMs:        m.LatencyMS,
		Outcome:          m.Outcome,
		Timestamp:        ts.UTC(),
	})
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DailyUsage represents token totals for a single day.
type DailyUsage struct {
	Date            string
	TotalPrompt     int
	TotalCompletion int
	TotalExecution  int
}

// GetDailyUsage retrieves usage for the last N days, newest first.
func (s *Store) GetDailyUsage(days int) ([]DailyUsage, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.queries.GetDailyUsage(context.Background(), since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}

	results := make([]DailyUsage, 0, len(rows))
	for _, r := range rows {
		results = append(results, DailyUsage{
			Date:            r.Day,
			TotalPrompt:     int(r.PromptTokens),
			TotalCompletion: int(r.CompletionTokens),
			TotalExecution:  int(r.Executions),
		})
	}
	return results, nil
}

// OutcomeCount is the number of attempts per agent and outcome.
type OutcomeCount struct {
	AgentName string
	Outcome   string
	Count     int
}

// GetOutcomeCounts retrieves attempt outcomes for the last N days.
func (s *Store) GetOutcomeCounts(days int) ([]OutcomeCount, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.queries.GetOutcomeCounts(context.Background(), since)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcome counts: %w", err)
	}

	results := make([]OutcomeCount, 0, len(rows))
	for _, r := range rows {
		results = append(results, OutcomeCount{AgentName: r.AgentName, Outcome: r.Outcome, Count: int(r.Executions)})
	}
	return results, nil
}

// Cleanup removes records older than the specified number of days and
// returns how many were deleted.
func (s *Store) Cleanup(olderThanDays int) (int64, error) {
	threshold := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	n, err := s.queries.CleanupExecutionMetrics(context.Background(), threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up execution metrics: %w", err)
	}
	return n, nil
}

// MapUsage helper to convert shared.TokenUsage to ExecutionMetric.
func MapUsage(agentName string, usage shared.TokenUsage, latency time.Duration) ExecutionMetric {
	return ExecutionMetric{
		AgentName:        agentName,
		Model:            usage.Model,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		LatencyMS:        latency.Milliseconds(),
		Timestamp:        time.Now().UTC(),
	}
}
