// Package server exposes plan generation over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ai-fitness-coach/internal/metrics"
	"ai-fitness-coach/internal/pipeline"
	"ai-fitness-coach/internal/plan"
	"ai-fitness-coach/internal/planner"
	"ai-fitness-coach/internal/rules"
	"ai-fitness-coach/internal/shared"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	// IdempotencyHeader carries the caller's request id.
	IdempotencyHeader = "Idempotency-Key"

	maxBodyBytes  = 64 << 10
	maxIssues     = 5
	maxRequestID  = 128
	maxNotesRunes = 1000
)

// Planner generates plans.
type Planner interface {
	GenerateWorkout(ctx context.Context, rc plan.RequestContext) (*planner.Generated[plan.WorkoutPlan], []shared.AgentMeta, error)
	GenerateNutrition(ctx context.Context, rc plan.RequestContext) (*planner.Generated[plan.NutritionPlan], []shared.AgentMeta, error)
}

// PlanReader loads stored plans.
type PlanReader interface {
	Get(ctx context.Context, id string) (*planner.Record, error)
}

// Server serves the plan API.
type Server struct {
	planner  Planner
	plans    PlanReader
	rules    *rules.Rules
	gatherer prometheus.Gatherer
	dataPath string
	logger   *zap.Logger
}

// New creates a Server. plans may be nil when persistence is disabled.
func New(p Planner, plans PlanReader, r *rules.Rules, gatherer prometheus.Gatherer, dataPath string, logger *zap.Logger) *Server {
	return &Server{
		planner:  p,
		plans:    plans,
		rules:    r,
		gatherer: gatherer,
		dataPath: dataPath,
		logger:   logger,
	}
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", s.health)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/plans", func(r chi.Router) {
		r.Post("/workout", s.createWorkout)
		r.Post("/nutrition", s.createNutrition)
		r.Get("/{id}", s.getPlan)
	})
	return r
}

type planRequest struct {
	Goal          string `json:"goal"`
	Frequency     int    `json:"frequency"`
	DailyCalories int    `json:"daily_calories"`
	Notes         string `json:"notes"`
	UserID        string `json:"user_id"`
}

type planResponse[P any] struct {
	OK bool `json:"ok"`
	*planner.Generated[P]
}

func (s *Server) createWorkout(w http.ResponseWriter, r *http.Request) {
	rc, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}
	out, _, err := s.planner.GenerateWorkout(r.Context(), rc)
	if err != nil {
		s.writeFailure(w, plan.KindWorkout, err)
		return
	}
	writeJSON(w, statusFor(out.Replayed), planResponse[plan.WorkoutPlan]{OK: true, Generated: out})
}

func (s *Server) createNutrition(w http.ResponseWriter, r *http.Request) {
	rc, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}
	out, _, err := s.planner.GenerateNutrition(r.Context(), rc)
	if err != nil {
		s.writeFailure(w, plan.KindNutrition, err)
		return
	}
	writeJSON(w, statusFor(out.Replayed), planResponse[plan.NutritionPlan]{OK: true, Generated: out})
}

func statusFor(replayed bool) int {
	if replayed {
		return http.StatusOK
	}
	return http.StatusCreated
}

func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request) (plan.RequestContext, bool) {
	var req planRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_json", "invalid request body", map[string]string{"reason": err.Error()})
		return plan.RequestContext{}, false
	}

	rc := plan.RequestContext{
		Goal:          strings.TrimSpace(req.Goal),
		Frequency:     req.Frequency,
		DailyCalories: req.DailyCalories,
		Notes:         strings.TrimSpace(req.Notes),
		UserID:        strings.TrimSpace(req.UserID),
		RequestID:     strings.TrimSpace(r.Header.Get(IdempotencyHeader)),
	}
	if field, msg := s.checkRequest(rc); field != "" {
		writeErr(w, http.StatusBadRequest, "invalid_request", msg, map[string]string{"field": field})
		return plan.RequestContext{}, false
	}
	return rc, true
}

// checkRequest returns the offending field and a message, or empty strings.
func (s *Server) checkRequest(rc plan.RequestContext) (string, string) {
	b := s.rules.Bounds
	switch {
	case rc.Frequency < 0 || float64(rc.Frequency) > b.DaysPerWeek.Max:
		return "frequency", fmt.Sprintf("frequency must be at most %v days per week, or 0 to leave it open", b.DaysPerWeek.Max)
	case rc.DailyCalories != 0 && (float64(rc.DailyCalories) < b.DailyCalories.Min || float64(rc.DailyCalories) > b.DailyCalories.Max):
		return "daily_calories", fmt.Sprintf("daily_calories must be between %v and %v", b.DailyCalories.Min, b.DailyCalories.Max)
	case len([]rune(rc.Notes)) > maxNotesRunes:
		return "notes", fmt.Sprintf("notes must be at most %d characters", maxNotesRunes)
	case len(rc.RequestID) > maxRequestID:
		return IdempotencyHeader, fmt.Sprintf("%s must be at most %d characters", IdempotencyHeader, maxRequestID)
	}
	return "", ""
}

// writeFailure maps a generation error onto a response. Model output is
// only ever logged, never returned.
func (s *Server) writeFailure(w http.ResponseWriter, kind plan.Kind, err error) {
	if errors.Is(err, planner.ErrRequestIDConflict) {
		writeErr(w, http.StatusConflict, "conflict", err.Error(), nil)
		return
	}

	f, ok := pipeline.AsFailure(err)
	if !ok {
		s.logger.Error("plan request failed", zap.String("kind", string(kind)), zap.Error(err))
		writeErr(w, http.StatusInternalServerError, "internal_error", "failed to generate plan", nil)
		return
	}

	status := http.StatusUnprocessableEntity
	if f.Kind == pipeline.GenerationError {
		status = http.StatusBadGateway
		if f.TimedOut() {
			status = http.StatusGatewayTimeout
		}
	}

	payload := f.Payload(maxIssues)
	if payload.Sample != "" {
		s.logger.Debug("rejected model output", zap.String("kind", string(kind)), zap.String("sample", payload.Sample))
		payload.Sample = ""
	}
	s.logger.Warn("plan rejected",
		zap.String("kind", string(kind)),
		zap.String("error", string(f.Kind)),
		zap.Int("attempts", len(f.Attempts)),
		zap.Int("status", status),
	)
	writeJSON(w, status, payload)
}

func (s *Server) getPlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.plans == nil {
		writeErr(w, http.StatusNotFound, "not_found", "plan not found", map[string]string{"id": id})
		return
	}
	rec, err := s.plans.Get(r.Context(), id)
	if errors.Is(err, planner.ErrPlanNotFound) {
		writeErr(w, http.StatusNotFound, "not_found", "plan not found", map[string]string{"id": id})
		return
	}
	if err != nil {
		s.logger.Error("failed to load plan", zap.String("id", id), zap.Error(err))
		writeErr(w, http.StatusInternalServerError, "internal_error", "failed to load plan", nil)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"system": metrics.GetSysHealth(s.dataPath),
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, code, message string, details map[string]string) {
	body := map[string]any{"ok": false, "error": code, "message": message}
	if len(details) > 0 {
		body["details"] = details
	}
	writeJSON(w, status, body)
}
