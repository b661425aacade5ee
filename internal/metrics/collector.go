package metrics

import (
	"ai-fitness-coach/internal/pipeline"
	"ai-fitness-coach/internal/plan"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// PipelineCollector exports pipeline activity as Prometheus metrics and,
// when a Store is set, persists every attempt's token usage.
type PipelineCollector struct {
	runs       *prometheus.CounterVec
	attempts   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	tokens     *prometheus.CounterVec
	warnings   *prometheus.HistogramVec
	violations *prometheus.CounterVec

	store  *Store
	logger *zap.Logger
}

var _ pipeline.Observer = (*PipelineCollector)(nil)

// NewPipelineCollector registers the pipeline metrics on reg. store may be nil.
func NewPipelineCollector(reg prometheus.Registerer, store *Store, logger *zap.Logger) *PipelineCollector {
	c := &PipelineCollector{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coach",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Finished pipeline runs by plan kind, final state and error kind.",
		}, []string{"kind", "state", "error"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coach",
			Subsystem: "pipeline",
			Name:      "attempts_total",
			Help:      "Generation attempts by plan kind, attempt number and outcome.",
		}, []string{"kind", "attempt", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "coach",
			Subsystem: "pipeline",
			Name:      "generation_seconds",
			Help:      "Latency of generation calls.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 45, 60},
		}, []string{"kind"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coach",
			Subsystem: "pipeline",
			Name:      "tokens_total",
			Help:      "Tokens consumed by generation calls.",
		}, []string{"kind", "model", "type"}),
		warnings: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "coach",
			Subsystem: "pipeline",
			Name:      "warnings",
			Help:      "Normalization and soft validation warnings per accepted plan.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		}, []string{"kind"}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coach",
			Subsystem: "pipeline",
			Name:      "violations_total",
			Help:      "Validation violations by plan kind and rule.",
		}, []string{"kind", "rule"}),
		store:  store,
		logger: logger,
	}
	reg.MustRegister(c.runs, c.attempts, c.latency, c.tokens, c.warnings, c.violations)
	return c
}

// ObserveAttempt implements pipeline.Observer.
func (c *PipelineCollector) ObserveAttempt(kind plan.Kind, a pipeline.Attempt) {
	k := string(kind)
	c.attempts.WithLabelValues(k, attemptLabel(a.Number), a.Outcome).Inc()
	c.latency.WithLabelValues(k).Observe(a.Latency.Seconds())
	if a.Usage.PromptTokens > 0 || a.Usage.CompletionTokens > 0 {
		c.tokens.WithLabelValues(k, a.Usage.Model, "prompt").Add(float64(a.Usage.PromptTokens))
		c.tokens.WithLabelValues(k, a.Usage.Model, "completion").Add(float64(a.Usage.CompletionTokens))
	}
	for _, v := range a.Issues {
		c.violations.WithLabelValues(k, string(v.Rule)).Inc()
	}

	if c.store == nil {
		return
	}
	m := MapUsage(kind.AgentName(), a.Usage, a.Latency)
	m.Outcome = a.Outcome
	if err := c.store.Record(m); err != nil {
		c.logger.Warn("failed to record execution metric", zap.String("kind", k), zap.Error(err))
	}
}

// ObserveRun implements pipeline.Observer.
func (c *PipelineCollector) ObserveRun(s pipeline.Summary) {
	k := string(s.Kind)
	c.runs.WithLabelValues(k, string(s.State), string(s.Error)).Inc()
	if s.State == pipeline.StateValid {
		c.warnings.WithLabelValues(k).Observe(float64(s.Warnings))
	}
}

func attemptLabel(n int) string {
	if n <= 1 {
		return "first"
	}
	return "retry"
}
