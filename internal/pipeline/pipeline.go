// Package pipeline turns raw model output into an accepted plan. Each pass
// extracts, repairs, normalizes and validates; when the first pass fails,
// generation is retried once with a corrective prompt.
package pipeline

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"ai-fitness-coach/internal/llm"
	"ai-fitness-coach/internal/llmjson"
	"ai-fitness-coach/internal/plan"
	"ai-fitness-coach/internal/validate"

	"go.uber.org/zap"
)

// State is a step of a run.
type State string

const (
	StateFirstAttempt State = "FIRST_ATTEMPT"
	StateRetrying     State = "RETRYING"
	StateValid        State = "VALID"
	StateFailed       State = "FAILED"
)

const (
	maxAttempts = 2

	// previousOutputLimit bounds how much of a rejected answer is echoed
	// back in the correction prompt.
	previousOutputLimit = 4000
	debugSampleLimit    = 2000
)

//go:embed correction_prompt.md
var correctionPromptText string

var correctionTemplate = template.Must(template.New("correction").Parse(correctionPromptText))

// Prompt is the rendered request for the first attempt.
type Prompt struct {
	System string
	User   string
}

// Options tunes a pipeline.
type Options struct {
	// Timeout bounds each generation call. Zero leaves only the caller's deadline.
	Timeout          time.Duration
	Temperature      float32
	RetryTemperature float32
	Mode             validate.Mode
	// Debug logs raw model output samples and repair steps.
	Debug bool
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Timeout:          45 * time.Second,
		Temperature:      0.7,
		RetryTemperature: 0.2,
		Mode:             validate.ModeSoft,
	}
}

// Summary describes a finished run.
type Summary struct {
	Kind     plan.Kind
	State    State
	Error    ErrorKind
	Attempts int
	Warnings int
}

// Observer is notified of every attempt and every finished run.
type Observer interface {
	ObserveAttempt(kind plan.Kind, a Attempt)
	ObserveRun(s Summary)
}

// Result is an accepted plan.
type Result[P any] struct {
	Plan     P
	Warnings []string
	// Repairs lists the textual fixes applied to the accepted output. They
	// are diagnostics and are not shown to end users.
	Repairs  []string
	Attempts []Attempt
}

// Pipeline runs generation and post-processing for one plan kind. It holds
// no per-request state and is safe for concurrent use.
type Pipeline[P any] struct {
	kind      Kind[P]
	gen       llm.TextGenerator
	opts      Options
	logger    *zap.Logger
	observers []Observer
}

// New creates a pipeline. gen may be nil when only Process is used.
func New[P any](kind Kind[P], gen llm.TextGenerator, opts Options, logger *zap.Logger, observers ...Observer) *Pipeline[P] {
	return &Pipeline[P]{
		kind:      kind,
		gen:       gen,
		opts:      opts,
		logger:    logger.With(zap.String("kind", string(kind.Name()))),
		observers: observers,
	}
}

// Process runs a single extract, repair, normalize and validate pass over
// already generated output.
func (p *Pipeline[P]) Process(raw string, rc plan.RequestContext) (*Result[P], error) {
	out := p.pass(raw, rc)
	att := Attempt{Number: 1, Outcome: out.outcome(), Issues: out.issues}
	if out.kind != "" {
		return nil, &Failure{Kind: out.kind, Attempts: []Attempt{att}, Sample: out.sample}
	}
	return &Result[P]{Plan: out.plan, Warnings: out.warnings, Repairs: out.repairs, Attempts: []Attempt{att}}, nil
}

// Run generates a plan for prompt and post-processes it. A rejected first
// answer is retried once with a corrective prompt at the retry temperature.
// Generation errors, including timeouts, end the run without a retry.
func (p *Pipeline[P]) Run(ctx context.Context, prompt Prompt, rc plan.RequestContext) (*Result[P], error) {
	logger := p.logger.With(zap.String("request_id", rc.RequestID))
	req := llm.Request{System: prompt.System, User: prompt.User, Temperature: p.opts.Temperature}
	state := StateFirstAttempt
	var attempts []Attempt

	for n := 1; ; n++ {
		att := Attempt{Number: n, Temperature: req.Temperature}

		start := time.Now()
		resp, err := p.generate(ctx, req)
		att.Latency = time.Since(start)
		att.Usage = resp.Usage

		if err != nil {
			att.Outcome = OutcomeGenerationError
			attempts = append(attempts, p.observeAttempt(att))
			logger.Error("generation failed", zap.String("state", string(state)), zap.Int("attempt", n), zap.Error(err))
			return nil, p.fail(&Failure{Kind: GenerationError, Attempts: attempts, Err: err})
		}

		if p.opts.Debug {
			logger.Debug("model output", zap.Int("attempt", n), zap.String("sample", llmjson.Truncate(resp.Content, debugSampleLimit)))
		}

		out := p.pass(resp.Content, rc)
		att.Outcome = out.outcome()
		att.Issues = out.issues
		attempts = append(attempts, p.observeAttempt(att))

		if out.kind == "" {
			p.observeRun(Summary{Kind: p.kind.Name(), State: StateValid, Attempts: n, Warnings: len(out.warnings)})
			logger.Info("plan accepted",
				zap.Int("attempts", n),
				zap.Int("warnings", len(out.warnings)),
				zap.Int("repairs", len(out.repairs)))
			return &Result[P]{Plan: out.plan, Warnings: out.warnings, Repairs: out.repairs, Attempts: attempts}, nil
		}

		if n == maxAttempts {
			f := &Failure{Kind: out.kind, Attempts: attempts, Sample: out.sample}
			logger.Warn("plan rejected", zap.String("state", string(StateFailed)), zap.String("error_kind", string(out.kind)), zap.Int("issues", len(f.Issues())))
			return nil, p.fail(f)
		}

		state = StateRetrying
		logger.Warn("plan rejected, retrying",
			zap.String("state", string(state)),
			zap.String("error_kind", string(out.kind)),
			zap.Int("issues", len(out.issues)),
			zap.Float32("temperature", p.opts.RetryTemperature))

		req, err = correction(prompt, p.kind.Name(), out.issues, resp.Content, p.opts.RetryTemperature)
		if err != nil {
			return nil, p.fail(&Failure{Kind: out.kind, Attempts: attempts, Sample: out.sample, Err: err})
		}
	}
}

func (p *Pipeline[P]) generate(ctx context.Context, req llm.Request) (llm.ContentResponse, error) {
	if p.gen == nil {
		return llm.ContentResponse{}, fmt.Errorf("no text generator configured")
	}
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}
	return p.gen.GenerateContent(ctx, req)
}

type passResult[P any] struct {
	plan     P
	warnings []string
	repairs  []string
	issues   []plan.Violation
	kind     ErrorKind
	sample   string
}

func (r passResult[P]) outcome() string {
	switch r.kind {
	case "":
		return OutcomeValid
	case ExtractionError:
		return OutcomeExtractionError
	default:
		return OutcomeInvalid
	}
}

func (p *Pipeline[P]) pass(raw string, rc plan.RequestContext) passResult[P] {
	var out passResult[P]

	text, err := llmjson.Extract(raw)
	if err != nil {
		out.kind = ExtractionError
		out.sample = llmjson.Truncate(raw, llmjson.SampleLimit)
		out.issues = []plan.Violation{{Path: "$", Rule: plan.RuleExtraction, Expected: "a single JSON object"}}
		return out
	}

	repaired, steps := llmjson.Repair(text)
	out.repairs = steps
	if p.opts.Debug {
		for _, step := range steps {
			p.logger.Debug("repair applied", zap.String("step", step))
		}
	}

	doc, err := llmjson.Decode(repaired)
	if err != nil {
		out.kind = ExtractionError
		out.sample = llmjson.Truncate(repaired, llmjson.SampleLimit)
		out.issues = []plan.Violation{{Path: "$", Rule: plan.RuleJSON, Observed: err.Error(), Expected: "valid JSON"}}
		return out
	}

	normalized, warnings := p.kind.Normalize(doc, rc)
	checked := p.kind.Validate(normalized, p.opts.Mode, rc)
	out.warnings = append(warnings, checked.Warnings...)
	if !checked.Valid() {
		out.kind = ValidationError
		out.issues = checked.Violations
		out.sample = llmjson.Truncate(repaired, llmjson.SampleLimit)
		return out
	}
	out.plan = checked.Plan
	return out
}

// correction builds the retry request: the original prompt followed by the
// rejected answer and every issue found in it.
func correction(prompt Prompt, kind plan.Kind, issues []plan.Violation, previous string, temperature float32) (llm.Request, error) {
	var sb strings.Builder
	err := correctionTemplate.Execute(&sb, struct {
		Kind     plan.Kind
		Issues   []plan.Violation
		Previous string
	}{kind, issues, llmjson.Truncate(previous, previousOutputLimit)})
	if err != nil {
		return llm.Request{}, fmt.Errorf("failed to render correction prompt: %w", err)
	}
	return llm.Request{
		System:      prompt.System,
		User:        prompt.User + "\n\n" + sb.String(),
		Temperature: temperature,
	}, nil
}

func (p *Pipeline[P]) observeAttempt(a Attempt) Attempt {
	for _, o := range p.observers {
		o.ObserveAttempt(p.kind.Name(), a)
	}
	return a
}

func (p *Pipeline[P]) observeRun(s Summary) {
	for _, o := range p.observers {
		o.ObserveRun(s)
	}
}

func (p *Pipeline[P]) fail(f *Failure) *Failure {
	p.observeRun(Summary{Kind: p.kind.Name(), State: StateFailed, Error: f.Kind, Attempts: len(f.Attempts)})
	return f
}
