package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai-fitness-coach/internal/plan"
	"ai-fitness-coach/internal/shared"
)

// ErrorKind classifies a pipeline failure for callers.
type ErrorKind string

const (
	// ExtractionError covers output with no locatable JSON object as well as
	// JSON that still fails to decode after repair.
	ExtractionError ErrorKind = "ExtractionError"
	ValidationError ErrorKind = "ValidationError"
	GenerationError ErrorKind = "GenerationError"
)

// Outcomes recorded per attempt.
const (
	OutcomeValid           = "valid"
	OutcomeInvalid         = "invalid"
	OutcomeExtractionError = "extraction_error"
	OutcomeGenerationError = "generation_error"
)

// Attempt records one generation call and what became of its output.
type Attempt struct {
	Number      int
	Temperature float32
	Usage       shared.TokenUsage
	Latency     time.Duration
	Outcome     string
	Issues      []plan.Violation
}

// Failure is the single consolidated error a run ends with. It never
// carries a partially processed plan.
type Failure struct {
	Kind     ErrorKind
	Attempts []Attempt
	// Sample is a truncated excerpt of the offending model output. It is for
	// server logs and the failure payload, never the raw text itself.
	Sample string
	Err    error
}

func (f *Failure) Error() string {
	issues := f.Issues()
	switch {
	case f.Err != nil:
		return fmt.Sprintf("%s after %d attempt(s): %v", f.Kind, len(f.Attempts), f.Err)
	case len(issues) > 0:
		return fmt.Sprintf("%s after %d attempt(s): %d issue(s), first: %s: %s",
			f.Kind, len(f.Attempts), len(issues), issues[0].Path, issues[0].Message())
	default:
		return fmt.Sprintf("%s after %d attempt(s)", f.Kind, len(f.Attempts))
	}
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Issues returns the violations of every attempt in attempt order.
func (f *Failure) Issues() []plan.Violation {
	var out []plan.Violation
	for _, a := range f.Attempts {
		out = append(out, a.Issues...)
	}
	return out
}

// TimedOut reports whether the failure was a generation call running past
// its deadline.
func (f *Failure) TimedOut() bool {
	return f.Kind == GenerationError && errors.Is(f.Err, context.DeadlineExceeded)
}

// Issue is one entry of a failure payload.
type Issue struct {
	Attempt int    `json:"attempt"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Payload is the user-facing failure body.
type Payload struct {
	OK       bool      `json:"ok"`
	Error    ErrorKind `json:"error"`
	Issues   []Issue   `json:"issues"`
	Sample   string    `json:"sample,omitempty"`
	Attempts int       `json:"attempts"`
}

// Payload renders at most limit issues, latest attempt first, since those
// describe the output the caller was last shown.
func (f *Failure) Payload(limit int) Payload {
	p := Payload{Error: f.Kind, Issues: []Issue{}, Sample: f.Sample, Attempts: len(f.Attempts)}
	for i := len(f.Attempts) - 1; i >= 0; i-- {
		for _, v := range f.Attempts[i].Issues {
			if len(p.Issues) == limit {
				return p
			}
			p.Issues = append(p.Issues, Issue{Attempt: f.Attempts[i].Number, Path: v.Path, Message: v.Message()})
		}
	}
	return p
}

// AsFailure unwraps err to a *Failure.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	ok := errors.As(err, &f)
	return f, ok
}

// IsKind reports whether err is a Failure of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	f, ok := AsFailure(err)
	return ok && f.Kind == kind
}
