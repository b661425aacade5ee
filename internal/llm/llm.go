package llm

import (
	"context"

	"ai-fitness-coach/internal/shared"
)

// Default model names, overridable through configuration.
const (
	DefaultGroqModel   = "llama-3.3-70b-versatile"
	DefaultGeminiModel = "gemini-2.0-flash"
)

// Request is a single generation call. Temperature is applied per call so
// that a retry can run cooler than the first attempt.
type Request struct {
	System      string
	User        string
	Temperature float32
}

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   shared.TokenUsage
}

// TextGenerator is an interface for generating text from a prompt.
type TextGenerator interface {
	GenerateContent(ctx context.Context, req Request) (ContentResponse, error)
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}

// Client is a TextGenerator holding resources that must be released.
type Client interface {
	TextGenerator
	Closer
}
