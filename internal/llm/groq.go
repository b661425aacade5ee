package llm

import (
	"context"
	"fmt"

	"ai-fitness-coach/internal/config"
	"ai-fitness-coach/internal/shared"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	oaishared "github.com/openai/openai-go/shared"
)

const groqBaseURL = "https://api.groq.com/openai/v1/"

// groqClient talks to Groq through its OpenAI-compatible endpoint.
type groqClient struct {
	client openai.Client
	model  string
}

// NewGroqClient creates a new Groq API client.
func NewGroqClient(cfg *config.Config) Client {
	model := cfg.GroqModel
	if model == "" {
		model = DefaultGroqModel
	}
	return &groqClient{
		client: openai.NewClient(
			option.WithAPIKey(cfg.GroqAPIKey),
			option.WithBaseURL(groqBaseURL),
		),
		model: model,
	}
}

// GenerateContent sends a prompt to the Groq model and returns the generated text.
func (c *groqClient) GenerateContent(ctx context.Context, req Request) (ContentResponse, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	msgs = append(msgs, openai.UserMessage(req.User))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    msgs,
		Temperature: openai.Float(float64(req.Temperature)),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &oaishared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Choices) == 0 {
		return ContentResponse{}, fmt.Errorf("no content generated")
	}

	return ContentResponse{
		Content: resp.Choices[0].Message.Content,
		Usage: shared.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
			Model:            c.model,
		},
	}, nil
}

// Close is a no-op; the HTTP client holds no resources that need releasing.
func (c *groqClient) Close() error {
	return nil
}

// New returns the client selected by cfg.LLMProvider.
func New(ctx context.Context, cfg *config.Config) (Client, error) {
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		return NewGeminiClient(ctx, cfg)
	case config.ProviderGroq, "":
		return NewGroqClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}
