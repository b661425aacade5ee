package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LLM providers.
const (
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
)

// Config holds the configuration for the application.
type Config struct {
	LLMProvider  string
	GeminiAPIKey string
	GeminiModel  string
	GroqAPIKey   string
	GroqModel    string

	DatabasePath string
	RulesPath    string

	// Pipeline
	GenerationTimeout time.Duration
	BaseTemperature   float32
	RetryTemperature  float32
	ValidationMode    string
	Debug             bool

	Port string

	// Telegram Config
	TelegramBotToken     string
	TelegramWebhookURL   string
	TelegramAllowedUsers []int64
	TelegramAdminID      int64
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	provider := getEnv("LLM_PROVIDER", ProviderGroq)

	cfg := &Config{
		LLMProvider:    provider,
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		GeminiModel:    os.Getenv("GEMINI_MODEL"),
		GroqAPIKey:     os.Getenv("GROQ_API_KEY"),
		GroqModel:      os.Getenv("GROQ_MODEL"),
		DatabasePath:   getEnv("DATABASE_PATH", "data/coach.db"),
		RulesPath:      os.Getenv("COACH_RULES_PATH"),
		ValidationMode: getEnv("VALIDATION_MODE", "soft"),
		Port:           getEnv("PORT", "8080"),

		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL: os.Getenv("TELEGRAM_WEBHOOK_URL"),
	}

	switch provider {
	case ProviderGroq:
		if cfg.GroqAPIKey == "" {
			return nil, fmt.Errorf("GROQ_API_KEY environment variable not set")
		}
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
	default:
		return nil, fmt.Errorf("LLM_PROVIDER must be %q or %q, got %q", ProviderGroq, ProviderGemini, provider)
	}

	var err error
	if cfg.GenerationTimeout, err = time.ParseDuration(getEnv("GENERATION_TIMEOUT", "45s")); err != nil {
		return nil, fmt.Errorf("failed to parse GENERATION_TIMEOUT: %w", err)
	}
	if cfg.BaseTemperature, err = parseTemperature("BASE_TEMPERATURE", "0.7"); err != nil {
		return nil, err
	}
	if cfg.RetryTemperature, err = parseTemperature("RETRY_TEMPERATURE", "0.2"); err != nil {
		return nil, err
	}
	if v := os.Getenv("PIPELINE_DEBUG"); v != "" {
		if cfg.Debug, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("failed to parse PIPELINE_DEBUG: %w", err)
		}
	}

	if v := os.Getenv("TELEGRAM_ALLOWED_USER_IDS"); v != "" {
		for _, field := range strings.Split(v, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("failed to parse TELEGRAM_ALLOWED_USER_IDS: %w", err)
			}
			cfg.TelegramAllowedUsers = append(cfg.TelegramAllowedUsers, id)
		}
	}
	if v := os.Getenv("ADMIN_TELEGRAM_ID"); v != "" {
		if cfg.TelegramAdminID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, fmt.Errorf("failed to parse ADMIN_TELEGRAM_ID: %w", err)
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseTemperature(key, fallback string) (float32, error) {
	f, err := strconv.ParseFloat(getEnv(key, fallback), 32)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	if f < 0 || f > 2 {
		return 0, fmt.Errorf("%s must be between 0 and 2, got %v", key, f)
	}
	return float32(f), nil
}
