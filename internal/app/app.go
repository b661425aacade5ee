// Package app wires configuration, storage, the LLM client and the planner
// into the entry points used by the commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"ai-fitness-coach/internal/config"
	"ai-fitness-coach/internal/database"
	"ai-fitness-coach/internal/llm"
	"ai-fitness-coach/internal/metrics"
	"ai-fitness-coach/internal/pipeline"
	"ai-fitness-coach/internal/planner"
	"ai-fitness-coach/internal/rules"
	"ai-fitness-coach/internal/server"
	"ai-fitness-coach/internal/telegram"
	"ai-fitness-coach/internal/validate"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// Options adjusts how the App is built.
type Options struct {
	// CacheFile, when set, replays recorded model responses and records new
	// ones.
	CacheFile string
	// TextGenerator overrides the provider client selected by the config.
	TextGenerator llm.TextGenerator
}

// App holds the application's dependencies.
type App struct {
	cfg      *config.Config
	rules    *rules.Rules
	db       *database.DB
	plans    *planner.PlanRepository
	metrics  *metrics.Store
	registry *prometheus.Registry
	planner  *planner.Planner
	logger   *zap.Logger

	client llm.Client
	cache  *llm.CachedTextGenerator
}

// New creates and initializes a new App instance.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	r, err := LoadRules(cfg.RulesPath)
	if err != nil {
		return nil, err
	}
	pipeOpts, err := PipelineOptions(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, rules: r, logger: logger}

	textGen := opts.TextGenerator
	if textGen == nil {
		if a.client, err = llm.New(ctx, cfg); err != nil {
			return nil, fmt.Errorf("failed to create %s client: %w", cfg.LLMProvider, err)
		}
		textGen = a.client
	}
	if opts.CacheFile != "" {
		if a.cache, err = llm.NewCachedTextGenerator(textGen, opts.CacheFile, logger); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open response cache: %w", err)
		}
		textGen = a.cache
	}

	if a.db, err = database.NewDB(cfg.DatabasePath, logger); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.plans = planner.NewPlanRepository(a.db.SQL)
	a.metrics = metrics.NewStore(a.db.SQL)

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewPipelineCollector(a.registry, a.metrics, logger)

	a.planner = planner.NewPlanner(textGen, a.plans, r, pipeOpts, logger, collector)
	return a, nil
}

// LoadRules returns the embedded rules, overridden by path when set.
func LoadRules(path string) (*rules.Rules, error) {
	if path == "" {
		return rules.Default(), nil
	}
	r, err := rules.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules from %s: %w", path, err)
	}
	return r, nil
}

// PipelineOptions maps the configuration onto pipeline options.
func PipelineOptions(cfg *config.Config) (pipeline.Options, error) {
	mode, err := validate.ParseMode(cfg.ValidationMode)
	if err != nil {
		return pipeline.Options{}, fmt.Errorf("failed to parse VALIDATION_MODE: %w", err)
	}
	opts := pipeline.DefaultOptions()
	opts.Mode = mode
	opts.Debug = cfg.Debug
	if cfg.GenerationTimeout > 0 {
		opts.Timeout = cfg.GenerationTimeout
	}
	opts.Temperature = cfg.BaseTemperature
	opts.RetryTemperature = cfg.RetryTemperature
	// The correction call never runs hotter than the first one.
	if opts.RetryTemperature > opts.Temperature {
		opts.RetryTemperature = opts.Temperature
	}
	return opts, nil
}

// Planner returns the plan generator.
func (a *App) Planner() *planner.Planner {
	return a.planner
}

// Plans returns the plan repository.
func (a *App) Plans() *planner.PlanRepository {
	return a.plans
}

// Metrics returns the execution metric store.
func (a *App) Metrics() *metrics.Store {
	return a.metrics
}

// Rules returns the active rule set.
func (a *App) Rules() *rules.Rules {
	return a.rules
}

// DataDir is the directory holding the database.
func (a *App) DataDir() string {
	return filepath.Dir(a.cfg.DatabasePath)
}

// Server builds the HTTP API.
func (a *App) Server() *server.Server {
	return server.New(a.planner, a.plans, a.rules, a.registry, a.DataDir(), a.logger)
}

// Bot builds the Telegram bot and registers its webhook.
func (a *App) Bot() (*telegram.Bot, error) {
	if a.cfg.TelegramBotToken == "" {
		return nil, errors.New("TELEGRAM_BOT_TOKEN environment variable not set")
	}
	if a.cfg.TelegramWebhookURL == "" {
		return nil, errors.New("TELEGRAM_WEBHOOK_URL environment variable not set")
	}
	return telegram.NewBot(a.cfg, a.planner, a.metrics, a.DataDir(), a.logger)
}

// CleanupMetrics removes execution metrics older than days.
func (a *App) CleanupMetrics(days int) (int64, error) {
	if days < 1 {
		return 0, fmt.Errorf("days must be at least 1, got %d", days)
	}
	return a.metrics.Cleanup(days)
}

// Close saves the response cache and releases the client and database.
func (a *App) Close() error {
	var errs []error
	if a.cache != nil {
		if err := a.cache.SaveCache(); err != nil {
			errs = append(errs, fmt.Errorf("failed to save response cache: %w", err))
		}
	}
	if a.client != nil {
		if err := a.client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close llm client: %w", err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
