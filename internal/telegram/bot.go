package telegram

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"ai-fitness-coach/internal/config"
	"ai-fitness-coach/internal/metrics"
	"ai-fitness-coach/internal/plan"
	"ai-fitness-coach/internal/planner"
	"ai-fitness-coach/internal/shared"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	// contextBloatTokens triggers an admin alert when a single call's prompt
	// grows past it.
	contextBloatTokens = 4000
	requestTimeout     = 2 * time.Minute
	reportDays         = 7
)

// Planner generates plans.
type Planner interface {
	GenerateWorkout(ctx context.Context, rc plan.RequestContext) (*planner.Generated[plan.WorkoutPlan], []shared.AgentMeta, error)
	GenerateNutrition(ctx context.Context, rc plan.RequestContext) (*planner.Generated[plan.NutritionPlan], []shared.AgentMeta, error)
}

// UsageReporter reads persisted execution metrics for the admin report.
type UsageReporter interface {
	GetDailyUsage(days int) ([]metrics.DailyUsage, error)
	GetOutcomeCounts(days int) ([]metrics.OutcomeCount, error)
}

// sender is the part of the Telegram API the bot uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	HandleUpdate(r *http.Request) (*tgbotapi.Update, error)
}

// Bot answers plan requests received through the Telegram webhook.
type Bot struct {
	api      sender
	planner  Planner
	usage    UsageReporter
	allowed  []int64
	adminID  int64
	dataPath string
	logger   *zap.Logger

	wg sync.WaitGroup
}

// NewBot initializes the Telegram API client and registers the webhook.
func NewBot(cfg *config.Config, p Planner, usage UsageReporter, dataPath string, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	logger.Info("telegram authorized", zap.String("account", api.Self.UserName))

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook for %s: %w", cfg.TelegramWebhookURL, err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	logger.Info("webhook set", zap.String("description", resp.Description))

	return newBot(api, p, usage, cfg.TelegramAllowedUsers, cfg.TelegramAdminID, dataPath, logger), nil
}

func newBot(api sender, p Planner, usage UsageReporter, allowed []int64, adminID int64, dataPath string, logger *zap.Logger) *Bot {
	return &Bot{
		api:      api,
		planner:  p,
		usage:    usage,
		allowed:  allowed,
		adminID:  adminID,
		dataPath: dataPath,
		logger:   logger,
	}
}

// WebhookHandler parses updates and answers them in the background.
func (b *Bot) WebhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		update, err := b.api.HandleUpdate(r)
		if err != nil {
			b.logger.Warn("failed to parse update", zap.Error(err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)

		msg := update.Message
		if msg == nil || msg.From == nil {
			return
		}
		if !b.isAllowed(msg.From.ID) {
			b.logger.Warn("unauthorized access attempt", zap.Int64("user_id", msg.From.ID), zap.String("username", msg.From.UserName))
			return
		}

		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			b.handleMessage(ctx, msg)
		}()
	}
}

// Wait blocks until in-flight messages are answered.
func (b *Bot) Wait() {
	b.wg.Wait()
}

// isAllowed reports whether userID may use the bot. An empty allow-list
// admits everyone.
func (b *Bot) isAllowed(userID int64) bool {
	return len(b.allowed) == 0 || slices.Contains(b.allowed, userID) || userID == b.adminID
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	cmd, err := parseCommand(msg.Text)
	if err != nil {
		b.reply(msg.Chat.ID, "⚠️ "+escapeMarkdown(err.Error())+"\n\n"+helpText)
		return
	}

	switch cmd.name {
	case "workout", "nutrition":
		b.handlePlanRequest(ctx, msg, cmd)
	case "metrics":
		if msg.From.ID != b.adminID {
			b.reply(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
			return
		}
		b.handleMetricsCommand(msg.Chat.ID)
	default:
		b.reply(msg.Chat.ID, helpText)
	}
}

func (b *Bot) handlePlanRequest(ctx context.Context, msg *tgbotapi.Message, cmd command) {
	status, err := b.api.Send(markdown(tgbotapi.NewMessage(msg.Chat.ID, "🏋️ *Thinking...*\n(Building your "+cmd.name+" plan)")))
	if err != nil {
		b.logger.Error("failed to send initial reply", zap.Error(err))
		return
	}

	// Telegram redelivers updates it considers unanswered, so the message
	// identity doubles as the idempotency key.
	rc := cmd.request
	rc.UserID = strconv.FormatInt(msg.From.ID, 10)
	rc.RequestID = fmt.Sprintf("tg-%d-%d", msg.Chat.ID, msg.MessageID)

	var (
		text  string
		metas []shared.AgentMeta
	)
	if cmd.name == "workout" {
		var out *planner.Generated[plan.WorkoutPlan]
		out, metas, err = b.planner.GenerateWorkout(ctx, rc)
		if err == nil {
			text = formatWorkout(out.Plan, out.Warnings)
		}
	} else {
		var out *planner.Generated[plan.NutritionPlan]
		out, metas, err = b.planner.GenerateNutrition(ctx, rc)
		if err == nil {
			text = formatNutrition(out.Plan, out.Warnings)
		}
	}
	b.alertOnBloat(metas)

	if err != nil {
		b.logger.Error("failed to generate plan", zap.String("kind", cmd.name), zap.String("request_id", rc.RequestID), zap.Error(err))
		text = formatFailure(err)
	}
	b.edit(msg.Chat.ID, status.MessageID, text)
}

func (b *Bot) alertOnBloat(metas []shared.AgentMeta) {
	for _, m := range metas {
		if m.Usage.PromptTokens > contextBloatTokens {
			b.sendAdminAlert(fmt.Sprintf("⚠️ *Context Bloat Alert*\nAgent: %s\nModel: %s\nPrompt Tokens: %d",
				escapeMarkdown(m.AgentName), escapeMarkdown(m.Usage.Model), m.Usage.PromptTokens))
		}
	}
}

func (b *Bot) handleMetricsCommand(chatID int64) {
	usage, err := b.usage.GetDailyUsage(reportDays)
	if err != nil {
		b.logger.Error("failed to fetch daily usage", zap.Error(err))
		b.reply(chatID, "❌ Error fetching metrics.")
		return
	}
	outcomes, err := b.usage.GetOutcomeCounts(reportDays)
	if err != nil {
		b.logger.Error("failed to fetch outcome counts", zap.Error(err))
		b.reply(chatID, "❌ Error fetching metrics.")
		return
	}
	b.reply(chatID, formatReport(usage, outcomes, metrics.GetSysHealth(b.dataPath)))
}

func (b *Bot) sendAdminAlert(text string) {
	if b.adminID == 0 {
		return
	}
	b.reply(b.adminID, text)
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(markdown(tgbotapi.NewMessage(chatID, text))); err != nil {
		b.logger.Error("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) edit(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Error("failed to edit message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func markdown(msg tgbotapi.MessageConfig) tgbotapi.MessageConfig {
	msg.ParseMode = tgbotapi.ModeMarkdown
	return msg
}
