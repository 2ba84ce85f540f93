package telegramchecker

import (
	"context"

	"github.com/terarelay/terarelay/internal/config"
	"github.com/terarelay/terarelay/internal/healthcheck"
)

const checkTypeBotToken = "telegram.bot_token"

// Checker reports static Telegram configuration problems.
type Checker struct {
	cfg config.TelegramConfig
}

// NewChecker creates a Telegram configuration checker.
func NewChecker(cfg config.TelegramConfig) *Checker {
	return &Checker{cfg: cfg}
}

// ListChecks reports whether a bot token is configured.
func (c *Checker) ListChecks(_ context.Context) []healthcheck.CheckResult {
	item := healthcheck.CheckResult{
		ID:       checkTypeBotToken,
		Type:     checkTypeBotToken,
		Status:   healthcheck.StatusOK,
		Summary:  "Bot token is configured.",
		Metadata: map[string]any{"mode": c.cfg.Mode},
	}
	if !c.cfg.HasToken() {
		item.Status = healthcheck.StatusWarn
		item.Summary = "Bot token is not configured."
		item.Detail = "set TELEGRAM_BOT_TOKEN; Bot API calls fail until it is set"
	}
	return []healthcheck.CheckResult{item}
}
