// Package webhook receives Telegram updates pushed to an HTTP endpoint.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/labstack/echo/v4"

	"github.com/terarelay/terarelay/internal/config"
	"github.com/terarelay/terarelay/internal/relay"
	"github.com/terarelay/terarelay/internal/telegram"
)

const webhookMaxBodyBytes int64 = 1 << 20 // 1 MiB

const (
	statusOK          = "OK"
	statusInvalidData = "Invalid data"
)

type messageHandler interface {
	Handle(ctx context.Context, msg relay.IncomingMessage) relay.Outcome
}

// Handler receives Telegram webhook updates and runs the relay pipeline for
// each one before answering.
type Handler struct {
	logger   *slog.Logger
	path     string
	pipeline messageHandler
}

func NewHandler(log *slog.Logger, cfg config.TelegramConfig, pipeline messageHandler) *Handler {
	if log == nil {
		log = slog.Default()
	}
	path := cfg.WebhookPath
	if path == "" {
		path = config.DefaultWebhookPath
	}
	return &Handler{
		logger:   log.With(slog.String("handler", "telegram_webhook")),
		path:     path,
		pipeline: pipeline,
	}
}

// NewServerHandler is a DI-friendly constructor using the concrete pipeline.
func NewServerHandler(log *slog.Logger, cfg config.Config, pipeline *relay.Pipeline) *Handler {
	return NewHandler(log, cfg.Telegram, pipeline)
}

// Register registers the webhook route.
func (h *Handler) Register(e *echo.Echo) {
	e.POST(h.path, h.Handle)
}

// Handle decodes one update. Updates without a chat id or text are rejected
// with 400; everything else runs the pipeline to completion and gets 200.
func (h *Handler) Handle(c echo.Context) error {
	if h.pipeline == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "webhook pipeline not configured")
	}
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, webhookMaxBodyBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("read body: %v", err))
	}
	if int64(len(payload)) > webhookMaxBodyBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, fmt.Sprintf("payload too large: max %d bytes", webhookMaxBodyBytes))
	}

	var update tgbotapi.Update
	if err := json.Unmarshal(payload, &update); err != nil {
		h.logger.Warn("invalid webhook payload", slog.Any("error", err))
		return c.JSON(http.StatusBadRequest, map[string]string{"status": statusInvalidData})
	}
	msg, ok := telegram.IncomingFromUpdate(update)
	if !ok {
		h.logger.Info("webhook update without chat text", slog.Int("update_id", update.UpdateID))
		return c.JSON(http.StatusBadRequest, map[string]string{"status": statusInvalidData})
	}
	msg.Source = relay.SourceWebhook

	h.pipeline.Handle(context.WithoutCancel(c.Request().Context()), msg)
	return c.JSON(http.StatusOK, map[string]string{"status": statusOK})
}
