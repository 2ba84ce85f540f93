// Package relay implements the fetch-classify-upload pipeline that turns a
// chat message containing a share link into an uploaded file.
package relay

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/terarelay/terarelay/internal/config"
	"github.com/terarelay/terarelay/internal/media"
	"github.com/terarelay/terarelay/internal/resolver"
)

// Options configures a Pipeline.
type Options struct {
	Trigger string
	// ConfirmOnUploadFailure sends the success confirmation even when the
	// upload call returned an error.
	ConfirmOnUploadFailure bool
}

// Pipeline handles one message at a time per call. It holds no mutable
// state, so concurrent calls are safe when the messenger and resolver are.
type Pipeline struct {
	logger    *slog.Logger
	messenger Messenger
	resolver  Resolver
	opts      Options
	hooks     Hooks
}

func NewPipeline(log *slog.Logger, messenger Messenger, resolver Resolver, opts Options) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	if opts.Trigger == "" {
		opts.Trigger = config.DefaultTrigger
	}
	return &Pipeline{
		logger:    log.With(slog.String("component", "relay")),
		messenger: messenger,
		resolver:  resolver,
		opts:      opts,
	}
}

// SetHooks installs observability callbacks. Call before the pipeline is
// shared between goroutines.
func (p *Pipeline) SetHooks(h Hooks) {
	p.hooks = h
}

// MatchesTrigger reports whether text contains trigger. Matching is
// case-sensitive.
func MatchesTrigger(text, trigger string) bool {
	return strings.Contains(text, trigger)
}

// Handle runs the pipeline for msg to completion. Failures are reported to
// the chat and logged; nothing propagates to the caller, panics included.
func (p *Pipeline) Handle(ctx context.Context, msg IncomingMessage) (outcome Outcome) {
	started := time.Now()
	log := p.logger.With(
		slog.String("run_id", uuid.NewString()),
		slog.Int64("chat_id", msg.ChatID),
		slog.String("source", msg.Source),
	)
	if msg.UpdateID != 0 {
		log = log.With(slog.Int64("update_id", msg.UpdateID))
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline panic", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
			outcome = OutcomePanic
		}
		log.Info("message handled", slog.String("outcome", string(outcome)), slog.Duration("latency", time.Since(started)))
		if p.hooks.OnMessage != nil {
			p.hooks.OnMessage(msg.Source, outcome, time.Since(started))
		}
	}()

	if !MatchesTrigger(msg.Text, p.opts.Trigger) {
		p.notify(ctx, log, msg.ChatID, MessageInvalidLink)
		return OutcomeNoTrigger
	}
	p.notify(ctx, log, msg.ChatID, MessageProcessing)

	res, err := p.resolver.Resolve(ctx, msg.Text)
	if err != nil {
		return p.handleResolveError(ctx, log, msg.ChatID, err)
	}
	p.observeResolve("ok")
	log.Debug("resource resolved", slog.String("content_type", res.ContentType), slog.Int("bytes", len(res.Data)))

	kind, err := p.messenger.Upload(ctx, msg.ChatID, res)
	if p.hooks.OnUpload != nil {
		p.hooks.OnUpload(kind, err)
	}
	if err != nil {
		log.Error("upload failed", slog.String("kind", kind.String()), slog.Any("error", err))
		if p.opts.ConfirmOnUploadFailure {
			p.notify(ctx, log, msg.ChatID, MessageUploaded)
		}
		return OutcomeUploadFailed
	}
	p.notify(ctx, log, msg.ChatID, MessageUploaded)
	return OutcomeDelivered
}

func (p *Pipeline) handleResolveError(ctx context.Context, log *slog.Logger, chatID int64, err error) Outcome {
	var statusErr *resolver.StatusError
	switch {
	case errors.As(err, &statusErr):
		p.observeResolve("status")
		log.Warn("resolver returned non-2xx", slog.Int("status", statusErr.Code))
		p.notify(ctx, log, chatID, FetchFailedMessage(statusErr.Code))
		return OutcomeFetchRejected
	case errors.Is(err, media.ErrAssetTooLarge):
		p.observeResolve("too_large")
		log.Warn("resource exceeds size limit", slog.Any("error", err))
		p.notify(ctx, log, chatID, ErrorMessage(err))
		return OutcomeTooLarge
	default:
		p.observeResolve("error")
		log.Error("resolve failed", slog.Any("error", err))
		p.notify(ctx, log, chatID, ErrorMessage(err))
		return OutcomeFetchFailed
	}
}

// notify sends text to the chat. Send failures are logged and swallowed.
func (p *Pipeline) notify(ctx context.Context, log *slog.Logger, chatID int64, text string) {
	if err := p.messenger.SendText(ctx, chatID, text); err != nil {
		log.Warn("send message failed", slog.String("text", text), slog.Any("error", err))
	}
}

func (p *Pipeline) observeResolve(result string) {
	if p.hooks.OnResolve != nil {
		p.hooks.OnResolve(result)
	}
}
