// Package poller pulls updates from the Bot API with getUpdates and feeds
// them to the relay pipeline one at a time.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/terarelay/terarelay/internal/config"
	"github.com/terarelay/terarelay/internal/relay"
	"github.com/terarelay/terarelay/internal/telegram"
)

// UpdateSource fetches updates with update_id >= offset.
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int64, timeout int) ([]tgbotapi.Update, error)
}

// MessageHandler processes one message to completion.
type MessageHandler interface {
	Handle(ctx context.Context, msg relay.IncomingMessage) relay.Outcome
}

// Hooks are optional observability callbacks. Nil fields are skipped.
type Hooks struct {
	OnPoll   func(updates int, latency time.Duration, err error)
	OnCursor func(cursor int64)
}

// Status is a snapshot of the loop's state.
type Status struct {
	Running             bool
	Cursor              int64
	LastPollAt          time.Time
	LastSuccessAt       time.Time
	LastError           string
	ConsecutiveFailures int
}

// Poller owns the update cursor. The cursor lives in the loop and is only
// mirrored into Status for observation.
type Poller struct {
	logger     *slog.Logger
	source     UpdateSource
	handler    MessageHandler
	timeout    int
	retryDelay time.Duration
	hooks      Hooks

	mu     sync.RWMutex
	status Status
	cancel context.CancelFunc
	done   chan struct{}
}

func New(log *slog.Logger, cfg config.TelegramConfig, source UpdateSource, handler MessageHandler) *Poller {
	if log == nil {
		log = slog.Default()
	}
	retryDelay := cfg.PollRetryDelay
	if retryDelay <= 0 {
		retryDelay = config.DefaultPollRetryDelay
	}
	timeout := cfg.PollTimeoutSeconds
	if timeout < 0 {
		timeout = config.DefaultPollTimeoutSeconds
	}
	return &Poller{
		logger:     log.With(slog.String("component", "poller")),
		source:     source,
		handler:    handler,
		timeout:    timeout,
		retryDelay: retryDelay,
	}
}

// SetHooks installs observability callbacks. Call before Start.
func (p *Poller) SetHooks(h Hooks) {
	p.hooks = h
}

// Start runs the loop in a new goroutine until Stop is called or ctx is done.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	done := p.done
	p.mu.Unlock()

	go func() {
		defer close(done)
		p.Run(runCtx)
	}()
}

// Stop cancels the loop and waits for it to exit or ctx to expire.
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run polls until ctx is cancelled. Poll failures are logged and retried
// after the configured delay; they never end the loop.
func (p *Poller) Run(ctx context.Context) {
	p.setRunning(true)
	defer p.setRunning(false)
	p.logger.Info("polling started", slog.Int("timeout_seconds", p.timeout))

	var cursor int64
	for {
		if ctx.Err() != nil {
			p.logger.Info("polling stopped", slog.Int64("cursor", cursor))
			return
		}
		started := time.Now()
		next, err := p.pollOnce(ctx, cursor)
		cursor = next
		if ctx.Err() != nil {
			p.logger.Info("polling stopped", slog.Int64("cursor", cursor))
			return
		}
		p.record(cursor, started, err)
		if err == nil {
			continue
		}
		p.logger.Error("poll failed", slog.Any("error", err), slog.Duration("retry_in", p.retryDelay))
		select {
		case <-time.After(p.retryDelay):
		case <-ctx.Done():
		}
	}
}

// pollOnce requests updates after cursor and dispatches them in ascending
// update_id order. It returns the highest update id consumed.
func (p *Poller) pollOnce(ctx context.Context, cursor int64) (int64, error) {
	started := time.Now()
	updates, err := p.source.GetUpdates(ctx, cursor+1, p.timeout)
	if p.hooks.OnPoll != nil {
		p.hooks.OnPoll(len(updates), time.Since(started), err)
	}
	if err != nil {
		return cursor, err
	}
	slices.SortFunc(updates, func(a, b tgbotapi.Update) int {
		return a.UpdateID - b.UpdateID
	})
	for _, update := range updates {
		id := int64(update.UpdateID)
		if id <= cursor {
			continue
		}
		if err := ctx.Err(); err != nil {
			return cursor, err
		}
		cursor = id
		if p.hooks.OnCursor != nil {
			p.hooks.OnCursor(cursor)
		}
		msg, ok := telegram.IncomingFromUpdate(update)
		if !ok {
			p.logger.Debug("skipping update without chat text", slog.Int64("update_id", id))
			continue
		}
		msg.Source = relay.SourcePoll
		p.handler.Handle(ctx, msg)
	}
	return cursor, nil
}

func (p *Poller) record(cursor int64, at time.Time, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.Cursor = cursor
	p.status.LastPollAt = at
	if err != nil && !errors.Is(err, context.Canceled) {
		p.status.LastError = err.Error()
		p.status.ConsecutiveFailures++
		return
	}
	p.status.LastSuccessAt = at
	p.status.LastError = ""
	p.status.ConsecutiveFailures = 0
}

func (p *Poller) setRunning(running bool) {
	p.mu.Lock()
	p.status.Running = running
	p.mu.Unlock()
}

// Status returns a snapshot of the loop's state.
func (p *Poller) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}
