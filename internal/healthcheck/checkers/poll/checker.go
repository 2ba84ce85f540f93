package pollchecker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/terarelay/terarelay/internal/healthcheck"
	"github.com/terarelay/terarelay/internal/poller"
)

const checkTypePollLoop = "telegram.poll"

// StatusObserver reads the poll loop state.
type StatusObserver interface {
	Status() poller.Status
}

// Checker reports whether the getUpdates loop is running and healthy.
type Checker struct {
	logger   *slog.Logger
	observer StatusObserver
	now      func() time.Time
}

// NewChecker creates a poll loop health checker.
func NewChecker(log *slog.Logger, observer StatusObserver) *Checker {
	if log == nil {
		log = slog.Default()
	}
	return &Checker{
		logger:   log.With(slog.String("checker", "healthcheck_poll")),
		observer: observer,
		now:      time.Now,
	}
}

// ListChecks evaluates the poll loop status.
func (c *Checker) ListChecks(ctx context.Context) []healthcheck.CheckResult {
	if err := ctx.Err(); err != nil {
		return []healthcheck.CheckResult{}
	}
	if c.observer == nil {
		c.logger.Warn("poll healthcheck dependency is unavailable")
		return []healthcheck.CheckResult{{
			ID:      checkTypePollLoop + ".service",
			Type:    checkTypePollLoop,
			Status:  healthcheck.StatusWarn,
			Summary: "Poll loop is not available.",
			Detail:  "status observer is nil",
		}}
	}

	status := c.observer.Status()
	item := healthcheck.CheckResult{
		ID:     checkTypePollLoop,
		Type:   checkTypePollLoop,
		Status: healthcheck.StatusOK,
		Metadata: map[string]any{
			"running":              status.Running,
			"cursor":               status.Cursor,
			"consecutive_failures": status.ConsecutiveFailures,
		},
	}
	if !status.LastPollAt.IsZero() {
		item.Metadata["last_poll_at"] = status.LastPollAt.UTC().Format(time.RFC3339)
	}
	switch {
	case !status.Running:
		item.Status = healthcheck.StatusError
		item.Summary = "Poll loop is not running."
	case status.LastError != "":
		item.Status = healthcheck.StatusWarn
		item.Summary = fmt.Sprintf("Polling failed %d time(s) in a row.", status.ConsecutiveFailures)
		item.Detail = status.LastError
	case status.LastSuccessAt.IsZero():
		item.Status = healthcheck.StatusUnknown
		item.Summary = "Waiting for the first poll to complete."
	default:
		item.Summary = fmt.Sprintf("Last successful poll %s ago.", c.now().Sub(status.LastSuccessAt).Truncate(time.Second))
	}
	return []healthcheck.CheckResult{item}
}
