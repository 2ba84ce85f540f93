package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/terarelay/terarelay/internal/media"
	"github.com/terarelay/terarelay/internal/poller"
	"github.com/terarelay/terarelay/internal/relay"
)

// RelayHooks returns pipeline callbacks that feed the relay collectors.
func RelayHooks() relay.Hooks {
	return relay.Hooks{
		OnMessage: func(source string, outcome relay.Outcome, latency time.Duration) {
			src := labelOr(source, "unknown")
			MessagesTotal.WithLabelValues(src, labelOr(string(outcome), "unknown")).Inc()
			PipelineSeconds.WithLabelValues(src).Observe(latency.Seconds())
		},
		OnResolve: func(result string) {
			ResolveTotal.WithLabelValues(labelOr(result, "unknown")).Inc()
		},
		OnUpload: func(kind media.Kind, err error) {
			result := "ok"
			if err != nil {
				result = "error"
			}
			UploadsTotal.WithLabelValues(labelOr(kind.String(), "unknown"), result).Inc()
		},
	}
}

// PollerHooks returns poll loop callbacks that feed the poller collectors.
// Polls interrupted by shutdown are not counted.
func PollerHooks() poller.Hooks {
	return poller.Hooks{
		OnPoll: func(updates int, _ time.Duration, err error) {
			switch {
			case err == nil:
				PollsTotal.WithLabelValues("ok").Inc()
				PollBatchSize.Observe(float64(updates))
			case errors.Is(err, context.Canceled):
			default:
				PollsTotal.WithLabelValues("error").Inc()
			}
		},
		OnCursor: func(cursor int64) {
			PollCursor.Set(float64(cursor))
		},
	}
}
