package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/terarelay/terarelay/internal/media"
)

// Chat notifications.
const (
	MessageProcessing  = "Processing your request, please wait..."
	MessageInvalidLink = "Please send a valid TeraBox link."
	MessageUploaded    = "File uploaded successfully!"
)

// Intake sources.
const (
	SourceWebhook = "webhook"
	SourcePoll    = "poll"
)

// IncomingMessage is one chat message to relay.
type IncomingMessage struct {
	UpdateID int64
	ChatID   int64
	Text     string
	Source   string
}

// Messenger sends notifications and uploads to a chat.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) error
	Upload(ctx context.Context, chatID int64, res media.Resource) (media.Kind, error)
}

// Resolver turns message text into a file.
type Resolver interface {
	Resolve(ctx context.Context, text string) (media.Resource, error)
}

// Outcome is the terminal state of one pipeline run.
type Outcome string

const (
	OutcomeNoTrigger     Outcome = "no_trigger"
	OutcomeFetchRejected Outcome = "fetch_rejected"
	OutcomeFetchFailed   Outcome = "fetch_failed"
	OutcomeTooLarge      Outcome = "too_large"
	OutcomeUploadFailed  Outcome = "upload_failed"
	OutcomeDelivered     Outcome = "delivered"
	OutcomePanic         Outcome = "panic"
)

// Hooks are optional observability callbacks. Nil fields are skipped.
type Hooks struct {
	OnMessage func(source string, outcome Outcome, latency time.Duration)
	OnResolve func(result string)
	OnUpload  func(kind media.Kind, err error)
}

// FetchFailedMessage is sent when the resolver answers with a non-2xx status.
func FetchFailedMessage(code int) string {
	return fmt.Sprintf("Failed to fetch the file from TeraBox. Status code: %d", code)
}

// ErrorMessage is sent when resolution fails for any other reason.
func ErrorMessage(err error) string {
	return fmt.Sprintf("An error occurred: %s", err)
}
