package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/terarelay/terarelay/internal/relay"
)

// IncomingFromUpdate extracts the chat id and text of an update. It reports
// false when the update carries no message, no chat id, or empty text.
func IncomingFromUpdate(update tgbotapi.Update) (relay.IncomingMessage, bool) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.Chat.ID == 0 || msg.Text == "" {
		return relay.IncomingMessage{}, false
	}
	return relay.IncomingMessage{
		UpdateID: int64(update.UpdateID),
		ChatID:   msg.Chat.ID,
		Text:     msg.Text,
	}, true
}
