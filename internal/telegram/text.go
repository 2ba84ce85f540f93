package telegram

import (
	"strings"
	"unicode/utf8"
)

// maxMessageLength is the Bot API limit for sendMessage text, in bytes here
// since UTF-8 bytes are a safe upper bound on characters.
const maxMessageLength = 4096

// prepareText makes text acceptable to sendMessage: invalid UTF-8 is dropped
// and overlong text is cut on a rune boundary with a "..." suffix.
func prepareText(text string) string {
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}
	if len(text) <= maxMessageLength {
		return text
	}
	const suffix = "..."
	limit := maxMessageLength - len(suffix)
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return text[:limit] + suffix
}
