package telegram

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestPrepareText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "hello", prepareText("hello"))
	assert.Equal(t, "ab", prepareText("a\xffb"))

	long := prepareText(strings.Repeat("界", 2000))
	assert.LessOrEqual(t, len(long), maxMessageLength)
	assert.True(t, strings.HasSuffix(long, "..."))
	assert.True(t, utf8.ValidString(long))
}
