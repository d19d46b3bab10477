package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type memSettings map[string]string

func (m memSettings) Setting(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func TestNotifierDisabledWithoutCredentials(t *testing.T) {
	n := NewNotifier("", 0)
	assert.False(t, n.Enabled())
	assert.False(t, n.Send("hello"))
	assert.Error(t, n.TestConnection())
}

func TestReloadNoopWhenCredentialsUnchanged(t *testing.T) {
	n := &Notifier{token: "tok", chatID: 42, enabled: true}

	n.Reload(memSettings{"TELEGRAM_BOT_TOKEN": "tok", "TELEGRAM_CHAT_ID": "42"})

	// Unchanged credentials must not tear down the live session.
	assert.True(t, n.Enabled())
	assert.Equal(t, "tok", n.token)
	assert.Equal(t, int64(42), n.chatID)
}

func TestReloadDisablesOnClearedCredentials(t *testing.T) {
	n := &Notifier{token: "tok", chatID: 42, enabled: true}

	n.Reload(memSettings{})

	assert.False(t, n.Enabled())
	assert.Empty(t, n.token)
	assert.Zero(t, n.chatID)
}

func TestReloadIgnoresMalformedChatID(t *testing.T) {
	n := &Notifier{token: "tok", chatID: 42, enabled: true}

	n.Reload(memSettings{"TELEGRAM_BOT_TOKEN": "tok", "TELEGRAM_CHAT_ID": "not-a-number"})

	// A garbage chat id parses to zero, which disables delivery.
	assert.False(t, n.Enabled())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcde...", truncate("abcdefgh", 5))
}
