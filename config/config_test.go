package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://gamma-api.polymarket.com", cfg.GammaBaseURL)
	assert.Equal(t, 300*time.Second, cfg.ScanTTL)
	assert.Equal(t, 500, cfg.SearchLimit)
	assert.Equal(t, 2*time.Second, cfg.ListenerInterval)
	assert.Equal(t, 10, cfg.RefreshEveryN)
	assert.Equal(t, 20, cfg.MaxTradesPerDay)
	assert.True(t, cfg.InitialCapital.Equal(decimal.NewFromInt(10000)))
	assert.Len(t, cfg.NewsFeeds, 2)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GAMMA_BASE", "http://localhost:8080")
	t.Setenv("SCAN_TTL", "30s")
	t.Setenv("INITIAL_CAPITAL", "2500.50")
	t.Setenv("NEWS_FEEDS", "http://a.example/rss, http://b.example/rss ,")
	t.Setenv("TELEGRAM_CHAT_ID", "123456")
	t.Setenv("DEBUG", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.GammaBaseURL)
	assert.Equal(t, 30*time.Second, cfg.ScanTTL)
	assert.True(t, cfg.InitialCapital.Equal(decimal.RequireFromString("2500.50")))
	assert.Equal(t, []string{"http://a.example/rss", "http://b.example/rss"}, cfg.NewsFeeds)
	assert.Equal(t, int64(123456), cfg.TelegramChatID)
	assert.True(t, cfg.Debug)
}

func TestLoadRejectsBadChatID(t *testing.T) {
	t.Setenv("TELEGRAM_CHAT_ID", "not-a-number")
	_, err := Load()
	assert.Error(t, err)
}

func TestSearchLimitCapped(t *testing.T) {
	t.Setenv("SEARCH_LIMIT", "9999")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.SearchLimit)
}

func TestSettingsSeed(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("TELEGRAM_CHAT_ID", "42")
	t.Setenv("SECRET_KEY", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	seed := cfg.SettingsSeed()
	assert.Equal(t, "tok", seed["TELEGRAM_BOT_TOKEN"])
	assert.Equal(t, "42", seed["TELEGRAM_CHAT_ID"])
	assert.Equal(t, "s3cret", seed["SECRET_KEY"])
}

func TestSettingsSeedOmitsEmptyValues(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	t.Setenv("SECRET_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.SettingsSeed())
}
