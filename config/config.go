package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all configuration for the sniping engine.
type Config struct {
	// Telegram
	TelegramToken  string
	TelegramChatID int64

	// Mode
	Debug bool

	// Exchange API
	GammaBaseURL string

	// Signal bus
	RedisURL string

	// Social / news sources
	PostSourceURL string
	NewsFeeds     []string
	PostsPerPoll  int

	// Radar
	ScanTTL      time.Duration
	SearchLimit  int

	// Listener
	ListenerInterval time.Duration
	RecoveryInterval time.Duration
	RefreshEveryN    int

	// Executor / portfolio
	InitialCapital   decimal.Decimal
	MaxTradesPerDay  int

	// Secrets
	SecretKey string

	// Database
	DatabasePath string
}

// Default RSS feeds: aggregated political and financial news.
var defaultFeeds = []string{
	"https://news.google.com/rss/search?q=Trump+OR+Elon+Musk&hl=en-US&gl=US&ceid=US:en",
	"https://finance.yahoo.com/news/rssindex",
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),

		Debug: getEnvBool("DEBUG", false),

		GammaBaseURL: getEnv("GAMMA_BASE", "https://gamma-api.polymarket.com"),
		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379"),

		PostSourceURL: getEnv("POST_SOURCE_URL", ""),
		NewsFeeds:     getEnvList("NEWS_FEEDS", defaultFeeds),
		PostsPerPoll:  getEnvInt("POSTS_PER_POLL", 5),

		ScanTTL:     getEnvDuration("SCAN_TTL", 300*time.Second),
		SearchLimit: getEnvInt("SEARCH_LIMIT", 500),

		ListenerInterval: getEnvDuration("LISTENER_INTERVAL", 2*time.Second),
		RecoveryInterval: getEnvDuration("RECOVERY_INTERVAL", 500*time.Millisecond),
		RefreshEveryN:    getEnvInt("REFRESH_EVERY_N", 10),

		InitialCapital:  getEnvDecimal("INITIAL_CAPITAL", decimal.NewFromInt(10000)),
		MaxTradesPerDay: getEnvInt("MAX_TRADES_PER_DAY", 20),

		SecretKey: os.Getenv("SECRET_KEY"),

		DatabasePath: getEnv("DATABASE_PATH", "data/snipebot.db"),
	}

	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}

	if cfg.SearchLimit > 500 {
		cfg.SearchLimit = 500
	}

	return cfg, nil
}

// SettingsSeed returns the env-provided values that seed the persistent
// settings store on startup.
func (c *Config) SettingsSeed() map[string]string {
	seed := make(map[string]string)
	if c.TelegramToken != "" {
		seed["TELEGRAM_BOT_TOKEN"] = c.TelegramToken
	}
	if c.TelegramChatID != 0 {
		seed["TELEGRAM_CHAT_ID"] = strconv.FormatInt(c.TelegramChatID, 10)
	}
	if c.SecretKey != "" {
		seed["SECRET_KEY"] = c.SecretKey
	}
	return seed
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
