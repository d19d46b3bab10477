package bot

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/web3guy0/snipebot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TELEGRAM NOTIFIER - Critical market, trade and news alerts
// ═══════════════════════════════════════════════════════════════════════════════

// SettingsSource supplies reloadable credentials.
type SettingsSource interface {
	Setting(key string) (string, bool)
}

// Notifier sends HTML-formatted alerts to a single chat. When the token
// or chat id is missing the notifier stays disabled and every send is a
// silent no-op.
type Notifier struct {
	mu      sync.Mutex
	api     *tgbotapi.BotAPI
	token   string
	chatID  int64
	enabled bool
}

// NewNotifier creates the notifier. Missing credentials disable it with
// a warning rather than failing startup.
func NewNotifier(token string, chatID int64) *Notifier {
	n := &Notifier{}
	n.configure(token, chatID)
	return n
}

func (n *Notifier) configure(token string, chatID int64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.token = token
	n.chatID = chatID

	if token == "" || chatID == 0 {
		n.api = nil
		n.enabled = false
		log.Warn().Msg("⚠️ Telegram notifications disabled - missing token or chat id")
		return
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		n.api = nil
		n.enabled = false
		log.Error().Err(err).Msg("Failed to create Telegram bot")
		return
	}
	n.api = api
	n.enabled = true
	log.Info().Str("username", api.Self.UserName).Msg("✅ Telegram notifications enabled")
}

// Enabled reports whether alerts will actually be delivered.
func (n *Notifier) Enabled() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.enabled
}

// Reload re-reads credentials from the settings store and reconnects
// when they changed. Safe to call on every refresh; unchanged
// credentials are a no-op.
func (n *Notifier) Reload(settings SettingsSource) {
	token, _ := settings.Setting("TELEGRAM_BOT_TOKEN")
	var chatID int64
	if raw, ok := settings.Setting("TELEGRAM_CHAT_ID"); ok {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			chatID = id
		}
	}

	n.mu.Lock()
	unchanged := token == n.token && chatID == n.chatID
	n.mu.Unlock()
	if unchanged {
		return
	}

	n.configure(token, chatID)
	log.Info().Bool("enabled", n.Enabled()).Msg("Telegram config reloaded")
}

// Send delivers an HTML message. Returns false when disabled or on
// delivery failure.
func (n *Notifier) Send(text string) bool {
	n.mu.Lock()
	api, chatID, enabled := n.api, n.chatID, n.enabled
	n.mu.Unlock()

	if !enabled {
		log.Debug().Msg("Telegram disabled, alert dropped")
		return false
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := api.Send(msg); err != nil {
		log.Error().Err(err).Msg("❌ Failed to send Telegram message")
		return false
	}
	return true
}

// TestConnection sends a test message and reports the outcome.
func (n *Notifier) TestConnection() error {
	if !n.Enabled() {
		return fmt.Errorf("missing bot token or chat id")
	}
	if !n.Send("✅ <b>Bot Connection Test</b>\n\nYour sniping bot is successfully connected to Telegram!") {
		return fmt.Errorf("failed to send test message")
	}
	return nil
}

const divider = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// CriticalMarketAlert announces a market that flipped to critical
// urgency.
func (n *Notifier) CriticalMarketAlert(m types.Market) {
	days := "N/A"
	if m.DaysRemaining != nil {
		days = strconv.Itoa(*m.DaysRemaining)
	}
	msg := fmt.Sprintf(`🚨🚨🚨 <b>CRITICAL MARKET ALERT</b> 🚨🚨🚨

%s
📊 <b>Market</b>
<i>%s</i>

%s
⚡ <b>Urgency:</b> <code>%d%%</code> 🔴 CRITICAL!
🔥 <b>Snipability:</b> <code>%.0f%%</code>
⏰ <b>Time left:</b> <code>%s</code> days
💰 <b>Volume:</b> <code>$%.0f</code>
💧 <b>Liquidity:</b> <code>$%.0f</code>
📁 <b>Category:</b> <code>%s</code>

%s
🔗 <a href="%s">📱 View on Polymarket</a>

⚠️ <b>IMMEDIATE ACTION REQUIRED!</b>`,
		divider, truncate(m.Title, 150),
		divider, m.UrgencyRate, m.SnipeScore*100, days, m.Volume, m.Liquidity, capitalize(string(m.Category)),
		divider, m.URL)
	n.Send(msg)
}

// CriticalAlert renders a CRITICAL_SNIPE signal by rebuilding the
// market view from the signal metadata; missing values degrade to
// zero-value placeholders.
func (n *Notifier) CriticalAlert(sig types.Signal) {
	m := types.Market{
		ID:          sig.MarketID,
		Title:       metaString(sig.Metadata, "title", "Unknown Market"),
		URL:         metaString(sig.Metadata, "url", ""),
		Category:    types.Category(metaString(sig.Metadata, "category", "other")),
		UrgencyRate: metaInt(sig.Metadata, "urgency_rate"),
		Volume:      metaFloat(sig.Metadata, "volume"),
		Liquidity:   metaFloat(sig.Metadata, "liquidity"),
		SnipeScore:  metaFloat(sig.Metadata, "snipe_score"),
	}
	if d := metaInt(sig.Metadata, "days_remaining"); d != 0 || hasKey(sig.Metadata, "days_remaining") {
		m.DaysRemaining = &d
	}
	n.CriticalMarketAlert(m)
}

// TradeAlert announces an executed paper trade.
func (n *Notifier) TradeAlert(t types.PaperTrade, marketURL string) {
	emoji := "🟢"
	if t.Side == types.SideNo {
		emoji = "🔴"
	}
	msg := fmt.Sprintf(`%s%s%s
💰 <b>TRADE EXECUTED - %s</b>
%s%s%s

📊 <b>Market:</b>
<i>%s</i>

%s
💵 <b>Size:</b> <code>$%s</code>
🎯 <b>Confidence:</b> <code>%.0f%%</code>
📈 <b>Position:</b> <code>%s</code>

💡 <b>Trigger:</b>
<i>%s</i>

%s
🔗 <a href="%s">📱 View on Polymarket</a>

✅ <b>Paper trade placed!</b>`,
		emoji, divider, emoji,
		t.Side,
		emoji, divider, emoji,
		truncate(t.MarketTitle, 150),
		divider, t.Size.StringFixed(2), t.Confidence*100, t.Side,
		truncate(t.SignalContent, 200),
		divider, marketURL)
	n.Send(msg)
}

// NewsAlert announces a matched post or headline.
func (n *Notifier) NewsAlert(marketTitle, sourceType, sourceName, content, marketURL string, keywords []string) {
	emoji := "🔔"
	switch strings.ToUpper(sourceType) {
	case "TWITTER":
		emoji = "🐦"
	case "RSS", "NEWS":
		emoji = "📰"
	}
	kw := "none"
	if len(keywords) > 0 {
		kw = strings.Join(keywords, ", ")
	}
	msg := fmt.Sprintf(`%s <b>SIGNAL DETECTED - %s</b>

%s
📊 <b>Market:</b>
<i>%s</i>

📢 <b>Source:</b> <code>%s</code>
🔑 <b>Keywords:</b> <code>%s</code>

💬 <b>Content:</b>
<i>%s</i>

%s
🔗 <a href="%s">📱 View on Polymarket</a>`,
		emoji, strings.ToUpper(sourceType),
		divider, truncate(marketTitle, 150),
		sourceName, kw,
		truncate(content, 200),
		divider, marketURL)
	n.Send(msg)
}

func metaString(metadata map[string]any, key, fallback string) string {
	if metadata != nil {
		if v, ok := metadata[key].(string); ok && v != "" {
			return v
		}
	}
	return fallback
}

// Metadata travels both in-process (typed) and through JSON (floats),
// so numeric lookups accept either.
func metaFloat(metadata map[string]any, key string) float64 {
	switch v := metadata[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func metaInt(metadata map[string]any, key string) int {
	switch v := metadata[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func hasKey(metadata map[string]any, key string) bool {
	_, ok := metadata[key]
	return ok
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
