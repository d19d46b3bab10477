package executor

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/snipebot/portfolio"
	"github.com/web3guy0/snipebot/radar"
	"github.com/web3guy0/snipebot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TRADE EXECUTOR - Scores (signal, market) pairs and opens paper trades
// ═══════════════════════════════════════════════════════════════════════════════

// Decision thresholds and weights.
const (
	minConfidence    = 0.50
	minSignalQuality = 0.40
	minGateVolume    = 5000.0

	signalQualityWeight = 0.60
	marketQualityWeight = 0.40
)

// SignalEvent is the observed content that triggered a potential trade.
type SignalEvent struct {
	Source          string // "twitter" or "rss"
	Author          string // handle for social posts
	URL             string
	Content         string
	Timestamp       time.Time
	KeywordsMatched []string
}

// TradeStore persists executed trades.
type TradeStore interface {
	SaveTrade(t *types.PaperTrade) error
}

// TradeNotifier announces executed trades. May be nil.
type TradeNotifier interface {
	TradeAlert(t types.PaperTrade, marketURL string)
}

// Executor converts (signal, market) pairs into sized paper trades.
type Executor struct {
	mu sync.Mutex

	portfolio *portfolio.Portfolio
	store     TradeStore
	notifier  TradeNotifier

	maxTradesPerDay int
	tradesToday     int
	lastResetDate   string // UTC date, YYYY-MM-DD

	now func() time.Time
}

// New creates the executor in paper-trading mode.
func New(pf *portfolio.Portfolio, store TradeStore, notifier TradeNotifier, maxTradesPerDay int) *Executor {
	log.Info().Msg("🤖 Trade Executor initialized (paper trading)")
	return &Executor{
		portfolio:       pf,
		store:           store,
		notifier:        notifier,
		maxTradesPerDay: maxTradesPerDay,
		now:             time.Now,
	}
}

// resetDailyCounter resets the counter on UTC date rollover.
// Caller holds the mutex.
func (e *Executor) resetDailyCounter() {
	today := e.now().UTC().Format("2006-01-02")
	if today != e.lastResetDate {
		e.tradesToday = 0
		e.lastResetDate = today
	}
}

var trackedHandles = []string{"realdonaldtrump", "elonmusk", "potus", "joebiden"}
var majorNewsSources = []string{"reuters", "bloomberg", "apnews", "cnn", "bbc"}

func sourceReliability(sig SignalEvent) float64 {
	switch strings.ToLower(sig.Source) {
	case "twitter", "social":
		author := strings.ToLower(sig.Author)
		for _, h := range trackedHandles {
			if strings.Contains(author, h) {
				return 1.0
			}
		}
		return 0.8
	case "rss", "news":
		url := strings.ToLower(sig.URL)
		for _, src := range majorNewsSources {
			if strings.Contains(url, src) {
				return 0.7
			}
		}
		return 0.5
	}
	return 0.3
}

var titleWordRe = regexp.MustCompile(`\b\w{4,}\b`)
var titleStopWords = map[string]bool{"will": true, "before": true, "say": true}

func keywordMatch(sig SignalEvent, m types.Market) float64 {
	content := strings.ToLower(sig.Content)

	// An exact quoted-phrase hit beats everything.
	for _, quote := range radar.QuotedContent(m.Title) {
		if strings.Contains(content, strings.ToLower(quote)) {
			return 1.0
		}
	}

	keywords := sig.KeywordsMatched
	if len(keywords) == 0 {
		for _, w := range titleWordRe.FindAllString(strings.ToLower(m.Title), -1) {
			if !titleStopWords[w] {
				keywords = append(keywords, w)
			}
		}
	}
	if len(keywords) == 0 {
		return 0.5
	}

	matches := 0
	for _, kw := range keywords {
		if strings.Contains(content, strings.ToLower(kw)) {
			matches++
		}
	}
	rate := float64(matches) / float64(len(keywords))
	switch {
	case rate >= 1.0:
		return 0.9
	case rate >= 0.75:
		return 0.7
	case rate >= 0.5:
		return 0.5
	default:
		return 0.3
	}
}

func (e *Executor) timing(sig SignalEvent) float64 {
	if sig.Timestamp.IsZero() {
		return 0.5
	}
	age := e.now().Sub(sig.Timestamp)
	switch {
	case age < 10*time.Second:
		return 1.0
	case age < time.Minute:
		return 0.9
	case age < 5*time.Minute:
		return 0.7
	case age < 15*time.Minute:
		return 0.5
	default:
		return 0.2
	}
}

var actionWords = []string{"announce", "declare", "confirm", "reveal"}
var hedgingWords = []string{"maybe", "possibly", "might", "could"}

func contentClarity(sig SignalEvent) float64 {
	content := strings.ToLower(sig.Content)
	if strings.Contains(content, `"`) || strings.Contains(content, "'") {
		return 1.0
	}
	for _, w := range actionWords {
		if strings.Contains(content, w) {
			return 0.8
		}
	}
	for _, w := range hedgingWords {
		if strings.Contains(content, w) {
			return 0.3
		}
	}
	return 0.5
}

// SignalQuality scores the signal itself: source reliability 40%,
// keyword match 30%, timing 20%, clarity 10%.
func (e *Executor) SignalQuality(sig SignalEvent, m types.Market) float64 {
	return sourceReliability(sig)*0.40 +
		keywordMatch(sig, m)*0.30 +
		e.timing(sig)*0.20 +
		contentClarity(sig)*0.10
}

func volumeBucket(volume float64) float64 {
	switch {
	case volume >= 100000:
		return 1.0
	case volume >= 50000:
		return 0.8
	case volume >= 10000:
		return 0.6
	case volume >= 5000:
		return 0.4
	default:
		return 0.2
	}
}

func liquidityBucket(liquidity float64) float64 {
	switch {
	case liquidity >= 50000:
		return 1.0
	case liquidity >= 20000:
		return 0.8
	case liquidity >= 5000:
		return 0.6
	case liquidity >= 1000:
		return 0.4
	default:
		return 0.2
	}
}

func urgencyBucket(m types.Market) float64 {
	if m.Urgency == types.UrgencyExpired {
		return 0
	}
	if m.DaysRemaining == nil {
		return 0.3
	}
	switch d := *m.DaysRemaining; {
	case d <= 1:
		return 1.0
	case d <= 7:
		return 0.9
	case d <= 30:
		return 0.7
	case d <= 90:
		return 0.4
	default:
		return 0.1
	}
}

// MarketQuality scores the market: snipe score 50%, volume 20%,
// liquidity 20%, urgency 10%.
func (e *Executor) MarketQuality(m types.Market) float64 {
	return m.SnipeScore*0.50 +
		volumeBucket(m.Volume)*0.20 +
		liquidityBucket(m.Liquidity)*0.20 +
		urgencyBucket(m)*0.10
}

// Confidence combines signal and market quality.
func (e *Executor) Confidence(signalQuality, marketQuality float64) float64 {
	return signalQuality*signalQualityWeight + marketQuality*marketQualityWeight
}

var negationTokens = []string{"not", "didn't", "won't", "never", "denies", "rejects"}

// DetermineSide infers the trade side from the content: a negation
// token flips to NO, otherwise YES.
func DetermineSide(content string) types.Side {
	lower := strings.ToLower(content)
	for _, neg := range negationTokens {
		if strings.Contains(lower, neg) {
			return types.SideNo
		}
	}
	return types.SideYes
}

// Decision carries the computed scores for a (signal, market) pair.
type Decision struct {
	SignalQuality float64
	MarketQuality float64
	Confidence    float64
	PositionSize  decimal.Decimal
}

// ShouldExecute applies the gating rules and returns the verdict with
// its reason and score breakdown.
func (e *Executor) ShouldExecute(sig SignalEvent, m types.Market) (bool, string, Decision) {
	e.mu.Lock()
	e.resetDailyCounter()
	tradesToday := e.tradesToday
	e.mu.Unlock()

	d := Decision{
		SignalQuality: e.SignalQuality(sig, m),
		MarketQuality: e.MarketQuality(m),
	}
	d.Confidence = e.Confidence(d.SignalQuality, d.MarketQuality)

	if m.Volume < minGateVolume {
		return false, "volume below $5K", d
	}
	if d.SignalQuality < minSignalQuality {
		return false, "signal quality too low", d
	}
	if m.DaysRemaining == nil || *m.DaysRemaining <= 0 {
		return false, "market expired", d
	}
	if tradesToday >= e.maxTradesPerDay {
		return false, "daily trade limit reached", d
	}
	if d.Confidence < minConfidence {
		return false, "confidence too low", d
	}

	d.PositionSize = e.portfolio.PositionSize(d.Confidence)
	if !e.portfolio.CanTrade(d.PositionSize) {
		return false, "insufficient balance", d
	}
	return true, "", d
}

// Execute runs the decision pipeline and, on approval, opens a paper
// trade. A nil trade with nil error means the signal was skipped.
func (e *Executor) Execute(ctx context.Context, sig SignalEvent, m types.Market) (*types.PaperTrade, error) {
	ok, reason, d := e.ShouldExecute(sig, m)
	if !ok {
		log.Info().
			Str("market", truncate(m.Title, 50)).
			Str("reason", reason).
			Float64("confidence", d.Confidence).
			Msg("⏭️ Trade skipped")
		return nil, nil
	}

	side := DetermineSide(sig.Content)

	if err := e.portfolio.Open(m.ID, side, d.PositionSize, d.Confidence); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.tradesToday++
	e.mu.Unlock()

	trade := types.PaperTrade{
		MarketID:      m.ID,
		MarketTitle:   m.Title,
		Side:          side,
		Size:          d.PositionSize,
		Confidence:    d.Confidence,
		SignalQuality: d.SignalQuality,
		MarketQuality: d.MarketQuality,
		Status:        types.StatusOpen,
		SignalSource:  sig.Source,
		SignalContent: truncate(sig.Content, 200),
		OpenedAt:      e.now().UTC(),
	}

	if e.store != nil {
		if err := e.store.SaveTrade(&trade); err != nil {
			log.Error().Err(err).Str("market", m.ID).Msg("Failed to persist trade")
		}
	}
	if e.notifier != nil {
		go e.notifier.TradeAlert(trade, m.URL)
	}

	log.Info().
		Str("market", truncate(m.Title, 50)).
		Str("side", string(side)).
		Str("size", "$"+d.PositionSize.StringFixed(2)).
		Float64("confidence", d.Confidence).
		Msg("🎯 Trade executed")
	return &trade, nil
}

// TradesToday returns the current daily counter.
func (e *Executor) TradesToday() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetDailyCounter()
	return e.tradesToday
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
