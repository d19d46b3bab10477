package types

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SHARED TYPES - Avoid import cycles
// ═══════════════════════════════════════════════════════════════════════════════

// Category is the derived event category of a market.
type Category string

const (
	CategoryTweet        Category = "tweet"
	CategorySpeech       Category = "speech"
	CategoryAnnouncement Category = "announcement"
	CategoryInterview    Category = "interview"
	CategoryStatement    Category = "statement"
	CategoryReaction     Category = "reaction"
	CategoryAction       Category = "action"
	CategoryOther        Category = "other"
)

// Urgency buckets a market by time remaining until resolution.
type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyHigh     Urgency = "high"
	UrgencyMedium   Urgency = "medium"
	UrgencyLow      Urgency = "low"
	UrgencyExpired  Urgency = "expired"
	UrgencyUnknown  Urgency = "unknown"
)

// Side of a binary market.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// SignalType classifies published signals.
type SignalType string

const (
	SignalCriticalSnipe SignalType = "CRITICAL_SNIPE"
	SignalSmartMoney    SignalType = "SMART_MONEY"
	SignalListenerMatch SignalType = "LISTENER_MATCH"
	SignalSpike         SignalType = "SPIKE"
)

// Grade is a wallet performance grade.
type Grade string

const (
	GradeA       Grade = "A"
	GradeB       Grade = "B"
	GradeC       Grade = "C"
	GradeD       Grade = "D"
	GradeUnknown Grade = "UNKNOWN"
)

// Trade status values.
const (
	StatusOpen    = "OPEN"
	StatusClosed  = "CLOSED"
	StatusExpired = "EXPIRED"

	OutcomeWin  = "WIN"
	OutcomeLoss = "LOSS"
)

// FlexFloat is a float64 that unmarshals from either a JSON number or a
// numeric string. Unparseable values decode to 0.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			*f = FlexFloat(v)
			return nil
		}
	}
	*f = 0
	return nil
}

// RawEvent mirrors a single event from the Gamma /events endpoint.
// Numeric fields may arrive as strings, hence FlexFloat.
type RawEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Volume      FlexFloat `json:"volume"`
	Liquidity   FlexFloat `json:"liquidity"`
	CreatedAt   string    `json:"createdAt"`
	EndDate     string    `json:"endDate"`
	Image       string    `json:"image"`
}

// ScoreBreakdown carries the snipe score components.
type ScoreBreakdown struct {
	TriggerClarity float64 `json:"trigger_clarity"`
	Monitorability float64 `json:"monitorability"`
	ReactionSpeed  float64 `json:"reaction_speed"`
	Urgency        float64 `json:"urgency"`
}

// Market is an enriched market record. RawEvent is never mutated in
// place; enrichment always produces a fresh Market.
type Market struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Slug        string     `json:"slug"`
	URL         string     `json:"url"`
	Image       string     `json:"image"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Volume      float64    `json:"volume"`
	Liquidity   float64    `json:"liquidity"`

	Category      Category       `json:"category"`
	Persons       []string       `json:"persons"`
	DaysRemaining *int           `json:"days_remaining,omitempty"`
	Urgency       Urgency        `json:"urgency"`
	UrgencyRate   int            `json:"urgency_rate"`
	SnipeScore    float64        `json:"snipe_score"`
	Breakdown     ScoreBreakdown `json:"score_breakdown"`

	IsFavorite    bool    `json:"is_favorite"`
	PriorityBoost float64 `json:"priority_boost"`
}

// Signal is a published snipe signal.
type Signal struct {
	Type      SignalType     `json:"signal_type"`
	MarketID  string         `json:"market_id"`
	Side      Side           `json:"side"`
	Magnitude float64        `json:"magnitude"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata"`
}

// Emitter publishes signals. Radar, Listener and Tracker all produce
// signals through this interface; the Publisher owns notifier dispatch.
type Emitter interface {
	Emit(ctx context.Context, sigType SignalType, marketID string, side Side, magnitude float64, metadata map[string]any) error
}

// WalletTrade is one historical trade used for wallet scoring.
// TimeToMove and MarketDuration are in seconds; zero means unknown.
type WalletTrade struct {
	Outcome        string
	Profit         float64
	BetSize        float64
	TimeToMove     float64
	MarketDuration float64
}

// WalletScore is the result of scoring a wallet's history.
type WalletScore struct {
	Address        string
	Grade          Grade
	SuccessRate    float64
	ROIAdjusted    float64
	TimingScore    float64
	FinalScore     float64
	TotalMarkets   int
	TotalVolume    float64
	AvgEntryTiming *float64
	LastUpdated    time.Time
}

// PaperTrade is a simulated trade recorded against the virtual portfolio.
type PaperTrade struct {
	MarketID      string
	MarketTitle   string
	Side          Side
	Size          decimal.Decimal
	Confidence    float64
	SignalQuality float64
	MarketQuality float64
	Status        string
	Outcome       string
	Payout        decimal.Decimal
	Profit        decimal.Decimal
	SignalSource  string
	SignalContent string
	OpenedAt      time.Time
	ClosedAt      *time.Time
}
