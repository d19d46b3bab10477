package radar

import (
	"regexp"
	"strings"

	"github.com/web3guy0/snipebot/types"
)

// Snipe score weights.
const (
	weightTriggerClarity = 0.30
	weightMonitorability = 0.25
	weightReactionSpeed  = 0.20
	weightUrgency        = 0.15
	weightVolume         = 0.05
	weightLiquidity      = 0.05
)

// Snipability thresholds.
const (
	minSnipeScore     = 0.20
	minVolume         = 500.0
	minTriggerClarity = 0.20
	maxHorizonDays    = 120
)

var quotedRe = regexp.MustCompile(`["']([^"']{2,})["']`)

// QuotedContent returns the substrings wrapped in single or double
// quotes of length >= 2.
func QuotedContent(title string) []string {
	matches := quotedRe.FindAllStringSubmatch(title, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

func hasQuotedContent(title string) bool {
	return len(QuotedContent(title)) > 0
}

func triggerClarity(m types.Market) float64 {
	quoted := hasQuotedContent(m.Title)
	switch m.Category {
	case types.CategoryTweet:
		if quoted {
			return 1.0
		}
		return 0.9
	case types.CategorySpeech, types.CategoryAnnouncement, types.CategoryStatement:
		if quoted {
			return 0.9
		}
		return 0.7
	}
	title := strings.ToLower(m.Title)
	if strings.Contains(title, "before") || strings.Contains(title, "by ") {
		return 0.6
	}
	return 0.3
}

func monitorability(m types.Market) float64 {
	switch m.Category {
	case types.CategoryTweet:
		return 1.0
	case types.CategoryAnnouncement, types.CategoryStatement:
		return 0.8
	case types.CategorySpeech:
		return 0.7
	case types.CategoryInterview:
		return 0.6
	case types.CategoryAction:
		return 0.4
	default:
		return 0.3
	}
}

func reactionSpeed(m types.Market) float64 {
	switch m.Category {
	case types.CategoryTweet:
		return 1.0
	case types.CategoryAnnouncement, types.CategoryStatement, types.CategorySpeech:
		return 0.7
	}
	if m.DaysRemaining != nil && *m.DaysRemaining > 30 {
		return 0.2
	}
	return 0.5
}

func urgencyScore(m types.Market) float64 {
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

func capped(x, denom float64) float64 {
	s := x / denom
	if s > 1 {
		return 1
	}
	if s < 0 {
		return 0
	}
	return s
}

// SnipeScore computes the weighted snipability score and its breakdown.
// It is a pure function of the enriched market snapshot.
func SnipeScore(m types.Market) (float64, types.ScoreBreakdown) {
	bd := types.ScoreBreakdown{
		TriggerClarity: triggerClarity(m),
		Monitorability: monitorability(m),
		ReactionSpeed:  reactionSpeed(m),
		Urgency:        urgencyScore(m),
	}
	score := bd.TriggerClarity*weightTriggerClarity +
		bd.Monitorability*weightMonitorability +
		bd.ReactionSpeed*weightReactionSpeed +
		bd.Urgency*weightUrgency +
		capped(m.Volume, 100000)*weightVolume +
		capped(m.Liquidity, 50000)*weightLiquidity
	return score, bd
}

// IsSnipable reports whether a market passes the snipability filter.
func IsSnipable(m types.Market) bool {
	if m.Urgency == types.UrgencyExpired {
		return false
	}
	if m.SnipeScore < minSnipeScore || m.Volume < minVolume {
		return false
	}
	if m.Breakdown.TriggerClarity < minTriggerClarity {
		return false
	}
	if m.DaysRemaining != nil && *m.DaysRemaining > maxHorizonDays {
		return false
	}
	return true
}
