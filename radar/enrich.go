package radar

import (
	"math"
	"strings"
	"time"

	"github.com/web3guy0/snipebot/types"
)

// categoryRule maps keyword hits to a category. Rules are checked in
// declared order; first match wins.
type categoryRule struct {
	category types.Category
	keywords []string
}

var categoryRules = []categoryRule{
	{types.CategoryTweet, []string{"tweet", "post on x", "post on twitter", "truth social post"}},
	{types.CategorySpeech, []string{"speech", "rally", "address the"}},
	{types.CategoryAnnouncement, []string{"announce", "announcement", "unveil", "launch"}},
	{types.CategoryInterview, []string{"interview", "podcast", "town hall"}},
	{types.CategoryStatement, []string{"say", "says", "said", "mention", "statement", "claim"}},
	{types.CategoryReaction, []string{"react", "respond", "reply"}},
	{types.CategoryAction, []string{"sign ", "executive order", "ban ", "fire ", "veto", "pardon"}},
}

// personAliases maps lowercase tokens to canonical political-figure names.
// Order matters: longer aliases are listed before their substrings so
// "donald trump" canonicalizes once.
var personAliases = []struct {
	alias     string
	canonical string
}{
	{"donald trump", "Trump"},
	{"trump", "Trump"},
	{"elon musk", "Elon Musk"},
	{"elon", "Elon Musk"},
	{"musk", "Elon Musk"},
	{"joe biden", "Biden"},
	{"biden", "Biden"},
	{"kamala harris", "Harris"},
	{"harris", "Harris"},
	{"putin", "Putin"},
	{"zelensky", "Zelensky"},
	{"obama", "Obama"},
}

// Categorize derives the event category from title + description.
func Categorize(title, description string) types.Category {
	text := strings.ToLower(title + " " + description)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.category
			}
		}
	}
	return types.CategoryOther
}

// DetectPersons scans for known political-figure tokens and returns the
// deduplicated canonical names.
func DetectPersons(title, description string) []string {
	text := strings.ToLower(title + " " + description)
	seen := make(map[string]bool)
	var persons []string
	for _, p := range personAliases {
		if seen[p.canonical] {
			continue
		}
		if strings.Contains(text, p.alias) {
			seen[p.canonical] = true
			persons = append(persons, p.canonical)
		}
	}
	return persons
}

// AliasesFor returns the lowercase aliases for a canonical person name.
// Used by the listener's global-keyword fallback matching.
func AliasesFor(canonical string) []string {
	var out []string
	for _, p := range personAliases {
		if p.canonical == canonical {
			out = append(out, p.alias)
		}
	}
	return out
}

// parseEndDate parses an ISO-8601 end date, normalizing a trailing Z.
func parseEndDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	// Bare timestamps without a zone are treated as UTC.
	if t, err := time.Parse("2006-01-02T15:04:05", strings.TrimSuffix(raw, "Z")); err == nil {
		t = t.UTC()
		return &t
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t
	}
	return nil
}

// daysRemaining returns max(0, floor(end − now in days)), plus whether
// the end date is already past.
func daysRemaining(end time.Time, now time.Time) (days int, expired bool) {
	diff := end.Sub(now).Hours() / 24
	if diff < 0 {
		return 0, true
	}
	return int(math.Floor(diff)), false
}

// urgencyBucket buckets days remaining into an urgency level. A market
// ending today (days == 0) is critical, not expired; expired means the
// end date is already past.
func urgencyBucket(days *int, expired bool) (types.Urgency, int) {
	if expired {
		return types.UrgencyExpired, 0
	}
	if days == nil {
		return types.UrgencyUnknown, 10
	}
	switch {
	case *days <= 1:
		return types.UrgencyCritical, 100
	case *days <= 7:
		return types.UrgencyHigh, 90
	case *days <= 30:
		return types.UrgencyMedium, 70
	default:
		return types.UrgencyLow, 40
	}
}

// Enrich converts a raw Gamma event into an enriched Market. The raw
// event is never mutated. now is passed explicitly so scoring stays
// deterministic for a given snapshot + instant.
func Enrich(ev types.RawEvent, now time.Time) types.Market {
	m := types.Market{
		ID:            ev.ID,
		Title:         ev.Title,
		Description:   ev.Description,
		Slug:          ev.Slug,
		URL:           "https://polymarket.com/event/" + ev.Slug,
		Image:         ev.Image,
		Volume:        float64(ev.Volume),
		Liquidity:     float64(ev.Liquidity),
		PriorityBoost: 1.0,
	}

	m.Category = Categorize(ev.Title, ev.Description)
	m.Persons = DetectPersons(ev.Title, ev.Description)

	expired := false
	if end := parseEndDate(ev.EndDate); end != nil {
		m.EndDate = end
		d, ex := daysRemaining(*end, now)
		expired = ex
		m.DaysRemaining = &d
	}
	m.Urgency, m.UrgencyRate = urgencyBucket(m.DaysRemaining, expired)

	m.SnipeScore, m.Breakdown = SnipeScore(m)
	return m
}
