package listener

import (
	"strings"

	"github.com/web3guy0/snipebot/radar"
	"github.com/web3guy0/snipebot/types"
)

// TriggerKeywords extracts the quoted substrings of a market title,
// lowercased. These are the phrases whose appearance in a post or
// headline resolves the market.
func TriggerKeywords(title string) []string {
	quoted := radar.QuotedContent(title)
	out := make([]string, 0, len(quoted))
	for _, q := range quoted {
		out = append(out, strings.ToLower(q))
	}
	return out
}

// Matches reports whether content triggers the market, and which
// keywords hit. Favorites match on ANY trigger keyword; other markets
// need ALL of them. Markets without quoted keywords fall back to a
// global-keyword + person-mention check.
func Matches(content string, m types.Market, globalKeywords []string) (bool, []string) {
	lower := strings.ToLower(content)
	keywords := TriggerKeywords(m.Title)

	if len(keywords) > 0 {
		var hits []string
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				hits = append(hits, kw)
			}
		}
		if m.IsFavorite {
			return len(hits) > 0, hits
		}
		return len(hits) == len(keywords), hits
	}

	// No quoted keywords: require a configured global keyword plus a
	// mention of one of the market's persons.
	if len(globalKeywords) == 0 || len(m.Persons) == 0 {
		return false, nil
	}
	var hit string
	for _, kw := range globalKeywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			hit = strings.ToLower(kw)
			break
		}
	}
	if hit == "" {
		return false, nil
	}
	for _, person := range m.Persons {
		for _, alias := range radar.AliasesFor(person) {
			if strings.Contains(lower, alias) {
				return true, []string{hit}
			}
		}
	}
	return false, nil
}
