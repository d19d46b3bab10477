package radar

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/snipebot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// MARKET RADAR - Discovery, enrichment and scoring of snipable markets
// ═══════════════════════════════════════════════════════════════════════════════

// The fixed query set issued against the exchange on every refresh.
var scanQueries = []string{
	"tweet say",
	"announce before",
	"speech mention",
	"trump elon",
	"biden president",
	"crypto mention",
}

// MarketStore is the slice of persistence the radar needs.
type MarketStore interface {
	SaveMarkets(markets []types.Market) error
	Favorites() (map[string]bool, error)
}

// Radar discovers and ranks snipable markets behind a TTL cache.
type Radar struct {
	client  *Client
	emitter types.Emitter
	store   MarketStore

	ttl         time.Duration
	searchLimit int

	mu         sync.Mutex
	cond       *sync.Cond
	cache      []types.Market
	cachedAt   time.Time
	refreshing bool

	// Market ids already alerted as critical; one alert per id per
	// process lifetime. Bounding this set is a known follow-up.
	alerted map[string]bool

	now func() time.Time
}

// New creates a Radar. emitter and store may be nil in tests.
func New(client *Client, emitter types.Emitter, store MarketStore, ttl time.Duration, searchLimit int) *Radar {
	r := &Radar{
		client:      client,
		emitter:     emitter,
		store:       store,
		ttl:         ttl,
		searchLimit: searchLimit,
		alerted:     make(map[string]bool),
		now:         time.Now,
	}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Scan returns enriched snipable markets sorted by snipe score
// descending. With useCache, a result younger than the TTL is returned
// as-is. Concurrent refreshes are coalesced: callers arriving while a
// refresh is in flight wait for it instead of issuing their own.
func (r *Radar) Scan(ctx context.Context, useCache bool) []types.Market {
	r.mu.Lock()
	if useCache && r.cache != nil && r.now().Sub(r.cachedAt) < r.ttl {
		cached := r.cache
		r.mu.Unlock()
		return cached
	}
	for r.refreshing {
		r.cond.Wait()
		if r.cache != nil {
			cached := r.cache
			r.mu.Unlock()
			return cached
		}
	}
	r.refreshing = true
	r.mu.Unlock()

	fresh := r.refresh(ctx)

	r.mu.Lock()
	if fresh != nil {
		// Copy-on-write swap: readers holding the old slice are unaffected.
		r.cache = fresh
		r.cachedAt = r.now()
	}
	r.refreshing = false
	result := r.cache
	r.cond.Broadcast()
	r.mu.Unlock()
	return result
}

// Search exposes the raw exchange query.
func (r *Radar) Search(ctx context.Context, query string, limit int) ([]types.RawEvent, error) {
	return r.client.SearchEvents(ctx, query, limit)
}

// ClearCache drops the cached scan; the next Scan refreshes.
func (r *Radar) ClearCache() {
	r.mu.Lock()
	r.cache = nil
	r.cachedAt = time.Time{}
	r.mu.Unlock()
}

// ByPerson filters the cached scan to markets mentioning the canonical
// person name.
func (r *Radar) ByPerson(ctx context.Context, name string) []types.Market {
	var out []types.Market
	for _, m := range r.Scan(ctx, true) {
		for _, p := range m.Persons {
			if p == name {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

// ByCategory filters the cached scan by category.
func (r *Radar) ByCategory(ctx context.Context, c types.Category) []types.Market {
	var out []types.Market
	for _, m := range r.Scan(ctx, true) {
		if m.Category == c {
			out = append(out, m)
		}
	}
	return out
}

// ByUrgency filters the cached scan to markets at or above the given
// urgency rate.
func (r *Radar) ByUrgency(ctx context.Context, minRate int) []types.Market {
	var out []types.Market
	for _, m := range r.Scan(ctx, true) {
		if m.UrgencyRate >= minRate {
			out = append(out, m)
		}
	}
	return out
}

// refresh runs the full discovery pipeline. It never fails: per-query
// errors contribute empty lists and a failed refresh returns nil,
// leaving the previous cache intact.
func (r *Radar) refresh(ctx context.Context) []types.Market {
	now := r.now().UTC()

	seen := make(map[string]bool)
	var raws []types.RawEvent
	for _, query := range scanQueries {
		events, err := r.client.SearchEvents(ctx, query, r.searchLimit)
		if err != nil {
			log.Warn().Err(err).Str("query", query).Msg("Radar query failed")
			continue
		}
		// Union by id, first query wins.
		for _, ev := range events {
			if ev.ID == "" || seen[ev.ID] {
				continue
			}
			seen[ev.ID] = true
			raws = append(raws, ev)
		}
	}
	if len(raws) == 0 {
		log.Warn().Msg("Radar refresh produced no events, keeping stale cache")
		return nil
	}

	favorites := map[string]bool{}
	if r.store != nil {
		if favs, err := r.store.Favorites(); err == nil {
			favorites = favs
		} else {
			log.Warn().Err(err).Msg("Failed to load favorites")
		}
	}

	markets := make([]types.Market, 0, len(raws))
	for _, ev := range raws {
		m := Enrich(ev, now)
		if !IsSnipable(m) {
			continue
		}
		if favorites[m.ID] {
			m.IsFavorite = true
			m.PriorityBoost = 1.5
		}
		markets = append(markets, m)
	}

	sort.SliceStable(markets, func(i, j int) bool {
		return markets[i].SnipeScore > markets[j].SnipeScore
	})

	r.alertCritical(ctx, markets)

	if r.store != nil {
		if err := r.store.SaveMarkets(markets); err != nil {
			log.Error().Err(err).Msg("Failed to persist radar snapshot")
		}
	}

	log.Info().Int("events", len(raws)).Int("snipable", len(markets)).Msg("🔍 Radar scan complete")
	return markets
}

// alertCritical emits one CRITICAL_SNIPE per market id for markets with
// urgency rate >= 90.
func (r *Radar) alertCritical(ctx context.Context, markets []types.Market) {
	if r.emitter == nil {
		return
	}
	for _, m := range markets {
		if m.UrgencyRate < 90 {
			continue
		}
		r.mu.Lock()
		already := r.alerted[m.ID]
		if !already {
			r.alerted[m.ID] = true
		}
		r.mu.Unlock()
		if already {
			continue
		}

		metadata := map[string]any{
			"title":        m.Title,
			"url":          m.URL,
			"category":     string(m.Category),
			"urgency_rate": m.UrgencyRate,
			"volume":       m.Volume,
			"liquidity":    m.Liquidity,
			"snipe_score":  m.SnipeScore,
		}
		if m.DaysRemaining != nil {
			metadata["days_remaining"] = *m.DaysRemaining
		}
		if err := r.emitter.Emit(ctx, types.SignalCriticalSnipe, m.ID, types.SideYes, m.SnipeScore, metadata); err != nil {
			log.Warn().Err(err).Str("market", m.ID).Msg("Critical alert emit failed")
		}
	}
}
