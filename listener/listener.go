package listener

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/snipebot/executor"
	"github.com/web3guy0/snipebot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SOCIAL LISTENER - Watches posts and news for market trigger phrases
// ═══════════════════════════════════════════════════════════════════════════════

const (
	feedEntryCap = 10
	dedupCap     = 1000
	dedupKeep    = 500
	dedupMaxAge  = 24 * time.Hour

	globalKeywordsSetting = "listener_keywords"
)

// Canonical person -> social handle. Persons without a handle are only
// reachable through news feeds.
var personHandles = map[string]string{
	"Trump":     "realDonaldTrump",
	"Elon Musk": "elonmusk",
	"Biden":     "POTUS",
}

// MarketSource supplies the current snipable market set.
type MarketSource interface {
	Scan(ctx context.Context, useCache bool) []types.Market
}

// ListenerStore is the persistence slice the listener needs.
type ListenerStore interface {
	AppendLog(module, level, message string)
	Setting(key string) (string, bool)
	Favorites() (map[string]bool, error)
}

// Trader opens paper trades from matched signals.
type Trader interface {
	Execute(ctx context.Context, sig executor.SignalEvent, m types.Market) (*types.PaperTrade, error)
}

// AlertSink receives human-facing match notifications. May be nil.
type AlertSink interface {
	NewsAlert(marketTitle, sourceType, sourceName, content, marketURL string, keywords []string)
}

// Options configures the listener loop.
type Options struct {
	Feeds            []string
	PostsPerPoll     int
	Interval         time.Duration
	RecoveryInterval time.Duration
	RefreshEveryN    int
}

// Listener polls social posts and news feeds against the radar's
// targets and fires snipe actions on matches.
type Listener struct {
	posts   PostSource
	news    NewsSource
	markets MarketSource
	store   ListenerStore
	emitter types.Emitter
	trader  Trader
	alerts  AlertSink
	opts    Options

	mu      sync.Mutex
	running bool

	targets        []types.Market
	globalKeywords []string

	seenPosts map[string]time.Time
	seenNews  map[string]bool
	newsOrder []string

	now func() time.Time
}

// New creates the listener. emitter, trader and store may be nil in tests.
func New(posts PostSource, news NewsSource, markets MarketSource, store ListenerStore, emitter types.Emitter, trader Trader, opts Options) *Listener {
	if opts.PostsPerPoll <= 0 {
		opts.PostsPerPoll = 5
	}
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}
	if opts.RecoveryInterval <= 0 {
		opts.RecoveryInterval = 500 * time.Millisecond
	}
	if opts.RefreshEveryN <= 0 {
		opts.RefreshEveryN = 10
	}
	return &Listener{
		posts:     posts,
		news:      news,
		markets:   markets,
		store:     store,
		emitter:   emitter,
		trader:    trader,
		opts:      opts,
		seenPosts: make(map[string]time.Time),
		seenNews:  make(map[string]bool),
		now:       time.Now,
	}
}

// SetAlertSink attaches the notification channel for matches.
func (l *Listener) SetAlertSink(alerts AlertSink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.alerts = alerts
}

// Start launches the monitoring loop. A second Start while running is a
// no-op.
func (l *Listener) Start(ctx context.Context) {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return
	}
	l.running = true
	l.mu.Unlock()

	log.Info().Msg("👂 Social Listener started")
	l.logSystem("INFO", "Social Listener module started")
	go l.run(ctx)
}

// Stop flags the loop to exit; the current cycle finishes first.
func (l *Listener) Stop() {
	l.mu.Lock()
	wasRunning := l.running
	l.running = false
	l.mu.Unlock()
	if wasRunning {
		log.Info().Msg("👂 Social Listener stopped")
		l.logSystem("INFO", "Social Listener module stopped")
	}
}

// Running reports whether the loop is active.
func (l *Listener) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

func (l *Listener) run(ctx context.Context) {
	cycle := 0
	for {
		if !l.Running() {
			return
		}
		if err := l.Cycle(ctx, cycle); err != nil {
			log.Error().Err(err).Msg("Listener cycle error")
			l.logSystem("ERROR", "Listener loop error: "+err.Error())
			select {
			case <-ctx.Done():
				l.Stop()
				return
			case <-time.After(l.opts.RecoveryInterval):
			}
		}
		cycle++

		select {
		case <-ctx.Done():
			l.Stop()
			return
		case <-time.After(l.opts.Interval):
		}
	}
}

// Cycle runs one poll iteration. Exported for tests; the loop calls it
// with an incrementing counter.
func (l *Listener) Cycle(ctx context.Context, cycle int) error {
	if cycle%l.opts.RefreshEveryN == 0 {
		l.refreshTargets(ctx)
	}
	l.checkPosts(ctx)
	l.checkNews(ctx)
	return ctx.Err()
}

// refreshTargets pulls the current snipable set from the radar, drops
// expired markets, re-applies the latest favorite flags, and orders
// favorites first then score descending.
func (l *Listener) refreshTargets(ctx context.Context) {
	scanned := l.markets.Scan(ctx, true)

	// The scan may be served from cache for up to its TTL; favorites
	// toggled since then must still take effect on this refresh.
	var favorites map[string]bool
	if l.store != nil {
		favs, err := l.store.Favorites()
		if err != nil {
			log.Warn().Err(err).Msg("Favorites reload failed, keeping scan flags")
		} else {
			favorites = favs
		}
	}

	targets := make([]types.Market, 0, len(scanned))
	for _, m := range scanned {
		if m.DaysRemaining == nil || *m.DaysRemaining < 0 {
			continue
		}
		if favorites != nil {
			m.IsFavorite = favorites[m.ID]
			if m.IsFavorite {
				m.PriorityBoost = 1.5
			} else {
				m.PriorityBoost = 1.0
			}
		}
		targets = append(targets, m)
	}
	sort.SliceStable(targets, func(i, j int) bool {
		if targets[i].IsFavorite != targets[j].IsFavorite {
			return targets[i].IsFavorite
		}
		return targets[i].SnipeScore > targets[j].SnipeScore
	})

	var globals []string
	if l.store != nil {
		if raw, ok := l.store.Setting(globalKeywordsSetting); ok {
			for _, kw := range strings.Split(raw, ",") {
				if kw = strings.TrimSpace(kw); kw != "" {
					globals = append(globals, kw)
				}
			}
		}
	}

	l.mu.Lock()
	l.targets = targets
	l.globalKeywords = globals
	l.mu.Unlock()

	log.Debug().Int("targets", len(targets)).Msg("Listener targets refreshed")
}

// Targets returns the current target snapshot.
func (l *Listener) Targets() []types.Market {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.targets
}

// checkPosts polls the social source once per distinct handle across
// all targets.
func (l *Listener) checkPosts(ctx context.Context) {
	if l.posts == nil {
		return
	}
	targets, globals := l.snapshot()

	// handle -> targets mentioning that person
	byHandle := make(map[string][]types.Market)
	for _, m := range targets {
		for _, person := range m.Persons {
			handle, ok := personHandles[person]
			if !ok {
				continue
			}
			byHandle[handle] = append(byHandle[handle], m)
		}
	}

	for handle, handleTargets := range byHandle {
		posts, err := l.posts.Posts(ctx, handle, l.opts.PostsPerPoll)
		if err != nil {
			log.Warn().Err(err).Str("handle", handle).Msg("Post fetch failed")
			continue
		}
		for _, post := range posts {
			if post.Link == "" || !l.markPostSeen(post.Link) {
				continue
			}
			for _, m := range handleTargets {
				if ok, hits := Matches(post.Text, m, globals); ok {
					l.triggerSnipe(ctx, m, executor.SignalEvent{
						Source:          "twitter",
						Author:          "@" + handle,
						URL:             post.Link,
						Content:         post.Text,
						Timestamp:       l.now().UTC(),
						KeywordsMatched: hits,
					})
				}
			}
		}
	}

	l.prunePosts()
}

// checkNews polls each configured feed and matches entries against
// every target.
func (l *Listener) checkNews(ctx context.Context) {
	if l.news == nil {
		return
	}
	targets, globals := l.snapshot()

	for _, feedURL := range l.opts.Feeds {
		items, err := l.news.Fetch(ctx, feedURL, feedEntryCap)
		if err != nil {
			log.Warn().Err(err).Str("feed", feedURL).Msg("Feed fetch failed")
			continue
		}
		for _, item := range items {
			if item.Link == "" || !l.markNewsSeen(item.Link) {
				continue
			}
			content := item.Title + " " + item.Summary
			for _, m := range targets {
				if ok, hits := Matches(content, m, globals); ok {
					l.triggerSnipe(ctx, m, executor.SignalEvent{
						Source:          "rss",
						Author:          feedURL,
						URL:             item.Link,
						Content:         content,
						Timestamp:       l.now().UTC(),
						KeywordsMatched: hits,
					})
				}
			}
		}
	}
}

// triggerSnipe records the match, publishes a LISTENER_MATCH signal and
// hands the pair to the executor.
func (l *Listener) triggerSnipe(ctx context.Context, m types.Market, sig executor.SignalEvent) {
	log.Info().
		Str("market", m.Title).
		Str("source", sig.Source).
		Str("author", sig.Author).
		Msg("🎯 SNIPE TRIGGERED")
	l.logSystem("INFO", "SNIPE SIGNAL: "+m.Title+" detected in "+sig.Source)

	if l.emitter != nil {
		magnitude := m.SnipeScore * m.PriorityBoost
		if magnitude > 1 {
			magnitude = 1
		}
		metadata := map[string]any{
			"title":    m.Title,
			"url":      m.URL,
			"source":   sig.Source,
			"author":   sig.Author,
			"link":     sig.URL,
			"keywords": sig.KeywordsMatched,
		}
		side := executor.DetermineSide(sig.Content)
		if err := l.emitter.Emit(ctx, types.SignalListenerMatch, m.ID, side, magnitude, metadata); err != nil {
			log.Warn().Err(err).Str("market", m.ID).Msg("Listener emit failed")
		}
	}

	if l.alerts != nil {
		go l.alerts.NewsAlert(m.Title, sig.Source, sig.Author, sig.Content, m.URL, sig.KeywordsMatched)
	}

	if l.trader != nil {
		if _, err := l.trader.Execute(ctx, sig, m); err != nil {
			log.Error().Err(err).Str("market", m.ID).Msg("Trade execution failed")
		}
	}
}

func (l *Listener) snapshot() ([]types.Market, []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.targets, l.globalKeywords
}

// markPostSeen records a post link; it returns true the first time the
// link is seen.
func (l *Listener) markPostSeen(link string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seenPosts[link]; ok {
		return false
	}
	l.seenPosts[link] = l.now()
	return true
}

// prunePosts drops post ids older than 24h, then enforces the size cap
// by keeping the newest half.
func (l *Listener) prunePosts() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-dedupMaxAge)
	for link, seen := range l.seenPosts {
		if seen.Before(cutoff) {
			delete(l.seenPosts, link)
		}
	}
	if len(l.seenPosts) <= dedupCap {
		return
	}
	type seenLink struct {
		link string
		at   time.Time
	}
	all := make([]seenLink, 0, len(l.seenPosts))
	for link, at := range l.seenPosts {
		all = append(all, seenLink{link, at})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].at.After(all[j].at) })
	kept := make(map[string]time.Time, dedupKeep)
	for _, s := range all[:dedupKeep] {
		kept[s.link] = s.at
	}
	l.seenPosts = kept
}

// markNewsSeen records a news link in insertion order; the cap keeps
// the most recent half when exceeded.
func (l *Listener) markNewsSeen(link string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seenNews[link] {
		return false
	}
	l.seenNews[link] = true
	l.newsOrder = append(l.newsOrder, link)
	if len(l.newsOrder) > dedupCap {
		drop := l.newsOrder[:len(l.newsOrder)-dedupKeep]
		for _, old := range drop {
			delete(l.seenNews, old)
		}
		l.newsOrder = append([]string(nil), l.newsOrder[len(l.newsOrder)-dedupKeep:]...)
	}
	return true
}

func (l *Listener) logSystem(level, message string) {
	if l.store != nil {
		l.store.AppendLog("Listener", level, message)
	}
}
