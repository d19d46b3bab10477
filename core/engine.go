package core

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/snipebot/bot"
	"github.com/web3guy0/snipebot/feeds"
	"github.com/web3guy0/snipebot/listener"
	"github.com/web3guy0/snipebot/portfolio"
	"github.com/web3guy0/snipebot/radar"
	"github.com/web3guy0/snipebot/smartmoney"
	"github.com/web3guy0/snipebot/storage"
)

// ═══════════════════════════════════════════════════════════════════════════════
// ENGINE - Wires the radar, listener, tracker and order feed together
// ═══════════════════════════════════════════════════════════════════════════════

// trackTopN bounds how many scanned markets feed the smart money
// tracker per refresh.
const trackTopN = 20

// Engine owns the periodic radar refresh and the worker lifecycles.
type Engine struct {
	radar     *radar.Radar
	listener  *listener.Listener
	orders    *feeds.OrderFeed
	tracker   *smartmoney.Tracker
	store     *storage.Store
	portfolio *portfolio.Portfolio
	notifier  *bot.Notifier

	scanTTL time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// NewEngine assembles the engine. listener and orders may be nil when
// their sources are not configured.
func NewEngine(r *radar.Radar, l *listener.Listener, o *feeds.OrderFeed, t *smartmoney.Tracker, store *storage.Store, pf *portfolio.Portfolio, n *bot.Notifier, scanTTL time.Duration) *Engine {
	return &Engine{
		radar:     r,
		listener:  l,
		orders:    o,
		tracker:   t,
		store:     store,
		portfolio: pf,
		notifier:  n,
		scanTTL:   scanTTL,
	}
}

// Start launches the workers and the refresh loop.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	ctx, e.cancel = context.WithCancel(ctx)
	e.mu.Unlock()

	if e.listener != nil {
		e.listener.Start(ctx)
	}
	if e.orders != nil {
		e.orders.Start(ctx)
	}

	go e.refreshLoop(ctx)
	log.Info().Msg("🚀 Engine started")
}

// Stop shuts the workers down.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	cancel := e.cancel
	e.mu.Unlock()

	if e.listener != nil {
		e.listener.Stop()
	}
	if e.orders != nil {
		e.orders.Stop()
	}
	cancel()
	log.Info().Msg("Engine stopped")
}

// refreshLoop forces a radar scan every TTL, retargets the tracker on
// the current top markets, and records an activity snapshot.
func (e *Engine) refreshLoop(ctx context.Context) {
	e.refresh(ctx)

	ticker := time.NewTicker(e.scanTTL)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.refresh(ctx)
		}
	}
}

func (e *Engine) refresh(ctx context.Context) {
	markets := e.radar.Scan(ctx, false)

	// Pick up credential changes made through the settings store.
	if e.notifier != nil && e.store != nil {
		e.notifier.Reload(e.store)
	}

	if e.tracker != nil {
		top := markets
		if len(top) > trackTopN {
			top = top[:trackTopN]
		}
		keep := make(map[string]bool, len(top))
		for _, m := range top {
			keep[m.ID] = true
			e.tracker.StartTracking(m.ID)
		}
		for _, id := range e.tracker.Tracked() {
			if !keep[id] {
				e.tracker.StopTracking(id)
			}
		}
		e.tracker.GC(0)
	}

	if e.store != nil && e.portfolio != nil {
		stats := e.portfolio.Stats()
		if err := e.store.SaveActivitySnapshot(len(markets), stats.OpenPositions, stats.AvailableBalance, stats.TotalProfit); err != nil {
			log.Warn().Err(err).Msg("Failed to record activity snapshot")
		}
	}
}
