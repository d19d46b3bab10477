package smartmoney

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/snipebot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SMART MONEY TRACKER - Burst detection over graded wallet order flow
// ═══════════════════════════════════════════════════════════════════════════════

// Burst detection parameters.
const (
	burstWindow     = 30 * time.Second
	burstMinWallets = 3
	maxEntries      = 100
	defaultGCAge    = 300 * time.Second
)

var burstMinSize = decimal.NewFromInt(500)

// GradeLookup resolves a wallet's performance grade.
type GradeLookup interface {
	GetGrade(ctx context.Context, address string) types.Grade
}

// Order is a single observed on-chain order.
type Order struct {
	MarketID string
	Wallet   string
	Side     types.Side
	Size     decimal.Decimal
	SeenAt   time.Time
}

type entry struct {
	wallet string
	side   types.Side
	size   decimal.Decimal
	grade  types.Grade
	seenAt time.Time
}

// Tracker watches order flow on tracked markets and emits SMART_MONEY
// signals when a burst of high-grade wallets piles onto one side.
type Tracker struct {
	mu sync.Mutex

	grades  GradeLookup
	emitter types.Emitter

	tracked map[string][]entry
	// Last burst emit per market+side; one signal per burst, not per
	// order that extends it.
	cooldown map[string]time.Time

	now func() time.Time
}

// NewTracker creates the tracker. emitter may be nil in tests.
func NewTracker(grades GradeLookup, emitter types.Emitter) *Tracker {
	return &Tracker{
		grades:   grades,
		emitter:  emitter,
		tracked:  make(map[string][]entry),
		cooldown: make(map[string]time.Time),
		now:      time.Now,
	}
}

// StartTracking begins watching a market's order flow.
func (t *Tracker) StartTracking(marketID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.tracked[marketID]; !ok {
		t.tracked[marketID] = nil
		log.Debug().Str("market", marketID).Msg("👀 Tracking market")
	}
}

// StopTracking drops a market and its accumulated order state.
func (t *Tracker) StopTracking(marketID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.tracked, marketID)
	delete(t.cooldown, marketID+":"+string(types.SideYes))
	delete(t.cooldown, marketID+":"+string(types.SideNo))
}

// Tracked returns the ids of currently tracked markets.
func (t *Tracker) Tracked() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.tracked))
	for id := range t.tracked {
		out = append(out, id)
	}
	return out
}

// TrackOrder ingests one order. Orders from wallets graded below B are
// dropped. When the order completes a burst (>= 3 distinct A/B wallets
// on one side within 30s totalling >= $500) a SMART_MONEY signal is
// emitted once for that burst.
func (t *Tracker) TrackOrder(ctx context.Context, o Order) {
	t.mu.Lock()
	if _, ok := t.tracked[o.MarketID]; !ok {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	grade := t.grades.GetGrade(ctx, o.Wallet)
	if grade != types.GradeA && grade != types.GradeB {
		return
	}

	seenAt := o.SeenAt
	if seenAt.IsZero() {
		seenAt = t.now()
	}

	t.mu.Lock()
	entries := append(t.tracked[o.MarketID], entry{
		wallet: o.Wallet,
		side:   o.Side,
		size:   o.Size,
		grade:  grade,
		seenAt: seenAt,
	})
	if len(entries) > maxEntries {
		entries = entries[len(entries)-maxEntries:]
	}
	t.tracked[o.MarketID] = entries

	// Checking only the incoming side is equivalent to checking both:
	// this order adds nothing to the other side's window, and elapsed
	// time can only shrink a window, never newly satisfy it.
	burst, wallets, totalSize, avgWeight := t.detectBurst(entries, o.Side)
	fire := false
	if burst {
		key := o.MarketID + ":" + string(o.Side)
		if last, ok := t.cooldown[key]; !ok || t.now().Sub(last) >= burstWindow {
			t.cooldown[key] = t.now()
			fire = true
		}
	}
	t.mu.Unlock()

	if !fire {
		return
	}

	size, _ := totalSize.Float64()
	magnitude := (float64(wallets)/10*0.7 + size/5000*0.3)
	if magnitude > 1 {
		magnitude = 1
	}
	magnitude *= avgWeight

	log.Info().
		Str("market", o.MarketID).
		Str("side", string(o.Side)).
		Int("wallets", wallets).
		Str("size", "$"+totalSize.StringFixed(2)).
		Float64("magnitude", magnitude).
		Msg("💸 Smart money burst")

	if t.emitter == nil {
		return
	}
	metadata := map[string]any{
		"wallet_count": wallets,
		"total_size":   size,
		"avg_grade":    avgWeight,
	}
	if err := t.emitter.Emit(ctx, types.SignalSmartMoney, o.MarketID, o.Side, magnitude, metadata); err != nil {
		log.Warn().Err(err).Str("market", o.MarketID).Msg("Smart money emit failed")
	}
}

// detectBurst checks the window for the given side. Caller holds the
// mutex. Returns distinct wallet count, total size and the average
// grade weight (A=1.0, B=0.75).
func (t *Tracker) detectBurst(entries []entry, side types.Side) (bool, int, decimal.Decimal, float64) {
	cutoff := t.now().Add(-burstWindow)

	seen := make(map[string]bool)
	total := decimal.Zero
	weightSum := 0.0
	for _, e := range entries {
		if e.side != side || e.seenAt.Before(cutoff) {
			continue
		}
		total = total.Add(e.size)
		if !seen[e.wallet] {
			seen[e.wallet] = true
			if e.grade == types.GradeA {
				weightSum += 1.0
			} else {
				weightSum += 0.75
			}
		}
	}

	wallets := len(seen)
	if wallets < burstMinWallets || total.LessThan(burstMinSize) {
		return false, wallets, total, 0
	}
	return true, wallets, total, weightSum / float64(wallets)
}

// GC drops entries older than age from every tracked market. A zero age
// uses the 300s default.
func (t *Tracker) GC(age time.Duration) {
	if age <= 0 {
		age = defaultGCAge
	}
	cutoff := t.now().Add(-age)

	t.mu.Lock()
	defer t.mu.Unlock()
	for id, entries := range t.tracked {
		kept := entries[:0]
		for _, e := range entries {
			if !e.seenAt.Before(cutoff) {
				kept = append(kept, e)
			}
		}
		t.tracked[id] = kept
	}
}
