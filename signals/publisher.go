package signals

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/web3guy0/snipebot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SIGNAL PUBLISHER - Redis fan-out plus per-market history and persistence
// ═══════════════════════════════════════════════════════════════════════════════

const (
	channelName   = "snipe_signals"
	historyPrefix = "signals:"
	historyDepth  = 100
)

// SignalStore persists published signals.
type SignalStore interface {
	SaveSignal(sig types.Signal) error
}

// CriticalNotifier is pinged on CRITICAL_SNIPE signals. May be nil.
type CriticalNotifier interface {
	CriticalAlert(sig types.Signal)
}

// Publisher implements types.Emitter on top of Redis pub/sub. Each
// signal is broadcast on one channel, pushed onto a capped per-market
// history list, and persisted asynchronously.
type Publisher struct {
	rdb      redis.Cmdable
	store    SignalStore
	notifier CriticalNotifier

	now func() time.Time
}

// New creates the publisher. store and notifier may be nil.
func New(rdb redis.Cmdable, store SignalStore, notifier CriticalNotifier) *Publisher {
	return &Publisher{rdb: rdb, store: store, notifier: notifier, now: time.Now}
}

// Emit publishes a signal. The broadcast and the history push run
// synchronously so one producer's signals stay ordered; persistence and
// notification are fire-and-forget. Broadcast and persistence failures
// are independent: a Redis error never blocks the database write.
func (p *Publisher) Emit(ctx context.Context, sigType types.SignalType, marketID string, side types.Side, magnitude float64, metadata map[string]any) error {
	sig := types.Signal{
		Type:      sigType,
		MarketID:  marketID,
		Side:      side,
		Magnitude: magnitude,
		Timestamp: p.now().UTC(),
		Metadata:  metadata,
	}

	payload, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}

	var pubErr error
	if p.rdb != nil {
		if err := p.rdb.Publish(ctx, channelName, payload).Err(); err != nil {
			pubErr = fmt.Errorf("publish signal: %w", err)
			log.Warn().Err(err).Str("market", marketID).Msg("Signal broadcast failed")
		}
		key := historyPrefix + marketID
		if err := p.rdb.LPush(ctx, key, payload).Err(); err != nil {
			log.Warn().Err(err).Str("market", marketID).Msg("Signal history push failed")
		} else if err := p.rdb.LTrim(ctx, key, 0, historyDepth-1).Err(); err != nil {
			log.Warn().Err(err).Str("market", marketID).Msg("Signal history trim failed")
		}
	}

	if p.store != nil {
		go func(s types.Signal) {
			if err := p.store.SaveSignal(s); err != nil {
				log.Error().Err(err).Str("market", s.MarketID).Msg("Signal persist failed")
			}
		}(sig)
	}

	if p.notifier != nil && sigType == types.SignalCriticalSnipe {
		go p.notifier.CriticalAlert(sig)
	}

	log.Info().
		Str("type", string(sigType)).
		Str("market", marketID).
		Str("side", string(side)).
		Float64("magnitude", magnitude).
		Msg("📡 Signal published")
	return pubErr
}

// Recent returns up to limit most-recent signals for a market, newest
// first, from the Redis history list.
func (p *Publisher) Recent(ctx context.Context, marketID string, limit int) ([]types.Signal, error) {
	if p.rdb == nil {
		return nil, nil
	}
	if limit <= 0 || limit > historyDepth {
		limit = historyDepth
	}

	raw, err := p.rdb.LRange(ctx, historyPrefix+marketID, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("signal history: %w", err)
	}

	out := make([]types.Signal, 0, len(raw))
	for _, item := range raw {
		var sig types.Signal
		if err := json.Unmarshal([]byte(item), &sig); err != nil {
			log.Warn().Err(err).Str("market", marketID).Msg("Corrupt signal in history")
			continue
		}
		out = append(out, sig)
	}
	return out, nil
}
