package smartmoney

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/web3guy0/snipebot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// WALLET SCORER - Success rate (40%) + risk-adjusted ROI (30%) + timing (30%)
// ═══════════════════════════════════════════════════════════════════════════════

const (
	gradeCacheTTL    = time.Hour
	gradeCachePrefix = "wallet_score:"
)

// Score grades a wallet from its trade history. It is a pure function
// of the input list; an empty history grades D.
func Score(trades []types.WalletTrade) types.WalletScore {
	if len(trades) == 0 {
		return types.WalletScore{Grade: types.GradeD}
	}

	wins, losses := 0, 0
	totalProfit, totalInvested := 0.0, 0.0
	for _, t := range trades {
		switch t.Outcome {
		case types.OutcomeWin:
			wins++
		case types.OutcomeLoss:
			losses++
		}
		totalProfit += t.Profit
		if t.BetSize < 0 {
			totalInvested += -t.BetSize
		} else {
			totalInvested += t.BetSize
		}
	}

	totalMarkets := wins + losses
	successRate := 0.0
	if totalMarkets > 0 {
		successRate = float64(wins) / float64(totalMarkets)
	}

	avgBetSize := totalInvested / float64(len(trades))
	roi := 0.0
	if totalInvested > 0 {
		roi = totalProfit / totalInvested
	}
	riskAdjustedROI := 0.0
	if avgBetSize > 0 {
		riskAdjustedROI = roi / (avgBetSize / 1000)
	}
	riskAdjustedROI = clamp(riskAdjustedROI, -2.0, 5.0)

	// Timing: fraction of the market's life before the wallet moved.
	// Instant entry scores 1, waiting the full duration scores 0.
	timingScore := 0.5
	var avgEntryTiming *float64
	var sumMove, sumDuration float64
	timed := 0
	for _, t := range trades {
		if t.TimeToMove > 0 && t.MarketDuration > 0 {
			sumMove += t.TimeToMove
			sumDuration += t.MarketDuration
			timed++
		}
	}
	if timed > 0 {
		avgMove := sumMove / float64(timed)
		avgDuration := sumDuration / float64(timed)
		timingScore = clamp(1.0-avgMove/avgDuration, 0.0, 1.0)
		avgEntryTiming = &avgMove
	}

	finalScore := successRate*0.4 + (riskAdjustedROI+1)/6*0.3 + timingScore*0.3

	return types.WalletScore{
		Grade:          assignGrade(finalScore),
		SuccessRate:    successRate,
		ROIAdjusted:    riskAdjustedROI,
		TimingScore:    timingScore,
		FinalScore:     finalScore,
		TotalMarkets:   totalMarkets,
		TotalVolume:    totalInvested,
		AvgEntryTiming: avgEntryTiming,
	}
}

func assignGrade(finalScore float64) types.Grade {
	switch {
	case finalScore >= 0.80:
		return types.GradeA
	case finalScore >= 0.60:
		return types.GradeB
	case finalScore >= 0.40:
		return types.GradeC
	default:
		return types.GradeD
	}
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// ScoreStore is the persistent side of the write-through grade cache.
type ScoreStore interface {
	WalletScore(address string) (*types.WalletScore, error)
	SaveWalletScore(ws types.WalletScore) error
}

// Scorer caches wallet grades in Redis in front of the store.
type Scorer struct {
	rdb   redis.Cmdable
	store ScoreStore
}

// NewScorer creates the scorer. rdb may be nil (cache disabled).
func NewScorer(rdb redis.Cmdable, store ScoreStore) *Scorer {
	return &Scorer{rdb: rdb, store: store}
}

// UpdateScore recomputes a wallet's score, persists it, and refreshes
// the cache.
func (s *Scorer) UpdateScore(ctx context.Context, address string, trades []types.WalletTrade) (types.WalletScore, error) {
	ws := Score(trades)
	ws.Address = address
	ws.LastUpdated = time.Now().UTC()

	if s.store != nil {
		if err := s.store.SaveWalletScore(ws); err != nil {
			return ws, err
		}
	}
	s.cacheGrade(ctx, address, ws.Grade)

	log.Info().
		Str("wallet", shortAddr(address)).
		Str("grade", string(ws.Grade)).
		Float64("final", ws.FinalScore).
		Msg("📊 Wallet scored")
	return ws, nil
}

// GetGrade resolves a wallet grade: cache, then store, then UNKNOWN.
// A store hit re-populates the cache.
func (s *Scorer) GetGrade(ctx context.Context, address string) types.Grade {
	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, gradeCachePrefix+address).Result()
		if err == nil && cached != "" {
			return types.Grade(cached)
		}
		if err != nil && err != redis.Nil {
			log.Warn().Err(err).Msg("Grade cache lookup failed")
		}
	}

	if s.store != nil {
		ws, err := s.store.WalletScore(address)
		if err != nil {
			log.Warn().Err(err).Str("wallet", shortAddr(address)).Msg("Wallet score lookup failed")
		} else if ws != nil {
			s.cacheGrade(ctx, address, ws.Grade)
			return ws.Grade
		}
	}
	return types.GradeUnknown
}

func (s *Scorer) cacheGrade(ctx context.Context, address string, grade types.Grade) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Set(ctx, gradeCachePrefix+address, string(grade), gradeCacheTTL).Err(); err != nil {
		log.Warn().Err(err).Msg("Grade cache write failed")
	}
}

func shortAddr(address string) string {
	if len(address) <= 8 {
		return address
	}
	return address[:8] + "..."
}
