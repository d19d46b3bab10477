package portfolio

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/snipebot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// PORTFOLIO - Virtual capital for paper trading
// ═══════════════════════════════════════════════════════════════════════════════

// Position sizing parameters.
var (
	basePercentage = decimal.NewFromFloat(0.02)
	maxBetPct      = decimal.NewFromFloat(0.05)
	minBet         = decimal.NewFromInt(10)
)

// Position is an open or settled paper position.
type Position struct {
	Side       types.Side
	Size       decimal.Decimal
	Confidence float64
	Status     string
	Outcome    string
	Payout     decimal.Decimal
	Profit     decimal.Decimal
	OpenedAt   time.Time
	ClosedAt   *time.Time
}

// Stats is a snapshot of portfolio performance.
type Stats struct {
	InitialCapital   decimal.Decimal `json:"initial_capital"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	TotalValue       decimal.Decimal `json:"total_value"`
	OpenPositions    int             `json:"open_positions"`
	TotalTrades      int             `json:"total_trades"`
	WinningTrades    int             `json:"winning_trades"`
	LosingTrades     int             `json:"losing_trades"`
	WinRate          float64         `json:"win_rate"`
	TotalProfit      decimal.Decimal `json:"total_profit"`
	ROI              float64         `json:"roi"`
}

// Portfolio is a single in-memory account. All mutation is serialized
// behind one mutex; the Executor is its only writer.
type Portfolio struct {
	mu sync.Mutex

	initialCapital   decimal.Decimal
	availableBalance decimal.Decimal
	positions        map[string]*Position

	totalTrades   int
	winningTrades int
	losingTrades  int
	totalProfit   decimal.Decimal
}

// New creates a portfolio with the given virtual capital.
func New(initialCapital decimal.Decimal) *Portfolio {
	log.Info().Str("capital", "$"+initialCapital.StringFixed(2)).Msg("💰 Portfolio initialized")
	return &Portfolio{
		initialCapital:   initialCapital,
		availableBalance: initialCapital,
		positions:        make(map[string]*Position),
		totalProfit:      decimal.Zero,
	}
}

// CanTrade reports whether the balance covers a bet of the given size.
func (p *Portfolio) CanTrade(size decimal.Decimal) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.availableBalance.GreaterThanOrEqual(size)
}

// Balance returns the current available balance.
func (p *Portfolio) Balance() decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.availableBalance
}

// PositionSize computes the bet size for a confidence level:
// base 2% of balance, scaled by confidence/0.5 above 0.5, clamped to
// [$10, 5% of balance].
func (p *Portfolio) PositionSize(confidence float64) decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()

	base := p.availableBalance.Mul(basePercentage)
	mult := decimal.NewFromInt(1)
	if confidence > 0.5 {
		mult = decimal.NewFromFloat(confidence / 0.5)
	}
	size := base.Mul(mult)

	maxSize := p.availableBalance.Mul(maxBetPct)
	if size.GreaterThan(maxSize) {
		size = maxSize
	}
	if size.LessThan(minBet) {
		size = minBet
	}
	return size.Round(2)
}

// Open reserves capital for a new position. A market can hold at most
// one open position.
func (p *Portfolio) Open(marketID string, side types.Side, size decimal.Decimal, confidence float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.availableBalance.LessThan(size) {
		log.Warn().
			Str("balance", p.availableBalance.StringFixed(2)).
			Str("size", size.StringFixed(2)).
			Msg("⚠️ Insufficient balance")
		return fmt.Errorf("insufficient balance: %s < %s", p.availableBalance.StringFixed(2), size.StringFixed(2))
	}
	if pos, ok := p.positions[marketID]; ok && pos.Status == types.StatusOpen {
		return fmt.Errorf("position already open on market %s", marketID)
	}

	p.availableBalance = p.availableBalance.Sub(size)
	p.positions[marketID] = &Position{
		Side:       side,
		Size:       size,
		Confidence: confidence,
		Status:     types.StatusOpen,
		OpenedAt:   time.Now().UTC(),
	}
	p.totalTrades++

	log.Info().
		Str("market", marketID).
		Str("side", string(side)).
		Str("size", "$"+size.StringFixed(2)).
		Float64("confidence", confidence).
		Msg("✅ Position opened")
	return nil
}

// Close settles an open position. When payout is nil the default is
// 2x size on WIN and 0 on LOSS.
func (p *Portfolio) Close(marketID, outcome string, payout *decimal.Decimal) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	pos, ok := p.positions[marketID]
	if !ok || pos.Status != types.StatusOpen {
		log.Error().Str("market", marketID).Msg("Position not found")
		return fmt.Errorf("no open position on market %s", marketID)
	}

	var paid decimal.Decimal
	if payout != nil {
		paid = *payout
	} else if outcome == types.OutcomeWin {
		paid = pos.Size.Mul(decimal.NewFromInt(2))
	} else {
		paid = decimal.Zero
	}

	p.availableBalance = p.availableBalance.Add(paid)
	profit := paid.Sub(pos.Size)
	p.totalProfit = p.totalProfit.Add(profit)

	if outcome == types.OutcomeWin {
		p.winningTrades++
	} else {
		p.losingTrades++
	}

	now := time.Now().UTC()
	pos.Status = types.StatusClosed
	pos.Outcome = outcome
	pos.Payout = paid
	pos.Profit = profit
	pos.ClosedAt = &now

	log.Info().
		Str("market", marketID).
		Str("outcome", outcome).
		Str("pnl", profit.StringFixed(2)).
		Msg("📈 Position closed")
	return nil
}

// Stats returns the current portfolio statistics.
func (p *Portfolio) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	open := 0
	totalValue := p.availableBalance
	for _, pos := range p.positions {
		if pos.Status == types.StatusOpen {
			open++
			totalValue = totalValue.Add(pos.Size)
		}
	}

	winRate := 0.0
	if p.totalTrades > 0 {
		winRate = float64(p.winningTrades) / float64(p.totalTrades) * 100
	}
	roi := 0.0
	if !p.initialCapital.IsZero() {
		roi, _ = totalValue.Sub(p.initialCapital).Div(p.initialCapital).Mul(decimal.NewFromInt(100)).Float64()
	}

	return Stats{
		InitialCapital:   p.initialCapital,
		AvailableBalance: p.availableBalance.Round(2),
		TotalValue:       totalValue.Round(2),
		OpenPositions:    open,
		TotalTrades:      p.totalTrades,
		WinningTrades:    p.winningTrades,
		LosingTrades:     p.losingTrades,
		WinRate:          winRate,
		TotalProfit:      p.totalProfit.Round(2),
		ROI:              roi,
	}
}

// Reset restores the portfolio to its initial state.
func (p *Portfolio) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.availableBalance = p.initialCapital
	p.positions = make(map[string]*Position)
	p.totalTrades = 0
	p.winningTrades = 0
	p.losingTrades = 0
	p.totalProfit = decimal.Zero
	log.Info().Msg("🔄 Portfolio reset")
}
