package portfolio

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/snipebot/types"
)

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func TestOpenCloseWinAccounting(t *testing.T) {
	p := New(d(10000))

	require.NoError(t, p.Open("m1", types.SideYes, d(200), 0.7))
	assert.True(t, p.Balance().Equal(d(9800)))

	require.NoError(t, p.Close("m1", types.OutcomeWin, nil))

	stats := p.Stats()
	assert.True(t, stats.AvailableBalance.Equal(d(10200)))
	assert.True(t, stats.TotalProfit.Equal(d(200)))
	assert.Equal(t, 1, stats.WinningTrades)
	assert.Equal(t, 100.0, stats.WinRate)
}

func TestCloseLossDefaultsToZeroPayout(t *testing.T) {
	p := New(d(10000))
	require.NoError(t, p.Open("m1", types.SideNo, d(300), 0.6))
	require.NoError(t, p.Close("m1", types.OutcomeLoss, nil))

	stats := p.Stats()
	assert.True(t, stats.AvailableBalance.Equal(d(9700)))
	assert.True(t, stats.TotalProfit.Equal(d(-300)))
	assert.Equal(t, 1, stats.LosingTrades)
}

func TestCloseExplicitPayout(t *testing.T) {
	p := New(d(10000))
	require.NoError(t, p.Open("m1", types.SideYes, d(100), 0.6))
	payout := d(150)
	require.NoError(t, p.Close("m1", types.OutcomeWin, &payout))
	assert.True(t, p.Balance().Equal(d(10050)))
}

func TestConservationInvariant(t *testing.T) {
	p := New(d(10000))
	require.NoError(t, p.Open("m1", types.SideYes, d(200), 0.6))
	require.NoError(t, p.Open("m2", types.SideYes, d(300), 0.6))
	require.NoError(t, p.Close("m1", types.OutcomeWin, nil))

	stats := p.Stats()
	// available + open sizes = initial + realized profit
	lhs := stats.AvailableBalance.Add(d(300))
	rhs := d(10000).Add(stats.TotalProfit)
	assert.True(t, lhs.Equal(rhs), "lhs=%s rhs=%s", lhs, rhs)
}

func TestOpenRejectsInsufficientBalance(t *testing.T) {
	p := New(d(100))
	err := p.Open("m1", types.SideYes, d(500), 0.6)
	assert.Error(t, err)
	assert.True(t, p.Balance().Equal(d(100)))
}

func TestOpenRejectsDuplicatePosition(t *testing.T) {
	p := New(d(10000))
	require.NoError(t, p.Open("m1", types.SideYes, d(100), 0.6))
	assert.Error(t, p.Open("m1", types.SideNo, d(100), 0.6))
}

func TestCloseUnknownPosition(t *testing.T) {
	p := New(d(10000))
	assert.Error(t, p.Close("nope", types.OutcomeWin, nil))
}

func TestPositionSizeScalesWithConfidence(t *testing.T) {
	p := New(d(10000))

	// Base 2% at confidence <= 0.5.
	assert.True(t, p.PositionSize(0.5).Equal(d(200)))

	// Scaled by conf/0.5, capped at 5%.
	assert.True(t, p.PositionSize(0.6).Equal(d(240)))
	assert.True(t, p.PositionSize(1.0).Equal(d(400)))
	assert.True(t, p.PositionSize(2.0).Equal(d(500)))
}

func TestPositionSizeFloor(t *testing.T) {
	p := New(d(100))
	// 2% of $100 is $2; the floor lifts it to $10.
	assert.True(t, p.PositionSize(0.5).Equal(d(10)))
}

func TestReset(t *testing.T) {
	p := New(d(10000))
	require.NoError(t, p.Open("m1", types.SideYes, d(200), 0.6))
	require.NoError(t, p.Close("m1", types.OutcomeWin, nil))

	p.Reset()
	stats := p.Stats()
	assert.True(t, stats.AvailableBalance.Equal(d(10000)))
	assert.Equal(t, 0, stats.TotalTrades)
	assert.True(t, stats.TotalProfit.IsZero())
	assert.Equal(t, 0, stats.OpenPositions)
}
