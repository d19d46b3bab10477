package smartmoney

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/snipebot/types"
)

type fixedGrades struct {
	grades map[string]types.Grade
}

func (f *fixedGrades) GetGrade(_ context.Context, address string) types.Grade {
	if g, ok := f.grades[address]; ok {
		return g
	}
	return types.GradeUnknown
}

type captureEmitter struct {
	signals []types.Signal
}

func (c *captureEmitter) Emit(_ context.Context, sigType types.SignalType, marketID string, side types.Side, magnitude float64, metadata map[string]any) error {
	c.signals = append(c.signals, types.Signal{
		Type: sigType, MarketID: marketID, Side: side, Magnitude: magnitude, Metadata: metadata,
	})
	return nil
}

func order(market, wallet string, side types.Side, size int64, at time.Time) Order {
	return Order{MarketID: market, Wallet: wallet, Side: side, Size: decimal.NewFromInt(size), SeenAt: at}
}

func TestBurstFiresOnThreeGradeAWallets(t *testing.T) {
	grades := &fixedGrades{grades: map[string]types.Grade{
		"0xa1": types.GradeA, "0xa2": types.GradeA, "0xa3": types.GradeA,
	}}
	emitter := &captureEmitter{}
	tr := NewTracker(grades, emitter)

	base := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return base.Add(25 * time.Second) }

	tr.StartTracking("M")
	ctx := context.Background()
	tr.TrackOrder(ctx, order("M", "0xa1", types.SideYes, 200, base))
	tr.TrackOrder(ctx, order("M", "0xa2", types.SideYes, 200, base.Add(10*time.Second)))
	tr.TrackOrder(ctx, order("M", "0xa3", types.SideYes, 200, base.Add(25*time.Second)))

	require.Len(t, emitter.signals, 1)
	sig := emitter.signals[0]
	assert.Equal(t, types.SignalSmartMoney, sig.Type)
	assert.Equal(t, "M", sig.MarketID)
	assert.Equal(t, types.SideYes, sig.Side)
	assert.InDelta(t, 0.246, sig.Magnitude, 1e-9)
	assert.Equal(t, 3, sig.Metadata["wallet_count"])
	assert.Equal(t, 600.0, sig.Metadata["total_size"])
}

func TestTwoWalletsManyOrdersDoNotFire(t *testing.T) {
	grades := &fixedGrades{grades: map[string]types.Grade{
		"0xa1": types.GradeA, "0xa2": types.GradeA,
	}}
	emitter := &captureEmitter{}
	tr := NewTracker(grades, emitter)

	base := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return base }

	tr.StartTracking("M")
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		tr.TrackOrder(ctx, order("M", "0xa1", types.SideYes, 500, base))
		tr.TrackOrder(ctx, order("M", "0xa2", types.SideYes, 500, base))
	}

	assert.Empty(t, emitter.signals)
}

func TestLowGradeWalletsIgnored(t *testing.T) {
	grades := &fixedGrades{grades: map[string]types.Grade{
		"0xc1": types.GradeC, "0xd1": types.GradeD, "0xa1": types.GradeA,
	}}
	emitter := &captureEmitter{}
	tr := NewTracker(grades, emitter)

	base := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return base }

	tr.StartTracking("M")
	ctx := context.Background()
	tr.TrackOrder(ctx, order("M", "0xc1", types.SideYes, 500, base))
	tr.TrackOrder(ctx, order("M", "0xd1", types.SideYes, 500, base))
	tr.TrackOrder(ctx, order("M", "0xa1", types.SideYes, 500, base))

	assert.Empty(t, emitter.signals)
}

func TestBurstBelowSizeThresholdDoesNotFire(t *testing.T) {
	grades := &fixedGrades{grades: map[string]types.Grade{
		"0xa1": types.GradeA, "0xa2": types.GradeA, "0xa3": types.GradeA,
	}}
	emitter := &captureEmitter{}
	tr := NewTracker(grades, emitter)

	base := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return base }

	tr.StartTracking("M")
	ctx := context.Background()
	tr.TrackOrder(ctx, order("M", "0xa1", types.SideYes, 100, base))
	tr.TrackOrder(ctx, order("M", "0xa2", types.SideYes, 100, base))
	tr.TrackOrder(ctx, order("M", "0xa3", types.SideYes, 100, base))

	assert.Empty(t, emitter.signals)
}

func TestMixedGradesWeightAverage(t *testing.T) {
	grades := &fixedGrades{grades: map[string]types.Grade{
		"0xa1": types.GradeA, "0xa2": types.GradeA, "0xb1": types.GradeB,
	}}
	emitter := &captureEmitter{}
	tr := NewTracker(grades, emitter)

	base := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return base }

	tr.StartTracking("M")
	ctx := context.Background()
	tr.TrackOrder(ctx, order("M", "0xa1", types.SideYes, 200, base))
	tr.TrackOrder(ctx, order("M", "0xa2", types.SideYes, 200, base))
	tr.TrackOrder(ctx, order("M", "0xb1", types.SideYes, 200, base))

	require.Len(t, emitter.signals, 1)
	// (3/10·0.7 + 600/5000·0.3) · (1+1+0.75)/3
	avg := (1.0 + 1.0 + 0.75) / 3
	assert.InDelta(t, 0.246*avg, emitter.signals[0].Magnitude, 1e-9)
}

func TestBurstEmitsOncePerCooldown(t *testing.T) {
	grades := &fixedGrades{grades: map[string]types.Grade{
		"0xa1": types.GradeA, "0xa2": types.GradeA, "0xa3": types.GradeA, "0xa4": types.GradeA,
	}}
	emitter := &captureEmitter{}
	tr := NewTracker(grades, emitter)

	base := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return base }

	tr.StartTracking("M")
	ctx := context.Background()
	tr.TrackOrder(ctx, order("M", "0xa1", types.SideYes, 300, base))
	tr.TrackOrder(ctx, order("M", "0xa2", types.SideYes, 300, base))
	tr.TrackOrder(ctx, order("M", "0xa3", types.SideYes, 300, base))
	// Fourth order extends the same burst; the cooldown holds it back.
	tr.TrackOrder(ctx, order("M", "0xa4", types.SideYes, 300, base))

	assert.Len(t, emitter.signals, 1)
}

func TestOppositeSideOrderDoesNotReEmitBurst(t *testing.T) {
	grades := &fixedGrades{grades: map[string]types.Grade{
		"0xa1": types.GradeA, "0xa2": types.GradeA, "0xa3": types.GradeA, "0xb1": types.GradeB,
	}}
	emitter := &captureEmitter{}
	tr := NewTracker(grades, emitter)

	base := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return base }

	tr.StartTracking("M")
	ctx := context.Background()
	tr.TrackOrder(ctx, order("M", "0xa1", types.SideYes, 300, base))
	tr.TrackOrder(ctx, order("M", "0xa2", types.SideYes, 300, base))
	tr.TrackOrder(ctx, order("M", "0xa3", types.SideYes, 300, base))
	require.Len(t, emitter.signals, 1)

	// A NO order while the YES window is still satisfied evaluates its
	// own side only and must not re-fire the YES burst.
	tr.TrackOrder(ctx, order("M", "0xb1", types.SideNo, 600, base))

	require.Len(t, emitter.signals, 1)
	assert.Equal(t, types.SideYes, emitter.signals[0].Side)
}

func TestUntrackedMarketIgnored(t *testing.T) {
	grades := &fixedGrades{grades: map[string]types.Grade{"0xa1": types.GradeA}}
	emitter := &captureEmitter{}
	tr := NewTracker(grades, emitter)

	tr.TrackOrder(context.Background(), order("M", "0xa1", types.SideYes, 1000, time.Now()))
	tr.mu.Lock()
	defer tr.mu.Unlock()
	assert.Empty(t, tr.tracked)
}

func TestStopTrackingClearsState(t *testing.T) {
	grades := &fixedGrades{grades: map[string]types.Grade{"0xa1": types.GradeA}}
	tr := NewTracker(grades, nil)

	tr.StartTracking("M")
	tr.TrackOrder(context.Background(), order("M", "0xa1", types.SideYes, 100, time.Now()))
	tr.StopTracking("M")

	assert.Empty(t, tr.Tracked())
}

func TestGCDropsOldEntries(t *testing.T) {
	grades := &fixedGrades{grades: map[string]types.Grade{"0xa1": types.GradeA}}
	tr := NewTracker(grades, nil)

	base := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return base }
	tr.StartTracking("M")
	tr.TrackOrder(context.Background(), order("M", "0xa1", types.SideYes, 100, base.Add(-10*time.Minute)))

	tr.GC(0)

	tr.mu.Lock()
	defer tr.mu.Unlock()
	assert.Empty(t, tr.tracked["M"])
}
