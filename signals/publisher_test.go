package signals

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/snipebot/types"
)

type memSignalStore struct {
	mu      sync.Mutex
	signals []types.Signal
	saved   chan struct{}
}

func newMemSignalStore() *memSignalStore {
	return &memSignalStore{saved: make(chan struct{}, 16)}
}

func (m *memSignalStore) SaveSignal(sig types.Signal) error {
	m.mu.Lock()
	m.signals = append(m.signals, sig)
	m.mu.Unlock()
	m.saved <- struct{}{}
	return nil
}

type captureNotifier struct {
	mu       sync.Mutex
	critical []types.Signal
	notified chan struct{}
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{notified: make(chan struct{}, 16)}
}

func (c *captureNotifier) CriticalAlert(sig types.Signal) {
	c.mu.Lock()
	c.critical = append(c.critical, sig)
	c.mu.Unlock()
	c.notified <- struct{}{}
}

func fixedNow() time.Time {
	return time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
}

func expectedPayload(t *testing.T, sigType types.SignalType, marketID string, side types.Side, magnitude float64, metadata map[string]any) []byte {
	t.Helper()
	payload, err := json.Marshal(types.Signal{
		Type: sigType, MarketID: marketID, Side: side, Magnitude: magnitude,
		Timestamp: fixedNow(), Metadata: metadata,
	})
	require.NoError(t, err)
	return payload
}

func TestEmitBroadcastsAndRecordsHistory(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	payload := expectedPayload(t, types.SignalSmartMoney, "m1", types.SideYes, 0.246, map[string]any{"wallet_count": 3})

	mock.ExpectPublish("snipe_signals", payload).SetVal(1)
	mock.ExpectLPush("signals:m1", payload).SetVal(1)
	mock.ExpectLTrim("signals:m1", 0, 99).SetVal("OK")

	store := newMemSignalStore()
	p := New(rdb, store, nil)
	p.now = fixedNow

	err := p.Emit(context.Background(), types.SignalSmartMoney, "m1", types.SideYes, 0.246, map[string]any{"wallet_count": 3})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	// Persistence is async.
	select {
	case <-store.saved:
	case <-time.After(time.Second):
		t.Fatal("signal was not persisted")
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.signals, 1)
	assert.Equal(t, "m1", store.signals[0].MarketID)
}

func TestEmitNotifiesOnCriticalOnly(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.MatchExpectationsInOrder(false)
	mock.Regexp().ExpectPublish("snipe_signals", `.*`).SetVal(1)
	mock.Regexp().ExpectLPush("signals:m1", `.*`).SetVal(1)
	mock.ExpectLTrim("signals:m1", 0, 99).SetVal("OK")
	mock.Regexp().ExpectPublish("snipe_signals", `.*`).SetVal(1)
	mock.Regexp().ExpectLPush("signals:m2", `.*`).SetVal(1)
	mock.ExpectLTrim("signals:m2", 0, 99).SetVal("OK")

	notifier := newCaptureNotifier()
	p := New(rdb, nil, notifier)
	p.now = fixedNow

	require.NoError(t, p.Emit(context.Background(), types.SignalCriticalSnipe, "m1", types.SideYes, 0.9, nil))
	require.NoError(t, p.Emit(context.Background(), types.SignalListenerMatch, "m2", types.SideYes, 0.5, nil))

	select {
	case <-notifier.notified:
	case <-time.After(time.Second):
		t.Fatal("critical alert was not dispatched")
	}
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.Len(t, notifier.critical, 1)
	assert.Equal(t, types.SignalCriticalSnipe, notifier.critical[0].Type)
}

func TestEmitPersistsDespiteBroadcastFailure(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.Regexp().ExpectPublish("snipe_signals", `.*`).SetErr(assert.AnError)
	mock.Regexp().ExpectLPush("signals:m1", `.*`).SetVal(1)
	mock.ExpectLTrim("signals:m1", 0, 99).SetVal("OK")

	store := newMemSignalStore()
	p := New(rdb, store, nil)
	p.now = fixedNow

	err := p.Emit(context.Background(), types.SignalSpike, "m1", types.SideYes, 0.4, nil)
	assert.Error(t, err)

	select {
	case <-store.saved:
	case <-time.After(time.Second):
		t.Fatal("signal was not persisted after broadcast failure")
	}
}

func TestRecentDecodesHistory(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	sig := types.Signal{Type: types.SignalSmartMoney, MarketID: "m1", Side: types.SideNo, Magnitude: 0.3, Timestamp: fixedNow()}
	raw, err := json.Marshal(sig)
	require.NoError(t, err)

	mock.ExpectLRange("signals:m1", 0, 9).SetVal([]string{string(raw), "not-json"})

	p := New(rdb, nil, nil)
	got, err := p.Recent(context.Background(), "m1", 10)
	require.NoError(t, err)
	// Corrupt entries are skipped.
	require.Len(t, got, 1)
	assert.Equal(t, types.SideNo, got[0].Side)
	assert.NoError(t, mock.ExpectationsWereMet())
}
