package smartmoney

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/snipebot/types"
)

func TestScoreEmptyHistoryGradesD(t *testing.T) {
	ws := Score(nil)
	assert.Equal(t, types.GradeD, ws.Grade)
	assert.Zero(t, ws.FinalScore)
}

func TestScoreIsPure(t *testing.T) {
	trades := []types.WalletTrade{
		{Outcome: types.OutcomeWin, Profit: 100, BetSize: 100},
		{Outcome: types.OutcomeLoss, Profit: -50, BetSize: 100},
	}
	first := Score(trades)
	second := Score(trades)
	assert.Equal(t, first, second)
}

func TestScorePerfectWallet(t *testing.T) {
	// All wins, fast entries: success 1.0, timing ~1.0.
	var trades []types.WalletTrade
	for i := 0; i < 10; i++ {
		trades = append(trades, types.WalletTrade{
			Outcome:        types.OutcomeWin,
			Profit:         100,
			BetSize:        100,
			TimeToMove:     60,
			MarketDuration: 86400,
		})
	}
	ws := Score(trades)
	assert.Equal(t, 1.0, ws.SuccessRate)
	assert.Greater(t, ws.TimingScore, 0.99)
	assert.Equal(t, types.GradeA, ws.Grade)
	assert.Equal(t, 10, ws.TotalMarkets)
	require.NotNil(t, ws.AvgEntryTiming)
	assert.Equal(t, 60.0, *ws.AvgEntryTiming)
}

func TestScoreLosingWalletGradesLow(t *testing.T) {
	var trades []types.WalletTrade
	for i := 0; i < 10; i++ {
		trades = append(trades, types.WalletTrade{
			Outcome: types.OutcomeLoss,
			Profit:  -100,
			BetSize: 100,
		})
	}
	ws := Score(trades)
	assert.Zero(t, ws.SuccessRate)
	// Default timing 0.5 when no timing data.
	assert.Equal(t, 0.5, ws.TimingScore)
	assert.Contains(t, []types.Grade{types.GradeC, types.GradeD}, ws.Grade)
}

func TestAssignGradeThresholds(t *testing.T) {
	assert.Equal(t, types.GradeA, assignGrade(0.80))
	assert.Equal(t, types.GradeB, assignGrade(0.79))
	assert.Equal(t, types.GradeB, assignGrade(0.60))
	assert.Equal(t, types.GradeC, assignGrade(0.59))
	assert.Equal(t, types.GradeC, assignGrade(0.40))
	assert.Equal(t, types.GradeD, assignGrade(0.39))
}

type memScoreStore struct {
	scores map[string]types.WalletScore
}

func (m *memScoreStore) WalletScore(address string) (*types.WalletScore, error) {
	if ws, ok := m.scores[address]; ok {
		return &ws, nil
	}
	return nil, nil
}

func (m *memScoreStore) SaveWalletScore(ws types.WalletScore) error {
	m.scores[ws.Address] = ws
	return nil
}

func TestGetGradeCacheHit(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectGet("wallet_score:0xabc").SetVal("A")

	s := NewScorer(rdb, nil)
	grade := s.GetGrade(context.Background(), "0xabc")
	assert.Equal(t, types.GradeA, grade)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetGradeFallsBackToStore(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectGet("wallet_score:0xdef").RedisNil()
	mock.ExpectSet("wallet_score:0xdef", "B", time.Hour).SetVal("OK")

	store := &memScoreStore{scores: map[string]types.WalletScore{
		"0xdef": {Address: "0xdef", Grade: types.GradeB},
	}}
	s := NewScorer(rdb, store)
	grade := s.GetGrade(context.Background(), "0xdef")
	assert.Equal(t, types.GradeB, grade)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetGradeUnknownWallet(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectGet("wallet_score:0x404").RedisNil()

	store := &memScoreStore{scores: map[string]types.WalletScore{}}
	s := NewScorer(rdb, store)
	assert.Equal(t, types.GradeUnknown, s.GetGrade(context.Background(), "0x404"))
}

func TestUpdateScorePersistsAndCaches(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.Regexp().ExpectSet("wallet_score:0xaaa", "[A-D]", time.Hour).SetVal("OK")

	store := &memScoreStore{scores: map[string]types.WalletScore{}}
	s := NewScorer(rdb, store)

	ws, err := s.UpdateScore(context.Background(), "0xaaa", []types.WalletTrade{
		{Outcome: types.OutcomeWin, Profit: 50, BetSize: 100},
	})
	require.NoError(t, err)
	assert.Equal(t, "0xaaa", ws.Address)
	assert.Contains(t, store.scores, "0xaaa")
	assert.NoError(t, mock.ExpectationsWereMet())
}
