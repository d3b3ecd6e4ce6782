package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/model"
)

func saveWager(t *testing.T, env *testEnv, w *model.Wager) {
	t.Helper()
	require.NoError(t, env.wagers.Save(context.Background(), w))
}

func TestRankingService_TopWinners(t *testing.T) {
	env := newTestEnv(t, "0")
	stake := decimal.NewFromInt(10)

	saveWager(t, env, &model.Wager{
		ID:           "1",
		StakeAmount:  stake,
		Status:       model.StatusCompleted,
		Participants: []string{"alice", "bob", "carol"},
		Winners:      []string{"alice"},
		Payouts: []model.Payout{
			{Participant: "alice", Amount: decimal.NewFromInt(30), Kind: model.PayoutKindWinnings, Succeeded: true},
		},
	})
	saveWager(t, env, &model.Wager{
		ID:           "2",
		StakeAmount:  stake,
		Status:       model.StatusCompleted,
		Participants: []string{"bob", "carol"},
		Winners:      []string{"bob", "carol"},
		Payouts: []model.Payout{
			{Participant: "bob", Amount: stake, Kind: model.PayoutKindWinnings, Succeeded: true},
			{Participant: "carol", Amount: stake, Kind: model.PayoutKindWinnings, Succeeded: false, Error: "timeout"},
		},
	})
	// Open and cancelled wagers do not count.
	saveWager(t, env, &model.Wager{
		ID:           "3",
		StakeAmount:  stake,
		Status:       model.StatusWaitingForParticipant,
		Participants: []string{"dave"},
	})
	saveWager(t, env, &model.Wager{
		ID:           "4",
		StakeAmount:  stake,
		Status:       model.StatusCancelled,
		Participants: []string{"erin", "frank"},
	})

	svc := NewRankingService(env.wagers)
	top, err := svc.TopWinners(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, top, 3)

	assert.Equal(t, "alice", top[0].UserID)
	assert.Equal(t, "20", top[0].Net.String())
	assert.Equal(t, 1, top[0].Wins)

	assert.Equal(t, "bob", top[1].UserID)
	assert.Equal(t, "-10", top[1].Net.String())
	assert.Equal(t, 2, top[1].Played)

	assert.Equal(t, "carol", top[2].UserID)
	assert.Equal(t, "-20", top[2].Net.String())

	top, err = svc.TopWinners(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)
}

func TestRankingService_Empty(t *testing.T) {
	env := newTestEnv(t, "0")
	top, err := NewRankingService(env.wagers).TopWinners(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, top)
}
