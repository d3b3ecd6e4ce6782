package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/model"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/pkg/sealer"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/repository"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/store"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/wallet"
)

type testEnv struct {
	engine *Engine
	ledger *wallet.Ledger
	wagers *repository.WagerRepository
}

func newTestEnv(t testing.TB, opts ...Option) *testEnv {
	s, err := store.NewFileStore(afero.NewMemMapFs(), "/data")
	require.NoError(t, err)
	sl, err := sealer.New("engine-test")
	require.NoError(t, err)

	ledger := wallet.NewLedger(
		repository.NewWalletRepository(s),
		repository.NewTransactionRepository(s),
		sl,
		wallet.WithInitialBalance(decimal.NewFromInt(100)),
	)
	wagers := repository.NewWagerRepository(s)
	return &testEnv{
		engine: NewEngine(wagers, ledger, opts...),
		ledger: ledger,
		wagers: wagers,
	}
}

func (env *testEnv) balance(t testing.TB, key string) decimal.Decimal {
	h, err := env.ledger.GetOrCreateWallet(context.Background(), key)
	require.NoError(t, err)
	bal, err := env.ledger.Balance(context.Background(), h)
	require.NoError(t, err)
	return bal
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestEngine_CreateWager(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	w, err := env.engine.CreateWager(ctx, "alice", dec("5"), CreateOptions{Topic: "rain tomorrow"})
	require.NoError(t, err)

	assert.Equal(t, "1", w.ID)
	assert.Equal(t, model.StatusCreated, w.Status)
	assert.Empty(t, w.Participants, "creator is not auto-enrolled")
	assert.Equal(t, "wager:1", w.WalletReference)
	assert.True(t, env.balance(t, w.WalletReference).IsZero())

	second, err := env.engine.CreateWager(ctx, "alice", dec("1"), CreateOptions{Options: []string{"Heads", "Tails"}})
	require.NoError(t, err)
	assert.Equal(t, "2", second.ID)
	assert.Equal(t, []string{"Heads", "Tails"}, second.OutcomeOptions)

	stored, err := env.engine.GetWager(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, w.Topic, stored.Topic)
}

func TestEngine_CreateWagerValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.engine.CreateWager(ctx, "alice", dec("0"), CreateOptions{})
	assert.ErrorIs(t, err, ErrInvalidStake)

	_, err = env.engine.CreateWager(ctx, "alice", dec("-1"), CreateOptions{})
	assert.ErrorIs(t, err, ErrInvalidStake)

	_, err = env.engine.CreateWager(ctx, "alice", dec("0.0000001"), CreateOptions{})
	assert.ErrorIs(t, err, ErrInvalidStake)

	_, err = env.engine.CreateWager(ctx, "alice", dec("1"), CreateOptions{Options: []string{"only"}})
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = env.engine.CreateWager(ctx, "", dec("1"), CreateOptions{})
	assert.ErrorIs(t, err, ErrInvalidParticipant)

	active, err := env.engine.ListActiveWagers(ctx)
	require.NoError(t, err)
	assert.Empty(t, active, "rejected requests create nothing")
}

// Stake 5, yes vs no, resolve yes: the single winner receives the pot of 10.
func TestEngine_TwoPlayerWinnerTakesPot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	w, err := env.engine.CreateWager(ctx, "alice", dec("5"), CreateOptions{})
	require.NoError(t, err)

	_, err = env.engine.JoinWager(ctx, w.ID, "p1", "yes")
	require.NoError(t, err)
	joined, err := env.engine.JoinWager(ctx, w.ID, "p2", "no")
	require.NoError(t, err)
	assert.Equal(t, model.StatusWaitingForParticipant, joined.Status)
	assert.True(t, env.balance(t, w.WalletReference).Equal(dec("10")))

	resolved, err := env.engine.ResolveWager(ctx, w.ID, "yes")
	require.NoError(t, err)

	assert.Equal(t, model.StatusCompleted, resolved.Status)
	assert.Equal(t, "yes", resolved.ResolvedOutcome)
	assert.Equal(t, []string{"p1"}, resolved.Winners)
	assert.True(t, resolved.PayoutSucceeded)
	require.Len(t, resolved.Payouts, 1)
	assert.True(t, resolved.Payouts[0].Amount.Equal(dec("10")))
	assert.NotEmpty(t, resolved.Payouts[0].Reference)
	assert.NotNil(t, resolved.ResolvedAt)

	assert.True(t, env.balance(t, wallet.UserKey("p1")).Equal(dec("105")))
	assert.True(t, env.balance(t, wallet.UserKey("p2")).Equal(dec("95")))
	assert.True(t, env.balance(t, w.WalletReference).IsZero())
}

// Stake 2, yes/yes/no, resolve yes: pot 6, two winners get 3 each.
func TestEngine_SplitPotAmongWinners(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	w, err := env.engine.CreateWager(ctx, "alice", dec("2"), CreateOptions{})
	require.NoError(t, err)
	for p, choice := range map[string]string{"p1": "yes", "p2": "yes", "p3": "no"} {
		_, err := env.engine.JoinWager(ctx, w.ID, p, choice)
		require.NoError(t, err)
	}

	resolved, err := env.engine.ResolveWager(ctx, w.ID, "YES")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"p1", "p2"}, resolved.Winners)
	assert.True(t, resolved.TotalPot().Equal(dec("6")))
	for _, p := range resolved.Payouts {
		assert.True(t, p.Amount.Equal(dec("3")), "share %s", p.Amount)
		assert.True(t, p.Succeeded)
	}
	assert.True(t, env.balance(t, wallet.UserKey("p1")).Equal(dec("101")))
	assert.True(t, env.balance(t, wallet.UserKey("p3")).Equal(dec("98")))
}

func TestEngine_JoinCompletedWagerFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	w := setupResolved(t, env)
	before, err := env.engine.GetWager(ctx, w.ID)
	require.NoError(t, err)

	_, err = env.engine.JoinWager(ctx, w.ID, "late", "yes")
	assert.ErrorIs(t, err, ErrInvalidState)

	after, err := env.engine.GetWager(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.True(t, env.balance(t, wallet.UserKey("late")).Equal(dec("100")), "no stake taken")
}

func TestEngine_ResolveUndeclaredOptionFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	w, err := env.engine.CreateWager(ctx, "alice", dec("1"), CreateOptions{Options: []string{"Lakers", "Celtics"}})
	require.NoError(t, err)
	_, err = env.engine.JoinWager(ctx, w.ID, "p1", "lakers")
	require.NoError(t, err)
	_, err = env.engine.JoinWager(ctx, w.ID, "p2", "celtics")
	require.NoError(t, err)

	_, err = env.engine.ResolveWager(ctx, w.ID, "Knicks")
	assert.ErrorIs(t, err, ErrInvalidOutcome)

	stored, err := env.engine.GetWager(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusWaitingForParticipant, stored.Status)
	assert.Empty(t, stored.ResolvedOutcome)
}

func TestEngine_JoinTwiceFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	w, err := env.engine.CreateWager(ctx, "alice", dec("1"), CreateOptions{})
	require.NoError(t, err)
	_, err = env.engine.JoinWager(ctx, w.ID, "p1", "yes")
	require.NoError(t, err)

	_, err = env.engine.JoinWager(ctx, w.ID, "p1", "no")
	assert.ErrorIs(t, err, ErrDuplicateParticipant)

	stored, err := env.engine.GetWager(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, stored.Participants)
	assert.Equal(t, "yes", stored.ParticipantChoices["p1"])
	assert.True(t, env.balance(t, wallet.UserKey("p1")).Equal(dec("99")))
}

func TestEngine_JoinUnknownWager(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.JoinWager(context.Background(), "404", "p1", "yes")
	assert.ErrorIs(t, err, ErrWagerNotFound)
}

func TestEngine_JoinInsufficientBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	w, err := env.engine.CreateWager(ctx, "alice", dec("150"), CreateOptions{})
	require.NoError(t, err)

	_, err = env.engine.JoinWager(ctx, w.ID, "p1", "yes")
	assert.ErrorIs(t, err, ErrPaymentFailed)
	assert.ErrorIs(t, err, wallet.ErrInsufficientBalance)

	stored, err := env.engine.GetWager(ctx, w.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Participants)
	assert.Equal(t, model.StatusCreated, stored.Status)
}

func TestEngine_ResolveRequiresTwoParticipants(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	w, err := env.engine.CreateWager(ctx, "alice", dec("1"), CreateOptions{})
	require.NoError(t, err)
	_, err = env.engine.ResolveWager(ctx, w.ID, "yes")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = env.engine.JoinWager(ctx, w.ID, "p1", "yes")
	require.NoError(t, err)
	_, err = env.engine.ResolveWager(ctx, w.ID, "yes")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestEngine_ResolveTwiceFails(t *testing.T) {
	env := newTestEnv(t)
	w := setupResolved(t, env)

	_, err := env.engine.ResolveWager(context.Background(), w.ID, "yes")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestEngine_NoWinnerCancels(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	w, err := env.engine.CreateWager(ctx, "alice", dec("1"), CreateOptions{Options: []string{"a", "b", "c"}})
	require.NoError(t, err)
	_, err = env.engine.JoinWager(ctx, w.ID, "p1", "a")
	require.NoError(t, err)
	_, err = env.engine.JoinWager(ctx, w.ID, "p2", "b")
	require.NoError(t, err)

	resolved, err := env.engine.ResolveWager(ctx, w.ID, "c")
	require.NoError(t, err)

	assert.Equal(t, model.StatusCancelled, resolved.Status)
	assert.False(t, resolved.PayoutSucceeded)
	assert.Equal(t, "c", resolved.ResolvedOutcome)
	assert.Empty(t, resolved.Winners)
	assert.Empty(t, resolved.Payouts)
	assert.True(t, env.balance(t, w.WalletReference).Equal(dec("2")), "stakes stay in escrow")
}

func TestEngine_NoWinnerRefundsWhenEnabled(t *testing.T) {
	env := newTestEnv(t, WithRefundOnCancel(true))
	ctx := context.Background()

	w, err := env.engine.CreateWager(ctx, "alice", dec("2"), CreateOptions{Options: []string{"a", "b", "c"}})
	require.NoError(t, err)
	_, err = env.engine.JoinWager(ctx, w.ID, "p1", "a")
	require.NoError(t, err)
	_, err = env.engine.JoinWager(ctx, w.ID, "p2", "b")
	require.NoError(t, err)

	resolved, err := env.engine.ResolveWager(ctx, w.ID, "c")
	require.NoError(t, err)

	assert.Equal(t, model.StatusCancelled, resolved.Status)
	require.Len(t, resolved.Payouts, 2)
	assert.Equal(t, model.PayoutKindRefund, resolved.Payouts[0].Kind)
	assert.True(t, env.balance(t, wallet.UserKey("p1")).Equal(dec("100")))
	assert.True(t, env.balance(t, w.WalletReference).IsZero())
}

func TestEngine_RandomPolicy(t *testing.T) {
	env := newTestEnv(t, WithResolver(NewRandomOutcome(func(int) int { return 1 })))
	ctx := context.Background()

	w, err := env.engine.CreateWager(ctx, "alice", dec("1"), CreateOptions{})
	require.NoError(t, err)
	_, err = env.engine.JoinWager(ctx, w.ID, "p1", "yes")
	require.NoError(t, err)
	_, err = env.engine.JoinWager(ctx, w.ID, "p2", "no")
	require.NoError(t, err)

	resolved, err := env.engine.ResolveWager(ctx, w.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "no", resolved.ResolvedOutcome)
	assert.Equal(t, []string{"p2"}, resolved.Winners)
}

func TestEngine_Cancel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	w, err := env.engine.CreateWager(ctx, "alice", dec("3"), CreateOptions{})
	require.NoError(t, err)
	_, err = env.engine.JoinWager(ctx, w.ID, "p1", "yes")
	require.NoError(t, err)

	cancelled, err := env.engine.CancelWager(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)
	assert.Empty(t, cancelled.Payouts, "refunds are off by default")
	assert.True(t, env.balance(t, wallet.UserKey("p1")).Equal(dec("97")))

	_, err = env.engine.CancelWager(ctx, w.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = env.engine.JoinWager(ctx, w.ID, "p2", "no")
	assert.ErrorIs(t, err, ErrInvalidState)

	done := setupResolved(t, env)
	_, err = env.engine.CancelWager(ctx, done.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestEngine_CancelWithRefunds(t *testing.T) {
	env := newTestEnv(t, WithRefundOnCancel(true))
	ctx := context.Background()

	w, err := env.engine.CreateWager(ctx, "alice", dec("3"), CreateOptions{})
	require.NoError(t, err)
	_, err = env.engine.JoinWager(ctx, w.ID, "p1", "yes")
	require.NoError(t, err)
	_, err = env.engine.JoinWager(ctx, w.ID, "p2", "no")
	require.NoError(t, err)

	cancelled, err := env.engine.CancelWager(ctx, w.ID)
	require.NoError(t, err)

	require.Len(t, cancelled.Payouts, 2)
	for _, p := range cancelled.Payouts {
		assert.Equal(t, model.PayoutKindRefund, p.Kind)
		assert.True(t, p.Succeeded)
	}
	assert.True(t, env.balance(t, wallet.UserKey("p1")).Equal(dec("100")))
	assert.True(t, env.balance(t, wallet.UserKey("p2")).Equal(dec("100")))
	assert.True(t, env.balance(t, w.WalletReference).IsZero())
}

// terminalSaveFailer fails saves of finished wagers once armed.
type terminalSaveFailer struct {
	WagerStore
	armed bool
}

func (f *terminalSaveFailer) Save(ctx context.Context, w *model.Wager) error {
	if f.armed && w.IsTerminal() {
		return errors.New("store offline")
	}
	return f.WagerStore.Save(ctx, w)
}

func TestEngine_CancelAfterInterruptedResolutionSkipsRefunds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	wagers := &terminalSaveFailer{WagerStore: env.wagers}
	engine := NewEngine(wagers, env.ledger, WithRefundOnCancel(true))

	w, err := engine.CreateWager(ctx, "alice", dec("5"), CreateOptions{})
	require.NoError(t, err)
	_, err = engine.JoinWager(ctx, w.ID, "p1", "yes")
	require.NoError(t, err)
	_, err = engine.JoinWager(ctx, w.ID, "p2", "no")
	require.NoError(t, err)

	wagers.armed = true
	_, err = engine.ResolveWager(ctx, w.ID, "yes")
	require.Error(t, err)
	wagers.armed = false

	stored, err := engine.GetWager(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, stored.Status)
	assert.Empty(t, stored.Payouts)
	assert.True(t, env.balance(t, wallet.UserKey("p1")).Equal(dec("105")), "winner was paid")

	cancelled, err := engine.CancelWager(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)
	assert.Empty(t, cancelled.Payouts, "no refunds from a drained escrow")
	assert.True(t, env.balance(t, wallet.UserKey("p2")).Equal(dec("95")))
	assert.True(t, env.balance(t, w.WalletReference).IsZero())
}

func TestEngine_ListActiveWagers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	open, err := env.engine.CreateWager(ctx, "alice", dec("1"), CreateOptions{})
	require.NoError(t, err)
	setupResolved(t, env)

	active, err := env.engine.ListActiveWagers(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, open.ID, active[0].ID)
}

func TestEngine_GetWagerIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	w := setupResolved(t, env)

	first, err := env.engine.GetWager(ctx, w.ID)
	require.NoError(t, err)
	second, err := env.engine.GetWager(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// TestEngine_PartialPayoutFailure uses a mock gateway whose second payout
// fails: the wager still completes and records the failure.
func TestEngine_PartialPayoutFailure(t *testing.T) {
	s, err := store.NewFileStore(afero.NewMemMapFs(), "/data")
	require.NoError(t, err)
	wagers := repository.NewWagerRepository(s)

	gw := new(MockGateway)
	gw.On("GetOrCreateWallet", mock.Anything, mock.AnythingOfType("string")).
		Return(func(_ context.Context, key string) *wallet.Handle { return handleFor(key) }, nil)
	gw.On("Transfer", mock.Anything, mock.Anything, toKey("wager:1"), mock.Anything).
		Return(&wallet.TransferResult{Success: true, Reference: "stake"}, nil)
	gw.On("Transfer", mock.Anything, mock.Anything, toKey("user:p1"), mock.Anything).
		Return(&wallet.TransferResult{Success: true, Reference: "paid"}, nil)
	gw.On("Transfer", mock.Anything, mock.Anything, toKey("user:p2"), mock.Anything).
		Return(nil, wallet.ErrPaymentAmbiguous)

	engine := NewEngine(wagers, gw)
	ctx := context.Background()

	w, err := engine.CreateWager(ctx, "alice", dec("1"), CreateOptions{})
	require.NoError(t, err)
	for _, p := range []string{"p1", "p2", "p3"} {
		choice := "yes"
		if p == "p3" {
			choice = "no"
		}
		_, err := engine.JoinWager(ctx, w.ID, p, choice)
		require.NoError(t, err)
	}

	resolved, err := engine.ResolveWager(ctx, w.ID, "yes")
	require.NoError(t, err)

	assert.Equal(t, model.StatusCompleted, resolved.Status)
	assert.False(t, resolved.PayoutSucceeded)
	require.Len(t, resolved.Payouts, 2)
	assert.True(t, resolved.Payouts[0].Succeeded)
	assert.Equal(t, "paid", resolved.Payouts[0].Reference)
	assert.False(t, resolved.Payouts[1].Succeeded)
	assert.Contains(t, resolved.Payouts[1].Error, "may still complete")
	assert.True(t, resolved.Payouts[0].Amount.Equal(dec("1.5")))

	_, err = engine.ResolveWager(ctx, w.ID, "yes")
	assert.ErrorIs(t, err, ErrInvalidState, "no automatic retry")
}

func TestEngine_JoinRejectedTransferRecordsNothing(t *testing.T) {
	s, err := store.NewFileStore(afero.NewMemMapFs(), "/data")
	require.NoError(t, err)
	wagers := repository.NewWagerRepository(s)

	gw := new(MockGateway)
	gw.On("GetOrCreateWallet", mock.Anything, mock.AnythingOfType("string")).
		Return(func(_ context.Context, key string) *wallet.Handle { return handleFor(key) }, nil)
	gw.On("Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&wallet.TransferResult{Success: false}, nil).Once()
	gw.On("Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, wallet.ErrUnavailable).Once()

	engine := NewEngine(wagers, gw)
	ctx := context.Background()

	w, err := engine.CreateWager(ctx, "alice", dec("1"), CreateOptions{})
	require.NoError(t, err)

	_, err = engine.JoinWager(ctx, w.ID, "p1", "yes")
	assert.ErrorIs(t, err, ErrPaymentFailed)

	_, err = engine.JoinWager(ctx, w.ID, "p1", "yes")
	assert.ErrorIs(t, err, ErrPaymentFailed)
	assert.ErrorIs(t, err, wallet.ErrUnavailable)

	stored, err := engine.GetWager(ctx, w.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Participants)
	gw.AssertExpectations(t)
}

func TestEngine_EscrowProvisioningFailure(t *testing.T) {
	s, err := store.NewFileStore(afero.NewMemMapFs(), "/data")
	require.NoError(t, err)

	gw := new(MockGateway)
	gw.On("GetOrCreateWallet", mock.Anything, "wager:1").Return(nil, errors.New("cdp down"))

	engine := NewEngine(repository.NewWagerRepository(s), gw)
	_, err = engine.CreateWager(context.Background(), "alice", dec("1"), CreateOptions{})
	assert.Error(t, err)

	_, err = engine.GetWager(context.Background(), "1")
	assert.ErrorIs(t, err, ErrWagerNotFound)
}

// TestEngine_ConcurrentJoinsProperty checks that concurrent joins never lose
// a participant, never duplicate one, and keep choices in step with participants.
func TestEngine_ConcurrentJoinsProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		env := newTestEnv(t)
		ctx := context.Background()

		w, err := env.engine.CreateWager(ctx, "alice", dec("1"), CreateOptions{})
		if err != nil {
			rt.Fatalf("create: %v", err)
		}

		n := rapid.IntRange(1, 12).Draw(rt, "joiners")
		ids := make([]string, n)
		for i := range ids {
			// Some joiners try twice.
			ids[i] = fmt.Sprintf("p%d", rapid.IntRange(0, n-1).Draw(rt, "who"))
		}

		var wg sync.WaitGroup
		var mu sync.Mutex
		succeeded := map[string]int{}
		for _, id := range ids {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				if _, err := env.engine.JoinWager(ctx, w.ID, id, "yes"); err == nil {
					mu.Lock()
					succeeded[id]++
					mu.Unlock()
				} else if !errors.Is(err, ErrDuplicateParticipant) {
					rt.Errorf("unexpected error: %v", err)
				}
			}(id)
		}
		wg.Wait()

		stored, err := env.engine.GetWager(ctx, w.ID)
		if err != nil {
			rt.Fatalf("get: %v", err)
		}
		if len(stored.Participants) != len(succeeded) {
			rt.Fatalf("participants %v vs successful joins %v", stored.Participants, succeeded)
		}
		if len(stored.ParticipantChoices) != len(stored.Participants) {
			rt.Fatalf("choices out of step with participants")
		}
		for id, c := range succeeded {
			if c != 1 {
				rt.Fatalf("%s joined %d times", id, c)
			}
		}
		if !env.balance(t, w.WalletReference).Equal(decimal.NewFromInt(int64(len(succeeded)))) {
			rt.Fatalf("escrow does not match stakes")
		}
	})
}

func setupResolved(t *testing.T, env *testEnv) *model.Wager {
	t.Helper()
	ctx := context.Background()

	w, err := env.engine.CreateWager(ctx, "alice", dec("1"), CreateOptions{})
	require.NoError(t, err)
	_, err = env.engine.JoinWager(ctx, w.ID, "r1", "yes")
	require.NoError(t, err)
	_, err = env.engine.JoinWager(ctx, w.ID, "r2", "no")
	require.NoError(t, err)
	resolved, err := env.engine.ResolveWager(ctx, w.ID, "yes")
	require.NoError(t, err)
	return resolved
}
