package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/pkg/sealer"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/repository"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/store"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/wallet"
)

type testEnv struct {
	store  store.Store
	ledger *wallet.Ledger
	txs    *repository.TransactionRepository
	wagers *repository.WagerRepository
}

func newTestEnv(t testing.TB, initial string) *testEnv {
	s, err := store.NewFileStore(afero.NewMemMapFs(), "/data")
	require.NoError(t, err)
	sl, err := sealer.New("service-test-key")
	require.NoError(t, err)

	txs := repository.NewTransactionRepository(s)
	return &testEnv{
		store:  s,
		ledger: wallet.NewLedger(repository.NewWalletRepository(s), txs, sl, wallet.WithInitialBalance(decimal.RequireFromString(initial))),
		txs:    txs,
		wagers: repository.NewWagerRepository(s),
	}
}
