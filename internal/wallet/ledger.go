package wallet

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/model"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/pkg/lock"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/pkg/sealer"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/repository"
)

const (
	addressBytes = 20
	secretBytes  = 32
)

// Ledger is a custodial Gateway that keeps balances in the wallet repository.
type Ledger struct {
	wallets        *repository.WalletRepository
	transactions   *repository.TransactionRepository
	sealer         *sealer.Sealer
	locks          *lock.KeyLock
	initialBalance decimal.Decimal
	now            func() time.Time
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithInitialBalance credits new user wallets with amount. Escrow wallets always start empty.
func WithInitialBalance(amount decimal.Decimal) LedgerOption {
	return func(l *Ledger) {
		l.initialBalance = amount
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithLocks shares a KeyLock with other components.
func WithLocks(kl *lock.KeyLock) LedgerOption {
	return func(l *Ledger) {
		l.locks = kl
	}
}

// NewLedger creates a new Ledger instance.
func NewLedger(
	wallets *repository.WalletRepository,
	transactions *repository.TransactionRepository,
	s *sealer.Sealer,
	opts ...LedgerOption,
) *Ledger {
	l := &Ledger{
		wallets:      wallets,
		transactions: transactions,
		sealer:       s,
		locks:        lock.NewKeyLock(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// GetOrCreateWallet returns the wallet for key, creating it on first use.
func (l *Ledger) GetOrCreateWallet(ctx context.Context, key string) (*Handle, error) {
	var rec *model.WalletRecord
	err := l.locks.WithLock(ctx, lockKey(key), func() error {
		var err error
		rec, err = l.wallets.Get(ctx, key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrWalletNotFound) {
			return err
		}

		rec, err = l.newWallet(key)
		if err != nil {
			return err
		}
		if err := l.wallets.Save(ctx, rec); err != nil {
			return err
		}

		log.Info().
			Str("wallet", key).
			Str("address", rec.Address).
			Str("balance", rec.Balance.String()).
			Msg("Wallet created")
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get or create wallet: %w", errors.Join(ErrUnavailable, err))
	}

	return &Handle{Key: rec.Key, Address: rec.Address}, nil
}

// Balance returns the wallet balance.
func (l *Ledger) Balance(ctx context.Context, h *Handle) (decimal.Decimal, error) {
	rec, err := l.wallets.Get(ctx, h.Key)
	if err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			return decimal.Zero, ErrWalletNotFound
		}
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", errors.Join(ErrUnavailable, err))
	}
	return rec.Balance, nil
}

// Transfer moves amount between wallets. Both wallets are locked in key
// order for the duration, and a receipt is stored under the returned reference.
func (l *Ledger) Transfer(ctx context.Context, from, to *Handle, amount decimal.Decimal) (*TransferResult, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if from.Key == to.Key {
		return nil, ErrSameWallet
	}

	var receipt *model.TransferReceipt
	err := l.locks.WithLocks(ctx, []string{lockKey(from.Key), lockKey(to.Key)}, func() error {
		src, err := l.load(ctx, from.Key)
		if err != nil {
			return err
		}
		dst, err := l.load(ctx, to.Key)
		if err != nil {
			return err
		}

		if src.Balance.LessThan(amount) {
			return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, src.Balance, amount)
		}

		now := l.now().UTC()
		src.Balance = src.Balance.Sub(amount)
		src.UpdatedAt = now
		dst.Balance = dst.Balance.Add(amount)
		dst.UpdatedAt = now

		if err := l.wallets.Save(ctx, src); err != nil {
			return errors.Join(ErrUnavailable, err)
		}
		if err := l.wallets.Save(ctx, dst); err != nil {
			l.rollbackDebit(ctx, src, amount)
			return errors.Join(ErrUnavailable, err)
		}

		receipt = &model.TransferReceipt{
			Reference: uuid.NewString(),
			From:      from.Key,
			To:        to.Key,
			Amount:    amount,
			CreatedAt: now,
		}
		if err := l.transactions.Create(ctx, receipt); err != nil {
			// Balances already moved; the receipt is bookkeeping only.
			log.Error().Err(err).Str("reference", receipt.Reference).Msg("Failed to store transfer receipt")
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, lock.ErrLockTimeout) {
			return nil, errors.Join(ErrUnavailable, err)
		}
		return nil, err
	}

	log.Info().
		Str("from", from.Key).
		Str("to", to.Key).
		Str("amount", amount.String()).
		Str("reference", receipt.Reference).
		Msg("Transfer completed")

	return &TransferResult{Success: true, Reference: receipt.Reference}, nil
}

// rollbackDebit restores a source wallet whose debit was saved but whose
// matching credit could not be. Callers hold the wallet lock.
func (l *Ledger) rollbackDebit(ctx context.Context, src *model.WalletRecord, amount decimal.Decimal) {
	src.Balance = src.Balance.Add(amount)
	src.UpdatedAt = l.now().UTC()
	if err := l.wallets.Save(ctx, src); err != nil {
		log.Error().
			Err(err).
			Str("wallet", src.Key).
			Str("amount", amount.String()).
			Msg("Failed to roll back debit, wallet balance is short")
	}
}

// ExportSecret returns the decrypted wallet secret for key.
func (l *Ledger) ExportSecret(ctx context.Context, key string) ([]byte, error) {
	rec, err := l.load(ctx, key)
	if err != nil {
		return nil, err
	}
	secret, err := l.sealer.Open(rec.SealedSecret, rec.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to open wallet secret: %w", err)
	}
	return secret, nil
}

func (l *Ledger) load(ctx context.Context, key string) (*model.WalletRecord, error) {
	rec, err := l.wallets.Get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrWalletNotFound, key)
		}
		return nil, errors.Join(ErrUnavailable, err)
	}
	return rec, nil
}

func (l *Ledger) newWallet(key string) (*model.WalletRecord, error) {
	addr := make([]byte, addressBytes)
	if _, err := rand.Read(addr); err != nil {
		return nil, fmt.Errorf("failed to generate address: %w", err)
	}
	secret := make([]byte, secretBytes)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate wallet secret: %w", err)
	}
	sealed, err := l.sealer.Seal(secret, key)
	if err != nil {
		return nil, fmt.Errorf("failed to seal wallet secret: %w", err)
	}

	balance := decimal.Zero
	if IsUserKey(key) {
		balance = l.initialBalance
	}

	now := l.now().UTC()
	return &model.WalletRecord{
		Key:          key,
		Address:      "0x" + hex.EncodeToString(addr),
		Balance:      balance,
		SealedSecret: sealed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func lockKey(key string) string {
	return "wallet:" + key
}

// Credit adds amount to a wallet outside of any transfer. It backs operator
// top-ups and test fixtures.
func (l *Ledger) Credit(ctx context.Context, key string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return l.locks.WithLock(ctx, lockKey(key), func() error {
		rec, err := l.load(ctx, key)
		if err != nil {
			return err
		}
		rec.Balance = rec.Balance.Add(amount)
		rec.UpdatedAt = l.now().UTC()
		return l.wallets.Save(ctx, rec)
	})
}
