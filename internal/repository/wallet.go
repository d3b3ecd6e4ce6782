package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/model"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/store"
)

// WalletRepository handles custodial wallet persistence, one record per owner key.
type WalletRepository struct {
	store store.Store
}

// NewWalletRepository creates a new WalletRepository instance.
func NewWalletRepository(s store.Store) *WalletRepository {
	return &WalletRepository{store: s}
}

// Get retrieves the wallet owned by key.
// Returns ErrWalletNotFound if none exists.
func (r *WalletRepository) Get(ctx context.Context, key string) (*model.WalletRecord, error) {
	data, err := r.store.Get(ctx, walletPrefix+key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	var rec model.WalletRecord
	if err := decode(data, &rec); err != nil {
		return nil, fmt.Errorf("wallet %s: %w", key, err)
	}
	return &rec, nil
}

// Save writes the wallet record.
func (r *WalletRepository) Save(ctx context.Context, rec *model.WalletRecord) error {
	out := *rec
	out.Schema = model.SchemaVersion
	data, err := json.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to encode wallet: %w", err)
	}
	if err := r.store.Set(ctx, walletPrefix+rec.Key, data); err != nil {
		return fmt.Errorf("failed to save wallet: %w", err)
	}
	return nil
}

// Exists reports whether a wallet is stored for key.
func (r *WalletRepository) Exists(ctx context.Context, key string) (bool, error) {
	_, err := r.store.Get(ctx, walletPrefix+key)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check wallet: %w", err)
	}
	return true, nil
}

// ListKeys returns the owner keys of every stored wallet with the given owner prefix.
func (r *WalletRepository) ListKeys(ctx context.Context, ownerPrefix string) ([]string, error) {
	keys, err := r.store.List(ctx, walletPrefix+ownerPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	for i, k := range keys {
		keys[i] = strings.TrimPrefix(k, walletPrefix)
	}
	return keys, nil
}
