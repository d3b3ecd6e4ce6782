package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/model"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/store"
)

// TransactionRepository handles transfer receipt persistence.
type TransactionRepository struct {
	store store.Store
}

// NewTransactionRepository creates a new TransactionRepository instance.
func NewTransactionRepository(s store.Store) *TransactionRepository {
	return &TransactionRepository{store: s}
}

type receiptRecord struct {
	Schema int `json:"schema"`
	model.TransferReceipt
}

// Create stores a receipt under its reference.
func (r *TransactionRepository) Create(ctx context.Context, receipt *model.TransferReceipt) error {
	data, err := json.Marshal(receiptRecord{Schema: model.SchemaVersion, TransferReceipt: *receipt})
	if err != nil {
		return fmt.Errorf("failed to encode transaction: %w", err)
	}
	if err := r.store.Set(ctx, transactionPrefix+receipt.Reference, data); err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// Get retrieves a receipt by reference.
// Returns ErrTransactionNotFound if none exists.
func (r *TransactionRepository) Get(ctx context.Context, reference string) (*model.TransferReceipt, error) {
	data, err := r.store.Get(ctx, transactionPrefix+reference)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	var rec receiptRecord
	if err := decode(data, &rec); err != nil {
		return nil, fmt.Errorf("transaction %s: %w", reference, err)
	}
	return &rec.TransferReceipt, nil
}

// GetByWallet returns receipts touching the wallet key, newest first,
// limited to limit entries when limit > 0.
func (r *TransactionRepository) GetByWallet(ctx context.Context, key string, limit int) ([]*model.TransferReceipt, error) {
	keys, err := r.store.List(ctx, transactionPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	var out []*model.TransferReceipt
	for _, k := range keys {
		rec, err := r.Get(ctx, k[len(transactionPrefix):])
		if err != nil {
			continue
		}
		if rec.From == key || rec.To == key {
			out = append(out, rec)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
