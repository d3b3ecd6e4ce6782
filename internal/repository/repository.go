// Package repository persists wagers, wallets and transfer receipts as
// versioned JSON records over a store.Store.
package repository

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/model"
)

// Common errors for repository operations.
var (
	ErrWagerNotFound       = errors.New("wager not found")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrUnsupportedSchema   = errors.New("unsupported record schema")
)

// Key prefixes.
const (
	wagerPrefix       = "wager:"
	walletPrefix      = "wallet:"
	transactionPrefix = "transfer:"
	wagerCounter      = "wager_id"
)

type schemaHeader struct {
	Schema int `json:"schema"`
}

// checkSchema rejects records written by an unknown schema version.
// Records without a schema field predate versioning and use the v1 layout.
func checkSchema(data []byte) error {
	var h schemaHeader
	if err := json.Unmarshal(data, &h); err != nil {
		return fmt.Errorf("failed to decode record header: %w", err)
	}
	if h.Schema != 0 && h.Schema != model.SchemaVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedSchema, h.Schema)
	}
	return nil
}

func decode(data []byte, v any) error {
	if err := checkSchema(data); err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}
	return nil
}
