package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// WalletRecord is a custodial wallet owned by a user or a wager escrow.
// SealedSecret holds the wallet export secret encrypted at rest.
type WalletRecord struct {
	Schema       int             `json:"schema"`
	Key          string          `json:"key"`
	Address      string          `json:"address"`
	Balance      decimal.Decimal `json:"balance"`
	SealedSecret []byte          `json:"sealed_secret"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// TransferReceipt records a completed ledger transfer.
type TransferReceipt struct {
	Reference string          `json:"reference"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}
