// Package wallet provides the wallet gateway used to escrow stakes and pay out winnings.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Gateway errors.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrSameWallet          = errors.New("source and destination wallets are the same")
	ErrUnavailable         = errors.New("wallet service unavailable")

	// ErrPaymentAmbiguous means the transfer timed out and may still complete.
	ErrPaymentAmbiguous = errors.New("payment timed out and may still complete")
)

// Owner key prefixes.
const (
	UserKeyPrefix  = "user:"
	WagerKeyPrefix = "wager:"
)

// UserKey returns the wallet key of a chat user.
func UserKey(userID string) string {
	return UserKeyPrefix + userID
}

// WagerKey returns the escrow wallet key of a wager.
func WagerKey(wagerID string) string {
	return WagerKeyPrefix + wagerID
}

// IsUserKey reports whether key names a user wallet.
func IsUserKey(key string) bool {
	return strings.HasPrefix(key, UserKeyPrefix)
}

// Handle identifies a wallet known to the gateway.
type Handle struct {
	Key     string
	Address string
}

// TransferResult is the outcome of a transfer.
type TransferResult struct {
	Success   bool
	Reference string
}

// Gateway moves funds between wallets.
type Gateway interface {
	// GetOrCreateWallet returns the wallet for key, provisioning it on first use.
	GetOrCreateWallet(ctx context.Context, key string) (*Handle, error)
	// Balance returns the spendable balance of the wallet.
	Balance(ctx context.Context, h *Handle) (decimal.Decimal, error)
	// Transfer moves amount from one wallet to another.
	Transfer(ctx context.Context, from, to *Handle, amount decimal.Decimal) (*TransferResult, error)
}

// ExplorerLink formats a transaction link from a template.
// Templates containing %s get the reference substituted; others have it appended.
func ExplorerLink(template, reference string) string {
	if template == "" || reference == "" {
		return ""
	}
	if strings.Contains(template, "%s") {
		return fmt.Sprintf(template, reference)
	}
	return template + reference
}
