package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/wallet"
)

// Transfer-related errors.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("invalid amount: must be positive")
	ErrSelfTransfer        = errors.New("cannot transfer to self")
	ErrInvalidRecipient    = errors.New("invalid recipient")
)

// TransferService handles user-to-user payments.
type TransferService struct {
	gateway wallet.Gateway
}

// NewTransferService creates a new TransferService instance.
func NewTransferService(gateway wallet.Gateway) *TransferService {
	return &TransferService{gateway: gateway}
}

// Transfer pays amount from one user's wallet to another's.
// The recipient's wallet is provisioned if it does not exist yet.
func (s *TransferService) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) (*wallet.TransferResult, error) {
	if err := s.ValidateTransfer(fromID, toID, amount); err != nil {
		return nil, err
	}
	toID = normalizeRecipient(toID)

	from, err := s.gateway.GetOrCreateWallet(ctx, wallet.UserKey(fromID))
	if err != nil {
		return nil, fmt.Errorf("failed to get sender wallet: %w", err)
	}

	bal, err := s.gateway.Balance(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to get sender balance: %w", err)
	}
	if bal.LessThan(amount) {
		return nil, ErrInsufficientBalance
	}

	to, err := s.gateway.GetOrCreateWallet(ctx, wallet.UserKey(toID))
	if err != nil {
		return nil, fmt.Errorf("failed to get receiver wallet: %w", err)
	}

	res, err := s.gateway.Transfer(ctx, from, to, amount)
	if err != nil {
		if errors.Is(err, wallet.ErrInsufficientBalance) {
			return nil, ErrInsufficientBalance
		}
		return nil, fmt.Errorf("failed to transfer: %w", err)
	}

	log.Info().
		Str("from_user", fromID).
		Str("to_user", toID).
		Str("amount", amount.String()).
		Str("reference", res.Reference).
		Msg("User transfer completed")

	return res, nil
}

// ValidateTransfer checks a transfer request without touching any wallet.
func (s *TransferService) ValidateTransfer(fromID, toID string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	toID = normalizeRecipient(toID)
	if toID == "" {
		return ErrInvalidRecipient
	}
	if fromID == toID {
		return ErrSelfTransfer
	}
	return nil
}

func normalizeRecipient(id string) string {
	return strings.TrimPrefix(strings.TrimSpace(id), "@")
}
