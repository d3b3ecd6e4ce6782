// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/model"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/wallet"
)

// ReceiptLister returns transfer receipts touching a wallet.
type ReceiptLister interface {
	GetByWallet(ctx context.Context, key string, limit int) ([]*model.TransferReceipt, error)
}

// Funder tops up wallets outside of a transfer.
type Funder interface {
	Credit(ctx context.Context, key string, amount decimal.Decimal) error
}

// ErrCreditUnsupported is returned when the gateway cannot mint funds.
var ErrCreditUnsupported = errors.New("wallet gateway does not support credits")

// Account is a user's wallet as shown by /balance.
type Account struct {
	UserID  string
	Address string
	Balance decimal.Decimal
	Recent  []*model.TransferReceipt
}

// AccountService handles user wallet operations.
type AccountService struct {
	gateway  wallet.Gateway
	receipts ReceiptLister
	funder   Funder
}

// NewAccountService creates a new AccountService instance.
// receipts may be nil when the gateway keeps no local history.
// Credits are available when the gateway also implements Funder.
func NewAccountService(gateway wallet.Gateway, receipts ReceiptLister) *AccountService {
	s := &AccountService{
		gateway:  gateway,
		receipts: receipts,
	}
	if f, ok := gateway.(Funder); ok {
		s.funder = f
	}
	return s
}

// EnsureWallet returns the user's wallet, provisioning it on first use.
func (s *AccountService) EnsureWallet(ctx context.Context, userID string) (*wallet.Handle, error) {
	h, err := s.gateway.GetOrCreateWallet(ctx, wallet.UserKey(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to ensure wallet: %w", err)
	}
	return h, nil
}

// GetBalance retrieves a user's current balance.
func (s *AccountService) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	h, err := s.EnsureWallet(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	bal, err := s.gateway.Balance(ctx, h)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}
	return bal, nil
}

// GetAccount returns the user's address, balance and up to recentLimit
// latest transfers.
func (s *AccountService) GetAccount(ctx context.Context, userID string, recentLimit int) (*Account, error) {
	h, err := s.EnsureWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	bal, err := s.gateway.Balance(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}

	acc := &Account{UserID: userID, Address: h.Address, Balance: bal}
	if s.receipts != nil && recentLimit > 0 {
		recent, err := s.receipts.GetByWallet(ctx, h.Key, recentLimit)
		if err != nil {
			// History is informational only
			log.Warn().Err(err).Str("user_id", userID).Msg("Failed to load transfer history")
		}
		acc.Recent = recent
	}
	return acc, nil
}

// Credit adds amount to the user's wallet and returns the new balance.
func (s *AccountService) Credit(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if s.funder == nil {
		return decimal.Zero, ErrCreditUnsupported
	}
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	h, err := s.EnsureWallet(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	if err := s.funder.Credit(ctx, h.Key, amount); err != nil {
		return decimal.Zero, fmt.Errorf("failed to credit wallet: %w", err)
	}

	log.Info().
		Str("user_id", userID).
		Str("amount", amount.String()).
		Str("operation", "credit").
		Msg("Wallet credited")

	return s.GetBalance(ctx, userID)
}
