package game

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/wallet"
)

// MockGateway is a mock implementation of wallet.Gateway.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) GetOrCreateWallet(ctx context.Context, key string) (*wallet.Handle, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	if fn, ok := args.Get(0).(func(context.Context, string) *wallet.Handle); ok {
		return fn(ctx, key), args.Error(1)
	}
	return args.Get(0).(*wallet.Handle), args.Error(1)
}

func (m *MockGateway) Balance(ctx context.Context, h *wallet.Handle) (decimal.Decimal, error) {
	args := m.Called(ctx, h)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockGateway) Transfer(ctx context.Context, from, to *wallet.Handle, amount decimal.Decimal) (*wallet.TransferResult, error) {
	args := m.Called(ctx, from, to, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.TransferResult), args.Error(1)
}

// handleFor returns a matcher-friendly handle for key.
func handleFor(key string) *wallet.Handle {
	return &wallet.Handle{Key: key, Address: "0x" + key}
}

// toKey matches a transfer destination by wallet key.
func toKey(key string) any {
	return mock.MatchedBy(func(h *wallet.Handle) bool { return h.Key == key })
}
