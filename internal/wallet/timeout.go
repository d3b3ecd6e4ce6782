package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type timeoutGateway struct {
	Gateway
	timeout time.Duration
}

// WithTimeout bounds every transfer made through g by d. A transfer that
// hits the deadline returns ErrPaymentAmbiguous, since the underlying payment
// may still settle. A non-positive d returns g unchanged.
func WithTimeout(g Gateway, d time.Duration) Gateway {
	if d <= 0 {
		return g
	}
	return &timeoutGateway{Gateway: g, timeout: d}
}

func (t *timeoutGateway) Transfer(ctx context.Context, from, to *Handle, amount decimal.Decimal) (*TransferResult, error) {
	tctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	res, err := t.Gateway.Transfer(tctx, from, to, amount)
	if err != nil && errors.Is(tctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, errors.Join(ErrPaymentAmbiguous, err)
	}
	return res, err
}
