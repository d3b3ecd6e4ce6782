package game

import (
	"github.com/shopspring/decimal"
)

// DefaultPayoutPrecision is the number of decimal places a share is truncated to.
const DefaultPayoutPrecision int32 = 6

// PayoutPlan is the split of a wager's pot among its winners.
// Share*Winners + Dust == TotalPot exactly.
type PayoutPlan struct {
	TotalPot decimal.Decimal
	Share    decimal.Decimal
	Dust     decimal.Decimal
	Winners  int
}

// ComputePayout splits stake*participants evenly among winners. Each share is
// truncated to precision decimal places; the remainder is left as Dust.
// With no winners the whole pot is Dust.
func ComputePayout(stake decimal.Decimal, participants, winners int, precision int32) PayoutPlan {
	pot := stake.Mul(decimal.NewFromInt(int64(participants)))
	if winners <= 0 {
		return PayoutPlan{TotalPot: pot, Share: decimal.Zero, Dust: pot}
	}

	share, _ := pot.QuoRem(decimal.NewFromInt(int64(winners)), precision)
	dust := pot.Sub(share.Mul(decimal.NewFromInt(int64(winners))))
	return PayoutPlan{
		TotalPot: pot,
		Share:    share,
		Dust:     dust,
		Winners:  winners,
	}
}
