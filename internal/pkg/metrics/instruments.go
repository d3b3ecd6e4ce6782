package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instrument names.
const (
	WagersCreatedTotal   = "wagers_created_total"
	WagersJoinedTotal    = "wagers_joined_total"
	WagersResolvedTotal  = "wagers_resolved_total"
	WagersCancelledTotal = "wagers_cancelled_total"
	PayoutsFailedTotal   = "payouts_failed_total"
	CommandsTotal        = "commands_total"
)

const meterName = "github.com/raihankhan-rk/xmpt-cdp-quickstart"

// Instruments records wager lifecycle counters.
type Instruments struct {
	created   metric.Int64Counter
	joined    metric.Int64Counter
	resolved  metric.Int64Counter
	cancelled metric.Int64Counter
	payouts   metric.Int64Counter
	commands  metric.Int64Counter
}

// NewInstruments creates the counters on meter.
func NewInstruments(meter metric.Meter) (*Instruments, error) {
	var (
		in  Instruments
		err error
	)

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&in.created, WagersCreatedTotal, "Total number of wagers created"},
		{&in.joined, WagersJoinedTotal, "Total number of successful wager joins"},
		{&in.resolved, WagersResolvedTotal, "Total number of wager resolutions by final status"},
		{&in.cancelled, WagersCancelledTotal, "Total number of wagers cancelled by their creator"},
		{&in.payouts, PayoutsFailedTotal, "Total number of failed payout or refund transfers"},
		{&in.commands, CommandsTotal, "Total number of chat commands handled by kind"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit("1"))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
	}
	return &in, nil
}

// Default returns instruments on the global meter provider.
// Instruments created before Setup forward to the provider it installs.
func Default() *Instruments {
	in, err := NewInstruments(otel.Meter(meterName))
	if err != nil {
		// The global API never fails to create counters.
		panic(err)
	}
	return in
}

// WagerCreated counts a new wager.
func (in *Instruments) WagerCreated(ctx context.Context) {
	in.created.Add(ctx, 1)
}

// WagerJoined counts a join.
func (in *Instruments) WagerJoined(ctx context.Context) {
	in.joined.Add(ctx, 1)
}

// WagerResolved counts a resolution ending in status.
func (in *Instruments) WagerResolved(ctx context.Context, status string) {
	in.resolved.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// WagerCancelled counts a cancellation.
func (in *Instruments) WagerCancelled(ctx context.Context) {
	in.cancelled.Add(ctx, 1)
}

// PayoutFailed counts a failed transfer out of escrow.
func (in *Instruments) PayoutFailed(ctx context.Context, kind string) {
	in.payouts.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// CommandHandled counts a chat command.
func (in *Instruments) CommandHandled(ctx context.Context, kind string) {
	in.commands.Add(ctx, 1, metric.WithAttributes(attribute.String("command", kind)))
}
