package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/model"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/pkg/lock"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/pkg/metrics"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/repository"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/wallet"
)

// WagerStore is the persistence the engine needs.
type WagerStore interface {
	NextID(ctx context.Context) (string, error)
	Get(ctx context.Context, id string) (*model.Wager, error)
	Save(ctx context.Context, w *model.Wager) error
	ListActive(ctx context.Context) ([]*model.Wager, error)
}

// CreateOptions are the optional parts of a creation request.
type CreateOptions struct {
	Topic   string
	Options []string
}

// Engine owns the wager lifecycle and is the only writer of wager records.
// Every mutation of a wager runs under that wager's key lock, so a
// read-modify-write never interleaves with another on the same wager.
type Engine struct {
	wagers         WagerStore
	gateway        wallet.Gateway
	resolver       Resolver
	locks          *lock.KeyLock
	metrics        *metrics.Instruments
	precision      int32
	refundOnCancel bool
	now            func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithResolver sets the resolution policy. The default is CreatorChosen.
func WithResolver(r Resolver) Option {
	return func(e *Engine) {
		e.resolver = r
	}
}

// WithPrecision sets the number of decimal places payouts are truncated to.
func WithPrecision(p int32) Option {
	return func(e *Engine) {
		e.precision = p
	}
}

// WithRefundOnCancel returns stakes from escrow when a wager is cancelled.
func WithRefundOnCancel(enabled bool) Option {
	return func(e *Engine) {
		e.refundOnCancel = enabled
	}
}

// WithLocks shares a KeyLock with other components.
func WithLocks(kl *lock.KeyLock) Option {
	return func(e *Engine) {
		e.locks = kl
	}
}

// WithMetrics sets the counters the engine records into.
func WithMetrics(m *metrics.Instruments) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a new Engine instance.
func NewEngine(wagers WagerStore, gateway wallet.Gateway, opts ...Option) *Engine {
	e := &Engine{
		wagers:    wagers,
		gateway:   gateway,
		resolver:  CreatorChosen{},
		locks:     lock.NewKeyLock(),
		precision: DefaultPayoutPrecision,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = metrics.Default()
	}
	return e
}

// Resolver returns the active resolution policy.
func (e *Engine) Resolver() Resolver {
	return e.resolver
}

// Precision returns the payout precision in decimal places.
func (e *Engine) Precision() int32 {
	return e.precision
}

// CreateWager creates a wager in CREATED with no participants and provisions
// its escrow wallet. The creator is not enrolled; they join like anyone else.
func (e *Engine) CreateWager(ctx context.Context, creatorID string, stake decimal.Decimal, opts CreateOptions) (*model.Wager, error) {
	if creatorID == "" {
		return nil, ErrInvalidParticipant
	}
	if !stake.IsPositive() {
		return nil, ErrInvalidStake
	}
	if !stake.Equal(stake.Truncate(e.precision)) {
		return nil, fmt.Errorf("%w: at most %d decimal places", ErrInvalidStake, e.precision)
	}

	options, err := normalizeOptions(opts.Options)
	if err != nil {
		return nil, err
	}

	id, err := e.wagers.NextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create wager: %w", err)
	}

	escrow, err := e.gateway.GetOrCreateWallet(ctx, wallet.WagerKey(id))
	if err != nil {
		return nil, fmt.Errorf("failed to provision escrow wallet: %w", err)
	}

	now := e.now().UTC()
	w := &model.Wager{
		Schema:             model.SchemaVersion,
		ID:                 id,
		Creator:            creatorID,
		Topic:              opts.Topic,
		StakeAmount:        stake,
		Status:             model.StatusCreated,
		Participants:       []string{},
		ParticipantChoices: map[string]string{},
		WalletReference:    escrow.Key,
		OutcomeOptions:     options,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := e.wagers.Save(ctx, w); err != nil {
		return nil, fmt.Errorf("failed to create wager: %w", err)
	}

	e.metrics.WagerCreated(ctx)
	log.Info().
		Str("wager_id", id).
		Str("user_id", creatorID).
		Str("stake", stake.String()).
		Strs("options", options).
		Msg("Wager created")

	return w, nil
}

// JoinWager enrolls participantID choosing outcome. Validation runs before
// any side effect; the stake is then moved into escrow, and the participant
// is only recorded once that transfer succeeded.
func (e *Engine) JoinWager(ctx context.Context, wagerID, participantID, outcome string) (*model.Wager, error) {
	var out *model.Wager
	err := e.withWager(ctx, wagerID, func(w *model.Wager) error {
		label, err := ValidateJoin(w, participantID, outcome)
		if err != nil {
			return err
		}

		ref, err := e.collectStake(ctx, w, participantID)
		if err != nil {
			return err
		}

		ApplyJoin(w, participantID, label, e.now().UTC())
		if err := e.wagers.Save(ctx, w); err != nil {
			log.Error().
				Err(err).
				Str("wager_id", w.ID).
				Str("user_id", participantID).
				Str("reference", ref).
				Msg("Stake collected but join could not be saved")
			return fmt.Errorf("failed to save join: %w", err)
		}

		e.metrics.WagerJoined(ctx)
		log.Info().
			Str("wager_id", w.ID).
			Str("user_id", participantID).
			Str("choice", label).
			Str("reference", ref).
			Int("participants", len(w.Participants)).
			Msg("Participant joined wager")

		out = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ResolveWager picks the winning outcome with the configured resolver and
// pays every winner an equal share of the pot. The wager is persisted as
// IN_PROGRESS before any payout, so an interrupted resolution stays visible.
// When nobody chose the winning outcome the wager ends CANCELLED, with
// stakes refunded if refunds are enabled.
// Failed payouts are recorded on the wager; it still ends COMPLETED.
func (e *Engine) ResolveWager(ctx context.Context, wagerID, outcome string) (*model.Wager, error) {
	var out *model.Wager
	err := e.withWager(ctx, wagerID, func(w *model.Wager) error {
		if err := ValidateResolve(w); err != nil {
			return err
		}
		winning, err := e.resolver.Resolve(w, outcome)
		if err != nil {
			return err
		}

		w.Status = model.StatusInProgress
		w.UpdatedAt = e.now().UTC()
		if err := e.wagers.Save(ctx, w); err != nil {
			return fmt.Errorf("failed to start resolution: %w", err)
		}

		winners := SelectWinners(w, winning)
		w.ResolvedOutcome = winning
		w.Winners = winners

		if len(winners) == 0 {
			if e.refundOnCancel {
				e.refund(ctx, w)
			}
			e.finish(w, model.StatusCancelled, false)
		} else {
			ok := e.payWinners(ctx, w, winners)
			e.finish(w, model.StatusCompleted, ok)
		}

		if err := e.wagers.Save(ctx, w); err != nil {
			return fmt.Errorf("failed to save resolution: %w", err)
		}

		e.metrics.WagerResolved(ctx, string(w.Status))
		log.Info().
			Str("wager_id", w.ID).
			Str("outcome", winning).
			Strs("winners", winners).
			Str("status", string(w.Status)).
			Bool("payout_succeeded", w.PayoutSucceeded).
			Msg("Wager resolved")

		out = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CancelWager moves a non-terminal wager to CANCELLED. With refunds enabled,
// each participant's stake is returned from escrow unless resolution had
// already started.
func (e *Engine) CancelWager(ctx context.Context, wagerID string) (*model.Wager, error) {
	var out *model.Wager
	err := e.withWager(ctx, wagerID, func(w *model.Wager) error {
		// An IN_PROGRESS wager may already have paid winners from escrow.
		interrupted := w.Status == model.StatusInProgress

		now := e.now().UTC()
		if err := Cancel(w, now); err != nil {
			return err
		}

		switch {
		case !e.refundOnCancel || len(w.Participants) == 0:
		case interrupted || len(w.Payouts) > 0:
			log.Warn().
				Str("wager_id", w.ID).
				Msg("Skipping refunds for a wager whose resolution had started")
		default:
			e.refund(ctx, w)
		}

		if err := e.wagers.Save(ctx, w); err != nil {
			return fmt.Errorf("failed to cancel wager: %w", err)
		}

		e.metrics.WagerCancelled(ctx)
		log.Info().
			Str("wager_id", w.ID).
			Int("participants", len(w.Participants)).
			Int("refunds", len(w.Payouts)).
			Msg("Wager cancelled")

		out = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetWager returns the stored wager.
func (e *Engine) GetWager(ctx context.Context, wagerID string) (*model.Wager, error) {
	w, err := e.wagers.Get(ctx, wagerID)
	if err != nil {
		if errors.Is(err, repository.ErrWagerNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrWagerNotFound, wagerID)
		}
		return nil, fmt.Errorf("failed to get wager: %w", err)
	}
	return w, nil
}

// ListActiveWagers returns wagers that are neither COMPLETED nor CANCELLED.
func (e *Engine) ListActiveWagers(ctx context.Context) ([]*model.Wager, error) {
	wagers, err := e.wagers.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list wagers: %w", err)
	}
	return wagers, nil
}

// withWager loads the wager under its lock and runs fn on the loaded copy.
func (e *Engine) withWager(ctx context.Context, wagerID string, fn func(w *model.Wager) error) error {
	return e.locks.WithLock(ctx, wallet.WagerKey(wagerID), func() error {
		w, err := e.GetWager(ctx, wagerID)
		if err != nil {
			return err
		}
		return fn(w)
	})
}

func (e *Engine) collectStake(ctx context.Context, w *model.Wager, participantID string) (string, error) {
	from, err := e.gateway.GetOrCreateWallet(ctx, wallet.UserKey(participantID))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPaymentFailed, err)
	}
	escrow, err := e.gateway.GetOrCreateWallet(ctx, w.WalletReference)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPaymentFailed, err)
	}

	res, err := e.gateway.Transfer(ctx, from, escrow, w.StakeAmount)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPaymentFailed, err)
	}
	if res == nil || !res.Success {
		return "", fmt.Errorf("%w: transfer was not accepted", ErrPaymentFailed)
	}
	return res.Reference, nil
}

// payWinners issues one transfer per winner and reports whether all succeeded.
func (e *Engine) payWinners(ctx context.Context, w *model.Wager, winners []string) bool {
	plan := ComputePayout(w.StakeAmount, len(w.Participants), len(winners), e.precision)
	if !plan.Dust.IsZero() {
		log.Debug().Str("wager_id", w.ID).Str("dust", plan.Dust.String()).Msg("Payout remainder stays in escrow")
	}

	ok := true
	for _, p := range winners {
		payout := e.pay(ctx, w.WalletReference, p, plan.Share, model.PayoutKindWinnings)
		if !payout.Succeeded {
			ok = false
			log.Error().
				Str("wager_id", w.ID).
				Str("user_id", p).
				Str("amount", plan.Share.String()).
				Str("error", payout.Error).
				Msg("Payout failed")
		}
		w.Payouts = append(w.Payouts, payout)
	}
	return ok
}

func (e *Engine) refund(ctx context.Context, w *model.Wager) {
	for _, p := range w.Participants {
		payout := e.pay(ctx, w.WalletReference, p, w.StakeAmount, model.PayoutKindRefund)
		if !payout.Succeeded {
			log.Error().
				Str("wager_id", w.ID).
				Str("user_id", p).
				Str("error", payout.Error).
				Msg("Refund failed")
		}
		w.Payouts = append(w.Payouts, payout)
	}
}

// pay moves amount from escrow to the participant and records the attempt.
func (e *Engine) pay(ctx context.Context, escrowKey, participantID string, amount decimal.Decimal, kind string) model.Payout {
	payout := model.Payout{Participant: participantID, Amount: amount, Kind: kind}

	fail := func(err error) model.Payout {
		payout.Error = err.Error()
		e.metrics.PayoutFailed(ctx, kind)
		return payout
	}

	escrow, err := e.gateway.GetOrCreateWallet(ctx, escrowKey)
	if err != nil {
		return fail(err)
	}
	to, err := e.gateway.GetOrCreateWallet(ctx, wallet.UserKey(participantID))
	if err != nil {
		return fail(err)
	}

	res, err := e.gateway.Transfer(ctx, escrow, to, amount)
	if err != nil {
		return fail(err)
	}
	if res == nil || !res.Success {
		return fail(errors.New("transfer was not accepted"))
	}

	payout.Reference = res.Reference
	payout.Succeeded = true
	return payout
}

func (e *Engine) finish(w *model.Wager, status model.WagerStatus, payoutSucceeded bool) {
	now := e.now().UTC()
	w.Status = status
	w.PayoutSucceeded = payoutSucceeded
	w.ResolvedAt = &now
	w.UpdatedAt = now
}
