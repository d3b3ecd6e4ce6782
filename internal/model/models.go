// Package model defines the data models for the wager bot.
package model

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SchemaVersion is the version written into every persisted wager record.
const SchemaVersion = 1

// WagerStatus is the lifecycle state of a wager.
type WagerStatus string

const (
	StatusCreated               WagerStatus = "CREATED"
	StatusWaitingForParticipant WagerStatus = "WAITING_FOR_PARTICIPANT"
	StatusInProgress            WagerStatus = "IN_PROGRESS"
	StatusCompleted             WagerStatus = "COMPLETED"
	StatusCancelled             WagerStatus = "CANCELLED"

	// statusReady is written by older records at exactly two participants.
	statusReady WagerStatus = "READY"
)

// ParseStatus converts a stored status label to a WagerStatus.
// The legacy READY label maps to StatusWaitingForParticipant.
func ParseStatus(s string) (WagerStatus, bool) {
	switch WagerStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusCreated:
		return StatusCreated, true
	case StatusWaitingForParticipant, statusReady:
		return StatusWaitingForParticipant, true
	case StatusInProgress:
		return StatusInProgress, true
	case StatusCompleted:
		return StatusCompleted, true
	case StatusCancelled:
		return StatusCancelled, true
	}
	return "", false
}

// DefaultOptions is the option set used when a wager declares none.
var DefaultOptions = []string{"yes", "no"}

// Payout kinds.
const (
	PayoutKindWinnings = "payout"
	PayoutKindRefund   = "refund"
)

// Payout records a single transfer out of a wager's escrow wallet.
type Payout struct {
	Participant string          `json:"participant"`
	Amount      decimal.Decimal `json:"amount"`
	Kind        string          `json:"kind"`
	Reference   string          `json:"reference,omitempty"`
	Succeeded   bool            `json:"succeeded"`
	Error       string          `json:"error,omitempty"`
}

// Wager is a single betting round.
type Wager struct {
	Schema             int               `json:"schema"`
	ID                 string            `json:"id"`
	Creator            string            `json:"creator"`
	Topic              string            `json:"topic,omitempty"`
	StakeAmount        decimal.Decimal   `json:"stake_amount"`
	Status             WagerStatus       `json:"status"`
	Participants       []string          `json:"participants"`
	ParticipantChoices map[string]string `json:"participant_choices"`
	WalletReference    string            `json:"wallet_reference"`
	OutcomeOptions     []string          `json:"outcome_options,omitempty"`
	ResolvedOutcome    string            `json:"resolved_outcome,omitempty"`
	Winners            []string          `json:"winners,omitempty"`
	PayoutSucceeded    bool              `json:"payout_succeeded"`
	Payouts            []Payout          `json:"payouts,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
	ResolvedAt         *time.Time        `json:"resolved_at,omitempty"`
}

// IsTerminal reports whether the wager can no longer change.
func (w *Wager) IsTerminal() bool {
	return w.Status == StatusCompleted || w.Status == StatusCancelled
}

// AcceptsJoins reports whether new participants may join.
func (w *Wager) AcceptsJoins() bool {
	return w.Status == StatusCreated || w.Status == StatusWaitingForParticipant
}

// HasParticipant reports whether participantID already joined.
func (w *Wager) HasParticipant(participantID string) bool {
	for _, p := range w.Participants {
		if p == participantID {
			return true
		}
	}
	return false
}

// HasDeclaredOptions reports whether the creator declared an explicit option set.
func (w *Wager) HasDeclaredOptions() bool {
	return len(w.OutcomeOptions) > 0
}

// EffectiveOptions returns the option set used to validate resolution.
// Declared options win; otherwise the defaults followed by any other label
// participants actually chose, in join order.
func (w *Wager) EffectiveOptions() []string {
	if w.HasDeclaredOptions() {
		out := make([]string, len(w.OutcomeOptions))
		copy(out, w.OutcomeOptions)
		return out
	}

	out := make([]string, 0, len(DefaultOptions)+len(w.Participants))
	out = append(out, DefaultOptions...)
	for _, p := range w.Participants {
		choice := w.ParticipantChoices[p]
		if choice != "" && MatchOption(out, choice) == "" {
			out = append(out, choice)
		}
	}
	return out
}

// TotalPot is the stake multiplied by the participant count.
func (w *Wager) TotalPot() decimal.Decimal {
	return w.StakeAmount.Mul(decimal.NewFromInt(int64(len(w.Participants))))
}

// Clone returns a deep copy of the wager.
func (w *Wager) Clone() *Wager {
	c := *w
	// slices.Clone and maps.Clone keep nil as nil and empty as empty.
	c.Participants = slices.Clone(w.Participants)
	c.OutcomeOptions = slices.Clone(w.OutcomeOptions)
	c.Winners = slices.Clone(w.Winners)
	c.Payouts = slices.Clone(w.Payouts)
	c.ParticipantChoices = maps.Clone(w.ParticipantChoices)
	if w.ResolvedAt != nil {
		t := *w.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}

// NormalizeOption canonicalises a free-form outcome label.
func NormalizeOption(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// MatchOption returns the element of options equal to label ignoring case,
// or "" when there is none.
func MatchOption(options []string, label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return ""
	}
	for _, opt := range options {
		if strings.EqualFold(opt, label) {
			return opt
		}
	}
	return ""
}
