// Package game implements the wager lifecycle: pure state transitions,
// payout math, outcome resolvers and the Engine that orchestrates them
// against the store and the wallet gateway.
package game

import (
	"fmt"
	"strings"
	"time"

	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/model"
)

// ValidateJoin checks whether participantID may join w choosing outcome,
// without modifying w. It returns the label to store: the declared option's
// spelling when options are declared, otherwise the spelling already in use
// or the normalized label.
func ValidateJoin(w *model.Wager, participantID, outcome string) (string, error) {
	if strings.TrimSpace(participantID) == "" {
		return "", ErrInvalidParticipant
	}
	if !w.AcceptsJoins() {
		return "", fmt.Errorf("%w: wager %s is %s", ErrInvalidState, w.ID, w.Status)
	}
	if w.HasParticipant(participantID) {
		return "", ErrDuplicateParticipant
	}
	if strings.TrimSpace(outcome) == "" {
		return "", fmt.Errorf("%w: no outcome chosen", ErrInvalidOutcome)
	}

	if w.HasDeclaredOptions() {
		label := model.MatchOption(w.OutcomeOptions, outcome)
		if label == "" {
			return "", fmt.Errorf("%w: %q (choose one of %s)", ErrInvalidOutcome, outcome, strings.Join(w.OutcomeOptions, ", "))
		}
		return label, nil
	}

	if label := model.MatchOption(w.EffectiveOptions(), outcome); label != "" {
		return label, nil
	}
	return model.NormalizeOption(outcome), nil
}

// ApplyJoin records the participant and choice. Callers run ValidateJoin first.
func ApplyJoin(w *model.Wager, participantID, label string, now time.Time) {
	if w.ParticipantChoices == nil {
		w.ParticipantChoices = make(map[string]string)
	}
	w.Participants = append(w.Participants, participantID)
	w.ParticipantChoices[participantID] = label
	w.Status = model.StatusWaitingForParticipant
	w.UpdatedAt = now
}

// ValidateResolve checks the status and participant-count gate for resolution.
func ValidateResolve(w *model.Wager) error {
	if w.Status != model.StatusWaitingForParticipant {
		return fmt.Errorf("%w: wager %s is %s", ErrInvalidState, w.ID, w.Status)
	}
	if len(w.Participants) < 2 {
		return fmt.Errorf("%w: wager %s needs at least 2 participants, has %d", ErrInvalidState, w.ID, len(w.Participants))
	}
	return nil
}

// SelectWinners returns, in join order, the participants whose choice
// matches outcome ignoring case.
func SelectWinners(w *model.Wager, outcome string) []string {
	winners := make([]string, 0, len(w.Participants))
	for _, p := range w.Participants {
		if strings.EqualFold(w.ParticipantChoices[p], strings.TrimSpace(outcome)) {
			winners = append(winners, p)
		}
	}
	return winners
}

// Cancel moves a non-terminal wager to CANCELLED.
func Cancel(w *model.Wager, now time.Time) error {
	if w.IsTerminal() {
		return fmt.Errorf("%w: wager %s is already %s", ErrInvalidState, w.ID, w.Status)
	}
	w.Status = model.StatusCancelled
	w.UpdatedAt = now
	return nil
}

// normalizeOptions trims declared options and checks there are at least two
// distinct labels. A nil or empty input means "no declared options".
func normalizeOptions(options []string) ([]string, error) {
	if len(options) == 0 {
		return nil, nil
	}

	out := make([]string, 0, len(options))
	for _, opt := range options {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			return nil, fmt.Errorf("%w: empty option", ErrInvalidOptions)
		}
		if model.MatchOption(out, opt) != "" {
			return nil, fmt.Errorf("%w: %q listed twice", ErrInvalidOptions, opt)
		}
		out = append(out, opt)
	}
	if len(out) < 2 {
		return nil, ErrInvalidOptions
	}
	return out, nil
}
