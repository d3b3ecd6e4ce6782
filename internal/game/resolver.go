package game

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/model"
)

// Resolution policy names.
const (
	PolicyCreator = "creator"
	PolicyRandom  = "random"
)

// Resolver picks the winning outcome of a wager.
type Resolver interface {
	// Name returns the policy name used in configuration.
	Name() string
	// Describe returns a one-line explanation for help text.
	Describe() string
	// Resolve returns the winning label from w's effective option set.
	// requested is whatever the closing user supplied, possibly empty.
	Resolve(w *model.Wager, requested string) (string, error)
}

// CreatorChosen lets the closing user name the winning outcome.
type CreatorChosen struct{}

// Name implements Resolver.
func (CreatorChosen) Name() string { return PolicyCreator }

// Describe implements Resolver.
func (CreatorChosen) Describe() string {
	return "the creator names the winning option when closing"
}

// Resolve implements Resolver.
func (CreatorChosen) Resolve(w *model.Wager, requested string) (string, error) {
	options := w.EffectiveOptions()
	if strings.TrimSpace(requested) == "" {
		return "", fmt.Errorf("%w: name the winning option (%s)", ErrInvalidOutcome, strings.Join(options, ", "))
	}
	label := model.MatchOption(options, requested)
	if label == "" {
		return "", fmt.Errorf("%w: %q (choose one of %s)", ErrInvalidOutcome, requested, strings.Join(options, ", "))
	}
	return label, nil
}

// RandomOutcome draws the winning outcome uniformly from the effective option set.
// Any requested outcome is ignored.
type RandomOutcome struct {
	intN func(n int) int
}

// NewRandomOutcome creates a RandomOutcome. A nil intN uses math/rand/v2.
func NewRandomOutcome(intN func(n int) int) *RandomOutcome {
	if intN == nil {
		intN = rand.IntN
	}
	return &RandomOutcome{intN: intN}
}

// Name implements Resolver.
func (*RandomOutcome) Name() string { return PolicyRandom }

// Describe implements Resolver.
func (*RandomOutcome) Describe() string {
	return "the bot draws the winning option at random when the creator closes"
}

// Resolve implements Resolver.
func (r *RandomOutcome) Resolve(w *model.Wager, _ string) (string, error) {
	options := w.EffectiveOptions()
	if len(options) == 0 {
		return "", ErrInvalidOutcome
	}
	return options[r.intN(len(options))], nil
}
