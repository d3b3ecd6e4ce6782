// Package command turns raw chat text into a typed Command.
// Handlers switch on the concrete type; nothing downstream reads raw text.
package command

import "github.com/shopspring/decimal"

// Command is one parsed chat message.
type Command interface {
	// Kind returns a short stable name, used in logs and metrics.
	Kind() string
}

// Create opens a new wager.
type Create struct {
	Amount  decimal.Decimal
	Options []string
	Topic   string
}

// Join enrolls the sender in a wager with a chosen outcome.
type Join struct {
	WagerID string
	Outcome string
}

// Close resolves a wager. Outcome may be empty under the random policy.
type Close struct {
	WagerID string
	Outcome string
}

// Cancel cancels a wager.
type Cancel struct {
	WagerID string
}

// Status shows one wager.
type Status struct {
	WagerID string
}

// List shows active wagers.
type List struct{}

// Balance shows the sender's wallet.
type Balance struct{}

// Pay sends funds to another user.
type Pay struct {
	Recipient string
	Amount    decimal.Decimal
}

// Credit tops up a user's wallet. Operators only.
type Credit struct {
	Recipient string
	Amount    decimal.Decimal
}

// Top shows the winnings leaderboard.
type Top struct{}

// Help shows usage.
type Help struct{}

// Invalid is a recognised command with bad arguments.
type Invalid struct {
	Usage  string
	Reason string
}

// NaturalLanguage is free text for the NL parser.
type NaturalLanguage struct {
	Text string
}

func (Create) Kind() string          { return "create" }
func (Join) Kind() string            { return "join" }
func (Close) Kind() string           { return "close" }
func (Cancel) Kind() string          { return "cancel" }
func (Status) Kind() string          { return "status" }
func (List) Kind() string            { return "list" }
func (Balance) Kind() string         { return "balance" }
func (Pay) Kind() string             { return "pay" }
func (Credit) Kind() string          { return "credit" }
func (Top) Kind() string             { return "top" }
func (Help) Kind() string            { return "help" }
func (Invalid) Kind() string         { return "invalid" }
func (NaturalLanguage) Kind() string { return "natural_language" }
