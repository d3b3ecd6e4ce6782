package command

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Usage strings.
const (
	UsageCreate = "/create <amount> [option1|option2|...] [topic]"
	UsageJoin   = "join <wager id> <option>"
	UsageClose  = "close <wager id> [winning option]"
	UsageCancel = "/cancel <wager id>"
	UsageStatus = "/status <wager id>"
	UsagePay    = "/pay <user> <amount>"
	UsageCredit = "/credit <user> <amount>"
)

const optionSeparator = "|"

// Parse classifies text. Slash commands are matched case-insensitively.
// join, close and help also work without the slash, as long as the rest of
// the message fits their shape; anything else is natural language.
func Parse(text string) Command {
	text = strings.TrimSpace(text)
	if text == "" {
		return Invalid{Reason: "empty message"}
	}

	fields := strings.Fields(text)
	word, slashed := commandWord(fields[0])
	args := fields[1:]

	if !slashed {
		switch word {
		case "help":
			if len(args) == 0 {
				return Help{}
			}
		case "join", "close":
			if len(args) > 0 && isWagerID(args[0]) {
				return parseSlash(word, args)
			}
		}
		return NaturalLanguage{Text: text}
	}

	return parseSlash(word, args)
}

func parseSlash(word string, args []string) Command {
	switch word {
	case "create", "bet", "wager":
		return parseCreate(args)
	case "join":
		if len(args) < 2 {
			return Invalid{Usage: UsageJoin, Reason: "wager id and option are required"}
		}
		if !isWagerID(args[0]) {
			return Invalid{Usage: UsageJoin, Reason: fmt.Sprintf("%q is not a wager id", args[0])}
		}
		return Join{WagerID: trimID(args[0]), Outcome: strings.Join(args[1:], " ")}
	case "close", "resolve":
		if len(args) < 1 || !isWagerID(args[0]) {
			return Invalid{Usage: UsageClose, Reason: "wager id is required"}
		}
		return Close{WagerID: trimID(args[0]), Outcome: strings.Join(args[1:], " ")}
	case "cancel":
		if len(args) != 1 || !isWagerID(args[0]) {
			return Invalid{Usage: UsageCancel, Reason: "exactly one wager id is required"}
		}
		return Cancel{WagerID: trimID(args[0])}
	case "status", "show":
		if len(args) != 1 || !isWagerID(args[0]) {
			return Invalid{Usage: UsageStatus, Reason: "exactly one wager id is required"}
		}
		return Status{WagerID: trimID(args[0])}
	case "list", "wagers", "active":
		return List{}
	case "balance", "wallet":
		return Balance{}
	case "pay", "send", "transfer":
		return parsePay(args)
	case "credit", "admin_add":
		return parseCredit(args)
	case "top", "leaderboard", "rank":
		return Top{}
	case "help", "start":
		return Help{}
	}
	return Invalid{Usage: "/help", Reason: fmt.Sprintf("unknown command /%s", word)}
}

func parseCreate(args []string) Command {
	if len(args) == 0 {
		return Invalid{Usage: UsageCreate, Reason: "stake amount is required"}
	}
	amount, err := ParseAmount(args[0])
	if err != nil {
		return Invalid{Usage: UsageCreate, Reason: err.Error()}
	}

	rest := args[1:]
	var options []string
	if len(rest) > 0 && strings.Contains(rest[0], optionSeparator) {
		for _, opt := range strings.Split(rest[0], optionSeparator) {
			if opt = strings.TrimSpace(opt); opt != "" {
				options = append(options, opt)
			}
		}
		if len(options) < 2 {
			return Invalid{Usage: UsageCreate, Reason: "list at least two options separated by |"}
		}
		rest = rest[1:]
	}

	return Create{Amount: amount, Options: options, Topic: strings.Join(rest, " ")}
}

func parsePay(args []string) Command {
	recipient, amount, invalid := parseRecipientAmount(UsagePay, args)
	if invalid != nil {
		return *invalid
	}
	return Pay{Recipient: recipient, Amount: amount}
}

func parseCredit(args []string) Command {
	recipient, amount, invalid := parseRecipientAmount(UsageCredit, args)
	if invalid != nil {
		return *invalid
	}
	return Credit{Recipient: recipient, Amount: amount}
}

func parseRecipientAmount(usage string, args []string) (string, decimal.Decimal, *Invalid) {
	if len(args) != 2 {
		return "", decimal.Zero, &Invalid{Usage: usage, Reason: "recipient and amount are required"}
	}
	recipient := strings.TrimPrefix(args[0], "@")
	if recipient == "" {
		return "", decimal.Zero, &Invalid{Usage: usage, Reason: "recipient is required"}
	}
	amount, err := ParseAmount(args[1])
	if err != nil {
		return "", decimal.Zero, &Invalid{Usage: usage, Reason: err.Error()}
	}
	return recipient, amount, nil
}

// ParseAmount reads a positive decimal, allowing a leading "$" and a
// trailing "usdc" unit.
func ParseAmount(s string) (decimal.Decimal, error) {
	raw := strings.ToLower(strings.TrimSpace(s))
	raw = strings.TrimPrefix(raw, "$")
	raw = strings.TrimSuffix(raw, "usdc")

	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%q is not an amount", s)
	}
	if err := ValidateAmount(amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// Amount bounds. Exponent notation can otherwise describe numbers whose
// decimal rendering is millions of digits long.
const (
	MaxAmountIntegerDigits  = 15
	MaxAmountFractionDigits = 18
)

// ValidateAmount checks that amount is positive and within the digit bounds.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be positive")
	}
	exp := int64(amount.Exponent())
	if exp < -MaxAmountFractionDigits {
		return fmt.Errorf("amount has more than %d decimal places", MaxAmountFractionDigits)
	}
	if int64(amount.NumDigits())+exp > MaxAmountIntegerDigits {
		return fmt.Errorf("amount is too large")
	}
	return nil
}

// commandWord lowercases the first token and strips the slash and any
// Telegram-style @botname suffix.
func commandWord(token string) (string, bool) {
	slashed := strings.HasPrefix(token, "/")
	word := strings.TrimPrefix(token, "/")
	if i := strings.IndexByte(word, '@'); i >= 0 && slashed {
		word = word[:i]
	}
	return strings.ToLower(word), slashed
}

func trimID(s string) string {
	return strings.TrimPrefix(s, "#")
}

func isWagerID(s string) bool {
	s = trimID(s)
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
