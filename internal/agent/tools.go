package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/shopspring/decimal"

	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/command"
)

const (
	toolCreateWager   = "create_wager"
	toolRejectRequest = "reject_request"
)

type createWagerInput struct {
	Topic   string          `json:"topic"`
	Options []string        `json:"options"`
	Amount  json.RawMessage `json:"amount"`
}

type rejectInput struct {
	Reason string `json:"reason"`
}

func wagerTools() []anthropic.ToolUnionParam {
	create := anthropic.ToolParam{
		Name:        toolCreateWager,
		Description: anthropic.String("Create a two-outcome wager with a stake in USDC."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: map[string]any{
				"topic": map[string]any{
					"type":        "string",
					"description": "What the wager is about, as a short phrase",
				},
				"options": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"minItems":    2,
					"maxItems":    2,
					"description": "The two possible outcomes",
				},
				"amount": map[string]any{
					"type":        "string",
					"description": "Stake per participant in USDC, e.g. \"5\" or \"0.25\"",
				},
			},
			Required: []string{"topic", "options", "amount"},
		},
	}
	reject := anthropic.ToolParam{
		Name:        toolRejectRequest,
		Description: anthropic.String("Decline a message that is not a valid wager proposal."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: map[string]any{
				"reason": map[string]any{
					"type":        "string",
					"description": "Short explanation shown to the user",
				},
			},
			Required: []string{"reason"},
		},
	}
	return []anthropic.ToolUnionParam{{OfTool: &create}, {OfTool: &reject}}
}

// decodeCreateWager validates create_wager input. The error text is sent
// back to the model as a tool result.
func decodeCreateWager(raw json.RawMessage) (*WagerRequest, error) {
	var in createWagerInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("invalid tool input JSON: %w", err)
	}

	topic := strings.TrimSpace(in.Topic)
	if topic == "" {
		return nil, errors.New("topic must not be empty")
	}

	if len(in.Options) != 2 {
		return nil, fmt.Errorf("exactly 2 options are required, got %d", len(in.Options))
	}
	a, b := strings.TrimSpace(in.Options[0]), strings.TrimSpace(in.Options[1])
	if a == "" || b == "" {
		return nil, errors.New("options must not be empty")
	}
	if strings.EqualFold(a, b) {
		return nil, errors.New("options must be different")
	}

	rawAmount := strings.Trim(strings.TrimSpace(string(in.Amount)), `"`)
	amount, err := decimal.NewFromString(strings.TrimPrefix(strings.TrimSpace(rawAmount), "$"))
	if err != nil {
		return nil, fmt.Errorf("amount %q is not a number", rawAmount)
	}
	if err := command.ValidateAmount(amount); err != nil {
		return nil, err
	}

	return &WagerRequest{
		Topic:   topic,
		Options: [2]string{a, b},
		Amount:  amount,
	}, nil
}
