// Package agent turns free-form chat text into structured wager requests
// using an Anthropic tool-calling loop.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Parser errors.
var (
	ErrNotAWager           = errors.New("not a wager request")
	ErrUpstreamUnavailable = errors.New("language model unavailable")
	ErrNoDecision          = errors.New("language model gave no decision")
)

// RejectionError is returned when the model decides the text is not a wager.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	if e.Reason == "" {
		return ErrNotAWager.Error()
	}
	return ErrNotAWager.Error() + ": " + e.Reason
}

// Is makes errors.Is(err, ErrNotAWager) hold for rejections.
func (e *RejectionError) Is(target error) bool {
	return target == ErrNotAWager
}

// WagerRequest is a wager proposal extracted from natural language.
type WagerRequest struct {
	Topic   string
	Options [2]string
	Amount  decimal.Decimal
}

// Parser extracts a wager request from free text.
type Parser interface {
	Parse(ctx context.Context, userID, text string) (*WagerRequest, error)
}

// MessageClient is the subset of the Anthropic messages API the parser calls.
type MessageClient interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// NewAnthropicClient returns the messages service of a new API client.
func NewAnthropicClient(apiKey string) MessageClient {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &client.Messages
}

const defaultModel = "claude-sonnet-4-20250514"

const systemPrompt = `You turn chat messages into peer-to-peer wager proposals.
Call create_wager when the message proposes a bet that has a clear topic, exactly two possible outcomes and a stake amount in USDC.
Call reject_request when the message is not a bet, is missing the stake, or is not something two people could fairly settle.
Never invent an amount the user did not state. Keep option labels short, one or two words.`

// ClaudeParser implements Parser with a Claude tool loop.
type ClaudeParser struct {
	client    MessageClient
	sessions  *SessionCache
	model     string
	maxTokens int64
	maxTurns  int
	timeout   time.Duration
}

// Option configures a ClaudeParser.
type Option func(*ClaudeParser)

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(p *ClaudeParser) {
		if model != "" {
			p.model = model
		}
	}
}

// WithMaxTokens sets the response token limit.
func WithMaxTokens(n int64) Option {
	return func(p *ClaudeParser) {
		if n > 0 {
			p.maxTokens = n
		}
	}
}

// WithMaxTurns bounds the number of model calls per Parse.
func WithMaxTurns(n int) Option {
	return func(p *ClaudeParser) {
		if n > 0 {
			p.maxTurns = n
		}
	}
}

// WithTimeout bounds the whole Parse call.
func WithTimeout(d time.Duration) Option {
	return func(p *ClaudeParser) {
		p.timeout = d
	}
}

// WithSessions attaches a per-user history cache.
func WithSessions(c *SessionCache) Option {
	return func(p *ClaudeParser) {
		p.sessions = c
	}
}

// NewClaudeParser creates a parser backed by client.
func NewClaudeParser(client MessageClient, opts ...Option) *ClaudeParser {
	p := &ClaudeParser{
		client:    client,
		model:     defaultModel,
		maxTokens: 1024,
		maxTurns:  3,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse runs the tool loop until the model creates or rejects a wager.
func (p *ClaudeParser) Parse(ctx context.Context, userID, text string) (*WagerRequest, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &RejectionError{Reason: "empty message"}
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	messages := p.history(userID)
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))

	for turn := 0; turn < p.maxTurns; turn++ {
		resp, err := p.client.New(ctx, anthropic.MessageNewParams{
			Model:      anthropic.Model(p.model),
			MaxTokens:  p.maxTokens,
			Messages:   messages,
			System:     []anthropic.TextBlockParam{{Text: systemPrompt}},
			Tools:      wagerTools(),
			ToolChoice: anthropic.ToolChoiceUnionParam{OfAny: &anthropic.ToolChoiceAnyParam{}},
		})
		if err != nil {
			log.Warn().Err(err).Str("user_id", userID).Int("turn", turn).Msg("Language model call failed")
			return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
		}

		var (
			assistant []anthropic.ContentBlockParamUnion
			results   []anthropic.ContentBlockParamUnion
		)
		for _, block := range resp.Content {
			switch block.Type {
			case "text":
				if block.Text != "" {
					assistant = append(assistant, anthropic.NewTextBlock(block.Text))
				}
			case "tool_use":
				assistant = append(assistant, anthropic.NewToolUseBlock(block.ID, block.Input, block.Name))

				switch block.Name {
				case toolCreateWager:
					req, err := decodeCreateWager(block.Input)
					if err != nil {
						results = append(results, anthropic.NewToolResultBlock(block.ID, err.Error(), true))
						continue
					}
					p.remember(userID, text, describeRequest(req))
					return req, nil
				case toolRejectRequest:
					var in rejectInput
					_ = json.Unmarshal(block.Input, &in)
					reason := strings.TrimSpace(in.Reason)
					p.remember(userID, text, "Rejected: "+reason)
					return nil, &RejectionError{Reason: reason}
				default:
					results = append(results, anthropic.NewToolResultBlock(block.ID,
						fmt.Sprintf("unknown tool: %s", block.Name), true))
				}
			}
		}

		if len(assistant) > 0 {
			messages = append(messages, anthropic.NewAssistantMessage(assistant...))
		}
		if len(results) == 0 {
			results = append(results, anthropic.NewTextBlock("Call create_wager or reject_request."))
		}
		messages = append(messages, anthropic.NewUserMessage(results...))
	}

	return nil, fmt.Errorf("%w after %d turns", ErrNoDecision, p.maxTurns)
}

func (p *ClaudeParser) history(userID string) []anthropic.MessageParam {
	if p.sessions == nil {
		return nil
	}
	turns := p.sessions.History(userID)
	out := make([]anthropic.MessageParam, 0, len(turns)+1)
	for _, t := range turns {
		switch t.Role {
		case RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(t.Text)))
		case RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(t.Text)))
		}
	}
	return out
}

func (p *ClaudeParser) remember(userID, text, outcome string) {
	if p.sessions == nil {
		return
	}
	p.sessions.Append(userID, Turn{Role: RoleUser, Text: text}, Turn{Role: RoleAssistant, Text: outcome})
}

func describeRequest(req *WagerRequest) string {
	return fmt.Sprintf("Created wager: %s (%s or %s) for %s USDC",
		req.Topic, req.Options[0], req.Options[1], req.Amount.String())
}
