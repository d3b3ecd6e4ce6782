// Package handler dispatches parsed chat commands to the wager engine and
// account services, and renders plain-text replies.
package handler

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/agent"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/command"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/game"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/pkg/metrics"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/service"
)

// Permission errors.
var (
	ErrNotCreator = errors.New("only the wager creator can do that")
	ErrNotAdmin   = errors.New("only operators can do that")
)

const (
	recentTransfers = 3
	topLimit        = 10
)

// Message is one inbound chat message, independent of transport.
type Message struct {
	SenderID       string
	SenderName     string
	ConversationID string
	Text           string
	// Private is set for one-to-one conversations with the bot.
	Private bool
}

// WagerHandler turns messages into replies.
type WagerHandler struct {
	engine      *game.Engine
	accounts    *service.AccountService
	transfers   *service.TransferService
	ranking     *service.RankingService
	parser      agent.Parser
	metrics     *metrics.Instruments
	isAdmin     func(userID string) bool
	explorerURL string
	asset       string
}

// Option configures a WagerHandler.
type Option func(*WagerHandler)

// WithParser enables natural-language wager creation.
func WithParser(p agent.Parser) Option {
	return func(h *WagerHandler) {
		h.parser = p
	}
}

// WithMetrics sets the metric instruments.
func WithMetrics(m *metrics.Instruments) Option {
	return func(h *WagerHandler) {
		h.metrics = m
	}
}

// WithAdmins sets the operator check used by /credit and cancel overrides.
func WithAdmins(isAdmin func(userID string) bool) Option {
	return func(h *WagerHandler) {
		h.isAdmin = isAdmin
	}
}

// WithExplorer sets the transaction link template, e.g. "https://host/tx/%s".
func WithExplorer(template string) Option {
	return func(h *WagerHandler) {
		h.explorerURL = template
	}
}

// WithAsset sets the asset symbol shown in replies.
func WithAsset(asset string) Option {
	return func(h *WagerHandler) {
		if asset != "" {
			h.asset = asset
		}
	}
}

// NewWagerHandler creates a new WagerHandler.
func NewWagerHandler(
	engine *game.Engine,
	accounts *service.AccountService,
	transfers *service.TransferService,
	ranking *service.RankingService,
	opts ...Option,
) *WagerHandler {
	h := &WagerHandler{
		engine:    engine,
		accounts:  accounts,
		transfers: transfers,
		ranking:   ranking,
		isAdmin:   func(string) bool { return false },
		asset:     "USDC",
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.metrics == nil {
		h.metrics = metrics.Default()
	}
	return h
}

// Handle parses msg and returns the reply text. Expected failures such as
// validation or payment errors become explanatory replies with a nil error;
// a non-nil error means something unexpected happened, and the returned
// text is still suitable to send.
func (h *WagerHandler) Handle(ctx context.Context, msg Message) (string, error) {
	cmd := command.Parse(msg.Text)
	h.metrics.CommandHandled(ctx, cmd.Kind())

	logger := log.With().
		Str("user_id", msg.SenderID).
		Str("conversation_id", msg.ConversationID).
		Str("command", cmd.Kind()).
		Logger()

	reply, err := h.dispatch(ctx, msg, cmd)
	if err == nil {
		logger.Debug().Msg("Command handled")
		return reply, nil
	}

	text, expected := errorReply(err)
	if expected {
		logger.Info().Err(err).Msg("Command rejected")
		return text, nil
	}
	logger.Error().Err(err).Msg("Command failed")
	return text, err
}

func (h *WagerHandler) dispatch(ctx context.Context, msg Message, cmd command.Command) (string, error) {
	switch c := cmd.(type) {
	case command.Create:
		return h.handleCreate(ctx, msg.SenderID, c)
	case command.NaturalLanguage:
		return h.handleNaturalLanguage(ctx, msg, c)
	case command.Join:
		return h.handleJoin(ctx, msg.SenderID, c)
	case command.Close:
		return h.handleClose(ctx, msg.SenderID, c)
	case command.Cancel:
		return h.handleCancel(ctx, msg.SenderID, c)
	case command.Status:
		return h.handleStatus(ctx, c)
	case command.List:
		return h.handleList(ctx)
	case command.Balance:
		return h.handleBalance(ctx, msg.SenderID)
	case command.Pay:
		return h.handlePay(ctx, msg.SenderID, c)
	case command.Credit:
		return h.handleCredit(ctx, msg.SenderID, c)
	case command.Top:
		return h.handleTop(ctx)
	case command.Help:
		return h.helpText(), nil
	case command.Invalid:
		return formatInvalid(c), nil
	}
	return h.helpText(), nil
}
