// Package bot connects the wager handler to chat transports: Telegram,
// Discord and a NATS bridge.
package bot

import (
	"context"
	"fmt"

	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/config"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/handler"
)

// Dispatch handles one inbound message and returns the reply text.
// An empty reply means nothing is sent back.
type Dispatch func(ctx context.Context, msg handler.Message) (string, error)

// Transport delivers messages to a Dispatch and sends its replies.
type Transport interface {
	// Name identifies the transport in logs.
	Name() string
	// Start receives messages until ctx is cancelled or Stop is called.
	Start(ctx context.Context) error
	// Stop ends Start. It is safe to call more than once.
	Stop()
}

// New builds the transport selected by cfg.Bot.Transport. The dispatch is
// wrapped in the standard middleware chain.
func New(cfg *config.Config, h *handler.WagerHandler) (Transport, error) {
	dispatch := Chain(h.Handle,
		RecoveryMiddleware(),
		LoggingMiddleware(),
		NewWhitelist(cfg).Middleware(),
	)

	switch cfg.Bot.Transport {
	case "telegram":
		return NewTelegram(cfg.Bot.Telegram, dispatch)
	case "discord":
		return NewDiscord(cfg.Bot.Discord, dispatch)
	case "nats":
		return NewNATSBridge(cfg.Bot.NATS, dispatch), nil
	}
	return nil, fmt.Errorf("unknown bot transport %q", cfg.Bot.Transport)
}
