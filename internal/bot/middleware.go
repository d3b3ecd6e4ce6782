package bot

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/config"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/handler"
)

// Middleware wraps a Dispatch.
type Middleware func(next Dispatch) Dispatch

// Chain applies middlewares so that the first one listed runs outermost.
func Chain(d Dispatch, mws ...Middleware) Dispatch {
	for i := len(mws) - 1; i >= 0; i-- {
		d = mws[i](d)
	}
	return d
}

// Whitelist restricts the bot to configured conversations. Users seen in a
// whitelisted conversation may also talk to the bot privately.
type Whitelist struct {
	cfg *config.Config

	mu           sync.RWMutex
	privateUsers map[string]bool
}

// NewWhitelist creates a Whitelist backed by cfg.
func NewWhitelist(cfg *config.Config) *Whitelist {
	return &Whitelist{
		cfg:          cfg,
		privateUsers: make(map[string]bool),
	}
}

// AllowPrivateUser marks a user as allowed to use private chat.
func (w *Whitelist) AllowPrivateUser(userID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.privateUsers[userID] = true
}

// IsPrivateUserAllowed checks if a user is allowed to use private chat.
func (w *Whitelist) IsPrivateUserAllowed(userID string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.privateUsers[userID]
}

// Allows reports whether msg should be handled, recording the sender for
// later private chats when it arrives in a whitelisted conversation.
func (w *Whitelist) Allows(msg handler.Message) bool {
	if msg.Private {
		// An empty whitelist allows every private chat
		return len(w.cfg.Whitelist.Chats) == 0 || w.IsPrivateUserAllowed(msg.SenderID)
	}
	if !w.cfg.IsChatAllowed(msg.ConversationID) {
		return false
	}
	w.AllowPrivateUser(msg.SenderID)
	return true
}

// Middleware drops messages the whitelist does not allow.
func (w *Whitelist) Middleware() Middleware {
	return func(next Dispatch) Dispatch {
		return func(ctx context.Context, msg handler.Message) (string, error) {
			if !w.Allows(msg) {
				log.Debug().
					Str("user_id", msg.SenderID).
					Str("conversation_id", msg.ConversationID).
					Bool("private", msg.Private).
					Msg("Ignoring message from non-whitelisted chat")
				return "", nil
			}
			return next(ctx, msg)
		}
	}
}

// LoggingMiddleware logs all incoming messages.
func LoggingMiddleware() Middleware {
	return func(next Dispatch) Dispatch {
		return func(ctx context.Context, msg handler.Message) (string, error) {
			log.Debug().
				Str("user_id", msg.SenderID).
				Str("username", msg.SenderName).
				Str("conversation_id", msg.ConversationID).
				Bool("private", msg.Private).
				Str("text", msg.Text).
				Msg("Received message")
			return next(ctx, msg)
		}
	}
}

// RecoveryMiddleware recovers from panics in the dispatch and replies
// with a generic error.
func RecoveryMiddleware() Middleware {
	return func(next Dispatch) Dispatch {
		return func(ctx context.Context, msg handler.Message) (reply string, err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Str("user_id", msg.SenderID).
						Msg("Recovered from panic in handler")
					reply = "❌ Internal error, please try again later"
					err = nil
				}
			}()
			return next(ctx, msg)
		}
	}
}
