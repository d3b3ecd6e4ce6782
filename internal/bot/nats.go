package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/config"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/handler"
)

// ErrInvalidEnvelope is returned for inbound payloads missing required fields.
var ErrInvalidEnvelope = errors.New("invalid message envelope")

// InboundEnvelope is a chat message published to the bridge by an external
// gateway.
type InboundEnvelope struct {
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	SenderName     string `json:"sender_name,omitempty"`
	Text           string `json:"text"`
	Private        bool   `json:"private,omitempty"`
}

// OutboundEnvelope is a bot reply published by the bridge.
type OutboundEnvelope struct {
	ConversationID string    `json:"conversation_id"`
	ReplyTo        string    `json:"reply_to"`
	Text           string    `json:"text"`
	SentAt         time.Time `json:"sent_at"`
}

// NATSBridge exchanges chat messages with external gateways over NATS.
// Inbound messages are load balanced across bridges in the same queue group.
type NATSBridge struct {
	cfg      config.NATSConfig
	dispatch Dispatch

	mu       sync.Mutex
	nc       *nats.Conn
	stopOnce sync.Once
}

// NewNATSBridge creates a NATS transport.
func NewNATSBridge(cfg config.NATSConfig, dispatch Dispatch) *NATSBridge {
	return &NATSBridge{cfg: cfg, dispatch: dispatch}
}

// Name implements Transport.
func (b *NATSBridge) Name() string { return "nats" }

// Start connects, subscribes to the inbound subject and blocks until ctx
// is done.
func (b *NATSBridge) Start(ctx context.Context) error {
	if err := b.connect(); err != nil {
		return err
	}

	<-ctx.Done()
	b.Stop()
	return nil
}

func (b *NATSBridge) connect() error {
	opts := []nats.Option{
		nats.Name(b.cfg.ClientName),
		nats.MaxReconnects(b.cfg.MaxReconnects),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Error().Err(err).Msg("NATS disconnected with error")
			} else {
				log.Warn().Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info().Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			log.Error().Err(err).Str("subject", subject).Msg("NATS async error")
		}),
	}

	nc, err := nats.Connect(b.cfg.URL, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	b.mu.Lock()
	b.nc = nc
	b.mu.Unlock()

	if _, err := nc.QueueSubscribe(b.cfg.InboundSubject, b.cfg.QueueGroup, b.handleMsg); err != nil {
		nc.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", b.cfg.InboundSubject, err)
	}

	log.Info().
		Str("url", b.cfg.URL).
		Str("subject", b.cfg.InboundSubject).
		Str("queue", b.cfg.QueueGroup).
		Msg("NATS bridge subscribed")
	return nil
}

// Stop drains the subscription and closes the connection.
func (b *NATSBridge) Stop() {
	b.stopOnce.Do(func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.nc == nil {
			return
		}
		log.Info().Msg("Stopping NATS bridge...")
		if err := b.nc.Drain(); err != nil {
			log.Warn().Err(err).Msg("Failed to drain NATS connection")
			b.nc.Close()
		}
	})
}

func (b *NATSBridge) handleMsg(m *nats.Msg) {
	msg, err := DecodeInbound(m.Data)
	if err != nil {
		log.Warn().Err(err).Str("subject", m.Subject).Msg("Dropping malformed inbound message")
		return
	}

	reply, err := b.dispatch(context.Background(), msg)
	if err != nil {
		log.Error().Err(err).
			Str("user_id", msg.SenderID).
			Str("conversation_id", msg.ConversationID).
			Msg("Failed to handle message")
	}
	if reply == "" {
		return
	}

	data, err := EncodeOutbound(msg, reply, time.Now().UTC())
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode reply")
		return
	}

	subject := OutboundSubject(b.cfg.OutboundPrefix, msg.ConversationID)
	b.mu.Lock()
	nc := b.nc
	b.mu.Unlock()
	if err := nc.Publish(subject, data); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("Failed to publish reply")
	}
	if m.Reply != "" {
		if err := m.Respond(data); err != nil {
			log.Error().Err(err).Str("subject", m.Reply).Msg("Failed to respond")
		}
	}
}

// DecodeInbound parses an inbound envelope into a handler message.
func DecodeInbound(data []byte) (handler.Message, error) {
	var env InboundEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return handler.Message{}, fmt.Errorf("%w: %w", ErrInvalidEnvelope, err)
	}
	if env.ConversationID == "" || env.SenderID == "" {
		return handler.Message{}, fmt.Errorf("%w: conversation_id and sender_id are required", ErrInvalidEnvelope)
	}

	return handler.Message{
		SenderID:       env.SenderID,
		SenderName:     env.SenderName,
		ConversationID: env.ConversationID,
		Text:           strings.TrimSpace(env.Text),
		Private:        env.Private,
	}, nil
}

// EncodeOutbound builds the reply envelope for msg.
func EncodeOutbound(msg handler.Message, reply string, sentAt time.Time) ([]byte, error) {
	return json.Marshal(OutboundEnvelope{
		ConversationID: msg.ConversationID,
		ReplyTo:        msg.SenderID,
		Text:           reply,
		SentAt:         sentAt,
	})
}

// OutboundSubject returns the subject replies for a conversation are
// published on. Subject separators and wildcards in the id are replaced.
func OutboundSubject(prefix, conversationID string) string {
	token := strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, conversationID)
	return prefix + "." + token
}
