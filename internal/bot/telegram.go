package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/config"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/handler"
)

// Telegram serves the bot over the Telegram Bot API using long polling.
type Telegram struct {
	bot      *tele.Bot
	dispatch Dispatch
	stopOnce sync.Once
}

// NewTelegram creates a Telegram transport.
func NewTelegram(cfg config.TelegramConfig, dispatch Dispatch) (*Telegram, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Telegram handler error")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	t := &Telegram{bot: b, dispatch: dispatch}
	b.Handle(tele.OnText, t.handleText)
	return t, nil
}

// Name implements Transport.
func (t *Telegram) Name() string { return "telegram" }

// Start polls for updates until ctx is done.
func (t *Telegram) Start(ctx context.Context) error {
	log.Info().Str("username", t.bot.Me.Username).Msg("Starting Telegram bot...")

	done := make(chan struct{})
	go func() {
		defer close(done)
		t.bot.Start()
	}()

	select {
	case <-ctx.Done():
		t.Stop()
		<-done
	case <-done:
	}
	return nil
}

// Stop stops polling.
func (t *Telegram) Stop() {
	t.stopOnce.Do(func() {
		log.Info().Msg("Stopping Telegram bot...")
		t.bot.Stop()
	})
}

func (t *Telegram) handleText(c tele.Context) error {
	msg, ok := telegramMessage(c.Message())
	if !ok {
		return nil
	}

	reply, err := t.dispatch(context.Background(), msg)
	if err != nil {
		log.Error().Err(err).
			Str("user_id", msg.SenderID).
			Str("conversation_id", msg.ConversationID).
			Msg("Failed to handle message")
	}
	if reply == "" {
		return nil
	}
	return c.Reply(reply)
}

// telegramMessage converts a Telegram message. Commands addressed to a bot
// in groups ("/join@wagerbot 1 yes") lose their @suffix.
func telegramMessage(m *tele.Message) (handler.Message, bool) {
	if m == nil || m.Sender == nil || m.Chat == nil || m.Sender.IsBot {
		return handler.Message{}, false
	}

	name := m.Sender.Username
	if name == "" {
		name = m.Sender.FirstName
	}

	return handler.Message{
		SenderID:       strconv.FormatInt(m.Sender.ID, 10),
		SenderName:     name,
		ConversationID: strconv.FormatInt(m.Chat.ID, 10),
		Text:           stripBotMention(m.Text),
		Private:        m.Chat.Type == tele.ChatPrivate,
	}, true
}

func stripBotMention(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return text
	}
	head, rest, _ := strings.Cut(text, " ")
	if at := strings.Index(head, "@"); at > 0 {
		head = head[:at]
	}
	if rest == "" {
		return head
	}
	return head + " " + rest
}
