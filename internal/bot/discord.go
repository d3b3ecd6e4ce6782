package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/config"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/handler"
)

// discordMaxMessage is the Discord limit on message content length.
const discordMaxMessage = 2000

// Discord serves the bot over the Discord gateway.
type Discord struct {
	session  *discordgo.Session
	dispatch Dispatch
	stopOnce sync.Once
}

// NewDiscord creates a Discord transport.
func NewDiscord(cfg config.DiscordConfig, dispatch Dispatch) (*Discord, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("discord token is required")
	}

	dg, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	d := &Discord{session: dg, dispatch: dispatch}
	dg.AddHandler(d.onMessageCreate)
	return d, nil
}

// Name implements Transport.
func (d *Discord) Name() string { return "discord" }

// Start opens the gateway connection and blocks until ctx is done.
func (d *Discord) Start(ctx context.Context) error {
	if err := d.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord connection: %w", err)
	}
	log.Info().Msg("Discord bot is now running")

	<-ctx.Done()
	d.Stop()
	return nil
}

// Stop closes the gateway connection.
func (d *Discord) Stop() {
	d.stopOnce.Do(func() {
		log.Info().Msg("Stopping Discord bot...")
		if err := d.session.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close discord session")
		}
	})
}

func (d *Discord) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	selfID := ""
	if s.State != nil && s.State.User != nil {
		selfID = s.State.User.ID
	}

	msg, ok := discordMessage(m.Message, selfID)
	if !ok {
		return
	}

	reply, err := d.dispatch(context.Background(), msg)
	if err != nil {
		log.Error().Err(err).
			Str("user_id", msg.SenderID).
			Str("conversation_id", msg.ConversationID).
			Msg("Failed to handle message")
	}
	if reply == "" {
		return
	}

	if _, err := s.ChannelMessageSendReply(m.ChannelID, truncate(reply, discordMaxMessage), m.Reference()); err != nil {
		log.Error().Err(err).Str("channel_id", m.ChannelID).Msg("Failed to send discord reply")
	}
}

// discordMessage converts a Discord message, skipping the bot's own
// messages and those of other bots.
func discordMessage(m *discordgo.Message, selfID string) (handler.Message, bool) {
	if m == nil || m.Author == nil || m.Author.Bot || m.Author.ID == selfID {
		return handler.Message{}, false
	}
	text := strings.TrimSpace(m.Content)
	if text == "" {
		return handler.Message{}, false
	}

	return handler.Message{
		SenderID:       m.Author.ID,
		SenderName:     m.Author.Username,
		ConversationID: m.ChannelID,
		Text:           text,
		Private:        m.GuildID == "",
	}, true
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
