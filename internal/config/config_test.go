package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	dir := writeConfig(t, "wallet:\n  encryption_key: test-key\n")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "telegram", cfg.Bot.Transport)
	assert.Equal(t, 10*time.Second, cfg.Bot.Telegram.PollTimeout)
	assert.Equal(t, "wagerbot.inbound", cfg.Bot.NATS.InboundSubject)
	assert.Equal(t, "file", cfg.Store.Backend)
	assert.Equal(t, "creator", cfg.Game.Resolution)
	assert.Equal(t, int32(6), cfg.Game.PayoutPrecision)
	assert.False(t, cfg.Game.RefundOnCancel)
	assert.Equal(t, "USDC", cfg.Wallet.Asset)
	assert.Equal(t, 30*time.Second, cfg.Wallet.TransferTimeout)
	assert.Equal(t, "none", cfg.Metrics.Exporter)
	assert.False(t, cfg.NLEnabled())
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := writeConfig(t, `
bot:
  transport: nats
store:
  backend: redis
wallet:
  encryption_key: from-file
game:
  resolution: random
  refund_on_cancel: true
admin:
  ids: ["42", "77"]
whitelist:
  chats: ["-100123"]
`)
	t.Setenv("WALLET_ENCRYPTION_KEY", "from-env")
	t.Setenv("AGENT_ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("STORE_REDIS_ADDR", "redis:6380")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "nats", cfg.Bot.Transport)
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "redis:6380", cfg.Store.Redis.Addr)
	assert.Equal(t, "from-env", cfg.Wallet.EncryptionKey)
	assert.Equal(t, "random", cfg.Game.Resolution)
	assert.True(t, cfg.Game.RefundOnCancel)
	assert.True(t, cfg.NLEnabled())
	assert.Equal(t, []string{"42", "77"}, cfg.Admin.IDs)
	assert.Equal(t, []string{"-100123"}, cfg.Whitelist.Chats)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Bot:    BotConfig{Transport: "discord"},
			Store:  StoreConfig{Backend: "postgres"},
			Wallet: WalletConfig{EncryptionKey: "k"},
			Game:   GameConfig{PayoutPrecision: 6},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"unknown transport", func(c *Config) { c.Bot.Transport = "irc" }, "bot transport"},
		{"unknown backend", func(c *Config) { c.Store.Backend = "sqlite" }, "store backend"},
		{"missing key", func(c *Config) { c.Wallet.EncryptionKey = "" }, "encryption_key"},
		{"negative precision", func(c *Config) { c.Game.PayoutPrecision = -1 }, "payout_precision"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoad_MissingEncryptionKey(t *testing.T) {
	dir := writeConfig(t, "log:\n  level: debug\n")
	_, err := Load(dir)
	assert.ErrorContains(t, err, "encryption_key")
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "wagers"}
	assert.Equal(t, "postgres://u:p@db:5433/wagers?sslmode=disable", d.DSN())
}

// For any admin list, IsAdmin is true exactly for listed ids.
func TestIsAdmin_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ids := rapid.SliceOfDistinct(rapid.StringMatching(`[0-9]{1,6}`), rapid.ID[string]).Draw(rt, "admins")
		probe := rapid.StringMatching(`[0-9]{1,6}`).Draw(rt, "probe")

		cfg := &Config{Admin: AdminConfig{IDs: ids}}

		listed := false
		for _, id := range ids {
			assert.True(rt, cfg.IsAdmin(id))
			if id == probe {
				listed = true
			}
		}
		assert.Equal(rt, listed, cfg.IsAdmin(probe))
	})
}

// An empty whitelist allows every chat; otherwise only listed chats.
func TestIsChatAllowed_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		chats := rapid.SliceOfDistinct(rapid.StringMatching(`-?[0-9]{1,8}`), rapid.ID[string]).Draw(rt, "chats")
		probe := rapid.StringMatching(`-?[0-9]{1,8}`).Draw(rt, "probe")

		cfg := &Config{Whitelist: WhitelistConfig{Chats: chats}}

		if len(chats) == 0 {
			assert.True(rt, cfg.IsChatAllowed(probe))
			return
		}
		listed := false
		for _, id := range chats {
			if id == probe {
				listed = true
			}
		}
		assert.Equal(rt, listed, cfg.IsChatAllowed(probe))
	})
}
