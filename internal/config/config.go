// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Bot       BotConfig       `mapstructure:"bot"`
	Store     StoreConfig     `mapstructure:"store"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Wallet    WalletConfig    `mapstructure:"wallet"`
	Game      GameConfig      `mapstructure:"game"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// BotConfig selects and configures the messaging transport.
type BotConfig struct {
	Transport string         `mapstructure:"transport"` // telegram, discord or nats
	Telegram  TelegramConfig `mapstructure:"telegram"`
	Discord   DiscordConfig  `mapstructure:"discord"`
	NATS      NATSConfig     `mapstructure:"nats"`
}

// TelegramConfig holds Telegram bot configuration.
type TelegramConfig struct {
	Token       string        `mapstructure:"token"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
}

// DiscordConfig holds Discord bot configuration.
type DiscordConfig struct {
	Token string `mapstructure:"token"`
}

// NATSConfig holds the NATS bridge configuration.
type NATSConfig struct {
	URL            string `mapstructure:"url"`
	InboundSubject string `mapstructure:"inbound_subject"`
	OutboundPrefix string `mapstructure:"outbound_prefix"`
	QueueGroup     string `mapstructure:"queue_group"`
	ClientName     string `mapstructure:"client_name"`
	MaxReconnects  int    `mapstructure:"max_reconnects"`
}

// StoreConfig selects the key-value backend.
type StoreConfig struct {
	Backend string      `mapstructure:"backend"` // file, redis or postgres
	Dir     string      `mapstructure:"dir"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// WalletConfig holds wallet gateway configuration.
type WalletConfig struct {
	EncryptionKey   string        `mapstructure:"encryption_key"`
	InitialBalance  string        `mapstructure:"initial_balance"`
	TransferTimeout time.Duration `mapstructure:"transfer_timeout"`
	ExplorerURL     string        `mapstructure:"explorer_url"`
	Network         string        `mapstructure:"network"`
	Asset           string        `mapstructure:"asset"`
}

// GameConfig holds wager engine configuration.
type GameConfig struct {
	Resolution      string `mapstructure:"resolution"` // creator or random
	PayoutPrecision int32  `mapstructure:"payout_precision"`
	RefundOnCancel  bool   `mapstructure:"refund_on_cancel"`
}

// AgentConfig holds natural-language parser configuration.
type AgentConfig struct {
	AnthropicAPIKey string        `mapstructure:"anthropic_api_key"`
	Model           string        `mapstructure:"model"`
	MaxTokens       int64         `mapstructure:"max_tokens"`
	MaxTurns        int           `mapstructure:"max_turns"`
	Timeout         time.Duration `mapstructure:"timeout"`
	SessionCacheMax int64         `mapstructure:"session_cache_max"`
	HistoryLimit    int           `mapstructure:"history_limit"`
}

// MetricsConfig holds OpenTelemetry metrics configuration.
type MetricsConfig struct {
	Exporter       string        `mapstructure:"exporter"` // none, console or otlp
	OTLPEndpoint   string        `mapstructure:"otlp_endpoint"`
	ServiceName    string        `mapstructure:"service_name"`
	Environment    string        `mapstructure:"environment"`
	ExportInterval time.Duration `mapstructure:"export_interval"`
}

// AdminConfig holds operator user configuration.
// IDs are transport user ids as strings.
type AdminConfig struct {
	IDs []string `mapstructure:"ids"`
}

// WhitelistConfig holds chat whitelist configuration.
// Chats are transport conversation ids as strings.
type WhitelistConfig struct {
	Chats []string `mapstructure:"chats"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. BOT_TELEGRAM_TOKEN, STORE_BACKEND, AGENT_ANTHROPIC_API_KEY
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional - env vars can provide all config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")

	v.SetDefault("bot.transport", "telegram")
	v.SetDefault("bot.telegram.token", "")
	v.SetDefault("bot.telegram.poll_timeout", "10s")
	v.SetDefault("bot.discord.token", "")
	v.SetDefault("bot.nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("bot.nats.inbound_subject", "wagerbot.inbound")
	v.SetDefault("bot.nats.outbound_prefix", "wagerbot.outbound")
	v.SetDefault("bot.nats.queue_group", "wagerbot")
	v.SetDefault("bot.nats.client_name", "wagerbot")
	v.SetDefault("bot.nats.max_reconnects", 10)

	v.SetDefault("store.backend", "file")
	v.SetDefault("store.dir", "./data")
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.key_prefix", "wagerbot:")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "wagerbot")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "wagerbot")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("wallet.encryption_key", "")
	v.SetDefault("wallet.initial_balance", "0")
	v.SetDefault("wallet.transfer_timeout", "30s")
	v.SetDefault("wallet.explorer_url", "")
	v.SetDefault("wallet.network", "base-sepolia")
	v.SetDefault("wallet.asset", "USDC")

	v.SetDefault("game.resolution", "creator")
	v.SetDefault("game.payout_precision", 6)
	v.SetDefault("game.refund_on_cancel", false)

	v.SetDefault("agent.anthropic_api_key", "")
	v.SetDefault("agent.model", "claude-sonnet-4-20250514")
	v.SetDefault("agent.max_tokens", 1024)
	v.SetDefault("agent.max_turns", 3)
	v.SetDefault("agent.timeout", "30s")
	v.SetDefault("agent.session_cache_max", 1000)
	v.SetDefault("agent.history_limit", 10)

	v.SetDefault("metrics.exporter", "none")
	v.SetDefault("metrics.otlp_endpoint", "localhost:4317")
	v.SetDefault("metrics.service_name", "wagerbot")
	v.SetDefault("metrics.environment", "development")
	v.SetDefault("metrics.export_interval", "30s")
}

// Validate checks cross-field constraints that defaults cannot express.
func (c *Config) Validate() error {
	switch c.Bot.Transport {
	case "telegram", "discord", "nats":
	default:
		return fmt.Errorf("unknown bot transport %q", c.Bot.Transport)
	}
	switch c.Store.Backend {
	case "file", "redis", "postgres":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Wallet.EncryptionKey == "" {
		return fmt.Errorf("wallet.encryption_key is required")
	}
	if c.Game.PayoutPrecision < 0 {
		return fmt.Errorf("game.payout_precision must not be negative")
	}
	return nil
}

// NLEnabled reports whether natural-language wager creation is configured.
func (c *Config) NLEnabled() bool {
	return c.Agent.AnthropicAPIKey != ""
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID string) bool {
	for _, id := range c.Admin.IDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsChatAllowed checks if a chat ID is in the whitelist.
func (c *Config) IsChatAllowed(chatID string) bool {
	// Empty whitelist means all chats are allowed
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	for _, id := range c.Whitelist.Chats {
		if id == chatID {
			return true
		}
	}
	return false
}
