package apebot

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/disgoorg/snowflake/v2"
	"github.com/pelletier/go-toml/v2"

	"github.com/greatapesociety/apebot/apebot/notify"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	if err = cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log         LogConfig         `toml:"log"`
	Bot         BotConfig         `toml:"bot"`
	Collection  CollectionConfig  `toml:"collection"`
	Marketplace MarketplaceConfig `toml:"marketplace"`
	Poller      PollerConfig      `toml:"poller"`
	Oracle      OracleConfig      `toml:"oracle"`
	Twitter     TwitterConfig     `toml:"twitter"`
}

type BotConfig struct {
	DevGuilds []snowflake.ID `toml:"dev_guilds"`
	Token     string         `toml:"token"`

	// SalesChannelID receives sale announcements. ChatChannelID limits
	// where text commands are answered; zero means every channel.
	SalesChannelID snowflake.ID `toml:"sales_channel_id"`
	ChatChannelID  snowflake.ID `toml:"chat_channel_id"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type CollectionConfig struct {
	Contract       string   `toml:"contract"`
	Name           string   `toml:"name"`
	AssetURLPrefix string   `toml:"asset_url_prefix"`
	SnapshotPath   string   `toml:"snapshot_path"`
	PseudoTrait    string   `toml:"pseudo_trait"`
	Hashtags       []string `toml:"hashtags"`
	EmbedFooter    string   `toml:"embed_footer"`
}

type MarketplaceConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxRetries     int    `toml:"max_retries"`
}

type PollerConfig struct {
	IntervalSeconds int `toml:"interval_seconds"`
	Window          int `toml:"window"`
}

type OracleConfig struct {
	BaseURL string `toml:"base_url"`
}

type TwitterConfig struct {
	Enabled bool `toml:"enabled"`
	notify.TwitterCredentials
}

func (c *Config) validate() error {
	if c.Bot.Token == "" {
		return fmt.Errorf("bot.token is required")
	}
	if c.Collection.Contract == "" {
		return fmt.Errorf("collection.contract is required")
	}
	if c.Collection.SnapshotPath == "" {
		return fmt.Errorf("collection.snapshot_path is required")
	}
	return nil
}
