package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Provider Provider `mapstructure:"provider"`
	Snapshot Snapshot `mapstructure:"snapshot"`
	Filter   Filter   `mapstructure:"filter"`
	Comments Comments `mapstructure:"comments"`
	Votes    Votes    `mapstructure:"votes"`
	Telegram Telegram `mapstructure:"telegram"`
	API      API      `mapstructure:"api"`
	Logging  Logging  `mapstructure:"logging"`
}

// Provider holds upstream market-data provider configuration
type Provider struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Snapshot holds batched snapshot fetching configuration
type Snapshot struct {
	Symbols        []string      `mapstructure:"symbols"`         // tracked symbol set
	DefaultSymbols []string      `mapstructure:"default_symbols"` // placeholder universe for fallback
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	MaxBatchSize   int           `mapstructure:"max_batch_size"` // upstream batching limit
}

// Filter holds instrument-universe filtering configuration
type Filter struct {
	ExcludedExchanges []string `mapstructure:"excluded_exchanges"`
}

// Comments holds comment backend configuration
type Comments struct {
	BaseURL   string        `mapstructure:"base_url"`
	StreamURL string        `mapstructure:"stream_url"` // websocket endpoint for realtime events
	PageLimit int           `mapstructure:"page_limit"` // top-level comments per load
	Timeout   time.Duration `mapstructure:"timeout"`
}

// Votes holds vote backend configuration
type Votes struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Telegram holds Telegram alerting configuration
type Telegram struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	TopMovers      int           `mapstructure:"top_movers"`
	MoversCooldown time.Duration `mapstructure:"movers_cooldown"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// API holds the local JSON API configuration
type API struct {
	ListenAddr     string   `mapstructure:"listen_addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	Enabled        bool     `mapstructure:"enabled"`
}

// Logging holds logging configuration
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("STOCKWATCH")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Provider defaults
	v.SetDefault("provider.base_url", "https://api.stockwatch.dev/market")
	v.SetDefault("provider.timeout", "15s")

	// Snapshot defaults
	v.SetDefault("snapshot.poll_interval", "1m")
	v.SetDefault("snapshot.max_batch_size", 30)
	v.SetDefault("snapshot.default_symbols", []string{
		"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA",
		"TSLA", "META", "NFLX", "AMD", "INTC",
		"DIS", "BA", "JPM", "V", "KO",
	})

	// Filter defaults: crypto/FX venue codes used in venue-prefixed notation
	v.SetDefault("filter.excluded_exchanges", []string{
		"BINANCE", "COINBASE", "KRAKEN", "BITSTAMP", "FOREX", "OANDA", "FX_IDC",
	})

	// Comments defaults
	v.SetDefault("comments.page_limit", 50)
	v.SetDefault("comments.timeout", "10s")

	// Votes defaults
	v.SetDefault("votes.timeout", "10s")

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.top_movers", 5)
	v.SetDefault("telegram.movers_cooldown", "6h")
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// API defaults
	v.SetDefault("api.enabled", true)
	v.SetDefault("api.listen_addr", ":8750")
	v.SetDefault("api.allowed_origins", []string{"*"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider.base_url is required")
	}
	if c.Provider.Timeout < time.Second {
		return fmt.Errorf("provider.timeout must be at least 1 second")
	}

	if len(c.Snapshot.Symbols) == 0 {
		return fmt.Errorf("snapshot.symbols must contain at least one symbol")
	}
	if c.Snapshot.PollInterval < 5*time.Second {
		return fmt.Errorf("snapshot.poll_interval must be at least 5 seconds")
	}
	if c.Snapshot.MaxBatchSize < 1 || c.Snapshot.MaxBatchSize > 30 {
		return fmt.Errorf("snapshot.max_batch_size must be between 1 and 30")
	}
	if len(c.Snapshot.DefaultSymbols) == 0 {
		return fmt.Errorf("snapshot.default_symbols must contain at least one symbol")
	}

	if c.Comments.BaseURL != "" && c.Comments.PageLimit < 1 {
		return fmt.Errorf("comments.page_limit must be at least 1")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
		if c.Telegram.TopMovers < 1 {
			return fmt.Errorf("telegram.top_movers must be at least 1")
		}
	}

	if c.API.Enabled && c.API.ListenAddr == "" {
		return fmt.Errorf("api.listen_addr is required when the api is enabled")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
