package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Twitter   TwitterConfig   `mapstructure:"twitter"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Digest    DigestConfig    `mapstructure:"digest"`
	Server    ServerConfig    `mapstructure:"server"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite
	DSN    string `mapstructure:"dsn"`    // Connection string
}

// TwitterConfig holds RapidAPI Twitter/X API settings
type TwitterConfig struct {
	APIKey  string `mapstructure:"api_key"`
	APIHost string `mapstructure:"api_host"`
}

// AnthropicConfig holds Claude API settings for the relevance classifier
type AnthropicConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// MonitorConfig holds tweet monitoring settings
type MonitorConfig struct {
	Cron       string `mapstructure:"cron"`        // fleet scan schedule
	FetchCount int    `mapstructure:"fetch_count"` // tweets fetched per target per cycle
}

// DigestConfig holds daily RSS digest settings
type DigestConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Cron     string `mapstructure:"cron"`
	FeedURL  string `mapstructure:"feed_url"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	TopicID  int    `mapstructure:"topic_id"`
}

// ServerConfig holds HTTP API settings for the scheduler daemon
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	TwitterRequestsPer15Min    int `mapstructure:"twitter_requests_per_15min"`
	AnthropicRequestsPerMinute int `mapstructure:"anthropic_requests_per_minute"`
	ChannelRequestsPerSecond   int `mapstructure:"channel_requests_per_second"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout or file path
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Load .env file if present (ignore errors if not found)
	_ = godotenv.Load()
	_ = godotenv.Load(".env.local")

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in current directory and configs folder
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")

		// Also check user's home directory
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".x-monitor"))
		}
	}

	// Environment variables
	v.SetEnvPrefix("XMONITOR")
	v.AutomaticEnv()

	// Explicit bindings for nested keys (Viper doesn't auto-bind underscored nested keys)
	v.BindEnv("twitter.api_key", "XMONITOR_TWITTER_API_KEY")
	v.BindEnv("twitter.api_host", "XMONITOR_TWITTER_API_HOST")
	v.BindEnv("anthropic.api_key", "XMONITOR_ANTHROPIC_API_KEY")
	v.BindEnv("database.driver", "XMONITOR_DATABASE_DRIVER")
	v.BindEnv("database.dsn", "XMONITOR_DATABASE_DSN")
	v.BindEnv("digest.enabled", "XMONITOR_DIGEST_ENABLED")
	v.BindEnv("digest.feed_url", "XMONITOR_DIGEST_FEED_URL")
	v.BindEnv("digest.bot_token", "XMONITOR_DIGEST_BOT_TOKEN")
	v.BindEnv("digest.chat_id", "XMONITOR_DIGEST_CHAT_ID")
	v.BindEnv("digest.topic_id", "XMONITOR_DIGEST_TOPIC_ID")
	v.BindEnv("server.port", "XMONITOR_SERVER_PORT", "PORT")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/xmonitor.db")

	// Twitter defaults
	v.SetDefault("twitter.api_host", "twitter241.p.rapidapi.com")

	// Anthropic defaults
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("anthropic.max_tokens", 10)
	v.SetDefault("anthropic.temperature", 0.3)

	// Monitor defaults
	v.SetDefault("monitor.cron", "0 */3 * * *") // Every 3 hours
	v.SetDefault("monitor.fetch_count", 10)

	// Digest defaults
	v.SetDefault("digest.enabled", false)
	v.SetDefault("digest.cron", "0 0 * * *") // Daily at 00:00 UTC
	v.SetDefault("digest.feed_url", "https://openai.com/news/rss.xml")

	// Server defaults
	v.SetDefault("server.port", "10000")

	// Rate limit defaults
	v.SetDefault("rate_limit.twitter_requests_per_15min", 300)
	v.SetDefault("rate_limit.anthropic_requests_per_minute", 30)
	v.SetDefault("rate_limit.channel_requests_per_second", 5)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Twitter.APIKey == "" {
		return fmt.Errorf("twitter.api_key is required")
	}
	if c.Anthropic.APIKey == "" {
		return fmt.Errorf("anthropic.api_key is required")
	}
	if c.Digest.Enabled && (c.Digest.BotToken == "" || c.Digest.ChatID == "") {
		return fmt.Errorf("digest.bot_token and digest.chat_id are required when digest is enabled")
	}
	return nil
}
