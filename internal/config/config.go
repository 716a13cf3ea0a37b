// Package config binds server configuration from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable of the chat edge server.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Auth       AuthConfig       `mapstructure:"auth"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Chat       ChatConfig       `mapstructure:"chat"`
	Moderation ModerationConfig `mapstructure:"moderation"`
	FailOpen   FailOpenConfig   `mapstructure:"fail_open"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// Prefix namespaces every key so multiple deployments can share one
	// store, e.g. "mainnet" vs "staging".
	Prefix string `mapstructure:"prefix"`
}

type AuthConfig struct {
	// JWTSecret verifies the signed tokens minted by the sign-in service.
	JWTSecret string `mapstructure:"jwt_secret"`
	// ServiceSecret admits trusted backend callers with no wallet.
	ServiceSecret string `mapstructure:"service_secret"`
}

type RateLimitConfig struct {
	Max           int `mapstructure:"max"`
	WindowSeconds int `mapstructure:"window_seconds"`
	// Upgrade throttling for the /ws endpoint, keyed by client IP.
	UpgradeBurst  int           `mapstructure:"upgrade_burst"`
	UpgradeWindow time.Duration `mapstructure:"upgrade_window"`
}

type ChatConfig struct {
	MaxMessageLength int `mapstructure:"max_message_length"`
	HistoryLimit     int `mapstructure:"history_limit"`
}

type ModerationConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	Model           string        `mapstructure:"model"`
	EndpointURL     string        `mapstructure:"endpoint_url"`
	TempBanDuration time.Duration `mapstructure:"temp_ban_duration"`
	MaxWarnings     int           `mapstructure:"max_warnings"`
	MaxTempBans     int           `mapstructure:"max_temp_bans"`
}

// FailOpenConfig makes each fail-open decision an explicit, testable
// policy instead of an implicit catch-all. All default to true, matching
// the availability-over-enforcement posture of the room.
type FailOpenConfig struct {
	BanCheck   bool `mapstructure:"ban_check"`
	Classifier bool `mapstructure:"classifier"`
	RateLimit  bool `mapstructure:"rate_limit"`
}

// Load binds Config from environment variables. Keys follow the section
// names above, e.g. RATE_LIMIT_MAX, REDIS_ADDRESS, AUTH_JWT_SECRET.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("server.port", "8080")
	v.SetDefault("redis.prefix", "default")
	v.SetDefault("rate_limit.max", 5)
	v.SetDefault("rate_limit.window_seconds", 60)
	v.SetDefault("rate_limit.upgrade_burst", 10)
	v.SetDefault("rate_limit.upgrade_window", time.Minute)
	v.SetDefault("chat.max_message_length", 240)
	v.SetDefault("chat.history_limit", 50)
	v.SetDefault("moderation.model", "gpt-5-nano")
	v.SetDefault("moderation.endpoint_url", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("moderation.temp_ban_duration", 24*time.Hour)
	v.SetDefault("moderation.max_warnings", 1)
	v.SetDefault("moderation.max_temp_bans", 1)
	v.SetDefault("fail_open.ban_check", true)
	v.SetDefault("fail_open.classifier", true)
	v.SetDefault("fail_open.rate_limit", true)

	// Bind the nested keys explicitly; AutomaticEnv alone does not surface
	// them through Unmarshal.
	for _, key := range []string{
		"server.port",
		"redis.address", "redis.password", "redis.db", "redis.prefix",
		"auth.jwt_secret", "auth.service_secret",
		"rate_limit.max", "rate_limit.window_seconds",
		"rate_limit.upgrade_burst", "rate_limit.upgrade_window",
		"chat.max_message_length", "chat.history_limit",
		"moderation.api_key", "moderation.model", "moderation.endpoint_url",
		"moderation.temp_ban_duration", "moderation.max_warnings", "moderation.max_temp_bans",
		"fail_open.ban_check", "fail_open.classifier", "fail_open.rate_limit",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("internal/config: failed to bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("internal/config: failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Window returns the fixed rate-limit window as a duration.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}
