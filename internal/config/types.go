// Package config manages application configuration from config.yaml,
// CONCIERGE_-prefixed environment variables, and default values.
package config

import "time"

// Config defines the application configuration parameters for all
// components: logging, HTTP server, database, model client, channels,
// session behavior, and scheduled tasks.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Session   SessionConfig   `mapstructure:"session"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// LoggerConfig controls slog output.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// ServerConfig controls the web channel adapter.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"              validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"      validate:"min=1s"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"     validate:"min=1s"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"  validate:"min=1s"`
	// AdminToken guards the operator endpoints; empty disables them.
	AdminToken string `mapstructure:"admin_token"`
}

// DatabaseConfig points at the SQLite file backing all stores.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// GeminiConfig configures the hosted model client.
type GeminiConfig struct {
	APIKey            string  `mapstructure:"api_key"             validate:"required"`
	ModelName         string  `mapstructure:"model_name"          validate:"required"`
	Temperature       float32 `mapstructure:"temperature"         validate:"min=0,max=2"`
	MaxRetries        int     `mapstructure:"max_retries"         validate:"min=0,max=10"`
	RetryDelaySeconds int     `mapstructure:"retry_delay_seconds" validate:"min=0,max=60"`
}

// TelegramConfig configures the optional Telegram channel adapter.
// An empty token disables the channel.
type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

// SessionConfig tunes the session router and registry.
type SessionConfig struct {
	HistoryPrimerLimit int           `mapstructure:"history_primer_limit" validate:"min=1,max=50"`
	IdleTimeout        time.Duration `mapstructure:"idle_timeout"         validate:"min=1m"`
}

// TaskConfig enables one scheduled task with a cron expression.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// SchedulerConfig maps task names to their schedules.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// MessagesConfig holds the fixed user-facing texts.
type MessagesConfig struct {
	ManualModeReply string `mapstructure:"manual_mode_reply" validate:"required"`
	HotelListHeader string `mapstructure:"hotel_list_header" validate:"required"`
	WebhookApology  string `mapstructure:"webhook_apology"   validate:"required"`
}
