package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/hoteldesk/conciergebot/internal/session"
)

// LoadConfig loads and validates configuration from, in order of
// precedence: CONCIERGE_* environment variables, the YAML file at
// configPath, and built-in defaults. A missing config file is fine;
// a malformed or invalid one is not.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("CONCIERGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.json", true)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 3*time.Minute)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.admin_token", "")

	v.SetDefault("telegram.token", "")

	v.SetDefault("database.path", "concierge.db")

	// Registered empty so the CONCIERGE_GEMINI_API_KEY environment
	// variable is visible to Unmarshal; validation rejects the empty value.
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-1.5-flash")
	v.SetDefault("gemini.temperature", 0.7)
	v.SetDefault("gemini.max_retries", 2)
	v.SetDefault("gemini.retry_delay_seconds", 2)

	v.SetDefault("session.history_primer_limit", 5)
	v.SetDefault("session.idle_timeout", 12*time.Hour)

	v.SetDefault("scheduler.tasks", map[string]TaskConfig{
		"sql_maintenance": {Enabled: true, Schedule: "0 0 4 * * *"},
		"session_sweep":   {Enabled: true, Schedule: "0 */30 * * * *"},
	})

	v.SetDefault("messages.manual_mode_reply", session.DefaultManualModeReply)
	v.SetDefault("messages.hotel_list_header", session.DefaultHotelListHeader)
	v.SetDefault("messages.webhook_apology", "Sorry, something went wrong on our side. Please try again in a moment.")
}
