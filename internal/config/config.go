// Package config loads layered configuration: hardcoded defaults, then an
// optional YAML file, then SLOTBOT_ environment variables, then CLI flags.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"

	"github.com/slotbot/slotbot/internal/availability"
	"github.com/slotbot/slotbot/internal/model"
	"github.com/slotbot/slotbot/internal/retry"
)

type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Owner        OwnerConfig        `koanf:"owner"`
	Availability AvailabilityConfig `koanf:"availability"`
	Calendar     CalendarConfig     `koanf:"calendar"`
	NLU          NLUConfig          `koanf:"nlu"`
	Adapters     AdaptersConfig     `koanf:"adapters"`
	RateLimit    RateLimitConfig    `koanf:"ratelimit"`
	Session      SessionConfig      `koanf:"session"`
	Reminder     ReminderConfig     `koanf:"reminder"`
	Retry        RetryConfig        `koanf:"retry"`
	Store        StoreConfig        `koanf:"store"`
	Services     []ServiceConfig    `koanf:"services"`
}

type ServerConfig struct {
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`
}

type OwnerConfig struct {
	Name string   `koanf:"name"`
	IDs  []string `koanf:"ids"`
}

type AvailabilityConfig struct {
	Timezone        string `koanf:"timezone"`
	DurationMinutes int    `koanf:"duration_minutes"`
	BufferMinutes   int    `koanf:"buffer_minutes"`
	MinNoticeHours  int    `koanf:"min_notice_hours"`
	MaxDaysAhead    int    `koanf:"max_days_ahead"`
}

type CalendarConfig struct {
	DryRun  bool                   `koanf:"dry_run"`
	Sources []CalendarSourceConfig `koanf:"sources"`
}

type CalendarSourceConfig struct {
	ID              string `koanf:"id"`
	Role            string `koanf:"role"` // book | watch
	CalendarID      string `koanf:"calendar_id"`
	CredentialsFile string `koanf:"credentials_file"`
}

type NLUConfig struct {
	Provider string `koanf:"provider"` // anthropic | openai | ollama | gemini
	APIKey   string `koanf:"api_key"`
	BaseURL  string `koanf:"base_url"`
	Model    string `koanf:"model"`
}

type AdaptersConfig struct {
	Slack    SlackConfig    `koanf:"slack"`
	Telegram TelegramConfig `koanf:"telegram"`
}

type SlackConfig struct {
	Enabled       bool   `koanf:"enabled"`
	Port          int    `koanf:"port"`
	SigningSecret string `koanf:"signing_secret"`
	BotToken      string `koanf:"bot_token"`
}

type TelegramConfig struct {
	Enabled       bool   `koanf:"enabled"`
	BotToken      string `koanf:"bot_token"`
	UpdateTimeout int    `koanf:"update_timeout"`
}

type RateLimitConfig struct {
	MessagesPerMinute int `koanf:"messages_per_minute"`
	Burst             int `koanf:"burst"`
}

type SessionConfig struct {
	IdleTimeout string `koanf:"idle_timeout"`
}

type ReminderConfig struct {
	Enabled bool   `koanf:"enabled"`
	Lead    string `koanf:"lead"`
}

type RetryConfig struct {
	MaxAttempts int    `koanf:"max_attempts"`
	BaseDelay   string `koanf:"base_delay"`
	MaxDelay    string `koanf:"max_delay"`
	CallTimeout string `koanf:"call_timeout"`
}

type StoreConfig struct {
	Path string `koanf:"path"`
}

type ServiceConfig struct {
	Name            string  `koanf:"name"`
	Slug            string  `koanf:"slug"`
	DurationMinutes int     `koanf:"duration_minutes"`
	Price           float64 `koanf:"price"`
	Currency        string  `koanf:"currency"`
	Description     string  `koanf:"description"`
}

const (
	DefaultLogLevel                   = "info"
	DefaultLogFormat                  = "console"
	DefaultOwnerName                  = "the owner"
	DefaultAvailabilityTimezone       = "UTC"
	DefaultMeetingDurationMinutes     = 30
	DefaultBufferMinutes              = 15
	DefaultMinNoticeHours             = 4
	DefaultMaxDaysAhead               = 14
	DefaultNLUProvider                = "anthropic"
	DefaultSlackPort                  = 3000
	DefaultTelegramUpdateTimeout      = 30
	DefaultRateLimitMessagesPerMinute = 8
	DefaultRateLimitBurst             = 8
	DefaultSessionIdleTimeout         = "30m"
	DefaultReminderLead               = "60m"
	DefaultRetryMaxAttempts           = 3
	DefaultRetryBaseDelay             = "1s"
	DefaultRetryMaxDelay              = "30s"
	DefaultRetryCallTimeout           = "15s"
)

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.log_level":               DefaultLogLevel,
		"server.log_format":              DefaultLogFormat,
		"owner.name":                     DefaultOwnerName,
		"availability.timezone":          DefaultAvailabilityTimezone,
		"availability.duration_minutes":  DefaultMeetingDurationMinutes,
		"availability.buffer_minutes":    DefaultBufferMinutes,
		"availability.min_notice_hours":  DefaultMinNoticeHours,
		"availability.max_days_ahead":    DefaultMaxDaysAhead,
		"nlu.provider":                   DefaultNLUProvider,
		"adapters.slack.port":            DefaultSlackPort,
		"adapters.telegram.update_timeout": DefaultTelegramUpdateTimeout,
		"ratelimit.messages_per_minute":  DefaultRateLimitMessagesPerMinute,
		"ratelimit.burst":                DefaultRateLimitBurst,
		"session.idle_timeout":           DefaultSessionIdleTimeout,
		"reminder.enabled":               true,
		"reminder.lead":                  DefaultReminderLead,
		"retry.max_attempts":             DefaultRetryMaxAttempts,
		"retry.base_delay":               DefaultRetryBaseDelay,
		"retry.max_delay":                DefaultRetryMaxDelay,
		"retry.call_timeout":             DefaultRetryCallTimeout,
		"store.path":                     filepath.Join(os.Getenv("HOME"), ".slotbot", "data"),
	}
	for key, value := range defaults {
		_ = k.Set(key, value)
	}

	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			globalPath := filepath.Join(home, ".slotbot", "config.yaml")
			if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
				slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
			}
		}
	}

	_ = k.Load(env.Provider("SLOTBOT_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "SLOTBOT_")), "_", ".", -1)
	}), nil)

	if cmd != nil {
		_ = k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	if cfg.NLU.APIKey == "" {
		switch cfg.NLU.Provider {
		case "anthropic":
			cfg.NLU.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "openai":
			cfg.NLU.APIKey = os.Getenv("OPENAI_API_KEY")
		case "gemini":
			cfg.NLU.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
	if cfg.Adapters.Telegram.BotToken == "" {
		cfg.Adapters.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	}

	return &cfg, nil
}

// AvailabilityOptions converts the configured minutes and hours into the
// engine's option struct.
func (c *Config) AvailabilityOptions() availability.Options {
	return availability.Options{
		Duration:     time.Duration(c.Availability.DurationMinutes) * time.Minute,
		Buffer:       time.Duration(c.Availability.BufferMinutes) * time.Minute,
		MinNotice:    time.Duration(c.Availability.MinNoticeHours) * time.Hour,
		MaxDaysAhead: c.Availability.MaxDaysAhead,
	}
}

// RetryPolicy builds the retry policy, falling back to defaults on bad
// duration strings.
func (c *Config) RetryPolicy() retry.Policy {
	p := retry.DefaultPolicy()
	if c.Retry.MaxAttempts > 0 {
		p.MaxAttempts = c.Retry.MaxAttempts
	}
	if d, err := DurationOrDefault(c.Retry.BaseDelay, DefaultRetryBaseDelay); err == nil {
		p.BaseDelay = d
	}
	if d, err := DurationOrDefault(c.Retry.MaxDelay, DefaultRetryMaxDelay); err == nil {
		p.MaxDelay = d
	}
	if d, err := DurationOrDefault(c.Retry.CallTimeout, DefaultRetryCallTimeout); err == nil {
		p.CallTimeout = d
	}
	return p
}

// IdleTimeout parses the session idle window.
func (c *Config) IdleTimeout() time.Duration {
	d, err := DurationOrDefault(c.Session.IdleTimeout, DefaultSessionIdleTimeout)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}

// ReminderLead parses the reminder lead window.
func (c *Config) ReminderLead() time.Duration {
	d, err := DurationOrDefault(c.Reminder.Lead, DefaultReminderLead)
	if err != nil {
		return time.Hour
	}
	return d
}

// ServiceList converts configured services into domain values.
func (c *Config) ServiceList() []model.Service {
	out := make([]model.Service, 0, len(c.Services))
	for _, s := range c.Services {
		duration := s.DurationMinutes
		if duration <= 0 {
			duration = c.Availability.DurationMinutes
		}
		currency := s.Currency
		if currency == "" {
			currency = "USD"
		}
		out = append(out, model.Service{
			Name:            s.Name,
			Slug:            s.Slug,
			DurationMinutes: duration,
			Price:           s.Price,
			Currency:        currency,
			Description:     s.Description,
		})
	}
	return out
}

// BookSource returns the single book-role source. Exactly one must exist.
func (c *Config) BookSource() (CalendarSourceConfig, bool) {
	var found CalendarSourceConfig
	count := 0
	for _, s := range c.Calendar.Sources {
		if s.Role == "book" {
			found = s
			count++
		}
	}
	return found, count == 1
}

// WatchSources returns every watch-role source.
func (c *Config) WatchSources() []CalendarSourceConfig {
	var out []CalendarSourceConfig
	for _, s := range c.Calendar.Sources {
		if s.Role == "watch" {
			out = append(out, s)
		}
	}
	return out
}
