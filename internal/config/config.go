/*
Package config loads and validates the orderwatch configuration from a TOML
file. The resulting Config is immutable: it is built once in main and handed
to each component's constructor, and no component reads the process
environment itself.
*/
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config is the full application configuration.
type Config struct {
	Feed     FeedConfig     `toml:"feed" validate:"required"`
	DocStore DocStoreConfig `toml:"docstore" validate:"required"`
	Markets  MarketsConfig  `toml:"markets" validate:"required"`
	Gate     GateConfig     `toml:"gate" validate:"required"`
	Gemini   GeminiConfig   `toml:"gemini" validate:"required"`
	Alerts   AlertsConfig   `toml:"alerts"`
	State    StateConfig    `toml:"state" validate:"required"`
	Logging  LoggingConfig  `toml:"logging"`
}

// FeedConfig configures the BSE announcement feed client.
type FeedConfig struct {
	BaseURL      string `toml:"base_url"      validate:"required,url"`
	Category     string `toml:"category"`
	Subcategory  string `toml:"subcategory"`
	FromDate     string `toml:"from_date"` // YYYYMMDD window start; defaults to today
	PollInterval string `toml:"poll_interval" validate:"required"`
	ItemDelay    string `toml:"item_delay"`
}

// DocStoreConfig configures attachment retrieval. LiveBaseURL is tried
// first, then HistBaseURL.
type DocStoreConfig struct {
	LiveBaseURL    string `toml:"live_base_url" validate:"required,url"`
	HistBaseURL    string `toml:"hist_base_url" validate:"required,url"`
	AttemptTimeout string `toml:"attempt_timeout"`
}

// MarketsConfig configures symbol search and financials lookup.
type MarketsConfig struct {
	SymbolSearchURL string `toml:"symbol_search_url" validate:"required,url"`
	QuoteSummaryURL string `toml:"quote_summary_url" validate:"required,url"`
	Timeout         string `toml:"timeout"`
}

// GateConfig holds the financial filter thresholds, all in crores.
type GateConfig struct {
	MinMarketCap float64 `toml:"min_market_cap" validate:"gt=0"`
	MaxMarketCap float64 `toml:"max_market_cap" validate:"gt=0,gtefield=MinMarketCap"`
	MinRevenue   float64 `toml:"min_revenue"    validate:"gte=0"`
}

// GeminiConfig configures the impact classifier. The API key may be supplied
// via the GEMINI_API_KEY environment variable instead of the file.
type GeminiConfig struct {
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model" validate:"required"`
	Timeout string `toml:"timeout"`
	BaseURL string `toml:"base_url"` // override for tests; empty means the public endpoint
}

// TelegramTarget is one bot-token/chat-id notification pair.
type TelegramTarget struct {
	BotToken string `toml:"bot_token" validate:"required"`
	ChatID   string `toml:"chat_id"   validate:"required"`
	BaseURL  string `toml:"base_url"` // override for tests; defaults to api.telegram.org
}

// EmailTarget is an optional SMTP notification target.
type EmailTarget struct {
	SMTPServer string `toml:"smtp_server"`
	SMTPPort   int    `toml:"smtp_port"`
	SMTPUser   string `toml:"smtp_user"`
	SMTPPass   string `toml:"smtp_pass"`
	FromEmail  string `toml:"from_email"`
	ToEmail    string `toml:"to_email"`
}

// Enabled reports whether the email target is fully configured.
func (e EmailTarget) Enabled() bool {
	return e.SMTPServer != "" && e.SMTPUser != "" && e.SMTPPass != "" && e.ToEmail != ""
}

// AlertsConfig lists the notification targets.
type AlertsConfig struct {
	Telegram []TelegramTarget `toml:"telegram" validate:"dive"`
	Email    EmailTarget      `toml:"email"`
}

// StateConfig holds the paths of the two persisted files.
type StateConfig struct {
	ProcessedFile string `toml:"processed_file" validate:"required"`
	AuditFile     string `toml:"audit_file"     validate:"required"`
}

// LoggingConfig configures zerolog.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// Defaults matching the original deployment.
const (
	defaultPollInterval   = "300s"
	defaultItemDelay      = "500ms"
	defaultAttemptTimeout = "30s"
	defaultMarketsTimeout = "10s"
	defaultGeminiTimeout  = "30s"
	defaultMinRevenue     = 10
)

// Load reads, defaults, overrides and validates the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Feed.PollInterval == "" {
		cfg.Feed.PollInterval = defaultPollInterval
	}
	if cfg.Feed.ItemDelay == "" {
		cfg.Feed.ItemDelay = defaultItemDelay
	}
	if cfg.DocStore.AttemptTimeout == "" {
		cfg.DocStore.AttemptTimeout = defaultAttemptTimeout
	}
	if cfg.Markets.Timeout == "" {
		cfg.Markets.Timeout = defaultMarketsTimeout
	}
	if cfg.Gemini.Timeout == "" {
		cfg.Gemini.Timeout = defaultGeminiTimeout
	}
	if cfg.Gate.MinRevenue == 0 {
		cfg.Gate.MinRevenue = defaultMinRevenue
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// applyEnvOverrides lets secrets stay out of the config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("ORDERWATCH_SMTP_PASS"); v != "" {
		cfg.Alerts.Email.SMTPPass = v
	}
}

// Validate checks struct tags plus the duration fields toml cannot type.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	durations := map[string]string{
		"feed.poll_interval":       cfg.Feed.PollInterval,
		"feed.item_delay":          cfg.Feed.ItemDelay,
		"docstore.attempt_timeout": cfg.DocStore.AttemptTimeout,
		"markets.timeout":          cfg.Markets.Timeout,
		"gemini.timeout":           cfg.Gemini.Timeout,
	}
	for name, v := range durations {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", name, err)
		}
	}

	if cfg.Gemini.APIKey == "" {
		return fmt.Errorf("gemini API key is required (gemini.api_key or GEMINI_API_KEY)")
	}
	if len(cfg.Alerts.Telegram) == 0 && !cfg.Alerts.Email.Enabled() {
		return fmt.Errorf("at least one notification target must be configured")
	}

	return nil
}

// MustDuration parses a duration string already vetted by Validate.
func MustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		panic(fmt.Sprintf("unvalidated duration %q: %v", s, err))
	}
	return d
}
