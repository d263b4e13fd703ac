package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for jobsift.
type Config struct {
	Scraping      ScrapingConfig
	Discovery     DiscoveryConfig
	AI            AIConfig
	Filter        FilterConfig
	Notifications NotificationsConfig
	DBPath        string
}

// ScrapingConfig controls the scrape orchestrator and the shared fetch layer.
type ScrapingConfig struct {
	Enabled            bool
	Sources            []string
	MaxPerSource       int
	FetchDetails       bool
	RateLimitPerSecond float64       // requests-per-second ceiling for pacing
	RequestDelayMin    time.Duration // jitter range added on top of the pacing interval
	RequestDelayMax    time.Duration
	MaxRetries         int
	Timeout            time.Duration // per-request HTTP timeout
	WatchInterval      time.Duration // pause between cycles in watch mode
}

// FilterConfig screens stubs by keyword before they are persisted. Empty
// lists pass everything.
type FilterConfig struct {
	TitleKeywords []string
	Locations     []string
}

// NotificationsConfig controls where newly persisted listings are announced.
type NotificationsConfig struct {
	Enabled         bool
	SlackWebhookURL string // empty means log-only notifications
}

// DiscoveryConfig controls the LLM-guided discovery pipeline.
type DiscoveryConfig struct {
	Source       string // which source adapter per-target searches run against
	MaxPerTarget int
}

// AIConfig controls the OpenAI target-research collaborator.
type AIConfig struct {
	Enabled bool
	BaseURL string // defaults to https://api.openai.com/v1
	Model   string // OpenAI model identifier, e.g. "gpt-4o-mini"
	APIKey  string // expanded from env var by Load
	Timeout time.Duration
}

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// rawConfig is used for YAML unmarshaling (snake_case fields and durations
// as strings).
type rawConfig struct {
	Scraping      rawScrapingConfig      `yaml:"scraping"`
	Discovery     rawDiscoveryConfig     `yaml:"discovery"`
	AI            rawAIConfig            `yaml:"ai"`
	Filter        rawFilterConfig        `yaml:"filter"`
	Notifications rawNotificationsConfig `yaml:"notifications"`
	DBPath        string                 `yaml:"db_path"`
}

type rawScrapingConfig struct {
	Enabled            *bool    `yaml:"enabled"`
	Sources            []string `yaml:"sources"`
	MaxPerSource       int      `yaml:"max_per_source"`
	FetchDetails       *bool    `yaml:"fetch_details"`
	RateLimitPerSecond float64  `yaml:"rate_limit_per_second"`
	RequestDelayMin    string   `yaml:"request_delay_min"`
	RequestDelayMax    string   `yaml:"request_delay_max"`
	MaxRetries         int      `yaml:"max_retries"`
	Timeout            string   `yaml:"timeout"`
	WatchInterval      string   `yaml:"watch_interval"`
}

type rawFilterConfig struct {
	TitleKeywords []string `yaml:"title_keywords"`
	Locations     []string `yaml:"locations"`
}

type rawNotificationsConfig struct {
	Enabled         bool   `yaml:"enabled"`
	SlackWebhookURL string `yaml:"slack_webhook_url"`
}

type rawDiscoveryConfig struct {
	Source       string `yaml:"source"`
	MaxPerTarget int    `yaml:"max_per_target"`
}

type rawAIConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	Timeout string `yaml:"timeout"`
}

// Load reads and parses the YAML config file at path, applies defaults,
// validates it, and returns Config. Environment variables in the file are
// expanded before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg, err := fromRaw(raw)
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	cfg, _ := fromRaw(rawConfig{})
	return cfg
}

func fromRaw(raw rawConfig) (*Config, error) {
	delayMin, err := durationOr(raw.Scraping.RequestDelayMin, time.Second, "scraping.request_delay_min")
	if err != nil {
		return nil, err
	}
	delayMax, err := durationOr(raw.Scraping.RequestDelayMax, 3*time.Second, "scraping.request_delay_max")
	if err != nil {
		return nil, err
	}
	timeout, err := durationOr(raw.Scraping.Timeout, 30*time.Second, "scraping.timeout")
	if err != nil {
		return nil, err
	}
	aiTimeout, err := durationOr(raw.AI.Timeout, 30*time.Second, "ai.timeout")
	if err != nil {
		return nil, err
	}
	watchInterval, err := durationOr(raw.Scraping.WatchInterval, 30*time.Minute, "scraping.watch_interval")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Scraping: ScrapingConfig{
			Enabled:            boolOr(raw.Scraping.Enabled, true),
			Sources:            raw.Scraping.Sources,
			MaxPerSource:       raw.Scraping.MaxPerSource,
			FetchDetails:       boolOr(raw.Scraping.FetchDetails, true),
			RateLimitPerSecond: raw.Scraping.RateLimitPerSecond,
			RequestDelayMin:    delayMin,
			RequestDelayMax:    delayMax,
			MaxRetries:         raw.Scraping.MaxRetries,
			Timeout:            timeout,
			WatchInterval:      watchInterval,
		},
		Discovery: DiscoveryConfig{
			Source:       raw.Discovery.Source,
			MaxPerTarget: raw.Discovery.MaxPerTarget,
		},
		AI: AIConfig{
			Enabled: raw.AI.Enabled,
			BaseURL: raw.AI.BaseURL,
			Model:   raw.AI.Model,
			APIKey:  raw.AI.APIKey,
			Timeout: aiTimeout,
		},
		Filter: FilterConfig{
			TitleKeywords: raw.Filter.TitleKeywords,
			Locations:     raw.Filter.Locations,
		},
		Notifications: NotificationsConfig{
			Enabled:         raw.Notifications.Enabled,
			SlackWebhookURL: raw.Notifications.SlackWebhookURL,
		},
		DBPath: raw.DBPath,
	}

	if len(cfg.Scraping.Sources) == 0 {
		cfg.Scraping.Sources = []string{"indeed", "linkedin"}
	}
	if cfg.Scraping.MaxPerSource <= 0 {
		cfg.Scraping.MaxPerSource = 25
	}
	if cfg.Scraping.RateLimitPerSecond <= 0 {
		cfg.Scraping.RateLimitPerSecond = 1.0
	}
	if cfg.Scraping.MaxRetries <= 0 {
		cfg.Scraping.MaxRetries = 3
	}
	if cfg.Discovery.Source == "" {
		cfg.Discovery.Source = "linkedin"
	}
	if cfg.Discovery.MaxPerTarget <= 0 {
		cfg.Discovery.MaxPerTarget = 5
	}
	if cfg.AI.BaseURL == "" {
		cfg.AI.BaseURL = defaultOpenAIBaseURL
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "gpt-4o-mini"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "listings.db"
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Scraping.RequestDelayMax < cfg.Scraping.RequestDelayMin {
		return fmt.Errorf("scraping.request_delay_max must be >= request_delay_min, got %v < %v",
			cfg.Scraping.RequestDelayMax, cfg.Scraping.RequestDelayMin)
	}
	if cfg.Scraping.MaxPerSource > 50 {
		return fmt.Errorf("scraping.max_per_source must be at most 50, got %d", cfg.Scraping.MaxPerSource)
	}
	for _, s := range cfg.Scraping.Sources {
		if s != "indeed" && s != "linkedin" {
			return fmt.Errorf("scraping.sources contains unknown source %q", s)
		}
	}
	if cfg.Scraping.WatchInterval < time.Minute {
		return fmt.Errorf("scraping.watch_interval must be at least 1m, got %v", cfg.Scraping.WatchInterval)
	}
	if cfg.AI.Enabled && cfg.AI.APIKey == "" {
		return fmt.Errorf("ai.api_key is required when ai.enabled is true")
	}
	return nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func durationOr(raw string, def time.Duration, field string) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, raw, err)
	}
	return d, nil
}
