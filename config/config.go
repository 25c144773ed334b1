package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath      = "./config.yaml"
	defaultSiteBaseURL     = "https://www.ypshuo.com/"
	defaultFetchTimeoutSec = 20
	defaultCoverTimeoutSec = 5
	defaultDBPath          = "./youshu-bot.db"
	defaultTimezone        = "Asia/Shanghai"
	defaultLogLevel        = "info"
)

var timeHHMM = regexp.MustCompile(`^(?:[01]\d|2[0-3]):[0-5]\d$`)

// Config defines all runtime configuration.
type Config struct {
	TelegramToken   string `yaml:"telegram_token"`
	ChatID          int64  `yaml:"chat_id"`
	SiteBaseURL     string `yaml:"site_base_url"`
	SessionCookie   string `yaml:"session_cookie"` // legacy backend only
	FetchTimeoutSec int    `yaml:"fetch_timeout_secs"`
	CoverTimeoutSec int    `yaml:"cover_timeout_secs"`
	DailyRandomTime string `yaml:"daily_random_time"` // HH:MM, empty disables the push
	Timezone        string `yaml:"timezone"`
	DBPath          string `yaml:"db_path"`
	LogLevel        string `yaml:"log_level"`
}

// Default returns a Config populated with default values.
func Default() Config {
	return Config{
		SiteBaseURL:     defaultSiteBaseURL,
		FetchTimeoutSec: defaultFetchTimeoutSec,
		CoverTimeoutSec: defaultCoverTimeoutSec,
		Timezone:        defaultTimezone,
		DBPath:          defaultDBPath,
		LogLevel:        defaultLogLevel,
	}
}

// Load reads configuration from the path in YS_BOT_CONFIG or the default path.
func Load() (Config, error) {
	path := os.Getenv("YS_BOT_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}
	return LoadFrom(path)
}

// LoadFrom reads configuration from a specific file path.
func LoadFrom(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config yaml: %w", err)
	}

	if override := os.Getenv("YS_BOT_DB"); override != "" {
		cfg.DBPath = override
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate ensures configuration is complete and valid.
func (c Config) Validate() error {
	if c.TelegramToken == "" {
		return errors.New("telegram_token is required")
	}
	u, err := url.Parse(c.SiteBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("site_base_url must be an absolute URL: %q", c.SiteBaseURL)
	}
	if c.FetchTimeoutSec <= 0 {
		return errors.New("fetch_timeout_secs must be positive")
	}
	if c.CoverTimeoutSec <= 0 {
		return errors.New("cover_timeout_secs must be positive")
	}
	if c.DailyRandomTime != "" && !timeHHMM.MatchString(c.DailyRandomTime) {
		return fmt.Errorf("daily_random_time must be HH:MM in 24-hour format: %s", c.DailyRandomTime)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone must be a valid IANA identifier: %w", err)
	}
	if c.DBPath == "" {
		return errors.New("db_path must not be empty")
	}
	return nil
}

// FetchTimeout returns the per-request network timeout.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSec) * time.Second
}

// CoverTimeout returns the timeout for the best-effort cover image fetch.
func (c Config) CoverTimeout() time.Duration {
	return time.Duration(c.CoverTimeoutSec) * time.Second
}
