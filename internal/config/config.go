package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"
)

// Config holds the application configuration
type Config struct {
	APIURL         string        `env:"CHECKIN_API_URL" envDefault:"http://192.168.100.100:8000/api/"`
	ImageURL       string        `env:"CHECKIN_IMAGE_URL" envDefault:"http://192.168.100.100:8000/storage/images"`
	APIToken       string        `env:"CHECKIN_API_TOKEN"`
	RequestTimeout time.Duration `env:"CHECKIN_REQUEST_TIMEOUT" envDefault:"15s"`
	Dwell          time.Duration `env:"CHECKIN_DWELL" envDefault:"1500ms"`
	Locale         string        `env:"CHECKIN_LOCALE" envDefault:"en"`

	DataDir     string `env:"CHECKIN_DATA_DIR" envDefault:"data"`
	JournalPath string `env:"CHECKIN_JOURNAL_PATH"`

	NotifyPhone       string `env:"CHECKIN_NOTIFY_PHONE"`
	NotifyCountryCode string `env:"CHECKIN_NOTIFY_COUNTRY_CODE" envDefault:"212"`

	LogLevel  string `env:"CHECKIN_LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"CHECKIN_LOG_PRETTY" envDefault:"true"`

	DevServerAddr    string `env:"CHECKIN_DEVSERVER_ADDR" envDefault:":8000"`
	DevServerFixture string `env:"CHECKIN_DEVSERVER_FIXTURE"`
	DevServerToken   string `env:"CHECKIN_DEVSERVER_TOKEN"`
}

// LoadConfig loads configuration from a .env file, if present, and the
// environment
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads configuration from the environment only
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.JournalPath == "" {
		cfg.JournalPath = strings.TrimRight(cfg.DataDir, "/") + "/scans.db"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that required configuration values are usable
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIURL) == "" {
		return fmt.Errorf("CHECKIN_API_URL is required")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("CHECKIN_REQUEST_TIMEOUT must be positive")
	}
	if c.Dwell <= 0 {
		return fmt.Errorf("CHECKIN_DWELL must be positive")
	}
	if _, err := language.Parse(c.Locale); err != nil {
		return fmt.Errorf("CHECKIN_LOCALE: %w", err)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("CHECKIN_LOG_LEVEL: %w", err)
	}
	return nil
}

// Language returns the configured display locale
func (c *Config) Language() language.Tag {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.English
	}
	return tag
}

// NewLogger builds the root logger
func (c *Config) NewLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if c.LogPretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger()
}
