// Package config loads the settings of pfm from the environment, and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// CacheOff is the PORTFOLIO_CACHE_DIR value disabling the HTTP cache.
const CacheOff = "off"

// Config holds the application configuration.
type Config struct {
	// DataDir is the directory of the portfolio records.
	DataDir         string
	AlphaVantageKey string
	NewsAPIKey      string
	// CacheDir is the daily HTTP cache directory, empty when disabled.
	CacheDir         string
	HTTPTimeout      time.Duration
	FetchConcurrency int
	// QuoteCurrency is the ISO code of the currency quotes are expressed in.
	QuoteCurrency string
	HTTPAddr      string
	LogLevel      string
}

// Load reads the configuration from envFiles, ".env" if none is given, then
// from the environment. The environment wins over the files. Missing files
// are ignored.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("cannot load %s: %w", f, err)
		}
	}

	home, _ := os.UserHomeDir()
	cache := ""
	if dir, err := os.UserCacheDir(); err == nil {
		cache = filepath.Join(dir, "pfm")
	}

	cfg := &Config{
		DataDir:         getEnv("PORTFOLIO_DIR", filepath.Join(home, ".portfolio-manager")),
		AlphaVantageKey: getEnv("ALPHA_VANTAGE_API_KEY", "demo"),
		NewsAPIKey:      getEnv("NEWS_API_KEY", "demo"),
		CacheDir:        getEnv("PORTFOLIO_CACHE_DIR", cache),
		QuoteCurrency:   strings.ToUpper(getEnv("PORTFOLIO_QUOTE_CURRENCY", money.USD)),
		HTTPAddr:        getEnv("PORTFOLIO_HTTP_ADDR", ":8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}
	if cfg.CacheDir == CacheOff {
		cfg.CacheDir = ""
	}

	var err error
	if cfg.HTTPTimeout, err = getEnvAsDuration("PORTFOLIO_HTTP_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.FetchConcurrency, err = getEnvAsInt("PORTFOLIO_FETCH_CONCURRENCY", 4); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("PORTFOLIO_DIR is required")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("PORTFOLIO_HTTP_TIMEOUT must be positive, got %v", c.HTTPTimeout)
	}
	if c.FetchConcurrency < 1 {
		return fmt.Errorf("PORTFOLIO_FETCH_CONCURRENCY must be at least 1, got %d", c.FetchConcurrency)
	}
	if money.GetCurrency(c.QuoteCurrency) == nil {
		return fmt.Errorf("PORTFOLIO_QUOTE_CURRENCY: unknown currency %q", c.QuoteCurrency)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

// NewLogger returns a text logger writing to w at level.
func NewLogger(w io.Writer, level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return log, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, value)
	}
	return v, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, value)
	}
	return v, nil
}
