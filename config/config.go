// Package config manages application configuration.
package config

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/joho/godotenv"

	"linvo/catalog"
	"linvo/internal/auth"
	"linvo/internal/retry"
	"linvo/storage"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config holds all application configuration.
type Config struct {
	// StoreBackend selects where the state document lives: file, sqlite or memory.
	StoreBackend string `json:"store_backend"`
	// StorePath is the JSON file or SQLite database path. Empty uses the
	// per-user data directory.
	StorePath string `json:"store_path"`
	// StorageKey is the key the document is stored under (sqlite backend).
	StorageKey string `json:"storage_key"`

	// YouTubeAPIKey is the Data API credential.
	YouTubeAPIKey string `json:"youtube_api_key"`
	// YouTubeEndpoint overrides the Data API base URL.
	YouTubeEndpoint string `json:"youtube_endpoint"`
	// RecentLimit is how many recent videos an import lists (1-50).
	RecentLimit int `json:"recent_limit"`
	// FetchDurations fills video durations with an extra call per import.
	FetchDurations bool `json:"fetch_durations"`
	// RequestTimeout bounds each catalog request attempt.
	RequestTimeout time.Duration `json:"request_timeout"`
	// RequestsPerSecond paces catalog requests (0 = unpaced).
	RequestsPerSecond float64 `json:"requests_per_second"`
	// DailyQuota and QuotaReserve drive the quota estimate, in API units.
	DailyQuota   int `json:"daily_quota"`
	QuotaReserve int `json:"quota_reserve"`

	// MaxRetries is the maximum number of retries for failed catalog requests
	MaxRetries int `json:"max_retries"`
	// InitialBackoff is the initial backoff duration for retries
	InitialBackoff time.Duration `json:"initial_backoff"`
	// MaxBackoff is the maximum backoff duration for retries
	MaxBackoff time.Duration `json:"max_backoff"`
	// BackoffMultiplier is the multiplier for exponential backoff (must be > 1)
	BackoffMultiplier float64 `json:"backoff_multiplier"`

	// ListenAddr is the HTTP API address.
	ListenAddr string `json:"listen_addr"`
	// ParentPINHash is a bcrypt hash of the parent PIN.
	ParentPINHash string `json:"parent_pin_hash"`
	// ParentPIN is a plain parent PIN, used only when no hash is set.
	ParentPIN string `json:"parent_pin"`
	// TokenSecret signs admin tokens. Empty generates one per process.
	TokenSecret string `json:"token_secret"`
	// TokenTTL is how long an admin token stays valid.
	TokenTTL time.Duration `json:"token_ttl"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level"`
}

// DefaultConfig returns configuration with safe defaults.
func DefaultConfig() *Config {
	return &Config{
		StoreBackend:      BackendFile,
		StorageKey:        storage.DefaultKey,
		RecentLimit:       catalog.DefaultRecentLimit,
		RequestTimeout:    15 * time.Second,
		RequestsPerSecond: 5,
		DailyQuota:        catalog.DefaultDailyQuota,
		QuotaReserve:      100,
		MaxRetries:        2,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		ListenAddr:        "127.0.0.1:8080",
		TokenTTL:          auth.DefaultTokenTTL,
		LogLevel:          "info",
	}
}

// Load loads configuration from a .env file, environment variables, a
// config file, and applies defaults.
// Priority: env vars > config file > defaults
func Load() (*Config, error) {
	// .env is optional; variables already set in the environment win
	_ = godotenv.Load()

	home, _ := os.UserHomeDir()
	return load([]string{
		"linvo.json",
		filepath.Join(home, ".config", "linvo", "linvo.json"),
	})
}

func load(paths []string) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.loadFromFile(paths); err != nil {
		// Config file is optional
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile reads the first config file that exists.
func (c *Config) loadFromFile(paths []string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}

		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		return nil
	}

	return os.ErrNotExist
}

// loadFromEnv overrides config with LINVO_* environment variables.
// Malformed values are reported rather than ignored.
func (c *Config) loadFromEnv() error {
	strs := map[string]*string{
		"LINVO_STORE_BACKEND":   &c.StoreBackend,
		"LINVO_STORE_PATH":      &c.StorePath,
		"LINVO_STORAGE_KEY":     &c.StorageKey,
		"LINVO_YT_API_KEY":      &c.YouTubeAPIKey,
		"LINVO_YT_ENDPOINT":     &c.YouTubeEndpoint,
		"LINVO_LISTEN_ADDR":     &c.ListenAddr,
		"LINVO_PARENT_PIN_HASH": &c.ParentPINHash,
		"LINVO_PARENT_PIN":      &c.ParentPIN,
		"LINVO_TOKEN_SECRET":    &c.TokenSecret,
		"LINVO_LOG_LEVEL":       &c.LogLevel,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"LINVO_RECENT_LIMIT":  &c.RecentLimit,
		"LINVO_DAILY_QUOTA":   &c.DailyQuota,
		"LINVO_QUOTA_RESERVE": &c.QuotaReserve,
		"LINVO_MAX_RETRIES":   &c.MaxRetries,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}

	durations := map[string]*time.Duration{
		"LINVO_REQUEST_TIMEOUT": &c.RequestTimeout,
		"LINVO_INITIAL_BACKOFF": &c.InitialBackoff,
		"LINVO_MAX_BACKOFF":     &c.MaxBackoff,
		"LINVO_TOKEN_TTL":       &c.TokenTTL,
	}
	for key, dst := range durations {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}

	if v := os.Getenv("LINVO_REQUESTS_PER_SECOND"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("LINVO_REQUESTS_PER_SECOND: %w", err)
		}
		c.RequestsPerSecond = f
	}
	if v := os.Getenv("LINVO_FETCH_DURATIONS"); v != "" {
		c.FetchDurations = v == "true" || v == "1"
	}
	return nil
}

// Validate checks that configuration values are valid and consistent.
// It returns an error if any configuration value is invalid.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendFile, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("store_backend must be file, sqlite or memory")
	}
	if c.RecentLimit < 1 || c.RecentLimit > 50 {
		return fmt.Errorf("recent_limit must be between 1 and 50")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must be non-negative")
	}
	if c.DailyQuota <= 0 {
		return fmt.Errorf("daily_quota must be positive")
	}
	if c.QuotaReserve < 0 || c.QuotaReserve >= c.DailyQuota {
		return fmt.Errorf("quota_reserve must be between 0 and daily_quota")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	if c.InitialBackoff <= 0 {
		return fmt.Errorf("initial_backoff must be positive")
	}
	if c.MaxBackoff <= 0 {
		return fmt.Errorf("max_backoff must be positive")
	}
	if c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("max_backoff must be >= initial_backoff")
	}
	if c.BackoffMultiplier <= 1 {
		return fmt.Errorf("backoff_multiplier must be > 1")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token_ttl must be positive")
	}
	if c.TokenSecret != "" && len(c.TokenSecret) < 16 {
		return fmt.Errorf("token_secret must be at least 16 bytes")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error")
	}
	return nil
}

// Level returns the kratos log level.
func (c *Config) Level() log.Level {
	return log.ParseLevel(c.LogLevel)
}

// RetryConfig returns the catalog retry settings.
func (c *Config) RetryConfig() retry.Config {
	cfg := retry.DefaultConfig()
	cfg.MaxRetries = c.MaxRetries
	cfg.InitialBackoff = c.InitialBackoff
	cfg.MaxBackoff = c.MaxBackoff
	cfg.Multiplier = c.BackoffMultiplier
	return cfg
}

// CatalogConfig returns the Data API client settings.
func (c *Config) CatalogConfig() catalog.Config {
	return catalog.Config{
		APIKey:            c.YouTubeAPIKey,
		Endpoint:          c.YouTubeEndpoint,
		Timeout:           c.RequestTimeout,
		RequestsPerSecond: c.RequestsPerSecond,
		DailyQuota:        c.DailyQuota,
		QuotaReserve:      c.QuotaReserve,
		FetchDurations:    c.FetchDurations,
		Retry:             c.RetryConfig(),
	}
}

// ResolvedStorePath returns StorePath, or the default location for the
// configured backend under the user data directory.
func (c *Config) ResolvedStorePath() string {
	if c.StorePath != "" {
		return c.StorePath
	}
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".local", "share")
	}
	name := "linvo.json"
	if c.StoreBackend == BackendSQLite {
		name = "linvo.db"
	}
	return filepath.Join(dir, "linvo", name)
}

// OpenBackend opens the configured storage backend.
func (c *Config) OpenBackend() (storage.Backend, error) {
	switch c.StoreBackend {
	case BackendMemory:
		return storage.NewMemoryBackend(), nil
	case BackendSQLite:
		b, err := storage.OpenSQLite(c.ResolvedStorePath(), c.StorageKey)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return storage.NewFileBackend(c.ResolvedStorePath()), nil
	}
}

// Verifier returns the PIN verification strategy: the bcrypt hash when set,
// else the plain PIN, else nil (admin access disabled).
func (c *Config) Verifier() (auth.Verifier, error) {
	switch {
	case c.ParentPINHash != "":
		v, err := auth.NewBcryptVerifier(c.ParentPINHash)
		if err != nil {
			return nil, err
		}
		return v, nil
	case c.ParentPIN != "":
		return auth.NewPlainVerifier(c.ParentPIN), nil
	default:
		return nil, nil
	}
}

// TokenSecretBytes returns the token signing secret, generating a random
// one when none is configured. Generated secrets do not survive restarts.
func (c *Config) TokenSecretBytes() ([]byte, error) {
	if c.TokenSecret != "" {
		return []byte(c.TokenSecret), nil
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate token secret: %w", err)
	}
	return secret, nil
}
