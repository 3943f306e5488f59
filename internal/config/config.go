// SPDX-License-Identifier: MIT

// Package config loads runtime configuration from the environment, with an
// optional YAML file taking precedence for deploys that ship a config volume.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig is the complete runtime configuration for the payflow daemon.
type AppConfig struct {
	ListenAddr string `yaml:"listenAddr"`
	DataDir    string `yaml:"dataDir"`
	LogLevel   string `yaml:"logLevel"`

	// APIToken guards the mutating endpoints when non-empty.
	APIToken string `yaml:"apiToken"`

	// RateLimit is the per-IP request budget per minute for the HTTP host.
	RateLimit int `yaml:"rateLimit"`

	// StoreBackend selects the durable store set: "sqlite" (default),
	// "memory" (tests) or "redis" for the idempotency ledger.
	StoreBackend string `yaml:"storeBackend"`
	RedisAddr    string `yaml:"redisAddr"`

	Extractor ExtractorConfig `yaml:"extractor"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Directory DirectoryConfig `yaml:"directory"`

	// HomeCurrency is the payer's home currency used when an amount arrives
	// without an explicit currency.
	HomeCurrency string `yaml:"homeCurrency"`

	// SubmitMaxRetries bounds automatic retries of retryable submission
	// failures; the same idempotency key is reused across attempts.
	SubmitMaxRetries int `yaml:"submitMaxRetries"`

	// SchedulePollInterval controls how often the due-job runner wakes up.
	SchedulePollInterval time.Duration `yaml:"schedulePollInterval"`
}

// ExtractorConfig points at the external document-understanding service.
type ExtractorConfig struct {
	BaseURL string        `yaml:"baseURL"`
	Timeout time.Duration `yaml:"timeout"`
}

// LedgerConfig points at the external payment ledger API.
type LedgerConfig struct {
	BaseURL     string        `yaml:"baseURL"`
	AccessToken string        `yaml:"accessToken"`
	AccountID   string        `yaml:"accountID"`
	Timeout     time.Duration `yaml:"timeout"`
	// RequestsPerSecond caps outbound ledger calls client-side.
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
}

// DirectoryConfig points at the payee directory / payment history service.
type DirectoryConfig struct {
	BaseURL string        `yaml:"baseURL"`
	Timeout time.Duration `yaml:"timeout"`
}

// FromEnv builds an AppConfig from PAYFLOW_* environment variables.
func FromEnv() AppConfig {
	return AppConfig{
		ListenAddr:   ParseString("PAYFLOW_LISTEN", ":8080"),
		DataDir:      ParseString("PAYFLOW_DATA", "/var/lib/payflow"),
		LogLevel:     ParseString("PAYFLOW_LOG_LEVEL", "info"),
		APIToken:     ParseString("PAYFLOW_API_TOKEN", ""),
		RateLimit:    ParseInt("PAYFLOW_RATE_LIMIT", 120),
		StoreBackend: ParseString("PAYFLOW_STORE_BACKEND", "sqlite"),
		RedisAddr:    ParseString("PAYFLOW_REDIS_ADDR", ""),
		Extractor: ExtractorConfig{
			BaseURL: ParseString("PAYFLOW_EXTRACTOR_URL", ""),
			Timeout: ParseDuration("PAYFLOW_EXTRACTOR_TIMEOUT", 60*time.Second),
		},
		Ledger: LedgerConfig{
			BaseURL:           ParseString("PAYFLOW_LEDGER_URL", ""),
			AccessToken:       ParseString("PAYFLOW_LEDGER_TOKEN", ""),
			AccountID:         ParseString("PAYFLOW_LEDGER_ACCOUNT_ID", ""),
			Timeout:           ParseDuration("PAYFLOW_LEDGER_TIMEOUT", 30*time.Second),
			RequestsPerSecond: float64(ParseInt("PAYFLOW_LEDGER_RPS", 5)),
		},
		Directory: DirectoryConfig{
			BaseURL: ParseString("PAYFLOW_DIRECTORY_URL", ""),
			Timeout: ParseDuration("PAYFLOW_DIRECTORY_TIMEOUT", 10*time.Second),
		},
		HomeCurrency:         ParseString("PAYFLOW_HOME_CURRENCY", "USD"),
		SubmitMaxRetries:     ParseInt("PAYFLOW_SUBMIT_MAX_RETRIES", 3),
		SchedulePollInterval: ParseDuration("PAYFLOW_SCHEDULE_POLL_INTERVAL", 30*time.Second),
	}
}

// LoadFile overlays values from a YAML config file onto cfg. Unset file
// fields keep the env-derived value.
func LoadFile(path string, cfg *AppConfig) error {
	data, err := os.ReadFile(path) // #nosec G304 - operator-supplied path
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// Validate checks the invariants a running daemon depends on.
func (c AppConfig) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("config: listen address required")
	}
	if c.StoreBackend != "memory" && c.DataDir == "" {
		return fmt.Errorf("config: data dir required for %s backend", c.StoreBackend)
	}
	if c.StoreBackend == "redis" && c.RedisAddr == "" {
		return fmt.Errorf("config: redis backend requires PAYFLOW_REDIS_ADDR")
	}
	if c.HomeCurrency == "" {
		return fmt.Errorf("config: home currency required")
	}
	if c.SubmitMaxRetries < 0 {
		return fmt.Errorf("config: submit max retries must be >= 0")
	}
	return nil
}
