// SPDX-License-Identifier: MIT

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payflowd/payflow/internal/config"
)

func TestParseHelpers(t *testing.T) {
	t.Setenv("PAYFLOW_TEST_STR", "hello")
	t.Setenv("PAYFLOW_TEST_INT", "42")
	t.Setenv("PAYFLOW_TEST_BAD_INT", "nope")
	t.Setenv("PAYFLOW_TEST_BOOL", "true")
	t.Setenv("PAYFLOW_TEST_DUR", "90s")

	assert.Equal(t, "hello", config.ParseString("PAYFLOW_TEST_STR", "fallback"))
	assert.Equal(t, "fallback", config.ParseString("PAYFLOW_TEST_UNSET", "fallback"))
	assert.Equal(t, 42, config.ParseInt("PAYFLOW_TEST_INT", 7))
	assert.Equal(t, 7, config.ParseInt("PAYFLOW_TEST_BAD_INT", 7))
	assert.True(t, config.ParseBool("PAYFLOW_TEST_BOOL", false))
	assert.Equal(t, 90*time.Second, config.ParseDuration("PAYFLOW_TEST_DUR", time.Minute))
	assert.Equal(t, time.Minute, config.ParseDuration("PAYFLOW_TEST_UNSET", time.Minute))
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg := config.FromEnv()
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "sqlite", cfg.StoreBackend)
	assert.Equal(t, "USD", cfg.HomeCurrency)
	assert.Equal(t, 3, cfg.SubmitMaxRetries)
	assert.Equal(t, 30*time.Second, cfg.SchedulePollInterval)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PAYFLOW_LISTEN", ":9999")
	t.Setenv("PAYFLOW_HOME_CURRENCY", "EUR")
	t.Setenv("PAYFLOW_STORE_BACKEND", "redis")
	t.Setenv("PAYFLOW_REDIS_ADDR", "127.0.0.1:6379")

	cfg := config.FromEnv()
	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, "EUR", cfg.HomeCurrency)
	assert.Equal(t, "redis", cfg.StoreBackend)
	require.NoError(t, cfg.Validate())
}

func TestLoadFile_OverlaysEnvConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listenAddr: ":7070"
homeCurrency: "GBP"
ledger:
  baseURL: "https://ledger.example.com"
  accountID: "acct-42"
`), 0o600))

	cfg := config.FromEnv()
	require.NoError(t, config.LoadFile(path, &cfg))

	assert.Equal(t, ":7070", cfg.ListenAddr)
	assert.Equal(t, "GBP", cfg.HomeCurrency)
	assert.Equal(t, "https://ledger.example.com", cfg.Ledger.BaseURL)
	// Untouched fields keep their env-derived defaults.
	assert.Equal(t, "sqlite", cfg.StoreBackend)
}

func TestLoadFile_MissingFile(t *testing.T) {
	cfg := config.FromEnv()
	assert.Error(t, config.LoadFile(filepath.Join(t.TempDir(), "absent.yaml"), &cfg))
}

func TestValidate(t *testing.T) {
	cfg := config.FromEnv()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.ListenAddr = ""
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.DataDir = ""
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.StoreBackend = "redis"
	bad.RedisAddr = ""
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.HomeCurrency = ""
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.SubmitMaxRetries = -1
	assert.Error(t, bad.Validate())
}
