package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stepwise.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
protocols_dir: ./protocols
store:
  driver: sqlite
  path: records.db
redis:
  ttl: 1h
log:
  level: debug
pii:
  patterns: ["(?i)name"]
`)
	t.Setenv("STEPWISE_LOG_LEVEL", "warn")
	t.Setenv("STEPWISE_HTTP_ADDR", ":9090")
	t.Setenv("STEPWISE_PII_PATTERNS", "(?i)phone,(?i)email")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "./protocols", cfg.ProtocolsDir)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "records.db", cfg.Store.Path)
	assert.Equal(t, time.Hour, cfg.Redis.TTL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr, "unset keys keep defaults")
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, []string{"(?i)phone", "(?i)email"}, cfg.PII.Patterns)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mongo" }, "unknown store driver"},
		{"file needs path", func(c *Config) { c.Store.Driver = DriverFile }, "requires a path"},
		{"valid key", func(c *Config) { c.Encryption.Key = key }, ""},
		{"short key", func(c *Config) { c.Encryption.Key = base64.StdEncoding.EncodeToString([]byte("short")) }, "32 bytes"},
		{"bad pii pattern", func(c *Config) { c.PII.Patterns = []string{"("} }, "invalid pii pattern"},
		{"fallback without active", func(c *Config) { c.Encryption.FallbackKeys = []string{key} }, "require an active"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEncryptionKeys(t *testing.T) {
	active := []byte(strings.Repeat("a", 32))
	old := []byte(strings.Repeat("b", 32))
	cfg := EncryptionConfig{
		Key:          base64.StdEncoding.EncodeToString(active),
		FallbackKeys: []string{base64.StdEncoding.EncodeToString(old)},
	}

	gotActive, gotFallbacks, err := cfg.Keys()
	require.NoError(t, err)
	assert.Equal(t, active, gotActive)
	assert.Equal(t, [][]byte{old}, gotFallbacks)
}
