package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	path := writeConfig(t, "app:\n  name: meeting-intel\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "gemini", cfg.APIs.LLM.Provider)
	assert.Equal(t, "duckduckgo", cfg.APIs.WebSearch.Provider)
	assert.Equal(t, 256, cfg.Pipeline.ResultCacheMaxItems)
	assert.Equal(t, 22, cfg.Pipeline.MaxEvidence)
	assert.Equal(t, 8, cfg.Pipeline.CrawlMaxPages)
	assert.Equal(t, 512, cfg.Assistant.SessionMaxItems)
	assert.Equal(t, 5*time.Minute, GetDuration(cfg.Pipeline.ResultCacheTTL))
	assert.Equal(t, time.Hour, GetDuration(cfg.Assistant.SessionTTL))
}

func TestLoadFromFile_LegacyEnvNames(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "k-123")
	t.Setenv("GEMINI_MODEL", "gemini-test")
	t.Setenv("ASSISTANT_PERSIST", "false")
	t.Setenv("ASSISTANT_DB_PATH", "/tmp/sessions.db")
	t.Setenv("REDIS_ADDRESS", "redis:6379")

	path := writeConfig(t, "assistant:\n  persist: true\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "k-123", cfg.APIs.LLM.APIKey)
	assert.Equal(t, "gemini-test", cfg.APIs.LLM.Model)
	assert.False(t, cfg.Assistant.Persist)
	assert.Equal(t, "/tmp/sessions.db", cfg.Database.SQLite.Path)
	assert.True(t, cfg.Database.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Database.Redis.Address)
}

func TestLoadFromFile_ExpandsPlaceholders(t *testing.T) {
	t.Setenv("MI_TEST_GITHUB", "ghp_abc")
	path := writeConfig(t, "apis:\n  github:\n    token: ${MI_TEST_GITHUB}\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ghp_abc", cfg.APIs.GitHub.Token)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"unknown llm provider", func(c *Config) { c.APIs.LLM.Provider = "other" }, true},
		{"gateway without url", func(c *Config) { c.APIs.LLM.Provider = "gateway" }, true},
		{"cse without key", func(c *Config) { c.APIs.WebSearch.Provider = "cse" }, true},
		{"postgres backend without host", func(c *Config) {
			c.Assistant.Persist = true
			c.Assistant.Backend = "postgres"
		}, true},
		{"redis enabled without address", func(c *Config) { c.Database.Redis.Enabled = true }, true},
		{"elasticsearch enabled without addresses", func(c *Config) { c.Database.Elasticsearch.Enabled = true }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			applyDefaults(cfg)
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
