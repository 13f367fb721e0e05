package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DBDriverMySQL, cfg.DBDriver)
	assert.Equal(t, "3306", cfg.DBPort)
	assert.Equal(t, StoreBackendSQL, cfg.StoreBackend)
	assert.Equal(t, SessionStoreRedis, cfg.SessionStore)
	assert.Equal(t, LLMProviderOpenAI, cfg.LLMProvider)
	assert.Equal(t, 60*time.Second, cfg.LLMTimeout)
	assert.Equal(t, "8080", cfg.ServerPort)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("LLM_PROVIDER", "mistral")
	t.Setenv("MISTRAL_API_KEY", "mistral-key")
	t.Setenv("LLM_TIMEOUT", "15s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DBDriverPostgres, cfg.DBDriver)
	assert.Equal(t, "5432", cfg.DBPort)
	assert.Equal(t, LLMProviderMistral, cfg.LLMProvider)
	assert.Equal(t, "mistral-key", cfg.LLMAPIKey())
	assert.Equal(t, 15*time.Second, cfg.LLMTimeout)
}

func TestLoad_ConfigFileBelowEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("db_driver: sqlite\ndb_path: /tmp/tasks.db\nsession_store: cookie\ncors_origin: https://tasks.example.com\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("CORS_ORIGIN", "https://override.example.com")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DBDriverSQLite, cfg.DBDriver)
	assert.Equal(t, "/tmp/tasks.db", cfg.DBPath)
	assert.Equal(t, SessionStoreCookie, cfg.SessionStore)
	assert.Equal(t, "https://override.example.com", cfg.CORSOrigin)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate_RejectsUnknownValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"db driver", func(c *Config) { c.DBDriver = "oracle" }},
		{"store backend", func(c *Config) { c.StoreBackend = "mongo" }},
		{"session store", func(c *Config) { c.SessionStore = "memcached" }},
		{"llm provider", func(c *Config) { c.LLMProvider = "llama" }},
		{"llm timeout", func(c *Config) { c.LLMTimeout = 0 }},
		{"cors origin without origins", func(c *Config) { c.CORSOrigin = " , " }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				DBDriver:     DBDriverMySQL,
				StoreBackend: StoreBackendSQL,
				SessionStore: SessionStoreRedis,
				LLMProvider:  LLMProviderOpenAI,
				LLMTimeout:   time.Minute,
			}
			require.NoError(t, cfg.Validate())

			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLLMAPIKey_BedrockHasNone(t *testing.T) {
	cfg := &Config{
		LLMProvider:     LLMProviderAnthropicBedrock,
		AnthropicAPIKey: "unused",
	}
	assert.Empty(t, cfg.LLMAPIKey())
}

func TestCORSOrigins(t *testing.T) {
	cfg := &Config{CORSOrigin: " http://localhost:3000 ,, https://tasks.example.com, "}
	assert.Equal(t, []string{"http://localhost:3000", "https://tasks.example.com"}, cfg.CORSOrigins())

	cfg.CORSOrigin = ""
	assert.Empty(t, cfg.CORSOrigins())
}
