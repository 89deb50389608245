package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DEEPSEEK_API_KEY", "")
	t.Setenv("DEEPSEEK_API_KEY_FILE", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "localhost", cfg.DBHost)
	assert.Equal(t, "mediguide", cfg.DBName)
	assert.Equal(t, "https://api.deepseek.com", cfg.DeepSeekBaseURL)
	assert.Empty(t, cfg.DeepSeekAPIKey)
}

func TestLoadConfigRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadConfigAPIKeyFromFile(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), "deepseek_api_key")
	require.NoError(t, os.WriteFile(keyFile, []byte("sk-from-file\n"), 0600))

	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DEEPSEEK_API_KEY", "")
	t.Setenv("DEEPSEEK_API_KEY_FILE", keyFile)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "sk-from-file", cfg.DeepSeekAPIKey)
}

func TestLoadConfigInvalidRedisDB(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("REDIS_DB", "not-a-number")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_DB")
}
