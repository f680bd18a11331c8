package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  mode: release\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, ":3000", cfg.Server.Port)
	assert.Equal(t, "General-Detection", cfg.Clarifai.WorkflowID)
	assert.Equal(t, 30*time.Second, cfg.Clarifai.Timeout)
	assert.Equal(t, int64(10*1024*1024), cfg.Upload.MaxBase64Size)
	assert.Equal(t, "person", cfg.Detection.TargetCategory)
	assert.Equal(t, "Persona", cfg.Detection.Label)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadReadsEnvSecrets(t *testing.T) {
	t.Setenv("KEY_PAT", "pat-123")
	t.Setenv("KEY_TELEGRAM_TOKEN", "bot-token")
	t.Setenv("KEY_CHAT_ID", "-100200300")
	t.Setenv("PORT", "8081")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
clarifai:
  timeout: 5s
redis:
  enabled: true
  ttl: 1h
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "pat-123", cfg.Clarifai.PAT)
	assert.Equal(t, "bot-token", cfg.Telegram.Token)
	assert.Equal(t, "-100200300", cfg.Telegram.ChatID)
	assert.Equal(t, ":8081", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Clarifai.Timeout)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, time.Hour, cfg.Redis.TTL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestNewFallsBackWithoutFile(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("KEY_PAT", "pat-123")
	t.Setenv("KEY_CHAT_ID", "42")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "pat-123", cfg.Clarifai.PAT)
	assert.Equal(t, "42", cfg.Telegram.ChatID)
	assert.Equal(t, "./uploads", cfg.Upload.UploadDir)
}

func TestNewKeepsSecretsWithChannelUsername(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("KEY_PAT", "pat-123")
	t.Setenv("KEY_TELEGRAM_TOKEN", "bot-token")
	t.Setenv("KEY_CHAT_ID", "@mychannel")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("redis:\n  enabled: true\n"), 0o644))

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "pat-123", cfg.Clarifai.PAT)
	assert.Equal(t, "bot-token", cfg.Telegram.Token)
	assert.Equal(t, "@mychannel", cfg.Telegram.ChatID)
	assert.True(t, cfg.Redis.Enabled)
}

func TestNewReportsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("KEY_PAT", "pat-123")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("redis:\n  ttl: 1 day\n"), 0o644))

	cfg, err := New()
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

// chdir stands in for testing.T.Chdir (Go 1.24+): switch into dir and restore on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
