package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"port": 9090,
		"database_url": "postgres://localhost/applypilot",
		"headless": false
	}`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "postgres://localhost/applypilot", cfg.DatabaseURL)
	assert.False(t, cfg.Headless)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())

	cfg.Port = 70000
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.NavigateTimeoutSeconds = -1
	assert.Error(t, cfg.Validate())
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := Config{DatabaseURL: "postgres://localhost/x"}
	merged := cfg.MergeWithDefaults(Defaults())

	assert.Equal(t, 8080, merged.Port)
	assert.Equal(t, "postgres://localhost/x", merged.DatabaseURL)
	assert.Equal(t, 60, merged.NavigateTimeoutSeconds)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("APPLYPILOT_PORT", "7001")
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("APPLYPILOT_HEADLESS", "false")

	cfg := Defaults()
	cfg.ApplyEnv()

	assert.Equal(t, 7001, cfg.Port)
	assert.Equal(t, "test-key", cfg.APIKey)
	assert.False(t, cfg.Headless)
}
