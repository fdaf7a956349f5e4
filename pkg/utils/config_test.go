package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RIFTBOUND_CONFIG", "")
	t.Setenv("RIFTBOUND_DB_PATH", "/tmp/riftbound-test.db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, 24*time.Hour, cfg.Auth.JWTDuration)
	assert.Equal(t, "/tmp/riftbound-test.db", cfg.Database.Path)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.MkdirAll("config", 0o755))
	yamlBody := `
server:
  http_addr: ":9000"
auth:
  jwt_secret: "yaml-secret-value"
  jwt_duration: 2h
redis:
  draft_ttl: 30m
`
	require.NoError(t, os.WriteFile(filepath.Join("config", "riftbound.yaml"), []byte(yamlBody), 0o644))
	t.Setenv("RIFTBOUND_CONFIG", "")
	t.Setenv("RIFTBOUND_JWT_TTL_HOURS", "6")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.HTTPAddr)
	assert.Equal(t, "yaml-secret-value", cfg.Auth.JWTSecret)
	assert.Equal(t, 6*time.Hour, cfg.Auth.JWTDuration)
	assert.Equal(t, 30*time.Minute, cfg.Redis.DraftTTL)
}

func TestLoadTOMLFromExplicitPath(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "custom.toml")
	tomlBody := `
[limits]
save_per_minute = 3
save_burst = 1

[log]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(tomlBody), 0o644))
	t.Setenv("RIFTBOUND_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Limits.SavePerMinute)
	assert.Equal(t, 1, cfg.Limits.SaveBurst)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsBadEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RIFTBOUND_CONFIG", "")
	t.Setenv("RIFTBOUND_SAVE_BURST", "many")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.Auth.JWTSecret = "short"
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.Database.Path = ""
	assert.Error(t, cfg.Validate())
}
