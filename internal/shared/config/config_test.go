package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test from an empty directory so no stray .env or config.yaml is read.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, env := range envBindings {
		t.Setenv(env, "")
		os.Unsetenv(env)
	}
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, "polling", cfg.Bot.Mode)
	assert.Equal(t, 4, cfg.Bot.Polling.WorkerPoolSize)
	assert.Equal(t, time.Second, cfg.Latency.Login)
	assert.Equal(t, 1500*time.Millisecond, cfg.Latency.Verify)
	assert.Equal(t, 60*time.Second, cfg.OTP.Cooldown)
	assert.Equal(t, "lenient", cfg.OTP.Policy)
	assert.Equal(t, 3, cfg.Ownership.MaxAttempts)
	assert.Equal(t, 30*time.Minute, cfg.Ownership.LockDuration)
	assert.False(t, cfg.Registry.EnforceUniqueIMEI)
	assert.True(t, cfg.Registry.Seed)
	assert.Empty(t, cfg.Postgres.URL)
	assert.Empty(t, cfg.Bot.AdminIDs)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("OTP_POLICY", "strict")
	t.Setenv("LATENCY_VERIFY", "0s")
	t.Setenv("OWNERSHIP_MAX_ATTEMPTS", "5")
	t.Setenv("REGISTRY_ENFORCE_UNIQUE_IMEI", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.IsDev())
	assert.Equal(t, "strict", cfg.OTP.Policy)
	assert.Equal(t, time.Duration(0), cfg.Latency.Verify)
	assert.Equal(t, 5, cfg.Ownership.MaxAttempts)
	assert.True(t, cfg.Registry.EnforceUniqueIMEI)
}

func TestLoad_AdminIDs(t *testing.T) {
	isolate(t)
	t.Setenv("BOT_ADMIN_IDS", "1001, -200300,,42")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []int64{1001, -200300, 42}, cfg.Bot.AdminIDs)

	t.Setenv("BOT_ADMIN_IDS", "1001,admin")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot.admin_ids")
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BOT_MODE=webhook\nBOT_WEBHOOK_PORT=9000\n"), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "webhook", cfg.Bot.Mode)
	assert.Equal(t, 9000, cfg.Bot.Webhook.ListenPort)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := isolate(t)
	yaml := "storage:\n  sqlite_path: /tmp/session.db\nownership:\n  lock_duration: 5m\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/session.db", cfg.Storage.SQLitePath)
	assert.Equal(t, 5*time.Minute, cfg.Ownership.LockDuration)
}

func TestLoad_DatabaseRequiresKey(t *testing.T) {
	isolate(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/imeiguard")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ENCRYPTION_KEY is required")

	t.Setenv("ENCRYPTION_KEY", "abcd")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "64-character")

	t.Setenv("ENCRYPTION_KEY", strings.Repeat("a", 64))
	_, err = Load()
	require.NoError(t, err)
}

func TestValidate_Rejects(t *testing.T) {
	base := Config{
		Bot:       BotConfig{Mode: "polling"},
		OTP:       OTPConfig{Policy: "lenient"},
		Ownership: OwnershipConfig{MaxAttempts: 3},
	}
	require.NoError(t, base.Validate())

	badPolicy := base
	badPolicy.OTP.Policy = "none"
	assert.Error(t, badPolicy.Validate())

	badMode := base
	badMode.Bot.Mode = "push"
	assert.Error(t, badMode.Validate())

	badAttempts := base
	badAttempts.Ownership.MaxAttempts = 0
	assert.Error(t, badAttempts.Validate())
}
