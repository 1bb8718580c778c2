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
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.App.Environment)
	assert.Equal(t, 3000, cfg.HTTP.Port)
	assert.Equal(t, []string{"*"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, 300*time.Millisecond, cfg.Codeforces.UserDelay)
	assert.Equal(t, 3, cfg.Codeforces.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Codeforces.RetryDelay)
	assert.Equal(t, 500, cfg.Codeforces.SubmissionCount)
	assert.Equal(t, 10*time.Minute, cfg.Board.CacheTTL)
	assert.Equal(t, RosterSourceFile, cfg.Roster.Source)
	assert.Equal(t, "students.json", cfg.Roster.File)
	assert.False(t, cfg.Redis.Enabled)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, []int{0}, cfg.Scheduler.WarmDayOffsets)
	assert.Equal(t, "info", cfg.Observability.LogLevel)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.UsesPostgres())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("HTTP_PORT", "8081")
	t.Setenv("CODEFORCES_USER_DELAY", "1s")
	t.Setenv("BOARD_CACHE_TTL", "2m")
	t.Setenv("ROSTER_SOURCE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/cfboard")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("BOARD_WARM_OFFSETS", "0, 1,2")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 8081, cfg.HTTP.Port)
	assert.Equal(t, time.Second, cfg.Codeforces.UserDelay)
	assert.Equal(t, 2*time.Minute, cfg.Board.CacheTTL)
	assert.True(t, cfg.UsesPostgres())
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, []int{0, 1, 2}, cfg.Scheduler.WarmDayOffsets)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_PORT: 9000\nLOG_LEVEL: DEBUG\n"), 0o600))
	t.Setenv("HTTP_PORT", "9001")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.HTTP.Port, "environment wins over the file")
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadWarmOffsets(t *testing.T) {
	t.Setenv("BOARD_WARM_OFFSETS", "0,x")
	_, err := Load("")
	assert.ErrorContains(t, err, "BOARD_WARM_OFFSETS")
}

func TestValidate_AggregatesErrors(t *testing.T) {
	t.Setenv("APP_ENV", "qa")
	t.Setenv("CODEFORCES_MAX_ATTEMPTS", "0")
	t.Setenv("CODEFORCES_API_KEY", "key-only")
	t.Setenv("ROSTER_SOURCE", "postgres")
	t.Setenv("BOARD_WARM_OFFSETS", "9")

	_, err := Load("")
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "APP_ENV")
	assert.Contains(t, msg, "CODEFORCES_MAX_ATTEMPTS")
	assert.Contains(t, msg, "CODEFORCES_API_SECRET")
	assert.Contains(t, msg, "DATABASE_URL")
	assert.Contains(t, msg, "BOARD_WARM_OFFSETS")
}

func TestValidate_UnknownRosterSource(t *testing.T) {
	t.Setenv("ROSTER_SOURCE", "sheet")
	_, err := Load("")
	assert.ErrorContains(t, err, "ROSTER_SOURCE")
}
