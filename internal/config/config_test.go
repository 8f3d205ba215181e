package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0", cfg.Server.Host)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "healthsync.db", cfg.DB.Path)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, time.Duration(0), cfg.Sync.Interval)
	require.Equal(t, 50, cfg.Sync.ActivityLimit)
	require.Equal(t, 30, cfg.Sync.DayWindow)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HEALTHSYNC_SERVER_HOST", "127.0.0.1")
	t.Setenv("HEALTHSYNC_SERVER_PORT", "9090")
	t.Setenv("HEALTHSYNC_DB_PATH", "/tmp/test.db")
	t.Setenv("HEALTHSYNC_LOG_LEVEL", "debug")
	t.Setenv("GARMIN_USERNAME", "athlete@example.com")
	t.Setenv("GARMIN_PASSWORD", "hunter2")
	t.Setenv("HEALTHSYNC_SYNC_INTERVAL", "15m")
	t.Setenv("HEALTHSYNC_ACTIVITY_LIMIT", "25")
	t.Setenv("HEALTHSYNC_DAY_WINDOW", "7")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1", cfg.Server.Host)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "/tmp/test.db", cfg.DB.Path)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "athlete@example.com", cfg.Garmin.Username)
	require.Equal(t, "hunter2", cfg.Garmin.Password)
	require.Equal(t, 15*time.Minute, cfg.Sync.Interval)
	require.Equal(t, 25, cfg.Sync.ActivityLimit)
	require.Equal(t, 7, cfg.Sync.DayWindow)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  host: localhost
  port: 3000
garmin:
  username: file-user
sync:
  interval: 1h
  day_window: 14
`), 0o644))
	t.Setenv("HEALTHSYNC_CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "localhost", cfg.Server.Host)
	require.Equal(t, 3000, cfg.Server.Port)
	require.Equal(t, "file-user", cfg.Garmin.Username)
	require.Equal(t, time.Hour, cfg.Sync.Interval)
	require.Equal(t, 14, cfg.Sync.DayWindow)
}

func TestLoad_EnvWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 3000\n"), 0o644))
	t.Setenv("HEALTHSYNC_CONFIG_PATH", path)
	t.Setenv("HEALTHSYNC_SERVER_PORT", "4000")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 4000, cfg.Server.Port)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Run("bad port", func(t *testing.T) {
		t.Setenv("HEALTHSYNC_SERVER_PORT", "not-a-port")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("bad interval", func(t *testing.T) {
		t.Setenv("HEALTHSYNC_SYNC_INTERVAL", "soon")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("negative interval", func(t *testing.T) {
		t.Setenv("HEALTHSYNC_SYNC_INTERVAL", "-5m")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("non-positive limits reset to defaults", func(t *testing.T) {
		t.Setenv("HEALTHSYNC_ACTIVITY_LIMIT", "0")
		t.Setenv("HEALTHSYNC_DAY_WINDOW", "-3")
		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, 50, cfg.Sync.ActivityLimit)
		require.Equal(t, 30, cfg.Sync.DayWindow)
	})
}
