package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("YESER_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 21, cfg.Reminder.Hour)
	require.Equal(t, 0, cfg.Reminder.Minute)
	require.True(t, cfg.Reminder.Enabled)
	require.Equal(t, "02 Jan", cfg.UI.DateFormat)
	require.NotEmpty(t, cfg.Database.Path)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("YESER_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("YESER_SUPABASE_URL", "https://project.supabase.co")
	t.Setenv("YESER_REMINDER_HOUR", "8")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "https://project.supabase.co", cfg.Supabase.URL)
	require.Equal(t, 8, cfg.Reminder.Hour)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	t.Setenv("YESER_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	cfg.Reminder.Hour = 7
	cfg.UI.Timezone = "Australia/Melbourne"
	require.NoError(t, Save(cfg))

	_, err = os.Stat(path)
	require.NoError(t, err)

	loaded, err := Load()
	require.NoError(t, err)
	require.Equal(t, 7, loaded.Reminder.Hour)
	require.Equal(t, "Australia/Melbourne", loaded.UI.Timezone)
}
