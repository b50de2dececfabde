package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig
	Supabase SupabaseConfig
	Reminder ReminderConfig
	UI       UIConfig
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// SupabaseConfig holds auth backend settings. AnonKey is the public anon key,
// not a secret service key.
type SupabaseConfig struct {
	URL     string
	AnonKey string `mapstructure:"anon_key"`
}

// ReminderConfig holds the daily reminder settings.
type ReminderConfig struct {
	Hour    int
	Minute  int
	Enabled bool
}

// UIConfig holds presentation settings.
type UIConfig struct {
	DateFormat string `mapstructure:"date_format"`
	Timezone   string
}

// Load reads configuration from file and env. Env var overrides use prefix YESER_.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "yeser", "yeser.db"))
	v.SetDefault("supabase.url", "")
	v.SetDefault("supabase.anon_key", "")
	v.SetDefault("reminder.hour", 21)
	v.SetDefault("reminder.minute", 0)
	v.SetDefault("reminder.enabled", true)
	v.SetDefault("ui.date_format", "02 Jan")
	v.SetDefault("ui.timezone", "Europe/Istanbul")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("YESER_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "yeser"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("YESER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Save writes the provided config to disk, creating the config directory if
// needed. Used by the TUI settings view for non-sensitive preferences.
func Save(cfg Config) error {
	path := os.Getenv("YESER_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "yeser", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("database.path", cfg.Database.Path)
	v.Set("supabase.url", cfg.Supabase.URL)
	v.Set("supabase.anon_key", cfg.Supabase.AnonKey)
	v.Set("reminder.hour", cfg.Reminder.Hour)
	v.Set("reminder.minute", cfg.Reminder.Minute)
	v.Set("reminder.enabled", cfg.Reminder.Enabled)
	v.Set("ui.date_format", cfg.UI.DateFormat)
	v.Set("ui.timezone", cfg.UI.Timezone)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
