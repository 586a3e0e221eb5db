// Package config loads and saves the aboradar TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds all aboradar configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Appearance AppearanceConfig `toml:"appearance"`
	Budget     BudgetConfig     `toml:"budget"`
	Gemini     GeminiConfig     `toml:"gemini"`
	Mail       MailConfig       `toml:"mail"`
	Daemon     DaemonConfig     `toml:"daemon"`
	Log        LogConfig        `toml:"log"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	DataDir            string  `toml:"data_dir,omitempty"`
	DefaultCategory    string  `toml:"default_category,omitempty"`
	WarningDays        int     `toml:"warning_days"`
	UpcomingDays       int     `toml:"upcoming_days"`
	ExpensiveThreshold float64 `toml:"expensive_threshold"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// BudgetConfig holds budget tracking settings.
type BudgetConfig struct {
	MonthlyEUR *float64 `toml:"monthly_eur,omitempty"`
}

// GeminiConfig holds settings for cancellation letter generation.
type GeminiConfig struct {
	APIKey  string `toml:"api_key,omitempty"`
	Model   string `toml:"model,omitempty"`
	BaseURL string `toml:"base_url,omitempty"`
}

// MailConfig holds SMTP settings for sending letters and digests.
type MailConfig struct {
	Host     string `toml:"host,omitempty"`
	Port     int    `toml:"port,omitempty"`
	Username string `toml:"username,omitempty"`
	Password string `toml:"password,omitempty"`
	From     string `toml:"from,omitempty"`
	To       string `toml:"to,omitempty"`
}

// DaemonConfig holds background service settings.
type DaemonConfig struct {
	Addr           string `toml:"addr"`
	IntervalSec    int    `toml:"interval_sec"`
	DigestSchedule string `toml:"digest_schedule,omitempty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	File       string `toml:"file,omitempty"`
	Level      string `toml:"level,omitempty"`
	Production bool   `toml:"production"`
}

// Theme names.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			WarningDays:        30,
			UpcomingDays:       90,
			ExpensiveThreshold: 20,
		},
		Appearance: AppearanceConfig{
			Theme: ThemeDark,
		},
		Gemini: GeminiConfig{
			Model: "gemini-2.5-flash",
		},
		Mail: MailConfig{
			Port: 587,
		},
		Daemon: DaemonConfig{
			Addr:           "127.0.0.1:8427",
			IntervalSec:    300,
			DigestSchedule: "0 8 * * *",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "aboradar")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "aboradar")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
// .env files in the working directory and the config directory are loaded
// into the environment first; variables already set win.
func Load() (Config, error) {
	loadDotEnv()

	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

func loadDotEnv() {
	for _, path := range []string{".env", filepath.Join(ConfigDir(), ".env")} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_ = godotenv.Load(path)
	}
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

// GetGeminiAPIKey returns the API key from env vars or config, in that order.
func GetGeminiAPIKey(cfg Config) string {
	for _, name := range []string{"GEMINI_API_KEY", "API_KEY"} {
		if key := os.Getenv(name); key != "" {
			return key
		}
	}
	return cfg.Gemini.APIKey
}

// GetSMTPPassword returns the SMTP password from env var or config.
func GetSMTPPassword(cfg Config) string {
	if pw := os.Getenv("ABORADAR_SMTP_PASSWORD"); pw != "" {
		return pw
	}
	return cfg.Mail.Password
}

// MailConfigured reports whether enough SMTP settings exist to send mail.
func (c Config) MailConfigured() bool {
	return c.Mail.Host != "" && c.Mail.From != ""
}

// ThemeName normalizes the configured theme to dark or light.
func (c Config) ThemeName() string {
	if c.Appearance.Theme == ThemeLight {
		return ThemeLight
	}
	return ThemeDark
}

// DefaultCategory returns the configured fallback category.
func (c Config) DefaultCategory(fallback string) string {
	if c.General.DefaultCategory != "" {
		return c.General.DefaultCategory
	}
	return fallback
}

// DBPath returns the database path, honoring data_dir.
func (c Config) DBPath(defaultPath string) string {
	if c.General.DataDir != "" {
		return filepath.Join(c.General.DataDir, "aboradar.db")
	}
	return defaultPath
}
