// Package config holds the resolved, read-only application configuration.
// Values are loaded once at startup by internal/infra/config and passed
// explicitly to every component.
package config

import (
	"path/filepath"
	"time"
)

// Settings are operator tunables read from setting.json, with defaults
// applied for every field the file omits.
type Settings struct {
	Home string // base directory; relative paths below resolve against it

	ConfigPath    string
	SecretsPath   string
	LockPath      string
	ScreenshotDir string
	JournalPath   string

	NavigationTimeoutSec int
	SettleDelaySec       int
	StepSettleSec        int
	ElementTimeoutSec    int
	OptionalTimeoutSec   int
	ClockInTimeoutSec    int
	ClockInAttempts      int
	StaleLockSec         int
	BrowserShutdownSec   int

	SSOSelector             string
	AccountSelectorTemplate string // %s is replaced by the quoted account identifier
	MoodSelector            string
	ClockInSelector         string

	Headless       bool
	DaemonSchedule string // cron expression for the daemon command
	Timezone       string
	LogLevel       string

	ConfigSource string // "json" or "default"
	SettingPath  string // path to setting.json when loaded from file
}

// Resolve joins p with Home unless p is absolute
func (s Settings) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.Home, p)
}

// NavigationTimeout bounds the initial portal navigation
func (s Settings) NavigationTimeout() time.Duration {
	return seconds(s.NavigationTimeoutSec)
}

// SettleDelay is the fixed wait after the portal finished loading
func (s Settings) SettleDelay() time.Duration { return seconds(s.SettleDelaySec) }

// StepSettle is the wait after each click before evidence is captured
func (s Settings) StepSettle() time.Duration { return seconds(s.StepSettleSec) }

// ElementTimeout bounds the wait for the SSO and account controls
func (s Settings) ElementTimeout() time.Duration { return seconds(s.ElementTimeoutSec) }

// OptionalTimeout bounds the wait for the optional interstitial
func (s Settings) OptionalTimeout() time.Duration { return seconds(s.OptionalTimeoutSec) }

// ClockInTimeout bounds each clock-in attempt
func (s Settings) ClockInTimeout() time.Duration { return seconds(s.ClockInTimeoutSec) }

// StaleLockAfter is the age after which the run marker is reclaimed
func (s Settings) StaleLockAfter() time.Duration { return seconds(s.StaleLockSec) }

// BrowserShutdownGrace is how long a stray browser gets to exit before it is killed
func (s Settings) BrowserShutdownGrace() time.Duration { return seconds(s.BrowserShutdownSec) }

// Location returns the configured timezone, falling back to local time
func (s Settings) Location() *time.Location {
	if s.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// Secrets is the read-only credential and target document (secrets.yaml)
type Secrets struct {
	PortalURL         string          `yaml:"portal_url" validate:"required,url"`
	AccountIdentifier string          `yaml:"account_identifier" validate:"required"`
	BrowserPath       string          `yaml:"browser_path" validate:"required"`
	ProfileDir        string          `yaml:"profile_dir" validate:"required"`
	ProfileName       string          `yaml:"profile_name"`
	Email             EmailSecrets    `yaml:"email"`
	Telegram          TelegramSecrets `yaml:"telegram"`
	Archive           ArchiveSecrets  `yaml:"archive"`
}

// EmailSecrets configures the SMTP notifier; an empty Host disables it
type EmailSecrets struct {
	Host     string   `yaml:"smtp_host" validate:"omitempty,hostname|ip"`
	Port     int      `yaml:"smtp_port" validate:"omitempty,min=1,max=65535"`
	UseSSL   bool     `yaml:"use_ssl"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from" validate:"required_with=Host"`
	To       []string `yaml:"to" validate:"required_with=Host,dive,email"`
}

// Enabled reports whether email notifications are configured
func (e EmailSecrets) Enabled() bool { return e.Host != "" }

// TelegramSecrets configures the chat notifier; an empty BotToken disables it
type TelegramSecrets struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id" validate:"required_with=BotToken"`
	APIBase  string `yaml:"api_base" validate:"omitempty,url"`
}

// Enabled reports whether chat notifications are configured
func (t TelegramSecrets) Enabled() bool { return t.BotToken != "" }

// ArchiveSecrets configures the optional S3 evidence archive; an empty Bucket disables it
type ArchiveSecrets struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`
}

// Enabled reports whether evidence is archived to S3
func (a ArchiveSecrets) Enabled() bool { return a.Bucket != "" }
