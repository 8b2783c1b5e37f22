package config

import (
	"encoding/json"
	"errors"
	"fmt"
	iofs "io/fs"
	"path/filepath"

	"github.com/robfig/cron/v3"
	"github.com/spf13/afero"

	"github.com/Jairedddy/ClockIn-Automation/internal/app/config"
)

// SettingFile is the optional tunables document inside the home directory
const SettingFile = "setting.json"

// Default selectors for the portal flow. BySearch accepts XPath, so every
// default is an XPath expression.
const (
	DefaultSSOSelector             = `//*[self::a or self::button][contains(normalize-space(.), "SSO")]`
	DefaultAccountSelectorTemplate = `//*[text()[contains(., %s)]]`
	DefaultMoodSelector            = `//*[contains(@class, "mood")]//*[self::button or self::span or self::i][contains(@class, "close")]`
	DefaultClockInSelector         = `//*[self::button or self::a][contains(normalize-space(.), "Clock In")]`
)

// RawSettings represents the structure of setting.json.
// Pointer fields distinguish "absent" from zero values.
type RawSettings struct {
	ConfigPath    *string `json:"config_path"`
	SecretsPath   *string `json:"secrets_path"`
	LockPath      *string `json:"lock_path"`
	ScreenshotDir *string `json:"screenshot_dir"`
	JournalPath   *string `json:"journal_path"`

	NavigationTimeoutSec *int `json:"navigation_timeout_sec"`
	SettleDelaySec       *int `json:"settle_delay_sec"`
	StepSettleSec        *int `json:"step_settle_sec"`
	ElementTimeoutSec    *int `json:"element_timeout_sec"`
	OptionalTimeoutSec   *int `json:"optional_timeout_sec"`
	ClockInTimeoutSec    *int `json:"clock_in_timeout_sec"`
	ClockInAttempts      *int `json:"clock_in_attempts"`
	StaleLockSec         *int `json:"stale_lock_sec"`
	BrowserShutdownSec   *int `json:"browser_shutdown_sec"`

	SSOSelector             *string `json:"sso_selector"`
	AccountSelectorTemplate *string `json:"account_selector_template"`
	MoodSelector            *string `json:"mood_selector"`
	ClockInSelector         *string `json:"clock_in_selector"`

	Headless       *bool   `json:"headless"`
	DaemonSchedule *string `json:"daemon_schedule"`
	Timezone       *string `json:"timezone"`
	LogLevel       *string `json:"log_level"`
}

// LoadSettings loads setting.json from baseDir when present.
// Priority: setting.json > defaults
func LoadSettings(fs afero.Fs, baseDir string) (config.Settings, error) {
	settings := &RawSettings{}
	configSource := "default"
	settingPath := ""

	jsonPath := filepath.Join(baseDir, SettingFile)
	data, err := afero.ReadFile(fs, jsonPath)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, settings); err != nil {
			return config.Settings{}, fmt.Errorf("failed to parse %s: %w", jsonPath, err)
		}
		configSource = "json"
		settingPath = jsonPath
	case !errors.Is(err, iofs.ErrNotExist):
		return config.Settings{}, fmt.Errorf("failed to read %s: %w", jsonPath, err)
	}

	applyDefaults(settings)

	s := buildSettings(settings, baseDir, configSource, settingPath)
	if err := validateSettings(s); err != nil {
		return config.Settings{}, fmt.Errorf("invalid %s: %w", jsonPath, err)
	}
	return s, nil
}

// applyDefaults fills in default values for any nil fields
func applyDefaults(settings *RawSettings) {
	setString(&settings.ConfigPath, "config.json")
	setString(&settings.SecretsPath, "secrets.yaml")
	setString(&settings.LockPath, "run.lock")
	setString(&settings.ScreenshotDir, "screenshots")
	setString(&settings.JournalPath, "runs.ndjson")

	// Some portal variants take minutes to answer the first request
	setInt(&settings.NavigationTimeoutSec, 60)
	setInt(&settings.SettleDelaySec, 5)
	setInt(&settings.StepSettleSec, 2)
	setInt(&settings.ElementTimeoutSec, 15)
	setInt(&settings.OptionalTimeoutSec, 5)
	setInt(&settings.ClockInTimeoutSec, 8)
	setInt(&settings.ClockInAttempts, 3)
	setInt(&settings.StaleLockSec, 3600)
	setInt(&settings.BrowserShutdownSec, 5)

	setString(&settings.SSOSelector, DefaultSSOSelector)
	setString(&settings.AccountSelectorTemplate, DefaultAccountSelectorTemplate)
	setString(&settings.MoodSelector, DefaultMoodSelector)
	setString(&settings.ClockInSelector, DefaultClockInSelector)

	if settings.Headless == nil {
		v := false
		settings.Headless = &v
	}
	setString(&settings.DaemonSchedule, "0 9 * * *")
	setString(&settings.Timezone, "")
	setString(&settings.LogLevel, "info")
}

func setString(p **string, def string) {
	if *p == nil {
		v := def
		*p = &v
	}
}

func setInt(p **int, def int) {
	if *p == nil {
		v := def
		*p = &v
	}
}

// buildSettings converts RawSettings to config.Settings
func buildSettings(r *RawSettings, home, configSource, settingPath string) config.Settings {
	return config.Settings{
		Home:                    home,
		ConfigPath:              *r.ConfigPath,
		SecretsPath:             *r.SecretsPath,
		LockPath:                *r.LockPath,
		ScreenshotDir:           *r.ScreenshotDir,
		JournalPath:             *r.JournalPath,
		NavigationTimeoutSec:    *r.NavigationTimeoutSec,
		SettleDelaySec:          *r.SettleDelaySec,
		StepSettleSec:           *r.StepSettleSec,
		ElementTimeoutSec:       *r.ElementTimeoutSec,
		OptionalTimeoutSec:      *r.OptionalTimeoutSec,
		ClockInTimeoutSec:       *r.ClockInTimeoutSec,
		ClockInAttempts:         *r.ClockInAttempts,
		StaleLockSec:            *r.StaleLockSec,
		BrowserShutdownSec:      *r.BrowserShutdownSec,
		SSOSelector:             *r.SSOSelector,
		AccountSelectorTemplate: *r.AccountSelectorTemplate,
		MoodSelector:            *r.MoodSelector,
		ClockInSelector:         *r.ClockInSelector,
		Headless:                *r.Headless,
		DaemonSchedule:          *r.DaemonSchedule,
		Timezone:                *r.Timezone,
		LogLevel:                *r.LogLevel,
		ConfigSource:            configSource,
		SettingPath:             settingPath,
	}
}

func validateSettings(s config.Settings) error {
	positive := map[string]int{
		"navigation_timeout_sec": s.NavigationTimeoutSec,
		"element_timeout_sec":    s.ElementTimeoutSec,
		"optional_timeout_sec":   s.OptionalTimeoutSec,
		"clock_in_timeout_sec":   s.ClockInTimeoutSec,
		"clock_in_attempts":      s.ClockInAttempts,
		"stale_lock_sec":         s.StaleLockSec,
	}
	for name, v := range positive {
		if v <= 0 {
			return fmt.Errorf("%s must be > 0, got %d", name, v)
		}
	}
	if s.SettleDelaySec < 0 || s.StepSettleSec < 0 || s.BrowserShutdownSec < 0 {
		return errors.New("delays must not be negative")
	}
	if _, err := cron.ParseStandard(s.DaemonSchedule); err != nil {
		return fmt.Errorf("daemon_schedule: %w", err)
	}
	return nil
}

// CreateDefaultSettings returns the content of a setting.json holding every default
func CreateDefaultSettings() []byte {
	settings := &RawSettings{}
	applyDefaults(settings)

	data, _ := json.MarshalIndent(settings, "", "  ")
	return data
}
