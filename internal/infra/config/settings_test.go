package config

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings(t *testing.T) {
	tests := []struct {
		name        string
		content     map[string]interface{}
		wantSource  string
		wantNav     time.Duration
		wantTries   int
		wantLevel   string
		wantHeadful bool
	}{
		{
			name:        "Default values only",
			wantSource:  "default",
			wantNav:     60 * time.Second,
			wantTries:   3,
			wantLevel:   "info",
			wantHeadful: true,
		},
		{
			name: "JSON file overrides",
			content: map[string]interface{}{
				"navigation_timeout_sec": 600,
				"clock_in_attempts":      5,
				"log_level":              "debug",
				"headless":               true,
			},
			wantSource: "json",
			wantNav:    600 * time.Second,
			wantTries:  5,
			wantLevel:  "debug",
		},
		{
			name: "Partial JSON keeps remaining defaults",
			content: map[string]interface{}{
				"log_level": "warn",
			},
			wantSource:  "json",
			wantNav:     60 * time.Second,
			wantTries:   3,
			wantLevel:   "warn",
			wantHeadful: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			home := "/home/user/.clockin"
			require.NoError(t, fs.MkdirAll(home, 0o755))
			if tt.content != nil {
				data, err := json.Marshal(tt.content)
				require.NoError(t, err)
				require.NoError(t, afero.WriteFile(fs, filepath.Join(home, SettingFile), data, 0o644))
			}

			s, err := LoadSettings(fs, home)
			require.NoError(t, err)

			assert.Equal(t, tt.wantSource, s.ConfigSource)
			assert.Equal(t, tt.wantNav, s.NavigationTimeout())
			assert.Equal(t, tt.wantTries, s.ClockInAttempts)
			assert.Equal(t, tt.wantLevel, s.LogLevel)
			assert.Equal(t, tt.wantHeadful, !s.Headless)
			assert.Equal(t, filepath.Join(home, "config.json"), s.Resolve(s.ConfigPath))
			assert.Equal(t, time.Hour, s.StaleLockAfter())
			assert.Equal(t, 8*time.Second, s.ClockInTimeout())
			assert.Equal(t, 15*time.Second, s.ElementTimeout())
		})
	}
}

func TestLoadSettings_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed JSON", "{"},
		{"zero attempts", `{"clock_in_attempts": 0}`},
		{"negative settle", `{"settle_delay_sec": -1}`},
		{"bad cron", `{"daemon_schedule": "every morning"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, "home/"+SettingFile, []byte(tt.content), 0o644))

			_, err := LoadSettings(fs, "home")
			assert.Error(t, err)
		})
	}
}

func TestSettings_ResolveAbsolute(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "home/"+SettingFile, []byte(`{"screenshot_dir": "/var/evidence"}`), 0o644))

	s, err := LoadSettings(fs, "home")
	require.NoError(t, err)
	assert.Equal(t, "/var/evidence", s.Resolve(s.ScreenshotDir))
	assert.Equal(t, filepath.Join("home", "run.lock"), s.Resolve(s.LockPath))
}

func TestCreateDefaultSettings(t *testing.T) {
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(CreateDefaultSettings(), &raw))

	assert.Equal(t, "config.json", raw["config_path"])
	assert.EqualValues(t, 3, raw["clock_in_attempts"])
	assert.Equal(t, DefaultClockInSelector, raw["clock_in_selector"])
}
