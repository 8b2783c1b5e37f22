package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSecrets = `
portal_url: https://portal.example.com/
account_identifier: jane.doe@corp.example.com
browser_path: /usr/bin/brave-browser
profile_dir: /home/jane/.config/BraveSoftware/Brave-Browser
email:
  smtp_host: smtp.gmail.com
  use_ssl: true
  from: bot@example.com
  password: app-password
  to:
    - jane@example.com
telegram:
  bot_token: "123:abc"
  chat_id: "987"
`

func TestLoadSecrets(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "secrets.yaml", []byte(validSecrets), 0o600))

	s, err := LoadSecrets(fs, "secrets.yaml")
	require.NoError(t, err)

	assert.Equal(t, "https://portal.example.com/", s.PortalURL)
	assert.Equal(t, "jane.doe@corp.example.com", s.AccountIdentifier)
	assert.Equal(t, "Default", s.ProfileName)
	assert.True(t, s.Email.Enabled())
	assert.Equal(t, 465, s.Email.Port)
	assert.Equal(t, "bot@example.com", s.Email.Username)
	assert.True(t, s.Telegram.Enabled())
	assert.Equal(t, "https://api.telegram.org", s.Telegram.APIBase)
	assert.False(t, s.Archive.Enabled())
}

func TestLoadSecrets_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing portal", "account_identifier: a\nbrowser_path: b\nprofile_dir: c\n"},
		{"portal not a url", "portal_url: portal\naccount_identifier: a\nbrowser_path: b\nprofile_dir: c\n"},
		{"chat without recipient", "portal_url: https://p.example.com\naccount_identifier: a\nbrowser_path: b\nprofile_dir: c\ntelegram:\n  bot_token: t\n"},
		{"email without recipients", "portal_url: https://p.example.com\naccount_identifier: a\nbrowser_path: b\nprofile_dir: c\nemail:\n  smtp_host: smtp.example.com\n  from: x@example.com\n"},
		{"not yaml", "portal_url: [unterminated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, "secrets.yaml", []byte(tt.content), 0o600))

			_, err := LoadSecrets(fs, "secrets.yaml")
			assert.Error(t, err)
		})
	}
}

func TestLoadSecrets_Missing(t *testing.T) {
	_, err := LoadSecrets(afero.NewMemMapFs(), "nope.yaml")
	assert.Error(t, err)
}
