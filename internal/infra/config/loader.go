package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/Jairedddy/ClockIn-Automation/internal/app/config"
)

// LoadSecrets reads and validates the secrets document at path.
// It is read once at startup and never written back.
func LoadSecrets(fs afero.Fs, path string) (config.Secrets, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return config.Secrets{}, fmt.Errorf("failed to read secrets file %s: %w", path, err)
	}

	var secrets config.Secrets
	if err := yaml.Unmarshal(data, &secrets); err != nil {
		return config.Secrets{}, fmt.Errorf("failed to parse YAML secrets %s: %w", path, err)
	}

	applySecretDefaults(&secrets)

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(secrets); err != nil {
		return config.Secrets{}, fmt.Errorf("invalid secrets %s: %w", path, err)
	}
	return secrets, nil
}

func applySecretDefaults(s *config.Secrets) {
	s.PortalURL = strings.TrimSpace(s.PortalURL)
	s.AccountIdentifier = strings.TrimSpace(s.AccountIdentifier)
	if s.ProfileName == "" {
		s.ProfileName = "Default"
	}
	if s.Email.Enabled() && s.Email.Port == 0 {
		if s.Email.UseSSL {
			s.Email.Port = 465
		} else {
			s.Email.Port = 587
		}
	}
	if s.Email.Enabled() && s.Email.Username == "" {
		s.Email.Username = s.Email.From
	}
	if s.Telegram.APIBase == "" {
		s.Telegram.APIBase = "https://api.telegram.org"
	}
}
