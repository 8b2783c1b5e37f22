package file

import (
	"encoding/json"
	"errors"
	"fmt"
	iofs "io/fs"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"

	"github.com/Jairedddy/ClockIn-Automation/internal/domain/model/schedule"
)

// ErrConfigMissing is the cause of a ConfigError when the file does not exist
var ErrConfigMissing = errors.New("configuration file not found")

// ConfigError reports a missing, malformed or invalid configuration document.
// It is fatal and raised before any browser interaction.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ConfigStore persists the schedule configuration as a JSON document
type ConfigStore struct {
	fs       afero.Fs
	path     string
	validate *validator.Validate
}

// NewConfigStore creates a store for the document at path
func NewConfigStore(fs afero.Fs, path string) *ConfigStore {
	return &ConfigStore{
		fs:       fs,
		path:     path,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Path returns the document path
func (s *ConfigStore) Path() string { return s.path }

// Load reads and validates the configuration
func (s *ConfigStore) Load() (schedule.Configuration, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return schedule.Configuration{}, &ConfigError{Path: s.path, Err: ErrConfigMissing}
		}
		return schedule.Configuration{}, &ConfigError{Path: s.path, Err: err}
	}

	var cfg schedule.Configuration
	if err := json.Unmarshal(data, &cfg); err != nil {
		return schedule.Configuration{}, &ConfigError{Path: s.path, Err: fmt.Errorf("invalid JSON format: %w", err)}
	}
	if err := s.check(cfg); err != nil {
		return schedule.Configuration{}, &ConfigError{Path: s.path, Err: err}
	}
	return cfg, nil
}

// Save validates cfg and replaces the document atomically
func (s *ConfigStore) Save(cfg schedule.Configuration) error {
	if err := s.check(cfg); err != nil {
		return &ConfigError{Path: s.path, Err: err}
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := WriteFileAtomic(s.fs, s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Init writes the default configuration unless a document already exists.
// It reports whether a file was created.
func (s *ConfigStore) Init() (bool, error) {
	exists, err := afero.Exists(s.fs, s.path)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	return true, s.Save(schedule.DefaultConfiguration())
}

func (s *ConfigStore) check(cfg schedule.Configuration) error {
	if err := s.validate.Struct(cfg); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if lo, hi := cfg.RandomWindowMinutes[0], cfg.RandomWindowMinutes[1]; hi != 0 && hi < lo {
		return fmt.Errorf("random_time_window_minutes: upper bound %d is below lower bound %d", hi, lo)
	}
	return nil
}
