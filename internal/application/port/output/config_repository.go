package output

import (
	"time"

	"github.com/Jairedddy/ClockIn-Automation/internal/domain/model/schedule"
)

// ConfigRepository persists the mutable schedule configuration
type ConfigRepository interface {
	Load() (schedule.Configuration, error)
	Save(cfg schedule.Configuration) error
}

// EvidencePruner removes screenshot folders outside the retention window
type EvidencePruner interface {
	Prune(retentionDays int, now time.Time) ([]string, error)
}
