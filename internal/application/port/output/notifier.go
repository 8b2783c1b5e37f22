package output

import (
	"context"

	"github.com/Jairedddy/ClockIn-Automation/internal/domain/model/outcome"
)

// Notifier delivers a run outcome to the operator
type Notifier interface {
	Name() string
	Notify(ctx context.Context, o outcome.Outcome) error
}
