package output

import (
	"context"
	"time"

	"github.com/Jairedddy/ClockIn-Automation/internal/application/workflow"
)

// Browser is a launched browser whose tab the portal flow drives
type Browser interface {
	workflow.Page
	// Close shuts the browser down, waiting at most grace
	Close(grace time.Duration) error
}

// BrowserLauncher starts a browser on the operator's profile
type BrowserLauncher func(ctx context.Context) (Browser, error)

// ProfileGuard stops other browser instances that hold the profile
type ProfileGuard interface {
	EnsureExclusive(ctx context.Context) (int, error)
}
