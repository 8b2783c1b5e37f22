package lock

import (
	"fmt"
	"os"
	"time"
)

// DefaultStaleAfter is the age after which a run marker is presumed
// abandoned by a crashed process
const DefaultStaleAfter = time.Hour

// Marker records which process owns the daily run
type Marker struct {
	PID        int       `json:"pid"`
	Hostname   string    `json:"hostname"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// NewMarker creates a marker for the current process
func NewMarker(now time.Time) (Marker, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return Marker{}, fmt.Errorf("get hostname: %w", err)
	}
	return Marker{
		PID:        os.Getpid(),
		Hostname:   hostname,
		AcquiredAt: now.UTC(),
	}, nil
}

// IsStale reports whether a marker last modified at modTime has outlived staleAfter.
// Only the age counts; the recorded PID is informational.
func IsStale(modTime, now time.Time, staleAfter time.Duration) bool {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return now.Sub(modTime) > staleAfter
}
