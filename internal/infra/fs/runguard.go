package fs

import (
	"encoding/json"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/Jairedddy/ClockIn-Automation/internal/domain/model/lock"
)

// RunGuard is a process-wide single-flight guard backed by a marker file.
// Only the marker's existence and modification time decide ownership.
type RunGuard struct {
	fs         afero.Fs
	path       string
	staleAfter time.Duration
	now        func() time.Time
	log        logrus.FieldLogger
}

// RunGuardOption customizes a RunGuard
type RunGuardOption func(*RunGuard)

// WithStaleAfter overrides the staleness threshold
func WithStaleAfter(d time.Duration) RunGuardOption {
	return func(g *RunGuard) {
		if d > 0 {
			g.staleAfter = d
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) RunGuardOption {
	return func(g *RunGuard) { g.now = now }
}

// WithLogger sets the logger used for reclaim messages
func WithLogger(log logrus.FieldLogger) RunGuardOption {
	return func(g *RunGuard) { g.log = log }
}

// NewRunGuard creates a guard for the marker at path
func NewRunGuard(fs afero.Fs, path string, opts ...RunGuardOption) *RunGuard {
	g := &RunGuard{
		fs:         fs,
		path:       path,
		staleAfter: lock.DefaultStaleAfter,
		now:        time.Now,
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Path returns the marker path
func (g *RunGuard) Path() string { return g.path }

// Acquire claims the marker. It returns false, nil when a fresh marker
// owned by another run exists; a stale marker is removed and replaced.
func (g *RunGuard) Acquire() (bool, error) {
	info, err := g.fs.Stat(g.path)
	switch {
	case err == nil:
		if !lock.IsStale(info.ModTime(), g.now(), g.staleAfter) {
			return false, nil
		}
		return g.reclaim()
	case !errors.Is(err, iofs.ErrNotExist):
		return false, fmt.Errorf("stat marker: %w", err)
	}
	return g.create()
}

// reclaim replaces a stale marker. Reclaimers are serialized by an exclusive
// side file and the staleness check is repeated while holding it, so a
// reclaimer that observed the old marker cannot remove a marker created
// after it.
func (g *RunGuard) reclaim() (bool, error) {
	reclaimPath := g.path + ".reclaim"
	held, err := g.createExclusive(reclaimPath, nil)
	if err != nil {
		return false, err
	}
	if !held {
		g.dropAbandonedReclaim(reclaimPath)
		return false, nil
	}
	defer func() {
		if err := g.fs.Remove(reclaimPath); err != nil && !errors.Is(err, iofs.ErrNotExist) {
			g.log.WithError(err).Warn("failed to remove reclaim file")
		}
	}()

	now := g.now()
	info, err := g.fs.Stat(g.path)
	switch {
	case err == nil:
		if !lock.IsStale(info.ModTime(), now, g.staleAfter) {
			return false, nil
		}
		g.log.WithFields(logrus.Fields{
			"path": g.path,
			"age":  now.Sub(info.ModTime()).Round(time.Second).String(),
		}).Warn("reclaiming stale run marker")
		if err := g.fs.Remove(g.path); err != nil && !errors.Is(err, iofs.ErrNotExist) {
			return false, fmt.Errorf("remove stale marker: %w", err)
		}
	case !errors.Is(err, iofs.ErrNotExist):
		return false, fmt.Errorf("stat marker: %w", err)
	}
	return g.create()
}

// dropAbandonedReclaim removes a reclaim file left by a process that died
// mid-reclaim, so the next Acquire can proceed.
func (g *RunGuard) dropAbandonedReclaim(reclaimPath string) {
	info, err := g.fs.Stat(reclaimPath)
	if err != nil || !lock.IsStale(info.ModTime(), g.now(), g.staleAfter) {
		return
	}
	g.log.WithField("path", reclaimPath).Warn("removing abandoned reclaim file")
	_ = g.fs.Remove(reclaimPath)
}

func (g *RunGuard) create() (bool, error) {
	marker, err := lock.NewMarker(g.now())
	if err != nil {
		return false, err
	}
	data, err := json.Marshal(marker)
	if err != nil {
		return false, fmt.Errorf("failed to serialize marker: %w", err)
	}
	return g.createExclusive(g.path, data)
}

// createExclusive writes data to a new file at path. It reports false when
// the file already exists.
func (g *RunGuard) createExclusive(path string, data []byte) (bool, error) {
	if err := g.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create marker directory: %w", err)
	}

	// O_EXCL makes a concurrent creator lose the race instead of sharing the file
	f, err := g.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, iofs.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create %s: %w", path, err)
	}

	_, writeErr := f.Write(data)
	closeErr := f.Close()
	if writeErr != nil {
		_ = g.fs.Remove(path)
		return false, fmt.Errorf("failed to write %s: %w", path, writeErr)
	}
	if closeErr != nil {
		_ = g.fs.Remove(path)
		return false, fmt.Errorf("failed to close %s: %w", path, closeErr)
	}
	return true, nil
}

// Release removes the marker unconditionally. A missing marker is not an error.
func (g *RunGuard) Release() error {
	err := g.fs.Remove(g.path)
	if err != nil && !errors.Is(err, iofs.ErrNotExist) {
		return fmt.Errorf("remove marker: %w", err)
	}
	return nil
}

// ReadMarker returns the marker currently on disk
func (g *RunGuard) ReadMarker() (lock.Marker, error) {
	data, err := afero.ReadFile(g.fs, g.path)
	if err != nil {
		return lock.Marker{}, err
	}
	var m lock.Marker
	if err := json.Unmarshal(data, &m); err != nil {
		return lock.Marker{}, fmt.Errorf("parse marker: %w", err)
	}
	return m, nil
}
