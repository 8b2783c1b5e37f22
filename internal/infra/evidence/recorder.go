// Package evidence stores step screenshots in per-day folders and prunes
// folders that fall out of the retention window.
package evidence

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/Jairedddy/ClockIn-Automation/internal/application/workflow"
	"github.com/Jairedddy/ClockIn-Automation/internal/domain/model/schedule"
)

// timestampLayout is the file-name timestamp, e.g. 20240110_083015
const timestampLayout = "20060102_150405"

// Recorder writes evidence to <root>/<YYYY-MM-DD>/<label>_<YYYYMMDD_HHMMSS>.png
type Recorder struct {
	fs   afero.Fs
	root string
	now  func() time.Time
	log  logrus.FieldLogger
}

// NewRecorder creates a recorder rooted at root
func NewRecorder(fs afero.Fs, root string, now func() time.Time, log logrus.FieldLogger) *Recorder {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Recorder{fs: fs, root: root, now: now, log: log}
}

// Root returns the evidence root directory
func (r *Recorder) Root() string { return r.root }

var _ workflow.Recorder = (*Recorder)(nil)

// Capture renders the page through cam and stores it under today's folder.
// The returned path is meant to be appended to the run's evidence list.
func (r *Recorder) Capture(ctx context.Context, cam workflow.Camera, label string) (string, error) {
	png, err := cam.Screenshot(ctx)
	if err != nil {
		return "", fmt.Errorf("screenshot %s: %w", label, err)
	}

	now := r.now()
	dir := filepath.Join(r.root, schedule.FormatDate(now))
	if err := r.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create evidence directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.png", label, now.Format(timestampLayout)))
	if err := afero.WriteFile(r.fs, path, png, 0o644); err != nil {
		return "", fmt.Errorf("failed to write screenshot %s: %w", path, err)
	}

	r.log.WithFields(logrus.Fields{"step": label, "path": path}).Info("screenshot saved")
	return path, nil
}

// Prune deletes every day-folder whose date is before now minus retentionDays.
// Folders whose names are not dates are left alone. retentionDays <= 0 keeps everything.
// It returns the removed folders in ascending order.
func (r *Recorder) Prune(retentionDays int, now time.Time) ([]string, error) {
	if retentionDays <= 0 {
		return nil, nil
	}

	entries, err := afero.ReadDir(r.fs, r.root)
	if err != nil {
		exists, existsErr := afero.DirExists(r.fs, r.root)
		if existsErr == nil && !exists {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", r.root, err)
	}

	y, m, d := now.Date()
	cutoff := time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, -retentionDays)

	var removed []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		day, err := schedule.ParseDate(e.Name(), now.Location())
		if err != nil {
			continue
		}
		if !day.Before(cutoff) {
			continue
		}

		dir := filepath.Join(r.root, e.Name())
		if err := r.removeDay(dir); err != nil {
			return removed, err
		}
		removed = append(removed, dir)
	}

	sort.Strings(removed)
	if len(removed) > 0 {
		r.log.WithFields(logrus.Fields{
			"removed":        len(removed),
			"retention_days": retentionDays,
		}).Info("pruned old screenshots")
	}
	return removed, nil
}

// removeDay deletes the files of a day-folder and then the folder itself
func (r *Recorder) removeDay(dir string) error {
	files, err := afero.ReadDir(r.fs, dir)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", dir, err)
	}
	for _, f := range files {
		p := filepath.Join(dir, f.Name())
		if f.IsDir() {
			if err := r.fs.RemoveAll(p); err != nil {
				return fmt.Errorf("failed to remove %s: %w", p, err)
			}
			continue
		}
		if err := r.fs.Remove(p); err != nil {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	if err := r.fs.Remove(dir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", dir, err)
	}
	return nil
}
