package app

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/Jairedddy/ClockIn-Automation/internal/application/port/output"
	"github.com/Jairedddy/ClockIn-Automation/internal/domain/model/outcome"
)

// JournalEntry is one line of the run journal
type JournalEntry struct {
	Ts       string   `json:"ts"`
	RunID    string   `json:"run_id"`
	Kind     string   `json:"kind"`
	Reason   string   `json:"reason"`
	Error    string   `json:"error"`
	Evidence []string `json:"evidence"`
}

// NewJournalEntry converts a run outcome into its journal form
func NewJournalEntry(o outcome.Outcome) JournalEntry {
	e := JournalEntry{
		Ts:       o.Date.UTC().Format(time.RFC3339Nano),
		RunID:    o.RunID,
		Kind:     string(o.Kind),
		Reason:   o.Reason,
		Evidence: o.Evidence,
	}
	if o.Err != nil {
		e.Error = o.Err.Error()
	}
	if e.Evidence == nil {
		e.Evidence = []string{}
	}
	return e
}

// JournalWriter appends run outcomes to an NDJSON file, one line per run
type JournalWriter struct {
	fs   afero.Fs
	path string
	log  logrus.FieldLogger
}

// NewJournalWriter creates a journal at path
func NewJournalWriter(fs afero.Fs, path string, log logrus.FieldLogger) *JournalWriter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &JournalWriter{fs: fs, path: path, log: log}
}

var _ output.Notifier = (*JournalWriter)(nil)

// Name implements output.Notifier
func (w *JournalWriter) Name() string { return "journal" }

// Notify implements output.Notifier by appending o to the journal
func (w *JournalWriter) Notify(_ context.Context, o outcome.Outcome) error {
	return w.Append(NewJournalEntry(o))
}

// Append writes entry as a single JSON line
func (w *JournalWriter) Append(entry JournalEntry) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}

	if err := w.fs.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}
	f, err := w.fs.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := bw.Write(append(b, '\n')); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}

	// The line is written either way; a failed sync only weakens durability
	if err := f.Sync(); err != nil {
		w.log.WithError(err).Warn("failed to fsync journal")
	}
	return nil
}

// Last returns the most recent entry. ok is false when the journal is empty or missing.
// Lines that fail to parse are skipped.
func (w *JournalWriter) Last() (entry JournalEntry, ok bool, err error) {
	data, err := afero.ReadFile(w.fs, w.path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return JournalEntry{}, false, nil
		}
		return JournalEntry{}, false, err
	}

	lines := bytes.Split(bytes.TrimRight(data, "\n"), []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		if len(bytes.TrimSpace(lines[i])) == 0 {
			continue
		}
		var e JournalEntry
		if err := json.Unmarshal(lines[i], &e); err != nil {
			w.log.WithError(err).WithField("line", i+1).Warn("skipping malformed journal line")
			continue
		}
		return e, true, nil
	}
	return JournalEntry{}, false, nil
}
