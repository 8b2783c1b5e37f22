// Package outcome describes the result of one daily run as handed to notifiers
package outcome

import (
	"fmt"
	"time"
)

// Kind classifies a run outcome
type Kind string

const (
	KindSkipped   Kind = "skipped"
	KindSucceeded Kind = "succeeded"
	KindFailed    Kind = "failed"
)

// Outcome is a transient value produced at the end of a run.
// It is consumed only by notifiers and never persisted.
type Outcome struct {
	Kind     Kind
	RunID    string
	Date     time.Time
	Reason   string   // set for KindSkipped
	Err      error    // set for KindFailed
	Evidence []string // screenshot paths, partial for KindFailed
}

// Skipped builds an outcome for a run the schedule gate did not allow
func Skipped(runID string, date time.Time, reason string) Outcome {
	return Outcome{Kind: KindSkipped, RunID: runID, Date: date, Reason: reason}
}

// Succeeded builds an outcome for a completed clock-in
func Succeeded(runID string, date time.Time, evidence []string) Outcome {
	return Outcome{Kind: KindSucceeded, RunID: runID, Date: date, Evidence: evidence}
}

// Failed builds an outcome for a run that stopped on err
func Failed(runID string, date time.Time, err error, evidence []string) Outcome {
	return Outcome{Kind: KindFailed, RunID: runID, Date: date, Err: err, Evidence: evidence}
}

// Subject is a one-line summary suitable for an email subject
func (o Outcome) Subject() string {
	day := o.Date.Format("2006-01-02")
	switch o.Kind {
	case KindSucceeded:
		return fmt.Sprintf("Clock-in succeeded (%s)", day)
	case KindFailed:
		return fmt.Sprintf("Clock-in FAILED (%s)", day)
	default:
		return fmt.Sprintf("Clock-in skipped (%s)", day)
	}
}

// Body is the plain text description sent with the subject
func (o Outcome) Body() string {
	at := o.Date.Format("2006-01-02 15:04:05")
	switch o.Kind {
	case KindSucceeded:
		return fmt.Sprintf("Clocked in at %s.\nRun: %s\nScreenshots: %d", at, o.RunID, len(o.Evidence))
	case KindFailed:
		msg := "unknown error"
		if o.Err != nil {
			msg = o.Err.Error()
		}
		return fmt.Sprintf("Clock-in failed at %s.\nRun: %s\nError: %s\nScreenshots captured before the failure: %d",
			at, o.RunID, msg, len(o.Evidence))
	default:
		return fmt.Sprintf("Clock-in skipped on %s: %s.\nRun: %s", at, o.Reason, o.RunID)
	}
}
