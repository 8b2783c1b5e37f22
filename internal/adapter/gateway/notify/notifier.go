// Package notify delivers run outcomes to the operator over email and chat.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Jairedddy/ClockIn-Automation/internal/application/port/output"
	"github.com/Jairedddy/ClockIn-Automation/internal/domain/model/outcome"
)

// Multi fans an outcome out to every configured notifier. A failing
// notifier does not stop the others.
type Multi struct {
	notifiers []output.Notifier
	log       logrus.FieldLogger
}

// NewMulti creates a fan-out over notifiers; nil entries are dropped
func NewMulti(log logrus.FieldLogger, notifiers ...output.Notifier) *Multi {
	if log == nil {
		log = logrus.StandardLogger()
	}
	m := &Multi{log: log}
	for _, n := range notifiers {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

var _ output.Notifier = (*Multi)(nil)

// Name implements output.Notifier
func (m *Multi) Name() string { return "multi" }

// Len returns the number of configured notifiers
func (m *Multi) Len() int { return len(m.notifiers) }

// Notify implements output.Notifier
func (m *Multi) Notify(ctx context.Context, o outcome.Outcome) error {
	var errs []error
	for _, n := range m.notifiers {
		log := m.log.WithFields(logrus.Fields{"notifier": n.Name(), "run_id": o.RunID})
		if err := n.Notify(ctx, o); err != nil {
			log.WithError(err).Error("notification failed")
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
			continue
		}
		log.WithField("kind", o.Kind).Info("notification sent")
	}
	return errors.Join(errs...)
}
