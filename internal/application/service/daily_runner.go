package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/Jairedddy/ClockIn-Automation/internal/application/port/output"
	"github.com/Jairedddy/ClockIn-Automation/internal/application/workflow"
	"github.com/Jairedddy/ClockIn-Automation/internal/domain/model/outcome"
	"github.com/Jairedddy/ClockIn-Automation/internal/domain/model/schedule"
	"github.com/Jairedddy/ClockIn-Automation/internal/pkg/retry"
)

// DefaultNotifyTimeout bounds outcome delivery after the run itself ended
const DefaultNotifyTimeout = 2 * time.Minute

// DailyRunnerConfig wires the collaborators of one daily run
type DailyRunnerConfig struct {
	Guard    output.RunGuard
	Store    output.ConfigRepository
	Pruner   output.EvidencePruner // optional
	Recorder workflow.Recorder
	Launch   output.BrowserLauncher
	Profile  output.ProfileGuard // optional
	Notifier output.Notifier     // optional

	Flow            workflow.Options
	BrowserShutdown time.Duration
	NotifyTimeout   time.Duration
	Location        *time.Location

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
	// Jitter returns a uniformly distributed duration in [0, limit]
	Jitter func(limit time.Duration) time.Duration
	Log    logrus.FieldLogger
}

// Report describes what a call to Run did
type Report struct {
	Acquired bool // false when another run held the guard; nothing else happened
	Outcome  outcome.Outcome
}

// DailyRunner performs the once-per-day clock-in: gate, delay, browser flow,
// state update and notification, all under the run guard.
type DailyRunner struct {
	cfg DailyRunnerConfig
}

// NewDailyRunner validates cfg and fills defaults
func NewDailyRunner(cfg DailyRunnerConfig) (*DailyRunner, error) {
	switch {
	case cfg.Guard == nil:
		return nil, errors.New("run guard is required")
	case cfg.Store == nil:
		return nil, errors.New("config repository is required")
	case cfg.Recorder == nil:
		return nil, errors.New("screenshot recorder is required")
	case cfg.Launch == nil:
		return nil, errors.New("browser launcher is required")
	}
	if err := cfg.Flow.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flow options: %w", err)
	}

	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Sleep == nil {
		cfg.Sleep = retry.Sleep
	}
	if cfg.Jitter == nil {
		cfg.Jitter = cryptoJitter
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = DefaultNotifyTimeout
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	return &DailyRunner{cfg: cfg}, nil
}

// Run executes one daily run. A run that was not allowed by the schedule,
// or that found another run in progress, returns a nil error.
func (r *DailyRunner) Run(ctx context.Context) (Report, error) {
	now := r.cfg.Now().In(r.cfg.Location)
	entropy := ulid.Monotonic(rand.Reader, 0)
	runID := ulid.MustNew(ulid.Timestamp(now), entropy).String()
	log := r.cfg.Log.WithField("run_id", runID)

	acquired, err := r.cfg.Guard.Acquire()
	if err != nil {
		return Report{}, fmt.Errorf("failed to acquire run guard: %w", err)
	}
	if !acquired {
		log.Info("another run is in progress, exiting")
		return Report{}, nil
	}
	defer func() {
		if err := r.cfg.Guard.Release(); err != nil {
			log.WithError(err).Error("failed to release run guard")
		}
	}()

	rep := Report{Acquired: true}

	cfg, err := r.cfg.Store.Load()
	if err != nil {
		log.WithError(err).Error("configuration unavailable")
		return rep, err
	}
	if schedule.Rollover(&cfg, now) {
		log.WithField("date", cfg.LastRunDate).Info("new day, clock-in state reset")
		if err := r.cfg.Store.Save(cfg); err != nil {
			return rep, fmt.Errorf("failed to persist day rollover: %w", err)
		}
	}

	r.prune(log, cfg.RetentionDays, now)

	decision := schedule.Evaluate(cfg, now)
	if !decision.Allowed {
		log.WithField("reason", decision.Reason).Info("clock-in skipped")
		rep.Outcome = outcome.Skipped(runID, now, decision.Reason)
		r.notify(ctx, log, rep.Outcome)
		return rep, nil
	}

	if err := r.randomDelay(ctx, log, cfg); err != nil {
		return rep, err
	}

	res, err := r.runFlow(ctx, log)
	at := r.cfg.Now().In(r.cfg.Location)
	if err != nil {
		log.WithError(err).WithField("state", res.State).Error("clock-in failed")
		rep.Outcome = outcome.Failed(runID, at, err, res.Evidence)
		r.notify(ctx, log, rep.Outcome)
		return rep, err
	}

	schedule.MarkClockedIn(&cfg, now)
	saveErr := r.cfg.Store.Save(cfg)
	if saveErr != nil {
		log.WithError(saveErr).Error("clocked in but failed to persist state")
	}

	rep.Outcome = outcome.Succeeded(runID, at, res.Evidence)
	r.notify(ctx, log, rep.Outcome)
	if saveErr != nil {
		return rep, fmt.Errorf("failed to persist clock-in state: %w", saveErr)
	}
	return rep, nil
}

// runFlow owns the browser for the duration of the portal flow
func (r *DailyRunner) runFlow(ctx context.Context, log logrus.FieldLogger) (workflow.Result, error) {
	if r.cfg.Profile != nil {
		n, err := r.cfg.Profile.EnsureExclusive(ctx)
		if err != nil {
			return workflow.Result{State: workflow.StateFailed}, fmt.Errorf("browser profile is busy: %w", err)
		}
		if n > 0 {
			log.WithField("stopped", n).Info("stopped browser instances holding the profile")
		}
	}

	browser, err := r.cfg.Launch(ctx)
	if err != nil {
		return workflow.Result{State: workflow.StateFailed}, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer func() {
		if err := browser.Close(r.cfg.BrowserShutdown); err != nil {
			log.WithError(err).Warn("browser did not close cleanly")
		}
	}()

	flow := workflow.NewPortalFlow(browser, r.cfg.Recorder, r.cfg.Flow, log, workflow.WithSleep(r.cfg.Sleep))
	return flow.Run(ctx)
}

// randomDelay waits a random duration inside the configured window
func (r *DailyRunner) randomDelay(ctx context.Context, log logrus.FieldLogger, cfg schedule.Configuration) error {
	lo, hi := cfg.RandomWindow()
	delay := lo + r.cfg.Jitter(hi-lo)
	if delay <= 0 {
		return nil
	}
	log.WithField("delay", delay.String()).Info("waiting before clock-in")
	if err := r.cfg.Sleep(ctx, delay); err != nil {
		return fmt.Errorf("interrupted during random delay: %w", err)
	}
	return nil
}

func (r *DailyRunner) prune(log logrus.FieldLogger, retentionDays int, now time.Time) {
	if r.cfg.Pruner == nil {
		return
	}
	if _, err := r.cfg.Pruner.Prune(retentionDays, now); err != nil {
		log.WithError(err).Warn("screenshot cleanup failed")
	}
}

// notify delivers o even when ctx is already done; delivery errors are logged
func (r *DailyRunner) notify(ctx context.Context, log logrus.FieldLogger, o outcome.Outcome) {
	if r.cfg.Notifier == nil {
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.NotifyTimeout)
	defer cancel()
	if err := r.cfg.Notifier.Notify(nctx, o); err != nil {
		log.WithError(err).Warn("notification incomplete")
	}
}

func cryptoJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)+1))
	if err != nil {
		return 0
	}
	return time.Duration(n.Int64())
}
