package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Jairedddy/ClockIn-Automation/internal/pkg/retry"
)

// State is a position in the portal flow
type State string

const (
	StateStart           State = "start"
	StatePortalLoaded    State = "portal_loaded"
	StateSSOClicked      State = "sso_clicked"
	StateAccountSelected State = "account_selected"
	StateMoodDismissed   State = "mood_dismissed"
	StateNoMoodPopup     State = "no_mood_popup"
	StateClockedIn       State = "clocked_in"
	StateFailed          State = "failed"
)

var (
	// ErrElementAbsent is the cause of a StepError whose bounded wait expired
	ErrElementAbsent = errors.New("element did not appear before the deadline")
	// ErrClockInNotClickable marks a clock-in that failed on every attempt
	ErrClockInNotClickable = errors.New("clock-in control not clickable after retries")
)

// StepError reports the step that could not be completed
type StepError struct {
	Step State
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Recorder stores a screenshot of the page and returns its path
type Recorder interface {
	Capture(ctx context.Context, cam Camera, label string) (string, error)
}

// Result is what a flow run produced. Evidence is filled on failure too.
type Result struct {
	State    State
	Evidence []string
	Attempts int // clock-in attempts made
}

// PortalFlow drives login, account selection, the optional interstitial and
// the clock-in click. Only the clock-in click is retried.
type PortalFlow struct {
	page  Page
	rec   Recorder
	opts  Options
	log   logrus.FieldLogger
	sleep func(ctx context.Context, d time.Duration) error
}

// FlowOption customizes a PortalFlow
type FlowOption func(*PortalFlow)

// WithSleep replaces the delay function, mostly for tests
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) FlowOption {
	return func(f *PortalFlow) { f.sleep = sleep }
}

// NewPortalFlow creates a flow over page
func NewPortalFlow(page Page, rec Recorder, opts Options, log logrus.FieldLogger, fopts ...FlowOption) *PortalFlow {
	if log == nil {
		log = logrus.StandardLogger()
	}
	f := &PortalFlow{page: page, rec: rec, opts: opts, log: log, sleep: retry.Sleep}
	for _, o := range fopts {
		o(f)
	}
	return f
}

// Run executes the flow once. On error the result carries every screenshot
// taken before the failure.
func (f *PortalFlow) Run(ctx context.Context) (Result, error) {
	res := Result{State: StateStart}
	if err := f.opts.Validate(); err != nil {
		return res, fmt.Errorf("invalid flow options: %w", err)
	}

	if err := f.loadPortal(ctx, &res); err != nil {
		return f.fail(&res, StatePortalLoaded, err)
	}
	if err := f.clickRequired(ctx, &res, f.opts.SSOSelector, "sso", StateSSOClicked); err != nil {
		return f.fail(&res, StateSSOClicked, err)
	}
	if err := f.clickRequired(ctx, &res, f.opts.AccountSelector, "account", StateAccountSelected); err != nil {
		return f.fail(&res, StateAccountSelected, err)
	}
	if err := f.dismissInterstitial(ctx, &res); err != nil {
		return f.fail(&res, StateMoodDismissed, err)
	}
	if err := f.clockIn(ctx, &res); err != nil {
		res.State = StateFailed
		return res, err
	}
	return res, nil
}

func (f *PortalFlow) loadPortal(ctx context.Context, res *Result) error {
	f.log.WithField("url", f.opts.PortalURL).Info("opening portal")

	nctx, cancel := context.WithTimeout(ctx, f.opts.NavigationTimeout)
	err := f.page.Navigate(nctx, f.opts.PortalURL)
	cancel()
	if err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	if err := f.sleep(ctx, f.opts.SettleDelay); err != nil {
		return err
	}
	f.capture(ctx, res, "portal")
	res.State = StatePortalLoaded
	return nil
}

// clickRequired clicks a control that must exist; absence is fatal
func (f *PortalFlow) clickRequired(ctx context.Context, res *Result, selector, label string, next State) error {
	presence, err := f.click(ctx, selector, f.opts.ElementTimeout)
	switch presence {
	case Present:
	case Absent:
		return ErrElementAbsent
	default:
		return err
	}

	if err := f.sleep(ctx, f.opts.StepSettle); err != nil {
		return err
	}
	f.capture(ctx, res, label)
	res.State = next
	f.log.WithField("step", next).Info("step completed")
	return nil
}

// dismissInterstitial clicks the optional popup. Its absence is a normal outcome.
func (f *PortalFlow) dismissInterstitial(ctx context.Context, res *Result) error {
	presence, err := f.click(ctx, f.opts.MoodSelector, f.opts.OptionalTimeout)
	switch presence {
	case Present:
		if err := f.sleep(ctx, f.opts.StepSettle); err != nil {
			return err
		}
		f.capture(ctx, res, "mood_dismissed")
		res.State = StateMoodDismissed
	case Absent:
		f.log.Info("no interstitial popup")
		f.capture(ctx, res, "no_mood_popup")
		res.State = StateNoMoodPopup
	default:
		return err
	}
	return nil
}

func (f *PortalFlow) clockIn(ctx context.Context, res *Result) error {
	policy := retry.Policy{
		MaxAttempts:    f.opts.ClockInAttempts,
		AttemptTimeout: f.opts.ClockInTimeout,
		Retryable:      func(err error) bool { return errors.Is(err, ErrElementAbsent) },
	}

	err := retry.Do(ctx, policy, func(actx context.Context, attempt int) error {
		res.Attempts = attempt
		log := f.log.WithField("attempt", attempt)

		presence, err := f.page.Click(actx, f.opts.ClockInSelector)
		if presence == Present {
			if err := f.sleep(ctx, f.opts.StepSettle); err != nil {
				return err
			}
		}
		// actx may already be expired; evidence is taken under the run context
		f.capture(ctx, res, fmt.Sprintf("clockin_attempt%d", attempt))

		switch presence {
		case Present:
			return nil
		case Absent:
			log.Warn("clock-in control not clickable yet")
			return ErrElementAbsent
		default:
			if err == nil {
				err = errors.New("click failed")
			}
			return err
		}
	})

	switch {
	case err == nil:
		res.State = StateClockedIn
		f.log.WithField("attempts", res.Attempts).Info("clocked in")
		return nil
	case retry.IsExhausted(err):
		return fmt.Errorf("%w: %w", ErrClockInNotClickable, err)
	default:
		return &StepError{Step: StateClockedIn, Err: err}
	}
}

// click waits at most timeout for selector. An expired run context is
// reported as an error, not as an absent element.
func (f *PortalFlow) click(ctx context.Context, selector string, timeout time.Duration) (Presence, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	presence, err := f.page.Click(cctx, selector)
	if presence == Absent && ctx.Err() != nil {
		return PresenceError, ctx.Err()
	}
	if presence == PresenceError && err == nil {
		err = errors.New("click failed")
	}
	return presence, err
}

// capture records evidence; a failed screenshot never aborts the flow
func (f *PortalFlow) capture(ctx context.Context, res *Result, label string) {
	path, err := f.rec.Capture(ctx, f.page, label)
	if err != nil {
		f.log.WithError(err).WithField("step", label).Warn("screenshot failed")
		return
	}
	res.Evidence = append(res.Evidence, path)
}

func (f *PortalFlow) fail(res *Result, step State, err error) (Result, error) {
	res.State = StateFailed
	return *res, &StepError{Step: step, Err: err}
}
