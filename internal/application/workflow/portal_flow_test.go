package workflow

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	selSSO     = "//sso"
	selAccount = "//account"
	selMood    = "//mood"
	selClockIn = "//clockin"
)

type clickResult struct {
	presence Presence
	err      error
}

// scriptedPage answers clicks from a per-selector script. A selector with an
// exhausted or missing script is absent.
type scriptedPage struct {
	navigateErr error
	clicks      map[string][]clickResult
	shotErr     error

	navigated []string
	clicked   []string
}

func (p *scriptedPage) Navigate(ctx context.Context, url string) error {
	p.navigated = append(p.navigated, url)
	return p.navigateErr
}

func (p *scriptedPage) Click(ctx context.Context, selector string) (Presence, error) {
	p.clicked = append(p.clicked, selector)
	script := p.clicks[selector]
	if len(script) == 0 {
		return Absent, nil
	}
	next := script[0]
	p.clicks[selector] = script[1:]
	return next.presence, next.err
}

func (p *scriptedPage) Screenshot(ctx context.Context) ([]byte, error) {
	if p.shotErr != nil {
		return nil, p.shotErr
	}
	return []byte("png"), nil
}

func present() clickResult { return clickResult{presence: Present} }
func absent() clickResult  { return clickResult{presence: Absent} }

func testOptions() Options {
	return Options{
		PortalURL:         "https://portal.example.com",
		SSOSelector:       selSSO,
		AccountSelector:   selAccount,
		MoodSelector:      selMood,
		ClockInSelector:   selClockIn,
		NavigationTimeout: time.Second,
		SettleDelay:       5 * time.Second,
		StepSettle:        2 * time.Second,
		ElementTimeout:    time.Second,
		OptionalTimeout:   time.Second,
		ClockInTimeout:    time.Second,
		ClockInAttempts:   3,
	}
}

// memRecorder stores captures as <root>/<date>/<label>_<timestamp>.png on fs
type memRecorder struct {
	fs   afero.Fs
	root string
	now  time.Time
}

func (r *memRecorder) Capture(ctx context.Context, cam Camera, label string) (string, error) {
	png, err := cam.Screenshot(ctx)
	if err != nil {
		return "", err
	}
	path := filepath.Join(r.root, r.now.Format("2006-01-02"), label+"_"+r.now.Format("20060102_150405")+".png")
	if err := afero.WriteFile(r.fs, path, png, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func newTestFlow(t *testing.T, page *scriptedPage, fs afero.Fs) (*PortalFlow, *[]time.Duration) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	rec := &memRecorder{fs: fs, root: "shots", now: now}

	var slept []time.Duration
	sleep := func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return NewPortalFlow(page, rec, testOptions(), logger, WithSleep(sleep)), &slept
}

func labels(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		base := filepath.Base(p)
		out = append(out, base[:strings.LastIndex(base[:strings.LastIndex(base, "_")], "_")])
	}
	return out
}

func TestPortalFlow_HappyPathWithInterstitial(t *testing.T) {
	page := &scriptedPage{clicks: map[string][]clickResult{
		selSSO:     {present()},
		selAccount: {present()},
		selMood:    {present()},
		selClockIn: {present()},
	}}
	fs := afero.NewMemMapFs()
	flow, slept := newTestFlow(t, page, fs)

	res, err := flow.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateClockedIn, res.State)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, []string{"portal", "sso", "account", "mood_dismissed", "clockin_attempt1"}, labels(res.Evidence))
	assert.Equal(t, []string{"https://portal.example.com"}, page.navigated)
	assert.Equal(t, []string{selSSO, selAccount, selMood, selClockIn}, page.clicked)
	assert.Equal(t, 5*time.Second, (*slept)[0])

	for _, p := range res.Evidence {
		exists, err := afero.Exists(fs, p)
		require.NoError(t, err)
		assert.True(t, exists, p)
	}
}

func TestPortalFlow_NoInterstitial(t *testing.T) {
	page := &scriptedPage{clicks: map[string][]clickResult{
		selSSO:     {present()},
		selAccount: {present()},
		selClockIn: {present()},
	}}
	flow, _ := newTestFlow(t, page, afero.NewMemMapFs())

	res, err := flow.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateClockedIn, res.State)
	assert.Equal(t, []string{"portal", "sso", "account", "no_mood_popup", "clockin_attempt1"}, labels(res.Evidence))
}

func TestPortalFlow_ClockInSucceedsOnRetry(t *testing.T) {
	page := &scriptedPage{clicks: map[string][]clickResult{
		selSSO:     {present()},
		selAccount: {present()},
		selClockIn: {absent(), present()},
	}}
	flow, _ := newTestFlow(t, page, afero.NewMemMapFs())

	res, err := flow.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateClockedIn, res.State)
	assert.Equal(t, 2, res.Attempts)
	assert.Contains(t, labels(res.Evidence), "clockin_attempt1")
	assert.Contains(t, labels(res.Evidence), "clockin_attempt2")
}

func TestPortalFlow_ClockInExhausted(t *testing.T) {
	page := &scriptedPage{clicks: map[string][]clickResult{
		selSSO:     {present()},
		selAccount: {present()},
	}}
	flow, _ := newTestFlow(t, page, afero.NewMemMapFs())

	res, err := flow.Run(context.Background())
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrClockInNotClickable)
	assert.ErrorIs(t, err, ErrElementAbsent)
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, []string{
		"portal", "sso", "account", "no_mood_popup",
		"clockin_attempt1", "clockin_attempt2", "clockin_attempt3",
	}, labels(res.Evidence))
}

func TestPortalFlow_RequiredStepAbsent(t *testing.T) {
	tests := []struct {
		name     string
		clicks   map[string][]clickResult
		step     State
		evidence []string
	}{
		{
			name:     "sso missing",
			clicks:   map[string][]clickResult{},
			step:     StateSSOClicked,
			evidence: []string{"portal"},
		},
		{
			name:     "account missing",
			clicks:   map[string][]clickResult{selSSO: {present()}},
			step:     StateAccountSelected,
			evidence: []string{"portal", "sso"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := &scriptedPage{clicks: tt.clicks}
			flow, _ := newTestFlow(t, page, afero.NewMemMapFs())

			res, err := flow.Run(context.Background())

			var stepErr *StepError
			require.ErrorAs(t, err, &stepErr)
			assert.Equal(t, tt.step, stepErr.Step)
			assert.ErrorIs(t, err, ErrElementAbsent)
			assert.NotContains(t, page.clicked, selClockIn)
			assert.Equal(t, StateFailed, res.State)
			assert.Equal(t, tt.evidence, labels(res.Evidence))
		})
	}
}

func TestPortalFlow_NavigationFailure(t *testing.T) {
	page := &scriptedPage{navigateErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}
	flow, _ := newTestFlow(t, page, afero.NewMemMapFs())

	res, err := flow.Run(context.Background())

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StatePortalLoaded, stepErr.Step)
	assert.Empty(t, res.Evidence)
	assert.Empty(t, page.clicked)
}

func TestPortalFlow_ClickErrorIsNotRetried(t *testing.T) {
	crashed := errors.New("target crashed")
	page := &scriptedPage{clicks: map[string][]clickResult{
		selSSO:     {present()},
		selAccount: {present()},
		selClockIn: {{presence: PresenceError, err: crashed}, present()},
	}}
	flow, _ := newTestFlow(t, page, afero.NewMemMapFs())

	res, err := flow.Run(context.Background())

	assert.ErrorIs(t, err, crashed)
	assert.NotErrorIs(t, err, ErrClockInNotClickable)
	assert.Equal(t, 1, res.Attempts)
}

func TestPortalFlow_ScreenshotFailureIsNotFatal(t *testing.T) {
	page := &scriptedPage{
		clicks: map[string][]clickResult{
			selSSO:     {present()},
			selAccount: {present()},
			selClockIn: {present()},
		},
		shotErr: errors.New("capture failed"),
	}
	flow, _ := newTestFlow(t, page, afero.NewMemMapFs())

	res, err := flow.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateClockedIn, res.State)
	assert.Empty(t, res.Evidence)
}

func TestPortalFlow_InvalidOptions(t *testing.T) {
	logger, _ := test.NewNullLogger()
	opts := testOptions()
	opts.ClockInSelector = ""
	flow := NewPortalFlow(&scriptedPage{}, nil, opts, logger)

	_, err := flow.Run(context.Background())
	assert.Error(t, err)
}
