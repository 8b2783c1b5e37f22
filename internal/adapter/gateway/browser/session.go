// Package browser drives a locally installed Chromium-family browser through
// the DevTools protocol, reusing the operator's persistent profile.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"github.com/Jairedddy/ClockIn-Automation/internal/application/workflow"
)

// LaunchOptions describes the browser binary and the profile it opens
type LaunchOptions struct {
	ExecPath    string
	ProfileDir  string // user data directory
	ProfileName string // profile inside ProfileDir, e.g. "Default"
	Headless    bool
}

// Session is one browser process with a single tab
type Session struct {
	ctx         context.Context // tab context; every action derives from it
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	log         logrus.FieldLogger
}

var _ workflow.Page = (*Session)(nil)

// Launch starts the browser and opens a tab. ctx bounds startup only; the
// browser lives until Close.
func Launch(ctx context.Context, opts LaunchOptions, log logrus.FieldLogger) (*Session, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.ExecPath == "" {
		return nil, errors.New("browser executable path is required")
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(opts.ExecPath),
		chromedp.UserDataDir(opts.ProfileDir),
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if opts.ProfileName != "" {
		allocOpts = append(allocOpts, chromedp.Flag("profile-directory", opts.ProfileName))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	// chromedp reports unknown protocol events as errors; they are noise here
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithErrorf(log.Debugf))

	// The first Run allocates the browser and must not carry a deadline
	stop := context.AfterFunc(ctx, cancelTab)
	err := chromedp.Run(tabCtx)
	stop()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser %s: %w", opts.ExecPath, err)
	}

	log.WithFields(logrus.Fields{
		"exec":     opts.ExecPath,
		"profile":  opts.ProfileName,
		"headless": opts.Headless,
	}).Info("browser started")

	return &Session{ctx: tabCtx, cancelTab: cancelTab, cancelAlloc: cancelAlloc, log: log}, nil
}

// Navigate loads url and waits for the load event
func (s *Session) Navigate(ctx context.Context, url string) error {
	actx, cancel := s.bind(ctx)
	defer cancel()
	if err := chromedp.Run(actx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// Click waits for the XPath selector to become visible and clicks it.
// Absent is reported when ctx's deadline expires first.
func (s *Session) Click(ctx context.Context, selector string) (workflow.Presence, error) {
	actx, cancel := s.bind(ctx)
	defer cancel()

	err := chromedp.Run(actx,
		chromedp.WaitVisible(selector, chromedp.BySearch),
		chromedp.Click(selector, chromedp.BySearch, chromedp.NodeVisible),
	)
	switch {
	case err == nil:
		return workflow.Present, nil
	case errors.Is(actx.Err(), context.DeadlineExceeded):
		s.log.WithField("selector", selector).Debug("element not visible before deadline")
		return workflow.Absent, nil
	default:
		return workflow.PresenceError, fmt.Errorf("click %s: %w", selector, err)
	}
}

// Screenshot captures the visible viewport as PNG
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	actx, cancel := s.bind(ctx)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(actx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return buf, nil
}

// Close shuts the browser down, waiting at most grace for a clean exit.
// It is safe to call more than once.
func (s *Session) Close(grace time.Duration) error {
	if grace <= 0 {
		grace = 5 * time.Second
	}

	done := make(chan error, 1)
	go func() { done <- chromedp.Cancel(s.ctx) }()

	var err error
	select {
	case err = <-done:
	case <-time.After(grace):
		err = fmt.Errorf("browser did not exit within %s", grace)
	}
	s.cancelTab()
	s.cancelAlloc()

	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		s.log.WithError(err).Warn("browser shutdown was not clean")
		return err
	}
	s.log.Debug("browser closed")
	return nil
}

// bind derives an action context from the tab context that carries the
// caller's deadline and ends when the caller's context ends.
func (s *Session) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	var (
		actx   context.Context
		cancel context.CancelFunc
	)
	if deadline, ok := ctx.Deadline(); ok {
		actx, cancel = context.WithDeadline(s.ctx, deadline)
	} else {
		actx, cancel = context.WithCancel(s.ctx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return actx, func() {
		stop()
		cancel()
	}
}
