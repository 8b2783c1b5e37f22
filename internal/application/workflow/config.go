package workflow

import (
	"fmt"
	"time"
)

// Options configures one portal flow run
type Options struct {
	PortalURL       string
	SSOSelector     string
	AccountSelector string
	MoodSelector    string
	ClockInSelector string

	NavigationTimeout time.Duration
	SettleDelay       time.Duration // after the portal loaded
	StepSettle        time.Duration // after each successful click
	ElementTimeout    time.Duration // SSO and account controls
	OptionalTimeout   time.Duration // interstitial
	ClockInTimeout    time.Duration // per clock-in attempt
	ClockInAttempts   int
}

// Validate checks that every selector and bound is set
func (o Options) Validate() error {
	required := map[string]string{
		"portal url":        o.PortalURL,
		"sso selector":      o.SSOSelector,
		"account selector":  o.AccountSelector,
		"mood selector":     o.MoodSelector,
		"clock-in selector": o.ClockInSelector,
	}
	for name, v := range required {
		if v == "" {
			return fmt.Errorf("%s is required", name)
		}
	}
	if o.NavigationTimeout <= 0 || o.ElementTimeout <= 0 || o.OptionalTimeout <= 0 || o.ClockInTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if o.ClockInAttempts < 1 {
		return fmt.Errorf("clock-in attempts must be at least 1, got %d", o.ClockInAttempts)
	}
	return nil
}
