package schedule

import (
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date format used for every persisted date
const DateLayout = "2006-01-02"

// Configuration is the persisted daily state and schedule rules.
// AlreadyClockedToday is only meaningful while LastRunDate equals today;
// Rollover resets it on the first run of a new calendar day.
type Configuration struct {
	Enabled             bool     `json:"enabled"`
	Workdays            []int    `json:"workdays" validate:"dive,min=1,max=7"`
	SkipDates           []string `json:"skip_dates" validate:"dive,datetime=2006-01-02"`
	Holidays            []string `json:"holidays" validate:"dive,datetime=2006-01-02"`
	AlreadyClockedToday bool     `json:"already_clocked_today"`
	LastRunDate         string   `json:"last_run_date" validate:"omitempty,datetime=2006-01-02"`
	RandomWindowMinutes [2]int   `json:"random_time_window_minutes" validate:"dive,min=0"`
	RetentionDays       int      `json:"screenshot_retention_days" validate:"min=0"`
}

// DefaultConfiguration returns the configuration written for a fresh install:
// enabled on Monday..Friday, no random delay, one week of screenshots.
func DefaultConfiguration() Configuration {
	return Configuration{
		Enabled:       true,
		Workdays:      []int{1, 2, 3, 4, 5},
		SkipDates:     []string{},
		Holidays:      []string{},
		RetentionDays: 7,
	}
}

// FormatDate renders t as an ISO calendar date in t's location
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses an ISO calendar date in loc
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// ISOWeekday maps time.Weekday to 1=Monday..7=Sunday
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// Rollover resets the per-day state when today differs from LastRunDate.
// It reports whether cfg was modified; a second call on the same day is a no-op.
func Rollover(cfg *Configuration, today time.Time) bool {
	date := FormatDate(today)
	if cfg.LastRunDate == date {
		return false
	}
	cfg.AlreadyClockedToday = false
	cfg.LastRunDate = date
	return true
}

// MarkClockedIn records a completed clock-in for today
func MarkClockedIn(cfg *Configuration, today time.Time) {
	cfg.AlreadyClockedToday = true
	cfg.LastRunDate = FormatDate(today)
}

// RandomWindow returns the configured delay bounds as durations.
// A window whose upper bound does not exceed the lower bound collapses to the lower bound.
func (c Configuration) RandomWindow() (time.Duration, time.Duration) {
	lo := time.Duration(c.RandomWindowMinutes[0]) * time.Minute
	hi := time.Duration(c.RandomWindowMinutes[1]) * time.Minute
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// AddSkipDate adds date to SkipDates, reporting false when it was already present
func (c *Configuration) AddSkipDate(date string) bool {
	if contains(c.SkipDates, date) {
		return false
	}
	c.SkipDates = append(c.SkipDates, date)
	return true
}

// RemoveSkipDate removes date from SkipDates, reporting whether it was present
func (c *Configuration) RemoveSkipDate(date string) bool {
	for i, d := range c.SkipDates {
		if d == date {
			c.SkipDates = append(c.SkipDates[:i], c.SkipDates[i+1:]...)
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
