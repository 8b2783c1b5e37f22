package schedule

import "time"

// Gate reasons reported to the operator
const (
	ReasonDisabled       = "automation disabled"
	ReasonNotWorkday     = "not a workday"
	ReasonSkipped        = "manually skipped"
	ReasonHoliday        = "holiday"
	ReasonAlreadyClocked = "already clocked in"
	ReasonAllowed        = "allowed"
)

// Decision is the outcome of evaluating the schedule for one day
type Decision struct {
	Allowed bool
	Reason  string
}

// Evaluate decides whether today's run proceeds. Rules are checked in a fixed
// priority order and the first match wins, so a disabled configuration masks
// every other reason. cfg must already be rolled over to today.
func Evaluate(cfg Configuration, today time.Time) Decision {
	date := FormatDate(today)

	switch {
	case !cfg.Enabled:
		return Decision{Reason: ReasonDisabled}
	case !containsInt(cfg.Workdays, ISOWeekday(today)):
		return Decision{Reason: ReasonNotWorkday}
	case contains(cfg.SkipDates, date):
		return Decision{Reason: ReasonSkipped}
	case contains(cfg.Holidays, date):
		return Decision{Reason: ReasonHoliday}
	case cfg.AlreadyClockedToday:
		return Decision{Reason: ReasonAlreadyClocked}
	}
	return Decision{Allowed: true, Reason: ReasonAllowed}
}

func containsInt(list []int, v int) bool {
	for _, n := range list {
		if n == v {
			return true
		}
	}
	return false
}
