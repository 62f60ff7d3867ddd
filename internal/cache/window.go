package cache

import (
	"time"

	"pricevault/pkg/domain"
)

// WeekdayRange computes the inclusive trading-day window for a trailing
// request of the given length. The window end is asOf shifted forward to
// the next weekday when it lands on a weekend; the cutoff is the calendar
// subtraction of days from the window end, shifted the same way. Neither
// bound is ever a Saturday or Sunday.
func WeekdayRange(asOf time.Time, days int) (cutoff, windowEnd time.Time) {
	windowEnd = nextWeekday(domain.Day(asOf))
	cutoff = nextWeekday(windowEnd.AddDate(0, 0, -days))
	return cutoff, windowEnd
}

func nextWeekday(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, 2)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	default:
		return d
	}
}
