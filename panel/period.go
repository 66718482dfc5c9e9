package panel

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rickar/cal/v2"
)

var ErrNoTimestamps = errors.New("no timestamps")

// BusinessPeriods maps observation timestamps to dense integer periods by
// counting business days from the earliest timestamp on the given calendar.
// Weekend and holiday observations collapse onto the preceding business
// period, keeping the period axis dense for panels keyed by trading or
// reporting days. A nil calendar falls back to a plain Monday-Friday week.
func BusinessPeriods(ts []time.Time, c *cal.BusinessCalendar) ([]int, error) {
	if len(ts) == 0 {
		return nil, ErrNoTimestamps
	}
	if c == nil {
		c = cal.NewBusinessCalendar()
	}

	start := ts[0]
	for _, t := range ts[1:] {
		if t.Before(start) {
			start = t
		}
	}

	periods := make([]int, len(ts))
	for i, t := range ts {
		periods[i] = c.WorkdaysInRange(start, t)
	}
	return periods, nil
}

// YearPeriods maps observation timestamps to their calendar years, for
// panels observed annually.
func YearPeriods(ts []time.Time) ([]int, error) {
	if len(ts) == 0 {
		return nil, ErrNoTimestamps
	}
	periods := make([]int, len(ts))
	for i, t := range ts {
		periods[i] = t.Year()
	}
	return periods, nil
}
