package calendar

import (
	"fmt"
	"time"
)

// Range is an inclusive [Start, End] window.
type Range struct {
	Start time.Time
	End   time.Time
}

// WeekRange returns Monday 00:00 to Sunday 23:59:59.999999999 of the given
// ISO-8601 week of year, in loc.
func WeekRange(year, week int, loc *time.Location) (Range, error) {
	if loc == nil {
		loc = time.UTC
	}
	if week < 1 || week > WeeksInYear(year) {
		return Range{}, fmt.Errorf("week %d out of range for %d", week, year)
	}

	// January 4th is always in ISO week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, loc)
	offset := (int(jan4.Weekday()) + 6) % 7
	monday := jan4.AddDate(0, 0, -offset+(week-1)*7)

	return Range{
		Start: monday,
		End:   monday.AddDate(0, 0, 7).Add(-time.Nanosecond),
	}, nil
}

// WeeksInYear returns 52 or 53.
func WeeksInYear(year int) int {
	_, w := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return w
}

// CurrentWeek returns the ISO year and week of now in loc.
func CurrentWeek(now time.Time, loc *time.Location) (int, int) {
	if loc != nil {
		now = now.In(loc)
	}
	return now.ISOWeek()
}
