package warning

import "time"

// FilterByDate keeps warnings whose [onset, expiry] day interval contains
// the given date. When the date is today relative to now, warnings that have
// already expired are excluded even if today falls inside their nominal
// interval. Both arguments are naive Madrid civil time, like the records.
func FilterByDate(warnings []Warning, date, now time.Time) []Warning {
	day := truncateToDay(date)
	today := truncateToDay(now)

	out := make([]Warning, 0, len(warnings))
	for _, w := range warnings {
		if truncateToDay(w.Onset).After(day) || truncateToDay(w.Expires).Before(day) {
			continue
		}
		if day.Equal(today) && w.Expires.Before(now) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// LocalNow converts an instant to the naive Madrid civil time used by
// warning records.
func LocalNow(now time.Time) time.Time {
	local := now.In(madrid)
	return time.Date(local.Year(), local.Month(), local.Day(),
		local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), time.UTC)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
