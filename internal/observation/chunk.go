package observation

import "time"

// chunkMonths is the longest window the daily-climatology endpoint accepts
// per request. The limit is undocumented; longer windows return no data.
const chunkMonths = 6

// DateRange is one bounded sub-interval of a requested date span, issued as
// an independent API request. Ranges are half-open: [Start, End).
type DateRange struct {
	Start time.Time
	End   time.Time
}

// SplitRange divides [start, end) into consecutive, non-overlapping windows
// of at most six months. Each full window ends six calendar months after it
// begins, with the day-of-month clamped to the target month's length so a
// month-end start never spills past the six-month limit. The union of the
// windows covers the span exactly. A span shorter than six months yields a
// single window.
func SplitRange(start, end time.Time) []DateRange {
	if end.Before(start) {
		return nil
	}

	var chunks []DateRange
	for cur := start; cur.Before(end); {
		next := addMonths(cur, chunkMonths)
		if next.After(end) {
			next = end
		}
		chunks = append(chunks, DateRange{Start: cur, End: next})
		cur = next
	}

	if chunks == nil {
		chunks = []DateRange{{Start: start, End: end}}
	}
	return chunks
}

// addMonths advances t by the given number of months. Unlike time.AddDate,
// a day past the end of the target month clamps to its last day instead of
// normalizing into the following month: Aug 31 plus six months is Feb 28,
// not Mar 3.
func addMonths(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(months), 1,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())

	day := t.Day()
	if last := first.AddDate(0, 1, -1).Day(); day > last {
		day = last
	}
	return first.AddDate(0, 0, day-1)
}
