package attendance

import "time"

// DateLayout is the civil date format used in dedup keys and stats.
const DateLayout = "2006-01-02"

// DayBounds returns the half-open interval [start, end) of the civil day
// containing now in loc. The end is the next local midnight, so days that
// gain or lose an hour to DST keep their true length.
func DayBounds(now time.Time, loc *time.Location) (start, end time.Time) {
	y, m, d := now.In(loc).Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, loc)
	end = time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	return start, end
}

// CivilDate formats the local date of t in loc.
func CivilDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}
