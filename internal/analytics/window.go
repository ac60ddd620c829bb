package analytics

import "time"

// Window is an inclusive range of local wall-clock times, as offsets from midnight.
type Window struct {
	Start time.Duration
	End   time.Duration
}

// DefaultOnTime is 07:45:00 to 08:15:00.
var DefaultOnTime = Window{
	Start: 7*time.Hour + 45*time.Minute,
	End:   8*time.Hour + 15*time.Minute,
}

// Contains reports whether the wall-clock time of t, including its fraction
// of a second, falls inside w. t should already be in the location the window
// is defined for.
func (w Window) Contains(t time.Time) bool {
	h, m, s := t.Clock()
	tod := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second + time.Duration(t.Nanosecond())
	return tod >= w.Start && tod <= w.End
}
