package domain

import "time"

// Event is a scheduled contest. CommenceTime drives the scan window filter and
// the burst scheduling policy.
type Event struct {
	ID           string
	SportKey     string
	SportTitle   string
	HomeTeam     string
	AwayTeam     string
	CommenceTime time.Time
}

// Name returns a human readable title, "Away @ Home" when both teams are
// known.
func (e Event) Name() string {
	if e.HomeTeam != "" && e.AwayTeam != "" {
		return e.AwayTeam + " @ " + e.HomeTeam
	}
	if e.SportTitle != "" {
		return e.SportTitle
	}
	return e.ID
}

// StartsWithin reports whether the event commences within d of now. Events
// already started do not count.
func (e Event) StartsWithin(now time.Time, d time.Duration) bool {
	until := e.CommenceTime.Sub(now)
	return until > 0 && until <= d
}

// TimeWindow bounds the commence times a scan considers.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window (inclusive).
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}
