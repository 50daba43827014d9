package domain

import "time"

// UsageSnapshot is the most recent view of provider quota, refreshed from
// response metadata on every fetch. Nil fields mean the provider did not
// report them.
type UsageSnapshot struct {
	Remaining  *int
	ResetAt    *time.Time
	ObservedAt time.Time
}

// Exhausted reports whether the snapshot indicates no remaining quota as of
// now.
func (u UsageSnapshot) Exhausted(now time.Time) bool {
	if u.Remaining == nil || *u.Remaining > 0 {
		return false
	}
	if u.ResetAt != nil && !now.Before(*u.ResetAt) {
		return false
	}
	return true
}
