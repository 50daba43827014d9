package scan

import (
	"time"

	"github.com/LavaaC/ArbiSport/internal/domain"
)

// DefaultInterval applies when a continuous or burst scan omits its own.
const DefaultInterval = 60 * time.Second

// tickPolicy decides whether a scan loop keeps going and how long it rests
// between cycles. Intervals measure end of one cycle to start of the next, so
// cycle duration never compresses the rest period.
type tickPolicy struct {
	spec domain.ScanSpec
}

// another reports whether the loop should schedule a further cycle.
func (p tickPolicy) another(completed int) bool {
	if p.spec.Mode == domain.ScanModeSnapshot {
		return completed < 1
	}
	return true
}

// restAfter returns the pause before the next cycle. Burst scans tighten the
// interval while any in-scope event starts within the burst window.
func (p tickPolicy) restAfter(withinBurst bool) time.Duration {
	interval := p.spec.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	if p.spec.Mode == domain.ScanModeBurst && withinBurst && p.spec.BurstInterval > 0 {
		return p.spec.BurstInterval
	}
	return interval
}
