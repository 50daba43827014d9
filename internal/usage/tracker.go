// Package usage tracks provider quota from response metadata so scan loops
// can skip cycles that would be rejected anyway.
package usage

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/LavaaC/ArbiSport/internal/domain"
)

// Tracker holds the latest quota view reported by the odds provider. One
// Tracker is shared across every scan loop hitting the same API key. Safe for
// concurrent use.
type Tracker struct {
	mu       sync.Mutex
	snapshot domain.UsageSnapshot
	now      func() time.Time
	logger   *slog.Logger
}

// New creates a Tracker. A nil clock uses time.Now.
func New(clock func() time.Time, logger *slog.Logger) *Tracker {
	if clock == nil {
		clock = time.Now
	}
	return &Tracker{
		now:    clock,
		logger: logger.With(slog.String("component", "usage")),
	}
}

// Record folds response metadata into the tracked snapshot. Responses can
// arrive out of order, so within one quota window the remaining count only
// moves down; a higher value is accepted only after the recorded reset time
// has passed.
func (t *Tracker) Record(remaining *int, resetAt *time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if t.windowElapsed(now) {
		t.snapshot = domain.UsageSnapshot{}
	}

	if remaining != nil {
		if t.snapshot.Remaining == nil || *remaining < *t.snapshot.Remaining {
			r := *remaining
			t.snapshot.Remaining = &r
		}
	}
	if resetAt != nil {
		r := *resetAt
		t.snapshot.ResetAt = &r
	}
	t.snapshot.ObservedAt = now

	if t.snapshot.Remaining != nil && *t.snapshot.Remaining <= 0 {
		t.logger.Warn("provider quota exhausted",
			slog.Any("reset_at", resetAt),
		)
	}
}

// Admit reports whether a new request burst should be attempted. It fails
// with ErrQuotaExhausted while the recorded remaining count is zero and the
// reset time has not passed.
func (t *Tracker) Admit() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if t.windowElapsed(now) {
		t.snapshot = domain.UsageSnapshot{ObservedAt: t.snapshot.ObservedAt}
		return nil
	}
	if t.snapshot.Exhausted(now) {
		return fmt.Errorf("requests remaining 0: %w", domain.ErrQuotaExhausted)
	}
	return nil
}

// Snapshot returns a copy of the current quota view.
func (t *Tracker) Snapshot() domain.UsageSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := t.snapshot
	if snap.Remaining != nil {
		r := *snap.Remaining
		snap.Remaining = &r
	}
	if snap.ResetAt != nil {
		r := *snap.ResetAt
		snap.ResetAt = &r
	}
	return snap
}

// windowElapsed reports whether the recorded reset time has passed. Callers
// hold the mutex.
func (t *Tracker) windowElapsed(now time.Time) bool {
	return t.snapshot.ResetAt != nil && !now.Before(*t.snapshot.ResetAt)
}
