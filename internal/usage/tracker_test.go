package usage

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/LavaaC/ArbiSport/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func TestTrackerMonotonicWithinWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := New(func() time.Time { return now }, testLogger())
	reset := timePtr(now.Add(time.Minute))

	tr.Record(intPtr(100), reset)
	tr.Record(intPtr(97), reset)
	// Out-of-order response from an earlier request must not bump the
	// count back up.
	tr.Record(intPtr(99), reset)

	snap := tr.Snapshot()
	if snap.Remaining == nil || *snap.Remaining != 97 {
		t.Fatalf("remaining = %v, want 97", snap.Remaining)
	}
}

func TestTrackerAdmit(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := New(func() time.Time { return now }, testLogger())

	// Nothing recorded yet: optimistic admit.
	if err := tr.Admit(); err != nil {
		t.Fatalf("Admit before any record: %v", err)
	}

	tr.Record(intPtr(5), timePtr(now.Add(time.Minute)))
	if err := tr.Admit(); err != nil {
		t.Fatalf("Admit with remaining quota: %v", err)
	}

	tr.Record(intPtr(0), timePtr(now.Add(time.Minute)))
	if err := tr.Admit(); !errors.Is(err, domain.ErrQuotaExhausted) {
		t.Fatalf("Admit exhausted: err = %v, want ErrQuotaExhausted", err)
	}
}

func TestTrackerResetReopensWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := New(func() time.Time { return now }, testLogger())

	tr.Record(intPtr(0), timePtr(now.Add(time.Minute)))
	if err := tr.Admit(); !errors.Is(err, domain.ErrQuotaExhausted) {
		t.Fatalf("err = %v, want ErrQuotaExhausted", err)
	}

	// Sixty seconds later the window has rolled over.
	now = now.Add(time.Minute)
	if err := tr.Admit(); err != nil {
		t.Fatalf("Admit after reset: %v", err)
	}

	// A fresh window accepts a higher remaining count.
	tr.Record(intPtr(100), timePtr(now.Add(time.Minute)))
	snap := tr.Snapshot()
	if snap.Remaining == nil || *snap.Remaining != 100 {
		t.Fatalf("remaining = %v, want 100", snap.Remaining)
	}
}

func TestTrackerNilFields(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := New(func() time.Time { return now }, testLogger())

	// Providers may omit either header; neither nil crashes nor blocks.
	tr.Record(nil, nil)
	tr.Record(intPtr(40), nil)
	tr.Record(nil, timePtr(now.Add(time.Minute)))

	if err := tr.Admit(); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	snap := tr.Snapshot()
	if snap.Remaining == nil || *snap.Remaining != 40 {
		t.Fatalf("remaining = %v, want 40", snap.Remaining)
	}
	if snap.ResetAt == nil {
		t.Fatal("reset time not retained")
	}
}

func TestTrackerSnapshotIsolation(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := New(func() time.Time { return now }, testLogger())
	tr.Record(intPtr(10), nil)

	snap := tr.Snapshot()
	*snap.Remaining = 999

	if again := tr.Snapshot(); *again.Remaining != 10 {
		t.Fatalf("remaining = %d, want 10 after external mutation", *again.Remaining)
	}
}
