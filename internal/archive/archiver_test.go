package archive

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LavaaC/ArbiSport/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeArbStore struct {
	records []domain.ArbitrageRecord
	listErr error
}

func (s *fakeArbStore) Insert(context.Context, domain.ArbitrageRecord) error { return nil }

func (s *fakeArbStore) ListRecent(context.Context, int) ([]domain.ArbitrageRecord, error) {
	return nil, nil
}

func (s *fakeArbStore) ListBefore(_ context.Context, cutoff time.Time, limit int) ([]domain.ArbitrageRecord, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.ArbitrageRecord
	for _, rec := range s.records {
		if rec.CreatedAt.Before(cutoff) {
			out = append(out, rec)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeArbStore) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var kept []domain.ArbitrageRecord
	var deleted int64
	for _, rec := range s.records {
		if rec.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	s.records = kept
	return deleted, nil
}

type fakeWriter struct {
	written [][]domain.ArbitrageRecord
	keys    []string
	err     error
}

func (w *fakeWriter) WriteArchive(_ context.Context, prefix string, records []domain.ArbitrageRecord) (string, error) {
	if w.err != nil {
		return "", w.err
	}
	w.written = append(w.written, records)
	key := prefix + "/batch.jsonl"
	w.keys = append(w.keys, key)
	return key, nil
}

type fakeVerifier struct {
	exists bool
	err    error
}

func (v *fakeVerifier) Exists(context.Context, string) (bool, error) {
	return v.exists, v.err
}

func record(id string, createdAt time.Time) domain.ArbitrageRecord {
	return domain.ArbitrageRecord{
		ID:        id,
		CreatedAt: createdAt,
		EventID:   "evt-" + id,
		SportKey:  "basketball_nba",
		MarketKey: "h2h",
		Edge:      decimal.RequireFromString("0.02"),
	}
}

func TestRunOnceArchivesAndDeletes(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeArbStore{records: []domain.ArbitrageRecord{
		record("old-1", now.Add(-40*24*time.Hour)),
		record("old-2", now.Add(-35*24*time.Hour)),
		record("fresh", now.Add(-time.Hour)),
	}}
	writer := &fakeWriter{}
	verifier := &fakeVerifier{exists: true}

	a := New(store, writer, verifier, Config{}, func() time.Time { return now }, testLogger())
	deleted, err := a.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}
	if len(writer.written) != 1 || len(writer.written[0]) != 2 {
		t.Fatalf("written batches = %v", writer.written)
	}
	if len(store.records) != 1 || store.records[0].ID != "fresh" {
		t.Errorf("surviving records = %+v, want only fresh", store.records)
	}
}

func TestRunOnceNothingAged(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeArbStore{records: []domain.ArbitrageRecord{
		record("fresh", now.Add(-time.Hour)),
	}}
	writer := &fakeWriter{}

	a := New(store, writer, nil, Config{}, func() time.Time { return now }, testLogger())
	deleted, err := a.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0", deleted)
	}
	if len(writer.written) != 0 {
		t.Errorf("writer called on empty batch")
	}
}

func TestRunOnceKeepsRowsWhenVerifyFails(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeArbStore{records: []domain.ArbitrageRecord{
		record("old-1", now.Add(-40*24*time.Hour)),
	}}
	writer := &fakeWriter{}
	verifier := &fakeVerifier{exists: false}

	a := New(store, writer, verifier, Config{}, func() time.Time { return now }, testLogger())
	if _, err := a.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error when archive object is missing")
	}
	if len(store.records) != 1 {
		t.Errorf("records deleted despite failed verification")
	}
}

func TestRunOnceUploadFailureKeepsRows(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeArbStore{records: []domain.ArbitrageRecord{
		record("old-1", now.Add(-40*24*time.Hour)),
	}}
	writer := &fakeWriter{err: errors.New("bucket gone")}

	a := New(store, writer, nil, Config{}, func() time.Time { return now }, testLogger())
	if _, err := a.RunOnce(context.Background()); err == nil {
		t.Fatal("expected upload error")
	}
	if len(store.records) != 1 {
		t.Errorf("records deleted despite failed upload")
	}
}
