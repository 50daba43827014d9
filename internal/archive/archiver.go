// Package archive ages arbitrage history out of the primary store into cold
// object storage.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/LavaaC/ArbiSport/internal/domain"
)

const (
	// DefaultRetention keeps 30 days of history queryable in PostgreSQL.
	DefaultRetention = 30 * 24 * time.Hour

	// DefaultInterval is how often the retention pass runs.
	DefaultInterval = 24 * time.Hour

	// DefaultPrefix is the object-store prefix for archive files.
	DefaultPrefix = "archive/arbitrage"

	defaultBatchLimit = 5000
)

// Verifier confirms an archive object actually landed before the source rows
// are deleted.
type Verifier interface {
	Exists(ctx context.Context, path string) (bool, error)
}

// Config controls the retention pass.
type Config struct {
	Retention  time.Duration
	Interval   time.Duration
	Prefix     string
	BatchLimit int
}

func (c Config) withDefaults() Config {
	if c.Retention <= 0 {
		c.Retention = DefaultRetention
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.BatchLimit <= 0 {
		c.BatchLimit = defaultBatchLimit
	}
	return c
}

// Archiver copies aged records to object storage and deletes them from the
// primary store only after the upload has been verified.
type Archiver struct {
	store    domain.ArbStore
	writer   domain.ArchiveWriter
	verifier Verifier
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an Archiver. verifier may be nil to skip the existence check.
// A nil clock uses time.Now.
func New(store domain.ArbStore, writer domain.ArchiveWriter, verifier Verifier, cfg Config, clock func() time.Time, logger *slog.Logger) *Archiver {
	if clock == nil {
		clock = time.Now
	}
	return &Archiver{
		store:    store,
		writer:   writer,
		verifier: verifier,
		cfg:      cfg.withDefaults(),
		logger:   logger.With(slog.String("component", "archiver")),
		now:      clock,
	}
}

// Run executes retention passes on the configured interval until the context
// is cancelled. The first pass runs immediately.
func (a *Archiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	for {
		if deleted, err := a.RunOnce(ctx); err != nil {
			a.logger.Error("retention pass failed", slog.Any("error", err))
		} else if deleted > 0 {
			a.logger.Info("retention pass complete", slog.Int64("deleted", deleted))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce archives everything older than the retention cutoff in batches,
// then deletes the aged rows. It returns the number of rows deleted.
func (a *Archiver) RunOnce(ctx context.Context) (int64, error) {
	cutoff := a.now().UTC().Add(-a.cfg.Retention)

	var deleted int64
	for {
		records, err := a.store.ListBefore(ctx, cutoff, a.cfg.BatchLimit)
		if err != nil {
			return 0, fmt.Errorf("archive: list before %s: %w", cutoff, err)
		}
		if len(records) == 0 {
			break
		}

		key, err := a.writer.WriteArchive(ctx, a.cfg.Prefix, records)
		if err != nil {
			return 0, fmt.Errorf("archive: write: %w", err)
		}
		if a.verifier != nil {
			ok, err := a.verifier.Exists(ctx, key)
			if err != nil {
				return 0, fmt.Errorf("archive: verify %s: %w", key, err)
			}
			if !ok {
				return 0, fmt.Errorf("archive: object %s missing after upload", key)
			}
		}
		a.logger.Info("archived batch",
			slog.String("key", key),
			slog.Int("records", len(records)),
		)

		// Delete exactly the batch we archived, using its newest record as
		// the sub-cutoff so later rows survive until their own batch.
		newest := records[len(records)-1].CreatedAt
		n, err := a.store.DeleteBefore(ctx, newest.Add(time.Millisecond))
		if err != nil {
			return deleted, fmt.Errorf("archive: delete batch: %w", err)
		}
		deleted += n

		if len(records) < a.cfg.BatchLimit {
			break
		}
	}
	return deleted, nil
}
