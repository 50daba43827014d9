package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LavaaC/ArbiSport/internal/domain"
)

// multipartThreshold switches uploads to the multipart manager. Archives are
// usually a few megabytes at most, but a long retention backlog can exceed
// single-shot comfort.
const multipartThreshold = 32 * 1024 * 1024

// ArchiveWriter implements domain.ArchiveWriter by serializing arbitrage
// records to JSONL and uploading them under the given prefix.
type ArchiveWriter struct {
	writer *Writer
}

// NewArchiveWriter creates an ArchiveWriter uploading through w.
func NewArchiveWriter(w *Writer) *ArchiveWriter {
	return &ArchiveWriter{writer: w}
}

// archivedRecord is the JSONL form of one arbitrage record.
type archivedRecord struct {
	ID           string          `json:"id"`
	CreatedAt    time.Time       `json:"created_at"`
	EventID      string          `json:"event_id"`
	EventName    string          `json:"event_name"`
	SportKey     string          `json:"sport_key"`
	CommenceTime *time.Time      `json:"commence_time,omitempty"`
	MarketKey    string          `json:"market_key"`
	Edge         decimal.Decimal `json:"edge"`
	TotalStake   decimal.Decimal `json:"total_stake"`
	Payout       decimal.Decimal `json:"payout"`
	Legs         []archivedLeg   `json:"legs"`
}

type archivedLeg struct {
	Outcome      string          `json:"outcome"`
	Point        *float64        `json:"point,omitempty"`
	BookmakerKey string          `json:"bookmaker_key"`
	Bookmaker    string          `json:"bookmaker"`
	AmericanOdds int             `json:"american_odds"`
	Price        decimal.Decimal `json:"price"`
	Stake        decimal.Decimal `json:"stake"`
}

// WriteArchive uploads records as newline-delimited JSON at
// <prefix>/YYYY-MM-DD.jsonl, keyed by the oldest record's date, and returns
// the object key.
func (a *ArchiveWriter) WriteArchive(ctx context.Context, prefix string, records []domain.ArbitrageRecord) (string, error) {
	if len(records) == 0 {
		return "", fmt.Errorf("s3blob: empty archive for prefix %s", prefix)
	}

	oldest := records[0].CreatedAt
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if rec.CreatedAt.Before(oldest) {
			oldest = rec.CreatedAt
		}
		if err := enc.Encode(toArchived(rec)); err != nil {
			return "", fmt.Errorf("s3blob: encode archive record %d: %w", i, err)
		}
	}

	key := fmt.Sprintf("%s/%s.jsonl", prefix, oldest.UTC().Format("2006-01-02"))
	if buf.Len() > multipartThreshold {
		if err := a.writer.PutMultipart(ctx, key, &buf, 0); err != nil {
			return "", err
		}
		return key, nil
	}
	if err := a.writer.Put(ctx, key, &buf, "application/x-ndjson"); err != nil {
		return "", err
	}
	return key, nil
}

func toArchived(rec domain.ArbitrageRecord) archivedRecord {
	legs := make([]archivedLeg, len(rec.Legs))
	for i, leg := range rec.Legs {
		legs[i] = archivedLeg{
			Outcome:      leg.Outcome.Name,
			Point:        leg.Outcome.Point,
			BookmakerKey: leg.BookmakerKey,
			Bookmaker:    leg.BookmakerTitle,
			AmericanOdds: leg.AmericanOdds,
			Price:        leg.Price,
			Stake:        leg.Stake,
		}
	}
	return archivedRecord{
		ID:           rec.ID,
		CreatedAt:    rec.CreatedAt,
		EventID:      rec.EventID,
		EventName:    rec.EventName,
		SportKey:     rec.SportKey,
		CommenceTime: rec.CommenceTime,
		MarketKey:    rec.MarketKey,
		Edge:         rec.Edge,
		TotalStake:   rec.TotalStake,
		Payout:       rec.Payout,
		Legs:         legs,
	}
}

// Compile-time interface check.
var _ domain.ArchiveWriter = (*ArchiveWriter)(nil)
