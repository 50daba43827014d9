package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/LavaaC/ArbiSport/internal/domain"
)

// UsageReader reads the latest persisted quota snapshot.
type UsageReader interface {
	Latest(ctx context.Context) (domain.UsageSnapshot, error)
}

// UsageHandler serves the provider quota endpoint.
type UsageHandler struct {
	store  UsageReader
	logger *slog.Logger
}

// NewUsageHandler creates a UsageHandler. store may be nil when persistence
// is not configured; the endpoint then reports 404.
func NewUsageHandler(store UsageReader, logger *slog.Logger) *UsageHandler {
	return &UsageHandler{store: store, logger: logger}
}

type usageResponse struct {
	Remaining  *int       `json:"remaining"`
	ResetAt    *time.Time `json:"reset_at,omitempty"`
	ObservedAt time.Time  `json:"observed_at"`
	Exhausted  bool       `json:"exhausted"`
}

// Latest returns the most recent provider quota observation.
// GET /api/usage
func (h *UsageHandler) Latest(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotFound, "usage tracking not configured")
		return
	}

	snap, err := h.store.Latest(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no usage data recorded yet")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: usage lookup failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read usage")
		return
	}

	writeJSON(w, http.StatusOK, usageResponse{
		Remaining:  snap.Remaining,
		ResetAt:    snap.ResetAt,
		ObservedAt: snap.ObservedAt,
		Exhausted:  snap.Exhausted(time.Now().UTC()),
	})
}
