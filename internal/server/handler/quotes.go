package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/LavaaC/ArbiSport/internal/domain"
)

// QuoteHandler serves the latest cached quotes for an event market.
type QuoteHandler struct {
	cache  domain.QuoteCache
	logger *slog.Logger
}

// NewQuoteHandler creates a QuoteHandler. cache may be nil when Redis is not
// configured; the endpoint then reports 404.
func NewQuoteHandler(cache domain.QuoteCache, logger *slog.Logger) *QuoteHandler {
	return &QuoteHandler{cache: cache, logger: logger}
}

type quoteResponse struct {
	Outcome      string    `json:"outcome"`
	Bookmaker    string    `json:"bookmaker"`
	BookmakerKey string    `json:"bookmaker_key"`
	AmericanOdds int       `json:"american_odds"`
	Price        string    `json:"price"`
	ObservedAt   time.Time `json:"observed_at"`
}

// Latest returns the cached quotes for one event market, as collected by the
// most recent cycle that saw it.
// GET /api/quotes/{eventID}/{marketKey}
func (h *QuoteHandler) Latest(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		writeError(w, http.StatusNotFound, "quote cache not configured")
		return
	}

	eventID := r.PathValue("eventID")
	marketKey := r.PathValue("marketKey")
	if eventID == "" || marketKey == "" {
		writeError(w, http.StatusBadRequest, "missing event id or market key")
		return
	}

	quotes, err := h.cache.Latest(r.Context(), eventID, marketKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no quotes cached for this market")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: quote lookup failed",
			slog.String("event_id", eventID),
			slog.String("market", marketKey),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read quotes")
		return
	}

	out := make([]quoteResponse, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, quoteResponse{
			Outcome:      q.Outcome.Label(),
			Bookmaker:    q.BookmakerTitle,
			BookmakerKey: q.BookmakerKey,
			AmericanOdds: q.AmericanOdds,
			Price:        q.Price.String(),
			ObservedAt:   q.ObservedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"event_id": eventID,
		"market":   marketKey,
		"quotes":   out,
	})
}
