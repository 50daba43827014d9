package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/LavaaC/ArbiSport/internal/domain"
)

// OpportunityLister reads persisted arbitrage history.
type OpportunityLister interface {
	ListRecent(ctx context.Context, limit int) ([]domain.ArbitrageRecord, error)
}

// OpportunityHandler serves arbitrage history endpoints.
type OpportunityHandler struct {
	store  OpportunityLister
	logger *slog.Logger
}

// NewOpportunityHandler creates an OpportunityHandler.
func NewOpportunityHandler(store OpportunityLister, logger *slog.Logger) *OpportunityHandler {
	return &OpportunityHandler{store: store, logger: logger}
}

type recordResponse struct {
	ID           string        `json:"id"`
	CreatedAt    time.Time     `json:"created_at"`
	EventID      string        `json:"event_id"`
	EventName    string        `json:"event_name"`
	SportKey     string        `json:"sport_key"`
	CommenceTime *time.Time    `json:"commence_time,omitempty"`
	MarketKey    string        `json:"market_key"`
	Edge         string        `json:"edge"`
	TotalStake   string        `json:"total_stake"`
	Payout       string        `json:"payout"`
	Legs         []legResponse `json:"legs"`
}

type legResponse struct {
	Outcome      string `json:"outcome"`
	Bookmaker    string `json:"bookmaker"`
	BookmakerKey string `json:"bookmaker_key"`
	AmericanOdds int    `json:"american_odds"`
	Price        string `json:"price"`
	Stake        string `json:"stake"`
}

// ListRecent returns the most recent arbitrage records, newest first.
// GET /api/opportunities?limit=20
func (h *OpportunityHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 20, 200)

	records, err := h.store.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list opportunities failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list opportunities")
		return
	}

	out := make([]recordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toRecordResponse(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"opportunities": out})
}

func toRecordResponse(rec domain.ArbitrageRecord) recordResponse {
	legs := make([]legResponse, 0, len(rec.Legs))
	for _, leg := range rec.Legs {
		legs = append(legs, legResponse{
			Outcome:      leg.Outcome.Label(),
			Bookmaker:    leg.BookmakerTitle,
			BookmakerKey: leg.BookmakerKey,
			AmericanOdds: leg.AmericanOdds,
			Price:        leg.Price.String(),
			Stake:        leg.Stake.String(),
		})
	}
	return recordResponse{
		ID:           rec.ID,
		CreatedAt:    rec.CreatedAt,
		EventID:      rec.EventID,
		EventName:    rec.EventName,
		SportKey:     rec.SportKey,
		CommenceTime: rec.CommenceTime,
		MarketKey:    rec.MarketKey,
		Edge:         rec.Edge.String(),
		TotalStake:   rec.TotalStake.String(),
		Payout:       rec.Payout.String(),
		Legs:         legs,
	}
}
