package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/LavaaC/ArbiSport/internal/domain"
	"github.com/LavaaC/ArbiSport/internal/scan"
)

// ScanController is the subset of the scan controller the API exposes.
type ScanController interface {
	StatusAll() []scan.Status
	Rescan(name string) error
}

// ScanHandler serves scan status and control endpoints.
type ScanHandler struct {
	controller ScanController
	logger     *slog.Logger
}

// NewScanHandler creates a ScanHandler.
func NewScanHandler(controller ScanController, logger *slog.Logger) *ScanHandler {
	return &ScanHandler{controller: controller, logger: logger}
}

type scanStatusResponse struct {
	Name      string     `json:"name"`
	Mode      string     `json:"mode"`
	State     string     `json:"state"`
	Cycles    int        `json:"cycles"`
	Skipped   int        `json:"skipped"`
	LastCycle *time.Time `json:"last_cycle,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// Status reports every managed scan.
// GET /api/status
func (h *ScanHandler) Status(w http.ResponseWriter, r *http.Request) {
	statuses := h.controller.StatusAll()

	out := make([]scanStatusResponse, 0, len(statuses))
	for _, st := range statuses {
		resp := scanStatusResponse{
			Name:      st.Name,
			Mode:      string(st.Mode),
			State:     string(st.State),
			Cycles:    st.Cycles,
			Skipped:   st.Skipped,
			LastError: st.LastError,
		}
		if !st.LastCycle.IsZero() {
			t := st.LastCycle
			resp.LastCycle = &t
		}
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, map[string]any{"scans": out})
}

// Rescan wakes a resting scan so its next cycle starts immediately.
// POST /api/scans/{name}/rescan
func (h *ScanHandler) Rescan(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing scan name")
		return
	}

	if err := h.controller.Rescan(name); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "scan not found")
		case errors.Is(err, domain.ErrScanHalted):
			writeError(w, http.StatusConflict, "scan is not running")
		default:
			h.logger.ErrorContext(r.Context(), "handler: rescan failed",
				slog.String("scan", name),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to trigger rescan")
		}
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "rescan queued", "scan": name})
}
