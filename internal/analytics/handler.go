package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	apperrors "github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/logger"
)

// Snapshotter produces a fresh analytics Snapshot.
type Snapshotter interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// Handler serves the admin analytics endpoint. Only GET is accepted; any
// other method is rejected before a query runs.
type Handler struct {
	snapshots Snapshotter
	logger    *slog.Logger
}

func NewHandler(snapshots Snapshotter) *Handler {
	return &Handler{
		snapshots: snapshots,
		logger:    logger.WithComponent("analytics-handler"),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		h.writeJSON(w, apperrors.HTTPStatusCode(apperrors.ErrMethodNotAllowed), map[string]string{"error": "Method not allowed"})
		return
	}

	snap, err := h.snapshots.Snapshot(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("admin analytics failed", "error", err)
		// Every store failure is a 500 carrying the cause, whatever it wraps.
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Internal server error",
			"message": err.Error(),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}
