package presentation

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/internal/analytics"
	apperrors "github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/metrics"
)

const maxRenderBody = 1 << 20

// RenderRequest is the JSON body of POST /api/results/render.
type RenderRequest struct {
	QueryResponse *QueryResponse `json:"query_response"`
	Citations     []Citation     `json:"citations"`
	SearchMode    Mode           `json:"search_mode"`
	SearchQuery   string         `json:"search_query"`
}

type Handler struct {
	renderer  *Renderer
	snapshots analytics.Snapshotter
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewHandler creates the HTML handlers. m may be nil.
func NewHandler(renderer *Renderer, snapshots analytics.Snapshotter, m *metrics.Metrics) *Handler {
	return &Handler{
		renderer:  renderer,
		snapshots: snapshots,
		metrics:   m,
		logger:    logger.WithComponent("presentation-handler"),
	}
}

// RenderResults turns a search payload into an HTML fragment.
func (h *Handler) RenderResults(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req RenderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRenderBody)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusRequestEntityTooLarge, "request body too large"))
			return
		}
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, 0, "invalid JSON body"))
		return
	}
	if req.SearchMode == "" {
		req.SearchMode = ModeSummary
	}
	if !req.SearchMode.Valid() {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, 0, `search_mode must be "summary" or "steps"`))
		return
	}

	var buf bytes.Buffer
	err := h.renderer.Results(&buf, ResultsInput{
		Response:  req.QueryResponse,
		Citations: req.Citations,
		Mode:      req.SearchMode,
		Query:     req.SearchQuery,
	})
	if err != nil {
		log.Error("failed to render results", "error", err)
		h.writeError(w, apperrors.New(apperrors.ErrInternal, 0, "failed to render results"))
		return
	}
	h.observe(pageResults)
	h.writeHTML(w, http.StatusOK, buf.Bytes())
}

// Dashboard serves the admin analytics page from a fresh snapshot.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	snap, err := h.snapshots.Snapshot(r.Context())
	if err != nil {
		log.Error("failed to load analytics", "error", err)
		var buf bytes.Buffer
		if rerr := h.renderer.DashboardError(&buf, err.Error()); rerr != nil {
			log.Error("failed to render dashboard error page", "error", rerr)
			http.Error(w, "Failed to load analytics", http.StatusInternalServerError)
			return
		}
		h.observe(pageDashboardError)
		h.writeHTML(w, http.StatusInternalServerError, buf.Bytes())
		return
	}

	var buf bytes.Buffer
	if err := h.renderer.Dashboard(&buf, BuildDashboardView(snap)); err != nil {
		log.Error("failed to render dashboard", "error", err)
		http.Error(w, "Failed to load analytics", http.StatusInternalServerError)
		return
	}
	h.observe(pageDashboard)
	h.writeHTML(w, http.StatusOK, buf.Bytes())
}

func (h *Handler) observe(page string) {
	if h.metrics != nil {
		h.metrics.PagesRenderedTotal.WithLabelValues(page).Inc()
	}
}

func (h *Handler) writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status, message := apperrors.Render(err)
	h.writeJSON(w, status, map[string]string{"error": message})
}
