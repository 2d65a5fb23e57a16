package chat

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/internal/analytics"
	apperrors "github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/logger"
)

const maxRequestBody = 64 << 10

var (
	errBadJSON   = apperrors.New(apperrors.ErrInvalidInput, 0, "invalid JSON body")
	errQueueFull = apperrors.New(apperrors.ErrUnavailable, 0, "event queue full, retry later")
)

// Tracker accepts chat events without blocking. analytics.Collector
// implements it.
type Tracker interface {
	Track(event analytics.ChatEvent) bool
}

type Handler struct {
	tracker Tracker
	now     func() time.Time
	logger  *slog.Logger
}

func New(tracker Tracker) *Handler {
	return &Handler{
		tracker: tracker,
		now:     time.Now,
		logger:  logger.WithComponent("chat-handler"),
	}
}

// Search records a completed search and returns the chat id the client
// later uses to submit feedback.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req SearchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		h.writeError(w, errBadJSON)
		return
	}
	if err := ValidateSearch(&req); err != nil {
		h.writeValidationError(w, err)
		return
	}

	chatID := uuid.NewString()
	event := analytics.ChatEvent{
		EventID:   uuid.NewString(),
		Type:      analytics.EventSearch,
		ChatID:    chatID,
		Question:  req.Question,
		Timestamp: h.now().UTC(),
		RequestID: logger.RequestID(ctx),
	}
	if !h.tracker.Track(event) {
		h.writeError(w, errQueueFull)
		return
	}

	log.Info("search accepted", "chat_id", chatID)
	h.writeJSON(w, http.StatusAccepted, SearchResponse{ChatID: chatID, Status: statusAccepted})
}

// Feedback records a rating for a previous search. Whether the chat exists
// and is still unrated is decided by the recorder.
func (h *Handler) Feedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	chatID := r.PathValue("id")

	var req FeedbackRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		h.writeError(w, errBadJSON)
		return
	}
	if err := ValidateFeedback(chatID, &req); err != nil {
		h.writeValidationError(w, err)
		return
	}

	event := analytics.ChatEvent{
		EventID:   uuid.NewString(),
		Type:      analytics.EventFeedback,
		ChatID:    chatID,
		Feedback:  analytics.Feedback(req.Feedback),
		Timestamp: h.now().UTC(),
		RequestID: logger.RequestID(ctx),
	}
	if !h.tracker.Track(event) {
		h.writeError(w, errQueueFull)
		return
	}

	log.Info("feedback accepted", "chat_id", chatID, "feedback", req.Feedback)
	h.writeJSON(w, http.StatusAccepted, map[string]string{"chat_id": chatID, "status": statusAccepted})
}

func (h *Handler) writeValidationError(w http.ResponseWriter, err error) {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": validationErr.Fields,
		})
		return
	}
	h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, 0, err.Error()))
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
