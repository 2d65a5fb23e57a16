package chat

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/policy-search-analytics/internal/analytics"
)

const maxQuestionLength = 2000

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	var parts []string
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	return strings.Join(parts, "; ")
}

// ValidateSearch trims the question in place and checks its length.
func ValidateSearch(req *SearchRequest) error {
	errs := make(map[string]string)

	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		errs["question"] = "question is required"
	} else if utf8.RuneCountInString(req.Question) > maxQuestionLength {
		errs["question"] = fmt.Sprintf("question must be at most %d characters", maxQuestionLength)
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// ValidateFeedback checks the chat id and the feedback label.
func ValidateFeedback(chatID string, req *FeedbackRequest) error {
	errs := make(map[string]string)

	if _, err := uuid.Parse(chatID); err != nil {
		errs["chat_id"] = "chat id must be a UUID"
	}
	if !analytics.Feedback(req.Feedback).Valid() {
		errs["feedback"] = `feedback must be "positive" or "negative"`
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
