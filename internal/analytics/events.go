package analytics

import "time"

// Feedback is the rating a user attaches to a past search.
type Feedback string

const (
	FeedbackPositive Feedback = "positive"
	FeedbackNegative Feedback = "negative"
)

// Valid reports whether f is one of the known labels.
func (f Feedback) Valid() bool {
	return f == FeedbackPositive || f == FeedbackNegative
}

// SearchEvent is one row of the chats event log: a completed search. Feedback
// is nil until the user rates the answer, and is set at most once.
type SearchEvent struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Feedback  *Feedback `json:"feedback,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type EventType string

const (
	EventSearch   EventType = "search"
	EventFeedback EventType = "feedback"
)

// ChatEvent is the Kafka payload on the chat-events topic. EventID is unique
// per emitted event and is the recorder's de-duplication key.
type ChatEvent struct {
	EventID   string    `json:"event_id"`
	Type      EventType `json:"type"`
	ChatID    string    `json:"chat_id"`
	Question  string    `json:"question,omitempty"`
	Feedback  Feedback  `json:"feedback,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}
