// Package chat accepts search and feedback submissions over HTTP and hands
// them to the event collector for asynchronous recording.
package chat

// SearchRequest is the JSON body of POST /api/chats.
type SearchRequest struct {
	Question string `json:"question"`
}

// SearchResponse is returned once a search has been accepted.
type SearchResponse struct {
	ChatID string `json:"chat_id"`
	Status string `json:"status"`
}

// FeedbackRequest is the JSON body of POST /api/chats/{id}/feedback.
type FeedbackRequest struct {
	Feedback string `json:"feedback"`
}

const statusAccepted = "accepted"
