package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSearch(t *testing.T) {
	tests := []struct {
		name     string
		question string
		field    bool
	}{
		{"ok", "how do I modify an order", false},
		{"blank", "   \n\t", true},
		{"max length", strings.Repeat("a", maxQuestionLength), false},
		{"too long", strings.Repeat("a", maxQuestionLength+1), true},
		{"multibyte at limit", strings.Repeat("ñ", maxQuestionLength), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSearch(&SearchRequest{Question: tt.question})
			if !tt.field {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields, "question")
		})
	}
}

func TestValidateSearchTrims(t *testing.T) {
	req := &SearchRequest{Question: "  arrears  "}
	require.NoError(t, ValidateSearch(req))
	assert.Equal(t, "arrears", req.Question)
}

func TestValidateFeedback(t *testing.T) {
	const id = "0b6f2f52-4d0c-4c1b-9a52-2f8f7c9c1e11"

	assert.NoError(t, ValidateFeedback(id, &FeedbackRequest{Feedback: "positive"}))
	assert.NoError(t, ValidateFeedback(id, &FeedbackRequest{Feedback: "negative"}))

	err := ValidateFeedback("not-a-uuid", &FeedbackRequest{Feedback: "meh"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "chat_id")
	assert.Contains(t, ve.Fields, "feedback")
}
