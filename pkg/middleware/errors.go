package middleware

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/Adithya-Monish-Kumar-K/policy-search-analytics/pkg/errors"
)

func writeError(w http.ResponseWriter, err error) {
	status, message := apperrors.Render(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
