package utils

import (
	"encoding/json"
	"net/http"
)

func RespondWithError(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, map[string]string{"error": msg})
}

// RespondWithErrorCode writes a structured failure with a machine-readable
// code alongside the user-facing message.
func RespondWithErrorCode(w http.ResponseWriter, status int, code, msg string) {
	RespondWithJSON(w, status, M{
		"success": false,
		"code":    code,
		"message": msg,
	})
}

// Sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

type M map[string]interface{}
