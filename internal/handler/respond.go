package handler

import (
	"net/http"

	"github.com/goccy/go-json"

	"rgbmonitor/internal/logger"
)

type errorResponse struct {
	Error string `json:"error"`
}

// respondJSON writes data with the given status code.
func respondJSON(w http.ResponseWriter, status int, data interface{}, logger *logger.Logger) {
	body, err := json.Marshal(data)
	if err != nil {
		logger.Error("Failed to marshal JSON response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logger.Error("Failed to write JSON response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string, logger *logger.Logger) {
	respondJSON(w, status, errorResponse{Error: message}, logger)
}
