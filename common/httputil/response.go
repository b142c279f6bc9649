package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// WriteJSON encodes data as the response body with the given status.
// Encoding failures are logged; the status line is already on the wire
// at that point.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// WriteError writes the standard {"error": message} envelope.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}
