package server

import (
	"encoding/json"
	"net/http"
)

// WriteJSONError writes a structured error body with the given status.
// The shape matches what the web client expects: {"error": "..."}.
func WriteJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
