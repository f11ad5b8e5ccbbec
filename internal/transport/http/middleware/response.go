package middleware

import (
	"encoding/json"
	"net/http"
)

// writeJSONError renders a rejection in the same envelope shape the handlers
// use, so middleware errors look like any other API error. The text rides in
// both keys: "message" is the documented one, "error" is kept for older
// clients.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg, "error": msg})
}
