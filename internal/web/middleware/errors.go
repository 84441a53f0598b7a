package middleware

import (
	"encoding/json"
	"net/http"
)

// writeError writes the same JSON error shape the API handlers use.
func writeError(w http.ResponseWriter, status int, message, action, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   message,
		"message": message,
		"action":  action,
		"code":    code,
	})
}
