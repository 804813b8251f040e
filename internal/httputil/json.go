// Package httputil provides JSON request/response helpers for a consistent
// wire shape across handlers.
package httputil

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the JSON shape of every error response: a stable
// machine-readable reason plus a human message. Raw internal error text is
// never placed here.
type ErrorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteJSON writes data as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response with a stable reason code and a
// human-readable message.
func WriteError(w http.ResponseWriter, status int, reason, message string) {
	WriteJSON(w, status, ErrorBody{Success: false, Error: reason, Message: message})
}

// ParseJSON decodes the request body into dst. On failure it writes a 400
// invalid_json response and returns false; the caller should return
// immediately.
func ParseJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Body == nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "Invalid request. JSON body required")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "Invalid request. JSON body required")
		return false
	}
	return true
}
