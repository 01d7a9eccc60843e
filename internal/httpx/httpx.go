// Package httpx contains helpers for reading and writing JSON HTTP
// messages.
package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// WriteJSON writes v to w as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ReadJSON decodes the request body into dst.
func ReadJSON(r *http.Request, dst interface{}) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// WriteError writes a structured error response with the given status code
// and a formatted message.
func WriteError(w http.ResponseWriter, status int, f string, v ...interface{}) {
	WriteJSON(
		w,
		status,
		map[string]interface{}{
			"error": map[string]interface{}{
				"status":  status,
				"message": fmt.Sprintf(f, v...),
			},
		},
	)
}
