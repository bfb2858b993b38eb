// Package shared holds transport helpers used by every handler package so
// the JSON envelope stays uniform across the API.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "regportal/pkg/domain-errors"
)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error onto the standard error envelope. Unknown
// errors become opaque 500s; causes never leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	WriteJSON(w, dErrors.HTTPStatus(code), map[string]string{
		"error":             string(code),
		"error_description": dErrors.MessageOf(err),
	})
}
