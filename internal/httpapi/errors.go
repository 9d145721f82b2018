package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/sprakbanken/karp-s/internal/apperr"
)

// errorEnvelope is the wire shape of every error response: always HTTP
// 500, body {message, code?, details?}.
type errorEnvelope struct {
	Message string         `json:"message"`
	Code    apperr.Code    `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// writeError renders err as the standard error envelope. Every error
// path responds with HTTP 500 regardless of its underlying cause,
// matching the external error-handling convention.
func writeError(w http.ResponseWriter, err error) {
	env := errorEnvelope{Message: err.Error()}
	if coded, ok := err.(*apperr.CodedError); ok {
		env.Code = coded.Code
		env.Details = coded.Details
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(env)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
