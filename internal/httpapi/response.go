// Package httpapi adapts pkg/engine's operations onto HTTP, implementing
// the Suggestion API and Admin API tables over github.com/go-chi/chi/v5.
package httpapi

import (
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/arqlane/suggestd/pkg/suggesterr"
)

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps a suggesterr.Kind onto the HTTP status §7 assigns it and
// writes the error envelope.
func writeError(w http.ResponseWriter, err error) {
	kind := suggesterr.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case suggesterr.InvalidPrefix, suggesterr.InvalidQuery, suggesterr.InvalidPhrase:
		status = http.StatusBadRequest
	case suggesterr.NotFound:
		status = http.StatusNotFound
	case suggesterr.DeadlineExceeded:
		status = http.StatusGatewayTimeout
	case suggesterr.ServiceDegraded:
		status = http.StatusServiceUnavailable
	case suggesterr.InvariantViolation:
		status = http.StatusInternalServerError
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Kind: kind.String()})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg, Kind: "invalid_query"})
}
