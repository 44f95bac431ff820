// Package httpapi implements the server's public HTTP surface: routing,
// session cookie handling, and the JSON response envelope. Handlers call
// into the service layer and translate its error kinds to status codes;
// they never touch repositories or parse cookies outside the middleware.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/mycloud/internal/common"
)

// Payload is the uniform JSON envelope for every API response.
type Payload struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload Payload) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Payload{Success: true, Message: message, Data: data})
}

// writeError maps a service error to its HTTP status. The mapping is the
// single place where error kinds and status codes meet; internal detail
// never leaks to the client.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, common.ErrorUnauthorized):
		status, message = http.StatusUnauthorized, "authentication required"
	case errors.Is(err, common.ErrorInvalidCredentials):
		status, message = http.StatusUnauthorized, "invalid login or password"
	case errors.Is(err, common.ErrorForbidden):
		status, message = http.StatusForbidden, "forbidden"
	case errors.Is(err, common.ErrorNotFound):
		status, message = http.StatusNotFound, "not found"
	case errors.Is(err, common.ErrorInconsistent):
		// A record whose content is gone looks absent from outside.
		status, message = http.StatusNotFound, "not found"
	case errors.Is(err, common.ErrorConflict):
		status, message = http.StatusConflict, "conflict"
	case errors.Is(err, common.ErrorInvalidArgument):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrorTransient):
		status, message = http.StatusServiceUnavailable, "temporarily unavailable, retry"
	case errors.Is(err, common.ErrorPartialFailure):
		status, message = http.StatusInternalServerError, "partially completed"
	}

	writeJSON(w, status, Payload{Success: false, Message: message})
}
