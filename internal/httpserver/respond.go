// Package httpserver assembles the gateway's chi router: the fixed
// request-id/tenant-resolution/auth/rate-limit/telemetry pipeline, and the
// admin, internal and public-API route groups.
package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/libervia/gateway/internal/apierr"
)

// Respond writes data as a JSON response at status.
func Respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// RespondError writes the stable apierr envelope for code, echoing
// X-Request-Id if the request-id hook has already set it.
func RespondError(w http.ResponseWriter, r *http.Request, code apierr.Code, message string) {
	apierr.Write(w, r, apierr.New(code, message))
}

// RespondErrorDetails is RespondError with a details map attached.
func RespondErrorDetails(w http.ResponseWriter, r *http.Request, code apierr.Code, message string, details map[string]any) {
	apierr.Write(w, r, apierr.New(code, message).WithDetails(details))
}
