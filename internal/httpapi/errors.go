package httpapi

import (
	"errors"
	"net/http"

	"oncohub.org/internal/access"
	"oncohub.org/internal/audit"
	"oncohub.org/internal/obs"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, access.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, access.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, access.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, access.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, access.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, access.ErrMigrationRequired):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// messageFor keeps internal error text out of responses.
func messageFor(err error, code int) string {
	if code == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}

func handleError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		obs.Logger().WithError(err).WithField("request_id", audit.RequestIDFromContext(r.Context())).Error("request failed")
	}
	writeError(w, r, code, messageFor(err, code))
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	body := map[string]any{"error": msg}
	if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
		body["request_id"] = rid
	}
	writeJSON(w, code, body)
}

// writeResult is the {"error": null | message} envelope used by admin
// mutations.
func writeResult(w http.ResponseWriter, r *http.Request, err error, extra map[string]any) {
	if err != nil {
		code := statusFor(err)
		if code == http.StatusInternalServerError {
			obs.Logger().WithError(err).WithField("request_id", audit.RequestIDFromContext(r.Context())).Error("admin mutation failed")
		}
		writeJSON(w, code, map[string]any{"error": messageFor(err, code)})
		return
	}
	body := map[string]any{"error": nil}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}
