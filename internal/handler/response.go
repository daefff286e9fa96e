package handler

// Every error response has the same shape:
//
//	{"error": "not_found", "message": "post not found with id abc123"}
//
// "error" is machine-readable: the AppError code when one is set
// (already_liked, self_follow, ...), otherwise the error family.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/snapgram/internal/apperror"
	"github.com/sakif/snapgram/internal/auth"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// MessageResponse acknowledges an action that has no resource to return.
type MessageResponse struct {
	Message string `json:"message"`
}

// maxJSONBody caps request bodies on JSON endpoints.
const maxJSONBody = 1 << 20

// writeJSON sends data with the given status. Headers must be set before
// WriteHeader; anything set after the body starts is dropped.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its HTTP status. Errors that are not
// *apperror.AppError are store or internal failures: their text may hold
// SQL or file paths, so the client only ever sees a generic 500.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status := http.StatusInternalServerError
	errorType := "internal_error"

	switch {
	case errors.Is(err, apperror.ErrValidation):
		status = http.StatusBadRequest
		errorType = "validation_error"
	case errors.Is(err, apperror.ErrUnauthenticated):
		status = http.StatusUnauthorized
		errorType = "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		status = http.StatusForbidden
		errorType = "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
		errorType = "not_found"
	case errors.Is(err, apperror.ErrConflict):
		status = http.StatusConflict
		errorType = "conflict"
	}
	if appErr.Code != "" {
		errorType = appErr.Code
	}

	writeJSON(w, status, ErrorResponse{
		Error:   errorType,
		Message: appErr.Message,
		Field:   appErr.Field,
	})
}

// decodeJSON reads a size-capped JSON body into dst and runs its validate
// tags. Any failure is returned as a validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperror.ValidationFailed("", "request body too large")
		}
		return apperror.ValidationFailed("", "invalid JSON body")
	}

	return validateStruct(dst)
}

// viewerID returns the authenticated user. Routes using it sit behind
// auth.RequireAuth, so the second result is false only on wiring mistakes.
func viewerID(r *http.Request) (string, bool) {
	return auth.UserIDFromContext(r.Context())
}

// requireViewer writes a 401 and returns false when no user is attached.
func requireViewer(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := viewerID(r)
	if !ok {
		writeError(w, apperror.Unauthenticated("valid authentication required"))
	}
	return id, ok
}

// pageParams reads the optional limit and offset query parameters. Absent
// values are 0, which the service layer replaces with its default.
func pageParams(r *http.Request) (limit, offset int, err error) {
	if limit, err = queryInt(r, "limit"); err != nil {
		return 0, 0, err
	}
	if offset, err = queryInt(r, "offset"); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ValidationFailed(name, name+" must be an integer")
	}
	return n, nil
}
