package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/pkordes/community-admin/backend/internal/domain"
)

// ErrorDetail is the body of every non-2xx response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps ErrorDetail as {"error":{...}}.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// sentinelStatus maps domain sentinels to HTTP status and error code.
var sentinelStatus = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrNotAuthenticated, http.StatusUnauthorized, "not_authenticated"},
	{domain.ErrNoProjectSelected, http.StatusBadRequest, "no_project_selected"},
	{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
	{domain.ErrValidation, http.StatusUnprocessableEntity, "validation_error"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
}

// writeServiceError maps a service error to a response. Unknown errors are
// logged and reported as 500 without their text.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range sentinelStatus {
		if errors.Is(err, m.err) {
			writeError(w, m.status, m.code, unwrapMessage(err, m.err))
			return
		}
	}
	s.log.ErrorContext(r.Context(), "request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}

// unwrapMessage drops the "pkg.Type.Method: " wrapping in front of the
// sentinel and returns the detail after it, or the sentinel text when there
// is no detail.
// e.g. "service.ExportService.ExportOwn: validation error: unknown category \"x\""
// → "unknown category \"x\""
func unwrapMessage(err, sentinel error) string {
	msg := err.Error()
	marker := sentinel.Error()
	i := strings.Index(msg, marker)
	if i < 0 {
		return marker
	}
	rest := strings.TrimPrefix(msg[i+len(marker):], ": ")
	if rest == "" {
		return marker
	}
	return rest
}
