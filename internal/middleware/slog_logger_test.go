package middleware_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/community-admin/backend/internal/middleware"
)

func serveLogged(t *testing.T, h http.Handler, req *http.Request) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	rec := httptest.NewRecorder()
	middleware.NewSlogLogger(logger)(h).ServeHTTP(rec, req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestSlogLogger_LogsRequestFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req = req.WithContext(context.WithValue(req.Context(), chimiddleware.RequestIDKey, "test-req-id"))

	entry := serveLogged(t, okHandler, req)

	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/healthz", entry["path"])
	assert.EqualValues(t, http.StatusOK, entry["status"])
	assert.Equal(t, "test-req-id", entry["request_id"])
	assert.NotNil(t, entry["duration_ms"])
}

func TestSlogLogger_IncludesAttrsFromInnerHandlers(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.AddLogAttr(r.Context(), "user_id", "u1")
		w.WriteHeader(http.StatusInternalServerError)
	})

	entry := serveLogged(t, inner, httptest.NewRequest(http.MethodPost, "/exports", nil))

	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "u1", entry["user_id"])
}

func TestAddLogAttr_WithoutLoggerIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		middleware.AddLogAttr(context.Background(), "user_id", "u1")
	})
}
