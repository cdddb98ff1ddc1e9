package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// logAttrs collects attributes that inner middleware learns after the
// request line is read, such as the authenticated user.
type logAttrs struct {
	mu    sync.Mutex
	attrs []any
}

type logAttrsKey struct{}

// AddLogAttr attaches a key/value pair to the request's access log line.
// It is a no-op outside NewSlogLogger.
func AddLogAttr(ctx context.Context, key string, value any) {
	la, ok := ctx.Value(logAttrsKey{}).(*logAttrs)
	if !ok {
		return
	}
	la.mu.Lock()
	la.attrs = append(la.attrs, key, value)
	la.mu.Unlock()
}

// NewSlogLogger returns a middleware that logs each request as a structured
// line via the provided slog.Logger: method, path, HTTP status, duration,
// the chi request ID, and any attributes added with AddLogAttr.
//
// Wire it after chimiddleware.RequestID so the request ID is available.
func NewSlogLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			la := &logAttrs{}
			r = r.WithContext(context.WithValue(r.Context(), logAttrsKey{}, la))

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			args := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", chimiddleware.GetReqID(r.Context()),
			}
			la.mu.Lock()
			args = append(args, la.attrs...)
			la.mu.Unlock()

			level := slog.LevelInfo
			if ww.Status() >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			log.Log(r.Context(), level, "request", args...)
		})
	}
}
