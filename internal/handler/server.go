// Package handler implements the HTTP handlers for the community admin
// export API. Handlers are methods on Server, split by resource into
// health.go, export.go and files.go; router.go mounts them on chi.
package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pkordes/community-admin/backend/internal/delivery"
	"github.com/pkordes/community-admin/backend/internal/domain"
)

// ExportServicer defines the export operations the handlers depend on.
// *service.ExportService satisfies it; handler tests inject a mock.
type ExportServicer interface {
	ExportOwn(ctx context.Context, categories []domain.Category, format domain.Format, sink delivery.Sink) (domain.BatchSummary, error)
	ExportUsers(ctx context.Context, userIDs []string, categories []domain.Category, format domain.Format, sink delivery.Sink) (domain.BatchSummary, error)
}

// FileStore is the persisted-file surface the handlers use.
// repo.ExportFileRepo satisfies it.
type FileStore interface {
	Create(ctx context.Context, file domain.ExportFile) (domain.ExportFile, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.ExportFile, error)
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]domain.ExportFile, error)
	DeleteBatch(ctx context.Context, batchID uuid.UUID) (int64, error)
}

// Server holds the handlers' dependencies.
type Server struct {
	exports  ExportServicer
	files    FileStore
	validate *validator.Validate
	log      *slog.Logger
	nowFn    func() time.Time
}

// NewServer constructs the Server with all its dependencies. log may be nil.
func NewServer(exports ExportServicer, files FileStore, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		exports:  exports,
		files:    files,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used for archive names.
func (s *Server) WithClock(now func() time.Time) *Server {
	s.nowFn = now
	return s
}
