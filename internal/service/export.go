package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkordes/community-admin/backend/internal/delivery"
	"github.com/pkordes/community-admin/backend/internal/domain"
	"github.com/pkordes/community-admin/backend/internal/identity"
	"github.com/pkordes/community-admin/backend/internal/metrics"
)

// ExportService is the entry point for exports. It checks who is asking and
// for which project, plans the export units, and runs them as a batch.
type ExportService struct {
	users    identity.UserResolver
	projects identity.ProjectResolver
	agg      UnitAggregator
	log      *slog.Logger
	metrics  *metrics.Exporter
	nowFn    func() time.Time
}

// NewExportService constructs an ExportService. log and m may be nil.
func NewExportService(users identity.UserResolver, projects identity.ProjectResolver, agg UnitAggregator, log *slog.Logger, m *metrics.Exporter) *ExportService {
	if log == nil {
		log = slog.Default()
	}
	return &ExportService{
		users:    users,
		projects: projects,
		agg:      agg,
		log:      log,
		metrics:  m,
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock passed on to batch runs.
func (s *ExportService) WithClock(now func() time.Time) *ExportService {
	s.nowFn = now
	return s
}

// ExportOwn exports the current user's data into sink.
//
// A selection containing "all" produces a single report unit; any other
// selection produces one unit per category. The user (and the project, when
// a project-scoped category is selected) is resolved before anything is
// fetched.
func (s *ExportService) ExportOwn(ctx context.Context, categories []domain.Category, format domain.Format, sink delivery.Sink) (domain.BatchSummary, error) {
	cats, err := checkSelection(categories, format)
	if err != nil {
		return domain.BatchSummary{}, fmt.Errorf("service.ExportService.ExportOwn: %w", err)
	}

	userID, err := s.users.CurrentUserID(ctx)
	if err != nil {
		return domain.BatchSummary{}, fmt.Errorf("service.ExportService.ExportOwn: %w", err)
	}
	projectID, err := s.projectFor(ctx, cats)
	if err != nil {
		return domain.BatchSummary{}, fmt.Errorf("service.ExportService.ExportOwn: %w", err)
	}

	var units []domain.ExportUnit
	if domain.ContainsAll(categories) {
		units = []domain.ExportUnit{{ProjectID: projectID, UserID: userID, Categories: cats, Format: format}}
	} else {
		for _, c := range cats {
			units = append(units, domain.ExportUnit{
				ProjectID:  projectID,
				UserID:     userID,
				Categories: []domain.Category{c},
				Format:     format,
			})
		}
	}
	return s.run(ctx, units, sink), nil
}

// ExportUsers exports the same categories for several users, one unit per
// user, with the user id embedded in every filename. The caller must be an
// administrator with a project selected. Repeated user ids are exported once.
func (s *ExportService) ExportUsers(ctx context.Context, userIDs []string, categories []domain.Category, format domain.Format, sink delivery.Sink) (domain.BatchSummary, error) {
	cats, err := checkSelection(categories, format)
	if err != nil {
		return domain.BatchSummary{}, fmt.Errorf("service.ExportService.ExportUsers: %w", err)
	}

	if _, err := s.users.CurrentUserID(ctx); err != nil {
		return domain.BatchSummary{}, fmt.Errorf("service.ExportService.ExportUsers: %w", err)
	}
	if !s.users.IsAdmin(ctx) {
		return domain.BatchSummary{}, fmt.Errorf("service.ExportService.ExportUsers: %w: exporting other users requires an administrator", domain.ErrForbidden)
	}
	projectID, err := s.projects.CurrentProjectID(ctx)
	if err != nil {
		return domain.BatchSummary{}, fmt.Errorf("service.ExportService.ExportUsers: %w", err)
	}

	ids := uniqueIDs(userIDs)
	if len(ids) == 0 {
		return domain.BatchSummary{}, fmt.Errorf("service.ExportService.ExportUsers: %w: at least one user id is required", domain.ErrValidation)
	}

	units := make([]domain.ExportUnit, len(ids))
	for i, id := range ids {
		units[i] = domain.ExportUnit{
			ProjectID:  projectID,
			UserID:     id,
			Categories: cats,
			Format:     format,
			LabelUser:  true,
		}
	}
	return s.run(ctx, units, sink), nil
}

func (s *ExportService) run(ctx context.Context, units []domain.ExportUnit, sink delivery.Sink) domain.BatchSummary {
	return NewBatchExporter(s.agg, sink, s.log, s.metrics).
		WithClock(s.nowFn).
		ExportBatch(ctx, units)
}

// projectFor resolves the selected project. A missing project is only an
// error when a project-scoped category is requested.
func (s *ExportService) projectFor(ctx context.Context, cats []domain.Category) (string, error) {
	projectID, err := s.projects.CurrentProjectID(ctx)
	if err == nil {
		return projectID, nil
	}
	if errors.Is(err, domain.ErrNoProjectSelected) {
		for _, c := range cats {
			if c.ProjectScoped() {
				return "", err
			}
		}
		return "", nil
	}
	return "", err
}

// checkSelection validates the request and returns the expanded categories.
func checkSelection(categories []domain.Category, format domain.Format) ([]domain.Category, error) {
	for _, c := range categories {
		if !c.Valid() {
			return nil, fmt.Errorf("%w: unknown category %q", domain.ErrValidation, c)
		}
	}
	cats := domain.Expand(categories)
	if len(cats) == 0 {
		return nil, fmt.Errorf("%w: at least one category is required", domain.ErrValidation)
	}
	if format != domain.FormatJSON && format != domain.FormatCSV {
		return nil, fmt.Errorf("%w: unsupported format %q", domain.ErrValidation, format)
	}
	return cats, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
