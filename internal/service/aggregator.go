package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkordes/community-admin/backend/internal/domain"
)

// CategoryFetcher is the fetch step the aggregator fans out to.
// *Fetcher satisfies it; its Fetch never fails.
type CategoryFetcher interface {
	Fetch(ctx context.Context, projectID, userID string, c domain.Category) domain.CategoryData
}

// Aggregator combines one user's categories into a single AggregateResult.
type Aggregator struct {
	fetcher CategoryFetcher
	nowFn   func() time.Time
}

// NewAggregator constructs an Aggregator over fetcher.
func NewAggregator(fetcher CategoryFetcher) *Aggregator {
	return &Aggregator{
		fetcher: fetcher,
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used for metadata.exportDate.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.nowFn = now
	return a
}

// Aggregate fetches every requested category concurrently and waits for all
// of them to settle. "all" expands to the full category list. The result
// has exactly one entry per expanded category, in canonical order.
//
// Errors are returned only for invalid input or an already-cancelled ctx;
// category fetch failures surface as empty entries with a zero count.
func (a *Aggregator) Aggregate(ctx context.Context, projectID, userID string, categories []domain.Category) (domain.AggregateResult, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.AggregateResult{}, fmt.Errorf("service.Aggregator.Aggregate: %w: user id is required", domain.ErrValidation)
	}
	if !domain.ValidDocumentID(userID) {
		return domain.AggregateResult{}, fmt.Errorf("service.Aggregator.Aggregate: %w: invalid user id %q", domain.ErrValidation, userID)
	}
	if projectID != "" && !domain.ValidDocumentID(projectID) {
		return domain.AggregateResult{}, fmt.Errorf("service.Aggregator.Aggregate: %w: invalid project id %q", domain.ErrValidation, projectID)
	}
	for _, c := range categories {
		if !c.Valid() {
			return domain.AggregateResult{}, fmt.Errorf("service.Aggregator.Aggregate: %w: unknown category %q", domain.ErrValidation, c)
		}
	}
	cats := domain.Expand(categories)
	if len(cats) == 0 {
		return domain.AggregateResult{}, fmt.Errorf("service.Aggregator.Aggregate: %w: at least one category is required", domain.ErrValidation)
	}
	if projectID == "" {
		for _, c := range cats {
			if c.ProjectScoped() {
				return domain.AggregateResult{}, fmt.Errorf("service.Aggregator.Aggregate: %w", domain.ErrNoProjectSelected)
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return domain.AggregateResult{}, fmt.Errorf("service.Aggregator.Aggregate: %w", err)
	}

	data := make([]domain.CategoryData, len(cats))
	tasks := make([]func(context.Context) error, len(cats))
	for i, c := range cats {
		tasks[i] = func(ctx context.Context) error {
			data[i] = a.fetcher.Fetch(ctx, projectID, userID, c)
			return nil
		}
	}
	errs := settleAll(ctx, tasks)

	result := domain.AggregateResult{
		Metadata: domain.ExportMetadata{
			ExportDate: FormatISO(a.nowFn()),
			ProjectID:  projectID,
			UserID:     userID,
		},
		Data: data,
	}
	for i, c := range cats {
		// A panicking fetcher leaves its slot zeroed; keep the key present.
		if errs[i] != nil || data[i].Category == "" {
			data[i] = domain.CategoryData{Category: c}
			if !c.Singleton() {
				data[i].Records = []domain.Record{}
			}
		}
		result.Metadata.DataTypes = append(result.Metadata.DataTypes, domain.CategoryCount{
			Category: c,
			Count:    data[i].Count(),
		})
	}
	return result, nil
}
