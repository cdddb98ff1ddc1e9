package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/community-admin/backend/internal/delivery"
	"github.com/pkordes/community-admin/backend/internal/domain"
	"github.com/pkordes/community-admin/backend/internal/identity"
	"github.com/pkordes/community-admin/backend/internal/service"
)

// countingAggregator records how often Aggregate ran so tests can prove
// preconditions fail before any fetch.
type countingAggregator struct {
	calls int
	next  service.UnitAggregator
}

func (c *countingAggregator) Aggregate(ctx context.Context, pid, uid string, cats []domain.Category) (domain.AggregateResult, error) {
	c.calls++
	return c.next.Aggregate(ctx, pid, uid, cats)
}

func newExportService(id identity.Static, agg service.UnitAggregator) *service.ExportService {
	return service.NewExportService(id, id, agg, nil, nil).WithClock(func() time.Time { return fixedNow })
}

// ---- ExportOwn -------------------------------------------------------------

func TestExportService_ExportOwn_AllIsOneReport(t *testing.T) {
	svc := newExportService(identity.Static{UserID: "u1", ProjectID: "p1"}, seededAggregator())
	sink := delivery.NewMemorySink()

	summary, err := svc.ExportOwn(context.Background(), []domain.Category{domain.CategoryAll}, domain.FormatJSON, sink)

	require.NoError(t, err)
	require.Len(t, summary.Outcomes, 1)
	assert.Equal(t, domain.AllCategories, summary.Outcomes[0].Unit.Categories)
	assert.Equal(t, []string{"user-data-export-2024-06-01.json"}, summary.Outcomes[0].Files)
}

func TestExportService_ExportOwn_OneUnitPerCategory(t *testing.T) {
	svc := newExportService(identity.Static{UserID: "u1", ProjectID: "p1"}, seededAggregator())
	sink := delivery.NewMemorySink()

	summary, err := svc.ExportOwn(context.Background(),
		[]domain.Category{domain.CategoryOrders, domain.CategoryProfile}, domain.FormatJSON, sink)

	require.NoError(t, err)
	require.Len(t, summary.Outcomes, 2)
	assert.Equal(t, []string{"profile-2024-06-01.json"}, summary.Outcomes[0].Files)
	assert.Equal(t, []string{"orders-2024-06-01.json"}, summary.Outcomes[1].Files)
	assert.Equal(t, 2, summary.Totals.TotalFiles)
	assert.Equal(t, 2, summary.Totals.TotalRecords)
}

func TestExportService_ExportOwn_NotAuthenticated_NoFetch(t *testing.T) {
	agg := &countingAggregator{next: seededAggregator()}
	svc := newExportService(identity.Static{ProjectID: "p1"}, agg)

	_, err := svc.ExportOwn(context.Background(), []domain.Category{domain.CategoryAll}, domain.FormatJSON, delivery.NewMemorySink())

	require.ErrorIs(t, err, domain.ErrNotAuthenticated)
	assert.Zero(t, agg.calls)
}

func TestExportService_ExportOwn_NoProject_NoFetch(t *testing.T) {
	agg := &countingAggregator{next: seededAggregator()}
	svc := newExportService(identity.Static{UserID: "u1"}, agg)

	_, err := svc.ExportOwn(context.Background(), []domain.Category{domain.CategoryGuestPasses}, domain.FormatCSV, delivery.NewMemorySink())

	require.ErrorIs(t, err, domain.ErrNoProjectSelected)
	assert.Zero(t, agg.calls)
}

func TestExportService_ExportOwn_ProfileWithoutProject(t *testing.T) {
	svc := newExportService(identity.Static{UserID: "u1"}, seededAggregator())
	sink := delivery.NewMemorySink()

	summary, err := svc.ExportOwn(context.Background(), []domain.Category{domain.CategoryProfile}, domain.FormatCSV, sink)

	require.NoError(t, err)
	assert.True(t, summary.Outcomes[0].Success)
	require.Len(t, sink.Files(), 1)
	assert.Contains(t, string(sink.Files()[0].Content), "ana@example.com")
}

func TestExportService_ExportOwn_InvalidSelection(t *testing.T) {
	svc := newExportService(identity.Static{UserID: "u1", ProjectID: "p1"}, seededAggregator())

	_, err := svc.ExportOwn(context.Background(), nil, domain.FormatJSON, delivery.NewMemorySink())
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.ExportOwn(context.Background(), []domain.Category{"invoices"}, domain.FormatJSON, delivery.NewMemorySink())
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.ExportOwn(context.Background(), []domain.Category{domain.CategoryAll}, "xml", delivery.NewMemorySink())
	require.ErrorIs(t, err, domain.ErrValidation)
}

// ---- ExportUsers -----------------------------------------------------------

func TestExportService_ExportUsers_AdminBatch(t *testing.T) {
	svc := newExportService(identity.Static{UserID: "admin", ProjectID: "p1", Admin: true}, seededAggregator())
	sink := delivery.NewMemorySink()

	summary, err := svc.ExportUsers(context.Background(),
		[]string{"u1", " u2 ", "u1", ""},
		[]domain.Category{domain.CategoryGuestPasses}, domain.FormatCSV, sink)

	require.NoError(t, err)
	require.Len(t, summary.Outcomes, 2)
	assert.Equal(t, []string{"guestPasses-u1-2024-06-01.csv"}, summary.Outcomes[0].Files)
	assert.Equal(t, []string{"guestPasses-u2-2024-06-01.csv"}, summary.Outcomes[1].Files)
	assert.Equal(t, 3, summary.Totals.TotalRecords)
}

func TestExportService_ExportUsers_Preconditions(t *testing.T) {
	tests := []struct {
		name    string
		id      identity.Static
		userIDs []string
		wantErr error
	}{
		{"not authenticated", identity.Static{ProjectID: "p1", Admin: true}, []string{"u1"}, domain.ErrNotAuthenticated},
		{"not admin", identity.Static{UserID: "u1", ProjectID: "p1"}, []string{"u1"}, domain.ErrForbidden},
		{"no project", identity.Static{UserID: "admin", Admin: true}, []string{"u1"}, domain.ErrNoProjectSelected},
		{"no users", identity.Static{UserID: "admin", ProjectID: "p1", Admin: true}, []string{" "}, domain.ErrValidation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			agg := &countingAggregator{next: seededAggregator()}
			svc := newExportService(tc.id, agg)

			_, err := svc.ExportUsers(context.Background(), tc.userIDs,
				[]domain.Category{domain.CategoryAll}, domain.FormatJSON, delivery.NewMemorySink())

			require.ErrorIs(t, err, tc.wantErr)
			assert.Zero(t, agg.calls)
		})
	}
}
