package handler_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/community-admin/backend/internal/delivery"
	"github.com/pkordes/community-admin/backend/internal/domain"
	"github.com/pkordes/community-admin/backend/internal/handler"
	"github.com/pkordes/community-admin/backend/internal/identity"
)

// mockExportServicer is a test double for handler.ExportServicer.
// Set only the method fields your test needs.
type mockExportServicer struct {
	exportOwn   func(ctx context.Context, cats []domain.Category, f domain.Format, sink delivery.Sink) (domain.BatchSummary, error)
	exportUsers func(ctx context.Context, ids []string, cats []domain.Category, f domain.Format, sink delivery.Sink) (domain.BatchSummary, error)
}

func (m *mockExportServicer) ExportOwn(ctx context.Context, cats []domain.Category, f domain.Format, sink delivery.Sink) (domain.BatchSummary, error) {
	return m.exportOwn(ctx, cats, f, sink)
}

func (m *mockExportServicer) ExportUsers(ctx context.Context, ids []string, cats []domain.Category, f domain.Format, sink delivery.Sink) (domain.BatchSummary, error) {
	return m.exportUsers(ctx, ids, cats, f, sink)
}

var _ handler.ExportServicer = (*mockExportServicer)(nil)

// mockFileStore is a test double for handler.FileStore.
type mockFileStore struct {
	create      func(ctx context.Context, f domain.ExportFile) (domain.ExportFile, error)
	getByID     func(ctx context.Context, id uuid.UUID) (domain.ExportFile, error)
	listByBatch func(ctx context.Context, batchID uuid.UUID) ([]domain.ExportFile, error)
	deleteBatch func(ctx context.Context, batchID uuid.UUID) (int64, error)
}

func (m *mockFileStore) Create(ctx context.Context, f domain.ExportFile) (domain.ExportFile, error) {
	return m.create(ctx, f)
}
func (m *mockFileStore) GetByID(ctx context.Context, id uuid.UUID) (domain.ExportFile, error) {
	return m.getByID(ctx, id)
}
func (m *mockFileStore) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]domain.ExportFile, error) {
	return m.listByBatch(ctx, batchID)
}
func (m *mockFileStore) DeleteBatch(ctx context.Context, batchID uuid.UUID) (int64, error) {
	return m.deleteBatch(ctx, batchID)
}

var _ handler.FileStore = (*mockFileStore)(nil)

// ---- helpers ---------------------------------------------------------------

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// asUser stands in for the auth middleware.
func asUser(uid string, admin bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := identity.WithPrincipal(r.Context(), identity.Principal{UID: uid, Admin: admin})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newHTTPHandler(exports handler.ExportServicer, files handler.FileStore) http.Handler {
	srv := handler.NewServer(exports, files, nil).WithClock(func() time.Time { return fixedNow })
	return srv.Routes(asUser("u1", false))
}

// deliverAll is an ExportOwn stub that writes the named files into the sink.
func deliverAll(names ...string) func(context.Context, []domain.Category, domain.Format, delivery.Sink) (domain.BatchSummary, error) {
	return func(ctx context.Context, _ []domain.Category, _ domain.Format, sink delivery.Sink) (domain.BatchSummary, error) {
		for _, n := range names {
			if err := sink.Deliver(ctx, []byte("content of "+n), n, "text/csv"); err != nil {
				return domain.BatchSummary{}, err
			}
		}
		return domain.BatchSummary{Outcomes: []domain.UnitOutcome{{Success: true, Files: names}}}, nil
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorDetail {
	t.Helper()
	var body handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error
}

func attachmentName(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	disp, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	require.Equal(t, "attachment", disp)
	return params["filename"]
}

// ---- GET /exports/download -------------------------------------------------

func TestDownloadExport_SingleFile(t *testing.T) {
	var gotCats []domain.Category
	var gotFormat domain.Format
	svc := &mockExportServicer{
		exportOwn: func(ctx context.Context, cats []domain.Category, f domain.Format, sink delivery.Sink) (domain.BatchSummary, error) {
			gotCats, gotFormat = cats, f
			return deliverAll("orders-2024-06-01.csv")(ctx, cats, f, sink)
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/exports/download?categories=orders&format=csv", nil)
	rec := httptest.NewRecorder()
	newHTTPHandler(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []domain.Category{domain.CategoryOrders}, gotCats)
	assert.Equal(t, domain.FormatCSV, gotFormat)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, "orders-2024-06-01.csv", attachmentName(t, rec))
	assert.Equal(t, "content of orders-2024-06-01.csv", rec.Body.String())
}

func TestDownloadExport_DefaultsToJSONAndSplitsCategories(t *testing.T) {
	var gotCats []domain.Category
	var gotFormat domain.Format
	svc := &mockExportServicer{
		exportOwn: func(ctx context.Context, cats []domain.Category, f domain.Format, sink delivery.Sink) (domain.BatchSummary, error) {
			gotCats, gotFormat = cats, f
			return deliverAll("user-data-export-2024-06-01.json")(ctx, cats, f, sink)
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/exports/download?categories=profile,all", nil)
	rec := httptest.NewRecorder()
	newHTTPHandler(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []domain.Category{domain.CategoryProfile, domain.CategoryAll}, gotCats)
	assert.Equal(t, domain.FormatJSON, gotFormat)
}

func TestDownloadExport_SeveralFilesZipped(t *testing.T) {
	svc := &mockExportServicer{exportOwn: deliverAll("profile-2024-06-01.csv", "orders-2024-06-01.csv")}

	req := httptest.NewRequest(http.MethodGet, "/exports/download?categories=profile,orders&format=csv", nil)
	rec := httptest.NewRecorder()
	newHTTPHandler(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Equal(t, "user-data-export-2024-06-01.zip", attachmentName(t, rec))

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "profile-2024-06-01.csv", zr.File[0].Name)
	assert.Equal(t, "orders-2024-06-01.csv", zr.File[1].Name)
}

func TestDownloadExport_PartialFailureStillServesFiles(t *testing.T) {
	svc := &mockExportServicer{
		exportOwn: func(ctx context.Context, cats []domain.Category, f domain.Format, sink delivery.Sink) (domain.BatchSummary, error) {
			require.NoError(t, sink.Deliver(ctx, []byte("{}"), "profile-2024-06-01.json", "application/json"))
			return domain.BatchSummary{Outcomes: []domain.UnitOutcome{
				{Success: true, Files: []string{"profile-2024-06-01.json"}},
				{Success: false, Error: "store unreachable"},
			}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/exports/download?categories=profile,orders", nil)
	rec := httptest.NewRecorder()
	newHTTPHandler(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get(handler.FailedUnitsHeader))
}

func TestDownloadExport_NoFiles_500WithUnitError(t *testing.T) {
	svc := &mockExportServicer{
		exportOwn: func(context.Context, []domain.Category, domain.Format, delivery.Sink) (domain.BatchSummary, error) {
			return domain.BatchSummary{Outcomes: []domain.UnitOutcome{{Success: false, Error: "store unreachable"}}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/exports/download?categories=orders", nil)
	rec := httptest.NewRecorder()
	newHTTPHandler(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, handler.ErrorDetail{Code: "export_failed", Message: "store unreachable"}, decodeError(t, rec))
}

func TestDownloadExport_BadQuery_422(t *testing.T) {
	for name, query := range map[string]string{
		"missing categories": "",
		"unknown category":   "?categories=pets",
		"unknown format":     "?categories=orders&format=xml",
	} {
		t.Run(name, func(t *testing.T) {
			svc := &mockExportServicer{}
			req := httptest.NewRequest(http.MethodGet, "/exports/download"+query, nil)
			rec := httptest.NewRecorder()
			newHTTPHandler(svc, nil).ServeHTTP(rec, req)

			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Equal(t, "validation_error", decodeError(t, rec).Code)
		})
	}
}

func TestDownloadExport_ServiceErrorsMapped(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("service.ExportService.ExportOwn: %w", domain.ErrNotAuthenticated), http.StatusUnauthorized, "not_authenticated"},
		{fmt.Errorf("service.ExportService.ExportOwn: identity.Context.CurrentProjectID: %w", domain.ErrNoProjectSelected), http.StatusBadRequest, "no_project_selected"},
		{fmt.Errorf("service.ExportService.ExportUsers: %w: exporting other users requires an administrator", domain.ErrForbidden), http.StatusForbidden, "forbidden"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			svc := &mockExportServicer{
				exportOwn: func(context.Context, []domain.Category, domain.Format, delivery.Sink) (domain.BatchSummary, error) {
					return domain.BatchSummary{}, tc.err
				},
			}
			req := httptest.NewRequest(http.MethodGet, "/exports/download?categories=orders", nil)
			rec := httptest.NewRecorder()
			newHTTPHandler(svc, nil).ServeHTTP(rec, req)

			require.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, decodeError(t, rec).Code)
		})
	}
}

func TestDownloadExport_NoProjectMessage(t *testing.T) {
	svc := &mockExportServicer{
		exportOwn: func(context.Context, []domain.Category, domain.Format, delivery.Sink) (domain.BatchSummary, error) {
			return domain.BatchSummary{}, fmt.Errorf("service.ExportService.ExportOwn: %w", domain.ErrNoProjectSelected)
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/exports/download?categories=orders", nil)
	rec := httptest.NewRecorder()
	newHTTPHandler(svc, nil).ServeHTTP(rec, req)

	assert.Equal(t, "no project selected", decodeError(t, rec).Message)
}

// ---- POST /exports ---------------------------------------------------------

// recordingFiles is a FileStore whose Create assigns ids and remembers rows.
func recordingFiles(saved *[]domain.ExportFile) *mockFileStore {
	return &mockFileStore{
		create: func(_ context.Context, f domain.ExportFile) (domain.ExportFile, error) {
			f.ID = uuid.New()
			f.CreatedAt = fixedNow
			*saved = append(*saved, f)
			return f, nil
		},
	}
}

func postExport(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/exports", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateExport_Own_StoresFilesUnderBatch(t *testing.T) {
	var saved []domain.ExportFile
	svc := &mockExportServicer{
		exportOwn: func(ctx context.Context, cats []domain.Category, f domain.Format, sink delivery.Sink) (domain.BatchSummary, error) {
			assert.Equal(t, domain.FormatCSV, f)
			summary, err := deliverAll("profile-2024-06-01.csv", "orders-2024-06-01.csv")(ctx, cats, f, sink)
			summary.BatchID = sink.(delivery.Batched).BatchID()
			return summary, err
		},
	}

	rec := postExport(t, newHTTPHandler(svc, recordingFiles(&saved)), `{"categories":["profile","orders"],"format":"csv"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp handler.CreateExportResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Files, 2)
	require.Len(t, saved, 2)
	assert.Equal(t, saved[0].BatchID, resp.Summary.BatchID)
	assert.Equal(t, "u1", saved[0].CreatedBy)
	assert.Equal(t, "profile-2024-06-01.csv", resp.Files[0].Filename)
	assert.Equal(t, "/exports/files/"+saved[0].ID.String(), resp.Files[0].DownloadURL)
	assert.Equal(t, len("content of profile-2024-06-01.csv"), resp.Files[0].Size)
}

func TestCreateExport_WithUserIDs_RunsBatch(t *testing.T) {
	var saved []domain.ExportFile
	var gotIDs []string
	svc := &mockExportServicer{
		exportUsers: func(_ context.Context, ids []string, cats []domain.Category, f domain.Format, _ delivery.Sink) (domain.BatchSummary, error) {
			gotIDs = ids
			assert.Equal(t, []domain.Category{domain.CategoryGuestPasses}, cats)
			assert.Equal(t, domain.FormatJSON, f)
			return domain.BatchSummary{Outcomes: []domain.UnitOutcome{}}, nil
		},
	}

	rec := postExport(t, newHTTPHandler(svc, recordingFiles(&saved)), `{"categories":["guestPasses"],"userIds":["u2","u3"]}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []string{"u2", "u3"}, gotIDs)
	var resp handler.CreateExportResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotNil(t, resp.Files)
	assert.Empty(t, resp.Files)
}

func TestCreateExport_Forbidden_403(t *testing.T) {
	svc := &mockExportServicer{
		exportUsers: func(context.Context, []string, []domain.Category, domain.Format, delivery.Sink) (domain.BatchSummary, error) {
			return domain.BatchSummary{}, fmt.Errorf("service.ExportService.ExportUsers: %w: exporting other users requires an administrator", domain.ErrForbidden)
		},
	}

	rec := postExport(t, newHTTPHandler(svc, &mockFileStore{}), `{"categories":["orders"],"userIds":["u2"]}`)

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, handler.ErrorDetail{Code: "forbidden", Message: "exporting other users requires an administrator"}, decodeError(t, rec))
}

func TestCreateExport_InvalidBody_422(t *testing.T) {
	for name, body := range map[string]string{
		"malformed":        `{"categories":`,
		"unknown field":    `{"categories":["orders"],"zip":true}`,
		"no categories":    `{"format":"json"}`,
		"empty categories": `{"categories":[]}`,
		"blank category":   `{"categories":[""]}`,
		"bad format":       `{"categories":["orders"],"format":"xml"}`,
		"unknown category": `{"categories":["pets"]}`,
		"blank user id":    `{"categories":["orders"],"userIds":[""]}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := postExport(t, newHTTPHandler(&mockExportServicer{}, &mockFileStore{}), body)

			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Equal(t, "validation_error", decodeError(t, rec).Code)
		})
	}
}

func TestCreateExport_Unauthenticated_401(t *testing.T) {
	h := handler.NewServer(&mockExportServicer{}, &mockFileStore{}, nil).Routes()

	rec := postExport(t, h, `{"categories":["orders"]}`)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
