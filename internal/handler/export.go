package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/community-admin/backend/internal/delivery"
	"github.com/pkordes/community-admin/backend/internal/domain"
	"github.com/pkordes/community-admin/backend/internal/identity"
)

// FailedUnitsHeader reports how many units of a download failed when the
// remaining files are still served.
const FailedUnitsHeader = "X-Export-Failed-Units"

// DownloadExport handles GET /exports/download?categories=a,b&format=csv.
// It exports the caller's own data and streams the result: one file as an
// attachment, several files as a zip archive.
func (s *Server) DownloadExport(w http.ResponseWriter, r *http.Request) {
	var (
		names  []string
		format *string
	)
	if err := runtime.BindQueryParameter("form", false, true, "categories", r.URL.Query(), &names); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", false, false, "format", r.URL.Query(), &format); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}

	cats, f, err := parseSelection(names, format)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	sink := delivery.NewMemorySink()
	summary, err := s.exports.ExportOwn(r.Context(), cats, f, sink)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	files := sink.Files()
	failed := summary.Failed()
	if len(files) == 0 {
		msg := "export produced no files"
		if len(failed) > 0 {
			msg = failed[0].Error
		}
		s.log.ErrorContext(r.Context(), "download export failed", "batch_id", summary.BatchID, "error", msg)
		writeError(w, http.StatusInternalServerError, "export_failed", msg)
		return
	}
	if len(failed) > 0 {
		w.Header().Set(FailedUnitsHeader, strconv.Itoa(len(failed)))
	}

	if len(files) == 1 {
		writeAttachment(w, files[0].Name, files[0].MimeType, files[0].Content)
		return
	}

	now := s.nowFn()
	var buf bytes.Buffer
	if err := sink.WriteZip(&buf, now); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeAttachment(w, fmt.Sprintf("user-data-export-%s.zip", now.Format(time.DateOnly)), "application/zip", buf.Bytes())
}

// createExportRequest is the body of POST /exports.
type createExportRequest struct {
	Categories []string `json:"categories" validate:"required,min=1,dive,required"`
	Format     string   `json:"format" validate:"omitempty,oneof=json csv"`
	UserIDs    []string `json:"userIds" validate:"omitempty,dive,required"`
}

// FileDescriptor describes a stored export file without its content.
type FileDescriptor struct {
	ID          uuid.UUID `json:"id"`
	Filename    string    `json:"filename"`
	MimeType    string    `json:"mimeType"`
	Size        int       `json:"size,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	DownloadURL string    `json:"downloadUrl"`
}

// CreateExportResponse is the body of a successful POST /exports.
type CreateExportResponse struct {
	Summary domain.BatchSummary `json:"summary"`
	Files   []FileDescriptor    `json:"files"`
}

// CreateExport handles POST /exports.
// Without userIds it exports the caller's own data; with userIds it runs an
// administrator batch, one unit per user. Files are kept in the file store
// under the summary's batch id.
func (s *Server) CreateExport(w http.ResponseWriter, r *http.Request) {
	var body createExportRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
			return
		}
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", validationMessage(err))
		return
	}

	cats, f, err := parseSelection(body.Categories, &body.Format)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	p, ok := identity.PrincipalFrom(r.Context())
	if !ok {
		s.writeServiceError(w, r, domain.ErrNotAuthenticated)
		return
	}

	sink := delivery.NewStoreSink(s.files, uuid.New(), p.UID)
	var summary domain.BatchSummary
	if len(body.UserIDs) == 0 {
		summary, err = s.exports.ExportOwn(r.Context(), cats, f, sink)
	} else {
		summary, err = s.exports.ExportUsers(r.Context(), body.UserIDs, cats, f, sink)
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	saved := sink.Saved()
	resp := CreateExportResponse{Summary: summary, Files: make([]FileDescriptor, len(saved))}
	for i, file := range saved {
		resp.Files[i] = describe(file)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// parseSelection turns raw query or body values into a category selection
// and format. A nil or empty format means JSON.
func parseSelection(names []string, format *string) ([]domain.Category, domain.Format, error) {
	cats, err := domain.ParseCategories(names)
	if err != nil {
		return nil, "", err
	}
	raw := ""
	if format != nil {
		raw = *format
	}
	f, err := domain.ParseFormat(raw)
	if err != nil {
		return nil, "", err
	}
	return cats, f, nil
}

// validationMessage reports the first failed field of a validator error.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("%s failed %q validation", fe.Namespace(), fe.Tag())
	}
	return err.Error()
}

func describe(f domain.ExportFile) FileDescriptor {
	return FileDescriptor{
		ID:          f.ID,
		Filename:    f.Filename,
		MimeType:    f.MimeType,
		Size:        f.Size(),
		CreatedAt:   f.CreatedAt,
		DownloadURL: "/exports/files/" + f.ID.String(),
	}
}

func writeAttachment(w http.ResponseWriter, filename, mimeType string, content []byte) {
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}
