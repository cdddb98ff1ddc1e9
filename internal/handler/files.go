package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/community-admin/backend/internal/domain"
	"github.com/pkordes/community-admin/backend/internal/identity"
)

// GetExportFile handles GET /exports/files/{id}.
// Files belong to the user who ran the batch; anyone else gets 404.
func (s *Server) GetExportFile(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.PrincipalFrom(r.Context())
	if !ok {
		s.writeServiceError(w, r, domain.ErrNotAuthenticated)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "file not found")
		return
	}

	file, err := s.files.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "file not found")
			return
		}
		s.writeServiceError(w, r, err)
		return
	}
	if file.CreatedBy != p.UID {
		writeError(w, http.StatusNotFound, "not_found", "file not found")
		return
	}

	writeAttachment(w, file.Filename, file.MimeType, file.Content)
}

// ListBatchFilesResponse is the body of GET /exports/batches/{batchId}/files.
type ListBatchFilesResponse struct {
	BatchID uuid.UUID        `json:"batchId"`
	Files   []FileDescriptor `json:"files"`
}

// ListBatchFiles handles GET /exports/batches/{batchId}/files.
func (s *Server) ListBatchFiles(w http.ResponseWriter, r *http.Request) {
	batchID, files, ok := s.ownedBatch(w, r)
	if !ok {
		return
	}
	resp := ListBatchFilesResponse{BatchID: batchID, Files: make([]FileDescriptor, len(files))}
	for i, f := range files {
		resp.Files[i] = describe(f)
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeleteBatch handles DELETE /exports/batches/{batchId}.
func (s *Server) DeleteBatch(w http.ResponseWriter, r *http.Request) {
	batchID, _, ok := s.ownedBatch(w, r)
	if !ok {
		return
	}
	n, err := s.files.DeleteBatch(r.Context(), batchID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.log.InfoContext(r.Context(), "export batch deleted", "batch_id", batchID, "files", n)
	w.WriteHeader(http.StatusNoContent)
}

// ownedBatch loads a batch's file list and checks that the caller owns
// every file in it. Unknown and foreign batches both answer 404.
func (s *Server) ownedBatch(w http.ResponseWriter, r *http.Request) (uuid.UUID, []domain.ExportFile, bool) {
	p, ok := identity.PrincipalFrom(r.Context())
	if !ok {
		s.writeServiceError(w, r, domain.ErrNotAuthenticated)
		return uuid.Nil, nil, false
	}
	batchID, err := uuid.Parse(chi.URLParam(r, "batchId"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "batch not found")
		return uuid.Nil, nil, false
	}

	files, err := s.files.ListByBatch(r.Context(), batchID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return uuid.Nil, nil, false
	}
	if len(files) == 0 {
		writeError(w, http.StatusNotFound, "not_found", "batch not found")
		return uuid.Nil, nil, false
	}
	for _, f := range files {
		if f.CreatedBy != p.UID {
			writeError(w, http.StatusNotFound, "not_found", "batch not found")
			return uuid.Nil, nil, false
		}
	}
	return batchID, files, true
}
