package middleware

import (
	"net/http"
	"strings"

	"github.com/pkordes/community-admin/backend/internal/domain"
	"github.com/pkordes/community-admin/backend/internal/identity"
)

// NewProjectSelector copies the X-Project-ID header into the request
// context. A missing header is not an error here: exports that need a
// project fail later with domain.ErrNoProjectSelected. A header that is not
// a single path segment is rejected with 400.
func NewProjectSelector() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := strings.TrimSpace(r.Header.Get(ProjectHeader)); id != "" {
				if !domain.ValidDocumentID(id) {
					writeError(w, http.StatusBadRequest, "invalid_project", "invalid project id")
					return
				}
				AddLogAttr(r.Context(), "project_id", id)
				r = r.WithContext(identity.WithProject(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}
