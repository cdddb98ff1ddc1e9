package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/community-admin/backend/spec"
)

// Routes mounts every endpoint on a chi router. /healthz and /openapi.yaml
// are public; the /exports tree runs behind protect (authentication and
// project selection in production).
func (s *Server) Routes(protect ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", serveOpenAPI)

	r.Route("/exports", func(r chi.Router) {
		r.Use(protect...)
		r.Post("/", s.CreateExport)
		r.Get("/download", s.DownloadExport)
		r.Get("/files/{id}", s.GetExportFile)
		r.Get("/batches/{batchId}/files", s.ListBatchFiles)
		r.Delete("/batches/{batchId}", s.DeleteBatch)
	})
	return r
}

func serveOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(spec.OpenAPI)
}
