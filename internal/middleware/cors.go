// Package middleware provides the HTTP middleware chain for the export API:
// request logging, CORS, body limits, Firebase authentication and project
// selection.
package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// ProjectHeader carries the caller's selected project.
const ProjectHeader = "X-Project-ID"

// NewCORSHandler returns a middleware that applies CORS headers based on allowedOrigins.
// Each entry in allowedOrigins must be a full origin (scheme + host, no trailing slash).
// Content-Disposition is exposed so browsers can read download filenames.
func NewCORSHandler(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", ProjectHeader},
		ExposedHeaders: []string{"Content-Disposition"},
	})
	return c.Handler
}
