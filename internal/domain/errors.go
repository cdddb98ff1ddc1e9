package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when caller input fails validation
// (unknown category, unsupported format, empty user id).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrNotAuthenticated is a precondition failure: no signed-in user.
// It aborts an export call before any fetch begins.
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrNoProjectSelected is a precondition failure: no project is selected
// for a project-scoped export.
var ErrNoProjectSelected = errors.New("no project selected")

// ErrForbidden is returned when the caller may not export another user's data.
var ErrForbidden = errors.New("forbidden")

// ErrSerialization wraps encoder failures. It fails only the unit being
// serialized, never the whole batch.
var ErrSerialization = errors.New("serialization error")

// ErrDelivery wraps sink failures. The batch exporter treats it like
// ErrSerialization.
var ErrDelivery = errors.New("delivery error")
