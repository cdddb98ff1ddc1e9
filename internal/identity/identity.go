// Package identity answers "who is exporting" and "for which project".
//
// HTTP requests carry the caller in the request context (set by the auth
// and project middleware); the CLI uses Static with values from flags.
package identity

import (
	"context"
	"fmt"
	"strings"

	"firebase.google.com/go/v4/auth"

	"github.com/pkordes/community-admin/backend/internal/domain"
)

// UserResolver reports the authenticated user.
type UserResolver interface {
	// CurrentUserID returns domain.ErrNotAuthenticated when nobody is signed in.
	CurrentUserID(ctx context.Context) (string, error)
	IsAdmin(ctx context.Context) bool
}

// ProjectResolver reports the selected project.
type ProjectResolver interface {
	// CurrentProjectID returns domain.ErrNoProjectSelected when no project is selected.
	CurrentProjectID(ctx context.Context) (string, error)
}

// TokenVerifier verifies Firebase ID tokens. *auth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// AdminClaim is the custom claim that marks an administrator.
const AdminClaim = "admin"

// Principal is an authenticated caller.
type Principal struct {
	UID   string
	Admin bool
}

// PrincipalFromToken builds a Principal from a verified token.
// The admin flag is read from the boolean AdminClaim custom claim.
func PrincipalFromToken(tok *auth.Token) Principal {
	p := Principal{UID: tok.UID}
	if v, ok := tok.Claims[AdminClaim].(bool); ok {
		p.Admin = v
	}
	return p
}

type ctxKey int

const (
	principalKey ctxKey = iota
	projectKey
)

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom returns the Principal stored in ctx, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok && p.UID != ""
}

// WithProject stores the selected project id in ctx.
func WithProject(ctx context.Context, projectID string) context.Context {
	return context.WithValue(ctx, projectKey, strings.TrimSpace(projectID))
}

// ProjectFrom returns the project id stored in ctx, if any.
func ProjectFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(projectKey).(string)
	return id, ok && id != ""
}

// Context resolves identity and project from the request context.
type Context struct{}

// CurrentUserID implements UserResolver.
func (Context) CurrentUserID(ctx context.Context) (string, error) {
	p, ok := PrincipalFrom(ctx)
	if !ok {
		return "", fmt.Errorf("identity.Context.CurrentUserID: %w", domain.ErrNotAuthenticated)
	}
	return p.UID, nil
}

// IsAdmin implements UserResolver.
func (Context) IsAdmin(ctx context.Context) bool {
	p, ok := PrincipalFrom(ctx)
	return ok && p.Admin
}

// CurrentProjectID implements ProjectResolver.
func (Context) CurrentProjectID(ctx context.Context) (string, error) {
	id, ok := ProjectFrom(ctx)
	if !ok {
		return "", fmt.Errorf("identity.Context.CurrentProjectID: %w", domain.ErrNoProjectSelected)
	}
	return id, nil
}

// Static is a fixed identity, used by the command-line exporter where the
// operator is trusted.
type Static struct {
	UserID    string
	ProjectID string
	Admin     bool
}

// CurrentUserID implements UserResolver.
func (s Static) CurrentUserID(context.Context) (string, error) {
	if strings.TrimSpace(s.UserID) == "" {
		return "", fmt.Errorf("identity.Static.CurrentUserID: %w", domain.ErrNotAuthenticated)
	}
	return s.UserID, nil
}

// IsAdmin implements UserResolver.
func (s Static) IsAdmin(context.Context) bool { return s.Admin }

// CurrentProjectID implements ProjectResolver.
func (s Static) CurrentProjectID(context.Context) (string, error) {
	if strings.TrimSpace(s.ProjectID) == "" {
		return "", fmt.Errorf("identity.Static.CurrentProjectID: %w", domain.ErrNoProjectSelected)
	}
	return s.ProjectID, nil
}
