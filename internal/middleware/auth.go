package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/pkordes/community-admin/backend/internal/identity"
)

// NewAuthenticator verifies the Firebase ID token in the Authorization
// header and stores the caller in the request context. Requests without a
// valid bearer token get 401 and never reach next.
func NewAuthenticator(verifier identity.TokenVerifier, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeError(w, http.StatusUnauthorized, "not_authenticated", "missing bearer token")
				return
			}

			tok, err := verifier.VerifyIDToken(r.Context(), token)
			if err != nil {
				log.WarnContext(r.Context(), "id token rejected", "error", err)
				writeError(w, http.StatusUnauthorized, "not_authenticated", "invalid or expired token")
				return
			}

			p := identity.PrincipalFromToken(tok)
			AddLogAttr(r.Context(), "user_id", p.UID)
			next.ServeHTTP(w, r.WithContext(identity.WithPrincipal(r.Context(), p)))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
