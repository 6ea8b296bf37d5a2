package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aegis-hr/aegis-identity/internal/platform/httpx"
	"github.com/aegis-hr/aegis-identity/internal/token"
)

// RequireAuth verifies the bearer token and stores the claims in the
// request context. Expired and malformed tokens both reject with 401;
// only the detail text differs.
func RequireAuth(tokens *token.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
				return
			}
			claims, err := tokens.Verify(raw)
			if err != nil {
				detail := "invalid token"
				if errors.Is(err, token.ErrExpired) {
					detail = "token expired"
				}
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", detail)
				return
			}
			next.ServeHTTP(w, r.WithContext(token.ContextWithClaims(r.Context(), claims)))
		})
	}
}
