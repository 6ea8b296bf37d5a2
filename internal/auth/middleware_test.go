package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/aegis-hr/aegis-identity/internal/identity"
	"github.com/aegis-hr/aegis-identity/internal/token"
)

func TestRequireAuth(t *testing.T) {
	tokens, err := token.NewService("test-secret", "aegis-test", time.Hour)
	require.NoError(t, err)

	var captured token.Claims
	handler := RequireAuth(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := token.ClaimsFromContext(r.Context())
		require.True(t, ok)
		captured = claims
		w.WriteHeader(http.StatusOK)
	}))

	principal := identity.Principal{
		ID:       uuid.New(),
		TenantID: uuid.New(),
		Role:     identity.RoleCompanyAdmin,
	}
	raw, err := tokens.Issue(principal)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, principal.ID, captured.SubjectID)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Contains(t, rr.Body.String(), "missing bearer token")

	expiring, err := token.NewService("test-secret", "aegis-test", -time.Minute)
	require.NoError(t, err)
	stale, err := expiring.Issue(principal)
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+stale)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Contains(t, rr.Body.String(), "token expired")
}
