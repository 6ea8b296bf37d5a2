package token_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/aegis-hr/aegis-identity/internal/identity"
	"github.com/aegis-hr/aegis-identity/internal/token"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	svc, err := token.NewService("test-secret", "aegis-test", time.Hour)
	require.NoError(t, err)

	principal := identity.Principal{
		ID:       uuid.New(),
		TenantID: uuid.New(),
		Role:     identity.RoleCompanySuperAdmin,
	}
	raw, err := svc.Issue(principal)
	require.NoError(t, err)

	claims, err := svc.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, principal.ID, claims.SubjectID)
	require.Equal(t, principal.TenantID, claims.TenantID)
	require.Equal(t, principal.Role, claims.Role)
	require.True(t, claims.ExpireAt.After(time.Now()))
}

func TestIssueVerifyPlatformPrincipal(t *testing.T) {
	svc, err := token.NewService("test-secret", "aegis-test", time.Hour)
	require.NoError(t, err)

	raw, err := svc.Issue(identity.Principal{ID: uuid.New(), Role: identity.RolePlatformAdmin})
	require.NoError(t, err)

	claims, err := svc.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, uuid.Nil, claims.TenantID)
	require.True(t, claims.Scope().All)
}

func TestVerifyExpired(t *testing.T) {
	// Negative TTL mints tokens that are already past expiry.
	svc, err := token.NewService("test-secret", "aegis-test", -time.Minute)
	require.NoError(t, err)

	raw, err := svc.Issue(identity.Principal{ID: uuid.New(), TenantID: uuid.New(), Role: identity.RoleEmployee})
	require.NoError(t, err)

	_, err = svc.Verify(raw)
	require.ErrorIs(t, err, token.ErrExpired)
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer, err := token.NewService("secret-a", "aegis-test", time.Hour)
	require.NoError(t, err)
	verifier, err := token.NewService("secret-b", "aegis-test", time.Hour)
	require.NoError(t, err)

	raw, err := issuer.Issue(identity.Principal{ID: uuid.New(), TenantID: uuid.New(), Role: identity.RoleEmployee})
	require.NoError(t, err)

	_, err = verifier.Verify(raw)
	require.ErrorIs(t, err, token.ErrInvalid)
}

func TestVerifyGarbage(t *testing.T) {
	svc, err := token.NewService("test-secret", "aegis-test", time.Hour)
	require.NoError(t, err)

	_, err = svc.Verify("not.a.token")
	require.ErrorIs(t, err, token.ErrInvalid)
}

func TestVerifyRejectsTenantRoleMismatch(t *testing.T) {
	svc, err := token.NewService("test-secret", "aegis-test", time.Hour)
	require.NoError(t, err)

	// A tenant-bound role with no tenant claim must not verify.
	raw, err := svc.Issue(identity.Principal{ID: uuid.New(), Role: identity.RoleEmployee})
	require.NoError(t, err)

	_, err = svc.Verify(raw)
	require.ErrorIs(t, err, token.ErrInvalid)
}
