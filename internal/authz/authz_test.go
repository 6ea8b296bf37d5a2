package authz_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/aegis-hr/aegis-identity/internal/authz"
	"github.com/aegis-hr/aegis-identity/internal/identity"
	"github.com/aegis-hr/aegis-identity/internal/token"
)

var allRoles = []identity.Role{
	identity.RoleEmployee,
	identity.RoleCompanyAdmin,
	identity.RoleCompanySuperAdmin,
	identity.RolePlatformAdmin,
	identity.RolePlatformSuperAdmin,
}

func claimsFor(role identity.Role, tenant uuid.UUID) token.Claims {
	if role.PlatformTier() {
		return token.Claims{SubjectID: uuid.New(), Role: role}
	}
	return token.Claims{SubjectID: uuid.New(), TenantID: tenant, Role: role}
}

// A lower-ranked actor is never granted a capability requiring a higher
// minimum rank, for every role pair.
func TestRankIsNecessary(t *testing.T) {
	tenant := uuid.New()
	for _, actorRole := range allRoles {
		for _, minRole := range allRoles {
			cap := authz.Capability{Name: "test", MinRole: minRole, Scope: authz.ScopeTenant}
			d := authz.Authorize(claimsFor(actorRole, tenant), cap, tenant)
			if actorRole.Rank() < minRole.Rank() {
				require.False(t, d.Allowed, "%s vs min %s", actorRole, minRole)
				require.Equal(t, authz.ReasonInsufficientRole, d.Reason)
			} else {
				require.True(t, d.Allowed, "%s vs min %s", actorRole, minRole)
			}
		}
	}
}

// Tenant-scoped capabilities deny cross-tenant access unless the actor is
// platform-tier.
func TestTenantScoping(t *testing.T) {
	tenantX := uuid.New()
	tenantY := uuid.New()
	cap := authz.Capability{Name: "test", MinRole: identity.RoleEmployee, Scope: authz.ScopeTenant}

	for _, role := range allRoles {
		d := authz.Authorize(claimsFor(role, tenantX), cap, tenantY)
		if role.PlatformTier() {
			require.True(t, d.Allowed, "%s bypasses scoping", role)
		} else {
			require.False(t, d.Allowed, "%s must not cross tenants", role)
			require.Equal(t, authz.ReasonTenantMismatch, d.Reason)
		}
	}
}

func TestGlobalCapabilityIgnoresTargetTenant(t *testing.T) {
	d := authz.Authorize(claimsFor(identity.RolePlatformAdmin, uuid.Nil), authz.CapTenantsManage, uuid.New())
	require.True(t, d.Allowed)

	d = authz.Authorize(claimsFor(identity.RoleCompanySuperAdmin, uuid.New()), authz.CapTenantsManage, uuid.Nil)
	require.False(t, d.Allowed)
	require.Equal(t, authz.ReasonInsufficientRole, d.Reason)
}

func TestCanReviewRole(t *testing.T) {
	expect := map[identity.Role][]identity.Role{
		identity.RoleEmployee:          {},
		identity.RoleCompanyAdmin:      {identity.RoleEmployee},
		identity.RoleCompanySuperAdmin: {identity.RoleEmployee, identity.RoleCompanyAdmin},
		identity.RolePlatformAdmin:     {identity.RoleEmployee, identity.RoleCompanyAdmin, identity.RoleCompanySuperAdmin},
		identity.RolePlatformSuperAdmin: {
			identity.RoleEmployee, identity.RoleCompanyAdmin, identity.RoleCompanySuperAdmin,
		},
	}
	for actor, reviewable := range expect {
		allowed := make(map[identity.Role]bool, len(reviewable))
		for _, r := range reviewable {
			allowed[r] = true
		}
		for _, requested := range allRoles {
			require.Equal(t, allowed[requested], authz.CanReviewRole(actor, requested),
				"actor %s requested %s", actor, requested)
		}
	}
}

// A company_admin resolving a company_super_admin registration is denied
// with the approval-specific reason even though rank and tenant match the
// base capability.
func TestAuthorizeReviewRefinement(t *testing.T) {
	tenant := uuid.New()
	actor := claimsFor(identity.RoleCompanyAdmin, tenant)

	d := authz.AuthorizeReview(actor, tenant, identity.RoleCompanySuperAdmin)
	require.False(t, d.Allowed)
	require.Equal(t, authz.ReasonRoleCannotApprove, d.Reason)

	d = authz.AuthorizeReview(actor, tenant, identity.RoleEmployee)
	require.True(t, d.Allowed)

	d = authz.AuthorizeReview(actor, uuid.New(), identity.RoleEmployee)
	require.False(t, d.Allowed)
	require.Equal(t, authz.ReasonTenantMismatch, d.Reason)
}
