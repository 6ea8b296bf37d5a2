// Package authz is the pure authorization engine. It decides allow/deny
// from the fixed five-role hierarchy and the tenant-scoping rule; it has
// no side effects and never touches the store. Callers attach audit
// entries to its decisions.
package authz

import (
	"github.com/google/uuid"

	"github.com/aegis-hr/aegis-identity/internal/identity"
	"github.com/aegis-hr/aegis-identity/internal/token"
)

// ScopeMode controls how a capability treats the target tenant.
type ScopeMode int

const (
	// ScopeGlobal ignores the target tenant; platform tiers only in
	// practice, since MinRole on global capabilities is platform-tier.
	ScopeGlobal ScopeMode = iota
	// ScopeTenant requires the actor's tenant to equal the target tenant
	// unless the actor holds a platform-tier role.
	ScopeTenant
)

// Capability is a named permission check: a minimum role rank plus a
// tenant-scoping mode.
type Capability struct {
	Name    string
	MinRole identity.Role
	Scope   ScopeMode
}

// Capabilities used across the service.
var (
	CapTenantsManage    = Capability{Name: "tenants.manage", MinRole: identity.RolePlatformAdmin, Scope: ScopeGlobal}
	CapAuditView        = Capability{Name: "audit.view", MinRole: identity.RolePlatformAdmin, Scope: ScopeGlobal}
	CapApprovalsReview  = Capability{Name: "approvals.review", MinRole: identity.RoleCompanyAdmin, Scope: ScopeTenant}
	CapPrincipalsView   = Capability{Name: "principals.view", MinRole: identity.RoleEmployee, Scope: ScopeTenant}
	CapPrincipalsManage = Capability{Name: "principals.manage", MinRole: identity.RoleCompanyAdmin, Scope: ScopeTenant}
)

// Denial reasons carried on Decision and surfaced machine-readable.
const (
	ReasonInsufficientRole  = "insufficient_role"
	ReasonTenantMismatch    = "tenant_mismatch"
	ReasonRoleCannotApprove = "role_cannot_approve_target_role"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision             { return Decision{Allowed: true} }
func deny(reason string) Decision { return Decision{Reason: reason} }

// Authorize checks the actor's claims against a capability and target
// tenant. Rank is checked first, then tenant scoping.
func Authorize(actor token.Claims, cap Capability, targetTenant uuid.UUID) Decision {
	if actor.Role.Rank() < cap.MinRole.Rank() {
		return deny(ReasonInsufficientRole)
	}
	if cap.Scope == ScopeTenant && !actor.Scope().Allows(targetTenant) {
		return deny(ReasonTenantMismatch)
	}
	return allow()
}

// CanReviewRole is the capability-specific refinement for approval
// actions: rank alone is necessary but not sufficient. A company_admin
// reviews only employee requests, a company_super_admin reviews employee
// and company_admin requests, and only platform tiers review
// company_super_admin requests.
func CanReviewRole(actor identity.Role, requested identity.Role) bool {
	switch actor {
	case identity.RolePlatformSuperAdmin, identity.RolePlatformAdmin:
		return requested.Valid() && !requested.PlatformTier()
	case identity.RoleCompanySuperAdmin:
		return requested == identity.RoleEmployee || requested == identity.RoleCompanyAdmin
	case identity.RoleCompanyAdmin:
		return requested == identity.RoleEmployee
	default:
		return false
	}
}

// AuthorizeReview combines the rank/scope check with the review-target
// refinement. Visibility and approval eligibility are the same predicate;
// there is no see-but-not-decide permission.
func AuthorizeReview(actor token.Claims, requestTenant uuid.UUID, requestedRole identity.Role) Decision {
	if d := Authorize(actor, CapApprovalsReview, requestTenant); !d.Allowed {
		return d
	}
	if !CanReviewRole(actor.Role, requestedRole) {
		return deny(ReasonRoleCannotApprove)
	}
	return allow()
}
