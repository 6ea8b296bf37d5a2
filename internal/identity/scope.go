package identity

import "github.com/google/uuid"

// Scope is the tenant visibility of an actor. Every list/read/write over
// tenant-scoped records must pass through it; omitting the filter is the
// cross-tenant leakage bug class, so it is computed once here and reused,
// never inlined per call site.
type Scope struct {
	// All grants cross-tenant visibility (platform tiers only).
	All bool
	// TenantID restricts visibility when All is false.
	TenantID uuid.UUID
}

// ScopeFor derives the visibility scope for an actor.
func ScopeFor(role Role, tenantID uuid.UUID) Scope {
	if role.PlatformTier() {
		return Scope{All: true}
	}
	return Scope{TenantID: tenantID}
}

// Allows reports whether a record in the given tenant is visible.
func (s Scope) Allows(tenantID uuid.UUID) bool {
	return s.All || s.TenantID == tenantID
}
