package identity

import (
	"time"

	"github.com/google/uuid"
)

// Role is one of the five privilege tiers. Platform tiers carry no tenant
// affiliation; every other role is bound to exactly one tenant.
type Role string

const (
	RolePlatformSuperAdmin Role = "platform_super_admin"
	RolePlatformAdmin      Role = "platform_admin"
	RoleCompanySuperAdmin  Role = "company_super_admin"
	RoleCompanyAdmin       Role = "company_admin"
	RoleEmployee           Role = "employee"
)

// Rank returns the position of the role in the privilege order, highest
// first. Unknown roles rank below every valid role.
func (r Role) Rank() int {
	switch r {
	case RolePlatformSuperAdmin:
		return 5
	case RolePlatformAdmin:
		return 4
	case RoleCompanySuperAdmin:
		return 3
	case RoleCompanyAdmin:
		return 2
	case RoleEmployee:
		return 1
	default:
		return 0
	}
}

// Valid reports whether the role is one of the five known tiers.
func (r Role) Valid() bool {
	return r.Rank() > 0
}

// PlatformTier reports whether the role is global (tenant-less).
func (r Role) PlatformTier() bool {
	return r == RolePlatformAdmin || r == RolePlatformSuperAdmin
}

// TenantStatus is the lifecycle state of a tenant.
type TenantStatus string

const (
	TenantPending   TenantStatus = "pending"
	TenantActive    TenantStatus = "active"
	TenantSuspended TenantStatus = "suspended"
)

// Tenant is an isolated customer organization.
type Tenant struct {
	ID        uuid.UUID
	Name      string
	Domain    string
	Status    TenantStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ApprovalStatus is the review state of a principal's registration.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Principal is an account that can authenticate. TenantID is uuid.Nil for
// platform-tier principals.
type Principal struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	Email          string
	PasswordHash   string
	Role           Role
	IsActive       bool
	ApprovalStatus ApprovalStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CanLogin reports whether the account is allowed to obtain a token.
// A principal parked pending review must never authenticate.
func (p Principal) CanLogin() bool {
	return p.IsActive && p.ApprovalStatus == ApprovalApproved
}
