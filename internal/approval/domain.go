package approval

import (
	"time"

	"github.com/google/uuid"

	"github.com/aegis-hr/aegis-identity/internal/identity"
)

// RequestType distinguishes how the registration entered the system.
type RequestType string

const (
	// TypeNewSignup marks a self-registration creating a tenant and its
	// first company_super_admin as a pair.
	TypeNewSignup RequestType = "new_signup"
	// TypeAdminCreated marks a principal created by an authorized admin.
	TypeAdminCreated RequestType = "admin_created"
)

// Outcome is a terminal resolution of a request.
type Outcome string

const (
	OutcomeApproved Outcome = "approved"
	OutcomeRejected Outcome = "rejected"
)

// Request gates the activation of a newly created principal. It is
// created atomically with its subject and permits exactly one terminal
// transition: pending to approved, or pending to rejected.
type Request struct {
	ID              uuid.UUID
	PrincipalID     uuid.UUID
	TenantID        uuid.UUID
	RequestedRole   identity.Role
	Type            RequestType
	Status          identity.ApprovalStatus
	ReviewedBy      *uuid.UUID
	ResolvedAt      *time.Time
	RejectionReason string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
