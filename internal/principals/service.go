package principals

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/aegis-hr/aegis-identity/internal/audit"
	"github.com/aegis-hr/aegis-identity/internal/authz"
	"github.com/aegis-hr/aegis-identity/internal/identity"
	"github.com/aegis-hr/aegis-identity/internal/shared"
	"github.com/aegis-hr/aegis-identity/internal/token"
)

// Service exposes the principal directory with tenant-scoped visibility
// and the admin controls over existing accounts.
type Service struct {
	repo     identity.Repository
	recorder audit.Recorder
}

// NewService constructs a Service.
func NewService(repo identity.Repository, recorder audit.Recorder) *Service {
	return &Service{repo: repo, recorder: recorder}
}

// ListResult is one page of the principal directory.
type ListResult struct {
	Principals []identity.Principal
	Pagination shared.Pagination
}

// List returns the directory page visible to the actor. Tenant-bound
// actors only ever see their own tenant regardless of requested scope.
func (s *Service) List(ctx context.Context, actor token.Claims, page shared.Pagination) (ListResult, error) {
	if d := authz.Authorize(actor, authz.CapPrincipalsView, actor.TenantID); !d.Allowed {
		return ListResult{}, fmt.Errorf("%w: %s", shared.ErrForbidden, d.Reason)
	}
	page = shared.NewPagination(page.Page, page.PerPage, 0)
	items, total, err := s.repo.ListPrincipals(ctx, actor.Scope(), page)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{
		Principals: items,
		Pagination: shared.NewPagination(page.Page, page.PerPage, total),
	}, nil
}

// Get returns a single principal if the actor's scope covers it.
func (s *Service) Get(ctx context.Context, actor token.Claims, id uuid.UUID) (identity.Principal, error) {
	principal, err := s.repo.GetPrincipal(ctx, id)
	if err != nil {
		return identity.Principal{}, err
	}
	if d := authz.Authorize(actor, authz.CapPrincipalsView, principal.TenantID); !d.Allowed {
		return identity.Principal{}, fmt.Errorf("%w: %s", shared.ErrForbidden, d.Reason)
	}
	return principal, nil
}

// SetActive flips a principal's active flag. Deactivation is the
// revocation path: refresh rejects tokens for inactive principals.
func (s *Service) SetActive(ctx context.Context, actor token.Claims, id uuid.UUID, active bool) (identity.Principal, error) {
	principal, err := s.manageTarget(ctx, actor, id)
	if err != nil {
		return identity.Principal{}, err
	}
	if err := s.repo.SetPrincipalActive(ctx, id, active); err != nil {
		return identity.Principal{}, err
	}
	principal.IsActive = active
	action := "principal.deactivate"
	if active {
		action = "principal.activate"
	}
	s.recorder.Record(ctx, audit.Entry{
		ActorID:  actor.SubjectID,
		TenantID: principal.TenantID,
		Action:   action,
		Entity:   "principal",
		EntityID: id.String(),
		Decision: "allow",
	})
	return principal, nil
}

// UpdateRole changes a principal's role. The actor must outrank or
// match both the current and the new role, and the new role must stay
// inside the tenant tier.
func (s *Service) UpdateRole(ctx context.Context, actor token.Claims, id uuid.UUID, role identity.Role) (identity.Principal, error) {
	if !role.Valid() || role.PlatformTier() {
		return identity.Principal{}, fmt.Errorf("%w: role must be a tenant role", shared.ErrValidation)
	}
	principal, err := s.manageTarget(ctx, actor, id)
	if err != nil {
		return identity.Principal{}, err
	}
	if role.Rank() > actor.Role.Rank() {
		return identity.Principal{}, fmt.Errorf("%w: %s", shared.ErrForbidden, authz.ReasonInsufficientRole)
	}
	if err := s.repo.UpdatePrincipalRole(ctx, id, role); err != nil {
		return identity.Principal{}, err
	}
	principal.Role = role
	s.recorder.Record(ctx, audit.Entry{
		ActorID:  actor.SubjectID,
		TenantID: principal.TenantID,
		Action:   "principal.role_change",
		Entity:   "principal",
		EntityID: id.String(),
		Decision: "allow",
		Meta:     map[string]any{"role": string(role)},
	})
	return principal, nil
}

// manageTarget loads the target and checks the management capability
// plus the rank ceiling shared by both admin mutations.
func (s *Service) manageTarget(ctx context.Context, actor token.Claims, id uuid.UUID) (identity.Principal, error) {
	principal, err := s.repo.GetPrincipal(ctx, id)
	if err != nil {
		return identity.Principal{}, err
	}
	if d := authz.Authorize(actor, authz.CapPrincipalsManage, principal.TenantID); !d.Allowed {
		return identity.Principal{}, fmt.Errorf("%w: %s", shared.ErrForbidden, d.Reason)
	}
	if principal.Role.Rank() > actor.Role.Rank() {
		return identity.Principal{}, fmt.Errorf("%w: %s", shared.ErrForbidden, authz.ReasonInsufficientRole)
	}
	if principal.ID == actor.SubjectID {
		return identity.Principal{}, fmt.Errorf("%w: cannot manage own account", shared.ErrForbidden)
	}
	return principal, nil
}
