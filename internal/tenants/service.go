package tenants

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/aegis-hr/aegis-identity/internal/audit"
	"github.com/aegis-hr/aegis-identity/internal/authz"
	"github.com/aegis-hr/aegis-identity/internal/identity"
	"github.com/aegis-hr/aegis-identity/internal/shared"
	"github.com/aegis-hr/aegis-identity/internal/token"
)

// Service wraps tenant management for platform staff. Tenants are also
// created implicitly by self-registration; that path lives in the
// approval workflow so the pair lands atomically.
type Service struct {
	repo     Repository
	resolver *Resolver
	recorder audit.Recorder
}

// NewService constructs a Service.
func NewService(repo Repository, resolver *Resolver, recorder audit.Recorder) *Service {
	return &Service{repo: repo, resolver: resolver, recorder: recorder}
}

// CreateInput describes a direct tenant creation by platform staff.
type CreateInput struct {
	Name   string `json:"name" validate:"required,min=2"`
	Domain string `json:"domain" validate:"required,fqdn"`
}

// Create registers a tenant as active. Platform-tier only.
func (s *Service) Create(ctx context.Context, actor token.Claims, in CreateInput) (identity.Tenant, error) {
	if d := authz.Authorize(actor, authz.CapTenantsManage, uuid.Nil); !d.Allowed {
		return identity.Tenant{}, fmt.Errorf("%w: %s", shared.ErrForbidden, d.Reason)
	}
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Domain) == "" {
		return identity.Tenant{}, fmt.Errorf("%w: name and domain required", shared.ErrValidation)
	}
	tenant, err := s.repo.Create(ctx, identity.Tenant{
		Name:   strings.TrimSpace(in.Name),
		Domain: in.Domain,
		Status: identity.TenantActive,
	})
	if err != nil {
		return identity.Tenant{}, err
	}
	s.recorder.Record(ctx, audit.Entry{
		ActorID:  actor.SubjectID,
		TenantID: tenant.ID,
		Action:   "tenant.create",
		Entity:   "tenant",
		EntityID: tenant.ID.String(),
		Decision: "allow",
	})
	return tenant, nil
}

// Get fetches a tenant visible to the actor.
func (s *Service) Get(ctx context.Context, actor token.Claims, id uuid.UUID) (identity.Tenant, error) {
	if !actor.Scope().Allows(id) {
		return identity.Tenant{}, fmt.Errorf("%w: %s", shared.ErrForbidden, authz.ReasonTenantMismatch)
	}
	return s.repo.Get(ctx, id)
}

// List returns all tenants. Platform-tier only.
func (s *Service) List(ctx context.Context, actor token.Claims, page shared.Pagination) ([]identity.Tenant, shared.Pagination, error) {
	if d := authz.Authorize(actor, authz.CapTenantsManage, uuid.Nil); !d.Allowed {
		return nil, shared.Pagination{}, fmt.Errorf("%w: %s", shared.ErrForbidden, d.Reason)
	}
	page = shared.NewPagination(page.Page, page.PerPage, 0)
	result, total, err := s.repo.List(ctx, page)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return result, shared.NewPagination(page.Page, page.PerPage, total), nil
}

// SetStatus suspends or reactivates a tenant. Platform-tier only. The
// domain cache entry is dropped so logins observe the change promptly.
func (s *Service) SetStatus(ctx context.Context, actor token.Claims, id uuid.UUID, status identity.TenantStatus) (identity.Tenant, error) {
	if d := authz.Authorize(actor, authz.CapTenantsManage, uuid.Nil); !d.Allowed {
		return identity.Tenant{}, fmt.Errorf("%w: %s", shared.ErrForbidden, d.Reason)
	}
	switch status {
	case identity.TenantActive, identity.TenantSuspended:
	default:
		return identity.Tenant{}, fmt.Errorf("%w: status must be active or suspended", shared.ErrValidation)
	}
	if err := s.repo.SetStatus(ctx, id, status); err != nil {
		return identity.Tenant{}, err
	}
	tenant, err := s.repo.Get(ctx, id)
	if err != nil {
		return identity.Tenant{}, err
	}
	if s.resolver != nil {
		s.resolver.Invalidate(ctx, tenant.Domain)
	}
	s.recorder.Record(ctx, audit.Entry{
		ActorID:  actor.SubjectID,
		TenantID: tenant.ID,
		Action:   "tenant.status." + string(status),
		Entity:   "tenant",
		EntityID: tenant.ID.String(),
		Decision: "allow",
	})
	return tenant, nil
}
