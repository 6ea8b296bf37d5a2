package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/aegis-hr/aegis-identity/internal/audit"
	"github.com/aegis-hr/aegis-identity/internal/identity"
	"github.com/aegis-hr/aegis-identity/internal/password"
	"github.com/aegis-hr/aegis-identity/internal/shared"
	"github.com/aegis-hr/aegis-identity/internal/token"
)

// RoleSet declares which roles a login entry point accepts. The separate
// login endpoints double as a coarse role filter before the authorization
// engine ever runs.
type RoleSet []identity.Role

// Contains reports whether the role is in the set.
func (s RoleSet) Contains(role identity.Role) bool {
	for _, r := range s {
		if r == role {
			return true
		}
	}
	return false
}

// TenantResolver resolves a tenant by domain; satisfied by tenants.Resolver.
type TenantResolver interface {
	ByDomain(ctx context.Context, domain string) (identity.Tenant, error)
}

// Service resolves login attempts against the identity store.
type Service struct {
	principals identity.Repository
	resolver   TenantResolver
	tokens     *token.Service
	recorder   audit.Recorder
}

// NewService constructs a Service.
func NewService(principals identity.Repository, resolver TenantResolver, tokens *token.Service, recorder audit.Recorder) *Service {
	return &Service{principals: principals, resolver: resolver, tokens: tokens, recorder: recorder}
}

// LoginInput carries one authentication attempt. An empty TenantDomain
// addresses the platform (tenant-less) namespace.
type LoginInput struct {
	Email        string
	TenantDomain string
	Password     string
}

// Login verifies credentials and mints a token. Every failure cause
// (unknown tenant, unknown email, pending approval, deactivated account,
// wrong password, role outside the endpoint's set) collapses into the
// same ErrInvalidCredentials so callers cannot enumerate accounts.
func (s *Service) Login(ctx context.Context, in LoginInput, allowed RoleSet) (string, identity.Principal, error) {
	tenantID := uuid.Nil
	if in.TenantDomain != "" {
		tenant, err := s.resolver.ByDomain(ctx, in.TenantDomain)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				password.CompareDummy(in.Password)
				return "", identity.Principal{}, shared.ErrInvalidCredentials
			}
			return "", identity.Principal{}, err
		}
		if tenant.Status != identity.TenantActive {
			password.CompareDummy(in.Password)
			return "", identity.Principal{}, shared.ErrInvalidCredentials
		}
		tenantID = tenant.ID
	}

	principal, err := s.principals.GetPrincipalByEmail(ctx, tenantID, in.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Burn the same bcrypt work a real comparison would take so
			// an unknown email is not distinguishable by timing.
			password.CompareDummy(in.Password)
			s.recordLogin(ctx, identity.Principal{TenantID: tenantID}, "deny")
			return "", identity.Principal{}, shared.ErrInvalidCredentials
		}
		return "", identity.Principal{}, err
	}
	matched := password.Compare(principal.PasswordHash, in.Password)
	if !matched || !principal.CanLogin() || !allowed.Contains(principal.Role) {
		s.recordLogin(ctx, principal, "deny")
		return "", identity.Principal{}, shared.ErrInvalidCredentials
	}

	raw, err := s.tokens.Issue(principal)
	if err != nil {
		return "", identity.Principal{}, err
	}
	s.recordLogin(ctx, principal, "allow")
	return raw, principal, nil
}

// Refresh re-verifies the incoming token, re-checks the principal's
// current active/approved status, and only then issues a fresh token.
// This is where revocation-by-deactivation is caught; Verify alone is
// stateless and never hits the store.
func (s *Service) Refresh(ctx context.Context, raw string) (string, error) {
	claims, err := s.tokens.Verify(raw)
	if err != nil {
		return "", err
	}
	principal, err := s.principals.GetPrincipal(ctx, claims.SubjectID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", shared.ErrInvalidCredentials
		}
		return "", err
	}
	if !principal.CanLogin() {
		s.recordLogin(ctx, principal, "deny")
		return "", shared.ErrInvalidCredentials
	}
	return s.tokens.Issue(principal)
}

func (s *Service) recordLogin(ctx context.Context, principal identity.Principal, decision string) {
	entry := audit.Entry{
		TenantID: principal.TenantID,
		Action:   "auth.login",
		Entity:   "principal",
		EntityID: principal.ID.String(),
		Decision: decision,
	}
	if decision == "allow" {
		entry.ActorID = principal.ID
	}
	s.recorder.Record(ctx, entry)
}
