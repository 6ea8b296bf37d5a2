package approval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aegis-hr/aegis-identity/internal/audit"
	"github.com/aegis-hr/aegis-identity/internal/authz"
	"github.com/aegis-hr/aegis-identity/internal/identity"
	"github.com/aegis-hr/aegis-identity/internal/password"
	"github.com/aegis-hr/aegis-identity/internal/shared"
	"github.com/aegis-hr/aegis-identity/internal/token"
)

// Notifier delivers resolution notices to the subject. Fire-and-forget.
type Notifier interface {
	NotifyResolution(ctx context.Context, email string, approved bool, reason string)
}

// NopNotifier discards notifications; used in tests.
type NopNotifier struct{}

// NotifyResolution implements Notifier.
func (NopNotifier) NotifyResolution(context.Context, string, bool, string) {}

// Service governs the approval workflow: registration intake, pending
// visibility, and terminal resolution.
type Service struct {
	repo        Repository
	recorder    audit.Recorder
	notifier    Notifier
	emailLookup SubjectEmailLookup
}

// NewService constructs a Service.
func NewService(repo Repository, recorder audit.Recorder, notifier Notifier) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Service{repo: repo, recorder: recorder, notifier: notifier}
}

// SignupInput is a self-registration creating a tenant and its first
// company_super_admin atomically.
type SignupInput struct {
	CompanyName string
	Domain      string
	Email       string
	Password    string
}

// SubmitSignup creates the tenant/super-admin pair parked pending review.
// Strength validation runs before anything is written so no pending
// account can exist with unusable credentials.
func (s *Service) SubmitSignup(ctx context.Context, in SignupInput) (Request, error) {
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	in.Domain = shared.CanonDomain(in.Domain)
	in.Email = shared.CanonEmail(in.Email)
	if in.CompanyName == "" || in.Domain == "" || in.Email == "" {
		return Request{}, fmt.Errorf("%w: company name, domain and email required", shared.ErrValidation)
	}
	if err := password.Validate(in.Password); err != nil {
		return Request{}, err
	}
	hash, err := password.Hash(in.Password)
	if err != nil {
		return Request{}, err
	}

	now := time.Now().UTC()
	tenant := identity.Tenant{
		ID:        uuid.New(),
		Name:      in.CompanyName,
		Domain:    in.Domain,
		Status:    identity.TenantPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	principal := identity.Principal{
		ID:             uuid.New(),
		TenantID:       tenant.ID,
		Email:          in.Email,
		PasswordHash:   hash,
		Role:           identity.RoleCompanySuperAdmin,
		IsActive:       false,
		ApprovalStatus: identity.ApprovalPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	request := Request{
		ID:            uuid.New(),
		PrincipalID:   principal.ID,
		TenantID:      tenant.ID,
		RequestedRole: identity.RoleCompanySuperAdmin,
		Type:          TypeNewSignup,
		Status:        identity.ApprovalPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.CreateSignup(ctx, tenant, principal, request); err != nil {
		return Request{}, err
	}
	s.recorder.Record(ctx, audit.Entry{
		TenantID: tenant.ID,
		Action:   "approval.submit",
		Entity:   "approval_request",
		EntityID: request.ID.String(),
		Meta:     map[string]any{"requested_role": string(request.RequestedRole), "type": string(request.Type)},
	})
	return request, nil
}

// RegistrationInput is an admin-initiated account creation.
type RegistrationInput struct {
	Email    string
	Password string
	Role     identity.Role
	// TenantID selects the target tenant for platform-tier actors;
	// tenant-bound actors always create inside their own tenant.
	TenantID uuid.UUID
}

// SubmitRegistration creates a principal on behalf of an admin. When the
// actor could already have approved the requested role, the request is
// auto-approved at creation; an approval window would add nothing the
// rank check has not established. The request row is still written so
// the trail stays complete.
func (s *Service) SubmitRegistration(ctx context.Context, actor token.Claims, in RegistrationInput) (Request, identity.Principal, error) {
	in.Email = shared.CanonEmail(in.Email)
	if in.Email == "" {
		return Request{}, identity.Principal{}, fmt.Errorf("%w: email required", shared.ErrValidation)
	}
	if !in.Role.Valid() || in.Role.PlatformTier() {
		return Request{}, identity.Principal{}, fmt.Errorf("%w: role must be a tenant role", shared.ErrValidation)
	}
	if err := password.Validate(in.Password); err != nil {
		return Request{}, identity.Principal{}, err
	}

	tenantID := in.TenantID
	if !actor.Role.PlatformTier() {
		tenantID = actor.TenantID
	}
	if tenantID == uuid.Nil {
		return Request{}, identity.Principal{}, fmt.Errorf("%w: tenant required", shared.ErrValidation)
	}
	if d := authz.Authorize(actor, authz.CapPrincipalsManage, tenantID); !d.Allowed {
		return Request{}, identity.Principal{}, fmt.Errorf("%w: %s", shared.ErrForbidden, d.Reason)
	}
	if in.Role.Rank() > actor.Role.Rank() {
		return Request{}, identity.Principal{}, fmt.Errorf("%w: %s", shared.ErrForbidden, authz.ReasonInsufficientRole)
	}
	hash, err := password.Hash(in.Password)
	if err != nil {
		return Request{}, identity.Principal{}, err
	}

	autoApprove := authz.CanReviewRole(actor.Role, in.Role)
	now := time.Now().UTC()
	principal := identity.Principal{
		ID:           uuid.New(),
		TenantID:     tenantID,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	request := Request{
		ID:            uuid.New(),
		PrincipalID:   principal.ID,
		TenantID:      tenantID,
		RequestedRole: in.Role,
		Type:          TypeAdminCreated,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if autoApprove {
		principal.IsActive = true
		principal.ApprovalStatus = identity.ApprovalApproved
		request.Status = identity.ApprovalApproved
		reviewer := actor.SubjectID
		request.ReviewedBy = &reviewer
		resolvedAt := now
		request.ResolvedAt = &resolvedAt
	} else {
		principal.ApprovalStatus = identity.ApprovalPending
		request.Status = identity.ApprovalPending
	}

	if err := s.repo.CreatePrincipal(ctx, principal, request); err != nil {
		return Request{}, identity.Principal{}, err
	}
	s.recorder.Record(ctx, audit.Entry{
		ActorID:  actor.SubjectID,
		TenantID: tenantID,
		Action:   "approval.submit",
		Entity:   "approval_request",
		EntityID: request.ID.String(),
		Decision: "allow",
		Meta: map[string]any{
			"requested_role": string(in.Role),
			"type":           string(TypeAdminCreated),
			"auto_approved":  autoApprove,
		},
	})
	return request, principal, nil
}

// ListPending returns pending requests the actor may review. Visibility
// and approval eligibility are the same predicate: tenant scope plus the
// review-target-role rule.
func (s *Service) ListPending(ctx context.Context, actor token.Claims) ([]Request, error) {
	if d := authz.Authorize(actor, authz.CapApprovalsReview, actor.TenantID); !d.Allowed {
		return nil, fmt.Errorf("%w: %s", shared.ErrForbidden, d.Reason)
	}
	pending, err := s.repo.ListPending(ctx, actor.Scope())
	if err != nil {
		return nil, err
	}
	visible := make([]Request, 0, len(pending))
	for _, request := range pending {
		if authz.CanReviewRole(actor.Role, request.RequestedRole) {
			visible = append(visible, request)
		}
	}
	return visible, nil
}

// Resolve applies a terminal transition to a request. The same predicate
// that governs visibility gates resolution; a reviewer who cannot see a
// request cannot decide it.
func (s *Service) Resolve(ctx context.Context, actor token.Claims, requestID uuid.UUID, outcome Outcome, reason string) (Request, error) {
	if outcome != OutcomeApproved && outcome != OutcomeRejected {
		return Request{}, fmt.Errorf("%w: outcome must be approved or rejected", shared.ErrValidation)
	}
	request, err := s.repo.Get(ctx, requestID)
	if err != nil {
		return Request{}, err
	}
	if d := authz.AuthorizeReview(actor, request.TenantID, request.RequestedRole); !d.Allowed {
		s.recorder.Record(ctx, audit.Entry{
			ActorID:  actor.SubjectID,
			TenantID: request.TenantID,
			Action:   "approval.resolve",
			Entity:   "approval_request",
			EntityID: request.ID.String(),
			Decision: "deny",
			Reason:   d.Reason,
		})
		return Request{}, fmt.Errorf("%w: %s", shared.ErrForbidden, d.Reason)
	}
	if request.Status != identity.ApprovalPending {
		return Request{}, shared.ErrAlreadyResolved
	}

	resolved, err := s.repo.Resolve(ctx, ResolveParams{
		RequestID:      requestID,
		ReviewerID:     actor.SubjectID,
		Outcome:        outcome,
		Reason:         reason,
		ActivateTenant: outcome == OutcomeApproved && request.Type == TypeNewSignup,
	})
	if err != nil {
		return Request{}, err
	}
	s.recorder.Record(ctx, audit.Entry{
		ActorID:  actor.SubjectID,
		TenantID: resolved.TenantID,
		Action:   "approval.resolve",
		Entity:   "approval_request",
		EntityID: resolved.ID.String(),
		Decision: "allow",
		Meta:     map[string]any{"outcome": string(outcome)},
	})
	if email, err := s.subjectEmail(ctx, resolved); err == nil && email != "" {
		s.notifier.NotifyResolution(ctx, email, outcome == OutcomeApproved, reason)
	}
	return resolved, nil
}

// SubjectEmails are resolved through an optional lookup so the service
// does not depend on the identity repository directly.
type SubjectEmailLookup func(ctx context.Context, principalID uuid.UUID) (string, error)

// WithSubjectEmailLookup installs the lookup used for notifications.
func (s *Service) WithSubjectEmailLookup(lookup SubjectEmailLookup) *Service {
	s.emailLookup = lookup
	return s
}

func (s *Service) subjectEmail(ctx context.Context, request Request) (string, error) {
	if s.emailLookup == nil {
		return "", nil
	}
	return s.emailLookup(ctx, request.PrincipalID)
}
