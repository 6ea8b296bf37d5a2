package approval

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/aegis-hr/aegis-identity/internal/audit"
	"github.com/aegis-hr/aegis-identity/internal/identity"
	"github.com/aegis-hr/aegis-identity/internal/shared"
	"github.com/aegis-hr/aegis-identity/internal/token"
)

type fakeRepo struct {
	mu         sync.Mutex
	tenants    map[uuid.UUID]identity.Tenant
	principals map[uuid.UUID]identity.Principal
	requests   map[uuid.UUID]Request
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		tenants:    make(map[uuid.UUID]identity.Tenant),
		principals: make(map[uuid.UUID]identity.Principal),
		requests:   make(map[uuid.UUID]Request),
	}
}

func (f *fakeRepo) CreateSignup(_ context.Context, tenant identity.Tenant, principal identity.Principal, request Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tenants {
		if t.Domain == tenant.Domain {
			return shared.ErrConflict
		}
	}
	f.tenants[tenant.ID] = tenant
	f.principals[principal.ID] = principal
	f.requests[request.ID] = request
	return nil
}

func (f *fakeRepo) CreatePrincipal(_ context.Context, principal identity.Principal, request Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tenants[principal.TenantID]; !ok {
		return fmt.Errorf("%w: tenant %s", shared.ErrNotFound, principal.TenantID)
	}
	for _, p := range f.principals {
		if p.TenantID == principal.TenantID && p.Email == principal.Email {
			return shared.ErrConflict
		}
	}
	f.principals[principal.ID] = principal
	f.requests[request.ID] = request
	return nil
}

func (f *fakeRepo) Get(_ context.Context, id uuid.UUID) (Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[id]
	if !ok {
		return Request{}, shared.ErrNotFound
	}
	return request, nil
}

func (f *fakeRepo) ListPending(_ context.Context, scope identity.Scope) ([]Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Request
	for _, request := range f.requests {
		if request.Status != identity.ApprovalPending {
			continue
		}
		if !scope.Allows(request.TenantID) {
			continue
		}
		out = append(out, request)
	}
	return out, nil
}

func (f *fakeRepo) Resolve(_ context.Context, params ResolveParams) (Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[params.RequestID]
	if !ok {
		return Request{}, shared.ErrNotFound
	}
	if request.Status != identity.ApprovalPending {
		return Request{}, shared.ErrAlreadyResolved
	}
	now := time.Now().UTC()
	reviewer := params.ReviewerID
	request.ReviewedBy = &reviewer
	request.ResolvedAt = &now
	request.UpdatedAt = now
	principal := f.principals[request.PrincipalID]
	if params.Outcome == OutcomeApproved {
		request.Status = identity.ApprovalApproved
		principal.ApprovalStatus = identity.ApprovalApproved
		principal.IsActive = true
		if params.ActivateTenant {
			tenant := f.tenants[request.TenantID]
			tenant.Status = identity.TenantActive
			f.tenants[request.TenantID] = tenant
		}
	} else {
		request.Status = identity.ApprovalRejected
		request.RejectionReason = params.Reason
		principal.ApprovalStatus = identity.ApprovalRejected
	}
	f.principals[request.PrincipalID] = principal
	f.requests[request.ID] = request
	return request, nil
}

var _ Repository = (*fakeRepo)(nil)

func newTestService(repo Repository) *Service {
	return NewService(repo, audit.NopRecorder{}, NopNotifier{})
}

func claimsFor(role identity.Role, tenantID uuid.UUID) token.Claims {
	return token.Claims{SubjectID: uuid.New(), TenantID: tenantID, Role: role}
}

func seedTenant(repo *fakeRepo, id uuid.UUID) {
	repo.tenants[id] = identity.Tenant{ID: id, Name: "Acme HR", Domain: id.String() + ".example.com", Status: identity.TenantActive}
}

func TestSubmitSignupParksEverythingPending(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	request, err := svc.SubmitSignup(context.Background(), SignupInput{
		CompanyName: "Acme HR",
		Domain:      "Acme.Example.COM",
		Email:       "Founder@Acme.example.com",
		Password:    "s3curepass",
	})
	require.NoError(t, err)
	require.Equal(t, identity.ApprovalPending, request.Status)
	require.Equal(t, TypeNewSignup, request.Type)
	require.Equal(t, identity.RoleCompanySuperAdmin, request.RequestedRole)

	tenant := repo.tenants[request.TenantID]
	require.Equal(t, identity.TenantPending, tenant.Status)
	require.Equal(t, "acme.example.com", tenant.Domain)

	principal := repo.principals[request.PrincipalID]
	require.False(t, principal.IsActive)
	require.Equal(t, "founder@acme.example.com", principal.Email)
	require.False(t, principal.CanLogin())
}

func TestSubmitSignupRejectsWeakPasswordBeforeWriting(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	_, err := svc.SubmitSignup(context.Background(), SignupInput{
		CompanyName: "Acme HR",
		Domain:      "acme.example.com",
		Email:       "founder@acme.example.com",
		Password:    "short",
	})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Empty(t, repo.tenants)
	require.Empty(t, repo.requests)
}

func TestSubmitRegistrationAutoApprovesReviewableRole(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	tenantID := uuid.New()
	seedTenant(repo, tenantID)
	actor := claimsFor(identity.RoleCompanySuperAdmin, tenantID)

	request, principal, err := svc.SubmitRegistration(context.Background(), actor, RegistrationInput{
		Email:    "worker@acme.example.com",
		Password: "s3curepass",
		Role:     identity.RoleEmployee,
	})
	require.NoError(t, err)
	require.Equal(t, identity.ApprovalApproved, request.Status)
	require.NotNil(t, request.ReviewedBy)
	require.Equal(t, actor.SubjectID, *request.ReviewedBy)
	require.True(t, principal.IsActive)
	require.True(t, principal.CanLogin())
	require.Equal(t, tenantID, principal.TenantID)
}

func TestSubmitRegistrationPeerRoleStaysPending(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	tenantID := uuid.New()
	seedTenant(repo, tenantID)
	actor := claimsFor(identity.RoleCompanySuperAdmin, tenantID)

	request, principal, err := svc.SubmitRegistration(context.Background(), actor, RegistrationInput{
		Email:    "peer@acme.example.com",
		Password: "s3curepass",
		Role:     identity.RoleCompanySuperAdmin,
	})
	require.NoError(t, err)
	require.Equal(t, identity.ApprovalPending, request.Status)
	require.Nil(t, request.ReviewedBy)
	require.False(t, principal.IsActive)
}

func TestSubmitRegistrationDeniesRoleAboveActor(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	actor := claimsFor(identity.RoleCompanyAdmin, uuid.New())

	_, _, err := svc.SubmitRegistration(context.Background(), actor, RegistrationInput{
		Email:    "boss@acme.example.com",
		Password: "s3curepass",
		Role:     identity.RoleCompanySuperAdmin,
	})
	require.ErrorIs(t, err, shared.ErrForbidden)
	require.Empty(t, repo.requests)
}

func TestSubmitRegistrationPlatformActorPicksTenant(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	tenantID := uuid.New()
	seedTenant(repo, tenantID)
	actor := claimsFor(identity.RolePlatformAdmin, uuid.Nil)

	request, principal, err := svc.SubmitRegistration(context.Background(), actor, RegistrationInput{
		Email:    "csa@acme.example.com",
		Password: "s3curepass",
		Role:     identity.RoleCompanySuperAdmin,
		TenantID: tenantID,
	})
	require.NoError(t, err)
	require.Equal(t, tenantID, request.TenantID)
	require.Equal(t, identity.ApprovalApproved, request.Status)
	require.True(t, principal.CanLogin())
}

func TestSubmitRegistrationUnknownTenant(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	actor := claimsFor(identity.RolePlatformAdmin, uuid.Nil)

	_, _, err := svc.SubmitRegistration(context.Background(), actor, RegistrationInput{
		Email:    "csa@acme.example.com",
		Password: "s3curepass",
		Role:     identity.RoleCompanySuperAdmin,
		TenantID: uuid.New(),
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Empty(t, repo.requests)
	require.Empty(t, repo.principals)
}

func TestSubmitRegistrationEmployeeForbidden(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	actor := claimsFor(identity.RoleEmployee, uuid.New())

	_, _, err := svc.SubmitRegistration(context.Background(), actor, RegistrationInput{
		Email:    "anyone@acme.example.com",
		Password: "s3curepass",
		Role:     identity.RoleEmployee,
	})
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func seedPending(t *testing.T, repo *fakeRepo, tenantID uuid.UUID, role identity.Role, requestType RequestType) Request {
	t.Helper()
	now := time.Now().UTC()
	principal := identity.Principal{
		ID:             uuid.New(),
		TenantID:       tenantID,
		Email:          uuid.NewString() + "@acme.example.com",
		Role:           role,
		ApprovalStatus: identity.ApprovalPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	request := Request{
		ID:            uuid.New(),
		PrincipalID:   principal.ID,
		TenantID:      tenantID,
		RequestedRole: role,
		Type:          requestType,
		Status:        identity.ApprovalPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	repo.mu.Lock()
	repo.principals[principal.ID] = principal
	repo.requests[request.ID] = request
	repo.mu.Unlock()
	return request
}

func TestListPendingFiltersByReviewableRole(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	tenantID := uuid.New()
	otherTenant := uuid.New()

	employeeReq := seedPending(t, repo, tenantID, identity.RoleEmployee, TypeAdminCreated)
	seedPending(t, repo, tenantID, identity.RoleCompanySuperAdmin, TypeAdminCreated)
	seedPending(t, repo, otherTenant, identity.RoleEmployee, TypeAdminCreated)

	admin := claimsFor(identity.RoleCompanyAdmin, tenantID)
	visible, err := svc.ListPending(context.Background(), admin)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	require.Equal(t, employeeReq.ID, visible[0].ID)

	superAdmin := claimsFor(identity.RoleCompanySuperAdmin, tenantID)
	visible, err = svc.ListPending(context.Background(), superAdmin)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	require.Equal(t, employeeReq.ID, visible[0].ID)

	platform := claimsFor(identity.RolePlatformAdmin, uuid.Nil)
	visible, err = svc.ListPending(context.Background(), platform)
	require.NoError(t, err)
	require.Len(t, visible, 3)
}

func TestListPendingEmployeeForbidden(t *testing.T) {
	svc := newTestService(newFakeRepo())
	_, err := svc.ListPending(context.Background(), claimsFor(identity.RoleEmployee, uuid.New()))
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestResolveApproveSignupActivatesTenant(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	request, err := svc.SubmitSignup(context.Background(), SignupInput{
		CompanyName: "Acme HR",
		Domain:      "acme.example.com",
		Email:       "founder@acme.example.com",
		Password:    "s3curepass",
	})
	require.NoError(t, err)

	platform := claimsFor(identity.RolePlatformAdmin, uuid.Nil)
	resolved, err := svc.Resolve(context.Background(), platform, request.ID, OutcomeApproved, "")
	require.NoError(t, err)
	require.Equal(t, identity.ApprovalApproved, resolved.Status)

	require.Equal(t, identity.TenantActive, repo.tenants[request.TenantID].Status)
	principal := repo.principals[request.PrincipalID]
	require.True(t, principal.CanLogin())
}

func TestResolveRejectRecordsReason(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	tenantID := uuid.New()
	request := seedPending(t, repo, tenantID, identity.RoleEmployee, TypeAdminCreated)

	admin := claimsFor(identity.RoleCompanyAdmin, tenantID)
	resolved, err := svc.Resolve(context.Background(), admin, request.ID, OutcomeRejected, "duplicate account")
	require.NoError(t, err)
	require.Equal(t, identity.ApprovalRejected, resolved.Status)
	require.Equal(t, "duplicate account", resolved.RejectionReason)

	principal := repo.principals[request.PrincipalID]
	require.False(t, principal.IsActive)
	require.Equal(t, identity.ApprovalRejected, principal.ApprovalStatus)
}

func TestResolveTenantMismatchForbidden(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	request := seedPending(t, repo, uuid.New(), identity.RoleEmployee, TypeAdminCreated)

	outsider := claimsFor(identity.RoleCompanyAdmin, uuid.New())
	_, err := svc.Resolve(context.Background(), outsider, request.ID, OutcomeApproved, "")
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestResolveRoleOutsideReviewRangeForbidden(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	tenantID := uuid.New()
	request := seedPending(t, repo, tenantID, identity.RoleCompanySuperAdmin, TypeAdminCreated)

	admin := claimsFor(identity.RoleCompanyAdmin, tenantID)
	_, err := svc.Resolve(context.Background(), admin, request.ID, OutcomeApproved, "")
	require.ErrorIs(t, err, shared.ErrForbidden)

	csa := claimsFor(identity.RoleCompanySuperAdmin, tenantID)
	_, err = svc.Resolve(context.Background(), csa, request.ID, OutcomeApproved, "")
	require.ErrorIs(t, err, shared.ErrForbidden)

	platform := claimsFor(identity.RolePlatformAdmin, uuid.Nil)
	_, err = svc.Resolve(context.Background(), platform, request.ID, OutcomeApproved, "")
	require.NoError(t, err)
}

func TestResolveUnknownRequest(t *testing.T) {
	svc := newTestService(newFakeRepo())
	platform := claimsFor(identity.RolePlatformAdmin, uuid.Nil)
	_, err := svc.Resolve(context.Background(), platform, uuid.New(), OutcomeApproved, "")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestResolveTwiceReportsAlreadyResolved(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	tenantID := uuid.New()
	request := seedPending(t, repo, tenantID, identity.RoleEmployee, TypeAdminCreated)
	admin := claimsFor(identity.RoleCompanyAdmin, tenantID)

	_, err := svc.Resolve(context.Background(), admin, request.ID, OutcomeApproved, "")
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), admin, request.ID, OutcomeRejected, "changed my mind")
	require.ErrorIs(t, err, shared.ErrAlreadyResolved)
}

func TestResolveInvalidOutcome(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	tenantID := uuid.New()
	request := seedPending(t, repo, tenantID, identity.RoleEmployee, TypeAdminCreated)
	admin := claimsFor(identity.RoleCompanyAdmin, tenantID)

	_, err := svc.Resolve(context.Background(), admin, request.ID, Outcome("maybe"), "")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestResolveConcurrentReviewersExactlyOneWins(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	tenantID := uuid.New()
	request := seedPending(t, repo, tenantID, identity.RoleEmployee, TypeAdminCreated)

	const reviewers = 16
	errs := make(chan error, reviewers)
	var wg sync.WaitGroup
	for i := 0; i < reviewers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			admin := claimsFor(identity.RoleCompanyAdmin, tenantID)
			_, err := svc.Resolve(context.Background(), admin, request.ID, OutcomeApproved, "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var wins, losses int
	for err := range errs {
		switch {
		case err == nil:
			wins++
		default:
			require.ErrorIs(t, err, shared.ErrAlreadyResolved)
			losses++
		}
	}
	require.Equal(t, 1, wins)
	require.Equal(t, reviewers-1, losses)
}
