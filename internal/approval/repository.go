package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis-hr/aegis-identity/internal/identity"
	"github.com/aegis-hr/aegis-identity/internal/platform/db"
	"github.com/aegis-hr/aegis-identity/internal/shared"
)

// ResolveParams carries one terminal transition.
type ResolveParams struct {
	RequestID  uuid.UUID
	ReviewerID uuid.UUID
	Outcome    Outcome
	Reason     string
	// ActivateTenant flips the subject's tenant to active; set when
	// approving a new_signup pair.
	ActivateTenant bool
}

// Repository defines persistence for the approval workflow. Creation is
// atomic with the subject principal; resolution is a compare-and-set so
// concurrent reviewers serialize to exactly one winner.
type Repository interface {
	CreateSignup(ctx context.Context, tenant identity.Tenant, principal identity.Principal, request Request) error
	CreatePrincipal(ctx context.Context, principal identity.Principal, request Request) error
	Get(ctx context.Context, id uuid.UUID) (Request, error)
	ListPending(ctx context.Context, scope identity.Scope) ([]Request, error)
	Resolve(ctx context.Context, params ResolveParams) (Request, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// CreateSignup inserts tenant, principal and request in one transaction.
func (r *PGRepository) CreateSignup(ctx context.Context, tenant identity.Tenant, principal identity.Principal, request Request) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO tenants (id, name, domain, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
			tenant.ID, tenant.Name, tenant.Domain, string(tenant.Status), tenant.CreatedAt, tenant.UpdatedAt)
		if err != nil {
			if identity.IsUniqueViolation(err) {
				return fmt.Errorf("%w: tenant domain %q already registered", shared.ErrConflict, tenant.Domain)
			}
			return err
		}
		if err := insertPrincipal(ctx, tx, principal); err != nil {
			return err
		}
		return insertRequest(ctx, tx, request)
	})
}

// CreatePrincipal inserts principal and request in one transaction.
func (r *PGRepository) CreatePrincipal(ctx context.Context, principal identity.Principal, request Request) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := insertPrincipal(ctx, tx, principal); err != nil {
			return err
		}
		return insertRequest(ctx, tx, request)
	})
}

const requestColumns = `id, principal_id, tenant_id, requested_role, request_type, status, reviewed_by, resolved_at, rejection_reason, created_at, updated_at`

// Get fetches a request by ID.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (Request, error) {
	return scanRequest(r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM approval_requests WHERE id = $1`, id))
}

// ListPending returns pending requests visible to the scope, oldest first.
func (r *PGRepository) ListPending(ctx context.Context, scope identity.Scope) ([]Request, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if scope.All {
		rows, err = r.pool.Query(ctx, `SELECT `+requestColumns+` FROM approval_requests
WHERE status = 'pending' ORDER BY created_at ASC`)
	} else {
		rows, err = r.pool.Query(ctx, `SELECT `+requestColumns+` FROM approval_requests
WHERE status = 'pending' AND tenant_id = $1 ORDER BY created_at ASC`, scope.TenantID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var requests []Request
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, rows.Err()
}

// Resolve applies the terminal transition. The UPDATE is guarded by
// status = 'pending' so exactly one of any concurrent resolutions wins;
// later ones observe ErrAlreadyResolved.
func (r *PGRepository) Resolve(ctx context.Context, params ResolveParams) (Request, error) {
	var resolved Request
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		now := time.Now().UTC()
		row := tx.QueryRow(ctx, `UPDATE approval_requests
SET status = $2, reviewed_by = $3, resolved_at = $4, rejection_reason = NULLIF($5, ''), updated_at = $4
WHERE id = $1 AND status = 'pending'
RETURNING `+requestColumns,
			params.RequestID, string(params.Outcome), params.ReviewerID, now, params.Reason)
		request, err := scanRequest(row)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return r.classifyResolveMiss(ctx, params.RequestID)
			}
			return err
		}

		switch params.Outcome {
		case OutcomeApproved:
			if _, err := tx.Exec(ctx, `UPDATE principals
SET approval_status = 'approved', is_active = TRUE, updated_at = $2 WHERE id = $1`, request.PrincipalID, now); err != nil {
				return err
			}
			if params.ActivateTenant {
				if _, err := tx.Exec(ctx, `UPDATE tenants SET status = 'active', updated_at = $2 WHERE id = $1`, request.TenantID, now); err != nil {
					return err
				}
			}
		case OutcomeRejected:
			if _, err := tx.Exec(ctx, `UPDATE principals
SET approval_status = 'rejected', updated_at = $2 WHERE id = $1`, request.PrincipalID, now); err != nil {
				return err
			}
		}
		resolved = request
		return nil
	})
	if err != nil {
		return Request{}, err
	}
	return resolved, nil
}

// classifyResolveMiss distinguishes an unknown ID from a lost race.
func (r *PGRepository) classifyResolveMiss(ctx context.Context, id uuid.UUID) error {
	var status string
	err := r.pool.QueryRow(ctx, `SELECT status FROM approval_requests WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shared.ErrNotFound
		}
		return err
	}
	return shared.ErrAlreadyResolved
}

func insertPrincipal(ctx context.Context, tx pgx.Tx, principal identity.Principal) error {
	var tenantID any
	if principal.TenantID != uuid.Nil {
		tenantID = principal.TenantID
	}
	_, err := tx.Exec(ctx, `INSERT INTO principals (id, tenant_id, email, password_hash, role, is_active, approval_status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		principal.ID, tenantID, principal.Email, principal.PasswordHash, string(principal.Role),
		principal.IsActive, string(principal.ApprovalStatus), principal.CreatedAt, principal.UpdatedAt)
	if err != nil {
		if identity.IsUniqueViolation(err) {
			return fmt.Errorf("%w: email %q already registered", shared.ErrConflict, principal.Email)
		}
		if identity.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: tenant %s", shared.ErrNotFound, principal.TenantID)
		}
	}
	return err
}

func insertRequest(ctx context.Context, tx pgx.Tx, request Request) error {
	_, err := tx.Exec(ctx, `INSERT INTO approval_requests (id, principal_id, tenant_id, requested_role, request_type, status, reviewed_by, resolved_at, rejection_reason, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11)`,
		request.ID, request.PrincipalID, request.TenantID, string(request.RequestedRole), string(request.Type),
		string(request.Status), request.ReviewedBy, request.ResolvedAt, request.RejectionReason,
		request.CreatedAt, request.UpdatedAt)
	return err
}

func scanRequest(row pgx.Row) (Request, error) {
	var (
		request Request
		role    string
		reqType string
		status  string
		reason  *string
	)
	err := row.Scan(&request.ID, &request.PrincipalID, &request.TenantID, &role, &reqType, &status,
		&request.ReviewedBy, &request.ResolvedAt, &reason, &request.CreatedAt, &request.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, shared.ErrNotFound
		}
		return Request{}, err
	}
	request.RequestedRole = identity.Role(role)
	request.Type = RequestType(reqType)
	request.Status = identity.ApprovalStatus(status)
	if reason != nil {
		request.RejectionReason = *reason
	}
	return request, nil
}

var _ Repository = (*PGRepository)(nil)
