package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis-hr/aegis-identity/internal/shared"
)

// Repository defines read and lifecycle operations over principals.
type Repository interface {
	GetPrincipal(ctx context.Context, id uuid.UUID) (Principal, error)
	// GetPrincipalByEmail looks a principal up inside one tenant. A Nil
	// tenant ID addresses the platform (tenant-less) namespace.
	GetPrincipalByEmail(ctx context.Context, tenantID uuid.UUID, email string) (Principal, error)
	ListPrincipals(ctx context.Context, scope Scope, page shared.Pagination) ([]Principal, int, error)
	SetPrincipalActive(ctx context.Context, id uuid.UUID, active bool) error
	UpdatePrincipalRole(ctx context.Context, id uuid.UUID, role Role) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const principalColumns = `id, tenant_id, email, password_hash, role, is_active, approval_status, created_at, updated_at`

// GetPrincipal fetches a principal by ID.
func (r *PGRepository) GetPrincipal(ctx context.Context, id uuid.UUID) (Principal, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+principalColumns+` FROM principals WHERE id = $1`, id)
	return scanPrincipal(row)
}

// GetPrincipalByEmail fetches a principal by canonical email within a tenant.
func (r *PGRepository) GetPrincipalByEmail(ctx context.Context, tenantID uuid.UUID, email string) (Principal, error) {
	email = shared.CanonEmail(email)
	var row pgx.Row
	if tenantID == uuid.Nil {
		row = r.pool.QueryRow(ctx, `SELECT `+principalColumns+` FROM principals WHERE tenant_id IS NULL AND email = $1`, email)
	} else {
		row = r.pool.QueryRow(ctx, `SELECT `+principalColumns+` FROM principals WHERE tenant_id = $1 AND email = $2`, tenantID, email)
	}
	return scanPrincipal(row)
}

// ListPrincipals returns principals visible to the scope, newest first.
func (r *PGRepository) ListPrincipals(ctx context.Context, scope Scope, page shared.Pagination) ([]Principal, int, error) {
	var (
		total int
		rows  pgx.Rows
		err   error
	)
	if scope.All {
		if err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM principals`).Scan(&total); err != nil {
			return nil, 0, err
		}
		rows, err = r.pool.Query(ctx, `SELECT `+principalColumns+` FROM principals
ORDER BY created_at DESC LIMIT $1 OFFSET $2`, page.PerPage, page.Offset())
	} else {
		if err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM principals WHERE tenant_id = $1`, scope.TenantID).Scan(&total); err != nil {
			return nil, 0, err
		}
		rows, err = r.pool.Query(ctx, `SELECT `+principalColumns+` FROM principals
WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, scope.TenantID, page.PerPage, page.Offset())
	}
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var principals []Principal
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, 0, err
		}
		principals = append(principals, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return principals, total, nil
}

// SetPrincipalActive flips the active flag.
func (r *PGRepository) SetPrincipalActive(ctx context.Context, id uuid.UUID, active bool) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE principals SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdatePrincipalRole replaces the role. Role changes only happen through
// the re-validated administrative path; repositories never decide policy.
func (r *PGRepository) UpdatePrincipalRole(ctx context.Context, id uuid.UUID, role Role) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE principals SET role = $2, updated_at = NOW() WHERE id = $1`, id, string(role))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanPrincipal(row pgx.Row) (Principal, error) {
	var (
		p        Principal
		tenantID *uuid.UUID
		role     string
		status   string
	)
	err := row.Scan(&p.ID, &tenantID, &p.Email, &p.PasswordHash, &role, &p.IsActive, &status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Principal{}, shared.ErrNotFound
		}
		return Principal{}, err
	}
	if tenantID != nil {
		p.TenantID = *tenantID
	}
	p.Role = Role(role)
	p.ApprovalStatus = ApprovalStatus(status)
	return p, nil
}

// IsUniqueViolation reports whether err is a Postgres duplicate-key error.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// IsForeignKeyViolation reports whether err is a Postgres foreign-key error.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

var _ Repository = (*PGRepository)(nil)
