package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis-hr/aegis-identity/jobs"
)

// Store persists and queries audit_logs.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Insert writes one entry. Called by the worker's audit handler.
func (s *Store) Insert(ctx context.Context, payload jobs.AuditRecordPayload) error {
	var meta []byte
	if payload.Meta != nil {
		encoded, err := json.Marshal(payload.Meta)
		if err != nil {
			return err
		}
		meta = encoded
	}
	occurredAt := payload.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO audit_logs (actor_id, tenant_id, action, entity, entity_id, decision, reason, meta, occurred_at)
VALUES (NULLIF($1, '')::uuid, NULLIF($2, '')::uuid, $3, $4, $5, $6, $7, $8, $9)`,
		payload.ActorID, payload.TenantID, payload.Action, payload.Entity, payload.EntityID,
		payload.Decision, payload.Reason, meta, occurredAt)
	return err
}

// Window returns one page of the timeline plus one extra row so the
// service can detect whether a next page exists.
func (s *Store) Window(ctx context.Context, filters TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	rows, err := s.pool.Query(ctx, `SELECT occurred_at, COALESCE(actor_id::text, ''), COALESCE(tenant_id::text, ''), action, entity, entity_id, COALESCE(decision, ''), COALESCE(reason, '')
FROM audit_logs
WHERE ($1::timestamptz IS NULL OR occurred_at >= $1)
  AND ($2::timestamptz IS NULL OR occurred_at <= $2)
  AND ($3 = '' OR action = $3)
  AND ($4 = '' OR entity = $4)
ORDER BY occurred_at DESC
LIMIT $5 OFFSET $6`,
		nullableTime(filters.From), nullableTime(filters.To), filters.Action, filters.Entity, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []TimelineRow
	for rows.Next() {
		var row TimelineRow
		if err := rows.Scan(&row.At, &row.ActorID, &row.TenantID, &row.Action, &row.Entity, &row.EntityID, &row.Decision, &row.Reason); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

var _ jobs.AuditWriter = (*Store)(nil)
