package tenants

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/aegis-hr/aegis-identity/internal/identity"
	"github.com/aegis-hr/aegis-identity/internal/shared"
)

// Resolver answers domain-to-tenant lookups. Logins hit this on every
// request, so results are cached in Redis with a short TTL and concurrent
// lookups for the same domain are collapsed via singleflight.
type Resolver struct {
	repo   Repository
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewResolver constructs a Resolver. A nil client disables caching.
func NewResolver(repo Repository, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Resolver {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Resolver{repo: repo, client: client, ttl: ttl, logger: logger}
}

// ByDomain resolves a tenant by its domain.
func (r *Resolver) ByDomain(ctx context.Context, domain string) (identity.Tenant, error) {
	domain = shared.CanonDomain(domain)
	if domain == "" {
		return identity.Tenant{}, shared.ErrNotFound
	}
	if r.client == nil {
		return r.repo.GetByDomain(ctx, domain)
	}

	if cached, err := r.client.Get(ctx, r.key(domain)).Bytes(); err == nil {
		var tenant identity.Tenant
		if err := json.Unmarshal(cached, &tenant); err == nil {
			return tenant, nil
		}
	} else if !errors.Is(err, redis.Nil) && r.logger != nil {
		r.logger.Warn("tenant cache read", slog.Any("error", err))
	}

	value, err, _ := r.group.Do(domain, func() (any, error) {
		tenant, err := r.repo.GetByDomain(ctx, domain)
		if err != nil {
			return identity.Tenant{}, err
		}
		if data, err := json.Marshal(tenant); err == nil {
			if err := r.client.Set(ctx, r.key(domain), data, r.ttl).Err(); err != nil && r.logger != nil {
				r.logger.Warn("tenant cache write", slog.Any("error", err))
			}
		}
		return tenant, nil
	})
	if err != nil {
		return identity.Tenant{}, err
	}
	return value.(identity.Tenant), nil
}

// Invalidate drops a cached domain after a lifecycle change.
func (r *Resolver) Invalidate(ctx context.Context, domain string) {
	if r.client == nil {
		return
	}
	if err := r.client.Del(ctx, r.key(shared.CanonDomain(domain))).Err(); err != nil && r.logger != nil {
		r.logger.Warn("tenant cache invalidate", slog.Any("error", err))
	}
}

// InvalidateByID drops the cache entry for a tenant looked up by ID.
func (r *Resolver) InvalidateByID(ctx context.Context, id uuid.UUID) {
	if r.client == nil {
		return
	}
	tenant, err := r.repo.Get(ctx, id)
	if err != nil {
		return
	}
	r.Invalidate(ctx, tenant.Domain)
}

func (r *Resolver) key(domain string) string {
	return "tenant:domain:" + domain
}
