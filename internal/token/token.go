// Package token issues and verifies the signed bearer credentials every
// other service depends on. Tokens are self-contained and never persisted;
// revocation is purely time-based expiry.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/aegis-hr/aegis-identity/internal/identity"
)

var (
	// ErrInvalid indicates a malformed token or a bad signature.
	ErrInvalid = errors.New("token invalid")
	// ErrExpired indicates a structurally valid token past its expiry.
	ErrExpired = errors.New("token expired")
)

// DefaultTTL is the validity window applied when none is configured.
const DefaultTTL = time.Hour

// Claims is the decoded, verified payload of a bearer token.
type Claims struct {
	SubjectID uuid.UUID
	// TenantID is uuid.Nil for platform-tier principals.
	TenantID uuid.UUID
	Role     identity.Role
	IssuedAt time.Time
	ExpireAt time.Time
}

// Scope derives the tenant visibility of the token holder.
func (c Claims) Scope() identity.Scope {
	return identity.ScopeFor(c.Role, c.TenantID)
}

type jwtClaims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tenant_id,omitempty"`
	Role     string `json:"role"`
}

// Service signs and verifies tokens with a process-wide secret injected at
// construction.
type Service struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewService constructs a Service. A zero ttl falls back to DefaultTTL.
func NewService(secret, issuer string, ttl time.Duration) (*Service, error) {
	if secret == "" {
		return nil, errors.New("token: signing secret required")
	}
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &Service{secret: []byte(secret), issuer: issuer, ttl: ttl}, nil
}

// Issue mints a signed token for the principal with a fresh expiry.
func (s *Service) Issue(p identity.Principal) (string, error) {
	now := time.Now()
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   p.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Role: string(p.Role),
	}
	if p.TenantID != uuid.Nil {
		claims.TenantID = p.TenantID.String()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks signature integrity first, then expiry. Both failures are
// distinguished so callers can emit different messages, though transports
// collapse them into the same rejection.
func (s *Service) Verify(raw string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &jwtClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, ErrInvalid
	}
	decoded, ok := parsed.Claims.(*jwtClaims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrInvalid
	}
	return claimsFromJWT(decoded)
}

func claimsFromJWT(jc *jwtClaims) (Claims, error) {
	subject, err := uuid.Parse(jc.Subject)
	if err != nil {
		return Claims{}, ErrInvalid
	}
	role := identity.Role(jc.Role)
	if !role.Valid() {
		return Claims{}, ErrInvalid
	}
	claims := Claims{SubjectID: subject, Role: role}
	if jc.TenantID != "" {
		tenantID, err := uuid.Parse(jc.TenantID)
		if err != nil {
			return Claims{}, ErrInvalid
		}
		claims.TenantID = tenantID
	}
	if role.PlatformTier() != (claims.TenantID == uuid.Nil) {
		return Claims{}, ErrInvalid
	}
	if jc.IssuedAt != nil {
		claims.IssuedAt = jc.IssuedAt.Time
	}
	if jc.ExpiresAt != nil {
		claims.ExpireAt = jc.ExpiresAt.Time
	}
	return claims, nil
}
