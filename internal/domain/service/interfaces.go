package service

import (
	"context"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/models"
)

//go:generate mockery --name TokenVerifier --output mocks --outpkg mocks
// TokenVerifier validates a compact token and returns the identity it carries.
// The issuing service verifies with its own key pair; consumer services verify with a
// public key fetched from the issuer.
type TokenVerifier interface {
	// Verify checks signature, algorithm, issuer, audience and expiry.
	// Errors: errors.ErrTokenExpired, errors.ErrTokenMalformed, errors.ErrVerificationUnavailable.
	Verify(ctx context.Context, token string) (*models.Identity, error)
}

//go:generate mockery --name TokenService --output mocks --outpkg mocks
// TokenService issues and verifies tokens with the service's own key pair.
type TokenService interface {
	TokenVerifier

	// Issue signs a token for claims. An empty role is issued as USER.
	Issue(ctx context.Context, claims models.IdentityClaims) (string, error)

	// Decode parses a token without verifying it. For diagnostics only.
	Decode(token string) (*models.Identity, bool)

	// PublicKey returns the PEM-encoded verification key.
	PublicKey() string
}

//go:generate mockery --name PasswordHasher --output mocks --outpkg mocks
// PasswordHasher is a one-way password hash primitive.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

//go:generate mockery --name AuditService --output mocks --outpkg mocks
// AuditService records security-relevant events.
type AuditService interface {
	LogEvent(ctx context.Context, event *models.AuditEvent) error
}

//go:generate mockery --name RateLimitService --output mocks --outpkg mocks
// RateLimitService decides whether another request for key fits in the current window.
type RateLimitService interface {
	Allow(ctx context.Context, key string) (*RateLimitResult, error)
}

// RateLimitResult is the outcome of a RateLimitService check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int
	RetryAfter int // seconds until the window resets
}
