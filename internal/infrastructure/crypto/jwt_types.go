package crypto

import (
	"crypto/rsa"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/models"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/infrastructure/monitoring"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/constants"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/errors"
)

// Option configures a JWTManager or RemoteVerifier.
type Option func(*options)

type options struct {
	now     func() time.Time
	metrics *monitoring.Metrics
}

func defaultOptions() options {
	return options{now: time.Now}
}

// WithClock overrides the time source used for iat, exp and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithMetrics records issue and verification outcomes.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// newParser returns a parser that accepts only RS256 tokens from our issuer for our
// audience, and requires an expiry.
func newParser(now func() time.Time) *jwt.Parser {
	return jwt.NewParser(
		jwt.WithValidMethods([]string{constants.SigningAlgorithm}),
		jwt.WithIssuer(constants.TokenIssuer),
		jwt.WithAudience(constants.TokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	)
}

// parseIdentity verifies tokenString with key and returns its identity.
func parseIdentity(tokenString string, key *rsa.PublicKey, now func() time.Time) (*models.Identity, error) {
	claims := &models.TokenClaims{}
	_, err := newParser(now).ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	})
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.ErrTokenExpired.WithError(err)
		}
		return nil, errors.ErrTokenMalformed.WithError(err)
	}
	if err := validateIdentityClaims(claims); err != nil {
		return nil, errors.ErrTokenMalformed.WithError(err)
	}
	return claims.Identity(), nil
}

func validateIdentityClaims(c *models.TokenClaims) error {
	if c.UserID <= 0 {
		return fmt.Errorf("userId must be positive")
	}
	if !c.Role.Valid() {
		return fmt.Errorf("unknown role %q", c.Role)
	}
	if c.ExpiresAt == nil {
		return fmt.Errorf("exp is required")
	}
	if c.IssuedAt != nil && !c.ExpiresAt.After(c.IssuedAt.Time) {
		return fmt.Errorf("exp must be after iat")
	}
	return nil
}

// decodeUnverified reads the claims without checking anything. Diagnostics only.
func decodeUnverified(tokenString string) (*models.Identity, bool) {
	claims := &models.TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, false
	}
	return claims.Identity(), true
}

// verificationOutcome is the metrics label for a verification result.
func verificationOutcome(err error) string {
	if err == nil {
		return "success"
	}
	return errors.FromError(err).Code
}
