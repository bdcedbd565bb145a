package crypto

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/models"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/constants"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/errors"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/logger"
)

// JWTManager issues and verifies tokens with the service's own key pair.
type JWTManager struct {
	keys     *KeyMaterial
	lifetime time.Duration
	log      logger.Logger
	opts     options
}

// NewJWTManager creates a JWTManager. A non-positive lifetime uses the 24 hour default.
func NewJWTManager(keys *KeyMaterial, lifetime time.Duration, log logger.Logger, opts ...Option) (*JWTManager, error) {
	if keys == nil || keys.privateKey == nil || keys.publicKey == nil {
		return nil, errors.ErrKeyMaterial
	}
	if lifetime <= 0 {
		lifetime = constants.DefaultTokenLifetime
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &JWTManager{keys: keys, lifetime: lifetime, log: log, opts: o}, nil
}

// Issue creates and signs a new token for claims.
func (m *JWTManager) Issue(ctx context.Context, claims models.IdentityClaims) (string, error) {
	if claims.UserID <= 0 {
		return "", errors.ErrInvalidRequest.WithError(fmt.Errorf("userId must be positive"))
	}
	role := claims.Role
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		return "", errors.ErrInvalidRequest.WithError(fmt.Errorf("unknown role %q", role))
	}

	now := m.opts.now()
	tokenClaims := &models.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    constants.TokenIssuer,
			Audience:  jwt.ClaimStrings{constants.TokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.lifetime)),
		},
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, tokenClaims).SignedString(m.keys.privateKey)
	if err != nil {
		m.log.Error(ctx, "Failed to sign JWT", err, logger.Fields{"user_id": claims.UserID})
		m.opts.metrics.RecordTokenIssue(false)
		return "", errors.ErrSigning.WithError(err)
	}
	m.opts.metrics.RecordTokenIssue(true)
	return signed, nil
}

// Verify checks the token against the local public key.
func (m *JWTManager) Verify(ctx context.Context, tokenString string) (*models.Identity, error) {
	identity, err := parseIdentity(tokenString, m.keys.publicKey, m.opts.now)
	m.opts.metrics.RecordTokenVerification("local", verificationOutcome(err))
	return identity, err
}

// Decode returns the unverified identity carried by tokenString.
func (m *JWTManager) Decode(tokenString string) (*models.Identity, bool) {
	return decodeUnverified(tokenString)
}

// PublicKey returns the PEM-encoded verification key.
func (m *JWTManager) PublicKey() string {
	return m.keys.PublicKeyPEM()
}

// Lifetime returns the configured token lifetime.
func (m *JWTManager) Lifetime() time.Duration {
	return m.lifetime
}
