package crypto

import (
	"context"
	"crypto/rsa"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/models"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/errors"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/logger"
)

// PublicKeyProvider supplies the issuer's current verification key.
type PublicKeyProvider interface {
	PublicKey(ctx context.Context) (*rsa.PublicKey, error)
}

// RemoteVerifier verifies tokens in a consumer service that does not hold the private key.
type RemoteVerifier struct {
	keys PublicKeyProvider
	log  logger.Logger
	opts options
}

// NewRemoteVerifier creates a verifier backed by keys, typically a kms.PublicKeyCache.
func NewRemoteVerifier(keys PublicKeyProvider, log logger.Logger, opts ...Option) *RemoteVerifier {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &RemoteVerifier{keys: keys, log: log, opts: o}
}

// Verify obtains the issuer's public key and verifies tokenString with it. When no key can
// be obtained verification is refused with ErrVerificationUnavailable.
func (v *RemoteVerifier) Verify(ctx context.Context, tokenString string) (*models.Identity, error) {
	key, err := v.keys.PublicKey(ctx)
	if err != nil {
		v.log.Error(ctx, "Public key unavailable, refusing token verification", err)
		unavailable := errors.ErrVerificationUnavailable.WithError(err)
		v.opts.metrics.RecordTokenVerification("remote", unavailable.Code)
		return nil, unavailable
	}
	identity, err := parseIdentity(tokenString, key, v.opts.now)
	v.opts.metrics.RecordTokenVerification("remote", verificationOutcome(err))
	return identity, err
}

// Decode returns the unverified identity carried by tokenString.
func (v *RemoteVerifier) Decode(tokenString string) (*models.Identity, bool) {
	return decodeUnverified(tokenString)
}
