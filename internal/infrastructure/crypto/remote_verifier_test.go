package crypto

import (
	"context"
	"crypto/rsa"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/models"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/errors"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/logger"
)

type stubKeyProvider struct {
	key   *rsa.PublicKey
	err   error
	calls int
}

func (s *stubKeyProvider) PublicKey(ctx context.Context) (*rsa.PublicKey, error) {
	s.calls++
	return s.key, s.err
}

func TestRemoteVerifier_VerifiesIssuerTokens(t *testing.T) {
	clock := newFixedClock(time.Now())
	issuer := newTestManager(t, clock)
	provider := &stubKeyProvider{key: testKeyMaterial(t).PublicKey()}
	verifier := NewRemoteVerifier(provider, logger.NewNoopLogger(), WithClock(clock.Now))
	ctx := context.Background()

	token, err := issuer.Issue(ctx, models.IdentityClaims{UserID: 42, Email: "a@x.com", Role: models.RoleAdministrator})
	require.NoError(t, err)

	identity, err := verifier.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), identity.UserID)
	assert.Equal(t, models.RoleAdministrator, identity.Role)
	assert.Equal(t, 1, provider.calls)

	clock.Advance(25 * time.Hour)
	_, err = verifier.Verify(ctx, token)
	assert.ErrorIs(t, err, errors.ErrTokenExpired)
}

func TestRemoteVerifier_RejectsOtherKeys(t *testing.T) {
	clock := newFixedClock(time.Now())
	issuer := newTestManager(t, clock)
	verifier := NewRemoteVerifier(&stubKeyProvider{key: otherKeyMaterial(t).PublicKey()}, logger.NewNoopLogger(), WithClock(clock.Now))

	token, err := issuer.Issue(context.Background(), models.IdentityClaims{UserID: 42})
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), token)
	assert.ErrorIs(t, err, errors.ErrTokenMalformed)
}

func TestRemoteVerifier_KeyUnavailable(t *testing.T) {
	fetchErr := errors.ErrKeyFetch.WithError(fmt.Errorf("connection refused"))
	verifier := NewRemoteVerifier(&stubKeyProvider{err: fetchErr}, logger.NewNoopLogger())

	identity, err := verifier.Verify(context.Background(), "a.b.c")
	assert.Nil(t, identity)
	assert.ErrorIs(t, err, errors.ErrVerificationUnavailable)
	assert.ErrorIs(t, err, errors.ErrKeyFetch)
	assert.Equal(t, 503, errors.FromError(err).HTTPStatus)
}
