package crypto

import (
	"crypto/rsa"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/models"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/constants"
)

var (
	keyOnce              sync.Once
	testPrivPEM, testPub []byte
	otherOnce            sync.Once
	otherPrivPEM, otherPub []byte
)

// testKeyMaterial returns a key pair shared by the package's tests.
func testKeyMaterial(t *testing.T) *KeyMaterial {
	t.Helper()
	keyOnce.Do(func() {
		var err error
		testPrivPEM, testPub, err = GenerateKeyPair(constants.RSAKeyBits)
		if err != nil {
			panic(err)
		}
	})
	km, err := NewKeyMaterial(testPrivPEM, testPub)
	require.NoError(t, err)
	return km
}

// otherKeyMaterial returns a second, unrelated key pair.
func otherKeyMaterial(t *testing.T) *KeyMaterial {
	t.Helper()
	otherOnce.Do(func() {
		var err error
		otherPrivPEM, otherPub, err = GenerateKeyPair(constants.RSAKeyBits)
		if err != nil {
			panic(err)
		}
	})
	km, err := NewKeyMaterial(otherPrivPEM, otherPub)
	require.NoError(t, err)
	return km
}

// signClaims signs arbitrary claims with key, bypassing JWTManager's defaults.
func signClaims(t *testing.T, key *rsa.PrivateKey, claims *models.TokenClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func validClaims(now time.Time) *models.TokenClaims {
	return &models.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    constants.TokenIssuer,
			Audience:  jwt.ClaimStrings{constants.TokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		UserID: 42,
		Email:  "a@x.com",
		Role:   models.RoleUser,
	}
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock(now time.Time) *fixedClock {
	return &fixedClock{now: now}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
