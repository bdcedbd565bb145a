package pokedex_verifier_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mateusz-G541/pokedex-auth-service/pkg/constants"
	"github.com/Mateusz-G541/pokedex-auth-service/sdk/go/pokedex_verifier"
)

// signer plays the auth service with nothing but the published wire format.
type signer struct {
	key    *rsa.PrivateKey
	server *httptest.Server
}

func newSigner(t *testing.T) *signer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	publicPEM := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))

	s := &signer{key: key}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != constants.PublicKeyPath {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    map[string]string{"publicKey": publicPEM, "algorithm": "RS256"},
		})
	}))
	t.Cleanup(s.server.Close)
	return s
}

func (s *signer) sign(t *testing.T, userID int64, role pokedex_verifier.Role) string {
	t.Helper()
	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":    constants.TokenIssuer,
		"aud":    constants.TokenAudience,
		"iat":    now.Unix(),
		"exp":    now.Add(time.Hour).Unix(),
		"userId": userID,
		"email":  "gary@pokedex.com",
		"role":   string(role),
	}).SignedString(s.key)
	require.NoError(t, err)
	return token
}

func metricNames(t *testing.T, reg *prometheus.Registry) []string {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	return names
}

func TestConsumer_ExportedAPI(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newSigner(t)
	reg := prometheus.NewRegistry()

	v, err := pokedex_verifier.New(pokedex_verifier.Config{
		AuthServiceURL: s.server.URL,
		Registerer:     reg,
	})
	require.NoError(t, err)
	require.NoError(t, v.Warm(context.Background()))

	var caller *pokedex_verifier.Identity
	caller, err = v.Verify(context.Background(), s.sign(t, 8, pokedex_verifier.RoleUser))
	require.NoError(t, err)
	assert.Equal(t, int64(8), caller.UserID)
	assert.Equal(t, pokedex_verifier.RoleUser, caller.Role)
	assert.True(t, pokedex_verifier.SelfOrAdmin(caller, 8))
	assert.False(t, pokedex_verifier.SelfOrAdmin(caller, 9))
	assert.False(t, pokedex_verifier.SelfOrAdmin(nil, 8))

	admin, err := v.Verify(context.Background(), s.sign(t, 1, pokedex_verifier.RoleAdministrator))
	require.NoError(t, err)
	assert.True(t, pokedex_verifier.SelfOrAdmin(admin, 9))

	r := gin.New()
	r.GET("/pokedex", v.OptionalAuthenticate(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"authenticated": pokedex_verifier.Outcome(c).IsAuthenticated()})
	})
	r.GET("/trainers/:id/team", v.Authenticate(), v.RequireRole(pokedex_verifier.RoleUser, pokedex_verifier.RoleAdministrator), func(c *gin.Context) {
		id, _ := pokedex_verifier.IdentityFrom(c)
		if !pokedex_verifier.SelfOrAdmin(id, 8) {
			c.Status(http.StatusForbidden)
			return
		}
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"anonymous browse", "/pokedex", "", http.StatusOK},
		{"own team", "/trainers/8/team", s.sign(t, 8, pokedex_verifier.RoleUser), http.StatusOK},
		{"someone else's team", "/trainers/8/team", s.sign(t, 3, pokedex_verifier.RoleUser), http.StatusForbidden},
		{"administrator", "/trainers/8/team", s.sign(t, 1, pokedex_verifier.RoleAdministrator), http.StatusOK},
		{"no token", "/trainers/8/team", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				req.Header.Set(constants.HeaderAuthorization, "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}

	names := metricNames(t, reg)
	assert.Contains(t, names, "pokedex_auth_token_verifications_total")
	assert.Contains(t, names, "pokedex_auth_public_key_fetches_total")
}
