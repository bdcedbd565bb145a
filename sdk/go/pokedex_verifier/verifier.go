// Package pokedex_verifier lets other Pokedex services accept tokens issued by the auth
// service. The issuer's public key is fetched over HTTP, cached for an hour and used to
// verify RS256 tokens locally; no request is sent to the issuer per token.
package pokedex_verifier

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/models"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/service"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/infrastructure/crypto"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/infrastructure/kms"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/infrastructure/monitoring"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/interfaces/http/middleware"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/logger"
)

// Identity is the caller carried by a verified token.
type Identity = models.Identity

// Role is a user role carried in the token.
type Role = models.Role

// The roles a token can carry.
const (
	RoleUser          = models.RoleUser
	RoleAdministrator = models.RoleAdministrator
)

// AuthOutcome is the result OptionalAuthenticate leaves on the request.
type AuthOutcome = middleware.AuthOutcome

// Config configures a Verifier. Only AuthServiceURL is usually set; the remaining fields
// fall back to a one hour cache and a five second fetch timeout.
type Config struct {
	AuthServiceURL string
	CacheTTL       time.Duration
	FetchTimeout   time.Duration
	HTTPClient     *http.Client
	Logger         logger.Logger

	// Registerer receives the verifier's metrics. Nil disables metrics. A registry can hold
	// the metrics of one Verifier only.
	Registerer prometheus.Registerer

	// Clock overrides time.Now for the key cache and token expiry checks.
	Clock func() time.Time
}

// Verifier verifies Pokedex tokens and provides gin middleware built on them.
type Verifier struct {
	keys    *kms.PublicKeyCache
	remote  *crypto.RemoteVerifier
	auth    *middleware.Authenticator
	metrics *monitoring.Metrics
}

// New creates a Verifier for the auth service at cfg.AuthServiceURL. The key is fetched
// lazily on the first verification.
func New(cfg Config) (*Verifier, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNoopLogger()
	}
	var metrics *monitoring.Metrics
	if cfg.Registerer != nil {
		metrics = monitoring.NewMetrics(cfg.Registerer)
	}

	keys, err := kms.NewPublicKeyCache(kms.PublicKeyCacheConfig{
		AuthServiceURL: cfg.AuthServiceURL,
		TTL:            cfg.CacheTTL,
		FetchTimeout:   cfg.FetchTimeout,
		HTTPClient:     cfg.HTTPClient,
		Clock:          cfg.Clock,
		Metrics:        metrics,
	}, log)
	if err != nil {
		return nil, err
	}

	opts := []crypto.Option{crypto.WithMetrics(metrics)}
	if cfg.Clock != nil {
		opts = append(opts, crypto.WithClock(cfg.Clock))
	}
	remote := crypto.NewRemoteVerifier(keys, log, opts...)

	return &Verifier{
		keys:    keys,
		remote:  remote,
		auth:    middleware.NewAuthenticator(remote, metrics, log),
		metrics: metrics,
	}, nil
}

// Verify checks tokenString against the issuer's public key and returns the caller.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*Identity, error) {
	return v.remote.Verify(ctx, tokenString)
}

// PublicKey returns the issuer's PEM public key, fetching it if the cached copy is stale.
func (v *Verifier) PublicKey(ctx context.Context) (string, error) {
	return v.keys.Get(ctx)
}

// Warm fetches the key ahead of the first request. Consumers that want to fail fast on a
// misconfigured AuthServiceURL call it at startup.
func (v *Verifier) Warm(ctx context.Context) error {
	_, err := v.keys.Get(ctx)
	return err
}

// Authenticate rejects requests without a valid bearer token.
func (v *Verifier) Authenticate() gin.HandlerFunc {
	return v.auth.Authenticate()
}

// OptionalAuthenticate attaches the caller when a valid token is present and never rejects.
func (v *Verifier) OptionalAuthenticate() gin.HandlerFunc {
	return v.auth.OptionalAuthenticate()
}

// RequireAdmin admits administrators only. It must run after Authenticate.
func (v *Verifier) RequireAdmin() gin.HandlerFunc {
	return middleware.RequireAdmin(v.metrics)
}

// RequireUser admits users and administrators. It must run after Authenticate.
func (v *Verifier) RequireUser() gin.HandlerFunc {
	return middleware.RequireUser(v.metrics)
}

// RequireRole admits callers holding one of roles. It must run after Authenticate.
func (v *Verifier) RequireRole(roles ...Role) gin.HandlerFunc {
	return middleware.RequireRole(v.metrics, roles...)
}

// IdentityFrom returns the caller attached by Authenticate or OptionalAuthenticate.
func IdentityFrom(c *gin.Context) (*Identity, bool) {
	return middleware.IdentityFrom(c)
}

// Outcome returns what OptionalAuthenticate decided for the request.
func Outcome(c *gin.Context) AuthOutcome {
	return middleware.Outcome(c)
}

// SelfOrAdmin reports whether identity may act on the record owned by userID.
func SelfOrAdmin(identity *Identity, userID int64) bool {
	return service.SelfOrAdmin(identity, userID)
}
