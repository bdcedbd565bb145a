package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/application/dto"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/models"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/service"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/infrastructure/monitoring"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/constants"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/errors"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/logger"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/utils"
)

const authOutcomeKey = "auth_outcome"

// AuthOutcome is the result of optional authentication: either an authenticated identity
// or an anonymous caller.
type AuthOutcome struct {
	identity *models.Identity
}

// Authenticated returns the outcome for a verified caller.
func Authenticated(identity *models.Identity) AuthOutcome {
	return AuthOutcome{identity: identity}
}

// Anonymous returns the outcome for a caller without a usable token.
func Anonymous() AuthOutcome {
	return AuthOutcome{}
}

// Identity returns the verified identity, if any.
func (o AuthOutcome) Identity() (*models.Identity, bool) {
	return o.identity, o.identity != nil
}

// IsAuthenticated reports whether the caller presented a valid token.
func (o AuthOutcome) IsAuthenticated() bool {
	return o.identity != nil
}

// tokenDecoder is implemented by verifiers that can read a token without verifying it.
type tokenDecoder interface {
	Decode(token string) (*models.Identity, bool)
}

// Authenticator runs the authentication pipeline in front of protected routes.
type Authenticator struct {
	verifier service.TokenVerifier
	metrics  *monitoring.Metrics
	log      logger.Logger
}

// NewAuthenticator creates an Authenticator. metrics may be nil.
func NewAuthenticator(verifier service.TokenVerifier, metrics *monitoring.Metrics, log logger.Logger) *Authenticator {
	return &Authenticator{verifier: verifier, metrics: metrics, log: log}
}

// Authenticate rejects the request unless it carries a valid bearer token, and attaches the
// verified identity to the request context.
func (a *Authenticator) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := a.verify(c)
		if err != nil {
			dto.SendError(c, err)
			return
		}
		setIdentity(c, identity)
		c.Next()
	}
}

// OptionalAuthenticate attaches an identity when a valid token is present and never rejects
// the request. Handlers read the result with Outcome.
func (a *Authenticator) OptionalAuthenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := a.verify(c)
		if err != nil {
			if err == errors.ErrMissingAuthHeader {
				a.log.Debug(c.Request.Context(), "Anonymous request")
			} else {
				a.log.Warn(c.Request.Context(), "Optional authentication failed", logger.Fields{"error": err.Error()})
			}
			c.Set(authOutcomeKey, Anonymous())
			c.Next()
			return
		}
		setIdentity(c, identity)
		c.Set(authOutcomeKey, Authenticated(identity))
		c.Next()
	}
}

func (a *Authenticator) verify(c *gin.Context) (*models.Identity, error) {
	token, err := utils.ExtractBearerToken(c.GetHeader(constants.HeaderAuthorization))
	if err != nil {
		return nil, err
	}

	identity, err := a.verifier.Verify(c.Request.Context(), token)
	if err != nil {
		fields := logger.Fields{"error": err.Error(), "path": c.FullPath()}
		if d, ok := a.verifier.(tokenDecoder); ok {
			if claimed, ok := d.Decode(token); ok {
				fields["claimed_user_id"] = claimed.UserID
			}
		}
		a.log.Warn(c.Request.Context(), "Token verification failed", fields)
		return nil, err
	}
	return identity, nil
}

// RequireRole allows the request only when the authenticated identity holds one of roles.
// It must run after Authenticate or OptionalAuthenticate.
func RequireRole(metrics *monitoring.Metrics, roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, _ := IdentityFrom(c)
		if err := service.Authorize(identity, roles...); err != nil {
			metrics.RecordAuthorizationDenied(errors.FromError(err).Code)
			dto.SendError(c, err)
			return
		}
		c.Next()
	}
}

// RequireAdmin allows administrators only.
func RequireAdmin(metrics *monitoring.Metrics) gin.HandlerFunc {
	return RequireRole(metrics, service.AdminRoles...)
}

// RequireUser allows any authenticated user.
func RequireUser(metrics *monitoring.Metrics) gin.HandlerFunc {
	return RequireRole(metrics, service.UserRoles...)
}

// IdentityFrom returns the identity attached by the authentication middleware.
func IdentityFrom(c *gin.Context) (*models.Identity, bool) {
	return models.IdentityFromContext(c.Request.Context())
}

// Outcome returns the result recorded by OptionalAuthenticate. Requests that did not pass
// through it are anonymous.
func Outcome(c *gin.Context) AuthOutcome {
	if v, ok := c.Get(authOutcomeKey); ok {
		if o, ok := v.(AuthOutcome); ok {
			return o
		}
	}
	return Anonymous()
}

func setIdentity(c *gin.Context, identity *models.Identity) {
	c.Request = c.Request.WithContext(models.ContextWithIdentity(c.Request.Context(), identity))
	c.Set(string(constants.ContextKeyIdentity), identity)
}
