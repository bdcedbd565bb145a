// Package constants defines system-wide constants for the Pokedex Auth Service.
// Values here are shared by the issuing service and by consumer services that verify tokens.
package constants

import "time"

// ================================================================================
// Token Constants
// ================================================================================

const (
	// TokenIssuer is the value of the iss claim on every issued token.
	TokenIssuer = "pokedex-auth-service"

	// TokenAudience is the value of the aud claim on every issued token.
	TokenAudience = "pokedex-app"

	// SigningAlgorithm is the only algorithm accepted for signing and verification.
	SigningAlgorithm = "RS256"

	// DefaultTokenLifetime is used when jwt.expires_in is not configured.
	DefaultTokenLifetime = 24 * time.Hour

	// RSAKeyBits is the modulus size used when generating a signing key pair.
	RSAKeyBits = 2048
)

// TokenTypeBearer is the Authorization header scheme.
const TokenTypeBearer = "Bearer"

// ================================================================================
// Public Key Distribution Constants
// ================================================================================

const (
	// PublicKeyPath is the well-known endpoint consumers fetch the verification key from.
	PublicKeyPath = "/auth/public-key"

	// PublicKeyCacheTTL is how long a consumer reuses a fetched key.
	PublicKeyCacheTTL = time.Hour

	// PublicKeyFetchTimeout bounds a single key fetch.
	PublicKeyFetchTimeout = 5 * time.Second

	// DefaultAuthServiceURL is the issuer base URL consumers use when none is configured.
	DefaultAuthServiceURL = "http://localhost:4000"
)

// ================================================================================
// HTTP Header Constants
// ================================================================================

const (
	HeaderAuthorization = "Authorization"
	HeaderRequestID     = "X-Request-ID"
	HeaderRetryAfter    = "Retry-After"
)

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey is the type for values stored in context.Context by this service.
type ContextKey string

const (
	ContextKeyRequestID ContextKey = "request_id"
	ContextKeyTraceID   ContextKey = "trace_id"
	ContextKeyLogger    ContextKey = "logger"
	ContextKeyIdentity  ContextKey = "identity"
)

// ================================================================================
// Logging Constants
// ================================================================================

// LogLevel represents a logging severity level.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// ================================================================================
// Service Metadata
// ================================================================================

const (
	ServiceName    = "pokedex-auth-service"
	ServiceVersion = "1.0.0"
)

// ================================================================================
// User Management Limits
// ================================================================================

const (
	DefaultPageSize   = 10
	MaxPageSize       = 100
	SearchResultLimit = 50
	MinPasswordLength = 8
	DefaultBcryptCost = 12
)
