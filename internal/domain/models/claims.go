package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims is the JWT payload issued by the auth service.
// It embeds the standard jwt.RegisteredClaims (iss, aud, iat, exp) and adds the identity fields.
type TokenClaims struct {
	jwt.RegisteredClaims
	// UserID is the identifier of the user the token was issued to.
	UserID int64 `json:"userId"`
	// Email is informational; it is not re-checked against the user store on each request.
	Email string `json:"email"`
	// Role is the user's role at issuance time.
	Role Role `json:"role"`
}

// Identity converts verified claims into an Identity.
func (c *TokenClaims) Identity() *Identity {
	id := &Identity{
		UserID: c.UserID,
		Email:  c.Email,
		Role:   c.Role,
	}
	if c.IssuedAt != nil {
		id.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		id.ExpiresAt = c.ExpiresAt.Time
	}
	return id
}
