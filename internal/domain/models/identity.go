package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Mateusz-G541/pokedex-auth-service/pkg/constants"
)

// Role is a closed set of user roles.
type Role string

const (
	RoleUser          Role = "USER"
	RoleAdministrator Role = "ADMINISTRATOR"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdministrator
}

func (r Role) String() string {
	return string(r)
}

// ParseRole parses a role name case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// IdentityClaims is the input to token issuance.
type IdentityClaims struct {
	UserID int64
	Email  string
	Role   Role
}

// Identity is the verified caller attached to a request.
type Identity struct {
	UserID    int64     `json:"userId"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// IsAdmin reports whether the identity holds the administrator role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdministrator
}

// HasRole reports whether the identity's role is one of roles.
func (i *Identity) HasRole(roles ...Role) bool {
	if i == nil {
		return false
	}
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

// ContextWithIdentity returns a copy of ctx carrying identity.
func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, constants.ContextKeyIdentity, identity)
}

// IdentityFromContext returns the identity stored in ctx, if any.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(constants.ContextKeyIdentity).(*Identity)
	return identity, ok && identity != nil
}
