package service

import (
	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/models"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/errors"
)

// AdminRoles and UserRoles are the role sets behind RequireAdmin and RequireUser.
var (
	AdminRoles = []models.Role{models.RoleAdministrator}
	UserRoles  = []models.Role{models.RoleUser, models.RoleAdministrator}
)

// Authorize decides whether identity may proceed given the required roles.
// A nil identity is always ErrUnauthenticated; a role outside roles is ErrForbidden.
func Authorize(identity *models.Identity, roles ...models.Role) error {
	if identity == nil {
		return errors.ErrUnauthenticated
	}
	if !identity.HasRole(roles...) {
		return errors.ErrForbidden
	}
	return nil
}

// SelfOrAdmin reports whether identity may act on the user record targetID.
func SelfOrAdmin(identity *models.Identity, targetID int64) bool {
	if identity == nil {
		return false
	}
	return identity.Role == models.RoleAdministrator || identity.UserID == targetID
}
