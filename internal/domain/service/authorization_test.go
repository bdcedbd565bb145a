package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/models"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/errors"
)

func TestAuthorize(t *testing.T) {
	user := &models.Identity{UserID: 1, Role: models.RoleUser}
	admin := &models.Identity{UserID: 2, Role: models.RoleAdministrator}

	tests := []struct {
		name     string
		identity *models.Identity
		roles    []models.Role
		wantErr  error
	}{
		{"admin-only rejects user", user, AdminRoles, errors.ErrForbidden},
		{"admin-only accepts admin", admin, AdminRoles, nil},
		{"user-level accepts user", user, UserRoles, nil},
		{"user-level accepts admin", admin, UserRoles, nil},
		{"no identity on admin-only", nil, AdminRoles, errors.ErrUnauthenticated},
		{"no identity on user-level", nil, UserRoles, errors.ErrUnauthenticated},
		{"no identity on empty set", nil, nil, errors.ErrUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.identity, tt.roles...)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAuthorize_Messages(t *testing.T) {
	err := Authorize(nil, AdminRoles...)
	assert.Equal(t, "Authentication required", errors.FromError(err).Message)

	err = Authorize(&models.Identity{UserID: 1, Role: models.RoleUser}, AdminRoles...)
	assert.Equal(t, "Insufficient permissions", errors.FromError(err).Message)
	assert.Equal(t, 403, errors.FromError(err).HTTPStatus)
}

func TestSelfOrAdmin(t *testing.T) {
	user := &models.Identity{UserID: 5, Role: models.RoleUser}
	admin := &models.Identity{UserID: 1, Role: models.RoleAdministrator}

	assert.True(t, SelfOrAdmin(user, 5))
	assert.False(t, SelfOrAdmin(user, 6))
	assert.True(t, SelfOrAdmin(admin, 6))
	assert.False(t, SelfOrAdmin(nil, 5))
}
