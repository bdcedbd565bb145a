package models_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/models"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    models.Role
		wantErr bool
	}{
		{"USER", models.RoleUser, false},
		{"administrator", models.RoleAdministrator, false},
		{" user ", models.RoleUser, false},
		{"ROOT", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := models.ParseRole(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIdentity_HasRole(t *testing.T) {
	user := &models.Identity{UserID: 1, Role: models.RoleUser}
	admin := &models.Identity{UserID: 2, Role: models.RoleAdministrator}
	var none *models.Identity

	assert.True(t, user.HasRole(models.RoleUser, models.RoleAdministrator))
	assert.False(t, user.HasRole(models.RoleAdministrator))
	assert.True(t, admin.IsAdmin())
	assert.False(t, none.HasRole(models.RoleUser))
	assert.False(t, none.IsAdmin())
}

func TestTokenClaims_Identity(t *testing.T) {
	iat := time.Unix(1700000000, 0)
	claims := &models.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(iat.Add(time.Hour)),
		},
		UserID: 42,
		Email:  "a@x.com",
		Role:   models.RoleUser,
	}

	id := claims.Identity()
	assert.Equal(t, int64(42), id.UserID)
	assert.Equal(t, "a@x.com", id.Email)
	assert.Equal(t, iat.Unix(), id.IssuedAt.Unix())
	assert.Equal(t, iat.Add(time.Hour).Unix(), id.ExpiresAt.Unix())
}

func TestIdentityContext(t *testing.T) {
	_, ok := models.IdentityFromContext(context.Background())
	assert.False(t, ok)

	id := &models.Identity{UserID: 7, Role: models.RoleUser}
	got, ok := models.IdentityFromContext(models.ContextWithIdentity(context.Background(), id))
	require.True(t, ok)
	assert.Same(t, id, got)
}

func TestUser_Claims(t *testing.T) {
	u := &models.User{ID: 3, Email: "x@y.z", Role: models.RoleAdministrator}
	assert.Equal(t, models.IdentityClaims{UserID: 3, Email: "x@y.z", Role: models.RoleAdministrator}, u.Claims())
	assert.True(t, u.IsAdmin())
}
