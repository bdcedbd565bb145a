package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/application/dto"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/models"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/service/mocks"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/errors"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/logger"
)

var (
	admin   = &models.Identity{UserID: 1, Email: "oak@pokedex.com", Role: models.RoleAdministrator}
	trainer = &models.Identity{UserID: 2, Email: "ash@pokedex.com", Role: models.RoleUser}
)

type userFixture struct {
	users  *mocks.MockUserRepository
	hasher *mocks.MockPasswordHasher
	audit  *mocks.MockAuditService
	svc    UserAppService
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()
	f := &userFixture{
		users:  new(mocks.MockUserRepository),
		hasher: new(mocks.MockPasswordHasher),
		audit:  new(mocks.MockAuditService),
	}
	f.svc = NewUserAppService(f.users, f.hasher, f.audit, logger.NewNoopLogger())
	t.Cleanup(func() {
		f.users.AssertExpectations(t)
		f.hasher.AssertExpectations(t)
		f.audit.AssertExpectations(t)
	})
	return f
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func storedTrainer() *models.User {
	return &models.User{ID: 2, Email: "ash@pokedex.com", PasswordHash: "old-hash", Role: models.RoleUser, IsActive: true}
}

func storedAdmin() *models.User {
	return &models.User{ID: 1, Email: "oak@pokedex.com", PasswordHash: "admin-hash", Role: models.RoleAdministrator, IsActive: true}
}

func TestUserAppService_List(t *testing.T) {
	ctx := context.Background()
	f := newUserFixture(t)

	f.users.On("Count", ctx, models.UserFilter{}).Return(int64(25), nil)
	f.users.On("List", ctx, models.UserFilter{}, models.ListOptions{Offset: 10, Limit: 10, Order: models.OrderByCreatedDesc}).
		Return([]*models.User{storedTrainer()}, nil)

	resp, err := f.svc.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(25), resp.Total)
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, 10, resp.Limit)
	assert.Equal(t, 3, resp.TotalPages)
	assert.Len(t, resp.Users, 1)
}

func TestUserAppService_Search(t *testing.T) {
	ctx := context.Background()
	f := newUserFixture(t)

	f.users.On("List", ctx, models.UserFilter{EmailContains: "ash", Role: models.RoleUser, IsActive: boolPtr(false)},
		models.ListOptions{Limit: 50, Order: models.OrderByEmailAsc}).Return([]*models.User{}, nil)

	users, err := f.svc.Search(ctx, &dto.SearchUsersQuery{Query: "ash", Role: "user", IsActive: "false"})
	require.NoError(t, err)
	assert.Empty(t, users)

	_, err = f.svc.Search(ctx, &dto.SearchUsersQuery{Role: "TRAINER"})
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestUserAppService_Get(t *testing.T) {
	ctx := context.Background()
	f := newUserFixture(t)
	f.users.On("FindByID", ctx, int64(2)).Return(storedTrainer(), nil)
	f.users.On("FindByID", ctx, int64(99)).Return(nil, errors.ErrUserNotFound)

	got, err := f.svc.Get(ctx, trainer, 2)
	require.NoError(t, err)
	assert.Equal(t, "ash@pokedex.com", got.Email)

	_, err = f.svc.Get(ctx, admin, 2)
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, trainer, 1)
	require.ErrorIs(t, err, errors.ErrForbidden)
	assert.Equal(t, "Forbidden: You can only access your own profile", errors.FromError(err).Message)

	_, err = f.svc.Get(ctx, admin, 99)
	assert.ErrorIs(t, err, errors.ErrUserNotFound)

	_, err = f.svc.Get(ctx, nil, 2)
	assert.ErrorIs(t, err, errors.ErrUnauthenticated)
}

func TestUserAppService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("administrator creates a user with the default role", func(t *testing.T) {
		f := newUserFixture(t)
		f.hasher.On("Hash", strongPassword).Return("hash", nil)
		f.users.On("Create", ctx, mock.MatchedBy(func(u *models.User) bool {
			return u.Email == "brock@pokedex.com" && u.Role == models.RoleUser && u.IsActive
		})).Run(func(args mock.Arguments) { args.Get(1).(*models.User).ID = 3 }).Return(nil)
		f.audit.On("LogEvent", ctx, auditOf(models.AuditUserCreated)).Return(nil)

		got, err := f.svc.Create(ctx, admin, &dto.CreateUserRequest{Email: "brock@pokedex.com", Password: strongPassword}, RequestMeta{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), got.ID)
		assert.Equal(t, "USER", got.Role)
	})

	t.Run("padded email is normalized before validation", func(t *testing.T) {
		f := newUserFixture(t)
		f.hasher.On("Hash", strongPassword).Return("hash", nil)
		f.users.On("Create", ctx, mock.MatchedBy(func(u *models.User) bool { return u.Email == "erika@pokedex.com" })).Return(nil)
		f.audit.On("LogEvent", ctx, auditOf(models.AuditUserCreated)).Return(nil)

		got, err := f.svc.Create(ctx, admin, &dto.CreateUserRequest{Email: " Erika@Pokedex.com  ", Password: strongPassword}, RequestMeta{})
		require.NoError(t, err)
		assert.Equal(t, "erika@pokedex.com", got.Email)
	})

	t.Run("explicit role", func(t *testing.T) {
		f := newUserFixture(t)
		f.hasher.On("Hash", strongPassword).Return("hash", nil)
		f.users.On("Create", ctx, mock.MatchedBy(func(u *models.User) bool { return u.Role == models.RoleAdministrator })).Return(nil)
		f.audit.On("LogEvent", ctx, mock.Anything).Return(nil)

		got, err := f.svc.Create(ctx, admin, &dto.CreateUserRequest{Email: "lance@pokedex.com", Password: strongPassword, Role: "ADMINISTRATOR"}, RequestMeta{})
		require.NoError(t, err)
		assert.Equal(t, "ADMINISTRATOR", got.Role)
	})

	t.Run("duplicate email", func(t *testing.T) {
		f := newUserFixture(t)
		f.hasher.On("Hash", strongPassword).Return("hash", nil)
		f.users.On("Create", ctx, mock.Anything).Return(errors.ErrEmailExists)

		_, err := f.svc.Create(ctx, admin, &dto.CreateUserRequest{Email: "ash@pokedex.com", Password: strongPassword}, RequestMeta{})
		assert.ErrorIs(t, err, errors.ErrEmailExists)
	})

	t.Run("non-administrator", func(t *testing.T) {
		f := newUserFixture(t)
		_, err := f.svc.Create(ctx, trainer, &dto.CreateUserRequest{Email: "x@pokedex.com", Password: strongPassword}, RequestMeta{})
		assert.ErrorIs(t, err, errors.ErrForbidden)
	})
}

func TestUserAppService_Update_SelfPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("user changes own email", func(t *testing.T) {
		f := newUserFixture(t)
		f.users.On("FindByID", ctx, int64(2)).Return(storedTrainer(), nil)
		f.users.On("FindByEmail", ctx, "ketchum@pokedex.com").Return(nil, errors.ErrUserNotFound)
		f.users.On("Update", ctx, mock.MatchedBy(func(u *models.User) bool { return u.Email == "ketchum@pokedex.com" })).Return(nil)
		f.audit.On("LogEvent", ctx, auditOf(models.AuditUserUpdated)).Return(nil)

		got, err := f.svc.Update(ctx, trainer, 2, &dto.UpdateUserRequest{Email: strPtr("Ketchum@pokedex.com")}, RequestMeta{})
		require.NoError(t, err)
		assert.Equal(t, "ketchum@pokedex.com", got.Email)
	})

	t.Run("user cannot update someone else", func(t *testing.T) {
		f := newUserFixture(t)
		_, err := f.svc.Update(ctx, trainer, 1, &dto.UpdateUserRequest{Email: strPtr("x@pokedex.com")}, RequestMeta{})
		require.ErrorIs(t, err, errors.ErrForbidden)
		assert.Equal(t, "Forbidden: You can only update your own profile", errors.FromError(err).Message)
	})

	t.Run("user cannot change own role or status", func(t *testing.T) {
		f := newUserFixture(t)
		_, err := f.svc.Update(ctx, trainer, 2, &dto.UpdateUserRequest{Role: strPtr("ADMINISTRATOR")}, RequestMeta{})
		require.ErrorIs(t, err, errors.ErrForbidden)
		assert.Equal(t, "Insufficient permissions", errors.FromError(err).Message)

		_, err = f.svc.Update(ctx, trainer, 2, &dto.UpdateUserRequest{IsActive: boolPtr(false)}, RequestMeta{})
		assert.ErrorIs(t, err, errors.ErrForbidden)
	})

	t.Run("password change needs current password", func(t *testing.T) {
		f := newUserFixture(t)
		f.users.On("FindByID", ctx, int64(2)).Return(storedTrainer(), nil)

		_, err := f.svc.Update(ctx, trainer, 2, &dto.UpdateUserRequest{Password: strPtr("NewPass1!")}, RequestMeta{})
		require.ErrorIs(t, err, errors.ErrCurrentPasswordRequired)
		assert.Equal(t, 400, errors.HTTPStatus(err))
	})

	t.Run("password change with wrong current password", func(t *testing.T) {
		f := newUserFixture(t)
		f.users.On("FindByID", ctx, int64(2)).Return(storedTrainer(), nil)
		f.hasher.On("Compare", "old-hash", "Nope1234!").Return(false)

		_, err := f.svc.Update(ctx, trainer, 2, &dto.UpdateUserRequest{
			Password:        strPtr("NewPass1!"),
			CurrentPassword: strPtr("Nope1234!"),
		}, RequestMeta{})
		require.ErrorIs(t, err, errors.ErrCurrentPasswordInvalid)
		assert.Equal(t, 401, errors.HTTPStatus(err))
	})

	t.Run("password change with current password", func(t *testing.T) {
		f := newUserFixture(t)
		f.users.On("FindByID", ctx, int64(2)).Return(storedTrainer(), nil)
		f.hasher.On("Compare", "old-hash", strongPassword).Return(true)
		f.hasher.On("Hash", "NewPass1!").Return("new-hash", nil)
		f.users.On("Update", ctx, mock.MatchedBy(func(u *models.User) bool { return u.PasswordHash == "new-hash" })).Return(nil)
		f.audit.On("LogEvent", ctx, auditOf(models.AuditUserUpdated)).Return(nil)

		_, err := f.svc.Update(ctx, trainer, 2, &dto.UpdateUserRequest{
			Password:        strPtr("NewPass1!"),
			CurrentPassword: strPtr(strongPassword),
		}, RequestMeta{})
		assert.NoError(t, err)
	})

	t.Run("email already taken", func(t *testing.T) {
		f := newUserFixture(t)
		f.users.On("FindByID", ctx, int64(2)).Return(storedTrainer(), nil)
		f.users.On("FindByEmail", ctx, "oak@pokedex.com").Return(storedAdmin(), nil)

		_, err := f.svc.Update(ctx, trainer, 2, &dto.UpdateUserRequest{Email: strPtr("oak@pokedex.com")}, RequestMeta{})
		assert.ErrorIs(t, err, errors.ErrEmailExists)
	})

	t.Run("no changes skips the write", func(t *testing.T) {
		f := newUserFixture(t)
		f.users.On("FindByID", ctx, int64(2)).Return(storedTrainer(), nil)

		_, err := f.svc.Update(ctx, trainer, 2, &dto.UpdateUserRequest{Email: strPtr("ash@pokedex.com")}, RequestMeta{})
		assert.NoError(t, err)
	})
}

func TestUserAppService_Update_Admin(t *testing.T) {
	ctx := context.Background()
	activeAdmins := models.UserFilter{Role: models.RoleAdministrator, IsActive: boolPtr(true)}

	t.Run("administrator changes role and status without current password", func(t *testing.T) {
		f := newUserFixture(t)
		f.users.On("FindByID", ctx, int64(2)).Return(storedTrainer(), nil)
		f.hasher.On("Hash", "NewPass1!").Return("new-hash", nil)
		f.users.On("Update", ctx, mock.MatchedBy(func(u *models.User) bool {
			return u.Role == models.RoleAdministrator && !u.IsActive && u.PasswordHash == "new-hash"
		})).Return(nil)
		f.audit.On("LogEvent", ctx, auditOf(models.AuditUserUpdated)).Return(nil)

		got, err := f.svc.Update(ctx, admin, 2, &dto.UpdateUserRequest{
			Role:     strPtr("ADMINISTRATOR"),
			IsActive: boolPtr(false),
			Password: strPtr("NewPass1!"),
		}, RequestMeta{})
		require.NoError(t, err)
		assert.Equal(t, "ADMINISTRATOR", got.Role)
		assert.False(t, got.IsActive)
	})

	t.Run("last administrator cannot be demoted", func(t *testing.T) {
		f := newUserFixture(t)
		f.users.On("FindByID", ctx, int64(1)).Return(storedAdmin(), nil)
		f.users.On("Count", ctx, activeAdmins).Return(int64(1), nil)

		_, err := f.svc.Update(ctx, admin, 1, &dto.UpdateUserRequest{Role: strPtr("USER")}, RequestMeta{})
		require.ErrorIs(t, err, errors.ErrLastAdminDemotion)
		assert.Equal(t, "Cannot remove the last administrator", errors.FromError(err).Message)
	})

	t.Run("last administrator cannot be deactivated", func(t *testing.T) {
		f := newUserFixture(t)
		f.users.On("FindByID", ctx, int64(1)).Return(storedAdmin(), nil)
		f.users.On("Count", ctx, activeAdmins).Return(int64(1), nil)

		_, err := f.svc.Update(ctx, admin, 1, &dto.UpdateUserRequest{IsActive: boolPtr(false)}, RequestMeta{})
		assert.ErrorIs(t, err, errors.ErrLastAdminDemotion)
	})

	t.Run("demotion allowed when another administrator exists", func(t *testing.T) {
		f := newUserFixture(t)
		f.users.On("FindByID", ctx, int64(1)).Return(storedAdmin(), nil)
		f.users.On("Count", ctx, activeAdmins).Return(int64(2), nil)
		f.users.On("Update", ctx, mock.Anything).Return(nil)
		f.audit.On("LogEvent", ctx, mock.Anything).Return(nil)

		got, err := f.svc.Update(ctx, admin, 1, &dto.UpdateUserRequest{Role: strPtr("USER")}, RequestMeta{})
		require.NoError(t, err)
		assert.Equal(t, "USER", got.Role)
	})
}

func TestUserAppService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		f := newUserFixture(t)
		f.users.On("FindByID", ctx, int64(2)).Return(storedTrainer(), nil)
		f.users.On("Delete", ctx, int64(2)).Return(nil)
		f.audit.On("LogEvent", ctx, auditOf(models.AuditUserDeleted)).Return(nil)

		assert.NoError(t, f.svc.Delete(ctx, admin, 2, RequestMeta{}))
	})

	t.Run("self delete", func(t *testing.T) {
		f := newUserFixture(t)
		err := f.svc.Delete(ctx, admin, 1, RequestMeta{})
		require.ErrorIs(t, err, errors.ErrSelfDelete)
		assert.Equal(t, "You cannot delete your own account", errors.FromError(err).Message)
	})

	t.Run("last administrator", func(t *testing.T) {
		f := newUserFixture(t)
		other := storedAdmin()
		other.ID = 5
		f.users.On("FindByID", ctx, int64(5)).Return(other, nil)
		f.users.On("Count", ctx, models.UserFilter{Role: models.RoleAdministrator, IsActive: boolPtr(true)}).Return(int64(1), nil)

		err := f.svc.Delete(ctx, admin, 5, RequestMeta{})
		require.ErrorIs(t, err, errors.ErrLastAdmin)
		assert.Equal(t, "Cannot delete the last administrator", errors.FromError(err).Message)
	})

	t.Run("deactivated administrators do not count", func(t *testing.T) {
		f := newUserFixture(t)
		other := storedAdmin()
		other.ID = 5
		f.users.On("FindByID", ctx, int64(5)).Return(other, nil)
		// one active plus one deactivated administrator
		f.users.On("Count", ctx, models.UserFilter{Role: models.RoleAdministrator, IsActive: boolPtr(true)}).Return(int64(1), nil)

		err := f.svc.Delete(ctx, admin, 5, RequestMeta{})
		require.ErrorIs(t, err, errors.ErrLastAdmin)
		f.users.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("deactivated administrator can be deleted", func(t *testing.T) {
		f := newUserFixture(t)
		retired := storedAdmin()
		retired.ID = 6
		retired.IsActive = false
		f.users.On("FindByID", ctx, int64(6)).Return(retired, nil)
		f.users.On("Delete", ctx, int64(6)).Return(nil)
		f.audit.On("LogEvent", ctx, auditOf(models.AuditUserDeleted)).Return(nil)

		assert.NoError(t, f.svc.Delete(ctx, admin, 6, RequestMeta{}))
	})

	t.Run("not found", func(t *testing.T) {
		f := newUserFixture(t)
		f.users.On("FindByID", ctx, int64(9)).Return(nil, errors.ErrUserNotFound)
		assert.ErrorIs(t, f.svc.Delete(ctx, admin, 9, RequestMeta{}), errors.ErrUserNotFound)
	})

	t.Run("non-administrator", func(t *testing.T) {
		f := newUserFixture(t)
		assert.ErrorIs(t, f.svc.Delete(ctx, trainer, 1, RequestMeta{}), errors.ErrForbidden)
	})
}

func TestUserAppService_EnsureAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a new administrator", func(t *testing.T) {
		f := newUserFixture(t)
		f.users.On("FindByEmail", ctx, "admin@pokedex.com").Return(nil, errors.ErrUserNotFound)
		f.hasher.On("Hash", "AdminPass123!").Return("hash", nil)
		f.users.On("Create", ctx, mock.MatchedBy(func(u *models.User) bool {
			return u.Role == models.RoleAdministrator && u.IsActive
		})).Return(nil)
		f.audit.On("LogEvent", ctx, auditOf(models.AuditAdminSeeded)).Return(nil)

		user, created, err := f.svc.EnsureAdmin(ctx, "admin@pokedex.com", "AdminPass123!")
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "ADMINISTRATOR", user.Role)
	})

	t.Run("promotes and re-activates an existing user", func(t *testing.T) {
		f := newUserFixture(t)
		existing := storedTrainer()
		existing.IsActive = false
		f.users.On("FindByEmail", ctx, "ash@pokedex.com").Return(existing, nil)
		f.users.On("Update", ctx, mock.MatchedBy(func(u *models.User) bool {
			return u.Role == models.RoleAdministrator && u.IsActive && u.PasswordHash == "old-hash"
		})).Return(nil)
		f.audit.On("LogEvent", ctx, auditOf(models.AuditAdminSeeded)).Return(nil)

		user, created, err := f.svc.EnsureAdmin(ctx, "ash@pokedex.com", "ignored")
		require.NoError(t, err)
		assert.False(t, created)
		assert.True(t, user.IsActive)
	})

	t.Run("already an administrator", func(t *testing.T) {
		f := newUserFixture(t)
		f.users.On("FindByEmail", ctx, "oak@pokedex.com").Return(storedAdmin(), nil)

		_, created, err := f.svc.EnsureAdmin(ctx, "oak@pokedex.com", "")
		require.NoError(t, err)
		assert.False(t, created)
	})

	t.Run("weak password for a new administrator", func(t *testing.T) {
		f := newUserFixture(t)
		f.users.On("FindByEmail", ctx, "admin@pokedex.com").Return(nil, errors.ErrUserNotFound)

		_, _, err := f.svc.EnsureAdmin(ctx, "admin@pokedex.com", "admin")
		assert.ErrorIs(t, err, errors.ErrValidation)
	})

	t.Run("invalid email", func(t *testing.T) {
		f := newUserFixture(t)
		_, _, err := f.svc.EnsureAdmin(ctx, "not-an-email", "AdminPass123!")
		assert.ErrorIs(t, err, errors.ErrValidation)
	})
}
