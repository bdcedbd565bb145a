package service

import (
	"context"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/application/dto"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/models"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/repository"
	domainService "github.com/Mateusz-G541/pokedex-auth-service/internal/domain/service"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/constants"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/errors"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/logger"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/utils"
)

var (
	errForbiddenRead   = errors.ErrForbidden.WithMessage("Forbidden: You can only access your own profile")
	errForbiddenUpdate = errors.ErrForbidden.WithMessage("Forbidden: You can only update your own profile")
)

// UserAppService defines the user management operations behind /users.
type UserAppService interface {
	// List returns a page of users, newest first.
	List(ctx context.Context, page, limit int) (*dto.UserListResponse, error)

	// Search filters users by email substring, role and active flag. At most 50 results, by email.
	Search(ctx context.Context, q *dto.SearchUsersQuery) ([]*dto.UserResponse, error)

	// Get returns a user the actor may see: themselves, or anyone for administrators.
	Get(ctx context.Context, actor *models.Identity, id int64) (*dto.UserResponse, error)

	// Create adds an account. Administrators only.
	Create(ctx context.Context, actor *models.Identity, req *dto.CreateUserRequest, meta RequestMeta) (*dto.UserResponse, error)

	// Update changes a user record under the self-update policy.
	Update(ctx context.Context, actor *models.Identity, id int64, req *dto.UpdateUserRequest, meta RequestMeta) (*dto.UserResponse, error)

	// Delete removes an account. Administrators only; never the actor or the last administrator.
	Delete(ctx context.Context, actor *models.Identity, id int64, meta RequestMeta) error

	// EnsureAdmin creates an active administrator for email, or promotes and re-activates an
	// existing account. created reports which happened.
	EnsureAdmin(ctx context.Context, email, password string) (user *dto.UserResponse, created bool, err error)
}

type userAppServiceImpl struct {
	users  repository.UserRepository
	hasher domainService.PasswordHasher
	audit  domainService.AuditService
	logger logger.Logger
}

// NewUserAppService creates a new instance of UserAppService
func NewUserAppService(
	users repository.UserRepository,
	hasher domainService.PasswordHasher,
	audit domainService.AuditService,
	log logger.Logger,
) UserAppService {
	return &userAppServiceImpl{users: users, hasher: hasher, audit: audit, logger: log}
}

func (s *userAppServiceImpl) List(ctx context.Context, page, limit int) (*dto.UserListResponse, error) {
	page, limit = utils.ClampPage(page, limit, constants.DefaultPageSize, constants.MaxPageSize)

	total, err := s.users.Count(ctx, models.UserFilter{})
	if err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx, models.UserFilter{}, models.ListOptions{
		Offset: (page - 1) * limit,
		Limit:  limit,
		Order:  models.OrderByCreatedDesc,
	})
	if err != nil {
		return nil, err
	}

	return &dto.UserListResponse{
		Users:      dto.NewUserResponses(users),
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	}, nil
}

func (s *userAppServiceImpl) Search(ctx context.Context, q *dto.SearchUsersQuery) ([]*dto.UserResponse, error) {
	filter := models.UserFilter{
		EmailContains: q.Query,
		IsActive:      utils.ParseOptionalBool(q.IsActive),
	}
	if q.Role != "" {
		role, err := models.ParseRole(q.Role)
		if err != nil {
			return nil, errors.ErrValidation.WithDetails(map[string]string{"role": "role must be USER or ADMINISTRATOR"})
		}
		filter.Role = role
	}

	users, err := s.users.List(ctx, filter, models.ListOptions{
		Limit: constants.SearchResultLimit,
		Order: models.OrderByEmailAsc,
	})
	if err != nil {
		return nil, err
	}
	return dto.NewUserResponses(users), nil
}

func (s *userAppServiceImpl) Get(ctx context.Context, actor *models.Identity, id int64) (*dto.UserResponse, error) {
	if actor == nil {
		return nil, errors.ErrUnauthenticated
	}
	if !domainService.SelfOrAdmin(actor, id) {
		return nil, errForbiddenRead
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewUserResponse(user), nil
}

func (s *userAppServiceImpl) Create(ctx context.Context, actor *models.Identity, req *dto.CreateUserRequest, meta RequestMeta) (*dto.UserResponse, error) {
	if err := domainService.Authorize(actor, domainService.AdminRoles...); err != nil {
		return nil, err
	}
	req.Normalize()
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	role := models.RoleUser
	if req.Role != "" {
		role, _ = models.ParseRole(req.Role)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, errors.ErrInternal.WithError(err)
	}
	user := &models.User{
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	recordAudit(ctx, s.audit, s.logger, meta,
		models.NewAuditEvent(models.AuditUserCreated, actor.UserID, user.ID, true, "User created").
			WithMetadata(map[string]string{"role": string(role)}))
	return dto.NewUserResponse(user), nil
}

func (s *userAppServiceImpl) Update(ctx context.Context, actor *models.Identity, id int64, req *dto.UpdateUserRequest, meta RequestMeta) (*dto.UserResponse, error) {
	// 1. Who may touch the record, and which fields
	if actor == nil {
		return nil, errors.ErrUnauthenticated
	}
	if !domainService.SelfOrAdmin(actor, id) {
		return nil, errForbiddenUpdate
	}
	isAdmin := actor.IsAdmin()
	if !isAdmin && (req.Role != nil || req.IsActive != nil) {
		return nil, errors.ErrForbidden
	}
	req.Normalize()
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// 2. Password changes by non-administrators must prove the current password
	if req.Password != nil && !isAdmin {
		if req.CurrentPassword == nil || *req.CurrentPassword == "" {
			return nil, errors.ErrCurrentPasswordRequired
		}
		if !s.hasher.Compare(user.PasswordHash, *req.CurrentPassword) {
			return nil, errors.ErrCurrentPasswordInvalid
		}
	}

	changed := make([]string, 0, 4)

	if req.Email != nil {
		email := *req.Email
		if email != user.Email {
			existing, err := s.users.FindByEmail(ctx, email)
			if err == nil && existing.ID != user.ID {
				return nil, errors.ErrEmailExists
			}
			if err != nil && !errors.IsCode(err, errors.CodeNotFound) {
				return nil, err
			}
			user.Email = email
			changed = append(changed, "email")
		}
	}

	// 3. Role and status, guarding the last active administrator
	newRole, newActive := user.Role, user.IsActive
	if req.Role != nil {
		newRole, _ = models.ParseRole(*req.Role)
	}
	if req.IsActive != nil {
		newActive = *req.IsActive
	}
	if user.IsAdmin() && user.IsActive && (newRole != models.RoleAdministrator || !newActive) {
		if err := s.ensureOtherActiveAdmin(ctx, errors.ErrLastAdminDemotion); err != nil {
			return nil, err
		}
	}
	if newRole != user.Role {
		user.Role = newRole
		changed = append(changed, "role")
	}
	if newActive != user.IsActive {
		user.IsActive = newActive
		changed = append(changed, "isActive")
	}

	if req.Password != nil {
		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return nil, errors.ErrInternal.WithError(err)
		}
		user.PasswordHash = hash
		changed = append(changed, "password")
	}

	if len(changed) > 0 {
		if err := s.users.Update(ctx, user); err != nil {
			return nil, err
		}
		s.logger.Info(ctx, "User updated", logger.Fields{"user_id": user.ID, "fields": changed})
		recordAudit(ctx, s.audit, s.logger, meta,
			models.NewAuditEvent(models.AuditUserUpdated, actor.UserID, user.ID, true, "User updated").
				WithMetadata(map[string][]string{"fields": changed}))
	}
	return dto.NewUserResponse(user), nil
}

// ensureOtherActiveAdmin returns lastErr when no active administrator would remain after the
// caller removes one.
func (s *userAppServiceImpl) ensureOtherActiveAdmin(ctx context.Context, lastErr *errors.AppError) error {
	active := true
	n, err := s.users.Count(ctx, models.UserFilter{Role: models.RoleAdministrator, IsActive: &active})
	if err != nil {
		return err
	}
	if n <= 1 {
		return lastErr
	}
	return nil
}

func (s *userAppServiceImpl) Delete(ctx context.Context, actor *models.Identity, id int64, meta RequestMeta) error {
	if err := domainService.Authorize(actor, domainService.AdminRoles...); err != nil {
		return err
	}
	if actor.UserID == id {
		return errors.ErrSelfDelete
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if user.IsAdmin() && user.IsActive {
		if err := s.ensureOtherActiveAdmin(ctx, errors.ErrLastAdmin); err != nil {
			return err
		}
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	recordAudit(ctx, s.audit, s.logger, meta,
		models.NewAuditEvent(models.AuditUserDeleted, actor.UserID, id, true, "User deleted"))
	return nil
}

func (s *userAppServiceImpl) EnsureAdmin(ctx context.Context, email, password string) (*dto.UserResponse, bool, error) {
	email = utils.NormalizeEmail(email)
	if !utils.ValidateEmail(email) {
		return nil, false, errors.ErrValidation.WithDetails(map[string]string{"email": "email must be a valid email address"})
	}

	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if user.IsAdmin() && user.IsActive {
			return dto.NewUserResponse(user), false, nil
		}
		user.Role = models.RoleAdministrator
		user.IsActive = true
		if err := s.users.Update(ctx, user); err != nil {
			return nil, false, err
		}
		s.logger.Info(ctx, "Existing user promoted to administrator", logger.Fields{"user_id": user.ID})
		recordAudit(ctx, s.audit, s.logger, RequestMeta{},
			models.NewAuditEvent(models.AuditAdminSeeded, 0, user.ID, true, "User promoted to administrator"))
		return dto.NewUserResponse(user), false, nil

	case !errors.IsCode(err, errors.CodeNotFound):
		return nil, false, err
	}

	if !utils.IsStrongPassword(password) {
		return nil, false, errors.ErrValidation.WithDetails(map[string]string{"password": "password does not meet the password policy"})
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, false, errors.ErrInternal.WithError(err)
	}
	user = &models.User{
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdministrator,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, false, err
	}

	s.logger.Info(ctx, "Administrator created", logger.Fields{"user_id": user.ID})
	recordAudit(ctx, s.audit, s.logger, RequestMeta{},
		models.NewAuditEvent(models.AuditAdminSeeded, 0, user.ID, true, "Administrator created"))
	return dto.NewUserResponse(user), true, nil
}
