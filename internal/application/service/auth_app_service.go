// Package service provides application-level services that orchestrate domain services and repositories.
package service

import (
	"context"
	"sync"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/application/dto"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/models"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/repository"
	domainService "github.com/Mateusz-G541/pokedex-auth-service/internal/domain/service"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/constants"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/errors"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/logger"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/utils"
)

// AuthAppService defines the account and token operations behind /auth.
type AuthAppService interface {
	// Register creates a USER account and returns a token for it.
	Register(ctx context.Context, req *dto.RegisterRequest, meta RequestMeta) (*dto.AuthResponse, error)

	// Login checks credentials and returns a fresh token.
	Login(ctx context.Context, req *dto.LoginRequest, meta RequestMeta) (*dto.AuthResponse, error)

	// Me returns the profile of the authenticated caller.
	Me(ctx context.Context, userID int64) (*dto.UserResponse, error)

	// PublicKey returns the verification key and the parameters tokens are issued with.
	PublicKey() *dto.PublicKeyResponse
}

// authAppServiceImpl is the concrete implementation of AuthAppService
type authAppServiceImpl struct {
	users  repository.UserRepository
	tokens domainService.TokenService
	hasher domainService.PasswordHasher
	audit  domainService.AuditService
	logger logger.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthAppService creates a new instance of AuthAppService
func NewAuthAppService(
	users repository.UserRepository,
	tokens domainService.TokenService,
	hasher domainService.PasswordHasher,
	audit domainService.AuditService,
	log logger.Logger,
) AuthAppService {
	return &authAppServiceImpl{
		users:  users,
		tokens: tokens,
		hasher: hasher,
		audit:  audit,
		logger: log,
	}
}

func (s *authAppServiceImpl) Register(ctx context.Context, req *dto.RegisterRequest, meta RequestMeta) (*dto.AuthResponse, error) {
	req.Normalize()
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	email := req.Email

	// 1. Reject taken emails before paying for the hash
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, errors.ErrEmailExists
	} else if !errors.IsCode(err, errors.CodeNotFound) {
		return nil, err
	}

	// 2. Store the account
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.logger.Error(ctx, "Failed to hash password", err)
		return nil, errors.ErrInternal.WithError(err)
	}
	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	// 3. Issue the first token
	token, err := s.tokens.Issue(ctx, user.Claims())
	if err != nil {
		s.logger.Error(ctx, "Failed to issue token after registration", err, logger.Fields{"user_id": user.ID})
		return nil, errors.ErrSigning.WithError(err)
	}

	s.logger.Info(ctx, "User registered successfully", logger.Fields{"user_id": user.ID})
	recordAudit(ctx, s.audit, s.logger, meta,
		models.NewAuditEvent(models.AuditUserRegistered, user.ID, user.ID, true, "User registered"))

	return &dto.AuthResponse{Token: token, User: dto.NewUserResponse(user)}, nil
}

func (s *authAppServiceImpl) Login(ctx context.Context, req *dto.LoginRequest, meta RequestMeta) (*dto.AuthResponse, error) {
	req.Normalize()
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	email := req.Email

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.IsCode(err, errors.CodeNotFound) {
			return nil, err
		}
		// unknown emails pay for a comparison too so they cannot be told apart by timing
		s.dummyOnce.Do(func() { s.dummyHash, _ = s.hasher.Hash("pokedex-timing-equalizer") })
		s.hasher.Compare(s.dummyHash, req.Password)
		s.loginFailed(ctx, meta, 0, email, "unknown email")
		return nil, errors.ErrInvalidCredentials
	}

	if !s.hasher.Compare(user.PasswordHash, req.Password) {
		s.loginFailed(ctx, meta, user.ID, email, "wrong password")
		return nil, errors.ErrInvalidCredentials
	}
	if !user.IsActive {
		s.loginFailed(ctx, meta, user.ID, email, "account disabled")
		return nil, errors.ErrAccountDisabled
	}

	token, err := s.tokens.Issue(ctx, user.Claims())
	if err != nil {
		s.logger.Error(ctx, "Failed to issue login token", err, logger.Fields{"user_id": user.ID})
		return nil, errors.ErrSigning.WithError(err)
	}

	s.logger.Info(ctx, "User logged in successfully", logger.Fields{"user_id": user.ID})
	recordAudit(ctx, s.audit, s.logger, meta,
		models.NewAuditEvent(models.AuditUserLogin, user.ID, user.ID, true, "User logged in"))

	return &dto.AuthResponse{Token: token, User: dto.NewUserResponse(user)}, nil
}

func (s *authAppServiceImpl) loginFailed(ctx context.Context, meta RequestMeta, userID int64, email, reason string) {
	s.logger.Warn(ctx, "Login failed", logger.Fields{"user_id": userID, "reason": reason})
	event := models.NewAuditEvent(models.AuditUserLoginFailed, 0, userID, false, "Login failed").
		WithMetadata(map[string]string{"email": email, "reason": reason})
	recordAudit(ctx, s.audit, s.logger, meta, event)
}

func (s *authAppServiceImpl) Me(ctx context.Context, userID int64) (*dto.UserResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.NewUserResponse(user), nil
}

func (s *authAppServiceImpl) PublicKey() *dto.PublicKeyResponse {
	return &dto.PublicKeyResponse{
		PublicKey: s.tokens.PublicKey(),
		Algorithm: constants.SigningAlgorithm,
		Issuer:    constants.TokenIssuer,
		Audience:  constants.TokenAudience,
	}
}
