package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/models"
)

type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) Issue(ctx context.Context, claims models.IdentityClaims) (string, error) {
	args := m.Called(ctx, claims)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) Verify(ctx context.Context, token string) (*models.Identity, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Identity), args.Error(1)
}

func (m *MockTokenService) Decode(token string) (*models.Identity, bool) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*models.Identity), args.Bool(1)
}

func (m *MockTokenService) PublicKey() string {
	args := m.Called()
	return args.String(0)
}

type MockTokenVerifier struct {
	mock.Mock
}

func (m *MockTokenVerifier) Verify(ctx context.Context, token string) (*models.Identity, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Identity), args.Error(1)
}
