package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/service"
)

type MockRateLimitService struct {
	mock.Mock
}

func (m *MockRateLimitService) Allow(ctx context.Context, key string) (*service.RateLimitResult, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RateLimitResult), args.Error(1)
}
