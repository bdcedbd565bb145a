package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_IsMatchesByCode(t *testing.T) {
	derived := ErrTokenExpired.WithError(fmt.Errorf("exp in the past"))

	assert.True(t, stderrors.Is(derived, ErrTokenExpired))
	assert.False(t, stderrors.Is(derived, ErrTokenMalformed))
	assert.Equal(t, "Token has expired", derived.Message)
	assert.Contains(t, derived.Error(), "exp in the past")
}

func TestAppError_CopiesDoNotMutateOriginal(t *testing.T) {
	custom := ErrForbidden.WithMessage("nope").WithDetails(map[string]string{"role": "USER"})

	assert.Equal(t, "nope", custom.Message)
	assert.Equal(t, "Insufficient permissions", ErrForbidden.Message)
	assert.Nil(t, ErrForbidden.Details)
}

func TestAppError_WrappedChain(t *testing.T) {
	fetchErr := ErrKeyFetch.WithError(fmt.Errorf("connection refused"))
	err := ErrVerificationUnavailable.WithError(fetchErr)

	assert.ErrorIs(t, err, ErrVerificationUnavailable)
	assert.ErrorIs(t, err, ErrKeyFetch)
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
		wantMsg    string
	}{
		{"app error passes through", ErrUserNotFound, CodeNotFound, http.StatusNotFound, "User not found"},
		{"wrapped app error", fmt.Errorf("repo: %w", ErrEmailExists), CodeConflict, http.StatusConflict, "User with this email already exists"},
		{"plain error hidden", fmt.Errorf("pq: password authentication failed"), CodeInternal, http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := FromError(tt.err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.Equal(t, tt.wantStatus, appErr.HTTPStatus)
			assert.Equal(t, tt.wantMsg, appErr.Message)
		})
	}

	assert.Nil(t, FromError(nil))
}

func TestIsCode(t *testing.T) {
	assert.True(t, IsCode(ErrMissingAuthHeader, CodeUnauthenticated))
	assert.True(t, IsCode(fmt.Errorf("x: %w", ErrLastAdmin), CodeLastAdmin))
	assert.False(t, IsCode(fmt.Errorf("plain"), CodeInternal))
}
