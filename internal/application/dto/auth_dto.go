package dto

import (
	"time"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/models"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/utils"
)

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email_address" validate:"required,email_address"`
	Password string `json:"password" binding:"required,strong_password" validate:"required,strong_password"`
}

// Normalize trims and lower-cases the email in place.
func (r *RegisterRequest) Normalize() {
	r.Email = utils.NormalizeEmail(r.Email)
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email_address" validate:"required,email_address"`
	Password string `json:"password" binding:"required" validate:"required"`
}

// Normalize trims and lower-cases the email in place.
func (r *LoginRequest) Normalize() {
	r.Email = utils.NormalizeEmail(r.Email)
}

// UserResponse is the public view of an account. It never carries the password hash.
type UserResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewUserResponse converts a stored user.
func NewUserResponse(u *models.User) *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Role:      string(u.Role),
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// NewUserResponses converts a list of stored users.
func NewUserResponses(users []*models.User) []*UserResponse {
	out := make([]*UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, NewUserResponse(u))
	}
	return out
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token string        `json:"token"`
	User  *UserResponse `json:"user"`
}

// PublicKeyResponse is returned by GET /auth/public-key. Consumer services read PublicKey.
type PublicKeyResponse struct {
	PublicKey string `json:"publicKey"`
	Algorithm string `json:"algorithm"`
	Issuer    string `json:"issuer"`
	Audience  string `json:"audience"`
}

// SessionUser is the identity reported by GET /auth/session.
type SessionUser struct {
	UserID    int64     `json:"userId"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionResponse reports whether the request carried a valid token.
type SessionResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *SessionUser `json:"user,omitempty"`
}

// NewSessionResponse builds the session view; a nil identity is anonymous.
func NewSessionResponse(id *models.Identity) *SessionResponse {
	if id == nil {
		return &SessionResponse{Authenticated: false}
	}
	return &SessionResponse{
		Authenticated: true,
		User: &SessionUser{
			UserID:    id.UserID,
			Email:     id.Email,
			Role:      string(id.Role),
			ExpiresAt: id.ExpiresAt,
		},
	}
}
