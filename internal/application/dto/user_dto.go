package dto

import "github.com/Mateusz-G541/pokedex-auth-service/pkg/utils"

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email_address" validate:"required,email_address"`
	Password string `json:"password" binding:"required,strong_password" validate:"required,strong_password"`
	Role     string `json:"role" binding:"omitempty,role" validate:"omitempty,role"`
}

// Normalize trims and lower-cases the email in place.
func (r *CreateUserRequest) Normalize() {
	r.Email = utils.NormalizeEmail(r.Email)
}

// UpdateUserRequest is the body of PUT /users/:id and PUT /users/profile. Nil fields are left
// unchanged.
type UpdateUserRequest struct {
	Email           *string `json:"email" binding:"omitempty,email_address" validate:"omitempty,email_address"`
	Password        *string `json:"password" binding:"omitempty,strong_password" validate:"omitempty,strong_password"`
	CurrentPassword *string `json:"currentPassword"`
	Role            *string `json:"role" binding:"omitempty,role" validate:"omitempty,role"`
	IsActive        *bool   `json:"isActive"`
}

// Normalize trims and lower-cases the email in place, when one is given.
func (r *UpdateUserRequest) Normalize() {
	if r.Email != nil {
		email := utils.NormalizeEmail(*r.Email)
		r.Email = &email
	}
}

// ListUsersQuery is the query of GET /users.
type ListUsersQuery struct {
	Page  int `json:"page" form:"page"`
	Limit int `json:"limit" form:"limit"`
}

// SearchUsersQuery is the query of GET /users/search.
type SearchUsersQuery struct {
	Query    string `json:"query" form:"query"`
	Role     string `json:"role" form:"role" binding:"omitempty,role"`
	IsActive string `json:"isActive" form:"isActive" binding:"omitempty,oneof=true false"`
}

// UserListResponse is a page of users.
type UserListResponse struct {
	Users      []*UserResponse `json:"users"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"totalPages"`
}
