package models

import "time"

// User is a stored account.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Claims returns the identity claims a token for u should carry.
func (u *User) Claims() IdentityClaims {
	return IdentityClaims{UserID: u.ID, Email: u.Email, Role: u.Role}
}

// IsAdmin reports whether u is an administrator.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdministrator
}

// UserFilter narrows List and Count queries. Zero values match everything.
type UserFilter struct {
	// EmailContains matches a case-insensitive substring of the email.
	EmailContains string
	Role          Role
	IsActive      *bool
}

// UserOrder selects the ordering of List results.
type UserOrder int

const (
	OrderByCreatedDesc UserOrder = iota
	OrderByEmailAsc
)

// ListOptions paginates List results.
type ListOptions struct {
	Offset int
	Limit  int
	Order  UserOrder
}
