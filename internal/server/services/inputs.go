package services

import "github.com/dmitrijs2005/visadesk/internal/server/models"

// RegisterInput carries the fields of a new account. It is used both for the
// first admin and for co-admins.
type RegisterInput struct {
	FirstName string `json:"firstName" validate:"required,min=2,max=50"`
	LastName  string `json:"lastName" validate:"required,min=2,max=50"`
	UserName  string `json:"username" validate:"required,min=5,max=20,alphanum"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,maxbytes=72,password"`
}

// LoginInput carries credentials.
type LoginInput struct {
	UserName string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileInput is a partial update; nil fields are left unchanged.
type UpdateProfileInput struct {
	FirstName *string `json:"firstName" validate:"omitnil,min=2,max=50"`
	LastName  *string `json:"lastName" validate:"omitnil,min=2,max=50"`
	Email     *string `json:"email" validate:"omitnil,email"`
}

func (in UpdateProfileInput) toModel() models.ProfileUpdate {
	return models.ProfileUpdate{FirstName: in.FirstName, LastName: in.LastName, Email: in.Email}
}

// ChangePasswordInput carries a self-service password change.
type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,maxbytes=72,password"`
}

// ListUsersInput selects a page of accounts. Zero Page and Limit take defaults.
type ListUsersInput struct {
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
	Search string `json:"search" validate:"max=100"`
	Role   string `json:"role" validate:"max=16"`
}

// UpdateRoleInput carries the requested role.
type UpdateRoleInput struct {
	Role string `json:"role"`
}

// AuthResult is a profile plus a freshly issued bearer token.
type AuthResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}
