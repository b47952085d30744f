package api

import (
	"context"

	"github.com/dmitrijs2005/visadesk/internal/server/auth"
	"github.com/dmitrijs2005/visadesk/internal/server/models"
	"github.com/dmitrijs2005/visadesk/internal/server/services"
)

// UserServiceProvider is the account logic the HTTP layer depends on.
// *services.UserService implements it.
type UserServiceProvider interface {
	RegisterFirstAdmin(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error)
	Login(ctx context.Context, in services.LoginInput) (*services.AuthResult, error)
	AddCoadmin(ctx context.Context, actor *auth.Principal, in services.RegisterInput) (*models.User, error)
	GetProfile(ctx context.Context, actor *auth.Principal) (*models.User, error)
	UpdateProfile(ctx context.Context, actor *auth.Principal, in services.UpdateProfileInput) (*models.User, error)
	ChangePassword(ctx context.Context, actor *auth.Principal, in services.ChangePasswordInput) error
	ListUsers(ctx context.Context, actor *auth.Principal, in services.ListUsersInput) (*models.UserPage, error)
	GetUserByID(ctx context.Context, actor *auth.Principal, id string) (*models.User, error)
	UpdateUserRole(ctx context.Context, actor *auth.Principal, id string, in services.UpdateRoleInput) (*models.User, error)
	DeleteUser(ctx context.Context, actor *auth.Principal, id string) (*models.User, error)
	GetUserStats(ctx context.Context, actor *auth.Principal) (*models.UserStats, error)
	RefreshToken(ctx context.Context, actor *auth.Principal) (*services.AuthResult, error)
	Logout(ctx context.Context, actor *auth.Principal) error
	Authenticate(ctx context.Context, token string) (*auth.Principal, error)
}

var _ UserServiceProvider = (*services.UserService)(nil)
