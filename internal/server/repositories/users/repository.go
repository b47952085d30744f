// Package users declares the account store contract and its PostgreSQL
// implementation.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/visadesk/internal/server/models"
)

// Repository persists user profiles. Lookups of a missing profile return
// common.ErrorNotFound; writes that collide with a unique index return
// common.ErrDuplicateUsername, common.ErrDuplicateEmail or common.ErrAdminExists.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	ExistsByUsername(ctx context.Context, username string) (bool, error)
	// ExistsByEmail ignores the profile excludeID, if non-empty.
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	// AdminExists ignores the profile excludeID, if non-empty.
	AdminExists(ctx context.Context, excludeID string) (bool, error)

	// LockAdminSlot serializes admin-slot changes until the enclosing
	// transaction ends. It must be called on a transactional handle.
	LockAdminSlot(ctx context.Context) error

	UpdateProfile(ctx context.Context, id string, upd models.ProfileUpdate) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error)
	Delete(ctx context.Context, id string) error

	// List returns one page, newest first, and the number of matching rows.
	List(ctx context.Context, f models.UserFilter) ([]*models.User, int, error)
	// Stats counts profiles; RecentUsers counts those created at or after since.
	Stats(ctx context.Context, since time.Time) (*models.UserStats, error)
}
