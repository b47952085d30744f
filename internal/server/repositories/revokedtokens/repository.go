// Package revokedtokens stores the ids of bearer tokens invalidated by logout
// before their natural expiry.
package revokedtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/visadesk/internal/server/models"
)

// Repository defines the token denylist operations.
type Repository interface {
	// Create records t. Revoking an already revoked token is not an error.
	Create(ctx context.Context, t *models.RevokedToken) error

	// Exists reports whether tokenID has been revoked.
	Exists(ctx context.Context, tokenID string) (bool, error)

	// DeleteExpired drops entries whose token expired before now and
	// returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
