package revokedtokens

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/visadesk/internal/dbx"
	"github.com/dmitrijs2005/visadesk/internal/server/models"
	"github.com/google/uuid"
)

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, t *models.RevokedToken) error {
	query := `
		INSERT INTO revoked_tokens (token_id, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, t.TokenID, t.UserID, t.ExpiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Exists(ctx context.Context, tokenID string) (bool, error) {
	if uuid.Validate(tokenID) != nil {
		return false, nil
	}

	var ok bool
	query := `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token_id = $1)`
	if err := r.db.QueryRowContext(ctx, query, tokenID).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
