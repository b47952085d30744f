package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/visadesk/internal/common"
	"github.com/dmitrijs2005/visadesk/internal/dbx"
	"github.com/dmitrijs2005/visadesk/internal/server/models"
	"github.com/google/uuid"
)

// Constraint and index names from the users migration.
const (
	constraintUsername = "users_username_key"
	constraintEmail    = "users_email_key"
	indexSingleAdmin   = "users_single_admin_idx"
)

// adminSlotLockKey is the advisory lock guarding the single admin row.
const adminSlotLockKey int64 = 0x76697361

const userColumns = `id, first_name, last_name, username, email, password_hash, role, created_at, updated_at`

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*models.User, error) {
	u := &models.User{}
	var role string
	if err := s.Scan(&u.ID, &u.FirstName, &u.LastName, &u.UserName, &u.Email,
		&u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	return u, nil
}

// mapWriteError turns unique-index violations into domain errors.
func mapWriteError(err error) error {
	if constraint, ok := dbx.UniqueViolation(err); ok {
		switch constraint {
		case constraintUsername:
			return common.ErrDuplicateUsername
		case constraintEmail:
			return common.ErrDuplicateEmail
		case indexSingleAdmin:
			return common.ErrAdminExists
		}
	}
	return fmt.Errorf("db error: %w", err)
}

func mapReadError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}
	return fmt.Errorf("db error: %w", err)
}

// Create inserts user and fills in its timestamps.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (id, first_name, last_name, username, email, password_hash, role)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.FirstName, user.LastName, user.UserName, user.Email,
		user.PasswordHash, string(user.Role),
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, mapWriteError(err)
	}

	return user, nil
}

// GetByID returns the profile with the given id. Ids that are not UUIDs
// cannot exist and yield common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if uuid.Validate(id) != nil {
		return nil, common.ErrorNotFound
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapReadError(err)
	}
	return u, nil
}

// GetByUsername returns the profile with the exact username.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	u, err := scanUser(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		return nil, mapReadError(err)
	}
	return u, nil
}

func (r *PostgresRepository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func (r *PostgresRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username)
}

func (r *PostgresRepository) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	if uuid.Validate(excludeID) != nil {
		return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email)
	}
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND id <> $2)`, email, excludeID)
}

func (r *PostgresRepository) AdminExists(ctx context.Context, excludeID string) (bool, error) {
	if uuid.Validate(excludeID) != nil {
		return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE role = 'admin')`)
	}
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE role = 'admin' AND id <> $1)`, excludeID)
}

// LockAdminSlot takes a transaction-scoped advisory lock.
func (r *PostgresRepository) LockAdminSlot(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, adminSlotLockKey); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// UpdateProfile applies the non-nil fields of upd and returns the new row.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, id string, upd models.ProfileUpdate) (*models.User, error) {
	if uuid.Validate(id) != nil {
		return nil, common.ErrorNotFound
	}

	query :=
		`UPDATE users SET
		     first_name = COALESCE($2, first_name),
		     last_name  = COALESCE($3, last_name),
		     email      = COALESCE($4, email),
		     updated_at = now()
		 WHERE id = $1
		 RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRowContext(ctx, query, id, upd.FirstName, upd.LastName, upd.Email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, mapWriteError(err)
	}
	return u, nil
}

// UpdatePassword stores a new digest.
func (r *PostgresRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if uuid.Validate(id) != nil {
		return common.ErrorNotFound
	}

	query := `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireAffected(res)
}

// UpdateRole sets the role and returns the new row.
func (r *PostgresRepository) UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	if uuid.Validate(id) != nil {
		return nil, common.ErrorNotFound
	}

	query := `UPDATE users SET role = $2, updated_at = now() WHERE id = $1 RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRowContext(ctx, query, id, string(role)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, mapWriteError(err)
	}
	return u, nil
}

// Delete removes the profile permanently.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if uuid.Validate(id) != nil {
		return common.ErrorNotFound
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// escapeLike quotes the LIKE wildcards in s.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// listWhere builds the WHERE clause shared by List's count and page queries.
func listWhere(f models.UserFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Search != "" {
		args = append(args, "%"+escapeLike(f.Search)+"%")
		n := "$" + strconv.Itoa(len(args))
		conds = append(conds, "(first_name ILIKE "+n+" OR last_name ILIKE "+n+
			" OR username ILIKE "+n+" OR email ILIKE "+n+")")
	}
	if f.Role != "" {
		args = append(args, string(f.Role))
		conds = append(conds, "role = $"+strconv.Itoa(len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns the users matching f, newest first.
func (r *PostgresRepository) List(ctx context.Context, f models.UserFilter) ([]*models.User, int, error) {
	where, args := listWhere(f)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	args = append(args, f.Limit, f.Offset)
	query := `SELECT ` + userColumns + ` FROM users` + where +
		` ORDER BY created_at DESC, id LIMIT $` + strconv.Itoa(len(args)-1) +
		` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]*models.User, 0, f.Limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("db error: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	return out, total, nil
}

// Stats aggregates role counts in one pass.
func (r *PostgresRepository) Stats(ctx context.Context, since time.Time) (*models.UserStats, error) {
	query :=
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE role = 'admin'),
		        COUNT(*) FILTER (WHERE role = 'coadmin'),
		        COUNT(*) FILTER (WHERE created_at >= $1)
		 FROM users`

	st := &models.UserStats{}
	if err := r.db.QueryRowContext(ctx, query, since).Scan(
		&st.TotalUsers, &st.AdminCount, &st.CoadminCount, &st.RecentUsers,
	); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return st, nil
}
