package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/visadesk/internal/common"
	"github.com/dmitrijs2005/visadesk/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	id1 = "5f0c8a4e-1b2c-4d3e-8f90-a1b2c3d4e5f6"
	id2 = "6a1d9b5f-2c3d-4e4f-9a01-b2c3d4e5f6a7"
)

var cols = []string{"id", "first_name", "last_name", "username", "email", "password_hash", "role", "created_at", "updated_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func userRow(id, username string, role models.Role, ts time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(cols).
		AddRow(id, "Ann", "Lee", username, username+"@x.io", "$2a$hash", string(role), ts, ts)
}

var wrappedDBErr = regexp.MustCompile(`db error: .*db down`)

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(`(?s)^INSERT INTO users \(id, first_name, last_name, username, email, password_hash, role\).*RETURNING created_at, updated_at$`).
		WithArgs(id1, "Ann", "Lee", "annlee", "ann@x.io", "$2a$hash", "admin").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(ts, ts))

	u := &models.User{ID: id1, FirstName: "Ann", LastName: "Lee", UserName: "annlee",
		Email: "ann@x.io", PasswordHash: "$2a$hash", Role: models.RoleAdmin}
	got, err := repo.Create(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, ts, got.CreatedAt)
	assert.Equal(t, ts, got.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_UniqueViolations(t *testing.T) {
	tests := []struct {
		constraint string
		want       error
	}{
		{"users_username_key", common.ErrDuplicateUsername},
		{"users_email_key", common.ErrDuplicateEmail},
		{"users_single_admin_idx", common.ErrAdminExists},
	}

	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			mock.ExpectQuery(`^INSERT INTO users`).
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: tt.constraint})

			_, err := repo.Create(context.Background(), &models.User{ID: id1, Role: models.RoleAdmin})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`^INSERT INTO users`).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{ID: id1})
	if err == nil || !wrappedDBErr.MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	ts := time.Now().UTC()
	mock.ExpectQuery(`^SELECT id, first_name, .* FROM users WHERE id = \$1$`).
		WithArgs(id1).
		WillReturnRows(userRow(id1, "annlee", models.RoleCoadmin, ts))

	got, err := repo.GetByID(context.Background(), id1)
	require.NoError(t, err)
	assert.Equal(t, id1, got.ID)
	assert.Equal(t, models.RoleCoadmin, got.Role)
	assert.Equal(t, "$2a$hash", got.PasswordHash)
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM users WHERE id = \$1$`).WithArgs(id1).WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), id1)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetByID_MalformedIDSkipsQuery(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	_, err := repo.GetByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByUsername(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM users WHERE username = \$1$`).
		WithArgs("annlee").
		WillReturnRows(userRow(id1, "annlee", models.RoleAdmin, time.Now()))

	got, err := repo.GetByUsername(context.Background(), "annlee")
	require.NoError(t, err)
	assert.Equal(t, "annlee", got.UserName)

	mock.ExpectQuery(`FROM users WHERE username = \$1$`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.GetByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestExistsQueries(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()
	ctx := context.Background()
	yes := func() *sqlmock.Rows { return sqlmock.NewRows([]string{"exists"}).AddRow(true) }
	no := func() *sqlmock.Rows { return sqlmock.NewRows([]string{"exists"}).AddRow(false) }

	mock.ExpectQuery(`WHERE username = \$1\)$`).WithArgs("annlee").WillReturnRows(yes())
	mock.ExpectQuery(`WHERE email = \$1\)$`).WithArgs("a@x.io").WillReturnRows(no())
	mock.ExpectQuery(`WHERE email = \$1 AND id <> \$2\)$`).WithArgs("a@x.io", id1).WillReturnRows(yes())
	mock.ExpectQuery(`WHERE role = 'admin'\)$`).WillReturnRows(yes())
	mock.ExpectQuery(`WHERE role = 'admin' AND id <> \$1\)$`).WithArgs(id1).WillReturnRows(no())

	ok, err := repo.ExistsByUsername(ctx, "annlee")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ExistsByEmail(ctx, "a@x.io", "")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.ExistsByEmail(ctx, "a@x.io", id1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.AdminExists(ctx, "")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.AdminExists(ctx, id1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExists_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS`).WillReturnError(errors.New("db down"))

	_, err := repo.ExistsByUsername(context.Background(), "annlee")
	if err == nil || !wrappedDBErr.MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestLockAdminSlot(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`^SELECT pg_advisory_xact_lock\(\$1\)$`).
		WithArgs(adminSlotLockKey).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.LockAdminSlot(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProfile(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	email := "new@x.io"
	mock.ExpectQuery(`(?s)^UPDATE users SET.*COALESCE\(\$4, email\).*WHERE id = \$1 RETURNING id`).
		WithArgs(id1, nil, nil, email).
		WillReturnRows(userRow(id1, "annlee", models.RoleCoadmin, time.Now()))

	got, err := repo.UpdateProfile(context.Background(), id1, models.ProfileUpdate{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, id1, got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProfile_Errors(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()
	email := "taken@x.io"

	mock.ExpectQuery(`^UPDATE users SET`).WillReturnError(sql.ErrNoRows)
	_, err := repo.UpdateProfile(context.Background(), id1, models.ProfileUpdate{Email: &email})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	mock.ExpectQuery(`^UPDATE users SET`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
	_, err = repo.UpdateProfile(context.Background(), id1, models.ProfileUpdate{Email: &email})
	assert.ErrorIs(t, err, common.ErrDuplicateEmail)
}

func TestUpdatePassword(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`^UPDATE users SET password_hash = \$2, updated_at = now\(\) WHERE id = \$1$`).
		WithArgs(id1, "$2a$new").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdatePassword(context.Background(), id1, "$2a$new"))

	mock.ExpectExec(`^UPDATE users SET password_hash`).
		WithArgs(id2, "$2a$new").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.UpdatePassword(context.Background(), id2, "$2a$new"), common.ErrorNotFound)
}

func TestUpdateRole(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`^UPDATE users SET role = \$2, updated_at = now\(\) WHERE id = \$1 RETURNING`).
		WithArgs(id2, "coadmin").
		WillReturnRows(userRow(id2, "bobby", models.RoleCoadmin, time.Now()))

	got, err := repo.UpdateRole(context.Background(), id2, models.RoleCoadmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleCoadmin, got.Role)

	mock.ExpectQuery(`^UPDATE users SET role`).
		WithArgs(id2, "admin").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_single_admin_idx"})

	_, err = repo.UpdateRole(context.Background(), id2, models.RoleAdmin)
	assert.ErrorIs(t, err, common.ErrAdminExists)
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`^DELETE FROM users WHERE id = \$1$`).WithArgs(id1).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), id1))

	mock.ExpectExec(`^DELETE FROM users`).WithArgs(id2).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), id2), common.ErrorNotFound)

	mock.ExpectExec(`^DELETE FROM users`).WithArgs(id2).WillReturnError(errors.New("db down"))
	err := repo.Delete(context.Background(), id2)
	if err == nil || !wrappedDBErr.MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestList_SearchAndRole(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`^SELECT COUNT\(\*\) FROM users WHERE \(first_name ILIKE \$1 OR last_name ILIKE \$1 OR username ILIKE \$1 OR email ILIKE \$1\) AND role = \$2$`).
		WithArgs(`%50\%%`, "coadmin").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(`ORDER BY created_at DESC, id LIMIT \$3 OFFSET \$4$`).
		WithArgs(`%50\%%`, "coadmin", 10, 10).
		WillReturnRows(userRow(id1, "annlee", models.RoleCoadmin, time.Now()).
			AddRow(id2, "Bob", "Ray", "bobby", "b@x.io", "$2a$h", "coadmin", time.Now(), time.Now()))

	got, total, err := repo.List(context.Background(), models.UserFilter{
		Search: "50%", Role: models.RoleCoadmin, Offset: 10, Limit: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	require.Len(t, got, 2)
	assert.Equal(t, "bobby", got[1].UserName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestList_NoFilter(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`^SELECT COUNT\(\*\) FROM users$`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`FROM users ORDER BY created_at DESC, id LIMIT \$1 OFFSET \$2$`).
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows(cols))

	got, total, err := repo.List(context.Background(), models.UserFilter{Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, got)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `a\%b\_c\\d`, escapeLike(`a%b_c\d`))
	assert.Equal(t, "plain", escapeLike("plain"))
}

func TestStats(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`(?s)^SELECT COUNT\(\*\),.*FILTER \(WHERE created_at >= \$1\) FROM users$`).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"total", "admins", "coadmins", "recent"}).AddRow(5, 1, 4, 2))

	st, err := repo.Stats(context.Background(), since)
	require.NoError(t, err)
	assert.Equal(t, &models.UserStats{TotalUsers: 5, AdminCount: 1, CoadminCount: 4, RecentUsers: 2}, st)
}
