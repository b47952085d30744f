// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login, token issuance and the
// admin-only role management of accounts.
package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/dmitrijs2005/visadesk/internal/common"
	"github.com/dmitrijs2005/visadesk/internal/dbx"
	"github.com/dmitrijs2005/visadesk/internal/logging"
	"github.com/dmitrijs2005/visadesk/internal/server/auth"
	"github.com/dmitrijs2005/visadesk/internal/server/config"
	"github.com/dmitrijs2005/visadesk/internal/server/models"
	"github.com/dmitrijs2005/visadesk/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/visadesk/internal/server/validation"
	"github.com/google/uuid"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	// RecentWindow is the trailing period counted as recent in stats.
	RecentWindow = 30 * 24 * time.Hour
)

// UserService provides account operations:
//   - RegisterFirstAdmin, Login, RefreshToken, Logout: identity and tokens
//   - GetProfile, UpdateProfile, ChangePassword: self-service
//   - AddCoadmin, ListUsers, GetUserByID, UpdateUserRole, DeleteUser,
//     GetUserStats: admin-only management
type UserService struct {
	db             dbx.DBTX
	tx             dbx.Transactor
	repomanager    repomanager.RepositoryManager
	tokens         *auth.TokenIssuer
	hasher         auth.PasswordHasher
	validator      *validation.Validator
	logger         logging.Logger
	now            func() time.Time
	revokeOnLogout bool

	dummyOnce   sync.Once
	dummyDigest string
}

// Option customises a UserService.
type Option func(*UserService)

// WithClock replaces time.Now for token issuance and stats.
func WithClock(now func() time.Time) Option {
	return func(s *UserService) { s.now = now }
}

// WithLogger sets the audit logger.
func WithLogger(l logging.Logger) Option {
	return func(s *UserService) { s.logger = l }
}

// WithHasher replaces the bcrypt hasher built from config.
func WithHasher(h auth.PasswordHasher) Option {
	return func(s *UserService) { s.hasher = h }
}

// NewUserService constructs a UserService. Plain reads and writes go through
// db; admin-slot changes run inside tx.
func NewUserService(db dbx.DBTX, tx dbx.Transactor, m repomanager.RepositoryManager, cfg *config.Config, opts ...Option) *UserService {
	s := &UserService{
		db:             db,
		tx:             tx,
		repomanager:    m,
		hasher:         auth.NewBcryptHasher(cfg.BcryptCost),
		validator:      validation.New(),
		logger:         logging.Nop(),
		now:            time.Now,
		revokeOnLogout: cfg.RevokeOnLogout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tokens = auth.NewTokenIssuer([]byte(cfg.SecretKey), cfg.TokenValidityDuration, auth.WithClock(s.now))
	return s
}

// RegisterFirstAdmin creates the single admin account and signs it in. It
// fails with common.ErrAdminExists once any admin exists.
func (s *UserService) RegisterFirstAdmin(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)
	exists, err := repo.AdminExists(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("error checking admin: %w", err)
	}
	if exists {
		return nil, common.ErrAdminExists
	}
	if err := s.checkAvailable(ctx, in.UserName, in.Email); err != nil {
		return nil, err
	}

	user, err := s.newUser(in, models.RoleAdmin)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.Users(tx)
		if err := repoTx.LockAdminSlot(ctx); err != nil {
			return err
		}
		exists, err := repoTx.AdminExists(ctx, "")
		if err != nil {
			return err
		}
		if exists {
			return common.ErrAdminExists
		}
		user, err = repoTx.Create(ctx, user)
		return err
	})
	if err != nil {
		return nil, wrapStoreError("error creating admin", err)
	}

	s.logger.Info(ctx, "admin registered", "user_id", user.ID, "username", user.UserName)
	return s.authResult(user)
}

// Login checks credentials. Unknown usernames and wrong passwords are
// indistinguishable: both yield common.ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).GetByUsername(ctx, in.UserName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// burn the same hashing time as a real comparison
			s.hasher.Verify(in.Password, s.dummyHash())
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}

	return s.authResult(user)
}

// AddCoadmin creates a co-admin account on behalf of an admin. No token is
// issued for the new account.
func (s *UserService) AddCoadmin(ctx context.Context, actor *auth.Principal, in RegisterInput) (*models.User, error) {
	if err := auth.RequireAdmin(actor.Role); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	if err := s.checkAvailable(ctx, in.UserName, in.Email); err != nil {
		return nil, err
	}

	user, err := s.newUser(in, models.RoleCoadmin)
	if err != nil {
		return nil, err
	}
	user, err = s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		return nil, wrapStoreError("error creating coadmin", err)
	}

	s.logger.Info(ctx, "coadmin created", "user_id", user.ID, "by", actor.UserID)
	return user.Sanitized(), nil
}

// GetProfile returns the caller's own profile.
func (s *UserService) GetProfile(ctx context.Context, actor *auth.Principal) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, wrapStoreError("error loading profile", err)
	}
	return user.Sanitized(), nil
}

// UpdateProfile changes the caller's name and/or email.
func (s *UserService) UpdateProfile(ctx context.Context, actor *auth.Principal, in UpdateProfileInput) (*models.User, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)
	current, err := repo.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, wrapStoreError("error loading profile", err)
	}

	upd := in.toModel()
	if upd.Empty() {
		return current.Sanitized(), nil
	}

	if upd.Email != nil {
		taken, err := repo.ExistsByEmail(ctx, *upd.Email, actor.UserID)
		if err != nil {
			return nil, fmt.Errorf("error checking email: %w", err)
		}
		if taken {
			return nil, common.ErrDuplicateEmail
		}
	}

	user, err := repo.UpdateProfile(ctx, actor.UserID, upd)
	if err != nil {
		return nil, wrapStoreError("error updating profile", err)
	}
	return user.Sanitized(), nil
}

// ChangePassword replaces the caller's password after checking the current one.
func (s *UserService) ChangePassword(ctx context.Context, actor *auth.Principal, in ChangePasswordInput) error {
	if err := s.validator.Struct(in); err != nil {
		return err
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, actor.UserID)
	if err != nil {
		return wrapStoreError("error loading profile", err)
	}
	if !s.hasher.Verify(in.CurrentPassword, user.PasswordHash) {
		return common.ErrCurrentPasswordMismatch
	}
	if s.hasher.Verify(in.NewPassword, user.PasswordHash) {
		return common.ErrPasswordUnchanged
	}

	digest, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return err
	}
	if err := repo.UpdatePassword(ctx, actor.UserID, digest); err != nil {
		return wrapStoreError("error updating password", err)
	}

	s.logger.Info(ctx, "password changed", "user_id", actor.UserID)
	return nil
}

// ListUsers returns one page of accounts, newest first.
func (s *UserService) ListUsers(ctx context.Context, actor *auth.Principal, in ListUsersInput) (*models.UserPage, error) {
	if err := auth.RequireAdmin(actor.Role); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	page, limit := normalizePage(in.Page, in.Limit)
	users, total, err := s.repomanager.Users(s.db).List(ctx, models.UserFilter{
		Search: in.Search,
		Role:   models.Role(in.Role),
		Offset: (page - 1) * limit,
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}

	out := make([]*models.User, 0, len(users))
	for _, u := range users {
		out = append(out, u.Sanitized())
	}
	return &models.UserPage{Users: out, Pagination: models.NewPagination(page, limit, total)}, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	// keep (page-1)*limit within int
	if maxPage := math.MaxInt / limit; page > maxPage {
		page = maxPage
	}
	return page, limit
}

// GetUserByID returns any account to an admin.
func (s *UserService) GetUserByID(ctx context.Context, actor *auth.Principal, id string) (*models.User, error) {
	if err := auth.RequireAdmin(actor.Role); err != nil {
		return nil, err
	}
	user, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, wrapStoreError("error loading user", err)
	}
	return user.Sanitized(), nil
}

// UpdateUserRole moves targetID to the requested role. Promotion to admin is
// serialized with first-admin registration.
func (s *UserService) UpdateUserRole(ctx context.Context, actor *auth.Principal, targetID string, in UpdateRoleInput) (*models.User, error) {
	if err := auth.RequireAdmin(actor.Role); err != nil {
		return nil, err
	}
	role := models.Role(in.Role)
	if !role.Valid() {
		return nil, common.ErrorInvalidRole
	}

	repo := s.repomanager.Users(s.db)
	if _, err := repo.GetByID(ctx, targetID); err != nil {
		return nil, wrapStoreError("error loading user", err)
	}

	var (
		user *models.User
		err  error
	)
	if role == models.RoleAdmin {
		err = s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
			repoTx := s.repomanager.Users(tx)
			if err := repoTx.LockAdminSlot(ctx); err != nil {
				return err
			}
			other, err := repoTx.AdminExists(ctx, targetID)
			if err != nil {
				return err
			}
			if err := auth.CanChangeRole(*actor, targetID, role, other); err != nil {
				return err
			}
			user, err = repoTx.UpdateRole(ctx, targetID, role)
			return err
		})
	} else {
		if err = auth.CanChangeRole(*actor, targetID, role, false); err == nil {
			user, err = repo.UpdateRole(ctx, targetID, role)
		}
	}
	if errors.Is(err, common.ErrAdminExists) {
		err = common.ErrAdminAlreadyExists
	}
	if err != nil {
		return nil, wrapStoreError("error updating role", err)
	}

	s.logger.Info(ctx, "role changed", "user_id", targetID, "role", string(role), "by", actor.UserID)
	return user.Sanitized(), nil
}

// DeleteUser permanently removes a co-admin account and returns it.
func (s *UserService) DeleteUser(ctx context.Context, actor *auth.Principal, targetID string) (*models.User, error) {
	if err := auth.RequireAdmin(actor.Role); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)
	target, err := repo.GetByID(ctx, targetID)
	if err != nil {
		return nil, wrapStoreError("error loading user", err)
	}
	if err := auth.CanDelete(*actor, targetID, target.Role); err != nil {
		return nil, err
	}
	if err := repo.Delete(ctx, targetID); err != nil {
		return nil, wrapStoreError("error deleting user", err)
	}

	s.logger.Info(ctx, "user deleted", "user_id", targetID, "username", target.UserName, "by", actor.UserID)
	return target.Sanitized(), nil
}

// GetUserStats counts accounts by role and those created in RecentWindow.
func (s *UserService) GetUserStats(ctx context.Context, actor *auth.Principal) (*models.UserStats, error) {
	if err := auth.RequireAdmin(actor.Role); err != nil {
		return nil, err
	}
	st, err := s.repomanager.Users(s.db).Stats(ctx, s.now().Add(-RecentWindow))
	if err != nil {
		return nil, fmt.Errorf("error computing stats: %w", err)
	}
	return st, nil
}

// RefreshToken issues a new token carrying the caller's current stored role.
func (s *UserService) RefreshToken(ctx context.Context, actor *auth.Principal) (*AuthResult, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, wrapStoreError("error loading user", err)
	}
	return s.authResult(user)
}

// Logout ends the caller's session. Unless token revocation is enabled this
// changes nothing server-side and the client simply discards the token.
func (s *UserService) Logout(ctx context.Context, actor *auth.Principal) error {
	if !s.revokeOnLogout {
		return nil
	}
	err := s.repomanager.RevokedTokens(s.db).Create(ctx, &models.RevokedToken{
		TokenID:   actor.TokenID,
		UserID:    actor.UserID,
		ExpiresAt: actor.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("error revoking token: %w", err)
	}
	return nil
}

// Authenticate verifies a bearer token and, with revocation enabled, rejects
// logged-out tokens with common.ErrTokenRevoked.
func (s *UserService) Authenticate(ctx context.Context, token string) (*auth.Principal, error) {
	p, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	if !s.revokeOnLogout {
		return p, nil
	}
	revoked, err := s.repomanager.RevokedTokens(s.db).Exists(ctx, p.TokenID)
	if err != nil {
		return nil, fmt.Errorf("error checking revocation: %w", err)
	}
	if revoked {
		return nil, common.ErrTokenRevoked
	}
	return p, nil
}

// PurgeRevokedTokens drops denylist entries for tokens that have expired anyway.
func (s *UserService) PurgeRevokedTokens(ctx context.Context) (int64, error) {
	n, err := s.repomanager.RevokedTokens(s.db).DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("error purging revoked tokens: %w", err)
	}
	return n, nil
}

// RevocationEnabled reports whether logout records token ids.
func (s *UserService) RevocationEnabled() bool { return s.revokeOnLogout }

// --- helpers below ---

func (s *UserService) checkAvailable(ctx context.Context, username, email string) error {
	repo := s.repomanager.Users(s.db)

	taken, err := repo.ExistsByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("error checking username: %w", err)
	}
	if taken {
		return common.ErrDuplicateUsername
	}

	taken, err = repo.ExistsByEmail(ctx, email, "")
	if err != nil {
		return fmt.Errorf("error checking email: %w", err)
	}
	if taken {
		return common.ErrDuplicateEmail
	}
	return nil
}

func (s *UserService) newUser(in RegisterInput, role models.Role) (*models.User, error) {
	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	return &models.User{
		ID:           uuid.NewString(),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		UserName:     in.UserName,
		Email:        in.Email,
		PasswordHash: digest,
		Role:         role,
	}, nil
}

func (s *UserService) authResult(user *models.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user.Sanitized(), Token: token}, nil
}

func (s *UserService) dummyHash() string {
	s.dummyOnce.Do(func() {
		s.dummyDigest, _ = s.hasher.Hash(uuid.NewString())
	})
	return s.dummyDigest
}

// domainErrors pass through wrapStoreError untouched so callers can match
// them without unwrapping.
var domainErrors = []error{
	common.ErrorNotFound,
	common.ErrAdminExists,
	common.ErrAdminAlreadyExists,
	common.ErrDuplicateUsername,
	common.ErrDuplicateEmail,
	common.ErrForbidden,
	common.ErrSelfRoleChange,
	common.ErrSelfDelete,
	common.ErrAdminProtected,
	common.ErrorInvalidRole,
}

func wrapStoreError(msg string, err error) error {
	for _, d := range domainErrors {
		if errors.Is(err, d) {
			return d
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}
