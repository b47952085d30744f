package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/visadesk/internal/common"
	"github.com/dmitrijs2005/visadesk/internal/server/models"
)

// UserRepository implements users.Repository in memory.
type UserRepository struct {
	s *Store
}

func clone(u *models.User) *models.User {
	c := *u
	return &c
}

// conflict checks the unique indexes for candidate, ignoring the row with
// the same id. Callers hold s.mu.
func (r *UserRepository) conflict(candidate *models.User) error {
	for id, e := range r.s.users {
		if id == candidate.ID {
			continue
		}
		switch {
		case e.user.UserName == candidate.UserName:
			return common.ErrDuplicateUsername
		case e.user.Email == candidate.Email:
			return common.ErrDuplicateEmail
		case candidate.Role == models.RoleAdmin && e.user.Role == models.RoleAdmin:
			return common.ErrAdminExists
		}
	}
	return nil
}

func (r *UserRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.conflict(user); err != nil {
		return nil, err
	}
	if _, ok := r.s.users[user.ID]; ok {
		return nil, common.ErrDuplicateUsername
	}

	now := r.s.now()
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.seq++
	r.s.users[user.ID] = &entry{user: clone(user), seq: r.s.seq}
	return user, nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(e.user), nil
}

func (r *UserRepository) GetByUsername(_ context.Context, username string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, e := range r.s.users {
		if e.user.UserName == username {
			return clone(e.user), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *UserRepository) exists(match func(*models.User) bool) bool {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, e := range r.s.users {
		if match(e.user) {
			return true
		}
	}
	return false
}

func (r *UserRepository) ExistsByUsername(_ context.Context, username string) (bool, error) {
	return r.exists(func(u *models.User) bool { return u.UserName == username }), nil
}

func (r *UserRepository) ExistsByEmail(_ context.Context, email, excludeID string) (bool, error) {
	return r.exists(func(u *models.User) bool { return u.Email == email && u.ID != excludeID }), nil
}

func (r *UserRepository) AdminExists(_ context.Context, excludeID string) (bool, error) {
	return r.exists(func(u *models.User) bool { return u.Role == models.RoleAdmin && u.ID != excludeID }), nil
}

// LockAdminSlot is a no-op: Store.WithTx already serializes transactions.
func (r *UserRepository) LockAdminSlot(context.Context) error { return nil }

// update applies mutate to a copy of the row, re-checks the unique indexes
// and stores it.
func (r *UserRepository) update(id string, mutate func(*models.User)) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	next := clone(e.user)
	mutate(next)
	if err := r.conflict(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = r.s.now()
	e.user = next
	return clone(next), nil
}

func (r *UserRepository) UpdateProfile(_ context.Context, id string, upd models.ProfileUpdate) (*models.User, error) {
	return r.update(id, func(u *models.User) {
		if upd.FirstName != nil {
			u.FirstName = *upd.FirstName
		}
		if upd.LastName != nil {
			u.LastName = *upd.LastName
		}
		if upd.Email != nil {
			u.Email = *upd.Email
		}
	})
}

func (r *UserRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	_, err := r.update(id, func(u *models.User) { u.PasswordHash = passwordHash })
	return err
}

func (r *UserRepository) UpdateRole(_ context.Context, id string, role models.Role) (*models.User, error) {
	return r.update(id, func(u *models.User) { u.Role = role })
}

func (r *UserRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.users, id)
	return nil
}

func matchesSearch(u *models.User, needle string) bool {
	for _, field := range []string{u.FirstName, u.LastName, u.UserName, u.Email} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func (r *UserRepository) List(_ context.Context, f models.UserFilter) ([]*models.User, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	needle := strings.ToLower(f.Search)
	matched := make([]*entry, 0, len(r.s.users))
	for _, e := range r.s.users {
		if f.Role != "" && e.user.Role != f.Role {
			continue
		}
		if needle != "" && !matchesSearch(e.user, needle) {
			continue
		}
		matched = append(matched, e)
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.user.CreatedAt.Equal(b.user.CreatedAt) {
			return a.user.CreatedAt.After(b.user.CreatedAt)
		}
		return a.seq > b.seq
	})

	total := len(matched)
	start := min(max(f.Offset, 0), total)
	end := total
	if f.Limit > 0 {
		end = min(start+f.Limit, total)
	}

	out := make([]*models.User, 0, end-start)
	for _, e := range matched[start:end] {
		out = append(out, clone(e.user))
	}
	return out, total, nil
}

func (r *UserRepository) Stats(_ context.Context, since time.Time) (*models.UserStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	st := &models.UserStats{}
	for _, e := range r.s.users {
		st.TotalUsers++
		switch e.user.Role {
		case models.RoleAdmin:
			st.AdminCount++
		case models.RoleCoadmin:
			st.CoadminCount++
		}
		if !e.user.CreatedAt.Before(since) {
			st.RecentUsers++
		}
	}
	return st, nil
}
