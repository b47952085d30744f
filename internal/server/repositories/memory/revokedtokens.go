package memory

import (
	"context"
	"time"

	"github.com/dmitrijs2005/visadesk/internal/server/models"
)

// RevokedTokenRepository implements revokedtokens.Repository in memory.
type RevokedTokenRepository struct {
	s *Store
}

func (r *RevokedTokenRepository) Create(_ context.Context, t *models.RevokedToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.revoked[t.TokenID]; ok {
		return nil
	}
	c := *t
	c.CreatedAt = r.s.now()
	r.s.revoked[t.TokenID] = c
	return nil
}

func (r *RevokedTokenRepository) Exists(_ context.Context, tokenID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, ok := r.s.revoked[tokenID]
	return ok, nil
}

func (r *RevokedTokenRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, t := range r.s.revoked {
		if t.ExpiresAt.Before(now) {
			delete(r.s.revoked, id)
			n++
		}
	}
	return n, nil
}
