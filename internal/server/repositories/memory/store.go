// Package memory keeps accounts and revoked tokens in process memory. It
// mirrors the unique indexes of the PostgreSQL schema and is used when no
// database is configured and in tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/visadesk/internal/dbx"
	"github.com/dmitrijs2005/visadesk/internal/server/models"
)

// Store is the shared state behind the in-memory repositories.
type Store struct {
	mu      sync.RWMutex
	users   map[string]*entry
	revoked map[string]models.RevokedToken
	seq     int64
	now     func() time.Time

	txMu sync.Mutex
}

type entry struct {
	user *models.User
	seq  int64
}

// Option customises a Store.
type Option func(*Store)

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		users:   make(map[string]*entry),
		revoked: make(map[string]models.RevokedToken),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Users returns a users repository over the store.
func (s *Store) Users() *UserRepository {
	return &UserRepository{s: s}
}

// RevokedTokens returns a token denylist over the store.
func (s *Store) RevokedTokens() *RevokedTokenRepository {
	return &RevokedTokenRepository{s: s}
}

// WithTx runs fn while holding the store-wide transaction lock. Writes are
// not rolled back on error; callers issue their single write last.
func (s *Store) WithTx(ctx context.Context, fn dbx.TxFunc) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(ctx, nil)
}
