package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/visadesk/internal/dbx"
	"github.com/dmitrijs2005/visadesk/internal/server/repositories/memory"
	"github.com/dmitrijs2005/visadesk/internal/server/repositories/revokedtokens"
	"github.com/dmitrijs2005/visadesk/internal/server/repositories/users"
)

// MemoryRepositoryManager serves every repository from one memory.Store and
// ignores the DBTX it is given.
type MemoryRepositoryManager struct {
	store *memory.Store
}

// NewMemoryRepositoryManager wraps store.
func NewMemoryRepositoryManager(store *memory.Store) *MemoryRepositoryManager {
	return &MemoryRepositoryManager{store: store}
}

func (m *MemoryRepositoryManager) Users(dbx.DBTX) users.Repository {
	return m.store.Users()
}

func (m *MemoryRepositoryManager) RevokedTokens(dbx.DBTX) revokedtokens.Repository {
	return m.store.RevokedTokens()
}

// RunMigrations has nothing to do for memory.
func (m *MemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error { return nil }

// Transactor returns the store's transaction lock.
func (m *MemoryRepositoryManager) Transactor() dbx.Transactor { return m.store }
