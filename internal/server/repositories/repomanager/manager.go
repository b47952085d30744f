package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/visadesk/internal/dbx"
	"github.com/dmitrijs2005/visadesk/internal/server/repositories/revokedtokens"
	"github.com/dmitrijs2005/visadesk/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code
// path works on a pool handle or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RevokedTokens(db dbx.DBTX) revokedtokens.Repository
}
