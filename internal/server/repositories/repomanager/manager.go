package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/godex/internal/dbx"
	"github.com/dmitrijs2005/godex/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/godex/internal/server/repositories/captures"
	"github.com/dmitrijs2005/godex/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/godex/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so services can run
// the same repository code against *sql.DB or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Accounts(db dbx.DBTX) accounts.Repository
	Captures(db dbx.DBTX) captures.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
