package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/mycloud/internal/dbx"
	"github.com/dmitrijs2005/mycloud/internal/server/repositories/files"
	"github.com/dmitrijs2005/mycloud/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/mycloud/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to either a connection pool or
// a transaction, so services can mix plain and transactional access.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Files(db dbx.DBTX) files.Repository
	Sessions(db dbx.DBTX) sessions.Repository
}
