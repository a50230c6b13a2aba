package repomanager

import (
	"context"
	"database/sql"

	"github.com/PhoenixRFA/backlogapp/internal/dbx"
	"github.com/PhoenixRFA/backlogapp/internal/server/repositories/users"
)

// RepositoryManager vends repository implementations bound to a DBTX and
// exposes a schema-migration hook run at startup.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}
