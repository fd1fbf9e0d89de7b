package repomanager

import (
	"context"
	"database/sql"

	"github.com/kikuomax/tweetscape-streams/internal/dbx"
	"github.com/kikuomax/tweetscape-streams/internal/repositories/accesstokens"
	"github.com/kikuomax/tweetscape-streams/internal/repositories/accounts"
	"github.com/kikuomax/tweetscape-streams/internal/repositories/media"
	"github.com/kikuomax/tweetscape-streams/internal/repositories/posts"
	"github.com/kikuomax/tweetscape-streams/internal/repositories/syncruns"
	"github.com/kikuomax/tweetscape-streams/internal/repositories/trackedaccounts"
)

// RepositoryManager vends repositories bound to a DBTX so callers can run
// them on the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Media(db dbx.DBTX) media.Repository
	Posts(db dbx.DBTX) posts.Repository
	TrackedAccounts(db dbx.DBTX) trackedaccounts.Repository
	AccessTokens(db dbx.DBTX) accesstokens.Repository
	SyncRuns(db dbx.DBTX) syncruns.Repository
}
