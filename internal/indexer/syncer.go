// Package indexer runs the sync of tracked accounts: it acquires the
// requester's token, pulls the account's timeline, upserts every page and
// reconciles the watermark.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kikuomax/tweetscape-streams/internal/credential"
	"github.com/kikuomax/tweetscape-streams/internal/dbx"
	"github.com/kikuomax/tweetscape-streams/internal/logging"
	"github.com/kikuomax/tweetscape-streams/internal/models"
	"github.com/kikuomax/tweetscape-streams/internal/normalize"
	"github.com/kikuomax/tweetscape-streams/internal/repositories/repomanager"
	"github.com/kikuomax/tweetscape-streams/internal/timeline"
	"github.com/kikuomax/tweetscape-streams/internal/twitter"
	"github.com/kikuomax/tweetscape-streams/internal/watermark"
)

// API is the part of the remote API the syncer calls.
type API interface {
	Timeline(ctx context.Context, accessToken string, req twitter.TimelineRequest) (*models.Page, error)
	UserByUsername(ctx context.Context, accessToken, username string) (models.Object, error)
	credential.TokenRefresher
}

// PageArchive stores raw pages. It is optional.
type PageArchive interface {
	PutPage(ctx context.Context, accountID, runID string, page int, body []byte) error
}

type Options struct {
	PageSize    int
	Concurrency int
	App         credential.AppCredentials
}

type Syncer struct {
	db      dbx.DBTX
	tx      dbx.Transactor
	repos   repomanager.RepositoryManager
	api     API
	archive PageArchive
	opts    Options
	logger  logging.Logger

	// one mutex per requester, held while its token is refreshed
	refreshLocks sync.Map

	newRunID func() string
	now      func() time.Time
}

func NewSyncer(db dbx.DBTX, tx dbx.Transactor, repos repomanager.RepositoryManager, api API, archive PageArchive, opts Options, logger logging.Logger) *Syncer {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Syncer{
		db:       db,
		tx:       tx,
		repos:    repos,
		api:      api,
		archive:  archive,
		opts:     opts,
		logger:   logger,
		newRunID: func() string { return uuid.NewString() },
		now:      time.Now,
	}
}

// Session loads the token of requesterID and returns a credential client
// that saves refreshed tokens back to the store. Sessions of one requester
// refresh one at a time and pick up tokens rotated by each other.
func (s *Syncer) Session(ctx context.Context, requesterID string) (*credential.Client, error) {
	token, err := s.repos.AccessTokens(s.db).Get(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("access token of %s: %w", requesterID, err)
	}
	save := func(ctx context.Context, t *models.AccessToken) error {
		return s.repos.AccessTokens(s.db).Save(ctx, t)
	}
	load := func(ctx context.Context) (*models.AccessToken, error) {
		return s.repos.AccessTokens(s.db).Get(ctx, requesterID)
	}
	return credential.NewClient(s.opts.App, *token, s.api, save, s.logger).
		WithStore(load, s.refreshLock(requesterID)), nil
}

func (s *Syncer) refreshLock(requesterID string) *sync.Mutex {
	mu, _ := s.refreshLocks.LoadOrStore(requesterID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// SyncAccount runs one sync of accountID paid by requesterID. The returned
// run is set even when the sync fails.
func (s *Syncer) SyncAccount(ctx context.Context, requesterID, accountID string) (*models.SyncRun, error) {
	run, err := s.startRun(ctx, requesterID, accountID)
	if err != nil {
		return nil, err
	}
	cred, err := s.Session(ctx, requesterID)
	if err != nil {
		return s.fail(ctx, run, err)
	}
	return s.sync(ctx, cred, run)
}

// GetRun returns a stored run.
func (s *Syncer) GetRun(ctx context.Context, id string) (*models.SyncRun, error) {
	return s.repos.SyncRuns(s.db).Get(ctx, id)
}

func (s *Syncer) startRun(ctx context.Context, requesterID, accountID string) (*models.SyncRun, error) {
	run := &models.SyncRun{
		ID:          s.newRunID(),
		AccountID:   accountID,
		RequesterID: requesterID,
		State:       models.SyncStateStart,
		StartedAt:   s.now().UTC(),
	}
	if err := s.repos.SyncRuns(s.db).Start(ctx, run); err != nil {
		return nil, fmt.Errorf("start sync run: %w", err)
	}
	s.logger.Info(ctx, "sync started", "run_id", run.ID, "account_id", accountID, "requester_id", requesterID)
	return run, nil
}

func (s *Syncer) sync(ctx context.Context, cred *credential.Client, run *models.SyncRun) (*models.SyncRun, error) {
	logger := s.logger.With("run_id", run.ID, "account_id", run.AccountID)
	s.transition(ctx, run, models.SyncStateTokenAcquired)

	tracked, err := s.repos.TrackedAccounts(s.db).Get(ctx, run.AccountID)
	if err != nil {
		return s.fail(ctx, run, fmt.Errorf("tracked account %s: %w", run.AccountID, err))
	}

	since := ""
	if tracked.Watermark.LatestID != nil && !tracked.Watermark.NeverSynced() {
		since = *tracked.Watermark.LatestID
	}
	puller, err := timeline.New(s.fetcher(cred), run.AccountID, since, s.opts.PageSize)
	if err != nil {
		return s.fail(ctx, run, err)
	}

	s.transition(ctx, run, models.SyncStatePulling)
	logger.Debug(ctx, "pulling timeline", "mode", puller.Mode().String(), "since_id", since)

	rng, err := puller.Drain(ctx, func(ctx context.Context, page *models.Page) error {
		n := run.Pages + 1
		if s.archive != nil {
			if err := s.archive.PutPage(ctx, run.AccountID, run.ID, n, page.Raw); err != nil {
				return err
			}
		}
		s.transition(ctx, run, models.SyncStateUpserting)
		if err := s.upsertPage(ctx, page); err != nil {
			return fmt.Errorf("page %d: %w", n, err)
		}
		run.Pages = n
		run.Items += len(page.Posts)
		logger.Debug(ctx, "page upserted", "page", n, "items", len(page.Posts))
		return nil
	})
	if err != nil {
		return s.fail(ctx, run, err)
	}

	s.transition(ctx, run, models.SyncStateReconciling)
	reconciler := watermark.NewReconciler(s.repos.TrackedAccounts(s.db), logger)
	w, outcome, err := reconciler.Reconcile(ctx, *tracked, rng)
	if err != nil {
		return s.fail(ctx, run, err)
	}
	run.LatestID, run.EarliestID = w.LatestID, w.EarliestID

	s.finish(ctx, run, models.SyncStateDone, nil)
	logger.Info(ctx, "sync done", "pages", run.Pages, "items", run.Items, "watermark", w.String(), "outcome", string(outcome))
	return run, nil
}

// upsertPage writes included accounts, media, included posts and posts of
// one page in a single transaction.
func (s *Syncer) upsertPage(ctx context.Context, page *models.Page) error {
	batch, err := normalize.Page(page)
	if err != nil {
		return err
	}
	return s.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Accounts(tx).Upsert(ctx, batch.Accounts); err != nil {
			return fmt.Errorf("upsert accounts: %w", err)
		}
		if err := s.repos.Media(tx).Upsert(ctx, batch.Media); err != nil {
			return fmt.Errorf("upsert media: %w", err)
		}
		if err := s.repos.Posts(tx).Upsert(ctx, batch.IncludedPosts); err != nil {
			return fmt.Errorf("upsert included posts: %w", err)
		}
		if err := s.repos.Posts(tx).Upsert(ctx, batch.Posts); err != nil {
			return fmt.Errorf("upsert posts: %w", err)
		}
		return nil
	})
}

func (s *Syncer) fetcher(cred *credential.Client) timeline.Fetcher {
	return func(ctx context.Context, req timeline.Request) (*models.Page, error) {
		return credential.Call(ctx, cred, func(ctx context.Context, accessToken string) (*models.Page, error) {
			return s.api.Timeline(ctx, accessToken, twitter.TimelineRequest{
				AccountID:       req.AccountID,
				SinceID:         req.SinceID,
				PaginationToken: req.PaginationToken,
				MaxResults:      req.PageSize,
			})
		})
	}
}

// transition records the state and counters of run. Bookkeeping failures
// are logged and do not abort the sync.
func (s *Syncer) transition(ctx context.Context, run *models.SyncRun, state models.SyncState) {
	run.State = state
	if err := s.repos.SyncRuns(s.db).Update(ctx, run); err != nil {
		s.logger.Warn(ctx, "could not record sync state", "run_id", run.ID, "state", string(state), "error", err)
	}
	s.logger.Debug(ctx, "sync state", "run_id", run.ID, "state", string(state))
}

func (s *Syncer) finish(ctx context.Context, run *models.SyncRun, state models.SyncState, cause error) {
	finished := s.now().UTC()
	run.FinishedAt = &finished
	if cause != nil {
		run.Error = cause.Error()
	}
	s.transition(ctx, run, state)
}

func (s *Syncer) fail(ctx context.Context, run *models.SyncRun, err error) (*models.SyncRun, error) {
	s.finish(ctx, run, models.SyncStateFailed, err)
	if errors.Is(err, credential.ErrRefreshDesynced) {
		s.logger.Error(ctx, "sync failed, requester must log in again", "run_id", run.ID, "account_id", run.AccountID, "requester_id", run.RequesterID, "error", err)
	} else {
		s.logger.Error(ctx, "sync failed", "run_id", run.ID, "account_id", run.AccountID, "error", err)
	}
	return run, err
}
