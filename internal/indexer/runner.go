package indexer

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kikuomax/tweetscape-streams/internal/credential"
	"github.com/kikuomax/tweetscape-streams/internal/dbx"
	"github.com/kikuomax/tweetscape-streams/internal/models"
	"github.com/kikuomax/tweetscape-streams/internal/normalize"
)

// Track looks up username with the requester's token, stores the account
// and registers it for syncing. An already tracked account keeps its
// watermark and created is false.
func (s *Syncer) Track(ctx context.Context, requesterID, username string) (tracked *models.TrackedAccount, created bool, err error) {
	cred, err := s.Session(ctx, requesterID)
	if err != nil {
		return nil, false, err
	}
	obj, err := credential.Call(ctx, cred, func(ctx context.Context, accessToken string) (models.Object, error) {
		return s.api.UserByUsername(ctx, accessToken, username)
	})
	if err != nil {
		return nil, false, err
	}
	account, err := normalize.Account(obj)
	if err != nil {
		return nil, false, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Accounts(tx).Upsert(ctx, []*models.Account{account}); err != nil {
			return fmt.Errorf("upsert account: %w", err)
		}
		var cerr error
		created, cerr = s.repos.TrackedAccounts(tx).Create(ctx, account.ID, requesterID)
		return cerr
	})
	if err != nil {
		return nil, false, err
	}

	tracked, err = s.repos.TrackedAccounts(s.db).Get(ctx, account.ID)
	if err != nil {
		return nil, false, err
	}
	s.logger.Info(ctx, "account tracked", "account_id", account.ID, "username", account.Username, "created", created)
	return tracked, created, nil
}

type requesterGroup struct {
	requesterID string
	accounts    []*models.TrackedAccount
}

// groupByRequester keeps the first-seen order of requesters and accounts.
func groupByRequester(accounts []*models.TrackedAccount) []requesterGroup {
	index := map[string]int{}
	var groups []requesterGroup
	for _, a := range accounts {
		i, ok := index[a.RequesterID]
		if !ok {
			i = len(groups)
			index[a.RequesterID] = i
			groups = append(groups, requesterGroup{requesterID: a.RequesterID})
		}
		groups[i].accounts = append(groups[i].accounts, a)
	}
	return groups
}

// SyncAll syncs every tracked account. Requester groups run in parallel up
// to the configured concurrency; accounts of one requester run in order
// and share one credential client. A failed account does not stop the
// others and the joined failures are returned with all runs.
func (s *Syncer) SyncAll(ctx context.Context) ([]*models.SyncRun, error) {
	accounts, err := s.repos.TrackedAccounts(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tracked accounts: %w", err)
	}
	groups := groupByRequester(accounts)

	runs := make([][]*models.SyncRun, len(groups))
	errs := make([][]error, len(groups))

	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i, group := range groups {
		g.Go(func() error {
			runs[i], errs[i] = s.syncGroup(ctx, group)
			return nil
		})
	}
	_ = g.Wait()

	var (
		all    []*models.SyncRun
		failed []error
	)
	for i := range groups {
		all = append(all, runs[i]...)
		failed = append(failed, errs[i]...)
	}
	s.logger.Info(ctx, "sync-all finished", "accounts", len(accounts), "requesters", len(groups), "failed", len(failed))
	return all, errors.Join(failed...)
}

func (s *Syncer) syncGroup(ctx context.Context, group requesterGroup) ([]*models.SyncRun, []error) {
	cred, credErr := s.Session(ctx, group.requesterID)

	var (
		runs []*models.SyncRun
		errs []error
	)
	for _, account := range group.accounts {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		run, err := s.startRun(ctx, group.requesterID, account.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("account %s: %w", account.ID, err))
			continue
		}
		if credErr != nil {
			run, err = s.fail(ctx, run, credErr)
		} else {
			run, err = s.sync(ctx, cred, run)
		}
		runs = append(runs, run)
		if err != nil {
			errs = append(errs, fmt.Errorf("account %s: %w", account.ID, err))
		}
	}
	return runs, errs
}
