package syncruns

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kikuomax/tweetscape-streams/internal/common"
	"github.com/kikuomax/tweetscape-streams/internal/dbx"
	"github.com/kikuomax/tweetscape-streams/internal/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Start(ctx context.Context, run *models.SyncRun) error {
	query := `
		INSERT INTO sync_runs (id, account_id, requester_id, state, started_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.ExecContext(ctx, query, run.ID, run.AccountID, run.RequesterID, string(run.State), run.StartedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, run *models.SyncRun) error {
	query := `
		UPDATE sync_runs
		SET state = $2, pages = $3, items = $4, latest_id = $5, earliest_id = $6, finished_at = $7, error = $8
		WHERE id = $1
	`
	var finished sql.NullTime
	if run.FinishedAt != nil {
		finished = sql.NullTime{Time: *run.FinishedAt, Valid: true}
	}
	res, err := r.db.ExecContext(ctx, query,
		run.ID,
		string(run.State),
		run.Pages,
		run.Items,
		nullable(run.LatestID),
		nullable(run.EarliestID),
		finished,
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.SyncRun, error) {
	query := `
		SELECT id, account_id, requester_id, state, pages, items, latest_id, earliest_id, started_at, finished_at, error
		FROM sync_runs
		WHERE id = $1
	`
	var (
		run              models.SyncRun
		state            string
		latest, earliest sql.NullString
		finished         sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.AccountID, &run.RequesterID, &state, &run.Pages, &run.Items,
		&latest, &earliest, &run.StartedAt, &finished, &run.Error,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	run.State = models.SyncState(state)
	if latest.Valid {
		run.LatestID = models.StringPtr(latest.String)
	}
	if earliest.Valid {
		run.EarliestID = models.StringPtr(earliest.String)
	}
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
