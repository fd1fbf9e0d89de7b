package trackedaccounts

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

const selectTracked = `
		SELECT t.account_id, a.username, a.name, t.requester_id, t.latest_id, t.earliest_id
		FROM tracked_accounts t
		JOIN accounts a ON a.id = t.account_id
`

type scanner interface {
	Scan(dest ...any) error
}

func scanTracked(row scanner) (*models.TrackedAccount, error) {
	var (
		t                models.TrackedAccount
		latest, earliest sql.NullString
	)
	if err := row.Scan(&t.ID, &t.Username, &t.Name, &t.RequesterID, &latest, &earliest); err != nil {
		return nil, err
	}
	if latest.Valid {
		t.Watermark.LatestID = models.StringPtr(latest.String)
	}
	if earliest.Valid {
		t.Watermark.EarliestID = models.StringPtr(earliest.String)
	}
	return &t, nil
}

func (r *PostgresRepository) Get(ctx context.Context, accountID string) (*models.TrackedAccount, error) {
	query := selectTracked + `		WHERE t.account_id = $1`
	t, err := scanTracked(r.db.QueryRowContext(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.TrackedAccount, error) {
	query := selectTracked + `		ORDER BY t.requester_id, t.account_id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.TrackedAccount
	for rows.Next() {
		t, err := scanTracked(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Create(ctx context.Context, accountID, requesterID string) (bool, error) {
	query := `
		INSERT INTO tracked_accounts (account_id, requester_id)
		VALUES ($1, $2)
		ON CONFLICT (account_id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, accountID, requesterID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) SetWatermark(ctx context.Context, accountID string, w models.Watermark) error {
	if err := w.Validate(); err != nil {
		return err
	}
	query := `
		UPDATE tracked_accounts
		SET latest_id = $2, earliest_id = $3
		WHERE account_id = $1
	`
	res, err := r.db.ExecContext(ctx, query, accountID, nullable(w.LatestID), nullable(w.EarliestID))
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

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
