package accesstokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

func (r *PostgresRepository) Get(ctx context.Context, ownerID string) (*models.AccessToken, error) {
	query := `
		SELECT owner_id, access_token, refresh_token, created_at, updated_at, expires_in
		FROM access_tokens
		WHERE owner_id = $1
	`
	var (
		t         models.AccessToken
		expiresIn int64
	)
	err := r.db.QueryRowContext(ctx, query, ownerID).
		Scan(&t.OwnerID, &t.AccessSecret, &t.RefreshSecret, &t.IssuedAt, &t.UpdatedAt, &expiresIn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	t.TTL = time.Duration(expiresIn) * time.Second
	return &t, nil
}

func (r *PostgresRepository) Save(ctx context.Context, token *models.AccessToken) error {
	query := `
		INSERT INTO access_tokens (owner_id, access_token, refresh_token, created_at, updated_at, expires_in)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (owner_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			updated_at = EXCLUDED.updated_at,
			expires_in = EXCLUDED.expires_in
	`
	_, err := r.db.ExecContext(ctx, query,
		token.OwnerID,
		token.AccessSecret,
		token.RefreshSecret,
		token.IssuedAt,
		token.UpdatedAt,
		int64(token.TTL/time.Second),
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
