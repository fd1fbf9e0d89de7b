package accounts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kikuomax/tweetscape-streams/internal/common"
	"github.com/kikuomax/tweetscape-streams/internal/dbx"
	"github.com/kikuomax/tweetscape-streams/internal/models"
)

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, accounts []*models.Account) error {
	query := `
		INSERT INTO accounts (id, username, name, profile_image_url, properties, updated_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, now())
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			name = EXCLUDED.name,
			profile_image_url = EXCLUDED.profile_image_url,
			properties = EXCLUDED.properties,
			updated_at = now()
	`
	for _, a := range accounts {
		props, err := json.Marshal(a.Properties)
		if err != nil {
			return fmt.Errorf("encode properties of account %s: %w", a.ID, err)
		}
		if _, err := r.db.ExecContext(ctx, query, a.ID, a.Username, a.Name, a.ProfileImageURL, string(props)); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Account, error) {
	query := `
		SELECT id, username, name, profile_image_url, properties
		FROM accounts
		WHERE id = $1
	`
	var (
		a     models.Account
		props []byte
	)
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&a.ID, &a.Username, &a.Name, &a.ProfileImageURL, &props); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if len(props) > 0 {
		if err := json.Unmarshal(props, &a.Properties); err != nil {
			return nil, fmt.Errorf("decode properties of account %s: %w", id, err)
		}
	}
	return &a, nil
}
