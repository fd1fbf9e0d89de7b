package media

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kikuomax/tweetscape-streams/internal/dbx"
	"github.com/kikuomax/tweetscape-streams/internal/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, media []*models.Media) error {
	query := `
		INSERT INTO media (media_key, type, properties, updated_at)
		VALUES ($1, $2, $3::jsonb, now())
		ON CONFLICT (media_key) DO UPDATE SET
			type = EXCLUDED.type,
			properties = EXCLUDED.properties,
			updated_at = now()
	`
	for _, m := range media {
		props, err := json.Marshal(m.Properties)
		if err != nil {
			return fmt.Errorf("encode properties of media %s: %w", m.MediaKey, err)
		}
		if _, err := r.db.ExecContext(ctx, query, m.MediaKey, m.Type, string(props)); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}
