package posts

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

func (r *PostgresRepository) Upsert(ctx context.Context, posts []*models.Post) error {
	query := `
		INSERT INTO posts (id, author_id, text, created_at, properties, updated_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, now())
		ON CONFLICT (id) DO UPDATE SET
			author_id = EXCLUDED.author_id,
			text = EXCLUDED.text,
			created_at = EXCLUDED.created_at,
			properties = EXCLUDED.properties,
			updated_at = now()
	`
	for _, p := range posts {
		props, err := json.Marshal(p.Properties)
		if err != nil {
			return fmt.Errorf("encode properties of post %s: %w", p.ID, err)
		}
		if _, err := r.db.ExecContext(ctx, query, p.ID, p.AuthorID, p.Text, p.CreatedAt, string(props)); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) CountByAuthor(ctx context.Context, authorID string) (int, error) {
	query := `
		SELECT count(*)
		FROM posts
		WHERE author_id = $1
	`
	var n int
	if err := r.db.QueryRowContext(ctx, query, authorID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
