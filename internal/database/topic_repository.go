package database

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/oposita/pkg/models"
)

// TopicRepository stores the syllabus catalog
type TopicRepository struct {
	db *sqlx.DB
}

// NewTopicRepository creates a new repository instance
func NewTopicRepository(db *sqlx.DB) *TopicRepository {
	return &TopicRepository{db: db}
}

// Sync upserts every catalog topic
func (r *TopicRepository) Sync(ctx context.Context, topics []models.Topic) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	query := tx.Rebind(`
		INSERT INTO topics (id, title) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET title = excluded.title
	`)
	for _, t := range topics {
		if _, err := tx.ExecContext(ctx, query, t.ID, t.Title); err != nil {
			return errors.Wrapf(err, "failed to save topic %d", t.ID)
		}
	}
	return errors.Wrap(tx.Commit(), "failed to commit topics")
}

// GetAll retrieves all topics ordered by id
func (r *TopicRepository) GetAll(ctx context.Context) ([]models.Topic, error) {
	var topics []models.Topic
	if err := r.db.SelectContext(ctx, &topics, "SELECT id, title FROM topics ORDER BY id"); err != nil {
		return nil, errors.Wrap(err, "failed to get topics")
	}
	return topics, nil
}
