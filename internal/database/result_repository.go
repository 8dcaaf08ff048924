package database

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/oposita/pkg/models"
)

// ResultRepository writes everything a finished study session changes
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository creates a new repository instance
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// SaveResult stores the session record, the topic's post-study state and the
// SM-2 state of the reviewed questions in one transaction. Either all of them
// are written or none is.
func (r *ResultRepository) SaveResult(ctx context.Context, rec *models.SessionRecord, topic models.TopicProgress, questions ...models.QuestionProgress) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := insertSession(ctx, tx, rec); err != nil {
		return err
	}
	if err := upsertQuestionProgress(ctx, tx, questions...); err != nil {
		return err
	}
	if err := upsertTopicProgress(ctx, tx, topic); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "failed to commit session result")
}
