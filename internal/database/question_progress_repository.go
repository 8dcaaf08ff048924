package database

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/oposita/pkg/models"
)

const questionProgressColumns = `user_id, question_id, topic_id, last_review_date, next_review_date,
	interval_days, easiness_factor, repetitions, last_quality, consecutive_right, is_mastered`

// QuestionProgressRepository persists SM-2 state per user and question
type QuestionProgressRepository struct {
	db *sqlx.DB
}

// NewQuestionProgressRepository creates a new repository instance
func NewQuestionProgressRepository(db *sqlx.DB) *QuestionProgressRepository {
	return &QuestionProgressRepository{db: db}
}

// Get returns progress for a specific user and question
func (r *QuestionProgressRepository) Get(ctx context.Context, userID, questionID int64) (*models.QuestionProgress, error) {
	var p models.QuestionProgress
	err := r.db.GetContext(ctx, &p, r.db.Rebind(
		"SELECT "+questionProgressColumns+" FROM question_progress WHERE user_id = ? AND question_id = ?",
	), userID, questionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get question progress")
	}
	return &p, nil
}

// GetByUser returns every progress record of a user
func (r *QuestionProgressRepository) GetByUser(ctx context.Context, userID int64) ([]models.QuestionProgress, error) {
	var out []models.QuestionProgress
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(
		"SELECT "+questionProgressColumns+" FROM question_progress WHERE user_id = ? ORDER BY question_id",
	), userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get question progress")
	}
	return out, nil
}

// GetByUserTopic returns the progress records of a user on one topic
func (r *QuestionProgressRepository) GetByUserTopic(ctx context.Context, userID, topicID int64) ([]models.QuestionProgress, error) {
	var out []models.QuestionProgress
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(
		"SELECT "+questionProgressColumns+" FROM question_progress WHERE user_id = ? AND topic_id = ? ORDER BY question_id",
	), userID, topicID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get question progress")
	}
	return out, nil
}

// Save upserts the given records in one transaction
func (r *QuestionProgressRepository) Save(ctx context.Context, records ...models.QuestionProgress) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := upsertQuestionProgress(ctx, tx, records...); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "failed to commit question progress")
}

func upsertQuestionProgress(ctx context.Context, ext sqlx.ExtContext, records ...models.QuestionProgress) error {
	query := ext.Rebind(`
		INSERT INTO question_progress (` + questionProgressColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, question_id) DO UPDATE SET
			topic_id = excluded.topic_id,
			last_review_date = excluded.last_review_date,
			next_review_date = excluded.next_review_date,
			interval_days = excluded.interval_days,
			easiness_factor = excluded.easiness_factor,
			repetitions = excluded.repetitions,
			last_quality = excluded.last_quality,
			consecutive_right = excluded.consecutive_right,
			is_mastered = excluded.is_mastered
	`)
	for _, p := range records {
		_, err := ext.ExecContext(ctx, query,
			p.UserID, p.QuestionID, p.TopicID, p.LastReviewDate, p.NextReviewDate,
			p.Interval, p.EasinessFactor, p.Repetitions, p.LastQuality, p.ConsecutiveRight, p.IsMastered,
		)
		if err != nil {
			return errors.Wrapf(err, "failed to save progress for question %d", p.QuestionID)
		}
	}
	return nil
}
