package database

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/oposita/pkg/models"
)

// TopicProgressRepository persists the per-topic fortress state
type TopicProgressRepository struct {
	db *sqlx.DB
}

// NewTopicProgressRepository creates a new repository instance
func NewTopicProgressRepository(db *sqlx.DB) *TopicProgressRepository {
	return &TopicProgressRepository{db: db}
}

// GetByUser returns the stored records of a user keyed by topic
func (r *TopicProgressRepository) GetByUser(ctx context.Context, userID int64) (map[int64]models.TopicProgress, error) {
	var rows []models.TopicProgress
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT user_id, topic_id, strength_level, consolidation_level, total_sessions,
			last_studied_at, next_decay_at, total_questions_answered, correct_answers
		FROM topic_progress WHERE user_id = ?
	`), userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get topic progress")
	}
	out := make(map[int64]models.TopicProgress, len(rows))
	for _, p := range rows {
		p.RefreshDerived()
		out[p.TopicID] = p
	}
	return out, nil
}

// Save upserts the given records in one transaction
func (r *TopicProgressRepository) Save(ctx context.Context, records ...models.TopicProgress) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := upsertTopicProgress(ctx, tx, records...); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "failed to commit topic progress")
}

func upsertTopicProgress(ctx context.Context, ext sqlx.ExtContext, records ...models.TopicProgress) error {
	query := ext.Rebind(`
		INSERT INTO topic_progress (
			user_id, topic_id, strength_level, consolidation_level, total_sessions,
			last_studied_at, next_decay_at, total_questions_answered, correct_answers
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, topic_id) DO UPDATE SET
			strength_level = excluded.strength_level,
			consolidation_level = excluded.consolidation_level,
			total_sessions = excluded.total_sessions,
			last_studied_at = excluded.last_studied_at,
			next_decay_at = excluded.next_decay_at,
			total_questions_answered = excluded.total_questions_answered,
			correct_answers = excluded.correct_answers
	`)
	for _, p := range records {
		_, err := ext.ExecContext(ctx, query,
			p.UserID, p.TopicID, p.StrengthLevel, string(p.ConsolidationLevel), p.TotalSessions,
			p.LastStudiedAt, p.NextDecayAt, p.TotalQuestionsAnswered, p.CorrectAnswers,
		)
		if err != nil {
			return errors.Wrapf(err, "failed to save progress for topic %d", p.TopicID)
		}
	}
	return nil
}
