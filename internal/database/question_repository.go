package database

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/oposita/pkg/models"
)

// QuestionRepository stores the question bank
type QuestionRepository struct {
	db *sqlx.DB
}

// NewQuestionRepository creates a new repository instance
func NewQuestionRepository(db *sqlx.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

type questionRow struct {
	models.Question
	OptionsJSON string `db:"options"`
}

func (row questionRow) toModel() (models.Question, error) {
	q := row.Question
	if err := json.Unmarshal([]byte(row.OptionsJSON), &q.Options); err != nil {
		return q, errors.Wrapf(err, "invalid options for question %d", q.ID)
	}
	return q, nil
}

// Upsert saves a question keyed by (topic, text) and sets its ID
func (r *QuestionRepository) Upsert(ctx context.Context, q *models.Question) error {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return errors.Wrap(err, "failed to marshal options")
	}
	query := r.db.Rebind(`
		INSERT INTO questions (topic_id, text, options, correct_index, explanation)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (topic_id, text) DO UPDATE SET
			options = excluded.options,
			correct_index = excluded.correct_index,
			explanation = excluded.explanation
		RETURNING id
	`)
	err = r.db.QueryRowxContext(ctx, query, q.TopicID, q.Text, string(options), q.CorrectIndex, q.Explanation).Scan(&q.ID)
	if err != nil {
		return errors.Wrapf(err, "failed to save question %q", q.Text)
	}
	return nil
}

// GetByTopic returns the questions of one topic
func (r *QuestionRepository) GetByTopic(ctx context.Context, topicID int64) ([]models.Question, error) {
	return r.list(ctx, "SELECT id, topic_id, text, options, correct_index, explanation FROM questions WHERE topic_id = ? ORDER BY id", topicID)
}

// GetAll returns the whole bank
func (r *QuestionRepository) GetAll(ctx context.Context) ([]models.Question, error) {
	return r.list(ctx, "SELECT id, topic_id, text, options, correct_index, explanation FROM questions ORDER BY id")
}

func (r *QuestionRepository) list(ctx context.Context, query string, args ...any) ([]models.Question, error) {
	var rows []questionRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "failed to get questions")
	}
	out := make([]models.Question, 0, len(rows))
	for _, row := range rows {
		q, err := row.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// Count returns the size of the bank
func (r *QuestionRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM questions"); err != nil {
		return 0, errors.Wrap(err, "failed to count questions")
	}
	return n, nil
}

// CountByTopic returns the number of questions per topic
func (r *QuestionRepository) CountByTopic(ctx context.Context) (map[int64]int, error) {
	var rows []struct {
		TopicID int64 `db:"topic_id"`
		N       int   `db:"n"`
	}
	if err := r.db.SelectContext(ctx, &rows, "SELECT topic_id, COUNT(*) AS n FROM questions GROUP BY topic_id"); err != nil {
		return nil, errors.Wrap(err, "failed to count questions by topic")
	}
	out := make(map[int64]int, len(rows))
	for _, row := range rows {
		out[row.TopicID] = row.N
	}
	return out, nil
}
