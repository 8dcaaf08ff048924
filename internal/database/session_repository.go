package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/oposita/pkg/models"
)

// SessionRepository stores completed study sessions
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new repository instance
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a session, assigning an id when it has none. Re-inserting an
// existing id is a no-op so imports can be replayed.
func (r *SessionRepository) Create(ctx context.Context, s *models.SessionRecord) error {
	return insertSession(ctx, r.db, s)
}

func insertSession(ctx context.Context, ext sqlx.ExtContext, s *models.SessionRecord) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	_, err := ext.ExecContext(ctx, ext.Rebind(`
		INSERT INTO sessions (id, user_id, topic_id, correct_count, total_questions, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`), s.ID, s.UserID, s.TopicID, s.Correct, s.Total, s.Timestamp.UTC())
	if err != nil {
		return errors.Wrap(err, "failed to save session")
	}
	return nil
}

// GetByUser returns the sessions of a user, oldest first
func (r *SessionRepository) GetByUser(ctx context.Context, userID int64) ([]models.SessionRecord, error) {
	var sessions []models.SessionRecord
	err := r.db.SelectContext(ctx, &sessions, r.db.Rebind(`
		SELECT id, user_id, topic_id, correct_count, total_questions, created_at
		FROM sessions WHERE user_id = ? ORDER BY created_at, id
	`), userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get sessions")
	}
	for i := range sessions {
		sessions[i].Timestamp = sessions[i].Timestamp.UTC()
	}
	return sessions, nil
}
