package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/oposita/pkg/models"
)

const userColumns = "id, telegram_id, chat_id, username, first_name, notification_enabled, notification_hour, created_at"

// UserRepository handles database operations for users
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new repository instance
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert registers a telegram user or refreshes its chat and profile fields,
// returning the stored row
func (r *UserRepository) Upsert(ctx context.Context, user *models.User) (*models.User, error) {
	if user.CreatedAt == "" {
		user.CreatedAt = models.FormatTimestamp(time.Now())
	}
	query := r.db.Rebind(`
		INSERT INTO users (telegram_id, chat_id, username, first_name, notification_enabled, notification_hour, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (telegram_id) DO UPDATE SET
			chat_id = excluded.chat_id,
			username = excluded.username,
			first_name = excluded.first_name
	`)
	_, err := r.db.ExecContext(ctx, query,
		user.TelegramID, user.ChatID, user.Username, user.FirstName,
		user.NotificationEnabled, user.NotificationHour, user.CreatedAt,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to upsert user %d", user.TelegramID)
	}
	return r.GetByTelegramID(ctx, user.TelegramID)
}

// GetByID returns a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

// GetByTelegramID returns a user by telegram ID
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE telegram_id = ?", telegramID)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, r.db.Rebind(query), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user")
	}
	return &user, nil
}

// SetNotification updates the reminder settings of a user
func (r *UserRepository) SetNotification(ctx context.Context, userID int64, enabled bool, hour int) error {
	if hour < 0 || hour > 23 {
		return errors.Errorf("invalid notification hour %d", hour)
	}
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind("UPDATE users SET notification_enabled = ?, notification_hour = ? WHERE id = ?"),
		enabled, hour, userID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update notification settings")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetUsersForNotification returns users with reminders enabled at hour
func (r *UserRepository) GetUsersForNotification(ctx context.Context, hour int) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users,
		r.db.Rebind("SELECT "+userColumns+" FROM users WHERE notification_enabled = ? AND notification_hour = ? ORDER BY id"),
		true, hour,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get users for notification")
	}
	return users, nil
}

// GetAll returns all users
func (r *UserRepository) GetAll(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, "SELECT "+userColumns+" FROM users ORDER BY id"); err != nil {
		return nil, errors.Wrap(err, "failed to get users")
	}
	return users, nil
}
