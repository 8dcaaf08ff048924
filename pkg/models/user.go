package models

// User represents a Telegram user studying with the bot
type User struct {
	ID                  int64  `json:"id" db:"id"`
	TelegramID          int64  `json:"telegram_id" db:"telegram_id"`
	ChatID              int64  `json:"chat_id" db:"chat_id"`
	Username            string `json:"username" db:"username"`
	FirstName           string `json:"first_name" db:"first_name"`
	NotificationEnabled bool   `json:"notification_enabled" db:"notification_enabled"`
	NotificationHour    int    `json:"notification_hour" db:"notification_hour"` // Hour of day for reminders (0-23)
	CreatedAt           string `json:"created_at" db:"created_at"`
}
