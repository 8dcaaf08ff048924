package models

import "time"

// SessionRecord is the canonical summary of one completed study session.
// Timestamp is the zero time when the upstream value could not be parsed.
type SessionRecord struct {
	ID        string    `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	TopicID   int64     `json:"topic_id" db:"topic_id"`
	Correct   int       `json:"correct_count" db:"correct_count"`
	Total     int       `json:"total_questions" db:"total_questions"`
	Timestamp time.Time `json:"timestamp" db:"created_at"`
}

// Accuracy returns the session accuracy in percent, 0 for empty sessions
func (s SessionRecord) Accuracy() float64 {
	if s.Total <= 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Total) * 100
}
