package models

// QuestionProgress tracks a user's progress with a specific question using the SM-2 algorithm
type QuestionProgress struct {
	UserID           int64   `json:"user_id" db:"user_id"`
	QuestionID       int64   `json:"question_id" db:"question_id"`
	TopicID          int64   `json:"topic_id" db:"topic_id"`
	LastReviewDate   string  `json:"last_review_date" db:"last_review_date"`
	NextReviewDate   string  `json:"next_review_date" db:"next_review_date"`
	Interval         int     `json:"interval" db:"interval_days"`             // Current interval in days
	EasinessFactor   float64 `json:"easiness_factor" db:"easiness_factor"`    // SM-2 EF parameter
	Repetitions      int     `json:"repetitions" db:"repetitions"`            // Number of successful repetitions
	LastQuality      int     `json:"last_quality" db:"last_quality"`          // 0-5 rating of last recall
	ConsecutiveRight int     `json:"consecutive_right" db:"consecutive_right"` // Consecutive correct recalls
	IsMastered       bool    `json:"is_mastered" db:"is_mastered"`
}
