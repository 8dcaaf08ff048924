package models

// TotalStats aggregates a user's lifetime test activity
type TotalStats struct {
	TestsCompleted int     `json:"tests_completed"`
	AccuracyRate   float64 `json:"accuracy_rate"` // 0-100
	TotalQuestions int     `json:"total_questions"`
	CorrectAnswers int     `json:"correct_answers"`
	CurrentStreak  int     `json:"current_streak"`
}

// FSRSStats is the spaced-repetition aggregate over the question bank
type FSRSStats struct {
	Mastered int `json:"mastered"`
	Total    int `json:"total"`
}

// Remaining returns the number of questions not yet mastered
func (s FSRSStats) Remaining() int {
	if s.Total <= s.Mastered {
		return 0
	}
	return s.Total - s.Mastered
}

// ActivityData is everything the analytics engine needs about one user
type ActivityData struct {
	SessionHistory []SessionRecord `json:"session_history"`
	TotalStats     TotalStats      `json:"total_stats"`
	FSRSStats      FSRSStats       `json:"fsrs_stats"`
	Streak         int             `json:"streak"`
}
