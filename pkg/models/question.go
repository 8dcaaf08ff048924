package models

// Question is a multiple choice item of the question bank
type Question struct {
	ID           int64    `json:"id" db:"id"`
	TopicID      int64    `json:"topic_id" db:"topic_id"`
	Text         string   `json:"text" db:"text"`
	Options      []string `json:"options" db:"-"`
	CorrectIndex int      `json:"correct_index" db:"correct_index"`
	Explanation  string   `json:"explanation,omitempty" db:"explanation"`
}
