package models

import "math"

// MaxStrengthLevel is the number of blocks a fully retained topic holds
const MaxStrengthLevel = 6

// ConsolidationLevel is the coarse study-maturity bucket of a topic
type ConsolidationLevel string

const (
	ConsolidationNew          ConsolidationLevel = "new"
	ConsolidationInProgress   ConsolidationLevel = "in_progress"
	ConsolidationConsolidated ConsolidationLevel = "consolidated"
)

// Rank orders consolidation levels; unknown values rank below "new"
func (c ConsolidationLevel) Rank() int {
	switch c {
	case ConsolidationNew:
		return 1
	case ConsolidationInProgress:
		return 2
	case ConsolidationConsolidated:
		return 3
	default:
		return 0
	}
}

// TopicProgress tracks the retained mastery ("fortress") of a user on one topic.
// Timestamps are RFC3339 strings; an empty string means the value is absent.
type TopicProgress struct {
	UserID                 int64              `json:"user_id" db:"user_id"`
	TopicID                int64              `json:"topic_id" db:"topic_id"`
	Name                   string             `json:"name" db:"-"`
	ShortName              string             `json:"short_name" db:"-"`
	StrengthLevel          int                `json:"strength_level" db:"strength_level"`
	StrengthPercentage     int                `json:"strength_percentage" db:"-"`
	ConsolidationLevel     ConsolidationLevel `json:"consolidation_level" db:"consolidation_level"`
	TotalSessions          int                `json:"total_sessions" db:"total_sessions"`
	LastStudiedAt          string             `json:"last_studied_at,omitempty" db:"last_studied_at"`
	NextDecayAt            string             `json:"next_decay_at,omitempty" db:"next_decay_at"`
	TotalQuestionsAnswered int                `json:"total_questions_answered" db:"total_questions_answered"`
	CorrectAnswers         int                `json:"correct_answers" db:"correct_answers"`
	Accuracy               *int               `json:"accuracy,omitempty" db:"-"` // nil until a question is answered
	BlocksLost             int                `json:"blocks_lost" db:"-"`
}

// RefreshDerived recomputes the fields derived from the stored counters
func (p *TopicProgress) RefreshDerived() {
	if p.StrengthLevel > MaxStrengthLevel {
		p.StrengthLevel = MaxStrengthLevel
	}
	if p.StrengthLevel < 0 {
		p.StrengthLevel = 0
	}
	p.StrengthPercentage = int(math.Round(float64(p.StrengthLevel) / MaxStrengthLevel * 100))

	p.Accuracy = nil
	if p.TotalQuestionsAnswered > 0 {
		acc := int(math.Round(float64(p.CorrectAnswers) / float64(p.TotalQuestionsAnswered) * 100))
		p.Accuracy = &acc
	}
}
