// Package quiz builds and grades multiple choice study sessions over the
// question bank.
package quiz

import (
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/example/oposita/internal/fortress"
	"github.com/example/oposita/pkg/models"
)

var (
	// ErrNoQuestions is returned when a topic has no usable questions
	ErrNoQuestions = errors.New("quiz: no questions for topic")
	// ErrFinished is returned when answering a session with no questions left
	ErrFinished = errors.New("quiz: session already finished")
	// ErrInvalidOption is returned for an answer outside the option list
	ErrInvalidOption = errors.New("quiz: invalid option")
)

// Builder creates quiz sessions
type Builder struct {
	rnd *rand.Rand
	now func() time.Time
}

// NewBuilder creates a builder; a zero seed uses the current time
func NewBuilder(seed int64) *Builder {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Builder{
		rnd: rand.New(rand.NewSource(seed)),
		now: time.Now,
	}
}

// WithClock overrides the time source of the sessions created by b
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Answer records one response
type Answer struct {
	QuestionID int64
	Option     int
	Correct    bool
	Elapsed    time.Duration
}

// Session is one multiple choice test on a single topic
type Session struct {
	ID        string
	UserID    int64
	TopicID   int64
	Questions []models.Question
	Answers   []Answer
	StartedAt time.Time

	askedAt time.Time
	now     func() time.Time
}

// Build picks up to count questions of topicID from bank. Questions listed in
// priority come first in that order; the rest are shuffled. Options of every
// question are shuffled keeping track of the correct one.
func (b *Builder) Build(userID, topicID int64, bank []models.Question, priority []int64, count int) (*Session, error) {
	byID := make(map[int64]models.Question)
	var pool []models.Question
	for _, q := range bank {
		if q.TopicID != topicID || len(q.Options) < 2 || q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			continue
		}
		byID[q.ID] = q
		pool = append(pool, q)
	}
	if len(pool) == 0 {
		return nil, ErrNoQuestions
	}

	picked := make([]models.Question, 0, len(pool))
	used := make(map[int64]bool)
	for _, id := range priority {
		if q, ok := byID[id]; ok && !used[id] {
			picked = append(picked, q)
			used[id] = true
		}
	}

	b.rnd.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	for _, q := range pool {
		if !used[q.ID] {
			picked = append(picked, q)
			used[q.ID] = true
		}
	}

	if count > 0 && len(picked) > count {
		picked = picked[:count]
	}
	for i := range picked {
		picked[i] = b.shuffleOptions(picked[i])
	}

	now := b.now()
	return &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		TopicID:   topicID,
		Questions: picked,
		StartedAt: now,
		askedAt:   now,
		now:       b.now,
	}, nil
}

func (b *Builder) shuffleOptions(q models.Question) models.Question {
	perm := b.rnd.Perm(len(q.Options))
	options := make([]string, len(q.Options))
	correct := 0
	for i, from := range perm {
		options[i] = q.Options[from]
		if from == q.CorrectIndex {
			correct = i
		}
	}
	q.Options = options
	q.CorrectIndex = correct
	return q
}

// Current returns the question waiting for an answer
func (s *Session) Current() (models.Question, bool) {
	n := len(s.Answers)
	if n >= len(s.Questions) {
		return models.Question{}, false
	}
	return s.Questions[n], true
}

// Position returns the 1-based number of the current question and the total
func (s *Session) Position() (int, int) {
	return len(s.Answers) + 1, len(s.Questions)
}

// Answer grades option for the current question
func (s *Session) Answer(option int) (Answer, error) {
	q, ok := s.Current()
	if !ok {
		return Answer{}, ErrFinished
	}
	if option < 0 || option >= len(q.Options) {
		return Answer{}, ErrInvalidOption
	}
	now := s.now()
	a := Answer{
		QuestionID: q.ID,
		Option:     option,
		Correct:    option == q.CorrectIndex,
		Elapsed:    now.Sub(s.askedAt),
	}
	s.Answers = append(s.Answers, a)
	s.askedAt = now
	return a, nil
}

// RefLength is the number of session id characters carried by a Prompt ref
const RefLength = 8

// Prompt is a copy of the question waiting for an answer. It shares no
// memory with the session, so it can be rendered while the session moves on.
type Prompt struct {
	Ref      string
	Question models.Question
	Position int
	Total    int
}

// Prompt snapshots the current question
func (s *Session) Prompt() (Prompt, bool) {
	q, ok := s.Current()
	if !ok {
		return Prompt{}, false
	}
	q.Options = append([]string(nil), q.Options...)
	pos, total := s.Position()
	return Prompt{Ref: s.Ref(), Question: q, Position: pos, Total: total}, true
}

// Ref is the short session identifier used in callback data
func (s *Session) Ref() string {
	if len(s.ID) <= RefLength {
		return s.ID
	}
	return s.ID[:RefLength]
}

// Expects reports whether an answer tagged with ref and position belongs to
// the question currently waiting
func (s *Session) Expects(ref string, position int) bool {
	if ref == "" || ref != s.Ref() {
		return false
	}
	pos, _ := s.Position()
	return position == pos && !s.Done()
}

// Done reports whether every question has been answered
func (s *Session) Done() bool {
	return len(s.Answers) >= len(s.Questions)
}

// Correct returns the number of correct answers so far
func (s *Session) Correct() int {
	n := 0
	for _, a := range s.Answers {
		if a.Correct {
			n++
		}
	}
	return n
}

// Results summarizes the answered questions for the decay model
func (s *Session) Results() fortress.SessionResults {
	total := len(s.Answers)
	correct := s.Correct()
	accuracy := 0.0
	if total > 0 {
		accuracy = float64(correct) / float64(total) * 100
	}
	return fortress.SessionResults{
		Accuracy:       accuracy,
		TotalQuestions: total,
		Correct:        correct,
	}
}

// Record converts the session into the canonical session summary
func (s *Session) Record() models.SessionRecord {
	return models.SessionRecord{
		ID:        s.ID,
		UserID:    s.UserID,
		TopicID:   s.TopicID,
		Correct:   s.Correct(),
		Total:     len(s.Answers),
		Timestamp: s.now().UTC(),
	}
}
