// Package study is the application-state object behind every user-facing
// surface. It owns the active quiz sessions and serializes the read and
// write of each user's topic progress.
package study

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/example/oposita/internal/analytics"
	"github.com/example/oposita/internal/fortress"
	"github.com/example/oposita/internal/logger"
	"github.com/example/oposita/internal/quiz"
	"github.com/example/oposita/internal/spaced_repetition"
	"github.com/example/oposita/internal/syllabus"
	"github.com/example/oposita/pkg/models"
)

var (
	// ErrUnknownTopic is returned for topics outside the catalog
	ErrUnknownTopic = errors.New("unknown topic")
	// ErrNoActiveQuiz is returned when answering without a running quiz
	ErrNoActiveQuiz = errors.New("no active quiz")
	// ErrStaleAnswer is returned for a reply to another session or to a
	// question that was already answered
	ErrStaleAnswer = errors.New("answer does not match the current question")
	// ErrQuizInProgress is returned when finishing a quiz with questions left
	ErrQuizInProgress = errors.New("quiz has unanswered questions")
)

// TopicProgressStore reads fortress state
type TopicProgressStore interface {
	GetByUser(ctx context.Context, userID int64) (map[int64]models.TopicProgress, error)
}

// ResultStore saves the session record, the topic state and the reviewed
// questions of one study session atomically
type ResultStore interface {
	SaveResult(ctx context.Context, rec *models.SessionRecord, topic models.TopicProgress, questions ...models.QuestionProgress) error
}

// QuestionStore reads the question bank
type QuestionStore interface {
	GetByTopic(ctx context.Context, topicID int64) ([]models.Question, error)
}

// QuestionProgressStore reads SM-2 state
type QuestionProgressStore interface {
	GetByUserTopic(ctx context.Context, userID, topicID int64) ([]models.QuestionProgress, error)
}

// ActivityLoader provides the inputs of the analytics engine
type ActivityLoader interface {
	Load(ctx context.Context, userID int64) (models.ActivityData, error)
}

// Stores groups the persistence dependencies of the service
type Stores struct {
	TopicProgress    TopicProgressStore
	Questions        QuestionStore
	QuestionProgress QuestionProgressStore
	Results          ResultStore
	Activity         ActivityLoader
}

// Service coordinates decay, quizzes, spaced repetition and analytics
type Service struct {
	stores Stores
	topics []models.Topic
	log    *logger.Logger

	fortress  *fortress.Model
	sm2       *spaced_repetition.SM2
	analytics *analytics.Engine
	builder   *quiz.Builder

	// QuizLength is the number of questions per quiz
	QuizLength int

	mu     sync.Mutex
	locks  map[int64]*sync.Mutex
	active map[int64]*quiz.Session
}

// New creates a service over the given catalog
func New(stores Stores, topics []models.Topic, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		stores:     stores,
		topics:     topics,
		log:        log.With("component", "study"),
		fortress:   fortress.NewModel(),
		sm2:        spaced_repetition.NewSM2(),
		analytics:  analytics.NewEngine(syllabus.Names(topics)),
		builder:    quiz.NewBuilder(0),
		QuizLength: 10,
		locks:      make(map[int64]*sync.Mutex),
		active:     make(map[int64]*quiz.Session),
	}
}

// SetClock replaces the time source of every model the service drives
func (s *Service) SetClock(now func() time.Time) {
	s.fortress.Now = now
	s.sm2.Now = now
	s.analytics.Now = now
	s.builder.WithClock(now)
}

// SetLocation sets the calendar used for weeks and target dates
func (s *Service) SetLocation(loc *time.Location) {
	s.analytics.Location = loc
}

// SetSeed makes quiz shuffling deterministic
func (s *Service) SetSeed(seed int64) {
	now := s.fortress.Now
	s.builder = quiz.NewBuilder(seed)
	if now != nil {
		s.builder.WithClock(now)
	}
}

// Topics returns the catalog
func (s *Service) Topics() []models.Topic {
	return s.topics
}

func (s *Service) userLock(userID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// Fortress returns one record per catalog topic with decay applied as of
// now. Decay is derived from the last study time on every read and is never
// written back.
func (s *Service) Fortress(ctx context.Context, userID int64) ([]models.TopicProgress, error) {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()
	return s.loadFortress(ctx, userID)
}

func (s *Service) loadFortress(ctx context.Context, userID int64) ([]models.TopicProgress, error) {
	existing, err := s.stores.TopicProgress.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load topic progress: %w", err)
	}
	records := fortress.InitializeFortressData(s.topics, existing)
	for i := range records {
		records[i].UserID = userID
		records[i] = s.fortress.CalculateDecay(records[i])
	}
	return records, nil
}

// Urgent returns the topics closest to losing their next block
func (s *Service) Urgent(ctx context.Context, userID int64) ([]models.TopicProgress, error) {
	records, err := s.Fortress(ctx, userID)
	if err != nil {
		return nil, err
	}
	return fortress.GetUrgentTopics(records), nil
}

// RecordSession stores an externally graded session and applies the
// post-study update to its topic
func (s *Service) RecordSession(ctx context.Context, userID, topicID int64, results fortress.SessionResults) (models.TopicProgress, error) {
	if _, ok := syllabus.Find(s.topics, topicID); !ok {
		return models.TopicProgress{}, ErrUnknownTopic
	}
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	topic, err := s.studiedTopic(ctx, userID, topicID, results)
	if err != nil {
		return models.TopicProgress{}, err
	}
	rec := models.SessionRecord{
		UserID:    userID,
		TopicID:   topicID,
		Correct:   results.Correct,
		Total:     results.TotalQuestions,
		Timestamp: s.fortress.Now().UTC(),
	}
	if err := s.stores.Results.SaveResult(ctx, &rec, topic); err != nil {
		return models.TopicProgress{}, fmt.Errorf("failed to record session: %w", err)
	}
	s.logStudy(userID, topic)
	return topic, nil
}

// studiedTopic runs decay then the post-study update on one topic. Callers
// hold the user lock and persist the result.
func (s *Service) studiedTopic(ctx context.Context, userID, topicID int64, results fortress.SessionResults) (models.TopicProgress, error) {
	records, err := s.loadFortress(ctx, userID)
	if err != nil {
		return models.TopicProgress{}, err
	}
	for _, r := range records {
		if r.TopicID == topicID {
			return s.fortress.UpdateTopicAfterStudy(r, results), nil
		}
	}
	return models.TopicProgress{}, ErrUnknownTopic
}

func (s *Service) logStudy(userID int64, t models.TopicProgress) {
	s.log.Info("topic studied",
		"user", userID,
		"topic", t.TopicID,
		"strength", t.StrengthLevel,
		"consolidation", t.ConsolidationLevel,
	)
}

// Analytics computes the analytics snapshot of a user
func (s *Service) Analytics(ctx context.Context, userID int64) (analytics.Snapshot, error) {
	data, err := s.stores.Activity.Load(ctx, userID)
	if err != nil {
		return analytics.Snapshot{}, fmt.Errorf("failed to load activity: %w", err)
	}
	return s.analytics.Compute(data), nil
}
