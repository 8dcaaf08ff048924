package study

import (
	"context"
	"fmt"

	"github.com/example/oposita/internal/fortress"
	"github.com/example/oposita/internal/quiz"
	"github.com/example/oposita/internal/spaced_repetition"
	"github.com/example/oposita/internal/syllabus"
	"github.com/example/oposita/pkg/models"
)

// Reply is an answer tagged with the prompt it was given for
type Reply struct {
	Ref      string
	Position int
	Option   int
}

// ReplyTo builds the reply choosing option on prompt p
func ReplyTo(p quiz.Prompt, option int) Reply {
	return Reply{Ref: p.Ref, Position: p.Position, Option: option}
}

// AnswerOutcome describes the result of answering one quiz question
type AnswerOutcome struct {
	Question models.Question
	Answer   quiz.Answer
	Done     bool
	// Next question, unset once the quiz is done
	Next *quiz.Prompt
	// Set once the results of the finished quiz are saved
	Summary *QuizSummary
}

// QuizSummary is the result of a finished quiz
type QuizSummary struct {
	Session models.SessionRecord
	Results fortress.SessionResults
	Topic   models.TopicProgress
}

// StartQuiz builds a new quiz on topicID, replacing any running one, and
// returns its first question. Questions due for review come first.
func (s *Service) StartQuiz(ctx context.Context, userID, topicID int64) (quiz.Prompt, error) {
	if _, ok := syllabus.Find(s.topics, topicID); !ok {
		return quiz.Prompt{}, ErrUnknownTopic
	}
	bank, err := s.stores.Questions.GetByTopic(ctx, topicID)
	if err != nil {
		return quiz.Prompt{}, fmt.Errorf("failed to load questions: %w", err)
	}
	progress, err := s.stores.QuestionProgress.GetByUserTopic(ctx, userID, topicID)
	if err != nil {
		return quiz.Prompt{}, fmt.Errorf("failed to load question progress: %w", err)
	}

	var priority []int64
	for _, p := range s.sm2.GetNextQuestions(progress, s.QuizLength) {
		priority = append(priority, p.QuestionID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	session, err := s.builder.Build(userID, topicID, bank, priority, s.QuizLength)
	if err != nil {
		return quiz.Prompt{}, err
	}
	s.active[userID] = session
	s.log.Debug("quiz started", "user", userID, "topic", topicID, "session", session.ID, "questions", len(session.Questions))
	prompt, _ := session.Prompt()
	return prompt, nil
}

// ActiveQuiz returns the question waiting for an answer in the running quiz
// of a user
func (s *Service) ActiveQuiz(userID int64) (quiz.Prompt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.active[userID]
	if !ok {
		return quiz.Prompt{}, false
	}
	return session.Prompt()
}

// CancelQuiz drops the running quiz without recording it
func (s *Service) CancelQuiz(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[userID]
	delete(s.active, userID)
	return ok
}

// Answer grades a reply to the current question of the running quiz. Replies
// for another session or an already answered question get ErrStaleAnswer.
// The last answer finishes the quiz: the session record, every question's
// SM-2 state and the topic's post-study update are saved together. If saving
// fails the quiz stays active and FinishQuiz retries it.
func (s *Service) Answer(ctx context.Context, userID int64, r Reply) (AnswerOutcome, error) {
	s.mu.Lock()
	session, ok := s.active[userID]
	if !ok {
		s.mu.Unlock()
		return AnswerOutcome{}, ErrNoActiveQuiz
	}
	if !session.Expects(r.Ref, r.Position) {
		s.mu.Unlock()
		return AnswerOutcome{}, ErrStaleAnswer
	}
	question, _ := session.Current()
	answer, err := session.Answer(r.Option)
	done := session.Done()
	next, hasNext := session.Prompt()
	s.mu.Unlock()
	if err != nil {
		return AnswerOutcome{}, err
	}

	outcome := AnswerOutcome{Question: question, Answer: answer, Done: done}
	if hasNext {
		outcome.Next = &next
	}
	if !done {
		return outcome, nil
	}
	summary, err := s.finish(ctx, userID, session)
	if err != nil {
		return outcome, err
	}
	outcome.Summary = summary
	return outcome, nil
}

// FinishQuiz retries saving a quiz whose questions are all answered but
// whose results could not be stored
func (s *Service) FinishQuiz(ctx context.Context, userID int64, ref string) (*QuizSummary, error) {
	s.mu.Lock()
	session, ok := s.active[userID]
	var err error
	switch {
	case !ok:
		err = ErrNoActiveQuiz
	case ref != session.Ref():
		err = ErrStaleAnswer
	case !session.Done():
		err = ErrQuizInProgress
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, userID, session)
}

// finish saves a completed session and removes it from the active quizzes.
// A session that is no longer active was already saved or replaced.
func (s *Service) finish(ctx context.Context, userID int64, session *quiz.Session) (*QuizSummary, error) {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	current := s.active[userID]
	s.mu.Unlock()
	if current != session {
		return nil, ErrNoActiveQuiz
	}

	reviewed, err := s.reviewQuestions(ctx, session)
	if err != nil {
		return nil, err
	}
	results := session.Results()
	topic, err := s.studiedTopic(ctx, userID, session.TopicID, results)
	if err != nil {
		return nil, err
	}
	rec := session.Record()
	if err := s.stores.Results.SaveResult(ctx, &rec, topic, reviewed...); err != nil {
		s.log.Warn("quiz result not saved", "user", userID, "session", session.ID, "error", err)
		return nil, fmt.Errorf("failed to save quiz result: %w", err)
	}

	s.mu.Lock()
	if s.active[userID] == session {
		delete(s.active, userID)
	}
	s.mu.Unlock()

	s.logStudy(userID, topic)
	return &QuizSummary{Session: rec, Results: results, Topic: topic}, nil
}

// reviewQuestions runs SM-2 for every answer of a finished session
func (s *Service) reviewQuestions(ctx context.Context, session *quiz.Session) ([]models.QuestionProgress, error) {
	existing, err := s.stores.QuestionProgress.GetByUserTopic(ctx, session.UserID, session.TopicID)
	if err != nil {
		return nil, fmt.Errorf("failed to load question progress: %w", err)
	}
	byQuestion := make(map[int64]models.QuestionProgress, len(existing))
	for _, p := range existing {
		byQuestion[p.QuestionID] = p
	}

	updated := make([]models.QuestionProgress, 0, len(session.Answers))
	for _, a := range session.Answers {
		p, ok := byQuestion[a.QuestionID]
		if !ok {
			p = models.QuestionProgress{
				UserID:         session.UserID,
				QuestionID:     a.QuestionID,
				TopicID:        session.TopicID,
				EasinessFactor: spaced_repetition.DefaultEasinessFactor,
			}
		}
		s.sm2.Process(&p, spaced_repetition.QualityFromAnswer(a.Correct, a.Elapsed))
		updated = append(updated, p)
	}
	return updated, nil
}
