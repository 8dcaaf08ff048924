package study

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/oposita/internal/fortress"
	"github.com/example/oposita/internal/syllabus"
	"github.com/example/oposita/pkg/models"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time { return c.t }

type memStore struct {
	mu        sync.Mutex
	progress  map[int64]map[int64]models.TopicProgress
	sessions  []models.SessionRecord
	questions []models.Question
	qprogress map[int64]models.QuestionProgress
	activity  models.ActivityData

	saveErr     error
	progressErr error
}

func newMemStore() *memStore {
	return &memStore{
		progress:  make(map[int64]map[int64]models.TopicProgress),
		qprogress: make(map[int64]models.QuestionProgress),
	}
}

type topicProgressStore struct{ *memStore }

func (m topicProgressStore) GetByUser(_ context.Context, userID int64) (map[int64]models.TopicProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]models.TopicProgress)
	for k, v := range m.progress[userID] {
		out[k] = v
	}
	return out, nil
}

type resultStore struct{ *memStore }

func (m resultStore) SaveResult(_ context.Context, rec *models.SessionRecord, topic models.TopicProgress, questions ...models.QuestionProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if rec.ID == "" {
		rec.ID = "generated"
	}
	m.sessions = append(m.sessions, *rec)
	for _, q := range questions {
		m.qprogress[q.QuestionID] = q
	}
	if m.progress[topic.UserID] == nil {
		m.progress[topic.UserID] = make(map[int64]models.TopicProgress)
	}
	m.progress[topic.UserID][topic.TopicID] = topic
	return nil
}

type questionStore struct{ *memStore }

func (m questionStore) GetByTopic(_ context.Context, topicID int64) ([]models.Question, error) {
	var out []models.Question
	for _, q := range m.questions {
		if q.TopicID == topicID {
			out = append(out, q)
		}
	}
	return out, nil
}

type questionProgressStore struct{ *memStore }

func (m questionProgressStore) GetByUserTopic(_ context.Context, userID, topicID int64) ([]models.QuestionProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.progressErr != nil {
		return nil, m.progressErr
	}
	var out []models.QuestionProgress
	for _, p := range m.qprogress {
		if p.UserID == userID && p.TopicID == topicID {
			out = append(out, p)
		}
	}
	return out, nil
}

type activityLoader struct{ *memStore }

func (m activityLoader) Load(_ context.Context, _ int64) (models.ActivityData, error) {
	return m.activity, nil
}

func newTestService(t *testing.T) (*Service, *memStore, *testClock) {
	t.Helper()
	store := newMemStore()
	svc := New(Stores{
		TopicProgress:    topicProgressStore{store},
		Questions:        questionStore{store},
		QuestionProgress: questionProgressStore{store},
		Results:          resultStore{store},
		Activity:         activityLoader{store},
	}, syllabus.Default(), nil)
	clock := &testClock{t: testNow}
	svc.SetClock(clock.Now)
	svc.SetLocation(time.UTC)
	svc.SetSeed(11)
	return svc, store, clock
}

func TestService_FortressDefaults(t *testing.T) {
	svc, _, _ := newTestService(t)

	records, err := svc.Fortress(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, records, 11)
	for _, r := range records {
		assert.Equal(t, int64(7), r.UserID)
		assert.Equal(t, 0, r.StrengthLevel)
		assert.Equal(t, models.ConsolidationNew, r.ConsolidationLevel)
		assert.NotEmpty(t, r.ShortName)
	}

	urgent, err := svc.Urgent(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, urgent)
}

func TestService_RecordSessionAndLazyDecay(t *testing.T) {
	ctx := context.Background()
	svc, store, clock := newTestService(t)

	updated, err := svc.RecordSession(ctx, 7, 1, fortress.SessionResults{Accuracy: 85, TotalQuestions: 20, Correct: 17})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.StrengthLevel)
	assert.Equal(t, 1, updated.TotalSessions)
	assert.Equal(t, "2026-03-10T12:00:00Z", updated.LastStudiedAt)
	require.Len(t, store.sessions, 1)
	assert.Equal(t, 17, store.sessions[0].Correct)

	clock.t = testNow.Add(40 * time.Hour)
	records, err := svc.Fortress(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, records[0].StrengthLevel)
	assert.Equal(t, 1, records[0].BlocksLost)

	// decay on read is not written back
	assert.Equal(t, 3, store.progress[7][1].StrengthLevel)

	urgent, err := svc.Urgent(ctx, 7)
	require.NoError(t, err)
	require.Len(t, urgent, 1)
	assert.Equal(t, int64(1), urgent[0].TopicID)

	// studying again starts from the decayed level
	updated, err = svc.RecordSession(ctx, 7, 1, fortress.SessionResults{Accuracy: 50, TotalQuestions: 10, Correct: 5})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.StrengthLevel)
	assert.Equal(t, 2, updated.TotalSessions)
	assert.Equal(t, 30, updated.TotalQuestionsAnswered)
}

func TestService_RecordSessionUnknownTopic(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.RecordSession(context.Background(), 7, 42, fortress.SessionResults{})
	assert.ErrorIs(t, err, ErrUnknownTopic)

	_, err = svc.StartQuiz(context.Background(), 7, 42)
	assert.ErrorIs(t, err, ErrUnknownTopic)
}

func addQuestions(store *memStore, topicID int64, n int) {
	for i := 1; i <= n; i++ {
		store.questions = append(store.questions, models.Question{
			ID: int64(len(store.questions) + 1), TopicID: topicID, Text: "q",
			Options: []string{"a", "b", "c"}, CorrectIndex: 0,
		})
	}
}

func TestService_QuizFlow(t *testing.T) {
	ctx := context.Background()
	svc, store, clock := newTestService(t)
	addQuestions(store, 2, 3)

	_, err := svc.Answer(ctx, 7, Reply{Ref: "x", Position: 1})
	assert.ErrorIs(t, err, ErrNoActiveQuiz)

	prompt, err := svc.StartQuiz(ctx, 7, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, prompt.Position)
	assert.Equal(t, 3, prompt.Total)

	active, ok := svc.ActiveQuiz(7)
	require.True(t, ok)
	assert.Equal(t, prompt, active)

	var last AnswerOutcome
	for i := 0; i < 3; i++ {
		clock.t = clock.t.Add(5 * time.Second)
		last, err = svc.Answer(ctx, 7, ReplyTo(prompt, prompt.Question.CorrectIndex))
		require.NoError(t, err)
		assert.True(t, last.Answer.Correct)
		assert.Equal(t, i == 2, last.Done)
		if i < 2 {
			require.NotNil(t, last.Next)
			assert.Equal(t, i+2, last.Next.Position)
			prompt = *last.Next
		}
	}

	assert.Nil(t, last.Next)
	require.NotNil(t, last.Summary)
	assert.Equal(t, 3, last.Summary.Results.Correct)
	assert.Equal(t, 100.0, last.Summary.Results.Accuracy)
	assert.Equal(t, 3, last.Summary.Topic.StrengthLevel)
	assert.Equal(t, prompt.Ref, last.Summary.Session.ID[:len(prompt.Ref)])

	_, ok = svc.ActiveQuiz(7)
	assert.False(t, ok)

	require.Len(t, store.sessions, 1)
	assert.Equal(t, int64(2), store.sessions[0].TopicID)
	require.Len(t, store.qprogress, 3)
	for _, p := range store.qprogress {
		assert.Equal(t, 1, p.Repetitions)
		assert.Equal(t, 5, p.LastQuality)
		assert.Equal(t, int64(2), p.TopicID)
	}
	assert.Equal(t, 3, store.progress[7][2].StrengthLevel)
}

func TestService_AnswerRejectsStaleReplies(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)
	addQuestions(store, 2, 3)

	first, err := svc.StartQuiz(ctx, 7, 2)
	require.NoError(t, err)

	_, err = svc.Answer(ctx, 7, ReplyTo(first, 0))
	require.NoError(t, err)

	tests := []struct {
		name  string
		reply Reply
	}{
		{"same button twice", ReplyTo(first, 1)},
		{"future position", Reply{Ref: first.Ref, Position: 3}},
		{"other session", Reply{Ref: "00000000", Position: 2}},
		{"no ref", Reply{Position: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Answer(ctx, 7, tt.reply)
			assert.ErrorIs(t, err, ErrStaleAnswer)
		})
	}

	current, ok := svc.ActiveQuiz(7)
	require.True(t, ok)
	assert.Equal(t, 2, current.Position, "stale replies grade nothing")

	// a new quiz invalidates the buttons of the old one
	second, err := svc.StartQuiz(ctx, 7, 2)
	require.NoError(t, err)
	_, err = svc.Answer(ctx, 7, ReplyTo(current, 0))
	assert.ErrorIs(t, err, ErrStaleAnswer)
	_, err = svc.Answer(ctx, 7, ReplyTo(second, 0))
	assert.NoError(t, err)
}

func TestService_ConcurrentAnswers(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)
	svc.QuizLength = 40
	addQuestions(store, 4, 40)

	_, err := svc.StartQuiz(ctx, 7, 4)
	require.NoError(t, err)

	var accepted atomic.Int32
	var wg sync.WaitGroup
	answer := func() {
		defer wg.Done()
		for {
			p, ok := svc.ActiveQuiz(7)
			if !ok {
				return
			}
			_, err := svc.Answer(ctx, 7, ReplyTo(p, p.Question.CorrectIndex))
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.Is(err, ErrStaleAnswer), errors.Is(err, ErrNoActiveQuiz):
			default:
				t.Errorf("unexpected error: %v", err)
				return
			}
		}
	}
	render := func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if p, ok := svc.ActiveQuiz(7); ok {
				assert.NotEmpty(t, p.Question.Options)
				assert.LessOrEqual(t, p.Position, p.Total)
			}
		}
	}
	wg.Add(3)
	go answer()
	go answer()
	go render()
	wg.Wait()

	assert.Equal(t, int32(40), accepted.Load(), "every question is graded once")
	require.Len(t, store.sessions, 1)
	assert.Equal(t, 40, store.sessions[0].Correct)
	assert.Equal(t, 40, store.sessions[0].Total)
}

func TestService_FinishFailureKeepsQuiz(t *testing.T) {
	tests := []struct {
		name       string
		breakStore func(*memStore)
		fix        func(*memStore)
	}{
		{
			name:       "question progress unavailable",
			breakStore: func(m *memStore) { m.progressErr = errors.New("connection reset") },
			fix:        func(m *memStore) { m.progressErr = nil },
		},
		{
			name:       "result not saved",
			breakStore: func(m *memStore) { m.saveErr = errors.New("disk full") },
			fix:        func(m *memStore) { m.saveErr = nil },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc, store, _ := newTestService(t)
			addQuestions(store, 5, 2)

			p, err := svc.StartQuiz(ctx, 7, 5)
			require.NoError(t, err)
			out, err := svc.Answer(ctx, 7, ReplyTo(p, 0))
			require.NoError(t, err)

			_, err = svc.FinishQuiz(ctx, 7, p.Ref)
			assert.ErrorIs(t, err, ErrQuizInProgress)

			tt.breakStore(store)
			out, err = svc.Answer(ctx, 7, ReplyTo(*out.Next, 0))
			require.Error(t, err)
			assert.True(t, out.Done)
			assert.Nil(t, out.Summary)

			assert.Empty(t, store.sessions)
			assert.Empty(t, store.qprogress)
			assert.Empty(t, store.progress[7])

			_, err = svc.FinishQuiz(ctx, 7, "00000000")
			assert.ErrorIs(t, err, ErrStaleAnswer)
			_, err = svc.FinishQuiz(ctx, 7, p.Ref)
			require.Error(t, err)
			assert.Empty(t, store.sessions)

			tt.fix(store)
			summary, err := svc.FinishQuiz(ctx, 7, p.Ref)
			require.NoError(t, err)
			assert.Equal(t, 2, summary.Results.TotalQuestions)
			require.Len(t, store.sessions, 1)
			assert.Len(t, store.qprogress, 2)
			assert.Equal(t, 1, store.progress[7][5].TotalSessions)

			_, err = svc.FinishQuiz(ctx, 7, p.Ref)
			assert.ErrorIs(t, err, ErrNoActiveQuiz, "saved only once")
		})
	}
}

func TestService_CancelQuiz(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)
	store.questions = []models.Question{{ID: 1, TopicID: 3, Options: []string{"a", "b"}}}

	p, err := svc.StartQuiz(ctx, 7, 3)
	require.NoError(t, err)
	_, err = svc.Answer(ctx, 7, ReplyTo(p, 5))
	assert.Error(t, err, "out of range option")

	assert.True(t, svc.CancelQuiz(7))
	assert.False(t, svc.CancelQuiz(7))
	assert.Empty(t, store.sessions)
}

func TestService_Analytics(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.activity = models.ActivityData{
		SessionHistory: []models.SessionRecord{
			{TopicID: 1, Correct: 8, Total: 10, Timestamp: testNow.Add(-48 * time.Hour)},
			{TopicID: 2, Correct: 6, Total: 10, Timestamp: testNow.Add(-24 * time.Hour)},
		},
		TotalStats: models.TotalStats{TestsCompleted: 2, AccuracyRate: 70},
		FSRSStats:  models.FSRSStats{Mastered: 10, Total: 100},
		Streak:     2,
	}

	snap, err := svc.Analytics(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, snap.HasEnoughData)
	require.Len(t, snap.TopicStrength.Topics, 2)
	topic2, _ := syllabus.Find(syllabus.Default(), 2)
	assert.Equal(t, topic2.Title, snap.TopicStrength.Topics[0].Name)
	assert.Equal(t, int64(2), snap.TopicStrength.Weakest.TopicID)
}
