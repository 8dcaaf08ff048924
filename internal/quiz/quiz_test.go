package quiz

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/oposita/pkg/models"
)

func bank() []models.Question {
	var out []models.Question
	for i := int64(1); i <= 6; i++ {
		topic := int64(1)
		if i > 4 {
			topic = 2
		}
		out = append(out, models.Question{
			ID:           i,
			TopicID:      topic,
			Text:         fmt.Sprintf("Pregunta %d", i),
			Options:      []string{"a", "b", "c", "d"},
			CorrectIndex: int(i % 4),
		})
	}
	// broken questions are skipped
	out = append(out, models.Question{ID: 7, TopicID: 1, Options: []string{"solo"}})
	out = append(out, models.Question{ID: 8, TopicID: 1, Options: []string{"a", "b"}, CorrectIndex: 5})
	return out
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func TestBuilder_Build(t *testing.T) {
	b := NewBuilder(42)

	s, err := b.Build(9, 1, bank(), []int64{3, 99, 3}, 3)

	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, int64(9), s.UserID)
	require.Len(t, s.Questions, 3)
	assert.Equal(t, int64(3), s.Questions[0].ID, "priority questions come first")

	original := make(map[int64]models.Question)
	for _, q := range bank() {
		original[q.ID] = q
	}
	seen := make(map[int64]bool)
	for _, q := range s.Questions {
		assert.Equal(t, int64(1), q.TopicID)
		assert.False(t, seen[q.ID], "question %d repeated", q.ID)
		seen[q.ID] = true
		src := original[q.ID]
		assert.ElementsMatch(t, src.Options, q.Options)
		assert.Equal(t, src.Options[src.CorrectIndex], q.Options[q.CorrectIndex])
	}
}

func TestBuilder_Build_NoQuestions(t *testing.T) {
	_, err := NewBuilder(1).Build(1, 5, bank(), nil, 10)
	assert.ErrorIs(t, err, ErrNoQuestions)
}

func TestSession_AnswerFlow(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	clock := &fakeClock{t: start}
	b := NewBuilder(7).WithClock(clock.Now)

	s, err := b.Build(1, 1, bank(), nil, 0)
	require.NoError(t, err)
	require.Len(t, s.Questions, 4)

	for i := 0; i < 4; i++ {
		q, ok := s.Current()
		require.True(t, ok)
		pos, total := s.Position()
		assert.Equal(t, i+1, pos)
		assert.Equal(t, 4, total)

		clock.t = clock.t.Add(10 * time.Second)
		option := q.CorrectIndex
		if i == 3 {
			option = (q.CorrectIndex + 1) % len(q.Options)
		}
		a, err := s.Answer(option)
		require.NoError(t, err)
		assert.Equal(t, i != 3, a.Correct)
		assert.Equal(t, 10*time.Second, a.Elapsed)
	}

	assert.True(t, s.Done())
	_, err = s.Answer(0)
	assert.ErrorIs(t, err, ErrFinished)

	res := s.Results()
	assert.Equal(t, 4, res.TotalQuestions)
	assert.Equal(t, 3, res.Correct)
	assert.Equal(t, 75.0, res.Accuracy)

	rec := s.Record()
	assert.Equal(t, s.ID, rec.ID)
	assert.Equal(t, int64(1), rec.TopicID)
	assert.Equal(t, 3, rec.Correct)
	assert.Equal(t, 4, rec.Total)
	assert.Equal(t, start.Add(40*time.Second), rec.Timestamp)
}

func TestSession_InvalidOption(t *testing.T) {
	s, err := NewBuilder(3).Build(1, 2, bank(), nil, 1)
	require.NoError(t, err)

	_, err = s.Answer(4)
	assert.ErrorIs(t, err, ErrInvalidOption)
	_, err = s.Answer(-1)
	assert.ErrorIs(t, err, ErrInvalidOption)
	assert.False(t, s.Done())
	assert.Equal(t, 0.0, s.Results().Accuracy)
}

func TestSession_PromptAndExpects(t *testing.T) {
	s, err := NewBuilder(3).Build(7, 1, bank(), nil, 2)
	require.NoError(t, err)
	require.Len(t, s.Ref(), RefLength)

	p, ok := s.Prompt()
	require.True(t, ok)
	assert.Equal(t, s.Ref(), p.Ref)
	assert.Equal(t, 1, p.Position)
	assert.Equal(t, 2, p.Total)

	// the snapshot does not alias the session's options
	p.Question.Options[0] = "changed"
	q, _ := s.Current()
	assert.NotEqual(t, "changed", q.Options[0])

	tests := []struct {
		name     string
		ref      string
		position int
		want     bool
	}{
		{"current question", s.Ref(), 1, true},
		{"earlier position", s.Ref(), 0, false},
		{"later position", s.Ref(), 2, false},
		{"other session", "deadbeef", 1, false},
		{"missing ref", "", 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Expects(tt.ref, tt.position))
		})
	}

	_, err = s.Answer(0)
	require.NoError(t, err)
	assert.False(t, s.Expects(s.Ref(), 1), "answered question is stale")
	assert.True(t, s.Expects(s.Ref(), 2))

	_, err = s.Answer(0)
	require.NoError(t, err)
	_, ok = s.Prompt()
	assert.False(t, ok)
	assert.False(t, s.Expects(s.Ref(), 3))
}
