package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/oposita/pkg/models"
)

// Tuesday
var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestEngine() *Engine {
	e := NewEngine(map[int64]string{1: "La Constitución Española de 1978"})
	e.Now = func() time.Time { return testNow }
	e.Location = time.UTC
	return e
}

func day(month time.Month, d int) time.Time {
	return time.Date(2026, month, d, 18, 30, 0, 0, time.UTC)
}

func session(topic int64, correct, total int, at time.Time) models.SessionRecord {
	return models.SessionRecord{TopicID: topic, Correct: correct, Total: total, Timestamp: at}
}

func TestEngine_Compute(t *testing.T) {
	e := newTestEngine()
	data := models.ActivityData{
		SessionHistory: []models.SessionRecord{
			session(2, 6, 10, day(time.March, 9)),
			session(1, 8, 10, day(time.March, 2)),
			session(1, 9, 10, day(time.March, 10)),
		},
		TotalStats: models.TotalStats{TestsCompleted: 3, AccuracyRate: 76.7},
		FSRSStats:  models.FSRSStats{Mastered: 10, Total: 40},
		Streak:     2,
	}

	snap := e.Compute(data)

	assert.True(t, snap.HasEnoughData)
	assert.Equal(t, 15, snap.Velocity.CurrentVelocity)
	assert.Equal(t, []int{8, 15}, snap.Velocity.WeeklyHistory)
	assert.Equal(t, TrendUp, snap.Velocity.Trend)
	require.NotNil(t, snap.TopicStrength.Weakest)
	assert.Equal(t, int64(2), snap.TopicStrength.Weakest.TopicID)
	assert.Equal(t, "La Constitución Española de 1978", snap.TopicStrength.Strongest.Name)
	require.NotNil(t, snap.Prediction.Days)
	assert.Equal(t, 14, *snap.Prediction.Days)
	assert.Equal(t, ConfidenceMedium, snap.Prediction.Confidence)

	// input order is left untouched
	assert.Equal(t, int64(2), data.SessionHistory[0].TopicID)
}

func TestEngine_Compute_NotEnoughData(t *testing.T) {
	e := newTestEngine()

	snap := e.Compute(models.ActivityData{TotalStats: models.TotalStats{TestsCompleted: 1}})

	assert.False(t, snap.HasEnoughData)
	assert.Equal(t, 0, snap.Velocity.CurrentVelocity)
	assert.Empty(t, snap.TopicStrength.Topics)
	assert.Nil(t, snap.TopicStrength.Weakest)
	assert.Nil(t, snap.Prediction.Days)
	assert.Equal(t, LevelInitial, snap.Readiness.Level)
}

func TestWeekStart(t *testing.T) {
	monday := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		in   time.Time
	}{
		{name: "monday", in: time.Date(2026, 3, 9, 7, 0, 0, 0, time.UTC)},
		{name: "wednesday", in: time.Date(2026, 3, 11, 23, 59, 0, 0, time.UTC)},
		{name: "sunday belongs to the previous monday", in: time.Date(2026, 3, 15, 22, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, monday, WeekStart(tt.in))
		})
	}
	assert.Equal(t, monday.AddDate(0, 0, 7), WeekStart(time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2025, 12, 29, 0, 0, 0, 0, time.UTC), WeekStart(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
}
