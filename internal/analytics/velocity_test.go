package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/example/oposita/pkg/models"
)

func TestEngine_ComputeVelocity(t *testing.T) {
	e := newTestEngine()
	tests := []struct {
		name     string
		sessions []models.SessionRecord
		want     Velocity
	}{
		{
			name:     "no sessions",
			sessions: nil,
			want:     Velocity{Trend: TrendStable, WeeklyHistory: []int{}},
		},
		{
			name:     "a single session is not enough",
			sessions: []models.SessionRecord{session(1, 9, 10, day(time.March, 9))},
			want:     Velocity{Trend: TrendStable, WeeklyHistory: []int{}},
		},
		{
			name: "sunday is grouped with its monday",
			sessions: []models.SessionRecord{
				session(1, 5, 10, day(time.March, 2)),
				session(1, 3, 10, day(time.March, 4)),
				session(1, 4, 10, day(time.March, 9)),
				session(1, 6, 10, day(time.March, 15)),
			},
			want: Velocity{CurrentVelocity: 10, Trend: TrendStable, WeeklyHistory: []int{8, 10}},
		},
		{
			name: "only one week compares against zero",
			sessions: []models.SessionRecord{
				session(1, 3, 10, day(time.March, 9)),
				session(2, 4, 10, day(time.March, 10)),
			},
			want: Velocity{CurrentVelocity: 7, Trend: TrendUp, WeeklyHistory: []int{7}},
		},
		{
			name: "falling more than two answers is down",
			sessions: []models.SessionRecord{
				session(1, 9, 10, day(time.February, 23)),
				session(1, 6, 10, day(time.March, 3)),
			},
			want: Velocity{CurrentVelocity: 6, Trend: TrendDown, WeeklyHistory: []int{9, 6}},
		},
		{
			name: "last bucket is current even when weeks are missing",
			sessions: []models.SessionRecord{
				session(1, 2, 10, day(time.January, 5)),
				session(1, 4, 10, day(time.February, 2)),
			},
			want: Velocity{CurrentVelocity: 4, Trend: TrendStable, WeeklyHistory: []int{2, 4}},
		},
		{
			name: "sessions without timestamp are ignored",
			sessions: []models.SessionRecord{
				{TopicID: 1, Correct: 50, Total: 50},
				{TopicID: 1, Correct: 50, Total: 50},
			},
			want: Velocity{Trend: TrendStable, WeeklyHistory: []int{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.ComputeVelocity(tt.sessions))
		})
	}
}

func TestEngine_ComputeVelocity_HistoryKeepsEightWeeks(t *testing.T) {
	e := newTestEngine()
	start := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	var sessions []models.SessionRecord
	for week := 0; week < 10; week++ {
		sessions = append(sessions, session(1, week+1, 20, start.AddDate(0, 0, 7*week)))
	}

	got := e.ComputeVelocity(sessions)

	assert.Equal(t, []int{3, 4, 5, 6, 7, 8, 9, 10}, got.WeeklyHistory)
	assert.Equal(t, 10, got.CurrentVelocity)
	assert.Equal(t, TrendStable, got.Trend)
}
