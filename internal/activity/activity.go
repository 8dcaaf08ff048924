// Package activity assembles the per-user activity data consumed by the
// analytics engine from the session and question-progress stores.
package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/example/oposita/internal/spaced_repetition"
	"github.com/example/oposita/pkg/models"
)

// SessionStore lists completed sessions
type SessionStore interface {
	GetByUser(ctx context.Context, userID int64) ([]models.SessionRecord, error)
}

// ProgressStore lists per-question SM-2 state
type ProgressStore interface {
	GetByUser(ctx context.Context, userID int64) ([]models.QuestionProgress, error)
}

// BankCounter reports the size of the question bank
type BankCounter interface {
	Count(ctx context.Context) (int, error)
}

// Provider loads ActivityData for a user
type Provider struct {
	sessions SessionStore
	progress ProgressStore
	bank     BankCounter

	Now      func() time.Time
	Location *time.Location
}

// NewProvider creates a provider using the local clock in UTC
func NewProvider(sessions SessionStore, progress ProgressStore, bank BankCounter) *Provider {
	return &Provider{
		sessions: sessions,
		progress: progress,
		bank:     bank,
		Now:      time.Now,
		Location: time.UTC,
	}
}

// Load returns the session history, totals, mastery aggregate and streak
func (p *Provider) Load(ctx context.Context, userID int64) (models.ActivityData, error) {
	sessions, err := p.sessions.GetByUser(ctx, userID)
	if err != nil {
		return models.ActivityData{}, fmt.Errorf("failed to load sessions: %w", err)
	}
	progress, err := p.progress.GetByUser(ctx, userID)
	if err != nil {
		return models.ActivityData{}, fmt.Errorf("failed to load question progress: %w", err)
	}
	bankSize, err := p.bank.Count(ctx)
	if err != nil {
		return models.ActivityData{}, fmt.Errorf("failed to count questions: %w", err)
	}

	streak := Streak(sessions, p.Now(), p.Location)
	totals := Totals(sessions)
	totals.CurrentStreak = streak

	return models.ActivityData{
		SessionHistory: sessions,
		TotalStats:     totals,
		FSRSStats:      spaced_repetition.Stats(progress, bankSize),
		Streak:         streak,
	}, nil
}

// Totals aggregates the lifetime counters of a session history
func Totals(sessions []models.SessionRecord) models.TotalStats {
	var stats models.TotalStats
	for _, s := range sessions {
		stats.TestsCompleted++
		stats.TotalQuestions += s.Total
		stats.CorrectAnswers += s.Correct
	}
	if stats.TotalQuestions > 0 {
		stats.AccuracyRate = float64(stats.CorrectAnswers) / float64(stats.TotalQuestions) * 100
	}
	return stats
}

// Streak counts consecutive calendar days with at least one session, ending
// today or yesterday in loc. A gap before yesterday resets it to zero.
func Streak(sessions []models.SessionRecord, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	days := make(map[string]bool)
	for _, s := range sessions {
		if s.Timestamp.IsZero() {
			continue
		}
		days[dayKey(s.Timestamp, loc)] = true
	}

	day := now.In(loc)
	if !days[dayKey(day, loc)] {
		day = day.AddDate(0, 0, -1)
	}
	streak := 0
	for days[dayKey(day, loc)] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

func dayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
