// Package analytics derives read-only study metrics from a user's session
// history and spaced-repetition aggregates. Every call recomputes from its
// inputs; nothing is cached or mutated.
package analytics

import (
	"sort"
	"time"

	"github.com/example/oposita/pkg/models"
)

// SyllabusTopicCount is the number of topics in the covered syllabus
const SyllabusTopicCount = 11

// MinTestsForAnalytics is the number of completed tests needed before the
// snapshot is considered meaningful
const MinTestsForAnalytics = 2

// Trend values shared by velocity and topic strength
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)

// Snapshot bundles the four metrics shown on the analytics screen
type Snapshot struct {
	HasEnoughData bool                `json:"has_enough_data"`
	Velocity      Velocity            `json:"velocity"`
	Readiness     Readiness           `json:"readiness"`
	TopicStrength TopicStrengthReport `json:"topic_strength"`
	Prediction    Prediction          `json:"prediction"`
}

// Engine computes analytics snapshots
type Engine struct {
	// Now returns the wall-clock time used for "today"
	Now func() time.Time
	// Location decides week boundaries and calendar dates
	Location *time.Location
	// TopicNames labels topic strength entries; unknown topics keep an empty name
	TopicNames map[int64]string
}

// NewEngine creates an engine using the local time zone
func NewEngine(topicNames map[int64]string) *Engine {
	return &Engine{
		Now:        time.Now,
		Location:   time.Local,
		TopicNames: topicNames,
	}
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now().In(e.location())
	}
	return e.Now().In(e.location())
}

func (e *Engine) location() *time.Location {
	if e.Location == nil {
		return time.Local
	}
	return e.Location
}

// Compute derives the full snapshot for one user's activity
func (e *Engine) Compute(data models.ActivityData) Snapshot {
	sessions := chronological(data.SessionHistory)
	velocity := e.ComputeVelocity(sessions)

	return Snapshot{
		HasEnoughData: data.TotalStats.TestsCompleted >= MinTestsForAnalytics,
		Velocity:      velocity,
		Readiness:     e.ComputeReadiness(data.TotalStats, data.FSRSStats, sessions, data.Streak),
		TopicStrength: e.ComputeTopicStrength(sessions),
		Prediction:    e.ComputePrediction(velocity, data.FSRSStats),
	}
}

// chronological returns a copy of sessions ordered by timestamp, keeping the
// input order for ties
func chronological(sessions []models.SessionRecord) []models.SessionRecord {
	out := make([]models.SessionRecord, len(sessions))
	copy(out, sessions)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}
