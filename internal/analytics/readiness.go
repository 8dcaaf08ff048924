package analytics

import (
	"math"

	"github.com/example/oposita/pkg/models"
)

// Readiness levels, from the final score
const (
	LevelReady      = "preparado"
	LevelAdvanced   = "avanzado"
	LevelInProgress = "en_progreso"
	LevelInitial    = "inicial"
)

// Component weights of the readiness score; they add up to 100
const (
	masteryWeight     = 40
	accuracyWeight    = 30
	coverageWeight    = 20
	consistencyWeight = 10

	streakTargetDays = 7
)

// ReadinessBreakdown shows each normalized component as a 0-100 percentage
type ReadinessBreakdown struct {
	Mastery     int `json:"mastery"`
	Accuracy    int `json:"accuracy"`
	Coverage    int `json:"coverage"`
	Consistency int `json:"consistency"`
}

// Readiness estimates exam preparedness
type Readiness struct {
	Score     int                `json:"score"`
	Level     string             `json:"level"`
	Breakdown ReadinessBreakdown `json:"breakdown"`
}

// ComputeReadiness combines mastery, accuracy, topic coverage and study
// consistency into a 0-100 score. streak falls back to TotalStats.CurrentStreak
// when zero.
func (e *Engine) ComputeReadiness(total models.TotalStats, fsrs models.FSRSStats, sessions []models.SessionRecord, streak int) Readiness {
	denominator := fsrs.Total
	if denominator <= 0 {
		denominator = 1
	}
	mastery := clamp01(float64(fsrs.Mastered) / float64(denominator))
	accuracy := clamp01(total.AccuracyRate / 100)

	studied := make(map[int64]struct{})
	for _, s := range sessions {
		if s.TopicID != 0 {
			studied[s.TopicID] = struct{}{}
		}
	}
	coverage := clamp01(float64(len(studied)) / SyllabusTopicCount)

	if streak == 0 {
		streak = total.CurrentStreak
	}
	consistency := clamp01(float64(streak) / streakTargetDays)

	raw := mastery*masteryWeight + accuracy*accuracyWeight + coverage*coverageWeight + consistency*consistencyWeight
	score := int(math.Round(raw))
	if score > 100 {
		score = 100
	}

	return Readiness{
		Score: score,
		Level: ReadinessLevel(score),
		Breakdown: ReadinessBreakdown{
			Mastery:     percent(mastery),
			Accuracy:    percent(accuracy),
			Coverage:    percent(coverage),
			Consistency: percent(consistency),
		},
	}
}

// ReadinessLevel classifies a readiness score
func ReadinessLevel(score int) string {
	switch {
	case score >= 80:
		return LevelReady
	case score >= 60:
		return LevelAdvanced
	case score >= 30:
		return LevelInProgress
	default:
		return LevelInitial
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func percent(v float64) int {
	return int(math.Round(v * 100))
}
