// Package fortress implements the knowledge decay model: every syllabus topic
// holds up to six blocks of retained mastery that crumble with time since the
// last study session and are rebuilt by studying.
package fortress

import (
	"math"
	"time"

	"github.com/example/oposita/pkg/models"
)

// DefaultDecayRateHours applies to topics with an unknown consolidation level
const DefaultDecayRateHours = 48

// SessionResults is the outcome of one completed study session on a topic
type SessionResults struct {
	Accuracy       float64 // 0-100
	TotalQuestions int
	Correct        int
}

// Model converts elapsed time into mastery loss and study into mastery gain
type Model struct {
	// Hours needed to lose one block, per consolidation level
	DecayRates map[models.ConsolidationLevel]float64
	// Now returns the wall-clock time; read once per call
	Now func() time.Time
}

// NewModel creates a decay model with the default rates
func NewModel() *Model {
	return &Model{
		DecayRates: map[models.ConsolidationLevel]float64{
			models.ConsolidationNew:          36,
			models.ConsolidationInProgress:   60,
			models.ConsolidationConsolidated: 84,
		},
		Now: time.Now,
	}
}

// DecayRate returns the hours per block for a consolidation level
func (m *Model) DecayRate(level models.ConsolidationLevel) float64 {
	if rate, ok := m.DecayRates[level]; ok && rate > 0 {
		return rate
	}
	return DefaultDecayRateHours
}

func (m *Model) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

// CalculateDecay returns a copy of topic with the blocks lost since it was last
// studied removed. Topics never studied, with an unparseable study date or
// without blocks are returned unchanged.
func (m *Model) CalculateDecay(topic models.TopicProgress) models.TopicProgress {
	lastStudied, ok := models.ParseTimestamp(topic.LastStudiedAt)
	if !ok || topic.StrengthLevel == 0 {
		return topic
	}

	now := m.now()
	rate := m.DecayRate(topic.ConsolidationLevel)

	elapsed := now.Sub(lastStudied).Hours()
	if elapsed < 0 {
		elapsed = 0
	}
	blocksLost := int(math.Floor(elapsed / rate))

	out := topic
	out.StrengthLevel = topic.StrengthLevel - blocksLost
	if out.StrengthLevel < 0 {
		out.StrengthLevel = 0
	}
	out.BlocksLost = blocksLost

	// Next loss is counted from now, not from a schedule anchored at lastStudied
	remaining := rate - math.Mod(elapsed, rate)
	out.NextDecayAt = models.FormatTimestamp(now.Add(hoursToDuration(remaining)))

	out.RefreshDerived()
	return out
}

// UpdateTopicAfterStudy returns a copy of topic after one completed session
func (m *Model) UpdateTopicAfterStudy(topic models.TopicProgress, results SessionResults) models.TopicProgress {
	now := m.now()
	out := topic

	out.TotalSessions = topic.TotalSessions + 1
	level := ConsolidationFor(out.TotalSessions)
	if level.Rank() < topic.ConsolidationLevel.Rank() {
		level = topic.ConsolidationLevel
	}
	out.ConsolidationLevel = level

	strength := topic.StrengthLevel
	if strength < 0 {
		strength = 0
	}
	strength += 1 + AccuracyBonus(results.Accuracy)
	if strength > models.MaxStrengthLevel {
		strength = models.MaxStrengthLevel
	}
	out.StrengthLevel = strength

	if results.TotalQuestions > 0 {
		out.TotalQuestionsAnswered += results.TotalQuestions
	}
	if results.Correct > 0 {
		out.CorrectAnswers += results.Correct
	}

	out.LastStudiedAt = models.FormatTimestamp(now)
	out.NextDecayAt = models.FormatTimestamp(now.Add(hoursToDuration(m.DecayRate(out.ConsolidationLevel))))
	out.BlocksLost = 0

	out.RefreshDerived()
	return out
}

// ConsolidationFor maps a cumulative session count to its consolidation level
func ConsolidationFor(totalSessions int) models.ConsolidationLevel {
	switch {
	case totalSessions >= 6:
		return models.ConsolidationConsolidated
	case totalSessions >= 3:
		return models.ConsolidationInProgress
	default:
		return models.ConsolidationNew
	}
}

// AccuracyBonus returns the extra blocks earned on top of the one for showing up
func AccuracyBonus(accuracy float64) int {
	switch {
	case accuracy >= 80:
		return 2
	case accuracy >= 60:
		return 1
	default:
		return 0
	}
}

func hoursToDuration(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}
