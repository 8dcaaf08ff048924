package analytics

import (
	"math"
	"sort"

	"github.com/example/oposita/pkg/models"
)

// topicTrendThreshold is the gap in accuracy points between the last two
// sessions and the topic average needed to report a trend
const topicTrendThreshold = 5

// TopicStrength is the aggregated performance on one topic
type TopicStrength struct {
	TopicID  int64  `json:"topic_id"`
	Name     string `json:"name,omitempty"`
	Correct  int    `json:"correct"`
	Total    int    `json:"total"`
	Sessions int    `json:"sessions"`
	Accuracy int    `json:"accuracy"`
	Trend    string `json:"trend"`
}

// TopicStrengthReport lists topics weakest first
type TopicStrengthReport struct {
	Topics    []TopicStrength `json:"topics"`
	Weakest   *TopicStrength  `json:"weakest"`
	Strongest *TopicStrength  `json:"strongest"`
}

type topicAggregate struct {
	correct    int
	total      int
	sessions   int
	accuracies []float64
}

// ComputeTopicStrength aggregates accuracy per topic and sorts ascending by it.
// sessions are expected in chronological order.
func (e *Engine) ComputeTopicStrength(sessions []models.SessionRecord) TopicStrengthReport {
	if len(sessions) == 0 {
		return TopicStrengthReport{Topics: []TopicStrength{}}
	}

	var order []int64
	aggregates := make(map[int64]*topicAggregate)
	for _, s := range sessions {
		agg, ok := aggregates[s.TopicID]
		if !ok {
			agg = &topicAggregate{}
			aggregates[s.TopicID] = agg
			order = append(order, s.TopicID)
		}
		agg.correct += s.Correct
		agg.total += s.Total
		agg.sessions++
		if s.Total > 0 {
			agg.accuracies = append(agg.accuracies, s.Accuracy())
		}
	}

	topics := make([]TopicStrength, 0, len(order))
	for _, id := range order {
		agg := aggregates[id]
		accuracy := 0
		if agg.total > 0 {
			accuracy = int(math.Round(float64(agg.correct) / float64(agg.total) * 100))
		}
		topics = append(topics, TopicStrength{
			TopicID:  id,
			Name:     e.TopicNames[id],
			Correct:  agg.correct,
			Total:    agg.total,
			Sessions: agg.sessions,
			Accuracy: accuracy,
			Trend:    topicTrend(agg.accuracies),
		})
	}

	sort.SliceStable(topics, func(i, j int) bool {
		return topics[i].Accuracy < topics[j].Accuracy
	})

	weakest := topics[0]
	strongest := topics[len(topics)-1]
	return TopicStrengthReport{
		Topics:    topics,
		Weakest:   &weakest,
		Strongest: &strongest,
	}
}

func topicTrend(accuracies []float64) string {
	if len(accuracies) < 2 {
		return TrendStable
	}
	recent := mean(accuracies[len(accuracies)-2:])
	overall := mean(accuracies)
	switch {
	case recent-overall > topicTrendThreshold:
		return TrendUp
	case overall-recent > topicTrendThreshold:
		return TrendDown
	default:
		return TrendStable
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
