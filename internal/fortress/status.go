package fortress

import (
	"sort"
	"time"

	"github.com/example/oposita/pkg/models"
)

// UrgentLimit is the number of topics returned by GetUrgentTopics
const UrgentLimit = 3

// TopicStatus is the display classification of a strength level
type TopicStatus struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Color string `json:"color"`
}

var (
	StatusSolid     = TopicStatus{Key: "solid", Label: "SÓLIDO", Color: "green"}
	StatusDeclining = TopicStatus{Key: "declining", Label: "DECLINANDO", Color: "yellow"}
	StatusCritical  = TopicStatus{Key: "critical", Label: "CRÍTICO", Color: "red"}
	StatusEmpty     = TopicStatus{Key: "empty", Label: "VACÍO", Color: "gray"}
)

// GetTopicStatus classifies a strength level
func GetTopicStatus(strengthLevel int) TopicStatus {
	switch {
	case strengthLevel >= 5:
		return StatusSolid
	case strengthLevel >= 3:
		return StatusDeclining
	case strengthLevel >= 1:
		return StatusCritical
	default:
		return StatusEmpty
	}
}

// GetUrgentTopics returns the topics that will lose their next block soonest.
// Topics without blocks or without a scheduled decay are skipped; scheduled
// dates that cannot be parsed sort after every valid one.
func GetUrgentTopics(topics []models.TopicProgress) []models.TopicProgress {
	type candidate struct {
		topic models.TopicProgress
		at    time.Time
		valid bool
	}

	candidates := make([]candidate, 0, len(topics))
	for _, t := range topics {
		if t.StrengthLevel <= 0 || t.NextDecayAt == "" {
			continue
		}
		at, ok := models.ParseTimestamp(t.NextDecayAt)
		candidates = append(candidates, candidate{topic: t, at: at, valid: ok})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.valid != b.valid {
			return a.valid
		}
		if !a.valid {
			return false
		}
		return a.at.Before(b.at)
	})

	if len(candidates) > UrgentLimit {
		candidates = candidates[:UrgentLimit]
	}
	urgent := make([]models.TopicProgress, len(candidates))
	for i, c := range candidates {
		urgent[i] = c.topic
	}
	return urgent
}
