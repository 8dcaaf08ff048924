package analytics

import (
	"sort"
	"time"

	"github.com/example/oposita/pkg/models"
)

const (
	// weeklyHistoryLength is the number of week buckets kept for charts
	weeklyHistoryLength = 8
	// trendThreshold is the weekly change in correct answers needed to report a trend
	trendThreshold = 2
)

// Velocity is the number of correct answers per week
type Velocity struct {
	CurrentVelocity int    `json:"current_velocity"`
	Trend           string `json:"trend"`
	WeeklyHistory   []int  `json:"weekly_history"`
}

// ComputeVelocity groups sessions into Monday-based weeks and compares the two
// most recent buckets present in the data
func (e *Engine) ComputeVelocity(sessions []models.SessionRecord) Velocity {
	empty := Velocity{CurrentVelocity: 0, Trend: TrendStable, WeeklyHistory: []int{}}
	if len(sessions) < 2 {
		return empty
	}

	buckets := make(map[time.Time]int)
	for _, s := range sessions {
		if s.Timestamp.IsZero() {
			continue
		}
		buckets[WeekStart(s.Timestamp.In(e.location()))] += s.Correct
	}
	if len(buckets) == 0 {
		return empty
	}

	weeks := make([]time.Time, 0, len(buckets))
	for week := range buckets {
		weeks = append(weeks, week)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].Before(weeks[j]) })

	current := buckets[weeks[len(weeks)-1]]
	previous := 0
	if len(weeks) >= 2 {
		previous = buckets[weeks[len(weeks)-2]]
	}

	trend := TrendStable
	switch diff := current - previous; {
	case diff > trendThreshold:
		trend = TrendUp
	case diff < -trendThreshold:
		trend = TrendDown
	}

	if len(weeks) > weeklyHistoryLength {
		weeks = weeks[len(weeks)-weeklyHistoryLength:]
	}
	history := make([]int, len(weeks))
	for i, week := range weeks {
		history[i] = buckets[week]
	}

	return Velocity{
		CurrentVelocity: current,
		Trend:           trend,
		WeeklyHistory:   history,
	}
}

// WeekStart returns midnight of the Monday starting t's week; Sundays belong
// to the week that started six days earlier
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}
