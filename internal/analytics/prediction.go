package analytics

import (
	"time"

	"github.com/example/oposita/pkg/models"
)

// Prediction confidence levels
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Prediction estimates when every question of the bank will be mastered
type Prediction struct {
	Days       *int    `json:"days"`
	TargetDate *string `json:"target_date"` // YYYY-MM-DD
	Confidence string  `json:"confidence"`
}

// ComputePrediction extrapolates the current weekly velocity over the
// questions still to master
func (e *Engine) ComputePrediction(v Velocity, fsrs models.FSRSStats) Prediction {
	none := Prediction{Confidence: ConfidenceLow}

	remaining := fsrs.Remaining()
	if remaining <= 0 || v.CurrentVelocity == 0 {
		return none
	}
	daily := float64(v.CurrentVelocity) / 7
	if daily <= 0 {
		return none
	}

	// ceil(remaining / (velocity/7)) in integers to avoid float drift
	days := (remaining*7 + v.CurrentVelocity - 1) / v.CurrentVelocity
	y, m, d := e.now().Date()
	target := time.Date(y, m, d+days, 0, 0, 0, 0, e.location()).Format("2006-01-02")

	confidence := ConfidenceLow
	switch {
	case len(v.WeeklyHistory) >= 4:
		confidence = ConfidenceHigh
	case len(v.WeeklyHistory) >= 2:
		confidence = ConfidenceMedium
	}

	return Prediction{
		Days:       &days,
		TargetDate: &target,
		Confidence: confidence,
	}
}
