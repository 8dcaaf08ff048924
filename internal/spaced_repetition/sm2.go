package spaced_repetition

import (
	"sort"
	"time"

	"github.com/example/oposita/pkg/models"
)

// SM2 implements the SuperMemo-2 algorithm for per-question spaced repetition
type SM2 struct {
	// Lowest quality counted as a successful recall
	PassThreshold QualityResponse
	// Longest interval between reviews, in days
	MaxInterval int
	// Intervals in days for the first successful repetitions
	InitialIntervals []int
	// A question is mastered after this many successful repetitions...
	MasteryRepetitions int
	// ...once its interval reaches this many days
	MasteryInterval int
	// Now returns the review time
	Now func() time.Time
}

// NewSM2 creates an SM2 instance with the default settings
func NewSM2() *SM2 {
	return &SM2{
		PassThreshold:      QualityCorrectDifficult,
		MaxInterval:        180, // the exam cycle rarely exceeds six months
		InitialIntervals:   []int{1, 2, 4, 7, 15, 30},
		MasteryRepetitions: 5,
		MasteryInterval:    15,
		Now:                time.Now,
	}
}

// DefaultEasinessFactor is the EF assigned to questions never reviewed
const DefaultEasinessFactor = 2.5

// QualityResponse represents the quality of response in SM-2
type QualityResponse int

const (
	// Complete blackout, unable to recall
	QualityBlackout QualityResponse = 0
	// Incorrect response but remembered upon seeing the correct answer
	QualityIncorrect QualityResponse = 1
	// Incorrect response but the correct answer felt familiar
	QualityIncorrectFamiliar QualityResponse = 2
	// Correct response but required significant effort
	QualityCorrectDifficult QualityResponse = 3
	// Correct response after some hesitation
	QualityCorrectHesitation QualityResponse = 4
	// Perfect response with no hesitation
	QualityPerfect QualityResponse = 5
)

// QualityFromAnswer maps a multiple choice answer to an SM-2 quality. Quick
// correct answers count as perfect recall.
func QualityFromAnswer(correct bool, elapsed time.Duration) QualityResponse {
	switch {
	case !correct:
		return QualityIncorrect
	case elapsed > 0 && elapsed <= 15*time.Second:
		return QualityPerfect
	default:
		return QualityCorrectHesitation
	}
}

func (sm *SM2) now() time.Time {
	if sm.Now == nil {
		return time.Now()
	}
	return sm.Now()
}

// Process applies one review to progress
func (sm *SM2) Process(progress *models.QuestionProgress, quality QualityResponse) {
	now := sm.now()
	progress.LastReviewDate = models.FormatTimestamp(now)
	progress.LastQuality = int(quality)

	if progress.EasinessFactor == 0 {
		progress.EasinessFactor = DefaultEasinessFactor
	}
	q := float64(quality)
	newEF := progress.EasinessFactor + (0.1 - (5.0-q)*(0.08+(5.0-q)*0.02))
	if newEF < 1.3 {
		newEF = 1.3
	}
	progress.EasinessFactor = newEF

	if quality >= sm.PassThreshold {
		progress.ConsecutiveRight++
		progress.Repetitions++

		var next int
		if progress.Repetitions <= len(sm.InitialIntervals) {
			next = sm.InitialIntervals[progress.Repetitions-1]
		} else {
			next = int(float64(progress.Interval) * progress.EasinessFactor)
		}
		if next > sm.MaxInterval {
			next = sm.MaxInterval
		}
		progress.Interval = next
	} else {
		// Failed recall starts the schedule over
		progress.ConsecutiveRight = 0
		progress.Repetitions = 0
		progress.Interval = 1
	}

	progress.IsMastered = sm.IsMastered(progress)
	progress.NextReviewDate = models.FormatTimestamp(now.AddDate(0, 0, progress.Interval))
}

// GetNextQuestions returns up to limit questions due for review
func (sm *SM2) GetNextQuestions(progress []models.QuestionProgress, limit int) []models.QuestionProgress {
	now := sm.now()
	var due []models.QuestionProgress
	for _, p := range progress {
		next, ok := models.ParseTimestamp(p.NextReviewDate)
		if !ok || !next.After(now) {
			due = append(due, p)
		}
	}

	// Priority: never reviewed, then hardest, then most overdue
	sort.SliceStable(due, func(i, j int) bool {
		a, b := due[i], due[j]
		if (a.Repetitions == 0) != (b.Repetitions == 0) {
			return a.Repetitions == 0
		}
		if a.EasinessFactor != b.EasinessFactor {
			return a.EasinessFactor < b.EasinessFactor
		}
		nextA, okA := models.ParseTimestamp(a.NextReviewDate)
		nextB, okB := models.ParseTimestamp(b.NextReviewDate)
		if okA && okB {
			return nextA.Before(nextB)
		}
		return okA && !okB
	})

	if limit >= 0 && len(due) > limit {
		return due[:limit]
	}
	return due
}

// IsMastered determines if a question is considered mastered
func (sm *SM2) IsMastered(progress *models.QuestionProgress) bool {
	return progress.Repetitions >= sm.MasteryRepetitions &&
		progress.LastQuality >= int(QualityCorrectHesitation) &&
		progress.Interval >= sm.MasteryInterval
}

// Stats aggregates progress into the mastered/total pair used by analytics.
// bankSize is the number of questions available; when it is smaller than the
// tracked progress the tracked count is used instead.
func Stats(progress []models.QuestionProgress, bankSize int) models.FSRSStats {
	stats := models.FSRSStats{Total: bankSize}
	if len(progress) > stats.Total {
		stats.Total = len(progress)
	}
	for _, p := range progress {
		if p.IsMastered {
			stats.Mastered++
		}
	}
	return stats
}
