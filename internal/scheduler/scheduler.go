package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/oposita/internal/logger"
	"github.com/example/oposita/pkg/models"
)

// Default notification window
const (
	DefaultNotificationStartHour = 8
	DefaultNotificationEndHour   = 22
)

// Notifier sends a study reminder listing the topics about to lose a block
type Notifier interface {
	SendReminder(chatID int64, urgent []models.TopicProgress) error
}

// UserStore lists users subscribed to reminders at a given hour
type UserStore interface {
	GetUsersForNotification(ctx context.Context, hour int) ([]models.User, error)
}

// UrgentSource returns a user's urgent topics with decay applied
type UrgentSource interface {
	Urgent(ctx context.Context, userID int64) ([]models.TopicProgress, error)
}

// Options configure the reminder window
type Options struct {
	StartHour int
	EndHour   int
	Location  *time.Location
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	users     UserStore
	urgent    UrgentSource
	notifier  Notifier
	opts      Options
	log       *logger.Logger

	// Now returns the current time; the hour is taken in opts.Location
	Now func() time.Time
}

// New creates a new scheduler instance
func New(users UserStore, urgent UrgentSource, notifier Notifier, opts Options, log *logger.Logger) *Scheduler {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(opts.Location),
		users:     users,
		urgent:    urgent,
		notifier:  notifier,
		opts:      opts,
		log:       log.With("component", "scheduler"),
		Now:       time.Now,
	}
}

// Start schedules the reminder check at the top of every hour
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.scheduler.Cron("0 * * * *").Do(func() {
		s.CheckAndSendReminders(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reminders: %w", err)
	}
	s.scheduler.StartAsync()
	s.log.Info("scheduler started", "start_hour", s.opts.StartHour, "end_hour", s.opts.EndHour)
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// InWindow reports whether reminders may be sent at hour
func (s *Scheduler) InWindow(hour int) bool {
	return hour >= s.opts.StartHour && hour <= s.opts.EndHour
}

// CheckAndSendReminders notifies every user due at the current hour who has
// urgent topics, and returns the number of reminders sent
func (s *Scheduler) CheckAndSendReminders(ctx context.Context) int {
	currentHour := s.Now().In(s.opts.Location).Hour()
	if !s.InWindow(currentHour) {
		s.log.Debug("outside notification hours, skipping reminders",
			"hour", currentHour, "start_hour", s.opts.StartHour, "end_hour", s.opts.EndHour)
		return 0
	}

	users, err := s.users.GetUsersForNotification(ctx, currentHour)
	if err != nil {
		s.log.Error("error getting users for notification", "error", err)
		return 0
	}

	sent := 0
	for _, user := range users {
		ok, err := s.RunManualCheck(ctx, user)
		if err != nil {
			s.log.Warn("reminder failed", "user", user.ID, "error", err)
			continue
		}
		if ok {
			sent++
		}
	}
	if sent > 0 {
		s.log.Info("reminders sent", "hour", currentHour, "count", sent)
	}
	return sent
}

// RunManualCheck sends a reminder to user if any topic is urgent
func (s *Scheduler) RunManualCheck(ctx context.Context, user models.User) (bool, error) {
	urgent, err := s.urgent.Urgent(ctx, user.ID)
	if err != nil {
		return false, fmt.Errorf("failed to get urgent topics: %w", err)
	}
	if len(urgent) == 0 {
		return false, nil
	}
	if err := s.notifier.SendReminder(user.ChatID, urgent); err != nil {
		return false, fmt.Errorf("failed to send reminder: %w", err)
	}
	return true, nil
}
