package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"lifeorganizer/internal/metrics"
	"lifeorganizer/internal/models"
)

// Notifier delivers a reminder to a chat.
type Notifier interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// ItemSource provides the open items reminders draw from.
type ItemSource interface {
	ActiveItems(ctx context.Context) ([]models.Item, error)
}

// HabitSource provides the habits due in a reminder slot.
type HabitSource interface {
	ScheduledFor(ctx context.Context, slot models.TimeOfDay, today time.Time) ([]models.Habit, error)
}

// Options configures the reminder scheduler.
type Options struct {
	Timezone    string
	MorningCron string
	EveningCron string
	NudgeCron   string

	// UserIDs are the allow-listed users to notify. Chats are assumed to be
	// private, so the chat id equals the user id.
	UserIDs []int64
}

// ReminderScheduler runs the daily reminder jobs: the morning habit
// reminder, the evening check-in, and the afternoon nudge. Each job fires
// at most once per user per calendar day even if the scheduler restarts it
// within the same day.
type ReminderScheduler struct {
	scheduler gocron.Scheduler
	logger    *logrus.Logger
	location  *time.Location
	opts      Options

	notifier Notifier
	items    ItemSource
	habits   HabitSource

	mu    sync.Mutex
	fired map[string]string // "trigger/userID" -> calendar day
	now   func() time.Time
}

// NewReminderScheduler creates the scheduler. Invalid cron expressions are
// rejected up front rather than discovered at first fire.
func NewReminderScheduler(opts Options, notifier Notifier, items ItemSource, habits HabitSource) (*ReminderScheduler, error) {
	location, err := time.LoadLocation(opts.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler timezone %q: %w", opts.Timezone, err)
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	for _, expr := range []string{opts.MorningCron, opts.EveningCron, opts.NudgeCron} {
		if _, err := parser.Parse(expr); err != nil {
			return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
		}
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(location))
	if err != nil {
		return nil, fmt.Errorf("creating scheduler: %w", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &ReminderScheduler{
		scheduler: scheduler,
		logger:    logger,
		location:  location,
		opts:      opts,
		notifier:  notifier,
		items:     items,
		habits:    habits,
		fired:     make(map[string]string),
		now:       time.Now,
	}, nil
}

// Start registers the three jobs and begins the schedule.
func (s *ReminderScheduler) Start() error {
	jobs := []struct {
		name string
		expr string
		run  func()
	}{
		{"morning_habits", s.opts.MorningCron, func() { s.runForAllUsers("morning_habits", s.morningReminder) }},
		{"evening_checkin", s.opts.EveningCron, func() { s.runForAllUsers("evening_checkin", s.eveningCheckin) }},
		{"afternoon_nudge", s.opts.NudgeCron, func() { s.runForAllUsers("afternoon_nudge", s.nudge) }},
	}

	for _, j := range jobs {
		if _, err := s.scheduler.NewJob(
			gocron.CronJob(j.expr, false),
			gocron.NewTask(j.run),
			gocron.WithName(j.name),
		); err != nil {
			return fmt.Errorf("registering job %s: %w", j.name, err)
		}
		s.logger.WithFields(logrus.Fields{
			"job":  j.name,
			"cron": j.expr,
		}).Info("Reminder job registered")
	}

	s.scheduler.Start()
	return nil
}

// Stop shuts the scheduler down, waiting for running jobs.
func (s *ReminderScheduler) Stop() error {
	return s.scheduler.Shutdown()
}

// runForAllUsers fires one reminder trigger for every configured user,
// skipping anyone it already reached today. build returns the message and
// whether there is anything worth sending.
func (s *ReminderScheduler) runForAllUsers(trigger string, build func(ctx context.Context, userID int64) (string, bool)) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	today := s.now().In(s.location).Format("2006-01-02")

	for _, userID := range s.opts.UserIDs {
		key := fmt.Sprintf("%s/%d", trigger, userID)

		s.mu.Lock()
		already := s.fired[key] == today
		s.mu.Unlock()
		if already {
			continue
		}

		text, ok := build(ctx, userID)
		if !ok {
			continue
		}

		if err := s.notifier.SendMessage(ctx, userID, text); err != nil {
			s.logger.WithFields(logrus.Fields{
				"job":    trigger,
				"userId": userID,
				"error":  err.Error(),
			}).Warn("Reminder delivery failed")
			continue
		}

		s.mu.Lock()
		s.fired[key] = today
		s.mu.Unlock()

		metrics.RemindersSent.WithLabelValues(trigger).Inc()
		s.logger.WithFields(logrus.Fields{
			"job":    trigger,
			"userId": userID,
		}).Info("Reminder sent")
	}
}
