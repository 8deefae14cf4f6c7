package jobs

import (
	"context"
	"strconv"
	"strings"

	"lifeorganizer/internal/models"
)

// morningReminder lists the habits due this morning. Nothing due means no
// message at all; silence beats noise.
func (s *ReminderScheduler) morningReminder(ctx context.Context, userID int64) (string, bool) {
	due, err := s.habits.ScheduledFor(ctx, models.TimeMorning, s.now().In(s.location))
	if err != nil {
		s.logger.WithField("error", err.Error()).Warn("Loading morning habits failed")
		return "", false
	}
	if len(due) == 0 {
		return "", false
	}

	var b strings.Builder
	b.WriteString("☀️ Good morning! On deck today:\n\n")
	for i := range due {
		b.WriteString("⏳ " + due[i].Name + "\n")
	}
	b.WriteString("\nTell me when you've done one and I'll log it.")
	return b.String(), true
}

// eveningCheckin reports what's still open in the evening slot plus any
// habits not yet done today.
func (s *ReminderScheduler) eveningCheckin(ctx context.Context, userID int64) (string, bool) {
	now := s.now().In(s.location)
	due, err := s.habits.ScheduledFor(ctx, models.TimeEvening, now)
	if err != nil {
		s.logger.WithField("error", err.Error()).Warn("Loading evening habits failed")
		return "", false
	}

	items, err := s.items.ActiveItems(ctx)
	if err != nil {
		s.logger.WithField("error", err.Error()).Warn("Loading items for check-in failed")
		return "", false
	}

	high := 0
	for i := range items {
		if items[i].Priority == models.PriorityHigh {
			high++
		}
	}

	if len(due) == 0 && high == 0 {
		return "", false
	}

	var b strings.Builder
	b.WriteString("🌙 Evening check-in.\n")
	if len(due) > 0 {
		b.WriteString("\nStill on your habit list:\n")
		for i := range due {
			b.WriteString("⏳ " + due[i].Name + "\n")
		}
	}
	if high > 0 {
		b.WriteString("\n🔴 ")
		if high == 1 {
			b.WriteString("1 high-priority item is still open.")
		} else {
			b.WriteString(strconv.Itoa(high) + " high-priority items are still open.")
		}
	}
	return b.String(), true
}
