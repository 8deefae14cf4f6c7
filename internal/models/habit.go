package models

import (
	"strings"
	"time"
)

// DefaultHabitXP is awarded for completing a habit with no configured reward.
const DefaultHabitXP = 25

// Frequency describes how often a habit recurs.
type Frequency string

const (
	FrequencyDaily      Frequency = "Daily"
	FrequencyTwiceDaily Frequency = "Twice Daily"
	FrequencyWeekly     Frequency = "Weekly"
	FrequencyMonthly    Frequency = "Monthly"
)

// ParseFrequency clamps a string to a known frequency, defaulting to Daily.
func ParseFrequency(s string) Frequency {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "twice daily", "twicedaily", "twice":
		return FrequencyTwiceDaily
	case "weekly":
		return FrequencyWeekly
	case "monthly":
		return FrequencyMonthly
	}
	return FrequencyDaily
}

// TimeOfDay is a scheduling slot for habit reminders.
type TimeOfDay string

const (
	TimeMorning   TimeOfDay = "Morning"
	TimeAfternoon TimeOfDay = "Afternoon"
	TimeEvening   TimeOfDay = "Evening"
)

// ParseTimeOfDay clamps a string to a known slot, defaulting to Morning.
func ParseTimeOfDay(s string) TimeOfDay {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "afternoon":
		return TimeAfternoon
	case "evening", "night":
		return TimeEvening
	}
	return TimeMorning
}

// Habit is a recurring item tracked by schedule rather than one-off completion.
type Habit struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Frequency     Frequency   `json:"frequency"`
	Times         []TimeOfDay `json:"times,omitempty"`
	Category      Category    `json:"category"`
	XPReward      int         `json:"xpReward"`
	Active        bool        `json:"active"`
	LastCompleted *time.Time  `json:"lastCompleted,omitempty"`
}

// CompletedOn reports whether the habit was completed on the given calendar day.
func (h *Habit) CompletedOn(day time.Time) bool {
	if h.LastCompleted == nil {
		return false
	}
	y1, m1, d1 := h.LastCompleted.Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// Reward returns the XP granted for completing the habit.
func (h *Habit) Reward() int {
	if h.XPReward <= 0 {
		return DefaultHabitXP
	}
	return h.XPReward
}

// ScheduledFor reports whether the habit should be surfaced during the given
// slot. Habits with no configured times are always surfaced.
func (h *Habit) ScheduledFor(slot TimeOfDay) bool {
	if len(h.Times) == 0 {
		return true
	}
	for _, t := range h.Times {
		if t == slot {
			return true
		}
	}
	return false
}

// FormatForDisplay renders a one-line chat representation of a habit.
func (h *Habit) FormatForDisplay(today time.Time) string {
	emoji := "⏳"
	if h.CompletedOn(today) {
		emoji = "✅"
	}
	return emoji + " " + h.Name + " (" + string(h.Frequency) + ")"
}

// HabitSpec is the payload of a natural-language habit creation request.
type HabitSpec struct {
	Name      string      `json:"name"`
	Frequency Frequency   `json:"frequency"`
	Times     []TimeOfDay `json:"times,omitempty"`
	Category  Category    `json:"category"`
	XPReward  int         `json:"xpReward,omitempty"`
}
