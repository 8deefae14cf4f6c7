package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"lifeorganizer/internal/models"
)

// HabitStore is the subset of the item store the habit service needs.
type HabitStore interface {
	CreateHabit(ctx context.Context, spec *models.HabitSpec) (string, error)
	ActiveHabits(ctx context.Context) ([]models.Habit, error)
	CompleteHabit(ctx context.Context, habitID string, at time.Time) error
}

// HabitService manages recurring habits on top of the item store.
type HabitService struct {
	store HabitStore
}

// NewHabitService creates the habit service.
func NewHabitService(store HabitStore) *HabitService {
	return &HabitService{store: store}
}

// Create registers a new habit and returns its store ID.
func (s *HabitService) Create(ctx context.Context, spec *models.HabitSpec) (string, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return "", fmt.Errorf("habit name is required")
	}
	if spec.Frequency == "" {
		spec.Frequency = models.FrequencyDaily
	}
	if spec.Category == "" {
		spec.Category = models.CategoryHealth
	}

	id, err := s.store.CreateHabit(ctx, spec)
	if err != nil {
		return "", fmt.Errorf("creating habit: %w", err)
	}
	log.Printf("✅ [HABITS] Created habit %q (%s)", spec.Name, spec.Frequency)
	return id, nil
}

// List returns all active habits.
func (s *HabitService) List(ctx context.Context) ([]models.Habit, error) {
	return s.store.ActiveHabits(ctx)
}

// ScheduledFor returns the active habits due in the given slot that have not
// been completed today.
func (s *HabitService) ScheduledFor(ctx context.Context, slot models.TimeOfDay, today time.Time) ([]models.Habit, error) {
	habits, err := s.store.ActiveHabits(ctx)
	if err != nil {
		return nil, err
	}

	var due []models.Habit
	for _, h := range habits {
		if h.ScheduledFor(slot) && !h.CompletedOn(today) {
			due = append(due, h)
		}
	}
	return due, nil
}

// Complete marks the habit matching name as done now and returns it with the
// XP reward earned. Matching is a case-insensitive substring check in either
// direction, so "gym" completes "Morning gym session". Completing an
// already-done habit again on the same day earns nothing.
func (s *HabitService) Complete(ctx context.Context, name string, now time.Time) (*models.Habit, int, error) {
	habits, err := s.store.ActiveHabits(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("loading habits: %w", err)
	}

	habit := findHabit(habits, name)
	if habit == nil {
		return nil, 0, nil
	}
	if habit.CompletedOn(now) {
		return habit, 0, nil
	}

	if err := s.store.CompleteHabit(ctx, habit.ID, now); err != nil {
		return nil, 0, fmt.Errorf("completing habit %s: %w", habit.ID, err)
	}
	habit.LastCompleted = &now
	log.Printf("✅ [HABITS] Completed %q (+%d XP)", habit.Name, habit.Reward())
	return habit, habit.Reward(), nil
}

// SeedDefaults creates any of the given habits that do not already exist.
// Existing habits are matched by name so re-running at startup is safe.
func (s *HabitService) SeedDefaults(ctx context.Context, specs []models.HabitSpec) error {
	existing, err := s.store.ActiveHabits(ctx)
	if err != nil {
		return fmt.Errorf("loading habits for seeding: %w", err)
	}

	have := make(map[string]bool, len(existing))
	for _, h := range existing {
		have[strings.ToLower(h.Name)] = true
	}

	seeded := 0
	for i := range specs {
		if have[strings.ToLower(specs[i].Name)] {
			continue
		}
		if _, err := s.Create(ctx, &specs[i]); err != nil {
			return err
		}
		seeded++
	}
	if seeded > 0 {
		log.Printf("🌱 [HABITS] Seeded %d default habits", seeded)
	}
	return nil
}

func findHabit(habits []models.Habit, name string) *models.Habit {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil
	}
	for i := range habits {
		have := strings.ToLower(habits[i].Name)
		if strings.Contains(have, needle) || strings.Contains(needle, have) {
			return &habits[i]
		}
	}
	return nil
}
