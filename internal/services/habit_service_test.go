package services

import (
	"context"
	"testing"
	"time"

	"lifeorganizer/internal/models"
)

type fakeHabitStore struct {
	habits    []models.Habit
	created   []models.HabitSpec
	completed []string
}

func (f *fakeHabitStore) CreateHabit(ctx context.Context, spec *models.HabitSpec) (string, error) {
	f.created = append(f.created, *spec)
	return "habit-" + spec.Name, nil
}

func (f *fakeHabitStore) ActiveHabits(ctx context.Context) ([]models.Habit, error) {
	return f.habits, nil
}

func (f *fakeHabitStore) CompleteHabit(ctx context.Context, habitID string, at time.Time) error {
	f.completed = append(f.completed, habitID)
	return nil
}

func TestHabitCompleteByPartialName(t *testing.T) {
	store := &fakeHabitStore{habits: []models.Habit{
		{ID: "h1", Name: "Morning gym session", XPReward: 30},
		{ID: "h2", Name: "Read before bed"},
	}}
	svc := NewHabitService(store)

	habit, xp, err := svc.Complete(context.Background(), "gym", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if habit == nil || habit.ID != "h1" {
		t.Fatalf("expected h1, got %+v", habit)
	}
	if xp != 30 {
		t.Fatalf("xp = %d, want 30", xp)
	}
	if len(store.completed) != 1 || store.completed[0] != "h1" {
		t.Fatalf("store completions = %v", store.completed)
	}
}

func TestHabitCompleteDefaultReward(t *testing.T) {
	store := &fakeHabitStore{habits: []models.Habit{{ID: "h1", Name: "Stretch"}}}
	svc := NewHabitService(store)

	_, xp, err := svc.Complete(context.Background(), "stretch", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if xp != models.DefaultHabitXP {
		t.Fatalf("xp = %d, want %d", xp, models.DefaultHabitXP)
	}
}

func TestHabitCompleteAlreadyDoneToday(t *testing.T) {
	now := time.Date(2025, 6, 10, 19, 0, 0, 0, time.UTC)
	earlier := now.Add(-3 * time.Hour)
	store := &fakeHabitStore{habits: []models.Habit{
		{ID: "h1", Name: "Stretch", LastCompleted: &earlier},
	}}
	svc := NewHabitService(store)

	habit, xp, err := svc.Complete(context.Background(), "stretch", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if habit == nil || xp != 0 {
		t.Fatalf("repeat completion must earn nothing, got habit=%v xp=%d", habit, xp)
	}
	if len(store.completed) != 0 {
		t.Fatal("repeat completion must not hit the store")
	}
}

func TestHabitCompleteUnknownName(t *testing.T) {
	svc := NewHabitService(&fakeHabitStore{habits: []models.Habit{{ID: "h1", Name: "Stretch"}}})

	habit, xp, err := svc.Complete(context.Background(), "meditate", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if habit != nil || xp != 0 {
		t.Fatalf("unknown habit must return nil, got %+v xp=%d", habit, xp)
	}
}

func TestHabitScheduledFor(t *testing.T) {
	today := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	doneEarlier := today.Add(-time.Hour)
	store := &fakeHabitStore{habits: []models.Habit{
		{ID: "h1", Name: "Gym", Times: []models.TimeOfDay{models.TimeMorning}},
		{ID: "h2", Name: "Journal", Times: []models.TimeOfDay{models.TimeEvening}},
		{ID: "h3", Name: "Water", Times: nil}, // no slots: always due
		{ID: "h4", Name: "Stretch", Times: []models.TimeOfDay{models.TimeMorning}, LastCompleted: &doneEarlier},
	}}
	svc := NewHabitService(store)

	due, err := svc.ScheduledFor(context.Background(), models.TimeMorning, today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("expected 2 due habits, got %d: %+v", len(due), due)
	}
	if due[0].ID != "h1" || due[1].ID != "h3" {
		t.Fatalf("unexpected due set: %s, %s", due[0].ID, due[1].ID)
	}
}

func TestSeedDefaultsSkipsExisting(t *testing.T) {
	store := &fakeHabitStore{habits: []models.Habit{{ID: "h1", Name: "Gym"}}}
	svc := NewHabitService(store)

	specs := []models.HabitSpec{
		{Name: "Gym", Frequency: models.FrequencyDaily},
		{Name: "Journal", Frequency: models.FrequencyDaily, Category: models.CategoryCreative},
	}
	if err := svc.SeedDefaults(context.Background(), specs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.created) != 1 || store.created[0].Name != "Journal" {
		t.Fatalf("expected only Journal seeded, got %+v", store.created)
	}
}
