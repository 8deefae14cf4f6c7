package services

import (
	"sync"
	"testing"
	"time"

	"lifeorganizer/internal/models"
)

func TestIsAffirmative(t *testing.T) {
	for _, word := range []string{"yes", "YES", " y ", "yeah", "yep", "sure", "ok", "okay", "confirm", "نعم", "اي"} {
		if !IsAffirmative(word) {
			t.Errorf("%q should be affirmative", word)
		}
	}
	for _, word := range []string{"no", "nope", "delete the other one", ""} {
		if IsAffirmative(word) {
			t.Errorf("%q should not be affirmative", word)
		}
	}
}

func TestIsFocusCompletion(t *testing.T) {
	for _, word := range []string{"done", "Done", "finished", "complete", "completed", "تم", "خلص"} {
		if !IsFocusCompletion(word) {
			t.Errorf("%q should end a focus session", word)
		}
	}
	if IsFocusCompletion("still working") {
		t.Error("non-completion phrase must not end the session")
	}
}

func TestConfirmationTakeOnce(t *testing.T) {
	svc := NewSessionService()
	item := models.Item{ID: "i1", Title: "Old gym plan"}

	svc.WithUser(7, func(u *models.UserState) {
		svc.BeginConfirmation(u, models.ConfirmDelete, item, "")

		p, ok := svc.TakeConfirmation(u)
		if !ok || p.ItemID != "i1" || p.Action != models.ConfirmDelete {
			t.Fatalf("expected pending delete for i1, got %+v ok=%v", p, ok)
		}

		if _, ok := svc.TakeConfirmation(u); ok {
			t.Fatal("confirmation must be consumed after one take")
		}
	})
}

func TestConfirmationOverwrite(t *testing.T) {
	svc := NewSessionService()

	svc.WithUser(7, func(u *models.UserState) {
		svc.BeginConfirmation(u, models.ConfirmDelete, models.Item{ID: "first"}, "")
		svc.BeginConfirmation(u, models.ConfirmUpdate, models.Item{ID: "second"}, models.PriorityHigh)

		p, ok := svc.TakeConfirmation(u)
		if !ok {
			t.Fatal("expected a pending confirmation")
		}
		if p.ItemID != "second" || p.Action != models.ConfirmUpdate || p.NewPriority != models.PriorityHigh {
			t.Fatalf("newer confirmation should win, got %+v", p)
		}
	})
}

func TestConfirmationExpiry(t *testing.T) {
	svc := NewSessionService()
	current := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return current }

	svc.WithUser(7, func(u *models.UserState) {
		svc.BeginConfirmation(u, models.ConfirmDelete, models.Item{ID: "i1"}, "")

		current = current.Add(confirmationTTL + time.Second)
		if _, ok := svc.TakeConfirmation(u); ok {
			t.Fatal("expired confirmation must not be honored")
		}
		if u.Pending != nil {
			t.Fatal("expired confirmation must be cleared")
		}
	})
}

func TestFocusLifecycle(t *testing.T) {
	svc := NewSessionService()
	candidates := []models.Item{
		{ID: "a", Title: "Finish gym program"},
		{ID: "b", Title: "Read networking book"},
	}

	svc.WithUser(7, func(u *models.UserState) {
		if _, ok := svc.StartFocusSelection(u, candidates); !ok {
			t.Fatal("expected selection to start")
		}
		if _, ok := svc.StartFocusSelection(u, candidates); ok {
			t.Fatal("second session must be rejected while selecting")
		}

		item, ok := svc.SelectFocusItem(u, "2")
		if !ok || item.ID != "b" {
			t.Fatalf("numeric pick failed: %+v ok=%v", item, ok)
		}
		if state, in := svc.InFocus(u); !in || state != models.FocusActive {
			t.Fatalf("expected active focus, got %v in=%v", state, in)
		}
		if _, ok := svc.StartFocusSelection(u, candidates); ok {
			t.Fatal("second session must be rejected while active")
		}

		done, ok := svc.CompleteFocus(u)
		if !ok || done.ID != "b" {
			t.Fatalf("completion should return the worked item, got %+v", done)
		}
		if u.Focus != nil {
			t.Fatal("completed session must clear focus state")
		}
	})
}

func TestFocusSelectByDescription(t *testing.T) {
	svc := NewSessionService()
	candidates := []models.Item{
		{ID: "a", Title: "Finish gym program"},
		{ID: "b", Title: "Read networking book"},
	}

	svc.WithUser(7, func(u *models.UserState) {
		svc.StartFocusSelection(u, candidates)

		item, ok := svc.SelectFocusItem(u, "the networking one")
		if !ok || item.ID != "b" {
			t.Fatalf("description pick failed: %+v ok=%v", item, ok)
		}
	})
}

func TestFocusCancel(t *testing.T) {
	svc := NewSessionService()

	svc.WithUser(7, func(u *models.UserState) {
		svc.StartFocusSelection(u, []models.Item{{ID: "a", Title: "Task"}})

		if !svc.CancelFocus(u) {
			t.Fatal("expected cancel to succeed while selecting")
		}
		if u.Focus != nil {
			t.Fatal("cancelled session must clear focus state")
		}
		if svc.CancelFocus(u) {
			t.Fatal("cancel with no session must report false")
		}
	})
}

func TestSessionIsolationBetweenUsers(t *testing.T) {
	svc := NewSessionService()

	svc.WithUser(1, func(u *models.UserState) { u.XP = 100 })
	svc.WithUser(2, func(u *models.UserState) {
		if u.XP != 0 {
			t.Fatalf("user 2 must start fresh, got XP=%d", u.XP)
		}
	})

	if got := svc.Snapshot(1).XP; got != 100 {
		t.Fatalf("user 1 XP = %d, want 100", got)
	}
}

func TestSessionConcurrentUpdates(t *testing.T) {
	svc := NewSessionService()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.WithUser(9, func(u *models.UserState) { u.XP += 5 })
		}()
	}
	wg.Wait()

	if got := svc.Snapshot(9).XP; got != 250 {
		t.Fatalf("XP = %d, want 250", got)
	}
}
