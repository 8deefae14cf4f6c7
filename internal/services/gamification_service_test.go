package services

import (
	"strings"
	"testing"
	"time"

	"lifeorganizer/internal/models"
)

func TestLevelForXP(t *testing.T) {
	tests := []struct {
		xp    int
		level int
		title string
	}{
		{0, 1, "Seedling"},
		{49, 1, "Seedling"},
		{50, 2, "Sprout"},
		{150, 3, "Sapling"},
		{349, 3, "Sapling"},
		{350, 4, "Tree"},
		{5000, 8, "Legend"},
		{99999, 8, "Legend"},
	}

	for _, tc := range tests {
		level, title := LevelForXP(tc.xp)
		if level != tc.level {
			t.Errorf("XP %d: expected level %d, got %d", tc.xp, tc.level, level)
		}
		if !strings.Contains(title, tc.title) {
			t.Errorf("XP %d: expected title containing %q, got %q", tc.xp, tc.title, title)
		}
	}
}

func TestAward_BasicXP(t *testing.T) {
	g := NewGamificationService()
	u := &models.UserState{UserID: 1}

	result := g.Award(u, XPItemCreated, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	if u.XP != 5 {
		t.Errorf("Expected 5 XP, got %d", u.XP)
	}
	if result.Streak != 1 {
		t.Errorf("First activity should start a streak of 1, got %d", result.Streak)
	}
	if result.Level != 1 {
		t.Errorf("Expected level 1, got %d", result.Level)
	}
}

func TestAward_StreakConsecutiveDays(t *testing.T) {
	g := NewGamificationService()
	u := &models.UserState{UserID: 1}

	day := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		g.Award(u, XPItemCreated, day.AddDate(0, 0, i))
	}

	if u.Streak != 3 {
		t.Errorf("Expected streak 3 after 3 consecutive days, got %d", u.Streak)
	}
}

func TestAward_SameDayRepeatLeavesStreakUnchanged(t *testing.T) {
	g := NewGamificationService()
	u := &models.UserState{UserID: 1}

	morning := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC)

	g.Award(u, XPItemCreated, morning)
	g.Award(u, XPItemCreated, evening)

	if u.Streak != 1 {
		t.Errorf("Same-day repeat must not change streak, got %d", u.Streak)
	}
	if u.XP != 10 {
		t.Errorf("XP should still accumulate, got %d", u.XP)
	}
}

func TestAward_GapResetsStreakToOne(t *testing.T) {
	g := NewGamificationService()
	u := &models.UserState{UserID: 1}

	day := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	g.Award(u, XPItemCreated, day)
	g.Award(u, XPItemCreated, day.AddDate(0, 0, 1))
	g.Award(u, XPItemCreated, day.AddDate(0, 0, 4)) // two-day gap

	if u.Streak != 1 {
		t.Errorf("Gap > 1 day must reset streak to 1, got %d", u.Streak)
	}
}

func TestAward_SevenDayStreakBonus(t *testing.T) {
	g := NewGamificationService()
	u := &models.UserState{UserID: 1}

	day := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var last AwardResult
	for i := 0; i < 7; i++ {
		last = g.Award(u, XPItemCreated, day.AddDate(0, 0, i))
	}

	if !last.StreakBonus {
		t.Error("Expected streak bonus on day 7")
	}
	// 7 * 5 XP + 50 bonus
	if u.XP != 85 {
		t.Errorf("Expected 85 XP, got %d", u.XP)
	}

	// Same-day activity after the bonus must not grant it again
	again := g.Award(u, XPItemCreated, day.AddDate(0, 0, 6).Add(2*time.Hour))
	if again.StreakBonus {
		t.Error("Bonus must not repeat within the same streak length")
	}
}

func TestAward_FourteenDayStreakGrantsSecondBonus(t *testing.T) {
	g := NewGamificationService()
	u := &models.UserState{UserID: 1}

	day := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	bonuses := 0
	for i := 0; i < 14; i++ {
		if g.Award(u, XPItemCreated, day.AddDate(0, 0, i)).StreakBonus {
			bonuses++
		}
	}

	if bonuses != 2 {
		t.Errorf("Expected bonuses at day 7 and 14, got %d", bonuses)
	}
}

func TestNextLevelThreshold(t *testing.T) {
	if got := NextLevelThreshold(0); got != 50 {
		t.Errorf("Expected 50, got %d", got)
	}
	if got := NextLevelThreshold(350); got != 600 {
		t.Errorf("Expected 600, got %d", got)
	}
	if got := NextLevelThreshold(9000); got != 0 {
		t.Errorf("Expected 0 at max level, got %d", got)
	}
}
