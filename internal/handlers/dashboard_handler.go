package handlers

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"lifeorganizer/internal/services"
)

// DashboardHandler serves the widget data consumed by the Telegram Mini App
// dashboard.
type DashboardHandler struct {
	sessions *services.SessionService
	store    *services.ItemStoreService
	habits   *services.HabitService
	userIDs  []int64
}

// NewDashboardHandler creates the handler. userIDs are the allow-listed
// users; the first one is the default subject when no user is specified.
func NewDashboardHandler(sessions *services.SessionService, store *services.ItemStoreService, habits *services.HabitService, userIDs []int64) *DashboardHandler {
	return &DashboardHandler{
		sessions: sessions,
		store:    store,
		habits:   habits,
		userIDs:  userIDs,
	}
}

type dashboardHabit struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	XP        int    `json:"xp"`
	Category  string `json:"category"`
	Completed bool   `json:"completed"`
}

type dashboardResponse struct {
	Habits         []dashboardHabit `json:"habits"`
	XP             int              `json:"xp"`
	Level          int              `json:"level"`
	LevelTitle     string           `json:"levelTitle"`
	LevelProgress  float64          `json:"levelProgress"`
	Streak         int              `json:"streak"`
	TasksToday     int              `json:"tasksToday"`
	TasksCompleted int              `json:"tasksCompleted"`
}

// GetDashboard returns all widget data in one payload.
// GET /api/dashboard
func (h *DashboardHandler) GetDashboard(c *fiber.Ctx) error {
	userID := int64(c.QueryInt("userId", 0))
	if userID == 0 && len(h.userIDs) > 0 {
		userID = h.userIDs[0]
	}

	ctx := c.Context()
	today := time.Now()

	habits, err := h.habits.List(ctx)
	if err != nil {
		log.Printf("⚠️ [DASHBOARD] Loading habits failed: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "habit store unavailable"})
	}

	habitData := make([]dashboardHabit, 0, len(habits))
	for i := range habits {
		habitData = append(habitData, dashboardHabit{
			ID:        habits[i].ID,
			Name:      habits[i].Name,
			XP:        habits[i].Reward(),
			Category:  string(habits[i].Category),
			Completed: habits[i].CompletedOn(today),
		})
	}

	items, err := h.store.ActiveItems(ctx)
	if err != nil {
		log.Printf("⚠️ [DASHBOARD] Loading items failed: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "item store unavailable"})
	}

	completed := 0
	if done, err := h.store.CompletedItems(ctx); err != nil {
		log.Printf("⚠️ [DASHBOARD] Loading completed items failed: %v", err)
	} else {
		completed = len(done)
	}

	user := h.sessions.Snapshot(userID)
	level, title := services.LevelForXP(user.XP)

	return c.JSON(dashboardResponse{
		Habits:         habitData,
		XP:             user.XP,
		Level:          level,
		LevelTitle:     title,
		LevelProgress:  levelProgress(user.XP),
		Streak:         user.Streak,
		TasksToday:     len(items),
		TasksCompleted: completed,
	})
}

// Health is the liveness endpoint.
// GET /health
func (h *DashboardHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// levelProgress returns how far through the current level the XP is, in
// [0,1]. The top level reports 1.
func levelProgress(xp int) float64 {
	next := services.NextLevelThreshold(xp)
	if next <= 0 {
		return 1.0
	}
	level, _ := services.LevelForXP(xp)
	current := services.ThresholdForLevel(level)
	span := next - current
	if span <= 0 {
		return 1.0
	}
	progress := float64(xp-current) / float64(span)
	if progress > 1 {
		progress = 1
	}
	return progress
}
