package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"lifeorganizer/internal/services"
)

func itemPageJSON(id, title, status, priority string) map[string]any {
	return map[string]any{
		"id": id,
		"properties": map[string]any{
			"Name": map[string]any{
				"title": []map[string]any{
					{"text": map[string]any{"content": title}},
				},
			},
			"Status":   map[string]any{"select": map[string]any{"name": status}},
			"Priority": map[string]any{"select": map[string]any{"name": priority}},
			"Category": map[string]any{"select": map[string]any{"name": "Health"}},
			"Type":     map[string]any{"select": map[string]any{"name": "Task"}},
		},
	}
}

func TestDashboardCountsCompletedItems(t *testing.T) {
	// The active query carries no filter; the completed query filters on
	// Status. That difference is how the fake store tells them apart.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if _, filtered := body["filter"]; filtered {
			json.NewEncoder(w).Encode(map[string]any{"results": []map[string]any{
				itemPageJSON("d1", "Finish essay", "Done", "High"),
				itemPageJSON("d2", "Call dentist", "Done", "Low"),
			}})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"results": []map[string]any{
			itemPageJSON("a1", "Gym Session", "Active", "High"),
		}})
	}))
	defer server.Close()

	store := services.NewItemStoreService(server.URL, "token", "life-db", "dump-db", "progress-db", "")
	h := NewDashboardHandler(services.NewSessionService(), store, services.NewHabitService(store), []int64{7})

	app := fiber.New()
	app.Get("/api/dashboard", h.GetDashboard)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/dashboard?userId=7", nil))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Status = %d, want 200", resp.StatusCode)
	}

	var payload struct {
		TasksToday     int `json:"tasksToday"`
		TasksCompleted int `json:"tasksCompleted"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("Decoding response failed: %v", err)
	}
	if payload.TasksCompleted != 2 {
		t.Errorf("tasksCompleted = %d, want 2", payload.TasksCompleted)
	}
	if payload.TasksToday != 1 {
		t.Errorf("tasksToday = %d, want 1", payload.TasksToday)
	}
}
