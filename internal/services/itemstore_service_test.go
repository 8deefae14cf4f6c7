package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"lifeorganizer/internal/models"
)

func storePageJSON(id, title, status, priority string) map[string]any {
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

func TestActiveItems_FiltersTerminalStatusesInMemory(t *testing.T) {
	var gotFilter bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["filter"]; ok {
			gotFilter = true
		}
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				storePageJSON("p1", "Gym Session", "Active", "High"),
				storePageJSON("p2", "Old Task", "Done", "Low"),
				storePageJSON("p3", "Side Quest", "Parked", "Medium"),
				storePageJSON("p4", "Finished", "completed", "Low"),
			},
		})
	}))
	defer server.Close()

	store := NewItemStoreService(server.URL, "token", "life-db", "dump-db", "progress-db", "habits-db")
	items, err := store.ActiveItems(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// The query must carry no status filter; filtering is in-memory so
	// mis-cased or unexpected statuses can't hide items from matching.
	if gotFilter {
		t.Error("Active-items query should not send a status filter")
	}

	if len(items) != 2 {
		t.Fatalf("Expected 2 non-terminal items, got %d", len(items))
	}
	if items[0].Title != "Gym Session" || items[1].Title != "Side Quest" {
		t.Errorf("Unexpected items: %+v", items)
	}
}

func TestCompletedItems_QueriesDoneStatus(t *testing.T) {
	var gotFilter map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		gotFilter, _ = body["filter"].(map[string]any)
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				storePageJSON("p1", "Finish essay", "Done", "High"),
				storePageJSON("p2", "Call dentist", "Done", "Low"),
			},
		})
	}))
	defer server.Close()

	store := NewItemStoreService(server.URL, "token", "life-db", "dump-db", "progress-db", "habits-db")
	items, err := store.CompletedItems(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if gotFilter == nil || gotFilter["property"] != "Status" {
		t.Fatalf("expected a Status filter on the query, got %v", gotFilter)
	}
	if len(items) != 2 || items[0].Status != models.StatusDone {
		t.Fatalf("Unexpected items: %+v", items)
	}
}

func TestActiveItems_CachedUntilMutation(t *testing.T) {
	var queries int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "PATCH" {
			json.NewEncoder(w).Encode(map[string]any{"id": "p1"})
			return
		}
		atomic.AddInt64(&queries, 1)
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{storePageJSON("p1", "Gym Session", "Active", "High")},
		})
	}))
	defer server.Close()

	store := NewItemStoreService(server.URL, "token", "life-db", "dump-db", "progress-db", "habits-db")
	ctx := context.Background()

	if _, err := store.ActiveItems(ctx); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := store.ActiveItems(ctx); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := atomic.LoadInt64(&queries); got != 1 {
		t.Errorf("Expected 1 query with cache active, got %d", got)
	}

	// A mutation must invalidate the cache
	done := models.StatusDone
	if err := store.UpdateItem(ctx, "p1", models.ItemPatch{Status: &done}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := store.ActiveItems(ctx); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := atomic.LoadInt64(&queries); got != 2 {
		t.Errorf("Expected fresh query after mutation, got %d queries", got)
	}
}

func TestArchiveItem_SendsArchivedFlag(t *testing.T) {
	var sawArchive bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if archived, ok := body["archived"].(bool); ok && archived {
			sawArchive = true
		}
		json.NewEncoder(w).Encode(map[string]any{"id": "p1"})
	}))
	defer server.Close()

	store := NewItemStoreService(server.URL, "token", "life-db", "dump-db", "progress-db", "habits-db")
	if err := store.ArchiveItem(context.Background(), "p1"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !sawArchive {
		t.Error("Expected archived=true in the delete request")
	}
}

func TestUpdateItem_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	store := NewItemStoreService(server.URL, "token", "life-db", "dump-db", "progress-db", "habits-db")
	high := models.PriorityHigh
	err := store.UpdateItem(context.Background(), "gone", models.ItemPatch{Priority: &high})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestCreateItem_BuildsStoreProperties(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(map[string]any{"id": "new-page"})
	}))
	defer server.Close()

	store := NewItemStoreService(server.URL, "token", "life-db", "dump-db", "progress-db", "habits-db")
	id, err := store.CreateItem(context.Background(), &models.Item{
		Title:    "Buy whey protein",
		Category: models.CategoryShopping,
		Type:     models.TypeTask,
		Priority: models.PriorityLow,
		Notes:    "from the brain dump",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if id != "new-page" {
		t.Errorf("Expected store-assigned id, got %q", id)
	}

	parent, _ := captured["parent"].(map[string]any)
	if parent["database_id"] != "life-db" {
		t.Errorf("Expected life-areas database, got %v", parent["database_id"])
	}
	props, _ := captured["properties"].(map[string]any)
	for _, key := range []string{"Name", "Category", "Type", "Status", "Priority", "Date Added", "Notes"} {
		if _, ok := props[key]; !ok {
			t.Errorf("Missing property %q in create payload", key)
		}
	}
}

func TestActiveHabits_ParsesHabitPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{
					"id": "h1",
					"properties": map[string]any{
						"Name": map[string]any{
							"title": []map[string]any{{"text": map[string]any{"content": "Skincare Routine"}}},
						},
						"Frequency": map[string]any{"select": map[string]any{"name": "Twice Daily"}},
						"Category":  map[string]any{"select": map[string]any{"name": "Health"}},
						"XP Reward": map[string]any{"number": 30},
						"Active":    map[string]any{"checkbox": true},
						"Times": map[string]any{"multi_select": []map[string]any{
							{"name": "Morning"}, {"name": "Evening"},
						}},
						"Last Completed": map[string]any{"date": map[string]any{"start": "2026-02-28"}},
					},
				},
			},
		})
	}))
	defer server.Close()

	store := NewItemStoreService(server.URL, "token", "life-db", "dump-db", "progress-db", "habits-db")
	habits, err := store.ActiveHabits(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(habits) != 1 {
		t.Fatalf("Expected 1 habit, got %d", len(habits))
	}

	h := habits[0]
	if h.Name != "Skincare Routine" || h.Frequency != models.FrequencyTwiceDaily || h.XPReward != 30 {
		t.Errorf("Unexpected habit: %+v", h)
	}
	if len(h.Times) != 2 || h.Times[0] != models.TimeMorning || h.Times[1] != models.TimeEvening {
		t.Errorf("Unexpected times: %v", h.Times)
	}
	if h.LastCompleted == nil {
		t.Error("Expected Last Completed to be parsed")
	}
}
