package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"lifeorganizer/internal/models"
)

// ErrNotFound is returned when the store has no page with the given id.
var ErrNotFound = errors.New("item not found")

const (
	storeAPIVersion = "2022-06-28"

	activeItemsCacheKey = "active-items"
	activeItemsCacheTTL = 30 * time.Second
)

// ItemStoreService adapts the engine to a Notion-compatible item store.
// The store is the source of truth for item existence; this adapter holds
// nothing but a short-lived read cache, invalidated on every mutation.
type ItemStoreService struct {
	httpClient *http.Client
	baseURL    string
	token      string

	lifeAreasDB string
	brainDumpDB string
	progressDB  string
	habitsDB    string

	cache *gocache.Cache
}

// NewItemStoreService creates the store adapter.
func NewItemStoreService(baseURL, token, lifeAreasDB, brainDumpDB, progressDB, habitsDB string) *ItemStoreService {
	return &ItemStoreService{
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		baseURL:     strings.TrimRight(baseURL, "/"),
		token:       token,
		lifeAreasDB: lifeAreasDB,
		brainDumpDB: brainDumpDB,
		progressDB:  progressDB,
		habitsDB:    habitsDB,
		cache:       gocache.New(activeItemsCacheTTL, time.Minute),
	}
}

// CreateItem stores a new life-area item and returns the assigned page id.
func (s *ItemStoreService) CreateItem(ctx context.Context, item *models.Item) (string, error) {
	properties := map[string]any{
		"Name":       titleProp(item.Title),
		"Category":   selectProp(string(item.Category)),
		"Type":       selectProp(string(item.Type)),
		"Status":     selectProp(string(models.StatusActive)),
		"Priority":   selectProp(string(item.Priority)),
		"Date Added": dateProp(time.Now()),
	}
	if item.Notes != "" {
		properties["Notes"] = richTextProp(item.Notes)
	}
	if item.ImageURL != "" {
		properties["Image"] = filesProp("Image", item.ImageURL)
	}

	id, err := s.createPage(ctx, s.lifeAreasDB, properties)
	if err != nil {
		return "", fmt.Errorf("failed to create item: %w", err)
	}
	s.cache.Delete(activeItemsCacheKey)
	return id, nil
}

// CreateBrainDump stores raw content in the brain-dump inbox for manual
// review. This is the last-resort capture path and must stay dependency-free
// of classification.
func (s *ItemStoreService) CreateBrainDump(ctx context.Context, title, content, msgType, fileURL string) (string, error) {
	properties := map[string]any{
		"Name":      titleProp(title),
		"Content":   richTextProp(truncate(content, 2000)), // store limit on rich text
		"Processed": map[string]any{"checkbox": false},
		"Date":      dateProp(time.Now()),
		"Type":      selectProp(msgType),
	}
	if fileURL != "" {
		properties["Files"] = filesProp("Attachment", fileURL)
	}

	id, err := s.createPage(ctx, s.brainDumpDB, properties)
	if err != nil {
		return "", fmt.Errorf("failed to create brain dump entry: %w", err)
	}
	return id, nil
}

// LogProgress appends an activity record to the progress tracker, which
// doubles as the durable trail for gamification events.
func (s *ItemStoreService) LogProgress(ctx context.Context, activity string, category models.Category, notes string) (string, error) {
	properties := map[string]any{
		"Activity": titleProp(activity),
		"Category": selectProp(string(category)),
		"Date":     dateProp(time.Now()),
	}
	if notes != "" {
		properties["Notes"] = richTextProp(notes)
	}

	id, err := s.createPage(ctx, s.progressDB, properties)
	if err != nil {
		return "", fmt.Errorf("failed to log progress: %w", err)
	}
	return id, nil
}

// ActiveItems returns every non-archived item. The query deliberately has no
// status filter: a strict equality filter hid real items from matching, so
// filtering happens in memory against the terminal-status set.
func (s *ItemStoreService) ActiveItems(ctx context.Context) ([]models.Item, error) {
	if cached, ok := s.cache.Get(activeItemsCacheKey); ok {
		return cached.([]models.Item), nil
	}

	pages, err := s.queryDatabase(ctx, s.lifeAreasDB, map[string]any{
		"sorts": []map[string]any{
			{"property": "Priority", "direction": "ascending"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query active items: %w", err)
	}

	items := make([]models.Item, 0, len(pages))
	for _, page := range pages {
		item := pageToItem(page)
		if item.Status.IsTerminal() {
			continue
		}
		items = append(items, item)
	}

	s.cache.Set(activeItemsCacheKey, items, activeItemsCacheTTL)
	return items, nil
}

// ItemsByCategory returns active items in one category.
func (s *ItemStoreService) ItemsByCategory(ctx context.Context, category models.Category) ([]models.Item, error) {
	pages, err := s.queryDatabase(ctx, s.lifeAreasDB, map[string]any{
		"filter": map[string]any{
			"and": []map[string]any{
				{"property": "Category", "select": map[string]any{"equals": string(category)}},
				{"property": "Status", "select": map[string]any{"equals": string(models.StatusActive)}},
			},
		},
		"sorts": []map[string]any{
			{"property": "Priority", "direction": "ascending"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query category %s: %w", category, err)
	}

	items := make([]models.Item, 0, len(pages))
	for _, page := range pages {
		items = append(items, pageToItem(page))
	}
	return items, nil
}

// CompletedItems returns items marked Done. ActiveItems drops terminal
// statuses, so the dashboard's completed count needs its own query.
func (s *ItemStoreService) CompletedItems(ctx context.Context) ([]models.Item, error) {
	pages, err := s.queryDatabase(ctx, s.lifeAreasDB, map[string]any{
		"filter": map[string]any{
			"property": "Status",
			"select":   map[string]any{"equals": string(models.StatusDone)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query completed items: %w", err)
	}

	items := make([]models.Item, 0, len(pages))
	for _, page := range pages {
		items = append(items, pageToItem(page))
	}
	return items, nil
}

// UpdateItem applies a patch to an existing item.
func (s *ItemStoreService) UpdateItem(ctx context.Context, id string, patch models.ItemPatch) error {
	properties := map[string]any{}
	if patch.Priority != nil {
		properties["Priority"] = selectProp(string(*patch.Priority))
	}
	if patch.Status != nil {
		properties["Status"] = selectProp(string(*patch.Status))
	}
	if patch.Category != nil {
		properties["Category"] = selectProp(string(*patch.Category))
	}
	if len(properties) == 0 {
		return nil
	}

	if err := s.updatePage(ctx, id, map[string]any{"properties": properties}); err != nil {
		return fmt.Errorf("failed to update item %s: %w", id, err)
	}
	s.cache.Delete(activeItemsCacheKey)
	return nil
}

// ArchiveItem removes an item. The store archives rather than hard-deletes,
// matching the destructive-delete semantics the confirmation gate protects.
func (s *ItemStoreService) ArchiveItem(ctx context.Context, id string) error {
	if err := s.updatePage(ctx, id, map[string]any{"archived": true}); err != nil {
		return fmt.Errorf("failed to archive item %s: %w", id, err)
	}
	s.cache.Delete(activeItemsCacheKey)
	return nil
}

// CreateHabit stores a new recurring habit.
func (s *ItemStoreService) CreateHabit(ctx context.Context, spec *models.HabitSpec) (string, error) {
	if s.habitsDB == "" {
		return "", fmt.Errorf("habits database not configured")
	}

	reward := spec.XPReward
	if reward <= 0 {
		reward = models.DefaultHabitXP
	}

	properties := map[string]any{
		"Name":      titleProp(spec.Name),
		"Frequency": selectProp(string(spec.Frequency)),
		"Category":  selectProp(string(spec.Category)),
		"XP Reward": map[string]any{"number": reward},
		"Active":    map[string]any{"checkbox": true},
		"Created":   dateProp(time.Now()),
	}
	if len(spec.Times) > 0 {
		options := make([]map[string]any, 0, len(spec.Times))
		for _, t := range spec.Times {
			options = append(options, map[string]any{"name": string(t)})
		}
		properties["Times"] = map[string]any{"multi_select": options}
	}

	id, err := s.createPage(ctx, s.habitsDB, properties)
	if err != nil {
		return "", fmt.Errorf("failed to create habit: %w", err)
	}
	return id, nil
}

// ActiveHabits returns all active habits.
func (s *ItemStoreService) ActiveHabits(ctx context.Context) ([]models.Habit, error) {
	if s.habitsDB == "" {
		return nil, nil
	}

	pages, err := s.queryDatabase(ctx, s.habitsDB, map[string]any{
		"filter": map[string]any{
			"property": "Active",
			"checkbox": map[string]any{"equals": true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query habits: %w", err)
	}

	habits := make([]models.Habit, 0, len(pages))
	for _, page := range pages {
		habits = append(habits, pageToHabit(page))
	}
	return habits, nil
}

// CompleteHabit records a habit completion by stamping Last Completed.
func (s *ItemStoreService) CompleteHabit(ctx context.Context, habitID string, at time.Time) error {
	patch := map[string]any{
		"properties": map[string]any{
			"Last Completed": dateProp(at),
		},
	}
	if err := s.updatePage(ctx, habitID, patch); err != nil {
		return fmt.Errorf("failed to complete habit %s: %w", habitID, err)
	}
	return nil
}

// --- wire plumbing ---

type storePage struct {
	ID         string                   `json:"id"`
	Archived   bool                     `json:"archived"`
	Properties map[string]storeProperty `json:"properties"`
}

type storeProperty struct {
	Title       []storeRichText `json:"title,omitempty"`
	RichText    []storeRichText `json:"rich_text,omitempty"`
	Select      *storeSelect    `json:"select,omitempty"`
	MultiSelect []storeSelect   `json:"multi_select,omitempty"`
	Number      *float64        `json:"number,omitempty"`
	Checkbox    *bool           `json:"checkbox,omitempty"`
	Date        *storeDate      `json:"date,omitempty"`
	Files       []storeFile     `json:"files,omitempty"`
}

type storeRichText struct {
	PlainText string `json:"plain_text,omitempty"`
	Text      *struct {
		Content string `json:"content"`
	} `json:"text,omitempty"`
}

type storeSelect struct {
	Name string `json:"name"`
}

type storeDate struct {
	Start string `json:"start"`
}

type storeFile struct {
	Name     string `json:"name,omitempty"`
	External *struct {
		URL string `json:"url"`
	} `json:"external,omitempty"`
}

func (s *ItemStoreService) createPage(ctx context.Context, databaseID string, properties map[string]any) (string, error) {
	body := map[string]any{
		"parent":     map[string]any{"database_id": databaseID},
		"properties": properties,
	}

	var page storePage
	if err := s.doRequest(ctx, "POST", "/pages", body, &page); err != nil {
		return "", err
	}
	return page.ID, nil
}

func (s *ItemStoreService) updatePage(ctx context.Context, pageID string, body map[string]any) error {
	return s.doRequest(ctx, "PATCH", "/pages/"+pageID, body, nil)
}

func (s *ItemStoreService) queryDatabase(ctx context.Context, databaseID string, body map[string]any) ([]storePage, error) {
	var result struct {
		Results []storePage `json:"results"`
	}
	if err := s.doRequest(ctx, "POST", "/databases/"+databaseID+"/query", body, &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

func (s *ItemStoreService) doRequest(ctx context.Context, method, path string, body map[string]any, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, bytes.NewBuffer(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Notion-Version", storeAPIVersion)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("store request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read store response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("❌ [STORE] %s %s returned %d: %s", method, path, resp.StatusCode, truncate(string(respBody), 200))
		return fmt.Errorf("store API error (status %d)", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode store response: %w", err)
		}
	}
	return nil
}

func pageToItem(page storePage) models.Item {
	item := models.Item{
		ID:       page.ID,
		Title:    "Untitled",
		Category: models.CategoryIdeas,
		Type:     models.TypeReference,
		Priority: models.PriorityMedium,
		Status:   models.StatusActive,
	}

	if title := richTextContent(page.Properties["Name"].Title); title != "" {
		item.Title = title
	}
	if sel := page.Properties["Category"].Select; sel != nil {
		item.Category = models.ParseCategory(sel.Name)
	}
	if sel := page.Properties["Type"].Select; sel != nil {
		item.Type = models.ParseItemType(sel.Name)
	}
	if sel := page.Properties["Priority"].Select; sel != nil {
		item.Priority = models.ParsePriority(sel.Name)
	}
	if sel := page.Properties["Status"].Select; sel != nil {
		item.Status = models.Status(sel.Name)
	}
	if date := page.Properties["Date Added"].Date; date != nil {
		if t, err := time.Parse(time.RFC3339, date.Start); err == nil {
			item.CreatedAt = t
		}
	}
	item.Notes = richTextContent(page.Properties["Notes"].RichText)
	if files := page.Properties["Image"].Files; len(files) > 0 && files[0].External != nil {
		item.ImageURL = files[0].External.URL
	}
	return item
}

func pageToHabit(page storePage) models.Habit {
	habit := models.Habit{
		ID:        page.ID,
		Name:      "Untitled",
		Frequency: models.FrequencyDaily,
		Category:  models.CategoryIdeas,
		XPReward:  models.DefaultHabitXP,
		Active:    true,
	}

	if name := richTextContent(page.Properties["Name"].Title); name != "" {
		habit.Name = name
	}
	if sel := page.Properties["Frequency"].Select; sel != nil {
		habit.Frequency = models.ParseFrequency(sel.Name)
	}
	if sel := page.Properties["Category"].Select; sel != nil {
		habit.Category = models.ParseCategory(sel.Name)
	}
	if n := page.Properties["XP Reward"].Number; n != nil && *n > 0 {
		habit.XPReward = int(*n)
	}
	if cb := page.Properties["Active"].Checkbox; cb != nil {
		habit.Active = *cb
	}
	for _, t := range page.Properties["Times"].MultiSelect {
		habit.Times = append(habit.Times, models.ParseTimeOfDay(t.Name))
	}
	if date := page.Properties["Last Completed"].Date; date != nil {
		if t, err := time.Parse(time.RFC3339, date.Start); err == nil {
			habit.LastCompleted = &t
		} else if t, err := time.Parse("2006-01-02", date.Start); err == nil {
			habit.LastCompleted = &t
		}
	}
	return habit
}

func richTextContent(parts []storeRichText) string {
	if len(parts) == 0 {
		return ""
	}
	if parts[0].Text != nil && parts[0].Text.Content != "" {
		return parts[0].Text.Content
	}
	return parts[0].PlainText
}

func titleProp(content string) map[string]any {
	return map[string]any{
		"title": []map[string]any{
			{"text": map[string]any{"content": content}},
		},
	}
}

func richTextProp(content string) map[string]any {
	return map[string]any{
		"rich_text": []map[string]any{
			{"text": map[string]any{"content": content}},
		},
	}
}

func selectProp(name string) map[string]any {
	return map[string]any{"select": map[string]any{"name": name}}
}

func dateProp(t time.Time) map[string]any {
	return map[string]any{"date": map[string]any{"start": t.Format(time.RFC3339)}}
}

func filesProp(name, url string) map[string]any {
	return map[string]any{
		"files": []map[string]any{
			{"name": name, "external": map[string]any{"url": url}},
		},
	}
}
