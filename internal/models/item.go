package models

import (
	"fmt"
	"strings"
	"time"
)

// Category is the closed set of life areas an item can belong to.
// Anything the classifier returns outside this set is clamped to CategoryIdeas.
type Category string

const (
	CategoryHealth           Category = "Health"
	CategoryStudy            Category = "Study"
	CategoryPersonalProjects Category = "Personal Projects"
	CategorySkills           Category = "Skills"
	CategoryCreative         Category = "Creative"
	CategoryShopping         Category = "Shopping"
	CategoryIdeas            Category = "Ideas"
)

// Categories lists every valid category, in display order.
var Categories = []Category{
	CategoryHealth,
	CategoryStudy,
	CategoryPersonalProjects,
	CategorySkills,
	CategoryCreative,
	CategoryShopping,
	CategoryIdeas,
}

// ParseCategory clamps an arbitrary string to a known category.
// Unknown values fall back to Ideas so a wild classifier output never
// becomes an unchecked domain value.
func ParseCategory(s string) Category {
	normalized := strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(normalized, string(c)) {
			return c
		}
	}
	switch strings.ToLower(strings.ReplaceAll(normalized, " ", "")) {
	case "personalprojects", "projects":
		return CategoryPersonalProjects
	case "skill":
		return CategorySkills
	}
	return CategoryIdeas
}

// ItemType describes what kind of captured unit an item is.
type ItemType string

const (
	TypeTask      ItemType = "Task"
	TypeGoal      ItemType = "Goal"
	TypeReference ItemType = "Reference"
	TypeResource  ItemType = "Resource"
)

// ParseItemType clamps a string to a known item type. The legacy "Idea"
// value the classifier sometimes emits maps to Reference.
func ParseItemType(s string) ItemType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "task":
		return TypeTask
	case "goal":
		return TypeGoal
	case "resource":
		return TypeResource
	case "reference", "idea":
		return TypeReference
	}
	return TypeReference
}

// Priority is the three-level urgency scale.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// ParsePriority clamps a string to a known priority, defaulting to Low.
func ParsePriority(s string) Priority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "urgent":
		return PriorityHigh
	case "medium", "normal":
		return PriorityMedium
	}
	return PriorityLow
}

// Emoji returns the indicator used in chat replies.
func (p Priority) Emoji() string {
	switch p {
	case PriorityHigh:
		return "🔴"
	case PriorityMedium:
		return "🟡"
	case PriorityLow:
		return "🟢"
	}
	return "⚪"
}

// Status is the item lifecycle state.
type Status string

const (
	StatusActive  Status = "Active"
	StatusParked  Status = "Parked"
	StatusDone    Status = "Done"
	StatusDropped Status = "Dropped"
)

// IsTerminal reports whether a status means the item should be hidden
// from active-item views and matching candidates.
func (s Status) IsTerminal() bool {
	switch strings.ToLower(string(s)) {
	case "done", "completed", "archived", "dropped":
		return true
	}
	return false
}

// Item is a single captured unit of the user's life-organization data.
// The Item Store owns it; the engine only holds transient copies fetched
// per operation.
type Item struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Category  Category  `json:"category"`
	Type      ItemType  `json:"type"`
	Priority  Priority  `json:"priority"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	Notes     string    `json:"notes,omitempty"`
	ImageURL  string    `json:"imageUrl,omitempty"`
}

// FormatForDisplay renders a one-line chat representation of an item.
func (i *Item) FormatForDisplay() string {
	return fmt.Sprintf("%s %s (%s)", i.Priority.Emoji(), i.Title, i.Category)
}

// ItemPatch carries the mutable fields of an item update. Nil fields are
// left untouched by the store.
type ItemPatch struct {
	Priority *Priority `json:"priority,omitempty"`
	Status   *Status   `json:"status,omitempty"`
	Category *Category `json:"category,omitempty"`
}
