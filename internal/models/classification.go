package models

// ClassificationResult is the normalized output of the classification
// service for a piece of captured content. Degraded is set when the raw
// model output could not be decoded cleanly and a fallback stage produced
// the result instead.
type ClassificationResult struct {
	Category        Category `json:"category"`
	Type            ItemType `json:"type"`
	Priority        Priority `json:"priority"`
	Title           string   `json:"title"`
	Summary         string   `json:"summary"`
	SuggestedAction string   `json:"suggested_action,omitempty"`
	Degraded        bool     `json:"-"`
}

// ImageAnalysis is the normalized output of the vision model for a photo.
type ImageAnalysis struct {
	Description    string   `json:"description"`
	Category       Category `json:"category"`
	SuggestedTitle string   `json:"suggested_title"`
	Priority       Priority `json:"priority"`
	Degraded       bool     `json:"-"`
}

// Intent is the classified purpose of an inbound utterance.
type Intent string

const (
	IntentCreateItem     Intent = "create"
	IntentQueryAll       Intent = "query_all"
	IntentQueryCategory  Intent = "query_category"
	IntentUpdatePriority Intent = "update_priority"
	IntentMarkComplete   Intent = "complete"
	IntentDelete         Intent = "delete"
	IntentHabitCreate    Intent = "habit_create"
	IntentHabitComplete  Intent = "habit_complete"
	IntentNone           Intent = "none"
)

// IntentResult is the routing decision for an utterance. Target holds the
// natural-language description of the item being managed; it is only
// meaningful for mutation and habit-completion intents.
type IntentResult struct {
	Intent      Intent     `json:"intent"`
	Target      string     `json:"target,omitempty"`
	Category    Category   `json:"category,omitempty"`
	NewPriority Priority   `json:"new_priority,omitempty"`
	Habit       *HabitSpec `json:"habit,omitempty"`
	Degraded    bool       `json:"-"`
}

// TargetMatch is the raw answer of the matching service: the id of the best
// candidate (empty when nothing plausibly matches) plus a confidence signal
// in [0,1].
type TargetMatch struct {
	ItemID     string  `json:"item_id,omitempty"`
	Confidence float64 `json:"confidence"`
}

// MatchOutcome classifies a resolved target description.
type MatchOutcome int

const (
	MatchNone MatchOutcome = iota
	MatchExact
	MatchAmbiguous
)

// MatchResult resolves a target description against the candidate items.
// Exact carries the single matched item; Ambiguous carries up to three
// candidates for the user to choose from.
type MatchResult struct {
	Outcome    MatchOutcome
	Item       *Item
	Candidates []Item
}
