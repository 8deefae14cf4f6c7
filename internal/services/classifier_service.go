package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"

	"lifeorganizer/internal/metrics"
	"lifeorganizer/internal/models"
)

// Categorization system prompt. The model is asked for strict JSON but the
// decode pipeline below does not trust it to comply.
const categorizationPrompt = `You are an assistant helping someone with ADHD organize their life.
Analyze the following message and categorize it.

Categories:
- Health: fitness, nutrition, skincare, sleep, medical
- Study: university courses, exams, assignments, learning materials
- Personal Projects: coding projects, side businesses, entrepreneurship
- Skills: learning new skills (instruments, chess, cooking, drawing, etc.)
- Creative: content creation, streaming, video editing, art, music
- Shopping: things to buy, product research
- Ideas: random thoughts, future possibilities, things to explore

Types:
- Task: something to do
- Goal: something to achieve
- Reference: something to consider/explore
- Resource: useful information/link/reference

Priority (based on urgency/importance):
- High: university deadlines, health issues, critical tasks
- Medium: personal projects, skill development
- Low: ideas, shopping, exploration

Respond in JSON format:
{
  "category": "category_name",
  "type": "type_name",
  "priority": "priority_level",
  "title": "short title (max 50 chars)",
  "summary": "brief summary of the content",
  "suggested_action": "what the user should do with this (optional)"
}`

const intentPrompt = `You detect task-management intent in short personal messages.
The user owns a collection of stored items (tasks, goals, references) and habits.

Classify the message into exactly one intent:
- "create": a new thought/task to capture (also the default when unsure)
- "query_all": asking to see their items
- "query_category": asking to see items in one category (set "category")
- "update_priority": asking to change an item's priority (set "target" and "new_priority")
- "complete": marking an item done (set "target")
- "delete": asking to remove an item (set "target")
- "habit_create": asking to track a recurring habit (set "habit" with name/frequency/times/category)
- "habit_complete": reporting a recurring habit done (set "target")
- "none": none of the above

"target" is the user's own words describing WHICH item they mean.

Respond in JSON format:
{"intent": "...", "target": "...", "category": "...", "new_priority": "...",
 "habit": {"name": "...", "frequency": "Daily|Twice Daily|Weekly|Monthly", "times": ["Morning","Evening"], "category": "..."}}`

const matchPrompt = `You match a user's description of a task to their stored items.
Pick the single best matching item, considering synonyms, partial names and typos.

Respond in JSON format:
{"item_id": "id of the best match, or empty string if nothing plausibly matches",
 "confidence": 0.0}

confidence is your certainty in [0,1] that the picked item is the one the user means.`

const visionPrompt = `Analyze this image and determine what it's about.

Respond in JSON format:
{
  "description": "what's in the image",
  "category": "Health/Study/Personal Projects/Skills/Creative/Shopping/Ideas",
  "suggested_title": "short title for this item",
  "priority": "High/Medium/Low"
}`

// ClassifierService talks to an OpenAI-compatible chat-completions endpoint
// for categorization, intent detection, semantic matching and image analysis.
// Every call is bounded by the client timeout and every malformed response
// degrades to a usable default; classification failure must never block
// storage of the user's content.
type ClassifierService struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	classifyModel string
	visionModel   string
}

// NewClassifierService creates a classifier backed by the configured endpoint.
func NewClassifierService(baseURL, apiKey, classifyModel, visionModel string) *ClassifierService {
	return &ClassifierService{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		baseURL:       strings.TrimRight(baseURL, "/"),
		apiKey:        apiKey,
		classifyModel: classifyModel,
		visionModel:   visionModel,
	}
}

// Categorize classifies free-form text into a category/type/priority triple.
// On any failure it returns the deterministic fallback (Ideas/Reference/Low)
// with Degraded set — never an error that would drop the content.
func (s *ClassifierService) Categorize(ctx context.Context, text string) (*models.ClassificationResult, error) {
	fallback := &models.ClassificationResult{
		Category: models.CategoryIdeas,
		Type:     models.TypeReference,
		Priority: models.PriorityLow,
		Title:    truncate(text, 50),
		Summary:  text,
		Degraded: true,
	}

	content, err := s.chatCompletion(ctx, s.classifyModel, []chatMessage{
		{Role: "system", Content: categorizationPrompt},
		{Role: "user", Content: text},
	})
	if err != nil {
		log.Printf("⚠️  [CLASSIFIER] Categorization call failed, using fallback: %v", err)
		metrics.ClassificationsDegraded.Inc()
		return fallback, nil
	}

	var raw struct {
		Category        string `json:"category"`
		Type            string `json:"type"`
		Priority        string `json:"priority"`
		Title           string `json:"title"`
		Summary         string `json:"summary"`
		SuggestedAction string `json:"suggested_action"`
	}
	degraded, err := decodeModelJSON(content, &raw)
	if err != nil {
		log.Printf("⚠️  [CLASSIFIER] Undecodable categorization output (%d bytes), using fallback", len(content))
		metrics.ClassificationsDegraded.Inc()
		return fallback, nil
	}
	if degraded {
		metrics.ClassificationsDegraded.Inc()
	}

	result := &models.ClassificationResult{
		Category:        models.ParseCategory(raw.Category),
		Type:            models.ParseItemType(raw.Type),
		Priority:        models.ParsePriority(raw.Priority),
		Title:           raw.Title,
		Summary:         raw.Summary,
		SuggestedAction: raw.SuggestedAction,
		Degraded:        degraded,
	}
	if result.Title == "" {
		result.Title = truncate(text, 50)
	}
	if result.Summary == "" {
		result.Summary = text
	}
	return result, nil
}

// DetectIntent asks the model for an intent judgment over the raw utterance.
// Failures degrade to IntentNone, which the router turns into item creation.
func (s *ClassifierService) DetectIntent(ctx context.Context, text string) (*models.IntentResult, error) {
	content, err := s.chatCompletion(ctx, s.classifyModel, []chatMessage{
		{Role: "system", Content: intentPrompt},
		{Role: "user", Content: text},
	})
	if err != nil {
		log.Printf("⚠️  [CLASSIFIER] Intent detection failed, treating as none: %v", err)
		return &models.IntentResult{Intent: models.IntentNone, Degraded: true}, nil
	}

	var raw struct {
		Intent      string `json:"intent"`
		Target      string `json:"target"`
		Category    string `json:"category"`
		NewPriority string `json:"new_priority"`
		Habit       *struct {
			Name      string   `json:"name"`
			Frequency string   `json:"frequency"`
			Times     []string `json:"times"`
			Category  string   `json:"category"`
		} `json:"habit"`
	}
	degraded, err := decodeModelJSON(content, &raw)
	if err != nil {
		return &models.IntentResult{Intent: models.IntentNone, Degraded: true}, nil
	}

	result := &models.IntentResult{
		Intent:   parseIntent(raw.Intent),
		Target:   raw.Target,
		Degraded: degraded,
	}
	if raw.Category != "" {
		result.Category = models.ParseCategory(raw.Category)
	}
	if raw.NewPriority != "" {
		result.NewPriority = models.ParsePriority(raw.NewPriority)
	}
	if raw.Habit != nil && raw.Habit.Name != "" {
		spec := &models.HabitSpec{
			Name:      raw.Habit.Name,
			Frequency: models.ParseFrequency(raw.Habit.Frequency),
			Category:  models.ParseCategory(raw.Habit.Category),
		}
		for _, t := range raw.Habit.Times {
			spec.Times = append(spec.Times, models.ParseTimeOfDay(t))
		}
		result.Habit = spec
	}
	return result, nil
}

// MatchTarget asks the model which candidate item the target description
// refers to. The full candidate list goes to the model; pre-filtering by
// status caused false negatives, so relevance reasoning stays on its side.
func (s *ClassifierService) MatchTarget(ctx context.Context, target string, candidates []models.Item) (*models.TargetMatch, error) {
	var sb strings.Builder
	sb.WriteString("STORED ITEMS:\n")
	for _, item := range candidates {
		fmt.Fprintf(&sb, "- id=%s title=%q category=%s priority=%s status=%s\n",
			item.ID, item.Title, item.Category, item.Priority, item.Status)
	}
	fmt.Fprintf(&sb, "\nUSER DESCRIPTION: %s\n", target)

	content, err := s.chatCompletion(ctx, s.classifyModel, []chatMessage{
		{Role: "system", Content: matchPrompt},
		{Role: "user", Content: sb.String()},
	})
	if err != nil {
		return nil, fmt.Errorf("match call failed: %w", err)
	}

	var raw models.TargetMatch
	if _, err := decodeModelJSON(content, &raw); err != nil {
		return nil, fmt.Errorf("undecodable match output: %w", err)
	}
	return &raw, nil
}

// AnalyzeImage classifies a photo through the vision model. Failures degrade
// to an Ideas/Low result built from the caption.
func (s *ClassifierService) AnalyzeImage(ctx context.Context, imageData []byte, caption string) (*models.ImageAnalysis, error) {
	fallback := &models.ImageAnalysis{
		Description:    "Image analysis failed",
		Category:       models.CategoryIdeas,
		SuggestedTitle: fallbackImageTitle(caption),
		Priority:       models.PriorityLow,
		Degraded:       true,
	}

	prompt := visionPrompt
	if caption != "" {
		prompt += "\n\nCaption (if provided): " + caption
	}

	imageURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(imageData)
	content, err := s.chatCompletion(ctx, s.visionModel, []chatMessage{
		{Role: "user", Content: []map[string]any{
			{"type": "text", "text": prompt},
			{"type": "image_url", "image_url": map[string]any{"url": imageURL}},
		}},
	})
	if err != nil {
		log.Printf("⚠️  [CLASSIFIER] Image analysis failed, using fallback: %v", err)
		metrics.ClassificationsDegraded.Inc()
		return fallback, nil
	}

	var raw struct {
		Description    string `json:"description"`
		Category       string `json:"category"`
		SuggestedTitle string `json:"suggested_title"`
		Priority       string `json:"priority"`
	}
	degraded, err := decodeModelJSON(content, &raw)
	if err != nil {
		metrics.ClassificationsDegraded.Inc()
		return fallback, nil
	}

	analysis := &models.ImageAnalysis{
		Description:    raw.Description,
		Category:       models.ParseCategory(raw.Category),
		SuggestedTitle: raw.SuggestedTitle,
		Priority:       models.ParsePriority(raw.Priority),
		Degraded:       degraded,
	}
	if analysis.SuggestedTitle == "" {
		analysis.SuggestedTitle = fallbackImageTitle(caption)
	}
	return analysis, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// chatCompletion performs one bounded chat-completions call and returns the
// assistant message content.
func (s *ClassifierService) chatCompletion(ctx context.Context, model string, messages []chatMessage) (string, error) {
	requestBody := map[string]any{
		"model":       model,
		"messages":    messages,
		"stream":      false,
		"temperature": 0.3,
		"response_format": map[string]any{
			"type": "json_object",
		},
	}

	reqBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, truncate(string(body), 200))
	}

	var apiResponse struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return "", fmt.Errorf("failed to parse API response: %w", err)
	}
	if len(apiResponse.Choices) == 0 {
		return "", fmt.Errorf("no choices in model response")
	}
	return apiResponse.Choices[0].Message.Content, nil
}

// decodeModelJSON runs the staged decode pipeline over raw model output:
// strip enclosing code fences, then plain unmarshal, then a jsonrepair pass,
// then extraction of the first balanced JSON object in the text. The
// returned bool reports whether any stage past the first was needed.
// Surrounding whitespace alone does not count: trailing newlines are the
// norm in model output, not a sign of a malformed reply.
func decodeModelJSON(content string, out any) (bool, error) {
	cleaned := stripCodeFences(content)

	if err := json.Unmarshal([]byte(cleaned), out); err == nil {
		return cleaned != strings.TrimSpace(content), nil
	}

	if repaired, err := jsonrepair.JSONRepair(cleaned); err == nil {
		if err := json.Unmarshal([]byte(repaired), out); err == nil {
			return true, nil
		}
	}

	if block := firstJSONObject(cleaned); block != "" {
		if err := json.Unmarshal([]byte(block), out); err == nil {
			return true, nil
		}
	}

	return true, fmt.Errorf("no decodable JSON in model output")
}

// stripCodeFences removes an enclosing markdown fence pair if present.
func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// Drop the language tag line (```json)
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// firstJSONObject extracts the first balanced {...} block, ignoring braces
// inside string literals.
func firstJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func parseIntent(s string) models.Intent {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "create":
		return models.IntentCreateItem
	case "query", "query_all":
		return models.IntentQueryAll
	case "query_category":
		return models.IntentQueryCategory
	case "update_priority":
		return models.IntentUpdatePriority
	case "complete", "mark_complete":
		return models.IntentMarkComplete
	case "delete", "remove":
		return models.IntentDelete
	case "habit_create":
		return models.IntentHabitCreate
	case "habit_complete":
		return models.IntentHabitComplete
	}
	return models.IntentNone
}

func fallbackImageTitle(caption string) string {
	if caption == "" {
		return "Image"
	}
	return truncate(caption, 50)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
