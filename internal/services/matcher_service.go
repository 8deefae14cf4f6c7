package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"lifeorganizer/internal/models"
)

// Confidence policy for resolving a target description. At or above the
// exact threshold the match is executed directly; between the thresholds the
// user chooses; below the floor nothing plausible matched.
const (
	matchExactThreshold = 0.80
	matchFloorThreshold = 0.40
	maxAmbiguousChoices = 3
)

// TargetMatcher is the raw matching capability the matcher builds on.
type TargetMatcher interface {
	MatchTarget(ctx context.Context, target string, candidates []models.Item) (*models.TargetMatch, error)
}

// MatcherService resolves a natural-language target description to a
// concrete stored item. It always receives the full active-item list —
// pre-filtering candidates by status caused false negatives, so relevance
// reasoning is left to the matching service.
type MatcherService struct {
	matcher TargetMatcher
}

// NewMatcherService creates the matcher.
func NewMatcherService(matcher TargetMatcher) *MatcherService {
	return &MatcherService{matcher: matcher}
}

// Match resolves targetDesc against candidates. NoMatch and Ambiguous both
// mean the pending mutation must not proceed.
func (s *MatcherService) Match(ctx context.Context, targetDesc string, candidates []models.Item) (*models.MatchResult, error) {
	if len(candidates) == 0 {
		return &models.MatchResult{Outcome: models.MatchNone}, nil
	}

	match, err := s.matcher.MatchTarget(ctx, targetDesc, candidates)
	if err != nil {
		return nil, fmt.Errorf("target matching failed: %w", err)
	}

	picked := findItem(candidates, match.ItemID)
	log.Printf("🔍 [MATCHER] %q → item=%s confidence=%.2f", targetDesc, match.ItemID, match.Confidence)

	if picked == nil || match.Confidence < matchFloorThreshold {
		return &models.MatchResult{Outcome: models.MatchNone}, nil
	}

	if match.Confidence >= matchExactThreshold {
		return &models.MatchResult{Outcome: models.MatchExact, Item: picked}, nil
	}

	return &models.MatchResult{
		Outcome:    models.MatchAmbiguous,
		Candidates: ambiguousChoices(targetDesc, *picked, candidates),
	}, nil
}

func findItem(items []models.Item, id string) *models.Item {
	if id == "" {
		return nil
	}
	for i := range items {
		if items[i].ID == id {
			return &items[i]
		}
	}
	return nil
}

// ambiguousChoices builds the choice list surfaced to the user: the
// service's pick first, then the lexically closest other candidates.
func ambiguousChoices(targetDesc string, picked models.Item, candidates []models.Item) []models.Item {
	type scored struct {
		item  models.Item
		score int
	}

	var rest []scored
	for _, c := range candidates {
		if c.ID == picked.ID {
			continue
		}
		if s := tokenOverlap(targetDesc, c.Title); s > 0 {
			rest = append(rest, scored{item: c, score: s})
		}
	}
	sort.SliceStable(rest, func(i, j int) bool { return rest[i].score > rest[j].score })

	choices := []models.Item{picked}
	for _, r := range rest {
		if len(choices) >= maxAmbiguousChoices {
			break
		}
		choices = append(choices, r.item)
	}
	return choices
}

// tokenOverlap counts shared significant words between a description and a
// title.
func tokenOverlap(a, b string) int {
	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(a)) {
		if len(w) > 2 {
			words[w] = true
		}
	}
	count := 0
	for _, w := range strings.Fields(strings.ToLower(b)) {
		if words[strings.ToLower(w)] {
			count++
		}
	}
	return count
}
