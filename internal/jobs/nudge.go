package jobs

import (
	"context"
	"fmt"
	"math/rand"

	"lifeorganizer/internal/models"
)

// nudge picks one open high-priority item and surfaces it mid-afternoon.
// Random choice keeps a stale backlog from nudging the same item forever.
func (s *ReminderScheduler) nudge(ctx context.Context, userID int64) (string, bool) {
	items, err := s.items.ActiveItems(ctx)
	if err != nil {
		s.logger.WithField("error", err.Error()).Warn("Loading items for nudge failed")
		return "", false
	}

	var high []models.Item
	for i := range items {
		if items[i].Priority == models.PriorityHigh {
			high = append(high, items[i])
		}
	}
	if len(high) == 0 {
		return "", false
	}

	pick := high[rand.Intn(len(high))]
	return fmt.Sprintf("👋 Quick nudge: \"%s\" is still waiting on you. Even 10 minutes counts.", pick.Title), true
}
