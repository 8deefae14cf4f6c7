package services

import (
	"log"
	"time"

	"lifeorganizer/internal/models"
)

// XP rewards per event kind.
const (
	XPItemCreated    = 5
	XPVoiceNote      = 3
	XPItemCompleted  = 10
	XPFocusCompleted = 25

	// StreakBonusXP is granted each time the streak reaches a new multiple
	// of seven days.
	StreakBonusXP    = 50
	streakBonusEvery = 7
)

// levelThresholds holds the cumulative XP needed for each level, paired
// with the tier names. Level is always derived from total XP, never stored,
// so the two can never drift.
var levelThresholds = []struct {
	XP    int
	Title string
}{
	{0, "🌱 Seedling"},
	{50, "🌿 Sprout"},
	{150, "🌳 Sapling"},
	{350, "🌲 Tree"},
	{600, "🏔️ Mountain"},
	{1000, "⭐ Star"},
	{2000, "🌟 Superstar"},
	{5000, "🚀 Legend"},
}

// LevelForXP returns the 1-based level and its tier title for a total XP.
func LevelForXP(xp int) (int, string) {
	level := 1
	title := levelThresholds[0].Title
	for i, t := range levelThresholds {
		if xp >= t.XP {
			level = i + 1
			title = t.Title
		}
	}
	return level, title
}

// NextLevelThreshold returns the XP needed for the next level, or 0 when the
// user is already at the top tier.
func NextLevelThreshold(xp int) int {
	for _, t := range levelThresholds {
		if t.XP > xp {
			return t.XP
		}
	}
	return 0
}

// ThresholdForLevel returns the XP floor of a 1-based level.
func ThresholdForLevel(level int) int {
	if level < 1 {
		return 0
	}
	if level > len(levelThresholds) {
		level = len(levelThresholds)
	}
	return levelThresholds[level-1].XP
}

// AwardResult summarizes one gamification update.
type AwardResult struct {
	XPAdded     int
	StreakBonus bool
	Streak      int
	Level       int
	LevelTitle  string
}

// GamificationService is a pure state transform over UserState: no external
// calls, no clock of its own. Callers pass the event XP and the current time.
type GamificationService struct{}

// NewGamificationService creates the engine.
func NewGamificationService() *GamificationService {
	return &GamificationService{}
}

// Award applies a qualifying activity worth the given XP to the user's
// state: adds XP, advances the daily streak, and grants the streak bonus
// when the streak reaches a new multiple of seven. Same-day repeat activity
// leaves the streak unchanged and can never re-grant a bonus.
func (g *GamificationService) Award(u *models.UserState, xp int, now time.Time) AwardResult {
	streakAdvanced := false

	if u.LastActivity.IsZero() {
		u.Streak = 1
		streakAdvanced = true
	} else {
		switch daysBetween(u.LastActivity, now) {
		case 0:
			// already counted today
		case 1:
			u.Streak++
			streakAdvanced = true
		default:
			u.Streak = 1
			streakAdvanced = true
		}
	}
	u.LastActivity = now

	u.XP += xp
	result := AwardResult{XPAdded: xp, Streak: u.Streak}

	// The bonus fires only on the day the streak reaches the multiple;
	// repeats within the same streak length cannot re-trigger it.
	if streakAdvanced && u.Streak > 0 && u.Streak%streakBonusEvery == 0 {
		u.XP += StreakBonusXP
		result.XPAdded += StreakBonusXP
		result.StreakBonus = true
		log.Printf("🔥 [XP] User %d hit a %d-day streak, +%d bonus XP", u.UserID, u.Streak, StreakBonusXP)
	}

	result.Level, result.LevelTitle = LevelForXP(u.XP)
	return result
}

// daysBetween counts whole calendar days from a to b.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	start := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	end := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}
