package services

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lifeorganizer/internal/models"
)

// confirmationTTL bounds how long a destructive mutation waits for a yes/no.
const confirmationTTL = 5 * time.Minute

// affirmativeWords are the replies accepted as confirmation. Anything else
// is an implicit cancel and the message is re-routed as fresh input.
var affirmativeWords = map[string]bool{
	"yes": true, "y": true, "yeah": true, "yep": true,
	"sure": true, "ok": true, "okay": true, "confirm": true,
	"نعم": true, "اي": true,
}

// focusCompletionWords are the replies that end an active focus session.
var focusCompletionWords = map[string]bool{
	"done": true, "finished": true, "complete": true, "completed": true,
	"تم": true, "خلص": true,
}

// IsAffirmative reports whether text counts as a confirmation reply.
func IsAffirmative(text string) bool {
	return affirmativeWords[strings.ToLower(strings.TrimSpace(text))]
}

// IsFocusCompletion reports whether text ends a focus session.
func IsFocusCompletion(text string) bool {
	return focusCompletionWords[strings.ToLower(strings.TrimSpace(text))]
}

type sessionEntry struct {
	mu    sync.Mutex
	state models.UserState
}

// SessionService is the in-memory per-user state registry: XP/streak
// counters, pending confirmations, and focus sessions. Each user's updates
// are serialized by a per-user mutex so concurrent messages from the same
// user observe their effects in order; different users never block each
// other.
type SessionService struct {
	mu      sync.RWMutex
	entries map[int64]*sessionEntry
	now     func() time.Time
}

// NewSessionService creates an empty registry.
func NewSessionService() *SessionService {
	return &SessionService{
		entries: make(map[int64]*sessionEntry),
		now:     time.Now,
	}
}

func (s *SessionService) entry(userID int64) *sessionEntry {
	s.mu.RLock()
	e, ok := s.entries[userID]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[userID]; ok {
		return e
	}
	e = &sessionEntry{state: models.UserState{UserID: userID}}
	s.entries[userID] = e
	return e
}

// WithUser runs fn with exclusive access to the user's state. All reads and
// writes of a user's session go through here.
func (s *SessionService) WithUser(userID int64, fn func(u *models.UserState)) {
	e := s.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.state)
}

// Snapshot returns a copy of the user's state for read-only display.
func (s *SessionService) Snapshot(userID int64) models.UserState {
	var snap models.UserState
	s.WithUser(userID, func(u *models.UserState) {
		snap = *u
		if u.Pending != nil {
			p := *u.Pending
			snap.Pending = &p
		}
		if u.Focus != nil {
			f := *u.Focus
			snap.Focus = &f
		}
	})
	return snap
}

// BeginConfirmation arms the confirmation gate for a destructive mutation.
// Any prior unconfirmed action is silently discarded.
func (s *SessionService) BeginConfirmation(u *models.UserState, action models.ConfirmAction, item models.Item, newPriority models.Priority) *models.PendingConfirmation {
	now := s.now()
	u.Pending = &models.PendingConfirmation{
		ID:          uuid.NewString(),
		Action:      action,
		ItemID:      item.ID,
		ItemTitle:   item.Title,
		NewPriority: newPriority,
		CreatedAt:   now,
		ExpiresAt:   now.Add(confirmationTTL),
	}
	return u.Pending
}

// TakeConfirmation consumes the pending confirmation if one exists and has
// not expired. It always clears the slot: a confirmation gets exactly one
// resolution turn.
func (s *SessionService) TakeConfirmation(u *models.UserState) (*models.PendingConfirmation, bool) {
	p := u.Pending
	if p == nil {
		return nil, false
	}
	u.Pending = nil
	if p.Expired(s.now()) {
		return nil, false
	}
	return p, true
}

// StartFocusSelection opens a focus session offering candidates. It fails
// while another session is still selecting or active.
func (s *SessionService) StartFocusSelection(u *models.UserState, candidates []models.Item) (*models.FocusSession, bool) {
	if u.Focus != nil && (u.Focus.State == models.FocusSelecting || u.Focus.State == models.FocusActive) {
		return nil, false
	}
	u.Focus = &models.FocusSession{
		ID:         uuid.NewString(),
		State:      models.FocusSelecting,
		Candidates: candidates,
		StartedAt:  s.now(),
	}
	return u.Focus, true
}

// SelectFocusItem picks a candidate by 1-based index or by fuzzy title
// match and moves the session to Active.
func (s *SessionService) SelectFocusItem(u *models.UserState, reply string) (*models.Item, bool) {
	f := u.Focus
	if f == nil || f.State != models.FocusSelecting {
		return nil, false
	}

	item := pickCandidate(f.Candidates, reply)
	if item == nil {
		return nil, false
	}
	f.Selected = item
	f.State = models.FocusActive
	return item, true
}

// CompleteFocus ends an active session and returns the item that was worked
// on.
func (s *SessionService) CompleteFocus(u *models.UserState) (*models.Item, bool) {
	f := u.Focus
	if f == nil || f.State != models.FocusActive || f.Selected == nil {
		return nil, false
	}
	item := f.Selected
	f.State = models.FocusCompleted
	u.Focus = nil
	return item, true
}

// CancelFocus abandons a session in any live state.
func (s *SessionService) CancelFocus(u *models.UserState) bool {
	f := u.Focus
	if f == nil || (f.State != models.FocusSelecting && f.State != models.FocusActive) {
		return false
	}
	f.State = models.FocusCancelled
	u.Focus = nil
	return true
}

// InFocus reports whether the user currently has a live focus session and,
// if so, its state.
func (s *SessionService) InFocus(u *models.UserState) (models.FocusState, bool) {
	if u.Focus == nil {
		return 0, false
	}
	return u.Focus.State, true
}

func pickCandidate(candidates []models.Item, reply string) *models.Item {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil
	}

	// 1-based numeric pick, as shown in the offered list.
	if n := parseIndex(reply); n >= 1 && n <= len(candidates) {
		item := candidates[n-1]
		return &item
	}

	lower := strings.ToLower(reply)
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c.Title), lower) {
			item := c
			return &item
		}
	}

	// Fall back to word overlap so "the gym one" still picks the gym item.
	best := -1
	bestScore := 0
	for i, c := range candidates {
		if score := tokenOverlap(reply, c.Title); score > bestScore {
			best, bestScore = i, score
		}
	}
	if best >= 0 {
		item := candidates[best]
		return &item
	}
	return nil
}

func parseIndex(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
