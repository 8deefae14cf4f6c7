package services

import (
	"log"
	"sync"
	"time"
)

// AdmitDecision is the outcome of an admission check.
type AdmitDecision int

const (
	AdmitAllowed AdmitDecision = iota
	AdmitUnauthorized
	AdmitRateLimited
)

// AccessGate combines the static allow-list with a per-user sliding-window
// rate limiter. Unauthorized users are silently dropped upstream so scanners
// never learn the bot exists.
type AccessGate struct {
	allowed map[int64]bool
	window  time.Duration
	max     int

	mu      sync.Mutex
	history map[int64][]time.Time

	now func() time.Time
}

// NewAccessGate creates a gate for the given allow-list. An empty allow-list
// admits everyone, matching single-user deployments that have not configured
// ALLOWED_USER_IDS yet.
func NewAccessGate(allowedIDs []int64, window time.Duration, maxRequests int) *AccessGate {
	allowed := make(map[int64]bool, len(allowedIDs))
	for _, id := range allowedIDs {
		allowed[id] = true
	}
	return &AccessGate{
		allowed: allowed,
		window:  window,
		max:     maxRequests,
		history: make(map[int64][]time.Time),
		now:     time.Now,
	}
}

// Admit decides whether a request from the user may proceed. Admitted
// requests record their timestamp; denied requests leave no trace beyond a
// log line.
func (g *AccessGate) Admit(userID int64) AdmitDecision {
	if len(g.allowed) > 0 && !g.allowed[userID] {
		log.Printf("⚠️  [GATE] Unauthorized access attempt: %d", userID)
		return AdmitUnauthorized
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	cutoff := now.Add(-g.window)

	recent := g.history[userID][:0]
	for _, t := range g.history[userID] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= g.max {
		g.history[userID] = recent
		log.Printf("🚫 [GATE] Rate limit reached for user %d (%d requests in window)", userID, len(recent))
		return AdmitRateLimited
	}

	g.history[userID] = append(recent, now)
	return AdmitAllowed
}
