package models

import "time"

// ConfirmAction is the destructive action a pending confirmation is gating.
type ConfirmAction string

const (
	ConfirmDelete ConfirmAction = "delete"
	ConfirmUpdate ConfirmAction = "update"
)

// PendingConfirmation holds a destructive mutation waiting for an explicit
// yes/no turn. A user has at most one at a time; creating a new one
// discards any prior unconfirmed one.
type PendingConfirmation struct {
	ID          string
	Action      ConfirmAction
	ItemID      string
	ItemTitle   string
	NewPriority Priority // only set for ConfirmUpdate
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the confirmation has passed its TTL.
func (p *PendingConfirmation) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// FocusState is the lifecycle state of a focus session.
type FocusState int

const (
	FocusSelecting FocusState = iota
	FocusActive
	FocusCompleted
	FocusCancelled
)

// FocusSession is a single-task concentration mode. Candidates are offered
// while Selecting; Selected is set once the user picks one.
type FocusSession struct {
	ID         string
	State      FocusState
	Candidates []Item
	Selected   *Item
	StartedAt  time.Time
}

// UserState is the per-user mutable session state. Absence of an entry is
// the canonical Idle state, so a cold start with an empty registry is
// always valid. Level is always derived from XP, never stored.
type UserState struct {
	UserID       int64
	ChatID       int64
	FirstName    string
	XP           int
	Streak       int
	LastActivity time.Time // date precision; zero means no activity yet
	Pending      *PendingConfirmation
	Focus        *FocusSession
}
