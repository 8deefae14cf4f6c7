package services

import (
	"testing"
	"time"
)

func TestAccessGate_Allowlist(t *testing.T) {
	gate := NewAccessGate([]int64{100, 200}, time.Minute, 20)

	if got := gate.Admit(100); got != AdmitAllowed {
		t.Errorf("Expected allowed user to be admitted, got %v", got)
	}
	if got := gate.Admit(999); got != AdmitUnauthorized {
		t.Errorf("Expected unknown user to be unauthorized, got %v", got)
	}
}

func TestAccessGate_EmptyAllowlistAdmitsEveryone(t *testing.T) {
	gate := NewAccessGate(nil, time.Minute, 20)

	if got := gate.Admit(12345); got != AdmitAllowed {
		t.Errorf("Expected admission with empty allow-list, got %v", got)
	}
}

func TestAccessGate_RateLimitWindow(t *testing.T) {
	gate := NewAccessGate([]int64{1}, time.Minute, 3)

	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	gate.now = func() time.Time { return current }

	for i := 0; i < 3; i++ {
		if got := gate.Admit(1); got != AdmitAllowed {
			t.Fatalf("Request %d: expected admission, got %v", i+1, got)
		}
	}

	if got := gate.Admit(1); got != AdmitRateLimited {
		t.Errorf("Expected rate limit after %d requests, got %v", 3, got)
	}

	// The window slides: after 61 seconds the old timestamps are discarded
	current = current.Add(61 * time.Second)
	if got := gate.Admit(1); got != AdmitAllowed {
		t.Errorf("Expected admission after window slid, got %v", got)
	}
}

func TestAccessGate_DeniedRequestsLeaveNoTrace(t *testing.T) {
	gate := NewAccessGate([]int64{1}, time.Minute, 1)

	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	gate.now = func() time.Time { return current }

	if got := gate.Admit(1); got != AdmitAllowed {
		t.Fatalf("Expected first request admitted, got %v", got)
	}

	// Denied requests must not extend the window
	for i := 0; i < 5; i++ {
		if got := gate.Admit(1); got != AdmitRateLimited {
			t.Fatalf("Expected rate limited, got %v", got)
		}
	}

	current = current.Add(61 * time.Second)
	if got := gate.Admit(1); got != AdmitAllowed {
		t.Errorf("Expected admission after window passed, got %v", got)
	}
}

func TestAccessGate_UsersAreIndependent(t *testing.T) {
	gate := NewAccessGate(nil, time.Minute, 1)

	if got := gate.Admit(1); got != AdmitAllowed {
		t.Fatalf("Expected user 1 admitted, got %v", got)
	}
	if got := gate.Admit(1); got != AdmitRateLimited {
		t.Fatalf("Expected user 1 rate limited, got %v", got)
	}
	if got := gate.Admit(2); got != AdmitAllowed {
		t.Errorf("Expected user 2 unaffected by user 1's window, got %v", got)
	}
}
