// ABOUTME: Tests for dashboard component
// ABOUTME: Validates profile, money and session lifetime display

package dashboard

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AbdelrhmanAbuelnile/Cashly/internal/client"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/session"
)

func sampleSnapshot(now time.Time) session.Snapshot {
	balance := decimal.NewFromFloat(1250.4)
	salary := decimal.NewFromInt(4000)
	return session.Snapshot{
		User: &client.Profile{
			ID:         "1",
			Name:       "Ada",
			Email:      "ada@example.com",
			Currency:   "USD",
			Balance:    &balance,
			Salary:     &salary,
			PaymentDay: 25,
		},
		IsAuthenticated: true,
		Phase:           session.PhaseAuthenticated,
		ExpiresAt:       now.Add(42 * time.Minute),
	}
}

func TestDashboardView(t *testing.T) {
	now := time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)
	d := New(sampleSnapshot(now), 120, 30)
	d.now = func() time.Time { return now }

	view := d.View()

	for _, expected := range []string{
		"Welcome back, Ada",
		"ada@example.com",
		"SIGNED IN",
		"$1,250",
		"$4,000",
		"Day 25",
		"in 6 days",
		"expires in 42m",
	} {
		if !strings.Contains(view, expected) {
			t.Errorf("expected view to contain %q\nView:\n%s", expected, view)
		}
	}
}

func TestDashboardNilUser(t *testing.T) {
	d := New(session.Snapshot{}, 80, 24)
	view := d.View()

	if !strings.Contains(view, "Loading") {
		t.Error("expected loading message when user is nil")
	}
}

func TestDashboardUpdate(t *testing.T) {
	now := time.Now()
	d := New(sampleSnapshot(now), 120, 30)

	snap := sampleSnapshot(now)
	snap.Phase = session.PhaseRefreshing
	snap.User.Name = "Grace"
	d.Update(snap)

	view := d.View()
	if !strings.Contains(view, "Grace") {
		t.Error("expected updated name in view")
	}
	if !strings.Contains(view, "REFRESHING") {
		t.Error("expected refreshing badge in view")
	}
}

func TestDashboardWithoutExpiry(t *testing.T) {
	snap := sampleSnapshot(time.Now())
	snap.ExpiresAt = time.Time{}
	d := New(snap, 120, 30)

	if strings.Contains(d.View(), "Session") {
		t.Error("expected no session block without an expiry")
	}
}

func TestLifetimeUsed(t *testing.T) {
	tests := []struct {
		remaining time.Duration
		expected  float64
	}{
		{time.Hour, 0},
		{30 * time.Minute, 50},
		{0, 100},
		{-time.Minute, 100},
		{2 * time.Hour, 0},
	}

	for _, tc := range tests {
		if got := lifetimeUsed(tc.remaining); got != tc.expected {
			t.Errorf("lifetimeUsed(%s) = %.1f, want %.1f", tc.remaining, got, tc.expected)
		}
	}
}

func TestNextPayday(t *testing.T) {
	tests := []struct {
		name     string
		now      time.Time
		day      int
		expected string
	}{
		{"later this month", time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC), 25, "in 6 days"},
		{"today", time.Date(2026, time.October, 25, 9, 0, 0, 0, time.UTC), 25, "today"},
		{"tomorrow", time.Date(2026, time.October, 24, 23, 0, 0, 0, time.UTC), 25, "tomorrow"},
		{"next month", time.Date(2026, time.October, 26, 9, 0, 0, 0, time.UTC), 1, "in 6 days"},
		{"short month clamps", time.Date(2026, time.November, 29, 9, 0, 0, 0, time.UTC), 31, "tomorrow"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := nextPayday(tc.now, tc.day); got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}
