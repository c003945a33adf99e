// ABOUTME: Tests for token expiry parsing and refresh scheduling
// ABOUTME: Covers missing claims, garbage tokens and the delay floor

package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	got, ok := tokenExpiry(signedToken(t, exp))
	assert.True(t, ok)
	assert.True(t, got.Equal(exp))

	_, ok = tokenExpiry("")
	assert.False(t, ok)

	_, ok = tokenExpiry("not.a.jwt")
	assert.False(t, ok)
}

func TestRefreshDelay(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		interval  time.Duration
		again     bool
		expected  time.Duration
	}{
		{"no expiry uses interval", time.Time{}, 10 * time.Minute, false, 10 * time.Minute},
		{"far expiry uses interval", now.Add(time.Hour), 10 * time.Minute, false, 10 * time.Minute},
		{"near expiry refreshes a minute early", now.Add(5 * time.Minute), 10 * time.Minute, false, 4 * time.Minute},
		{"expired is floored", now.Add(-time.Hour), 10 * time.Minute, false, time.Second},
		{"tiny interval is floored", time.Time{}, time.Millisecond, false, time.Second},
		{"near expiry after a refresh waits the floor", now.Add(62 * time.Second), 10 * time.Minute, true, 30 * time.Second},
		{"expired after a refresh waits the floor", now.Add(-time.Hour), 10 * time.Minute, true, 30 * time.Second},
		{"floor never exceeds a short interval", now.Add(-time.Hour), 5 * time.Second, true, 5 * time.Second},
		{"tiny interval after a refresh keeps one second", time.Time{}, time.Millisecond, true, time.Second},
		{"distant expiry after a refresh uses interval", now.Add(time.Hour), 10 * time.Minute, true, 10 * time.Minute},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, refreshDelay(now, tc.expiresAt, tc.interval, tc.again))
		})
	}
}

func TestCredentials_Validate(t *testing.T) {
	assert.NoError(t, Credentials{Email: " a@example.com ", Password: "x"}.Validate())
	assert.ErrorIs(t, Credentials{Email: "a@\x07example.com", Password: "x"}.Validate(), ErrValidation)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "bootstrapping", PhaseBootstrapping.String())
	assert.Equal(t, "refreshing", PhaseRefreshing.String())
	assert.Equal(t, "unknown", Phase(99).String())

	text, err := PhaseAuthenticated.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "authenticated", string(text))
}
