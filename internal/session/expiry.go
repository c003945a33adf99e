// ABOUTME: Credential expiry tracking and refresh scheduling
// ABOUTME: Reads the exp claim of bearer tokens without verifying their signature

package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultRefreshInterval is how often an authenticated session is refreshed
	DefaultRefreshInterval = 10 * time.Minute

	// DefaultCredentialLifetime is assumed when the backend does not say
	DefaultCredentialLifetime = time.Hour

	// refreshLead is how long before expiry a refresh is forced
	refreshLead = time.Minute

	// minRefreshDelay stops an expired credential from spinning the refresh task
	minRefreshDelay = time.Second

	// minRenewDelay is the shortest wait between two scheduled refreshes,
	// unless the configured interval is shorter still
	minRenewDelay = 30 * time.Second
)

// tokenExpiry returns the exp claim of a JWT. The signature is not checked:
// the backend is the authority, this only schedules the next refresh.
func tokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// refreshDelay returns how long to wait before the next refresh. again
// reports whether this task already attempted one, which raises the floor so
// a credential close to expiry is not refreshed in a tight loop.
func refreshDelay(now, expiresAt time.Time, interval time.Duration, again bool) time.Duration {
	d := interval
	if !expiresAt.IsZero() {
		if untilLead := expiresAt.Sub(now) - refreshLead; untilLead < d {
			d = untilLead
		}
	}
	floor := minRefreshDelay
	if again {
		floor = max(floor, min(interval, minRenewDelay))
	}
	if d < floor {
		d = floor
	}
	return d
}
