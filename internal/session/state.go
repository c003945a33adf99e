// ABOUTME: Observable session state
// ABOUTME: Phase enum and the immutable snapshot delivered to subscribers

package session

import (
	"time"

	"github.com/AbdelrhmanAbuelnile/Cashly/internal/client"
)

// Phase is the state machine position of the session
type Phase int

const (
	PhaseBootstrapping Phase = iota
	PhaseUnauthenticated
	PhaseAuthenticated
	PhaseRefreshing
)

func (p Phase) String() string {
	switch p {
	case PhaseBootstrapping:
		return "bootstrapping"
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseRefreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}

// MarshalText renders the phase by name
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Snapshot is a copy of the session state at one point in time
type Snapshot struct {
	User            *client.Profile `json:"user,omitempty"`
	IsAuthenticated bool            `json:"isAuthenticated"`
	IsLoading       bool            `json:"isLoading"`
	Phase           Phase           `json:"phase"`
	ExpiresAt       time.Time       `json:"expiresAt,omitzero"`
}
